// Package report derives read-only views over sales. Nothing here touches a
// store; callers pass in the rows they already loaded.
package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"mothercare/backend/internal/domain"
)

// TopItemsLimit is how many items a partition ranks.
const TopItemsLimit = 5

type TopItem struct {
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	Count    int             `json:"count"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type Partition struct {
	Key          string          `json:"key"`
	Session      *domain.Session `json:"session,omitempty"`
	Date         string          `json:"date,omitempty"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalSales   int             `json:"total_sales"`
	TopItems     []TopItem       `json:"top_items"`
}

// Totals sums revenue and counts records.
func Totals(sales []domain.Sale) (decimal.Decimal, int) {
	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.TotalPrice)
	}
	return total, len(sales)
}

// TopItems ranks items by how many sale records mention them. Ties keep the
// order in which each item first appears in sales.
func TopItems(sales []domain.Sale, limit int) []TopItem {
	index := make(map[string]int, len(sales))
	ranked := make([]TopItem, 0, len(sales))
	for _, sale := range sales {
		key := sale.ItemID
		if key == "" {
			key = "name:" + sale.ItemName
		}
		i, ok := index[key]
		if !ok {
			i = len(ranked)
			index[key] = i
			ranked = append(ranked, TopItem{ItemID: sale.ItemID, ItemName: sale.ItemName, Revenue: decimal.Zero})
		}
		ranked[i].Count++
		ranked[i].Quantity += sale.QuantitySold
		ranked[i].Revenue = ranked[i].Revenue.Add(sale.TotalPrice)
	}

	slices.SortStableFunc(ranked, func(a, b TopItem) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func partition(key string, sales []domain.Sale) Partition {
	total, count := Totals(sales)
	return Partition{
		Key:          key,
		TotalRevenue: total,
		TotalSales:   count,
		TopItems:     TopItems(sales, TopItemsLimit),
	}
}

// BySession returns one partition per session, most recently opened first.
// Sessions without sales are kept with zero totals. Sales whose session is
// not in sessions follow, in the order their session first appears.
func BySession(sessions []domain.Session, sales []domain.Sale) []Partition {
	grouped := make(map[string][]domain.Sale, len(sessions))
	orphans := make([]string, 0)
	known := make(map[string]bool, len(sessions))
	for _, session := range sessions {
		known[session.ID] = true
	}
	for _, sale := range sales {
		if !known[sale.SessionID] {
			if _, seen := grouped[sale.SessionID]; !seen {
				orphans = append(orphans, sale.SessionID)
			}
		}
		grouped[sale.SessionID] = append(grouped[sale.SessionID], sale)
	}

	ordered := slices.Clone(sessions)
	slices.SortStableFunc(ordered, func(a, b domain.Session) int {
		return b.OpenedAt.Compare(a.OpenedAt)
	})

	partitions := make([]Partition, 0, len(ordered)+len(orphans))
	for _, session := range ordered {
		p := partition(session.ID, grouped[session.ID])
		s := session
		p.Session = &s
		partitions = append(partitions, p)
	}
	for _, id := range orphans {
		partitions = append(partitions, partition(id, grouped[id]))
	}
	return partitions
}

// ByDate returns one partition per calendar day in loc, most recent first.
func ByDate(sales []domain.Sale, loc *time.Location) []Partition {
	if loc == nil {
		loc = time.UTC
	}
	grouped := make(map[string][]domain.Sale)
	days := make([]string, 0)
	for _, sale := range sales {
		day := sale.SaleDate.In(loc).Format(time.DateOnly)
		if _, seen := grouped[day]; !seen {
			days = append(days, day)
		}
		grouped[day] = append(grouped[day], sale)
	}
	slices.SortFunc(days, func(a, b string) int {
		return cmp.Compare(b, a)
	})

	partitions := make([]Partition, 0, len(days))
	for _, day := range days {
		p := partition(day, grouped[day])
		p.Date = day
		partitions = append(partitions, p)
	}
	return partitions
}
