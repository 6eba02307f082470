package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mothercare/backend/internal/domain"
)

const (
	PresetToday = "today"
	PresetWeek  = "week"
	PresetMonth = "month"
)

// Range is an inclusive time window. A nil bound is open.
type Range struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

func (r Range) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Preset resolves a named range relative to now in loc. Weeks start on
// Sunday and run to now; months cover the whole calendar month.
func Preset(name string, now time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var from, to time.Time
	switch name {
	case PresetToday:
		from = startOfDay
		to = startOfDay.AddDate(0, 0, 1).Add(-time.Nanosecond)
	case PresetWeek:
		from = startOfDay.AddDate(0, 0, -int(local.Weekday()))
		to = local
	case PresetMonth:
		from = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	default:
		return Range{}, fmt.Errorf("unknown range preset %q", name)
	}
	return Range{From: &from, To: &to}, nil
}

type Summary struct {
	Line           domain.Line     `json:"line"`
	Range          Range           `json:"range"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalSales     int             `json:"total_sales"`
	TopItems       []TopItem       `json:"top_items"`
	RemainingStock int             `json:"remaining_stock"`
	LowStockItems  int             `json:"low_stock_items"`
}

// Summarize reports the sales inside r together with the stock left across
// items.
func Summarize(line domain.Line, sales []domain.Sale, items []domain.Item, r Range) Summary {
	inRange := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		if r.Contains(sale.SaleDate) {
			inRange = append(inRange, sale)
		}
	}
	total, count := Totals(inRange)

	remaining := 0
	low := 0
	for _, item := range items {
		remaining += item.Quantity
		if domain.DeriveStatus(item.Quantity, item.ReorderLevel) != domain.StatusInStock {
			low++
		}
	}

	return Summary{
		Line:           line,
		Range:          r,
		TotalRevenue:   total,
		TotalSales:     count,
		TopItems:       TopItems(inRange, TopItemsLimit),
		RemainingStock: remaining,
		LowStockItems:  low,
	}
}

// Overview puts the summaries of several lines side by side.
type Overview struct {
	Range        Range           `json:"range"`
	Lines        []Summary       `json:"lines"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalSales   int             `json:"total_sales"`
}

func Combine(r Range, summaries ...Summary) Overview {
	overview := Overview{Range: r, Lines: summaries, TotalRevenue: decimal.Zero}
	for _, summary := range summaries {
		overview.TotalRevenue = overview.TotalRevenue.Add(summary.TotalRevenue)
		overview.TotalSales += summary.TotalSales
	}
	return overview
}
