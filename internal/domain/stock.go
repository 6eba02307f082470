package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StatusInStock    StockStatus = "In Stock"
	StatusLowStock   StockStatus = "Low Stock"
	StatusOutOfStock StockStatus = "Out of Stock"
)

// Counts are stored as 32-bit integers and money as NUMERIC(12,2).
const (
	MaxQuantity    = math.MaxInt32
	AmountDecimals = 2
)

var amountCeiling = decimal.New(1, 10)

// ValidAmount reports whether d can be stored as money without rounding.
func ValidAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(AmountDecimals)) && d.LessThan(amountCeiling)
}

func ValidQuantity(q int) bool {
	return q >= 0 && q <= MaxQuantity
}

// Valid reports whether the item can be stored exactly as it is.
func (i Item) Valid() bool {
	return strings.TrimSpace(i.Name) != "" &&
		ValidQuantity(i.Quantity) &&
		ValidAmount(i.UnitPrice) &&
		ValidQuantity(i.ReorderLevel)
}

// DeriveStatus is the only source of an item's status. A quantity equal to
// the reorder level counts as low stock.
func DeriveStatus(quantity int, reorderLevel int) StockStatus {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity <= reorderLevel:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Normalize re-derives the status from quantity and reorder level. Stores call
// it on every write so a caller-supplied status never survives.
func (i *Item) Normalize() {
	i.Status = DeriveStatus(i.Quantity, i.ReorderLevel)
}

// Apply copies the fields set in patch onto the item and re-derives status.
func (i *Item) Apply(patch ItemUpdateRequest) {
	if patch.Name != nil {
		i.Name = *patch.Name
	}
	if patch.Quantity != nil {
		i.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		i.UnitPrice = *patch.UnitPrice
	}
	if patch.ReorderLevel != nil {
		i.ReorderLevel = *patch.ReorderLevel
	}
	if patch.CategoryID != nil {
		i.CategoryID = *patch.CategoryID
	}
	i.Normalize()
}

// Sellable reports why a sale of qty units cannot be taken from the item, if
// it cannot. Both stores map the result to their own sentinel errors.
func (i Item) Sellable(qty int) (outOfStock bool, insufficient bool) {
	if i.Status == StatusOutOfStock || i.Quantity <= 0 {
		return true, false
	}
	if qty > i.Quantity {
		return false, true
	}
	return false, false
}

func (i Item) SaleTotal(qty int) decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// NewSale snapshots the item's name and price into a sale record. The total is
// fixed here and never recomputed from later prices.
func NewSale(id string, item Item, qty int, sessionID string, at time.Time, recordedBy string) Sale {
	return Sale{
		ID:           id,
		Line:         item.Line,
		ItemID:       item.ID,
		ItemName:     item.Name,
		QuantitySold: qty,
		UnitPrice:    item.UnitPrice,
		TotalPrice:   item.SaleTotal(qty),
		SaleDate:     at,
		SessionID:    sessionID,
		RecordedBy:   recordedBy,
	}
}

// Rollup sums the sales of one session into a report snapshot. ok is false
// when there is nothing to report.
func Rollup(id string, session Session, sales []Sale, notes string, at time.Time) (Report, bool) {
	total := decimal.Zero
	count := 0
	for _, sale := range sales {
		if sale.SessionID != session.ID {
			continue
		}
		total = total.Add(sale.TotalPrice)
		count++
	}
	if count == 0 {
		return Report{}, false
	}
	return Report{
		ID:           id,
		Line:         session.Line,
		SessionID:    session.ID,
		TotalRevenue: total,
		TotalSales:   count,
		Notes:        notes,
		Date:         at,
	}, true
}

// NextOpenedAt returns a timestamp strictly after prev, so the new session is
// always the latest one even when the clock has not advanced.
func NextOpenedAt(prev time.Time, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}
