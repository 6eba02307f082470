package httpapi

import (
	"github.com/shopspring/decimal"

	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/money"
	"mothercare/backend/internal/report"
)

// Views add cedi-formatted strings next to the raw decimal amounts. The raw
// amounts stay authoritative.

type itemView struct {
	domain.Item
	UnitPriceDisplay string `json:"unit_price_display"`
}

func newItemView(item domain.Item) itemView {
	return itemView{Item: item, UnitPriceDisplay: money.FormatCedi(item.UnitPrice)}
}

func newItemViews(items []domain.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}
	return views
}

type saleView struct {
	domain.Sale
	UnitPriceDisplay  string `json:"unit_price_display"`
	TotalPriceDisplay string `json:"total_price_display"`
}

func newSaleView(sale domain.Sale) saleView {
	return saleView{
		Sale:              sale,
		UnitPriceDisplay:  money.FormatCedi(sale.UnitPrice),
		TotalPriceDisplay: money.FormatCedi(sale.TotalPrice),
	}
}

func newSaleViews(sales []domain.Sale) []saleView {
	views := make([]saleView, 0, len(sales))
	for _, sale := range sales {
		views = append(views, newSaleView(sale))
	}
	return views
}

type reportView struct {
	domain.Report
	TotalRevenueDisplay string `json:"total_revenue_display"`
}

func newReportView(r domain.Report) reportView {
	return reportView{Report: r, TotalRevenueDisplay: money.FormatCedi(r.TotalRevenue)}
}

func newReportViews(reports []domain.Report) []reportView {
	views := make([]reportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, newReportView(r))
	}
	return views
}

type closureView struct {
	Closed domain.Session `json:"closed"`
	Report *reportView    `json:"report,omitempty"`
	Opened domain.Session `json:"opened"`
}

func newClosureView(c domain.SessionClosure) closureView {
	view := closureView{Closed: c.Closed, Opened: c.Opened}
	if c.Report != nil {
		rv := newReportView(*c.Report)
		view.Report = &rv
	}
	return view
}

type topItemView struct {
	report.TopItem
	RevenueDisplay string `json:"revenue_display"`
}

func newTopItemViews(items []report.TopItem) []topItemView {
	views := make([]topItemView, 0, len(items))
	for _, item := range items {
		views = append(views, topItemView{TopItem: item, RevenueDisplay: money.FormatCedi(item.Revenue)})
	}
	return views
}

type partitionView struct {
	report.Partition
	TopItems            []topItemView `json:"top_items"`
	TotalRevenueDisplay string        `json:"total_revenue_display"`
}

func newPartitionViews(partitions []report.Partition) []partitionView {
	views := make([]partitionView, 0, len(partitions))
	for _, p := range partitions {
		views = append(views, partitionView{
			Partition:           p,
			TopItems:            newTopItemViews(p.TopItems),
			TotalRevenueDisplay: money.FormatCedi(p.TotalRevenue),
		})
	}
	return views
}

type summaryView struct {
	report.Summary
	TopItems            []topItemView `json:"top_items"`
	TotalRevenueDisplay string        `json:"total_revenue_display"`
}

func newSummaryView(s report.Summary) summaryView {
	return summaryView{
		Summary:             s,
		TopItems:            newTopItemViews(s.TopItems),
		TotalRevenueDisplay: money.FormatCedi(s.TotalRevenue),
	}
}

type overviewView struct {
	Range               report.Range    `json:"range"`
	Lines               []summaryView   `json:"lines"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	TotalRevenueDisplay string          `json:"total_revenue_display"`
	TotalSales          int             `json:"total_sales"`
}

func newOverviewView(o report.Overview) overviewView {
	lines := make([]summaryView, 0, len(o.Lines))
	for _, s := range o.Lines {
		lines = append(lines, newSummaryView(s))
	}
	return overviewView{
		Range:               o.Range,
		Lines:               lines,
		TotalRevenue:        o.TotalRevenue,
		TotalRevenueDisplay: money.FormatCedi(o.TotalRevenue),
		TotalSales:          o.TotalSales,
	}
}
