package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line selects one of the two parallel sales pipelines. Every catalog item,
// sale, session and report belongs to exactly one line.
type Line string

const (
	LineMothercare Line = "mothercare"
	LineKitchen    Line = "kitchen"
)

func Lines() []Line {
	return []Line{LineMothercare, LineKitchen}
}

func (l Line) Valid() bool {
	return l == LineMothercare || l == LineKitchen
}

func ParseLine(raw string) (Line, bool) {
	switch Line(raw) {
	case LineMothercare:
		return LineMothercare, true
	case LineKitchen, "food":
		return LineKitchen, true
	default:
		return "", false
	}
}

// Record kinds used to build identifier prefixes.
const (
	KindItem    = "item"
	KindSale    = "sale"
	KindSession = "session"
	KindReport  = "report"
)

var linePrefixes = map[Line]map[string]string{
	LineMothercare: {KindItem: "prod", KindSale: "sale", KindSession: "sess", KindReport: "rep"},
	LineKitchen:    {KindItem: "food", KindSale: "fsale", KindSession: "ksess", KindReport: "krep"},
}

// Prefix returns the identifier prefix for a record kind on this line.
func (l Line) Prefix(kind string) string {
	return linePrefixes[l][kind]
}

const DefaultReorderLevel = 5

type Item struct {
	ID           string          `json:"id"`
	Line         Line            `json:"line"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ReorderLevel int             `json:"reorder_level"`
	Status       StockStatus     `json:"status"`
	CategoryID   string          `json:"category_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ItemCreateRequest struct {
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ReorderLevel *int            `json:"reorder_level,omitempty"`
	CategoryID   string          `json:"category_id,omitempty"`
}

// ItemUpdateRequest carries only the fields the operator changed. Status is
// deliberately absent: it is always derived from quantity and reorder level.
type ItemUpdateRequest struct {
	Name         *string          `json:"name,omitempty"`
	Quantity     *int             `json:"quantity,omitempty"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	ReorderLevel *int             `json:"reorder_level,omitempty"`
	CategoryID   *string          `json:"category_id,omitempty"`
}

type StockAdjustmentRequest struct {
	Delta int `json:"delta"`
}

type Sale struct {
	ID           string          `json:"id"`
	Line         Line            `json:"line"`
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	QuantitySold int             `json:"quantity_sold"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	SaleDate     time.Time       `json:"sale_date"`
	SessionID    string          `json:"session_id"`
	RecordedBy   string          `json:"recorded_by,omitempty"`
}

type SaleRequest struct {
	ItemID       string `json:"item_id"`
	QuantitySold int    `json:"quantity_sold"`
}

type SaleResponse struct {
	Sale Sale `json:"sale"`
	Item Item `json:"item"`
}

type SaleFilter struct {
	SessionID string
	From      *time.Time
	To        *time.Time
}

type DeleteSaleRequest struct {
	Restock    bool   `json:"restock"`
	ManagerPIN string `json:"manager_pin"`
}

// Session is an accounting period. It has no closed flag: a session is
// closed as soon as a session with a later OpenedAt exists.
type Session struct {
	ID       string    `json:"id"`
	Line     Line      `json:"line"`
	OpenedAt time.Time `json:"opened_at"`
}

type Report struct {
	ID           string          `json:"id"`
	Line         Line            `json:"line"`
	SessionID    string          `json:"session_id"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalSales   int             `json:"total_sales"`
	Notes        string          `json:"notes,omitempty"`
	Date         time.Time       `json:"date"`
}

type SessionCloseRequest struct {
	Notes string `json:"notes"`
}

// SessionClosure is the outcome of closing the current session. Report is
// nil when the closed session had no sales.
type SessionClosure struct {
	Closed Session `json:"closed"`
	Report *Report `json:"report,omitempty"`
	Opened Session `json:"opened"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
	// RoleSystem is used by the process itself, e.g. for startup bootstrap.
	// It is never issued in a token.
	RoleSystem = "system"
)

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
