package store

import (
	"context"
	"errors"
	"time"

	"mothercare/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("invalid input")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoSession         = errors.New("no open session")
	ErrConflict          = errors.New("concurrent update conflict")
	ErrDuplicate         = errors.New("already exists")
)

// Repository is the persistence boundary. Each method that changes stock or
// sessions is a single atomic unit: on error nothing it touched is visible.
type Repository interface {
	ListItems(ctx context.Context, line domain.Line) ([]domain.Item, error)
	GetItem(ctx context.Context, line domain.Line, id string) (*domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	// UpdateItem applies patch to the stored item under the same lock that
	// guards sales, so a concurrent sale is never overwritten.
	UpdateItem(ctx context.Context, line domain.Line, id string, patch domain.ItemUpdateRequest) (*domain.Item, error)
	// AdjustStock applies delta to the item's quantity, failing with
	// ErrInsufficientStock when the result would be negative.
	AdjustStock(ctx context.Context, line domain.Line, id string, delta int) (*domain.Item, error)

	// RecordSale resolves the current session, validates stock, inserts the
	// sale stamped at and decrements the item in one unit.
	RecordSale(ctx context.Context, line domain.Line, itemID string, qty int, recordedBy string, at time.Time) (*domain.Sale, *domain.Item, error)
	GetSale(ctx context.Context, line domain.Line, id string) (*domain.Sale, error)
	// ListSales returns sales in creation order.
	ListSales(ctx context.Context, line domain.Line, filter domain.SaleFilter) ([]domain.Sale, error)
	DeleteSale(ctx context.Context, line domain.Line, id string, restock bool) (*domain.Sale, error)

	CurrentSession(ctx context.Context, line domain.Line) (*domain.Session, error)
	// ListSessions returns sessions most recent first.
	ListSessions(ctx context.Context, line domain.Line) ([]domain.Session, error)
	// OpenFirstSession creates a session only when the line has none. It
	// returns the current session and whether it was created by this call.
	OpenFirstSession(ctx context.Context, line domain.Line, at time.Time) (*domain.Session, bool, error)
	// CloseSession rolls up the current session into a report (when it has
	// sales) and opens its successor.
	CloseSession(ctx context.Context, line domain.Line, notes string, at time.Time) (*domain.SessionClosure, error)

	ListReports(ctx context.Context, line domain.Line) ([]domain.Report, error)
	GetReportBySession(ctx context.Context, line domain.Line, sessionID string) (*domain.Report, error)

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	RenameCategory(ctx context.Context, id string, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
