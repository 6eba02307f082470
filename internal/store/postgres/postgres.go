package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/store"
	"mothercare/backend/internal/xid"
)

//go:embed schema.sql
var schema string

// tableSet names the tables and columns backing one line. The two lines keep
// the column names their client application already reads.
type tableSet struct {
	items     string
	itemName  string
	itemPrice string
	sales     string
	saleItem  string
	saleName  string
	saleQty   string
	salePrice string
	sessions  string
	reports   string
}

var tables = map[domain.Line]tableSet{
	domain.LineMothercare: {
		items:     "products",
		itemName:  "product_name",
		itemPrice: "unit_price",
		sales:     "sales",
		saleItem:  "product_id",
		saleName:  "product_name",
		saleQty:   "quantity_sold",
		salePrice: "unit_price",
		sessions:  "account_sessions",
		reports:   "reports",
	},
	domain.LineKitchen: {
		items:     "food_items",
		itemName:  "name",
		itemPrice: "price",
		sales:     "food_sales",
		saleItem:  "food_item_id",
		saleName:  "food_name",
		saleQty:   "quantity",
		salePrice: "price",
		sessions:  "kitchen_sessions",
		reports:   "kitchen_reports",
	},
}

func (t tableSet) itemColumns() string {
	return fmt.Sprintf("id, %s, quantity, %s, reorder_level, status, category_id, created_at, updated_at", t.itemName, t.itemPrice)
}

func (t tableSet) saleColumns() string {
	return fmt.Sprintf("id, %s, %s, %s, %s, total_price, sale_date, session_id, recorded_by", t.saleItem, t.saleName, t.saleQty, t.salePrice)
}

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates any missing tables. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// inTx runs fn in a serializable transaction and maps driver errors to store
// sentinels. Nothing fn wrote is visible unless it returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return translate(err)
	}
	return translate(tx.Commit())
}

func lookup(line domain.Line) (tableSet, error) {
	t, ok := tables[line]
	if !ok {
		return tableSet{}, store.ErrInvalid
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner, line domain.Line) (*domain.Item, error) {
	var item domain.Item
	var status string
	var category sql.NullString
	err := row.Scan(
		&item.ID, &item.Name, &item.Quantity, &item.UnitPrice, &item.ReorderLevel,
		&status, &category, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.Line = line
	item.Status = domain.StockStatus(status)
	item.CategoryID = category.String
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

func scanSale(row scanner, line domain.Line) (*domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(
		&sale.ID, &sale.ItemID, &sale.ItemName, &sale.QuantitySold, &sale.UnitPrice,
		&sale.TotalPrice, &sale.SaleDate, &sale.SessionID, &sale.RecordedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.Line = line
	sale.SaleDate = sale.SaleDate.UTC()
	return &sale, nil
}

func scanReport(row scanner, line domain.Line) (*domain.Report, error) {
	var report domain.Report
	err := row.Scan(&report.ID, &report.SessionID, &report.TotalRevenue, &report.TotalSales, &report.Notes, &report.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	report.Line = line
	report.Date = report.Date.UTC()
	return &report, nil
}

func (s *Store) ListItems(ctx context.Context, line domain.Line) ([]domain.Item, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY %s, id
	`, t.itemColumns(), t.items, t.itemName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		item, err := scanItem(rows, line)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetItem(ctx context.Context, line domain.Line, id string) (*domain.Item, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, t.itemColumns(), t.items), id)
	return scanItem(row, line)
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	t, err := lookup(item.Line)
	if err != nil {
		return nil, err
	}
	if !item.Valid() {
		return nil, store.ErrInvalid
	}
	if item.ID == "" {
		item.ID = xid.New(item.Line.Prefix(domain.KindItem))
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.UpdatedAt = item.CreatedAt
	item.Normalize()

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, %s, quantity, %s, reorder_level, status, category_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, t.items, t.itemName, t.itemPrice),
		item.ID, item.Name, item.Quantity, item.UnitPrice, item.ReorderLevel,
		string(item.Status), nullIfEmpty(item.CategoryID), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	created := item
	return &created, nil
}

func (s *Store) UpdateItem(ctx context.Context, line domain.Line, id string, patch domain.ItemUpdateRequest) (*domain.Item, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}

	var updated *domain.Item
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		item, err := lockItem(ctx, tx, t, line, id)
		if err != nil {
			return err
		}
		item.Apply(patch)
		if !item.Valid() {
			return store.ErrInvalid
		}
		item.UpdatedAt = time.Now().UTC()
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s
			SET %s = $2, quantity = $3, %s = $4, reorder_level = $5, status = $6, category_id = $7, updated_at = $8
			WHERE id = $1
		`, t.items, t.itemName, t.itemPrice),
			item.ID, item.Name, item.Quantity, item.UnitPrice, item.ReorderLevel,
			string(item.Status), nullIfEmpty(item.CategoryID), item.UpdatedAt,
		)
		if err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) AdjustStock(ctx context.Context, line domain.Line, id string, delta int) (*domain.Item, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}

	var adjusted *domain.Item
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		item, err := lockItem(ctx, tx, t, line, id)
		if err != nil {
			return err
		}
		if item.Quantity+delta < 0 {
			return store.ErrInsufficientStock
		}
		if !domain.ValidQuantity(item.Quantity + delta) {
			return store.ErrInvalid
		}
		item.Quantity += delta
		item.Normalize()
		if err := writeQuantity(ctx, tx, t, item); err != nil {
			return err
		}
		adjusted = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

func lockItem(ctx context.Context, tx *sql.Tx, t tableSet, line domain.Line, id string) (*domain.Item, error) {
	row := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, t.itemColumns(), t.items), id)
	return scanItem(row, line)
}

func writeQuantity(ctx context.Context, tx *sql.Tx, t tableSet, item *domain.Item) error {
	item.UpdatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET quantity = $2, status = $3, updated_at = $4
		WHERE id = $1
	`, t.items), item.ID, item.Quantity, string(item.Status), item.UpdatedAt)
	return err
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func currentSession(ctx context.Context, q queryRower, t tableSet, line domain.Line, lock string) (*domain.Session, error) {
	var session domain.Session
	err := q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, opened_at
		FROM %s
		ORDER BY opened_at DESC
		LIMIT 1
		%s
	`, t.sessions, lock)).Scan(&session.ID, &session.OpenedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoSession
		}
		return nil, err
	}
	session.Line = line
	session.OpenedAt = session.OpenedAt.UTC()
	return &session, nil
}

func (s *Store) RecordSale(ctx context.Context, line domain.Line, itemID string, qty int, recordedBy string, at time.Time) (*domain.Sale, *domain.Item, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, nil, err
	}
	if qty < 1 {
		return nil, nil, store.ErrInvalid
	}

	var sale domain.Sale
	var item *domain.Item
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		session, err := currentSession(ctx, tx, t, line, "FOR SHARE")
		if err != nil {
			return err
		}
		item, err = lockItem(ctx, tx, t, line, itemID)
		if err != nil {
			return err
		}
		outOfStock, insufficient := item.Sellable(qty)
		if outOfStock {
			return store.ErrOutOfStock
		}
		if insufficient {
			return store.ErrInsufficientStock
		}
		if !domain.ValidAmount(item.SaleTotal(qty)) {
			return store.ErrInvalid
		}

		sale = domain.NewSale(xid.New(line.Prefix(domain.KindSale)), *item, qty, session.ID, at.UTC().Truncate(time.Microsecond), recordedBy)
		item.Quantity -= qty
		item.Normalize()
		item.UpdatedAt = sale.SaleDate

		res, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s
			SET quantity = quantity - $2, status = $3, updated_at = $4
			WHERE id = $1 AND quantity >= $2
		`, t.items), item.ID, qty, string(item.Status), item.UpdatedAt)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrConflict
		}

		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (%s)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, t.sales, t.saleColumns()),
			sale.ID, sale.ItemID, sale.ItemName, sale.QuantitySold, sale.UnitPrice,
			sale.TotalPrice, sale.SaleDate, sale.SessionID, sale.RecordedBy,
		)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &sale, item, nil
}

func (s *Store) GetSale(ctx context.Context, line domain.Line, id string) (*domain.Sale, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, t.saleColumns(), t.sales), id)
	return scanSale(row, line)
}

func (s *Store) ListSales(ctx context.Context, line domain.Line, filter domain.SaleFilter) ([]domain.Sale, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}

	conditions := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("sale_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("sale_date <= $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY seq ASC
	`, t.saleColumns(), t.sales, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	for rows.Next() {
		sale, err := scanSale(rows, line)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) DeleteSale(ctx context.Context, line domain.Line, id string, restock bool) (*domain.Sale, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}

	var deleted *domain.Sale
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, t.saleColumns(), t.sales), id)
		sale, err := scanSale(row, line)
		if err != nil {
			return err
		}
		if restock {
			item, err := lockItem(ctx, tx, t, line, sale.ItemID)
			if err != nil {
				return err
			}
			item.Quantity += sale.QuantitySold
			item.Normalize()
			if err := writeQuantity(ctx, tx, t, item); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.sales), id); err != nil {
			return err
		}
		deleted = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *Store) CurrentSession(ctx context.Context, line domain.Line) (*domain.Session, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}
	return currentSession(ctx, s.db, t, line, "")
}

func (s *Store) ListSessions(ctx context.Context, line domain.Line) ([]domain.Session, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, opened_at
		FROM %s
		ORDER BY opened_at DESC
	`, t.sessions))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0, 32)
	for rows.Next() {
		session := domain.Session{Line: line}
		if err := rows.Scan(&session.ID, &session.OpenedAt); err != nil {
			return nil, err
		}
		session.OpenedAt = session.OpenedAt.UTC()
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func insertSession(ctx context.Context, tx *sql.Tx, t tableSet, session domain.Session) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, opened_at)
		VALUES ($1,$2)
	`, t.sessions), session.ID, session.OpenedAt)
	return err
}

func (s *Store) OpenFirstSession(ctx context.Context, line domain.Line, at time.Time) (*domain.Session, bool, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, false, err
	}

	var session *domain.Session
	created := false
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := currentSession(ctx, tx, t, line, "")
		if err == nil {
			session = current
			return nil
		}
		if !errors.Is(err, store.ErrNoSession) {
			return err
		}
		session = &domain.Session{
			ID:       xid.New(line.Prefix(domain.KindSession)),
			Line:     line,
			OpenedAt: at.UTC().Truncate(time.Microsecond),
		}
		created = true
		return insertSession(ctx, tx, t, *session)
	})
	if err != nil {
		return nil, false, err
	}
	return session, created, nil
}

func (s *Store) CloseSession(ctx context.Context, line domain.Line, notes string, at time.Time) (*domain.SessionClosure, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}

	var closure *domain.SessionClosure
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		closed, err := currentSession(ctx, tx, t, line, "FOR UPDATE")
		if err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
			SELECT session_id, total_price
			FROM %s
			WHERE session_id = $1
			ORDER BY seq ASC
		`, t.sales), closed.ID)
		if err != nil {
			return err
		}
		sales := make([]domain.Sale, 0, 64)
		for rows.Next() {
			var sale domain.Sale
			if err := rows.Scan(&sale.SessionID, &sale.TotalPrice); err != nil {
				_ = rows.Close()
				return err
			}
			sales = append(sales, sale)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()

		result := &domain.SessionClosure{Closed: *closed}
		if report, ok := domain.Rollup(xid.New(line.Prefix(domain.KindReport)), *closed, sales, notes, at.UTC().Truncate(time.Microsecond)); ok {
			_, err := tx.ExecContext(ctx, fmt.Sprintf(`
				INSERT INTO %s (id, session_id, total_revenue, total_sales, notes, date)
				VALUES ($1,$2,$3,$4,$5,$6)
			`, t.reports), report.ID, report.SessionID, report.TotalRevenue, report.TotalSales, report.Notes, report.Date)
			if err != nil {
				return err
			}
			result.Report = &report
		}

		result.Opened = domain.Session{
			ID:       xid.New(line.Prefix(domain.KindSession)),
			Line:     line,
			OpenedAt: domain.NextOpenedAt(closed.OpenedAt, at),
		}
		if err := insertSession(ctx, tx, t, result.Opened); err != nil {
			return err
		}
		closure = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closure, nil
}

func (s *Store) ListReports(ctx context.Context, line domain.Line) ([]domain.Report, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, session_id, total_revenue, total_sales, notes, date
		FROM %s
		ORDER BY date DESC
	`, t.reports))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]domain.Report, 0, 32)
	for rows.Next() {
		report, err := scanReport(rows, line)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Store) GetReportBySession(ctx context.Context, line domain.Line, sessionID string) (*domain.Report, error) {
	t, err := lookup(line)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, session_id, total_revenue, total_sales, notes, date
		FROM %s
		WHERE session_id = $1
	`, t.reports), sessionID)
	return scanReport(row, line)
}

// translate maps postgres error codes onto store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Message)
	case "23505":
		return store.ErrDuplicate
	case "23503", "23514", "22003":
		return store.ErrInvalid
	default:
		return err
	}
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
