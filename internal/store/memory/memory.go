package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/store"
	"mothercare/backend/internal/xid"
)

// lineState holds one pipeline's tables. Sales and sessions keep insertion
// order; sessions are appended with strictly increasing OpenedAt.
type lineState struct {
	items    map[string]domain.Item
	sales    []domain.Sale
	sessions []domain.Session
	reports  []domain.Report
}

type Store struct {
	mu              sync.RWMutex
	lines           map[domain.Line]*lineState
	categoriesByID  map[string]domain.Category
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD.
// If unset, dev defaults are used with a warning. The postgres store is used
// whenever DATABASE_URL is set, so these never reach production.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Warn().Str("component", "memory-store").Msg("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.MinCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store with only the seed user accounts.
func New() *Store {
	lines := make(map[domain.Line]*lineState, len(domain.Lines()))
	for _, line := range domain.Lines() {
		lines[line] = &lineState{items: map[string]domain.Item{}}
	}
	return &Store{
		lines:           lines,
		categoriesByID:  map[string]domain.Category{},
		usersByUsername: seedUsers(),
	}
}

// NewSeeded returns a store with a small demo catalog on both lines.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	categories := []domain.Category{
		{ID: "cat-baby-care", Name: "Baby Care", CreatedAt: now},
		{ID: "cat-feeding", Name: "Feeding", CreatedAt: now},
		{ID: "cat-meals", Name: "Meals", CreatedAt: now},
	}
	for _, c := range categories {
		s.categoriesByID[c.ID] = c
	}

	seed := []struct {
		line     domain.Line
		id       string
		name     string
		qty      int
		price    string
		category string
	}{
		{domain.LineMothercare, "prod-wipes", "Baby Wipes", 40, "2.00", "cat-baby-care"},
		{domain.LineMothercare, "prod-diapers", "Diapers Size 3", 24, "85.00", "cat-baby-care"},
		{domain.LineMothercare, "prod-bottle", "Feeding Bottle 250ml", 12, "45.50", "cat-feeding"},
		{domain.LineMothercare, "prod-formula", "Infant Formula 400g", 4, "120.00", "cat-feeding"},
		{domain.LineKitchen, "food-jollof", "Jollof Rice", 30, "35.00", "cat-meals"},
		{domain.LineKitchen, "food-waakye", "Waakye", 25, "30.00", "cat-meals"},
		{domain.LineKitchen, "food-kelewele", "Kelewele", 3, "15.00", "cat-meals"},
	}
	for _, p := range seed {
		item := domain.Item{
			ID:           p.id,
			Line:         p.line,
			Name:         p.name,
			Quantity:     p.qty,
			UnitPrice:    decimal.RequireFromString(p.price),
			ReorderLevel: domain.DefaultReorderLevel,
			CategoryID:   p.category,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		item.Normalize()
		s.lines[p.line].items[item.ID] = item
	}
	return s
}

func (s *Store) state(line domain.Line) (*lineState, error) {
	st, ok := s.lines[line]
	if !ok {
		return nil, store.ErrInvalid
	}
	return st, nil
}

func (s *Store) ListItems(_ context.Context, line domain.Line) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	items := make([]domain.Item, 0, len(st.items))
	for _, item := range st.items {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.Item) int {
		if a.Name == b.Name {
			return strings.Compare(a.ID, b.ID)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return items, nil
}

func (s *Store) GetItem(_ context.Context, line domain.Line, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	item, ok := st.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(item.Line)
	if err != nil {
		return nil, err
	}
	if !item.Valid() {
		return nil, store.ErrInvalid
	}
	if item.CategoryID != "" {
		if _, ok := s.categoriesByID[item.CategoryID]; !ok {
			return nil, store.ErrInvalid
		}
	}
	if item.ID == "" {
		item.ID = xid.New(item.Line.Prefix(domain.KindItem))
	}
	if _, exists := st.items[item.ID]; exists {
		return nil, store.ErrDuplicate
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt
	item.Normalize()
	st.items[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) UpdateItem(_ context.Context, line domain.Line, id string, patch domain.ItemUpdateRequest) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	item, ok := st.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	item.Apply(patch)
	if !item.Valid() {
		return nil, store.ErrInvalid
	}
	if item.CategoryID != "" {
		if _, ok := s.categoriesByID[item.CategoryID]; !ok {
			return nil, store.ErrInvalid
		}
	}
	item.UpdatedAt = time.Now().UTC()
	st.items[id] = item
	return &item, nil
}

func (s *Store) AdjustStock(_ context.Context, line domain.Line, id string, delta int) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	item, ok := st.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if item.Quantity+delta < 0 {
		return nil, store.ErrInsufficientStock
	}
	if !domain.ValidQuantity(item.Quantity + delta) {
		return nil, store.ErrInvalid
	}
	item.Quantity += delta
	item.UpdatedAt = time.Now().UTC()
	item.Normalize()
	st.items[id] = item
	return &item, nil
}

func (s *Store) RecordSale(_ context.Context, line domain.Line, itemID string, qty int, recordedBy string, at time.Time) (*domain.Sale, *domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(line)
	if err != nil {
		return nil, nil, err
	}
	if qty < 1 {
		return nil, nil, store.ErrInvalid
	}
	if len(st.sessions) == 0 {
		return nil, nil, store.ErrNoSession
	}
	session := st.sessions[len(st.sessions)-1]

	item, ok := st.items[itemID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	outOfStock, insufficient := item.Sellable(qty)
	if outOfStock {
		return nil, nil, store.ErrOutOfStock
	}
	if insufficient {
		return nil, nil, store.ErrInsufficientStock
	}
	if !domain.ValidAmount(item.SaleTotal(qty)) {
		return nil, nil, store.ErrInvalid
	}

	sale := domain.NewSale(xid.New(line.Prefix(domain.KindSale)), item, qty, session.ID, at.UTC(), recordedBy)
	item.Quantity -= qty
	item.UpdatedAt = sale.SaleDate
	item.Normalize()

	st.items[itemID] = item
	st.sales = append(st.sales, sale)
	return &sale, &item, nil
}

func (s *Store) GetSale(_ context.Context, line domain.Line, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	for _, sale := range st.sales {
		if sale.ID == id {
			found := sale
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListSales(_ context.Context, line domain.Line, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, len(st.sales))
	for _, sale := range st.sales {
		if filter.SessionID != "" && sale.SessionID != filter.SessionID {
			continue
		}
		if filter.From != nil && sale.SaleDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && sale.SaleDate.After(*filter.To) {
			continue
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

func (s *Store) DeleteSale(_ context.Context, line domain.Line, id string, restock bool) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(st.sales, func(sale domain.Sale) bool { return sale.ID == id })
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	sale := st.sales[idx]

	if restock {
		item, ok := st.items[sale.ItemID]
		if !ok {
			return nil, store.ErrNotFound
		}
		item.Quantity += sale.QuantitySold
		item.UpdatedAt = time.Now().UTC()
		item.Normalize()
		st.items[item.ID] = item
	}
	st.sales = slices.Delete(st.sales, idx, idx+1)
	return &sale, nil
}

func (s *Store) CurrentSession(_ context.Context, line domain.Line) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	if len(st.sessions) == 0 {
		return nil, store.ErrNoSession
	}
	current := st.sessions[len(st.sessions)-1]
	return &current, nil
}

func (s *Store) ListSessions(_ context.Context, line domain.Line) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	sessions := slices.Clone(st.sessions)
	slices.Reverse(sessions)
	return sessions, nil
}

func (s *Store) OpenFirstSession(_ context.Context, line domain.Line, at time.Time) (*domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(line)
	if err != nil {
		return nil, false, err
	}
	if len(st.sessions) > 0 {
		current := st.sessions[len(st.sessions)-1]
		return &current, false, nil
	}
	session := domain.Session{
		ID:       xid.New(line.Prefix(domain.KindSession)),
		Line:     line,
		OpenedAt: at.UTC().Truncate(time.Microsecond),
	}
	st.sessions = append(st.sessions, session)
	return &session, true, nil
}

func (s *Store) CloseSession(_ context.Context, line domain.Line, notes string, at time.Time) (*domain.SessionClosure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	if len(st.sessions) == 0 {
		return nil, store.ErrNoSession
	}
	closed := st.sessions[len(st.sessions)-1]
	closure := &domain.SessionClosure{Closed: closed}

	if report, ok := domain.Rollup(xid.New(line.Prefix(domain.KindReport)), closed, st.sales, notes, at.UTC()); ok {
		st.reports = append(st.reports, report)
		closure.Report = &report
	}

	closure.Opened = domain.Session{
		ID:       xid.New(line.Prefix(domain.KindSession)),
		Line:     line,
		OpenedAt: domain.NextOpenedAt(closed.OpenedAt, at),
	}
	st.sessions = append(st.sessions, closure.Opened)
	return closure, nil
}

func (s *Store) ListReports(_ context.Context, line domain.Line) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	reports := slices.Clone(st.reports)
	slices.Reverse(reports)
	return reports, nil
}

func (s *Store) GetReportBySession(_ context.Context, line domain.Line, sessionID string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.state(line)
	if err != nil {
		return nil, err
	}
	for _, report := range st.reports {
		if report.SessionID == sessionID {
			found := report
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categoriesByID))
	for _, c := range s.categoriesByID {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, store.ErrInvalid
	}
	if s.categoryNameTaken(category.Name, "") {
		return nil, store.ErrDuplicate
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	s.categoriesByID[category.ID] = category
	return &category, nil
}

func (s *Store) RenameCategory(_ context.Context, id string, name string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categoriesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrInvalid
	}
	if s.categoryNameTaken(name, id) {
		return nil, store.ErrDuplicate
	}
	category.Name = name
	s.categoriesByID[id] = category
	return &category, nil
}

// DeleteCategory detaches the category from every item that referenced it.
func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categoriesByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.categoriesByID, id)
	for _, st := range s.lines {
		for itemID, item := range st.items {
			if item.CategoryID == id {
				item.CategoryID = ""
				st.items[itemID] = item
			}
		}
	}
	return nil
}

func (s *Store) categoryNameTaken(name string, exceptID string) bool {
	for _, c := range s.categoriesByID {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalid
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrDuplicate
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalid
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

