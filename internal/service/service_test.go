package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mothercare/backend/internal/cache"
	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/report"
	"mothercare/backend/internal/store/memory"
)

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

var (
	adminCtx   = WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
	cashierCtx = WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})
)

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Now == nil {
		clock := &stepClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), step: time.Minute}
		opts.Now = clock.Now
	}
	return New(memory.New(), opts)
}

func openSession(t *testing.T, svc *Service, line domain.Line) domain.Session {
	t.Helper()
	session, _, err := svc.OpenFirstSession(adminCtx, line)
	require.NoError(t, err)
	return session
}

func createItem(t *testing.T, svc *Service, line domain.Line, name string, qty int, price string) domain.Item {
	t.Helper()
	reorder := 5
	item, err := svc.CreateItem(adminCtx, line, domain.ItemCreateRequest{
		Name:         name,
		Quantity:     qty,
		UnitPrice:    decimal.RequireFromString(price),
		ReorderLevel: &reorder,
	})
	require.NoError(t, err)
	return item
}

func TestSaleDecrementsStockAndDerivesStatus(t *testing.T) {
	svc := newTestService(t, Options{})
	session := openSession(t, svc, domain.LineMothercare)
	item := createItem(t, svc, domain.LineMothercare, "Baby Wipes", 10, "2.00")
	require.Equal(t, domain.StatusInStock, item.Status)

	resp, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: 6})
	require.NoError(t, err)

	assert.Equal(t, 4, resp.Item.Quantity)
	assert.Equal(t, domain.StatusLowStock, resp.Item.Status)
	assert.True(t, resp.Sale.TotalPrice.Equal(decimal.RequireFromString("12.00")))
	assert.Equal(t, session.ID, resp.Sale.SessionID)
	assert.Equal(t, "cashier", resp.Sale.RecordedBy)
	assert.Equal(t, "Baby Wipes", resp.Sale.ItemName)

	stored, err := svc.GetItem(context.Background(), domain.LineMothercare, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Quantity)
	assert.Equal(t, domain.StatusLowStock, stored.Status)
}

func TestInsufficientStockLeavesQuantityUnchanged(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineMothercare)
	item := createItem(t, svc, domain.LineMothercare, "Infant Formula", 4, "120.00")

	_, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, KindInsufficientStock, KindOf(err))

	stored, err := svc.GetItem(context.Background(), domain.LineMothercare, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Quantity)

	sales, err := svc.ListSales(context.Background(), domain.LineMothercare, domain.SaleFilter{})
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestOutOfStockRejectsAnySale(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineKitchen)
	item := createItem(t, svc, domain.LineKitchen, "Kelewele", 0, "15.00")
	require.Equal(t, domain.StatusOutOfStock, item.Status)

	_, err := svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: item.ID, QuantitySold: 1})
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestCloseAndReopenWritesReport(t *testing.T) {
	svc := newTestService(t, Options{})
	first := openSession(t, svc, domain.LineKitchen)
	for _, price := range []string{"10", "20", "15"} {
		item := createItem(t, svc, domain.LineKitchen, "Dish "+price, 10, price)
		_, err := svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: item.ID, QuantitySold: 1})
		require.NoError(t, err)
	}

	closure, err := svc.CloseAndReopen(adminCtx, domain.LineKitchen, "  evening shift ")
	require.NoError(t, err)
	require.NotNil(t, closure.Report)
	assert.True(t, closure.Report.TotalRevenue.Equal(decimal.NewFromInt(45)))
	assert.Equal(t, 3, closure.Report.TotalSales)
	assert.Equal(t, first.ID, closure.Report.SessionID)
	assert.Equal(t, "evening shift", closure.Report.Notes)
	assert.Equal(t, first.ID, closure.Closed.ID)
	assert.True(t, closure.Opened.OpenedAt.After(first.OpenedAt))

	current, err := svc.CurrentSession(context.Background(), domain.LineKitchen)
	require.NoError(t, err)
	assert.Equal(t, closure.Opened.ID, current.ID)

	reports, err := svc.ListReports(context.Background(), domain.LineKitchen)
	require.NoError(t, err)
	require.Len(t, reports, 1)
}

func TestReopenedSessionIsLaterEvenWhenClockStalls(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, Options{Now: func() time.Time { return frozen }})
	first := openSession(t, svc, domain.LineMothercare)

	closure, err := svc.CloseAndReopen(adminCtx, domain.LineMothercare, "")
	require.NoError(t, err)
	assert.True(t, closure.Opened.OpenedAt.After(first.OpenedAt))

	again, err := svc.CloseAndReopen(adminCtx, domain.LineMothercare, "")
	require.NoError(t, err)
	assert.True(t, again.Opened.OpenedAt.After(closure.Opened.OpenedAt))
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineMothercare)
	item := createItem(t, svc, domain.LineMothercare, "Diapers", 5, "85.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: 5})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrOutOfStock) || errors.Is(err, ErrConcurrencyConflict),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := svc.GetItem(context.Background(), domain.LineMothercare, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)
	assert.Equal(t, domain.StatusOutOfStock, stored.Status)
}

func TestManyConcurrentSalesSellExactlyTheStock(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineKitchen)
	item := createItem(t, svc, domain.LineKitchen, "Jollof Rice", 7, "35.00")

	var wg sync.WaitGroup
	var sold atomic.Int32
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: item.ID, QuantitySold: 1}); err == nil {
				sold.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 7, sold.Load())
	stored, err := svc.GetItem(context.Background(), domain.LineKitchen, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)

	sales, err := svc.ListSales(context.Background(), domain.LineKitchen, domain.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, sales, 7)
}

func TestConcurrentSalesAndCloseKeepReportsConsistent(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineMothercare)
	item := createItem(t, svc, domain.LineMothercare, "Baby Wipes", 1000, "2.00")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: 1})
			assert.NoError(t, err)
		}()
		if i%10 == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.CloseAndReopen(adminCtx, domain.LineMothercare, "")
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	reports, err := svc.ListReports(context.Background(), domain.LineMothercare)
	require.NoError(t, err)
	for _, rep := range reports {
		sales, err := svc.ListSales(context.Background(), domain.LineMothercare, domain.SaleFilter{SessionID: rep.SessionID})
		require.NoError(t, err)
		total, count := report.Totals(sales)
		assert.Equal(t, rep.TotalSales, count)
		assert.True(t, rep.TotalRevenue.Equal(total))
	}

	all, err := svc.ListSales(context.Background(), domain.LineMothercare, domain.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 40)
}

func TestSaleRequiresOpenSession(t *testing.T) {
	svc := newTestService(t, Options{})
	item := createItem(t, svc, domain.LineMothercare, "Baby Wipes", 10, "2.00")

	_, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: 1})
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.CloseAndReopen(adminCtx, domain.LineMothercare, "")
	assert.ErrorIs(t, err, ErrNoSession)

	stored, err := svc.GetItem(context.Background(), domain.LineMothercare, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Quantity)
}

func TestSaleValidation(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineMothercare)
	item := createItem(t, svc, domain.LineMothercare, "Baby Wipes", 10, "2.00")

	for _, qty := range []int{0, -3} {
		_, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: qty})
		assert.ErrorIs(t, err, ErrValidation)
	}

	_, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: "missing", QuantitySold: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RecordSale(cashierCtx, "pharmacy", domain.SaleRequest{ItemID: item.ID, QuantitySold: 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLinesAreIsolated(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineMothercare)
	openSession(t, svc, domain.LineKitchen)
	item := createItem(t, svc, domain.LineMothercare, "Baby Wipes", 10, "2.00")

	_, err := svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: item.ID, QuantitySold: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: 1})
	require.NoError(t, err)

	closure, err := svc.CloseAndReopen(adminCtx, domain.LineKitchen, "")
	require.NoError(t, err)
	assert.Nil(t, closure.Report, "kitchen session had no sales")
}

func TestCreateItemValidation(t *testing.T) {
	svc := newTestService(t, Options{})
	negative := -1

	cases := []struct {
		name string
		req  domain.ItemCreateRequest
	}{
		{"blank name", domain.ItemCreateRequest{Name: "  ", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
		{"negative quantity", domain.ItemCreateRequest{Name: "Wipes", Quantity: -1, UnitPrice: decimal.NewFromInt(1)}},
		{"negative price", domain.ItemCreateRequest{Name: "Wipes", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}},
		{"negative reorder level", domain.ItemCreateRequest{Name: "Wipes", Quantity: 1, UnitPrice: decimal.NewFromInt(1), ReorderLevel: &negative}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateItem(adminCtx, domain.LineMothercare, tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	item, err := svc.CreateItem(adminCtx, domain.LineMothercare, domain.ItemCreateRequest{Name: "Wipes", Quantity: 5, UnitPrice: decimal.NewFromInt(2)})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultReorderLevel, item.ReorderLevel)
	assert.Equal(t, domain.StatusLowStock, item.Status)
}

func TestUpdateAndAdjustRederiveStatus(t *testing.T) {
	svc := newTestService(t, Options{})
	item := createItem(t, svc, domain.LineMothercare, "Feeding Bottle", 12, "45.50")

	qty := 3
	updated, err := svc.UpdateItem(adminCtx, domain.LineMothercare, item.ID, domain.ItemUpdateRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLowStock, updated.Status)
	assert.Equal(t, "Feeding Bottle", updated.Name)

	level := 1
	updated, err = svc.UpdateItem(adminCtx, domain.LineMothercare, item.ID, domain.ItemUpdateRequest{ReorderLevel: &level})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInStock, updated.Status)

	adjusted, err := svc.AdjustStock(adminCtx, domain.LineMothercare, item.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, adjusted.Quantity)
	assert.Equal(t, domain.StatusOutOfStock, adjusted.Status)

	_, err = svc.AdjustStock(adminCtx, domain.LineMothercare, item.ID, -1)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	adjusted, err = svc.AdjustStock(adminCtx, domain.LineMothercare, item.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInStock, adjusted.Status)

	low, err := svc.LowStockItems(context.Background(), domain.LineMothercare)
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestStatusInvariantHoldsAfterMixedOperations(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineKitchen)
	a := createItem(t, svc, domain.LineKitchen, "Waakye", 9, "30")
	b := createItem(t, svc, domain.LineKitchen, "Jollof Rice", 6, "35")

	_, _ = svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: a.ID, QuantitySold: 4})
	_, _ = svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: b.ID, QuantitySold: 6})
	_, _ = svc.AdjustStock(adminCtx, domain.LineKitchen, a.ID, 2)
	_, _ = svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: b.ID, QuantitySold: 1})

	items, err := svc.ListItems(context.Background(), domain.LineKitchen)
	require.NoError(t, err)
	for _, item := range items {
		assert.GreaterOrEqual(t, item.Quantity, 0)
		assert.Equal(t, domain.DeriveStatus(item.Quantity, item.ReorderLevel), item.Status, item.Name)
	}
}

func TestDeleteSaleRestockIsExplicit(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineMothercare)
	item := createItem(t, svc, domain.LineMothercare, "Baby Wipes", 10, "2.00")

	first, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: 2})
	require.NoError(t, err)
	second, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: 3})
	require.NoError(t, err)

	_, err = svc.DeleteSale(cashierCtx, domain.LineMothercare, first.Sale.ID, false)
	assert.ErrorIs(t, err, ErrAuthorization)

	_, err = svc.DeleteSale(adminCtx, domain.LineMothercare, first.Sale.ID, false)
	require.NoError(t, err)
	stored, err := svc.GetItem(context.Background(), domain.LineMothercare, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity, "plain delete keeps stock as is")

	_, err = svc.DeleteSale(adminCtx, domain.LineMothercare, second.Sale.ID, true)
	require.NoError(t, err)
	stored, err = svc.GetItem(context.Background(), domain.LineMothercare, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, stored.Quantity)
	assert.Equal(t, domain.StatusInStock, stored.Status)

	_, err = svc.DeleteSale(adminCtx, domain.LineMothercare, second.Sale.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthorization(t *testing.T) {
	svc := newTestService(t, Options{Authorizer: NewRoleAuthorizer([]string{"Ama"})})

	_, err := svc.CreateItem(context.Background(), domain.LineMothercare, domain.ItemCreateRequest{Name: "Wipes", UnitPrice: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrAuthorization)

	_, err = svc.CreateItem(cashierCtx, domain.LineMothercare, domain.ItemCreateRequest{Name: "Wipes", UnitPrice: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrAuthorization)

	_, _, err = svc.OpenFirstSession(cashierCtx, domain.LineMothercare)
	assert.ErrorIs(t, err, ErrAuthorization)

	trusted := WithActor(context.Background(), domain.Actor{Username: "ama", Role: domain.RoleCashier})
	_, err = svc.CreateItem(trusted, domain.LineMothercare, domain.ItemCreateRequest{Name: "Wipes", UnitPrice: decimal.NewFromInt(1)})
	assert.NoError(t, err)

	_, _, err = svc.OpenFirstSession(SystemContext(context.Background()), domain.LineKitchen)
	assert.NoError(t, err)
}

func TestOpenFirstSessionIsIdempotent(t *testing.T) {
	svc := newTestService(t, Options{})

	first, created, err := svc.OpenFirstSession(adminCtx, domain.LineMothercare)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.OpenFirstSession(adminCtx, domain.LineMothercare)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	sessions, err := svc.ListSessions(context.Background(), domain.LineMothercare)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSessionPartitionsMatchStoredReports(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineMothercare)
	wipes := createItem(t, svc, domain.LineMothercare, "Baby Wipes", 50, "2.00")
	diapers := createItem(t, svc, domain.LineMothercare, "Diapers", 50, "85.00")

	sell := func(id string, qty int) {
		_, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: id, QuantitySold: qty})
		require.NoError(t, err)
	}
	sell(wipes.ID, 2)
	sell(diapers.ID, 1)
	closure, err := svc.CloseAndReopen(adminCtx, domain.LineMothercare, "")
	require.NoError(t, err)
	sell(wipes.ID, 5)

	partitions, err := svc.SessionPartitions(context.Background(), domain.LineMothercare)
	require.NoError(t, err)
	require.Len(t, partitions, 2)
	assert.Equal(t, closure.Opened.ID, partitions[0].Key)
	assert.Equal(t, closure.Closed.ID, partitions[1].Key)
	assert.Equal(t, closure.Report.TotalSales, partitions[1].TotalSales)
	assert.True(t, closure.Report.TotalRevenue.Equal(partitions[1].TotalRevenue))

	again, err := svc.SessionPartitions(context.Background(), domain.LineMothercare)
	require.NoError(t, err)
	assert.Equal(t, partitions, again)

	current, sales, err := svc.CurrentSessionSales(context.Background(), domain.LineMothercare)
	require.NoError(t, err)
	assert.Equal(t, closure.Opened.ID, current.ID)
	assert.Len(t, sales, 1)
}

type countingCache struct {
	inner cache.ReportCache
	gets  atomic.Int32
	hits  atomic.Int32
	sets  atomic.Int32
}

func (c *countingCache) Get(ctx context.Context, line domain.Line, sessionID string) (*domain.Report, bool, error) {
	c.gets.Add(1)
	r, ok, err := c.inner.Get(ctx, line, sessionID)
	if ok {
		c.hits.Add(1)
	}
	return r, ok, err
}

func (c *countingCache) Set(ctx context.Context, r domain.Report, ttl time.Duration) error {
	c.sets.Add(1)
	return c.inner.Set(ctx, r, ttl)
}

type mapCache struct {
	mu      sync.Mutex
	reports map[string]domain.Report
}

func (m *mapCache) Get(_ context.Context, line domain.Line, sessionID string) (*domain.Report, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[string(line)+sessionID]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (m *mapCache) Set(_ context.Context, r domain.Report, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[string(r.Line)+r.SessionID] = r
	return nil
}

func TestGetReportReadsThroughCache(t *testing.T) {
	c := &countingCache{inner: &mapCache{reports: map[string]domain.Report{}}}
	svc := newTestService(t, Options{ReportCache: c})
	openSession(t, svc, domain.LineKitchen)
	item := createItem(t, svc, domain.LineKitchen, "Waakye", 10, "30")
	_, err := svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: item.ID, QuantitySold: 2})
	require.NoError(t, err)

	closure, err := svc.CloseAndReopen(adminCtx, domain.LineKitchen, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.sets.Load(), "closing caches the new report")

	got, err := svc.GetReport(context.Background(), domain.LineKitchen, closure.Closed.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalRevenue.Equal(decimal.NewFromInt(60)))
	assert.EqualValues(t, 1, c.hits.Load())

	_, err = svc.GetReport(context.Background(), domain.LineKitchen, closure.Opened.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOverviewCombinesLines(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineMothercare)
	openSession(t, svc, domain.LineKitchen)
	wipes := createItem(t, svc, domain.LineMothercare, "Baby Wipes", 10, "2.00")
	rice := createItem(t, svc, domain.LineKitchen, "Jollof Rice", 10, "35.00")

	_, err := svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: wipes.ID, QuantitySold: 3})
	require.NoError(t, err)
	_, err = svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: rice.ID, QuantitySold: 1})
	require.NoError(t, err)

	overview, err := svc.Overview(context.Background(), report.Range{})
	require.NoError(t, err)
	require.Len(t, overview.Lines, 2)
	assert.Equal(t, domain.LineMothercare, overview.Lines[0].Line)
	assert.Equal(t, domain.LineKitchen, overview.Lines[1].Line)
	assert.Equal(t, 2, overview.TotalSales)
	assert.True(t, overview.TotalRevenue.Equal(decimal.NewFromInt(41)))
	assert.Equal(t, 7, overview.Lines[0].RemainingStock)
}

func TestResolveRange(t *testing.T) {
	svc := newTestService(t, Options{})

	r, err := svc.ResolveRange("")
	require.NoError(t, err)
	assert.Nil(t, r.From)

	r, err = svc.ResolveRange("Today")
	require.NoError(t, err)
	require.NotNil(t, r.From)

	_, err = svc.ResolveRange("decade")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCategories(t *testing.T) {
	svc := newTestService(t, Options{})

	category, err := svc.CreateCategory(adminCtx, domain.CategoryRequest{Name: "Feeding"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(adminCtx, domain.CategoryRequest{Name: "feeding"})
	assert.ErrorIs(t, err, ErrValidation)

	reorder := 2
	item, err := svc.CreateItem(adminCtx, domain.LineMothercare, domain.ItemCreateRequest{
		Name: "Bottle", Quantity: 4, UnitPrice: decimal.NewFromInt(45), ReorderLevel: &reorder, CategoryID: category.ID,
	})
	require.NoError(t, err)

	renamed, err := svc.RenameCategory(adminCtx, category.ID, domain.CategoryRequest{Name: "Feeding & Nursing"})
	require.NoError(t, err)
	assert.Equal(t, "Feeding & Nursing", renamed.Name)

	require.NoError(t, svc.DeleteCategory(adminCtx, category.ID))
	stored, err := svc.GetItem(context.Background(), domain.LineMothercare, item.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.CategoryID)

	assert.ErrorIs(t, svc.DeleteCategory(adminCtx, category.ID), ErrNotFound)
}

func TestErrorKindsMatchBySentinel(t *testing.T) {
	err := &Error{Kind: KindOutOfStock, Message: "Baby Wipes is out of stock"}
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.NotErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "Baby Wipes is out of stock", err.Error())
	assert.Equal(t, KindPersistence, KindOf(errors.New("boom")))
}

func TestAmountsMustFitStorage(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineMothercare)

	cases := []struct {
		name string
		req  domain.ItemCreateRequest
	}{
		{"sub-cent price", domain.ItemCreateRequest{Name: "Wipes", Quantity: 1, UnitPrice: decimal.RequireFromString("1.005")}},
		{"price past ten digits", domain.ItemCreateRequest{Name: "Wipes", Quantity: 1, UnitPrice: decimal.New(1, 10)}},
		{"quantity past int32", domain.ItemCreateRequest{Name: "Wipes", Quantity: domain.MaxQuantity + 1, UnitPrice: decimal.NewFromInt(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateItem(adminCtx, domain.LineMothercare, tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	item := createItem(t, svc, domain.LineMothercare, "Wipes", 10, "1.50")
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("1.5")))

	subCent := decimal.RequireFromString("2.345")
	_, err := svc.UpdateItem(adminCtx, domain.LineMothercare, item.ID, domain.ItemUpdateRequest{UnitPrice: &subCent})
	assert.ErrorIs(t, err, ErrValidation)

	huge := domain.MaxQuantity + 1
	_, err = svc.UpdateItem(adminCtx, domain.LineMothercare, item.ID, domain.ItemUpdateRequest{Quantity: &huge})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AdjustStock(adminCtx, domain.LineMothercare, item.ID, domain.MaxQuantity+1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.AdjustStock(adminCtx, domain.LineMothercare, item.ID, domain.MaxQuantity)
	assert.ErrorIs(t, err, ErrValidation, "resulting quantity overflows")

	_, err = svc.RecordSale(cashierCtx, domain.LineMothercare, domain.SaleRequest{ItemID: item.ID, QuantitySold: domain.MaxQuantity + 1})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := svc.GetItem(adminCtx, domain.LineMothercare, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity)
	assert.True(t, got.UnitPrice.Equal(decimal.RequireFromString("1.50")))
}

func TestSaleTotalMustFitStorage(t *testing.T) {
	svc := newTestService(t, Options{})
	openSession(t, svc, domain.LineKitchen)
	item := createItem(t, svc, domain.LineKitchen, "Catering Tray", 5, "9999999999.99")

	_, err := svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: item.ID, QuantitySold: 2})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := svc.GetItem(adminCtx, domain.LineKitchen, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	resp, err := svc.RecordSale(cashierCtx, domain.LineKitchen, domain.SaleRequest{ItemID: item.ID, QuantitySold: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Item.Quantity)
}

func TestCanDeleteSaleFollowsRole(t *testing.T) {
	svc := newTestService(t, Options{})
	assert.NoError(t, svc.CanDeleteSale(adminCtx))
	assert.ErrorIs(t, svc.CanDeleteSale(cashierCtx), ErrAuthorization)
	assert.ErrorIs(t, svc.CanDeleteSale(context.Background()), ErrAuthorization)
}
