package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/cart"
	"github.com/irevive/storefront/internal/catalog"
	"github.com/irevive/storefront/internal/inventory"
	"github.com/irevive/storefront/internal/kvstore"
	"github.com/irevive/storefront/internal/orders"
)

type fixture struct {
	catalog  *catalog.Service
	reducer  *inventory.Reducer
	orders   *orders.Service
	sessions *cart.Sessions
	meter    metric.Meter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	meter := noop.NewMeterProvider().Meter("checkout")

	store := kvstore.NewMemoryStore()
	catalogRepo := catalog.NewKVRepository(store)
	catalogService := catalog.NewService(catalogRepo)
	_, err := catalogService.Seed(ctx)
	require.NoError(t, err)

	reducer, err := inventory.NewReducer(catalogRepo, inventory.NewKVMovementRepository(store), meter)
	require.NoError(t, err)
	orderService, err := orders.NewService(orders.NewKVRepository(store), orders.LogPublisher{}, meter)
	require.NoError(t, err)

	return &fixture{
		catalog:  catalogService,
		reducer:  reducer,
		orders:   orderService,
		sessions: cart.NewSessions(store, reducer),
		meter:    meter,
	}
}

func (f *fixture) add(t *testing.T, m *cart.Manager, productID, variantID string, qty int) {
	t.Helper()
	ctx := context.Background()
	p, err := f.catalog.GetProduct(ctx, productID)
	require.NoError(t, err)
	v, err := f.catalog.GetVariant(ctx, variantID)
	require.NoError(t, err)
	require.NoError(t, m.AddItem(ctx, *p, *v, qty))
}

func TestLocalCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	orchestrator, err := NewLocalOrchestrator(f.reducer, f.orders, f.meter)
	require.NoError(t, err)

	m, err := f.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	f.add(t, m, "1", "1-1", 1)
	f.add(t, m, "1", "1-2", 2)

	// Act
	order, err := orchestrator.Checkout(ctx, m, &orders.Shipping{Name: "Thandi", Email: "t@example.com", Address: "1 Long St"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(1220000), order.TotalCents)
	assert.Equal(t, orders.StatusPending, order.Status)
	assert.Empty(t, m.Cart().Items)

	stock, err := f.reducer.GetStock(ctx, "1-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stock)
	stock, err = f.reducer.GetStock(ctx, "1-2")
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func TestLocalCheckoutEmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	orchestrator, err := NewLocalOrchestrator(f.reducer, f.orders, f.meter)
	require.NoError(t, err)
	m, err := f.sessions.Get(ctx, "")
	require.NoError(t, err)

	_, err = orchestrator.Checkout(ctx, m, nil)

	assert.ErrorIs(t, err, apperr.ErrEmptyCart)
}

func TestLocalCheckoutStockChangedSinceAdd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	orchestrator, err := NewLocalOrchestrator(f.reducer, f.orders, f.meter)
	require.NoError(t, err)
	m, err := f.sessions.Get(ctx, "")
	require.NoError(t, err)
	f.add(t, m, "1", "1-1", 3)

	// an admin lowers stock while the item sits in the cart
	_, err = f.reducer.SetStock(ctx, "1-1", 1)
	require.NoError(t, err)

	_, err = orchestrator.Checkout(ctx, m, nil)

	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Len(t, m.Cart().Items, 1)
	placed, err := f.orders.ListOrders(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, placed)
}

type MockStockKeeper struct {
	mock.Mock
}

func (m *MockStockKeeper) GetStock(ctx context.Context, variantID string) (int, error) {
	args := m.Called(ctx, variantID)
	return args.Int(0), args.Error(1)
}

func (m *MockStockKeeper) DecreaseForOrder(ctx context.Context, orderID string, lines []inventory.Line) error {
	args := m.Called(ctx, orderID, lines)
	return args.Error(0)
}

func TestLocalCheckoutCompensatesOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m, err := f.sessions.Get(ctx, "")
	require.NoError(t, err)
	f.add(t, m, "2", "2-1", 1)

	stock := new(MockStockKeeper)
	stock.On("GetStock", mock.Anything, "2-1").Return(4, nil)
	stock.On("DecreaseForOrder", mock.Anything, mock.Anything, []inventory.Line{{VariantID: "2-1", Quantity: 1}}).
		Return(errors.New("store unavailable"))
	orchestrator, err := NewLocalOrchestrator(stock, f.orders, f.meter)
	require.NoError(t, err)

	// Act
	_, err = orchestrator.Checkout(ctx, m, nil)

	// Assert
	require.Error(t, err)
	placed, err := f.orders.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.Equal(t, orders.StatusCancelled, placed[0].Status)
	assert.Len(t, m.Cart().Items, 1)
	stock.AssertExpectations(t)
}

func TestInventoryLines(t *testing.T) {
	c := cart.Cart{Items: []cart.LineItem{
		{Variant: catalog.Variant{ID: "a"}, Quantity: 2},
		{Variant: catalog.Variant{ID: "b"}, Quantity: 1},
	}}

	assert.Equal(t, []inventory.Line{{VariantID: "a", Quantity: 2}, {VariantID: "b", Quantity: 1}}, InventoryLines(c))
}

func TestDTMCheckoutRejectsBeforeSubmitting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	orchestrator, err := NewDTMOrchestrator("http://dtm.invalid:36789/api/dtmsvr", "http://storefront", f.reducer, f.orders, f.meter)
	require.NoError(t, err)
	m, err := f.sessions.Get(ctx, "")
	require.NoError(t, err)

	_, err = orchestrator.Checkout(ctx, m, nil)

	// the empty cart is caught locally, without reaching the coordinator
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)
}
