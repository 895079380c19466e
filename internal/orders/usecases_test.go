package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/cart"
	"github.com/irevive/storefront/internal/catalog"
	"github.com/irevive/storefront/internal/kvstore"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var testNow = time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, publisher Publisher) *Service {
	t.Helper()
	service, err := NewService(NewKVRepository(kvstore.NewMemoryStore()), publisher, noop.NewMeterProvider().Meter("orders"))
	require.NoError(t, err)
	service.now = func() time.Time { return testNow }
	return service
}

func testLines() []cart.LineItem {
	product := catalog.Product{ID: "1", Title: "iPhone 8", BasePrice: 420000, Currency: "ZAR"}
	return []cart.LineItem{
		{
			Product:  product,
			Variant:  catalog.Variant{ID: "1-1", ProductID: "1", Color: "Black", Storage: 64, Condition: catalog.ConditionExcellent, Stock: 3},
			Quantity: 1,
		},
		{
			Product:  product,
			Variant:  catalog.Variant{ID: "1-2", ProductID: "1", Color: "White", Storage: 64, Condition: catalog.ConditionGood, Stock: 2, PriceAdjust: -20000},
			Quantity: 2,
		},
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e Event) bool {
		return e.Type == EventOrderCreated && e.TotalCents == 1220000 && e.ItemCount == 3
	})).Return(nil).Once()
	service := newTestService(t, publisher)

	// Act
	order, err := service.CreateOrder(ctx, testLines(), nil)

	// Assert
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-[0-9a-f-]{36}$`, order.ID)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, int64(1220000), order.TotalCents)
	assert.Equal(t, "ZAR", order.Currency)
	require.Len(t, order.Items, 2)
	assert.Equal(t, OrderItem{
		ProductID:    "1",
		ProductTitle: "iPhone 8",
		VariantID:    "1-2",
		Color:        "White",
		Storage:      64,
		Condition:    catalog.ConditionGood,
		UnitPrice:    400000,
		Quantity:     2,
		Subtotal:     800000,
	}, order.Items[1])
	publisher.AssertExpectations(t)

	stored, err := service.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalCents, stored.TotalCents)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	service := newTestService(t, LogPublisher{})

	_, err := service.CreateOrder(context.Background(), nil, nil)

	assert.ErrorIs(t, err, apperr.ErrEmptyCart)
	assert.EqualError(t, err, "cannot create order with empty cart")
}

func TestCreateOrderValidatesShipping(t *testing.T) {
	service := newTestService(t, LogPublisher{})

	_, err := service.CreateOrder(context.Background(), testLines(), &Shipping{Name: "Thandi", Email: "nope", Address: "1 Long St"})

	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestOrderItemsAreSnapshots(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, LogPublisher{})
	lines := testLines()

	order, err := service.CreateOrder(ctx, lines, nil)
	require.NoError(t, err)

	lines[0].Product.Title = "Renamed"
	lines[0].Product.BasePrice = 1

	stored, err := service.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "iPhone 8", stored.Items[0].ProductTitle)
	assert.Equal(t, int64(420000), stored.Items[0].UnitPrice)
}

func TestCreateOrderWithIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	service := newTestService(t, publisher)

	_, err := service.CreateOrderWithID(ctx, "ORD-1", testLines(), nil)
	require.NoError(t, err)
	_, err = service.CreateOrderWithID(ctx, "ORD-1", testLines(), nil)
	require.NoError(t, err)

	orders, err := service.ListOrders(ctx, "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	publisher.AssertExpectations(t)
}

func TestPublishFailureDoesNotFailOrder(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	service := newTestService(t, publisher)

	_, err := service.CreateOrder(context.Background(), testLines(), nil)

	assert.NoError(t, err)
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, LogPublisher{})
	order, err := service.CreateOrder(ctx, testLines(), nil)
	require.NoError(t, err)

	for _, next := range []Status{StatusProcessing, StatusShipped, StatusDelivered} {
		updated, err := service.UpdateOrderStatus(ctx, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	_, err = service.UpdateOrderStatus(ctx, order.ID, StatusPending)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = service.UpdateOrderStatus(ctx, order.ID, "lost")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = service.UpdateOrderStatus(ctx, "ORD-missing", StatusShipped)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateOrderStatusSameIsNoop(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e Event) bool { return e.Type == EventOrderCreated })).Return(nil).Once()
	service := newTestService(t, publisher)
	order, err := service.CreateOrder(ctx, testLines(), nil)
	require.NoError(t, err)

	updated, err := service.UpdateOrderStatus(ctx, order.ID, StatusPending)

	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)
	publisher.AssertExpectations(t)
}

func TestStatusChangePublishesEvent(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e Event) bool { return e.Type == EventOrderCreated })).Return(nil)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e Event) bool {
		return e.Type == EventOrderStatusChanged && e.PreviousStatus == StatusPending && e.Status == StatusProcessing
	})).Return(nil).Once()
	service := newTestService(t, publisher)
	order, err := service.CreateOrder(ctx, testLines(), nil)
	require.NoError(t, err)

	_, err = service.UpdateOrderStatus(ctx, order.ID, StatusProcessing)

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, LogPublisher{})

	tests := []struct {
		name    string
		path    []Status
		wantErr error
	}{
		{"pending", nil, nil},
		{"processing", []Status{StatusProcessing}, nil},
		{"shipped", []Status{StatusProcessing, StatusShipped}, apperr.ErrInvalidTransition},
		{"delivered", []Status{StatusProcessing, StatusShipped, StatusDelivered}, apperr.ErrInvalidTransition},
		{"cancelled", []Status{StatusCancelled}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := service.CreateOrder(ctx, testLines(), nil)
			require.NoError(t, err)
			for _, s := range tt.path {
				_, err := service.UpdateOrderStatus(ctx, order.ID, s)
				require.NoError(t, err)
			}

			cancelled, err := service.CancelOrder(ctx, order.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, cancelled.Status)
		})
	}

	_, err := service.CancelOrder(ctx, "ORD-missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAttachPayment(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, LogPublisher{})
	order, err := service.CreateOrder(ctx, testLines(), nil)
	require.NoError(t, err)

	_, err = service.AttachPayment(ctx, order.ID, Payment{Method: "card", AmountCents: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	paid, err := service.AttachPayment(ctx, order.ID, Payment{Method: "card", Reference: "pi_123"})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, paid.Status)
	require.NotNil(t, paid.Payment)
	assert.Equal(t, int64(1220000), paid.Payment.AmountCents)
	assert.Equal(t, testNow, paid.Payment.ProcessedAt)

	_, err = service.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	_, err = service.AttachPayment(ctx, order.ID, Payment{Method: "card"})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, LogPublisher{})

	first, err := service.CreateOrder(ctx, testLines(), nil)
	require.NoError(t, err)
	service.now = func() time.Time { return testNow.Add(time.Hour) }
	second, err := service.CreateOrder(ctx, testLines(), nil)
	require.NoError(t, err)
	_, err = service.UpdateOrderStatus(ctx, first.ID, StatusProcessing)
	require.NoError(t, err)

	orders, err := service.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)

	processing, err := service.ListOrders(ctx, StatusProcessing)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, first.ID, processing[0].ID)

	_, err = service.ListOrders(ctx, "lost")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestSummarize(t *testing.T) {
	order := NewOrder("ORD-1", testLines(), nil, testNow)

	summary := Summarize(*order)

	assert.Equal(t, Summary{
		ID:        "ORD-1",
		ItemCount: 3,
		Total:     "R12200.00",
		Status:    StatusPending,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}, summary)
}

func TestStatusGraph(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusProcessing))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusPending.CanTransitionTo(StatusShipped))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusShipped))
	assert.True(t, StatusShipped.CanTransitionTo(StatusDelivered))
	assert.False(t, StatusShipped.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusDelivered.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPending))
}
