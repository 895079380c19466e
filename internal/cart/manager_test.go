package cart

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/catalog"
	"github.com/irevive/storefront/internal/kvstore"
)

type MockStockLookup struct {
	mock.Mock
}

func (m *MockStockLookup) GetStock(ctx context.Context, variantID string) (int, error) {
	args := m.Called(ctx, variantID)
	return args.Int(0), args.Error(1)
}

type failingStore struct {
	kvstore.Store
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

var iPhone8 = catalog.Product{ID: "1", Title: "iPhone 8", Slug: "iphone-8", BasePrice: 420000, Currency: "ZAR"}

func v1(stock int) catalog.Variant {
	return catalog.Variant{ID: "1-1", ProductID: "1", Color: "Black", Storage: 64, Condition: catalog.ConditionExcellent, Stock: stock}
}

func v2(stock int) catalog.Variant {
	return catalog.Variant{ID: "1-2", ProductID: "1", Color: "White", Storage: 64, Condition: catalog.ConditionGood, Stock: stock, PriceAdjust: -20000}
}

func TestAddUpdateScenario(t *testing.T) {
	ctx := context.Background()
	m := NewManager(kvstore.NewMemoryStore(), "", nil)

	// add 3 of a variant with 5 in stock
	require.NoError(t, m.AddItem(ctx, iPhone8, v1(5), 3))
	c := m.Cart()
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 3, TotalItems(c))

	// 3 more would make 6
	err := m.AddItem(ctx, iPhone8, v1(5), 3)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 3, m.Cart().Items[0].Quantity)

	require.NoError(t, m.UpdateQuantity(ctx, "1", "1-1", 5))
	assert.Equal(t, 5, m.Cart().Items[0].Quantity)

	require.NoError(t, m.UpdateQuantity(ctx, "1", "1-1", 0))
	assert.Empty(t, m.Cart().Items)
}

func TestTotalPrice(t *testing.T) {
	ctx := context.Background()
	m := NewManager(kvstore.NewMemoryStore(), "", nil)

	require.NoError(t, m.AddItem(ctx, iPhone8, v1(5), 1))
	require.NoError(t, m.AddItem(ctx, iPhone8, v2(5), 2))

	c := m.Cart()
	assert.Equal(t, int64(1220000), TotalPrice(c))
	assert.Equal(t, 3, TotalItems(c))
	assert.Equal(t, "ZAR", Currency(c))
}

func TestAddItemRejectsInvalidQuantity(t *testing.T) {
	m := NewManager(kvstore.NewMemoryStore(), "", nil)

	assert.ErrorIs(t, m.AddItem(context.Background(), iPhone8, v1(5), 0), apperr.ErrInvalidArgument)
	assert.ErrorIs(t, m.AddItem(context.Background(), iPhone8, v1(5), -2), apperr.ErrInvalidArgument)

	other := v1(5)
	other.ProductID = "2"
	assert.ErrorIs(t, m.AddItem(context.Background(), iPhone8, other, 1), apperr.ErrInvalidArgument)
}

func TestAddItemHugeQuantityOnExistingLine(t *testing.T) {
	ctx := context.Background()
	m := NewManager(kvstore.NewMemoryStore(), "", nil)
	require.NoError(t, m.AddItem(ctx, iPhone8, v1(5), 1))

	// Act
	err := m.AddItem(ctx, iPhone8, v1(5), math.MaxInt)

	// Assert
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	c := m.Cart()
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.Equal(t, 1, TotalItems(c))
}

func TestAddItemRejectsOtherCurrency(t *testing.T) {
	ctx := context.Background()
	m := NewManager(kvstore.NewMemoryStore(), "", nil)
	require.NoError(t, m.AddItem(ctx, iPhone8, v1(5), 1))

	dollars := catalog.Product{ID: "2", Title: "iPhone 11", BasePrice: 30000, Currency: "USD"}
	variant := catalog.Variant{ID: "2-1", ProductID: "2", Color: "Black", Storage: 64, Condition: catalog.ConditionGood, Stock: 3}

	err := m.AddItem(ctx, dollars, variant, 1)

	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Len(t, m.Cart().Items, 1)
	assert.Equal(t, "ZAR", Currency(m.Cart()))
}

func TestUpdateQuantityMissingLine(t *testing.T) {
	m := NewManager(kvstore.NewMemoryStore(), "", nil)

	err := m.UpdateQuantity(context.Background(), "1", "1-1", 2)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewManager(kvstore.NewMemoryStore(), "", nil)
	require.NoError(t, m.AddItem(ctx, iPhone8, v1(5), 1))
	require.NoError(t, m.AddItem(ctx, iPhone8, v2(5), 1))

	// removing an absent line is a no-op
	require.NoError(t, m.RemoveItem(ctx, "9", "9-9"))
	assert.Len(t, m.Cart().Items, 2)

	require.NoError(t, m.RemoveItem(ctx, "1", "1-1"))
	assert.Len(t, m.Cart().Items, 1)
	assert.Equal(t, "1-2", m.Cart().Items[0].Variant.ID)

	require.NoError(t, m.ClearCart(ctx))
	assert.Empty(t, m.Cart().Items)
}

func TestLiveStockIsUsed(t *testing.T) {
	ctx := context.Background()
	stock := new(MockStockLookup)
	stock.On("GetStock", mock.Anything, "1-1").Return(2, nil)
	m := NewManager(kvstore.NewMemoryStore(), "", stock)

	// snapshot says 5 but only 2 remain
	err := m.AddItem(ctx, iPhone8, v1(5), 3)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	require.NoError(t, m.AddItem(ctx, iPhone8, v1(5), 2))
	assert.Equal(t, 2, m.Cart().Items[0].Variant.Stock)

	assert.ErrorIs(t, m.UpdateQuantity(ctx, "1", "1-1", 3), apperr.ErrInsufficientStock)
	stock.AssertExpectations(t)
}

func TestLiveStockLookupFailure(t *testing.T) {
	stock := new(MockStockLookup)
	stock.On("GetStock", mock.Anything, "1-1").Return(0, apperr.ErrNotFound)
	m := NewManager(kvstore.NewMemoryStore(), "", stock)

	err := m.AddItem(context.Background(), iPhone8, v1(5), 1)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, m.Cart().Items)
}

func TestPersistAndRestore(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	m := NewManager(store, "abc", nil)
	require.NoError(t, m.AddItem(ctx, iPhone8, v1(5), 2))
	require.NoError(t, m.AddItem(ctx, iPhone8, v2(5), 1))

	// Act
	restored := NewManager(store, "abc", nil)
	require.NoError(t, restored.Load(ctx))

	// Assert
	assert.ElementsMatch(t, m.Cart().Items, restored.Cart().Items)

	// other sessions are separate
	other := NewManager(store, "xyz", nil)
	require.NoError(t, other.Load(ctx))
	assert.Empty(t, other.Cart().Items)
}

func TestLoadCorruptCartFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, kvstore.KeyCart, []byte(`{"items": [oops`)))

	m := NewManager(store, "", nil)
	require.NoError(t, m.Load(ctx))

	assert.NotNil(t, m.Cart().Items)
	assert.Empty(t, m.Cart().Items)
}

func TestFailedPersistLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	m := NewManager(failingStore{kvstore.NewMemoryStore()}, "", nil)

	err := m.AddItem(ctx, iPhone8, v1(5), 1)

	assert.Error(t, err)
	assert.Empty(t, m.Cart().Items)
}

func TestCartCopyIsDetached(t *testing.T) {
	ctx := context.Background()
	m := NewManager(kvstore.NewMemoryStore(), "", nil)
	require.NoError(t, m.AddItem(ctx, iPhone8, v1(5), 1))

	c := m.Cart()
	c.Items[0].Quantity = 99

	assert.Equal(t, 1, m.Cart().Items[0].Quantity)
}

func TestStoredCartHasNoTotals(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	m := NewManager(store, "", nil)
	require.NoError(t, m.AddItem(ctx, iPhone8, v1(5), 1))

	raw, err := store.Get(ctx, kvstore.KeyCart)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "total")
}
