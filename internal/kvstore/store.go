package kvstore

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/apperr"
)

// Persisted state layout.
const (
	KeyProducts         = "products"
	KeyVariantInventory = "variant_inventory"
	KeyCart             = "cart"
	KeyOrders           = "orders"
	KeyMovements        = "inventory_movements"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is the persistence boundary shared by every service. Values are
// opaque JSON documents addressed by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// CartKey returns the key for a session cart. An empty session id maps to the
// single default cart.
func CartKey(sessionID string) string {
	if sessionID == "" {
		return KeyCart
	}
	return KeyCart + ":" + sessionID
}

// GetJSON decodes the document stored under key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %q: %v: %w", key, err, apperr.ErrStorageCorrupt)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// LoadOrDefault decodes key into v. A missing key leaves v untouched and a
// corrupt document is logged and reported as found=false so callers fall back
// to their default value. Only backend errors are returned.
func LoadOrDefault(ctx context.Context, s Store, key string, v any) (found bool, err error) {
	err = GetJSON(ctx, s, key, v)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrKeyNotFound):
		return false, nil
	case errors.Is(err, apperr.ErrStorageCorrupt):
		zap.L().Warn("⚠️ discarding corrupt stored value", zap.String("key", key), zap.Error(err))
		return false, nil
	default:
		return false, err
	}
}
