package inventory

import (
	"context"

	"github.com/irevive/storefront/internal/kvstore"
)

// MovementRepository persists the order movement ledger.
type MovementRepository interface {
	FindMovement(ctx context.Context, orderID string, movementType MovementType) (*Movement, error)
	SaveMovement(ctx context.Context, movement Movement) error
}

// KVMovementRepository keeps the ledger as a single list document. Callers
// serialize writes.
type KVMovementRepository struct {
	store kvstore.Store
}

func NewKVMovementRepository(store kvstore.Store) *KVMovementRepository {
	return &KVMovementRepository{store: store}
}

func (r *KVMovementRepository) movements(ctx context.Context) ([]Movement, error) {
	movements := []Movement{}
	if _, err := kvstore.LoadOrDefault(ctx, r.store, kvstore.KeyMovements, &movements); err != nil {
		return nil, err
	}
	return movements, nil
}

// FindMovement returns nil when the order has no movement of that type.
func (r *KVMovementRepository) FindMovement(ctx context.Context, orderID string, movementType MovementType) (*Movement, error) {
	movements, err := r.movements(ctx)
	if err != nil {
		return nil, err
	}
	for i := range movements {
		if movements[i].OrderID == orderID && movements[i].Type == movementType {
			return &movements[i], nil
		}
	}
	return nil, nil
}

func (r *KVMovementRepository) SaveMovement(ctx context.Context, movement Movement) error {
	movements, err := r.movements(ctx)
	if err != nil {
		return err
	}
	return kvstore.SetJSON(ctx, r.store, kvstore.KeyMovements, append(movements, movement))
}
