package registry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TxRunner executes a function inside a single database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service recomputes a registry item's running total. The total is always
// rebuilt from the full sum of completed contributions, never incremented, so
// invoking it redundantly or concurrently converges on the same value.
type Service interface {
	RecalculateTotal(ctx context.Context, itemID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
	tx   TxRunner
}

// NewService wires a registry service with the provided repository and
// transaction runner.
func NewService(repo Repository, tx TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("registry repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) RecalculateTotal(ctx context.Context, itemID uuid.UUID) (int64, error) {
	if itemID == uuid.Nil {
		return 0, fmt.Errorf("registry item id is required")
	}

	// Sum and write run in one transaction so the stored total always
	// matches a single snapshot of the ledger.
	var total int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sum, err := repo.SumCompletedContributions(ctx, itemID)
		if err != nil {
			return err
		}
		if err := repo.UpdateCurrentCents(ctx, itemID, sum); err != nil {
			return err
		}
		total = sum
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
