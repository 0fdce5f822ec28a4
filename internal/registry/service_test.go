package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nuptio/nuptio-backend/pkg/db/models"
)

type fakeRepository struct {
	sum     int64
	sumErr  error
	updates []int64
	updErr  error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.RegistryItem, error) {
	return nil, nil
}

func (f *fakeRepository) SumCompletedContributions(ctx context.Context, itemID uuid.UUID) (int64, error) {
	if f.sumErr != nil {
		return 0, f.sumErr
	}
	return f.sum, nil
}

func (f *fakeRepository) UpdateCurrentCents(ctx context.Context, itemID uuid.UUID, currentCents int64) error {
	if f.updErr != nil {
		return f.updErr
	}
	f.updates = append(f.updates, currentCents)
	return nil
}

type fakeTxRunner struct {
	runs int
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.runs++
	return fn(nil)
}

func TestRecalculateTotal(t *testing.T) {
	repo := &fakeRepository{sum: 12500}
	tx := &fakeTxRunner{}
	svc, err := NewService(repo, tx)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	total, err := svc.RecalculateTotal(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("RecalculateTotal error: %v", err)
	}
	if total != 12500 {
		t.Fatalf("total = %d, want 12500", total)
	}
	if len(repo.updates) != 1 || repo.updates[0] != 12500 {
		t.Fatalf("unexpected updates: %v", repo.updates)
	}
	if tx.runs != 1 {
		t.Fatalf("transaction runs = %d, want 1", tx.runs)
	}
}

func TestRecalculateTotal_Idempotent(t *testing.T) {
	repo := &fakeRepository{sum: 8000}
	svc, err := NewService(repo, &fakeTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	itemID := uuid.New()
	first, err := svc.RecalculateTotal(context.Background(), itemID)
	if err != nil {
		t.Fatalf("first recalculation error: %v", err)
	}
	second, err := svc.RecalculateTotal(context.Background(), itemID)
	if err != nil {
		t.Fatalf("second recalculation error: %v", err)
	}
	if first != second {
		t.Fatalf("recalculation not idempotent: %d vs %d", first, second)
	}
	if repo.updates[0] != repo.updates[1] {
		t.Fatalf("writes diverged: %v", repo.updates)
	}
}

func TestRecalculateTotal_Errors(t *testing.T) {
	boom := errors.New("boom")

	svc, err := NewService(&fakeRepository{sumErr: boom}, &fakeTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	if _, err := svc.RecalculateTotal(context.Background(), uuid.New()); !errors.Is(err, boom) {
		t.Fatalf("expected sum error, got %v", err)
	}

	svc, err = NewService(&fakeRepository{updErr: boom}, &fakeTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	if _, err := svc.RecalculateTotal(context.Background(), uuid.New()); !errors.Is(err, boom) {
		t.Fatalf("expected update error, got %v", err)
	}

	svc, err = NewService(&fakeRepository{}, &fakeTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	if _, err := svc.RecalculateTotal(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected error for nil item id")
	}
}
