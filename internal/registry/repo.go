package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nuptio/nuptio-backend/pkg/db/models"
	"github.com/nuptio/nuptio-backend/pkg/enums"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
)

// Repository handles registry item persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.RegistryItem, error)
	SumCompletedContributions(ctx context.Context, itemID uuid.UUID) (int64, error)
	UpdateCurrentCents(ctx context.Context, itemID uuid.UUID, currentCents int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a registry repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RegistryItem, error) {
	var item models.RegistryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "registry item not found")
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) SumCompletedContributions(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("registry_item_id = ? AND status = ?", itemID, enums.ContributionStatusCompleted).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) UpdateCurrentCents(ctx context.Context, itemID uuid.UUID, currentCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.RegistryItem{}).
		Where("id = ?", itemID).
		Update("current_cents", currentCents).Error
}
