package activity

import (
	"context"

	"gorm.io/gorm"

	"github.com/nuptio/nuptio-backend/pkg/db/models"
)

// Repository manages persistence for gift activity events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.GiftEvent) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an activity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.GiftEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
