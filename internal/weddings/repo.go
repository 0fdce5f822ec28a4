package weddings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nuptio/nuptio-backend/pkg/db/models"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
)

// Repository reads the wedding records owned by the onboarding flow.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Wedding, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wedding repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wedding, error) {
	var wedding models.Wedding
	if err := r.db.WithContext(ctx).First(&wedding, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wedding not found")
		}
		return nil, err
	}
	return &wedding, nil
}
