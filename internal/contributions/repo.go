package contributions

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nuptio/nuptio-backend/pkg/db"
	"github.com/nuptio/nuptio-backend/pkg/db/models"
	"github.com/nuptio/nuptio-backend/pkg/enums"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
)

// CompletedPair identifies one (wedding, gateway customer) combination that
// had at least one completed contribution inside the sweep lookback window.
type CompletedPair struct {
	WeddingID        uuid.UUID `gorm:"column:wedding_id"`
	StripeCustomerID string    `gorm:"column:stripe_customer_id"`
}

// Repository manages persistence for contribution ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contribution *models.Contribution) error

	// ListPartialOlderThan returns partially funded rows last touched before
	// the cutoff, oldest first, capped at limit.
	ListPartialOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Contribution, error)

	// ClaimForRecovery flips a row from partially_funded to reconciling via a
	// conditional update. A false return means another run already holds it.
	ClaimForRecovery(ctx context.Context, id uuid.UUID) (bool, error)

	// ReleaseClaim moves a reconciling row to its outcome status. Rows no
	// longer in reconciling are left untouched.
	ReleaseClaim(ctx context.Context, id uuid.UUID, status enums.ContributionStatus, updates map[string]any) error

	ListCompletedPairsSince(ctx context.Context, since time.Time, limit int) ([]CompletedPair, error)
	LatestCompletedForPair(ctx context.Context, weddingID uuid.UUID, customerID string) (*models.Contribution, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a contribution repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, contribution *models.Contribution) error {
	if err := r.db.WithContext(ctx).Create(contribution).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "contribution already recorded")
		}
		return err
	}
	return nil
}

func (r *repository) ListPartialOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Contribution, error) {
	var rows []models.Contribution
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.ContributionStatusPartiallyFunded, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ClaimForRecovery(ctx context.Context, id uuid.UUID) (bool, error) {
	// UpdateColumn keeps updated_at intact: the claim itself must not reset
	// the row's age, which ListPartialOlderThan reads as time spent partial.
	result := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("id = ? AND status = ?", id, enums.ContributionStatusPartiallyFunded).
		UpdateColumn("status", enums.ContributionStatusReconciling)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ReleaseClaim(ctx context.Context, id uuid.UUID, status enums.ContributionStatus, updates map[string]any) error {
	values := map[string]any{"status": status}
	for column, value := range updates {
		values[column] = value
	}
	query := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("id = ? AND status = ?", id, enums.ContributionStatusReconciling)
	if status == enums.ContributionStatusPartiallyFunded {
		// A requeued row keeps its age so the next cycle retries it instead
		// of waiting out another full threshold window.
		return query.UpdateColumns(values).Error
	}
	return query.Updates(values).Error
}

func (r *repository) ListCompletedPairsSince(ctx context.Context, since time.Time, limit int) ([]CompletedPair, error) {
	var pairs []CompletedPair
	if err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("DISTINCT wedding_id, stripe_customer_id").
		Where("status = ? AND updated_at >= ? AND stripe_customer_id IS NOT NULL", enums.ContributionStatusCompleted, since).
		Limit(limit).
		Find(&pairs).Error; err != nil {
		return nil, err
	}
	return pairs, nil
}

func (r *repository) LatestCompletedForPair(ctx context.Context, weddingID uuid.UUID, customerID string) (*models.Contribution, error) {
	var contribution models.Contribution
	if err := r.db.WithContext(ctx).
		Where("wedding_id = ? AND stripe_customer_id = ? AND status = ?", weddingID, customerID, enums.ContributionStatusCompleted).
		Order("updated_at DESC").
		First(&contribution).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no completed contribution for pair")
		}
		return nil, err
	}
	return &contribution, nil
}
