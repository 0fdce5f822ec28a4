package contributions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nuptio/nuptio-backend/pkg/db/models"
	"github.com/nuptio/nuptio-backend/pkg/enums"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
)

func setupContributionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	contributions := `
CREATE TABLE IF NOT EXISTS contributions (
  id TEXT PRIMARY KEY,
  registry_item_id TEXT NOT NULL,
  wedding_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount_cents INTEGER NOT NULL,
  original_requested_cents INTEGER NOT NULL,
  guest_covers_fee INTEGER NOT NULL DEFAULT 0,
  checkout_session_id TEXT,
  payment_intent_id TEXT,
  stripe_customer_id TEXT,
  charge_id TEXT,
  parent_contribution_id TEXT,
  guest_name TEXT NOT NULL,
  guest_email TEXT,
  message TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(contributions).Error)
	// The shared-cache DSN keeps the table alive across tests in one process.
	require.NoError(t, db.Exec(`DELETE FROM contributions`).Error)
	return db
}

func createContribution(t *testing.T, db *gorm.DB, weddingID uuid.UUID, status enums.ContributionStatus, customerID string, updated time.Time) *models.Contribution {
	t.Helper()

	row := &models.Contribution{
		ID:                     uuid.New(),
		RegistryItemID:         uuid.New(),
		WeddingID:              weddingID,
		Status:                 status,
		AmountCents:            10000,
		OriginalRequestedCents: 10000,
		GuestName:              "Test Guest",
		CreatedAt:              updated,
		UpdatedAt:              updated,
	}
	if customerID != "" {
		row.StripeCustomerID = &customerID
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func fetchContribution(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Contribution {
	t.Helper()

	var row models.Contribution
	require.NoError(t, db.First(&row, "id = ?", id).Error)
	return &row
}

func TestRepositoryClaimForRecovery(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	weddingID := uuid.New()
	row := createContribution(t, db, weddingID, enums.ContributionStatusPartiallyFunded, "cus_1", time.Now().UTC())

	claimed, err := repo.ClaimForRecovery(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	got := fetchContribution(t, db, row.ID)
	assert.Equal(t, enums.ContributionStatusReconciling, got.Status)

	again, err := repo.ClaimForRecovery(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, again, "a reconciling row must not be claimable twice")
}

func TestRepositoryReleaseClaim(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	weddingID := uuid.New()
	row := createContribution(t, db, weddingID, enums.ContributionStatusPartiallyFunded, "cus_1", time.Now().UTC())

	claimed, err := repo.ClaimForRecovery(ctx, row.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	err = repo.ReleaseClaim(ctx, row.ID, enums.ContributionStatusCompleted, map[string]any{
		"payment_intent_id": "pi_recovered",
		"amount_cents":      int64(4000),
	})
	require.NoError(t, err)

	got := fetchContribution(t, db, row.ID)
	assert.Equal(t, enums.ContributionStatusCompleted, got.Status)
	require.NotNil(t, got.PaymentIntentID)
	assert.Equal(t, "pi_recovered", *got.PaymentIntentID)
	assert.Equal(t, int64(4000), got.AmountCents)
	assert.Equal(t, int64(10000), got.OriginalRequestedCents)

	// Release on a row that left reconciling is a no-op.
	err = repo.ReleaseClaim(ctx, row.ID, enums.ContributionStatusIncomplete, map[string]any{"amount_cents": int64(0)})
	require.NoError(t, err)

	got = fetchContribution(t, db, row.ID)
	assert.Equal(t, enums.ContributionStatusCompleted, got.Status)
	assert.Equal(t, int64(4000), got.AmountCents)
}

func TestRepositoryCreateDuplicateIsConflict(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := createContribution(t, db, uuid.New(), enums.ContributionStatusPending, "cus_1", time.Now().UTC())

	dup := *row
	err := repo.Create(ctx, &dup)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestRepositoryRequeueKeepsRowAge(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	row := createContribution(t, db, uuid.New(), enums.ContributionStatusPartiallyFunded, "cus_1", now.Add(-48*time.Hour))

	claimed, err := repo.ClaimForRecovery(ctx, row.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.ReleaseClaim(ctx, row.ID, enums.ContributionStatusPartiallyFunded, nil))

	// A deferred row must stay eligible for the very next cycle.
	rows, err := repo.ListPartialOlderThan(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row.ID, rows[0].ID)
}

func TestRepositoryListPartialOlderThan(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	weddingID := uuid.New()
	now := time.Now().UTC()
	stale := createContribution(t, db, weddingID, enums.ContributionStatusPartiallyFunded, "cus_1", now.Add(-48*time.Hour))
	staler := createContribution(t, db, weddingID, enums.ContributionStatusPartiallyFunded, "cus_2", now.Add(-72*time.Hour))
	createContribution(t, db, weddingID, enums.ContributionStatusPartiallyFunded, "cus_3", now.Add(-time.Hour))
	createContribution(t, db, weddingID, enums.ContributionStatusCompleted, "cus_4", now.Add(-48*time.Hour))

	rows, err := repo.ListPartialOlderThan(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, staler.ID, rows[0].ID)
	assert.Equal(t, stale.ID, rows[1].ID)

	capped, err := repo.ListPartialOlderThan(ctx, now.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, staler.ID, capped[0].ID)
}

func TestRepositoryListCompletedPairsSince(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	weddingA := uuid.New()
	weddingB := uuid.New()
	now := time.Now().UTC()

	createContribution(t, db, weddingA, enums.ContributionStatusCompleted, "cus_1", now.Add(-time.Hour))
	createContribution(t, db, weddingA, enums.ContributionStatusCompleted, "cus_1", now.Add(-2*time.Hour))
	createContribution(t, db, weddingB, enums.ContributionStatusCompleted, "cus_2", now.Add(-time.Hour))
	createContribution(t, db, weddingB, enums.ContributionStatusCompleted, "cus_2", now.Add(-200*time.Hour))
	createContribution(t, db, weddingB, enums.ContributionStatusPartiallyFunded, "cus_3", now.Add(-time.Hour))
	createContribution(t, db, weddingB, enums.ContributionStatusCompleted, "", now.Add(-time.Hour))

	pairs, err := repo.ListCompletedPairsSince(ctx, now.Add(-168*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	seen := map[string]uuid.UUID{}
	for _, pair := range pairs {
		seen[pair.StripeCustomerID] = pair.WeddingID
	}
	assert.Equal(t, weddingA, seen["cus_1"])
	assert.Equal(t, weddingB, seen["cus_2"])
}

func TestRepositoryLatestCompletedForPair(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	weddingID := uuid.New()
	now := time.Now().UTC()
	createContribution(t, db, weddingID, enums.ContributionStatusCompleted, "cus_1", now.Add(-3*time.Hour))
	latest := createContribution(t, db, weddingID, enums.ContributionStatusCompleted, "cus_1", now.Add(-time.Hour))

	got, err := repo.LatestCompletedForPair(ctx, weddingID, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, latest.ID, got.ID)

	_, err = repo.LatestCompletedForPair(ctx, weddingID, "cus_missing")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
