package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/nuptio/nuptio-backend/internal/activity"
	"github.com/nuptio/nuptio-backend/internal/commission"
	"github.com/nuptio/nuptio-backend/internal/contributions"
	"github.com/nuptio/nuptio-backend/internal/registry"
	"github.com/nuptio/nuptio-backend/internal/weddings"
	"github.com/nuptio/nuptio-backend/pkg/db/models"
	"github.com/nuptio/nuptio-backend/pkg/enums"
	"github.com/nuptio/nuptio-backend/pkg/feesplit"
	"github.com/nuptio/nuptio-backend/pkg/logger"
)

const (
	defaultSweepLookback   = 7 * 24 * time.Hour
	defaultSweepNoiseFloor = 100
)

// BalanceSweepParams configures the leftover balance sweep phase.
type BalanceSweepParams struct {
	Logger             *logger.Logger
	Repo               contributions.Repository
	WeddingRepo        weddings.Repository
	Gateway            contributions.Gateway
	Commissions        commission.Service
	Registry           registry.Service
	Activities         activity.Service
	ProcessingFeeCents int64
	NoiseFloorCents    int64
	Lookback           time.Duration
	Limit              int
	Now                func() time.Time
}

// BalanceSweep charges leftover cash balances that contributors left on a
// connected account after a prior gift. A sweep is always a new contribution
// row linked to the most recent completed one for the pair; existing rows are
// never touched.
type BalanceSweep struct {
	logg          *logger.Logger
	repo          contributions.Repository
	weddingRepo   weddings.Repository
	gateway       contributions.Gateway
	commissions   commission.Service
	registry      registry.Service
	activities    activity.Service
	processingFee int64
	noiseFloor    int64
	lookback      time.Duration
	limit         int
	now           func() time.Time
}

// NewBalanceSweep builds the phase.
func NewBalanceSweep(params BalanceSweepParams) (*BalanceSweep, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("contribution repository required")
	}
	if params.WeddingRepo == nil {
		return nil, fmt.Errorf("wedding repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Commissions == nil {
		return nil, fmt.Errorf("commission service required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry service required")
	}
	if params.Activities == nil {
		return nil, fmt.Errorf("activity service required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultSweepLookback
	}
	noiseFloor := params.NoiseFloorCents
	if noiseFloor <= 0 {
		noiseFloor = defaultSweepNoiseFloor
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &BalanceSweep{
		logg:          params.Logger,
		repo:          params.Repo,
		weddingRepo:   params.WeddingRepo,
		gateway:       params.Gateway,
		commissions:   params.Commissions,
		registry:      params.Registry,
		activities:    params.Activities,
		processingFee: params.ProcessingFeeCents,
		noiseFloor:    noiseFloor,
		lookback:      lookback,
		limit:         limit,
		now:           now,
	}, nil
}

// Run sweeps each recently active (wedding, contributor) pair independently.
func (b *BalanceSweep) Run(ctx context.Context) (PhaseSummary, error) {
	since := b.now().Add(-b.lookback)
	pairs, err := b.repo.ListCompletedPairsSince(ctx, since, b.limit)
	if err != nil {
		return PhaseSummary{}, fmt.Errorf("list completed pairs: %w", err)
	}

	var summary PhaseSummary
	var errs error
	for _, pair := range pairs {
		summary.Processed++
		swept, err := b.sweepPair(ctx, pair)
		if err != nil {
			summary.Errored++
			errs = multierr.Append(errs, fmt.Errorf("pair %s/%s: %w", pair.WeddingID, pair.StripeCustomerID, err))
			p := b.logg.WithFields(ctx, map[string]any{
				"wedding_id":  pair.WeddingID,
				"customer_id": pair.StripeCustomerID,
			})
			b.logg.Error(p, "balance sweep failed", err)
			continue
		}
		if swept {
			summary.Repaired++
		} else {
			summary.Skipped++
		}
	}

	doneCtx := b.logg.WithFields(ctx, map[string]any{
		"processed": summary.Processed,
		"swept":     summary.Repaired,
		"skipped":   summary.Skipped,
		"errored":   summary.Errored,
	})
	b.logg.Info(doneCtx, "balance sweep pass complete")
	return summary, errs
}

func (b *BalanceSweep) sweepPair(ctx context.Context, pair contributions.CompletedPair) (bool, error) {
	wedding, err := b.weddingRepo.FindByID(ctx, pair.WeddingID)
	if err != nil {
		return false, err
	}
	if wedding.StripeAccountID == nil || *wedding.StripeAccountID == "" {
		return false, nil
	}
	accountID := *wedding.StripeAccountID

	// A positive available balance is the sweepable excess.
	balance, err := b.gateway.CashBalance(ctx, accountID, pair.StripeCustomerID)
	if err != nil {
		return false, err
	}
	if balance <= b.noiseFloor {
		return false, nil
	}

	parent, err := b.repo.LatestCompletedForPair(ctx, pair.WeddingID, pair.StripeCustomerID)
	if err != nil {
		return false, err
	}

	commissionCents, err := b.commissions.CommissionFor(ctx, pair.WeddingID)
	if err != nil {
		return false, err
	}
	coupleReceives := feesplit.NetOfCommission(balance, commissionCents)
	if coupleReceives == 0 {
		// Balance cannot cover the commission; leave it for the guest.
		return false, nil
	}

	applicationFee := feesplit.PlatformShare(commissionCents, b.processingFee, balance)
	intent, err := b.gateway.CreateBalanceIntent(ctx, contributions.CreateBalanceIntentInput{
		AccountID:           accountID,
		CustomerID:          pair.StripeCustomerID,
		AmountCents:         balance,
		ApplicationFeeCents: applicationFee,
		Description:         fmt.Sprintf("Saldo restante de regalo %s", parent.ID),
	})
	if err != nil {
		return false, err
	}

	status := enums.ContributionStatusProcessing
	if intent.Settled() {
		status = enums.ContributionStatusCompleted
	}

	customerID := pair.StripeCustomerID
	sweep := &models.Contribution{
		RegistryItemID:         parent.RegistryItemID,
		WeddingID:              parent.WeddingID,
		Status:                 status,
		AmountCents:            coupleReceives,
		OriginalRequestedCents: balance,
		GuestCoversFee:         parent.GuestCoversFee,
		PaymentIntentID:        &intent.ID,
		StripeCustomerID:       &customerID,
		ParentContributionID:   &parent.ID,
		GuestName:              parent.GuestName,
		GuestEmail:             parent.GuestEmail,
	}
	if intent.LatestChargeID != "" {
		sweep.ChargeID = &intent.LatestChargeID
	}
	if err := b.repo.Create(ctx, sweep); err != nil {
		return false, err
	}

	if status == enums.ContributionStatusCompleted {
		b.afterSweepCompletion(ctx, sweep, intent, commissionCents)
	}

	p := b.logg.WithFields(ctx, map[string]any{
		"parent_contribution_id": parent.ID,
		"swept_cents":            balance,
		"couple_cents":           coupleReceives,
		"status":                 status,
	})
	b.logg.Info(p, "leftover balance swept into new contribution")
	return true, nil
}

func (b *BalanceSweep) afterSweepCompletion(ctx context.Context, sweep *models.Contribution, intent *contributions.PaymentIntent, commissionCents int64) {
	if _, err := b.registry.RecalculateTotal(ctx, sweep.RegistryItemID); err != nil {
		b.logg.Error(ctx, "recalculating registry total after sweep", err)
	}

	metadata, err := json.Marshal(map[string]any{
		"payment_intent_id": intent.ID,
		"commission_cents":  commissionCents,
	})
	if err != nil {
		metadata = nil
	}
	if _, err := b.activities.RecordEvent(ctx, activity.RecordGiftEventInput{
		ContributionID: sweep.ID,
		WeddingID:      sweep.WeddingID,
		RegistryItemID: sweep.RegistryItemID,
		Type:           enums.GiftEventTypeSwept,
		AmountCents:    sweep.AmountCents,
		Metadata:       metadata,
	}); err != nil {
		b.logg.Warn(ctx, "recording sweep gift event failed")
	}
}
