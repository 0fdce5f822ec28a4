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
	defaultPartialWait = 24 * time.Hour
	defaultBatchLimit  = 250
)

// PartialRecoveryParams configures the partial payment recovery phase.
type PartialRecoveryParams struct {
	Logger             *logger.Logger
	Repo               contributions.Repository
	WeddingRepo        weddings.Repository
	Gateway            contributions.Gateway
	Commissions        commission.Service
	Registry           registry.Service
	Activities         activity.Service
	ProcessingFeeCents int64
	Wait               time.Duration
	Limit              int
	Now                func() time.Time
}

// PartialRecovery repairs contributions stuck as partially funded: the bank
// transfer delivered less than requested, so the original intent is canceled
// and the amount actually received is re-charged from the contributor's cash
// balance.
type PartialRecovery struct {
	logg          *logger.Logger
	repo          contributions.Repository
	weddingRepo   weddings.Repository
	gateway       contributions.Gateway
	commissions   commission.Service
	registry      registry.Service
	activities    activity.Service
	processingFee int64
	wait          time.Duration
	limit         int
	now           func() time.Time
}

// NewPartialRecovery builds the phase.
func NewPartialRecovery(params PartialRecoveryParams) (*PartialRecovery, error) {
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
	wait := params.Wait
	if wait <= 0 {
		wait = defaultPartialWait
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &PartialRecovery{
		logg:          params.Logger,
		repo:          params.Repo,
		weddingRepo:   params.WeddingRepo,
		gateway:       params.Gateway,
		commissions:   params.Commissions,
		registry:      params.Registry,
		activities:    params.Activities,
		processingFee: params.ProcessingFeeCents,
		wait:          wait,
		limit:         limit,
		now:           now,
	}, nil
}

// Run scans for aged partially funded rows and repairs each one
// independently. One row's failure never aborts the batch; the row is
// released for the next run and counted as errored.
func (p *PartialRecovery) Run(ctx context.Context) (PhaseSummary, error) {
	cutoff := p.now().Add(-p.wait)
	rows, err := p.repo.ListPartialOlderThan(ctx, cutoff, p.limit)
	if err != nil {
		return PhaseSummary{}, fmt.Errorf("list partially funded rows: %w", err)
	}

	var summary PhaseSummary
	var errs error
	for i := range rows {
		summary.Processed++
		outcome, err := p.recoverRow(ctx, &rows[i])
		if err != nil {
			summary.Errored++
			errs = multierr.Append(errs, fmt.Errorf("contribution %s: %w", rows[i].ID, err))
			p.logg.Error(p.logg.WithContributionID(ctx, rows[i].ID.String()), "partial recovery failed", err)
			continue
		}
		switch outcome {
		case outcomeRepaired:
			summary.Repaired++
		case outcomeSkipped:
			summary.Skipped++
		}
	}

	doneCtx := p.logg.WithFields(ctx, map[string]any{
		"processed": summary.Processed,
		"repaired":  summary.Repaired,
		"skipped":   summary.Skipped,
		"errored":   summary.Errored,
	})
	p.logg.Info(doneCtx, "partial recovery pass complete")
	return summary, errs
}

type rowOutcome int

const (
	outcomeSkipped rowOutcome = iota
	outcomeRepaired
)

func (p *PartialRecovery) recoverRow(ctx context.Context, row *models.Contribution) (rowOutcome, error) {
	logCtx := p.logg.WithContributionID(ctx, row.ID.String())

	// The reconciling claim is the per-row mutex: a concurrent run that
	// loses the conditional update leaves the row alone.
	claimed, err := p.repo.ClaimForRecovery(ctx, row.ID)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("claim row: %w", err)
	}
	if !claimed {
		p.logg.Info(logCtx, "row already claimed; skipping")
		return outcomeSkipped, nil
	}

	outcome, err := p.recoverClaimed(logCtx, row)
	if err != nil {
		// Release back so the next run retries the row.
		if relErr := p.repo.ReleaseClaim(ctx, row.ID, enums.ContributionStatusPartiallyFunded, nil); relErr != nil {
			p.logg.Error(logCtx, "releasing claim after failure", relErr)
		}
		return outcomeSkipped, err
	}
	return outcome, nil
}

func (p *PartialRecovery) recoverClaimed(ctx context.Context, row *models.Contribution) (rowOutcome, error) {
	if row.PaymentIntentID == nil || *row.PaymentIntentID == "" {
		return outcomeSkipped, fmt.Errorf("row has no payment intent id")
	}
	if row.StripeCustomerID == nil || *row.StripeCustomerID == "" {
		return outcomeSkipped, fmt.Errorf("row has no gateway customer id")
	}

	wedding, err := p.weddingRepo.FindByID(ctx, row.WeddingID)
	if err != nil {
		return outcomeSkipped, err
	}
	if wedding.StripeAccountID == nil || *wedding.StripeAccountID == "" {
		return outcomeSkipped, fmt.Errorf("wedding has no connected account")
	}
	accountID := *wedding.StripeAccountID

	intent, err := p.gateway.RetrievePaymentIntent(ctx, accountID, *row.PaymentIntentID)
	if err != nil {
		return outcomeSkipped, err
	}

	if intent.AmountReceived == 0 {
		return p.finishTerminal(ctx, row, 0)
	}
	if intent.AmountReceived >= intent.AmountRequested {
		// Fully funded after all; the normal settlement path owns it.
		p.logg.Info(ctx, "intent fully funded; leaving row for settlement")
		if err := p.repo.ReleaseClaim(ctx, row.ID, enums.ContributionStatusPartiallyFunded, nil); err != nil {
			return outcomeSkipped, err
		}
		return outcomeSkipped, nil
	}

	// Cancel before creating the replacement; at most one live intent per
	// row at any point.
	if err := p.gateway.CancelPaymentIntent(ctx, accountID, *row.PaymentIntentID); err != nil {
		return outcomeSkipped, err
	}

	commissionCents, err := p.commissions.CommissionFor(ctx, row.WeddingID)
	if err != nil {
		return outcomeSkipped, err
	}
	coupleReceives := feesplit.NetOfCommission(intent.AmountReceived, commissionCents)
	if coupleReceives == 0 {
		return p.finishTerminal(ctx, row, intent.AmountReceived)
	}

	balance, err := p.gateway.CashBalance(ctx, accountID, *row.StripeCustomerID)
	if err != nil {
		return outcomeSkipped, err
	}
	if balance < intent.AmountReceived {
		// The released hold has not landed back on the balance yet, or the
		// funds were spent elsewhere. Retry on a later run.
		p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
			"balance_cents":  balance,
			"received_cents": intent.AmountReceived,
		}), "cash balance below received amount; deferring row")
		if err := p.repo.ReleaseClaim(ctx, row.ID, enums.ContributionStatusPartiallyFunded, nil); err != nil {
			return outcomeSkipped, err
		}
		return outcomeSkipped, nil
	}

	applicationFee := feesplit.PlatformShare(commissionCents, p.processingFee, intent.AmountReceived)
	newIntent, err := p.gateway.CreateBalanceIntent(ctx, contributions.CreateBalanceIntentInput{
		AccountID:           accountID,
		CustomerID:          *row.StripeCustomerID,
		AmountCents:         intent.AmountReceived,
		ApplicationFeeCents: applicationFee,
		Description:         fmt.Sprintf("Recuperación de regalo %s", row.ID),
	})
	if err != nil {
		return outcomeSkipped, err
	}

	status := enums.ContributionStatusProcessing
	if newIntent.Settled() {
		status = enums.ContributionStatusCompleted
	}
	updates := map[string]any{
		"payment_intent_id": newIntent.ID,
		"amount_cents":      coupleReceives,
	}
	if newIntent.LatestChargeID != "" {
		updates["charge_id"] = newIntent.LatestChargeID
	}
	if err := p.repo.ReleaseClaim(ctx, row.ID, status, updates); err != nil {
		return outcomeSkipped, err
	}

	if status == enums.ContributionStatusCompleted {
		p.afterCompletion(ctx, row, newIntent, coupleReceives, commissionCents)
	}

	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"status":           status,
		"received_cents":   intent.AmountReceived,
		"couple_cents":     coupleReceives,
		"commission_cents": commissionCents,
	}), "partially funded row repaired")
	return outcomeRepaired, nil
}

// finishTerminal closes a row whose received funds are zero or cannot cover
// the commission. The row keeps a zero amount instead of a negative one.
func (p *PartialRecovery) finishTerminal(ctx context.Context, row *models.Contribution, receivedCents int64) (rowOutcome, error) {
	if err := p.repo.ReleaseClaim(ctx, row.ID, enums.ContributionStatusIncomplete, map[string]any{
		"amount_cents": int64(0),
	}); err != nil {
		return outcomeSkipped, err
	}
	p.logg.Info(p.logg.WithField(ctx, "received_cents", receivedCents), "row closed as incomplete")
	return outcomeRepaired, nil
}

func (p *PartialRecovery) afterCompletion(ctx context.Context, row *models.Contribution, intent *contributions.PaymentIntent, coupleReceives, commissionCents int64) {
	if _, err := p.registry.RecalculateTotal(ctx, row.RegistryItemID); err != nil {
		p.logg.Error(ctx, "recalculating registry total after recovery", err)
	}

	metadata, err := json.Marshal(map[string]any{
		"payment_intent_id": intent.ID,
		"commission_cents":  commissionCents,
	})
	if err != nil {
		metadata = nil
	}
	if _, err := p.activities.RecordEvent(ctx, activity.RecordGiftEventInput{
		ContributionID: row.ID,
		WeddingID:      row.WeddingID,
		RegistryItemID: row.RegistryItemID,
		Type:           enums.GiftEventTypeRecovered,
		AmountCents:    coupleReceives,
		Metadata:       metadata,
	}); err != nil {
		p.logg.Warn(ctx, "recording recovery gift event failed")
	}
}
