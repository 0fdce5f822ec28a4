package contributions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nuptio/nuptio-backend/internal/activity"
	"github.com/nuptio/nuptio-backend/internal/commission"
	"github.com/nuptio/nuptio-backend/internal/registry"
	"github.com/nuptio/nuptio-backend/internal/weddings"
	"github.com/nuptio/nuptio-backend/pkg/config"
	"github.com/nuptio/nuptio-backend/pkg/db/models"
	"github.com/nuptio/nuptio-backend/pkg/enums"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
	"github.com/nuptio/nuptio-backend/pkg/feesplit"
	"github.com/nuptio/nuptio-backend/pkg/logger"
)

// CheckoutInput is one contributor-entered gift request. AmountMajor is whole
// major currency units as typed by the guest.
type CheckoutInput struct {
	RegistryItemID uuid.UUID
	AmountMajor    int64
	GuestCoversFee bool
	GuestName      string
	GuestEmail     string
	Message        string
}

// CheckoutResult carries the redirectable session plus the split the guest
// was quoted.
type CheckoutResult struct {
	ContributionID uuid.UUID      `json:"contribution_id,omitempty"`
	SessionID      string         `json:"session_id"`
	CheckoutURL    string         `json:"checkout_url"`
	Split          feesplit.Split `json:"split"`
}

// Service opens gateway checkouts for registry gifts and writes the initial
// ledger row.
type Service interface {
	InitiateCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
}

type service struct {
	repo         Repository
	weddingRepo  weddings.Repository
	registryRepo registry.Repository
	commissions  commission.Service
	activities   activity.Service
	gateway      Gateway
	gift         config.GiftConfig
	logg         *logger.Logger
}

// NewService wires the checkout initiator.
func NewService(
	repo Repository,
	weddingRepo weddings.Repository,
	registryRepo registry.Repository,
	commissions commission.Service,
	activities activity.Service,
	gateway Gateway,
	gift config.GiftConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contribution repository required")
	}
	if weddingRepo == nil {
		return nil, fmt.Errorf("wedding repository required")
	}
	if registryRepo == nil {
		return nil, fmt.Errorf("registry repository required")
	}
	if commissions == nil {
		return nil, fmt.Errorf("commission service required")
	}
	if activities == nil {
		return nil, fmt.Errorf("activity service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:         repo,
		weddingRepo:  weddingRepo,
		registryRepo: registryRepo,
		commissions:  commissions,
		activities:   activities,
		gateway:      gateway,
		gift:         gift,
		logg:         logg,
	}, nil
}

func (s *service) InitiateCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.RegistryItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "registry item id is required")
	}
	input.GuestName = strings.TrimSpace(input.GuestName)
	if input.GuestName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contributor name is required")
	}
	if err := feesplit.ValidateAmount(input.AmountMajor, s.gift.MinAmountMajor); err != nil {
		return nil, err
	}

	item, err := s.registryRepo.FindByID(ctx, input.RegistryItemID)
	if err != nil {
		return nil, err
	}
	if !item.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "registry item is not accepting gifts")
	}

	wedding, err := s.weddingRepo.FindByID(ctx, item.WeddingID)
	if err != nil {
		return nil, err
	}
	if wedding.StripeAccountID == nil || *wedding.StripeAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMerchantNotReady, "wedding has no connected payment account")
	}
	accountID := *wedding.StripeAccountID

	// Account capability is verified live; the cached onboarding flags can be
	// stale after the gateway downgrades an account.
	status, err := s.gateway.RetrieveAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !status.ChargesEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeChargesDisabled, "connected account cannot accept charges")
	}
	if !status.PayoutsEnabled {
		return nil, pkgerrors.New(pkgerrors.CodePayoutsDisabled, "connected account cannot receive payouts")
	}

	commissionCents, err := s.commissions.CommissionFor(ctx, wedding.ID)
	if err != nil {
		return nil, err
	}
	split := feesplit.Compute(input.AmountMajor, commissionCents, input.GuestCoversFee)
	if split.CoupleReceivesCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift amount does not cover the platform commission").WithDetails(map[string]any{
			"commission_cents": commissionCents,
		})
	}

	customerID, err := s.gateway.FindOrCreateCustomer(ctx, accountID, input.GuestEmail, input.GuestName)
	if err != nil {
		return nil, err
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, CreateCheckoutSessionInput{
		AccountID:           accountID,
		CustomerID:          customerID,
		AmountCents:         split.TotalChargedCents,
		ApplicationFeeCents: commissionCents,
		Description:         fmt.Sprintf("Regalo: %s", item.Title),
		SuccessURL:          s.gift.SuccessURL,
		CancelURL:           s.gift.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
		Split:       split,
	}

	contribution := &models.Contribution{
		RegistryItemID:         item.ID,
		WeddingID:              wedding.ID,
		Status:                 enums.ContributionStatusPending,
		AmountCents:            split.CoupleReceivesCents,
		OriginalRequestedCents: split.TotalChargedCents,
		GuestCoversFee:         input.GuestCoversFee,
		CheckoutSessionID:      &sess.ID,
		StripeCustomerID:       &customerID,
		GuestName:              input.GuestName,
	}
	if sess.PaymentIntentID != "" {
		contribution.PaymentIntentID = &sess.PaymentIntentID
	}
	if email := strings.TrimSpace(input.GuestEmail); email != "" {
		contribution.GuestEmail = &email
	}
	if msg := strings.TrimSpace(input.Message); msg != "" {
		contribution.Message = &msg
	}

	// The gateway session is the durable side of this dual write. If the row
	// insert fails the guest can still pay; the orphaned session id in the
	// log is the audit hook for a later backfill.
	if err := s.repo.Create(ctx, contribution); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "checkout_session_id", sess.ID), "ledger write failed after checkout session creation", err)
		return result, nil
	}
	result.ContributionID = contribution.ID

	s.recordReceived(ctx, contribution, split)
	return result, nil
}

func (s *service) recordReceived(ctx context.Context, contribution *models.Contribution, split feesplit.Split) {
	metadata, err := json.Marshal(map[string]any{
		"total_charged_cents": split.TotalChargedCents,
		"commission_cents":    split.CommissionCents,
		"guest_covers_fee":    split.GuestCoversFee,
	})
	if err != nil {
		metadata = nil
	}
	if _, err := s.activities.RecordEvent(ctx, activity.RecordGiftEventInput{
		ContributionID: contribution.ID,
		WeddingID:      contribution.WeddingID,
		RegistryItemID: contribution.RegistryItemID,
		Type:           enums.GiftEventTypeReceived,
		AmountCents:    contribution.AmountCents,
		Metadata:       metadata,
	}); err != nil {
		s.logg.Warn(s.logg.WithContributionID(ctx, contribution.ID.String()), "recording gift event failed")
	}
}
