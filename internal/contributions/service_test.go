package contributions

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nuptio/nuptio-backend/internal/activity"
	"github.com/nuptio/nuptio-backend/internal/registry"
	"github.com/nuptio/nuptio-backend/internal/weddings"
	"github.com/nuptio/nuptio-backend/pkg/config"
	"github.com/nuptio/nuptio-backend/pkg/db/models"
	"github.com/nuptio/nuptio-backend/pkg/enums"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
	"github.com/nuptio/nuptio-backend/pkg/logger"
)

type fakeContributionRepo struct {
	createFn                func(ctx context.Context, c *models.Contribution) error
	listPartialFn           func(ctx context.Context, cutoff time.Time, limit int) ([]models.Contribution, error)
	claimFn                 func(ctx context.Context, id uuid.UUID) (bool, error)
	releaseFn               func(ctx context.Context, id uuid.UUID, status enums.ContributionStatus, updates map[string]any) error
	listPairsFn             func(ctx context.Context, since time.Time, limit int) ([]CompletedPair, error)
	latestCompletedFn       func(ctx context.Context, weddingID uuid.UUID, customerID string) (*models.Contribution, error)
	created                 []*models.Contribution
	releasedStatuses        map[uuid.UUID]enums.ContributionStatus
	releaseRecordedUpdates  map[uuid.UUID]map[string]any
}

func newFakeContributionRepo() *fakeContributionRepo {
	return &fakeContributionRepo{
		releasedStatuses:       map[uuid.UUID]enums.ContributionStatus{},
		releaseRecordedUpdates: map[uuid.UUID]map[string]any{},
	}
}

func (f *fakeContributionRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeContributionRepo) Create(ctx context.Context, c *models.Contribution) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, c); err != nil {
			return err
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.created = append(f.created, c)
	return nil
}

func (f *fakeContributionRepo) ListPartialOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Contribution, error) {
	if f.listPartialFn != nil {
		return f.listPartialFn(ctx, cutoff, limit)
	}
	return nil, nil
}

func (f *fakeContributionRepo) ClaimForRecovery(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.claimFn != nil {
		return f.claimFn(ctx, id)
	}
	return true, nil
}

func (f *fakeContributionRepo) ReleaseClaim(ctx context.Context, id uuid.UUID, status enums.ContributionStatus, updates map[string]any) error {
	if f.releaseFn != nil {
		return f.releaseFn(ctx, id, status, updates)
	}
	f.releasedStatuses[id] = status
	f.releaseRecordedUpdates[id] = updates
	return nil
}

func (f *fakeContributionRepo) ListCompletedPairsSince(ctx context.Context, since time.Time, limit int) ([]CompletedPair, error) {
	if f.listPairsFn != nil {
		return f.listPairsFn(ctx, since, limit)
	}
	return nil, nil
}

func (f *fakeContributionRepo) LatestCompletedForPair(ctx context.Context, weddingID uuid.UUID, customerID string) (*models.Contribution, error) {
	if f.latestCompletedFn != nil {
		return f.latestCompletedFn(ctx, weddingID, customerID)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no completed contribution for pair")
}

type fakeWeddingRepo struct {
	weddings map[uuid.UUID]*models.Wedding
}

func (f *fakeWeddingRepo) WithTx(tx *gorm.DB) weddings.Repository { return f }

func (f *fakeWeddingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Wedding, error) {
	if w, ok := f.weddings[id]; ok {
		return w, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wedding not found")
}

type fakeRegistryRepo struct {
	items map[uuid.UUID]*models.RegistryItem
}

func (f *fakeRegistryRepo) WithTx(tx *gorm.DB) registry.Repository { return f }

func (f *fakeRegistryRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.RegistryItem, error) {
	if item, ok := f.items[id]; ok {
		return item, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "registry item not found")
}

func (f *fakeRegistryRepo) SumCompletedContributions(ctx context.Context, itemID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeRegistryRepo) UpdateCurrentCents(ctx context.Context, itemID uuid.UUID, currentCents int64) error {
	return nil
}

type fakeCommissionService struct {
	commission int64
	err        error
}

func (f *fakeCommissionService) CommissionFor(ctx context.Context, weddingID uuid.UUID) (int64, error) {
	return f.commission, f.err
}

type fakeActivityService struct {
	events []activity.RecordGiftEventInput
	err    error
}

func (f *fakeActivityService) RecordEvent(ctx context.Context, input activity.RecordGiftEventInput) (*models.GiftEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.events = append(f.events, input)
	return &models.GiftEvent{
		ContributionID: input.ContributionID,
		Type:           input.Type,
		AmountCents:    input.AmountCents,
	}, nil
}

type fakeGateway struct {
	account          *AccountStatus
	accountErr       error
	customerID       string
	customerErr      error
	balances         map[string]int64
	balanceErr       error
	session          *CheckoutSession
	sessionErr       error
	intents          map[string]*PaymentIntent
	retrieveErr      error
	cancelErr        error
	canceled         []string
	balanceIntent    *PaymentIntent
	balanceIntentErr error
	createdIntents   []CreateBalanceIntentInput
}

func (f *fakeGateway) RetrieveAccount(ctx context.Context, accountID string) (*AccountStatus, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func (f *fakeGateway) FindOrCreateCustomer(ctx context.Context, accountID, email, name string) (string, error) {
	if f.customerErr != nil {
		return "", f.customerErr
	}
	return f.customerID, nil
}

func (f *fakeGateway) CashBalance(ctx context.Context, accountID, customerID string) (int64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balances[customerID], nil
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, input CreateCheckoutSessionInput) (*CheckoutSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeGateway) RetrievePaymentIntent(ctx context.Context, accountID, intentID string) (*PaymentIntent, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	if pi, ok := f.intents[intentID]; ok {
		return pi, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeGateway, "intent not found")
}

func (f *fakeGateway) CancelPaymentIntent(ctx context.Context, accountID, intentID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, intentID)
	return nil
}

func (f *fakeGateway) CreateBalanceIntent(ctx context.Context, input CreateBalanceIntentInput) (*PaymentIntent, error) {
	f.createdIntents = append(f.createdIntents, input)
	if f.balanceIntentErr != nil {
		return nil, f.balanceIntentErr
	}
	return f.balanceIntent, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testGiftConfig() config.GiftConfig {
	return config.GiftConfig{
		Currency:               "mxn",
		BankTransferType:       "mx_bank_transfer",
		MinAmountMajor:         30,
		ProcessingFeeCents:     1000,
		DefaultCommissionCents: 2000,
		SuccessURL:             "https://example.test/gracias",
		CancelURL:              "https://example.test/regalo",
	}
}

type checkoutFixture struct {
	svc         Service
	repo        *fakeContributionRepo
	weddingRepo *fakeWeddingRepo
	gateway     *fakeGateway
	activity    *fakeActivityService
	itemID      uuid.UUID
	weddingID   uuid.UUID
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	itemID := uuid.New()
	weddingID := uuid.New()
	accountID := "acct_test"

	repo := newFakeContributionRepo()
	gateway := &fakeGateway{
		account:    &AccountStatus{ID: accountID, ChargesEnabled: true, PayoutsEnabled: true},
		customerID: "cus_test",
		session:    &CheckoutSession{ID: "cs_test", URL: "https://checkout.test/cs_test"},
	}
	activities := &fakeActivityService{}
	weddingRepo := &fakeWeddingRepo{weddings: map[uuid.UUID]*models.Wedding{
		weddingID: {ID: weddingID, Slug: "ana-y-luis", StripeAccountID: &accountID},
	}}

	svc, err := NewService(
		repo,
		weddingRepo,
		&fakeRegistryRepo{items: map[uuid.UUID]*models.RegistryItem{
			itemID: {ID: itemID, WeddingID: weddingID, Title: "Luna de miel", Active: true},
		}},
		&fakeCommissionService{commission: 2000},
		activities,
		gateway,
		testGiftConfig(),
		testLogger(),
	)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	return &checkoutFixture{
		svc:         svc,
		repo:        repo,
		weddingRepo: weddingRepo,
		gateway:     gateway,
		activity:    activities,
		itemID:      itemID,
		weddingID:   weddingID,
	}
}

func TestInitiateCheckout(t *testing.T) {
	fx := newCheckoutFixture(t)

	result, err := fx.svc.InitiateCheckout(context.Background(), CheckoutInput{
		RegistryItemID: fx.itemID,
		AmountMajor:    100,
		GuestCoversFee: false,
		GuestName:      "Mariana",
		GuestEmail:     "mariana@example.test",
	})
	if err != nil {
		t.Fatalf("InitiateCheckout error: %v", err)
	}
	if result.SessionID != "cs_test" || result.CheckoutURL == "" {
		t.Fatalf("unexpected session: %+v", result)
	}
	if result.Split.TotalChargedCents != 10000 || result.Split.CoupleReceivesCents != 8000 {
		t.Fatalf("unexpected split: %+v", result.Split)
	}

	if len(fx.repo.created) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(fx.repo.created))
	}
	row := fx.repo.created[0]
	if row.Status != enums.ContributionStatusPending {
		t.Fatalf("expected pending row, got %s", row.Status)
	}
	if row.AmountCents != 8000 || row.OriginalRequestedCents != 10000 {
		t.Fatalf("unexpected row amounts: %+v", row)
	}
	if row.CheckoutSessionID == nil || *row.CheckoutSessionID != "cs_test" {
		t.Fatalf("expected session linkage on row")
	}
	if row.StripeCustomerID == nil || *row.StripeCustomerID != "cus_test" {
		t.Fatalf("expected customer linkage on row")
	}

	if len(fx.activity.events) != 1 || fx.activity.events[0].Type != enums.GiftEventTypeReceived {
		t.Fatalf("expected a gift_received event, got %+v", fx.activity.events)
	}
}

func TestInitiateCheckoutGuestCoversFee(t *testing.T) {
	fx := newCheckoutFixture(t)

	result, err := fx.svc.InitiateCheckout(context.Background(), CheckoutInput{
		RegistryItemID: fx.itemID,
		AmountMajor:    100,
		GuestCoversFee: true,
		GuestName:      "Mariana",
	})
	if err != nil {
		t.Fatalf("InitiateCheckout error: %v", err)
	}
	if result.Split.TotalChargedCents != 12000 || result.Split.CoupleReceivesCents != 10000 {
		t.Fatalf("unexpected split: %+v", result.Split)
	}
}

func TestInitiateCheckoutValidation(t *testing.T) {
	fx := newCheckoutFixture(t)

	tests := []struct {
		name  string
		input CheckoutInput
		code  pkgerrors.Code
	}{
		{
			name:  "missing name",
			input: CheckoutInput{RegistryItemID: fx.itemID, AmountMajor: 100},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "amount below floor",
			input: CheckoutInput{RegistryItemID: fx.itemID, AmountMajor: 10, GuestName: "Mariana"},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "negative amount",
			input: CheckoutInput{RegistryItemID: fx.itemID, AmountMajor: -5, GuestName: "Mariana"},
			code:  pkgerrors.CodeValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.InitiateCheckout(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			// Validation must short-circuit before any gateway traffic.
			if len(fx.repo.created) != 0 {
				t.Fatalf("no ledger row should exist after a rejected request")
			}
		})
	}
}

func TestInitiateCheckoutMerchantPreconditions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(fx *checkoutFixture)
		code   pkgerrors.Code
	}{
		{
			name: "no connected account",
			mutate: func(fx *checkoutFixture) {
				for _, w := range fx.weddingRepo.weddings {
					w.StripeAccountID = nil
				}
			},
			code: pkgerrors.CodeMerchantNotReady,
		},
		{
			name: "charges disabled",
			mutate: func(fx *checkoutFixture) {
				fx.gateway.account.ChargesEnabled = false
			},
			code: pkgerrors.CodeChargesDisabled,
		},
		{
			name: "payouts disabled",
			mutate: func(fx *checkoutFixture) {
				fx.gateway.account.PayoutsEnabled = false
			},
			code: pkgerrors.CodePayoutsDisabled,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := newCheckoutFixture(t)
			tc.mutate(fx)

			_, err := fx.svc.InitiateCheckout(context.Background(), CheckoutInput{
				RegistryItemID: fx.itemID,
				AmountMajor:    100,
				GuestName:      "Mariana",
			})
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if len(fx.repo.created) != 0 {
				t.Fatalf("no ledger row should exist after a precondition failure")
			}
		})
	}
}

func TestInitiateCheckoutLedgerWriteFailureKeepsSession(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.repo.createFn = func(ctx context.Context, c *models.Contribution) error {
		return errors.New("connection reset")
	}

	result, err := fx.svc.InitiateCheckout(context.Background(), CheckoutInput{
		RegistryItemID: fx.itemID,
		AmountMajor:    100,
		GuestName:      "Mariana",
	})
	if err != nil {
		t.Fatalf("checkout must survive a ledger write failure, got %v", err)
	}
	if result.SessionID != "cs_test" || result.CheckoutURL == "" {
		t.Fatalf("session must stay usable: %+v", result)
	}
	if result.ContributionID != uuid.Nil {
		t.Fatalf("no contribution id should be reported when the row write failed")
	}
}

func TestInitiateCheckoutInactiveItem(t *testing.T) {
	fx := newCheckoutFixture(t)
	itemID := uuid.New()

	svc, err := NewService(fx.repo, &fakeWeddingRepo{weddings: map[uuid.UUID]*models.Wedding{}}, &fakeRegistryRepo{items: map[uuid.UUID]*models.RegistryItem{
		itemID: {ID: itemID, WeddingID: fx.weddingID, Title: "Vajilla", Active: false},
	}}, &fakeCommissionService{commission: 2000}, fx.activity, fx.gateway, testGiftConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.InitiateCheckout(context.Background(), CheckoutInput{
		RegistryItemID: itemID,
		AmountMajor:    100,
		GuestName:      "Mariana",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for inactive item, got %v", err)
	}
}
