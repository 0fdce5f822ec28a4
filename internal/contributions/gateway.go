package contributions

import "context"

// PaymentIntent is the slice of the gateway payment-intent this core reads.
// Amounts are minor units.
type PaymentIntent struct {
	ID              string
	Status          string
	AmountRequested int64
	AmountReceived  int64
	LatestChargeID  string
}

// Settled reports whether the intent finished synchronously.
func (p PaymentIntent) Settled() bool {
	return p.Status == "succeeded"
}

// AccountStatus is the live capability snapshot of a connected merchant account.
type AccountStatus struct {
	ID             string
	ChargesEnabled bool
	PayoutsEnabled bool
}

// CheckoutSession is the redirectable checkout the contributor completes.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
}

// CreateCheckoutSessionInput opens a hosted checkout on a connected account.
type CreateCheckoutSessionInput struct {
	AccountID           string
	CustomerID          string
	AmountCents         int64
	ApplicationFeeCents int64
	Description         string
	SuccessURL          string
	CancelURL           string
}

// CreateBalanceIntentInput opens and confirms a payment-intent funded from the
// customer's existing cash balance on the connected account.
type CreateBalanceIntentInput struct {
	AccountID           string
	CustomerID          string
	AmountCents         int64
	ApplicationFeeCents int64
	Description         string
}

// Gateway abstracts the payment provider operations the contribution
// lifecycle needs. Every call targets a connected merchant account, never the
// platform account.
type Gateway interface {
	RetrieveAccount(ctx context.Context, accountID string) (*AccountStatus, error)
	FindOrCreateCustomer(ctx context.Context, accountID, email, name string) (string, error)
	CashBalance(ctx context.Context, accountID, customerID string) (int64, error)
	CreateCheckoutSession(ctx context.Context, input CreateCheckoutSessionInput) (*CheckoutSession, error)
	RetrievePaymentIntent(ctx context.Context, accountID, intentID string) (*PaymentIntent, error)
	// CancelPaymentIntent tolerates intents that are already canceled or
	// otherwise uncancelable; those return nil.
	CancelPaymentIntent(ctx context.Context, accountID, intentID string) error
	CreateBalanceIntent(ctx context.Context, input CreateBalanceIntentInput) (*PaymentIntent, error)
}
