package contributions

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/nuptio/nuptio-backend/pkg/config"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
	pkgstripe "github.com/nuptio/nuptio-backend/pkg/stripe"
)

const paymentMethodCustomerBalance = "customer_balance"

type stripeGateway struct {
	currency         string
	bankTransferType string
}

// NewStripeGateway wraps the initialized Stripe client so the contribution
// and reconciliation services can be tested against a fake.
func NewStripeGateway(api *pkgstripe.Client, cfg config.GiftConfig) (Gateway, error) {
	if api == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &stripeGateway{
		currency:         cfg.Currency,
		bankTransferType: cfg.BankTransferType,
	}, nil
}

func (g *stripeGateway) RetrieveAccount(ctx context.Context, accountID string) (*AccountStatus, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := account.GetByID(accountID, params)
	if err != nil {
		return nil, gatewayError("retrieving connected account", err)
	}
	return &AccountStatus{
		ID:             acct.ID,
		ChargesEnabled: acct.ChargesEnabled,
		PayoutsEnabled: acct.PayoutsEnabled,
	}, nil
}

func (g *stripeGateway) FindOrCreateCustomer(ctx context.Context, accountID, email, name string) (string, error) {
	if email != "" {
		listParams := &stripe.CustomerListParams{
			Email: stripe.String(email),
		}
		listParams.Context = ctx
		listParams.Limit = stripe.Int64(1)
		listParams.SetStripeAccount(accountID)

		iter := customer.List(listParams)
		if iter.Next() {
			return iter.Customer().ID, nil
		}
		if err := iter.Err(); err != nil {
			return "", gatewayError("listing customers", err)
		}
	}

	createParams := &stripe.CustomerParams{
		Name: stripe.String(name),
	}
	if email != "" {
		createParams.Email = stripe.String(email)
	}
	createParams.Context = ctx
	createParams.SetStripeAccount(accountID)

	cust, err := customer.New(createParams)
	if err != nil {
		return "", gatewayError("creating customer", err)
	}
	return cust.ID, nil
}

func (g *stripeGateway) CashBalance(ctx context.Context, accountID, customerID string) (int64, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.SetStripeAccount(accountID)
	params.AddExpand("cash_balance")

	cust, err := customer.Get(customerID, params)
	if err != nil {
		return 0, gatewayError("retrieving customer balance", err)
	}
	if cust.CashBalance == nil {
		return 0, nil
	}
	return cust.CashBalance.Available[g.currency], nil
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, input CreateCheckoutSessionInput) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer:           stripe.String(input.CustomerID),
		SuccessURL:         stripe.String(input.SuccessURL),
		CancelURL:          stripe.String(input.CancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{paymentMethodCustomerBalance}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(input.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(input.Description),
					},
				},
			},
		},
		PaymentMethodOptions: &stripe.CheckoutSessionPaymentMethodOptionsParams{
			CustomerBalance: &stripe.CheckoutSessionPaymentMethodOptionsCustomerBalanceParams{
				FundingType: stripe.String("bank_transfer"),
				BankTransfer: &stripe.CheckoutSessionPaymentMethodOptionsCustomerBalanceBankTransferParams{
					Type: stripe.String(g.bankTransferType),
				},
			},
		},
	}
	if input.ApplicationFeeCents > 0 {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(input.ApplicationFeeCents),
		}
	}
	params.Context = ctx
	params.SetStripeAccount(input.AccountID)

	sess, err := session.New(params)
	if err != nil {
		return nil, gatewayError("creating checkout session", err)
	}

	out := &CheckoutSession{
		ID:  sess.ID,
		URL: sess.URL,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out, nil
}

func (g *stripeGateway) RetrievePaymentIntent(ctx context.Context, accountID, intentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.SetStripeAccount(accountID)

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, gatewayError("retrieving payment intent", err)
	}
	return toPaymentIntent(pi), nil
}

func (g *stripeGateway) CancelPaymentIntent(ctx context.Context, accountID, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	params.SetStripeAccount(accountID)

	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		// An intent that already reached a final state cannot be canceled
		// again; that still satisfies the release.
		var stripeErr *stripe.Error
		if stdErrors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
			return nil
		}
		return gatewayError("canceling payment intent", err)
	}
	return nil
}

func (g *stripeGateway) CreateBalanceIntent(ctx context.Context, input CreateBalanceIntentInput) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(input.AmountCents),
		Currency:           stripe.String(g.currency),
		Customer:           stripe.String(input.CustomerID),
		Description:        stripe.String(input.Description),
		Confirm:            stripe.Bool(true),
		PaymentMethodTypes: stripe.StringSlice([]string{paymentMethodCustomerBalance}),
		PaymentMethodData: &stripe.PaymentIntentPaymentMethodDataParams{
			Type: stripe.String(paymentMethodCustomerBalance),
		},
		PaymentMethodOptions: &stripe.PaymentIntentPaymentMethodOptionsParams{
			CustomerBalance: &stripe.PaymentIntentPaymentMethodOptionsCustomerBalanceParams{
				FundingType: stripe.String("bank_transfer"),
				BankTransfer: &stripe.PaymentIntentPaymentMethodOptionsCustomerBalanceBankTransferParams{
					Type: stripe.String(g.bankTransferType),
				},
			},
		},
	}
	if input.ApplicationFeeCents > 0 {
		params.ApplicationFeeAmount = stripe.Int64(input.ApplicationFeeCents)
	}
	params.Context = ctx
	params.SetStripeAccount(input.AccountID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, gatewayError("confirming balance payment intent", err)
	}
	return toPaymentIntent(pi), nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	out := &PaymentIntent{
		ID:              pi.ID,
		Status:          string(pi.Status),
		AmountRequested: pi.Amount,
		AmountReceived:  pi.AmountReceived,
	}
	if pi.LatestCharge != nil {
		out.LatestChargeID = pi.LatestCharge.ID
	}
	return out
}

func gatewayError(action string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, action+" failed")
}
