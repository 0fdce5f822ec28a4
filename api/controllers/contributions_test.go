package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nuptio/nuptio-backend/internal/contributions"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
	"github.com/nuptio/nuptio-backend/pkg/feesplit"
	"github.com/nuptio/nuptio-backend/pkg/logger"
	"github.com/nuptio/nuptio-backend/pkg/types"
)

type fakeCheckoutService struct {
	gotInput contributions.CheckoutInput
	result   *contributions.CheckoutResult
	err      error
}

func (f *fakeCheckoutService) InitiateCheckout(ctx context.Context, input contributions.CheckoutInput) (*contributions.CheckoutResult, error) {
	f.gotInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestCheckoutContribution(t *testing.T) {
	itemID := uuid.New()
	svc := &fakeCheckoutService{
		result: &contributions.CheckoutResult{
			ContributionID: uuid.New(),
			SessionID:      "cs_test",
			CheckoutURL:    "https://checkout.test/cs_test",
			Split: feesplit.Split{
				TotalChargedCents:   10000,
				CoupleReceivesCents: 8000,
				CommissionCents:     2000,
			},
		},
	}
	handler := CheckoutContribution(svc, testLogger())

	body := `{"registry_item_id":"` + itemID.String() + `","amount":100,"guest_name":"Mariana","guest_email":"mariana@example.test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if svc.gotInput.RegistryItemID != itemID || svc.gotInput.AmountMajor != 100 {
		t.Fatalf("unexpected service input: %+v", svc.gotInput)
	}

	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected envelope data: %+v", envelope.Data)
	}
	if data["checkout_url"] != "https://checkout.test/cs_test" {
		t.Fatalf("unexpected checkout url: %v", data["checkout_url"])
	}
}

func TestCheckoutContributionValidation(t *testing.T) {
	svc := &fakeCheckoutService{}
	handler := CheckoutContribution(svc, testLogger())

	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{"registry_item_id":"` + uuid.NewString() + `","amount":100}`},
		{name: "missing amount", body: `{"registry_item_id":"` + uuid.NewString() + `","guest_name":"Mariana"}`},
		{name: "bad uuid", body: `{"registry_item_id":"not-a-uuid","amount":100,"guest_name":"Mariana"}`},
		{name: "bad email", body: `{"registry_item_id":"` + uuid.NewString() + `","amount":100,"guest_name":"Mariana","guest_email":"nope"}`},
		{name: "unknown field", body: `{"registry_item_id":"` + uuid.NewString() + `","amount":100,"guest_name":"Mariana","extra":true}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions/checkout", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
		})
	}
}

func TestCheckoutContributionErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "merchant not ready",
			err:        pkgerrors.New(pkgerrors.CodeMerchantNotReady, "wedding has no connected payment account"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   string(pkgerrors.CodeMerchantNotReady),
		},
		{
			name:       "charges disabled",
			err:        pkgerrors.New(pkgerrors.CodeChargesDisabled, "connected account cannot accept charges"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   string(pkgerrors.CodeChargesDisabled),
		},
		{
			name:       "gateway failure",
			err:        pkgerrors.New(pkgerrors.CodeGateway, "creating checkout session failed"),
			wantStatus: http.StatusBadGateway,
			wantCode:   string(pkgerrors.CodeGateway),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeCheckoutService{err: tc.err}
			handler := CheckoutContribution(svc, testLogger())

			body := `{"registry_item_id":"` + uuid.NewString() + `","amount":100,"guest_name":"Mariana"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/contributions/checkout", strings.NewReader(body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}

			var envelope types.ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if envelope.Error.Code != tc.wantCode {
				t.Fatalf("code = %s, want %s", envelope.Error.Code, tc.wantCode)
			}
		})
	}
}
