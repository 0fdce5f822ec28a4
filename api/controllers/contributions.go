package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nuptio/nuptio-backend/api/responses"
	"github.com/nuptio/nuptio-backend/api/validators"
	"github.com/nuptio/nuptio-backend/internal/contributions"
	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
	"github.com/nuptio/nuptio-backend/pkg/logger"
)

type checkoutRequest struct {
	RegistryItemID string `json:"registry_item_id" validate:"required,uuid"`
	Amount         int64  `json:"amount" validate:"required"`
	GuestCoversFee bool   `json:"guest_covers_fee"`
	GuestName      string `json:"guest_name" validate:"required,min=1,max=120"`
	GuestEmail     string `json:"guest_email" validate:"omitempty,email"`
	Message        string `json:"message" validate:"omitempty,max=500"`
}

// CheckoutContribution opens a gateway checkout session for a registry gift.
func CheckoutContribution(svc contributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := uuid.Parse(req.RegistryItemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "registry_item_id must be a valid uuid"))
			return
		}

		result, err := svc.InitiateCheckout(ctx, contributions.CheckoutInput{
			RegistryItemID: itemID,
			AmountMajor:    req.Amount,
			GuestCoversFee: req.GuestCoversFee,
			GuestName:      req.GuestName,
			GuestEmail:     req.GuestEmail,
			Message:        req.Message,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
