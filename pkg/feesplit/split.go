package feesplit

import (
	"fmt"

	pkgerrors "github.com/nuptio/nuptio-backend/pkg/errors"
)

const minorUnitsPerMajor = 100

// Split is the money breakdown for one contribution attempt, in minor units.
type Split struct {
	// TotalChargedCents is what the contributor is asked to pay.
	TotalChargedCents int64 `json:"total_charged_cents"`
	// CoupleReceivesCents is what counts toward the registry goal.
	CoupleReceivesCents int64 `json:"couple_receives_cents"`
	CommissionCents     int64 `json:"commission_cents"`
	GuestCoversFee      bool  `json:"guest_covers_fee"`
}

// Compute applies the fee-split rule to a contributor-entered major-unit
// amount. When the guest covers the fee the commission rides on top of the
// gift; otherwise it comes out of what the couple receives.
func Compute(amountMajor int64, commissionCents int64, guestCoversFee bool) Split {
	base := amountMajor * minorUnitsPerMajor
	split := Split{
		CommissionCents: commissionCents,
		GuestCoversFee:  guestCoversFee,
	}
	if guestCoversFee {
		split.TotalChargedCents = base + commissionCents
		split.CoupleReceivesCents = base
		return split
	}
	split.TotalChargedCents = base
	split.CoupleReceivesCents = base - commissionCents
	return split
}

// NetOfCommission is the reconciliation-side variant: given what the gateway
// actually received, it returns what the couple nets, floored at zero. A
// zero result means the commission could not be covered and the row must end
// in a terminal non-paid status instead of holding a negative amount.
func NetOfCommission(receivedCents, commissionCents int64) int64 {
	net := receivedCents - commissionCents
	if net < 0 {
		return 0
	}
	return net
}

// PlatformShare is the application fee taken on a reconciliation charge: the
// commission net of the fixed gateway processing fee, capped at what was
// actually received so the fee can never exceed the charge.
func PlatformShare(commissionCents, processingFeeCents, receivedCents int64) int64 {
	share := commissionCents - processingFeeCents
	if share < 0 {
		share = 0
	}
	if share > receivedCents {
		share = receivedCents
	}
	return share
}

// ValidateAmount rejects malformed or too-small gift amounts before any
// gateway call. Amounts are whole major units; the floor guarantees the fixed
// gateway processing fee is always covered.
func ValidateAmount(amountMajor int64, minAmountMajor int64) error {
	if amountMajor <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "gift amount must be a positive whole amount")
	}
	if amountMajor < minAmountMajor {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("gift amount must be at least %d", minAmountMajor)).WithDetails(map[string]any{
			"min_amount": minAmountMajor,
		})
	}
	return nil
}
