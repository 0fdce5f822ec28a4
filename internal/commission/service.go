package commission

import (
	"context"
	"fmt"

	"github.com/nuptio/nuptio-backend/internal/weddings"
	"github.com/google/uuid"
)

// Service resolves the flat commission (minor units) charged on a
// contribution for a given wedding.
//
// The commission is whatever the wedding's plan says at the moment of the
// call: checkout and reconciliation both go through here, so a plan change
// between the original request and a later repair means the repair uses the
// current plan's fee. Freezing the fee at request time would be a call-site
// change, not a change here.
type Service interface {
	CommissionFor(ctx context.Context, weddingID uuid.UUID) (int64, error)
}

type service struct {
	repo        Repository
	weddingRepo weddings.Repository
	fallback    int64
}

// NewService wires a commission service. fallbackCents applies when a wedding
// has no plan and no default plan exists.
func NewService(repo Repository, weddingRepo weddings.Repository, fallbackCents int64) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("billing plan repository required")
	}
	if weddingRepo == nil {
		return nil, fmt.Errorf("wedding repository required")
	}
	return &service{repo: repo, weddingRepo: weddingRepo, fallback: fallbackCents}, nil
}

func (s *service) CommissionFor(ctx context.Context, weddingID uuid.UUID) (int64, error) {
	if weddingID == uuid.Nil {
		return 0, fmt.Errorf("wedding id is required")
	}

	wedding, err := s.weddingRepo.FindByID(ctx, weddingID)
	if err != nil {
		return 0, err
	}

	if wedding.BillingPlanID != nil && *wedding.BillingPlanID != "" {
		plan, err := s.repo.FindPlanByID(ctx, *wedding.BillingPlanID)
		if err != nil {
			return 0, err
		}
		if plan != nil {
			return plan.CommissionCents, nil
		}
	}

	plan, err := s.repo.FindDefaultPlan(ctx)
	if err != nil {
		return 0, err
	}
	if plan != nil {
		return plan.CommissionCents, nil
	}
	return s.fallback, nil
}
