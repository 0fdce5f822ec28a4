package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nuptio/nuptio-backend/pkg/db/models"
	"github.com/nuptio/nuptio-backend/pkg/enums"
)

// Service records gift activity events.
type Service interface {
	RecordEvent(ctx context.Context, input RecordGiftEventInput) (*models.GiftEvent, error)
}

type service struct {
	repo Repository
}

// RecordGiftEventInput captures the immutable data a gift event requires.
type RecordGiftEventInput struct {
	ContributionID uuid.UUID           `json:"contribution_id"`
	WeddingID      uuid.UUID           `json:"wedding_id"`
	RegistryItemID uuid.UUID           `json:"registry_item_id"`
	Type           enums.GiftEventType `json:"type"`
	AmountCents    int64               `json:"amount_cents"`
	Metadata       json.RawMessage     `json:"metadata"`
}

// NewService wires an activity service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, input RecordGiftEventInput) (*models.GiftEvent, error) {
	if input.ContributionID == uuid.Nil {
		return nil, fmt.Errorf("contribution id is required")
	}
	if input.WeddingID == uuid.Nil {
		return nil, fmt.Errorf("wedding id is required")
	}
	if input.RegistryItemID == uuid.Nil {
		return nil, fmt.Errorf("registry item id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid gift event type %q", input.Type)
	}

	event := &models.GiftEvent{
		ContributionID: input.ContributionID,
		WeddingID:      input.WeddingID,
		RegistryItemID: input.RegistryItemID,
		Type:           input.Type,
		AmountCents:    input.AmountCents,
		Metadata:       input.Metadata,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}
