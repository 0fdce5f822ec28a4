package enums

import "fmt"

// GiftEventType maps to the gift_event_type_enum enum in Postgres.
type GiftEventType string

const (
	GiftEventTypeReceived  GiftEventType = "gift_received"
	GiftEventTypeRecovered GiftEventType = "gift_recovered"
	GiftEventTypeSwept     GiftEventType = "gift_swept"
)

var validGiftEventTypes = []GiftEventType{
	GiftEventTypeReceived,
	GiftEventTypeRecovered,
	GiftEventTypeSwept,
}

// IsValid reports whether the value matches the canonical gift event enum.
func (t GiftEventType) IsValid() bool {
	for _, candidate := range validGiftEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseGiftEventType converts raw input into GiftEventType.
func ParseGiftEventType(value string) (GiftEventType, error) {
	for _, candidate := range validGiftEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gift event type %q", value)
}
