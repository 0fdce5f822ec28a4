package enums

import "fmt"

// PlanStatus tracks the lifecycle state of a billing plan. Deprecated plans
// stay attached to existing weddings but cannot be selected for new ones;
// hidden plans are invite-only.
type PlanStatus string

const (
	PlanStatusActive     PlanStatus = "active"
	PlanStatusDeprecated PlanStatus = "deprecated"
	PlanStatusHidden     PlanStatus = "hidden"
)

func (p PlanStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanStatus.
func (p PlanStatus) IsValid() bool {
	switch p {
	case PlanStatusActive, PlanStatusDeprecated, PlanStatusHidden:
		return true
	}
	return false
}

// ParsePlanStatus converts raw input into a PlanStatus.
func ParsePlanStatus(value string) (PlanStatus, error) {
	status := PlanStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown plan status %q", value)
	}
	return status, nil
}
