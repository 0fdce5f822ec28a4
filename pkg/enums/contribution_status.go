package enums

import "fmt"

// ContributionStatus tracks the lifecycle of a registry contribution.
type ContributionStatus string

const (
	ContributionStatusPending         ContributionStatus = "pending"
	ContributionStatusProcessing      ContributionStatus = "processing"
	ContributionStatusCompleted       ContributionStatus = "completed"
	ContributionStatusFailed          ContributionStatus = "failed"
	ContributionStatusPartiallyFunded ContributionStatus = "partially_funded"
	ContributionStatusReconciling     ContributionStatus = "reconciling"
	ContributionStatusIncomplete      ContributionStatus = "incomplete"
)

var validContributionStatuses = []ContributionStatus{
	ContributionStatusPending,
	ContributionStatusProcessing,
	ContributionStatusCompleted,
	ContributionStatusFailed,
	ContributionStatusPartiallyFunded,
	ContributionStatusReconciling,
	ContributionStatusIncomplete,
}

// contributionTransitions is the canonical state machine. A bank transfer can
// underfund a pending session, so pending may move to partially_funded; only
// the reconciliation pass moves a row out of partially_funded, and it must
// claim the row (reconciling) first. Completed, failed and incomplete are
// terminal here; refunds live outside this core.
var contributionTransitions = map[ContributionStatus][]ContributionStatus{
	ContributionStatusPending: {
		ContributionStatusProcessing,
		ContributionStatusCompleted,
		ContributionStatusFailed,
		ContributionStatusPartiallyFunded,
		ContributionStatusIncomplete,
	},
	ContributionStatusPartiallyFunded: {
		ContributionStatusReconciling,
	},
	ContributionStatusReconciling: {
		ContributionStatusProcessing,
		ContributionStatusCompleted,
		ContributionStatusIncomplete,
		ContributionStatusPartiallyFunded,
	},
	ContributionStatusProcessing: {
		ContributionStatusCompleted,
		ContributionStatusFailed,
	},
}

// String implements fmt.Stringer.
func (c ContributionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContributionStatus.
func (c ContributionStatus) IsValid() bool {
	for _, candidate := range validContributionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from the status.
func (c ContributionStatus) IsTerminal() bool {
	return len(contributionTransitions[c]) == 0 && c.IsValid()
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (c ContributionStatus) CanTransitionTo(next ContributionStatus) bool {
	for _, candidate := range contributionTransitions[c] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseContributionStatus converts raw input into a ContributionStatus.
func ParseContributionStatus(value string) (ContributionStatus, error) {
	for _, candidate := range validContributionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contribution status %q", value)
}
