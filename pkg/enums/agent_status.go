package enums

import "fmt"

// AgentStatus tracks the approval state of a sales agent application.
type AgentStatus string

const (
	AgentStatusPending  AgentStatus = "pending"
	AgentStatusApproved AgentStatus = "approved"
	AgentStatusRejected AgentStatus = "rejected"
)

var validAgentStatuses = []AgentStatus{
	AgentStatusPending,
	AgentStatusApproved,
	AgentStatusRejected,
}

// String implements fmt.Stringer.
func (a AgentStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AgentStatus.
func (a AgentStatus) IsValid() bool {
	for _, candidate := range validAgentStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAgentStatus converts raw input into an AgentStatus.
func ParseAgentStatus(value string) (AgentStatus, error) {
	for _, candidate := range validAgentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent status %q", value)
}
