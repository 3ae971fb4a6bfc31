package enums

import "fmt"

// RedemptionStatus tracks a points redemption request.
type RedemptionStatus string

const (
	RedemptionStatusRequested RedemptionStatus = "requested"
	RedemptionStatusApproved  RedemptionStatus = "approved"
	RedemptionStatusRejected  RedemptionStatus = "rejected"
	RedemptionStatusPaid      RedemptionStatus = "paid"
)

var validRedemptionStatuses = []RedemptionStatus{
	RedemptionStatusRequested,
	RedemptionStatusApproved,
	RedemptionStatusRejected,
	RedemptionStatusPaid,
}

// String implements fmt.Stringer.
func (r RedemptionStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RedemptionStatus.
func (r RedemptionStatus) IsValid() bool {
	for _, candidate := range validRedemptionStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRedemptionStatus converts raw input into a RedemptionStatus.
func ParseRedemptionStatus(value string) (RedemptionStatus, error) {
	for _, candidate := range validRedemptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid redemption status %q", value)
}
