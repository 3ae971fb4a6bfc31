package enums

import "fmt"

// CommissionRateType selects how commission points derive from an order total.
type CommissionRateType string

const (
	CommissionRateFixedPerRupee CommissionRateType = "fixed_per_rupee"
	CommissionRatePercentage    CommissionRateType = "percentage"
)

var validCommissionRateTypes = []CommissionRateType{
	CommissionRateFixedPerRupee,
	CommissionRatePercentage,
}

// String implements fmt.Stringer.
func (c CommissionRateType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionRateType.
func (c CommissionRateType) IsValid() bool {
	for _, candidate := range validCommissionRateTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionRateType converts raw input into a CommissionRateType.
func ParseCommissionRateType(value string) (CommissionRateType, error) {
	for _, candidate := range validCommissionRateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission rate type %q", value)
}
