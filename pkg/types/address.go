package types

import (
	"fmt"
	"regexp"
	"strings"
)

var pinCodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// Address is the shipping destination stored on orders as jsonb.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

// Normalize trims whitespace and fills the country default.
func (a *Address) Normalize() {
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "IN"
	}
	if a.Line2 != nil {
		trimmed := strings.TrimSpace(*a.Line2)
		if trimmed == "" {
			a.Line2 = nil
		} else {
			a.Line2 = &trimmed
		}
	}
}

// Validate checks the fields required to ship a parcel. Indian PIN
// codes are six digits and never start with zero.
func (a Address) Validate() error {
	if a.Line1 == "" {
		return fmt.Errorf("address: missing line1")
	}
	if a.City == "" {
		return fmt.Errorf("address: missing city")
	}
	if a.State == "" {
		return fmt.Errorf("address: missing state")
	}
	if a.PostalCode == "" {
		return fmt.Errorf("address: missing postal_code")
	}
	if a.Country == "IN" && !pinCodePattern.MatchString(a.PostalCode) {
		return fmt.Errorf("address: invalid PIN code %q", a.PostalCode)
	}
	return nil
}

// OneLine renders the address for notification templates.
func (a Address) OneLine() string {
	parts := []string{a.Line1}
	if a.Line2 != nil {
		parts = append(parts, *a.Line2)
	}
	parts = append(parts, a.City, a.State+" "+a.PostalCode, a.Country)
	return strings.Join(parts, ", ")
}
