package types

import (
	"strings"
	"testing"
)

func TestAddressNormalizeDefaultsCountry(t *testing.T) {
	line2 := "  "
	addr := Address{
		Line1:      "  14 MG Road ",
		City:       " Bengaluru",
		State:      "Karnataka ",
		PostalCode: " 560001 ",
		Line2:      &line2,
	}
	addr.Normalize()

	if addr.Country != "IN" {
		t.Fatalf("expected country IN, got %q", addr.Country)
	}
	if addr.Line1 != "14 MG Road" {
		t.Fatalf("expected trimmed line1, got %q", addr.Line1)
	}
	if addr.Line2 != nil {
		t.Fatalf("expected blank line2 dropped, got %q", *addr.Line2)
	}
}

func TestAddressValidate(t *testing.T) {
	valid := Address{
		Line1:      "14 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Country:    "IN",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid address, got %v", err)
	}

	badPIN := valid
	badPIN.PostalCode = "056001"
	if err := badPIN.Validate(); err == nil {
		t.Fatal("expected leading-zero PIN to be rejected")
	}

	missing := valid
	missing.City = ""
	if err := missing.Validate(); err == nil {
		t.Fatal("expected missing city to be rejected")
	}
}

func TestAddressOneLine(t *testing.T) {
	flat := "Flat 4B"
	addr := Address{
		Line1:      "14 MG Road",
		Line2:      &flat,
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Country:    "IN",
	}
	line := addr.OneLine()
	if !strings.Contains(line, "Flat 4B") || !strings.Contains(line, "Karnataka 560001") {
		t.Fatalf("unexpected rendering %q", line)
	}
}
