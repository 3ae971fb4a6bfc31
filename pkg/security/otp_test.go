package security_test

import (
	"testing"

	"github.com/tecbunny/tecbunny-backend/pkg/security"
)

func TestGenerateOTP(t *testing.T) {
	code, err := security.GenerateOTP(6)
	if err != nil {
		t.Fatalf("GenerateOTP returned error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", code)
		}
	}

	if _, err := security.GenerateOTP(2); err == nil {
		t.Fatal("expected out-of-range length to be rejected")
	}
}
