package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTP produces a zero-padded numeric passcode of the given
// length, suitable for email verification challenges.
func GenerateOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", fmt.Errorf("otp length %d out of range", digits)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
