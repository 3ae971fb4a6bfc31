package paytm

import (
	"strings"
	"testing"
)

const testMerchantKey = "0123456789abcdef"

func TestSignatureRoundTrip(t *testing.T) {
	body := `{"mid":"TECBUNNY","orderId":"TB-ORD-1","txnAmount":{"value":"499.00","currency":"INR"}}`

	signature, err := GenerateSignatureByString(body, testMerchantKey)
	if err != nil {
		t.Fatalf("generate signature: %v", err)
	}
	if signature == "" {
		t.Fatal("empty signature")
	}

	ok, err := VerifySignatureByString(body, testMerchantKey, signature)
	if err != nil {
		t.Fatalf("verify signature: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestSignatureTamperedBodyFails(t *testing.T) {
	signature, err := GenerateSignatureByString("amount=100", testMerchantKey)
	if err != nil {
		t.Fatalf("generate signature: %v", err)
	}

	ok, err := VerifySignatureByString("amount=999", testMerchantKey, signature)
	if err != nil {
		t.Fatalf("verify signature: %v", err)
	}
	if ok {
		t.Fatal("expected tampered body to fail verification")
	}
}

func TestSignatureWrongKey(t *testing.T) {
	signature, err := GenerateSignatureByString("amount=100", testMerchantKey)
	if err != nil {
		t.Fatalf("generate signature: %v", err)
	}

	// A different key yields garbage on decrypt; either an explicit error
	// or a failed comparison is acceptable, never a pass.
	ok, _ := VerifySignatureByString("amount=100", "fedcba9876543210", signature)
	if ok {
		t.Fatal("expected wrong key to fail verification")
	}
}

func TestParamSignatureIgnoresChecksumField(t *testing.T) {
	params := map[string]string{
		"MID":       "TECBUNNY",
		"ORDERID":   "TB-ORD-7",
		"TXNAMOUNT": "150.00",
		"STATUS":    "TXN_SUCCESS",
	}

	signature, err := GenerateSignature(params, testMerchantKey)
	if err != nil {
		t.Fatalf("generate signature: %v", err)
	}

	// Callbacks carry the hash inside the param set itself.
	withHash := map[string]string{
		"MID":          "TECBUNNY",
		"ORDERID":      "TB-ORD-7",
		"TXNAMOUNT":    "150.00",
		"STATUS":       "TXN_SUCCESS",
		"CHECKSUMHASH": signature,
	}
	ok, err := VerifySignature(withHash, testMerchantKey, signature)
	if err != nil {
		t.Fatalf("verify signature: %v", err)
	}
	if !ok {
		t.Fatal("expected params signature to verify")
	}

	withHash["STATUS"] = "TXN_FAILURE"
	ok, err = VerifySignature(withHash, testMerchantKey, signature)
	if err != nil {
		t.Fatalf("verify signature: %v", err)
	}
	if ok {
		t.Fatal("expected altered params to fail verification")
	}
}

func TestParamsToStringOrdering(t *testing.T) {
	a := paramsToString(map[string]string{"B": "2", "A": "1", "C": "3"})
	b := paramsToString(map[string]string{"C": "3", "A": "1", "B": "2"})
	if a != b {
		t.Fatalf("param string depends on map order: %q vs %q", a, b)
	}
	if a != "1|2|3" {
		t.Fatalf("unexpected param string %q", a)
	}
}

func TestVerifySignatureByStringEdgeCases(t *testing.T) {
	if ok, _ := VerifySignatureByString("body", testMerchantKey, ""); ok {
		t.Fatal("expected empty checksum to fail")
	}
	if _, err := VerifySignatureByString("body", testMerchantKey, "!!not-base64!!"); err == nil {
		t.Fatal("expected error for invalid base64 checksum")
	}
	if _, err := GenerateSignatureByString("body", "short"); err == nil {
		t.Fatal("expected error for invalid key size")
	}
}

func TestRandomSaltAlphabet(t *testing.T) {
	salt, err := randomSalt(saltLength)
	if err != nil {
		t.Fatalf("random salt: %v", err)
	}
	if len(salt) != saltLength {
		t.Fatalf("expected %d chars, got %d", saltLength, len(salt))
	}
	for _, r := range salt {
		if !strings.ContainsRune(string(saltAlphabet), r) {
			t.Fatalf("unexpected salt rune %q", r)
		}
	}
}
