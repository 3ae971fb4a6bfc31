package phonepe

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

// RequestChecksum computes the X-VERIFY header for an outbound API call:
// sha256(base64Payload + path + saltKey) + "###" + saltIndex.
func RequestChecksum(encodedPayload, path, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(encodedPayload + path + saltKey))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

// CallbackChecksum computes the X-VERIFY value PhonePe sends with server
// callbacks: sha256(base64Response + saltKey) + "###" + saltIndex.
func CallbackChecksum(encodedResponse, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(encodedResponse + saltKey))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

// VerifyCallback reports whether the X-VERIFY header matches the callback body.
func VerifyCallback(encodedResponse, xVerify, saltKey, saltIndex string) bool {
	if encodedResponse == "" || xVerify == "" {
		return false
	}
	expected := CallbackChecksum(encodedResponse, saltKey, saltIndex)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(xVerify)) == 1
}

// CallbackPayload is the decoded server-to-server callback body.
type CallbackPayload struct {
	Success bool         `json:"success"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Data    CallbackData `json:"data"`
}

// CallbackData carries the transaction details inside a callback.
type CallbackData struct {
	MerchantID    string `json:"merchantId"`
	MerchantTxnID string `json:"merchantTransactionId"`
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	State         string `json:"state"`
	ResponseCode  string `json:"responseCode"`
}

// DecodeCallback decodes the base64 `response` field of a callback request.
func DecodeCallback(encodedResponse string) (*CallbackPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedResponse)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode callback response")
	}
	var payload CallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unmarshal callback response")
	}
	return &payload, nil
}
