package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tecbunny/tecbunny-backend/api/responses"
	"github.com/tecbunny/tecbunny-backend/internal/payments"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

// Gateway callbacks carry their own authentication: each handler hands
// the raw material to the payment service, which verifies the checksum
// before touching any row.

// PhonePeWebhook handles the server-to-server PhonePe callback.
func PhonePeWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Response string `json:"response"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body"))
			return
		}

		result, err := svc.HandlePhonePeCallback(r.Context(), payments.PhonePeCallbackInput{
			Response: body.Response,
			XVerify:  r.Header.Get("X-VERIFY"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RazorpayWebhook handles the Razorpay event webhook.
func RazorpayWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		result, err := svc.HandleRazorpayWebhook(r.Context(), payments.RazorpayWebhookInput{
			Body:      body,
			Signature: r.Header.Get("X-Razorpay-Signature"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PaytmWebhook handles the form-encoded Paytm callback.
func PaytmWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback form"))
			return
		}

		params := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			params[key] = r.PostForm.Get(key)
		}

		result, err := svc.HandlePaytmCallback(r.Context(), payments.PaytmCallbackInput{Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
