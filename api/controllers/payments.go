package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/api/responses"
	"github.com/tecbunny/tecbunny-backend/api/validators"
	"github.com/tecbunny/tecbunny-backend/internal/authz"
	"github.com/tecbunny/tecbunny-backend/internal/orders"
	"github.com/tecbunny/tecbunny-backend/internal/payments"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

type paymentInitiateBody struct {
	OrderID  uuid.UUID `json:"order_id" validate:"required"`
	Provider string    `json:"provider" validate:"required"`
}

// PaymentInitiate starts a gateway payment attempt for a pending order.
// Guests initiate with the order id alone, same as placing the order.
func PaymentInitiate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body paymentInitiateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		provider, err := enums.ParsePaymentProvider(body.Provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider"))
			return
		}

		result, err := svc.Initiate(r.Context(), payments.InitiateInput{
			OrderID:  body.OrderID,
			Provider: provider,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentDetail returns one payment transaction. The owner of the
// underlying order (or an admin) may read it.
func PaymentDetail(svc payments.Service, ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := pathUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subject, err := subjectFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.GetTransaction(r.Context(), txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := ordersSvc.Get(r.Context(), txn.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resource := authz.Resource{Type: authz.ResourcePayment, OwnerID: order.UserID}
		if err := authz.Authorize(*subject, authz.ActionRead, resource); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}
