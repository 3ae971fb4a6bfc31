package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/api/middleware"
	"github.com/tecbunny/tecbunny-backend/api/responses"
	"github.com/tecbunny/tecbunny-backend/api/validators"
	"github.com/tecbunny/tecbunny-backend/internal/authz"
	"github.com/tecbunny/tecbunny-backend/internal/orders"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/types"
)

type orderItemBody struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type orderCreateBody struct {
	CustomerName    string          `json:"customer_name" validate:"required,max=120"`
	CustomerEmail   string          `json:"customer_email" validate:"required,email"`
	CustomerPhone   string          `json:"customer_phone" validate:"required,max=20"`
	ShippingAddress types.Address   `json:"shipping_address" validate:"required"`
	Notes           *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ReferralCode    *string         `json:"referral_code,omitempty" validate:"omitempty,max=20"`
	Items           []orderItemBody `json:"items" validate:"required,min=1,dive"`
}

// OrderCreate places an order. Signed-in customers get the order bound
// to their account; guests check out with contact details alone.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body orderCreateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.PlaceOrderInput{
			CustomerName:    body.CustomerName,
			CustomerEmail:   body.CustomerEmail,
			CustomerPhone:   body.CustomerPhone,
			ShippingAddress: body.ShippingAddress,
			Notes:           body.Notes,
			ReferralCode:    body.ReferralCode,
		}
		for _, item := range body.Items {
			input.Items = append(input.Items, orders.OrderItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			if userID, err := uuid.Parse(raw); err == nil {
				input.UserID = &userID
			}
		}

		order, err := svc.Place(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderList returns the caller's own orders, newest first.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns one order. Customers only see their own; the
// grant table lets admins through on anything.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subject, err := subjectFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resource := authz.Resource{Type: authz.ResourceOrder, OwnerID: order.UserID}
		if err := authz.Authorize(*subject, authz.ActionRead, resource); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderTrack is the public tracking endpoint keyed by order number.
func OrderTrack(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		result, err := svc.TrackByNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func subjectFromRequest(r *http.Request) (*authz.Subject, error) {
	userID, err := actorID(r)
	if err != nil {
		return nil, err
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}
	return &authz.Subject{UserID: userID, Role: role}, nil
}
