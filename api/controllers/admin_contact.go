package controllers

import (
	"net/http"
	"strings"

	"github.com/tecbunny/tecbunny-backend/api/responses"
	"github.com/tecbunny/tecbunny-backend/api/validators"
	"github.com/tecbunny/tecbunny-backend/internal/contact"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

// AdminContactList is the back-office contact queue.
func AdminContactList(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := contact.AdminListInput{Pagination: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseContactStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		list, err := svc.AdminList(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type contactStatusBody struct {
	Status string `json:"status" validate:"required,oneof=responded closed"`
}

// AdminContactStatus marks a message responded or closed.
func AdminContactStatus(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID, err := pathUUID(r, "messageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body contactStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.UpdateStatus(r.Context(), contact.StatusInput{
			MessageID: messageID,
			Status:    enums.ContactStatus(body.Status),
			AdminID:   adminID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, message)
	}
}
