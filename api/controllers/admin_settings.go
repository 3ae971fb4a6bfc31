package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tecbunny/tecbunny-backend/api/middleware"
	"github.com/tecbunny/tecbunny-backend/api/responses"
	"github.com/tecbunny/tecbunny-backend/api/validators"
	"github.com/tecbunny/tecbunny-backend/internal/settings"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"

	"github.com/google/uuid"
)

// AdminSettingGet reads one runtime setting by key.
func AdminSettingGet(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(chi.URLParam(r, "key"))
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "setting key is required"))
			return
		}

		setting, err := svc.Get(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, setting)
	}
}

type settingPutBody struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

// AdminSettingPut writes one runtime setting.
func AdminSettingPut(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(chi.URLParam(r, "key"))
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "setting key is required"))
			return
		}

		var body settingPutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := settings.PutInput{Key: key, Value: body.Value}
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			if adminID, err := uuid.Parse(raw); err == nil {
				input.UpdatedBy = &adminID
			}
		}

		setting, err := svc.Put(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, setting)
	}
}
