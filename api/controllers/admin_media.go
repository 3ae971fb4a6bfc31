package controllers

import (
	"net/http"

	"github.com/tecbunny/tecbunny-backend/api/responses"
	"github.com/tecbunny/tecbunny-backend/api/validators"
	"github.com/tecbunny/tecbunny-backend/internal/media"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

type mediaPresignBody struct {
	FileName  string `json:"file_name" validate:"required,max=200"`
	MimeType  string `json:"mime_type" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,gt=0"`
}

// AdminMediaPresign issues a signed upload URL scoped to the product.
func AdminMediaPresign(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body mediaPresignBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		output, err := svc.PresignUpload(r.Context(), media.PresignInput{
			ProductID: productID,
			FileName:  body.FileName,
			MimeType:  body.MimeType,
			SizeBytes: body.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, output)
	}
}

type mediaAttachBody struct {
	ObjectKey string `json:"object_key" validate:"required"`
	Position  *int   `json:"position,omitempty" validate:"omitempty,gte=0"`
}

// AdminMediaAttach confirms an uploaded object as product media.
func AdminMediaAttach(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body mediaAttachBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Attach(r.Context(), media.AttachInput{
			ProductID: productID,
			ObjectKey: body.ObjectKey,
			Position:  body.Position,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

// AdminMediaDelete removes a media row; the bucket object is cleaned up
// asynchronously off the emitted event.
func AdminMediaDelete(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID, err := pathUUID(r, "mediaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), mediaID, adminID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
