package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
)

const maxUploadBytes = 10 * 1024 * 1024

// allowedImageMimes are the content types the storefront can render.
var allowedImageMimes = []string{"image/png", "image/jpeg", "image/webp"}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type objectSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	PublicURL(bucket, object string) string
}

// PresignInput models the upload URL request.
type PresignInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	FileName  string    `json:"file_name" validate:"required,max=200"`
	MimeType  string    `json:"mime_type" validate:"required"`
	SizeBytes int64     `json:"size_bytes" validate:"required,gt=0"`
}

// PresignOutput is returned to the admin client. The browser PUTs the
// bytes straight to the bucket and then confirms the attachment.
type PresignOutput struct {
	ObjectKey    string    `json:"object_key"`
	SignedPUTURL string    `json:"signed_put_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AttachInput confirms an uploaded object as product media.
type AttachInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	ObjectKey string    `json:"object_key" validate:"required"`
	Position  *int      `json:"position,omitempty" validate:"omitempty,gte=0"`
}

// Service exposes the product media lifecycle: presign, attach, delete.
type Service interface {
	PresignUpload(ctx context.Context, input PresignInput) (*PresignOutput, error)
	Attach(ctx context.Context, input AttachInput) (*models.ProductMedia, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductMedia, error)
	Delete(ctx context.Context, mediaID uuid.UUID, actorID uuid.UUID) error
}

// ServiceParams collects the media service dependencies.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Signer     objectSigner
	Bucket     string
	UploadTTL  time.Duration
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	signer    objectSigner
	bucket    string
	uploadTTL time.Duration
	now       func() time.Time
}

// NewService builds the media service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Signer == nil {
		return nil, fmt.Errorf("object signer required")
	}
	if params.Bucket == "" {
		return nil, fmt.Errorf("media bucket required")
	}
	if params.UploadTTL <= 0 {
		return nil, fmt.Errorf("upload ttl must be positive")
	}
	return &service{
		repo:      params.Repository,
		tx:        params.Tx,
		outbox:    params.Outbox,
		signer:    params.Signer,
		bucket:    params.Bucket,
		uploadTTL: params.UploadTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// PresignUpload allocates an object key under the product prefix and
// signs a PUT URL for it. Nothing is persisted until Attach confirms
// the upload landed.
func (s *service) PresignUpload(ctx context.Context, input PresignInput) (*PresignOutput, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file exceeds %d byte limit", maxUploadBytes)).
			WithDetails(map[string]any{"size_bytes": input.SizeBytes})
	}
	mimeType := strings.TrimSpace(input.MimeType)
	if !isAllowedMime(mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
			WithDetails(map[string]any{"mime_type": mimeType})
	}

	if _, err := s.repo.FindProduct(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}

	objectKey := buildObjectKey(input.ProductID, fileName)
	signedURL, err := s.signer.SignedURL(s.bucket, objectKey, mimeType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &PresignOutput{
		ObjectKey:    objectKey,
		SignedPUTURL: signedURL,
		ContentType:  mimeType,
		ExpiresAt:    s.now().Add(s.uploadTTL),
	}, nil
}

// Attach records an uploaded object as product media. Position defaults
// to the end of the gallery.
func (s *service) Attach(ctx context.Context, input AttachInput) (*models.ProductMedia, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	objectKey := strings.TrimSpace(input.ObjectKey)
	if objectKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object_key is required")
	}
	if !strings.HasPrefix(objectKey, objectPrefix(input.ProductID)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object_key does not belong to product")
	}
	if input.Position != nil && *input.Position < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "position must not be negative")
	}

	if _, err := s.repo.FindProduct(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}

	position := 0
	if input.Position != nil {
		position = *input.Position
	} else {
		count, err := s.repo.CountForProduct(ctx, input.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count product media")
		}
		position = int(count)
	}

	row := &models.ProductMedia{
		ProductID: input.ProductID,
		ObjectKey: objectKey,
		URL:       s.signer.PublicURL(s.bucket, objectKey),
		Position:  position,
	}
	if _, err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist product media")
	}
	return row, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductMedia, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product media")
	}
	return rows, nil
}

// Delete removes the media row and queues object cleanup for the
// worker. The bucket object survives until the consumer gets the event.
func (s *service) Delete(ctx context.Context, mediaID uuid.UUID, actorID uuid.UUID) error {
	if mediaID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "media id required")
	}

	row, err := s.repo.FindByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup media")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Delete(ctx, row.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete media row")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventMediaDeleted,
			AggregateType: enums.AggregateProductMedia,
			AggregateID:   row.ID,
			Version:       1,
			Data: payloads.MediaDeletedEvent{
				MediaID:   row.ID,
				ProductID: row.ProductID,
				ObjectKey: row.ObjectKey,
			},
		}
		if actorID != uuid.Nil {
			event.Actor = &outbox.ActorRef{
				UserID: &actorID,
				Role:   string(enums.UserRoleAdmin),
			}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue media event")
		}
		return nil
	})
}

func isAllowedMime(mimeType string) bool {
	for _, candidate := range allowedImageMimes {
		if strings.EqualFold(candidate, mimeType) {
			return true
		}
	}
	return false
}

func objectPrefix(productID uuid.UUID) string {
	return fmt.Sprintf("products/%s/", productID)
}

func buildObjectKey(productID uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	suffix := uuid.NewString()[:8]
	if cleanName == "" {
		return objectPrefix(productID) + suffix
	}
	return objectPrefix(productID) + suffix + "-" + cleanName
}

// sanitizeFileName strips path separators and control characters so the
// uploaded name cannot escape the product prefix.
func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
