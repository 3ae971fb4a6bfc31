package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
)

const (
	maxNameLength    = 120
	maxPhoneLength   = 20
	maxSubjectLength = 200
	maxMessageLength = 5000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the contact desk: public intake plus the admin queue.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.ContactMessage, error)
	UpdateStatus(ctx context.Context, input StatusInput) (*models.ContactMessage, error)
	AdminList(ctx context.Context, input AdminListInput) (*MessageList, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the contact service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contact repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create stores a storefront enquiry and queues the acknowledgement
// event in the same transaction.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.ContactMessage, error) {
	message, err := sanitize(input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Create(ctx, message)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store contact message")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventContactReceived,
			AggregateType: enums.AggregateContactMessage,
			AggregateID:   created.ID,
			Version:       1,
			Data: payloads.ContactReceivedEvent{
				MessageID: created.ID,
				Name:      created.Name,
				Email:     created.Email,
				Subject:   created.Subject,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue contact event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// UpdateStatus moves an enquiry to responded or closed and stamps the
// acting admin. Reopening is not supported.
func (s *service) UpdateStatus(ctx context.Context, input StatusInput) (*models.ContactMessage, error) {
	if input.MessageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message id required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin identity missing")
	}
	if input.Status != enums.ContactStatusResponded && input.Status != enums.ContactStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cannot set contact status to %q", input.Status))
	}

	message, err := s.repo.FindByID(ctx, input.MessageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact message not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup contact message")
	}
	if message.Status == enums.ContactStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "contact message already closed")
	}
	if message.Status == input.Status {
		return message, nil
	}

	now := s.now()
	updates := map[string]any{
		"status":       input.Status,
		"responded_by": input.AdminID,
		"responded_at": now,
	}
	if err := s.repo.Update(ctx, message.ID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact message not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contact message")
	}

	message.Status = input.Status
	message.RespondedBy = &input.AdminID
	message.RespondedAt = &now
	return message, nil
}

func (s *service) AdminList(ctx context.Context, input AdminListInput) (*MessageList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown contact status")
	}
	list, err := s.repo.AdminList(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contact messages")
	}
	return list, nil
}

func sanitize(input CreateInput) (*models.ContactMessage, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Message)

	switch {
	case name == "" || len(name) > maxNameLength:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case email == "" || !strings.Contains(email, "@"):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	case subject == "" || len(subject) > maxSubjectLength:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	case body == "" || len(body) > maxMessageLength:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	message := &models.ContactMessage{
		Name:    name,
		Email:   email,
		Subject: subject,
		Message: body,
		Status:  enums.ContactStatusOpen,
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if len(phone) > maxPhoneLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number too long")
		}
		if phone != "" {
			message.Phone = &phone
		}
	}
	return message, nil
}
