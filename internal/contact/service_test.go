package contact

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
)

type stubContactRepo struct {
	messages map[uuid.UUID]*models.ContactMessage
	updates  map[uuid.UUID][]map[string]any
}

func newStubContactRepo() *stubContactRepo {
	return &stubContactRepo{
		messages: map[uuid.UUID]*models.ContactMessage{},
		updates:  map[uuid.UUID][]map[string]any{},
	}
}

func (s *stubContactRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubContactRepo) Create(ctx context.Context, message *models.ContactMessage) (*models.ContactMessage, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	s.messages[message.ID] = message
	return message, nil
}

func (s *stubContactRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ContactMessage, error) {
	message, ok := s.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *message
	return &copied, nil
}

func (s *stubContactRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	message, ok := s.messages[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.updates[id] = append(s.updates[id], updates)
	if status, ok := updates["status"].(enums.ContactStatus); ok {
		message.Status = status
	}
	return nil
}

func (s *stubContactRepo) AdminList(ctx context.Context, input AdminListInput) (*MessageList, error) {
	var rows []models.ContactMessage
	for _, message := range s.messages {
		if input.Status != nil && message.Status != *input.Status {
			continue
		}
		rows = append(rows, *message)
	}
	return &MessageList{Messages: rows}, nil
}

type stubContactTx struct{}

func (stubContactTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubContactOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubContactOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type contactFixture struct {
	svc    Service
	repo   *stubContactRepo
	outbox *stubContactOutbox
}

func newContactFixture(t *testing.T) *contactFixture {
	t.Helper()

	repo := newStubContactRepo()
	outboxStub := &stubContactOutbox{}
	svc, err := NewService(repo, stubContactTx{}, outboxStub)
	require.NoError(t, err)
	return &contactFixture{svc: svc, repo: repo, outbox: outboxStub}
}

func validCreateInput() CreateInput {
	phone := " +91 98765 43210 "
	return CreateInput{
		Name:    "  Meera Iyer ",
		Email:   " Meera@Example.IN ",
		Phone:   &phone,
		Subject: " Warranty claim ",
		Message: " The router stopped working after two weeks. ",
	}
}

func TestCreateSanitizesAndEmitsEvent(t *testing.T) {
	f := newContactFixture(t)

	message, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.Equal(t, "Meera Iyer", message.Name)
	require.Equal(t, "meera@example.in", message.Email)
	require.NotNil(t, message.Phone)
	require.Equal(t, "+91 98765 43210", *message.Phone)
	require.Equal(t, enums.ContactStatusOpen, message.Status)

	require.Len(t, f.outbox.events, 1)
	event := f.outbox.events[0]
	require.Equal(t, enums.EventContactReceived, event.EventType)
	require.Equal(t, enums.AggregateContactMessage, event.AggregateType)
	require.Equal(t, message.ID, event.AggregateID)

	payload, ok := event.Data.(payloads.ContactReceivedEvent)
	require.True(t, ok)
	require.Equal(t, message.ID, payload.MessageID)
	require.Equal(t, "meera@example.in", payload.Email)
	require.Equal(t, "Warranty claim", payload.Subject)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newContactFixture(t)

	cases := map[string]func(*CreateInput){
		"blank name":    func(in *CreateInput) { in.Name = "   " },
		"bad email":     func(in *CreateInput) { in.Email = "not-an-email" },
		"blank subject": func(in *CreateInput) { in.Subject = "" },
		"blank message": func(in *CreateInput) { in.Message = "  " },
	}
	for name, mutate := range cases {
		input := validCreateInput()
		mutate(&input)

		_, err := f.svc.Create(context.Background(), input)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, name)
		require.Equal(t, pkgerrors.CodeValidation, typed.Code(), name)
	}
	require.Empty(t, f.outbox.events)
}

func TestUpdateStatusStampsAdmin(t *testing.T) {
	f := newContactFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	adminID := uuid.New()
	updated, err := f.svc.UpdateStatus(context.Background(), StatusInput{
		MessageID: created.ID,
		Status:    enums.ContactStatusResponded,
		AdminID:   adminID,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ContactStatusResponded, updated.Status)
	require.NotNil(t, updated.RespondedBy)
	require.Equal(t, adminID, *updated.RespondedBy)
	require.NotNil(t, updated.RespondedAt)

	recorded := f.repo.updates[created.ID]
	require.Len(t, recorded, 1)
	require.Equal(t, enums.ContactStatusResponded, recorded[0]["status"])
}

func TestUpdateStatusRejectsReopenAndUnknown(t *testing.T) {
	f := newContactFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	adminID := uuid.New()
	_, err = f.svc.UpdateStatus(context.Background(), StatusInput{
		MessageID: created.ID,
		Status:    enums.ContactStatusClosed,
		AdminID:   adminID,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), StatusInput{
		MessageID: created.ID,
		Status:    enums.ContactStatusResponded,
		AdminID:   adminID,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	_, err = f.svc.UpdateStatus(context.Background(), StatusInput{
		MessageID: created.ID,
		Status:    enums.ContactStatusOpen,
		AdminID:   adminID,
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = f.svc.UpdateStatus(context.Background(), StatusInput{
		MessageID: uuid.New(),
		Status:    enums.ContactStatusClosed,
		AdminID:   adminID,
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateStatusIdempotentWhenAlreadyResponded(t *testing.T) {
	f := newContactFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	adminID := uuid.New()
	_, err = f.svc.UpdateStatus(context.Background(), StatusInput{
		MessageID: created.ID,
		Status:    enums.ContactStatusResponded,
		AdminID:   adminID,
	})
	require.NoError(t, err)

	again, err := f.svc.UpdateStatus(context.Background(), StatusInput{
		MessageID: created.ID,
		Status:    enums.ContactStatusResponded,
		AdminID:   adminID,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ContactStatusResponded, again.Status)
	require.Len(t, f.repo.updates[created.ID], 1)
}

func TestAdminListValidatesStatus(t *testing.T) {
	f := newContactFixture(t)

	bogus := enums.ContactStatus("archived")
	_, err := f.svc.AdminList(context.Background(), AdminListInput{Status: &bogus})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
