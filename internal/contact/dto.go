package contact

import (
	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
)

// CreateInput is the public contact-desk payload.
type CreateInput struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Subject string  `json:"subject" validate:"required,max=200"`
	Message string  `json:"message" validate:"required,max=5000"`
}

// StatusInput is the admin status change payload.
type StatusInput struct {
	MessageID uuid.UUID
	Status    enums.ContactStatus
	AdminID   uuid.UUID
}

// AdminListInput filters the back-office queue.
type AdminListInput struct {
	Status     *enums.ContactStatus
	Pagination pagination.Params
}

// MessageList is one page of the back-office queue.
type MessageList struct {
	Messages   []models.ContactMessage `json:"messages"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}
