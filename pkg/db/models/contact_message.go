package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// ContactMessage is an inbound support enquiry from the storefront.
type ContactMessage struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string              `gorm:"column:name;not null"`
	Email       string              `gorm:"column:email;not null"`
	Phone       *string             `gorm:"column:phone"`
	Subject     string              `gorm:"column:subject;not null"`
	Message     string              `gorm:"column:message;not null"`
	Status      enums.ContactStatus `gorm:"column:status;type:contact_status;not null;default:'open'"`
	RespondedBy *uuid.UUID          `gorm:"column:responded_by;type:uuid"`
	RespondedAt *time.Time          `gorm:"column:responded_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
