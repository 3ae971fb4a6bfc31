package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// Notification is the delivery log for one rendered message on one
// channel. Failures are recorded here instead of bubbling up to the
// flow that triggered them.
type Notification struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    *uuid.UUID                `gorm:"column:user_id;type:uuid;index"`
	OrderID   *uuid.UUID                `gorm:"column:order_id;type:uuid;index"`
	Channel   enums.NotificationChannel `gorm:"column:channel;type:notification_channel;not null"`
	Template  string                    `gorm:"column:template;not null"`
	Recipient string                    `gorm:"column:recipient;not null"`
	Subject   *string                   `gorm:"column:subject"`
	Body      string                    `gorm:"column:body;not null"`
	Status    enums.NotificationStatus  `gorm:"column:status;type:notification_status;not null;default:'pending'"`
	Error     *string                   `gorm:"column:error"`
	SentAt    *time.Time                `gorm:"column:sent_at"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
