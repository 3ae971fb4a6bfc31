package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/tecbunny/tecbunny-backend/internal/settings"
	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/mailer"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
	"github.com/tecbunny/tecbunny-backend/pkg/whatsapp"
)

const (
	whatsappSendAttempts uint64 = 2
	whatsappRetryBase           = 500 * time.Millisecond
)

type emailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type whatsappSender interface {
	SendTemplate(ctx context.Context, msg whatsapp.TemplateMessage) (string, error)
}

type recipientsSource interface {
	NotificationRecipients(ctx context.Context) (*settings.Recipients, error)
}

// Service fans one domain event out to every channel and recipient.
// Send failures are recorded on the delivery log and never propagated,
// so a flaky SMTP relay cannot hold back the rest of the fan-out.
type Service interface {
	NotifyOrderCreated(ctx context.Context, event payloads.OrderCreatedEvent) error
	NotifyPaymentSucceeded(ctx context.Context, event payloads.PaymentSucceededEvent) error
	NotifyPaymentFailed(ctx context.Context, event payloads.PaymentFailedEvent) error
	NotifyOrderStatusChanged(ctx context.Context, event payloads.OrderStatusChangedEvent) error
}

// ServiceParams groups the fan-out dependencies.
type ServiceParams struct {
	Repository Repository
	Email      emailSender
	WhatsApp   whatsappSender
	Recipients recipientsSource
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	email      emailSender
	whatsapp   whatsappSender
	recipients recipientsSource
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the notification fan-out service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Email == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.WhatsApp == nil {
		return nil, fmt.Errorf("whatsapp sender required")
	}
	if params.Recipients == nil {
		return nil, fmt.Errorf("recipients source required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       params.Repository,
		email:      params.Email,
		whatsapp:   params.WhatsApp,
		recipients: params.Recipients,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// target identifies the customer behind an event for the delivery log.
type target struct {
	orderID *uuid.UUID
	userID  *uuid.UUID
	email   string
	phone   string
}

func (s *service) NotifyOrderCreated(ctx context.Context, event payloads.OrderCreatedEvent) error {
	return s.fanOut(ctx, renderOrderCreated(event), target{
		orderID: &event.OrderID,
		userID:  event.UserID,
		email:   event.CustomerEmail,
		phone:   event.CustomerPhone,
	})
}

func (s *service) NotifyPaymentSucceeded(ctx context.Context, event payloads.PaymentSucceededEvent) error {
	return s.fanOut(ctx, renderPaymentSucceeded(event), target{
		orderID: &event.OrderID,
		email:   event.CustomerEmail,
		phone:   event.CustomerPhone,
	})
}

func (s *service) NotifyPaymentFailed(ctx context.Context, event payloads.PaymentFailedEvent) error {
	return s.fanOut(ctx, renderPaymentFailed(event), target{
		orderID: &event.OrderID,
		email:   event.CustomerEmail,
		phone:   event.CustomerPhone,
	})
}

func (s *service) NotifyOrderStatusChanged(ctx context.Context, event payloads.OrderStatusChangedEvent) error {
	return s.fanOut(ctx, renderOrderStatusChanged(event), target{
		orderID: &event.OrderID,
		email:   event.CustomerEmail,
		phone:   event.CustomerPhone,
	})
}

// fanOut delivers to the customer plus the configured back-office copy
// lists. Only the recipients lookup can fail the call; everything past
// that point is recorded per recipient and swallowed.
func (s *service) fanOut(ctx context.Context, content rendered, customer target) error {
	copyLists, err := s.recipients.NotificationRecipients(ctx)
	if err != nil {
		return err
	}

	for _, address := range dedupe(customer.email, copyLists.Emails) {
		s.sendEmail(ctx, content, customer, address)
	}
	for _, phone := range dedupe(customer.phone, copyLists.WhatsApp) {
		s.sendWhatsApp(ctx, content, customer, phone)
	}
	return nil
}

func (s *service) sendEmail(ctx context.Context, content rendered, customer target, address string) {
	err := s.email.Send(ctx, mailer.Message{
		To:       []string{address},
		Subject:  content.Subject,
		TextBody: content.TextBody,
	})
	s.record(ctx, content, customer, enums.NotificationChannelEmail, address, err)
}

func (s *service) sendWhatsApp(ctx context.Context, content rendered, customer target, phone string) {
	backoff := retry.WithMaxRetries(whatsappSendAttempts, retry.NewExponential(whatsappRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, sendErr := s.whatsapp.SendTemplate(ctx, whatsapp.TemplateMessage{
			To:         phone,
			Template:   content.Template,
			BodyParams: content.WhatsAppParams,
		})
		if sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	s.record(ctx, content, customer, enums.NotificationChannelWhatsApp, phone, err)
}

// record writes the delivery log row for one attempt. A failed insert is
// only logged: losing a log row must not block the remaining deliveries.
func (s *service) record(ctx context.Context, content rendered, customer target, channel enums.NotificationChannel, recipient string, sendErr error) {
	row := &models.Notification{
		UserID:    customer.userID,
		OrderID:   customer.orderID,
		Channel:   channel,
		Template:  content.Template,
		Recipient: recipient,
		Body:      content.TextBody,
		Status:    enums.NotificationStatusSent,
	}
	if channel == enums.NotificationChannelEmail {
		subject := content.Subject
		row.Subject = &subject
	}
	if sendErr != nil {
		row.Status = enums.NotificationStatusFailed
		reason := sendErr.Error()
		row.Error = &reason
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"channel":   channel,
			"recipient": recipient,
			"template":  content.Template,
		}), "notification send failed", sendErr)
	} else {
		sentAt := s.now().UTC()
		row.SentAt = &sentAt
	}

	if err := s.repo.Create(ctx, row); err != nil {
		s.logg.Error(ctx, "failed to record notification", err)
	}
}

func dedupe(primary string, copies []string) []string {
	seen := make(map[string]struct{}, len(copies)+1)
	var out []string
	add := func(value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	add(primary)
	for _, value := range copies {
		add(value)
	}
	return out
}
