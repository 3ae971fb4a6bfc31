package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/tecbunny/tecbunny-backend/pkg/db"
	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/money"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
)

const (
	maxOrderItems         = 50
	maxQuantityPerItem    = 20
	orderNumberAttempts   = 3
	orderNumberCodeLength = 8
)

// orderNumberAlphabet omits letters that misread over the phone.
const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order intake and lifecycle operations.
type Service interface {
	Place(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	TrackByNumber(ctx context.Context, number string) (*TrackResult, error)
	AdminList(ctx context.Context, input AdminListInput) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)

	// ApplyStatus performs one lifecycle move inside the caller's
	// transaction. The payment callback flow composes it with the
	// transaction row update so both commit or neither does.
	ApplyStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, target enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
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
	}, nil
}

// Place runs the whole intake in one transaction: price snapshot from
// the catalog, guarded stock decrements, referral attribution, order
// insert and the order_created outbox event.
func (s *service) Place(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if err := validatePlaceInput(&input); err != nil {
		return nil, err
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		products, err := loadProductsForIntake(ctx, repo, input.Items)
		if err != nil {
			return err
		}

		agentID, referral, err := resolveReferral(ctx, repo, input.ReferralCode)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		items := make([]models.OrderItem, 0, len(input.Items))
		subtotal := decimal.Zero
		for _, line := range input.Items {
			product := products[line.ProductID]
			lineTotal := money.LineTotal(product.Price, line.Quantity)
			items = append(items, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				UnitPrice:   product.Price,
				Quantity:    line.Quantity,
				LineTotal:   lineTotal,
			})
			subtotal = subtotal.Add(lineTotal)

			ok, err := repo.DecrementStock(ctx, product.ID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				current, err := repo.FindProductsByIDs(ctx, []uuid.UUID{product.ID})
				available := 0
				if err == nil && len(current) == 1 {
					available = current[0].StockQty
				}
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
					WithDetails(map[string]any{
						"product_id": product.ID,
						"requested":  line.Quantity,
						"available":  available,
					})
			}
		}

		subtotal = money.Round2(subtotal)
		discount := decimal.Zero
		shipping := decimal.Zero
		total := ComputeTotal(subtotal, discount, shipping)

		order := &models.Order{
			UserID:          input.UserID,
			AgentID:         agentID,
			ReferralCode:    referral,
			Status:          enums.OrderStatusPending,
			Subtotal:        subtotal,
			Discount:        discount,
			ShippingFee:     shipping,
			Total:           total,
			CustomerName:    strings.TrimSpace(input.CustomerName),
			CustomerEmail:   strings.ToLower(strings.TrimSpace(input.CustomerEmail)),
			CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
			ShippingAddress: input.ShippingAddress,
			Notes:           input.Notes,
			PlacedAt:        now,
			Items:           items,
		}

		if err := createWithFreshNumber(ctx, repo, order); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.UserID, "customer"),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				AgentID:       order.AgentID,
				ReferralCode:  order.ReferralCode,
				Total:         order.Total,
				ItemCount:     len(order.Items),
				CustomerName:  order.CustomerName,
				CustomerEmail: order.CustomerEmail,
				CustomerPhone: order.CustomerPhone,
				PlacedAt:      order.PlacedAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) TrackByNumber(ctx context.Context, number string) (*TrackResult, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}

	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	return &TrackResult{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Total:       order.Total,
		ItemCount:   len(order.Items),
		PlacedAt:    order.PlacedAt,
		ConfirmedAt: order.ConfirmedAt,
		ShippedAt:   order.ShippedAt,
		DeliveredAt: order.DeliveredAt,
		CancelledAt: order.CancelledAt,
	}, nil
}

func (s *service) AdminList(ctx context.Context, input AdminListInput) (*OrderList, error) {
	if input.Filters.Status != nil && !input.Filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	list, err := s.repo.ListAdmin(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		actor := actorRef(&input.ActorUserID, input.ActorRole)
		order, err := s.ApplyStatus(ctx, tx, input.OrderID, input.Target, actor)
		if err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status == enums.OrderStatusCancelled {
			cancelled = order
			return nil
		}
		if !CanTransition(order.Status, enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order cannot be cancelled while %s", order.Status))
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}

		for _, item := range order.Items {
			if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderCancelledEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CancelledAt:   now,
				Reason:        input.Reason,
				CustomerName:  order.CustomerName,
				CustomerEmail: order.CustomerEmail,
				CustomerPhone: order.CustomerPhone,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue cancel event")
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// ApplyStatus enforces the transition table. A move to the current
// status is an idempotent no-op; everything outside the table is a
// state conflict. Cancellation routes through Cancel so stock comes
// back in the same transaction.
func (s *service) ApplyStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, target enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for status change")
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.Status == target {
		return order, nil
	}
	if !CanTransition(order.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
	}

	now := time.Now().UTC()
	from := order.Status
	updates := map[string]any{"status": target}
	switch target {
	case enums.OrderStatusPaymentConfirmed:
		updates["confirmed_at"] = now
		order.ConfirmedAt = &now
	case enums.OrderStatusShipped:
		updates["shipped_at"] = now
		order.ShippedAt = &now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
		order.DeliveredAt = &now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
		order.CancelledAt = &now
	}

	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = target

	if target == enums.OrderStatusCancelled {
		for _, item := range order.Items {
			if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
		}
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			From:          from,
			To:            target,
			ChangedAt:     now,
			CustomerName:  order.CustomerName,
			CustomerEmail: order.CustomerEmail,
			CustomerPhone: order.CustomerPhone,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue status event")
	}

	return order, nil
}

// ComputeTotal applies the storefront pricing identity: the grand total
// is the rounded subtotal minus discount plus shipping.
func ComputeTotal(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	return money.Round2(subtotal.Sub(discount).Add(shipping))
}

func validatePlaceInput(input *PlaceOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if len(input.Items) > maxOrderItems {
		return pkgerrors.New(pkgerrors.CodeValidation, "too many order items")
	}
	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required on every item")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if line.Quantity > maxQuantityPerItem {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds per-item limit")
		}
		if seen[line.ProductID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order items")
		}
		seen[line.ProductID] = true
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}
	if strings.TrimSpace(input.CustomerPhone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
	}
	input.ShippingAddress.Normalize()
	if input.ShippingAddress.Line1 == "" || input.ShippingAddress.City == "" ||
		input.ShippingAddress.State == "" || input.ShippingAddress.PostalCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	return nil
}

func loadProductsForIntake(ctx context.Context, repo Repository, items []OrderItemInput) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, line := range items {
		ids = append(ids, line.ProductID)
	}

	rows, err := repo.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	products := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		products[row.ID] = row
	}
	for _, line := range items {
		product, ok := products[line.ProductID]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not available").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
	}
	return products, nil
}

// resolveReferral attributes the order to an approved agent. Unknown or
// unapproved codes are dropped silently so a stale marketing link never
// blocks checkout.
func resolveReferral(ctx context.Context, repo Repository, code *string) (*uuid.UUID, *string, error) {
	if code == nil {
		return nil, nil, nil
	}
	trimmed := strings.ToUpper(strings.TrimSpace(*code))
	if trimmed == "" {
		return nil, nil, nil
	}

	agent, err := repo.FindApprovedAgentByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve referral code")
	}
	return &agent.ID, &trimmed, nil
}

func createWithFreshNumber(ctx context.Context, repo Repository, order *models.Order) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := generateOrderNumber()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.OrderNumber = number

		if _, err := repo.CreateOrder(ctx, order); err != nil {
			if dbpkg.IsUniqueViolation(err, "order_number") && attempt < orderNumberAttempts-1 {
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "could not allocate order number")
}

func generateOrderNumber() (string, error) {
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	var b strings.Builder
	b.WriteString("TB-")
	for i := 0; i < orderNumberCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(orderNumberAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func actorRef(userID *uuid.UUID, role string) *outbox.ActorRef {
	if userID == nil && role == "" {
		return nil
	}
	return &outbox.ActorRef{
		UserID: userID,
		Role:   role,
	}
}
