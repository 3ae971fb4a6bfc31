package agents

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
	referralCodeAttempts = 3
	referralCodeLength   = 6
	maxPayoutNoteLength  = 500
)

// referralCodeAlphabet matches the order-number alphabet so codes read
// cleanly over the phone.
const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the sales agent program: applications, admin
// decisions, commission history and point redemptions.
type Service interface {
	Apply(ctx context.Context, userID uuid.UUID, input ApplyInput) (*models.SalesAgent, error)
	ProfileForUser(ctx context.Context, userID uuid.UUID) (*Profile, error)
	CommissionsForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*CommissionList, error)
	RequestRedemption(ctx context.Context, userID uuid.UUID, input RedemptionInput) (*models.Redemption, error)

	AdminList(ctx context.Context, input AdminListInput) (*AgentList, error)
	Decide(ctx context.Context, input DecisionInput) (*models.SalesAgent, error)
	AdminListRedemptions(ctx context.Context, input RedemptionListInput) (*RedemptionList, error)
	DecideRedemption(ctx context.Context, input RedemptionDecisionInput) (*models.Redemption, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the agents service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("agents repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

// Apply opens a pending application for the user and allocates a
// referral code. One application per user.
func (s *service) Apply(ctx context.Context, userID uuid.UUID, input ApplyInput) (*models.SalesAgent, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("agent application already %s", existing.Status)).
			WithDetails(map[string]any{"agent_id": existing.ID, "status": existing.Status})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup application")
	}

	agent := &models.SalesAgent{
		UserID: userID,
		Status: enums.AgentStatusPending,
	}
	if upi := strings.TrimSpace(input.UPIHandle); upi != "" {
		agent.UPIHandle = &upi
	}

	if err := createWithFreshCode(ctx, s.repo, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *service) ProfileForUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	agent, err := s.agentForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		AgentID:       agent.ID,
		ReferralCode:  agent.ReferralCode,
		Status:        agent.Status,
		PointsBalance: agent.PointsBalance,
		TotalEarned:   agent.TotalEarned,
		UPIHandle:     agent.UPIHandle,
		AppliedAt:     agent.CreatedAt,
		DecidedAt:     agent.DecidedAt,
	}, nil
}

func (s *service) CommissionsForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*CommissionList, error) {
	agent, err := s.agentForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListCommissions(ctx, agent.ID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commissions")
	}
	return list, nil
}

// RequestRedemption converts points into a payout request. The balance
// is reserved by a guarded decrement inside the same transaction as the
// redemption row, so concurrent requests cannot overdraw.
func (s *service) RequestRedemption(ctx context.Context, userID uuid.UUID, input RedemptionInput) (*models.Redemption, error) {
	agent, err := s.agentForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if agent.Status != enums.AgentStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("agent is %s, payouts need an approved agent", agent.Status))
	}
	if input.Points.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be greater than zero")
	}
	if !input.Points.Equal(money.Round2(input.Points)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points precision is limited to 2 decimal places")
	}

	upi := strings.TrimSpace(input.UPIHandle)
	if upi == "" && agent.UPIHandle != nil {
		upi = strings.TrimSpace(*agent.UPIHandle)
	}
	if upi == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upi handle required for payout")
	}

	var created *models.Redemption
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.DeductPoints(ctx, agent.ID, input.Points)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve points")
		}
		if !ok {
			fresh, err := repo.FindByID(ctx, agent.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent balance")
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient points balance").
				WithDetails(map[string]any{
					"requested": input.Points,
					"available": fresh.PointsBalance,
				})
		}

		redemption := &models.Redemption{
			AgentID:   agent.ID,
			Points:    input.Points,
			Status:    enums.RedemptionStatusRequested,
			UPIHandle: upi,
		}
		if _, err := repo.CreateRedemption(ctx, redemption); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert redemption")
		}
		created = redemption
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) AdminList(ctx context.Context, input AdminListInput) (*AgentList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown agent status")
	}
	list, err := s.repo.ListAdmin(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agents")
	}
	return list, nil
}

// Decide settles a pending application. Approval activates the
// referral code and promotes the user to the agent role; both commit
// with the agent_decided event in one transaction. Repeating a
// decision is a no-op, reversing one is rejected.
func (s *service) Decide(ctx context.Context, input DecisionInput) (*models.SalesAgent, error) {
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.DecidedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if input.Decision != enums.AgentStatusApproved && input.Decision != enums.AgentStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approved or rejected")
	}

	agent, err := s.repo.FindByID(ctx, input.AgentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent.Status == input.Decision {
		return agent, nil
	}
	if agent.Status != enums.AgentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("application already %s", agent.Status))
	}

	user, err := s.repo.FindUser(ctx, agent.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load applicant")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updates := map[string]any{
			"status":     input.Decision,
			"decided_by": input.DecidedBy,
			"decided_at": now,
		}
		if err := repo.UpdateAgent(ctx, agent.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agent")
		}

		if input.Decision == enums.AgentStatusApproved && user.Role == enums.UserRoleCustomer {
			if err := repo.UpdateUserRole(ctx, agent.UserID, enums.UserRoleAgent); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote user")
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventAgentDecided,
			AggregateType: enums.AggregateSalesAgent,
			AggregateID:   agent.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID: &input.DecidedBy,
				Role:   string(enums.UserRoleAdmin),
			},
			Data: payloads.AgentDecidedEvent{
				AgentID:      agent.ID,
				UserID:       agent.UserID,
				Status:       input.Decision,
				ReferralCode: agent.ReferralCode,
				Name:         user.Name,
				Email:        user.Email,
				DecidedAt:    now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue agent event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	agent.Status = input.Decision
	agent.DecidedBy = &input.DecidedBy
	agent.DecidedAt = &now
	return agent, nil
}

func (s *service) AdminListRedemptions(ctx context.Context, input RedemptionListInput) (*RedemptionList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown redemption status")
	}
	list, err := s.repo.ListRedemptions(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list redemptions")
	}
	return list, nil
}

// DecideRedemption settles a payout request. Rejection returns the
// reserved points in the same transaction.
func (s *service) DecideRedemption(ctx context.Context, input RedemptionDecisionInput) (*models.Redemption, error) {
	if input.RedemptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	if input.DecidedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	switch input.Decision {
	case enums.RedemptionStatusApproved, enums.RedemptionStatusRejected, enums.RedemptionStatusPaid:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approved, rejected or paid")
	}
	note := strings.TrimSpace(input.Note)
	if len(note) > maxPayoutNoteLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout note is too long")
	}

	redemption, err := s.repo.FindRedemption(ctx, input.RedemptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "redemption not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load redemption")
	}
	if redemption.Status == input.Decision {
		return redemption, nil
	}
	if !canRedemptionMove(redemption.Status, input.Decision) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move redemption from %s to %s", redemption.Status, input.Decision))
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updates := map[string]any{"status": input.Decision}
		if note != "" {
			updates["payout_note"] = note
		}
		switch input.Decision {
		case enums.RedemptionStatusApproved, enums.RedemptionStatusRejected:
			updates["decided_by"] = input.DecidedBy
			updates["decided_at"] = now
		case enums.RedemptionStatusPaid:
			updates["paid_at"] = now
		}
		if err := repo.UpdateRedemption(ctx, redemption.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update redemption")
		}

		if input.Decision == enums.RedemptionStatusRejected {
			if err := repo.RestorePoints(ctx, redemption.AgentID, redemption.Points); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore points")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	redemption.Status = input.Decision
	switch input.Decision {
	case enums.RedemptionStatusApproved, enums.RedemptionStatusRejected:
		redemption.DecidedBy = &input.DecidedBy
		redemption.DecidedAt = &now
	case enums.RedemptionStatusPaid:
		redemption.PaidAt = &now
	}
	if note != "" {
		redemption.PayoutNote = &note
	}
	return redemption, nil
}

func (s *service) agentForUser(ctx context.Context, userID uuid.UUID) (*models.SalesAgent, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	agent, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no agent application for user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	return agent, nil
}

var redemptionTransitions = map[enums.RedemptionStatus][]enums.RedemptionStatus{
	enums.RedemptionStatusRequested: {enums.RedemptionStatusApproved, enums.RedemptionStatusRejected},
	enums.RedemptionStatusApproved:  {enums.RedemptionStatusPaid, enums.RedemptionStatusRejected},
}

func canRedemptionMove(from, to enums.RedemptionStatus) bool {
	for _, allowed := range redemptionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func createWithFreshCode(ctx context.Context, repo Repository, agent *models.SalesAgent) error {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := generateReferralCode()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate referral code")
		}
		agent.ReferralCode = code

		if _, err := repo.CreateAgent(ctx, agent); err != nil {
			if dbpkg.IsUniqueViolation(err, "referral_code") && attempt < referralCodeAttempts-1 {
				continue
			}
			if dbpkg.IsUniqueViolation(err, "user_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "agent application already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert agent")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "could not allocate referral code")
}

func generateReferralCode() (string, error) {
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	var b strings.Builder
	b.WriteString("TB-AG-")
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
