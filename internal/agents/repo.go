package agents

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an agents repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAgent(ctx context.Context, agent *models.SalesAgent) (*models.SalesAgent, error) {
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		return nil, err
	}
	return agent, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SalesAgent, error) {
	var agent models.SalesAgent
	if err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.SalesAgent, error) {
	var agent models.SalesAgent
	if err := r.db.WithContext(ctx).First(&agent, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateAgent applies the given column updates to one agent row.
func (r *repository) UpdateAgent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.SalesAgent{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAdmin returns the back-office agent listing joined with user
// identity, newest applications first.
func (r *repository) ListAdmin(ctx context.Context, input AdminListInput) (*AgentList, error) {
	pageSize, buffered, cursor, err := pageParams(input.Pagination)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("sales_agents a").
		Joins("JOIN users u ON u.id = a.user_id").
		Select(strings.Join([]string{
			"a.id",
			"a.user_id",
			"u.name",
			"u.email",
			"a.referral_code",
			"a.status",
			"a.points_balance",
			"a.total_earned",
			"a.created_at",
		}, ", "))

	if input.Status != nil {
		qb = qb.Where("a.status = ?", *input.Status)
	}
	if search := strings.TrimSpace(input.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"(LOWER(u.name) LIKE ? OR LOWER(u.email) LIKE ? OR LOWER(a.referral_code) LIKE ?)",
			pattern, pattern, pattern,
		)
	}
	if cursor != nil {
		qb = qb.Where("(a.created_at < ?) OR (a.created_at = ? AND a.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []agentRecord
	if err := qb.Order("a.created_at DESC").Order("a.id DESC").Limit(buffered).Scan(&records).Error; err != nil {
		return nil, err
	}

	rows := records
	nextCursor := ""
	if len(records) > pageSize {
		rows = records[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	agents := make([]AgentSummary, 0, len(rows))
	for _, record := range rows {
		agents = append(agents, record.toSummary())
	}
	return &AgentList{Agents: agents, NextCursor: nextCursor}, nil
}

// DeductPoints reserves points in one guarded statement so concurrent
// redemptions can never drive the balance negative.
func (r *repository) DeductPoints(ctx context.Context, agentID uuid.UUID, points decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE sales_agents
		SET points_balance = points_balance - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND points_balance >= ?
	`, points, agentID, points)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RestorePoints returns points after a rejected redemption.
func (r *repository) RestorePoints(ctx context.Context, agentID uuid.UUID, points decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE sales_agents
		SET points_balance = points_balance + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, points, agentID).Error
}

// ListCommissions returns the agent's award history newest first.
func (r *repository) ListCommissions(ctx context.Context, agentID uuid.UUID, params pagination.Params) (*CommissionList, error) {
	pageSize, buffered, cursor, err := pageParams(params)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Where("agent_id = ?", agentID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Commission
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(buffered).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &CommissionList{Commissions: rows, NextCursor: nextCursor}, nil
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.Redemption) (*models.Redemption, error) {
	if err := r.db.WithContext(ctx).Create(redemption).Error; err != nil {
		return nil, err
	}
	return redemption, nil
}

func (r *repository) FindRedemption(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	var redemption models.Redemption
	if err := r.db.WithContext(ctx).First(&redemption, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &redemption, nil
}

// UpdateRedemption applies the given column updates to one redemption row.
func (r *repository) UpdateRedemption(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Redemption{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListRedemptions returns the back-office payout queue joined with
// agent identity, newest requests first.
func (r *repository) ListRedemptions(ctx context.Context, input RedemptionListInput) (*RedemptionList, error) {
	pageSize, buffered, cursor, err := pageParams(input.Pagination)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("redemptions rd").
		Joins("JOIN sales_agents a ON a.id = rd.agent_id").
		Joins("JOIN users u ON u.id = a.user_id").
		Select(strings.Join([]string{
			"rd.id",
			"rd.agent_id",
			"a.referral_code",
			"u.name AS agent_name",
			"rd.points",
			"rd.status",
			"rd.upi_handle",
			"rd.created_at",
			"rd.decided_at",
			"rd.paid_at",
		}, ", "))

	if input.Status != nil {
		qb = qb.Where("rd.status = ?", *input.Status)
	}
	if input.AgentID != nil {
		qb = qb.Where("rd.agent_id = ?", *input.AgentID)
	}
	if cursor != nil {
		qb = qb.Where("(rd.created_at < ?) OR (rd.created_at = ? AND rd.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []redemptionRecord
	if err := qb.Order("rd.created_at DESC").Order("rd.id DESC").Limit(buffered).Scan(&records).Error; err != nil {
		return nil, err
	}

	rows := records
	nextCursor := ""
	if len(records) > pageSize {
		rows = records[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	redemptions := make([]RedemptionSummary, 0, len(rows))
	for _, record := range rows {
		redemptions = append(redemptions, record.toSummary())
	}
	return &RedemptionList{Redemptions: redemptions, NextCursor: nextCursor}, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserRole promotes or demotes the linked account.
func (r *repository) UpdateUserRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"role": role})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func pageParams(params pagination.Params) (pageSize, buffered int, cursor *pagination.Cursor, err error) {
	pageSize = pagination.NormalizeLimit(params.Limit)
	buffered = pagination.LimitWithBuffer(params.Limit)
	if buffered <= pageSize {
		buffered = pageSize + 1
	}
	cursor, err = pagination.ParseCursor(params.Cursor)
	if err != nil {
		return 0, 0, nil, err
	}
	return pageSize, buffered, cursor, nil
}

type agentRecord struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	Email         string
	ReferralCode  string
	Status        string
	PointsBalance decimal.Decimal
	TotalEarned   decimal.Decimal
	CreatedAt     time.Time
}

func (r agentRecord) toSummary() AgentSummary {
	return AgentSummary{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		Email:         r.Email,
		ReferralCode:  r.ReferralCode,
		Status:        enums.AgentStatus(r.Status),
		PointsBalance: r.PointsBalance,
		TotalEarned:   r.TotalEarned,
		CreatedAt:     r.CreatedAt,
	}
}

type redemptionRecord struct {
	ID           uuid.UUID
	AgentID      uuid.UUID
	ReferralCode string
	AgentName    string
	Points       decimal.Decimal
	Status       string
	UPIHandle    string `gorm:"column:upi_handle"`
	CreatedAt    time.Time
	DecidedAt    *time.Time
	PaidAt       *time.Time
}

func (r redemptionRecord) toSummary() RedemptionSummary {
	return RedemptionSummary{
		ID:           r.ID,
		AgentID:      r.AgentID,
		ReferralCode: r.ReferralCode,
		AgentName:    r.AgentName,
		Points:       r.Points,
		Status:       enums.RedemptionStatus(r.Status),
		UPIHandle:    r.UPIHandle,
		RequestedAt:  r.CreatedAt,
		DecidedAt:    r.DecidedAt,
		PaidAt:       r.PaidAt,
	}
}
