package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

const maxKeyLength = 128

// Service exposes the runtime configuration store plus typed accessors
// for the payloads other services depend on.
type Service interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
	Put(ctx context.Context, input PutInput) (*models.Setting, error)
	GatewayConfig(ctx context.Context, provider enums.PaymentProvider) (*GatewayConfig, error)
	GatewayCredentials(ctx context.Context, provider enums.PaymentProvider) (*GatewayConfig, error)
	CommissionRate(ctx context.Context) (*CommissionRate, error)
	NotificationRecipients(ctx context.Context) (*Recipients, error)
}

type service struct {
	repo Repository
}

// NewService builds the settings service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, key string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings key required")
	}
	row, err := s.repo.FindLatestByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "setting not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load setting")
	}
	return row, nil
}

func (s *service) List(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.repo.ListLatest(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settings")
	}
	return rows, nil
}

// Put rewrites the latest row for the key, inserting one when the key
// has never been written. Historical duplicate rows are left untouched;
// reads already collapse them to the most recent.
func (s *service) Put(ctx context.Context, input PutInput) (*models.Setting, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings key required")
	}
	if len(key) > maxKeyLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings key too long")
	}
	if len(input.Value) == 0 || !json.Valid(input.Value) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings value must be valid JSON")
	}

	existing, err := s.repo.FindLatestByKey(ctx, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load setting")
	}

	if existing == nil {
		row := &models.Setting{
			Key:       key,
			Value:     input.Value,
			UpdatedBy: input.UpdatedBy,
		}
		created, err := s.repo.Create(ctx, row)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert setting")
		}
		return created, nil
	}

	if err := s.repo.UpdateValue(ctx, existing.ID, input.Value, input.UpdatedBy); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update setting")
	}
	existing.Value = input.Value
	existing.UpdatedBy = input.UpdatedBy
	return existing, nil
}

// GatewayConfig loads and validates a provider's credential payload.
// Payment initiation cannot proceed without it, so a missing, malformed,
// or disabled entry surfaces as a dependency failure rather than a 404.
func (s *service) GatewayConfig(ctx context.Context, provider enums.PaymentProvider) (*GatewayConfig, error) {
	cfg, err := s.GatewayCredentials(ctx, provider)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("payment gateway %s is disabled", provider))
	}
	return cfg, nil
}

// GatewayCredentials loads a provider's credentials without the enabled
// check. Callback verification and reconciliation need the salt for
// transactions that were in flight when an admin disabled the gateway.
func (s *service) GatewayCredentials(ctx context.Context, provider enums.PaymentProvider) (*GatewayConfig, error) {
	if !provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	row, err := s.repo.FindLatestByKey(ctx, GatewayKey(provider))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency,
				fmt.Sprintf("payment gateway %s is not configured", provider))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gateway config")
	}

	var cfg GatewayConfig
	if err := json.Unmarshal(row.Value, &cfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("gateway config for %s is malformed", provider))
	}
	return &cfg, nil
}

// CommissionRate loads the rate applied to agent-attributed orders.
func (s *service) CommissionRate(ctx context.Context) (*CommissionRate, error) {
	row, err := s.repo.FindLatestByKey(ctx, KeyCommissionRate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commission rate is not configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission rate")
	}

	var rate CommissionRate
	if err := json.Unmarshal(row.Value, &rate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commission rate is malformed")
	}
	if !rate.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commission rate type is invalid")
	}
	if rate.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commission rate value is negative")
	}
	return &rate, nil
}

// NotificationRecipients loads the admin copy lists. An absent entry is
// normal for fresh installs and yields empty lists, not an error.
func (s *service) NotificationRecipients(ctx context.Context) (*Recipients, error) {
	row, err := s.repo.FindLatestByKey(ctx, KeyNotificationRecipients)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Recipients{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification recipients")
	}

	var recipients Recipients
	if err := json.Unmarshal(row.Value, &recipients); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notification recipients are malformed")
	}
	return &recipients, nil
}
