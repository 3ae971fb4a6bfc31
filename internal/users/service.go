package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

// Service exposes the back-office user directory.
type Service interface {
	AdminList(ctx context.Context, input AdminListInput) (*UserList, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	SetMFA(ctx context.Context, userID uuid.UUID, enabled bool) (*UserDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds the users service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AdminList(ctx context.Context, input AdminListInput) (*UserList, error) {
	list, err := s.repo.AdminList(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return FromModel(user), nil
}

// SetMFA toggles the email passcode requirement for one account. The
// change applies from the next login; live sessions are untouched.
func (s *service) SetMFA(ctx context.Context, userID uuid.UUID, enabled bool) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := s.repo.UpdateMFAEnabled(ctx, userID, enabled); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update mfa flag")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user")
	}
	return FromModel(user), nil
}
