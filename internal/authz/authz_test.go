package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

func TestAdminBypassesGrantTable(t *testing.T) {
	admin := Subject{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	require.NoError(t, Authorize(admin, ActionDelete, Resource{Type: ResourceMedia}))
	require.NoError(t, Authorize(admin, ActionUpdate, Resource{Type: ResourceSetting}))
	require.NoError(t, Authorize(admin, ActionRead, Owned(ResourceOrder, uuid.New())))
}

func TestCustomerReadsOwnOrderOnly(t *testing.T) {
	userID := uuid.New()
	customer := Subject{UserID: userID, Role: enums.UserRoleCustomer}

	require.NoError(t, Authorize(customer, ActionRead, Owned(ResourceOrder, userID)))

	err := Authorize(customer, ActionRead, Owned(ResourceOrder, uuid.New()))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCustomerCannotTouchAdminResources(t *testing.T) {
	customer := Subject{UserID: uuid.New(), Role: enums.UserRoleCustomer}

	for _, resource := range []ResourceType{ResourceSetting, ResourceProduct, ResourceMedia, ResourceUser, ResourceContact} {
		err := Authorize(customer, ActionUpdate, Resource{Type: resource})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "resource %s", resource)
		require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
	}
}

func TestAgentKeepsCustomerGrants(t *testing.T) {
	userID := uuid.New()
	agent := Subject{UserID: userID, Role: enums.UserRoleAgent}

	require.NoError(t, Authorize(agent, ActionRead, Owned(ResourceOrder, userID)))
	require.NoError(t, Authorize(agent, ActionRead, Owned(ResourceCommission, userID)))
	require.NoError(t, Authorize(agent, ActionCreate, Owned(ResourceRedemption, userID)))

	err := Authorize(agent, ActionRead, Owned(ResourceCommission, uuid.New()))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCustomerHasNoAgentGrants(t *testing.T) {
	userID := uuid.New()
	customer := Subject{UserID: userID, Role: enums.UserRoleCustomer}

	err := Authorize(customer, ActionRead, Owned(ResourceCommission, userID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestAnonymousSubjectIsRejected(t *testing.T) {
	err := Authorize(Subject{}, ActionRead, Resource{Type: ResourceOrder})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}
