// Package authz is the single place where role grants live. Controllers
// ask it before acting so ownership rules cannot drift between handlers.
package authz

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

// Action is what the subject wants to do with the resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ResourceType names the guarded domain objects.
type ResourceType string

const (
	ResourceOrder        ResourceType = "order"
	ResourcePayment      ResourceType = "payment"
	ResourceAgentProfile ResourceType = "agent_profile"
	ResourceCommission   ResourceType = "commission"
	ResourceRedemption   ResourceType = "redemption"
	ResourceProduct      ResourceType = "product"
	ResourceMedia        ResourceType = "media"
	ResourceSetting      ResourceType = "setting"
	ResourceContact      ResourceType = "contact_message"
	ResourceUser         ResourceType = "user"
)

// Subject is the authenticated caller.
type Subject struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Resource is the object being acted on. OwnerID is the user the object
// belongs to; nil means the object has no owner (e.g. a product).
type Resource struct {
	Type    ResourceType
	OwnerID *uuid.UUID
}

// grant allows a set of actions on a resource type. When ownedOnly is
// set the subject must own the resource.
type grant struct {
	actions   map[Action]struct{}
	ownedOnly bool
}

func allow(ownedOnly bool, actions ...Action) grant {
	set := make(map[Action]struct{}, len(actions))
	for _, action := range actions {
		set[action] = struct{}{}
	}
	return grant{actions: set, ownedOnly: ownedOnly}
}

// customerGrants cover every signed-in shopper. Agents keep these: the
// agent role is additive, not a replacement.
var customerGrants = map[ResourceType]grant{
	ResourceOrder:        allow(true, ActionCreate, ActionRead, ActionUpdate),
	ResourcePayment:      allow(true, ActionCreate, ActionRead),
	ResourceAgentProfile: allow(true, ActionCreate),
}

var agentGrants = map[ResourceType]grant{
	ResourceAgentProfile: allow(true, ActionCreate, ActionRead),
	ResourceCommission:   allow(true, ActionRead),
	ResourceRedemption:   allow(true, ActionCreate, ActionRead),
}

// Authorize reports whether the subject may perform the action on the
// resource. Admins pass unconditionally; everyone else goes through the
// role grant table plus the ownership predicate.
func Authorize(subject Subject, action Action, resource Resource) error {
	if subject.UserID == uuid.Nil || !subject.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if subject.Role == enums.UserRoleAdmin {
		return nil
	}

	if granted(customerGrants, subject, action, resource) {
		return nil
	}
	if subject.Role == enums.UserRoleAgent && granted(agentGrants, subject, action, resource) {
		return nil
	}

	return pkgerrors.New(pkgerrors.CodeForbidden,
		fmt.Sprintf("not allowed to %s %s", action, resource.Type))
}

func granted(grants map[ResourceType]grant, subject Subject, action Action, resource Resource) bool {
	g, ok := grants[resource.Type]
	if !ok {
		return false
	}
	if _, ok := g.actions[action]; !ok {
		return false
	}
	if g.ownedOnly {
		return resource.OwnerID != nil && *resource.OwnerID == subject.UserID
	}
	return true
}

// Owned is a convenience constructor for owner-scoped resources.
func Owned(resourceType ResourceType, ownerID uuid.UUID) Resource {
	return Resource{Type: resourceType, OwnerID: &ownerID}
}
