package auth

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Resource names an API surface guarded by the policy table.
type Resource string

const (
	ResourceUserTicket    Resource = "ticket.user"
	ResourceSupportTicket Resource = "ticket.support"
	ResourceAdminTicket   Resource = "ticket.admin"
	ResourceMark          Resource = "mark"
	ResourceAdminMark     Resource = "mark.admin"
	ResourceComment       Resource = "comment"
	ResourceAdminComment  Resource = "comment.admin"
	ResourceProfile       Resource = "user"
	ResourceAdminUser     Resource = "user.admin"
)

// Action names an operation on a resource.
type Action string

const (
	ActionList     Action = "list"
	ActionCreate   Action = "create"
	ActionRetrieve Action = "retrieve"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionTake     Action = "take"
	ActionRelease  Action = "release"
	ActionStats    Action = "stats"
)

// Gate is the object-level predicate attached to a policy row.
type Gate string

const (
	GateAny         Gate = "any"
	GateOwner       Gate = "owner"
	GateAssignee    Gate = "assignee"
	GateAuthor      Gate = "author"
	GateSelf        Gate = "self"
	GateParticipant Gate = "participant"
)

const denyMessage = "you do not have permission to perform this action"

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act, gate

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// policyTable is the single source of truth for who may do what:
// role, resource, action, object gate.
const policyTable = `
USER, ticket.user, list, any
USER, ticket.user, create, any
USER, ticket.user, retrieve, owner
USER, ticket.user, update, owner
USER, ticket.user, delete, owner

SUPPORT, ticket.support, list, any
SUPPORT, ticket.support, retrieve, assignee
SUPPORT, ticket.support, update, assignee
SUPPORT, ticket.support, delete, assignee
SUPPORT, ticket.support, take, any
SUPPORT, ticket.support, release, any

ADMIN, ticket.admin, list, any
ADMIN, ticket.admin, create, any
ADMIN, ticket.admin, retrieve, any
ADMIN, ticket.admin, update, any
ADMIN, ticket.admin, delete, any
ADMIN, ticket.admin, stats, any

SUPPORT, mark, list, any
SUPPORT, mark, retrieve, any
SUPPORT, mark, create, assignee
SUPPORT, mark, update, author
SUPPORT, mark, delete, author

ADMIN, mark.admin, list, any
ADMIN, mark.admin, create, any
ADMIN, mark.admin, retrieve, any
ADMIN, mark.admin, update, any
ADMIN, mark.admin, delete, any

USER, comment, list, participant
USER, comment, retrieve, participant
USER, comment, create, participant
USER, comment, update, author
USER, comment, delete, author
SUPPORT, comment, list, participant
SUPPORT, comment, retrieve, participant
SUPPORT, comment, create, participant
SUPPORT, comment, update, author
SUPPORT, comment, delete, author
ADMIN, comment, list, any
ADMIN, comment, retrieve, any
ADMIN, comment, create, any
ADMIN, comment, update, author
ADMIN, comment, delete, author

ADMIN, comment.admin, list, any
ADMIN, comment.admin, create, any
ADMIN, comment.admin, retrieve, any
ADMIN, comment.admin, update, any
ADMIN, comment.admin, delete, any

USER, user, retrieve, self
USER, user, update, self
USER, user, delete, self
SUPPORT, user, retrieve, self
SUPPORT, user, update, self
SUPPORT, user, delete, self
ADMIN, user, retrieve, any
ADMIN, user, update, any
ADMIN, user, delete, any

ADMIN, user.admin, list, any
ADMIN, user.admin, create, any
ADMIN, user.admin, retrieve, any
ADMIN, user.admin, update, any
ADMIN, user.admin, delete, any
ADMIN, user.admin, stats, any
`

// Target carries the ownership facts of the addressed entity.
type Target struct {
	OwnerID     string
	AssigneeIDs []string
}

// TicketTarget describes a ticket: its creator and assigned support users.
func TicketTarget(t *domain.Ticket) *Target {
	return &Target{OwnerID: t.CreatedBy, AssigneeIDs: t.AssignedTo}
}

// MarkTarget describes a mark by its author.
func MarkTarget(m *domain.SupportTicketMark) *Target {
	return &Target{OwnerID: m.SupportUserID}
}

// CommentTarget describes a comment by its author.
func CommentTarget(c *domain.Comment) *Target {
	return &Target{OwnerID: c.CreatedBy}
}

// UserTarget describes a profile.
func UserTarget(userID string) *Target {
	return &Target{OwnerID: userID}
}

// Authorizer evaluates the policy table. Checks run in order: authentication, role,
// object gate; the first failure wins.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

// NewAuthorizer loads the policy table into a casbin enforcer.
func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("parse policy model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	rules, err := parsePolicyTable(policyTable)
	if err != nil {
		return nil, err
	}
	if _, err := enforcer.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("load policy table: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// MustNewAuthorizer panics when the built-in table cannot be loaded.
func MustNewAuthorizer() *Authorizer {
	a, err := NewAuthorizer()
	if err != nil {
		panic(err)
	}
	return a
}

func parsePolicyTable(table string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(table))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 4
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse policy table: %w", err)
	}
	return records, nil
}

// Authorize decides whether user may perform act on res. A nil target skips the
// object gate, which is how route guards pre-check before the entity is loaded.
func (a *Authorizer) Authorize(user *domain.User, res Resource, act Action, target *Target) error {
	if user == nil {
		return apperrors.NewUnauthorized("authentication credentials were not provided")
	}
	gate, err := a.gateFor(user.Role, res, act)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if !gateAllows(gate, user.ID, target) {
		return apperrors.NewForbidden(denyMessage)
	}
	return nil
}

// Allowed is the boolean form of Authorize.
func (a *Authorizer) Allowed(user *domain.User, res Resource, act Action, target *Target) bool {
	return a.Authorize(user, res, act, target) == nil
}

func (a *Authorizer) gateFor(role domain.Role, res Resource, act Action) (Gate, error) {
	ok, explain, err := a.enforcer.EnforceEx(string(role), string(res), string(act))
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	if !ok {
		return "", apperrors.NewForbidden(denyMessage)
	}
	if len(explain) < 4 {
		return GateAny, nil
	}
	return Gate(explain[3]), nil
}

func gateAllows(gate Gate, userID string, target *Target) bool {
	switch gate {
	case GateAny:
		return true
	case GateOwner, GateAuthor, GateSelf:
		return target.OwnerID == userID
	case GateAssignee:
		return contains(target.AssigneeIDs, userID)
	case GateParticipant:
		return target.OwnerID == userID || contains(target.AssigneeIDs, userID)
	default:
		return false
	}
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
