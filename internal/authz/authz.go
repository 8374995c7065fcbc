// Package authz decides whether a principal may perform an action.
//
// A Principal carries a composable RoleSet and, for managers, the set of
// departments they manage. Evaluate turns it into a Capabilities value once
// per request; every service call then asks the capabilities instead of
// inspecting role flags directly.
package authz

import (
	"context"
	"slices"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
)

// Role is a single role flag. The empty RoleSet is a plain employee.
type Role uint8

// Roles.
const (
	RoleManager Role = 1 << iota
	RoleAdmin
	RoleAccounting
)

// RoleSet is a union of roles.
type RoleSet uint8

// Roles builds a RoleSet from individual roles.
func Roles(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= RoleSet(r)
	}
	return s
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	return s&RoleSet(r) != 0
}

// Principal is the authenticated actor of one request.
type Principal struct {
	UserID               int64
	Roles                RoleSet
	ManagedDepartmentIDs []int64
	Active               bool
}

// PrincipalFor builds a principal from a stored user.
func PrincipalFor(u *models.User) *Principal {
	var roles []Role
	if u.IsManager {
		roles = append(roles, RoleManager)
	}
	if u.IsAdmin {
		roles = append(roles, RoleAdmin)
	}
	if u.IsAccounting {
		roles = append(roles, RoleAccounting)
	}
	return &Principal{
		UserID:               u.ID,
		Roles:                Roles(roles...),
		ManagedDepartmentIDs: slices.Clone(u.ManagedDepartmentIDs),
		Active:               u.Active,
	}
}

// Action names an operation subject to the policy.
type Action string

// Actions.
const (
	ActionSubmitExpense  Action = "expense.submit"
	ActionListExpenses   Action = "expense.list"
	ActionViewExpense    Action = "expense.view"
	ActionEditExpense    Action = "expense.edit"
	ActionDeleteExpense  Action = "expense.delete"
	ActionReviewExpense  Action = "expense.review"
	ActionPaymentStatus  Action = "expense.payment"
	ActionExportExpenses Action = "expense.export"
	ActionViewBudget     Action = "budget.view"
	ActionManageBudget   Action = "budget.manage"
	ActionViewSuppliers  Action = "supplier.view"
	ActionManageSupplier Action = "supplier.manage"
	ActionViewCards      Action = "card.view"
	ActionManageCards    Action = "card.manage"
	ActionViewUser       Action = "user.view"
	ActionManageUsers    Action = "user.manage"
)

// Resource describes the record an action targets. Zero fields mean "not applicable".
type Resource struct {
	OwnerID      int64
	DepartmentID int64
}

// Capabilities is the evaluated permission set of a principal.
type Capabilities struct {
	userID     int64
	active     bool
	manager    bool
	admin      bool
	accounting bool
	managed    map[int64]struct{}
}

// Evaluate computes the capabilities of p. A nil principal has none.
func Evaluate(p *Principal) *Capabilities {
	if p == nil {
		return &Capabilities{}
	}
	c := &Capabilities{
		userID:     p.UserID,
		active:     p.Active,
		manager:    p.Roles.Has(RoleManager),
		admin:      p.Roles.Has(RoleAdmin),
		accounting: p.Roles.Has(RoleAccounting),
		managed:    make(map[int64]struct{}, len(p.ManagedDepartmentIDs)),
	}
	for _, id := range p.ManagedDepartmentIDs {
		c.managed[id] = struct{}{}
	}
	return c
}

// UserID returns the principal's user id.
func (c *Capabilities) UserID() int64 {
	return c.userID
}

// IsAdmin reports whether the principal holds the admin role and is active.
func (c *Capabilities) IsAdmin() bool {
	return c.active && c.admin
}

// Manages reports whether the principal may review expenses in the department.
func (c *Capabilities) Manages(departmentID int64) bool {
	if !c.active {
		return false
	}
	if c.admin {
		return true
	}
	if !c.manager {
		return false
	}
	_, ok := c.managed[departmentID]
	return ok
}

// Allow reports whether action on res is permitted.
func (c *Capabilities) Allow(action Action, res Resource) bool {
	if !c.active || c.userID == 0 {
		return false
	}

	own := res.OwnerID != 0 && res.OwnerID == c.userID

	// Edits stay with the submitter, admins included.
	if action == ActionEditExpense {
		return own
	}
	if c.admin {
		return true
	}

	switch action {
	case ActionSubmitExpense, ActionListExpenses:
		return true
	case ActionDeleteExpense:
		return own
	case ActionViewExpense:
		return own || c.accounting || c.Manages(res.DepartmentID)
	case ActionReviewExpense:
		return c.Manages(res.DepartmentID)
	case ActionPaymentStatus, ActionExportExpenses:
		return c.accounting
	case ActionViewBudget, ActionViewSuppliers, ActionViewCards:
		return true
	case ActionManageBudget:
		return c.manager
	case ActionManageCards:
		return c.accounting
	case ActionViewUser:
		return own
	case ActionManageSupplier, ActionManageUsers:
		return false
	}
	return false
}

// Check is Allow returning a Forbidden error on denial.
func (c *Capabilities) Check(action Action, res Resource) error {
	if c.Allow(action, res) {
		return nil
	}
	if !c.active {
		return apperr.Forbidden("principal is inactive")
	}
	return apperr.Forbidden("not permitted to %s", action)
}

// ExpenseScope returns the listing scope for the principal.
func (c *Capabilities) ExpenseScope() models.ExpenseScope {
	if c.active && (c.admin || c.accounting) {
		return models.ExpenseScope{All: true}
	}
	s := models.ExpenseScope{OwnerID: c.userID}
	if c.active && c.manager {
		for id := range c.managed {
			s.DepartmentIDs = append(s.DepartmentIDs, id)
		}
		slices.Sort(s.DepartmentIDs)
	}
	return s
}

type ctxKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}
