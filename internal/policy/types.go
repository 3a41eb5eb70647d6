package policy

import (
	"sort"
	"strings"
)

// Role is a named role carried by a principal.
type Role string

const (
	// RoleAdministrator may perform every operation.
	RoleAdministrator Role = "Administrators"

	// RoleManager may approve or reject contracts.
	RoleManager Role = "Managers"
)

// Principal is the acting identity of an authorization check.
// A nil *Principal is an anonymous caller.
type Principal struct {
	ID    string
	roles map[Role]struct{}
}

// NewPrincipal creates a principal with the given roles. Empty roles are ignored.
func NewPrincipal(id string, roles ...Role) *Principal {
	p := &Principal{
		ID:    id,
		roles: make(map[Role]struct{}, len(roles)),
	}
	for _, r := range roles {
		if r == "" {
			continue
		}
		p.roles[r] = struct{}{}
	}
	return p
}

// HasRole reports whether the principal carries the role. Safe on nil.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	_, ok := p.roles[role]
	return ok
}

// Roles returns the principal's roles in sorted order.
func (p *Principal) Roles() []Role {
	if p == nil {
		return nil
	}
	roles := make([]Role, 0, len(p.roles))
	for r := range p.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Status is the lifecycle state of a contract.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Resource holds the attributes of a contract that matter for authorization.
// A nil *Resource means no record is available.
type Resource struct {
	OwnerID string
	Status  Status
}

// Operation is a named action attempted on a resource.
// The zero value is not a recognized operation.
type Operation struct {
	name string
}

var (
	OpCreate  = Operation{name: "Create"}
	OpRead    = Operation{name: "Read"}
	OpUpdate  = Operation{name: "Update"}
	OpDelete  = Operation{name: "Delete"}
	OpApprove = Operation{name: "Approve"}
	OpReject  = Operation{name: "Reject"}
)

var operations = []Operation{OpCreate, OpRead, OpUpdate, OpDelete, OpApprove, OpReject}

// Operations returns the recognized operations.
func Operations() []Operation {
	out := make([]Operation, len(operations))
	copy(out, operations)
	return out
}

// ParseOperation maps a name (case-insensitive) to an operation. Unknown
// names yield an operation that is not Valid and is never authorized.
func ParseOperation(name string) Operation {
	trimmed := strings.TrimSpace(name)
	for _, op := range operations {
		if strings.EqualFold(op.name, trimmed) {
			return op
		}
	}
	return Operation{name: trimmed}
}

// Valid reports whether op is one of the recognized operations.
func (op Operation) Valid() bool {
	for _, known := range operations {
		if op == known {
			return true
		}
	}
	return false
}

// String returns the operation name.
func (op Operation) String() string {
	return op.name
}

// Verdict is the outcome of a single rule.
type Verdict int

const (
	NotDetermined Verdict = iota
	Granted
)

func (v Verdict) String() string {
	if v == Granted {
		return "granted"
	}
	return "not_determined"
}

// Decision is the aggregate outcome of an evaluation.
// The zero value is Forbidden.
type Decision int

const (
	Forbidden Decision = iota
	Authorized
)

// Allowed reports whether the decision authorizes the operation.
func (d Decision) Allowed() bool {
	return d == Authorized
}

func (d Decision) String() string {
	if d == Authorized {
		return "authorized"
	}
	return "forbidden"
}
