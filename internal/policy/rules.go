package policy

// Rule is a pure predicate over an authorization triple.
// Implementations must not mutate the principal or the resource.
type Rule interface {
	Name() string
	Evaluate(principal *Principal, op Operation, resource *Resource) Verdict
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc struct {
	name string
	fn   func(*Principal, Operation, *Resource) Verdict
}

// NewRule creates a named rule from fn.
func NewRule(name string, fn func(*Principal, Operation, *Resource) Verdict) RuleFunc {
	return RuleFunc{name: name, fn: fn}
}

// Name returns the rule name.
func (r RuleFunc) Name() string {
	return r.name
}

// Evaluate calls the wrapped function. A nil function abstains.
func (r RuleFunc) Evaluate(principal *Principal, op Operation, resource *Resource) Verdict {
	if r.fn == nil {
		return NotDetermined
	}
	return r.fn(principal, op, resource)
}

// AdministratorOverrideRule grants every operation to administrators.
type AdministratorOverrideRule struct{}

func (AdministratorOverrideRule) Name() string { return "administrator_override" }

func (AdministratorOverrideRule) Evaluate(principal *Principal, _ Operation, _ *Resource) Verdict {
	if principal.HasRole(RoleAdministrator) {
		return Granted
	}
	return NotDetermined
}

// OwnershipRule grants CRUD operations on resources owned by the principal.
type OwnershipRule struct{}

func (OwnershipRule) Name() string { return "ownership" }

func (OwnershipRule) Evaluate(principal *Principal, op Operation, resource *Resource) Verdict {
	if principal == nil || resource == nil {
		return NotDetermined
	}
	switch op {
	case OpCreate, OpRead, OpUpdate, OpDelete:
	default:
		return NotDetermined
	}
	// An unowned record never matches, even for a principal with an empty ID.
	if resource.OwnerID == "" || resource.OwnerID != principal.ID {
		return NotDetermined
	}
	return Granted
}

// ApprovalRule lets managers approve or reject any resource.
type ApprovalRule struct{}

func (ApprovalRule) Name() string { return "manager_approval" }

func (ApprovalRule) Evaluate(principal *Principal, op Operation, _ *Resource) Verdict {
	if op != OpApprove && op != OpReject {
		return NotDetermined
	}
	if principal.HasRole(RoleManager) {
		return Granted
	}
	return NotDetermined
}
