package policy

// Engine evaluates an ordered, fixed list of rules.
type Engine struct {
	rules []Rule
}

// Step records the verdict of one rule in a Trace.
type Step struct {
	Rule    string
	Verdict Verdict
}

// Trace is a full evaluation with every rule's verdict.
type Trace struct {
	Operation Operation
	Decision  Decision
	Steps     []Step
}

// NewEngine creates an engine over rules. The slice is copied; nil entries are dropped.
func NewEngine(rules ...Rule) *Engine {
	kept := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil {
			kept = append(kept, r)
		}
	}
	return &Engine{rules: kept}
}

// DefaultRules returns the standing rule set.
func DefaultRules() []Rule {
	return []Rule{
		AdministratorOverrideRule{},
		OwnershipRule{},
		ApprovalRule{},
	}
}

// NewDefaultEngine creates an engine with DefaultRules.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultRules()...)
}

// Evaluate returns Authorized if any rule grants, Forbidden otherwise.
func (e *Engine) Evaluate(principal *Principal, op Operation, resource *Resource) Decision {
	if e == nil || !op.Valid() {
		return Forbidden
	}
	for _, r := range e.rules {
		if r.Evaluate(principal, op, resource) == Granted {
			return Authorized
		}
	}
	return Forbidden
}

// Explain evaluates every rule without short-circuiting.
func (e *Engine) Explain(principal *Principal, op Operation, resource *Resource) Trace {
	trace := Trace{Operation: op, Decision: Forbidden}
	if e == nil {
		return trace
	}
	trace.Steps = make([]Step, 0, len(e.rules))
	for _, r := range e.rules {
		verdict := NotDetermined
		if op.Valid() {
			verdict = r.Evaluate(principal, op, resource)
		}
		trace.Steps = append(trace.Steps, Step{Rule: r.Name(), Verdict: verdict})
		if verdict == Granted {
			trace.Decision = Authorized
		}
	}
	return trace
}

// Rules returns the rule names in evaluation order.
func (e *Engine) Rules() []string {
	if e == nil {
		return nil
	}
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}
