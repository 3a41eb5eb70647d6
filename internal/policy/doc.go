// Package policy provides the authorization decision engine for contract records.
//
// The engine answers one question: may a principal perform an operation on a
// contract? It holds an ordered list of independent rules:
//   - Administrator override (any operation for the Administrators role)
//   - Ownership (create/read/update/delete on records the principal owns)
//   - Approval (approve/reject for the Managers role)
//
// Each rule either grants or abstains. The engine authorizes when at least one
// rule grants and forbids otherwise, so an anonymous caller, an unknown
// operation or a missing record always ends in Forbidden.
//
// Loading principals and records happens before evaluation; the engine itself
// performs no I/O and is safe for concurrent use.
package policy
