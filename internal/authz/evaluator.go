package authz

import "context"

// Evaluator answers access questions for a single request snapshot. It is
// built by the guard from the session and the resolved permission set, does no
// I/O, and degrades to deny on any missing state. The zero value denies
// everything.
type Evaluator struct {
	authenticated bool
	role          Role
	set           *PermissionSet
}

// NewEvaluator snapshots the session state for synchronous checks. The
// session, not the evaluator, owns lifecycle; callers construct a fresh
// evaluator per request so revocations take effect on the next request.
func NewEvaluator(authenticated bool, role Role, set *PermissionSet) Evaluator {
	return Evaluator{authenticated: authenticated, role: role, set: set}
}

// IsSuperAdmin reports whether the snapshot belongs to a super admin.
// Without an authenticated session it is false, never an error.
func (e Evaluator) IsSuperAdmin() bool {
	return e.authenticated && e.role == RoleSuperAdmin
}

// HasPermission reports whether the snapshot may perform the named action.
// Super admins bypass the set entirely; the backend never materialises a
// permission set for them.
func (e Evaluator) HasPermission(name PermissionName) bool {
	if e.IsSuperAdmin() {
		return true
	}
	if !e.authenticated || e.role != RoleAdmin {
		return false
	}
	return e.set.Has(name)
}

// HasAnyPermission reports whether at least one of the names is granted.
// An empty list is false for everyone below super admin.
func (e Evaluator) HasAnyPermission(names ...PermissionName) bool {
	if e.IsSuperAdmin() {
		return true
	}
	for _, name := range names {
		if e.HasPermission(name) {
			return true
		}
	}
	return false
}

// Capabilities projects the evaluator onto the gateway's gated scopes so the
// client shell can hide controls without duplicating the rules.
func (e Evaluator) Capabilities() map[PermissionName]bool {
	caps := make(map[PermissionName]bool, len(GatedScopes()))
	for _, scope := range GatedScopes() {
		caps[scope] = e.HasPermission(scope)
	}
	return caps
}

type evaluatorContextKey struct{}

// ContextWithEvaluator stores the request's evaluator in context. Only the
// guard writes it, after permissions are resolved.
func ContextWithEvaluator(ctx context.Context, e Evaluator) context.Context {
	return context.WithValue(ctx, evaluatorContextKey{}, e)
}

// EvaluatorFromContext extracts the evaluator. Absent means not gated yet and
// yields the zero (deny-all) evaluator.
func EvaluatorFromContext(ctx context.Context) Evaluator {
	e, _ := ctx.Value(evaluatorContextKey{}).(Evaluator)
	return e
}
