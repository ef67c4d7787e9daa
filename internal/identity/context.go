package identity

import "context"

type callerContextKey struct{}

// ContextWithCaller stores the resolved caller in context.
func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the resolved caller from context. It
// returns Anonymous when no resolution middleware ran.
func CallerFromContext(ctx context.Context) Caller {
	caller, ok := ctx.Value(callerContextKey{}).(Caller)
	if !ok {
		return Anonymous{}
	}
	return caller
}

// UserFromContext extracts the authenticated user, if any.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := CallerFromContext(ctx).(User)
	return user, ok
}
