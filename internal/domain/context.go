package domain

import (
	"context"
	"slices"
)

type callerKey struct{}

// Caller is the identity an operation is performed for.
type Caller struct {
	Name  string
	Roles []string
}

// HasRole reports whether the caller carries role.
func (c Caller) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// WithCaller stores a Caller in the context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext extracts the Caller from the context.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
