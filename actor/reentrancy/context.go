// Package reentrancy carries the call-scoped reentrancy id through a
// dispatch. spec.md's Design Notes prefer a statically-checked Context
// parameter over an ambient thread-local for a preemptive, goroutine-based
// runtime; this package implements exactly that: the id rides on the
// standard context.Context passed down from the Runtime's dispatch entry
// point, rather than on a package-level map keyed by goroutine.
package reentrancy

import "context"

type contextKey struct{}

var idKey = contextKey{}

// WithID returns a context carrying reentrancy id id. An empty id is
// equivalent to not carrying one.
func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}

	return context.WithValue(ctx, idKey, id)
}

// IDFromContext returns the reentrancy id carried by ctx, if any. ok is
// false when no call in progress is reentrant.
func IDFromContext(ctx context.Context) (id string, ok bool) {
	v := ctx.Value(idKey)
	if v == nil {
		return "", false
	}

	id, ok = v.(string)

	return id, ok && id != ""
}
