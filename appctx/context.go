// Package appctx owns the request-scoped values shared by config and utils.
package appctx

import "context"

type key int

const (
	keyToken key = iota
	keyBusinessId
	keyUserId
	keyUserName
	keyRole
	keyCorrelationId
	keySkipTenantScope
)

func lookup[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

func Token(ctx context.Context) (string, bool)         { return lookup[string](ctx, keyToken) }
func BusinessId(ctx context.Context) (string, bool)    { return lookup[string](ctx, keyBusinessId) }
func UserId(ctx context.Context) (int, bool)           { return lookup[int](ctx, keyUserId) }
func UserName(ctx context.Context) (string, bool)      { return lookup[string](ctx, keyUserName) }
func Role(ctx context.Context) (string, bool)          { return lookup[string](ctx, keyRole) }
func CorrelationId(ctx context.Context) (string, bool) { return lookup[string](ctx, keyCorrelationId) }

// SkipsTenantScope reports whether queries on ctx may cross businesses.
func SkipsTenantScope(ctx context.Context) bool {
	v, _ := lookup[bool](ctx, keySkipTenantScope)
	return v
}

func WithToken(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyToken, v)
}

func WithBusinessId(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyBusinessId, v)
}

func WithUserId(ctx context.Context, v int) context.Context {
	return context.WithValue(ctx, keyUserId, v)
}

func WithUserName(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyUserName, v)
}

func WithRole(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyRole, v)
}

func WithCorrelationId(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyCorrelationId, v)
}

// WithoutTenantScope is for cmd tools and the outbox dispatcher, which walk every business.
func WithoutTenantScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, keySkipTenantScope, true)
}
