package utils

import (
	"context"

	"github.com/sitebooks/backoffice/appctx"
)

func GetBusinessIdFromContext(ctx context.Context) (string, bool) {
	return appctx.BusinessId(ctx)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.UserId(ctx)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.UserName(ctx)
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.Role(ctx)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.CorrelationId(ctx)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.WithToken(ctx, token)
}

func SetBusinessIdInContext(ctx context.Context, businessId string) context.Context {
	return appctx.WithBusinessId(ctx, businessId)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.WithUserId(ctx, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.WithUserName(ctx, userName)
}

func SetRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.WithRole(ctx, role)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.WithCorrelationId(ctx, correlationId)
}

// SetSkipTenantScope is for cmd tools that walk every business.
func SetSkipTenantScope(ctx context.Context) context.Context {
	return appctx.WithoutTenantScope(ctx)
}

// GetActorFromContext names who performed an action, for history and confirmedBy.
func GetActorFromContext(ctx context.Context) string {
	if name, ok := GetUserNameFromContext(ctx); ok && name != "" {
		return name
	}
	return "system"
}
