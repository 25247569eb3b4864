package auth

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

// 定义 context key
type contextKey string

const (
	// ActorIDKey 操作者ID的context key (审计记录的 actor 字段来源)
	ActorIDKey contextKey = "actor_id"
	// ActorRoleKey 操作者角色的context key
	ActorRoleKey contextKey = "actor_role"
)

// Role 操作者角色
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleService Role = "service"
)

// Middleware 从请求头提取操作者身份写入 context。
// 网关完成认证后透传 X-Actor-Id / X-Actor-Role，本服务只做审计归因，不做鉴权。
func Middleware() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if tr, ok := transport.FromServerContext(ctx); ok {
				if actorID := tr.RequestHeader().Get("X-Actor-Id"); actorID != "" {
					ctx = context.WithValue(ctx, ActorIDKey, actorID)
				}
				if role := tr.RequestHeader().Get("X-Actor-Role"); role != "" {
					ctx = context.WithValue(ctx, ActorRoleKey, Role(role))
				}
			}
			return handler(ctx, req)
		}
	}
}

// GetActorFromContext 从context中获取操作者ID
func GetActorFromContext(ctx context.Context) (string, bool) {
	actorID, ok := ctx.Value(ActorIDKey).(string)
	return actorID, ok
}

// GetRoleFromContext 从context中获取操作者角色
func GetRoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(ActorRoleKey).(Role)
	return role, ok
}

// IsAdmin 判断当前操作者是否为管理员
func IsAdmin(ctx context.Context) bool {
	role, ok := GetRoleFromContext(ctx)
	return ok && role == RoleAdmin
}

// RequireAdmin 校验管理员身份 (人工冲正等管理操作使用)
func RequireAdmin(ctx context.Context) error {
	if _, ok := GetActorFromContext(ctx); !ok {
		return errors.Unauthorized("UNAUTHORIZED", "authentication required")
	}
	if !IsAdmin(ctx) {
		return errors.Forbidden("FORBIDDEN", "permission denied: admin role required")
	}
	return nil
}
