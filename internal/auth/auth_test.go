package auth

import (
	"context"
	"testing"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

func TestRequireAdmin(t *testing.T) {
	// 无身份
	if err := RequireAdmin(context.Background()); !kerrors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	// 普通服务身份
	ctx := context.WithValue(context.Background(), ActorIDKey, "svc-1")
	ctx = context.WithValue(ctx, ActorRoleKey, RoleService)
	if err := RequireAdmin(ctx); !kerrors.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// 管理员
	ctx = context.WithValue(context.Background(), ActorIDKey, "admin-1")
	ctx = context.WithValue(ctx, ActorRoleKey, RoleAdmin)
	if err := RequireAdmin(ctx); err != nil {
		t.Fatalf("expected admin allowed, got %v", err)
	}
}

func TestGetActorFromContext(t *testing.T) {
	if _, ok := GetActorFromContext(context.Background()); ok {
		t.Fatal("expected no actor in empty context")
	}
	ctx := context.WithValue(context.Background(), ActorIDKey, "u-1")
	actor, ok := GetActorFromContext(ctx)
	if !ok || actor != "u-1" {
		t.Fatalf("expected u-1, got %q ok=%v", actor, ok)
	}
}
