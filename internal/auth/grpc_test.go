package auth

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"poRequestTracker/internal/testutil"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

func TestRequireKind(t *testing.T) {
	ctx := WithPrincipal(context.Background(), &Principal{Name: "tech1", Kind: "technician"})
	if _, err := RequireKind(ctx, "Technician"); err != nil {
		t.Fatalf("RequireKind technician: %v", err)
	}
	if _, err := RequireKind(ctx, models.RoleOffice, models.RoleAdmin); err == nil {
		t.Fatalf("expected office/admin rejection for technician")
	}
	if _, err := RequireKind(context.Background(), models.RoleOffice); err == nil {
		t.Fatalf("expected rejection without principal")
	}
}

func TestRequireAdmin_WithDBRoleCheck(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "authadmin")
	users := repository.NewUserRepository(d)
	ctx := context.Background()
	if _, err := users.Create(ctx, &models.User{Username: "alice", PasswordHash: "h", Role: models.RoleOffice}); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	// Forged admin claim for an office user.
	pctx := WithPrincipal(context.Background(), &Principal{Name: "alice", Kind: "admin"})
	if _, err := RequireAdmin(pctx, users); err == nil {
		t.Fatalf("expected PermissionDenied for non-admin role")
	}

	if err := users.UpdateRoleByUsername(ctx, "alice", models.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	if _, err := RequireAdmin(pctx, users); err != nil {
		t.Fatalf("RequireAdmin real admin: %v", err)
	}
}

func TestUnaryAuthInterceptor(t *testing.T) {
	secret := "s3cr3t"
	interceptor := NewUnaryAuthInterceptor(secret, nil, "/grpc.health.v1.Health/Check")

	hCalled := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, func(ctx context.Context, req any) (any, error) {
		hCalled = true
		if p, ok := FromContext(ctx); ok && p != nil {
			t.Fatalf("expected no principal on allowlisted path")
		}
		return 123, nil
	})
	if err != nil || !hCalled {
		t.Fatalf("allowlisted handler err=%v called=%v", err, hCalled)
	}

	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/storage.v1.Storage/GetStatus"}, func(ctx context.Context, req any) (any, error) {
		t.Fatalf("handler must not run without a token")
		return nil, nil
	})
	if err == nil {
		t.Fatalf("expected Unauthenticated without token")
	}

	tok := testutil.GenerateJWTHS256(t, secret, "bob", "office")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/storage.v1.Storage/GetStatus"}, func(ctx context.Context, req any) (any, error) {
		p, ok := FromContext(ctx)
		if !ok || p == nil || p.Name != "bob" || p.Kind != "office" {
			t.Fatalf("principal not injected: %+v ok=%v", p, ok)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor auth path: %v", err)
	}
}

func TestUnaryAuthInterceptor_Sessions(t *testing.T) {
	secret := "s3cr3t"
	sessions := NewSessions(time.Hour)
	interceptor := NewUnaryAuthInterceptor(secret, sessions)
	info := &grpc.UnaryServerInfo{FullMethod: "/storage.v1.Storage/GetStatus"}
	ok := func(ctx context.Context, req any) (any, error) { return nil, nil }

	sess := sessions.Create(&models.User{Username: "carol", Role: models.RoleOffice})
	tok, err := Issue(secret, Principal{Name: "carol", Kind: models.RoleOffice, SessionID: sess.ID}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	if _, err := interceptor(ctx, nil, info, ok); err != nil {
		t.Fatalf("live session rejected: %v", err)
	}

	sessions.Delete(sess.ID)
	_, err = interceptor(ctx, nil, info, ok)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code=%v want Unauthenticated after logout", status.Code(err))
	}

	service := testutil.GenerateJWTHS256(t, secret, "ops", models.RoleAdmin)
	if _, err := interceptor(testutil.CtxWithBearer(context.Background(), service), nil, info, ok); err != nil {
		t.Fatalf("service token rejected: %v", err)
	}
}
