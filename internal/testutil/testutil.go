package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"

	"poRequestTracker/internal/db"
	"poRequestTracker/internal/storage"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The database is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	// Shared cache so every pooled connection sees the same database.
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// PlainHash is a fast stand-in for bcrypt in seeding tests.
func PlainHash(p string) (string, error) { return "plain:" + p, nil }

// NewLayout returns a persistent layout under a fresh temp directory with all
// directories created.
func NewLayout(t *testing.T) storage.Layout {
	t.Helper()
	l := storage.Resolve(filepath.Join(t.TempDir(), "data"), true)
	if err := l.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	return l
}

// GenerateJWTHS256 returns a signed JWT string with the claims used by the app.
func GenerateJWTHS256(t *testing.T, secret, name, kind string) string {
	t.Helper()
	return GenerateSessionJWT(t, secret, name, kind, "")
}

// GenerateSessionJWT is GenerateJWTHS256 with a session id claim and a one hour expiry.
func GenerateSessionJWT(t *testing.T, secret, name, kind, sid string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"name": name,
		"kind": kind,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if sid != "" {
		claims["sid"] = sid
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context containing gRPC metadata Authorization header with the given token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}
