package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "session"

// Principal represents the authenticated caller from JWT.
type Principal struct {
	Name      string // username
	Kind      string // "technician" | "office" | "admin"
	SessionID string // empty for service tokens
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

type claims struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a session token for p that expires after ttl.
func Issue(secret string, p Principal, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	c := claims{
		Name: p.Name,
		Kind: p.Kind,
		Sid:  p.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseToken validates tokenStr and returns its principal.
func ParseToken(secret, tokenStr string) (*Principal, error) {
	return parseJWT(tokenStr, secret)
}

// ParseFromMD extracts and validates a Bearer JWT from gRPC metadata and returns a Principal.
func ParseFromMD(ctx context.Context, secret string) (*Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.New("missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return nil, errors.New("missing authorization")
	}
	tokenStr, err := bearer(vals[0])
	if err != nil {
		return nil, err
	}
	return parseJWT(tokenStr, secret)
}

// ParseFromRequest reads the session cookie, falling back to an
// Authorization: Bearer header.
func ParseFromRequest(r *http.Request, secret string) (*Principal, error) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return parseJWT(c.Value, secret)
	}
	h := r.Header.Get("Authorization")
	if h == "" {
		return nil, errors.New("missing authorization")
	}
	tokenStr, err := bearer(h)
	if err != nil {
		return nil, err
	}
	return parseJWT(tokenStr, secret)
}

func bearer(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// parseJWT validates and extracts claims from a JWT token.
func parseJWT(tokenStr string, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Name == "" || c.Kind == "" {
		return nil, errors.New("invalid claims")
	}
	return &Principal{Name: c.Name, Kind: strings.ToLower(c.Kind), SessionID: c.Sid}, nil
}
