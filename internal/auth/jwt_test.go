package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"poRequestTracker/internal/testutil"
)

const testSecret = "test-secret"

func TestParseFromMD_ValidBearer(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "alice", "office")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	p, err := ParseFromMD(ctx, testSecret)
	if err != nil {
		t.Fatalf("ParseFromMD: %v", err)
	}
	if p.Name != "alice" || p.Kind != "office" {
		t.Fatalf("principal mismatch: %+v", p)
	}
}

func TestParseFromMD_MissingHeader(t *testing.T) {
	_, err := ParseFromMD(context.Background(), testSecret)
	if err == nil {
		t.Fatalf("expected error for missing metadata")
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "bob", "technician")
	if _, err := parseJWT(tok, "wrong"); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParseJWT_ClaimsValidation(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "", "")
	if _, err := parseJWT(tok, testSecret); err == nil {
		t.Fatalf("expected invalid claims error")
	}
}

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue(testSecret, Principal{Name: "tech1", Kind: "Technician", SessionID: "sid-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p, err := ParseToken(testSecret, tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if p.Name != "tech1" || p.Kind != "technician" || p.SessionID != "sid-1" {
		t.Fatalf("principal mismatch: %+v", p)
	}

	expired, err := Issue(testSecret, Principal{Name: "tech1", Kind: "technician"}, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := ParseToken(testSecret, expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	if _, err := Issue("", Principal{Name: "x", Kind: "y"}, time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestParseFromRequest(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "office1", "office")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	if p, err := ParseFromRequest(r, testSecret); err != nil || p.Name != "office1" {
		t.Fatalf("bearer: %v %+v", err, p)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
	if p, err := ParseFromRequest(r, testSecret); err != nil || p.Kind != "office" {
		t.Fatalf("cookie: %v %+v", err, p)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	if _, err := ParseFromRequest(r, testSecret); err == nil {
		t.Fatalf("expected error for non-bearer scheme")
	}
}
