package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poRequestTracker/models"
)

func TestSessions_IdleExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessions(time.Hour)
	s.now = func() time.Time { return now }

	a := s.Create(&models.User{Username: "tech1", Role: models.RoleTechnician})
	b := s.Create(&models.User{Username: "office1", Role: models.RoleOffice})
	require.NotEqual(t, a.ID, b.ID)

	now = now.Add(45 * time.Minute)
	s.Touch(a.ID)
	now = now.Add(30 * time.Minute)

	_, ok := s.Get(a.ID)
	assert.True(t, ok, "touched session is still fresh")
	assert.Equal(t, 1, s.Cleanup(), "b idled out")
	_, ok = s.Get(b.ID)
	assert.False(t, ok)

	s.Delete(a.ID)
	assert.Zero(t, s.Len())
}

func TestSessions_DefaultTTL(t *testing.T) {
	assert.Equal(t, 24*time.Hour, NewSessions(0).TTL())
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("tech123")
	require.NoError(t, err)
	assert.NotEqual(t, "tech123", h)
	assert.True(t, CheckPassword(h, "tech123"))
	assert.False(t, CheckPassword(h, "tech124"))

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestNewResetToken(t *testing.T) {
	a, err := NewResetToken()
	require.NoError(t, err)
	b, err := NewResetToken()
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestMiddlewareAndRequireRole(t *testing.T) {
	sessions := NewSessions(time.Hour)
	sess := sessions.Create(&models.User{Username: "office1", Role: models.RoleOffice})
	tok, err := Issue(testSecret, Principal{Name: "office1", Kind: models.RoleOffice, SessionID: sess.ID}, time.Hour)
	require.NoError(t, err)

	h := Middleware(testSecret, sessions)(RequireRole(models.RoleOffice)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "office1", p.Name)
		w.WriteHeader(http.StatusNoContent)
	})))

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/office_dashboard", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do(tok))
	assert.Equal(t, http.StatusUnauthorized, do(""))

	techTok, err := Issue(testSecret, Principal{Name: "tech1", Kind: models.RoleTechnician, SessionID: sessions.Create(&models.User{Username: "tech1", Role: models.RoleTechnician}).ID}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(techTok))

	sessions.Delete(sess.ID)
	assert.Equal(t, http.StatusUnauthorized, do(tok), "logged-out session is rejected")
}
