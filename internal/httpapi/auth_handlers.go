package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"poRequestTracker/internal/accounts"
	"poRequestTracker/internal/auth"
)

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func loginBody(res *accounts.LoginResult) object {
	return object{
		"token":     res.Token,
		"session":   res.Session.ID,
		"username":  res.Session.Username,
		"role":      res.Session.Role,
		"full_name": res.Session.FullName,
		"redirect":  res.Home(),
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	res, err := s.Accounts.Login(r.Context(), p.trimmed("username"), p.str("password"))
	if err != nil {
		fail(w, r, err)
		return
	}
	s.setSessionCookie(w, res.Token)
	writeOK(w, http.StatusOK, loginBody(res))
}

// loginWithToken resumes a session by its ID and redirects to the role's dashboard.
func (s *Server) loginWithToken(w http.ResponseWriter, r *http.Request) {
	res, err := s.Accounts.LoginWithSession(chi.URLParam(r, "token"))
	if err != nil {
		fail(w, r, err)
		return
	}
	s.setSessionCookie(w, res.Token)
	http.Redirect(w, r, res.Home(), http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.FromContext(r.Context()); ok && p != nil {
		s.Accounts.Logout(p.SessionID)
	}
	s.clearSessionCookie(w)
	writeOK(w, http.StatusOK, object{"redirect": "/login"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	u, err := s.Accounts.Register(r.Context(), accounts.RegisterInput{
		Username:        p.str("username"),
		Password:        p.str("password"),
		ConfirmPassword: p.str("confirm_password"),
		Email:           p.str("email"),
		FullName:        p.str("full_name"),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, object{"message": "Account created successfully! Please log in.", "user": u})
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	sent, err := s.Accounts.ForgotPassword(r.Context(), p.str("email"))
	if err != nil {
		fail(w, r, err)
		return
	}
	msg := "If that email exists, a reset link has been sent."
	if sent {
		msg = "Password reset link sent to your email!"
	}
	writeOK(w, http.StatusOK, object{"message": msg})
}

func (s *Server) checkResetToken(w http.ResponseWriter, r *http.Request) {
	email, err := s.Accounts.CheckResetToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"email": email})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	err = s.Accounts.ResetPassword(r.Context(), chi.URLParam(r, "token"), p.str("password"), p.str("confirm_password"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"message": "Password reset successful! Please login with your new password."})
}
