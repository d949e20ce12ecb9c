// Package accounts handles sign-in, self registration, password resets and
// admin user management.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"poRequestTracker/internal/auth"
	"poRequestTracker/internal/notify"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = time.Hour

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, addr, token string) error
}

// Service wires accounts to storage, the session registry and the mailer.
type Service struct {
	Users    *repository.UserRepository
	Tokens   *repository.ResetTokenRepository
	Activity *repository.ActivityRepository
	Sessions *auth.Sessions
	Mailer   ResetMailer
	Secret   string
	Hash     func(password string) (string, error)
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) hash(p string) (string, error) {
	if s.Hash != nil {
		return s.Hash(p)
	}
	return auth.HashPassword(p)
}

func (s *Service) audit(ctx context.Context, user, action, targetType string, id *int64, details string) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Log(ctx, user, action, targetType, id, details); err != nil {
		s.Logger.Warn().Err(err).Str("action", action).Msg("write activity log")
	}
}

// LoginResult is a signed session token and the session it names.
type LoginResult struct {
	Token   string
	Session auth.Session
}

// Home is the dashboard path for the session's role.
func (r *LoginResult) Home() string {
	switch r.Session.Role {
	case models.RoleTechnician:
		return "/tech_dashboard"
	case models.RoleAdmin:
		return "/admin_dashboard"
	}
	return "/office_dashboard"
}

// Login checks the password for username (matched case-insensitively) and
// opens a session under the stored spelling.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if err := s.Users.TouchLastLogin(ctx, u.ID, s.now()); err != nil {
		s.Logger.Warn().Err(err).Str("username", u.Username).Msg("update last login")
	}
	sess := s.Sessions.Create(u)
	res, err := s.issue(*sess)
	if err != nil {
		s.Sessions.Delete(sess.ID)
		return nil, err
	}
	s.audit(ctx, u.Username, models.ActionLogin, "session", nil, "User logged in")
	s.Logger.Info().Str("username", u.Username).Str("role", u.Role).Msg("user logged in")
	return res, nil
}

// LoginWithSession re-issues a token for a session that is still registered.
func (s *Service) LoginWithSession(sid string) (*LoginResult, error) {
	sess, ok := s.Sessions.Get(sid)
	if !ok {
		return nil, ErrInvalidSession
	}
	s.Sessions.Touch(sid)
	return s.issue(sess)
}

func (s *Service) issue(sess auth.Session) (*LoginResult, error) {
	tok, err := auth.Issue(s.Secret, auth.Principal{Name: sess.Username, Kind: sess.Role, SessionID: sess.ID}, s.Sessions.TTL())
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &LoginResult{Token: tok, Session: sess}, nil
}

// Logout drops the session so tokens naming it stop working.
func (s *Service) Logout(sid string) {
	if sid != "" {
		s.Sessions.Delete(sid)
	}
}

// RegisterInput is the self-service sign-up form.
type RegisterInput struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
}

func validEmail(e string) bool {
	return strings.Contains(e, "@") && strings.Contains(e, ".")
}

// Register creates an office account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Password = strings.TrimSpace(in.Password)
	in.ConfirmPassword = strings.TrimSpace(in.ConfirmPassword)

	if in.Username == "" || in.Password == "" || in.Email == "" || in.FullName == "" {
		return nil, ErrMissingFields
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(in.Password) < auth.MinPasswordLen {
		return nil, ErrWeakPassword
	}
	if !validEmail(in.Email) {
		return nil, ErrInvalidEmail
	}

	if u, err := s.Users.GetByUsername(ctx, in.Username); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	} else if u != nil {
		return nil, ErrUsernameTaken
	}
	if u, err := s.Users.GetByEmail(ctx, in.Email); err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	} else if u != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.Create(ctx, &models.User{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         models.RoleOffice,
		Email:        in.Email,
		FullName:     in.FullName,
		CreatedDate:  s.now().Format(models.DateLayout),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.audit(ctx, u.Username, models.ActionRegistered, "user", &u.ID, "New office account created: "+u.FullName)
	s.Logger.Info().Str("username", u.Username).Msg("office account registered")
	return u, nil
}

// ForgotPassword mails a reset link when email belongs to a user. It reports
// whether a mail was sent; unknown addresses are not an error.
func (s *Service) ForgotPassword(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, ErrMissingFields
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("get user by email: %w", err)
	}
	if u == nil {
		return false, nil
	}
	token, err := auth.NewResetToken()
	if err != nil {
		return false, fmt.Errorf("generate reset token: %w", err)
	}
	now := s.now()
	if err := s.Tokens.Create(ctx, u.ID, token, now, now.Add(ResetTokenTTL)); err != nil {
		return false, fmt.Errorf("store reset token: %w", err)
	}
	if s.Mailer == nil {
		return false, ErrMailUnavailable
	}
	if err := s.Mailer.SendPasswordReset(ctx, email, token); err != nil {
		if !errors.Is(err, notify.ErrMailDisabled) {
			s.Logger.Error().Err(err).Str("username", u.Username).Msg("send reset email")
		}
		return false, ErrMailUnavailable
	}
	return true, nil
}

// CheckResetToken validates token and returns the email of its owner.
func (s *Service) CheckResetToken(ctx context.Context, token string) (string, error) {
	_, u, err := s.resetToken(ctx, token)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func (s *Service) resetToken(ctx context.Context, token string) (*models.ResetToken, *models.User, error) {
	t, u, err := s.Tokens.GetWithUser(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("get reset token: %w", err)
	}
	if t == nil {
		return nil, nil, ErrInvalidToken
	}
	now := s.now()
	expires, err := time.ParseInLocation(models.TimestampLayout, t.ExpiresAt, now.Location())
	if err != nil || t.Used || now.After(expires) {
		return nil, nil, ErrTokenExpired
	}
	return t, u, nil
}

// ResetPassword sets a new password with a valid token and consumes it.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) error {
	t, u, err := s.resetToken(ctx, token)
	if err != nil {
		return err
	}
	if len(password) < auth.MinPasswordLen {
		return ErrWeakPassword
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.Tokens.MarkUsed(ctx, t.ID); err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	s.audit(ctx, u.Username, models.ActionPasswordReset, "user", &u.ID, "Password reset via email")
	return nil
}
