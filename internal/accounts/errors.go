package accounts

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrMissingFields      = errors.New("all fields are required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserNotFound       = errors.New("user not found")
	ErrSelfDelete         = errors.New("you cannot delete your own account")
	ErrInvalidToken       = errors.New("invalid or expired reset link")
	ErrTokenExpired       = errors.New("this reset link has expired")
	ErrMailUnavailable    = errors.New("email not configured, contact administrator")
)
