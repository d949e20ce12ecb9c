package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"poRequestTracker/models"
	"poRequestTracker/repository"
)

// UserInput is an admin's create or edit form. An empty Password on edit
// keeps the current one.
type UserInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (in *UserInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Password = strings.TrimSpace(in.Password)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
}

// ListUsers returns every account ordered by role then username.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Users.List(ctx)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// CreateUser adds an account with any role.
func (s *Service) CreateUser(ctx context.Context, actor string, in UserInput) (*models.User, error) {
	in.normalize()
	if in.Username == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !models.ValidRole(in.Role) {
		return nil, ErrInvalidRole
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.Create(ctx, &models.User{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
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
	s.audit(ctx, actor, models.ActionUserCreated, "user", &u.ID, "Created user: "+u.Username)
	return u, nil
}

// UpdateUser saves an admin's edits.
func (s *Service) UpdateUser(ctx context.Context, actor string, id int64, in UserInput) (*models.User, error) {
	in.normalize()
	if in.Username == "" {
		return nil, ErrMissingFields
	}
	if !models.ValidRole(in.Role) {
		return nil, ErrInvalidRole
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Username, u.Role, u.Email, u.FullName = in.Username, in.Role, in.Email, in.FullName
	u.PasswordHash = ""
	if in.Password != "" {
		if u.PasswordHash, err = s.hash(in.Password); err != nil {
			return nil, err
		}
	}
	err = s.Users.Update(ctx, u)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	s.audit(ctx, actor, models.ActionUserUpdated, "user", &id, "Updated user: "+u.Username)
	return s.GetUser(ctx, id)
}

// DeleteUser removes an account other than the actor's own.
func (s *Service) DeleteUser(ctx context.Context, actor string, id int64) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if strings.EqualFold(u.Username, actor) {
		return ErrSelfDelete
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	s.audit(ctx, actor, models.ActionUserDeleted, "user", &id, "Deleted user: "+u.Username)
	return nil
}
