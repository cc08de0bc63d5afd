package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ProfileUpdate carries the fields a customer may change on their own account.
type ProfileUpdate struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Address  *string `json:"address" validate:"omitempty,max=255"`
}

// CreateUserInput is the admin payload for creating an account with any role.
type CreateUserInput struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
	FullName string `json:"full_name" validate:"max=120"`
	Phone    string `json:"phone" validate:"max=20"`
	Address  string `json:"address" validate:"max=255"`
}

// UserUpdate carries the optional fields an admin may change on any account.
type UserUpdate struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=80"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin user"`
	FullName *string `json:"full_name" validate:"omitempty,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Address  *string `json:"address" validate:"omitempty,max=255"`
}

// UserService handles profiles and admin account management.
type UserService struct {
	store repositories.Transactor
	repos repositories.Repositories
	log   logrus.FieldLogger
}

func NewUserService(store repositories.Transactor, repos repositories.Repositories, log logrus.FieldLogger) *UserService {
	return &UserService{store: store, repos: repos, log: log}
}

func (s *UserService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	return s.repos.Users.GetByID(ctx, userID)
}

// UpdateProfile applies the provided fields to the caller's account.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := s.emailAvailable(ctx, email, user.ID); err != nil {
			return nil, err
		}
		user.Email = email
	}
	setIfPresent(&user.FullName, in.FullName)
	setIfPresent(&user.Phone, in.Phone)
	setIfPresent(&user.Address, in.Address)

	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns one page of accounts, optionally filtered by role and search text.
func (s *UserService) ListUsers(ctx context.Context, filter repositories.UserFilter) ([]models.User, int64, error) {
	if filter.Role != "" && !validRole(filter.Role) {
		return nil, 0, apperr.Validation(fmt.Sprintf("invalid role '%s'", filter.Role), nil)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repos.Users.List(ctx, filter)
}

// CreateUser creates an account with the requested role, defaulting to user.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !validRole(role) {
		return nil, apperr.Validation(fmt.Sprintf("invalid role '%s'", role), nil)
	}
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if err := s.usernameAvailable(ctx, username, 0); err != nil {
		return nil, err
	}
	if err := s.emailAvailable(ctx, email, 0); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     role,
		FullName: in.FullName,
		Phone:    in.Phone,
		Address:  in.Address,
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"username": user.Username, "role": user.Role}).Info("user created by admin")
	return user, nil
}

// UpdateUser applies the provided fields to any account.
func (s *UserService) UpdateUser(ctx context.Context, id uint, in UserUpdate) (*models.User, error) {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := s.usernameAvailable(ctx, username, user.ID); err != nil {
			return nil, err
		}
		user.Username = username
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := s.emailAvailable(ctx, email, user.ID); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if in.Role != nil {
		if !validRole(*in.Role) {
			return nil, apperr.Validation(fmt.Sprintf("invalid role '%s'", *in.Role), nil)
		}
		user.Role = *in.Role
	}
	if in.Password != nil && *in.Password != "" {
		hashed, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}
	setIfPresent(&user.FullName, in.FullName)
	setIfPresent(&user.Phone, in.Phone)
	setIfPresent(&user.Address, in.Address)

	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("user updated by admin")
	return user, nil
}

// DeleteUser removes an account and the data it owns. Admins cannot delete themselves, and
// accounts with orders are kept so order history stays intact.
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, id uint) error {
	if actor.UserID == id {
		return apperr.Validation("cannot delete your own account", nil)
	}
	err := s.store.WithinTransaction(ctx, func(repos repositories.Repositories) error {
		user, err := repos.Users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		orders, err := repos.Orders.CountByUser(ctx, id)
		if err != nil {
			return err
		}
		if orders > 0 {
			return apperr.Conflict(fmt.Sprintf("user '%s' has %d orders and cannot be deleted", user.Username, orders), nil)
		}
		return repos.Users.Delete(ctx, id)
	})
	if err != nil {
		return asAppError(err, "failed to delete user")
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "deleted_by": actor.UserID}).Info("user deleted")
	return nil
}

func (s *UserService) usernameAvailable(ctx context.Context, username string, self uint) error {
	existing, err := s.repos.Users.GetByUsername(ctx, username)
	if err == nil && existing.ID != self {
		return apperr.Conflict(fmt.Sprintf("username '%s' already taken", username), nil)
	}
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return err
	}
	return nil
}

func (s *UserService) emailAvailable(ctx context.Context, email string, self uint) error {
	existing, err := s.repos.Users.GetByEmail(ctx, email)
	if err == nil && existing.ID != self {
		return apperr.Conflict(fmt.Sprintf("email '%s' already registered", email), nil)
	}
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return err
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleUser
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
