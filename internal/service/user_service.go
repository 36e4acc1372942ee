package service

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"labreserve/internal/auth"
	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

// ProfileUpdateInput carries the self-editable fields of a user profile.
// Role is deliberately absent: users never change their own role.
type ProfileUpdateInput struct {
	FirstName string
	LastName  string
	Password  string
}

// UserService handles user profile and administration operations.
type UserService interface {
	Profile(ctx context.Context, actor auth.Actor) (*model.User, error)
	UpdateProfile(ctx context.Context, actor auth.Actor, input ProfileUpdateInput) (*model.User, error)
	Get(ctx context.Context, actor auth.Actor, id uint) (*model.User, error)
	List(ctx context.Context, actor auth.Actor) ([]model.User, error)
	SetRole(ctx context.Context, actor auth.Actor, id uint, role model.Role) (*model.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new user service.
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// Profile returns the calling user's record.
func (s *userService) Profile(ctx context.Context, actor auth.Actor) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return user, nil
}

// UpdateProfile updates the calling user's name and, when provided, password.
func (s *userService) UpdateProfile(ctx context.Context, actor auth.Actor, input ProfileUpdateInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, translateNotFound(err)
	}

	if input.FirstName != "" {
		user.FirstName = input.FirstName
	}
	if input.LastName != "" {
		user.LastName = input.LastName
	}
	if input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get fetches a user by ID. Staff only.
func (s *userService) Get(ctx context.Context, actor auth.Actor, id uint) (*model.User, error) {
	if !actor.Can(auth.ActionUserManage) {
		return nil, errors.ErrForbidden
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return user, nil
}

// List lists all users. Staff only.
func (s *userService) List(ctx context.Context, actor auth.Actor) ([]model.User, error) {
	if !actor.Can(auth.ActionUserManage) {
		return nil, errors.ErrForbidden
	}
	return s.userRepo.List(ctx)
}

// SetRole assigns a role to a user. Staff only. Already-issued access
// tokens keep their old role until refresh.
func (s *userService) SetRole(ctx context.Context, actor auth.Actor, id uint, role model.Role) (*model.User, error) {
	if !actor.Can(auth.ActionUserManage) {
		return nil, errors.ErrForbidden
	}
	if !role.Valid() {
		return nil, errors.NewValidation("role", "unknown role")
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
