package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/apiserver/internal/store"
	"github.com/taskhub/apiserver/internal/validation"
	"github.com/taskhub/apiserver/types"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email, a
// wrong password or an inactive account. The cases are indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrWrongPassword is returned by ChangePassword when the current password
// does not match.
var ErrWrongPassword = errors.New("current password is incorrect")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	TouchLastLogin(ctx context.Context, id int, at time.Time) error
	List(ctx context.Context) ([]types.User, error)
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register validates the input, hashes the password and creates the account.
// A taken username or email surfaces as store.ErrConflict.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (types.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	var errs validation.Errors
	validation.Username(&errs, input.Username)
	validation.Email(&errs, input.Email)
	validation.Password(&errs, "password", input.Password)
	validation.PersonName(&errs, "firstName", input.FirstName)
	validation.PersonName(&errs, "lastName", input.LastName)
	if len(errs) > 0 {
		return types.User{}, errs
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         types.RoleUser,
		IsActive:     true,
		PasswordHash: string(hashed),
	})
}

// Authenticate verifies an email/password pair and records the login time.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if !user.IsActive {
		return types.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return types.User{}, err
	}
	user.LastLoginAt = &now

	return user, nil
}

// GetByID fetches a single account.
func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every account. Callers gate this behind the admin role.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// ProfilePatch carries the fields of a profile update request. Nil fields
// are left untouched.
type ProfilePatch struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// UpdateProfile applies the patch to the user's own record. A username or
// email held by another account surfaces as store.ErrConflict.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, patch ProfilePatch) (types.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	var errs validation.Errors
	if patch.Username != nil {
		trimmed := strings.TrimSpace(*patch.Username)
		validation.Username(&errs, trimmed)
		user.Username = trimmed
	}
	if patch.Email != nil {
		lowered := strings.ToLower(strings.TrimSpace(*patch.Email))
		validation.Email(&errs, lowered)
		user.Email = lowered
	}
	if patch.FirstName != nil {
		validation.PersonName(&errs, "firstName", *patch.FirstName)
		user.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		validation.PersonName(&errs, "lastName", *patch.LastName)
		user.LastName = strings.TrimSpace(*patch.LastName)
	}
	if len(errs) > 0 {
		return types.User{}, errs
	}

	return s.repo.Update(ctx, user)
}

// ChangePassword verifies the current password, validates the new one against
// the password policy and stores its hash.
func (s *UserService) ChangePassword(ctx context.Context, userID int, current, next string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}

	var errs validation.Errors
	validation.Password(&errs, "newPassword", next)
	if len(errs) > 0 {
		return errs
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashed)
	_, err = s.repo.Update(ctx, user)
	return err
}

// SetAvatarURL stores the URL of a freshly uploaded avatar.
func (s *UserService) SetAvatarURL(ctx context.Context, userID int, url string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}
	user.AvatarURL = url
	return s.repo.Update(ctx, user)
}
