package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/store"
)

// MinPasswordLength is the shortest password Register and Update accept.
const MinPasswordLength = 6

// dummyHash is compared against when a login names an unknown email.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password-1"), bcrypt.DefaultCost)

// Registration is the input to UserService.Register.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserUpdate carries the profile fields to change; nil fields are kept.
type UserUpdate struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Password  *string `json:"password,omitempty"`
}

type UserService struct {
	store      *store.Store
	codespaces *codespace.Service
}

func NewUserService(store *store.Store, codespaces *codespace.Service) *UserService {
	return &UserService{store: store, codespaces: codespaces}
}

// Register validates and stores a new user.
func (s *UserService) Register(ctx context.Context, r Registration) (*model.User, error) {
	email := normalizeEmail(r.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	hash, err := HashPassword(r.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(r.FirstName),
		LastName:     strings.TrimSpace(r.LastName),
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsers(ctx)
}

// Update applies a partial profile change. A new password is re-hashed.
func (s *UserService) Update(ctx context.Context, id string, upd UserUpdate) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		u.Email = email
	}
	if upd.FirstName != nil {
		u.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		u.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Password != nil {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes a user together with their codespaces and cache entries.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return err
	}
	if err := s.codespaces.PurgeOwner(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteUser(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: enter a valid email address", ErrValidation)
	}
	return nil
}

// ValidatePassword enforces the password policy: at least MinPasswordLength
// characters and at least one digit.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return fmt.Errorf("%w: password must contain at least one digit", ErrValidation)
	}
	return nil
}

// HashPassword validates password and returns its bcrypt hash.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password is too long", ErrValidation)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
