package service

import (
	"context"
	"errors"
	"testing"

	"github.com/faucetdb/codespace/internal/store"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"secret1", false},
		{"123456", false},
		{"abc1", true},
		{"abcdefgh", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrValidation) {
			t.Errorf("ValidatePassword(%q) = %v, want ErrValidation", tt.password, err)
		}
	}
}

func TestRegister(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	u, err := s.users.Register(ctx, Registration{Email: " Ada@Example.com ", Password: "secret1", FirstName: "Ada"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	if u.PasswordHash == "secret1" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	if _, err := s.users.Register(ctx, Registration{Email: "ada@example.com", Password: "secret1"}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("duplicate email: err = %v, want ErrConflict", err)
	}
	for _, email := range []string{"", "ada", "@example.com", "ada@"} {
		if _, err := s.users.Register(ctx, Registration{Email: email, Password: "secret1"}); !errors.Is(err, ErrValidation) {
			t.Errorf("Register(%q): err = %v, want ErrValidation", email, err)
		}
	}
}

func TestUserUpdate(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	u := s.register(t, "ada@example.com")

	first, pw := "Augusta", "newpass9"
	got, err := s.users.Update(ctx, u.ID, UserUpdate{FirstName: &first, Password: &pw})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.FirstName != "Augusta" {
		t.Errorf("first_name = %q, want %q", got.FirstName, "Augusta")
	}
	if _, err := s.auth.Authenticate(ctx, "ada@example.com", "newpass9"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, err := s.auth.Authenticate(ctx, "ada@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still accepted: err = %v", err)
	}

	weak := "short"
	if _, err := s.users.Update(ctx, u.ID, UserUpdate{Password: &weak}); !errors.Is(err, ErrValidation) {
		t.Errorf("weak password: err = %v, want ErrValidation", err)
	}
}

func TestUserDelete_PurgesCodeSpaces(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	u := s.register(t, "ada@example.com")

	cs, err := s.codespaces.Create(ctx, u.ID, "n", "c")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, _ := s.cache.Exists(ctx, cs.ID()); !ok {
		t.Fatal("create should seed the cache")
	}

	if err := s.users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.cache.Exists(ctx, cs.ID()); ok {
		t.Error("cache entry survived user deletion")
	}
	if _, err := s.store.GetCodeSpace(ctx, cs.ID()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("codespace row survived user deletion: err = %v", err)
	}
	if err := s.users.Delete(ctx, u.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}
