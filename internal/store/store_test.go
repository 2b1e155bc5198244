package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/faucetdb/codespace/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "hash", FirstName: "Ada", LastName: "Lovelace"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v1, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v1 != len(dialects["sqlite"].migrations) {
		t.Errorf("version = %d, want %d", v1, len(dialects["sqlite"].migrations))
	}

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	v2, _ := s.SchemaVersion(ctx)
	if v2 != v1 {
		t.Errorf("version after re-migrate = %d, want %d", v2, v1)
	}
}

func TestDrivers(t *testing.T) {
	got := Drivers()
	want := []string{"mysql", "postgres", "sqlite", "sqlserver"}
	if len(got) != len(want) {
		t.Fatalf("Drivers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Drivers()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "ada@example.com")
	if u.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("email = %q, want %q", got.Email, "ada@example.com")
	}

	byEmail, err := s.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("GetUserByEmail ID = %q, want %q", byEmail.ID, u.ID)
	}

	got.FirstName = "Augusta"
	if err := s.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	again, _ := s.GetUser(ctx, u.ID)
	if again.FirstName != "Augusta" {
		t.Errorf("first_name = %q, want %q", again.FirstName, "Augusta")
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("ListUsers returned %d users, want 1", len(users))
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteUser twice: err = %v, want ErrNotFound", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "dup@example.com")

	err := s.CreateUser(context.Background(), &model.User{Email: "dup@example.com", PasswordHash: "x"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateUser(context.Background(), &model.User{ID: "missing", Email: "x@example.com"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// CodeSpaces
// ---------------------------------------------------------------------------

func TestCodeSpaceCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@example.com")

	cs := &model.CodeSpace{OwnerID: owner.ID, Name: "first", Code: "print(1)"}
	if err := s.CreateCodeSpace(ctx, cs); err != nil {
		t.Fatalf("CreateCodeSpace: %v", err)
	}
	if cs.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetCodeSpace(ctx, cs.ID)
	if err != nil {
		t.Fatalf("GetCodeSpace: %v", err)
	}
	if got.Name != "first" || got.Code != "print(1)" || got.OwnerID != owner.ID {
		t.Errorf("got %+v, want name=first code=print(1) owner=%s", got, owner.ID)
	}

	before := got.UpdatedAt
	time.Sleep(2 * time.Millisecond)
	got.Code = "print(2)"
	if err := s.UpdateCodeSpace(ctx, got); err != nil {
		t.Fatalf("UpdateCodeSpace: %v", err)
	}
	again, _ := s.GetCodeSpace(ctx, cs.ID)
	if again.Code != "print(2)" {
		t.Errorf("code = %q, want %q", again.Code, "print(2)")
	}
	if !again.UpdatedAt.After(before) {
		t.Errorf("updated_at %v not after %v", again.UpdatedAt, before)
	}
	if !again.CreatedAt.Equal(cs.CreatedAt) {
		t.Errorf("created_at changed: %v, want %v", again.CreatedAt, cs.CreatedAt)
	}

	if err := s.DeleteCodeSpace(ctx, cs.ID); err != nil {
		t.Fatalf("DeleteCodeSpace: %v", err)
	}
	if _, err := s.GetCodeSpace(ctx, cs.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCodeSpace after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteCodeSpace(ctx, cs.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteCodeSpace twice: err = %v, want ErrNotFound", err)
	}
	if err := s.UpdateCodeSpace(ctx, got); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCodeSpace after delete: err = %v, want ErrNotFound", err)
	}
}

func TestGetCodeSpace_NonUUID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetCodeSpace(context.Background(), "tmp-1234"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListCodeSpaces_Pagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@example.com")
	other := seedUser(t, s, "other@example.com")

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		cs := &model.CodeSpace{
			OwnerID:   owner.ID,
			Name:      string(rune('a' + i)),
			Code:      "x",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateCodeSpace(ctx, cs); err != nil {
			t.Fatalf("CreateCodeSpace: %v", err)
		}
	}
	s.CreateCodeSpace(ctx, &model.CodeSpace{OwnerID: other.ID, Name: "z", Code: "x"})

	n, err := s.CountCodeSpaces(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CountCodeSpaces: %v", err)
	}
	if n != 5 {
		t.Errorf("count = %d, want 5", n)
	}

	page1, err := s.ListCodeSpaces(ctx, owner.ID, 2, 0)
	if err != nil {
		t.Fatalf("ListCodeSpaces: %v", err)
	}
	if len(page1) != 2 || page1[0].Name != "e" || page1[1].Name != "d" {
		t.Errorf("page 1 = %v, want [e d]", names(page1))
	}

	page3, _ := s.ListCodeSpaces(ctx, owner.ID, 2, 4)
	if len(page3) != 1 || page3[0].Name != "a" {
		t.Errorf("page 3 = %v, want [a]", names(page3))
	}

	ids, err := s.ListCodeSpaceIDs(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListCodeSpaceIDs: %v", err)
	}
	if len(ids) != 5 {
		t.Errorf("ListCodeSpaceIDs returned %d ids, want 5", len(ids))
	}
}

func TestDeleteUser_CascadesCodeSpaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@example.com")

	cs := &model.CodeSpace{OwnerID: owner.ID, Name: "n", Code: "c"}
	if err := s.CreateCodeSpace(ctx, cs); err != nil {
		t.Fatalf("CreateCodeSpace: %v", err)
	}
	if err := s.DeleteUser(ctx, owner.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetCodeSpace(ctx, cs.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("codespace should be deleted with its owner, err = %v", err)
	}
}

func names(rows []model.CodeSpace) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}
