package codespace

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/faucetdb/codespace/internal/cache"
	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/store"
)

type testEnv struct {
	svc   *Service
	tmp   *EphemeralStore
	repo  *store.Store
	cache cache.Store
	mr    *miniredis.Miniredis
	owner string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	mr := miniredis.RunT(t)
	c := cache.NewRedis(cache.RedisOptions{Addr: mr.Addr(), DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { c.Close() })

	svc, err := NewService(repo, c, Options{ActiveTTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	tmp, err := NewEphemeralStore(c, 15*time.Minute, nil)
	if err != nil {
		t.Fatalf("NewEphemeralStore: %v", err)
	}

	u := &model.User{Email: "owner@example.com", PasswordHash: "x"}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return &testEnv{svc: svc, tmp: tmp, repo: repo, cache: c, mr: mr, owner: u.ID}
}

func (e *testEnv) create(t *testing.T, name, code string) *CodeSpace {
	t.Helper()
	cs, err := e.svc.Create(context.Background(), e.owner, name, code)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return cs
}

func TestNewService_RejectsNegativeTTL(t *testing.T) {
	if _, err := NewService(nil, cache.NewMemory(), Options{ActiveTTL: -time.Second}, nil); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}

func TestCreate_DefaultsAndSeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cs := env.create(t, "", "")
	if cs.Code(ctx) != DefaultCode {
		t.Errorf("code = %q, want default snippet", cs.Code(ctx))
	}
	if want := DefaultName(cs.CreatedAt()); cs.Name(ctx) != want {
		t.Errorf("name = %q, want %q", cs.Name(ctx), want)
	}
	if cs.OwnerID() != env.owner {
		t.Errorf("owner = %q, want %q", cs.OwnerID(), env.owner)
	}

	if got := env.mr.HGet(cs.ID(), FieldName); got != cs.Name(ctx) {
		t.Errorf("cached name = %q, want %q", got, cs.Name(ctx))
	}
	if ttl := env.mr.TTL(cs.ID()); ttl != time.Hour {
		t.Errorf("ttl = %s, want 1h", ttl)
	}
}

func TestCreate_NameTooLong(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Create(context.Background(), env.owner, strings.Repeat("n", MaxNameLength+1), "")
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("err = %v, want ErrInvalidField", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"0b1e5f1c-6f4e-4a7e-9b59-3a3f0f0d2b11", "not-a-uuid", ""} {
		if _, err := env.svc.Get(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q): err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestOverlay_CacheTakesPrecedence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "durable", "print(1)")

	env.mr.HSet(cs.ID(), FieldCode, "print(2)")
	if got := cs.Code(ctx); got != "print(2)" {
		t.Errorf("code with live entry = %q, want cached value", got)
	}
	if got := cs.View(ctx).Code; got != "print(2)" {
		t.Errorf("view code = %q, want cached value", got)
	}

	env.mr.Del(cs.ID())
	if got := cs.Code(ctx); got != "print(1)" {
		t.Errorf("code without entry = %q, want durable value", got)
	}
	if got := cs.Name(ctx); got != "durable" {
		t.Errorf("name without entry = %q, want durable value", got)
	}
}

func TestGet_PopulateIfAbsent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "original", "print(1)")

	env.mr.HSet(cs.ID(), FieldName, "live")
	env.mr.FastForward(40 * time.Minute)

	again, err := env.svc.Get(ctx, cs.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := env.mr.HGet(cs.ID(), FieldName); got != "live" {
		t.Errorf("cached name = %q, a second seed must not overwrite it", got)
	}
	if got := again.Name(ctx); got != "live" {
		t.Errorf("Name() = %q, want %q", got, "live")
	}
	if ttl := env.mr.TTL(cs.ID()); ttl != time.Hour {
		t.Errorf("ttl = %s, want re-armed to 1h", ttl)
	}
}

func TestGet_SeedsAfterExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "n", "c")

	env.mr.FastForward(2 * time.Hour)
	if env.mr.Exists(cs.ID()) {
		t.Fatal("entry should have expired")
	}
	if _, err := env.svc.Get(ctx, cs.ID()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := env.mr.HGet(cs.ID(), FieldCode); got != "c" {
		t.Errorf("reseeded code = %q, want %q", got, "c")
	}
}

func TestSetName_WithAndWithoutEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "before", "c")

	if err := cs.SetName(ctx, "after"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if got := env.mr.HGet(cs.ID(), FieldName); got != "after" {
		t.Errorf("cached name = %q, want %q", got, "after")
	}

	env.mr.Del(cs.ID())
	if err := cs.SetName(ctx, "offline"); err != nil {
		t.Fatalf("SetName without entry: %v", err)
	}
	if env.mr.Exists(cs.ID()) {
		t.Error("a hot-field write must never create the cache entry")
	}
	if got := cs.Name(ctx); got != "offline" {
		t.Errorf("name = %q, want in-memory durable value %q", got, "offline")
	}
}

func TestSetName_Invalid(t *testing.T) {
	env := newTestEnv(t)
	cs := env.create(t, "n", "c")
	for _, name := range []string{"", strings.Repeat("x", MaxNameLength+1)} {
		if err := cs.SetName(context.Background(), name); !errors.Is(err, ErrInvalidField) {
			t.Errorf("SetName(len=%d): err = %v, want ErrInvalidField", len(name), err)
		}
	}
}

func TestSetCode_CacheOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "n", "print(1)")

	if err := cs.SetCode(ctx, "print(2)"); err != nil {
		t.Fatalf("SetCode: %v", err)
	}
	row, _ := env.repo.GetCodeSpace(ctx, cs.ID())
	if row.Code != "print(1)" {
		t.Errorf("durable code = %q, live edits must wait for flush", row.Code)
	}
	if cs.Durable().Code != "print(1)" {
		t.Errorf("in-memory durable code = %q, want unchanged", cs.Durable().Code)
	}

	env.mr.Del(cs.ID())
	if err := cs.SetCode(ctx, "print(3)"); !errors.Is(err, ErrNotCached) {
		t.Errorf("SetCode without entry: err = %v, want ErrNotCached", err)
	}
}

func TestUpdate_RejectsCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "n", "c")

	err := env.svc.Update(ctx, cs, map[string]string{FieldName: "x", FieldCode: "y"})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("err = %v, want ErrInvalidField", err)
	}
	if got := env.mr.HGet(cs.ID(), FieldName); got != "n" {
		t.Errorf("cached name = %q, a rejected update must change nothing", got)
	}
}

func TestRename_Persists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "n", "c")

	if err := env.svc.Rename(ctx, cs, "renamed"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	row, _ := env.repo.GetCodeSpace(ctx, cs.ID())
	if row.Name != "renamed" {
		t.Errorf("durable name = %q, want %q", row.Name, "renamed")
	}
	if got := env.mr.HGet(cs.ID(), FieldName); got != "renamed" {
		t.Errorf("cached name = %q, want %q", got, "renamed")
	}
}

func TestFlush_RequiresEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "n", "c")
	before, _ := env.repo.GetCodeSpace(ctx, cs.ID())

	env.mr.Del(cs.ID())
	_, err := env.svc.Flush(ctx, cs.ID())
	if !errors.Is(err, ErrNotCached) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotCached matching ErrNotFound", err)
	}
	if env.mr.Exists(cs.ID()) {
		t.Error("flush must not seed the cache")
	}
	after, _ := env.repo.GetCodeSpace(ctx, cs.ID())
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("durable row modified: updated_at %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestFlush_LeavesTTL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "n", "c")

	env.mr.FastForward(10 * time.Minute)
	if _, err := env.svc.Flush(ctx, cs.ID()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if ttl := env.mr.TTL(cs.ID()); ttl != 50*time.Minute {
		t.Errorf("ttl = %s, flush must not re-arm it", ttl)
	}
}

func TestDelete_Completeness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "n", "c")

	if err := env.svc.Delete(ctx, cs.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.repo.GetCodeSpace(ctx, cs.ID()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("row still present: err = %v", err)
	}
	if env.mr.Exists(cs.ID()) {
		t.Error("cache entry still present")
	}
	if err := env.svc.Delete(ctx, cs.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestList_DoesNotSeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "a", "1")
	b := env.create(t, "b", "2")
	env.mr.Del(a.ID())
	env.mr.HSet(b.ID(), FieldCode, "live")

	items, total, err := env.svc.List(ctx, env.owner, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total=%d len=%d, want 2/2", total, len(items))
	}
	if env.mr.Exists(a.ID()) {
		t.Error("listing must not seed cache entries")
	}
	for _, cs := range items {
		if cs.ID() == b.ID() && cs.Code(ctx) != "live" {
			t.Errorf("listed code = %q, want live value", cs.Code(ctx))
		}
	}
}

func TestPurgeOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "a", "1")
	b := env.create(t, "b", "2")

	if err := env.svc.PurgeOwner(ctx, env.owner); err != nil {
		t.Fatalf("PurgeOwner: %v", err)
	}
	for _, id := range []string{a.ID(), b.ID()} {
		if env.mr.Exists(id) {
			t.Errorf("entry %s survived purge", id)
		}
	}
}

func TestCacheDown_ReadsFallBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "n", "print(1)")

	env.mr.Close()

	got, err := env.svc.Get(ctx, cs.ID())
	if err != nil {
		t.Fatalf("Get with cache down: %v", err)
	}
	if got.Code(ctx) != "print(1)" {
		t.Errorf("code = %q, want durable fallback", got.Code(ctx))
	}
	if err := got.SetCode(ctx, "x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("SetCode: err = %v, want ErrStoreUnavailable", err)
	}
	if _, err := env.svc.Flush(ctx, cs.ID()); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Flush: err = %v, want ErrStoreUnavailable", err)
	}
	if err := env.svc.Ping(ctx); err == nil {
		t.Error("Ping should report the cache outage")
	}
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.create(t, "durable", "print(1)")
	createdAt := created.UpdatedAt()

	cs, err := env.svc.Get(ctx, created.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ttl := env.mr.TTL(cs.ID()); ttl != time.Hour {
		t.Errorf("ttl = %s, want 1h", ttl)
	}
	if cs.Name(ctx) != cs.Durable().Name {
		t.Errorf("cached name %q differs from durable %q", cs.Name(ctx), cs.Durable().Name)
	}

	if err := cs.SetName(ctx, "X"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	row, _ := env.repo.GetCodeSpace(ctx, cs.ID())
	if row.Name != "durable" {
		t.Fatalf("durable name = %q before flush, want unchanged", row.Name)
	}

	time.Sleep(2 * time.Millisecond)
	flushed, err := env.svc.Flush(ctx, cs.ID())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	row, _ = env.repo.GetCodeSpace(ctx, cs.ID())
	if row.Name != "X" {
		t.Errorf("durable name = %q after flush, want %q", row.Name, "X")
	}
	if !row.UpdatedAt.After(createdAt) {
		t.Errorf("updated_at %v not after %v", row.UpdatedAt, createdAt)
	}
	if flushed.Durable().Name != "X" {
		t.Errorf("flushed row name = %q, want %q", flushed.Durable().Name, "X")
	}
}

func TestValidateHotFields(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		wantErr bool
	}{
		{"default", HotFields, false},
		{"empty", nil, false},
		{"key column", []string{"id"}, true},
		{"unknown", []string{"language"}, true},
		{"timestamp", []string{"created_at"}, true},
		{"duplicate", []string{"name", "name"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHotFields(tt.fields)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHotFields(%v) = %v, wantErr %v", tt.fields, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultName(t *testing.T) {
	ts := time.Date(2025, 3, 7, 16, 5, 0, 0, time.Local)
	if got := DefaultName(ts); got != "Mar 07 04:05 PM" {
		t.Errorf("DefaultName = %q, want %q", got, "Mar 07 04:05 PM")
	}
}

func TestFind_DoesNotSeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.create(t, "n", "c")
	env.mr.Del(cs.ID())

	found, err := env.svc.Find(ctx, cs.ID())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.OwnerID() != env.owner {
		t.Errorf("owner = %q, want %q", found.OwnerID(), env.owner)
	}
	if env.mr.Exists(cs.ID()) {
		t.Error("Find must not seed the cache")
	}
}
