package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/faucetdb/codespace/internal/cache"
	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/server/middleware"
	"github.com/faucetdb/codespace/internal/service"
	"github.com/faucetdb/codespace/internal/store"
	"github.com/faucetdb/codespace/internal/token"
)

const (
	testJWTSecret   = "test-secret-for-handler-tests"
	testShareSecret = "test-share-secret-for-handler-tests"
	testPassword    = "secret123"
)

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store      *store.Store
	cache      *cache.Memory
	codespaces *codespace.Service
	auth       *service.AuthService
	users      *service.UserService
	router     chi.Router
}

// newTestEnv creates a fresh test environment with an in-memory store and
// cache, and a Chi router with every route mounted.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("store.OpenMemory: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	c := cache.NewMemory()
	codespaces, err := codespace.NewService(st, c, codespace.Options{ActiveTTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("codespace.NewService: %v", err)
	}
	ephemeral, err := codespace.NewEphemeralStore(c, 15*time.Minute, nil)
	if err != nil {
		t.Fatalf("codespace.NewEphemeralStore: %v", err)
	}
	codec, err := token.NewCodec(testShareSecret)
	if err != nil {
		t.Fatalf("token.NewCodec: %v", err)
	}

	authSvc := service.NewAuthService(st, testJWTSecret, time.Hour, 24*time.Hour)
	users := service.NewUserService(st, codespaces)
	share := service.NewShareService(codec, codespaces)

	csH := NewCodeSpaceHandler(codespaces, ephemeral, share, nil)
	shareH := NewShareHandler(share)
	authH := NewAuthHandler(authSvc, users)
	userH := NewUserHandler(users)

	r := chi.NewRouter()
	r.Use(chimw.StripSlashes)
	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.OptionalAuthenticate(authSvc), middleware.RequireAnonymous()).Post("/register", authH.Register)
		r.Post("/token", authH.Login)
		r.Post("/token/refresh", authH.Refresh)
		r.With(middleware.Authenticate(authSvc)).Get("/token/verify", authH.Verify)
	})
	r.Route("/user", func(r chi.Router) {
		r.Use(middleware.Authenticate(authSvc))
		r.Get("/", userH.Get)
		r.Patch("/", userH.Update)
		r.Delete("/", userH.Delete)
	})
	r.Route("/codespace", func(r chi.Router) {
		r.Use(middleware.OptionalAuthenticate(authSvc))
		r.Get("/", csH.List)
		r.Post("/", csH.Create)
		r.Post("/access/token", shareH.Issue)
		r.Post("/access/token/verify", shareH.Verify)
		r.Get("/access/token/{token}", shareH.Open)
		r.Patch("/save_changes/{id}", csH.SaveChanges)
		r.Get("/{id}", csH.Get)
		r.Patch("/{id}", csH.Update)
		r.Delete("/{id}", csH.Delete)
		r.Put("/{id}/code", csH.PutCode)
	})

	return &testEnv{
		store:      st,
		cache:      c,
		codespaces: codespaces,
		auth:       authSvc,
		users:      users,
		router:     r,
	}
}

// seedUser registers a user and returns it with an access token.
func (e *testEnv) seedUser(t *testing.T, email string) (*model.User, string) {
	t.Helper()
	u, err := e.users.Register(context.Background(), service.Registration{Email: email, Password: testPassword})
	if err != nil {
		t.Fatalf("seedUser: %v", err)
	}
	pair, err := e.auth.IssueTokens(context.Background(), u)
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	return u, pair.Access
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, bearer string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}
