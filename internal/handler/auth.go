package handler

import (
	"net/http"

	"github.com/faucetdb/codespace/internal/service"
)

// AuthHandler serves registration and JWT issuance.
type AuthHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, users *service.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// Register creates an account and logs it in.
// POST /auth/register/
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.Registration
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	u, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "Failed to register")
		return
	}
	pair, err := h.auth.IssueTokens(r.Context(), u)
	if err != nil {
		writeServiceError(w, err, "Failed to issue tokens")
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for an access and a refresh token.
// POST /auth/token/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "Authentication error")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh issues a new access token.
// POST /auth/token/refresh/
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "refresh is required")
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeServiceError(w, err, "Failed to refresh token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": pair.Access})
}

// Verify answers 200 when the request carries a valid access token. The
// Authenticate middleware rejects everything else.
// GET /auth/token/verify/
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
