package handler

import (
	"net/http"

	"github.com/faucetdb/codespace/internal/service"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Get returns the caller's profile.
// GET /user/
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err, "Failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Update changes profile fields; a new password is re-hashed.
// PATCH /user/
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.UserUpdate
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	u, err := h.users.Update(r.Context(), p.UserID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Delete removes the caller's account, codespaces included.
// DELETE /user/
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.users.Delete(r.Context(), p.UserID); err != nil {
		writeServiceError(w, err, "Failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
