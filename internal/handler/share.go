package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/service"
)

// ShareHandler issues and checks share tokens.
type ShareHandler struct {
	share *service.ShareService
}

// NewShareHandler creates a new ShareHandler.
func NewShareHandler(share *service.ShareService) *ShareHandler {
	return &ShareHandler{share: share}
}

// Issue creates a share token for a codespace the caller owns.
// POST /codespace/access/token/
func (h *ShareHandler) Issue(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.ShareTokenRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	resp, err := h.share.Issue(r.Context(), p.UserID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

type verifyRequest struct {
	Token string `json:"token"`
}

// Verify answers 200 for a valid token and 403 otherwise, with no payload.
// POST /codespace/access/token/verify/
func (h *ShareHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.share.Verify(req.Token); err != nil {
		writeServiceError(w, err, "Failed to verify token")
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// Open returns the codespace a token grants access to, tagged with the
// token's mode.
// GET /codespace/access/token/{token}
func (h *ShareHandler) Open(w http.ResponseWriter, r *http.Request) {
	cs, mode, err := h.share.Open(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, err, "Failed to open shared codespace")
		return
	}
	view := cs.View(r.Context())
	view.Mode = mode
	writeJSON(w, http.StatusOK, view)
}
