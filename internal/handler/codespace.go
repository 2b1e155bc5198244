package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/server/middleware"
	"github.com/faucetdb/codespace/internal/service"
)

// Pagination limits for GET /codespace/.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// AccessTokenHeader carries a share token on live-edit requests.
const AccessTokenHeader = "X-Access-Token"

// CodeSpaceHandler serves durable and ephemeral codespaces. The ID prefix
// picks the path: tmp- IDs live in the cache only and need no credentials,
// every other ID is a durable codespace restricted to its owner.
type CodeSpaceHandler struct {
	codespaces *codespace.Service
	ephemeral  *codespace.EphemeralStore
	share      *service.ShareService
	logger     *slog.Logger
}

// NewCodeSpaceHandler creates a new CodeSpaceHandler.
func NewCodeSpaceHandler(codespaces *codespace.Service, ephemeral *codespace.EphemeralStore, share *service.ShareService, logger *slog.Logger) *CodeSpaceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CodeSpaceHandler{
		codespaces: codespaces,
		ephemeral:  ephemeral,
		share:      share,
		logger:     logger,
	}
}

type createRequest struct {
	ID   string  `json:"uuid"`
	Name string  `json:"name"`
	Code *string `json:"code"`
}

// Create makes a durable codespace for an authenticated caller and an
// ephemeral one for anonymous callers.
// POST /codespace/
func (h *CodeSpaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := readOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		e, err := h.ephemeral.Create(r.Context(), req.ID, req.Code)
		if err != nil {
			writeServiceError(w, err, "Failed to create codespace")
			return
		}
		writeJSON(w, http.StatusCreated, e.View())
		return
	}

	code := ""
	if req.Code != nil {
		code = *req.Code
	}
	cs, err := h.codespaces.Create(r.Context(), p.UserID, req.Name, code)
	if err != nil {
		writeServiceError(w, err, "Failed to create codespace")
		return
	}
	writeJSON(w, http.StatusCreated, cs.View(r.Context()))
}

// List returns the caller's codespaces, newest first.
// GET /codespace/?page=&page_size=
func (h *CodeSpaceHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	page := queryInt(r, "page", 1)
	size := clampInt(queryInt(r, "page_size", defaultPageSize), 1, maxPageSize)
	if page < 1 {
		writeError(w, http.StatusNotFound, "Invalid page.")
		return
	}

	items, total, err := h.codespaces.List(r.Context(), p.UserID, size, (page-1)*size)
	if err != nil {
		writeServiceError(w, err, "Failed to list codespaces")
		return
	}
	if page > 1 && len(items) == 0 {
		writeError(w, http.StatusNotFound, "Invalid page.")
		return
	}

	views := make([]model.CodeSpaceView, len(items))
	for i, cs := range items {
		views[i] = cs.View(r.Context())
	}
	writeJSON(w, http.StatusOK, model.NewPage(views, total, page, size))
}

// Get returns one codespace with its live hot fields.
// GET /codespace/{id}
func (h *CodeSpaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if codespace.IsEphemeralID(id) {
		e, err := h.ephemeral.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err, "Failed to get codespace")
			return
		}
		writeJSON(w, http.StatusOK, e.View())
		return
	}

	p, ok := requireUser(w, r)
	if !ok {
		return
	}
	cs, err := h.codespaces.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to get codespace")
		return
	}
	if cs.OwnerID() != p.UserID {
		writeServiceError(w, service.ErrForbidden, "")
		return
	}
	writeJSON(w, http.StatusOK, cs.View(r.Context()))
}

// readOnlyFields are accepted in update bodies and ignored.
var readOnlyFields = map[string]bool{"uuid": true, "created_at": true, "updated_at": true}

// Update changes settable fields of an owned codespace.
// PATCH /codespace/{id}
func (h *CodeSpaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	changes := make(map[string]string, len(body))
	for k, raw := range body {
		if readOnlyFields[k] {
			continue
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			writeError(w, http.StatusBadRequest, "Field must be a string", map[string]interface{}{"field": k})
			return
		}
		changes[k] = v
	}

	cs, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.codespaces.Update(r.Context(), cs, changes); err != nil {
		writeServiceError(w, err, "Failed to update codespace")
		return
	}
	writeJSON(w, http.StatusOK, cs.View(r.Context()))
}

type codeRequest struct {
	Code *string `json:"code"`
}

// PutCode is the live-edit path: it writes code to the cache entry only.
// Durable codespaces accept the owner or an edit share token in
// X-Access-Token; ephemeral codespaces accept anyone.
// PUT /codespace/{id}/code
func (h *CodeSpaceHandler) PutCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Code == nil {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	id := chi.URLParam(r, "id")
	if codespace.IsEphemeralID(id) {
		if err := h.ephemeral.SetCode(r.Context(), id, *req.Code); err != nil {
			writeServiceError(w, err, "Failed to save code")
			return
		}
		writeJSON(w, http.StatusOK, model.CodeSpaceView{ID: id, Code: *req.Code, Ephemeral: true})
		return
	}

	cs, err := h.codespaces.Find(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to save code")
		return
	}
	if !h.canEdit(r, cs) {
		if middleware.GetPrincipal(r.Context()) == nil && r.Header.Get(AccessTokenHeader) == "" {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		writeServiceError(w, service.ErrForbidden, "")
		return
	}
	if err := cs.SetCode(r.Context(), *req.Code); err != nil {
		writeServiceError(w, err, "Failed to save code")
		return
	}
	writeJSON(w, http.StatusOK, cs.View(r.Context()))
}

func (h *CodeSpaceHandler) canEdit(r *http.Request, cs *codespace.CodeSpace) bool {
	if p := middleware.GetPrincipal(r.Context()); p != nil && p.UserID == cs.OwnerID() {
		return true
	}
	tok := r.Header.Get(AccessTokenHeader)
	if tok == "" {
		return false
	}
	if _, err := h.share.Authorize(tok, cs.ID(), true); err != nil {
		h.logger.Debug("share token rejected for live edit", "codespace", cs.ID(), "error", err)
		return false
	}
	return true
}

// SaveChanges flushes the live hot fields of an owned codespace to its
// durable row. 404 when nothing is cached.
// PATCH /codespace/save_changes/{id}
func (h *CodeSpaceHandler) SaveChanges(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.owned(w, r)
	if !ok {
		return
	}
	flushed, err := h.codespaces.Flush(r.Context(), cs.ID())
	if err != nil {
		writeServiceError(w, err, "Failed to save changes")
		return
	}
	writeJSON(w, http.StatusOK, flushed.View(r.Context()))
}

// Delete removes a codespace and its cache entry.
// DELETE /codespace/{id}
func (h *CodeSpaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if codespace.IsEphemeralID(id) {
		if err := h.ephemeral.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err, "Failed to delete codespace")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	cs, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.codespaces.Delete(r.Context(), cs.ID()); err != nil {
		writeServiceError(w, err, "Failed to delete codespace")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// owned loads the durable codespace named in the URL without seeding the
// cache and checks that the caller owns it.
func (h *CodeSpaceHandler) owned(w http.ResponseWriter, r *http.Request) (*codespace.CodeSpace, bool) {
	p, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	cs, err := h.codespaces.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get codespace")
		return nil, false
	}
	if cs.OwnerID() != p.UserID {
		writeServiceError(w, service.ErrForbidden, "")
		return nil, false
	}
	return cs, true
}
