package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/faucetdb/codespace/internal/cache"
	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/server/middleware"
	"github.com/faucetdb/codespace/internal/service"
	"github.com/faucetdb/codespace/internal/store"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// writeServiceError maps errors from the service layers to HTTP responses.
// fallback prefixes the message of unexpected errors.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, codespace.ErrNotCached):
		writeError(w, http.StatusNotFound, "Codespace is not cached")
	case errors.Is(err, codespace.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrValidation), errors.Is(err, codespace.ErrInvalidField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "No active account found with the given credentials")
	case errors.Is(err, service.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "Token is expired")
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "Invalid or expired token")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "You do not have permission to perform this action")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "A record with these details already exists")
	case errors.Is(err, codespace.ErrStoreUnavailable), errors.Is(err, cache.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Storage temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, fallback+": "+err.Error())
	}
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// readOptionalJSON is readJSON for endpoints whose body may be empty.
func readOptionalJSON(r *http.Request, v interface{}) error {
	if err := readJSON(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// requireUser returns the request principal or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (*middleware.Principal, bool) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return nil, false
	}
	return p, true
}
