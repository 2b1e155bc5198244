package handler

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/faucetdb/codespace/internal/openapi"
)

// OpenAPIHandler serves the API description. The document is built once on
// first request.
type OpenAPIHandler struct {
	version string

	once sync.Once
	doc  *openapi3.T
	err  error
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(version string) *OpenAPIHandler {
	return &OpenAPIHandler{version: version}
}

// Serve writes the document.
// GET /openapi.json
func (h *OpenAPIHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.doc, h.err = openapi.Document(h.version, "")
	})
	if h.err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build OpenAPI document: "+h.err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.doc)
}
