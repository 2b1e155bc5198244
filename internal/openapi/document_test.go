package openapi

import (
	"encoding/json"
	"testing"
)

func TestDocument(t *testing.T) {
	doc, err := Document("1.2.3", "http://localhost:8080")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if doc.OpenAPI != "3.1.0" || doc.Info.Version != "1.2.3" {
		t.Errorf("openapi=%q version=%q", doc.OpenAPI, doc.Info.Version)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("servers = %v", doc.Servers)
	}

	for _, path := range []string{
		"/auth/register/", "/auth/token/", "/auth/token/refresh/", "/auth/token/verify/", "/user/",
		"/codespace/", "/codespace/{id}", "/codespace/{id}/code", "/codespace/save_changes/{id}",
		"/codespace/access/token/", "/codespace/access/token/verify/", "/codespace/access/token/{token}",
		"/healthz", "/readyz", "/openapi.json",
	} {
		if doc.Paths.Value(path) == nil {
			t.Errorf("missing path %s", path)
		}
	}

	for _, name := range []string{"CodeSpace", "CodeSpacePage", "User", "TokenPair", "ShareTokenRequest", "ErrorResponse"} {
		if doc.Components.Schemas[name] == nil {
			t.Errorf("missing schema %s", name)
		}
	}
}

func TestDocument_OperationIDsUnique(t *testing.T) {
	doc, err := Document("dev", "")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	seen := map[string]string{}
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			if op.OperationID == "" {
				t.Errorf("%s %s has no operationId", method, path)
				continue
			}
			if prev, ok := seen[op.OperationID]; ok {
				t.Errorf("operationId %q used by %s and %s %s", op.OperationID, prev, method, path)
			}
			seen[op.OperationID] = method + " " + path
		}
	}
}

func TestDocument_FlushDocuments404(t *testing.T) {
	doc, _ := Document("dev", "")
	op := doc.Paths.Value("/codespace/save_changes/{id}").Patch
	if op.Responses.Status(404) == nil {
		t.Error("save_changes must document 404 for an uncached codespace")
	}
	if op.Responses.Status(200) == nil {
		t.Error("save_changes must document 200")
	}
}

func TestDocument_ShareModeEnum(t *testing.T) {
	doc, _ := Document("dev", "")
	mode := doc.Components.Schemas["ShareTokenRequest"].Value.Properties["mode"]
	if mode == nil || len(mode.Value.Enum) != 2 {
		t.Fatalf("mode schema = %+v, want two-value enum", mode)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(b) == 0 {
		t.Error("empty document")
	}
}
