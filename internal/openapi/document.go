// Package openapi describes the HTTP API as an OpenAPI 3.1 document.
package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/service"
)

// component schemas generated from the wire types.
var components = []struct {
	name  string
	value interface{}
}{
	{"CodeSpace", model.CodeSpaceView{}},
	{"CodeSpacePage", model.Page[model.CodeSpaceView]{}},
	{"User", model.User{}},
	{"UserUpdate", service.UserUpdate{}},
	{"Registration", service.Registration{}},
	{"TokenPair", model.TokenPair{}},
	{"ShareTokenRequest", model.ShareTokenRequest{}},
	{"ShareTokenResponse", model.ShareTokenResponse{}},
	{"ErrorResponse", model.ErrorResponse{}},
}

// Document builds the API description. baseURL may be empty.
func Document(version, baseURL string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Codespace API",
			Description: "Collaborative code snippets with cached live editing and share tokens.",
			Version:     version,
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	comps := openapi3.NewComponents()
	comps.Schemas = openapi3.Schemas{}
	comps.SecuritySchemes = openapi3.SecuritySchemes{
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
		"accessToken": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type: "apiKey",
				In:   "header",
				Name: "X-Access-Token",
			},
		},
	}
	doc.Components = &comps

	for _, c := range components {
		ref, err := openapi3gen.NewSchemaRefForValue(c.value, nil)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", c.name, err)
		}
		doc.Components.Schemas[c.name] = ref
	}
	modeEnum(doc.Components.Schemas["CodeSpace"])
	modeEnum(doc.Components.Schemas["ShareTokenRequest"])
	modeEnum(doc.Components.Schemas["ShareTokenResponse"])

	doc.Paths = openapi3.NewPaths()
	addAuthPaths(doc)
	addCodeSpacePaths(doc)
	addSharePaths(doc)
	addSystemPaths(doc)
	return doc, nil
}

func modeEnum(ref *openapi3.SchemaRef) {
	if ref == nil || ref.Value == nil {
		return
	}
	if p, ok := ref.Value.Properties["mode"]; ok && p.Value != nil {
		p.Value.Enum = []interface{}{string(model.AccessEdit), string(model.AccessViewOnly)}
	}
}

var (
	bearer    = openapi3.SecurityRequirements{{"bearerAuth": {}}}
	anonymous = openapi3.SecurityRequirements{{}, {"bearerAuth": {}}}
)

func addAuthPaths(doc *openapi3.T) {
	doc.Paths.Set("/auth/register/", &openapi3.PathItem{
		Post: operation("auth", "register", "Register an account",
			body("Registration"), newResponses(201, "Account created", ref("TokenPair"), 400, 403, 409),
			&openapi3.SecurityRequirements{{}}),
	})
	doc.Paths.Set("/auth/token/", &openapi3.PathItem{
		Post: operation("auth", "login", "Obtain an access and refresh token",
			inlineBody(stringProps("email", "password")), newResponses(200, "Token pair", ref("TokenPair"), 400, 401),
			&openapi3.SecurityRequirements{{}}),
	})
	doc.Paths.Set("/auth/token/refresh/", &openapi3.PathItem{
		Post: operation("auth", "refreshToken", "Exchange a refresh token for an access token",
			inlineBody(stringProps("refresh")), newResponses(200, "New access token", stringProps("access"), 400, 401),
			&openapi3.SecurityRequirements{{}}),
	})
	doc.Paths.Set("/auth/token/verify/", &openapi3.PathItem{
		Get: operation("auth", "verifyToken", "Check the bearer access token",
			nil, newResponses(200, "Token is valid", emptyObject(), 401), &bearer),
	})
	doc.Paths.Set("/user/", &openapi3.PathItem{
		Get: operation("user", "getUser", "Current user profile",
			nil, newResponses(200, "Profile", ref("User"), 401), &bearer),
		Patch: operation("user", "updateUser", "Update the current user",
			body("UserUpdate"), newResponses(200, "Updated profile", ref("User"), 400, 401, 409), &bearer),
		Delete: operation("user", "deleteUser", "Delete the current user and their codespaces",
			nil, noContent(401), &bearer),
	})
}

func addCodeSpacePaths(doc *openapi3.T) {
	ephemeralID := openapi3.NewStringSchema()
	ephemeralID.Description = "Ephemeral ID; prefixed with tmp- when missing"
	idParam := pathParam("id", "Codespace UUID, or a tmp- ID for an ephemeral codespace")
	createBody := inlineBody(&openapi3.SchemaRef{Value: &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"uuid": {Value: ephemeralID},
			"name": {Value: openapi3.NewStringSchema().WithMaxLength(255)},
			"code": {Value: openapi3.NewStringSchema()},
		},
	}})

	list := operation("codespace", "listCodeSpaces", "List the caller's codespaces, newest first",
		nil, newResponses(200, "One page of codespaces", ref("CodeSpacePage"), 401, 404), &bearer)
	list.Parameters = openapi3.Parameters{
		queryParam("page", "1-based page number", 1),
		queryParam("page_size", "Items per page (max 100)", 10),
	}
	doc.Paths.Set("/codespace/", &openapi3.PathItem{
		Get: list,
		Post: operation("codespace", "createCodeSpace",
			"Create a codespace: durable when authenticated, ephemeral otherwise",
			createBody, newResponses(201, "Created codespace", ref("CodeSpace"), 400, 429, 503), &anonymous),
	})

	doc.Paths.Set("/codespace/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParam},
		Get: operation("codespace", "getCodeSpace", "Retrieve a codespace with live values",
			nil, newResponses(200, "Codespace", ref("CodeSpace"), 401, 403, 404, 503), &anonymous),
		Patch: operation("codespace", "updateCodeSpace", "Rename an owned codespace",
			inlineBody(stringProps("name")), newResponses(200, "Updated codespace", ref("CodeSpace"), 400, 401, 403, 404), &bearer),
		Delete: operation("codespace", "deleteCodeSpace", "Delete a codespace and its cache entry",
			nil, noContent(401, 403, 404, 503), &anonymous),
	})

	putCode := operation("codespace", "putCode", "Write live code to the cache entry",
		inlineBody(stringProps("code")), newResponses(200, "Codespace with live code", ref("CodeSpace"), 400, 401, 403, 404, 503),
		&openapi3.SecurityRequirements{{}, {"bearerAuth": {}}, {"accessToken": {}}})
	doc.Paths.Set("/codespace/{id}/code", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParam},
		Put:        putCode,
	})

	doc.Paths.Set("/codespace/save_changes/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{pathParam("id", "Codespace UUID")},
		Patch: operation("codespace", "saveChanges", "Flush live values to durable storage",
			nil, newResponses(200, "Flushed codespace", ref("CodeSpace"), 401, 403, 404, 503), &bearer),
	})
}

func addSharePaths(doc *openapi3.T) {
	doc.Paths.Set("/codespace/access/token/", &openapi3.PathItem{
		Post: operation("share", "issueShareToken", "Issue a share token for an owned codespace",
			body("ShareTokenRequest"), newResponses(201, "Share token", ref("ShareTokenResponse"), 400, 401, 403, 404), &bearer),
	})
	doc.Paths.Set("/codespace/access/token/verify/", &openapi3.PathItem{
		Post: operation("share", "verifyShareToken", "Check a share token",
			inlineBody(stringProps("token")), newResponses(200, "Token is valid", emptyObject(), 400, 403),
			&openapi3.SecurityRequirements{{}}),
	})
	doc.Paths.Set("/codespace/access/token/{token}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{pathParam("token", "Share token")},
		Get: operation("share", "openSharedCodeSpace", "Retrieve the codespace a share token grants",
			nil, newResponses(200, "Shared codespace", ref("CodeSpace"), 403, 404),
			&openapi3.SecurityRequirements{{}}),
	})
}

func addSystemPaths(doc *openapi3.T) {
	status := stringProps("status")
	none := &openapi3.SecurityRequirements{{}}
	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: operation("system", "healthz", "Liveness probe", nil, newResponses(200, "Alive", status), none),
	})
	doc.Paths.Set("/readyz", &openapi3.PathItem{
		Get: operation("system", "readyz", "Readiness probe: database and cache",
			nil, newResponses(200, "Ready", status, 503), none),
	})
	doc.Paths.Set("/openapi.json", &openapi3.PathItem{
		Get: operation("system", "openapi", "This document", nil,
			newResponses(200, "OpenAPI document", emptyObject()), none),
	})
}
