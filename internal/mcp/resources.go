package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/codespace/internal/codespace"
)

const (
	settingsURI        = "codespace://settings"
	codespaceURIPrefix = "codespace://codespace/"
)

// registerResources adds MCP resource definitions to the server.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			settingsURI,
			"Codespace Settings",
			mcp.WithResourceDescription(
				"Cache lifetimes and hot fields of the codespace overlay.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleSettingsResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			codespaceURIPrefix+"{id}",
			"Codespace",
			mcp.WithTemplateDescription(
				"A single codespace with its live name and code.",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleCodeSpaceResource,
	)
}

func (s *MCPServer) handleSettingsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	settings := map[string]interface{}{
		"active_ttl_seconds":    int64(s.codespaces.ActiveTTL().Seconds()),
		"ephemeral_ttl_seconds": int64(s.ephemeral.TTL().Seconds()),
		"hot_fields":            codespace.HotFields,
		"ephemeral_prefix":      codespace.EphemeralPrefix,
	}
	return jsonContents(settingsURI, settings)
}

func (s *MCPServer) handleCodeSpaceResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	id := strings.TrimPrefix(uri, codespaceURIPrefix)
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid codespace URI %q: expected %s{id}", uri, codespaceURIPrefix)
	}

	if codespace.IsEphemeralID(id) {
		e, err := s.ephemeral.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("codespace %q: %w", id, err)
		}
		return jsonContents(uri, e.View())
	}
	cs, err := s.codespaces.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("codespace %q: %w", id, err)
	}
	return jsonContents(uri, cs.View(ctx))
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
