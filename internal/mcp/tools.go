package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/model"
)

// registerTools registers all codespace MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Read tools -----

	srv.AddTool(
		mcp.NewTool("codespace_get",
			mcp.WithDescription(
				"Get a codespace by id with its live name and code. Ids starting with "+
					"\"tmp-\" are anonymous ephemeral codespaces; any other id is a durable "+
					"codespace, whose cache entry is created or kept alive by this call.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Codespace id (a UUID or a tmp- id)"),
			),
		),
		s.handleGet,
	)

	srv.AddTool(
		mcp.NewTool("codespace_list",
			mcp.WithDescription(
				"List the durable codespaces of a user, newest first. Live values are "+
					"shown where a cache entry exists; no entries are created.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("owner_id",
				mcp.Required(),
				mcp.Description("UUID of the owning user"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of codespaces to return (default 10, max 100)"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of codespaces to skip for pagination"),
			),
		),
		s.handleList,
	)

	srv.AddTool(
		mcp.NewTool("share_token_verify",
			mcp.WithDescription(
				"Check a share token. Returns the codespace id it grants access to, the "+
					"access mode and the expiry, or an error when the token is invalid or expired.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("token",
				mcp.Required(),
				mcp.Description("The share token string"),
			),
		),
		s.handleVerifyToken,
	)

	// ----- Mutation tools -----

	srv.AddTool(
		mcp.NewTool("codespace_create_ephemeral",
			mcp.WithDescription(
				"Create an anonymous ephemeral codespace that lives only in the cache and "+
					"expires after the ephemeral window. Re-creating an existing id keeps "+
					"the stored code and only extends its lifetime.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id",
				mcp.Description("Optional id; \"tmp-\" is prepended when missing. Omit for a random id."),
			),
			mcp.WithString("code",
				mcp.Description("Initial code. Omit for the default snippet."),
			),
		),
		s.handleCreateEphemeral,
	)

	srv.AddTool(
		mcp.NewTool("codespace_set_code",
			mcp.WithDescription(
				"Write code to a live codespace. Only the cache entry changes; call "+
					"codespace_flush to persist a durable codespace. Fails when the "+
					"codespace has no live entry.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Codespace id (a UUID or a tmp- id)"),
			),
			mcp.WithString("code",
				mcp.Required(),
				mcp.Description("New code"),
			),
		),
		s.handleSetCode,
	)

	srv.AddTool(
		mcp.NewTool("codespace_flush",
			mcp.WithDescription(
				"Copy the live name and code of a durable codespace into the database. "+
					"Fails when the codespace has no live entry.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("UUID of a durable codespace"),
			),
		),
		s.handleFlush,
	)
}

// handleGet returns one codespace, ephemeral or durable.
func (s *MCPServer) handleGet(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}

	if codespace.IsEphemeralID(id) {
		e, err := s.ephemeral.Get(ctx, id)
		if err != nil {
			return codespaceError(id, err)
		}
		return successJSON(e.View())
	}

	cs, err := s.codespaces.Get(ctx, id)
	if err != nil {
		return codespaceError(id, err)
	}
	return successJSON(cs.View(ctx))
}

// handleList returns one page of a user's codespaces.
func (s *MCPServer) handleList(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	ownerID, err := requireString(request, "owner_id")
	if err != nil {
		return toolError("%v", err)
	}
	limit := clamp(optionalInt(request, "limit", 10), 1, 100)
	offset := optionalInt(request, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.codespaces.List(ctx, ownerID, limit, offset)
	if err != nil {
		return toolError("Failed to list codespaces: %v", err)
	}

	views := make([]model.CodeSpaceView, len(items))
	for i, cs := range items {
		views[i] = cs.View(ctx)
	}
	return successJSON(map[string]interface{}{
		"count":   total,
		"limit":   limit,
		"offset":  offset,
		"results": views,
	})
}

// handleVerifyToken decodes a share token.
func (s *MCPServer) handleVerifyToken(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	tok, err := requireString(request, "token")
	if err != nil {
		return toolError("%v", err)
	}
	claims, err := s.share.Resolve(tok)
	if err != nil {
		return toolError("Token is invalid or expired")
	}
	return successJSON(map[string]interface{}{
		"codespace_uuid": claims.SubjectID,
		"mode":           claims.Mode,
		"expires_at":     time.Unix(claims.ExpiresAt, 0).UTC().Format(time.RFC3339),
	})
}

// handleCreateEphemeral stores a new anonymous codespace.
func (s *MCPServer) handleCreateEphemeral(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id := optionalString(request, "id")
	var code *string
	if args := request.GetArguments(); args != nil {
		if _, ok := args["code"]; ok {
			c := optionalString(request, "code")
			code = &c
		}
	}

	e, err := s.ephemeral.Create(ctx, id, code)
	if err != nil {
		return toolError("Failed to create codespace: %v", err)
	}
	s.logger.Debug("ephemeral codespace created over mcp", "codespace", e.ID)
	return successJSON(e.View())
}

// handleSetCode writes code to the live entry of a codespace.
func (s *MCPServer) handleSetCode(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	code, err := requireString(request, "code")
	if err != nil {
		return toolError("%v", err)
	}

	if codespace.IsEphemeralID(id) {
		if err := s.ephemeral.SetCode(ctx, id, code); err != nil {
			return codespaceError(id, err)
		}
		return successJSON(model.CodeSpaceView{ID: id, Code: code, Ephemeral: true})
	}

	cs, err := s.codespaces.Find(ctx, id)
	if err != nil {
		return codespaceError(id, err)
	}
	if err := cs.SetCode(ctx, code); err != nil {
		return codespaceError(id, err)
	}
	return successJSON(cs.View(ctx))
}

// handleFlush persists the live values of a durable codespace.
func (s *MCPServer) handleFlush(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	if codespace.IsEphemeralID(id) {
		return toolError("Codespace %q is ephemeral and cannot be saved", id)
	}

	cs, err := s.codespaces.Flush(ctx, id)
	if err != nil {
		return codespaceError(id, err)
	}
	return successJSON(cs.View(ctx))
}

// codespaceError turns a codespace lookup failure into a message the client
// can act on.
func codespaceError(id string, err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, codespace.ErrNotCached):
		return toolError("Codespace %q has no live entry. Open it with codespace_get first.", id)
	case errors.Is(err, codespace.ErrNotFound):
		return toolError("Codespace %q not found", id)
	default:
		return toolError("Codespace %q: %v", id, err)
	}
}
