package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/search"
)

const defaultSearchLimit = 100

// SearchHandler exposes search_cards (spec §4.4).
type SearchHandler struct {
	deps Deps
}

func (h *SearchHandler) RegisterTools(s *server.MCPServer) error {
	searchTool := mcp.NewTool("anki.search_cards",
		mcp.WithDescription("Search cards using the Anki-style query language: deck:, tag:, is:, rated:, note:, prop:, bare text, - negation, quoted spans. All terms are ANDed (spec §4.4)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 100)")),
	)
	s.AddTool(searchTool, guard(h.deps, "anki.search_cards", false, h.handleSearch))
	return nil
}

func (h *SearchHandler) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return nil, apperrors.NewValidationError("query", "required")
	}
	limit := optInt(req, "limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	where, args, err := search.Compile(query, nowFunc())
	if err != nil {
		return nil, err
	}
	cards, err := h.deps.Cards.Search(ctx, where, args, limit)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return jsonResult(map[string]any{"cards": cards, "count": len(cards)})
}
