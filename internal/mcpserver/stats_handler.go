package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StatsHandler exposes the stats tool, a thin wrapper around the queue
// builder's counts (spec §4.3).
type StatsHandler struct {
	deps Deps
}

func (h *StatsHandler) RegisterTools(s *server.MCPServer) error {
	stats := mcp.NewTool("anki.stats",
		mcp.WithDescription("Report how many new and review cards remain due right now, after applying the deck's per-day limits."),
		mcp.WithNumber("deckId", mcp.Description("Restrict to this deck; omitted means every deck")),
		mcp.WithBoolean("includeSubdecks", mcp.Description("Include subdecks of deckId (default false)")),
	)
	s.AddTool(stats, guard(h.deps, "anki.stats", false, h.handleStats))
	return nil
}

func (h *StatsHandler) handleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID := optInt64Ptr(req, "deckId")
	includeSubdecks := optBool(req, "includeSubdecks", false)

	counts, err := h.deps.Queue.Counts(ctx, deckID, includeSubdecks, nowFunc())
	if err != nil {
		return nil, err
	}
	return jsonResult(counts)
}
