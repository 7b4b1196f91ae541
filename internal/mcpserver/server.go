// Package mcpserver registers mcp-anki's tool surface against
// github.com/mark3labs/mcp-go, one Handler struct per subsystem, grounded
// on mycelian-ai-mycelian-memory/mcp's RegisterTools(*server.MCPServer)
// convention (spec §6.1). Every tool is named under the anki. prefix and
// carries a mutating flag consulted by the readonly gate.
package mcpserver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/logger"
	"github.com/mcp-anki/anki/internal/queue"
	"github.com/mcp-anki/anki/internal/repository"
	"github.com/mcp-anki/anki/internal/reviewuc"
)

// Deps bundles everything a Handler needs: the repository layer, the
// higher-level components built on top of it, and the readonly flag the
// gate consults.
type Deps struct {
	Decks    repository.DeckRepository
	Notes    repository.NoteRepository
	Cards    repository.CardRepository
	Reviews  repository.ReviewRepository
	Media    repository.MediaRepository
	Queue    *queue.Builder
	Answer   *reviewuc.AnswerUseCase
	Readonly bool
}

// toolRegisterer is implemented by every subsystem Handler.
type toolRegisterer interface {
	RegisterTools(s *server.MCPServer) error
}

// New builds the MCP server and registers every subsystem's tools.
func New(name, version string, deps Deps) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
	)

	handlers := []struct {
		name string
		h    toolRegisterer
	}{
		{"deck", &DeckHandler{deps: deps}},
		{"note", &NoteHandler{deps: deps}},
		{"card", &CardHandler{deps: deps}},
		{"search", &SearchHandler{deps: deps}},
		{"importexport", &ImportExportHandler{deps: deps}},
		{"stats", &StatsHandler{deps: deps}},
	}
	for _, entry := range handlers {
		if err := entry.h.RegisterTools(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// toolHandlerFunc is the mcp-go handler signature every subsystem method
// implements.
type toolHandlerFunc func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// nowFunc is the wall clock every handler reads "today" through; tests
// replace it to make card generation and scheduling deterministic.
var nowFunc = time.Now

// guard wraps fn with a per-call correlation id (logged so every tool
// invocation's log lines can be correlated end to end, spec §6.1) and,
// for mutating tools, the readonly gate (spec §7 ReadonlyRefused).
func guard(deps Deps, toolName string, mutating bool, fn toolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		correlationID := uuid.NewString()
		log := logger.FromContext(ctx).WithPrefix("mcpserver").WithField("tool", toolName).WithField("correlation_id", correlationID)
		ctx = logger.NewContext(ctx, log)

		if mutating && deps.Readonly {
			log.Warn("refused mutating tool call: server is running in readonly mode")
			return errResult(apperrors.NewReadonlyError(toolName))
		}

		log.Debug("dispatching tool call")
		result, err := fn(ctx, req)
		if err != nil {
			log.Error("tool call failed: %v", err)
			return errResult(err)
		}
		log.Debug("tool call completed")
		return result, nil
	}
}
