package mcpserver

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-anki/anki/internal/cardgen"
	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/epochday"
	"github.com/mcp-anki/anki/internal/importexport"
	"github.com/mcp-anki/anki/internal/models"
)

const defaultExportLimit = 100000

// ImportExportHandler exposes import and export over the CSV/TSV, JSON
// and Markdown formats (spec §4.7).
type ImportExportHandler struct {
	deps Deps
}

func (h *ImportExportHandler) RegisterTools(s *server.MCPServer) error {
	importTool := mcp.NewTool("anki.import",
		mcp.WithDescription("Import notes from csv, tsv, json or markdown data. Duplicate (deck, Front, Back) records are skipped, not fatal; every other bad record is collected in errors and does not abort the batch (spec §4.7)."),
		mcp.WithString("format", mcp.Required(), mcp.Description("csv | tsv | json | markdown")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Raw import data")),
		mcp.WithBoolean("dryRun", mcp.Description("Validate and count without persisting (default false)")),
	)
	s.AddTool(importTool, guard(h.deps, "anki.import", true, h.handleImport))

	exportTool := mcp.NewTool("anki.export",
		mcp.WithDescription("Export cards as csv, json or markdown, deduplicated by note."),
		mcp.WithString("format", mcp.Required(), mcp.Description("csv | json | markdown")),
		mcp.WithNumber("deckId", mcp.Description("Restrict export to this deck; omitted means every deck")),
	)
	s.AddTool(exportTool, guard(h.deps, "anki.export", false, h.handleExport))

	return nil
}

func (h *ImportExportHandler) handleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return nil, apperrors.NewValidationError("format", "required")
	}
	data, err := req.RequireString("data")
	if err != nil {
		return nil, apperrors.NewValidationError("data", "required")
	}
	dryRun := optBool(req, "dryRun", false)

	var records []importexport.Record
	switch strings.ToLower(format) {
	case "csv":
		records, err = importexport.ParseCSV(strings.NewReader(data), ',')
	case "tsv":
		records, err = importexport.ParseCSV(strings.NewReader(data), '\t')
	case "json":
		records, err = importexport.ParseJSON(strings.NewReader(data))
	case "markdown", "md":
		records, err = importexport.ParseMarkdown(strings.NewReader(data))
	default:
		return nil, apperrors.NewBadRequestError("unknown import format: " + format)
	}
	if err != nil {
		return nil, err
	}

	imp := &importexport.Importer{
		Decks: importexport.NewDeckResolver(h.deps.Decks),
		Notes: h.deps.Notes,
		Cards: h.deps.Cards,
	}
	today := epochday.Today(nowFunc())
	result, err := imp.Apply(ctx, records, today, cardgen.Generate, dryRun)
	if err != nil {
		return nil, err
	}

	errs := make([]map[string]any, len(result.Errors))
	for i, re := range result.Errors {
		errs[i] = map[string]any{"line": re.Line, "error": re.Err.Error()}
	}
	return jsonResult(map[string]any{
		"insertedNotes": result.Created,
		"skipped":       result.Skipped,
		"errors":        errs,
		"dryRun":        result.DryRun,
	})
}

func (h *ImportExportHandler) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return nil, apperrors.NewValidationError("format", "required")
	}
	where := "1 = 1"
	var args []any
	if deckID := optInt64Ptr(req, "deckId"); deckID != nil {
		deck, err := h.deps.Decks.Get(ctx, *deckID)
		if err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		if deck == nil {
			return nil, apperrors.NewNotFoundError("deck", *deckID)
		}
		where, args = "n.deck_id = ?", []any{deck.ID}
	}

	cards, err := h.deps.Cards.Search(ctx, where, args, defaultExportLimit)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	var buf strings.Builder
	switch strings.ToLower(format) {
	case "csv":
		err = importexport.ExportCSV(&buf, cards)
	case "json":
		err = importexport.ExportJSON(&buf, cards)
	case "markdown", "md":
		err = importexport.ExportMarkdown(&buf, cards)
	default:
		return nil, apperrors.NewBadRequestError("unknown export format: " + format)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	return jsonResult(map[string]any{"format": format, "count": countDistinctNotes(cards), "data": buf.String()})
}

func countDistinctNotes(cards []models.CardWithNote) int {
	seen := make(map[int64]bool)
	for _, c := range cards {
		seen[c.NoteID] = true
	}
	return len(seen)
}
