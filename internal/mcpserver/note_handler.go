package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-anki/anki/internal/cardgen"
	"github.com/mcp-anki/anki/internal/epochday"
	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
)

// NoteHandler exposes add_note and generate_cards_for_note (spec §6, §4.6).
type NoteHandler struct {
	deps Deps
}

func (h *NoteHandler) RegisterTools(s *server.MCPServer) error {
	addNote := mcp.NewTool("anki.add_note",
		mcp.WithDescription("Add a note to a deck. fields is model-specific: basic/basic_reverse expect Front/Back, cloze expects Text, custom expects one or more Template:<name> fields."),
		mcp.WithNumber("deckId", mcp.Required(), mcp.Description("Deck id")),
		mcp.WithString("model", mcp.Required(), mcp.Description("basic | basic_reverse | cloze | custom")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Note field map")),
		mcp.WithArray("tags", mcp.Description("Optional tags"), mcp.WithStringItems()),
	)
	s.AddTool(addNote, guard(h.deps, "anki.add_note", true, h.handleAddNote))

	generate := mcp.NewTool("anki.generate_cards_for_note",
		mcp.WithDescription("Generate and persist the cards a note mints, per its note model (spec §4.6)."),
		mcp.WithNumber("noteId", mcp.Required(), mcp.Description("Note id")),
	)
	s.AddTool(generate, guard(h.deps, "anki.generate_cards_for_note", true, h.handleGenerateCards))

	addTag := mcp.NewTool("anki.add_note_tag",
		mcp.WithDescription("Add a tag to a note, idempotently."),
		mcp.WithNumber("noteId", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag to add")),
	)
	s.AddTool(addTag, guard(h.deps, "anki.add_note_tag", true, h.handleAddTag))

	return nil
}

func (h *NoteHandler) handleAddNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID := optInt64Ptr(req, "deckId")
	if deckID == nil {
		return nil, apperrors.NewValidationError("deckId", "required")
	}
	model, err := req.RequireString("model")
	if err != nil {
		return nil, apperrors.NewValidationError("model", "required")
	}
	fields := optStringMap(req, "fields")
	if fields == nil {
		return nil, apperrors.NewValidationError("fields", "required")
	}
	tags := optStringSlice(req, "tags")

	deck, err := h.deps.Decks.Get(ctx, *deckID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if deck == nil {
		return nil, apperrors.NewNotFoundError("deck", *deckID)
	}

	note := models.Note{DeckID: *deckID, Model: models.NoteModel(model), Fields: fields, Tags: tags}
	noteID, err := h.deps.Notes.Create(ctx, note)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return jsonResult(map[string]any{"noteId": noteID})
}

func (h *NoteHandler) handleGenerateCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID := optInt64Ptr(req, "noteId")
	if noteID == nil {
		return nil, apperrors.NewValidationError("noteId", "required")
	}
	note, err := h.deps.Notes.Get(ctx, *noteID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if note == nil {
		return nil, apperrors.NewNotFoundError("note", *noteID)
	}

	today := epochday.Today(nowFunc())
	cards, err := cardgen.Generate(*note, today)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].NoteID = *noteID
	}
	ids, err := h.deps.Cards.InsertBatch(ctx, cards)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	for i := range cards {
		cards[i].ID = ids[i]
	}
	return jsonResult(map[string]any{"cards": cards})
}

func (h *NoteHandler) handleAddTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID := optInt64Ptr(req, "noteId")
	if noteID == nil {
		return nil, apperrors.NewValidationError("noteId", "required")
	}
	tag, err := req.RequireString("tag")
	if err != nil {
		return nil, apperrors.NewValidationError("tag", "required")
	}
	if err := h.deps.Notes.AddTag(ctx, *noteID, tag); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return jsonResult(map[string]any{"tagged": true})
}
