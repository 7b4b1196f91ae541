package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-anki/anki/internal/deckconfig"
	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
)

// DeckHandler exposes create_deck, list_decks and the config_get/set/reset
// trio (spec §6, §4.5).
type DeckHandler struct {
	deps Deps
}

func (h *DeckHandler) RegisterTools(s *server.MCPServer) error {
	create := mcp.NewTool("anki.create_deck",
		mcp.WithDescription("Create a deck, optionally nested under a parent deck (name::subname convention is caller-managed)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Deck name, e.g. \"Spanish::Basics\"")),
		mcp.WithNumber("parentId", mcp.Description("Optional parent deck id")),
	)
	s.AddTool(create, guard(h.deps, "anki.create_deck", true, h.handleCreateDeck))

	list := mcp.NewTool("anki.list_decks",
		mcp.WithDescription("List every deck. flat=true (default) returns a plain list; flat=false nests children under their parent."),
		mcp.WithBoolean("flat", mcp.Description("Return a flat list instead of a nested tree (default true)")),
	)
	s.AddTool(list, guard(h.deps, "anki.list_decks", false, h.handleListDecks))

	get := mcp.NewTool("anki.config_get",
		mcp.WithDescription("Get a deck's effective scheduling configuration."),
		mcp.WithNumber("deckId", mcp.Required(), mcp.Description("Deck id")),
	)
	s.AddTool(get, guard(h.deps, "anki.config_get", false, h.handleConfigGet))

	set := mcp.NewTool("anki.config_set",
		mcp.WithDescription("Patch a deck's configuration; only the fields present in patch are changed (spec §4.5 defaults ⊕ stored ⊕ patch)."),
		mcp.WithNumber("deckId", mcp.Required(), mcp.Description("Deck id")),
		mcp.WithObject("patch", mcp.Required(), mcp.Description("Partial DeckConfig JSON object")),
	)
	s.AddTool(set, guard(h.deps, "anki.config_set", true, h.handleConfigSet))

	reset := mcp.NewTool("anki.config_reset",
		mcp.WithDescription("Reset a deck's configuration to the built-in defaults."),
		mcp.WithNumber("deckId", mcp.Required(), mcp.Description("Deck id")),
	)
	s.AddTool(reset, guard(h.deps, "anki.config_reset", true, h.handleConfigReset))

	del := mcp.NewTool("anki.delete_deck",
		mcp.WithDescription("Delete a deck. Refused if it has child decks."),
		mcp.WithNumber("deckId", mcp.Required(), mcp.Description("Deck id")),
	)
	s.AddTool(del, guard(h.deps, "anki.delete_deck", true, h.handleDeleteDeck))

	return nil
}

func (h *DeckHandler) handleCreateDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return nil, apperrors.NewValidationError("name", "required")
	}
	parentID := optInt64Ptr(req, "parentId")

	if parentID != nil {
		parent, err := h.deps.Decks.Get(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, apperrors.NewNotFoundError("deck", *parentID)
		}
	}

	id, err := h.deps.Decks.Create(ctx, name, parentID, models.DefaultDeckConfig())
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return jsonResult(map[string]any{"deckId": id, "name": name})
}

func (h *DeckHandler) handleListDecks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	decks, err := h.deps.Decks.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	flat := optBool(req, "flat", true)
	if flat {
		out := make([]deckView, len(decks))
		for i, d := range decks {
			out[i] = toDeckView(d)
		}
		return jsonResult(out)
	}
	return jsonResult(buildDeckTree(decks, nil))
}

type deckView struct {
	DeckID   int64             `json:"deckId"`
	Name     string            `json:"name"`
	ParentID *int64            `json:"parentId"`
	Config   models.DeckConfig `json:"config"`
}

func toDeckView(d models.Deck) deckView {
	return deckView{DeckID: d.ID, Name: d.Name, ParentID: d.ParentID, Config: d.Config}
}

type deckNode struct {
	deckView
	Children []deckNode `json:"children,omitempty"`
}

func buildDeckTree(decks []models.Deck, parentID *int64) []deckNode {
	var nodes []deckNode
	for _, d := range decks {
		if !sameParent(d.ParentID, parentID) {
			continue
		}
		nodes = append(nodes, deckNode{deckView: toDeckView(d), Children: buildDeckTree(decks, &d.ID)})
	}
	return nodes
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (h *DeckHandler) handleConfigGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID := optInt64Ptr(req, "deckId")
	if deckID == nil {
		return nil, apperrors.NewValidationError("deckId", "required")
	}
	deck, err := h.deps.Decks.Get(ctx, *deckID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if deck == nil {
		return nil, apperrors.NewNotFoundError("deck", *deckID)
	}
	return jsonResult(deck.Config)
}

func (h *DeckHandler) handleConfigSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID := optInt64Ptr(req, "deckId")
	if deckID == nil {
		return nil, apperrors.NewValidationError("deckId", "required")
	}
	deck, err := h.deps.Decks.Get(ctx, *deckID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if deck == nil {
		return nil, apperrors.NewNotFoundError("deck", *deckID)
	}

	raw, err := marshalArg(req, "patch")
	if err != nil {
		return nil, err
	}
	patch, err := deckconfig.ParsePatch(raw)
	if err != nil {
		return nil, err
	}
	merged := deckconfig.Merge(deck.Config, patch)
	if err := deckconfig.Validate(merged); err != nil {
		return nil, err
	}
	if err := h.deps.Decks.SetConfig(ctx, *deckID, merged); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return jsonResult(merged)
}

func (h *DeckHandler) handleConfigReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID := optInt64Ptr(req, "deckId")
	if deckID == nil {
		return nil, apperrors.NewValidationError("deckId", "required")
	}
	deck, err := h.deps.Decks.Get(ctx, *deckID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if deck == nil {
		return nil, apperrors.NewNotFoundError("deck", *deckID)
	}
	defaults := models.DefaultDeckConfig()
	if err := h.deps.Decks.SetConfig(ctx, *deckID, defaults); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return jsonResult(defaults)
}

func (h *DeckHandler) handleDeleteDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID := optInt64Ptr(req, "deckId")
	if deckID == nil {
		return nil, apperrors.NewValidationError("deckId", "required")
	}
	children, err := h.deps.Decks.CountChildren(ctx, *deckID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if children > 0 {
		return nil, apperrors.NewInvalidStateError("cannot delete a deck with child decks")
	}
	if err := h.deps.Decks.Delete(ctx, *deckID); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return jsonResult(map[string]any{"deleted": true})
}
