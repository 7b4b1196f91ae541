package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/scheduler"
)

// CardHandler exposes the review-loop and bulk state-transition tools:
// get_next_card, answer_card, card_info, suspend/unsuspend/bury/unbury,
// reset_cards and delete_cards (spec §6, §4.1-4.3).
type CardHandler struct {
	deps Deps
}

func (h *CardHandler) RegisterTools(s *server.MCPServer) error {
	next := mcp.NewTool("anki.get_next_card",
		mcp.WithDescription("Return the highest-priority due card in scope, or null if the queue is empty or the deck's per-day limits are exhausted (spec §4.3)."),
		mcp.WithNumber("deckId", mcp.Description("Restrict to this deck (and, if includeSubdecks, its descendants); omitted means every deck")),
		mcp.WithBoolean("includeSubdecks", mcp.Description("Include subdecks of deckId (default false)")),
	)
	s.AddTool(next, guard(h.deps, "anki.get_next_card", false, h.handleGetNextCard))

	answer := mcp.NewTool("anki.answer_card",
		mcp.WithDescription("Answer a due card with a rating (1=Again, 2=Hard, 3=Good, 4=Easy), scheduling its next state (spec §4.1)."),
		mcp.WithNumber("cardId", mcp.Required(), mcp.Description("Card id")),
		mcp.WithNumber("rating", mcp.Required(), mcp.Description("1-4")),
	)
	s.AddTool(answer, guard(h.deps, "anki.answer_card", true, h.handleAnswerCard))

	info := mcp.NewTool("anki.card_info",
		mcp.WithDescription("Get a card's full scheduling state joined with its note."),
		mcp.WithNumber("cardId", mcp.Required(), mcp.Description("Card id")),
	)
	s.AddTool(info, guard(h.deps, "anki.card_info", false, h.handleCardInfo))

	suspend := mcp.NewTool("anki.suspend_cards",
		mcp.WithDescription("Suspend one or more cards, removing them from the review queue until unsuspended."),
		mcp.WithArray("cardIds", mcp.Required(), mcp.Description("Card ids")),
	)
	s.AddTool(suspend, guard(h.deps, "anki.suspend_cards", true, h.handleSuspendCards))

	unsuspend := mcp.NewTool("anki.unsuspend_cards",
		mcp.WithDescription("Unsuspend one or more cards, returning never-reviewed cards to new and reviewed cards to review."),
		mcp.WithArray("cardIds", mcp.Required(), mcp.Description("Card ids")),
	)
	s.AddTool(unsuspend, guard(h.deps, "anki.unsuspend_cards", true, h.handleUnsuspendCards))

	bury := mcp.NewTool("anki.bury_cards",
		mcp.WithDescription("Bury one or more cards until the next day-rollover sweep."),
		mcp.WithArray("cardIds", mcp.Required(), mcp.Description("Card ids")),
	)
	s.AddTool(bury, guard(h.deps, "anki.bury_cards", true, h.handleBuryCards))

	unbury := mcp.NewTool("anki.unbury_cards",
		mcp.WithDescription("Unbury cards. With no cardIds, unbury every buried card (the day-rollover sweep's operation)."),
		mcp.WithArray("cardIds", mcp.Description("Card ids; omit to unbury all")),
	)
	s.AddTool(unbury, guard(h.deps, "anki.unbury_cards", true, h.handleUnburyCards))

	reset := mcp.NewTool("anki.reset_cards",
		mcp.WithDescription("Reset one or more cards to their as-generated state, clearing all scheduling progress."),
		mcp.WithArray("cardIds", mcp.Required(), mcp.Description("Card ids")),
	)
	s.AddTool(reset, guard(h.deps, "anki.reset_cards", true, h.handleResetCards))

	del := mcp.NewTool("anki.delete_cards",
		mcp.WithDescription("Permanently delete one or more cards."),
		mcp.WithArray("cardIds", mcp.Required(), mcp.Description("Card ids")),
	)
	s.AddTool(del, guard(h.deps, "anki.delete_cards", true, h.handleDeleteCards))

	return nil
}

func (h *CardHandler) handleGetNextCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID := optInt64Ptr(req, "deckId")
	includeSubdecks := optBool(req, "includeSubdecks", false)

	card, err := h.deps.Queue.NextCard(ctx, deckID, includeSubdecks, nowFunc())
	if err != nil {
		return nil, err
	}
	if card == nil {
		return jsonResult(map[string]any{"card": nil})
	}
	return jsonResult(map[string]any{"card": card})
}

func (h *CardHandler) handleAnswerCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cardID := optInt64Ptr(req, "cardId")
	if cardID == nil {
		return nil, apperrors.NewValidationError("cardId", "required")
	}
	ratingInt := optInt(req, "rating", 0)
	if ratingInt < int(scheduler.Again) || ratingInt > int(scheduler.Easy) {
		return nil, apperrors.NewBadRequestError("rating must be between 1 and 4")
	}

	result, err := h.deps.Answer.Answer(ctx, *cardID, scheduler.Rating(ratingInt), nowFunc(), nil)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{
		"card":              result.Card,
		"leechTagRequested": result.LeechTagRequested,
	})
}

func (h *CardHandler) handleCardInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cardID := optInt64Ptr(req, "cardId")
	if cardID == nil {
		return nil, apperrors.NewValidationError("cardId", "required")
	}
	card, err := h.deps.Cards.GetWithNote(ctx, *cardID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if card == nil {
		return nil, apperrors.NewNotFoundError("card", *cardID)
	}
	return jsonResult(card)
}

func (h *CardHandler) handleSuspendCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := optInt64Slice(req, "cardIds")
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("cardIds", "required")
	}
	if err := h.deps.Cards.BulkSetState(ctx, ids, models.StateSuspended); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return jsonResult(map[string]any{"updated": len(ids)})
}

func (h *CardHandler) handleUnsuspendCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := optInt64Slice(req, "cardIds")
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("cardIds", "required")
	}
	n, err := h.transformEach(ctx, ids, scheduler.Unsuspend)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"updated": n})
}

func (h *CardHandler) handleBuryCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := optInt64Slice(req, "cardIds")
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("cardIds", "required")
	}
	n, err := h.transformEach(ctx, ids, scheduler.Bury)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"updated": n})
}

func (h *CardHandler) handleUnburyCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := optInt64Slice(req, "cardIds")
	if len(ids) == 0 {
		if err := h.deps.Cards.UnburyAll(ctx); err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		return jsonResult(map[string]any{"unburiedAll": true})
	}
	n, err := h.transformEach(ctx, ids, scheduler.Unbury)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"updated": n})
}

func (h *CardHandler) handleResetCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := optInt64Slice(req, "cardIds")
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("cardIds", "required")
	}
	n, err := h.transformEach(ctx, ids, scheduler.Reset)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"updated": n})
}

func (h *CardHandler) handleDeleteCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := optInt64Slice(req, "cardIds")
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("cardIds", "required")
	}
	for _, id := range ids {
		if err := h.deps.Cards.Delete(ctx, id); err != nil {
			return nil, apperrors.NewStorageError(err)
		}
	}
	return jsonResult(map[string]any{"deleted": len(ids)})
}

// transformEach applies a per-card scheduler.State transform (Unsuspend,
// Bury, Unbury, Reset) that depends on the card's own Reps/State, so it
// cannot be expressed as a single BulkSetState call.
func (h *CardHandler) transformEach(ctx context.Context, ids []int64, transform func(models.Card) models.Card) (int, error) {
	n := 0
	for _, id := range ids {
		card, err := h.deps.Cards.Get(ctx, id)
		if err != nil {
			return n, apperrors.NewStorageError(err)
		}
		if card == nil {
			continue
		}
		next := transform(*card)
		if err := h.deps.Cards.Update(ctx, next); err != nil {
			return n, apperrors.NewStorageError(err)
		}
		n++
	}
	return n, nil
}
