// Package queue implements the queue builder: resolving a deck scope
// (including optional subdeck traversal), applying per-day new/review
// limits, and picking the next due card (spec §4.3).
package queue

import (
	"context"
	"time"

	"github.com/mcp-anki/anki/internal/cardgen"
	"github.com/mcp-anki/anki/internal/epochday"
	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/logger"
	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/repository"
)

// Builder resolves the review queue against the repository layer.
type Builder struct {
	Decks   repository.DeckRepository
	Cards   repository.CardRepository
	Reviews repository.ReviewRepository
}

// NewBuilder constructs a Builder over the given repositories.
func NewBuilder(decks repository.DeckRepository, cards repository.CardRepository, reviews repository.ReviewRepository) *Builder {
	return &Builder{Decks: decks, Cards: cards, Reviews: reviews}
}

// scope resolves a deck id + includeSubdecks flag into the set of deck ids
// in play and the DeckConfig governing per-day limits. deckID == nil means
// "every deck," which uses the built-in defaults for limits (an aggregate
// view has no single owning config).
func (b *Builder) scope(ctx context.Context, deckID *int64, includeSubdecks bool) ([]int64, models.DeckConfig, error) {
	if deckID == nil {
		return nil, models.DefaultDeckConfig(), nil
	}
	deck, err := b.Decks.Get(ctx, *deckID)
	if err != nil {
		return nil, models.DeckConfig{}, err
	}
	if deck == nil {
		return nil, models.DeckConfig{}, apperrors.NewNotFoundError("deck", *deckID)
	}
	if !includeSubdecks {
		return []int64{*deckID}, deck.Config, nil
	}
	ids, err := b.Decks.Descendants(ctx, *deckID)
	if err != nil {
		return nil, models.DeckConfig{}, err
	}
	return ids, deck.Config, nil
}

// NextCard returns the highest-priority due card in scope, or nil if the
// queue is empty or the deck's per-day limits are exhausted (spec §4.3).
func (b *Builder) NextCard(ctx context.Context, deckID *int64, includeSubdecks bool, now time.Time) (*models.CardWithNote, error) {
	log := logger.FromContext(ctx).WithPrefix("queue")

	deckIDs, cfg, err := b.scope(ctx, deckID, includeSubdecks)
	if err != nil {
		return nil, err
	}

	today := epochday.FromTime(now)
	dayStart := epochday.ToTime(today).Unix()

	newDoneToday, reviewsDoneToday, err := b.Cards.CountAnsweredSince(ctx, deckIDs, dayStart)
	if err != nil {
		return nil, err
	}

	due, err := b.Cards.DueInScope(ctx, deckIDs, today)
	if err != nil {
		return nil, err
	}

	for _, c := range due {
		if c.State == models.StateNew {
			if cfg.NewPerDay > 0 && newDoneToday >= cfg.NewPerDay {
				continue
			}
		} else if c.State == models.StateReview {
			if cfg.ReviewsPerDay > 0 && reviewsDoneToday >= cfg.ReviewsPerDay {
				continue
			}
		}
		// learning/relearning cards are never limited: spec §4.3 treats
		// them as time-sensitive and exempt from the daily caps.
		cwn, err := b.Cards.GetWithNote(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		cwn.Question = cardgen.RenderQuestion(*cwn)
		return cwn, nil
	}

	log.Debug("queue empty for scope=%v", deckIDs)
	return nil, nil
}

// Counts reports how many cards remain to review in scope right now,
// after applying the deck's per-day limits (spec §4.3).
func (b *Builder) Counts(ctx context.Context, deckID *int64, includeSubdecks bool, now time.Time) (models.QueueCounts, error) {
	deckIDs, cfg, err := b.scope(ctx, deckID, includeSubdecks)
	if err != nil {
		return models.QueueCounts{}, err
	}

	today := epochday.FromTime(now)
	dayStart := epochday.ToTime(today).Unix()

	newDoneToday, reviewsDoneToday, err := b.Cards.CountAnsweredSince(ctx, deckIDs, dayStart)
	if err != nil {
		return models.QueueCounts{}, err
	}

	learningDue, err := b.Cards.CountByStateInScope(ctx, deckIDs, []models.CardState{models.StateLearning, models.StateRelearning}, today, true)
	if err != nil {
		return models.QueueCounts{}, err
	}
	newDue, err := b.Cards.CountByStateInScope(ctx, deckIDs, []models.CardState{models.StateNew}, today, true)
	if err != nil {
		return models.QueueCounts{}, err
	}
	reviewDue, err := b.Cards.CountByStateInScope(ctx, deckIDs, []models.CardState{models.StateReview}, today, true)
	if err != nil {
		return models.QueueCounts{}, err
	}

	newRemaining := newDue
	if cfg.NewPerDay > 0 {
		remaining := cfg.NewPerDay - newDoneToday
		if remaining < 0 {
			remaining = 0
		}
		if remaining < newRemaining {
			newRemaining = remaining
		}
	}

	reviewsRemaining := reviewDue + learningDue
	if cfg.ReviewsPerDay > 0 {
		remaining := cfg.ReviewsPerDay - reviewsDoneToday
		if remaining < 0 {
			remaining = 0
		}
		if remaining+learningDue < reviewsRemaining {
			reviewsRemaining = remaining + learningDue
		}
	}

	return models.QueueCounts{NewRemaining: newRemaining, ReviewsRemaining: reviewsRemaining}, nil
}

// UnburyAllJob is the maintenance job the worker pool runs on day
// rollover, moving every buried card back into circulation (spec §4.9).
type UnburyAllJob struct {
	Cards repository.CardRepository
}

// Run implements worker.Job.
func (j UnburyAllJob) Run(ctx context.Context) error {
	logger.FromContext(ctx).WithPrefix("queue").Info("running day-rollover unbury sweep")
	return j.Cards.UnburyAll(ctx)
}

// Name implements worker.Job.
func (j UnburyAllJob) Name() string {
	return "unbury-all"
}
