// Package reviewuc orchestrates the answer_card use case: run the pure
// scheduler.Schedule function, then persist the card mutation, the
// review-log row, and sibling burial atomically in one transaction (spec
// §5's ordering guarantee), then apply the leech tag the scheduler leaves
// as the caller's responsibility (spec §4.1, §9).
package reviewuc

import (
	"context"
	"database/sql"
	"math/rand"
	"time"

	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/repository"
	"github.com/mcp-anki/anki/internal/scheduler"
	"github.com/mcp-anki/anki/internal/store"
)

// AnswerUseCase wires the scheduler to storage for a single answer_card call.
type AnswerUseCase struct {
	Store   *store.Store
	Decks   repository.DeckRepository
	Notes   repository.NoteRepository
	Cards   repository.CardRepository
	Reviews repository.ReviewRepository
}

// Answer schedules cardID's next state under rating and commits the card
// mutation, review-log row, and sibling burial in one transaction (spec
// §5). It then applies leech tagging, which is not part of the atomic
// core but must still take effect before the call returns.
func (uc *AnswerUseCase) Answer(ctx context.Context, cardID int64, rating scheduler.Rating, now time.Time, rng *rand.Rand) (scheduler.Result, error) {
	card, err := uc.Cards.Get(ctx, cardID)
	if err != nil {
		return scheduler.Result{}, err
	}
	if card == nil {
		return scheduler.Result{}, apperrors.NewNotFoundError("card", cardID)
	}
	if card.State == models.StateSuspended || card.State == models.StateBuried {
		return scheduler.Result{}, apperrors.NewInvalidStateError("cannot answer a card in state " + string(card.State))
	}

	note, err := uc.Notes.Get(ctx, card.NoteID)
	if err != nil {
		return scheduler.Result{}, err
	}
	if note == nil {
		return scheduler.Result{}, apperrors.NewNotFoundError("note", card.NoteID)
	}
	deck, err := uc.Decks.Get(ctx, note.DeckID)
	if err != nil {
		return scheduler.Result{}, err
	}
	if deck == nil {
		return scheduler.Result{}, apperrors.NewNotFoundError("deck", note.DeckID)
	}

	result, err := scheduler.Schedule(*card, rating, now, deck.Config, rng)
	if err != nil {
		return scheduler.Result{}, err
	}

	review := models.Review{
		CardID:         cardID,
		Timestamp:      now.Unix(),
		Rating:         int(rating),
		IntervalBefore: result.Before.Interval,
		IntervalAfter:  result.After.Interval,
		EaseBefore:     result.Before.Ease,
		EaseAfter:      result.After.Ease,
		StateBefore:    result.Before.State,
		StateAfter:     result.After.State,
	}

	err = uc.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := uc.Cards.UpdateTx(ctx, tx, result.Card); err != nil {
			return apperrors.NewStorageError(err)
		}
		if _, err := uc.Reviews.InsertTx(ctx, tx, review); err != nil {
			return apperrors.NewStorageError(err)
		}
		if deck.Config.BurySiblings {
			if err := uc.burySiblingsTx(ctx, tx, cardID, note.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return scheduler.Result{}, err
	}

	if result.LeechTagRequested {
		if err := uc.Notes.AddTag(ctx, note.ID, "leech"); err != nil {
			return result, apperrors.NewStorageError(err)
		}
	}

	return result, nil
}

// burySiblingsTx buries cardID's non-suspended siblings using the same
// transaction as the review commit, per spec §5's ordering guarantee that
// sibling burial is part of the same atomic unit as the answered card's
// state change and review-log row.
func (uc *AnswerUseCase) burySiblingsTx(ctx context.Context, tx *sql.Tx, cardID, noteID int64) error {
	siblings, err := uc.Cards.SiblingsOfTx(ctx, tx, cardID, noteID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	var toBury []int64
	for _, s := range siblings {
		if s.State != models.StateSuspended {
			toBury = append(toBury, s.ID)
		}
	}
	if len(toBury) == 0 {
		return nil
	}
	if err := uc.Cards.BulkSetStateTx(ctx, tx, toBury, models.StateBuried); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}
