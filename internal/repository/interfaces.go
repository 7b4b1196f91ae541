// Package repository defines the storage-agnostic contracts consulted by
// the scheduler, queue builder, search compiler and card generator (spec §2
// "Repository layer").
package repository

import (
	"context"
	"database/sql"

	"github.com/mcp-anki/anki/internal/models"
)

// DeckRepository handles deck CRUD and configuration persistence.
type DeckRepository interface {
	Create(ctx context.Context, name string, parentID *int64, cfg models.DeckConfig) (int64, error)
	Get(ctx context.Context, id int64) (*models.Deck, error)
	GetByName(ctx context.Context, name string) (*models.Deck, error)
	List(ctx context.Context) ([]models.Deck, error)
	// Descendants returns the transitive closure of decks rooted at id,
	// including id itself (spec §4.3 "includeSubdecks").
	Descendants(ctx context.Context, id int64) ([]int64, error)
	// IsDescendant reports whether candidate is id or a descendant of id,
	// used to reject cyclic parent_id assignments (spec §9).
	IsDescendant(ctx context.Context, id int64, candidate int64) (bool, error)
	SetConfig(ctx context.Context, id int64, cfg models.DeckConfig) error
	CountChildren(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// NoteRepository handles note CRUD.
type NoteRepository interface {
	Create(ctx context.Context, note models.Note) (int64, error)
	Get(ctx context.Context, id int64) (*models.Note, error)
	AddTag(ctx context.Context, id int64, tag string) error
	FindByFrontBack(ctx context.Context, deckID int64, front, back string) (*models.Note, error)
	Delete(ctx context.Context, id int64) error
}

// CardRepository handles card CRUD, the queue's candidate selection, and
// the search compiler's execution surface.
type CardRepository interface {
	InsertBatch(ctx context.Context, cards []models.Card) ([]int64, error)
	Get(ctx context.Context, id int64) (*models.Card, error)
	GetWithNote(ctx context.Context, id int64) (*models.CardWithNote, error)
	Update(ctx context.Context, card models.Card) error
	// UpdateTx is Update run against an open transaction, used by the
	// answer-card use case so the card mutation and review-log insert
	// commit or roll back together (spec §5).
	UpdateTx(ctx context.Context, tx *sql.Tx, card models.Card) error
	SiblingsOf(ctx context.Context, cardID int64, noteID int64) ([]models.Card, error)
	// SiblingsOfTx is SiblingsOf run against an open transaction, used by
	// the answer-card use case so sibling burial reads a consistent view
	// inside the same transaction it writes to (spec §5).
	SiblingsOfTx(ctx context.Context, tx *sql.Tx, cardID int64, noteID int64) ([]models.Card, error)
	// DueInScope returns candidates matching spec §4.3's selection predicate,
	// already ordered by the priority rule, restricted to deckIDs (nil/empty
	// means all decks).
	DueInScope(ctx context.Context, deckIDs []int64, today int64) ([]models.Card, error)
	CountByStateInScope(ctx context.Context, deckIDs []int64, states []models.CardState, today int64, dueOnly bool) (int, error)
	// Search executes a compiled predicate (see internal/search) and
	// returns matching cards joined with their note, ordered due ASC, id
	// ASC, bounded by limit.
	Search(ctx context.Context, sqlWhere string, args []any, limit int) ([]models.CardWithNote, error)
	BulkSetState(ctx context.Context, ids []int64, state models.CardState) error
	// BulkSetStateTx is BulkSetState run against an open transaction, used
	// by the answer-card use case so sibling burial commits atomically
	// with the answered card's own update and review-log insert (spec §5).
	BulkSetStateTx(ctx context.Context, tx *sql.Tx, ids []int64, state models.CardState) error
	UnburyAll(ctx context.Context) error
	Delete(ctx context.Context, id int64) error
	// CountAnsweredSince reports how many reviews since sinceTS (epoch
	// seconds) began from CardState.StateNew (new cards introduced) versus
	// any other state (ordinary reviews), scoped to deckIDs. Used to
	// enforce DeckConfig.NewPerDay/ReviewsPerDay (spec §4.3).
	CountAnsweredSince(ctx context.Context, deckIDs []int64, sinceTS int64) (newCount, reviewCount int, err error)
}

// ReviewRepository handles the append-only review log. InsertTx accepts an
// open *sql.Tx so the caller (the card-update use case) can insert the
// review record atomically with the card mutation, per spec §5.
type ReviewRepository interface {
	InsertTx(ctx context.Context, tx *sql.Tx, review models.Review) (int64, error)
	ListByCard(ctx context.Context, cardID int64) ([]models.Review, error)
	CountSince(ctx context.Context, since int64) (int, error)
}

// MediaRepository handles deduplicated media blob records.
type MediaRepository interface {
	Upsert(ctx context.Context, m models.Media) (int64, error)
	GetByHash(ctx context.Context, hash string) (*models.Media, error)
}
