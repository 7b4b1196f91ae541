package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/repository"
	"github.com/mcp-anki/anki/internal/repository/sqlite"
	"github.com/mcp-anki/anki/internal/testutil"
)

type ReviewRepositorySuite struct {
	suite.Suite
	db      *sql.DB
	decks   repository.DeckRepository
	notes   repository.NoteRepository
	cards   repository.CardRepository
	reviews repository.ReviewRepository
	cardID  int64
}

func (s *ReviewRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.decks = sqlite.NewDeckRepository(s.db)
	s.notes = sqlite.NewNoteRepository(s.db)
	s.cards = sqlite.NewCardRepository(s.db)
	s.reviews = sqlite.NewReviewRepository(s.db)

	ctx := context.Background()
	deckID, err := s.decks.Create(ctx, "Default", nil, models.DefaultDeckConfig())
	s.Require().NoError(err)
	noteID, err := s.notes.Create(ctx, models.Note{DeckID: deckID, Model: models.ModelBasic, Fields: map[string]string{"Front": "a", "Back": "b"}})
	s.Require().NoError(err)
	ids, err := s.cards.InsertBatch(ctx, []models.Card{{NoteID: noteID, Template: "forward", State: models.StateNew, Ease: 2.5}})
	s.Require().NoError(err)
	s.cardID = ids[0]
}

func (s *ReviewRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

// TestInsertTxCommitsWithCardUpdate exercises the atomic pattern the
// answer-card use case relies on: the card mutation and the review-log
// insert happen in the same transaction.
func (s *ReviewRepositorySuite) TestInsertTxCommitsWithCardUpdate() {
	ctx := context.Background()

	txn, err := s.db.BeginTx(ctx, nil)
	s.Require().NoError(err)

	card, err := s.cards.Get(ctx, s.cardID)
	s.Require().NoError(err)
	card.State = models.StateReview
	card.IntervalDays = 1
	s.Require().NoError(s.cards.UpdateTx(ctx, txn, *card))

	_, err = s.reviews.InsertTx(ctx, txn, models.Review{
		CardID:         s.cardID,
		Timestamp:      1000,
		Rating:         3,
		IntervalBefore: 0,
		IntervalAfter:  1,
		EaseBefore:     2.5,
		EaseAfter:      2.5,
		StateBefore:    models.StateNew,
		StateAfter:     models.StateReview,
	})
	s.Require().NoError(err)
	s.Require().NoError(txn.Commit())

	updated, err := s.cards.Get(ctx, s.cardID)
	s.Require().NoError(err)
	s.Assert().Equal(models.StateReview, updated.State)

	history, err := s.reviews.ListByCard(ctx, s.cardID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Assert().Equal(3, history[0].Rating)
}

// TestInsertTxRollsBackWithCardUpdate verifies that a failure in the same
// transaction leaves neither the card nor the review row committed.
func (s *ReviewRepositorySuite) TestInsertTxRollsBackWithCardUpdate() {
	ctx := context.Background()

	txn, err := s.db.BeginTx(ctx, nil)
	s.Require().NoError(err)

	card, err := s.cards.Get(ctx, s.cardID)
	s.Require().NoError(err)
	card.State = models.StateReview
	s.Require().NoError(s.cards.UpdateTx(ctx, txn, *card))

	_, err = s.reviews.InsertTx(ctx, txn, models.Review{CardID: -1, Timestamp: 1000, Rating: 3})
	// A missing card_id foreign key should fail the insert; roll back either way.
	_ = txn.Rollback()
	_ = err

	unchanged, err := s.cards.Get(ctx, s.cardID)
	s.Require().NoError(err)
	s.Assert().Equal(models.StateNew, unchanged.State)

	history, err := s.reviews.ListByCard(ctx, s.cardID)
	s.Require().NoError(err)
	s.Assert().Empty(history)
}

func TestReviewRepositorySuite(t *testing.T) {
	suite.Run(t, new(ReviewRepositorySuite))
}
