package queue_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcp-anki/anki/internal/epochday"
	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/queue"
	"github.com/mcp-anki/anki/internal/repository/sqlite"
	"github.com/mcp-anki/anki/internal/testutil"
)

type QueueSuite struct {
	suite.Suite
	db      *sql.DB
	builder *queue.Builder
	deckID  int64
	noteID  int64
}

func (s *QueueSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	decks := sqlite.NewDeckRepository(s.db)
	notes := sqlite.NewNoteRepository(s.db)
	cards := sqlite.NewCardRepository(s.db)
	reviews := sqlite.NewReviewRepository(s.db)
	s.builder = queue.NewBuilder(decks, cards, reviews)

	ctx := context.Background()
	cfg := models.DefaultDeckConfig()
	cfg.NewPerDay = 1
	deckID, err := decks.Create(ctx, "Default", nil, cfg)
	s.Require().NoError(err)
	s.deckID = deckID

	noteID, err := notes.Create(ctx, models.Note{DeckID: deckID, Model: models.ModelBasic, Fields: map[string]string{"Front": "a", "Back": "b"}})
	s.Require().NoError(err)
	s.noteID = noteID
}

func (s *QueueSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *QueueSuite) TestNextCardReturnsLearningBeforeNew() {
	ctx := context.Background()
	cards := sqlite.NewCardRepository(s.db)
	now := time.Now()
	today := epochday.FromTime(now)

	ids, err := cards.InsertBatch(ctx, []models.Card{
		{NoteID: s.noteID, Template: "forward", State: models.StateNew, Ease: 2.5, Due: today},
		{NoteID: s.noteID, Template: "reverse", State: models.StateLearning, Ease: 2.5, Due: today},
	})
	s.Require().NoError(err)

	next, err := s.builder.NextCard(ctx, &s.deckID, false, now)
	s.Require().NoError(err)
	s.Require().NotNil(next)
	s.Assert().Equal(ids[1], next.ID)
}

func (s *QueueSuite) TestNextCardRespectsNewPerDayLimit() {
	ctx := context.Background()
	cards := sqlite.NewCardRepository(s.db)
	now := time.Now()
	today := epochday.FromTime(now)

	_, err := cards.InsertBatch(ctx, []models.Card{
		{NoteID: s.noteID, Template: "forward", State: models.StateNew, Ease: 2.5, Due: today},
	})
	s.Require().NoError(err)

	// Simulate the day's one allotted new card already having been reviewed.
	txn, err := s.db.BeginTx(ctx, nil)
	s.Require().NoError(err)
	reviews := sqlite.NewReviewRepository(s.db)
	dayStart := epochday.ToTime(today).Unix()
	_, err = reviews.InsertTx(ctx, txn, models.Review{CardID: 1, Timestamp: dayStart + 60, Rating: 3, StateBefore: models.StateNew, StateAfter: models.StateReview})
	s.Require().NoError(err)
	s.Require().NoError(txn.Commit())

	next, err := s.builder.NextCard(ctx, &s.deckID, false, now)
	s.Require().NoError(err)
	s.Assert().Nil(next, "the deck's new-per-day limit of 1 was already spent today")
}

func (s *QueueSuite) TestCountsReflectDueCards() {
	ctx := context.Background()
	cards := sqlite.NewCardRepository(s.db)
	now := time.Now()
	today := epochday.FromTime(now)

	_, err := cards.InsertBatch(ctx, []models.Card{
		{NoteID: s.noteID, Template: "forward", State: models.StateNew, Ease: 2.5, Due: today},
	})
	s.Require().NoError(err)

	counts, err := s.builder.Counts(ctx, &s.deckID, false, now)
	s.Require().NoError(err)
	s.Assert().Equal(1, counts.NewRemaining)
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueSuite))
}
