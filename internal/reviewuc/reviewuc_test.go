package reviewuc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/repository/sqlite"
	"github.com/mcp-anki/anki/internal/reviewuc"
	"github.com/mcp-anki/anki/internal/scheduler"
	"github.com/mcp-anki/anki/internal/store"
	"github.com/mcp-anki/anki/internal/testutil"
)

type ReviewUseCaseSuite struct {
	suite.Suite
}

func (s *ReviewUseCaseSuite) newUseCase() (*reviewuc.AnswerUseCase, func()) {
	db := testutil.NewTestDB(s.T())
	st := store.NewFromDB(db)
	uc := &reviewuc.AnswerUseCase{
		Store:   st,
		Decks:   sqlite.NewDeckRepository(db),
		Notes:   sqlite.NewNoteRepository(db),
		Cards:   sqlite.NewCardRepository(db),
		Reviews: sqlite.NewReviewRepository(db),
	}
	return uc, func() { testutil.MustClose(s.T(), db) }
}

func TestReviewUseCaseSuite(t *testing.T) {
	suite.Run(t, new(ReviewUseCaseSuite))
}

func (s *ReviewUseCaseSuite) TestAnswerNewCardGraduatesOnEasyAndLogsReview() {
	uc, closeFn := s.newUseCase()
	defer closeFn()
	ctx := context.Background()

	deckID, err := uc.Decks.Create(ctx, "Spanish", nil, models.DefaultDeckConfig())
	s.Require().NoError(err)
	noteID, err := uc.Notes.Create(ctx, models.Note{DeckID: deckID, Model: models.ModelBasic, Fields: map[string]string{"Front": "hola", "Back": "hello"}})
	s.Require().NoError(err)
	cardIDs, err := uc.Cards.InsertBatch(ctx, []models.Card{{NoteID: noteID, Template: "forward", State: models.StateNew, Ease: scheduler.NewCardEase}})
	s.Require().NoError(err)
	cardID := cardIDs[0]

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := uc.Answer(ctx, cardID, scheduler.Easy, now, nil)
	s.Require().NoError(err)
	s.Equal(models.StateReview, result.Card.State)
	s.Equal(2, result.Card.IntervalDays)
	s.InDelta(2.65, result.Card.Ease, 0.0001)

	stored, err := uc.Cards.Get(ctx, cardID)
	s.Require().NoError(err)
	s.Equal(models.StateReview, stored.State)

	reviews, err := uc.Reviews.ListByCard(ctx, cardID)
	s.Require().NoError(err)
	s.Require().Len(reviews, 1)
	s.Equal(models.StateNew, reviews[0].StateBefore)
	s.Equal(models.StateReview, reviews[0].StateAfter)
}

func (s *ReviewUseCaseSuite) TestAnswerSuspendsLeechOnThresholdBreach() {
	uc, closeFn := s.newUseCase()
	defer closeFn()
	ctx := context.Background()

	cfg := models.DefaultDeckConfig()
	cfg.LeechThreshold = 8
	cfg.LeechAction = models.LeechSuspend
	deckID, err := uc.Decks.Create(ctx, "Spanish", nil, cfg)
	s.Require().NoError(err)
	noteID, err := uc.Notes.Create(ctx, models.Note{DeckID: deckID, Model: models.ModelBasic, Fields: map[string]string{"Front": "hola", "Back": "hello"}})
	s.Require().NoError(err)
	cardIDs, err := uc.Cards.InsertBatch(ctx, []models.Card{{
		NoteID: noteID, Template: "forward", State: models.StateReview,
		IntervalDays: 10, Ease: 2.5, Lapses: 7,
	}})
	s.Require().NoError(err)
	cardID := cardIDs[0]

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := uc.Answer(ctx, cardID, scheduler.Again, now, nil)
	s.Require().NoError(err)
	s.Equal(8, result.Card.Lapses)
	s.Equal(models.StateSuspended, result.Card.State)
	s.InDelta(2.3, result.Card.Ease, 0.0001)
}

func (s *ReviewUseCaseSuite) TestAnswerBuriesNonSuspendedSiblings() {
	uc, closeFn := s.newUseCase()
	defer closeFn()
	ctx := context.Background()

	cfg := models.DefaultDeckConfig()
	cfg.BurySiblings = true
	deckID, err := uc.Decks.Create(ctx, "Spanish", nil, cfg)
	s.Require().NoError(err)
	noteID, err := uc.Notes.Create(ctx, models.Note{DeckID: deckID, Model: models.ModelBasicReverse, Fields: map[string]string{"Front": "hola", "Back": "hello"}})
	s.Require().NoError(err)
	cardIDs, err := uc.Cards.InsertBatch(ctx, []models.Card{
		{NoteID: noteID, Template: "forward", State: models.StateNew, Ease: scheduler.NewCardEase},
		{NoteID: noteID, Template: "reverse", State: models.StateNew, Ease: scheduler.NewCardEase},
	})
	s.Require().NoError(err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = uc.Answer(ctx, cardIDs[0], scheduler.Good, now, nil)
	s.Require().NoError(err)

	sibling, err := uc.Cards.Get(ctx, cardIDs[1])
	s.Require().NoError(err)
	s.Equal(models.StateBuried, sibling.State)
}

func (s *ReviewUseCaseSuite) TestAnswerRejectsSuspendedCard() {
	uc, closeFn := s.newUseCase()
	defer closeFn()
	ctx := context.Background()

	deckID, err := uc.Decks.Create(ctx, "Spanish", nil, models.DefaultDeckConfig())
	s.Require().NoError(err)
	noteID, err := uc.Notes.Create(ctx, models.Note{DeckID: deckID, Model: models.ModelBasic, Fields: map[string]string{"Front": "hola", "Back": "hello"}})
	s.Require().NoError(err)
	cardIDs, err := uc.Cards.InsertBatch(ctx, []models.Card{{NoteID: noteID, Template: "forward", State: models.StateSuspended}})
	s.Require().NoError(err)

	_, err = uc.Answer(ctx, cardIDs[0], scheduler.Good, time.Now(), nil)
	require.Error(s.T(), err)
}
