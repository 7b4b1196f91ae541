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

type NoteRepositorySuite struct {
	suite.Suite
	db     *sql.DB
	decks  repository.DeckRepository
	notes  repository.NoteRepository
	deckID int64
}

func (s *NoteRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.decks = sqlite.NewDeckRepository(s.db)
	s.notes = sqlite.NewNoteRepository(s.db)

	id, err := s.decks.Create(context.Background(), "Default", nil, models.DefaultDeckConfig())
	s.Require().NoError(err)
	s.deckID = id
}

func (s *NoteRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *NoteRepositorySuite) TestCreateGetAndFindByFrontBack() {
	ctx := context.Background()
	id, err := s.notes.Create(ctx, models.Note{
		DeckID: s.deckID,
		Model:  models.ModelBasic,
		Fields: map[string]string{"Front": "hola", "Back": "hello"},
		Tags:   []string{"spanish", "greeting"},
	})
	s.Require().NoError(err)

	n, err := s.notes.Get(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(n)
	s.Assert().Equal("hola", n.Fields["Front"])
	s.Assert().ElementsMatch([]string{"spanish", "greeting"}, n.Tags)

	found, err := s.notes.FindByFrontBack(ctx, s.deckID, "hola", "hello")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Assert().Equal(id, found.ID)
}

func (s *NoteRepositorySuite) TestAddTagIsIdempotent() {
	ctx := context.Background()
	id, err := s.notes.Create(ctx, models.Note{DeckID: s.deckID, Model: models.ModelBasic, Fields: map[string]string{"Front": "a", "Back": "b"}})
	s.Require().NoError(err)

	s.Require().NoError(s.notes.AddTag(ctx, id, "verb"))
	s.Require().NoError(s.notes.AddTag(ctx, id, "verb"))

	n, err := s.notes.Get(ctx, id)
	s.Require().NoError(err)
	s.Assert().Equal([]string{"verb"}, n.Tags)
}

func (s *NoteRepositorySuite) TestDelete() {
	ctx := context.Background()
	id, err := s.notes.Create(ctx, models.Note{DeckID: s.deckID, Model: models.ModelBasic, Fields: map[string]string{"Front": "a", "Back": "b"}})
	s.Require().NoError(err)

	s.Require().NoError(s.notes.Delete(ctx, id))
	n, err := s.notes.Get(ctx, id)
	s.Require().NoError(err)
	s.Assert().Nil(n)
}

func TestNoteRepositorySuite(t *testing.T) {
	suite.Run(t, new(NoteRepositorySuite))
}
