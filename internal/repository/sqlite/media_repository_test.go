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

type MediaRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.MediaRepository
}

func (s *MediaRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewMediaRepository(s.db)
}

func (s *MediaRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *MediaRepositorySuite) TestUpsertDeduplicatesByHash() {
	ctx := context.Background()
	m := models.Media{Hash: "abc123", Path: "media/abc123.png", MIME: "image/png", Size: 42}

	id1, err := s.repo.Upsert(ctx, m)
	s.Require().NoError(err)

	id2, err := s.repo.Upsert(ctx, m)
	s.Require().NoError(err)
	s.Assert().Equal(id1, id2)

	got, err := s.repo.GetByHash(ctx, "abc123")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Assert().Equal("media/abc123.png", got.Path)
}

func (s *MediaRepositorySuite) TestGetByHashMissing() {
	ctx := context.Background()
	got, err := s.repo.GetByHash(ctx, "missing")
	s.Require().NoError(err)
	s.Assert().Nil(got)
}

func TestMediaRepositorySuite(t *testing.T) {
	suite.Run(t, new(MediaRepositorySuite))
}
