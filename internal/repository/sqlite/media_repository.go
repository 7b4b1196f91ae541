package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mcp-anki/anki/internal/logger"
	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/repository"
)

type mediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new MediaRepository implementation.
func NewMediaRepository(db *sql.DB) repository.MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Upsert(ctx context.Context, m models.Media) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("media_repo")

	existing, err := r.GetByHash(ctx, m.Hash)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO media (hash, path, mime, size) VALUES (?, ?, ?, ?)
`, m.Hash, m.Path, m.MIME, m.Size)
	if err != nil {
		log.Error("failed to insert media: %v", err)
		return 0, err
	}
	return res.LastInsertId()
}

func (r *mediaRepository) GetByHash(ctx context.Context, hash string) (*models.Media, error) {
	var m models.Media
	err := r.db.QueryRowContext(ctx, `
SELECT id, hash, path, mime, size, created_at FROM media WHERE hash = ?
`, hash).Scan(&m.ID, &m.Hash, &m.Path, &m.MIME, &m.Size, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
