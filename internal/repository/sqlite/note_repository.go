package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/mcp-anki/anki/internal/logger"
	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/repository"
)

type noteRepository struct {
	db *sql.DB
}

// NewNoteRepository creates a new NoteRepository implementation.
func NewNoteRepository(db *sql.DB) repository.NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Create(ctx context.Context, note models.Note) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("note_repo")
	log.Debug("creating note: deck_id=%d, model=%s", note.DeckID, note.Model)

	fieldsJSON, err := marshalJSON(note.Fields)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO notes (deck_id, model, fields_json, tags) VALUES (?, ?, ?, ?)
`, note.DeckID, string(note.Model), fieldsJSON, joinTags(note.Tags))
	if err != nil {
		log.Error("failed to insert note: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	log.Debug("note created: id=%d", id)
	return id, nil
}

func (r *noteRepository) scanNote(row interface {
	Scan(dest ...any) error
}) (*models.Note, error) {
	var n models.Note
	var model, fieldsJSON, tags string
	if err := row.Scan(&n.ID, &n.DeckID, &model, &fieldsJSON, &tags, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Model = models.NoteModel(model)
	n.Tags = splitTags(tags)
	if err := json.Unmarshal([]byte(fieldsJSON), &n.Fields); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *noteRepository) Get(ctx context.Context, id int64) (*models.Note, error) {
	log := logger.FromContext(ctx).WithPrefix("note_repo")
	row := r.db.QueryRowContext(ctx, `
SELECT id, deck_id, model, fields_json, tags, created_at, updated_at FROM notes WHERE id = ?
`, id)
	n, err := r.scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get note %d: %v", id, err)
		return nil, err
	}
	return n, nil
}

func (r *noteRepository) AddTag(ctx context.Context, id int64, tag string) error {
	n, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return sql.ErrNoRows
	}
	for _, t := range n.Tags {
		if t == tag {
			return nil
		}
	}
	n.Tags = append(n.Tags, tag)
	_, err = r.db.ExecContext(ctx, `UPDATE notes SET tags = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, joinTags(n.Tags), id)
	return err
}

func (r *noteRepository) FindByFrontBack(ctx context.Context, deckID int64, front, back string) (*models.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, deck_id, model, fields_json, tags, created_at, updated_at FROM notes WHERE deck_id = ?
`, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		n, err := r.scanNote(rows)
		if err != nil {
			return nil, err
		}
		if n.Fields["Front"] == front && n.Fields["Back"] == back {
			return n, nil
		}
	}
	return nil, rows.Err()
}

func (r *noteRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("note_repo")
	_, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete note %d: %v", id, err)
	}
	return err
}
