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

type deckRepository struct {
	db *sql.DB
}

// NewDeckRepository creates a new DeckRepository implementation.
func NewDeckRepository(db *sql.DB) repository.DeckRepository {
	return &deckRepository{db: db}
}

func (r *deckRepository) Create(ctx context.Context, name string, parentID *int64, cfg models.DeckConfig) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("creating deck: name=%s", name)

	cfgJSON, err := marshalJSON(cfg)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO decks (name, parent_id, config_json) VALUES (?, ?, ?)
`, name, parentID, cfgJSON)
	if err != nil {
		log.Error("failed to insert deck: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	log.Debug("deck created: id=%d", id)
	return id, nil
}

func (r *deckRepository) scanDeck(row interface {
	Scan(dest ...any) error
}) (*models.Deck, error) {
	var d models.Deck
	var cfgJSON string
	var parentID sql.NullInt64
	if err := row.Scan(&d.ID, &d.Name, &parentID, &cfgJSON, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		d.ParentID = &id
	}
	// Stored keys override the defaults; keys absent from the JSON keep them.
	d.Config = models.DefaultDeckConfig()
	if err := json.Unmarshal([]byte(cfgJSON), &d.Config); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deckRepository) Get(ctx context.Context, id int64) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, parent_id, config_json, created_at, updated_at FROM decks WHERE id = ?
`, id)
	d, err := r.scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get deck %d: %v", id, err)
		return nil, err
	}
	return d, nil
}

func (r *deckRepository) GetByName(ctx context.Context, name string) (*models.Deck, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, parent_id, config_json, created_at, updated_at FROM decks WHERE name = ?
`, name)
	d, err := r.scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *deckRepository) List(ctx context.Context) ([]models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, parent_id, config_json, created_at, updated_at FROM decks ORDER BY name
`)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []models.Deck
	for rows.Next() {
		d, err := r.scanDeck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// childMap loads the whole deck table's id->parent_id edges. The deck tree
// is expected to stay small (personal collections, not multi-tenant), so an
// in-process walk over all edges is simpler and more portable across SQLite
// builds than a recursive CTE (spec §9 design note).
func (r *deckRepository) childMap(ctx context.Context) (map[int64][]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, parent_id FROM decks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	children := make(map[int64][]int64)
	for rows.Next() {
		var id int64
		var parentID sql.NullInt64
		if err := rows.Scan(&id, &parentID); err != nil {
			return nil, err
		}
		if parentID.Valid {
			children[parentID.Int64] = append(children[parentID.Int64], id)
		}
	}
	return children, rows.Err()
}

func (r *deckRepository) Descendants(ctx context.Context, id int64) ([]int64, error) {
	children, err := r.childMap(ctx)
	if err != nil {
		return nil, err
	}
	out := []int64{id}
	queue := []int64{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out, nil
}

func (r *deckRepository) IsDescendant(ctx context.Context, id int64, candidate int64) (bool, error) {
	descendants, err := r.Descendants(ctx, id)
	if err != nil {
		return false, err
	}
	for _, d := range descendants {
		if d == candidate {
			return true, nil
		}
	}
	return false, nil
}

func (r *deckRepository) SetConfig(ctx context.Context, id int64, cfg models.DeckConfig) error {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	cfgJSON, err := marshalJSON(cfg)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
UPDATE decks SET config_json = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
`, cfgJSON, id)
	if err != nil {
		log.Error("failed to set deck config %d: %v", id, err)
	}
	return err
}

func (r *deckRepository) CountChildren(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks WHERE parent_id = ?`, id).Scan(&n)
	return n, err
}

func (r *deckRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	_, err := r.db.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete deck %d: %v", id, err)
	}
	return err
}
