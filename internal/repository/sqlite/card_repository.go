package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mcp-anki/anki/internal/logger"
	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/repository"
)

type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new CardRepository implementation.
func NewCardRepository(db *sql.DB) repository.CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) InsertBatch(ctx context.Context, cards []models.Card) ([]int64, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("inserting %d card(s)", len(cards))

	ids := make([]int64, 0, len(cards))
	err := tx(ctx, r.db, func(txn *sql.Tx) error {
		for _, c := range cards {
			res, err := txn.ExecContext(ctx, `
INSERT INTO cards (note_id, template, state, due, ivl, ease, reps, lapses, queue_position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, c.NoteID, c.Template, string(c.State), c.Due, c.IntervalDays, c.Ease, c.Reps, c.Lapses, c.QueuePosition)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to insert card batch: %v", err)
		return nil, err
	}
	return ids, nil
}

func scanCard(row interface{ Scan(dest ...any) error }) (*models.Card, error) {
	var c models.Card
	var state string
	var qp sql.NullInt64
	if err := row.Scan(&c.ID, &c.NoteID, &c.Template, &state, &c.Due, &c.IntervalDays, &c.Ease, &c.Reps, &c.Lapses, &qp, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.State = models.CardState(state)
	if qp.Valid {
		v := qp.Int64
		c.QueuePosition = &v
	}
	return &c, nil
}

const cardColumns = "id, note_id, template, state, due, ivl, ease, reps, lapses, queue_position, created_at, updated_at"

func (r *cardRepository) Get(ctx context.Context, id int64) (*models.Card, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *cardRepository) GetWithNote(ctx context.Context, id int64) (*models.CardWithNote, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT c.id, c.note_id, c.template, c.state, c.due, c.ivl, c.ease, c.reps, c.lapses, c.queue_position, c.created_at, c.updated_at,
       n.deck_id, d.name, n.model, n.fields_json, n.tags
FROM cards c
JOIN notes n ON n.id = c.note_id
JOIN decks d ON d.id = n.deck_id
WHERE c.id = ?
`, id)
	cwn, err := scanCardWithNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return cwn, err
}

func scanCardWithNote(row interface{ Scan(dest ...any) error }) (*models.CardWithNote, error) {
	var cwn models.CardWithNote
	var state, model, fieldsJSON, tags string
	var qp sql.NullInt64
	if err := row.Scan(&cwn.ID, &cwn.NoteID, &cwn.Template, &state, &cwn.Due, &cwn.IntervalDays, &cwn.Ease, &cwn.Reps, &cwn.Lapses, &qp, &cwn.CreatedAt, &cwn.UpdatedAt,
		&cwn.DeckID, &cwn.DeckName, &model, &fieldsJSON, &tags); err != nil {
		return nil, err
	}
	cwn.State = models.CardState(state)
	cwn.Model = models.NoteModel(model)
	cwn.Tags = splitTags(tags)
	if qp.Valid {
		v := qp.Int64
		cwn.QueuePosition = &v
	}
	if err := unmarshalFields(fieldsJSON, &cwn.Fields); err != nil {
		return nil, err
	}
	return &cwn, nil
}

func unmarshalFields(s string, out *map[string]string) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), out)
}

func (r *cardRepository) Update(ctx context.Context, c models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	_, err := r.db.ExecContext(ctx, updateCardSQL(), c.State, c.Due, c.IntervalDays, c.Ease, c.Reps, c.Lapses, c.QueuePosition, c.ID)
	if err != nil {
		log.Error("failed to update card %d: %v", c.ID, err)
	}
	return err
}

func (r *cardRepository) UpdateTx(ctx context.Context, txn *sql.Tx, c models.Card) error {
	_, err := txn.ExecContext(ctx, updateCardSQL(), c.State, c.Due, c.IntervalDays, c.Ease, c.Reps, c.Lapses, c.QueuePosition, c.ID)
	return err
}

func updateCardSQL() string {
	return `
UPDATE cards SET state = ?, due = ?, ivl = ?, ease = ?, reps = ?, lapses = ?, queue_position = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`
}

func (r *cardRepository) SiblingsOf(ctx context.Context, cardID int64, noteID int64) ([]models.Card, error) {
	return scanSiblings(r.db.QueryContext(ctx, siblingsOfSQL, noteID, cardID))
}

func (r *cardRepository) SiblingsOfTx(ctx context.Context, txn *sql.Tx, cardID int64, noteID int64) ([]models.Card, error) {
	return scanSiblings(txn.QueryContext(ctx, siblingsOfSQL, noteID, cardID))
}

const siblingsOfSQL = `SELECT ` + cardColumns + ` FROM cards WHERE note_id = ? AND id != ?`

func scanSiblings(rows *sql.Rows, err error) ([]models.Card, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// DueInScope selects candidate cards per spec §4.3's selection predicate
// (state in {learning, relearning, new, review} AND due <= today for every
// state) and ordering: learning, then relearning, then new, then review
// (spec §4.3 clause (3)), each ordered by due, then queue_position (NULLs
// last), then id for a stable, reproducible queue.
func (r *cardRepository) DueInScope(ctx context.Context, deckIDs []int64, today int64) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	b := psql.Select("c." + strings.ReplaceAll(cardColumns, ", ", ", c.")).
		From("cards c").
		Join("notes n ON n.id = c.note_id").
		Where(sq.Eq{"c.state": []string{
			string(models.StateLearning), string(models.StateRelearning),
			string(models.StateNew), string(models.StateReview),
		}}).
		Where(sq.LtOrEq{"c.due": today}).
		OrderBy(
			fmt.Sprintf("CASE c.state WHEN '%s' THEN 0 WHEN '%s' THEN 1 WHEN '%s' THEN 2 WHEN '%s' THEN 3 ELSE 4 END",
				models.StateLearning, models.StateRelearning, models.StateNew, models.StateReview),
			"c.due ASC",
			"c.queue_position IS NULL",
			"c.queue_position ASC",
			"c.id ASC",
		)
	b = scopeToDecks(b, deckIDs)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query due cards: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scopeToDecks(b sq.SelectBuilder, deckIDs []int64) sq.SelectBuilder {
	if len(deckIDs) == 0 {
		return b
	}
	return b.Where(sq.Eq{"n.deck_id": deckIDs})
}

func (r *cardRepository) CountByStateInScope(ctx context.Context, deckIDs []int64, states []models.CardState, today int64, dueOnly bool) (int, error) {
	stateStrs := make([]string, len(states))
	for i, s := range states {
		stateStrs[i] = string(s)
	}
	b := psql.Select("COUNT(*)").From("cards c").Join("notes n ON n.id = c.note_id").Where(sq.Eq{"c.state": stateStrs})
	if dueOnly {
		b = b.Where(sq.LtOrEq{"c.due": today})
	}
	b = scopeToDecks(b, deckIDs)

	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// Search runs a WHERE fragment compiled by internal/search against the
// cards+notes+decks join, ordered due ASC, id ASC, bounded by limit
// (spec §4.4).
func (r *cardRepository) Search(ctx context.Context, sqlWhere string, args []any, limit int) ([]models.CardWithNote, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	query := `
SELECT c.id, c.note_id, c.template, c.state, c.due, c.ivl, c.ease, c.reps, c.lapses, c.queue_position, c.created_at, c.updated_at,
       n.deck_id, d.name, n.model, n.fields_json, n.tags
FROM cards c
JOIN notes n ON n.id = c.note_id
JOIN decks d ON d.id = n.deck_id
`
	if sqlWhere != "" {
		query += "WHERE " + sqlWhere + "\n"
	}
	query += "ORDER BY c.due ASC, c.id ASC LIMIT ?"
	args = append(append([]any{}, args...), limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("search query failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []models.CardWithNote
	for rows.Next() {
		cwn, err := scanCardWithNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cwn)
	}
	return out, rows.Err()
}

func (r *cardRepository) BulkSetState(ctx context.Context, ids []int64, state models.CardState) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	if len(ids) == 0 {
		return nil
	}
	query, args, err := bulkSetStateSQL(ids, state)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to bulk set state: %v", err)
	}
	return err
}

func (r *cardRepository) BulkSetStateTx(ctx context.Context, txn *sql.Tx, ids []int64, state models.CardState) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := bulkSetStateSQL(ids, state)
	if err != nil {
		return err
	}
	_, err = txn.ExecContext(ctx, query, args...)
	return err
}

func bulkSetStateSQL(ids []int64, state models.CardState) (string, []any, error) {
	return psql.Update("cards").
		Set("state", string(state)).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": ids}).
		ToSql()
}

func (r *cardRepository) UnburyAll(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("unburying all buried cards")
	_, err := r.db.ExecContext(ctx, `
UPDATE cards SET state = CASE WHEN reps = 0 THEN ? ELSE ? END, updated_at = CURRENT_TIMESTAMP
WHERE state = ?
`, string(models.StateNew), string(models.StateReview), string(models.StateBuried))
	if err != nil {
		log.Error("failed to unbury cards: %v", err)
	}
	return err
}

func (r *cardRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	return err
}

func (r *cardRepository) CountAnsweredSince(ctx context.Context, deckIDs []int64, sinceTS int64) (int, int, error) {
	b := psql.Select(
		fmt.Sprintf("SUM(CASE WHEN rv.state_before = '%s' THEN 1 ELSE 0 END)", models.StateNew),
		fmt.Sprintf("SUM(CASE WHEN rv.state_before != '%s' THEN 1 ELSE 0 END)", models.StateNew),
	).
		From("reviews rv").
		Join("cards c ON c.id = rv.card_id").
		Join("notes n ON n.id = c.note_id").
		Where(sq.GtOrEq{"rv.ts": sinceTS})
	b = scopeToDecks(b, deckIDs)

	query, args, err := b.ToSql()
	if err != nil {
		return 0, 0, err
	}
	var newCount, reviewCount sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&newCount, &reviewCount); err != nil {
		return 0, 0, err
	}
	return int(newCount.Int64), int(reviewCount.Int64), nil
}
