package sqlite

import (
	"context"
	"database/sql"

	"github.com/mcp-anki/anki/internal/logger"
	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/repository"
)

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new ReviewRepository implementation.
func NewReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) InsertTx(ctx context.Context, txn *sql.Tx, rv models.Review) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	res, err := txn.ExecContext(ctx, `
INSERT INTO reviews (card_id, ts, rating, ivl_before, ivl_after, ease_before, ease_after, state_before, state_after, time_seconds)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rv.CardID, rv.Timestamp, rv.Rating, rv.IntervalBefore, rv.IntervalAfter, rv.EaseBefore, rv.EaseAfter, string(rv.StateBefore), string(rv.StateAfter), rv.TimeSeconds)
	if err != nil {
		log.Error("failed to insert review: %v", err)
		return 0, err
	}
	return res.LastInsertId()
}

func (r *reviewRepository) ListByCard(ctx context.Context, cardID int64) ([]models.Review, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, card_id, ts, rating, ivl_before, ivl_after, ease_before, ease_after, state_before, state_after, time_seconds
FROM reviews WHERE card_id = ? ORDER BY ts ASC
`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		var rv models.Review
		var before, after string
		if err := rows.Scan(&rv.ID, &rv.CardID, &rv.Timestamp, &rv.Rating, &rv.IntervalBefore, &rv.IntervalAfter, &rv.EaseBefore, &rv.EaseAfter, &before, &after, &rv.TimeSeconds); err != nil {
			return nil, err
		}
		rv.StateBefore = models.CardState(before)
		rv.StateAfter = models.CardState(after)
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *reviewRepository) CountSince(ctx context.Context, since int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE ts >= ?`, since).Scan(&n)
	return n, err
}
