// Package scheduler implements the SM-2-derived spaced-repetition algorithm
// (spec §4.1): a pure function from a card's current scheduling state and a
// rating to its next state, due date, interval and ease.
package scheduler

import (
	"math"
	"math/rand"
	"time"

	"github.com/mcp-anki/anki/internal/epochday"
	"github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
)

// Rating is the caller's response to a review, 1 (Again) through 4 (Easy).
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// Snapshot captures a card's (ivl, ease, state) before or after a review,
// for the review-log row spec §3 requires.
type Snapshot struct {
	Interval int
	Ease     float64
	State    models.CardState
}

// Result is the outcome of a single schedule() call.
type Result struct {
	Card   models.Card
	Before Snapshot
	After  Snapshot
	// LeechTagRequested is set when the card crossed the leech threshold
	// under leechAction=tag; the caller (not the scheduler) is responsible
	// for adding the "leech" tag to the parent note (spec §9).
	LeechTagRequested bool
}

// NewCardEase is the ease every freshly-generated card starts with.
const NewCardEase = 2.5

// Schedule computes a card's next state given a rating (spec §4.1). now is
// used only to derive "today". rng drives interval fuzz; a nil rng applies
// no fuzz, so intervals are exact and reproducible.
func Schedule(card models.Card, rating Rating, now time.Time, cfg models.DeckConfig, rng *rand.Rand) (Result, error) {
	if rating < Again || rating > Easy {
		return Result{}, errors.NewBadRequestError("rating must be between 1 and 4")
	}

	today := epochday.Today(now)
	before := Snapshot{Interval: card.IntervalDays, Ease: card.Ease, State: card.State}
	next := card

	switch card.State {
	case models.StateNew:
		next.Reps++
		switch {
		case rating <= 3:
			next.State = models.StateLearning
			next.IntervalDays = 0
			next.Due = today
		default: // Easy
			next.State = models.StateReview
			next.IntervalDays = ceilInt(float64(cfg.GraduatingIntervalDays) * cfg.EasyBonus)
			next.Due = today + int64(next.IntervalDays)
			next.Ease = 2.65
		}

	case models.StateLearning, models.StateRelearning:
		switch rating {
		case Again:
			next.IntervalDays = 0
			next.Due = today
		case Hard, Good:
			next.State = models.StateReview
			next.IntervalDays = cfg.GraduatingIntervalDays
			next.Due = today + int64(next.IntervalDays)
		case Easy:
			next.State = models.StateReview
			next.IntervalDays = ceilInt(float64(cfg.GraduatingIntervalDays) * cfg.EasyBonus)
			next.Due = today + int64(next.IntervalDays)
			next.Ease += 0.15
		}

	case models.StateReview:
		next.Reps++
		fz := fuzz(cfg.FuzzPercent, rng)
		switch rating {
		case Again:
			next.Lapses++
			next.State = models.StateRelearning
			next.Ease = math.Max(cfg.MinEase, next.Ease-0.2)
			next.IntervalDays = 0
			next.Due = today
			if next.Lapses >= cfg.LeechThreshold {
				if cfg.LeechAction == models.LeechSuspend {
					next.State = models.StateSuspended
				}
			}
		case Hard:
			next.Ease = math.Max(cfg.MinEase, next.Ease-0.15)
			next.IntervalDays = maxInt(1, ceilInt(float64(next.IntervalDays)*cfg.HardInterval*fz))
			next.Due = today + int64(next.IntervalDays)
		case Good:
			next.IntervalDays = maxInt(1, ceilInt(float64(next.IntervalDays)*next.Ease*fz))
			next.Due = today + int64(next.IntervalDays)
		case Easy:
			next.Ease += 0.15
			next.IntervalDays = maxInt(1, ceilInt(float64(next.IntervalDays)*next.Ease*cfg.EasyBonus*fz))
			next.Due = today + int64(next.IntervalDays)
		}

	default:
		return Result{}, errors.NewInvalidStateError("cannot schedule a card in state " + string(card.State))
	}

	after := Snapshot{Interval: next.IntervalDays, Ease: next.Ease, State: next.State}

	res := Result{Card: next, Before: before, After: after}
	if card.State == models.StateReview && rating == Again &&
		next.Lapses >= cfg.LeechThreshold && cfg.LeechAction == models.LeechTag {
		res.LeechTagRequested = true
	}
	return res, nil
}

// fuzz returns a real uniformly distributed in [1-pct, 1+pct]. A nil rng
// (or pct==0) yields exactly 1, so tests can assert exact intervals.
func fuzz(pct float64, rng *rand.Rand) float64 {
	if pct <= 0 || rng == nil {
		return 1
	}
	return 1 - pct + rng.Float64()*2*pct
}

func ceilInt(v float64) int {
	return int(math.Ceil(v))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
