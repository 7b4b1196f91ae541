package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/scheduler"
)

func defaultConfig() models.DeckConfig {
	return models.DefaultDeckConfig()
}

// Scenario 3 from spec §8.
func TestSchedule_NewCardEasyGraduates(t *testing.T) {
	cfg := defaultConfig()
	cfg.GraduatingIntervalDays = 1
	cfg.EasyBonus = 1.3
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	card := models.Card{State: models.StateNew, Ease: scheduler.NewCardEase}
	res, err := scheduler.Schedule(card, scheduler.Easy, now, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateReview, res.Card.State)
	assert.Equal(t, 2, res.Card.IntervalDays)
	assert.InDelta(t, 2.65, res.Card.Ease, 1e-9)
	assert.Equal(t, res.Before.State, models.StateNew)
}

// Scenario 4 from spec §8: a lapsing review card hits the leech threshold.
func TestSchedule_ReviewCardAgainBecomesLeechSuspended(t *testing.T) {
	cfg := defaultConfig()
	cfg.LeechThreshold = 8
	cfg.LeechAction = models.LeechSuspend
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	card := models.Card{
		State:        models.StateReview,
		IntervalDays: 10,
		Ease:         2.5,
		Lapses:       7,
	}
	res, err := scheduler.Schedule(card, scheduler.Again, now, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, 8, res.Card.Lapses)
	assert.Equal(t, models.StateSuspended, res.Card.State)
	assert.InDelta(t, 2.3, res.Card.Ease, 1e-9)
	assert.Equal(t, 0, res.Card.IntervalDays)
}

func TestSchedule_ReviewCardGoodGrowsInterval(t *testing.T) {
	cfg := defaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	card := models.Card{State: models.StateReview, IntervalDays: 6, Ease: 2.5}
	res, err := scheduler.Schedule(card, scheduler.Good, now, cfg, nil)
	require.NoError(t, err)

	assert.Greater(t, res.Card.IntervalDays, card.IntervalDays)
	assert.GreaterOrEqual(t, res.Card.Ease, cfg.MinEase)
}

func TestSchedule_ReviewCardHardShrinksEase(t *testing.T) {
	cfg := defaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	card := models.Card{State: models.StateReview, IntervalDays: 6, Ease: 2.5}
	res, err := scheduler.Schedule(card, scheduler.Hard, now, cfg, nil)
	require.NoError(t, err)

	assert.Less(t, res.Card.Ease, card.Ease)
	assert.GreaterOrEqual(t, res.Card.IntervalDays, 1)
}

func TestSchedule_LearningGraduatesOnGood(t *testing.T) {
	cfg := defaultConfig()
	cfg.GraduatingIntervalDays = 1
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	card := models.Card{State: models.StateLearning, Ease: scheduler.NewCardEase}
	res, err := scheduler.Schedule(card, scheduler.Good, now, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateReview, res.Card.State)
	assert.Equal(t, cfg.GraduatingIntervalDays, res.Card.IntervalDays)
	assert.InDelta(t, scheduler.NewCardEase, res.Card.Ease, 1e-9)
}

func TestSchedule_LearningAgainStaysInStep(t *testing.T) {
	cfg := defaultConfig()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	card := models.Card{State: models.StateRelearning, Ease: 2.3}
	res, err := scheduler.Schedule(card, scheduler.Again, now, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateRelearning, res.Card.State)
	assert.Equal(t, 0, res.Card.IntervalDays)
}

func TestSchedule_InvalidStateRejected(t *testing.T) {
	cfg := defaultConfig()
	now := time.Now()

	card := models.Card{State: models.StateSuspended}
	_, err := scheduler.Schedule(card, scheduler.Good, now, cfg, nil)
	assert.Error(t, err)
}

func TestSchedule_LeechTagRequestedButNotSuspended(t *testing.T) {
	cfg := defaultConfig()
	cfg.LeechThreshold = 8
	cfg.LeechAction = models.LeechTag
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	card := models.Card{State: models.StateReview, IntervalDays: 10, Ease: 2.5, Lapses: 7}
	res, err := scheduler.Schedule(card, scheduler.Again, now, cfg, nil)
	require.NoError(t, err)

	assert.True(t, res.LeechTagRequested)
	assert.Equal(t, models.StateRelearning, res.Card.State)
}

// Property from spec §8: rating 3 with fuzz=0 and ease>1 strictly grows ivl.
func TestSchedule_GoodStrictlyGrowsIntervalWithNoFuzz(t *testing.T) {
	cfg := defaultConfig()
	cfg.FuzzPercent = 0
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	card := models.Card{State: models.StateReview, IntervalDays: 4, Ease: 2.2}
	res, err := scheduler.Schedule(card, scheduler.Good, now, cfg, nil)
	require.NoError(t, err)

	assert.Greater(t, res.Card.IntervalDays, card.IntervalDays)
}

func TestStateTransitions_AdminOps(t *testing.T) {
	c := models.Card{State: models.StateReview, Reps: 5}
	assert.Equal(t, models.StateSuspended, scheduler.Suspend(c).State)
	assert.Equal(t, models.StateReview, scheduler.Unsuspend(scheduler.Suspend(c)).State)

	fresh := models.Card{State: models.StateNew, Reps: 0}
	assert.Equal(t, models.StateNew, scheduler.Unsuspend(scheduler.Suspend(fresh)).State)

	buried := scheduler.Bury(c)
	assert.Equal(t, models.StateBuried, buried.State)
	assert.Equal(t, models.StateReview, scheduler.Unbury(buried).State)

	reset := scheduler.Reset(models.Card{State: models.StateReview, IntervalDays: 30, Ease: 2.8, Reps: 10, Lapses: 3})
	assert.Equal(t, models.StateNew, reset.State)
	assert.Zero(t, reset.IntervalDays)
	assert.Zero(t, reset.Reps)
	assert.Zero(t, reset.Lapses)
	assert.InDelta(t, scheduler.NewCardEase, reset.Ease, 1e-9)
}
