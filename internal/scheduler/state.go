package scheduler

import "github.com/mcp-anki/anki/internal/models"

// Suspend moves any card to the suspended state (spec §4.2).
func Suspend(card models.Card) models.Card {
	card.State = models.StateSuspended
	return card
}

// Unsuspend reverses Suspend: a never-reviewed card returns to new, a
// reviewed one returns to review.
func Unsuspend(card models.Card) models.Card {
	if card.Reps == 0 {
		card.State = models.StateNew
	} else {
		card.State = models.StateReview
	}
	return card
}

// Bury moves any non-suspended card to buried.
func Bury(card models.Card) models.Card {
	if card.State == models.StateSuspended {
		return card
	}
	card.State = models.StateBuried
	return card
}

// Unbury reverses Bury the same way Unsuspend reverses Suspend.
func Unbury(card models.Card) models.Card {
	if card.Reps == 0 {
		card.State = models.StateNew
	} else {
		card.State = models.StateReview
	}
	return card
}

// Reset returns a card to its as-generated state, clearing all scheduling
// progress.
func Reset(card models.Card) models.Card {
	card.State = models.StateNew
	card.Due = 0
	card.IntervalDays = 0
	card.Ease = NewCardEase
	card.Reps = 0
	card.Lapses = 0
	return card
}
