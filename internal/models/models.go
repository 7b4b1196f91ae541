// Package models holds the persistent entities of the flashcard engine:
// decks, notes, cards, review-log entries and media blobs (spec §3).
package models

import "time"

// CardState is one of the six states a card can occupy (spec §4.2).
type CardState string

const (
	StateNew        CardState = "new"
	StateLearning   CardState = "learning"
	StateRelearning CardState = "relearning"
	StateReview     CardState = "review"
	StateSuspended  CardState = "suspended"
	StateBuried     CardState = "buried"
)

// NoteModel identifies which card-generation rules apply to a note (spec §4.6).
type NoteModel string

const (
	ModelBasic        NoteModel = "basic"
	ModelBasicReverse NoteModel = "basic_reverse"
	ModelCloze        NoteModel = "cloze"
	ModelCustom       NoteModel = "custom"
)

// LeechAction is the deck-configured response to a card crossing the leech
// threshold (spec §3, §4.1).
type LeechAction string

const (
	LeechSuspend LeechAction = "suspend"
	LeechTag     LeechAction = "tag"
)

// Deck is a hierarchical named collection of notes.
type Deck struct {
	ID        int64
	Name      string
	ParentID  *int64
	Config    DeckConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeckConfig is the embedded scheduling configuration for a deck (spec §3).
type DeckConfig struct {
	LearningStepsMins      []int       `json:"learningStepsMins" validate:"required,min=1,dive,gte=1"`
	GraduatingIntervalDays int         `json:"graduatingIntervalDays" validate:"required,gt=0"`
	EasyBonus              float64     `json:"easyBonus" validate:"gte=1.0"`
	HardInterval           float64     `json:"hardInterval" validate:"gte=1.0"`
	LapseStepsMins         []int       `json:"lapseStepsMins" validate:"required,min=1,dive,gte=1"`
	NewPerDay              int         `json:"newPerDay" validate:"gte=0"`
	ReviewsPerDay          int         `json:"reviewsPerDay" validate:"gte=0"`
	MinEase                float64     `json:"minEase" validate:"gte=1.3"`
	LeechThreshold         int         `json:"leechThreshold" validate:"gte=1"`
	LeechAction            LeechAction `json:"leechAction" validate:"oneof=suspend tag"`
	FuzzPercent            float64     `json:"fuzzPercent" validate:"gte=0,lte=0.5"`
	BurySiblings           bool        `json:"burySiblings"`
}

// DefaultDeckConfig returns the built-in defaults merged under every stored
// config (spec §4.5: "defaults ⊕ stored ⊕ patch").
func DefaultDeckConfig() DeckConfig {
	return DeckConfig{
		LearningStepsMins:      []int{1, 10},
		GraduatingIntervalDays: 1,
		EasyBonus:              1.3,
		HardInterval:           1.2,
		LapseStepsMins:         []int{10},
		NewPerDay:              20,
		ReviewsPerDay:          200,
		MinEase:                1.3,
		LeechThreshold:         8,
		LeechAction:            LeechSuspend,
		FuzzPercent:            0.05,
		BurySiblings:           true,
	}
}

// Note is a piece of authored content that mints one or more Cards.
type Note struct {
	ID        int64
	DeckID    int64
	Model     NoteModel
	Fields    map[string]string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Card is a single reviewable unit derived from a Note.
type Card struct {
	ID            int64
	NoteID        int64
	Template      string
	State         CardState
	Due           int64 // epoch day
	IntervalDays  int
	Ease          float64
	Reps          int
	Lapses        int
	QueuePosition *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CardWithNote joins a Card to its parent Note for rendering and search.
type CardWithNote struct {
	Card
	DeckID   int64
	DeckName string
	Model    NoteModel
	Fields   map[string]string
	Tags     []string
	// Question is the rendered question HTML for this card, per spec §4.6.
	// Populated by callers that present a card for review (queue.NextCard);
	// left empty for rows returned by search or bulk listing.
	Question string `json:",omitempty"`
}

// Review is an append-only log entry for a single answered card (spec §3).
type Review struct {
	ID          int64
	CardID      int64
	Timestamp   int64 // epoch seconds
	Rating      int
	IntervalBefore int
	IntervalAfter  int
	EaseBefore     float64
	EaseAfter      float64
	StateBefore    CardState
	StateAfter     CardState
	TimeSeconds    float64
}

// Media is a deduplicated file blob referenced from note/card HTML.
type Media struct {
	ID        int64
	Hash      string
	Path      string
	MIME      string
	Size      int64
	CreatedAt time.Time
}

// QueueCounts summarizes how many cards are due right now (spec §4.3).
type QueueCounts struct {
	NewRemaining     int
	ReviewsRemaining int
}
