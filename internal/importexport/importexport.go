// Package importexport implements the CSV/TSV, JSON and Markdown
// import/export formats: parse -> validate -> apply, with dedupe, a
// dry-run mode, and per-record error collection rather than
// abort-on-first-error (spec §4.7).
package importexport

import (
	"context"

	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
)

// Record is one parsed, not-yet-applied note.
type Record struct {
	Line     int // 1-based source line/row, for error reporting
	DeckName string
	Model    models.NoteModel
	Fields   map[string]string
	Tags     []string
}

// RecordError pairs a parse or apply failure with the record's source
// position, so a batch of 500 records with 3 bad rows reports exactly
// those 3 (spec §4.7 "per-record error collection").
type RecordError struct {
	Line int
	Err  error
}

// Result summarizes an Apply call.
type Result struct {
	Created int
	Skipped int
	Errors  []RecordError
	DryRun  bool
}

// Importer applies parsed Records to storage.
type Importer struct {
	Decks NoteScopedDeckResolver
	Notes NoteWriter
	Cards CardWriter
}

// NoteScopedDeckResolver resolves or creates the deck a record targets.
type NoteScopedDeckResolver interface {
	GetOrCreateByName(ctx context.Context, name string) (int64, error)
}

// NoteWriter is the subset of repository.NoteRepository the importer needs.
type NoteWriter interface {
	Create(ctx context.Context, note models.Note) (int64, error)
	FindByFrontBack(ctx context.Context, deckID int64, front, back string) (*models.Note, error)
}

// CardWriter is the subset of repository.CardRepository the importer needs.
type CardWriter interface {
	InsertBatch(ctx context.Context, cards []models.Card) ([]int64, error)
}

// GenerateFunc mints the cards a note produces; it is internal/cardgen's
// Generate, injected to avoid importexport depending on the current day.
type GenerateFunc func(note models.Note, today int64) ([]models.Card, error)

// Apply validates and (unless dryRun) persists every record, skipping
// duplicates (same deck + Front + Back) rather than failing the whole
// batch, and collecting every other record-level error instead of
// aborting on the first (spec §4.7).
func (imp *Importer) Apply(ctx context.Context, records []Record, today int64, generate GenerateFunc, dryRun bool) (Result, error) {
	res := Result{DryRun: dryRun}

	for _, rec := range records {
		if err := validateRecord(rec); err != nil {
			res.Errors = append(res.Errors, RecordError{Line: rec.Line, Err: err})
			continue
		}

		deckID, err := imp.Decks.GetOrCreateByName(ctx, rec.DeckName)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{Line: rec.Line, Err: apperrors.NewStorageError(err)})
			continue
		}

		if existing, err := imp.Notes.FindByFrontBack(ctx, deckID, rec.Fields["Front"], rec.Fields["Back"]); err != nil {
			res.Errors = append(res.Errors, RecordError{Line: rec.Line, Err: apperrors.NewStorageError(err)})
			continue
		} else if existing != nil {
			res.Errors = append(res.Errors, RecordError{Line: rec.Line, Err: apperrors.NewDuplicateSkipError("note already exists in this deck")})
			res.Skipped++
			continue
		}

		note := models.Note{DeckID: deckID, Model: rec.Model, Fields: rec.Fields, Tags: rec.Tags}
		cards, err := generate(note, today)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{Line: rec.Line, Err: err})
			continue
		}

		if dryRun {
			res.Created++
			continue
		}

		noteID, err := imp.Notes.Create(ctx, note)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{Line: rec.Line, Err: apperrors.NewStorageError(err)})
			continue
		}
		for i := range cards {
			cards[i].NoteID = noteID
		}
		if _, err := imp.Cards.InsertBatch(ctx, cards); err != nil {
			res.Errors = append(res.Errors, RecordError{Line: rec.Line, Err: apperrors.NewStorageError(err)})
			continue
		}
		res.Created++
	}

	return res, nil
}

func validateRecord(rec Record) error {
	fields := map[string]string{}
	if rec.DeckName == "" {
		fields["deck"] = "deck name is required"
	}
	if rec.Model == "" {
		fields["model"] = "note model is required"
	}
	if rec.Fields["Front"] == "" && rec.Fields["Text"] == "" {
		fields["fields"] = "Front (or Text, for cloze notes) is required"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationErrors(fields)
	}
	return nil
}
