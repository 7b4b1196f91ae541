// Package cardgen derives the set of Cards a Note mints, per its note
// model (spec §4.6). Card generation is pure: it never touches storage.
package cardgen

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/scheduler"
)

// clozeRe matches {{cN::text}} or {{cN::text::hint}} deletions.
var clozeRe = regexp.MustCompile(`\{\{c(\d+)::.*?(?:::.*?)?\}\}`)

// Generate returns the Cards a note of the given model mints, each already
// carrying the as-generated scheduling state (new, due today, ease
// scheduler.NewCardEase). NoteID and CreatedAt/UpdatedAt are left for the
// caller to fill once the note itself has an id.
func Generate(note models.Note, today int64) ([]models.Card, error) {
	switch note.Model {
	case models.ModelBasic:
		return []models.Card{blankCard("forward", today)}, nil
	case models.ModelBasicReverse:
		return []models.Card{blankCard("forward", today), blankCard("reverse", today)}, nil
	case models.ModelCloze:
		return clozeCards(note, today)
	case models.ModelCustom:
		return customCards(note, today)
	default:
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown note model: %s", note.Model))
	}
}

func blankCard(template string, today int64) models.Card {
	return models.Card{
		Template: template,
		State:    models.StateNew,
		Due:      today,
		Ease:     scheduler.NewCardEase,
	}
}

// clozeText returns the field a cloze note stores its source text in.
// Spec §4.6 accepts either Front or Text, so an author can reuse the
// Front field name a basic note would use.
func clozeText(fields map[string]string) string {
	if text := fields["Text"]; text != "" {
		return text
	}
	return fields["Front"]
}

// clozeCards scans a cloze note's source text for {{cN::...}} deletions
// and mints one card per distinct N, ordered ascending, per spec §4.6.
func clozeCards(note models.Note, today int64) ([]models.Card, error) {
	text := clozeText(note.Fields)
	if text == "" {
		return nil, apperrors.NewValidationErrors(map[string]string{"Text": "cloze notes require a non-empty Front or Text field"})
	}

	matches := clozeRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, apperrors.NewValidationErrors(map[string]string{"Text": "no {{cN::...}} deletions found"})
	}

	seen := make(map[int]bool)
	for _, m := range matches {
		var n int
		if _, err := fmt.Sscanf(m[1], "%d", &n); err == nil {
			seen[n] = true
		}
	}

	ordinals := make([]int, 0, len(seen))
	for n := range seen {
		ordinals = append(ordinals, n)
	}
	sort.Ints(ordinals)

	cards := make([]models.Card, 0, len(ordinals))
	for _, n := range ordinals {
		cards = append(cards, blankCard(fmt.Sprintf("cloze-%d", n), today))
	}
	return cards, nil
}

// customCards mints one card per non-empty "Template:<name>" field, so an
// author-defined note model can generate an arbitrary number of card
// directions from a single note.
func customCards(note models.Note, today int64) ([]models.Card, error) {
	const prefix = "Template:"
	var templates []string
	for k, v := range note.Fields {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix && v != "" {
			templates = append(templates, k[len(prefix):])
		}
	}
	if len(templates) == 0 {
		return nil, apperrors.NewValidationErrors(map[string]string{"Fields": "custom notes require at least one non-empty Template:<name> field"})
	}
	sort.Strings(templates)

	cards := make([]models.Card, 0, len(templates))
	for _, t := range templates {
		cards = append(cards, blankCard(t, today))
	}
	return cards, nil
}

// RenderQuestion builds a card's front-facing prompt from its note's model
// and the card's own template, per spec §4.6's question-rendering rules:
// basic → Front; basic_reverse's "reverse" template → Back, else Front;
// cloze-N → the Text field with the Nth deletion hidden and every other
// deletion revealed.
func RenderQuestion(cwn models.CardWithNote) string {
	switch {
	case cwn.Model == models.ModelCloze && strings.HasPrefix(cwn.Template, "cloze-"):
		var ordinal int
		fmt.Sscanf(strings.TrimPrefix(cwn.Template, "cloze-"), "%d", &ordinal)
		return RenderCloze(clozeText(cwn.Fields), ordinal)
	case cwn.Model == models.ModelBasicReverse && cwn.Template == "reverse":
		return cwn.Fields["Back"]
	default:
		return cwn.Fields["Front"]
	}
}

// RenderCloze replaces the deletion(s) matching activeOrdinal with "[...]"
// and reveals every other {{cN::answer}} deletion as its plain "answer"
// text, building the question prompt (spec §4.6 "question rendering
// rules").
func RenderCloze(text string, activeOrdinal int) string {
	return clozeRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := clozeRe.FindStringSubmatch(m)
		var n int
		fmt.Sscanf(sub[1], "%d", &n)
		if n == activeOrdinal {
			return "[...]"
		}
		return clozeAnswerOnly(m)
	})
}

// clozeAnswerOnly extracts the answer text from a {{cN::answer}} or
// {{cN::answer::hint}} deletion, dropping the cloze markers.
func clozeAnswerOnly(deletion string) string {
	inner := deletion[2 : len(deletion)-2] // strip {{ }}
	parts := splitOnce(inner, "::")
	if len(parts) < 2 {
		return deletion
	}
	rest := splitOnce(parts[1], "::")
	return rest[0]
}

func splitOnce(s, sep string) []string {
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			return []string{s[:i], s[i+len(sep):]}
		}
	}
	return []string{s}
}
