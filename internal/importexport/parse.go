package importexport

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
)

// ParseCSV parses a header-first CSV/TSV stream into Records. A "deck"
// column names the deck and a "model" column the note model (basic when
// the column is absent or empty); no column is required by the parser
// itself. Any other column becomes a note field of that name, and a
// "tags" column (space-separated) becomes the note's tags.
func ParseCSV(r io.Reader, delimiter rune) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewBadRequestError("failed to read CSV header: " + err.Error())
	}
	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var records []Record
	line := 1
	for {
		line++
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewBadRequestError("failed to read CSV row: " + err.Error())
		}

		rec := Record{Line: line, Fields: map[string]string{}}
		for col, idx := range colIndex {
			if idx >= len(row) {
				continue
			}
			val := row[idx]
			switch col {
			case "deck":
				rec.DeckName = val
			case "model":
				rec.Model = models.NoteModel(val)
			case "tags":
				rec.Tags = strings.Fields(val)
			case "front":
				rec.Fields["Front"] = val
			case "back":
				rec.Fields["Back"] = val
			case "text":
				rec.Fields["Text"] = val
			default:
				rec.Fields[capitalize(col)] = val
			}
		}
		if rec.Model == "" {
			rec.Model = models.ModelBasic
		}
		records = append(records, rec)
	}
	return records, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// jsonRecord mirrors Record for JSON (de)serialization.
type jsonRecord struct {
	Deck   string            `json:"deck"`
	Model  string            `json:"model"`
	Fields map[string]string `json:"fields"`
	Tags   []string          `json:"tags,omitempty"`
}

// ParseJSON parses a JSON array of records, one object per note.
func ParseJSON(r io.Reader) ([]Record, error) {
	var raw []jsonRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, apperrors.NewBadRequestError("invalid import JSON: " + err.Error())
	}
	records := make([]Record, len(raw))
	for i, jr := range raw {
		records[i] = Record{
			Line:     i + 1,
			DeckName: jr.Deck,
			Model:    models.NoteModel(jr.Model),
			Fields:   jr.Fields,
			Tags:     jr.Tags,
		}
		if records[i].Model == "" {
			records[i].Model = models.ModelBasic
		}
		if records[i].Fields == nil {
			records[i].Fields = map[string]string{}
		}
	}
	return records, nil
}

// Markdown import format (spec §4.7):
//
//	### Deck: Spanish::Verbs
//	Tags: verb irregular
//	Model: basic
//
//	Q: hola
//	A: hello
//	---
//	Cloze: The capital of France is {{c1::Paris}}.
//	Extra: A large European city.
//	---
const (
	deckHeaderPrefix = "### Deck:"
	tagsPrefix       = "Tags:"
	modelPrefix      = "Model:"
	questionPrefix   = "Q:"
	answerPrefix     = "A:"
	clozePrefix      = "Cloze:"
	extraPrefix      = "Extra:"
	separator        = "---"
)

// ParseMarkdown parses the Markdown import format, grounded on the same
// line-prefix state machine used elsewhere in the pack for authored card
// text: each `---` line closes the current record, and a new `### Deck:`
// header switches the active deck/model/tags for subsequent records.
func ParseMarkdown(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)

	var records []Record
	var deck string
	var model models.NoteModel = models.ModelBasic
	var tags []string

	cur := Record{Fields: map[string]string{}}
	hasContent := false
	lineNo := 0

	finish := func() {
		if hasContent {
			cur.DeckName = deck
			cur.Model = model
			cur.Tags = append([]string{}, tags...)
			cur.Line = lineNo
			records = append(records, cur)
		}
		cur = Record{Fields: map[string]string{}}
		hasContent = false
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == separator:
			finish()
		case strings.HasPrefix(trimmed, deckHeaderPrefix):
			finish()
			deck = strings.TrimSpace(strings.TrimPrefix(trimmed, deckHeaderPrefix))
			model = models.ModelBasic
			tags = nil
		case strings.HasPrefix(trimmed, tagsPrefix):
			tags = strings.Fields(strings.TrimPrefix(trimmed, tagsPrefix))
		case strings.HasPrefix(trimmed, modelPrefix):
			model = models.NoteModel(strings.TrimSpace(strings.TrimPrefix(trimmed, modelPrefix)))
		case strings.HasPrefix(trimmed, questionPrefix):
			cur.Fields["Front"] = strings.TrimSpace(strings.TrimPrefix(trimmed, questionPrefix))
			hasContent = true
		case strings.HasPrefix(trimmed, answerPrefix):
			cur.Fields["Back"] = strings.TrimSpace(strings.TrimPrefix(trimmed, answerPrefix))
			hasContent = true
		case strings.HasPrefix(trimmed, clozePrefix):
			cur.Fields["Text"] = strings.TrimSpace(strings.TrimPrefix(trimmed, clozePrefix))
			hasContent = true
		case strings.HasPrefix(trimmed, extraPrefix):
			cur.Fields["Extra"] = strings.TrimSpace(strings.TrimPrefix(trimmed, extraPrefix))
		case trimmed == "":
			// blank lines are insignificant outside a field value
		}
	}
	finish()

	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewBadRequestError("failed to read markdown import: " + err.Error())
	}
	return records, nil
}
