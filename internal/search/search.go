// Package search implements the Anki-style query language used by the
// search tool: a tokenizer, a predicate parser, and a compiler that turns
// the parsed predicates into a SQL WHERE fragment for
// repository.CardRepository.Search (spec §4.4).
package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcp-anki/anki/internal/epochday"
	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
)

// term is one parsed query token: an optionally-negated predicate.
type term struct {
	negated bool
	kind    string // deck, tag, is, rated, prop, note, text
	key     string // for prop: the field name (e.g. "ease")
	op      string // for prop: one of =, !=, <, <=, >, >=
	value   string
}

// Tokenize splits a raw query string into whitespace-separated terms,
// respecting double-quoted spans so `deck:"World Capitals"` stays intact.
func Tokenize(query string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range query {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

var propOps = []string{">=", "<=", "!=", "=", ">", "<"}

// Parse tokenizes and parses query into a slice of terms, ANDed together.
// There is no OR or grouping operator; that mirrors the scope of the
// worked search examples in spec §8.
func Parse(query string) ([]term, error) {
	var terms []term
	for _, tok := range Tokenize(query) {
		t, err := parseTerm(tok)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, nil
}

func parseTerm(tok string) (term, error) {
	t := term{}
	if strings.HasPrefix(tok, "-") {
		t.negated = true
		tok = tok[1:]
	}
	switch {
	case strings.HasPrefix(tok, "deck:"):
		t.kind, t.value = "deck", strings.TrimPrefix(tok, "deck:")
	case strings.HasPrefix(tok, "tag:"):
		t.kind, t.value = "tag", strings.TrimPrefix(tok, "tag:")
	case strings.HasPrefix(tok, "is:"):
		t.kind, t.value = "is", strings.TrimPrefix(tok, "is:")
	case strings.HasPrefix(tok, "rated:"):
		t.kind, t.value = "rated", strings.TrimPrefix(tok, "rated:")
	case strings.HasPrefix(tok, "note:"):
		t.kind, t.value = "note", strings.TrimPrefix(tok, "note:")
	case strings.HasPrefix(tok, "prop:"):
		body := strings.TrimPrefix(tok, "prop:")
		t.kind = "prop"
		var op string
		for _, candidate := range propOps {
			if idx := strings.Index(body, candidate); idx >= 0 {
				op = candidate
				t.key = body[:idx]
				t.value = body[idx+len(candidate):]
				break
			}
		}
		if op == "" {
			return term{}, apperrors.NewBadRequestError(fmt.Sprintf("invalid prop: expression %q", tok))
		}
		t.op = op
	default:
		t.kind, t.value = "text", tok
	}
	if t.value == "" && t.kind != "text" {
		return term{}, apperrors.NewBadRequestError(fmt.Sprintf("empty value for %s: in %q", t.kind, tok))
	}
	return t, nil
}

var validIsValues = map[string]models.CardState{
	"new":        models.StateNew,
	"learning":   models.StateLearning,
	"relearning": models.StateRelearning,
	"review":     models.StateReview,
	"suspended":  models.StateSuspended,
	"buried":     models.StateBuried,
}

// Compile turns a parsed query into a SQL WHERE fragment (referencing the
// c/n/d aliases used by CardRepository.Search's join) and its bound args.
// now is used to resolve rated:N ("reviewed in the last N days") and
// is:due (due today or earlier) against the caller's clock.
func Compile(query string, now time.Time) (string, []any, error) {
	terms, err := Parse(query)
	if err != nil {
		return "", nil, err
	}

	var clauses []string
	var args []any
	for _, t := range terms {
		clause, clauseArgs, err := compileTerm(t, now)
		if err != nil {
			return "", nil, err
		}
		if t.negated {
			clause = "NOT (" + clause + ")"
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}
	return strings.Join(clauses, " AND "), args, nil
}

func compileTerm(t term, now time.Time) (string, []any, error) {
	switch t.kind {
	case "deck":
		return "d.name LIKE ?", []any{"%" + t.value + "%"}, nil
	case "tag":
		return "(',' || n.tags || ',') LIKE ?", []any{"%," + t.value + ",%"}, nil
	case "note":
		// Field text, case-sensitive, unlike the case-insensitive bare-text
		// term: INSTR is a byte comparison in SQLite, LIKE is not.
		return "INSTR(n.fields_json, ?) > 0", []any{t.value}, nil
	case "is":
		if t.value == "due" {
			todayStart := epochday.Today(now)
			return "(c.state IN (?, ?, ?) AND c.due <= ?)", []any{string(models.StateLearning), string(models.StateRelearning), string(models.StateReview), todayStart}, nil
		}
		if t.value == "learning" {
			return "c.state IN (?, ?)", []any{string(models.StateLearning), string(models.StateRelearning)}, nil
		}
		state, ok := validIsValues[t.value]
		if !ok {
			return "", nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown is: value %q", t.value))
		}
		return "c.state = ?", []any{string(state)}, nil
	case "rated":
		return compileRated(t.value, now)
	case "prop":
		return compileProp(t)
	case "text":
		like := "%" + t.value + "%"
		return "(n.fields_json LIKE ? OR n.tags LIKE ?)", []any{like, like}, nil
	default:
		return "", nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown query term kind %q", t.kind))
	}
}

// compileRated handles rated:N and rated:a..b. A bare N means "rated within
// the last N days" (equivalent to rated:0..N); a..b means "reviewed between
// a and b days ago inclusive," with a <= b, per spec §9's fix for the
// source's reversed start/end.
func compileRated(value string, now time.Time) (string, []any, error) {
	a, b := 0, 0
	if idx := strings.Index(value, ".."); idx >= 0 {
		var err error
		a, err = strconv.Atoi(value[:idx])
		if err != nil {
			return "", nil, apperrors.NewBadRequestError(fmt.Sprintf("rated: expects integer day counts, got %q", value))
		}
		b, err = strconv.Atoi(value[idx+2:])
		if err != nil {
			return "", nil, apperrors.NewBadRequestError(fmt.Sprintf("rated: expects integer day counts, got %q", value))
		}
		if a > b {
			return "", nil, apperrors.NewBadRequestError(fmt.Sprintf("rated:%s has a > b; expected a <= b", value))
		}
	} else {
		days, err := strconv.Atoi(value)
		if err != nil {
			return "", nil, apperrors.NewBadRequestError(fmt.Sprintf("rated: expects an integer day count, got %q", value))
		}
		b = days
	}

	tsFrom := now.Add(-time.Duration(b) * 24 * time.Hour).Unix()
	tsTo := now.Add(-time.Duration(a) * 24 * time.Hour).Unix()
	return "EXISTS (SELECT 1 FROM reviews rv WHERE rv.card_id = c.id AND rv.ts >= ? AND rv.ts <= ?)", []any{tsFrom, tsTo}, nil
}

var propColumns = map[string]string{
	"ease":   "c.ease",
	"ivl":    "c.ivl",
	"reps":   "c.reps",
	"lapses": "c.lapses",
	"due":    "c.due",
}

func compileProp(t term) (string, []any, error) {
	col, ok := propColumns[t.key]
	if !ok {
		return "", nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown prop: field %q", t.key))
	}
	// ease is a float; everything else is an integer column.
	if t.key == "ease" {
		v, err := strconv.ParseFloat(t.value, 64)
		if err != nil {
			return "", nil, apperrors.NewBadRequestError(fmt.Sprintf("prop:ease expects a number, got %q", t.value))
		}
		return col + " " + t.op + " ?", []any{v}, nil
	}
	v, err := strconv.Atoi(t.value)
	if err != nil {
		return "", nil, apperrors.NewBadRequestError(fmt.Sprintf("prop:%s expects an integer, got %q", t.key, t.value))
	}
	return col + " " + t.op + " ?", []any{v}, nil
}
