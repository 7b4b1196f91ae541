package importexport

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mcp-anki/anki/internal/models"
)

// ExportJSON writes cards as a JSON array in the same shape ParseJSON
// reads, so an export round-trips through import unchanged. Like
// ExportCSV it deduplicates by note, so a multi-card note appears once.
func ExportJSON(w io.Writer, cards []models.CardWithNote) error {
	out := make([]jsonRecord, 0, len(cards))
	seen := make(map[int64]bool)
	for _, c := range cards {
		if seen[c.NoteID] {
			continue
		}
		seen[c.NoteID] = true
		out = append(out, jsonRecord{Deck: c.DeckName, Model: string(c.Model), Fields: c.Fields, Tags: c.Tags})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ExportCSV writes cards as a header-first CSV, deduplicating by note so a
// multi-card note (e.g. basic_reverse) appears once.
func ExportCSV(w io.Writer, cards []models.CardWithNote) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	fieldNames := collectFieldNames(cards)
	header := append([]string{"deck", "model", "tags"}, fieldNames...)
	if err := cw.Write(header); err != nil {
		return err
	}

	seen := make(map[int64]bool)
	for _, c := range cards {
		if seen[c.NoteID] {
			continue
		}
		seen[c.NoteID] = true

		row := []string{c.DeckName, string(c.Model), strings.Join(c.Tags, " ")}
		for _, fn := range fieldNames {
			row = append(row, c.Fields[fn])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func collectFieldNames(cards []models.CardWithNote) []string {
	set := make(map[string]bool)
	for _, c := range cards {
		for k := range c.Fields {
			set[k] = true
		}
	}
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ExportMarkdown writes cards in the same Markdown format ParseMarkdown
// reads, grouping consecutive notes under their deck header but restating
// Tags:/Model: on every note so notes within one deck that differ in tags
// or model round-trip faithfully rather than inheriting the deck's first
// note's values (spec §4.7's round-trip law).
func ExportMarkdown(w io.Writer, cards []models.CardWithNote) error {
	seen := make(map[int64]bool)
	var lastDeck string
	first := true

	for _, c := range cards {
		if seen[c.NoteID] {
			continue
		}
		seen[c.NoteID] = true

		if c.DeckName != lastDeck {
			if !first {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s %s\n", deckHeaderPrefix, c.DeckName)
			lastDeck = c.DeckName
		}
		first = false

		fmt.Fprintf(w, "%s %s\n", modelPrefix, c.Model)
		fmt.Fprintf(w, "%s %s\n", tagsPrefix, strings.Join(c.Tags, " "))
		switch c.Model {
		case models.ModelCloze:
			fmt.Fprintf(w, "%s %s\n", clozePrefix, c.Fields["Text"])
		default:
			fmt.Fprintf(w, "%s %s\n", questionPrefix, c.Fields["Front"])
			fmt.Fprintf(w, "%s %s\n", answerPrefix, c.Fields["Back"])
		}
		if extra, ok := c.Fields["Extra"]; ok && extra != "" {
			fmt.Fprintf(w, "%s %s\n", extraPrefix, extra)
		}
		fmt.Fprintf(w, "%s\n", separator)
	}
	return nil
}
