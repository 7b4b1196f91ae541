package cardgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-anki/anki/internal/cardgen"
	"github.com/mcp-anki/anki/internal/models"
)

func TestGenerateBasic(t *testing.T) {
	note := models.Note{Model: models.ModelBasic, Fields: map[string]string{"Front": "hola", "Back": "hello"}}
	cards, err := cardgen.Generate(note, 100)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "forward", cards[0].Template)
	assert.Equal(t, models.StateNew, cards[0].State)
	assert.Equal(t, int64(100), cards[0].Due)
}

func TestGenerateBasicReverse(t *testing.T) {
	note := models.Note{Model: models.ModelBasicReverse, Fields: map[string]string{"Front": "hola", "Back": "hello"}}
	cards, err := cardgen.Generate(note, 100)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "forward", cards[0].Template)
	assert.Equal(t, "reverse", cards[1].Template)
}

func TestGenerateClozeDistinctOrdinals(t *testing.T) {
	note := models.Note{Model: models.ModelCloze, Fields: map[string]string{
		"Text": "The capital of France is {{c1::Paris}}, and Germany's is {{c2::Berlin}}. {{c1::Paris}} is also on the Seine.",
	}}
	cards, err := cardgen.Generate(note, 0)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "cloze-1", cards[0].Template)
	assert.Equal(t, "cloze-2", cards[1].Template)
}

func TestGenerateClozeRequiresText(t *testing.T) {
	note := models.Note{Model: models.ModelCloze, Fields: map[string]string{}}
	_, err := cardgen.Generate(note, 0)
	assert.Error(t, err)
}

func TestGenerateClozeRequiresDeletion(t *testing.T) {
	note := models.Note{Model: models.ModelCloze, Fields: map[string]string{"Text": "no deletions here"}}
	_, err := cardgen.Generate(note, 0)
	assert.Error(t, err)
}

func TestGenerateCustomTemplates(t *testing.T) {
	note := models.Note{Model: models.ModelCustom, Fields: map[string]string{
		"Template:recognition": "x",
		"Template:production":  "y",
		"Prompt":               "irrelevant",
	}}
	cards, err := cardgen.Generate(note, 0)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "production", cards[0].Template)
	assert.Equal(t, "recognition", cards[1].Template)
}

func TestRenderClozeHidesActiveOrdinalOnly(t *testing.T) {
	text := "The capital of France is {{c1::Paris}}, and Germany's is {{c2::Berlin}}."
	rendered := cardgen.RenderCloze(text, 1)
	assert.Contains(t, rendered, "[...]")
	assert.Contains(t, rendered, "Berlin")
	assert.NotContains(t, rendered, "Paris")
}

func TestUnknownModelRejected(t *testing.T) {
	note := models.Note{Model: "unknown"}
	_, err := cardgen.Generate(note, 0)
	assert.Error(t, err)
}
