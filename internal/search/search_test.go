package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-anki/anki/internal/search"
)

func TestTokenizeRespectsQuotedSpans(t *testing.T) {
	tokens := search.Tokenize(`deck:"World Capitals" is:due`)
	assert.Equal(t, []string{"deck:World Capitals", "is:due"}, tokens)
}

func TestCompileDeckIsSubstringMatch(t *testing.T) {
	where, args, err := search.Compile("deck:Spanish", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "d.name LIKE ?", where)
	assert.Equal(t, []any{"%Spanish%"}, args)
}

func TestCompileTagUsesDelimitedList(t *testing.T) {
	where, args, err := search.Compile("tag:verb", time.Now())
	require.NoError(t, err)
	assert.Contains(t, where, "LIKE ?")
	assert.Equal(t, []any{"%,verb,%"}, args)
}

func TestCompileIsSuspended(t *testing.T) {
	where, args, err := search.Compile("is:suspended", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "c.state = ?", where)
	assert.Equal(t, []any{"suspended"}, args)
}

func TestCompileIsUnknownRejected(t *testing.T) {
	_, _, err := search.Compile("is:bogus", time.Now())
	assert.Error(t, err)
}

func TestCompileNegation(t *testing.T) {
	where, _, err := search.Compile("-tag:verb", time.Now())
	require.NoError(t, err)
	assert.True(t, len(where) > 4 && where[:4] == "NOT ")
}

func TestCompilePropEase(t *testing.T) {
	where, args, err := search.Compile("prop:ease>=2.5", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "c.ease >= ?", where)
	assert.Equal(t, []any{2.5}, args)
}

func TestCompilePropInvalidField(t *testing.T) {
	_, _, err := search.Compile("prop:bogus>1", time.Now())
	assert.Error(t, err)
}

func TestCompileRatedRequiresInteger(t *testing.T) {
	_, _, err := search.Compile("rated:soon", time.Now())
	assert.Error(t, err)
}

func TestCompileMultipleTermsAreAnded(t *testing.T) {
	where, args, err := search.Compile("deck:Spanish is:review", time.Now())
	require.NoError(t, err)
	assert.Contains(t, where, " AND ")
	assert.Len(t, args, 2) // deck: contributes 1, is: contributes 1
}

func TestCompileBareTextSearchesFieldsAndTags(t *testing.T) {
	where, args, err := search.Compile("hola", time.Now())
	require.NoError(t, err)
	assert.Contains(t, where, "n.fields_json LIKE ?")
	assert.Equal(t, []any{"%hola%", "%hola%"}, args)
}
