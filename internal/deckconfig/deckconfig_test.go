package deckconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-anki/anki/internal/deckconfig"
	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
)

func TestMergeAppliesOnlyProvidedFields(t *testing.T) {
	base := models.DefaultDeckConfig()
	newPerDay := 5
	leech := models.LeechTag

	merged := deckconfig.Merge(base, deckconfig.Patch{
		NewPerDay:   &newPerDay,
		LeechAction: &leech,
	})

	assert.Equal(t, 5, merged.NewPerDay)
	assert.Equal(t, models.LeechTag, merged.LeechAction)
	assert.Equal(t, base.EasyBonus, merged.EasyBonus) // untouched
	assert.Equal(t, base.ReviewsPerDay, merged.ReviewsPerDay)
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, deckconfig.Validate(models.DefaultDeckConfig()))
}

func TestValidateCollectsAllFailedFields(t *testing.T) {
	cfg := models.DefaultDeckConfig()
	cfg.MinEase = 0.5      // below gte=1.3
	cfg.LeechThreshold = 0 // below gte=1
	cfg.LeechAction = "delete"

	err := deckconfig.Validate(cfg)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "MinEase")
	assert.Contains(t, appErr.Fields, "LeechThreshold")
	assert.Contains(t, appErr.Fields, "LeechAction")
}

func TestParsePatchEmptyIsNoop(t *testing.T) {
	p, err := deckconfig.ParsePatch(nil)
	require.NoError(t, err)
	assert.Nil(t, p.NewPerDay)
}

func TestParsePatchInvalidJSON(t *testing.T) {
	_, err := deckconfig.ParsePatch([]byte("{not json"))
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeBadRequest, appErr.Code)
}
