// Package deckconfig implements the three-way deck configuration merge and
// its validation (spec §4.5): built-in defaults, overridden by the deck's
// stored config, overridden by a caller-supplied partial patch.
package deckconfig

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/mcp-anki/anki/internal/errors"
	"github.com/mcp-anki/anki/internal/models"
)

var validate = validator.New()

// Patch is a partial DeckConfig where every field is optional; nil/zero
// means "leave the underlying value unchanged." Pointers (and nil slices)
// distinguish "not provided" from "set to the zero value."
type Patch struct {
	LearningStepsMins      []int                `json:"learningStepsMins,omitempty"`
	GraduatingIntervalDays *int                 `json:"graduatingIntervalDays,omitempty"`
	EasyBonus              *float64             `json:"easyBonus,omitempty"`
	HardInterval           *float64             `json:"hardInterval,omitempty"`
	LapseStepsMins         []int                `json:"lapseStepsMins,omitempty"`
	NewPerDay              *int                 `json:"newPerDay,omitempty"`
	ReviewsPerDay          *int                 `json:"reviewsPerDay,omitempty"`
	MinEase                *float64             `json:"minEase,omitempty"`
	LeechThreshold         *int                 `json:"leechThreshold,omitempty"`
	LeechAction            *models.LeechAction  `json:"leechAction,omitempty"`
	FuzzPercent            *float64             `json:"fuzzPercent,omitempty"`
	BurySiblings           *bool                `json:"burySiblings,omitempty"`
}

// Merge applies patch on top of stored, which the deck repository has
// already layered on top of models.DefaultDeckConfig() when loading the
// deck (spec §4.5: "defaults ⊕ stored ⊕ patch").
func Merge(stored models.DeckConfig, patch Patch) models.DeckConfig {
	merged := stored
	if patch.LearningStepsMins != nil {
		merged.LearningStepsMins = patch.LearningStepsMins
	}
	if patch.GraduatingIntervalDays != nil {
		merged.GraduatingIntervalDays = *patch.GraduatingIntervalDays
	}
	if patch.EasyBonus != nil {
		merged.EasyBonus = *patch.EasyBonus
	}
	if patch.HardInterval != nil {
		merged.HardInterval = *patch.HardInterval
	}
	if patch.LapseStepsMins != nil {
		merged.LapseStepsMins = patch.LapseStepsMins
	}
	if patch.NewPerDay != nil {
		merged.NewPerDay = *patch.NewPerDay
	}
	if patch.ReviewsPerDay != nil {
		merged.ReviewsPerDay = *patch.ReviewsPerDay
	}
	if patch.MinEase != nil {
		merged.MinEase = *patch.MinEase
	}
	if patch.LeechThreshold != nil {
		merged.LeechThreshold = *patch.LeechThreshold
	}
	if patch.LeechAction != nil {
		merged.LeechAction = *patch.LeechAction
	}
	if patch.FuzzPercent != nil {
		merged.FuzzPercent = *patch.FuzzPercent
	}
	if patch.BurySiblings != nil {
		merged.BurySiblings = *patch.BurySiblings
	}
	return merged
}

// Validate runs struct-tag validation and, on failure, returns an
// *errors.AppError carrying every failed field (spec §4.5, §7), not just
// the first.
func Validate(cfg models.DeckConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewInternalError(err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return apperrors.NewValidationErrors(fields)
}

// ParsePatch decodes a JSON object into a Patch, tolerating any subset of
// fields being present.
func ParsePatch(raw []byte) (Patch, error) {
	var p Patch
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Patch{}, apperrors.NewBadRequestError("invalid deck config patch: " + err.Error())
	}
	return p, nil
}
