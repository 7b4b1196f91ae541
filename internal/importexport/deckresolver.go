package importexport

import (
	"context"

	"github.com/mcp-anki/anki/internal/models"
	"github.com/mcp-anki/anki/internal/repository"
)

// deckResolver adapts a repository.DeckRepository to NoteScopedDeckResolver,
// creating a top-level deck with default scheduling config the first time
// an import references it by name.
type deckResolver struct {
	decks repository.DeckRepository
}

// NewDeckResolver returns a NoteScopedDeckResolver backed by decks.
func NewDeckResolver(decks repository.DeckRepository) NoteScopedDeckResolver {
	return &deckResolver{decks: decks}
}

func (r *deckResolver) GetOrCreateByName(ctx context.Context, name string) (int64, error) {
	existing, err := r.decks.GetByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	return r.decks.Create(ctx, name, nil, models.DefaultDeckConfig())
}
