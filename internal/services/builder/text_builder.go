// -------------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// TextBuilder writes term postings with frequency counts. Applying an
// entity replaces every posting it previously contributed to the index.
type TextBuilder struct {
	storage interfaces.SearchStorage
	logger  arbor.ILogger
}

// NewTextBuilder creates a text index builder
func NewTextBuilder(storage interfaces.SearchStorage, logger arbor.ILogger) *TextBuilder {
	return &TextBuilder{
		storage: storage,
		logger:  logger,
	}
}

// Apply indexes one entity's title, body and tags as term postings
func (b *TextBuilder) Apply(ctx context.Context, index *models.IndexDefinition, entity *models.CatalogEntity) error {
	if err := b.storage.DeleteEntityEntries(ctx, index.ID, entity.ID); err != nil {
		return fmt.Errorf("failed to clear previous entries: %w", err)
	}

	text := entity.Title + " " + entity.Body + " " + strings.Join(entity.Tags, " ")
	freqs := TermFrequencies(Tokenize(text))

	for term, freq := range freqs {
		entry := &interfaces.PostingEntry{
			ID:       index.ID + "|" + term + "|" + entity.ID,
			IndexID:  index.ID,
			Term:     term,
			EntityID: entity.ID,
			Freq:     freq,
		}
		if err := b.storage.SavePosting(ctx, entry); err != nil {
			return fmt.Errorf("failed to save posting for term %s: %w", term, err)
		}
	}

	b.logger.Debug().
		Str("index_id", index.ID).
		Str("entity_id", entity.ID).
		Int("terms", len(freqs)).
		Msg("Entity indexed")

	return nil
}
