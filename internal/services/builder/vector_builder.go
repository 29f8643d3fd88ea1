package builder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// EmbeddingDim is the fixed width of feature-hash embeddings
const EmbeddingDim = 128

// VectorBuilder writes feature-hash embeddings. Each entity gets one
// L2-normalized vector; tokens are hashed into buckets with a signed
// contribution so collisions partially cancel.
type VectorBuilder struct {
	storage interfaces.SearchStorage
	logger  arbor.ILogger
}

// NewVectorBuilder creates a vector index builder
func NewVectorBuilder(storage interfaces.SearchStorage, logger arbor.ILogger) *VectorBuilder {
	return &VectorBuilder{
		storage: storage,
		logger:  logger,
	}
}

// Apply embeds one entity and stores its vector, replacing any
// previous one
func (b *VectorBuilder) Apply(ctx context.Context, index *models.IndexDefinition, entity *models.CatalogEntity) error {
	text := entity.Title + " " + entity.Body + " " + strings.Join(entity.Tags, " ")
	vector := Embed(text)

	entry := &interfaces.VectorEntry{
		ID:       index.ID + "|" + entity.ID,
		IndexID:  index.ID,
		EntityID: entity.ID,
		Vector:   vector,
	}
	if err := b.storage.SaveVector(ctx, entry); err != nil {
		return fmt.Errorf("failed to save vector: %w", err)
	}

	b.logger.Debug().
		Str("index_id", index.ID).
		Str("entity_id", entity.ID).
		Msg("Entity embedded")

	return nil
}

// Embed produces an L2-normalized feature-hash embedding of text
func Embed(text string) []float32 {
	vector := make([]float32, EmbeddingDim)

	for _, token := range Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()

		bucket := sum % EmbeddingDim
		if sum&(1<<31) != 0 {
			vector[bucket]--
		} else {
			vector[bucket]++
		}
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector
}

// Cosine returns the cosine similarity of two equal-length vectors
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
