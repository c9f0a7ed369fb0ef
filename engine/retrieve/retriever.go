// Package retrieve implements similarity retrieval: embed the question,
// query a Qdrant collection, and drop hits below the collection's score
// threshold. Read-only; no side effects.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/engine/semantic"
	"github.com/examaid/examaid/pkg/fn"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher abstracts Qdrant vector search.
type Searcher interface {
	Query(ctx context.Context, collection string, embedding []float32, limit int) ([]semantic.SearchResult, error)
}

// Hit is one retained retrieval hit.
type Hit struct {
	Score        float32 `json:"score"`
	Type         string  `json:"type"`
	Content      string  `json:"content"`
	CompoundID   string  `json:"compound_id"`
	CompoundName string  `json:"compound_name"`
	Source       string  `json:"source"`
	ImagePath    string  `json:"image_path,omitempty"`
}

// Retriever embeds questions and queries the vector index.
type Retriever struct {
	embedder Embedder
	search   Searcher
	logger   *slog.Logger
}

// New creates a Retriever.
func New(embedder Embedder, search Searcher, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, search: search, logger: logger}
}

// Retrieve returns the hits for question in col, ranked by similarity.
// Hits scoring strictly below col.ScoreThreshold are discarded; a hit at
// exactly the threshold is kept. Ordering is whatever the index returned,
// which is deterministic for an unchanged index.
func (r *Retriever) Retrieve(ctx context.Context, question string, col domain.Collection) ([]Hit, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}
	if err := domain.ValidateCollection(col); err != nil {
		return nil, err
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed question: %w: %w", domain.ErrRetrievalUnavailable, err)
	}

	results, err := r.search.Query(ctx, col.Name, vector, col.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: query %s: %w: %w", col.Name, domain.ErrRetrievalUnavailable, err)
	}

	kept := fn.Filter(results, func(res semantic.SearchResult) bool {
		return res.Score >= col.ScoreThreshold
	})
	hits := fn.Map(kept, func(res semantic.SearchResult) Hit {
		return Hit{
			Score:        res.Score,
			Type:         res.Type,
			Content:      res.Content,
			CompoundID:   res.CompoundID,
			CompoundName: res.CompoundName,
			Source:       res.Source,
			ImagePath:    res.ImagePath,
		}
	})

	r.logger.Debug("retrieve done",
		"collection", col.Name,
		"returned", len(results),
		"kept", len(hits),
	)
	return hits, nil
}
