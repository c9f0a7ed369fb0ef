package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/engine/semantic"
	"github.com/examaid/examaid/pkg/fn"
)

// Stats summarizes one batch run.
type Stats struct {
	Ingested int
	Skipped  int
}

// RunBatch ingests a slice of rows in embedding-sized chunks. Invalid rows
// are skipped and counted; any other failure aborts the run. progress, if
// non-nil, is called with the number of rows completed after each chunk.
func RunBatch(ctx context.Context, deps Deps, records []domain.CompoundRecord, progress func(done int)) (Stats, error) {
	deps.defaults()

	var stats Stats
	build := NewBuild(deps.TextCollection, deps.ImageCollection)

	points := make([]BuiltPoint, 0, len(records))
	for _, rec := range records {
		res := fn.Then(Validate, build)(ctx, rec)
		pt, err := res.Unwrap()
		if err != nil {
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				stats.Skipped++
				deps.Logger.Warn("ingest: skipping invalid row", "compound_id", rec.CompoundID, "error", err)
				continue
			}
			return stats, err
		}
		points = append(points, pt)
	}

	done := 0
	for _, chunk := range fn.Chunk(points, EmbedBatchSize) {
		texts := fn.Map(chunk, func(pt BuiltPoint) string { return pt.Content })

		vectors, err := deps.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("ingest: embed batch: %w", err)
		}
		if len(vectors) != len(chunk) {
			return stats, fmt.Errorf("ingest: embed batch returned %d vectors for %d rows", len(vectors), len(chunk))
		}

		// Group by destination collection; a chunk can mix text and image rows.
		byCollection := map[string][]semantic.Record{}
		for i, pt := range chunk {
			byCollection[pt.Collection] = append(byCollection[pt.Collection], semantic.Record{
				ID:        pt.ID,
				Embedding: vectors[i],
				Payload:   pointPayload(pt.Record, pt.Content),
			})
		}
		for collection, recs := range byCollection {
			if err := deps.Store.Upsert(ctx, collection, recs); err != nil {
				return stats, fmt.Errorf("ingest: upsert %s: %w", collection, err)
			}
		}

		stats.Ingested += len(chunk)
		done += len(chunk)
		if progress != nil {
			progress(done)
		}
	}

	deps.Logger.Info("ingest: batch done", "ingested", stats.Ingested, "skipped", stats.Skipped)
	return stats, nil
}
