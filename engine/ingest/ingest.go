// Package ingest loads Wikidata compound dumps into the vector index. Rows
// flow through composable stages: validate, build a point, embed, store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/engine/semantic"
	"github.com/examaid/examaid/pkg/fn"
	"github.com/examaid/examaid/pkg/natsutil"
)

const (
	// IngestSubject is the NATS subject for incoming compound rows.
	IngestSubject = "study.ingest"
	// DLQSubject is the dead letter queue subject for failed messages.
	DLQSubject = "study.ingest.dlq"
	// MaxRetries before sending to DLQ.
	MaxRetries = 3
	// EmbedBatchSize is the max rows per embedding request.
	EmbedBatchSize = 100
)

// imageCaption is the text embedded in place of an article for image rows.
func imageCaption(name string) string {
	return fmt.Sprintf("Chemical compound: %s. This entry corresponds to the structural image of the compound.", name)
}

// Embedder produces vectors for point contents.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Upserter writes points into a named collection.
type Upserter interface {
	Upsert(ctx context.Context, collection string, records []semantic.Record) error
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Embedder        Embedder
	Store           Upserter
	TextCollection  string
	ImageCollection string
	Logger          *slog.Logger
}

func (d *Deps) defaults() {
	if d.TextCollection == "" {
		d.TextCollection = domain.DefaultTextCollection.Name
	}
	if d.ImageCollection == "" {
		d.ImageCollection = domain.DefaultImageCollection.Name
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
}

// BuiltPoint is a validated row with its point identity and embedding text.
type BuiltPoint struct {
	Record     domain.CompoundRecord
	ID         string
	Content    string
	Collection string
}

// EmbeddedPoint carries the vector alongside the built point.
type EmbeddedPoint struct {
	BuiltPoint
	Embedding []float32
}

// --- Pipeline Stages ---

// Validate checks a CompoundRecord via domain validation.
var Validate fn.Stage[domain.CompoundRecord, domain.CompoundRecord] = func(_ context.Context, rec domain.CompoundRecord) fn.Result[domain.CompoundRecord] {
	if err := domain.ValidateRecord(rec); err != nil {
		return fn.Err[domain.CompoundRecord](err)
	}
	return fn.Ok(rec)
}

// NewBuild creates a Build stage that assigns point identity and content.
// Identity is deterministic for a compound and type, so re-ingesting a dump
// overwrites points instead of duplicating them.
func NewBuild(textCollection, imageCollection string) fn.Stage[domain.CompoundRecord, BuiltPoint] {
	return func(_ context.Context, rec domain.CompoundRecord) fn.Result[BuiltPoint] {
		pt := BuiltPoint{
			Record: rec,
			ID:     PointID(rec),
		}
		switch rec.Type {
		case domain.PointTypeImage:
			pt.Content = imageCaption(rec.CompoundName)
			pt.Collection = imageCollection
		default:
			pt.Content = rec.Article
			pt.Collection = textCollection
		}
		return fn.Ok(pt)
	}
}

// NewEmbed creates an Embed stage for single points (consumer path).
func NewEmbed(embedder Embedder) fn.Stage[BuiltPoint, EmbeddedPoint] {
	return func(ctx context.Context, pt BuiltPoint) fn.Result[EmbeddedPoint] {
		vector, err := embedder.Embed(ctx, pt.Content)
		if err != nil {
			return fn.Errf[EmbeddedPoint]("ingest: embed point: %w", err)
		}
		return fn.Ok(EmbeddedPoint{BuiltPoint: pt, Embedding: vector})
	}
}

// NewStore creates a Store stage that upserts one point into Qdrant.
func NewStore(store Upserter) fn.Stage[EmbeddedPoint, string] {
	return func(ctx context.Context, pt EmbeddedPoint) fn.Result[string] {
		rec := semantic.Record{
			ID:        pt.ID,
			Embedding: pt.Embedding,
			Payload:   pointPayload(pt.Record, pt.Content),
		}
		if err := store.Upsert(ctx, pt.Collection, []semantic.Record{rec}); err != nil {
			return fn.Errf[string]("ingest: vector upsert: %w", err)
		}
		return fn.Ok(pt.ID)
	}
}

// PointID derives the deterministic point UUID for a record.
func PointID(rec domain.CompoundRecord) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("examaid/%s/%s", rec.Type, rec.CompoundID))).String()
}

func pointPayload(rec domain.CompoundRecord, content string) map[string]any {
	source := rec.Source
	if source == "" {
		source = "Wikidata"
	}
	payload := map[string]any{
		"type":          rec.Type,
		"content":       content,
		"compound_id":   rec.CompoundID,
		"compound_name": rec.CompoundName,
		"source":        source,
	}
	if rec.Type == domain.PointTypeImage {
		payload["image_path"] = rec.ImagePath
	}
	return payload
}

// NewPipeline constructs the full single-row ingestion pipeline with all
// stages wired and traced.
func NewPipeline(deps Deps) fn.Stage[domain.CompoundRecord, string] {
	deps.defaults()

	validated := fn.TracedStage("ingest.validate", Validate)
	built := fn.Then(validated, fn.TracedStage("ingest.build", NewBuild(deps.TextCollection, deps.ImageCollection)))
	tapped := fn.Then(built, fn.TapStage(func(_ context.Context, pt BuiltPoint) {
		deps.Logger.Debug("ingest: point built", "point_id", pt.ID, "collection", pt.Collection)
	}))
	embedded := fn.Then(tapped, fn.TracedStage("ingest.embed", fn.RetryStage(fn.DefaultRetry, NewEmbed(deps.Embedder))))
	stored := fn.Then(embedded, fn.TracedStage("ingest.store", NewStore(deps.Store)))

	return stored
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Record  domain.CompoundRecord `json:"record"`
	Error   string                `json:"error"`
	Retries int                   `json:"retries"`
}

// consumer runs rows through the pipeline and routes failures. The publish
// functions are seams so the retry/DLQ decision can be tested without a
// NATS connection.
type consumer struct {
	pipeline fn.Stage[domain.CompoundRecord, string]
	log      *slog.Logger
	toDLQ    func(ctx context.Context, m dlqMessage) error
	requeue  func(ctx context.Context, rec domain.CompoundRecord, retries int) error
}

func (c *consumer) handle(ctx context.Context, msg *nats.Msg, rec domain.CompoundRecord) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	result := c.pipeline(ctx, rec)
	if result.IsOk() {
		pointID, _ := result.Unwrap()
		c.log.Info("ingest: success", "point_id", pointID, "compound_id", rec.CompoundID)
		return
	}

	_, pipeErr := result.Unwrap()

	var vErr *domain.ValidationError
	if errors.As(pipeErr, &vErr) {
		c.log.Warn("ingest: invalid row dropped",
			"error", pipeErr,
			"compound_id", rec.CompoundID,
		)
		return
	}

	retries := natsutil.Retries(msg) + 1
	c.log.Error("ingest: pipeline failed",
		"error", pipeErr,
		"compound_id", rec.CompoundID,
		"retry", retries,
	)

	if retries >= MaxRetries {
		dlq := dlqMessage{
			Record:  rec,
			Error:   pipeErr.Error(),
			Retries: retries,
		}
		if err := c.toDLQ(ctx, dlq); err != nil {
			c.log.Error("ingest: DLQ publish failed", "error", err)
		}
		return
	}
	if err := c.requeue(ctx, rec, retries); err != nil {
		c.log.Error("ingest: retry publish failed", "error", err)
	}
}

// StartConsumer subscribes to the ingest subject and runs each row through
// the pipeline with retry and DLQ support. Validation failures are dropped
// immediately; retrying a row that can never validate is pointless.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	deps.defaults()
	c := &consumer{
		pipeline: NewPipeline(deps),
		log:      deps.Logger,
		toDLQ: func(ctx context.Context, m dlqMessage) error {
			return natsutil.Publish(ctx, nc, DLQSubject, m)
		},
		requeue: func(ctx context.Context, rec domain.CompoundRecord, retries int) error {
			return natsutil.PublishRetry(ctx, nc, IngestSubject, rec, retries)
		},
	}
	return natsutil.Subscribe(nc, IngestSubject, c.handle)
}
