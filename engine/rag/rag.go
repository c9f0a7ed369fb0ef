// Package rag orchestrates the retrieval-then-generation pipeline. It
// retrieves matching study material from the text and image collections,
// short-circuits when nothing relevant exists, builds a grounded context
// string, and calls the answer generator.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/engine/graph"
	"github.com/examaid/examaid/engine/retrieve"
)

// Retriever abstracts collection retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, question string, col domain.Collection) ([]retrieve.Hit, error)
}

// Generator abstracts grounded answer generation.
type Generator interface {
	Generate(ctx context.Context, question, contextText string) (string, error)
}

// Enricher optionally supplies related compounds from the knowledge graph.
type Enricher interface {
	Related(ctx context.Context, terms []string) ([]graph.Compound, error)
}

// Kind classifies an answer result. The terminal no-material outcome, the
// images-only outcome, and upstream failure are structurally distinct from a
// generated answer so callers never have to parse the answer text.
type Kind string

const (
	KindAnswered   Kind = "answered"
	KindNoMaterial Kind = "no_material"
	KindImagesOnly Kind = "images_only"
	KindDegraded   Kind = "degraded"
)

// Fixed user-facing strings for the non-generated outcomes.
const (
	NoMaterialAnswer = "No relevant material was found in the knowledge base yet. Please try another topic."
	ImagesOnlyAnswer = "Relevant images are available, but no textual explanation is stored."
	DegradedAnswer   = "Sorry, something went wrong while answering your question. Please try again later."
)

// Source is one citation backing the answer.
type Source struct {
	Compound string  `json:"compound"`
	Score    float64 `json:"score"`
}

// Image is one visual match.
type Image struct {
	Compound string  `json:"compound"`
	ImageURL string  `json:"image_url"`
	Score    float64 `json:"score"`
}

// Result is the structured outcome of one question.
type Result struct {
	Kind    Kind     `json:"kind"`
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Images  []Image  `json:"images"`
}

// Options configures the orchestration.
type Options struct {
	TextCollection  domain.Collection
	ImageCollection domain.Collection // zero Name disables image retrieval
	UseGraph        bool
	SearchTimeout   time.Duration
}

// DefaultOptions returns the tuning used in production.
func DefaultOptions() Options {
	return Options{
		TextCollection:  domain.DefaultTextCollection,
		ImageCollection: domain.DefaultImageCollection,
		UseGraph:        false,
		SearchTimeout:   5 * time.Second,
	}
}

// Service composes the retriever and generator.
type Service struct {
	retriever Retriever
	generator Generator
	enricher  Enricher
	opts      Options
	logger    *slog.Logger
}

// New creates a Service. enricher may be nil.
func New(retriever Retriever, generator Generator, enricher Enricher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		enricher:  enricher,
		opts:      opts,
		logger:    logger,
	}
}

// Answer runs the pipeline for one question. Upstream failures never escape:
// they degrade to a fixed apology result with the cause logged. The only
// returned error is input validation, which is the caller's to surface.
func (s *Service) Answer(ctx context.Context, question string) (*Result, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}
	s.logger.Info("answer start", "question_len", len(question))

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	textHits, err := s.retriever.Retrieve(searchCtx, question, s.opts.TextCollection)
	if err != nil {
		s.logger.Error("text retrieval failed", "err", err)
		return degraded(), nil
	}

	var imageHits []retrieve.Hit
	if s.opts.ImageCollection.Name != "" {
		imageHits, err = s.retriever.Retrieve(searchCtx, question, s.opts.ImageCollection)
		if err != nil {
			s.logger.Error("image retrieval failed", "err", err)
			return degraded(), nil
		}
	}

	if len(textHits) == 0 && len(imageHits) == 0 {
		s.logger.Info("answer done", "kind", KindNoMaterial)
		return &Result{
			Kind:    KindNoMaterial,
			Answer:  NoMaterialAnswer,
			Sources: []Source{},
			Images:  []Image{},
		}, nil
	}

	result := &Result{
		Sources: sourcesFromHits(textHits),
		Images:  imagesFromHits(imageHits),
	}

	if len(textHits) == 0 {
		result.Kind = KindImagesOnly
		result.Answer = ImagesOnlyAnswer
		s.logger.Info("answer done", "kind", KindImagesOnly, "images", len(result.Images))
		return result, nil
	}

	contextText := buildContext(textHits)
	if s.opts.UseGraph && s.enricher != nil {
		if enrichment := s.enrich(ctx, question); enrichment != "" {
			contextText += "\n\n" + enrichment
		}
	}

	text, err := s.generator.Generate(ctx, question, contextText)
	if err != nil {
		s.logger.Error("generation failed", "err", err)
		return degraded(), nil
	}

	result.Kind = KindAnswered
	result.Answer = text
	s.logger.Info("answer done", "kind", KindAnswered, "sources", len(result.Sources), "images", len(result.Images))
	return result, nil
}

func degraded() *Result {
	return &Result{
		Kind:    KindDegraded,
		Answer:  DegradedAnswer,
		Sources: []Source{},
		Images:  []Image{},
	}
}

// buildContext joins text hit contents in retrieval order, separated by
// blank lines.
func buildContext(hits []retrieve.Hit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Content != "" {
			parts = append(parts, h.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// enrich looks up related compounds for the question's keywords. Failures
// are logged and skipped; enrichment is best-effort.
func (s *Service) enrich(ctx context.Context, question string) string {
	keywords := extractKeywords(question)
	if len(keywords) == 0 {
		return ""
	}

	related, err := s.enricher.Related(ctx, keywords)
	if err != nil {
		s.logger.Warn("graph enrichment failed, continuing without", "err", err)
		return ""
	}
	if len(related) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Related compounds from the knowledge graph:\n")
	for _, c := range related {
		if c.Class != "" {
			fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Class)
		} else {
			fmt.Fprintf(&b, "- %s\n", c.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func sourcesFromHits(hits []retrieve.Hit) []Source {
	out := make([]Source, 0, len(hits))
	for _, h := range hits {
		if h.Content == "" {
			continue
		}
		out = append(out, Source{Compound: h.CompoundName, Score: round3(h.Score)})
	}
	return out
}

func imagesFromHits(hits []retrieve.Hit) []Image {
	out := make([]Image, 0, len(hits))
	for _, h := range hits {
		if h.ImagePath == "" {
			continue
		}
		out = append(out, Image{Compound: h.CompoundName, ImageURL: h.ImagePath, Score: round3(h.Score)})
	}
	return out
}

// round3 rounds a similarity score to three decimals for display.
func round3(f float32) float64 {
	return math.Round(float64(f)*1000) / 1000
}
