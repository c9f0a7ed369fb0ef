package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/pkg/groq"
	"github.com/examaid/examaid/pkg/resilience"
)

// Completer abstracts the LLM chat completions call.
type Completer interface {
	Complete(ctx context.Context, req groq.ChatRequest) (string, error)
}

// Options configures the Generator.
type Options struct {
	Model       string
	Temperature float32
	TemplateID  string
}

// DefaultOptions match the tuning used against the Groq free tier.
func DefaultOptions() Options {
	return Options{
		Model:       "llama-3.3-70b-versatile",
		Temperature: 0.2,
		TemplateID:  TemplateTutor,
	}
}

// Generator produces grounded answers from retrieved context.
type Generator struct {
	llm       Completer
	templates *Templates
	breaker   *resilience.Breaker
	opts      Options
	logger    *slog.Logger
}

// New creates a Generator. A nil templates registry falls back to the
// built-in templates.
func New(llm Completer, templates *Templates, opts Options, logger *slog.Logger) *Generator {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		llm:       llm,
		templates: templates,
		breaker:   resilience.NewBreaker(resilience.DefaultBreakerOpts),
		opts:      opts,
		logger:    logger,
	}
}

// Generate renders the prompt from question and context and returns the
// model's completion, trimmed. Upstream failures (including an open circuit
// after repeated failures) wrap domain.ErrGenerationUnavailable.
func (g *Generator) Generate(ctx context.Context, question, contextText string) (string, error) {
	prompt, err := g.templates.Render(g.opts.TemplateID, map[string]string{
		"context":  contextText,
		"question": question,
	})
	if err != nil {
		return "", err
	}

	var text string
	callErr := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		text, err = g.llm.Complete(ctx, groq.ChatRequest{
			Model:       g.opts.Model,
			Messages:    []groq.Message{{Role: domain.RoleUser, Content: prompt}},
			Temperature: g.opts.Temperature,
		})
		return err
	})
	if callErr != nil {
		return "", fmt.Errorf("answer: complete: %w: %w", domain.ErrGenerationUnavailable, callErr)
	}

	g.logger.Debug("generation done", "model", g.opts.Model, "answer_len", len(text))
	return text, nil
}
