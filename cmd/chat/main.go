// Command chat is an interactive terminal client for querying the study
// knowledge base. Useful for checking retrieval quality without the server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/examaid/examaid/engine/answer"
	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/engine/rag"
	"github.com/examaid/examaid/engine/retrieve"
	"github.com/examaid/examaid/engine/semantic"
	"github.com/examaid/examaid/pkg/embed"
	"github.com/examaid/examaid/pkg/groq"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	embedURL := envOr("EMBED_URL", "http://localhost:11434")
	embedModel := envOr("EMBED_MODEL", "all-minilm")
	qdrantAddr := envOr("QDRANT_URL", "localhost:6334")
	groqKey := envOr("GROQ_API_KEY", "")

	store, err := semantic.New(qdrantAddr)
	if err != nil {
		logger.Error("qdrant connect failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	embedder := embed.NewClient(embedURL, embedModel, domain.EmbeddingDims)
	retriever := retrieve.New(embedder, store, logger)
	generator := answer.New(groq.NewClient(groqKey), answer.DefaultTemplates(), answer.DefaultOptions(), logger)
	svc := rag.New(retriever, generator, nil, rag.DefaultOptions(), logger)

	fmt.Println("examaid chat - type a question, or 'exit' to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		result, err := svc.Answer(context.Background(), question)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		fmt.Printf("\n%s\n", result.Answer)
		if len(result.Images) > 0 {
			fmt.Println("\nImages:")
			for _, img := range result.Images {
				fmt.Printf("  %s: %s (score %.3f)\n", img.Compound, img.ImageURL, img.Score)
			}
		}
		if len(result.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range result.Sources {
				fmt.Printf("  %s (score %.3f)\n", src.Compound, src.Score)
			}
		}
	}
}
