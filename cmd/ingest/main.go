// Command ingest loads Wikidata compound CSV dumps into Qdrant, either
// directly in batch or through NATS (publish rows, or run the consumer).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/schollz/progressbar/v3"

	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/engine/ingest"
	"github.com/examaid/examaid/engine/semantic"
	"github.com/examaid/examaid/pkg/embed"
	"github.com/examaid/examaid/pkg/metrics"
	"github.com/examaid/examaid/pkg/natsutil"
)

var met = metrics.New()

var (
	mRowsIngested  = met.Counter("examaid_ingest_rows_total", "Rows ingested")
	mRowsSkipped   = met.Counter("examaid_ingest_rows_skipped_total", "Rows skipped as invalid")
	mRowsPublished = met.Counter("examaid_ingest_rows_published_total", "Rows published to NATS")
	mBatchDur      = met.Histogram("examaid_ingest_batch_duration_seconds", "Batch ingest duration", nil)
)

func main() {
	_ = godotenv.Load()

	var (
		textCSV     = flag.String("text", "", "text dump CSV (compound,compoundLabel,article)")
		imageCSV    = flag.String("images", "", "image dump CSV (compound,compoundLabel,image)")
		embedURL    = flag.String("embed", "http://localhost:11434", "embedding service base URL")
		embedModel  = flag.String("model", "all-minilm", "embedding model name")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		natsURL     = flag.String("nats", nats.DefaultURL, "NATS server URL")
		publish     = flag.Bool("publish", false, "publish rows to NATS instead of ingesting directly")
		consume     = flag.Bool("consume", false, "run the NATS ingest consumer")
		metricsPort = flag.Int("metrics-port", 9091, "metrics HTTP port")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	met.ServeAsync(*metricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, runArgs{
		textCSV:    *textCSV,
		imageCSV:   *imageCSV,
		embedURL:   *embedURL,
		embedModel: *embedModel,
		qdrantAddr: *qdrantAddr,
		natsURL:    *natsURL,
		publish:    *publish,
		consume:    *consume,
	}, log); err != nil {
		log.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

type runArgs struct {
	textCSV    string
	imageCSV   string
	embedURL   string
	embedModel string
	qdrantAddr string
	natsURL    string
	publish    bool
	consume    bool
}

func run(ctx context.Context, args runArgs, log *slog.Logger) error {
	records, err := loadRecords(args.textCSV, args.imageCSV)
	if err != nil {
		return err
	}
	if len(records) == 0 && !args.consume {
		return fmt.Errorf("nothing to do: pass -text and/or -images, or -consume")
	}

	switch {
	case args.publish:
		return publishRecords(ctx, args.natsURL, records, log)
	case args.consume:
		return runConsumer(ctx, args, log)
	default:
		return runBatch(ctx, args, records, log)
	}
}

func loadRecords(textCSV, imageCSV string) ([]domain.CompoundRecord, error) {
	var records []domain.CompoundRecord
	if textCSV != "" {
		f, err := os.Open(textCSV)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", textCSV, err)
		}
		recs, err := ingest.ReadTextCSV(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	if imageCSV != "" {
		f, err := os.Open(imageCSV)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", imageCSV, err)
		}
		recs, err := ingest.ReadImageCSV(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

func runBatch(ctx context.Context, args runArgs, records []domain.CompoundRecord, log *slog.Logger) error {
	vs, err := semantic.New(args.qdrantAddr)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vs.Close()

	for _, col := range []string{domain.DefaultTextCollection.Name, domain.DefaultImageCollection.Name} {
		if err := vs.EnsureCollection(ctx, col, domain.EmbeddingDims); err != nil {
			return fmt.Errorf("ensure collection %s: %w", col, err)
		}
	}
	log.Info("connected to Qdrant", "addr", args.qdrantAddr, "dims", domain.EmbeddingDims)

	embedder := embed.NewClient(args.embedURL, args.embedModel, domain.EmbeddingDims)

	bar := progressbar.Default(int64(len(records)), "ingesting")
	start := time.Now()
	prev := 0
	stats, err := ingest.RunBatch(ctx, ingest.Deps{Embedder: embedder, Store: vs, Logger: log}, records, func(done int) {
		bar.Add(done - prev)
		prev = done
	})
	mBatchDur.Since(start)
	if err != nil {
		return err
	}
	bar.Finish()

	mRowsIngested.Add(int64(stats.Ingested))
	mRowsSkipped.Add(int64(stats.Skipped))
	log.Info("batch ingest complete", "ingested", stats.Ingested, "skipped", stats.Skipped)
	return nil
}

func publishRecords(ctx context.Context, natsURL string, records []domain.CompoundRecord, log *slog.Logger) error {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	bar := progressbar.Default(int64(len(records)), "publishing")
	for _, rec := range records {
		if err := natsutil.Publish(ctx, nc, ingest.IngestSubject, rec); err != nil {
			return fmt.Errorf("publish row %s: %w", rec.CompoundID, err)
		}
		mRowsPublished.Inc()
		bar.Add(1)
	}
	bar.Finish()

	log.Info("published rows", "count", len(records), "subject", ingest.IngestSubject)
	return nil
}

func runConsumer(ctx context.Context, args runArgs, log *slog.Logger) error {
	vs, err := semantic.New(args.qdrantAddr)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vs.Close()

	for _, col := range []string{domain.DefaultTextCollection.Name, domain.DefaultImageCollection.Name} {
		if err := vs.EnsureCollection(ctx, col, domain.EmbeddingDims); err != nil {
			return fmt.Errorf("ensure collection %s: %w", col, err)
		}
	}

	nc, err := nats.Connect(args.natsURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	embedder := embed.NewClient(args.embedURL, args.embedModel, domain.EmbeddingDims)

	sub, err := ingest.StartConsumer(nc, ingest.Deps{Embedder: embedder, Store: vs, Logger: log})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer sub.Unsubscribe()

	log.Info("ingest consumer running", "subject", ingest.IngestSubject)
	<-ctx.Done()
	log.Info("shutting down consumer")
	return nil
}
