package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/samirrijal/evacguide/internal/adapters/catalog"
	"github.com/samirrijal/evacguide/internal/adapters/postgres"
	"github.com/samirrijal/evacguide/internal/adapters/shelterapi"
	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/shelter"
	"github.com/samirrijal/evacguide/internal/pkg/config"
	"github.com/samirrijal/evacguide/internal/pkg/logging"
)

type Options struct {
	File         string `short:"f" long:"file"          description:"Shelter catalog file (.json, .yaml or .yml); defaults to shelters.catalog_path"`
	FromProvider bool   `short:"p" long:"from-provider" description:"Fetch shelters from shelters.provider_url instead of a file"`
	BatchSize    int    `short:"b" long:"batch-size"    env:"INGEST_BATCH_SIZE" description:"Rows per upsert batch" default:"500"`
	DryRun       bool   `short:"n" long:"dry-run"       description:"Parse and report without writing to the database"`
	Timeout      int    `short:"t" long:"timeout"       description:"Overall timeout in seconds" default:"300"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.Load("evacguide-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(opts.Timeout)*time.Second)
	defer cancel()

	shelters, err := load(ctx, cfg, opts)
	if err != nil {
		log.Fatalf("load shelters: %v", err)
	}
	slog.Info("shelters parsed", "count", len(shelters))

	if opts.DryRun {
		for _, c := range shelter.Categories(shelters) {
			fmt.Printf("%-24s %d\n", c.Category, c.Count)
		}
		return
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	repo := postgres.NewShelterRepo(db)
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	for start := 0; start < len(shelters); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(shelters))
		if err := repo.UpsertBatch(ctx, shelters[start:end]); err != nil {
			log.Fatalf("upsert: %v", err)
		}
		slog.Info("batch upserted", "from", start, "to", end)
	}

	slog.Info("ingestion complete", "shelters", len(shelters))
}

func load(ctx context.Context, cfg *config.Config, opts Options) ([]domain.Shelter, error) {
	if opts.FromProvider {
		if cfg.Shelters.ProviderURL == "" {
			return nil, errors.New("shelters.provider_url is not configured")
		}
		payload, err := shelterapi.NewClient(cfg.Shelters.ProviderURL, cfg.Shelters.ProviderKey).FetchShelters(ctx)
		if err != nil {
			return nil, err
		}
		res, err := shelter.ExtractRecords(payload, slog.Default())
		if err != nil {
			return nil, err
		}
		slog.Info("provider payload normalized", "container", res.Container, "skipped", res.Skipped)
		return res.Shelters, nil
	}

	path := opts.File
	if path == "" {
		path = cfg.Shelters.CatalogPath
	}
	file, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return file.List(ctx)
}
