package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fscner/internal/config"
	"fscner/internal/listener"
	"fscner/internal/pipeline"
	"fscner/internal/recognizer"
	"fscner/internal/source"
	"fscner/internal/storage"
	"fscner/internal/taxonomy"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("FSC_SOURCE_URL", cfg.SourceURL))
	must(cfg.Require("NER_BASE_URL", cfg.NERBaseURL))

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	logger := cfg.NewLogger()
	tax, err := taxonomy.LoadOrDefault(cfg.TaxonomyPath)
	must(err)

	var store recognizer.Store
	if cfg.NERCache {
		store = db
	}
	builder := pipeline.NewBuilder(recognizer.FromConfig(cfg, store), tax, logger)
	proc := pipeline.NewProcessingService(builder, db, cfg, logger)
	fetcher := source.NewHTTP(source.HTTPOptionsFromConfig(cfg))

	svc := listener.NewService(db, cfg, proc, fetcher, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
