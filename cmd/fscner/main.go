package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"fscner/internal/api"
	"fscner/internal/config"
	"fscner/internal/pipeline"
	"fscner/internal/recognizer"
	"fscner/internal/source"
	"fscner/internal/storage"
	"fscner/internal/taxonomy"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	logger := cfg.NewLogger()

	cmd := os.Args[1]
	switch cmd {
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		src := fs.String("source", cfg.SourceURL, "registry URL or saved snapshot (.html, .mhtml, .pdf, .xlsx, .txt)")
		out := fs.String("out", cfg.OutputCSV, "output csv path (relative paths go under OUTPUT_DIR)")
		xlsx := fs.String("xlsx", cfg.OutputXLSX, "optional output xlsx path")
		workers := fs.Int("workers", cfg.Workers, "rows processed in parallel")
		preview := fs.Int("preview", cfg.PreviewRows, "rows to print after the run")
		cache := fs.Bool("cache", cfg.NERCache, "cache recognizer responses in the database")
		taxPath := fs.String("taxonomy", cfg.TaxonomyPath, "label taxonomy yaml")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		cfg.Workers = max(*workers, 1)

		proc := pipeline.NewProcessingService(newBuilder(cfg, db, *cache, *taxPath, logger), db, cfg, logger)
		outputs := pipeline.Outputs{CSV: cfg.ResolveOutput(*out), XLSX: cfg.ResolveOutput(*xlsx)}
		res, err := proc.Run(ctx, source.Open(*src, source.HTTPOptionsFromConfig(cfg)), *src, outputs)
		must(err)

		pipeline.PrintPreview(os.Stdout, res.Companies, *preview)
		fmt.Printf("run done id=%s rows=%d csv=%s elapsed=%s\n", res.RunID, len(res.Companies), res.Outputs.CSV, res.Elapsed.Round(time.Millisecond))
		if res.Outputs.XLSX != "" {
			fmt.Printf("xlsx=%s\n", res.Outputs.XLSX)
		}
	case "fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		src := fs.String("source", cfg.SourceURL, "registry URL or saved snapshot")
		save := fs.String("save", "", "also save the fetched page to this path (URL sources only)")
		_ = fs.Parse(os.Args[2:])

		s := source.Open(*src, source.HTTPOptionsFromConfig(cfg))
		if h, ok := s.(*source.HTTP); ok && *save != "" {
			body, err := h.Fetch(ctx)
			must(err)
			must(os.WriteFile(*save, body, 0o644))
			s = source.NewFile(*save)
		}
		rows, err := s.Rows(ctx)
		must(err)
		for _, row := range rows {
			fmt.Println(row)
		}
		fmt.Fprintf(os.Stderr, "fetched %d rows\n", len(rows))
	case "extract":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "registry row, e.g. \"ABC Capital, Bulgaria, Sofia 1000, 12 Main Str.\"")
		cache := fs.Bool("cache", cfg.NERCache, "cache recognizer responses in the database")
		taxPath := fs.String("taxonomy", cfg.TaxonomyPath, "label taxonomy yaml")
		_ = fs.Parse(os.Args[2:])
		row := *text
		if row == "" {
			row = strings.Join(fs.Args(), " ")
		}
		if strings.TrimSpace(row) == "" {
			must(fmt.Errorf("--text is required"))
		}

		company, err := newBuilder(cfg, db, *cache, *taxPath, logger).Build(ctx, row)
		must(err)
		blob, err := json.MarshalIndent(company.View(), "", "  ")
		must(err)
		fmt.Println(string(blob))
	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "number of runs to list")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(*limit)
		must(err)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"id", "status", "rows", "source", "started", "finished", "output"})
		table.SetAutoWrapText(false)
		for _, r := range runs {
			output := r.OutputCSV
			if r.Error != "" {
				output = r.Error
			}
			table.Append([]string{r.ID, string(r.Status), fmt.Sprint(r.Rows), r.Source, r.StartedAt, r.FinishedAt, output})
		}
		table.Render()
	case "serve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		addr := fs.String("addr", cfg.APIAddr, "listen address")
		cache := fs.Bool("cache", cfg.NERCache, "cache recognizer responses in the database")
		taxPath := fs.String("taxonomy", cfg.TaxonomyPath, "label taxonomy yaml")
		_ = fs.Parse(os.Args[2:])

		proc := pipeline.NewProcessingService(newBuilder(cfg, db, *cache, *taxPath, logger), db, cfg, logger)
		must(api.NewServer(proc, db, logger).ListenAndServe(ctx, *addr))
	case "cache:clear":
		n, err := db.CountPredictions()
		must(err)
		must(db.ClearPredictions())
		fmt.Printf("cleared %d cached predictions\n", n)
	default:
		usage()
		os.Exit(1)
	}
}

func newBuilder(cfg config.Config, db *storage.DB, cache bool, taxPath string, logger *slog.Logger) *pipeline.Builder {
	tax, err := taxonomy.LoadOrDefault(taxPath)
	must(err)
	var store recognizer.Store
	if cache {
		store = db
	}
	return pipeline.NewBuilder(recognizer.FromConfig(cfg, store), tax, logger)
}

func usage() {
	fmt.Println("usage: fscner <command>")
	fmt.Println("commands:")
	fmt.Println("  run [--source=URL|file] [--out=fsc_companies_ner.csv] [--xlsx=...] [--workers=1] [--preview=5] [--cache]")
	fmt.Println("  fetch [--source=URL|file] [--save=page.html]")
	fmt.Println("  extract --text=\"ABC Capital, Bulgaria, Sofia 1000, ...\"")
	fmt.Println("  runs [--limit=20]")
	fmt.Println("  serve [--addr=:8090]")
	fmt.Println("  cache:clear")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
