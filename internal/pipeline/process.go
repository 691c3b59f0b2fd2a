package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fscner/internal"
	"fscner/internal/config"
	"fscner/internal/source"
	"fscner/internal/storage"
)

type ProcessingService struct {
	builder *Builder
	db      *storage.DB
	cfg     config.Config
	logger  *slog.Logger
}

// NewProcessingService wires a builder to the run log. db may be nil, in
// which case runs are not recorded.
func NewProcessingService(builder *Builder, db *storage.DB, cfg config.Config, logger *slog.Logger) *ProcessingService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &ProcessingService{builder: builder, db: db, cfg: cfg, logger: logger}
}

// ProcessRows builds one company per row, in input order. The first failing
// row aborts the batch.
func (s *ProcessingService) ProcessRows(ctx context.Context, rows []string) ([]internal.Company, error) {
	out := make([]internal.Company, len(rows))
	if s.cfg.Workers == 1 {
		for i, row := range rows {
			company, err := s.buildRow(ctx, i, row)
			if err != nil {
				return nil, err
			}
			out[i] = company
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, row := range rows {
		g.Go(func() error {
			company, err := s.buildRow(gctx, i, row)
			if err != nil {
				return err
			}
			out[i] = company
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProcessingService) buildRow(ctx context.Context, i int, row string) (internal.Company, error) {
	if err := ctx.Err(); err != nil {
		return internal.Company{}, err
	}
	start := time.Now()
	company, err := s.builder.Build(ctx, row)
	if err != nil {
		return internal.Company{}, fmt.Errorf("row %d: %w", i+1, err)
	}
	s.logger.Debug("row processed",
		"row", i+1,
		"name", company.Name,
		"phones", len(company.Phones),
		"emails", len(company.Emails),
		"elapsed", time.Since(start),
	)
	return company, nil
}

// Outputs names the files a run writes. Empty paths are skipped.
type Outputs struct {
	CSV  string
	XLSX string
}

type RunResult struct {
	RunID     string
	Source    string
	Companies []internal.Company
	Counts    map[string]int
	Outputs   Outputs
	Elapsed   time.Duration
}

// Run reads rows from src, builds companies and writes the outputs. The run
// is logged in the database when one is configured.
func (s *ProcessingService) Run(ctx context.Context, src source.Source, sourceName string, outputs Outputs) (RunResult, error) {
	start := time.Now()
	res := RunResult{RunID: storage.NewRunID(), Source: sourceName, Outputs: outputs}
	logger := s.logger.With("run", res.RunID)

	if s.db != nil {
		if err := s.db.InsertRun(internal.RunRow{ID: res.RunID, Source: sourceName, Status: internal.RunStarted}); err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
	}

	err := s.run(ctx, src, &res, logger)
	res.Elapsed = time.Since(start)

	if s.db != nil {
		record := internal.RunRow{
			ID:         res.RunID,
			Source:     sourceName,
			Status:     internal.RunFinished,
			Rows:       len(res.Companies),
			Counts:     res.Counts,
			OutputCSV:  outputs.CSV,
			OutputXLSX: outputs.XLSX,
		}
		if err != nil {
			record.Status = internal.RunFailed
			record.Error = err.Error()
		}
		if ferr := s.db.FinishRun(record); ferr != nil {
			logger.Warn("finish run record", "err", ferr)
		}
	}
	if err != nil {
		logger.Error("run failed", "source", sourceName, "err", err, "elapsed", res.Elapsed)
		return res, err
	}
	logger.Info("run finished", "source", sourceName, "rows", len(res.Companies), "elapsed", res.Elapsed)
	return res, nil
}

func (s *ProcessingService) run(ctx context.Context, src source.Source, res *RunResult, logger *slog.Logger) error {
	rows, err := src.Rows(ctx)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	logger.Info("rows loaded", "source", res.Source, "rows", len(rows))

	companies, err := s.ProcessRows(ctx, rows)
	if err != nil {
		return err
	}
	res.Companies = companies
	res.Counts = DetectionCounts(companies)

	if res.Outputs.CSV != "" {
		if err := WriteCSVFile(companies, res.Outputs.CSV); err != nil {
			return err
		}
	}
	if res.Outputs.XLSX != "" {
		if err := ExportCompaniesToXLSX(companies, res.Outputs.XLSX); err != nil {
			return fmt.Errorf("write %s: %w", res.Outputs.XLSX, err)
		}
	}
	return nil
}

// DetectionCounts reports how many companies have each field detected.
func DetectionCounts(companies []internal.Company) map[string]int {
	counts := map[string]int{"rows": len(companies)}
	for _, c := range companies {
		if len(c.Phones) > 0 {
			counts["phones"]++
		}
		if len(c.Emails) > 0 {
			counts["emails"]++
		}
		if len(c.Websites) > 0 {
			counts["websites"]++
		}
		if c.StreetAddress != nil {
			counts["street_address"]++
		}
		if c.City != nil {
			counts["city"]++
		}
		if c.Country != nil {
			counts["country"]++
		}
		if c.PostalCode != nil {
			counts["postal_code"]++
		}
	}
	return counts
}
