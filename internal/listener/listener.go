package listener

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fscner/internal/config"
	"fscner/internal/pipeline"
	"fscner/internal/source"
	"fscner/internal/storage"
)

const snapshotHashKey = "listener.last_snapshot_sha256"

// Fetcher returns the current registry page.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Service re-scrapes the registry on an interval and writes a timestamped
// snapshot plus outputs whenever the page changed.
type Service struct {
	db      *storage.DB
	cfg     config.Config
	proc    *pipeline.ProcessingService
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(db *storage.DB, cfg config.Config, proc *pipeline.ProcessingService, fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{db: db, cfg: cfg, proc: proc, fetcher: fetcher, logger: logger, now: time.Now}
}

type CycleResult struct {
	Skipped  bool
	Snapshot string
	Rows     int
	Outputs  pipeline.Outputs
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.ListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	for {
		res, err := s.RunCycle(ctx)
		switch {
		case err != nil:
			s.logger.Error("listener cycle error", "err", err)
		case res.Skipped:
			s.logger.Info("listener cycle done, page unchanged")
		default:
			s.logger.Info("listener cycle done", "rows", res.Rows, "snapshot", res.Snapshot, "csv", res.Outputs.CSV)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle fetches the page once. An unchanged page (same sha256 as the last
// processed snapshot) is skipped.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	body, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	last, err := s.db.GetMetadata(snapshotHashKey)
	if err != nil {
		return CycleResult{}, err
	}
	if last != nil && *last == hash {
		return CycleResult{Skipped: true}, nil
	}

	rows, err := source.ParseRows(source.FormatHTML, body)
	if err != nil {
		return CycleResult{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if len(rows) == 0 {
		return CycleResult{}, source.ErrNoRows
	}

	stamp := s.now().UTC().Format("20060102T150405Z")
	dir := filepath.Join(s.cfg.OutputDir, "listener")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CycleResult{}, err
	}
	snapshot := filepath.Join(dir, stamp+"_snapshot.html")
	if err := os.WriteFile(snapshot, body, 0o644); err != nil {
		return CycleResult{}, err
	}

	csvName := "fsc_companies_ner.csv"
	if s.cfg.OutputCSV != "" {
		csvName = filepath.Base(s.cfg.OutputCSV)
	}
	outputs := pipeline.Outputs{CSV: filepath.Join(dir, stamp+"_"+csvName)}
	if s.cfg.OutputXLSX != "" {
		outputs.XLSX = filepath.Join(dir, stamp+"_"+filepath.Base(s.cfg.OutputXLSX))
	}
	if _, err := s.proc.Run(ctx, source.Static(rows), snapshot, outputs); err != nil {
		return CycleResult{}, err
	}

	if err := s.db.SetMetadata(snapshotHashKey, hash); err != nil {
		return CycleResult{}, err
	}
	return CycleResult{Snapshot: snapshot, Rows: len(rows), Outputs: outputs}, nil
}
