package importer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"dragonsvault/internal"
	"dragonsvault/internal/config"
	"dragonsvault/internal/storage"
)

// Service runs the full import pipeline against one database: read, map
// headers, reconcile, commit, record the run.
type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

type RunOptions struct {
	Owner         string
	DefaultFolder string
	QuantityMode  internal.QuantityMode
	Overwrite     bool
	DryRun        bool
}

func (o *RunOptions) fill(cfg config.Config) {
	if o.DefaultFolder == "" {
		o.DefaultFolder = cfg.DefaultFolder
	}
	if o.DefaultFolder == "" {
		o.DefaultFolder = "Unsorted"
	}
	if o.QuantityMode == "" {
		o.QuantityMode = internal.ModeDelta
	}
}

// ImportFile imports one file end to end. Spreadsheet-style files go through
// header mapping; decklists resolve by card name. Warnings are logged, not
// returned, since they never change the outcome.
func (s *Service) ImportFile(path string, opts RunOptions) (internal.ImportSummary, error) {
	opts.fill(s.cfg)
	start := time.Now()

	var (
		rows     []CanonicalRow
		warnings []string
		rowErrs  []internal.RowError
		err      error
	)
	if IsDecklistFile(path) {
		rows, err = ReadDecklistFile(path, opts.DefaultFolder, s.cfg.ImportMaxBytes)
		if err != nil {
			return internal.ImportSummary{}, err
		}
	} else {
		table, err := ReadTableFile(path, s.cfg.ImportMaxBytes)
		if err != nil {
			return internal.ImportSummary{}, err
		}
		rows, warnings, rowErrs, err = NormalizeTable(table, NormalizeOptions{
			DefaultFolder:    opts.DefaultFolder,
			QuantityFallback: s.cfg.QuantityFallback,
		})
		if err != nil {
			return internal.ImportSummary{}, err
		}
	}
	for _, w := range warnings {
		log.Printf("import %s: %s", filepath.Base(path), w)
	}

	reconciler := NewReconciler(s.db, s.db, s.db)
	ops, reconErrs, err := reconciler.Reconcile(rows, ReconcileOptions{
		Owner:        opts.Owner,
		QuantityMode: opts.QuantityMode,
		Overwrite:    opts.Overwrite,
		DryRun:       opts.DryRun,
	})
	if err != nil {
		return internal.ImportSummary{}, err
	}
	rowErrs = append(rowErrs, reconErrs...)

	var summary internal.ImportSummary
	if opts.DryRun {
		summary = Summarize(ops, rowErrs)
	} else {
		summary, err = NewCommitter(s.db).Commit(ops, rowErrs)
		if err != nil {
			return internal.ImportSummary{}, err
		}
	}

	if err := s.db.InsertImportRun(newTraceID(), filepath.Base(path), opts.QuantityMode, opts.DryRun, summary); err != nil {
		log.Printf("import %s: recording run failed: %v", filepath.Base(path), err)
	}
	LogSummary(filepath.Base(path), opts.QuantityMode, opts.DryRun, summary)
	log.Printf("import %s: %d rows in %dms", filepath.Base(path), len(rows), time.Since(start).Milliseconds())

	return summary, nil
}

func newTraceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
