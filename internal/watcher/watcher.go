package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dragonsvault/internal"
	"dragonsvault/internal/config"
	"dragonsvault/internal/importer"
	"dragonsvault/internal/storage"
)

// Service polls an inbox directory for dropped collection files and imports
// each one. Handled files move to processed/ or failed/ next to the inbox,
// or are deleted when configured to.
type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("watcher cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.WatcherIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	files, err := s.pendingFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	svc := importer.NewService(s.db, s.cfg)
	handled := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		summary, err := svc.ImportFile(path, importer.RunOptions{
			Owner:         s.cfg.WatcherOwner,
			DefaultFolder: s.cfg.DefaultFolder,
		})
		if err != nil {
			fmt.Printf("watcher import failed file=%s err=%v\n", filepath.Base(path), err)
			if moveErr := s.finishFile(path, "failed"); moveErr != nil {
				return moveErr
			}
			continue
		}

		if s.cfg.WatcherWriteSummary {
			if err := s.writeSummary(path, summary); err != nil {
				return err
			}
		}
		if err := s.finishFile(path, "processed"); err != nil {
			return err
		}
		handled++
	}

	fmt.Printf("watcher cycle done handled=%d of %d\n", handled, len(files))
	return nil
}

// pendingFiles lists importable files in the inbox, oldest first, capped at
// the per-cycle batch size. Dotfiles and partial uploads are ignored.
func (s *Service) pendingFiles() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.InboxDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".tmp") {
			continue
		}
		if !importer.SupportedImportFile(name) && !importer.IsDecklistFile(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(s.cfg.InboxDir, name),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})
	if limit := s.cfg.WatcherBatchMax; limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.path)
	}
	return out, nil
}

func (s *Service) writeSummary(sourcePath string, summary internal.ImportSummary) error {
	report := map[string]any{
		"file":       filepath.Base(sourcePath),
		"importedAt": time.Now().UTC().Format(time.RFC3339),
		"added":      summary.Added,
		"updated":    summary.Updated,
		"skipped":    summary.Skipped,
		"errored":    summary.Errored,
		"folders":    summary.PerFolder,
		"errors":     summary.Errors,
	}
	blob, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath)) + ".summary.json"
	outputPath := filepath.Join(s.cfg.OutputDir, "watcher", name)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, blob, 0o644)
}

// finishFile moves a handled file into a sibling directory of the inbox, or
// deletes it when WatcherDeleteHandled is set. Name collisions get a
// timestamp prefix.
func (s *Service) finishFile(path, disposition string) error {
	if s.cfg.WatcherDeleteHandled {
		return os.Remove(path)
	}

	destDir := filepath.Join(s.cfg.InboxDir, disposition)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(destDir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(destDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	return os.Rename(path, dest)
}
