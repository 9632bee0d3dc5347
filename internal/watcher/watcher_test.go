package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dragonsvault/internal"
	"dragonsvault/internal/config"
	"dragonsvault/internal/storage"
)

func setupWatcher(t *testing.T) (*Service, config.Config) {
	t.Helper()
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "vault.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.UpsertPrints([]internal.CardPrint{
		{ScryfallID: "sf-solring", Name: "Sol Ring", SetCode: "2xm", CollectorNumber: "229", Lang: "en", RawJSON: "{}"},
	}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		InboxDir:            filepath.Join(tmp, "inbox"),
		OutputDir:           filepath.Join(tmp, "out"),
		WatcherBatchMax:     10,
		WatcherWriteSummary: true,
	}
	if err := os.MkdirAll(cfg.InboxDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return NewService(db, cfg), cfg
}

func TestWatcherImportsAndMovesFiles(t *testing.T) {
	svc, cfg := setupWatcher(t)

	good := filepath.Join(cfg.InboxDir, "drop.csv")
	if err := os.WriteFile(good, []byte("Name,Set,Number,Quantity\nSol Ring,2xm,229,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(cfg.InboxDir, "broken.csv")
	if err := os.WriteFile(bad, []byte("Condition,Price\nNM,1.00\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ignored := filepath.Join(cfg.InboxDir, "notes.md")
	if err := os.WriteFile(ignored, []byte("not an import"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(cfg.InboxDir, "processed", "drop.csv")); err != nil {
		t.Fatalf("good file not moved to processed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.InboxDir, "failed", "broken.csv")); err != nil {
		t.Fatalf("bad file not moved to failed: %v", err)
	}
	if _, err := os.Stat(ignored); err != nil {
		t.Fatal("unsupported file should stay in the inbox")
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "watcher", "drop.summary.json")); err != nil {
		t.Fatalf("summary not written: %v", err)
	}
}

func TestWatcherDeleteHandled(t *testing.T) {
	svc, cfg := setupWatcher(t)
	svc.cfg.WatcherDeleteHandled = true

	path := filepath.Join(cfg.InboxDir, "drop.csv")
	if err := os.WriteFile(path, []byte("Name,Set,Number\nSol Ring,2xm,229\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("handled file should be deleted")
	}
}
