package scryfall

import (
	"context"
	"errors"
	"log"
	"time"

	"dragonsvault/internal"
	"dragonsvault/internal/config"
	"dragonsvault/internal/storage"
)

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg}
}

// BulkSync downloads the default_cards bulk dataset and upserts every print.
// Skips the download when the remote dataset has not changed since the last
// sync, unless force is set.
func (s *SyncService) BulkSync(ctx context.Context, force bool) (int, error) {
	entry, err := s.client.DefaultCardsBulk(ctx)
	if err != nil {
		return 0, err
	}

	const updatedKey = "scryfall.bulk_updated_at"
	if !force {
		last, err := s.db.GetMetadata(updatedKey)
		if err != nil {
			return 0, err
		}
		if last != nil && *last == entry.UpdatedAt {
			log.Printf("scryfall sync: bulk dataset unchanged (%s), skipping", entry.UpdatedAt)
			return 0, nil
		}
	}

	log.Printf("scryfall sync: downloading default_cards (%d bytes, updated %s)", entry.Size, entry.UpdatedAt)
	count, err := s.client.DownloadCards(ctx, entry.DownloadURI, 500, s.db.UpsertPrints)
	if err != nil {
		return count, err
	}

	_ = s.db.SetMetadata(updatedKey, entry.UpdatedAt)
	_ = s.db.SetMetadata("scryfall.last_bulk_sync", time.Now().UTC().Format(time.RFC3339))
	log.Printf("scryfall sync: %d prints upserted", count)
	return count, nil
}

// SyncCard fetches one print from the API and stores it, for patching a
// single missing card without a full bulk run. Returns nil when the API
// does not know the card.
func (s *SyncService) SyncCard(ctx context.Context, setCode, collectorNumber, lang string) (*internal.CardPrint, error) {
	p, err := s.client.GetPrint(ctx, setCode, collectorNumber, lang)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.db.UpsertPrints([]internal.CardPrint{*p}); err != nil {
		return nil, err
	}
	return p, nil
}

// SyncCardByName fetches a print by exact card name and stores it.
func (s *SyncService) SyncCardByName(ctx context.Context, name string) (*internal.CardPrint, error) {
	p, err := s.client.GetPrintByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.db.UpsertPrints([]internal.CardPrint{*p}); err != nil {
		return nil, err
	}
	return p, nil
}
