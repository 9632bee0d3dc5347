package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dragonsvault/internal"
	"dragonsvault/internal/config"
	"dragonsvault/internal/util"
)

// ErrNotFound marks a card the API does not know. Callers treat it as a
// lookup miss, not a failure.
var ErrNotFound = errors.New("scryfall: not found")

const userAgent = "dragonsvault/1.0"

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ScryfallTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.ScryfallRateLimitRPS),
	}
}

// BulkEntry describes one downloadable bulk dataset from /bulk-data.
type BulkEntry struct {
	Type        string `json:"type"`
	UpdatedAt   string `json:"updated_at"`
	DownloadURI string `json:"download_uri"`
	Size        int64  `json:"size"`
}

type bulkListPayload struct {
	Data []BulkEntry `json:"data"`
}

// DefaultCardsBulk returns the "default_cards" bulk dataset entry, which
// carries one printing per (set, collector number, language).
func (c *Client) DefaultCardsBulk(ctx context.Context) (BulkEntry, error) {
	body, err := c.fetchJSON(ctx, "bulk-data", nil)
	if err != nil {
		return BulkEntry{}, err
	}
	var payload bulkListPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return BulkEntry{}, err
	}
	for _, entry := range payload.Data {
		if entry.Type == "default_cards" {
			return entry, nil
		}
	}
	return BulkEntry{}, errors.New("scryfall: bulk-data listing has no default_cards entry")
}

// DownloadCards streams a bulk dataset (one large JSON array) and hands
// prints to the callback in batches, so the full dataset never sits in
// memory at once. Returns the number of prints delivered.
func (c *Client) DownloadCards(ctx context.Context, downloadURI string, batchSize int, fn func([]internal.CardPrint) error) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURI, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("scryfall bulk download: status=%d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	if _, err := dec.Token(); err != nil {
		return 0, fmt.Errorf("scryfall bulk download: %w", err)
	}

	total := 0
	batch := make([]internal.CardPrint, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return total, fmt.Errorf("scryfall bulk download: %w", err)
		}
		p, err := toCardPrint(raw)
		if err != nil {
			continue
		}
		batch = append(batch, p)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// GetPrint fetches one printing by set, collector number and language.
// Returns ErrNotFound when the API does not know the card.
func (c *Client) GetPrint(ctx context.Context, setCode, collectorNumber, lang string) (*internal.CardPrint, error) {
	if lang == "" {
		lang = "en"
	}
	path := fmt.Sprintf("cards/%s/%s/%s",
		url.PathEscape(strings.ToLower(setCode)),
		url.PathEscape(collectorNumber),
		url.PathEscape(lang))
	body, err := c.fetchJSON(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	p, err := toCardPrint(body)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPrintByName fetches the canonical printing of a card by exact name.
func (c *Client) GetPrintByName(ctx context.Context, name string) (*internal.CardPrint, error) {
	body, err := c.fetchJSON(ctx, "cards/named", map[string]string{"exact": name})
	if err != nil {
		return nil, err
	}
	p, err := toCardPrint(body)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	baseURL := strings.TrimRight(c.cfg.ScryfallAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("scryfall status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("scryfall api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("scryfall request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// cardPayload is the slice of a Scryfall card object the database keeps as
// columns; everything else stays in the raw JSON blob.
type cardPayload struct {
	ID              string   `json:"id"`
	OracleID        string   `json:"oracle_id"`
	Name            string   `json:"name"`
	Set             string   `json:"set"`
	CollectorNumber string   `json:"collector_number"`
	Lang            string   `json:"lang"`
	Rarity          string   `json:"rarity"`
	TypeLine        string   `json:"type_line"`
	ColorIdentity   []string `json:"color_identity"`
	ReleasedAt      string   `json:"released_at"`
}

func toCardPrint(raw []byte) (internal.CardPrint, error) {
	var payload cardPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return internal.CardPrint{}, err
	}
	if payload.ID == "" || payload.Name == "" || payload.Set == "" || payload.CollectorNumber == "" {
		return internal.CardPrint{}, errors.New("incomplete card object")
	}

	lang := payload.Lang
	if lang == "" {
		lang = "en"
	}

	p := internal.CardPrint{
		ScryfallID:      payload.ID,
		Name:            payload.Name,
		SetCode:         strings.ToLower(payload.Set),
		CollectorNumber: payload.CollectorNumber,
		Lang:            lang,
		RawJSON:         string(raw),
	}
	if payload.OracleID != "" {
		p.OracleID = util.StringPtr(payload.OracleID)
	}
	if payload.Rarity != "" {
		p.Rarity = util.StringPtr(payload.Rarity)
	}
	if payload.TypeLine != "" {
		p.TypeLine = util.StringPtr(payload.TypeLine)
	}
	if len(payload.ColorIdentity) > 0 {
		p.ColorIdentity = util.StringPtr(strings.Join(payload.ColorIdentity, ""))
	}
	if payload.ReleasedAt != "" {
		p.ReleasedAt = util.StringPtr(payload.ReleasedAt)
	}
	return p, nil
}
