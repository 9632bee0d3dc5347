package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"dragonsvault/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS prints (
  scryfall_id TEXT PRIMARY KEY,
  oracle_id TEXT,
  name TEXT NOT NULL,
  set_code TEXT NOT NULL,
  collector_number TEXT NOT NULL,
  lang TEXT NOT NULL DEFAULT 'en',
  rarity TEXT,
  type_line TEXT,
  color_identity TEXT,
  released_at TEXT,
  raw_json TEXT NOT NULL,
  last_seen_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_prints_set_cn ON prints(set_code, collector_number, lang);
CREATE INDEX IF NOT EXISTS idx_prints_name ON prints(name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS folders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  owner TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL COLLATE NOCASE,
  category TEXT NOT NULL DEFAULT 'deck',
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(owner, name)
);

CREATE TABLE IF NOT EXISTS cards (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  folder_id INTEGER NOT NULL,
  print_id TEXT NOT NULL,
  name TEXT NOT NULL,
  set_code TEXT NOT NULL,
  collector_number TEXT NOT NULL,
  lang TEXT NOT NULL DEFAULT 'en',
  is_foil INTEGER NOT NULL DEFAULT 0,
  quantity INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(folder_id, print_id, lang, is_foil),
  FOREIGN KEY(folder_id) REFERENCES folders(id),
  FOREIGN KEY(print_id) REFERENCES prints(scryfall_id)
);
CREATE INDEX IF NOT EXISTS idx_cards_folder ON cards(folder_id);

CREATE TABLE IF NOT EXISTS import_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  trace_id TEXT NOT NULL,
  source_file TEXT NOT NULL,
  quantity_mode TEXT NOT NULL,
  dry_run INTEGER NOT NULL DEFAULT 0,
  counts_json TEXT NOT NULL,
  folders_json TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertPrints(prints []internal.CardPrint) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO prints (
  scryfall_id, oracle_id, name, set_code, collector_number, lang,
  rarity, type_line, color_identity, released_at, raw_json, last_seen_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(scryfall_id) DO UPDATE SET
  oracle_id=excluded.oracle_id,
  name=excluded.name,
  set_code=excluded.set_code,
  collector_number=excluded.collector_number,
  lang=excluded.lang,
  rarity=excluded.rarity,
  type_line=excluded.type_line,
  color_identity=excluded.color_identity,
  released_at=excluded.released_at,
  raw_json=excluded.raw_json,
  last_seen_at=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range prints {
		if _, err := stmt.Exec(
			p.ScryfallID, p.OracleID, p.Name, p.SetCode, p.CollectorNumber, p.Lang,
			p.Rarity, p.TypeLine, p.ColorIdentity, p.ReleasedAt, p.RawJSON,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) CountPrints() (int, error) {
	var count int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM prints`).Scan(&count)
	return count, err
}

const printColumns = `scryfall_id, oracle_id, name, set_code, collector_number, lang,
rarity, type_line, color_identity, released_at, raw_json`

func (d *DB) scanPrint(row *sql.Row) (*internal.CardPrint, error) {
	var p internal.CardPrint
	err := row.Scan(
		&p.ScryfallID, &p.OracleID, &p.Name, &p.SetCode, &p.CollectorNumber, &p.Lang,
		&p.Rarity, &p.TypeLine, &p.ColorIdentity, &p.ReleasedAt, &p.RawJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ResolveCard finds a print by (set_code, collector_number, lang). When no
// print exists in the requested language it falls back to any language for
// the same printing, English first, so imports of localized exports still
// land on the right card.
func (d *DB) ResolveCard(setCode, collectorNumber, lang string) (*internal.CardPrint, error) {
	exact := d.conn.QueryRow(`
SELECT `+printColumns+`
FROM prints WHERE set_code = ? AND collector_number = ? AND lang = ?
LIMIT 1`, setCode, collectorNumber, lang)
	if p, err := d.scanPrint(exact); err != nil || p != nil {
		return p, err
	}

	loose := d.conn.QueryRow(`
SELECT `+printColumns+`
FROM prints WHERE set_code = ? AND collector_number = ?
ORDER BY CASE WHEN lang = 'en' THEN 0 ELSE 1 END, released_at DESC
LIMIT 1`, setCode, collectorNumber)
	return d.scanPrint(loose)
}

// ResolveCardByName finds the most recent English printing of a card by
// exact (case-insensitive) name. Used for decklist imports, which carry no
// set or collector number.
func (d *DB) ResolveCardByName(name string) (*internal.CardPrint, error) {
	row := d.conn.QueryRow(`
SELECT `+printColumns+`
FROM prints WHERE name = ? COLLATE NOCASE
ORDER BY CASE WHEN lang = 'en' THEN 0 ELSE 1 END, released_at DESC
LIMIT 1`, name)
	return d.scanPrint(row)
}

func (d *DB) FindFolder(owner, name string) (*internal.Folder, error) {
	var f internal.Folder
	err := d.conn.QueryRow(`
SELECT id, owner, name, category FROM folders WHERE owner = ? AND name = ?
`, owner, name).Scan(&f.ID, &f.Owner, &f.Name, &f.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetOrCreateFolder returns the owner's folder with this name, creating it
// with the category hint if absent. An existing folder's category is never
// changed here. Creation races resolve by re-query, then by suffixing the
// name ("Deck (2)") as a last resort.
func (d *DB) GetOrCreateFolder(owner, name, categoryHint string) (internal.Folder, error) {
	if existing, err := d.FindFolder(owner, name); err != nil {
		return internal.Folder{}, err
	} else if existing != nil {
		return *existing, nil
	}

	category := categoryHint
	if category == "" {
		category = internal.CategoryDeck
	}

	folder, err := d.insertFolder(owner, name, category)
	if err == nil {
		return folder, nil
	}

	if existing, ferr := d.FindFolder(owner, name); ferr == nil && existing != nil {
		return *existing, nil
	}

	for suffix := 2; suffix < 100; suffix++ {
		candidate := fmt.Sprintf("%s (%d)", name, suffix)
		if existing, ferr := d.FindFolder(owner, candidate); ferr != nil {
			return internal.Folder{}, ferr
		} else if existing != nil {
			continue
		}
		if folder, err := d.insertFolder(owner, candidate, category); err == nil {
			return folder, nil
		}
	}
	return internal.Folder{}, fmt.Errorf("could not create folder %q for owner %q: %w", name, owner, err)
}

func (d *DB) insertFolder(owner, name, category string) (internal.Folder, error) {
	result, err := d.conn.Exec(`
INSERT INTO folders (owner, name, category) VALUES (?, ?, ?)
`, owner, name, category)
	if err != nil {
		return internal.Folder{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.Folder{}, err
	}
	return internal.Folder{ID: id, Owner: owner, Name: name, Category: category}, nil
}

func (d *DB) FindInventoryRow(key internal.InventoryKey) (*internal.InventoryRow, error) {
	var row internal.InventoryRow
	err := d.conn.QueryRow(`
SELECT id, folder_id, print_id, name, set_code, collector_number, lang, is_foil, quantity
FROM cards WHERE folder_id = ? AND print_id = ? AND lang = ? AND is_foil = ?
`, key.FolderID, key.PrintID, key.Lang, boolToInt(key.IsFoil)).Scan(
		&row.ID, &row.FolderID, &row.PrintID, &row.Name, &row.SetCode,
		&row.CollectorNumber, &row.Lang, &row.IsFoil, &row.Quantity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ApplyOperations applies one reconciled batch inside a single transaction.
// Operations addressing rows inserted earlier in the same batch carry a zero
// RowID and are resolved through their inventory key.
func (d *DB) ApplyOperations(ops []internal.ImportOperation) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	insertedByKey := map[internal.InventoryKey]int64{}
	for _, op := range ops {
		switch op.Kind {
		case internal.OpInsert:
			result, err := tx.Exec(`
INSERT INTO cards (folder_id, print_id, name, set_code, collector_number, lang, is_foil, quantity)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, op.Key.FolderID, op.Key.PrintID, op.Name, op.SetCode, op.CollectorNumber,
				op.Key.Lang, boolToInt(op.Key.IsFoil), op.Quantity)
			if err != nil {
				return fmt.Errorf("row %d: %w", op.RowIndex, err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return err
			}
			insertedByKey[op.Key] = id

		case internal.OpIncrement:
			id, err := resolveOpTarget(op, insertedByKey)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`
UPDATE cards SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
`, op.Quantity, id); err != nil {
				return fmt.Errorf("row %d: %w", op.RowIndex, err)
			}

		case internal.OpSetQuantity:
			id, err := resolveOpTarget(op, insertedByKey)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`
UPDATE cards SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
`, op.Quantity, id); err != nil {
				return fmt.Errorf("row %d: %w", op.RowIndex, err)
			}

		case internal.OpSkip:
			// Nothing to persist.

		default:
			return fmt.Errorf("row %d: unknown operation kind %q", op.RowIndex, op.Kind)
		}
	}

	return tx.Commit()
}

func resolveOpTarget(op internal.ImportOperation, insertedByKey map[internal.InventoryKey]int64) (int64, error) {
	if op.RowID != 0 {
		return op.RowID, nil
	}
	if id, ok := insertedByKey[op.Key]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("row %d: operation targets a row that was never inserted", op.RowIndex)
}

// ListInventoryExport returns inventory rows joined with their folder,
// optionally restricted to one folder name, in natural export order.
func (d *DB) ListInventoryExport(owner, folderName string) ([]internal.InventoryExportRow, error) {
	query := `
SELECT f.name, c.name, c.set_code, c.collector_number, c.lang, c.is_foil, c.quantity
FROM cards c
JOIN folders f ON f.id = c.folder_id
WHERE f.owner = ?`
	args := []any{owner}
	if folderName != "" {
		query += ` AND f.name = ?`
		args = append(args, folderName)
	}
	query += `
ORDER BY c.name COLLATE NOCASE ASC, c.set_code ASC,
  CASE WHEN CAST(c.collector_number AS INTEGER) = 0 THEN 1 ELSE 0 END,
  CAST(c.collector_number AS INTEGER) ASC, c.collector_number ASC`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.InventoryExportRow
	for rows.Next() {
		var row internal.InventoryExportRow
		if err := rows.Scan(
			&row.FolderName, &row.Name, &row.SetCode, &row.CollectorNumber,
			&row.Lang, &row.IsFoil, &row.Quantity,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) InsertImportRun(traceID, sourceFile string, mode internal.QuantityMode, dryRun bool, summary internal.ImportSummary) error {
	counts := map[string]int{
		"added":   summary.Added,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
		"errored": summary.Errored,
	}
	countsJSON, _ := json.Marshal(counts)
	foldersJSON, _ := json.Marshal(summary.PerFolder)
	_, err := d.conn.Exec(`
INSERT INTO import_runs (trace_id, source_file, quantity_mode, dry_run, counts_json, folders_json)
VALUES (?, ?, ?, ?, ?, ?)
`, traceID, sourceFile, string(mode), boolToInt(dryRun), string(countsJSON), string(foldersJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
