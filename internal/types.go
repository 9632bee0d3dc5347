package internal

// Folder categories. A folder is either a deck list or a plain collection
// binder; the distinction drives UI grouping and deck tooling downstream.
const (
	CategoryDeck       = "deck"
	CategoryCollection = "collection"
)

type Folder struct {
	ID       int64
	Owner    string
	Name     string
	Category string
}

// CardPrint is one physical printing known to the Scryfall catalog,
// keyed by (set_code, collector_number, lang). The importer only reads
// prints; it never creates them.
type CardPrint struct {
	ScryfallID      string
	OracleID        *string
	Name            string
	SetCode         string
	CollectorNumber string
	Lang            string
	Rarity          *string
	TypeLine        *string
	ColorIdentity   *string
	ReleasedAt      *string
	RawJSON         string
}

// InventoryRow is one owned stack of a printing inside a folder.
type InventoryRow struct {
	ID              int64
	FolderID        int64
	PrintID         string
	Name            string
	SetCode         string
	CollectorNumber string
	Lang            string
	IsFoil          bool
	Quantity        int
}

type QuantityMode string

const (
	ModeDelta   QuantityMode = "delta"
	ModeNewOnly QuantityMode = "new_only"
)

type OpKind string

const (
	OpInsert      OpKind = "insert"
	OpIncrement   OpKind = "increment"
	OpSetQuantity OpKind = "set_quantity"
	OpSkip        OpKind = "skip"
)

// InventoryKey identifies the logical inventory row an operation targets.
// It addresses rows created earlier in the same batch before they have a
// database id.
type InventoryKey struct {
	FolderID int64
	PrintID  string
	Lang     string
	IsFoil   bool
}

// ImportOperation is one reconciled action for a single source row.
// RowID is the existing inventory row for increment/set operations; it is
// zero when the target was inserted earlier in the same batch, in which case
// the committer resolves it through Key.
type ImportOperation struct {
	Kind            OpKind
	RowIndex        int
	Key             InventoryKey
	RowID           int64
	FolderName      string
	Name            string
	SetCode         string
	CollectorNumber string
	Quantity        int
	SkipReason      string
}

type RowError struct {
	RowIndex int
	Message  string
}

// ImportSummary is the aggregate result of one import run. Created fresh per
// run and immutable once returned. PerFolder counts imported quantity, not
// row count, matching what the UI reports.
type ImportSummary struct {
	Added     int
	Updated   int
	Skipped   int
	Errored   int
	PerFolder map[string]int
	Errors    []RowError
}

// InventoryExportRow is one inventory row flattened with its folder name,
// as read back for export.
type InventoryExportRow struct {
	FolderName      string
	Name            string
	SetCode         string
	CollectorNumber string
	Lang            string
	IsFoil          bool
	Quantity        int
}

// ImportRunRecord is the persisted audit trail of one run.
type ImportRunRecord struct {
	ID           int64
	TraceID      string
	SourceFile   string
	QuantityMode string
	DryRun       bool
	CountsJSON   string
	FoldersJSON  string
	CreatedAt    string
}
