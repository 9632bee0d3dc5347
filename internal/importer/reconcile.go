package importer

import (
	"fmt"
	"strings"

	"dragonsvault/internal"
)

// CardResolver looks up card identities in the Scryfall catalog. A miss is
// (nil, nil); the importer never invents placeholder identities.
type CardResolver interface {
	ResolveCard(setCode, collectorNumber, lang string) (*internal.CardPrint, error)
	ResolveCardByName(name string) (*internal.CardPrint, error)
}

// FolderStore owns the folder namespace. GetOrCreateFolder applies the
// category hint on creation only; an existing folder's category is never
// overridden by an import.
type FolderStore interface {
	GetOrCreateFolder(owner, name, categoryHint string) (internal.Folder, error)
	FindFolder(owner, name string) (*internal.Folder, error)
}

// InventoryFinder reports the existing inventory row for a key, nil if none.
type InventoryFinder interface {
	FindInventoryRow(key internal.InventoryKey) (*internal.InventoryRow, error)
}

type ReconcileOptions struct {
	Owner        string
	QuantityMode internal.QuantityMode
	Overwrite    bool
	DryRun       bool
}

type Reconciler struct {
	cards     CardResolver
	folders   FolderStore
	inventory InventoryFinder
}

func NewReconciler(cards CardResolver, folders FolderStore, inventory InventoryFinder) *Reconciler {
	return &Reconciler{cards: cards, folders: folders, inventory: inventory}
}

// batchState tracks the logical inventory row for one key across a batch so
// duplicate rows in the same file accumulate instead of clobbering each
// other. rowID stays zero for rows created earlier in this batch.
type batchState struct {
	exists bool
	rowID  int64
}

// batchKey identifies one logical inventory row within a batch. Folders
// unresolved during a dry run all carry ID zero, so the folder name
// disambiguates them; otherwise the zero IDs would alias rows from distinct
// new folders onto one key and the dry-run summary would drift from what a
// real run produces.
type batchKey struct {
	key        internal.InventoryKey
	folderName string
}

func makeBatchKey(key internal.InventoryKey, folder internal.Folder) batchKey {
	bk := batchKey{key: key}
	if folder.ID == 0 {
		bk.folderName = strings.ToLower(folder.Name)
	}
	return bk
}

// Reconcile turns canonical rows into operations. Row-level problems become
// RowErrors and never abort the batch; only collaborator failures do.
// Every input row yields exactly one operation or one row error.
func (r *Reconciler) Reconcile(rows []CanonicalRow, opts ReconcileOptions) ([]internal.ImportOperation, []internal.RowError, error) {
	if opts.QuantityMode == "" {
		opts.QuantityMode = internal.ModeDelta
	}

	ops := make([]internal.ImportOperation, 0, len(rows))
	var rowErrs []internal.RowError
	seen := map[batchKey]*batchState{}

	for _, row := range rows {
		folder, err := r.resolveFolder(row, opts)
		if err != nil {
			return nil, nil, err
		}

		pr, err := r.resolvePrint(row)
		if err != nil {
			return nil, nil, err
		}
		if pr == nil {
			rowErrs = append(rowErrs, internal.RowError{RowIndex: row.Index, Message: notFoundMessage(row)})
			continue
		}

		if row.Quantity <= 0 {
			rowErrs = append(rowErrs, internal.RowError{
				RowIndex: row.Index,
				Message:  fmt.Sprintf("invalid quantity %d", row.Quantity),
			})
			continue
		}

		key := internal.InventoryKey{
			FolderID: folder.ID,
			PrintID:  pr.ScryfallID,
			Lang:     pr.Lang,
			IsFoil:   row.Foil,
		}

		bk := makeBatchKey(key, folder)
		state, ok := seen[bk]
		if !ok {
			state = &batchState{}
			if folder.ID != 0 {
				existing, err := r.inventory.FindInventoryRow(key)
				if err != nil {
					return nil, nil, err
				}
				if existing != nil {
					state.exists = true
					state.rowID = existing.ID
				}
			}
			seen[bk] = state
		}

		op := internal.ImportOperation{
			RowIndex:        row.Index,
			Key:             key,
			FolderName:      folder.Name,
			Name:            pr.Name,
			SetCode:         pr.SetCode,
			CollectorNumber: pr.CollectorNumber,
			Quantity:        row.Quantity,
		}

		switch {
		case !state.exists:
			op.Kind = internal.OpInsert
			state.exists = true
			state.rowID = 0
		case opts.QuantityMode == internal.ModeNewOnly:
			op.Kind = internal.OpSkip
			op.SkipReason = "already exists"
		case opts.Overwrite:
			op.Kind = internal.OpSetQuantity
			op.RowID = state.rowID
		default:
			op.Kind = internal.OpIncrement
			op.RowID = state.rowID
		}
		ops = append(ops, op)
	}

	return ops, rowErrs, nil
}

// resolveFolder uses get-or-create for real runs and lookup-only for dry
// runs, so previewing an import never creates folders. A dry-run miss
// yields a zero-ID folder carrying just the name.
func (r *Reconciler) resolveFolder(row CanonicalRow, opts ReconcileOptions) (internal.Folder, error) {
	if opts.DryRun {
		folder, err := r.folders.FindFolder(opts.Owner, row.Folder)
		if err != nil {
			return internal.Folder{}, err
		}
		if folder == nil {
			return internal.Folder{Owner: opts.Owner, Name: row.Folder}, nil
		}
		return *folder, nil
	}
	return r.folders.GetOrCreateFolder(opts.Owner, row.Folder, row.CategoryHint)
}

func (r *Reconciler) resolvePrint(row CanonicalRow) (*internal.CardPrint, error) {
	if row.SetCode == "" && row.CollectorNumber == "" {
		return r.cards.ResolveCardByName(row.Name)
	}
	return r.cards.ResolveCard(row.SetCode, row.CollectorNumber, row.Lang)
}

func notFoundMessage(row CanonicalRow) string {
	if row.SetCode == "" && row.CollectorNumber == "" {
		return fmt.Sprintf("card not found for %s", row.Name)
	}
	return fmt.Sprintf("card not found for %s#%s", row.SetCode, row.CollectorNumber)
}
