package importer

import (
	"fmt"
	"testing"

	"dragonsvault/internal"
)

type fakeStore struct {
	prints     map[string]internal.CardPrint // "set/cn" -> print
	byName     map[string]internal.CardPrint
	folders    map[string]internal.Folder // name -> folder
	inventory  map[internal.InventoryKey]internal.InventoryRow
	nextFolder int64
	created    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prints:    map[string]internal.CardPrint{},
		byName:    map[string]internal.CardPrint{},
		folders:   map[string]internal.Folder{},
		inventory: map[internal.InventoryKey]internal.InventoryRow{},
	}
}

func (f *fakeStore) addPrint(id, name, set, cn string) {
	p := internal.CardPrint{ScryfallID: id, Name: name, SetCode: set, CollectorNumber: cn, Lang: "en", RawJSON: "{}"}
	f.prints[set+"/"+cn] = p
	f.byName[name] = p
}

func (f *fakeStore) ResolveCard(setCode, collectorNumber, lang string) (*internal.CardPrint, error) {
	if p, ok := f.prints[setCode+"/"+collectorNumber]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakeStore) ResolveCardByName(name string) (*internal.CardPrint, error) {
	if p, ok := f.byName[name]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakeStore) GetOrCreateFolder(owner, name, categoryHint string) (internal.Folder, error) {
	if folder, ok := f.folders[name]; ok {
		return folder, nil
	}
	f.nextFolder++
	category := categoryHint
	if category == "" {
		category = internal.CategoryDeck
	}
	folder := internal.Folder{ID: f.nextFolder, Owner: owner, Name: name, Category: category}
	f.folders[name] = folder
	f.created = append(f.created, name)
	return folder, nil
}

func (f *fakeStore) FindFolder(owner, name string) (*internal.Folder, error) {
	if folder, ok := f.folders[name]; ok {
		return &folder, nil
	}
	return nil, nil
}

func (f *fakeStore) FindInventoryRow(key internal.InventoryKey) (*internal.InventoryRow, error) {
	if row, ok := f.inventory[key]; ok {
		return &row, nil
	}
	return nil, nil
}

func mkRow(index int, folder, name, set, cn string, qty int) CanonicalRow {
	return CanonicalRow{
		Index: index, Folder: folder, Name: name,
		SetCode: set, CollectorNumber: cn, Quantity: qty, Lang: "en",
	}
}

func TestReconcileInsertAndIncrement(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")
	folder, _ := store.GetOrCreateFolder("", "Collection", "")
	store.inventory[internal.InventoryKey{FolderID: folder.ID, PrintID: "sf-1", Lang: "en"}] =
		internal.InventoryRow{ID: 11, FolderID: folder.ID, PrintID: "sf-1", Quantity: 2}
	store.addPrint("sf-2", "Brainstorm", "ice", "57")

	r := NewReconciler(store, store, store)
	rows := []CanonicalRow{
		mkRow(1, "Collection", "Sol Ring", "2xm", "229", 3),
		mkRow(2, "Collection", "Brainstorm", "ice", "57", 1),
	}
	ops, rowErrs, err := r.Reconcile(rows, ReconcileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("rowErrs=%v", rowErrs)
	}
	if len(ops) != 2 {
		t.Fatalf("ops=%d", len(ops))
	}

	if ops[0].Kind != internal.OpIncrement || ops[0].RowID != 11 || ops[0].Quantity != 3 {
		t.Fatalf("first op=%+v", ops[0])
	}
	if ops[1].Kind != internal.OpInsert || ops[1].Quantity != 1 {
		t.Fatalf("second op=%+v", ops[1])
	}
}

func TestReconcileNewOnlySkipsExisting(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")
	folder, _ := store.GetOrCreateFolder("", "Collection", "")
	store.inventory[internal.InventoryKey{FolderID: folder.ID, PrintID: "sf-1", Lang: "en"}] =
		internal.InventoryRow{ID: 11, FolderID: folder.ID, PrintID: "sf-1", Quantity: 2}

	r := NewReconciler(store, store, store)
	ops, _, err := r.Reconcile(
		[]CanonicalRow{mkRow(1, "Collection", "Sol Ring", "2xm", "229", 4)},
		ReconcileOptions{QuantityMode: internal.ModeNewOnly},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Kind != internal.OpSkip {
		t.Fatalf("ops=%+v", ops)
	}
	if ops[0].SkipReason != "already exists" {
		t.Fatalf("reason=%q", ops[0].SkipReason)
	}
}

func TestReconcileOverwriteSetsQuantity(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")
	folder, _ := store.GetOrCreateFolder("", "Collection", "")
	store.inventory[internal.InventoryKey{FolderID: folder.ID, PrintID: "sf-1", Lang: "en"}] =
		internal.InventoryRow{ID: 11, FolderID: folder.ID, PrintID: "sf-1", Quantity: 2}

	r := NewReconciler(store, store, store)
	ops, _, err := r.Reconcile(
		[]CanonicalRow{mkRow(1, "Collection", "Sol Ring", "2xm", "229", 7)},
		ReconcileOptions{Overwrite: true},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Kind != internal.OpSetQuantity || ops[0].Quantity != 7 || ops[0].RowID != 11 {
		t.Fatalf("ops=%+v", ops)
	}
}

func TestReconcileInBatchDuplicates(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")

	r := NewReconciler(store, store, store)
	rows := []CanonicalRow{
		mkRow(1, "Collection", "Sol Ring", "2xm", "229", 1),
		mkRow(2, "Collection", "Sol Ring", "2xm", "229", 2),
	}
	ops, _, err := r.Reconcile(rows, ReconcileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Fatalf("ops=%d", len(ops))
	}
	if ops[0].Kind != internal.OpInsert {
		t.Fatalf("first op=%+v", ops[0])
	}
	if ops[1].Kind != internal.OpIncrement || ops[1].RowID != 0 {
		t.Fatalf("second op should increment the in-batch insert: %+v", ops[1])
	}
	if ops[0].Key != ops[1].Key {
		t.Fatal("duplicate rows should share one inventory key")
	}
}

func TestReconcileInBatchDuplicateNewOnly(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")

	r := NewReconciler(store, store, store)
	rows := []CanonicalRow{
		mkRow(1, "Collection", "Sol Ring", "2xm", "229", 1),
		mkRow(2, "Collection", "Sol Ring", "2xm", "229", 2),
	}
	ops, _, err := r.Reconcile(rows, ReconcileOptions{QuantityMode: internal.ModeNewOnly})
	if err != nil {
		t.Fatal(err)
	}
	if ops[0].Kind != internal.OpInsert || ops[1].Kind != internal.OpSkip {
		t.Fatalf("ops=%+v", ops)
	}
}

func TestReconcileCardNotFound(t *testing.T) {
	store := newFakeStore()

	r := NewReconciler(store, store, store)
	ops, rowErrs, err := r.Reconcile(
		[]CanonicalRow{mkRow(1, "Collection", "Fake Card", "tst", "42", 1)},
		ReconcileOptions{},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 0 || len(rowErrs) != 1 {
		t.Fatalf("ops=%d errs=%d", len(ops), len(rowErrs))
	}
	want := "card not found for tst#42"
	if rowErrs[0].Message != want {
		t.Fatalf("message=%q want=%q", rowErrs[0].Message, want)
	}
}

func TestReconcileResolvesDecklistRowsByName(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")

	r := NewReconciler(store, store, store)
	rows := []CanonicalRow{{Index: 1, Folder: "Deck", Name: "Sol Ring", Quantity: 1, Lang: "en"}}
	ops, rowErrs, err := r.Reconcile(rows, ReconcileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rowErrs) != 0 || len(ops) != 1 {
		t.Fatalf("ops=%d errs=%v", len(ops), rowErrs)
	}
	if ops[0].SetCode != "2xm" || ops[0].CollectorNumber != "229" {
		t.Fatalf("op=%+v", ops[0])
	}
}

func TestReconcileDryRunCreatesNoFolders(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")

	r := NewReconciler(store, store, store)
	ops, _, err := r.Reconcile(
		[]CanonicalRow{mkRow(1, "Brand New Folder", "Sol Ring", "2xm", "229", 1)},
		ReconcileOptions{DryRun: true},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.created) != 0 {
		t.Fatalf("dry run created folders: %v", store.created)
	}
	if len(ops) != 1 || ops[0].Kind != internal.OpInsert {
		t.Fatalf("ops=%+v", ops)
	}
	if ops[0].FolderName != "Brand New Folder" {
		t.Fatalf("folder=%q", ops[0].FolderName)
	}
}

func TestReconcileDryRunSamePrintInTwoNewFolders(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")

	rows := []CanonicalRow{
		mkRow(1, "Folder A", "Sol Ring", "2xm", "229", 1),
		mkRow(2, "Folder B", "Sol Ring", "2xm", "229", 1),
	}

	r := NewReconciler(store, store, store)
	dryOps, _, err := r.Reconcile(rows, ReconcileOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	realOps, _, err := r.Reconcile(rows, ReconcileOptions{})
	if err != nil {
		t.Fatal(err)
	}

	dry := Summarize(dryOps, nil)
	applied := Summarize(realOps, nil)
	if dry.Added != applied.Added || dry.Updated != applied.Updated || dry.Skipped != applied.Skipped {
		t.Fatalf("dry run diverges from real run: dry=%+v real=%+v", dry, applied)
	}
	if dryOps[0].Kind != internal.OpInsert || dryOps[1].Kind != internal.OpInsert {
		t.Fatalf("unresolved folders must not share a batch key: %+v", dryOps)
	}
}

func TestReconcileDryRunDuplicateRowsInOneNewFolder(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")

	rows := []CanonicalRow{
		mkRow(1, "Folder A", "Sol Ring", "2xm", "229", 1),
		mkRow(2, "Folder A", "Sol Ring", "2xm", "229", 2),
	}

	r := NewReconciler(store, store, store)
	ops, _, err := r.Reconcile(rows, ReconcileOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if ops[0].Kind != internal.OpInsert || ops[1].Kind != internal.OpIncrement {
		t.Fatalf("same new folder should still accumulate: %+v", ops)
	}
}

func TestReconcileEveryRowHasOneOutcome(t *testing.T) {
	store := newFakeStore()
	store.addPrint("sf-1", "Sol Ring", "2xm", "229")

	var rows []CanonicalRow
	for i := 1; i <= 6; i++ {
		set, cn := "2xm", "229"
		if i%3 == 0 {
			set, cn = "xxx", fmt.Sprint(i)
		}
		rows = append(rows, mkRow(i, "Collection", "Sol Ring", set, cn, 1))
	}

	r := NewReconciler(store, store, store)
	ops, rowErrs, err := r.Reconcile(rows, ReconcileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ops)+len(rowErrs) != len(rows) {
		t.Fatalf("ops=%d errs=%d rows=%d", len(ops), len(rowErrs), len(rows))
	}
}

func TestSummarizeCounts(t *testing.T) {
	ops := []internal.ImportOperation{
		{Kind: internal.OpInsert, FolderName: "A", Quantity: 2},
		{Kind: internal.OpIncrement, FolderName: "A", Quantity: 1},
		{Kind: internal.OpSkip, FolderName: "B", Quantity: 4},
	}
	rowErrs := []internal.RowError{{RowIndex: 9, Message: "card not found for tst#1"}}

	summary := Summarize(ops, rowErrs)
	if summary.Added != 1 || summary.Updated != 1 || summary.Skipped != 1 || summary.Errored != 1 {
		t.Fatalf("summary=%+v", summary)
	}
	if summary.PerFolder["A"] != 3 || summary.PerFolder["B"] != 4 {
		t.Fatalf("perFolder=%v", summary.PerFolder)
	}
}
