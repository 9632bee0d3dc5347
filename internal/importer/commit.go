package importer

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"dragonsvault/internal"
)

// OperationApplier applies a batch of operations as one unit of work. Any
// failure must leave the store untouched.
type OperationApplier interface {
	ApplyOperations(ops []internal.ImportOperation) error
}

type Committer struct {
	applier OperationApplier
}

func NewCommitter(applier OperationApplier) *Committer {
	return &Committer{applier: applier}
}

// Commit applies the batch transactionally and returns the summary. Row
// errors collected upstream are informational and ride along unchanged; a
// persistence failure aborts the whole batch with one aggregate error.
func (c *Committer) Commit(ops []internal.ImportOperation, rowErrs []internal.RowError) (internal.ImportSummary, error) {
	if err := c.applier.ApplyOperations(ops); err != nil {
		return internal.ImportSummary{}, fmt.Errorf("import aborted, no changes applied: %w", err)
	}
	return Summarize(ops, rowErrs), nil
}

// Summarize tallies operations and row errors into an ImportSummary.
// The per-folder breakdown counts imported quantity for every row that
// produced an operation, skips included, matching what the UI reports.
func Summarize(ops []internal.ImportOperation, rowErrs []internal.RowError) internal.ImportSummary {
	summary := internal.ImportSummary{
		Errored:   len(rowErrs),
		PerFolder: map[string]int{},
		Errors:    rowErrs,
	}
	for _, op := range ops {
		switch op.Kind {
		case internal.OpInsert:
			summary.Added++
		case internal.OpIncrement, internal.OpSetQuantity:
			summary.Updated++
		case internal.OpSkip:
			summary.Skipped++
		}
		summary.PerFolder[op.FolderName] += op.Quantity
	}
	return summary
}

// LogSummary writes one operational audit line for the run.
func LogSummary(source string, mode internal.QuantityMode, dryRun bool, summary internal.ImportSummary) {
	verb := "apply"
	if dryRun {
		verb = "dry-run"
	}
	log.Printf(
		"import %s complete: file=%s mode=%s added=%d updated=%d skipped=%d errors=%d%s",
		verb, source, mode,
		summary.Added, summary.Updated, summary.Skipped, summary.Errored,
		topFolders(summary.PerFolder),
	)
}

func topFolders(perFolder map[string]int) string {
	if len(perFolder) == 0 {
		return ""
	}
	type entry struct {
		name string
		qty  int
	}
	entries := make([]entry, 0, len(perFolder))
	for name, qty := range perFolder {
		entries = append(entries, entry{name, qty})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].qty != entries[j].qty {
			return entries[i].qty > entries[j].qty
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > 5 {
		entries = entries[:5]
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s:%d", e.name, e.qty))
	}
	return "; top folders: " + strings.Join(parts, ", ")
}
