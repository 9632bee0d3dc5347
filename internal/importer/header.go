package importer

import (
	"fmt"
	"strings"

	"dragonsvault/internal"
	"dragonsvault/internal/util"
)

// Canonical import fields. Every recognized source column maps onto one of
// these before any row is processed.
const (
	fieldFolder          = "folder"
	fieldFolderCategory  = "folder_category"
	fieldName            = "name"
	fieldSetCode         = "set_code"
	fieldCollectorNumber = "collector_number"
	fieldQuantity        = "quantity"
	fieldLang            = "lang"
	fieldFoil            = "foil"
)

// Ordered header variants per canonical field; first match wins.
var headerSynonyms = map[string][]string{
	fieldFolder: {
		"folder name", "folder_name", "folder", "binder", "binder name", "album",
	},
	fieldFolderCategory: {
		"folder category", "folder type", "binder type", "collection type",
	},
	fieldName: {
		"card name", "card_name", "name", "card",
	},
	fieldQuantity: {
		"quantity", "qty", "trade quantity", "count", "copies",
	},
	fieldSetCode: {
		"set code", "set_code", "set", "expansion", "setcode", "edition",
	},
	fieldCollectorNumber: {
		"collector number", "collector_number", "collector #",
		"card number", "card_number", "card #",
		"cn", "number", "#",
	},
	fieldLang: {
		"language", "lang",
	},
	fieldFoil: {
		"printing", "foil", "is foil", "foil?", "is_foil", "finish",
	},
}

var requiredFields = []struct {
	field string
	label string
}{
	{fieldName, "Card name"},
	{fieldSetCode, "Set code"},
	{fieldCollectorNumber, "Collector number"},
}

// HeaderError aborts an import before any row is processed: one aggregated,
// user-facing message naming every required column that could not be mapped.
type HeaderError struct {
	Details []string
}

func (e *HeaderError) Error() string {
	return "missing required column(s): " + strings.Join(e.Details, "; ")
}

type Dialect string

const (
	DialectGeneric  Dialect = ""
	DialectManaBox  Dialect = "manabox"
	DialectMoxfield Dialect = "moxfield"
)

// CanonicalRow is one validated data row, ready for reconciliation.
// SetCode and CollectorNumber are empty only for decklist-style inputs,
// which resolve by name instead.
type CanonicalRow struct {
	Index           int
	Folder          string
	CategoryHint    string
	Name            string
	SetCode         string
	CollectorNumber string
	Quantity        int
	Lang            string
	Foil            bool
}

type NormalizeOptions struct {
	DefaultFolder    string
	QuantityFallback int
}

// headerMapping resolves canonical fields to column indexes for one table.
type headerMapping struct {
	columns map[string]int
	dialect Dialect
}

// NormalizeTable maps a raw table onto canonical rows. It fails fast with a
// HeaderError when required columns are entirely absent; individual bad rows
// become RowErrors and never abort the run.
func NormalizeTable(table Table, opts NormalizeOptions) ([]CanonicalRow, []string, []internal.RowError, error) {
	if opts.QuantityFallback <= 0 {
		opts.QuantityFallback = 1
	}
	if strings.TrimSpace(opts.DefaultFolder) == "" {
		opts.DefaultFolder = "Unsorted"
	}

	mapping, warnings, err := mapHeaders(table.Headers)
	if err != nil {
		return nil, warnings, nil, err
	}

	defaultFolder := opts.DefaultFolder
	if mapping.dialect == DialectMoxfield {
		// Moxfield exports whole collections without folder columns.
		defaultFolder = "Collection"
	}

	rows := make([]CanonicalRow, 0, len(table.Rows))
	var rowErrs []internal.RowError
	for i, cells := range table.Rows {
		index := i + 1
		if isBlankRow(cells) {
			continue
		}

		cell := func(field string) string {
			col, ok := mapping.columns[field]
			if !ok || col >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[col])
		}

		row := CanonicalRow{
			Index:           index,
			Name:            cell(fieldName),
			SetCode:         util.NormalizeSetCode(cell(fieldSetCode)),
			CollectorNumber: util.NormalizeCollectorNumber(cell(fieldCollectorNumber)),
			Quantity:        util.CoerceInt(cell(fieldQuantity), opts.QuantityFallback),
			Lang:            util.NormalizeLang(cell(fieldLang)),
			Foil:            util.ParseFoil(cell(fieldFoil)),
		}

		row.Folder = cell(fieldFolder)
		if row.Folder == "" {
			row.Folder = defaultFolder
		}
		if mapping.dialect == DialectMoxfield {
			row.CategoryHint = internal.CategoryCollection
		} else {
			row.CategoryHint = folderCategoryHint(cell(fieldFolderCategory))
		}

		if missing := missingRowFields(row); len(missing) > 0 {
			rowErrs = append(rowErrs, internal.RowError{
				RowIndex: index,
				Message:  "missing " + strings.Join(missing, ", "),
			})
			continue
		}

		rows = append(rows, row)
	}

	return rows, warnings, rowErrs, nil
}

func mapHeaders(headers []string) (headerMapping, []string, error) {
	if len(headers) == 0 {
		return headerMapping{}, nil, &HeaderError{Details: []string{
			"no headers found; include columns such as 'Name', 'Set Code', 'Collector Number'",
		}}
	}

	var warnings []string
	lowerToCol := make(map[string]int, len(headers))
	for i, h := range headers {
		norm := util.NormalizeHeader(h)
		if norm == "" {
			continue
		}
		if _, dup := lowerToCol[norm]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate column %q; last occurrence wins", strings.TrimSpace(h)))
		}
		lowerToCol[norm] = i
	}

	mapping := headerMapping{columns: map[string]int{}}
	mapped := make(map[int]struct{})
	for field, variants := range headerSynonyms {
		for _, v := range variants {
			if col, ok := lowerToCol[v]; ok {
				mapping.columns[field] = col
				mapped[col] = struct{}{}
				break
			}
		}
	}

	mapping.dialect = detectDialect(lowerToCol)

	var missing []string
	for _, req := range requiredFields {
		if _, ok := mapping.columns[req.field]; !ok {
			variants := strings.Join(headerSynonyms[req.field], ", ")
			missing = append(missing, fmt.Sprintf("%s (accepted: %s)", req.label, variants))
		}
	}
	if len(missing) > 0 {
		return headerMapping{}, warnings, &HeaderError{Details: missing}
	}

	for norm, col := range lowerToCol {
		if _, ok := mapped[col]; !ok {
			warnings = append(warnings, fmt.Sprintf("ignoring unrecognized column %q", norm))
		}
	}

	return mapping, warnings, nil
}

// detectDialect recognizes known third-party exports by the set of headers
// present, not by individual names.
func detectDialect(lowerToCol map[string]int) Dialect {
	has := func(names ...string) bool {
		for _, n := range names {
			if _, ok := lowerToCol[n]; !ok {
				return false
			}
		}
		return true
	}
	if has("binder name", "binder type") {
		return DialectManaBox
	}
	if has("count", "name", "edition") && (has("purchase price") || has("alter")) {
		return DialectMoxfield
	}
	return DialectGeneric
}

var folderCategoryKeywords = map[string]string{
	"deck":         internal.CategoryDeck,
	"decks":        internal.CategoryDeck,
	"decklist":     internal.CategoryDeck,
	"commander":    internal.CategoryDeck,
	"binder":       internal.CategoryCollection,
	"collection":   internal.CategoryCollection,
	"trade":        internal.CategoryCollection,
	"binder/trade": internal.CategoryCollection,
}

func folderCategoryHint(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if cat, ok := folderCategoryKeywords[s]; ok {
		return cat
	}
	if strings.Contains(s, "deck") {
		return internal.CategoryDeck
	}
	for _, tok := range []string{"binder", "collection", "trade", "inventory"} {
		if strings.Contains(s, tok) {
			return internal.CategoryCollection
		}
	}
	return ""
}

func missingRowFields(row CanonicalRow) []string {
	var missing []string
	if row.Name == "" {
		missing = append(missing, "name")
	}
	if row.SetCode == "" {
		missing = append(missing, "set code")
	}
	if row.CollectorNumber == "" {
		missing = append(missing, "collector number")
	}
	return missing
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
