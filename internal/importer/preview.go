package importer

// PreviewData holds the first rows of an upload with their original headers,
// for display before the user confirms an import.
type PreviewData struct {
	Headers []string
	Rows    [][]string
}

// Preview reads up to maxRows non-blank rows from a table file without
// normalizing or touching the store.
func Preview(path string, maxRows int, maxBytes int64) (PreviewData, error) {
	table, err := ReadTableFile(path, maxBytes)
	if err != nil {
		return PreviewData{}, err
	}
	if len(table.Headers) == 0 {
		return PreviewData{}, &HeaderError{Details: []string{
			"no headers found; include columns such as 'Name', 'Set Code', 'Collector Number'",
		}}
	}

	pv := PreviewData{Headers: table.Headers}
	for _, cells := range table.Rows {
		if isBlankRow(cells) {
			continue
		}
		pv.Rows = append(pv.Rows, padRow(cells, len(table.Headers)))
		if maxRows > 0 && len(pv.Rows) >= maxRows {
			break
		}
	}
	return pv, nil
}
