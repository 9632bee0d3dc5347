package importer

import (
	"encoding/csv"
	"os"
	"path/filepath"
)

// TemplateFileName is the conventional name for the starter CSV.
const TemplateFileName = "dragonsvault-import-template.csv"

var templateHeaders = []string{"name", "set", "collector_number", "lang", "quantity", "foil", "folder"}

var templateRows = [][]string{
	{"Sol Ring", "2XM", "229", "en", "1", "0", "Collection"},
	{"Lightning Bolt", "M10", "146", "en", "4", "0", "Red Burn"},
}

// WriteTemplateCSV writes a starter import file with example rows. The byte
// order mark and CRLF endings are there so Excel opens it cleanly.
func WriteTemplateCSV(outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString("\uFEFF"); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.UseCRLF = true
	if err := w.Write(templateHeaders); err != nil {
		return err
	}
	for _, row := range templateRows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
