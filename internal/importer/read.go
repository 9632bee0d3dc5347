package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Table is a raw tabular input: an ordered header row plus data rows.
// Rows may be ragged; the normalizer treats missing cells as blank.
type Table struct {
	Source  string
	Headers []string
	Rows    [][]string
}

var tableExts = map[string]struct{}{
	".csv": {}, ".xlsx": {}, ".xlsm": {}, ".html": {}, ".htm": {},
}

var decklistExts = map[string]struct{}{
	".txt": {}, ".pdf": {},
}

// SupportedImportFile reports whether the watcher and CLI should pick up a
// file with this name at all.
func SupportedImportFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := tableExts[ext]; ok {
		return true
	}
	_, ok := decklistExts[ext]
	return ok
}

// IsDecklistFile reports whether the file holds a line-oriented decklist
// rather than a header/row table.
func IsDecklistFile(name string) bool {
	_, ok := decklistExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ReadTableFile loads a CSV, Excel, or HTML table export. maxBytes <= 0
// disables the size guard.
func ReadTableFile(path string, maxBytes int64) (Table, error) {
	if err := checkFileSize(path, maxBytes); err != nil {
		return Table{}, err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return Table{}, err
	}

	source := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseCSV(blob, source)
	case ".xlsx", ".xlsm":
		return parseXLSX(blob, source)
	case ".html", ".htm":
		return parseHTMLTable(blob, source)
	default:
		return Table{}, fmt.Errorf("unsupported file type %q; upload .csv, .xlsx, .xlsm, or .html", filepath.Ext(path))
	}
}

func checkFileSize(path string, maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > maxBytes {
		return fmt.Errorf("file is too large: %d bytes (limit %d MB)", info.Size(), maxBytes/(1024*1024))
	}
	return nil
}

func parseCSV(blob []byte, source string) (Table, error) {
	text := strings.TrimPrefix(string(blob), "\uFEFF")
	content, declared := stripSepPreamble(text)

	delimiter := declared
	if delimiter == 0 {
		delimiter = sniffDelimiter(content)
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("could not parse CSV: %w", err)
	}
	if len(records) == 0 {
		return Table{Source: source}, nil
	}

	return Table{Source: source, Headers: records[0], Rows: records[1:]}, nil
}

// stripSepPreamble handles Excel's "sep=," first line, quoted or unquoted.
// Returns the remaining content and the declared delimiter, zero if none.
func stripSepPreamble(text string) (string, rune) {
	if text == "" {
		return text, 0
	}
	firstNewline := strings.IndexByte(text, '\n')
	head := text
	if firstNewline >= 0 {
		head = text[:firstNewline]
	}
	head = strings.Trim(strings.ToLower(strings.TrimSpace(head)), `'"`)
	if strings.HasPrefix(head, "sep=") && len(head) >= 5 {
		delim := rune(head[4])
		if firstNewline < 0 {
			return "", delim
		}
		return text[firstNewline+1:], delim
	}
	return text, 0
}

// sniffDelimiter picks the most frequent candidate delimiter in the header
// line, defaulting to comma.
func sniffDelimiter(content string) rune {
	head := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		head = content[:idx]
	}

	best := ','
	bestCount := strings.Count(head, ",")
	for _, cand := range []rune{';', '\t', '|'} {
		if count := strings.Count(head, string(cand)); count > bestCount {
			best = cand
			bestCount = count
		}
	}
	return best
}

func parseXLSX(blob []byte, source string) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return Table{}, fmt.Errorf("could not open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{Source: source}, nil
	}

	// Only the first worksheet is read; later sheets are ignored.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, err
	}

	table := Table{Source: source}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
		}
		if table.Headers == nil {
			if isBlankRow(cells) {
				continue
			}
			table.Headers = cells
			continue
		}
		table.Rows = append(table.Rows, padRow(cells, len(table.Headers)))
	}

	return table, nil
}

func padRow(cells []string, width int) []string {
	if len(cells) >= width {
		return cells[:width]
	}
	out := make([]string, width)
	copy(out, cells)
	return out
}

func parseHTMLTable(blob []byte, source string) (Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(blob))
	if err != nil {
		return Table{}, fmt.Errorf("could not parse HTML: %w", err)
	}

	table := Table{Source: source}
	doc.Find("table").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		rows := sel.Find("tr")
		if rows.Length() < 2 {
			return true
		}

		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			table.Headers = append(table.Headers, strings.TrimSpace(cell.Text()))
		})
		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			table.Rows = append(table.Rows, padRow(cells, len(table.Headers)))
		})
		return false
	})

	return table, nil
}

var decklistLineRe = regexp.MustCompile(`^\s*(\d+)\s*[xX]?\s+(.*)$`)

// ParseDecklist reads "3x Sol Ring" style lines into canonical rows with no
// printing information; the reconciler resolves those by name. Blank lines
// and unparseable quantities fall back to a single copy.
func ParseDecklist(text, defaultFolder string) []CanonicalRow {
	var rows []CanonicalRow
	index := 0
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		index++
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		qty := 1
		name := line
		if m := decklistLineRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v > 1 {
				qty = v
			}
			name = strings.TrimSpace(m[2])
		}
		if name == "" {
			continue
		}

		rows = append(rows, CanonicalRow{
			Index:    index,
			Folder:   defaultFolder,
			Name:     name,
			Quantity: qty,
			Lang:     "en",
		})
	}
	return rows
}

// ReadDecklistFile loads a plain-text or PDF decklist.
func ReadDecklistFile(path, defaultFolder string, maxBytes int64) ([]CanonicalRow, error) {
	if err := checkFileSize(path, maxBytes); err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := string(blob)
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		text, err = pdfPlainText(blob)
		if err != nil {
			return nil, fmt.Errorf("could not read PDF: %w", err)
		}
	}

	return ParseDecklist(text, defaultFolder), nil
}

func pdfPlainText(blob []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
