package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func writeTemp(t *testing.T, name string, blob []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseCSVWithBOMAndSepPreamble(t *testing.T) {
	blob := []byte("\uFEFFsep=,\nName,Set,Number\nSol Ring,2XM,229\n")
	path := writeTemp(t, "cards.csv", blob)

	table, err := ReadTableFile(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 3 || table.Headers[0] != "Name" {
		t.Fatalf("headers=%v", table.Headers)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "Sol Ring" {
		t.Fatalf("rows=%v", table.Rows)
	}
}

func TestParseCSVSniffsSemicolon(t *testing.T) {
	blob := []byte("Name;Set;Number\nSol Ring;2XM;229\n")
	path := writeTemp(t, "cards.csv", blob)

	table, err := ReadTableFile(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 3 {
		t.Fatalf("headers=%v", table.Headers)
	}
	if table.Rows[0][2] != "229" {
		t.Fatalf("rows=%v", table.Rows)
	}
}

func TestParseXLSXFirstSheet(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Name", "Set", "Number", "Quantity"},
		{"Sol Ring", "2XM", "229", 1},
		{"Brainstorm", "ICE", 57, 4},
	})
	path := writeTemp(t, "cards.xlsx", blob)

	table, err := ReadTableFile(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 4 {
		t.Fatalf("headers=%v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%v", table.Rows)
	}
	if table.Rows[1][2] != "57" {
		t.Fatalf("numeric cell not stringified: %v", table.Rows[1])
	}
}

func TestParseHTMLTable(t *testing.T) {
	blob := []byte(`<html><body>
<p>export</p>
<table>
  <tr><th>Name</th><th>Set</th><th>Number</th></tr>
  <tr><td>Sol Ring</td><td>2XM</td><td>229</td></tr>
  <tr><td>Brainstorm</td><td>ICE</td><td>57</td></tr>
</table>
</body></html>`)
	path := writeTemp(t, "cards.html", blob)

	table, err := ReadTableFile(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 3 || table.Headers[1] != "Set" {
		t.Fatalf("headers=%v", table.Headers)
	}
	if len(table.Rows) != 2 || table.Rows[1][0] != "Brainstorm" {
		t.Fatalf("rows=%v", table.Rows)
	}
}

func TestFileSizeGuard(t *testing.T) {
	blob := []byte("Name,Set,Number\nSol Ring,2XM,229\n")
	path := writeTemp(t, "cards.csv", blob)

	if _, err := ReadTableFile(path, 4); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := ReadTableFile(path, 1024); err != nil {
		t.Fatal(err)
	}
}

func TestParseDecklist(t *testing.T) {
	text := "4 Lightning Bolt\n2x Sol Ring\n\nBrainstorm\n1 Counterspell\n"
	rows := ParseDecklist(text, "New Deck")
	if len(rows) != 4 {
		t.Fatalf("rows=%d", len(rows))
	}
	if rows[0].Quantity != 4 || rows[0].Name != "Lightning Bolt" {
		t.Fatalf("first=%+v", rows[0])
	}
	if rows[1].Quantity != 2 || rows[1].Name != "Sol Ring" {
		t.Fatalf("second=%+v", rows[1])
	}
	if rows[2].Quantity != 1 || rows[2].Name != "Brainstorm" {
		t.Fatalf("third=%+v", rows[2])
	}
	for _, row := range rows {
		if row.Folder != "New Deck" || row.SetCode != "" {
			t.Fatalf("row=%+v", row)
		}
	}
}

func TestPreviewTruncatesRows(t *testing.T) {
	blob := []byte("Name,Set,Number\nA,1,1\nB,2,2\nC,3,3\n")
	path := writeTemp(t, "cards.csv", blob)

	pv, err := Preview(path, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pv.Rows) != 2 {
		t.Fatalf("rows=%v", pv.Rows)
	}
	if pv.Headers[0] != "Name" {
		t.Fatalf("headers=%v", pv.Headers)
	}
}
