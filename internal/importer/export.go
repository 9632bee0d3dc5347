package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"dragonsvault/internal"
)

// ExportFormat selects the column layout of an inventory export. Each named
// format mirrors the CSV a third-party collection tool accepts back.
type ExportFormat string

const (
	FormatStandard     ExportFormat = "standard"
	FormatManaVault    ExportFormat = "manavault"
	FormatManaBox      ExportFormat = "manabox"
	FormatDragonShield ExportFormat = "dragonshield"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatStandard, "":
		return FormatStandard, nil
	case FormatManaVault:
		return FormatManaVault, nil
	case FormatManaBox:
		return FormatManaBox, nil
	case FormatDragonShield:
		return FormatDragonShield, nil
	}
	return "", fmt.Errorf("unknown export format %q (standard, manavault, manabox, dragonshield)", s)
}

// ExportFileName is the conventional download name for a format.
func ExportFileName(format ExportFormat) string {
	if format == FormatStandard {
		return "cards_export.csv"
	}
	return fmt.Sprintf("dragonsvault-%s.csv", format)
}

func exportHeaders(format ExportFormat) []string {
	switch format {
	case FormatManaVault:
		return []string{"Count", "Name", "Edition", "Collector Number", "Language", "Finish"}
	case FormatManaBox:
		return []string{"Count", "Name", "Edition", "Collector Number", "Finish"}
	case FormatDragonShield:
		return []string{"Quantity", "Name", "Set Code", "Collector Number", "Printing", "Condition", "Language"}
	default:
		return []string{"Folder Name", "Quantity", "Card Name", "Set Code", "Collector Number", "Language", "Printing"}
	}
}

func exportRecord(format ExportFormat, row internal.InventoryExportRow) []string {
	qty := row.Quantity
	if qty <= 0 {
		qty = 1
	}
	finish := "Nonfoil"
	if row.IsFoil {
		finish = "Foil"
	}

	switch format {
	case FormatManaVault:
		return []string{
			fmt.Sprint(qty), row.Name, strings.ToUpper(row.SetCode),
			row.CollectorNumber, strings.ToUpper(row.Lang), finish,
		}
	case FormatManaBox:
		return []string{
			fmt.Sprint(qty), row.Name, strings.ToUpper(row.SetCode),
			row.CollectorNumber, finish,
		}
	case FormatDragonShield:
		printing := "Normal"
		if row.IsFoil {
			printing = "Foil"
		}
		lang := row.Lang
		if lang == "" {
			lang = "English"
		}
		return []string{
			fmt.Sprint(qty), row.Name, strings.ToUpper(row.SetCode),
			row.CollectorNumber, printing, "Near Mint", lang,
		}
	default:
		lang := row.Lang
		if lang == "" {
			lang = "en"
		}
		return []string{
			row.FolderName, fmt.Sprint(qty), row.Name, row.SetCode,
			row.CollectorNumber, lang, finish,
		}
	}
}

// ExportRowsToCSV writes inventory rows in the given format.
func ExportRowsToCSV(rows []internal.InventoryExportRow, format ExportFormat, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeaders(format)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(exportRecord(format, row)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// ExportRowsToXLSX writes the same layout as a single-sheet workbook.
func ExportRowsToXLSX(rows []internal.InventoryExportRow, format ExportFormat, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range exportHeaders(format) {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, row := range rows {
		for j, value := range exportRecord(format, row) {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
