package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dragonsvault/internal"
	"dragonsvault/internal/config"
	"dragonsvault/internal/importer"
	"dragonsvault/internal/scryfall"
	"dragonsvault/internal/storage"
	"dragonsvault/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "scryfall:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		force := fs.Bool("force", false, "download even if the bulk dataset is unchanged")
		_ = fs.Parse(os.Args[2:])
		svc := scryfall.NewSyncService(db, cfg)
		count, err := svc.BulkSync(context.Background(), *force)
		must(err)
		fmt.Printf("scryfall sync complete: %d prints\n", count)

	case "scryfall:card":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		set := fs.String("set", "", "set code, e.g. 2xm")
		number := fs.String("number", "", "collector number")
		lang := fs.String("lang", "en", "language code")
		name := fs.String("name", "", "exact card name (instead of set/number)")
		_ = fs.Parse(os.Args[2:])

		svc := scryfall.NewSyncService(db, cfg)
		var p *internal.CardPrint
		if strings.TrimSpace(*name) != "" {
			p, err = svc.SyncCardByName(context.Background(), *name)
		} else {
			if strings.TrimSpace(*set) == "" || strings.TrimSpace(*number) == "" {
				must(fmt.Errorf("--set and --number (or --name) are required"))
			}
			p, err = svc.SyncCard(context.Background(), *set, *number, *lang)
		}
		must(err)
		if p == nil {
			must(fmt.Errorf("card not found"))
		}
		fmt.Printf("synced %s (%s #%s, %s)\n", p.Name, strings.ToUpper(p.SetCode), p.CollectorNumber, p.Lang)

	case "import:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "csv/xlsx/html/txt/pdf file to import")
		owner := fs.String("owner", "", "owner of the imported folders")
		folder := fs.String("folder", "", "default folder for rows without one")
		mode := fs.String("mode", string(internal.ModeDelta), "delta|new_only")
		overwrite := fs.Bool("overwrite", false, "set quantities instead of adding (delta mode)")
		dryRun := fs.Bool("dry-run", false, "reconcile without writing")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		qmode, err := parseQuantityMode(*mode)
		must(err)

		svc := importer.NewService(db, cfg)
		summary, err := svc.ImportFile(*file, importer.RunOptions{
			Owner:         *owner,
			DefaultFolder: *folder,
			QuantityMode:  qmode,
			Overwrite:     *overwrite,
			DryRun:        *dryRun,
		})
		must(err)
		printSummary(summary, *dryRun, cfg.SkipDetailLimit)

	case "import:preview":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "csv/xlsx/html file to preview")
		rows := fs.Int("rows", 10, "rows to show")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		pv, err := importer.Preview(*file, *rows, cfg.ImportMaxBytes)
		must(err)
		fmt.Println(strings.Join(pv.Headers, " | "))
		for _, cells := range pv.Rows {
			fmt.Println(strings.Join(cells, " | "))
		}

	case "import:watch":
		s := watcher.NewService(db, cfg)
		must(s.Run(context.Background()))

	case "export:csv", "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output path")
		format := fs.String("format", "standard", "standard|manavault|manabox|dragonshield")
		owner := fs.String("owner", "", "owner whose inventory to export")
		folder := fs.String("folder", "", "restrict to one folder")
		_ = fs.Parse(os.Args[2:])

		exportFormat, err := importer.ParseExportFormat(*format)
		must(err)
		outputPath := strings.TrimSpace(*out)
		if outputPath == "" {
			outputPath = filepath.Join(cfg.OutputDir, importer.ExportFileName(exportFormat))
			if cmd == "export:xlsx" {
				outputPath = strings.TrimSuffix(outputPath, ".csv") + ".xlsx"
			}
		}

		rows, err := db.ListInventoryExport(*owner, *folder)
		must(err)
		if cmd == "export:xlsx" {
			must(importer.ExportRowsToXLSX(rows, exportFormat, outputPath))
		} else {
			must(importer.ExportRowsToCSV(rows, exportFormat, outputPath))
		}
		fmt.Printf("exported %d rows to %s\n", len(rows), outputPath)

	case "template:csv":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output path")
		_ = fs.Parse(os.Args[2:])
		outputPath := strings.TrimSpace(*out)
		if outputPath == "" {
			outputPath = filepath.Join(cfg.OutputDir, importer.TemplateFileName)
		}
		must(importer.WriteTemplateCSV(outputPath))
		fmt.Printf("template written to %s\n", outputPath)

	default:
		usage()
		os.Exit(1)
	}
}

func parseQuantityMode(s string) (internal.QuantityMode, error) {
	switch internal.QuantityMode(strings.ToLower(strings.TrimSpace(s))) {
	case internal.ModeDelta, "":
		return internal.ModeDelta, nil
	case internal.ModeNewOnly:
		return internal.ModeNewOnly, nil
	default:
		return "", fmt.Errorf("unsupported quantity mode: %s", s)
	}
}

func printSummary(summary internal.ImportSummary, dryRun bool, detailLimit int) {
	verb := "imported"
	if dryRun {
		verb = "dry-run"
	}
	fmt.Printf("%s: added=%d updated=%d skipped=%d errors=%d\n",
		verb, summary.Added, summary.Updated, summary.Skipped, summary.Errored)
	for name, qty := range summary.PerFolder {
		fmt.Printf("  folder %s: %d cards\n", name, qty)
	}
	if detailLimit <= 0 {
		detailLimit = 10
	}
	for i, rowErr := range summary.Errors {
		if i >= detailLimit {
			fmt.Printf("  ... %d more errors\n", len(summary.Errors)-detailLimit)
			break
		}
		fmt.Printf("  row %d: %s\n", rowErr.RowIndex, rowErr.Message)
	}
}

func usage() {
	fmt.Println("usage: dragonsvault <command>")
	fmt.Println("commands:")
	fmt.Println("  scryfall:sync [--force]")
	fmt.Println("  scryfall:card --set=2xm --number=229 [--lang=en] | --name=\"Sol Ring\"")
	fmt.Println("  import:run --file=cards.csv [--owner=...] [--folder=...] [--mode=delta|new_only] [--overwrite] [--dry-run]")
	fmt.Println("  import:preview --file=cards.csv [--rows=10]")
	fmt.Println("  import:watch")
	fmt.Println("  export:csv [--out=...] [--format=standard|manavault|manabox|dragonshield] [--owner=...] [--folder=...]")
	fmt.Println("  export:xlsx [--out=...] [--format=...] [--owner=...] [--folder=...]")
	fmt.Println("  template:csv [--out=...]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
