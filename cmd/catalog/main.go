package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradecatalog/internal"
	"tradecatalog/internal/catalog"
	"tradecatalog/internal/config"
	"tradecatalog/internal/images"
	"tradecatalog/internal/logger"
	"tradecatalog/internal/pipeline"
	"tradecatalog/internal/storage"
	"tradecatalog/internal/util"
)

const lastImportKey = "import.last_commit"

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := logger.New(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := catalog.NewService(db, catalog.NewSorter(cfg.Locale), pipeline.NewRefGenerator(cfg.RefPrefix, cfg.RefWidth), log)
	ctx := context.Background()

	cmd := os.Args[1]
	switch cmd {
	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "xlsx or csv sheet to import")
		autoRef := fs.Bool("auto-ref", cfg.ImportAutoReference, "generate missing referencia codes")
		dryRun := fs.Bool("dry-run", false, "validate only, store nothing")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		content, err := os.ReadFile(*file)
		must(err)
		if int64(len(content)) > cfg.ImportMaxBytes {
			must(fmt.Errorf("%s is larger than %d bytes", *file, cfg.ImportMaxBytes))
		}

		opts := pipeline.ImportOptions{AutoReference: *autoRef}
		res, err := svc.PrepareImport(ctx, content, opts)
		must(err)
		for _, line := range res.Errors {
			fmt.Println(line)
		}
		valid := res.Valid()
		fmt.Printf("import parsed rows=%d valid=%d invalid=%d\n", len(res.Candidates), len(valid), len(res.Errors))
		if *dryRun || len(valid) == 0 {
			return
		}

		batch, err := svc.CommitImport(ctx, valid, opts)
		must(err)
		for _, item := range batch.Items {
			if item.Error != "" {
				fmt.Println(pipeline.RowError(item.Row, []string{item.Error}))
			}
		}
		if batch.Succeeded > 0 {
			must(db.SetMetadata(lastImportKey, time.Now().UTC().Format(time.RFC3339)))
		}
		fmt.Printf("import done created=%d failed=%d skipped=%d\n", batch.Succeeded, batch.Failed, batch.Skipped)
	case "list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		vf := addViewFlags(fs)
		limit := fs.Int("limit", 50, "max rows to print, 0 for all")
		_ = fs.Parse(os.Args[2:])
		c, spec, err := vf.parse()
		must(err)
		products, err := svc.View(ctx, c, spec)
		must(err)
		for i, p := range products {
			if *limit > 0 && i >= *limit {
				break
			}
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n", p.ID, p.Referencia, p.Fabrica, util.FormatNumber(p.UnitPriceRmb), p.Name)
		}
		fmt.Printf("%d products\n", len(products))
	case "export:csv":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		vf := addViewFlags(fs)
		out := fs.String("out", "", "output csv path")
		_ = fs.Parse(os.Args[2:])
		c, spec, err := vf.parse()
		must(err)
		products, err := svc.View(ctx, c, spec)
		must(err)
		path := outputPath(cfg, *out, "csv")
		must(writeCSV(path, products, pipeline.CSVOptions{ImageBaseURL: cfg.ImageBaseURL, Location: cfg.Location()}))
		fmt.Printf("exported %d products to %s\n", len(products), path)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		vf := addViewFlags(fs)
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		c, spec, err := vf.parse()
		must(err)
		products, err := svc.View(ctx, c, spec)
		must(err)
		path := outputPath(cfg, *out, "xlsx")
		exporter := pipeline.NewXLSXExporter(images.NewClient(cfg, log), cfg.ImageFetchConcurrency, cfg.Location(), log)
		must(exporter.SaveXLSX(ctx, path, products))
		fmt.Printf("exported %d products to %s\n", len(products), path)
	case "template":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		path := *out
		if strings.TrimSpace(path) == "" {
			path = filepath.Join(cfg.OutputDir, "modelo_importacao_produtos.xlsx")
		}
		must(writeFile(path, pipeline.WriteTemplate))
		fmt.Printf("template written to %s\n", path)
	case "set":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "product id")
		field := fs.String("field", "", "field key, e.g. unitPriceRmb")
		value := fs.String("value", "", "new value")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" || strings.TrimSpace(*field) == "" {
			must(fmt.Errorf("--id and --field are required"))
		}
		must(svc.SetField(ctx, *id, *field, *value))
		fmt.Printf("updated %s %s\n", *id, *field)
	case "delete", "activate", "deactivate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		idList := fs.String("ids", "", "comma separated product ids")
		_ = fs.Parse(os.Args[2:])
		ids := splitIDs(*idList)
		var res internal.BatchResult
		switch cmd {
		case "delete":
			res, err = svc.BulkDelete(ctx, ids)
		default:
			res, err = svc.BulkSetActive(ctx, ids, cmd == "activate")
		}
		must(err)
		for _, item := range res.Items {
			if item.Error != "" {
				fmt.Printf("%s: %s\n", item.ID, item.Error)
			}
		}
		fmt.Printf("%s done ok=%d failed=%d\n", cmd, res.Succeeded, res.Failed)
	default:
		usage()
		os.Exit(1)
	}
}

type viewFlags struct {
	search  *string
	fabrica *string
	marca   *string
	sort    *string
	dir     *string
}

func addViewFlags(fs *flag.FlagSet) viewFlags {
	return viewFlags{
		search:  fs.String("search", "", "free text search"),
		fabrica: fs.String("fabrica", "", "manufacturer"),
		marca:   fs.String("marca", "", "brand"),
		sort:    fs.String("sort", "", "sort column, e.g. unitPriceRmb"),
		dir:     fs.String("dir", "asc", "asc|desc"),
	}
}

func (v viewFlags) parse() (internal.Criteria, internal.SortSpec, error) {
	c := internal.Criteria{Search: *v.search, Fabrica: *v.fabrica, Marca: *v.marca}
	if strings.TrimSpace(*v.sort) == "" {
		return c, internal.SortSpec{}, nil
	}
	if _, ok := internal.LookupField(*v.sort); !ok {
		return c, internal.SortSpec{}, fmt.Errorf("%w: %s", internal.ErrUnknownField, *v.sort)
	}
	dir, err := catalog.ParseDirection(*v.dir)
	if err != nil {
		return c, internal.SortSpec{}, err
	}
	return c, internal.SortSpec{Column: *v.sort, Direction: dir}, nil
}

func outputPath(cfg config.Config, out, ext string) string {
	if strings.TrimSpace(out) != "" {
		return out
	}
	return filepath.Join(cfg.OutputDir, fmt.Sprintf("produtos_%s.%s", time.Now().Format("2006-01-02"), ext))
}

func writeCSV(path string, products []internal.Product, opts pipeline.CSVOptions) error {
	return writeFile(path, func(w io.Writer) error {
		return pipeline.WriteCSV(w, products, opts)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func usage() {
	fmt.Println("usage: catalog <command>")
	fmt.Println("commands:")
	fmt.Println("  import --file=./produtos.xlsx [--auto-ref] [--dry-run]")
	fmt.Println("  list [--search=...] [--fabrica=...] [--marca=...] [--sort=name --dir=asc|desc] [--limit=50]")
	fmt.Println("  export:csv [--out=./out/produtos.csv] [filters]")
	fmt.Println("  export:xlsx [--out=./out/produtos.xlsx] [filters]")
	fmt.Println("  template [--out=./out/modelo_importacao_produtos.xlsx]")
	fmt.Println("  set --id=... --field=unitPriceRmb --value=12,5")
	fmt.Println("  delete|activate|deactivate --ids=id1,id2")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
