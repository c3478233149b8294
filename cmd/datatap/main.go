// Package main is the entry point for the datatap CLI.
//
// datatap moves tabular data between a name-addressed row store and
// external formats (CSV, JSON, YAML, XML, LaTeX and friends).
// Configuration is read from CLI flags plus an optional .env file in the
// working directory; the store locator is the only required setting.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jeffmaxey/datatap/format"
	"github.com/jeffmaxey/datatap/tabstore"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "datatap: %v\n", err)
		os.Exit(1)
	}
}

const usage = `Usage: datatap [flags] <command> [args]

Commands:
  tables                  List table names
  schema <table>          Print declared columns and kinds
  insert <table>          Insert JSON objects read from stdin, one per line
  export <table> [file]   Export a table (stdout when file is omitted)
  import <table> <file>   Import a file into a table
  convert <in> <out>      Convert one file into another format
  drop <table>            Destroy a table
  watch <table> <out>     Re-export whenever the table's backing file changes
`

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	storeLoc := flag.String("store", "./data", "Store locator (mem:, file:DIR, or a directory path)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	formatName := flag.String("format", "", "Format name; defaults to the file extension")
	strict := flag.Bool("strict", false, "Strict import: drop columns not declared on the target table")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case int64:
				skip = t == 0
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	// .env values fill in flags that were not explicitly set.
	env, err := loadDotEnv(".")
	if err != nil {
		return err
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["store"] {
		if v := env["DATATAP_STORE"]; v != "" {
			*storeLoc = v
		}
	}
	if !set["log-level"] {
		if v := env["DATATAP_LOG_LEVEL"]; v != "" {
			*logLevel = v
		}
	}
	if !set["format"] {
		if v := env["DATATAP_FORMAT"]; v != "" {
			*formatName = v
		}
	}

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}

	reg := format.Builtin()
	cmd, args := args[0], args[1:]

	// convert needs no store.
	if cmd == "convert" {
		return cmdConvert(ctx, reg, args)
	}

	store, err := tabstore.Open(*storeLoc, nil)
	if err != nil {
		return err
	}

	switch cmd {
	case "tables":
		for _, name := range store.Names() {
			fmt.Println(name)
		}
		return nil
	case "schema":
		return cmdSchema(store, args)
	case "insert":
		return cmdInsert(store, args)
	case "export":
		return cmdExport(reg, store, *formatName, args)
	case "import":
		return cmdImport(ctx, reg, store, *formatName, *strict, args)
	case "drop":
		if len(args) != 1 {
			return errors.New("usage: drop <table>")
		}
		return store.Drop(args[0])
	case "watch":
		return cmdWatch(ctx, reg, store, *storeLoc, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command: %q", cmd)
	}
}

func cmdSchema(store *tabstore.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: schema <table>")
	}
	table, err := store.Table(args[0])
	if err != nil {
		return err
	}
	for _, col := range table.Columns() {
		marker := ""
		if col.Name == table.PrimaryKey() {
			marker = "  (primary key)"
		}
		fmt.Printf("%s\t%s%s\n", col.Name, col.Kind, marker)
	}
	return nil
}

func cmdInsert(store *tabstore.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: insert <table>")
	}
	table, err := store.Table(args[0])
	if err != nil {
		return err
	}
	count := 0
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row tabstore.Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return fmt.Errorf("line %d: %w", count+1, err)
		}
		if err := table.Insert(row); err != nil {
			return err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	slog.Info("Inserted rows", "table", table.Name(), "count", int64(count))
	return nil
}

func cmdExport(reg *format.Registry, store *tabstore.Store, formatName string, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: export <table> [file]")
	}
	table, err := store.Table(args[0])
	if err != nil {
		return err
	}
	snap := table.Snapshot()

	if len(args) == 1 {
		if formatName == "" {
			return errors.New("export to stdout requires -format")
		}
		return reg.Export(os.Stdout, formatName, snap)
	}
	if formatName != "" {
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		return reg.Export(f, formatName, snap)
	}
	return format.ExportFile(reg, args[1], snap)
}

func cmdImport(ctx context.Context, reg *format.Registry, store *tabstore.Store, formatName string, strict bool, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: import <table> <file>")
	}
	table, err := store.Table(args[0])
	if err != nil {
		return err
	}
	var count int
	if formatName != "" {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		count, err = reg.Import(ctx, formatName, f, table, strict)
		if err != nil {
			return err
		}
	} else {
		count, err = format.ImportFile(ctx, reg, args[1], table, strict)
		if err != nil {
			return err
		}
	}
	slog.Info("Imported rows", "table", table.Name(), "count", int64(count))
	return nil
}

func cmdConvert(ctx context.Context, reg *format.Registry, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: convert <in> <out>")
	}
	store, err := tabstore.Open("mem:", nil)
	if err != nil {
		return err
	}
	table, err := store.Table("scratch")
	if err != nil {
		return err
	}
	count, err := format.ImportFile(ctx, reg, args[0], table, false)
	if err != nil {
		return err
	}
	if err := format.ExportFile(reg, args[1], table.Snapshot()); err != nil {
		return err
	}
	slog.Info("Converted", "in", args[0], "out", args[1], "rows", int64(count))
	return nil
}

// cmdWatch re-exports a table whenever its backing file is written, so an
// export stays current while another process appends to the store.
func cmdWatch(ctx context.Context, reg *format.Registry, store *tabstore.Store, storeLoc string, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: watch <table> <out>")
	}
	name, out := args[0], args[1]
	if !store.Has(name) {
		return &tabstore.UnknownTableError{Table: name}
	}

	dir := strings.TrimPrefix(strings.TrimPrefix(storeLoc, "file://"), "file:")
	if dir == "mem:" || dir == "mem://" {
		return errors.New("watch requires a file-backed store")
	}
	path := filepath.Join(dir, name+".jsonl")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close()
	}()
	if err := w.Add(path); err != nil {
		return err
	}

	export := func() error {
		table, err := store.Reload(name)
		if err != nil {
			return err
		}
		return format.ExportFile(reg, out, table.Snapshot())
	}
	if err := export(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Watching table", "table", name, "path", path, "out", out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := export(); err != nil {
					return err
				}
				slog.InfoContext(ctx, "Re-exported table", "table", name, "out", out)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching table file", "err", err)
		}
	}
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("datatap %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

func loadDotEnv(dir string) (map[string]string, error) {
	env := make(map[string]string)
	path := filepath.Join(dir, ".env")
	envContent, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}

	for line := range strings.SplitSeq(string(envContent), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])

		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}

		env[key] = val
	}
	return env, nil
}
