package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	sqle "github.com/dolthub/go-mysql-server"
	gmssql "github.com/dolthub/go-mysql-server/sql"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lflog/lflog/internal/batch"
	"github.com/lflog/lflog/internal/lflogerr"
	"github.com/lflog/lflog/internal/macro"
	"github.com/lflog/lflog/internal/runtime"
	"github.com/lflog/lflog/internal/scanner"
	"github.com/lflog/lflog/internal/source"
	"github.com/lflog/lflog/internal/table"
)

var version = "dev"

var opts struct {
	configPath  string
	profile     string
	pattern     string
	tableName   string
	query       string
	addFilePath bool
	addRaw      bool
	numThreads  int
}

var rootCmd = &cobra.Command{
	Use:          "lflog [input-path-or-glob]",
	Short:        "Query unstructured log files with SQL",
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
	RunE:         run,
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().Str("version", version).Msg("lflog starting")

	if err := rootCmd.Execute(); err != nil {
		var lfErr *lflogerr.Error
		if asLflogErr(err, &lfErr) {
			log.Error().Str("kind", string(lfErr.Kind)).Msg(lfErr.Error())
		} else {
			log.Error().Err(err).Msg("lflog failed")
		}
		os.Exit(1)
	}
}

func asLflogErr(err error, target **lflogerr.Error) bool {
	for err != nil {
		if le, ok := err.(*lflogerr.Error); ok {
			*target = le
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func init() {
	rootCmd.Flags().StringVar(&opts.configPath, "config", "", "config file path (default ~/.config/lflog/config.toml or $LFLOG_CONFIG)")
	rootCmd.Flags().StringVar(&opts.profile, "profile", "", "named pattern profile from the config file")
	rootCmd.Flags().StringVar(&opts.pattern, "pattern", "", "macro-augmented pattern; overrides --profile")
	rootCmd.Flags().StringVar(&opts.tableName, "table", "log", "table name the pattern is exposed under")
	rootCmd.Flags().StringVar(&opts.query, "query", "", "SQL to run non-interactively")
	rootCmd.Flags().BoolVar(&opts.addFilePath, "add-file-path", false, "append the __FILE__ metadata column")
	rootCmd.Flags().BoolVar(&opts.addRaw, "add-raw", false, "append the __RAW__ metadata column")
	rootCmd.Flags().IntVar(&opts.numThreads, "num-threads", 0, "partition/worker parallelism (default LFLOGTHREADS or 8)")
}

func run(cmd *cobra.Command, args []string) error {
	globArg := args[0]

	pattern, customKinds, err := resolvePattern()
	if err != nil {
		return err
	}

	exp, err := macro.ExpandPattern(pattern, customKinds)
	if err != nil {
		return err
	}
	sc, err := scanner.New(exp.Regex, exp.Fields)
	if err != nil {
		return err
	}

	paths, err := source.ExpandGlobs([]string{globArg})
	if err != nil {
		return lflogerr.Wrap(lflogerr.InputUnavailable, err, "expanding %q", globArg)
	}
	if len(paths) == 0 {
		return lflogerr.New(lflogerr.InputUnavailable, "%q matched no files", globArg)
	}

	cfg := runtime.Load(opts.numThreads, batch.DefaultTargetRows)

	files, err := openFilesConcurrently(paths, cfg.Threads)
	if err != nil {
		return err
	}
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	planner := source.NewPlanner(cfg.Threads)
	partitions := planner.Plan(files)

	log.Info().
		Int("files", len(files)).
		Int("partitions", len(partitions)).
		Int("fields", sc.NumFields()).
		Msg("pattern compiled, scan planned")

	tbl := table.New(opts.tableName, sc, partitions, opts.addFilePath, opts.addRaw, cfg.TargetRows)
	db := table.NewDatabase(opts.tableName, tbl)
	provider := table.NewProvider(db)

	engine := sqle.NewDefault(provider)
	ctx := gmssql.NewContext(context.Background())
	ctx.SetCurrentDatabase(opts.tableName)

	if opts.query == "" {
		return lflogerr.New(lflogerr.QueryError, "no --query given; interactive REPL is an external collaborator")
	}

	// engine.Query returns (schema, row iterator, error) on the
	// go-mysql-server version this module targets; schema is
	// reported back to the caller as needed but lflog only cares about rows.
	_, iter, err := engine.Query(ctx, opts.query)
	if err != nil {
		return lflogerr.Wrap(lflogerr.QueryError, err, "executing query")
	}
	defer func() {
		_ = iter.Close(ctx)
		scanned, matched, skipped := tbl.Stats().Snapshot()
		log.Debug().
			Int64("lines_scanned", scanned).
			Int64("lines_matched", matched).
			Int64("lines_skipped", skipped).
			Msg("query finished")
	}()

	return printRows(ctx, iter)
}

// openFilesConcurrently mmaps every path in paths, bounded to limit
// in-flight opens at once — mirrors the worker-pool fan-out
// golang.org/x/sync/errgroup drives elsewhere in the ecosystem (skeema's
// introspector, UNO-SOFT-dbcsv's paraexp) for a glob that expands to many
// files. Order is preserved regardless of which open finishes first.
func openFilesConcurrently(paths []string, limit int) ([]*source.File, error) {
	files := make([]*source.File, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			f, err := source.Open(p)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, f := range files {
			if f != nil {
				_ = f.Close()
			}
		}
		return nil, err
	}
	return files, nil
}

func printRows(ctx *gmssql.Context, iter gmssql.RowIter) error {
	for {
		row, err := iter.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}

// resolvePattern decides the effective pattern: --pattern overrides
// --profile (spec §6), and loads the config file only when either a
// profile or custom macros might be needed.
func resolvePattern() (string, map[string]macro.CustomKind, error) {
	path := runtime.ConfigPath(opts.configPath)
	fc, err := loadFileConfig(path)
	if err != nil {
		if opts.pattern != "" {
			return opts.pattern, nil, nil
		}
		return "", nil, err
	}

	if opts.pattern != "" {
		return opts.pattern, fc.CustomKinds(), nil
	}

	profile, err := fc.ResolveProfile(opts.profile)
	if err != nil {
		return "", nil, err
	}
	return profile.Pattern, fc.CustomKinds(), nil
}

func loadFileConfig(path string) (*runtime.FileConfig, error) {
	var fc runtime.FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, lflogerr.Wrap(lflogerr.InputUnavailable, err, "reading config %q", path)
	}
	return &fc, nil
}
