// Package main provides the CLI entry point for grove.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/ndisidore/grove/internal/termlog"
	"github.com/ndisidore/grove/pkg/composer"
	"github.com/ndisidore/grove/pkg/entity"
	"github.com/ndisidore/grove/pkg/parser"
	"github.com/ndisidore/grove/pkg/slogctx"
	"github.com/ndisidore/grove/pkg/tree"
	"github.com/ndisidore/grove/pkg/xpath"
)

// errDocumentsInvalid indicates at least one input failed validation.
var errDocumentsInvalid = errors.New("documents failed validation")

// errBadEntityDef indicates a malformed --entity name=value definition.
var errBadEntityDef = errors.New("entity definition must be name=value")

// app bundles dependencies so CLI action handlers become testable methods.
// resolver and save are the injection points for tests; parse and reparse
// are derived from the resolver and flags during setup.
type app struct {
	resolver parser.Resolver
	save     func(path string, doc *tree.Document, opts composer.Options) error
	stdout   io.Writer
	isTTY    bool

	parse    func(path string) *tree.Document
	reparse  func(doc *tree.Document, path string)
	format   string // resolved output format (pretty, json, text)
	codec    *entity.Codec
	compress bool
	indent   string
}

func main() {
	a := &app{
		save:   composer.WriteFileAtomic,
		stdout: os.Stdout,
		isTTY:  term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("CI") == "",
	}

	if err := newRootCommand(a).Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

// newRootCommand assembles the CLI command tree around an app.
func newRootCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "grove",
		Usage: "parse, query, edit, and rewrite XML documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Usage:   "output format (auto, pretty, json, text)",
				Value:   "auto",
				Sources: cli.EnvVars("GROVE_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("GROVE_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "config file (default: .grove.yaml in the working directory)",
				Sources: cli.EnvVars("GROVE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "merge-attributes",
				Usage: "fold attributes into the child mapping instead of keeping them separate",
			},
			&cli.StringSliceFlag{
				Name:  "entity",
				Usage: "additional entity definition as name=value (repeatable)",
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check that XML files are well formed",
				ArgsUsage: "<file>...",
				Flags:     []cli.Flag{parallelismFlag()},
				Action:    a.validateAction,
			},
			{
				Name:      "format",
				Usage:     "re-serialize XML files in canonical order",
				ArgsUsage: "<file>...",
				Flags: append(renderFlags(),
					&cli.BoolFlag{
						Name:    "write",
						Aliases: []string{"w"},
						Usage:   "rewrite files in place instead of printing to stdout",
					},
					parallelismFlag(),
				),
				Action: a.formatAction,
			},
			{
				Name:      "get",
				Usage:     "look up a path and print its value",
				ArgsUsage: "<file> <path>",
				Flags:     renderFlags(),
				Action:    a.getAction,
			},
			{
				Name:      "set",
				Usage:     "assign a scalar value at a path and rewrite the file",
				ArgsUsage: "<file> <path> <value>",
				Flags: append(renderFlags(),
					&cli.BoolFlag{
						Name:  "create",
						Usage: "create missing intermediate elements (plain name paths only)",
					},
				),
				Action: a.setAction,
			},
			{
				Name:      "flatten",
				Usage:     "print every scalar leaf as a path=value line",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refs",
						Usage: "include an entry for every structural branch",
					},
				},
				Action: a.flattenAction,
			},
			{
				Name:      "watch",
				Usage:     "re-validate files whenever they change on disk",
				ArgsUsage: "<file>...",
				Action:    a.watchAction,
			},
		},
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		},
	}
}

// setup resolves config and logging, then builds the parser the actions
// share. Flag values win over config file values, which win over defaults.
func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	v := viper.New()
	v.SetDefault("indent", "  ")
	v.SetDefault("compress", false)
	if cfg := cmd.String("config"); cfg != "" {
		v.SetConfigFile(cfg)
		if err := v.ReadInConfig(); err != nil {
			return ctx, fmt.Errorf("reading config %s: %w", cfg, err)
		}
	} else {
		v.SetConfigName(".grove")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return ctx, fmt.Errorf("reading config: %w", err)
		}
	}
	a.indent = v.GetString("indent")
	a.compress = v.GetBool("compress")

	a.format = cmd.String("format")
	if a.format == "auto" {
		if a.isTTY {
			a.format = "pretty"
		} else {
			a.format = "text"
		}
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
		return ctx, fmt.Errorf("invalid log level %q: %w", cmd.String("log-level"), err)
	}
	logger, err := termlog.NewLogger(os.Stderr, a.format, level)
	if err != nil {
		return ctx, fmt.Errorf("initializing logger: %w", err)
	}
	slog.SetDefault(logger)

	a.codec = entity.New()
	for _, def := range cmd.StringSlice("entity") {
		name, value, ok := strings.Cut(def, "=")
		if !ok || name == "" {
			return ctx, fmt.Errorf("%w: %q", errBadEntityDef, def)
		}
		a.codec.Define(name, value)
	}

	resolver := a.resolver
	if resolver == nil {
		resolver = &parser.FileResolver{}
	}
	p := &parser.Parser{
		Resolver:        resolver,
		MergeAttributes: cmd.Bool("merge-attributes"),
		Entities:        a.codec,
	}
	a.parse = p.ParseFile
	a.reparse = p.ReloadFile

	return slogctx.NewContext(ctx, logger), nil
}

// parallelismFlag is shared by commands that fan out over multiple files.
func parallelismFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "parallelism",
		Aliases: []string{"j"},
		Usage:   "max files processed concurrently (0 = unlimited)",
		Value:   0,
	}
}

// renderFlags are shared by commands that serialize documents.
func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "compress",
			Usage: "emit documents on one line without indentation",
		},
		&cli.StringFlag{
			Name:  "indent",
			Usage: "indent unit for nested elements",
		},
	}
}

// renderOptions folds config defaults and per-command flags into composer
// options.
func (a *app) renderOptions(cmd *cli.Command) composer.Options {
	opts := composer.Options{
		Compress: a.compress,
		Indent:   a.indent,
		Entities: a.codec,
	}
	if cmd.IsSet("compress") {
		opts.Compress = cmd.Bool("compress")
	}
	if cmd.IsSet("indent") {
		opts.Indent = cmd.String("indent")
	}
	return opts
}

// loadValid parses path and fails when the document accumulated any errors.
func (a *app) loadValid(path string) (*tree.Document, error) {
	doc := a.parse(path)
	if doc.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, doc.Err())
	}
	return doc, nil
}

// forEachFile runs fn over every file, bounded by --parallelism, and
// collects the paths fn rejected.
func forEachFile(ctx context.Context, cmd *cli.Command, files []string, fn func(ctx context.Context, path string) bool) []string {
	g, ctx := errgroup.WithContext(ctx)
	if j := int(cmd.Int("parallelism")); j > 0 {
		g.SetLimit(j)
	}
	var mu sync.Mutex
	var failed []string
	for _, path := range files {
		g.Go(func() error {
			if !fn(ctx, path) {
				mu.Lock()
				failed = append(failed, path)
				mu.Unlock()
			}
			return nil
		})
	}
	// Workers never return errors; failures are collected by path.
	_ = g.Wait()
	slices.Sort(failed)
	return failed
}

func (a *app) validateAction(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("usage: grove validate <file>...")
	}

	failed := forEachFile(ctx, cmd, files, func(ctx context.Context, path string) bool {
		log := slogctx.FromContext(ctx)
		doc := a.parse(path)
		for _, perr := range doc.Errors {
			log.LogAttrs(ctx, slog.LevelError, perr.Error(), slog.String("file", path))
		}
		if doc.HasErrors() {
			return false
		}
		log.LogAttrs(ctx, slog.LevelInfo, "well-formed", slog.String("file", path))
		return true
	})
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", errDocumentsInvalid, strings.Join(failed, ", "))
	}
	return nil
}

func (a *app) formatAction(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("usage: grove format <file>...")
	}
	opts := a.renderOptions(cmd)

	if !cmd.Bool("write") {
		for _, path := range files {
			doc, err := a.loadValid(path)
			if err != nil {
				return err
			}
			if err := composer.WriteTo(a.stdout, doc, opts); err != nil {
				return err
			}
		}
		return nil
	}

	failed := forEachFile(ctx, cmd, files, func(ctx context.Context, path string) bool {
		log := slogctx.FromContext(ctx)
		doc, err := a.loadValid(path)
		if err == nil {
			err = a.save(path, doc, opts)
		}
		if err != nil {
			log.LogAttrs(ctx, slog.LevelError, err.Error(), slog.String("file", path))
			return false
		}
		log.LogAttrs(ctx, slog.LevelInfo, "formatted", slog.String("file", path))
		return true
	})
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", errDocumentsInvalid, strings.Join(failed, ", "))
	}
	return nil
}

func (a *app) getAction(_ context.Context, cmd *cli.Command) error {
	path, query := cmd.Args().Get(0), cmd.Args().Get(1)
	if path == "" || query == "" {
		return errors.New("usage: grove get <file> <path>")
	}
	doc, err := a.loadValid(path)
	if err != nil {
		return err
	}
	res, err := xpath.Lookup(doc, query)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", query, err)
	}
	opts := a.renderOptions(cmd)
	switch res := res.(type) {
	case string:
		_, _ = fmt.Fprintln(a.stdout, res)
	case *tree.Node:
		_, _ = io.WriteString(a.stdout, composer.Fragment(fragmentName(query), res, opts))
	}
	return nil
}

// fragmentName derives a tag name for rendering a structural lookup result:
// the last path segment with any bracket predicate stripped.
func fragmentName(query string) string {
	seg := query
	if i := strings.LastIndexByte(seg, '/'); i >= 0 {
		seg = seg[i+1:]
	}
	if i := strings.IndexByte(seg, '['); i >= 0 {
		seg = seg[:i]
	}
	return seg
}

func (a *app) setAction(ctx context.Context, cmd *cli.Command) error {
	path, query, value := cmd.Args().Get(0), cmd.Args().Get(1), cmd.Args().Get(2)
	if path == "" || query == "" || cmd.Args().Len() < 3 {
		return errors.New("usage: grove set <file> <path> <value>")
	}
	doc, err := a.loadValid(path)
	if err != nil {
		return err
	}

	if cmd.Bool("create") {
		err = xpath.SetWithCreate(doc, query, value)
	} else {
		err = xpath.Set(doc, query, value)
	}
	if err != nil {
		return fmt.Errorf("setting %s: %w", query, err)
	}

	if err := a.save(path, doc, a.renderOptions(cmd)); err != nil {
		return err
	}
	slogctx.FromContext(ctx).LogAttrs(ctx, slog.LevelInfo, "updated", slog.String("file", path))
	return nil
}

func (a *app) flattenAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: grove flatten <file>")
	}
	doc, err := a.loadValid(path)
	if err != nil {
		return err
	}
	flat := xpath.Flatten(doc, cmd.Bool("refs"))
	for _, key := range slices.Sorted(maps.Keys(flat)) {
		switch v := flat[key].(type) {
		case *tree.Node:
			_, _ = fmt.Fprintf(a.stdout, "%s = (%s)\n", key, v.Kind())
		default:
			_, _ = fmt.Fprintf(a.stdout, "%s = %v\n", key, v)
		}
	}
	return nil
}

func (a *app) watchAction(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("usage: grove watch <file>...")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	log := slogctx.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	docs := make(map[string]*tree.Document, len(files))
	check := func(path string) {
		doc, ok := docs[path]
		if !ok {
			doc = &tree.Document{}
			docs[path] = doc
		}
		a.reparse(doc, path)
		for _, perr := range doc.Errors {
			log.LogAttrs(ctx, slog.LevelError, perr.Error(), slog.String("file", path))
		}
		if !doc.HasErrors() {
			log.LogAttrs(ctx, slog.LevelInfo, "well-formed", slog.String("file", path))
		}
	}

	watched, dirs := watchTargets(files)
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	for _, path := range files {
		check(filepath.Clean(path))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(ev.Name)
			if _, ok := watched[name]; !ok {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				check(name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.LogAttrs(ctx, slog.LevelWarn, "watch error", slog.String("error", err.Error()))
		}
	}
}

// watchTargets maps the requested files to their containing directories.
// The directories are watched rather than the files themselves: a
// rename-into-place save (the atomic writer, most editors) replaces the
// inode a file-path watch is pinned to, after which that watch goes silent.
// A directory watch keeps reporting the replaced path as a Create event.
func watchTargets(files []string) (watched map[string]struct{}, dirs []string) {
	watched = make(map[string]struct{}, len(files))
	seen := make(map[string]struct{}, len(files))
	for _, path := range files {
		path = filepath.Clean(path)
		watched[path] = struct{}{}
		dir := filepath.Dir(path)
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}
	return watched, dirs
}
