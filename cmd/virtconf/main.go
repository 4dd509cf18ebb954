package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/virtconf/virtconf/cmd/virtconf/config"
	"github.com/virtconf/virtconf/lib/domain"
	"github.com/virtconf/virtconf/lib/logger"
	"github.com/virtconf/virtconf/lib/paths"
	"github.com/virtconf/virtconf/lib/store"
)

const usage = `usage: virtconf <command> [args]

commands:
  validate <file>...        parse domain XML files and report errors
  format [-inactive] [-secure] [-migratable] <file>
                            reparse and pretty-print a domain XML file
  abi-diff <src> <dst>      check two domain XML files for ABI compatibility
  define <file>             store a domain definition
  undefine <name>           remove a stored definition
  autostart [-disable] <name>
                            toggle autostart for a stored definition
  list                      list stored definitions
`

func main() {
	if err := run(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)
	ctx := logger.AddToContext(context.Background(), log)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	st := store.New(paths.New(cfg.BaseDir))
	opts := &domain.ParseOptions{WideSCSIBus: cfg.WideSCSIBus}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "validate":
		return cmdValidate(ctx, opts, args)
	case "format":
		return cmdFormat(opts, args)
	case "abi-diff":
		return cmdABIDiff(opts, args)
	case "define":
		return cmdDefine(ctx, st, opts, args)
	case "undefine":
		return cmdUndefine(ctx, st, args)
	case "autostart":
		return cmdAutostart(ctx, st, args)
	case "list":
		return cmdList(ctx, st)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func parseFile(path string, opts *domain.ParseOptions) (*domain.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := domain.Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

func cmdValidate(ctx context.Context, opts *domain.ParseOptions, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("validate: no files given")
	}
	log := logger.FromContext(ctx)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, file := range files {
		file := file
		g.Go(func() error {
			def, err := parseFile(file, opts)
			if err != nil {
				return err
			}
			log.Info("valid", "file", file, "domain", def.Name, "uuid", def.UUID)
			return nil
		})
	}
	return g.Wait()
}

func cmdFormat(opts *domain.ParseOptions, args []string) error {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	inactive := fs.Bool("inactive", false, "emit the persistent configuration")
	secure := fs.Bool("secure", false, "keep secrets in the output")
	migratable := fs.Bool("migratable", false, "emit a migratable configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("format: expected one file")
	}
	def, err := parseFile(fs.Arg(0), opts)
	if err != nil {
		return err
	}
	var flags domain.FormatFlags
	if *inactive {
		flags |= domain.FormatInactive
	}
	if *secure {
		flags |= domain.FormatSecure
	}
	if *migratable {
		flags |= domain.FormatMigratable
	}
	out, err := domain.Format(def, flags)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func cmdABIDiff(opts *domain.ParseOptions, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("abi-diff: expected source and target files")
	}
	src, err := parseFile(args[0], opts)
	if err != nil {
		return err
	}
	dst, err := parseFile(args[1], opts)
	if err != nil {
		return err
	}
	if err := domain.CheckABIStability(src, dst); err != nil {
		return err
	}
	fmt.Println("compatible")
	return nil
}

func cmdDefine(ctx context.Context, st *store.Store, opts *domain.ParseOptions, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("define: expected one file")
	}
	inactiveOpts := *opts
	inactiveOpts.Flags |= domain.ParseInactive
	def, err := parseFile(args[0], &inactiveOpts)
	if err != nil {
		return err
	}
	if err := st.SaveConfig(ctx, def); err != nil {
		return err
	}
	fmt.Printf("defined %s (%s)\n", def.Name, def.UUID)
	return nil
}

func cmdUndefine(ctx context.Context, st *store.Store, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("undefine: expected one name")
	}
	if err := st.DeleteConfig(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("undefined %s\n", args[0])
	return nil
}

func cmdAutostart(ctx context.Context, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("autostart", flag.ContinueOnError)
	disable := fs.Bool("disable", false, "remove the autostart link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("autostart: expected one name")
	}
	return st.SetAutostart(ctx, fs.Arg(0), !*disable)
}

func cmdList(ctx context.Context, st *store.Store) error {
	names, err := st.ListConfigs(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		marker := " "
		if st.Autostart(name) {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	return nil
}
