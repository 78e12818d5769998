// Command flecsh loads type definitions and scripts into a world, runs
// queries against it and prints the results as JSON.
//
//	flecsh -types shapes.yaml -script scene.flecs -query 'Position, (ChildOf, $parent)'
//	flecsh -config flecsh.toml -i
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	flecs "github.com/oliverbestmann/flecs-go"
	"github.com/oliverbestmann/flecs-go/luahost"
	"github.com/oliverbestmann/flecs-go/native"
	"github.com/oliverbestmann/flecs-go/simcore"
	"github.com/oliverbestmann/flecs-go/wasmcore"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	config      string
	backend     string
	wasm        string
	types       stringList
	scripts     stringList
	lua         stringList
	vars        scriptVars
	queries     stringList
	table       bool
	matches     bool
	inherited   bool
	dump        bool
	interactive bool
	profile     string
}

func main() {
	opts := options{vars: scriptVars{}}

	flag.StringVar(&opts.config, "config", "", "Path to a toml config file")
	flag.StringVar(&opts.backend, "backend", "", "Native core to use: sim or wasm")
	flag.StringVar(&opts.wasm, "wasm", "", "Path to the wasm build of the core (implies -backend wasm)")
	flag.Var(&opts.types, "types", "Yaml file with type definitions (repeatable)")
	flag.Var(&opts.scripts, "script", "Script file to evaluate (repeatable)")
	flag.Var(&opts.lua, "lua", "Lua file to run (repeatable)")
	flag.Var(opts.vars, "var", "Script variable as name=value (repeatable)")
	flag.Var(&opts.queries, "query", "Query to run (repeatable)")
	flag.BoolVar(&opts.table, "table", false, "Return one query result per table")
	flag.BoolVar(&opts.matches, "matches", false, "Include match details in query results")
	flag.BoolVar(&opts.inherited, "inherited", false, "Match inherited components")
	flag.BoolVar(&opts.dump, "dump", false, "Print all entities of the world")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive inspector")
	flag.StringVar(&opts.profile, "profile", "", "Write a cpu or mem profile")
	flag.Parse()

	switch opts.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		fmt.Fprintf(os.Stderr, "fatal: unknown profile %q\n", opts.profile)
		os.Exit(2)
	}

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer) error {
	cfg := defaults()
	if opts.config != "" {
		loaded, err := Load(opts.config)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		cfg = loaded
	}

	opts.apply(cfg)

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	defer func() { _ = log.Sync() }()

	flecs.SetLogger(log.Named("flecs"))

	lib, closeLib, err := openLibrary(cfg.Backend, log)
	if err != nil {
		return err
	}

	defer closeLib()

	registry := flecs.NewRegistry()
	for _, path := range cfg.Types {
		if err := loadTypes(registry, path); err != nil {
			return err
		}

		log.Debug("types loaded", zap.String("file", path))
	}

	world, err := flecs.NewWorld(
		flecs.WithLibrary(lib),
		flecs.WithRegistry(registry),
		flecs.WithLogger(log.Named("world")),
	)

	if err != nil {
		return fmt.Errorf("create world: %w", err)
	}

	defer world.Close()

	for _, script := range cfg.Scripts {
		if err := runScript(world, script); err != nil {
			return err
		}

		log.Debug("script evaluated", zap.String("file", script.Path))
	}

	if len(cfg.Lua) > 0 {
		host := luahost.New(world, luahost.WithLogger(log.Named("lua")))
		defer host.Close()

		for _, path := range cfg.Lua {
			if err := host.DoFile(path); err != nil {
				return err
			}
		}
	}

	execOpts := flecs.ExecOptions{
		Table:     opts.table,
		Matches:   opts.matches,
		Inherited: opts.inherited,
	}

	for _, expr := range opts.queries {
		if err := printQuery(out, world, expr, execOpts); err != nil {
			return err
		}
	}

	if opts.dump {
		entities, err := world.ToJSON()
		if err != nil {
			return err
		}

		if err := printJSON(out, entities); err != nil {
			return err
		}
	}

	if opts.interactive {
		return runInteractive(world, execOpts)
	}

	return nil
}

// apply overrides the config with the values given on the command line.
func (opts options) apply(cfg *Config) {
	if opts.backend != "" {
		cfg.Backend.Kind = opts.backend
	}

	if opts.wasm != "" {
		cfg.Backend.Kind = "wasm"
		cfg.Backend.Wasm = opts.wasm
	}

	cfg.Types = append(cfg.Types, opts.types...)
	cfg.Lua = append(cfg.Lua, opts.lua...)

	for _, path := range opts.scripts {
		cfg.Scripts = append(cfg.Scripts, ScriptConfig{Path: path, Vars: opts.vars})
	}
}

func openLibrary(cfg BackendConfig, log *zap.Logger) (native.Library, func(), error) {
	switch cfg.Kind {
	case "sim", "":
		return simcore.NewLibrary(simcore.WithChildBatchSize(cfg.ChildBatchSize)), func() {}, nil

	case "wasm":
		wasm, err := os.ReadFile(cfg.Wasm)
		if err != nil {
			return nil, nil, fmt.Errorf("read wasm module: %w", err)
		}

		lib, err := wasmcore.Load(context.Background(), wasm,
			wasmcore.WithMemoryLimitPages(cfg.MemoryLimitPages),
			wasmcore.WithLogger(log.Named("core")),
			wasmcore.WithName(cfg.Wasm),
		)

		if err != nil {
			return nil, nil, fmt.Errorf("load wasm module %s: %w", cfg.Wasm, err)
		}

		return lib, func() { _ = lib.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Kind)
	}
}

func loadTypes(registry *flecs.Registry, path string) error {
	fp, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open types: %w", err)
	}

	defer fp.Close()

	if err := registry.LoadDefinitions(fp); err != nil {
		return fmt.Errorf("load types %s: %w", path, err)
	}

	return nil
}

func runScript(world *flecs.World, cfg ScriptConfig) error {
	code, err := os.ReadFile(cfg.Path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	script, err := world.ParseNamed(cfg.Path, string(code))
	if err != nil {
		return err
	}

	defer script.Close()

	return script.Eval(cfg.Vars)
}

func printQuery(out io.Writer, world *flecs.World, expr string, opts flecs.ExecOptions) error {
	q, err := world.Query(expr)
	if err != nil {
		return err
	}

	defer q.Close()

	rows, err := q.Exec(opts)
	if err != nil {
		return err
	}

	return printJSON(out, rows)
}

func printJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.WarnLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// scriptVars collects -var flags. Values are parsed as number or bool
// where possible.
type scriptVars map[string]any

func (v scriptVars) String() string {
	var parts []string
	for name, value := range v {
		parts = append(parts, fmt.Sprintf("%s=%v", name, value))
	}

	return strings.Join(parts, ",")
}

func (v scriptVars) Set(value string) error {
	name, raw, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", value)
	}

	if number, err := strconv.ParseFloat(raw, 64); err == nil {
		v[name] = number
	} else if b, err := strconv.ParseBool(raw); err == nil {
		v[name] = b
	} else {
		v[name] = raw
	}

	return nil
}
