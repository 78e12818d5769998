// Package wasmcore runs a WebAssembly build of the native ECS core with
// wazero. The module must be built from the flecs sources together with
// c-src/shim.c as a WASI reactor.
//
// Every world is a separate instance of the module, so worlds never share
// guest memory.
package wasmcore

import (
	"context"
	"fmt"
	"sync"

	"github.com/oliverbestmann/flecs-go/native"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

const hostModule = "flecs_host"

// requiredExports lists the functions the module must export.
var requiredExports = []string{
	"fb_malloc", "fb_free", "fb_last_error",
	"fb_init", "fb_fini", "fb_quit", "fb_should_quit", "fb_progress", "fb_primitive",
	"fb_new", "fb_delete", "fb_add_id", "fb_remove_id", "fb_clear", "fb_enable",
	"fb_enable_id", "fb_is_enabled_id", "fb_is_valid", "fb_is_alive", "fb_exists",
	"fb_get_parent", "fb_count_id",
	"fb_children", "fb_children_next", "fb_iter_count", "fb_iter_entities", "fb_children_fini",
	"fb_id_size", "fb_get_id", "fb_get_mut_id", "fb_ensure_id", "fb_modified_id",
	"fb_ensure_modified_id", "fb_has_id", "fb_owns_id", "fb_type_count", "fb_type_ids",
	"fb_get_name", "fb_set_name", "fb_get_symbol", "fb_set_symbol", "fb_set_alias",
	"fb_lookup", "fb_lookup_child", "fb_lookup_symbol",
	"fb_type_begin", "fb_type_member", "fb_type_constant", "fb_type_struct", "fb_type_enum",
	"fb_script_init_code", "fb_script_update", "fb_script_clear", "fb_script_parse",
	"fb_script_vars_new", "fb_script_vars_free", "fb_script_var_bool", "fb_script_var_number",
	"fb_script_var_string", "fb_script_eval", "fb_script_free",
	"fb_query_new", "fb_query_fini", "fb_query_var_count", "fb_query_find_var",
	"fb_query_var_name", "fb_query_var_is_entity", "fb_query_str", "fb_query_bind", "fb_query_exec",
	"fb_world_to_json", "fb_entity_to_json", "fb_entity_str",
	"fb_defer_begin", "fb_defer_end", "fb_defer_suspend", "fb_defer_resume", "fb_is_deferred",
}

type config struct {
	memoryLimitPages uint32
	logger           *zap.Logger
	name             string
}

type Option func(*config)

// WithMemoryLimitPages limits the memory of every world to the given
// number of 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *config) {
		c.memoryLimitPages = pages
	}
}

// WithLogger receives the log output of the native core.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithName sets the name reported by Library.Name.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// Library is a compiled WebAssembly build of the native core.
type Library struct {
	ctx      context.Context
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	config   config

	primitivesOnce sync.Once
	primitives     map[string]native.Id
	primitivesErr  error
}

var _ native.Library = (*Library)(nil)

// Load compiles the module and verifies that it exports everything the
// binding needs. The context is used for all calls into the module.
func Load(ctx context.Context, wasm []byte, opts ...Option) (*Library, error) {
	cfg := config{logger: Logger(), name: "wasmcore"}
	for _, opt := range opts {
		opt(&cfg)
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.memoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	lib, err := load(ctx, runtime, wasm, cfg)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	return lib, nil
}

func load(ctx context.Context, runtime wazero.Runtime, wasm []byte, cfg config) (*Library, error) {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}

	if err := instantiateHost(ctx, runtime, cfg.logger); err != nil {
		return nil, fmt.Errorf("instantiate host module: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}

	exported := compiled.ExportedFunctions()

	var missing []string
	for _, name := range requiredExports {
		if _, ok := exported[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("module does not export %v", missing)
	}

	cfg.logger.Debug("module compiled",
		zap.Int("exports", len(exported)),
		zap.Uint32("memory_limit_pages", cfg.memoryLimitPages),
	)

	return &Library{ctx: ctx, runtime: runtime, compiled: compiled, config: cfg}, nil
}

// instantiateHost provides the functions imported by the shim.
func instantiateHost(ctx context.Context, runtime wazero.Runtime, logger *zap.Logger) error {
	_, err := runtime.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			level := api.DecodeI32(stack[0])
			ptr, size := api.DecodeU32(stack[1]), api.DecodeU32(stack[2])

			msg, ok := mod.Memory().Read(ptr, size)
			if !ok {
				return
			}

			logNative(logger, level, string(msg))
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export("log").
		Instantiate(ctx)

	return err
}

func logNative(logger *zap.Logger, level int32, msg string) {
	switch {
	case level <= -3:
		logger.Error(msg, zap.Int32("level", level))
	case level == -2:
		logger.Warn(msg)
	case level == -1:
		logger.Info(msg)
	default:
		logger.Debug(msg, zap.Int32("level", level))
	}
}

func (l *Library) Name() string {
	return l.config.name
}

// Init instantiates the module and creates a world in it.
func (l *Library) Init() (native.Core, error) {
	mod, err := l.runtime.InstantiateModule(l.ctx, l.compiled,
		wazero.NewModuleConfig().
			WithName("").
			WithStartFunctions("_initialize"),
	)

	if err != nil {
		return nil, fmt.Errorf("instantiate module: %w", err)
	}

	c := newCore(l, mod)

	world, err := c.tryCall("fb_init")
	if err != nil || world == 0 {
		_ = mod.Close(l.ctx)
		return nil, fmt.Errorf("init world: %w", orNoWorld(err))
	}

	c.world = world
	return c, nil
}

func orNoWorld(err error) error {
	if err != nil {
		return err
	}

	return fmt.Errorf("fb_init returned no world")
}

// Primitives creates a temporary world to read the ids of the primitive
// types. The result is cached.
func (l *Library) Primitives() (map[string]native.Id, error) {
	l.primitivesOnce.Do(func() {
		l.primitives, l.primitivesErr = l.loadPrimitives()
	})

	return l.primitives, l.primitivesErr
}

func (l *Library) loadPrimitives() (map[string]native.Id, error) {
	core, err := l.Init()
	if err != nil {
		return nil, err
	}

	c := core.(*Core)
	defer c.Fini()

	names := []string{
		"bool", "char", "byte", "u8", "u16", "u32", "u64", "uptr",
		"i8", "i16", "i32", "i64", "iptr", "f32", "f64", "string", "entity", "id",
	}

	ids := make(map[string]native.Id, len(names))
	for _, name := range names {
		ids[name] = c.withString(native.ToCString(name), func(ptr uint64) uint64 {
			return c.call("fb_primitive", ptr)
		})
	}

	return ids, nil
}

// Close releases the runtime and all worlds created by the library.
func (l *Library) Close() error {
	return l.runtime.Close(l.ctx)
}
