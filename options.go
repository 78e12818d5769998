package flecs

import (
	"github.com/oliverbestmann/flecs-go/native"
	"go.uber.org/zap"
)

type worldConfig struct {
	library  native.Library
	registry *Registry
	logger   *zap.Logger
}

// WorldOption configures a World during NewWorld.
type WorldOption func(*worldConfig)

// WithLibrary selects the native library that creates the world.
// The default is the in-process simcore library.
func WithLibrary(lib native.Library) WorldOption {
	return func(c *worldConfig) {
		if lib != nil {
			c.library = lib
		}
	}
}

// WithRegistry flushes the given registry instead of the DefaultRegistry.
func WithRegistry(r *Registry) WorldOption {
	return func(c *worldConfig) {
		if r != nil {
			c.registry = r
		}
	}
}

func WithLogger(l *zap.Logger) WorldOption {
	return func(c *worldConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
