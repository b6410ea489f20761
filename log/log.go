// Package log provides console and json logging for noderecon components
// on top of zap.
package log

import (
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// where logs go by default.
var logWriter io.Writer = os.Stdout

var jsonLog atomic.Bool

// JSONLog turns JSON format on or off for loggers created afterwards.
func JSONLog(b bool) {
	jsonLog.Store(b)
}

func encoder() zapcore.Encoder {
	if jsonLog.Load() {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	return zapcore.NewConsoleEncoder(cfg)
}

// NewNop creates silent logger.
func NewNop() *zap.Logger {
	return zap.NewNop()
}

// NewWithLevel creates a logger with a fixed level and with a set of (optional) hooks.
func NewWithLevel(module string, level zap.AtomicLevel, hooks ...func(zapcore.Entry) error) *zap.Logger {
	return newWithWriter(logWriter, module, level, hooks...)
}

func newWithWriter(w io.Writer, module string, level zap.AtomicLevel, hooks ...func(zapcore.Entry) error) *zap.Logger {
	core := zapcore.NewCore(encoder(), zapcore.AddSync(w), level)
	return zap.New(zapcore.RegisterHooks(core, hooks...)).Named(module)
}

// ParseLevel parses textual level, an empty string is treated as info.
func ParseLevel(text string) (zap.AtomicLevel, error) {
	if text == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}
	return zap.ParseAtomicLevel(text)
}

// Named returns a child logger with its own level. Messages below level are
// dropped even if the parent would accept them.
func Named(logger *zap.Logger, name string, level zap.AtomicLevel) *zap.Logger {
	return logger.Named(name).WithOptions(addDynamicLevel(level))
}

func addDynamicLevel(level zap.AtomicLevel) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &coreWithLevel{
			Core: core,
			lvl:  level,
		}
	})
}

type coreWithLevel struct {
	zapcore.Core
	lvl zap.AtomicLevel
}

func (c *coreWithLevel) Enabled(level zapcore.Level) bool {
	return c.lvl.Enabled(level)
}

func (c *coreWithLevel) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.lvl.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *coreWithLevel) With(fields []zapcore.Field) zapcore.Core {
	return &coreWithLevel{Core: c.Core.With(fields), lvl: c.lvl}
}
