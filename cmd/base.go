// Package cmd contains the noderecon command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/noderecon/app"
	"github.com/spacemeshos/noderecon/config"
	"github.com/spacemeshos/noderecon/log"
	"github.com/spacemeshos/noderecon/metrics"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Branch is the git branch used to build the App. Designed to be overwritten by make.
	Branch string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

const metricsShutdownTimeout = 5 * time.Second

// loadConfig reads the configuration file into cfg. Flags set on the command
// line take precedence over the file.
func loadConfig(flagSet *pflag.FlagSet, cfg *config.Config) error {
	changed := make(map[string]string)
	flagSet.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	vip := viper.New()
	if err := config.LoadConfig(cfg.ConfigFile, vip); err != nil {
		return err
	}
	if err := config.Decode(vip, cfg); err != nil {
		return err
	}
	for name, value := range changed {
		if err := flagSet.Set(name, value); err != nil {
			return fmt.Errorf("reapply flag %s: %w", name, err)
		}
	}
	return nil
}

// withApp prepares the application for a single command and releases it
// once fn returns.
func withApp(c *cobra.Command, cfg *config.Config, fn func(context.Context, *app.App) error) (err error) {
	if err := loadConfig(c.Flags(), cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Logging.Encoder == config.JSONLogEncoder {
		log.JSONLog(true)
	}
	// child loggers can only lower the level of the root logger
	logger := log.NewWithLevel("", zap.NewAtomicLevelAt(zapcore.DebugLevel))
	defer logger.Sync()

	a := app.New(
		app.WithConfig(cfg),
		app.WithLog(logger),
		app.WithOutput(c.OutOrStdout()),
	)
	if err := a.Lock(); err != nil {
		return err
	}
	defer a.Unlock()
	if err := a.Initialize(); err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.CollectMetrics {
		srv, err := metrics.StartServer(logger.Named("metrics"), cfg.MetricsAddress)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				logger.Warn("failed to stop metrics server", zap.Error(err))
			}
		}()
	}
	return fn(ctx, a)
}

// Signals that interrupt a running command.
var Signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
