// Command cpshadow renders the command palette shadow in a window or to
// a PNG file.
//
// Usage:
//
//	cpshadow run [--config cpshadow.yaml] [--watch]
//	cpshadow snapshot --out shadow.png [--frames 30] [--dpr 2] [--logical]
//	cpshadow backends
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/cpshadow"
	_ "github.com/gogpu/cpshadow/backend/software"
	_ "github.com/gogpu/cpshadow/backend/wgpu"
)

// app holds the state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg   Config
	level *slog.LevelVar
	log   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:           "cpshadow",
		Short:         "Procedural drop shadow for a command palette",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "cpshadow.yaml", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")

	root.AddCommand(newRunCmd(a), newSnapshotCmd(a), newBackendsCmd(a))
	return root
}

// setup loads the configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	lvl, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.level.Set(lvl)
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: a.level}))
	cpshadow.SetLogger(a.log)
	return nil
}

// apply installs a reloaded configuration. Flags given on the command
// line keep precedence.
func (a *app) apply(cfg Config) {
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if lvl, err := cfg.Level(); err == nil {
		a.level.Set(lvl)
	}
	a.cfg = cfg
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cpshadow:", err)
		os.Exit(1)
	}
}
