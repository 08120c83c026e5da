package main

import (
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/gogpu/cpshadow/integration/ebitenhost"
)

func newRunCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a window with the command palette (Ctrl+P)",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.run(watch)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the config file when it changes")
	return cmd
}

func (a *app) run(watch bool) error {
	h, err := ebitenhost.New(ebitenhost.Config{
		Width:   a.cfg.Window.Width,
		Height:  a.cfg.Window.Height,
		Backend: a.cfg.Backend,
		Logger:  a.log,
	})
	if err != nil {
		return err
	}
	defer h.Close()
	if a.cfg.DPR > 0 {
		h.SetDevicePixelRatio(a.cfg.DPR)
	}

	if watch {
		w, err := watchConfig(a.configPath, a.log, func(cfg Config) {
			// Window and renderer state belong to the game goroutine.
			h.Post(func(h *ebitenhost.Host) {
				a.apply(cfg)
				ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
				h.SetDevicePixelRatio(cfg.DPR)
			})
		})
		if err != nil {
			return err
		}
		defer w.Close()
	}

	ebiten.SetWindowSize(a.cfg.Window.Width, a.cfg.Window.Height)
	ebiten.SetWindowTitle("cpshadow")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(h); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
