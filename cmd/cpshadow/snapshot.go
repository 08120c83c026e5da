package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/cpshadow"
	"github.com/gogpu/cpshadow/surface"
)

const frameInterval = 16 * time.Millisecond

var errNoImage = errors.New("renderer produced no image")

type snapshotFlags struct {
	frames  int
	dpr     float64
	backend string
	out     string
	logical bool
}

func newSnapshotCmd(a *app) *cobra.Command {
	var f snapshotFlags
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the shadow headlessly and write a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.frames < 1 {
				return fmt.Errorf("--frames must be at least 1, got %d", f.frames)
			}
			img, err := a.snapshot(f)
			if err != nil {
				return err
			}
			if err := writePNG(f.out, img); err != nil {
				return err
			}
			a.log.Info("snapshot written", "path", f.out, "size", img.Bounds().Size())
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.frames, "frames", 30, "number of frames to render")
	fl.Float64Var(&f.dpr, "dpr", 0, "device pixel ratio; 0 uses the config or 1")
	fl.StringVar(&f.backend, "backend", "", "device backend; empty uses the config")
	fl.StringVarP(&f.out, "out", "o", "shadow.png", "output PNG file")
	fl.BoolVar(&f.logical, "logical", false, "downscale to logical pixels")
	return cmd
}

// snapshot renders f.frames frames offscreen and returns the last one.
func (a *app) snapshot(f snapshotFlags) (image.Image, error) {
	dpr := f.dpr
	if dpr == 0 {
		dpr = a.cfg.DPR
	}
	if dpr == 0 {
		dpr = 1
	}
	backend := f.backend
	if backend == "" {
		backend = a.cfg.Backend
	}

	container := a.cfg.ContainerRect()
	layout := surface.NewStaticLayout(a.cfg.AnchorRect(), container, dpr)
	out := surface.NewOffscreen(container, surface.WithBackend(backend))
	loop := cpshadow.NewLoop()

	r, err := cpshadow.Initialize(out, layout, loop, cpshadow.WithLogger(a.log))
	defer r.Dispose()
	if err != nil {
		return nil, err
	}
	r.SetVisible(true)
	for range f.frames {
		loop.Step(frameInterval)
	}

	var img *image.RGBA
	if f.logical {
		img = out.SnapshotLogical()
	} else {
		img = out.Snapshot()
	}
	if img == nil {
		return nil, errNoImage
	}
	st := r.Stats()
	a.log.Debug("snapshot rendered", "backend", out.Backend(), "frames", st.Frames, "elapsed", st.Elapsed)
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
