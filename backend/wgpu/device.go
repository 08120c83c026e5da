//go:build !nogpu

// Package wgpu implements a cpshadow.Device on gogpu/wgpu.
//
// The device renders the shadow with a vertex+fragment render pipeline
// into an offscreen texture and reads the result back for presentation.
// It opens its own Vulkan device, or shares one with a host that exposes
// HAL types (HalDevice() any and HalQueue() any).
//
// Importing the package registers the "wgpu" backend:
//
//	import _ "github.com/gogpu/cpshadow/backend/wgpu"
package wgpu

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/cpshadow"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan HAL backend.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// BackendName is the registry name of this backend.
const BackendName = "wgpu"

var (
	// ErrReleased is returned by calls on a released device.
	ErrReleased = errors.New("wgpu: device released")

	// ErrNoFramebuffer is returned by Draw before the first Resize.
	ErrNoFramebuffer = errors.New("wgpu: no framebuffer")

	// ErrForeignHandle is returned when a handle from another device is used.
	ErrForeignHandle = errors.New("wgpu: handle belongs to another device")
)

func init() {
	cpshadow.RegisterBackend(BackendName, 100, func(target any) (cpshadow.Device, error) {
		return Open(target)
	}, available)
}

// available reports whether a Vulkan HAL backend is compiled in.
func available() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}

// halProvider is implemented by hosts that share their GPU device.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Device is a GPU implementation of cpshadow.Device.
// It is not safe for concurrent use.
type Device struct {
	log *slog.Logger

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	owned    bool
	format   gputypes.TextureFormat

	// Offscreen render target.
	tex           hal.Texture
	view          hal.TextureView
	width, height uint32

	program    *program
	uniforms   cpshadow.Uniforms
	blend      cpshadow.BlendMode
	clearColor gputypes.Color
	cleared    bool

	pixels   *image.RGBA
	released bool
}

// Open opens a device for target. A nil target opens a dedicated Vulkan
// device. A target exposing HAL types shares the host's device; if it is
// also a gpucontext.DeviceProvider its surface format is used for the
// render target.
func Open(target any) (*Device, error) {
	if hp, ok := target.(halProvider); ok {
		device, ok := hp.HalDevice().(hal.Device)
		if !ok || device == nil {
			return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
		}
		queue, ok := hp.HalQueue().(hal.Queue)
		if !ok || queue == nil {
			return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
		}
		d := NewWithDevice(device, queue)
		if dp, ok := target.(gpucontext.DeviceProvider); ok {
			d.format = renderFormat(dp.SurfaceFormat())
		}
		return d, nil
	}
	if target != nil {
		return nil, fmt.Errorf("wgpu: unsupported target %T", target)
	}
	return openVulkan()
}

// NewWithDevice wraps an existing HAL device and queue. The device is not
// destroyed by Release.
func NewWithDevice(device hal.Device, queue hal.Queue) *Device {
	return &Device{
		log:    cpshadow.Logger(),
		device: device,
		queue:  queue,
		format: gputypes.TextureFormatBGRA8Unorm,
	}
}

func openVulkan() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d := NewWithDevice(openDev.Device, openDev.Queue)
	d.instance = instance
	d.owned = true
	d.log.Info("wgpu: device opened", "adapter", selected.Info.Name)
	return d, nil
}

// renderFormat picks the offscreen format closest to the host surface.
func renderFormat(f gputypes.TextureFormat) gputypes.TextureFormat {
	if f == gputypes.TextureFormatRGBA8Unorm {
		return f
	}
	return gputypes.TextureFormatBGRA8Unorm
}

// SetLogger sets the device logger.
func (d *Device) SetLogger(l *slog.Logger) {
	if l != nil {
		d.log = l
	}
}

// Format returns the render target format.
func (d *Device) Format() gputypes.TextureFormat { return d.format }

// Size returns the render target size.
func (d *Device) Size() (uint32, uint32) { return d.width, d.height }

// Resize recreates the render target.
func (d *Device) Resize(width, height int) error {
	if d.released {
		return ErrReleased
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("wgpu: invalid framebuffer size %dx%d", width, height)
	}
	w, h := uint32(width), uint32(height) //nolint:gosec // checked positive above
	d.destroyTarget()

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "cpshadow_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create target texture: %w", err)
	}
	d.tex = tex

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "cpshadow_target_view",
		Format:        d.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.destroyTarget()
		return fmt.Errorf("wgpu: create target view: %w", err)
	}
	d.view = view

	d.width, d.height = w, h
	d.pixels = image.NewRGBA(image.Rect(0, 0, width, height))
	d.log.Debug("wgpu: render target allocated", "width", width, "height", height)
	return nil
}

func (d *Device) destroyTarget() {
	if d.view != nil {
		d.device.DestroyTextureView(d.view)
		d.view = nil
	}
	if d.tex != nil {
		d.device.DestroyTexture(d.tex)
		d.tex = nil
	}
	d.width, d.height = 0, 0
}

// UseProgram selects the program for subsequent draws.
func (d *Device) UseProgram(p cpshadow.Program) {
	prog, ok := p.(*program)
	if !ok || prog.dev != d {
		d.program = nil
		return
	}
	d.program = prog
}

// SetUniforms sets the per-frame parameters. They are uploaded by Draw.
func (d *Device) SetUniforms(u cpshadow.Uniforms) { d.uniforms = u }

// SetBlend selects the pipeline variant used by Draw.
func (d *Device) SetBlend(mode cpshadow.BlendMode) { d.blend = mode }

// Clear sets the clear color of the next render pass.
func (d *Device) Clear(c cpshadow.RGBA) {
	d.clearColor = gputypes.Color{R: c.R, G: c.G, B: c.B, A: c.A}
	d.cleared = true
}

// Snapshot returns a copy of the last frame read back from the GPU, or nil
// before the first Resize.
func (d *Device) Snapshot() *image.RGBA {
	if d.pixels == nil {
		return nil
	}
	img := image.NewRGBA(d.pixels.Rect)
	copy(img.Pix, d.pixels.Pix)
	return img
}

// Release destroys the render target and, for a dedicated device, the
// device itself.
func (d *Device) Release() {
	if d.released {
		return
	}
	d.released = true
	d.destroyTarget()
	d.pixels = nil
	d.program = nil
	if d.owned {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
}
