//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"unsafe"

	"github.com/gogpu/cpshadow"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens a device on the noop HAL backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()

	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		t.Fatal("no noop adapters")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		open.Device.Destroy()
		instance.Destroy()
	})
	return open.Device, open.Queue
}

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	d := NewWithDevice(createNoopDevice(t))
	t.Cleanup(d.Release)
	return d
}

// linkDefault compiles and links the default shaders on d.
func linkDefault(t *testing.T, d *Device) cpshadow.Program {
	t.Helper()
	set := cpshadow.DefaultShaders()
	vs, err := d.CompileStage(cpshadow.StageVertex, set.Vertex)
	if err != nil {
		t.Fatalf("compile vertex: %v", err)
	}
	defer vs.Release()
	fs, err := d.CompileStage(cpshadow.StageFragment, set.Fragment)
	if err != nil {
		t.Fatalf("compile fragment: %v", err)
	}
	defer fs.Release()
	prog, err := d.Link(vs, fs)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	t.Cleanup(prog.Release)
	return prog
}

func TestCompileErrors(t *testing.T) {
	d := newTestDevice(t)
	set := cpshadow.DefaultShaders()

	tests := []struct {
		name  string
		stage cpshadow.Stage
		src   string
	}{
		{"empty", cpshadow.StageVertex, "  "},
		{"syntax", cpshadow.StageFragment, "fn fs_main( {"},
		{"vertex entry in fragment stage", cpshadow.StageFragment, set.Vertex.WGSL},
		{"fragment entry in vertex stage", cpshadow.StageVertex, set.Fragment.WGSL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.CompileStage(tt.stage, cpshadow.ShaderSource{WGSL: tt.src})
			var ce *cpshadow.ShaderCompileError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ShaderCompileError", err)
			}
			if ce.Stage != tt.stage {
				t.Errorf("Stage = %v, want %v", ce.Stage, tt.stage)
			}
		})
	}
}

func TestLinkErrors(t *testing.T) {
	d := newTestDevice(t)
	other := newTestDevice(t)
	set := cpshadow.DefaultShaders()

	vs, err := d.CompileStage(cpshadow.StageVertex, set.Vertex)
	if err != nil {
		t.Fatal(err)
	}
	fs, err := d.CompileStage(cpshadow.StageFragment, set.Fragment)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := other.CompileStage(cpshadow.StageFragment, set.Fragment)
	if err != nil {
		t.Fatal(err)
	}

	var le *cpshadow.ShaderLinkError
	if _, err := d.Link(fs, vs); !errors.As(err, &le) {
		t.Errorf("swapped stages: err = %v, want *ShaderLinkError", err)
	}
	if _, err := d.Link(vs, foreign); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("foreign stage: err = %v, want ErrForeignHandle", err)
	}

	fs.Release()
	fs.Release()
	if _, err := d.Link(vs, fs); !errors.As(err, &le) {
		t.Errorf("released stage: err = %v, want *ShaderLinkError", err)
	}
}

func TestPackUniforms(t *testing.T) {
	u := cpshadow.Uniforms{
		Resolution: [2]float32{1200, 1400},
		AnchorPos:  [2]float32{200, 400},
		AnchorSize: [2]float32{600, 160},
		PixelRatio: 2,
		Time:       1.5,
	}
	data := packUniforms(u)
	if len(data) != cpshadow.UniformSize {
		t.Fatalf("len = %d, want %d", len(data), cpshadow.UniformSize)
	}
	want := []float32{1200, 1400, 200, 400, 600, 160, 2, 1.5}
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
		if got != w {
			t.Errorf("float %d = %v, want %v", i, got, w)
		}
	}
}

func TestPaddedRow(t *testing.T) {
	tests := []struct {
		width uint32
		want  uint32
	}{
		{1, 256},
		{64, 256},
		{65, 512},
		{1200, 4864},
	}
	for _, tt := range tests {
		if got := paddedRow(tt.width); got != tt.want {
			t.Errorf("paddedRow(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestDrawUploadsUniforms(t *testing.T) {
	d := newTestDevice(t)
	prog := linkDefault(t, d)

	quad, err := d.UploadQuad(cpshadow.QuadVertices[:])
	if err != nil {
		t.Fatalf("UploadQuad: %v", err)
	}
	defer quad.Release()

	if err := d.Draw(quad, cpshadow.QuadVertexCount); !errors.Is(err, ErrNoFramebuffer) {
		t.Fatalf("Draw before Resize: err = %v, want ErrNoFramebuffer", err)
	}
	if err := d.Resize(96, 48); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := d.Size(); w != 96 || h != 48 {
		t.Fatalf("Size = %dx%d, want 96x48", w, h)
	}

	u := cpshadow.Uniforms{
		Resolution: [2]float32{96, 48},
		AnchorPos:  [2]float32{8, 4},
		AnchorSize: [2]float32{80, 10},
		PixelRatio: 1,
		Time:       0.25,
	}
	d.UseProgram(prog)
	d.SetUniforms(u)
	d.SetBlend(cpshadow.BlendSourceOver)
	d.Clear(cpshadow.Transparent)
	if err := d.Draw(quad, cpshadow.QuadVertexCount); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	p := prog.(*program)
	mapping, err := d.device.MapBuffer(p.uniformBuf, 0, cpshadow.UniformSize)
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	got := unsafe.Slice((*byte)(mapping.Ptr), cpshadow.UniformSize)
	want := packUniforms(u)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uniform byte %d = %d, want %d", i, got[i], want[i])
		}
	}

	snap := d.Snapshot()
	if snap == nil || snap.Bounds().Dx() != 96 || snap.Bounds().Dy() != 48 {
		t.Fatalf("Snapshot bounds = %v, want 96x48", snap.Bounds())
	}
}

func TestDrawErrors(t *testing.T) {
	d := newTestDevice(t)
	other := newTestDevice(t)
	prog := linkDefault(t, d)

	quad, err := other.UploadQuad(cpshadow.QuadVertices[:])
	if err != nil {
		t.Fatal(err)
	}
	defer quad.Release()
	if err := d.Resize(16, 16); err != nil {
		t.Fatal(err)
	}

	d.UseProgram(prog)
	if err := d.Draw(quad, cpshadow.QuadVertexCount); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("foreign quad: err = %v, want ErrForeignHandle", err)
	}

	own, err := d.UploadQuad(cpshadow.QuadVertices[:])
	if err != nil {
		t.Fatal(err)
	}
	defer own.Release()
	d.UseProgram(linkDefault(t, other))
	if err := d.Draw(own, cpshadow.QuadVertexCount); err == nil {
		t.Error("Draw with a foreign program succeeded")
	}

	if _, err := d.UploadQuad([]float32{1, 2, 3}); err == nil {
		t.Error("UploadQuad with an odd float count succeeded")
	}
	if err := d.Resize(0, 10); err == nil {
		t.Error("Resize(0, 10) succeeded")
	}
}

func TestReleasedDevice(t *testing.T) {
	d := newTestDevice(t)
	d.Release()
	d.Release()

	if _, err := d.CompileStage(cpshadow.StageVertex, cpshadow.DefaultShaders().Vertex); !errors.Is(err, ErrReleased) {
		t.Errorf("CompileStage: err = %v, want ErrReleased", err)
	}
	if err := d.Resize(4, 4); !errors.Is(err, ErrReleased) {
		t.Errorf("Resize: err = %v, want ErrReleased", err)
	}
	if _, err := d.UploadQuad(cpshadow.QuadVertices[:]); !errors.Is(err, ErrReleased) {
		t.Errorf("UploadQuad: err = %v, want ErrReleased", err)
	}
}

// mockProvider shares a noop device the way a gogpu host does.
type mockProvider struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (m *mockProvider) Device() gpucontext.Device { return nil }
func (m *mockProvider) Queue() gpucontext.Queue { return nil }
func (m *mockProvider) Adapter() gpucontext.Adapter { return nil }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return m.format }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{} }
func (m *mockProvider) HalDevice() any { return m.device }
func (m *mockProvider) HalQueue() any { return m.queue }

func TestOpenSharedDevice(t *testing.T) {
	device, queue := createNoopDevice(t)

	tests := []struct {
		name    string
		surface gputypes.TextureFormat
		want    gputypes.TextureFormat
	}{
		{"rgba surface", gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8Unorm},
		{"bgra surface", gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8Unorm},
		{"headless", gputypes.TextureFormatUndefined, gputypes.TextureFormatBGRA8Unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Open(&mockProvider{device: device, queue: queue, format: tt.surface})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if d.Format() != tt.want {
				t.Errorf("Format = %v, want %v", d.Format(), tt.want)
			}
			if d.owned {
				t.Error("shared device is owned")
			}
			d.Release()
		})
	}
}

func TestOpenRejectsUnknownTarget(t *testing.T) {
	if _, err := Open(42); err == nil {
		t.Error("Open(42) succeeded")
	}
	if _, err := Open(&mockProvider{}); err == nil {
		t.Error("Open with a nil HAL device succeeded")
	}
}
