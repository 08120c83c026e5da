package software

import (
	"errors"
	"testing"

	"github.com/gogpu/cpshadow"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestDevice returns a device released at test cleanup.
func newTestDevice(t *testing.T) *Device {
	t.Helper()
	d := New(2)
	t.Cleanup(d.Release)
	return d
}

// buildProgram compiles and links the default shaders.
func buildProgram(t *testing.T, d *Device) cpshadow.Program {
	t.Helper()
	src := cpshadow.DefaultShaders()
	vs, err := d.CompileStage(cpshadow.StageVertex, src.Vertex)
	if err != nil {
		t.Fatalf("CompileStage(vertex) = %v", err)
	}
	fs, err := d.CompileStage(cpshadow.StageFragment, src.Fragment)
	if err != nil {
		t.Fatalf("CompileStage(fragment) = %v", err)
	}
	prog, err := d.Link(vs, fs)
	if err != nil {
		t.Fatalf("Link() = %v", err)
	}
	vs.Release()
	fs.Release()
	return prog
}

const minimalFragment = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 0.0);
}
`

func TestCompileDefaultShaders(t *testing.T) {
	d := newTestDevice(t)
	buildProgram(t, d)

	if got := d.Stats().Compiles; got != 2 {
		t.Errorf("Compiles = %d, want 2", got)
	}
}

func TestCompileErrors(t *testing.T) {
	src := cpshadow.DefaultShaders()

	tests := []struct {
		name  string
		stage cpshadow.Stage
		wgsl  string
	}{
		{"empty", cpshadow.StageVertex, "   "},
		{"syntax", cpshadow.StageFragment, "fn fs_main( {"},
		{"wrong entry point", cpshadow.StageFragment, src.Vertex.WGSL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			_, err := d.CompileStage(tt.stage, cpshadow.ShaderSource{WGSL: tt.wgsl})
			var ce *cpshadow.ShaderCompileError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ShaderCompileError", err)
			}
			if ce.Stage != tt.stage {
				t.Errorf("Stage = %v, want %v", ce.Stage, tt.stage)
			}
			if ce.Log == "" {
				t.Error("compile error has empty log")
			}
		})
	}
}

func TestLinkErrors(t *testing.T) {
	d := newTestDevice(t)
	src := cpshadow.DefaultShaders()

	vs, err := d.CompileStage(cpshadow.StageVertex, src.Vertex)
	if err != nil {
		t.Fatal(err)
	}
	fs, err := d.CompileStage(cpshadow.StageFragment, src.Fragment)
	if err != nil {
		t.Fatal(err)
	}
	bare, err := d.CompileStage(cpshadow.StageFragment, cpshadow.ShaderSource{WGSL: minimalFragment})
	if err != nil {
		t.Fatal(err)
	}

	other := newTestDevice(t)
	foreign, err := other.CompileStage(cpshadow.StageVertex, src.Vertex)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		vs, fs cpshadow.Shader
	}{
		{"swapped stages", fs, vs},
		{"missing uniforms", vs, bare},
		{"foreign stage", foreign, fs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Link(tt.vs, tt.fs)
			var le *cpshadow.ShaderLinkError
			if !errors.As(err, &le) {
				t.Errorf("err = %v, want *ShaderLinkError", err)
			}
		})
	}
}

func TestDrawErrors(t *testing.T) {
	d := newTestDevice(t)
	prog := buildProgram(t, d)
	quad, err := d.UploadQuad(cpshadow.QuadVertices[:])
	if err != nil {
		t.Fatal(err)
	}
	d.UseProgram(prog)

	if err := d.Draw(quad, cpshadow.QuadVertexCount); !errors.Is(err, ErrNoFramebuffer) {
		t.Errorf("Draw before Resize = %v, want ErrNoFramebuffer", err)
	}
	if err := d.Resize(8, 8); err != nil {
		t.Fatal(err)
	}
	if err := d.Draw(quad, 3); err == nil {
		t.Error("Draw with partial quad succeeded")
	}

	other := newTestDevice(t)
	foreign, _ := other.UploadQuad(cpshadow.QuadVertices[:])
	if err := d.Draw(foreign, cpshadow.QuadVertexCount); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("Draw with foreign quad = %v, want ErrForeignHandle", err)
	}
	if _, err := d.UploadQuad([]float32{0, 0}); err == nil {
		t.Error("UploadQuad accepted a short buffer")
	}
	if err := d.Resize(0, 10); err == nil {
		t.Error("Resize(0, 10) succeeded")
	}

	d.Release()
	if err := d.Draw(quad, cpshadow.QuadVertexCount); !errors.Is(err, ErrReleased) {
		t.Errorf("Draw after Release = %v, want ErrReleased", err)
	}
	if _, err := d.CompileStage(cpshadow.StageVertex, cpshadow.DefaultShaders().Vertex); !errors.Is(err, ErrReleased) {
		t.Errorf("CompileStage after Release = %v, want ErrReleased", err)
	}
}

func TestDrawShadowBelowAnchor(t *testing.T) {
	d := newTestDevice(t)
	prog := buildProgram(t, d)
	quad, err := d.UploadQuad(cpshadow.QuadVertices[:])
	if err != nil {
		t.Fatal(err)
	}

	const w, h = 64, 128
	u := cpshadow.Uniforms{
		Resolution: [2]float32{w, h},
		AnchorPos:  [2]float32{8, 8},
		AnchorSize: [2]float32{48, 16},
		PixelRatio: 1,
	}
	if err := d.Resize(w, h); err != nil {
		t.Fatal(err)
	}
	d.UseProgram(prog)
	d.SetUniforms(u)
	d.SetBlend(cpshadow.BlendSourceOver)
	d.Clear(cpshadow.Transparent)
	if err := d.Draw(quad, cpshadow.QuadVertexCount); err != nil {
		t.Fatalf("Draw() = %v", err)
	}

	img := d.Snapshot()
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("snapshot size = %v", img.Bounds())
	}

	// Nothing above the anchor bottom plus the smallest layer offset.
	for y := range 34 {
		for x := range w {
			if a := img.RGBAAt(x, y).A; a != 0 {
				t.Fatalf("pixel (%d, %d) alpha = %d above the shadow", x, y, a)
			}
		}
	}

	c := img.RGBAAt(32, 60)
	if c.A == 0 {
		t.Fatal("no shadow below the anchor")
	}

	// The pixel matches the fragment evaluation blended over transparent.
	r, g, b, a := Shade(32.5, 60.5, u)
	var want [4]uint8
	writePixel(want[:], r, g, b, a, cpshadow.BlendSourceOver)
	if got := [4]uint8{c.R, c.G, c.B, c.A}; got != want {
		t.Errorf("pixel (32, 60) = %v, want %v", got, want)
	}

	// Output is valid premultiplied color.
	for i := 0; i < len(img.Pix); i += 4 {
		p := img.Pix[i : i+4]
		if p[0] > p[3] || p[1] > p[3] || p[2] > p[3] {
			t.Fatalf("pixel %d = %v is not premultiplied", i/4, p)
		}
	}

	// Snapshot is a copy.
	img.Pix[0] = 255
	if d.Snapshot().Pix[0] == 255 {
		t.Error("Snapshot() aliases the framebuffer")
	}

	s := d.Stats()
	if s.Draws != 1 || s.Clears != 1 || s.Allocations != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestClearResetsFramebuffer(t *testing.T) {
	d := newTestDevice(t)
	if err := d.Resize(4, 4); err != nil {
		t.Fatal(err)
	}
	d.Clear(cpshadow.RGBA{R: 1, A: 1})
	if c := d.Snapshot().RGBAAt(3, 3); c.R != 255 || c.A != 255 {
		t.Errorf("after Clear(red) pixel = %v", c)
	}
	d.Clear(cpshadow.Transparent)
	if c := d.Snapshot().RGBAAt(3, 3); c.A != 0 || c.R != 0 {
		t.Errorf("after Clear(transparent) pixel = %v", c)
	}
}

func TestRegisteredBackend(t *testing.T) {
	dev, err := cpshadow.OpenDevice(BackendName, nil)
	if err != nil {
		t.Fatalf("OpenDevice(%q) = %v", BackendName, err)
	}
	defer dev.Release()

	if _, ok := dev.(cpshadow.Snapshotter); !ok {
		t.Error("software device does not implement Snapshotter")
	}
}
