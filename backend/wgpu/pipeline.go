//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/gogpu/cpshadow"
	"github.com/gogpu/cpshadow/internal/wgsl"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyRowAlignment is the required BytesPerRow alignment of texture copies.
const copyRowAlignment = 256

type shader struct {
	dev      *Device
	stage    cpshadow.Stage
	module   hal.ShaderModule
	entry    string
	released bool
}

func (s *shader) Stage() cpshadow.Stage { return s.stage }

func (s *shader) Release() {
	if s.released {
		return
	}
	s.released = true
	if s.dev.device != nil {
		s.dev.device.DestroyShaderModule(s.module)
	}
	s.module = nil
}

// program owns both pipeline variants so SetBlend never rebuilds state.
type program struct {
	dev *Device

	bgLayout hal.BindGroupLayout
	plLayout hal.PipelineLayout
	blended  hal.RenderPipeline
	opaque   hal.RenderPipeline

	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup

	released bool
}

func (p *program) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.dev.program == p {
		p.dev.program = nil
	}
	dev := p.dev.device
	if dev == nil {
		return
	}
	if p.bindGroup != nil {
		dev.DestroyBindGroup(p.bindGroup)
	}
	if p.uniformBuf != nil {
		dev.DestroyBuffer(p.uniformBuf)
	}
	if p.blended != nil {
		dev.DestroyRenderPipeline(p.blended)
	}
	if p.opaque != nil {
		dev.DestroyRenderPipeline(p.opaque)
	}
	if p.plLayout != nil {
		dev.DestroyPipelineLayout(p.plLayout)
	}
	if p.bgLayout != nil {
		dev.DestroyBindGroupLayout(p.bgLayout)
	}
}

type buffer struct {
	dev      *Device
	buf      hal.Buffer
	released bool
}

func (b *buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.dev.device != nil {
		b.dev.device.DestroyBuffer(b.buf)
	}
	b.buf = nil
}

// CompileStage parses and validates src.WGSL with naga, checks the entry
// point of stage and creates a shader module.
func (d *Device) CompileStage(stage cpshadow.Stage, src cpshadow.ShaderSource) (cpshadow.Shader, error) {
	if d.released {
		return nil, ErrReleased
	}
	if strings.TrimSpace(src.WGSL) == "" {
		return nil, &cpshadow.ShaderCompileError{Stage: stage, Log: "empty WGSL source"}
	}

	entry, err := wgsl.Check(stage, src.WGSL)
	if err != nil {
		return nil, &cpshadow.ShaderCompileError{Stage: stage, Log: err.Error(), Err: err}
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "cpshadow_" + stage.String(),
		Source: hal.ShaderSource{WGSL: src.WGSL},
	})
	if err != nil {
		return nil, &cpshadow.ShaderCompileError{Stage: stage, Log: err.Error(), Err: err}
	}
	return &shader{dev: d, stage: stage, module: module, entry: entry}, nil
}

// Link builds the render pipelines, the uniform buffer and its bind group.
func (d *Device) Link(vertex, fragment cpshadow.Shader) (cpshadow.Program, error) {
	if d.released {
		return nil, ErrReleased
	}
	vs, ok1 := vertex.(*shader)
	fs, ok2 := fragment.(*shader)
	if !ok1 || !ok2 || vs.dev != d || fs.dev != d {
		return nil, &cpshadow.ShaderLinkError{Log: "stages were not compiled by this device", Err: ErrForeignHandle}
	}
	if vs.released || fs.released {
		return nil, &cpshadow.ShaderLinkError{Log: "stage already released"}
	}
	if vs.stage != cpshadow.StageVertex || fs.stage != cpshadow.StageFragment {
		return nil, &cpshadow.ShaderLinkError{
			Log: fmt.Sprintf("want vertex and fragment stages, got %s and %s", vs.stage, fs.stage),
		}
	}

	p := &program{dev: d}
	if err := p.build(vs, fs); err != nil {
		p.Release()
		return nil, &cpshadow.ShaderLinkError{Log: err.Error(), Err: err}
	}
	return p, nil
}

func (p *program) build(vs, fs *shader) error {
	dev := p.dev.device
	var err error

	p.bgLayout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "cpshadow_uniforms_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: cpshadow.UniformSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	p.plLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "cpshadow_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bgLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	sourceOver := gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}
	if p.blended, err = p.pipeline("cpshadow_blended", vs, fs, &sourceOver); err != nil {
		return err
	}
	if p.opaque, err = p.pipeline("cpshadow_opaque", vs, fs, nil); err != nil {
		return err
	}

	p.uniformBuf, err = dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "cpshadow_uniforms",
		Size:  cpshadow.UniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}

	p.bindGroup, err = dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "cpshadow_uniforms",
		Layout: p.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding: 0,
				Resource: gputypes.BufferBinding{
					Buffer: p.uniformBuf.NativeHandle(),
					Offset: 0,
					Size:   cpshadow.UniformSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	return nil
}

func (p *program) pipeline(label string, vs, fs *shader, blend *gputypes.BlendState) (hal.RenderPipeline, error) {
	rp, err := p.dev.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: p.plLayout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: vs.entry,
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: 8,
					StepMode:    gputypes.VertexStepModeVertex,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					},
				},
			},
		},
		Fragment: &hal.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.entry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.dev.format,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline %s: %w", label, err)
	}
	return rp, nil
}

// UploadQuad creates a vertex buffer holding vertices.
func (d *Device) UploadQuad(vertices []float32) (cpshadow.Buffer, error) {
	if d.released {
		return nil, ErrReleased
	}
	if len(vertices) == 0 || len(vertices)%2 != 0 {
		return nil, fmt.Errorf("wgpu: quad has %d floats, want pairs", len(vertices))
	}
	data := make([]byte, 4*len(vertices))
	for i, v := range vertices {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cpshadow_quad",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create quad buffer: %w", err)
	}
	if err := d.queue.WriteBuffer(buf, 0, data); err != nil {
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: upload quad: %w", err)
	}
	return &buffer{dev: d, buf: buf}, nil
}

// packUniforms lays out u like the ShadowUniforms struct.
func packUniforms(u cpshadow.Uniforms) []byte {
	vals := [8]float32{
		u.Resolution[0], u.Resolution[1],
		u.AnchorPos[0], u.AnchorPos[1],
		u.AnchorSize[0], u.AnchorSize[1],
		u.PixelRatio, u.Time,
	}
	data := make([]byte, cpshadow.UniformSize)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return data
}

// paddedRow returns the readback stride for width pixels.
func paddedRow(width uint32) uint32 {
	row := width * 4
	return (row + copyRowAlignment - 1) / copyRowAlignment * copyRowAlignment
}

// Draw renders vertexCount vertices of quad into the render target and
// reads the result back into the snapshot image.
func (d *Device) Draw(quad cpshadow.Buffer, vertexCount int) error {
	if d.released {
		return ErrReleased
	}
	if d.tex == nil || d.view == nil {
		return ErrNoFramebuffer
	}
	q, ok := quad.(*buffer)
	if !ok || q.dev != d || q.released {
		return fmt.Errorf("wgpu: draw: quad: %w", ErrForeignHandle)
	}
	p := d.program
	if p == nil || p.released {
		return fmt.Errorf("wgpu: draw: no program in use")
	}
	if vertexCount <= 0 {
		return fmt.Errorf("wgpu: draw: invalid vertex count %d", vertexCount)
	}

	if err := d.queue.WriteBuffer(p.uniformBuf, 0, packUniforms(d.uniforms)); err != nil {
		return fmt.Errorf("wgpu: write uniforms: %w", err)
	}

	stride := paddedRow(d.width)
	size := uint64(stride) * uint64(d.height)
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cpshadow_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create readback buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "cpshadow_frame"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	defer encoder.Destroy()
	if err := encoder.BeginEncoding("cpshadow_frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	pipeline := p.opaque
	if d.blend == cpshadow.BlendSourceOver {
		pipeline = p.blended
	}
	load := gputypes.LoadOpLoad
	if d.cleared {
		load = gputypes.LoadOpClear
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "cpshadow_shadow",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       d.view,
				LoadOp:     load,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: d.clearColor,
			},
		},
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.SetVertexBuffer(0, q.buf, 0)
	rp.Draw(uint32(vertexCount), 1, 0, 0) //nolint:gosec // checked positive above
	rp.End()
	d.cleared = false

	encoder.TransitionTextures([]hal.TextureBarrier{
		{
			Texture: d.tex,
			Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll},
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		},
	})
	encoder.CopyTextureToBuffer(d.tex, staging, []hal.BufferTextureCopy{
		{
			BufferLayout: hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  stride,
				RowsPerImage: d.height,
			},
			TextureBase: hal.ImageCopyTexture{Texture: d.tex, Aspect: gputypes.TextureAspectAll},
			Size:        hal.Extent3D{Width: d.width, Height: d.height, DepthOrArrayLayers: 1},
		},
	})
	encoder.TransitionTextures([]hal.TextureBarrier{
		{
			Texture: d.tex,
			Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll},
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait: %w", err)
	}
	return d.readback(staging, stride, size)
}

// readback copies the staging buffer into the snapshot image, converting
// BGRA targets to RGBA.
func (d *Device) readback(staging hal.Buffer, stride uint32, size uint64) error {
	mapping, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return fmt.Errorf("wgpu: map readback buffer: %w", err)
	}
	src := unsafe.Slice((*byte)(mapping.Ptr), size)

	rowBytes := int(d.width) * 4
	bgra := d.format == gputypes.TextureFormatBGRA8Unorm
	for y := range int(d.height) {
		in := src[y*int(stride) : y*int(stride)+rowBytes]
		out := d.pixels.Pix[y*d.pixels.Stride : y*d.pixels.Stride+rowBytes]
		copy(out, in)
		if bgra {
			for i := 0; i < rowBytes; i += 4 {
				out[i], out[i+2] = out[i+2], out[i]
			}
		}
	}
	return d.device.UnmapBuffer(staging)
}
