package nengine

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// The overlay draws screen-space text straight through wgpu, outside
// the model pipeline: no camera, no depth writes, alpha-blended over
// the frame at the end of the render pass.

type textVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

type glyphInfo struct {
	uvMin [2]float32
	uvMax [2]float32
	size  [2]float32
	off   [2]float32
	adv   float32
}

const atlasSize = 512

// fontAtlas rasterizes the printable ASCII range of a TTF face into a
// single alpha texture, tracking per-glyph UVs and metrics.
type fontAtlas struct {
	image  *image.Alpha
	glyphs map[rune]glyphInfo
	face   font.Face
}

func newFontAtlas(fontPath string, fontSize float64) (*fontAtlas, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font file: %w", err)
	}

	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}

	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]glyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			break
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

		glyphs[r] = glyphInfo{
			uvMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			uvMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			size:  [2]float32{float32(w), float32(h)},
			off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			adv:   float32(adv) / 64.0, // fixed 26.6 to float
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &fontAtlas{image: atlas, glyphs: glyphs, face: face}, nil
}

// buildVertices lays out text starting at a pixel position, two
// triangles per glyph, in normalized device coordinates.
func (fa *fontAtlas) buildVertices(text string, px, py, scale float32, color [4]float32, screenW, screenH int) []textVertex {
	vertices := make([]textVertex, 0, len(text)*6)

	sw := float32(screenW)
	sh := float32(screenH)
	metrics := fa.face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	posX := px
	posY := py + ascent*scale

	for _, r := range text {
		if r == '\n' {
			posX = px
			posY += lineHeight * scale
			continue
		}

		g, ok := fa.glyphs[r]
		if !ok {
			continue
		}

		x0 := (posX+g.off[0]*scale)/sw*2.0 - 1.0
		y0 := 1.0 - (posY+g.off[1]*scale)/sh*2.0
		x1 := (posX+(g.off[0]+g.size[0])*scale)/sw*2.0 - 1.0
		y1 := 1.0 - (posY+(g.off[1]+g.size[1])*scale)/sh*2.0

		vertices = append(vertices,
			textVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.uvMin[0], g.uvMin[1]}, Color: color},
			textVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: color},
			textVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: color},
			textVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: color},
			textVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.uvMax[0], g.uvMax[1]}, Color: color},
			textVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: color},
		)

		posX += g.adv * scale
	}

	return vertices
}

// textOverlay owns the atlas texture, pipeline and vertex buffer for
// the frame-rate readout. The vertex buffer is rebuilt only when the
// text or the window size changes.
type textOverlay struct {
	g     *gpuContext
	atlas *fontAtlas

	pipeline  *wgpu.RenderPipeline
	bindGroup *wgpu.BindGroup

	vertexBuffer *wgpu.Buffer
	vertexCount  uint32
	lastText     string
	lastW, lastH int
}

func newTextOverlay(g *gpuContext, fontPath string) (*textOverlay, error) {
	atlas, err := newFontAtlas(fontPath, 32)
	if err != nil {
		return nil, err
	}
	o := &textOverlay{g: g, atlas: atlas}

	w := atlas.image.Bounds().Dx()
	h := atlas.image.Bounds().Dy()
	extent := wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}
	tex, err := g.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Text Atlas",
		Size:          extent,
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	err = g.queue.WriteTexture(tex.AsImageCopy(), atlas.image.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(w),
		RowsPerImage: uint32(h),
	}, &extent)
	if err != nil {
		return nil, err
	}
	atlasView, err := tex.CreateView(nil)
	if err != nil {
		return nil, err
	}

	sampler, err := g.device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}

	mod, err := g.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Text Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: textShader},
	})
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	o.pipeline, err = g.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Text Pipeline",
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(textVertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: g.config.Format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		// Same pass as the depth-tested scene, so the pipeline must
		// declare the attachment; the overlay neither tests nor writes.
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	o.bindGroup, err = g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: o.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: atlasView},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (o *textOverlay) draw(pass *wgpu.RenderPassEncoder, text string, screenW, screenH int) {
	if text != o.lastText || screenW != o.lastW || screenH != o.lastH {
		o.rebuild(text, screenW, screenH)
	}
	if o.vertexCount == 0 {
		return
	}

	pass.SetPipeline(o.pipeline)
	pass.SetBindGroup(0, o.bindGroup, nil)
	pass.SetVertexBuffer(0, o.vertexBuffer, 0, o.vertexBuffer.GetSize())
	pass.Draw(o.vertexCount, 1, 0, 0)
}

func (o *textOverlay) rebuild(text string, screenW, screenH int) {
	o.lastText = text
	o.lastW = screenW
	o.lastH = screenH

	vertices := o.atlas.buildVertices(text, 10, 10, 1, [4]float32{1, 1, 1, 1}, screenW, screenH)
	o.vertexCount = uint32(len(vertices))

	if o.vertexBuffer != nil {
		o.vertexBuffer.Release()
		o.vertexBuffer = nil
	}
	if len(vertices) == 0 {
		return
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(textVertex{})))
	buf, err := o.g.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Text Vertices",
		Contents: data,
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		panic(err)
	}
	o.vertexBuffer = buf
}

const textShader = `
struct VsIn {
    @location(0) pos: vec2<f32>,
    @location(1) uv: vec2<f32>,
    @location(2) color: vec4<f32>,
}

struct VsOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(1) color: vec4<f32>,
}

@group(0) @binding(0) var atlas: texture_2d<f32>;
@group(0) @binding(1) var atlas_sampler: sampler;

@vertex
fn vs_main(in: VsIn) -> VsOut {
    var out: VsOut;
    out.pos = vec4<f32>(in.pos, 0.0, 1.0);
    out.uv = in.uv;
    out.color = in.color;
    return out;
}

@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    let coverage = textureSample(atlas, atlas_sampler, in.uv).r;
    return vec4<f32>(in.color.rgb, in.color.a * coverage);
}
`
