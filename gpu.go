package nengine

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const depthFormat = wgpu.TextureFormatDepth32Float

// gpuContext owns the window and everything wgpu: instance, surface,
// device, queue, surface configuration and the depth attachment. It is
// created on the main goroutine and must stay there (glfw requirement).
type gpuContext struct {
	log    Logger
	window *glfw.Window
	poller *inputPoller

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	config   *wgpu.SurfaceConfiguration

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	overlay *textOverlay

	width, height int
}

func newGpuContext(title string, width, height int, fontPath string, log Logger) *gpuContext {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		panic(err)
	}

	g := &gpuContext{log: log, window: window}
	g.poller = newInputPoller(window)

	g.instance = wgpu.CreateInstance(nil)
	g.surface = g.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	g.adapter, err = g.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: g.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}

	g.device, err = g.adapter.RequestDevice(nil)
	if err != nil {
		panic(err)
	}
	g.queue = g.device.GetQueue()

	g.width, g.height = window.GetFramebufferSize()
	caps := g.surface.GetCapabilities(g.adapter)
	g.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(g.width),
		Height:      uint32(g.height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	g.surface.Configure(g.adapter, g.device, g.config)
	g.createDepthTexture()

	if fontPath != "" {
		overlay, err := newTextOverlay(g, fontPath)
		if err != nil {
			log.Warnf("text overlay disabled: %v", err)
		} else {
			g.overlay = overlay
		}
	}

	log.Infof("gpu ready: surface %dx%d", g.width, g.height)
	return g
}

func (g *gpuContext) createDepthTexture() {
	tex, err := g.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth",
		Size:          wgpu.Extent3D{Width: g.config.Width, Height: g.config.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		panic(err)
	}
	g.depthTexture = tex
	g.depthView = view
}

func (g *gpuContext) resize(width, height int) {
	g.width = width
	g.height = height
	g.config.Width = uint32(width)
	g.config.Height = uint32(height)
	g.surface.Configure(g.adapter, g.device, g.config)

	g.depthView.Release()
	g.depthTexture.Release()
	g.createDepthTexture()
}

func (g *gpuContext) reconfigure() {
	g.surface.Configure(g.adapter, g.device, g.config)
}

func (g *gpuContext) backend() Device {
	return &wgpuBackend{g: g}
}

func (g *gpuContext) destroy() {
	g.depthView.Release()
	g.depthTexture.Release()
	g.window.Destroy()
	glfw.Terminate()
}

// renderFrame acquires the next surface texture, clears color and
// depth, replays the visible models and the overlay, and presents. A
// failed acquire reconfigures the surface and skips the frame.
func (a *App) renderFrame() {
	g := a.gfx

	nextTexture, err := g.surface.GetCurrentTexture()
	if err != nil {
		a.log.Errorf("surface texture acquire failed: %v", err)
		g.reconfigure()
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.log.Errorf("surface view failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := g.device.CreateCommandEncoder(nil)
	if err != nil {
		a.log.Errorf("command encoder failed: %v", err)
		return
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            g.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})

	a.renderModels(&wgpuRenderPass{pass: pass})

	if g.overlay != nil {
		g.overlay.draw(pass, fmt.Sprintf("%.0f fps", a.fps), g.width, g.height)
	}

	if err := pass.End(); err != nil {
		a.log.Errorf("render pass end failed: %v", err)
		return
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.log.Errorf("encoder finish failed: %v", err)
		return
	}
	g.queue.Submit(cmd)
	g.surface.Present()
}

// gpuTexture pairs a texture with the view the bind groups use.
type gpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// wgpuBackend implements Device on top of the context. Allocation
// errors panic: the engine has no recovery path for a device that
// cannot allocate.
type wgpuBackend struct {
	g *gpuContext
}

func (b *wgpuBackend) CreateBuffer(data []byte, usage BufferUsage) Buffer {
	buf, err := b.g.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Contents: data,
		Usage:    bufferUsageToWgpu(usage),
	})
	if err != nil {
		panic(err)
	}
	return buf
}

func (b *wgpuBackend) CreateBindGroup(layout []BindGroupLayoutEntry, resources []BoundResource) (BindGroup, BindGroupLayout) {
	layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(layout))
	for i, e := range layout {
		layoutEntries[i] = layoutEntryToWgpu(e)
	}
	bgl, err := b.g.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Entries: layoutEntries,
	})
	if err != nil {
		panic(err)
	}

	entries := make([]wgpu.BindGroupEntry, len(resources))
	for i, r := range resources {
		entries[i] = wgpu.BindGroupEntry{Binding: layout[i].Binding}
		switch {
		case r.Buffer != nil:
			buf := r.Buffer.(*wgpu.Buffer)
			entries[i].Buffer = buf
			entries[i].Size = buf.GetSize()
		case r.Texture != nil:
			entries[i].TextureView = r.Texture.(*gpuTexture).view
		case r.Sampler != nil:
			entries[i].Sampler = r.Sampler.(*wgpu.Sampler)
		default:
			panic("bind group resource holds no handle")
		}
	}
	bg, err := b.g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  bgl,
		Entries: entries,
	})
	if err != nil {
		panic(err)
	}
	return bg, bgl
}

func (b *wgpuBackend) CreatePipeline(desc PipelineDescriptor) Pipeline {
	shader, err := b.g.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Shader},
	})
	if err != nil {
		panic(err)
	}
	defer shader.Release()

	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		layouts[i] = l.(*wgpu.BindGroupLayout)
	}
	pipelineLayout, err := b.g.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: layouts,
	})
	if err != nil {
		panic(err)
	}
	defer pipelineLayout.Release()

	buffers := make([]wgpu.VertexBufferLayout, len(desc.VertexLayouts))
	for i, vl := range desc.VertexLayouts {
		buffers[i] = vertexLayoutToWgpu(vl)
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthTest {
		depthStencil = &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	pipeline, err := b.g.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    b.g.config.Format,
				Blend:     nil,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		panic(err)
	}
	return pipeline
}

func (b *wgpuBackend) CreateTexture(texels []byte, width, height uint32) Texture {
	extent := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	tex, err := b.g.device.CreateTexture(&wgpu.TextureDescriptor{
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	err = b.g.queue.WriteTexture(
		tex.AsImageCopy(),
		texels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&extent,
	)
	if err != nil {
		panic(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		panic(err)
	}
	return &gpuTexture{texture: tex, view: view}
}

func (b *wgpuBackend) CreateSampler() Sampler {
	sampler, err := b.g.device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}
	return sampler
}

func (b *wgpuBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) {
	b.g.queue.WriteBuffer(buf.(*wgpu.Buffer), offset, data)
}

func (b *wgpuBackend) ReleaseBuffer(buf Buffer) {
	buf.(*wgpu.Buffer).Release()
}

func (b *wgpuBackend) ReleaseBindGroup(bg BindGroup) {
	bg.(*wgpu.BindGroup).Release()
}

func (b *wgpuBackend) ReleasePipeline(p Pipeline) {
	p.(*wgpu.RenderPipeline).Release()
}

// wgpuRenderPass adapts one frame's render pass encoder.
type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuRenderPass) SetPipeline(pipeline Pipeline) {
	p.pass.SetPipeline(pipeline.(*wgpu.RenderPipeline))
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer) {
	b := buf.(*wgpu.Buffer)
	p.pass.SetVertexBuffer(slot, b, 0, b.GetSize())
}

func (p *wgpuRenderPass) SetIndexBuffer(buf Buffer, format IndexFormat) {
	b := buf.(*wgpu.Buffer)
	p.pass.SetIndexBuffer(b, indexFormatToWgpu(format), 0, b.GetSize())
}

func (p *wgpuRenderPass) SetBindGroup(slot uint32, bg BindGroup) {
	p.pass.SetBindGroup(slot, bg.(*wgpu.BindGroup), nil)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func bufferUsageToWgpu(usage BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if usage&BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if usage&BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if usage&BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if usage&BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if usage&BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func shaderStageToWgpu(stage ShaderStage) wgpu.ShaderStage {
	var out wgpu.ShaderStage
	if stage&ShaderStageVertex != 0 {
		out |= wgpu.ShaderStageVertex
	}
	if stage&ShaderStageFragment != 0 {
		out |= wgpu.ShaderStageFragment
	}
	if stage&ShaderStageCompute != 0 {
		out |= wgpu.ShaderStageCompute
	}
	return out
}

func layoutEntryToWgpu(e BindGroupLayoutEntry) wgpu.BindGroupLayoutEntry {
	out := wgpu.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: shaderStageToWgpu(e.Visibility),
	}
	switch e.Kind {
	case BindingUniformBuffer:
		out.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
	case BindingStorageBuffer:
		out.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}
	case BindingReadOnlyStorageBuffer:
		out.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}
	case BindingTexture2D:
		out.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	case BindingSampler:
		out.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
	default:
		panic(fmt.Sprintf("unknown binding kind %d", e.Kind))
	}
	return out
}

func vertexLayoutToWgpu(vl VertexLayout) wgpu.VertexBufferLayout {
	attrs := make([]wgpu.VertexAttribute, len(vl.Attributes))
	for i, a := range vl.Attributes {
		attrs[i] = wgpu.VertexAttribute{
			Format:         vertexFormatToWgpu(a.Format),
			Offset:         a.Offset,
			ShaderLocation: a.ShaderLocation,
		}
	}
	stepMode := wgpu.VertexStepModeVertex
	if vl.StepMode == VertexStepModeInstance {
		stepMode = wgpu.VertexStepModeInstance
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: vl.ArrayStride,
		StepMode:    stepMode,
		Attributes:  attrs,
	}
}

func vertexFormatToWgpu(f VertexFormat) wgpu.VertexFormat {
	switch f {
	case VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case VertexFormatFloat32x3:
		return wgpu.VertexFormatFloat32x3
	case VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	default:
		panic(fmt.Sprintf("unknown vertex format %d", f))
	}
}

func indexFormatToWgpu(f IndexFormat) wgpu.IndexFormat {
	if f == IndexFormatUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}
