package nengine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Module is an installable unit of setup: it gets the app once, before
// the loop starts, and registers whatever actors and models it brings.
type Module interface {
	Install(app *App)
}

// AppBuilder assembles an App. The zero-argument chain gives a windowed
// app with defaults; WithDevice swaps in an external backend and skips
// window creation entirely, which is how tests drive the engine.
type AppBuilder struct {
	title         string
	width, height int
	fontPath      string
	logger        Logger
	device        Device
	debug         bool
	modules       []Module
}

func NewAppBuilder() *AppBuilder {
	return &AppBuilder{
		title:  "nengine",
		width:  1280,
		height: 720,
	}
}

func (b *AppBuilder) WithWindow(title string, width, height int) *AppBuilder {
	b.title = title
	b.width = width
	b.height = height
	return b
}

func (b *AppBuilder) WithLogger(l Logger) *AppBuilder {
	b.logger = l
	return b
}

// WithDevice injects a backend and makes the app headless: Build opens
// no window and Run refuses to loop.
func (b *AppBuilder) WithDevice(d Device) *AppBuilder {
	b.device = d
	return b
}

// WithFont enables the frame-rate overlay, rendered with the glyph
// atlas built from the given TTF file.
func (b *AppBuilder) WithFont(path string) *AppBuilder {
	b.fontPath = path
	return b
}

func (b *AppBuilder) WithDebug(enabled bool) *AppBuilder {
	b.debug = enabled
	return b
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

func (b *AppBuilder) Build() *App {
	log := b.logger
	if log == nil {
		log = NewDefaultLogger("nengine", b.debug)
	}

	a := &App{
		log:        log,
		tables:     make(map[uuid.UUID]*ResourceTable),
		actors:     NewActorState(),
		models:     NewModelState(),
		camera:     NewCamera(mgl32.Vec3{0, 5, 10}, -1.57, -0.35),
		projection: NewProjection(b.width, b.height, 0.78, 0.1, 1000),
	}

	if b.device != nil {
		a.device = b.device
	} else {
		gfx := newGpuContext(b.title, b.width, b.height, b.fontPath, log)
		a.gfx = gfx
		a.device = gfx.backend()
		a.projection.Resize(gfx.width, gfx.height)
	}

	a.assets = NewAssetServer(a.device, log)

	a.cameraUniform = NewCameraUniform()
	a.cameraUniform.UpdateViewProj(&a.camera, &a.projection)
	a.cameraBuffer = a.device.CreateBuffer(a.cameraUniform.Bytes(), BufferUsageUniform|BufferUsageCopyDst)
	a.cameraGroup, a.cameraLayout = a.device.CreateBindGroup(
		cameraLayoutEntries,
		[]BoundResource{{Buffer: a.cameraBuffer}},
	)

	for _, m := range b.modules {
		m.Install(a)
	}
	return a
}

// Camera uniform occupies group 0, binding 0 in every pipeline.
var cameraLayoutEntries = []BindGroupLayoutEntry{
	{Binding: 0, Visibility: ShaderStageVertex | ShaderStageFragment, Kind: BindingUniformBuffer},
}

// App owns the frame loop, the registries and every device resource.
// Entities never touch the device: setup buffers are interpreted here
// into resource tables, update buffers mutate the registries and the
// camera, render buffers replay against the frame's render pass.
type App struct {
	log    Logger
	device Device
	assets *AssetServer
	gfx    *gpuContext

	actors ActorState
	models ModelState
	tables map[uuid.UUID]*ResourceTable

	camera        Camera
	projection    Projection
	cameraUniform CameraUniform
	cameraBuffer  Buffer
	cameraGroup   BindGroup
	cameraLayout  BindGroupLayout

	input Input

	frames   int
	fpsTimer time.Duration
	fps      float64
}

func (a *App) Log() Logger {
	return a.log
}

func (a *App) Assets() *AssetServer {
	return a.assets
}

func (a *App) Camera() *Camera {
	return &a.camera
}

func (a *App) AddActor(actor Actor) {
	a.actors.Push(actor)
}

// AddModel registers a model: its setup buffer is interpreted into a
// fresh resource table and the model joins the registry.
func (a *App) AddModel(m Model) {
	table := newResourceTable()
	for _, cmd := range m.Setup().Commands() {
		a.interpretSetup(m.ID(), table, cmd)
	}
	a.tables[m.ID()] = table
	a.models.Push(m)
	a.log.Debugf("model %s registered: %d buffers, %d bind groups, %d pipelines",
		m.ID(), len(table.buffers), len(table.bindGroups), len(table.pipelines))
}

func (a *App) interpretSetup(owner uuid.UUID, table *ResourceTable, cmd SetupCommand) {
	switch c := cmd.(type) {
	case CreateBuffer:
		table.buffers = append(table.buffers, a.device.CreateBuffer(c.Data, c.Usage))

	case CreateBindGroup:
		resources := make([]BoundResource, len(c.Resources))
		for i, ref := range c.Resources {
			switch ref.Kind {
			case ResourceBuffer:
				resources[i] = BoundResource{Buffer: table.buffer(ref.Index)}
			default:
				panic(fmt.Sprintf("unknown resource kind %d", ref.Kind))
			}
		}
		bg, layout := a.device.CreateBindGroup(c.Layout, resources)
		table.bindGroups = append(table.bindGroups, bg)
		table.layouts = append(table.layouts, layout)

	case CreatePipeline:
		layouts := []BindGroupLayout{a.cameraLayout}
		if c.UsesModelTexture {
			material := a.assets.MaterialLayout()
			if material == nil {
				panic("pipeline declares a model texture slot but no mesh model has been created")
			}
			layouts = append(layouts, material)
		}
		for _, gi := range c.BindGroups {
			layouts = append(layouts, table.bindGroupLayout(gi))
		}
		p := a.device.CreatePipeline(PipelineDescriptor{
			Label:            owner.String(),
			Shader:           c.Shader,
			VertexLayouts:    c.VertexLayouts,
			BindGroupLayouts: layouts,
			DepthTest:        true,
		})
		table.pipelines = append(table.pipelines, &sharedPipeline{pipeline: p, refs: 1})

	case SharePipeline:
		ownerTable, ok := a.tables[c.Owner]
		if !ok {
			panic(fmt.Sprintf("share pipeline: entity %s is not registered", c.Owner))
		}
		sp := ownerTable.pipeline(c.Pipeline)
		sp.refs++
		table.pipelines = append(table.pipelines, sp)

	default:
		panic(fmt.Sprintf("unknown setup command %T", cmd))
	}
}

// Update runs one simulation step: every actor updates concurrently
// against the same input snapshot, then the emitted buffers are applied
// sequentially in registry order. The camera uniform is rebuilt last so
// this frame's motion is visible to this frame's culling.
func (a *App) Update(dt time.Duration) {
	snapshot := a.input
	actors := a.actors.Actors()
	buffers := make([]*CommandBuffer[UpdateCommand], len(actors))

	var wg sync.WaitGroup
	for i, actor := range actors {
		wg.Add(1)
		go func(i int, actor Actor) {
			defer wg.Done()
			buffers[i] = actor.Update(dt, &snapshot)
		}(i, actor)
	}
	wg.Wait()

	for _, buf := range buffers {
		if buf == nil {
			continue
		}
		for _, cmd := range buf.Commands() {
			a.applyCommand(cmd)
		}
	}

	a.cameraUniform.UpdateViewProj(&a.camera, &a.projection)
	a.device.WriteBuffer(a.cameraBuffer, 0, a.cameraUniform.Bytes())
}

func (a *App) applyCommand(cmd UpdateCommand) {
	switch c := cmd.(type) {
	case CreateModel:
		a.AddModel(c.Model)

	case CreateActor:
		a.actors.Push(c.Actor)

	case RemoveModel:
		if table, ok := a.tables[c.ID]; ok {
			table.release(a.device)
			delete(a.tables, c.ID)
		}
		a.models.Remove(c.ID)

	case RemoveActor:
		a.actors.Remove(c.ID)

	case MoveCamera:
		a.camera.Move(c.Offset)

	case RotateCamera:
		a.camera.Rotate(c.Yaw, c.Pitch)

	case SetFieldOfView:
		a.projection.SetFov(c.Fov)

	case RefreshBuffer:
		model, ok := a.models.Get(c.Entity)
		if !ok {
			panic(fmt.Sprintf("refresh buffer: entity %s is not registered", c.Entity))
		}
		src, ok := model.(BufferSource)
		if !ok {
			panic(fmt.Sprintf("refresh buffer: entity %s does not expose buffer data", c.Entity))
		}
		a.device.WriteBuffer(a.tables[c.Entity].buffer(c.Buffer), 0, src.BufferData(c.Buffer))

	default:
		panic(fmt.Sprintf("unknown update command %T", cmd))
	}
}

// renderModels culls the registry against the current camera and
// replays each survivor's render buffer. A model is skipped when its
// anchor sits at or beyond the far-plane radius, or when its box is
// fully outside the frustum.
func (a *App) renderModels(pass RenderPass) {
	pass.SetBindGroup(0, a.cameraGroup)

	culler := FrustumFromMatrix(a.cameraUniform.ViewProjMatrix())
	eye := a.camera.Position()
	maxDistSq := a.projection.ZFar() * a.projection.ZFar()

	for _, m := range a.models.Models() {
		if m.Position().Sub(eye).LenSqr() >= maxDistSq {
			continue
		}
		if culler.Test(m.Aabb()) == IntersectionOutside {
			continue
		}
		a.interpretRender(m, pass)
	}
}

func (a *App) interpretRender(m Model, pass RenderPass) {
	table := a.tables[m.ID()]
	for _, cmd := range m.Render().Commands() {
		switch c := cmd.(type) {
		case SetPipeline:
			pass.SetPipeline(table.pipeline(c.Pipeline).pipeline)

		case SetVertexBuffer:
			pass.SetVertexBuffer(c.Slot, table.buffer(c.Buffer))

		case SetIndexBuffer:
			pass.SetIndexBuffer(table.buffer(c.Buffer), c.Format)

		case SetBindGroup:
			pass.SetBindGroup(c.Slot, table.bindGroup(c.Group))

		case DrawIndexed:
			pass.DrawIndexed(c.IndexCount, c.InstanceCount)

		case DrawIndexedWithModel:
			mesh := a.assets.Model(c.Model)
			pass.SetVertexBuffer(0, mesh.VertexBuffer)
			pass.SetIndexBuffer(mesh.IndexBuffer, IndexFormatUint16)
			pass.SetBindGroup(1, mesh.Material)
			for i, gi := range c.ExtraBindGroups {
				pass.SetBindGroup(uint32(2+i), table.bindGroup(gi))
			}
			pass.DrawIndexed(mesh.IndexCount, c.InstanceCount)

		default:
			panic(fmt.Sprintf("unknown render command %T", cmd))
		}
	}
}

func (a *App) tickFps(dt time.Duration) {
	a.frames++
	a.fpsTimer += dt
	if a.fpsTimer >= time.Second {
		a.fps = float64(a.frames) / a.fpsTimer.Seconds()
		a.frames = 0
		a.fpsTimer = 0
	}
}

// Run drives the frame loop until the window closes: poll input, step
// the simulation, draw. Tab toggles mouse capture, Escape quits.
func (a *App) Run() error {
	if a.gfx == nil {
		return errors.New("app was built with an injected device and has no window")
	}
	defer a.gfx.destroy()

	a.log.Infof("starting frame loop (%dx%d)", a.gfx.width, a.gfx.height)
	last := time.Now()

	for !a.gfx.window.ShouldClose() {
		a.gfx.poller.poll(&a.input)

		if a.input.JustPressed[KeyTab] {
			a.input.MouseCaptured = !a.input.MouseCaptured
		}
		if a.input.JustPressed[KeyEscape] {
			a.gfx.window.SetShouldClose(true)
		}

		if w, h := a.gfx.window.GetFramebufferSize(); w != a.gfx.width || h != a.gfx.height {
			if w > 0 && h > 0 {
				a.gfx.resize(w, h)
				a.projection.Resize(w, h)
			}
		}

		now := time.Now()
		dt := now.Sub(last)
		last = now

		a.Update(dt)
		a.tickFps(dt)
		a.renderFrame()
	}
	return nil
}
