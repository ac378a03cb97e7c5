package nengine

import "unsafe"

// Device is the narrow contract the engine has with the graphics
// backend: allocate buffers, binding sets and pipelines, and write
// bytes into an existing buffer. All handles are opaque; the engine
// stores them by position and never inspects them. Allocation failures
// panic inside the implementation (the tables are built from trusted,
// in-process input and a failed allocation is unrecoverable here).
type Device interface {
	CreateBuffer(data []byte, usage BufferUsage) Buffer
	CreateBindGroup(layout []BindGroupLayoutEntry, resources []BoundResource) (BindGroup, BindGroupLayout)
	CreatePipeline(desc PipelineDescriptor) Pipeline
	CreateTexture(texels []byte, width, height uint32) Texture
	CreateSampler() Sampler
	WriteBuffer(buf Buffer, offset uint64, data []byte)

	ReleaseBuffer(buf Buffer)
	ReleaseBindGroup(bg BindGroup)
	ReleasePipeline(p Pipeline)
}

// Opaque backend handles.
type (
	Buffer          any
	BindGroup       any
	BindGroupLayout any
	Pipeline        any
	Texture         any
	Sampler         any
)

// RenderPass is the serial consumer of render commands for one frame.
// Draw-call ordering is path-dependent (pipeline and bind-group state
// carries between calls), so a pass must never be shared across
// goroutines.
type RenderPass interface {
	SetPipeline(p Pipeline)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer, format IndexFormat)
	SetBindGroup(slot uint32, bg BindGroup)
	DrawIndexed(indexCount, instanceCount uint32)
}

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageCopyDst
)

type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
	ShaderStageCompute
)

// BindingKind selects what a bind-group entry holds.
type BindingKind int

const (
	BindingUniformBuffer BindingKind = iota
	BindingStorageBuffer
	BindingReadOnlyStorageBuffer
	BindingTexture2D
	BindingSampler
)

type BindGroupLayoutEntry struct {
	Binding    uint32
	Visibility ShaderStage
	Kind       BindingKind
}

// ResourceKind tags what list of the owning entity a ResourceRef
// indexes into. Buffers are the only bindable per-entity resource;
// textures and samplers bind through the shared material group.
type ResourceKind int

const (
	ResourceBuffer ResourceKind = iota
)

// ResourceRef points at a resource by position in the owning entity's
// lists.
type ResourceRef struct {
	Kind  ResourceKind
	Index int
}

// BoundResource is a ResourceRef resolved to a live handle, ready for
// the backend. Exactly one field is set.
type BoundResource struct {
	Buffer  Buffer
	Texture Texture
	Sampler Sampler
}

type VertexStepMode int

const (
	VertexStepModeVertex VertexStepMode = iota
	VertexStepModeInstance
)

type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

type VertexLayout struct {
	ArrayStride uint64
	StepMode    VertexStepMode
	Attributes  []VertexAttribute
}

// PipelineDescriptor is handed to the device with all bind-group
// layouts already resolved, group 0 first.
type PipelineDescriptor struct {
	Label            string
	Shader           string
	VertexLayouts    []VertexLayout
	BindGroupLayouts []BindGroupLayout
	DepthTest        bool
}

// float32Bytes reinterprets a float32 slice as its raw bytes, same as
// the backend does for vertex and uniform uploads.
func float32Bytes(src []float32) []byte {
	if len(src) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*4)
}

func uint16Bytes(src []uint16) []byte {
	if len(src) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*2)
}
