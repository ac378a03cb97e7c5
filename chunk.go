package nengine

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// ChunkSize is the chunk edge length in blocks (and world units per
// chunk-grid step). 16 needs 4 bits per local axis; the Block codec
// below is fixed to that and must never be mixed with another width.
const ChunkSize = 16

const (
	blockAxisBits = 4
	blockAxisMask = 1<<blockAxisBits - 1
	blockPosBits  = 3 * blockAxisBits
	blockPosMask  = 1<<blockPosBits - 1
	blockIDShift  = blockPosBits
)

// Block packs one voxel into a uint32: local position in the low 12
// bits (x<<8 | y<<4 | z), block-type id in the 16 bits above. Encode
// and decode are exact inverses, and WithPosition/WithID compose in
// either order.
type Block uint32

func NewBlock() Block {
	return 0
}

// WithPosition replaces the position field. Coordinates outside the
// chunk edge are a programming error.
func (b Block) WithPosition(p [3]uint32) Block {
	for _, c := range p {
		if c >= ChunkSize {
			panic(fmt.Sprintf("block position %v exceeds chunk edge %d", p, ChunkSize))
		}
	}
	pos := p[0]<<(2*blockAxisBits) | p[1]<<blockAxisBits | p[2]
	return Block(uint32(b)>>blockPosBits<<blockPosBits | pos)
}

// WithID replaces the id field, keeping the position bits.
func (b Block) WithID(id uint16) Block {
	pos := uint32(b) & blockPosMask
	return Block(uint32(id)<<blockIDShift | pos)
}

func (b Block) Position() [3]uint32 {
	pos := uint32(b) & blockPosMask
	return [3]uint32{
		pos >> (2 * blockAxisBits),
		pos >> blockAxisBits & blockAxisMask,
		pos & blockAxisMask,
	}
}

func (b Block) ID() uint16 {
	return uint16(uint32(b) >> blockIDShift)
}

// Chunk is a fixed-size cube of blocks sharing one spatial region and
// one set of render resources. Its Aabb is fixed at construction:
// chunks do not move or resize.
type Chunk struct {
	id     uuid.UUID
	origin mgl32.Vec3 // chunk-grid coordinates, not world units
	world  mgl32.Vec3 // origin scaled to world units
	aabb   Aabb
	blocks []Block

	shareOwner    uuid.UUID
	sharePipeline int
	shared        bool
}

// NewChunk creates an empty chunk at the given chunk-grid origin.
func NewChunk(origin mgl32.Vec3) *Chunk {
	world := origin.Mul(ChunkSize)
	return &Chunk{
		id:     uuid.New(),
		origin: origin,
		world:  world,
		aabb:   AabbFromParams(world, world.Add(mgl32.Vec3{ChunkSize, ChunkSize, ChunkSize})),
	}
}

func (c *Chunk) ID() uuid.UUID {
	return c.id
}

func (c *Chunk) Aabb() Aabb {
	return c.aabb
}

// Position returns the chunk's world-space origin corner.
func (c *Chunk) Position() mgl32.Vec3 {
	return c.world
}

func (c *Chunk) Origin() mgl32.Vec3 {
	return c.origin
}

func (c *Chunk) BlockCount() int {
	return len(c.blocks)
}

func (c *Chunk) AddBlock(b Block) {
	c.blocks = append(c.blocks, b)
}

// AddBlockData places a block of the given type at a local coordinate.
func (c *Chunk) AddBlockData(pos [3]uint32, id uint16) {
	c.blocks = append(c.blocks, NewBlock().WithPosition(pos).WithID(id))
}

// ExistsBlock reports whether any block decodes to the given local
// position. The block list is small; a linear scan is fine.
func (c *Chunk) ExistsBlock(pos [3]uint32) bool {
	for _, b := range c.blocks {
		if b.Position() == pos {
			return true
		}
	}
	return false
}

// RemoveBlock drops the block at the given local position, if present.
// Swap-remove: block order is not preserved.
func (c *Chunk) RemoveBlock(pos [3]uint32) {
	for i, b := range c.blocks {
		if b.Position() == pos {
			c.blocks[i] = c.blocks[len(c.blocks)-1]
			c.blocks = c.blocks[:len(c.blocks)-1]
			return
		}
	}
}

// ShareRenderPipeline makes Setup borrow another entity's pipeline
// instead of creating one. The owner must be registered first.
func (c *Chunk) ShareRenderPipeline(owner uuid.UUID, pipeline int) {
	c.shareOwner = owner
	c.sharePipeline = pipeline
	c.shared = true
}

// instanceData expands blocks to per-instance world positions, one
// homogeneous vec4 per block. World position is the chunk's world
// origin plus the decoded local coordinate; chunk and blocks must never
// disagree on that transform.
func (c *Chunk) instanceData() []float32 {
	data := make([]float32, 0, len(c.blocks)*4)
	for _, b := range c.blocks {
		p := b.Position()
		data = append(data,
			c.world.X()+float32(p[0]),
			c.world.Y()+float32(p[1]),
			c.world.Z()+float32(p[2]),
			1.0,
		)
	}
	return data
}

// Chunk buffer positions, fixed by Setup's emission order.
const (
	chunkVertexBuffer   = 0
	chunkIndexBuffer    = 1
	chunkInstanceBuffer = 2
)

func (c *Chunk) Setup() *CommandBuffer[SetupCommand] {
	buf := NewCommandBuffer[SetupCommand]()
	buf.Push(CreateBuffer{Data: float32Bytes(cubeVertices), Usage: BufferUsageVertex})
	buf.Push(CreateBuffer{Data: uint16Bytes(cubeIndices), Usage: BufferUsageIndex})
	buf.Push(CreateBuffer{Data: float32Bytes(c.instanceData()), Usage: BufferUsageVertex | BufferUsageCopyDst})

	if c.shared {
		buf.Push(SharePipeline{Owner: c.shareOwner, Pipeline: c.sharePipeline})
	} else {
		buf.Push(CreatePipeline{
			Shader: chunkShader,
			VertexLayouts: []VertexLayout{
				{
					ArrayStride: 3 * 4,
					StepMode:    VertexStepModeVertex,
					Attributes: []VertexAttribute{
						{Format: VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					},
				},
				{
					ArrayStride: 4 * 4,
					StepMode:    VertexStepModeInstance,
					Attributes: []VertexAttribute{
						{Format: VertexFormatFloat32x4, Offset: 0, ShaderLocation: 5},
					},
				},
			},
		})
	}
	return buf
}

// Render draws all blocks with one instanced call. A chunk with zero
// blocks still emits the full program and draws zero instances.
func (c *Chunk) Render() *CommandBuffer[RenderCommand] {
	buf := NewCommandBuffer[RenderCommand]()
	buf.Push(SetPipeline{Pipeline: 0})
	buf.Push(SetVertexBuffer{Slot: 0, Buffer: chunkVertexBuffer})
	buf.Push(SetVertexBuffer{Slot: 1, Buffer: chunkInstanceBuffer})
	buf.Push(SetIndexBuffer{Buffer: chunkIndexBuffer, Format: IndexFormatUint16})
	buf.Push(DrawIndexed{IndexCount: uint32(len(cubeIndices)), InstanceCount: uint32(len(c.blocks))})
	return buf
}

// BufferData lets the orchestrator re-upload a chunk buffer after block
// edits (RefreshBuffer targets the instance buffer).
func (c *Chunk) BufferData(index int) []byte {
	switch index {
	case chunkVertexBuffer:
		return float32Bytes(cubeVertices)
	case chunkIndexBuffer:
		return uint16Bytes(cubeIndices)
	case chunkInstanceBuffer:
		return float32Bytes(c.instanceData())
	}
	panic(fmt.Sprintf("chunk has no buffer %d", index))
}

// Unit cube centered on the block's local origin corner.
var cubeVertices = []float32{
	0, 0, 0,
	1, 0, 0,
	1, 1, 0,
	0, 1, 0,
	0, 0, 1,
	1, 0, 1,
	1, 1, 1,
	0, 1, 1,
}

var cubeIndices = []uint16{
	0, 2, 1, 0, 3, 2, // back
	4, 5, 6, 4, 6, 7, // front
	0, 4, 7, 0, 7, 3, // left
	1, 6, 5, 1, 2, 6, // right
	3, 7, 6, 3, 6, 2, // top
	0, 1, 5, 0, 5, 4, // bottom
}

const chunkShader = `
struct Camera {
    view_pos: vec4<f32>,
    view_proj: mat4x4<f32>,
    ambient: f32,
};
@group(0) @binding(0) var<uniform> camera: Camera;

struct VsIn {
    @location(0) position: vec3<f32>,
    @location(5) instance: vec4<f32>,
};

struct VsOut {
    @builtin(position) clip: vec4<f32>,
    @location(0) world: vec3<f32>,
};

@vertex
fn vs_main(in: VsIn) -> VsOut {
    var out: VsOut;
    let world = in.position + in.instance.xyz;
    out.world = world;
    out.clip = camera.view_proj * vec4<f32>(world, 1.0);
    return out;
}

@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    let shade = clamp(fract(in.world.y * 0.25) * 0.5 + camera.ambient + 0.4, 0.0, 1.0);
    return vec4<f32>(0.35 * shade, 0.65 * shade, 0.3 * shade, 1.0);
}
`
