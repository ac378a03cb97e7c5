package nengine

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_RoundTrip(t *testing.T) {
	tests := []struct {
		pos [3]uint32
		id  uint16
	}{
		{[3]uint32{0, 0, 0}, 0},
		{[3]uint32{1, 2, 3}, 7},
		{[3]uint32{15, 15, 15}, 65535},
		{[3]uint32{15, 0, 15}, 1},
		{[3]uint32{0, 15, 0}, 256},
	}

	for _, tt := range tests {
		b := NewBlock().WithPosition(tt.pos).WithID(tt.id)
		if b.Position() != tt.pos {
			t.Errorf("Position() = %v, want %v", b.Position(), tt.pos)
		}
		if b.ID() != tt.id {
			t.Errorf("ID() = %v, want %v", b.ID(), tt.id)
		}
	}
}

func TestBlock_FieldsAreIndependent(t *testing.T) {
	b := NewBlock().WithPosition([3]uint32{5, 6, 7}).WithID(42)

	// Rewriting one field must not disturb the other.
	b = b.WithID(99)
	assert.Equal(t, [3]uint32{5, 6, 7}, b.Position())
	assert.Equal(t, uint16(99), b.ID())

	b = b.WithPosition([3]uint32{1, 1, 1})
	assert.Equal(t, [3]uint32{1, 1, 1}, b.Position())
	assert.Equal(t, uint16(99), b.ID())
}

func TestBlock_CompositionOrderDoesNotMatter(t *testing.T) {
	a := NewBlock().WithPosition([3]uint32{9, 8, 7}).WithID(300)
	b := NewBlock().WithID(300).WithPosition([3]uint32{9, 8, 7})
	assert.Equal(t, a, b)
}

func TestBlock_PositionOutOfRangePanics(t *testing.T) {
	require.Panics(t, func() { NewBlock().WithPosition([3]uint32{16, 0, 0}) })
	require.Panics(t, func() { NewBlock().WithPosition([3]uint32{0, 16, 0}) })
	require.Panics(t, func() { NewBlock().WithPosition([3]uint32{0, 0, 16}) })
}

func TestChunk_WorldPlacement(t *testing.T) {
	chunk := NewChunk(mgl32.Vec3{2, 0, -1})

	assert.Equal(t, mgl32.Vec3{32, 0, -16}, chunk.Position())
	assert.Equal(t, mgl32.Vec3{32, 0, -16}, chunk.Aabb().Min)
	assert.Equal(t, mgl32.Vec3{48, 16, 0}, chunk.Aabb().Max)
}

func TestChunk_AddExistsRemove(t *testing.T) {
	chunk := NewChunk(mgl32.Vec3{0, 0, 0})

	chunk.AddBlockData([3]uint32{1, 2, 3}, 7)
	chunk.AddBlockData([3]uint32{4, 5, 6}, 8)
	assert.Equal(t, 2, chunk.BlockCount())
	assert.True(t, chunk.ExistsBlock([3]uint32{1, 2, 3}))
	assert.False(t, chunk.ExistsBlock([3]uint32{0, 0, 1}))

	chunk.RemoveBlock([3]uint32{1, 2, 3})
	assert.Equal(t, 1, chunk.BlockCount())
	assert.False(t, chunk.ExistsBlock([3]uint32{1, 2, 3}))
	assert.True(t, chunk.ExistsBlock([3]uint32{4, 5, 6}))

	// Removing a position that is not there changes nothing.
	chunk.RemoveBlock([3]uint32{1, 2, 3})
	assert.Equal(t, 1, chunk.BlockCount())
}

func TestChunk_InstanceDataIsWorldSpace(t *testing.T) {
	chunk := NewChunk(mgl32.Vec3{1, 0, 0})
	chunk.AddBlockData([3]uint32{1, 2, 3}, 7)

	assert.Equal(t, []float32{17, 2, 3, 1}, chunk.instanceData())
}

func TestChunk_OriginChunkSingleBlock(t *testing.T) {
	// Chunk at the origin contributes zero offset: the instance lands
	// exactly at the block's local coordinate.
	chunk := NewChunk(mgl32.Vec3{0, 0, 0})
	chunk.AddBlockData([3]uint32{1, 2, 3}, 7)

	require.Equal(t, 1, chunk.BlockCount())
	assert.Equal(t, [3]uint32{1, 2, 3}, chunk.blocks[0].Position())
	assert.Equal(t, uint16(7), chunk.blocks[0].ID())
	assert.Equal(t, []float32{1, 2, 3, 1}, chunk.instanceData())

	commands := chunk.Render().Commands()
	draw := commands[len(commands)-1].(DrawIndexed)
	assert.Equal(t, uint32(1), draw.InstanceCount)
}

func TestChunk_SetupCreatesBuffersAndPipeline(t *testing.T) {
	chunk := NewChunk(mgl32.Vec3{0, 0, 0})
	commands := chunk.Setup().Commands()
	require.Len(t, commands, 4)

	vertex, ok := commands[0].(CreateBuffer)
	require.True(t, ok)
	assert.Equal(t, BufferUsageVertex, vertex.Usage)

	index, ok := commands[1].(CreateBuffer)
	require.True(t, ok)
	assert.Equal(t, BufferUsageIndex, index.Usage)

	instance, ok := commands[2].(CreateBuffer)
	require.True(t, ok)
	assert.Equal(t, BufferUsageVertex|BufferUsageCopyDst, instance.Usage)

	pipeline, ok := commands[3].(CreatePipeline)
	require.True(t, ok)
	require.Len(t, pipeline.VertexLayouts, 2)
	assert.Equal(t, VertexStepModeVertex, pipeline.VertexLayouts[0].StepMode)
	assert.Equal(t, VertexStepModeInstance, pipeline.VertexLayouts[1].StepMode)
}

func TestChunk_SetupWithSharedPipeline(t *testing.T) {
	owner := NewChunk(mgl32.Vec3{0, 0, 0})
	chunk := NewChunk(mgl32.Vec3{1, 0, 0})
	chunk.ShareRenderPipeline(owner.ID(), 0)

	commands := chunk.Setup().Commands()
	require.Len(t, commands, 4)

	share, ok := commands[3].(SharePipeline)
	require.True(t, ok)
	assert.Equal(t, owner.ID(), share.Owner)
	assert.Equal(t, 0, share.Pipeline)
}

func TestChunk_RenderProgram(t *testing.T) {
	chunk := NewChunk(mgl32.Vec3{0, 0, 0})
	chunk.AddBlockData([3]uint32{0, 0, 0}, 1)
	chunk.AddBlockData([3]uint32{1, 0, 0}, 1)

	commands := chunk.Render().Commands()
	require.Len(t, commands, 5)

	draw, ok := commands[4].(DrawIndexed)
	require.True(t, ok)
	assert.Equal(t, uint32(36), draw.IndexCount)
	assert.Equal(t, uint32(2), draw.InstanceCount)
}

func TestChunk_EmptyChunkDrawsNothing(t *testing.T) {
	chunk := NewChunk(mgl32.Vec3{0, 0, 0})

	commands := chunk.Render().Commands()
	draw := commands[len(commands)-1].(DrawIndexed)
	assert.Equal(t, uint32(0), draw.InstanceCount)
}

func TestChunk_BufferData(t *testing.T) {
	chunk := NewChunk(mgl32.Vec3{0, 0, 0})
	chunk.AddBlockData([3]uint32{2, 0, 0}, 1)

	assert.Equal(t, float32Bytes(cubeVertices), chunk.BufferData(chunkVertexBuffer))
	assert.Equal(t, uint16Bytes(cubeIndices), chunk.BufferData(chunkIndexBuffer))
	assert.Equal(t, float32Bytes([]float32{2, 0, 0, 1}), chunk.BufferData(chunkInstanceBuffer))
	require.Panics(t, func() { chunk.BufferData(3) })
}
