package nengine

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// The command protocol is the only channel through which entities touch
// the GPU. An entity emits ordered command lists in three phases (setup,
// update, render); the App is the sole interpreter. Commands reference
// resources by position in the owning entity's resource table, never by
// handle, so a buffer is replayable against resources that did not exist
// when it was recorded.

// CommandBuffer is an ordered, replayable list of commands of one phase.
type CommandBuffer[C any] struct {
	commands []C
}

func NewCommandBuffer[C any]() *CommandBuffer[C] {
	return &CommandBuffer[C]{}
}

func (b *CommandBuffer[C]) Push(cmd C) {
	b.commands = append(b.commands, cmd)
}

// Commands returns the recorded commands in emission order.
func (b *CommandBuffer[C]) Commands() []C {
	return b.commands
}

func (b *CommandBuffer[C]) Len() int {
	return len(b.commands)
}

// SetupCommand declares a GPU resource a model needs, interpreted once
// when the model is registered. The variant set is closed.
type SetupCommand interface{ isSetupCommand() }

// CreateBuffer allocates a device buffer from a byte payload and appends
// it to the model's buffer list.
type CreateBuffer struct {
	Data  []byte
	Usage BufferUsage
}

// CreateBindGroup allocates a resource-binding set. Resources reference
// entries of the model's own resource lists by index, including buffers
// created earlier in the same setup stream.
type CreateBindGroup struct {
	Layout    []BindGroupLayoutEntry
	Resources []ResourceRef
}

// CreatePipeline composes a render pipeline. Group 0 is always the
// engine camera group; if UsesModelTexture is set, the shared material
// layout occupies group 1; the listed bind-group indices fill the
// remaining slots in order.
type CreatePipeline struct {
	BindGroups       []int
	Shader           string
	VertexLayouts    []VertexLayout
	UsesModelTexture bool
}

// SharePipeline appends another entity's pipeline to this model's
// pipeline list instead of building a new one. The pipeline is
// reference-counted and survives until its last owner is removed. The
// referenced entity must already be registered.
type SharePipeline struct {
	Owner    uuid.UUID
	Pipeline int
}

func (CreateBuffer) isSetupCommand()    {}
func (CreateBindGroup) isSetupCommand() {}
func (CreatePipeline) isSetupCommand()  {}
func (SharePipeline) isSetupCommand()   {}

// UpdateCommand is emitted by actors each frame and interpreted
// sequentially, in actor emission order, before anything is culled or
// drawn. The variant set is closed.
type UpdateCommand interface{ isUpdateCommand() }

// CreateModel registers a model: its setup commands run and it joins the
// registry this frame.
type CreateModel struct {
	Model Model
}

// CreateActor registers an actor; it starts updating next frame.
type CreateActor struct {
	Actor Actor
}

// RemoveModel drops the model with the given id and releases its
// resource table. Removing an unknown id is a no-op.
type RemoveModel struct {
	ID uuid.UUID
}

// RemoveActor drops the actor with the given id. Unknown ids are a no-op.
type RemoveActor struct {
	ID uuid.UUID
}

// MoveCamera translates the camera. The offset is camera-relative:
// X along the right vector, Y straight up, Z along the flattened
// forward vector.
type MoveCamera struct {
	Offset mgl32.Vec3
}

// RotateCamera applies yaw/pitch deltas in radians. Pitch is clamped
// just short of straight up/down.
type RotateCamera struct {
	Yaw   float32
	Pitch float32
}

// SetFieldOfView sets the projection's vertical fov in radians.
type SetFieldOfView struct {
	Fov float32
}

// RefreshBuffer re-uploads the bytes of one buffer in the target
// entity's resource table. The entity must implement BufferSource.
type RefreshBuffer struct {
	Entity uuid.UUID
	Buffer int
}

func (CreateModel) isUpdateCommand()    {}
func (CreateActor) isUpdateCommand()    {}
func (RemoveModel) isUpdateCommand()    {}
func (RemoveActor) isUpdateCommand()    {}
func (MoveCamera) isUpdateCommand()     {}
func (RotateCamera) isUpdateCommand()   {}
func (SetFieldOfView) isUpdateCommand() {}
func (RefreshBuffer) isUpdateCommand()  {}

// RenderCommand describes one step of a model's draw program, replayed
// against the shared render pass for every frame the model is visible.
// The variant set is closed.
type RenderCommand interface{ isRenderCommand() }

// SetPipeline selects a pipeline from the model's pipeline list.
type SetPipeline struct {
	Pipeline int
}

// SetVertexBuffer binds a buffer from the model's buffer list to a
// vertex slot.
type SetVertexBuffer struct {
	Slot   uint32
	Buffer int
}

// SetIndexBuffer binds a buffer from the model's buffer list as the
// index source.
type SetIndexBuffer struct {
	Buffer int
	Format IndexFormat
}

// SetBindGroup binds a group from the model's bind-group list. Slot 0
// is reserved for the engine camera group.
type SetBindGroup struct {
	Slot  uint32
	Group int
}

// DrawIndexed issues one indexed draw with the bound state.
type DrawIndexed struct {
	IndexCount    uint32
	InstanceCount uint32
}

// DrawIndexedWithModel draws a mesh asset: its vertex/index buffers bind
// at slot 0, its material group at group 1, and ExtraBindGroups (indices
// into the model's bind-group list) fill group 2 onward.
type DrawIndexedWithModel struct {
	Model           AssetId
	InstanceCount   uint32
	ExtraBindGroups []int
}

func (SetPipeline) isRenderCommand()          {}
func (SetVertexBuffer) isRenderCommand()      {}
func (SetIndexBuffer) isRenderCommand()       {}
func (SetBindGroup) isRenderCommand()         {}
func (DrawIndexed) isRenderCommand()          {}
func (DrawIndexedWithModel) isRenderCommand() {}
