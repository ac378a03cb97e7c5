package nengine

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Actor is a behavioral entity. Update is a pure function of elapsed
// time and the frame's input snapshot; all side effects travel through
// the returned command buffer. Updates for different actors may run
// concurrently, so an Update must not touch shared state.
type Actor interface {
	ID() uuid.UUID
	Update(dt time.Duration, input *Input) *CommandBuffer[UpdateCommand]
}

// Model is a renderable entity. Setup runs once at registration and
// declares resources; Render describes the draw program replayed every
// frame the model survives culling. Models never see device handles.
type Model interface {
	ID() uuid.UUID
	Aabb() Aabb
	Position() mgl32.Vec3
	Setup() *CommandBuffer[SetupCommand]
	Render() *CommandBuffer[RenderCommand]
}

// BufferSource is implemented by models whose buffers can be refreshed
// in place (RefreshBuffer). Index addresses the model's buffer list.
type BufferSource interface {
	BufferData(index int) []byte
}

// ModelState owns all live models. Tables stay small, so lookup is a
// linear scan and removal is swap-remove: registry (and therefore draw)
// order is unspecified after a removal.
type ModelState struct {
	models []Model
}

func NewModelState() ModelState {
	return ModelState{}
}

func (s *ModelState) Push(m Model) {
	s.models = append(s.models, m)
}

func (s *ModelState) Get(id uuid.UUID) (Model, bool) {
	for _, m := range s.models {
		if m.ID() == id {
			return m, true
		}
	}
	return nil, false
}

// Remove drops the model with the given id and reports whether it was
// present. Removing an unknown id is a no-op.
func (s *ModelState) Remove(id uuid.UUID) bool {
	for i, m := range s.models {
		if m.ID() == id {
			s.models[i] = s.models[len(s.models)-1]
			s.models = s.models[:len(s.models)-1]
			return true
		}
	}
	return false
}

func (s *ModelState) Models() []Model {
	return s.models
}

func (s *ModelState) Len() int {
	return len(s.models)
}

// ActorState owns all live actors, with the same lookup and removal
// semantics as ModelState.
type ActorState struct {
	actors []Actor
}

func NewActorState() ActorState {
	return ActorState{}
}

func (s *ActorState) Push(a Actor) {
	s.actors = append(s.actors, a)
}

func (s *ActorState) Get(id uuid.UUID) (Actor, bool) {
	for _, a := range s.actors {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

func (s *ActorState) Remove(id uuid.UUID) bool {
	for i, a := range s.actors {
		if a.ID() == id {
			s.actors[i] = s.actors[len(s.actors)-1]
			s.actors = s.actors[:len(s.actors)-1]
			return true
		}
	}
	return false
}

func (s *ActorState) Actors() []Actor {
	return s.actors
}

func (s *ActorState) Len() int {
	return len(s.actors)
}
