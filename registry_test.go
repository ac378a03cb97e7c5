package nengine

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

func TestModelState_PushGetRemove(t *testing.T) {
	state := NewModelState()

	a := newStubModel(mgl32.Vec3{0, 0, 0})
	b := newStubModel(mgl32.Vec3{1, 0, 0})
	state.Push(a)
	state.Push(b)

	if state.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", state.Len())
	}

	got, ok := state.Get(a.ID())
	if !ok || got != Model(a) {
		t.Errorf("Get(a) = %v, %v", got, ok)
	}

	if !state.Remove(a.ID()) {
		t.Errorf("Remove(a) = false, want true")
	}
	if _, ok := state.Get(a.ID()); ok {
		t.Errorf("removed model still found")
	}
	if _, ok := state.Get(b.ID()); !ok {
		t.Errorf("surviving model lost after swap-remove")
	}
}

func TestModelState_RemoveUnknownIsNoOp(t *testing.T) {
	state := NewModelState()
	state.Push(newStubModel(mgl32.Vec3{0, 0, 0}))

	if state.Remove(uuid.New()) {
		t.Errorf("Remove(unknown) = true, want false")
	}
	if state.Len() != 1 {
		t.Errorf("Len() = %d after removing unknown id, want 1", state.Len())
	}
}

func TestActorState_PushGetRemove(t *testing.T) {
	state := NewActorState()

	a := newScriptedActor()
	b := newScriptedActor()
	state.Push(a)
	state.Push(b)

	got, ok := state.Get(b.ID())
	if !ok || got != Actor(b) {
		t.Errorf("Get(b) = %v, %v", got, ok)
	}

	if !state.Remove(b.ID()) {
		t.Errorf("Remove(b) = false, want true")
	}
	if state.Remove(b.ID()) {
		t.Errorf("second Remove(b) = true, want false")
	}
	if state.Len() != 1 {
		t.Errorf("Len() = %d, want 1", state.Len())
	}
}

func TestCommandBuffer_PreservesOrder(t *testing.T) {
	buf := NewCommandBuffer[UpdateCommand]()
	buf.Push(MoveCamera{Offset: mgl32.Vec3{1, 0, 0}})
	buf.Push(RotateCamera{Yaw: 1})
	buf.Push(SetFieldOfView{Fov: 1})

	if buf.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", buf.Len())
	}

	commands := buf.Commands()
	if _, ok := commands[0].(MoveCamera); !ok {
		t.Errorf("commands[0] = %T, want MoveCamera", commands[0])
	}
	if _, ok := commands[1].(RotateCamera); !ok {
		t.Errorf("commands[1] = %T, want RotateCamera", commands[1])
	}
	if _, ok := commands[2].(SetFieldOfView); !ok {
		t.Errorf("commands[2] = %T, want SetFieldOfView", commands[2])
	}
}
