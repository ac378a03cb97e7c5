package nengine

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	minFov = 0.26 // ~15 degrees
	maxFov = 2.6  // ~150 degrees
)

// FlyingCamera is the free-look camera controller. It owns no camera
// state; it translates the input snapshot into MoveCamera /
// RotateCamera / SetFieldOfView commands and lets the App apply them.
type FlyingCamera struct {
	id          uuid.UUID
	Speed       float32
	Sensitivity float32
	fov         float32
}

func NewFlyingCamera(speed, sensitivity, fov float32) *FlyingCamera {
	return &FlyingCamera{
		id:          uuid.New(),
		Speed:       speed,
		Sensitivity: sensitivity,
		fov:         fov,
	}
}

func (a *FlyingCamera) ID() uuid.UUID {
	return a.id
}

func (a *FlyingCamera) Update(dt time.Duration, input *Input) *CommandBuffer[UpdateCommand] {
	buf := NewCommandBuffer[UpdateCommand]()

	var move mgl32.Vec3
	if input.Pressed[KeyW] {
		move[2] += 1
	}
	if input.Pressed[KeyS] {
		move[2] -= 1
	}
	if input.Pressed[KeyD] {
		move[0] += 1
	}
	if input.Pressed[KeyA] {
		move[0] -= 1
	}
	if input.Pressed[KeySpace] {
		move[1] += 1
	}
	if input.Pressed[KeyControl] {
		move[1] -= 1
	}

	if move.Len() > 0 {
		buf.Push(MoveCamera{Offset: move.Normalize().Mul(a.Speed * float32(dt.Seconds()))})
	}

	if input.MouseCaptured && (input.MouseDeltaX != 0 || input.MouseDeltaY != 0) {
		buf.Push(RotateCamera{
			Yaw:   float32(input.MouseDeltaX) * a.Sensitivity,
			Pitch: -float32(input.MouseDeltaY) * a.Sensitivity,
		})
	}

	if input.ScrollY != 0 {
		a.fov -= float32(input.ScrollY) * 0.05
		if a.fov < minFov {
			a.fov = minFov
		} else if a.fov > maxFov {
			a.fov = maxFov
		}
		buf.Push(SetFieldOfView{Fov: a.fov})
	}

	return buf
}
