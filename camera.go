package nengine

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Pitch stops just short of straight up/down so LookAtV never
// degenerates.
const safeHalfPi = math.Pi/2 - 0.0001

// Camera is the single view state, owned by the App. Actors never hold
// a reference to it; they request motion through MoveCamera /
// RotateCamera update commands and the App applies them here.
type Camera struct {
	position mgl32.Vec3
	yaw      float32
	pitch    float32
}

func NewCamera(position mgl32.Vec3, yaw, pitch float32) Camera {
	return Camera{position: position, yaw: yaw, pitch: pitch}
}

func (c *Camera) Position() mgl32.Vec3 {
	return c.position
}

func (c *Camera) Yaw() float32 {
	return c.yaw
}

func (c *Camera) Pitch() float32 {
	return c.pitch
}

func (c *Camera) forward() mgl32.Vec3 {
	sinPitch, cosPitch := sincos(c.pitch)
	sinYaw, cosYaw := sincos(c.yaw)
	return mgl32.Vec3{cosPitch * cosYaw, sinPitch, cosPitch * sinYaw}.Normalize()
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.position.Add(c.forward()), mgl32.Vec3{0, 1, 0})
}

// Move translates by a camera-relative offset: X along the right
// vector, Y straight up, Z along the forward vector flattened to the
// ground plane.
func (c *Camera) Move(offset mgl32.Vec3) {
	sinYaw, cosYaw := sincos(c.yaw)
	forward := mgl32.Vec3{cosYaw, 0, sinYaw}
	right := mgl32.Vec3{-sinYaw, 0, cosYaw}

	c.position = c.position.Add(forward.Mul(offset.Z()))
	c.position = c.position.Add(right.Mul(offset.X()))
	c.position[1] += offset.Y()
}

// Rotate applies yaw/pitch deltas in radians, clamping pitch.
func (c *Camera) Rotate(yawDelta, pitchDelta float32) {
	c.yaw += yawDelta
	c.pitch += pitchDelta

	if c.pitch < -safeHalfPi {
		c.pitch = -safeHalfPi
	} else if c.pitch > safeHalfPi {
		c.pitch = safeHalfPi
	}
}

func sincos(v float32) (float32, float32) {
	s, c := math.Sincos(float64(v))
	return float32(s), float32(c)
}

// Projection holds the perspective parameters. zFar doubles as the
// distance-culling radius.
type Projection struct {
	aspect float32
	fovY   float32
	zNear  float32
	zFar   float32
}

func NewProjection(width, height int, fovY, zNear, zFar float32) Projection {
	return Projection{
		aspect: float32(width) / float32(height),
		fovY:   fovY,
		zNear:  zNear,
		zFar:   zFar,
	}
}

// Resize updates the aspect ratio after a window resize.
func (p *Projection) Resize(width, height int) {
	p.aspect = float32(width) / float32(height)
}

func (p *Projection) SetFov(fovY float32) {
	p.fovY = fovY
}

func (p *Projection) Matrix() mgl32.Mat4 {
	return mgl32.Perspective(p.fovY, p.aspect, p.zNear, p.zFar)
}

func (p *Projection) ZFar() float32 {
	return p.zFar
}

// CameraUniform mirrors the WGSL camera struct: view position, column-
// major view-projection matrix, ambient strength plus padding to a
// 16-byte boundary.
type CameraUniform struct {
	ViewPosition [4]float32
	ViewProj     [16]float32
	Ambient      float32
	pad          [3]float32
}

func NewCameraUniform() CameraUniform {
	u := CameraUniform{Ambient: 0.01}
	ident := mgl32.Ident4()
	copy(u.ViewProj[:], ident[:])
	return u
}

// UpdateViewProj refreshes the uniform from the current camera and
// projection. Call once per frame, before culling, so this frame's
// camera motion affects this frame's visibility.
func (u *CameraUniform) UpdateViewProj(cam *Camera, proj *Projection) {
	eye := cam.Position()
	u.ViewPosition = [4]float32{eye.X(), eye.Y(), eye.Z(), 0}
	vp := proj.Matrix().Mul4(cam.ViewMatrix())
	copy(u.ViewProj[:], vp[:])
}

// ViewProjMatrix returns the stored matrix, the one the frustum is
// built from.
func (u *CameraUniform) ViewProjMatrix() mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], u.ViewProj[:])
	return m
}

// Bytes reinterprets the uniform for buffer upload.
func (u *CameraUniform) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), unsafe.Sizeof(*u))
}
