package nengine

import "github.com/go-gl/mathgl/mgl32"

// Aabb is an axis-aligned box in world space. Min must not exceed Max
// on any axis; construction sites guarantee it.
type Aabb struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func AabbFromParams(min, max mgl32.Vec3) Aabb {
	return Aabb{Min: min, Max: max}
}

func (a Aabb) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Intersection is the tri-state outcome of a frustum test. Partial and
// Inside both mean "draw"; the distinction is kept for callers that
// want to refine partial hits.
type Intersection int

const (
	IntersectionInside Intersection = iota
	IntersectionPartial
	IntersectionOutside
)

func (i Intersection) String() string {
	switch i {
	case IntersectionInside:
		return "inside"
	case IntersectionPartial:
		return "partial"
	case IntersectionOutside:
		return "outside"
	}
	return "unknown"
}

// FrustumCuller tests boxes against the six planes of a view-projection
// matrix. Planes are stored as (a,b,c,d) with the normal pointing into
// the frustum, normalized so plane distances are world-space distances.
type FrustumCuller struct {
	planes [6]mgl32.Vec4
}

// FrustumFromMatrix extracts the frustum planes from a view-projection
// matrix: left, right, bottom, top, near, far, each as a row-sum or
// row-difference of the matrix.
func FrustumFromMatrix(vp mgl32.Mat4) FrustumCuller {
	var c FrustumCuller
	for i := 0; i < 3; i++ {
		c.planes[2*i] = mgl32.Vec4{
			vp.At(3, 0) + vp.At(i, 0),
			vp.At(3, 1) + vp.At(i, 1),
			vp.At(3, 2) + vp.At(i, 2),
			vp.At(3, 3) + vp.At(i, 3),
		}
		c.planes[2*i+1] = mgl32.Vec4{
			vp.At(3, 0) - vp.At(i, 0),
			vp.At(3, 1) - vp.At(i, 1),
			vp.At(3, 2) - vp.At(i, 2),
			vp.At(3, 3) - vp.At(i, 3),
		}
	}
	for i, p := range c.planes {
		length := p.Vec3().Len()
		if length > 0 {
			c.planes[i] = p.Mul(1 / length)
		}
	}
	return c
}

// Test classifies a box against all six planes. The positive vertex
// (the box corner furthest along the plane normal) decides rejection:
// if it sits behind any plane the box is outside and the remaining
// planes are skipped. The negative vertex decides whether the box is
// fully inside.
func (c *FrustumCuller) Test(box Aabb) Intersection {
	inside := true
	for _, p := range c.planes {
		var positive, negative mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if p[axis] >= 0 {
				positive[axis] = box.Max[axis]
				negative[axis] = box.Min[axis]
			} else {
				positive[axis] = box.Min[axis]
				negative[axis] = box.Max[axis]
			}
		}

		if planeDistance(p, positive) < 0 {
			return IntersectionOutside
		}
		if planeDistance(p, negative) < 0 {
			inside = false
		}
	}
	if inside {
		return IntersectionInside
	}
	return IntersectionPartial
}

func planeDistance(plane mgl32.Vec4, point mgl32.Vec3) float32 {
	return plane.Vec3().Dot(point) + plane.W()
}
