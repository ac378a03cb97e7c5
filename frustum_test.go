package nengine

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFrustumFromMatrix_IdentityClipCube(t *testing.T) {
	// With an identity view-projection the frustum is the clip cube
	// [-1,1]^3 (z in [0,1] for the near plane would need a real
	// projection; identity keeps the symmetric form).
	culler := FrustumFromMatrix(mgl32.Ident4())

	tests := []struct {
		name string
		box  Aabb
		want Intersection
	}{
		{
			name: "fully inside",
			box:  AabbFromParams(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5}),
			want: IntersectionInside,
		},
		{
			name: "straddling the right plane",
			box:  AabbFromParams(mgl32.Vec3{0.5, -0.5, -0.5}, mgl32.Vec3{2, 0.5, 0.5}),
			want: IntersectionPartial,
		},
		{
			name: "beyond the right plane",
			box:  AabbFromParams(mgl32.Vec3{2, -0.5, -0.5}, mgl32.Vec3{3, 0.5, 0.5}),
			want: IntersectionOutside,
		},
		{
			name: "beyond the left plane",
			box:  AabbFromParams(mgl32.Vec3{-3, 0, 0}, mgl32.Vec3{-2, 1, 1}),
			want: IntersectionOutside,
		},
		{
			name: "surrounding the whole cube",
			box:  AabbFromParams(mgl32.Vec3{-10, -10, -10}, mgl32.Vec3{10, 10, 10}),
			want: IntersectionPartial,
		},
		{
			name: "touching a face from inside",
			box:  AabbFromParams(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}),
			want: IntersectionInside,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := culler.Test(tt.box); got != tt.want {
				t.Errorf("Test(%v) = %v, want %v", tt.box, got, tt.want)
			}
		})
	}
}

func TestFrustumFromMatrix_PlanesAreNormalized(t *testing.T) {
	proj := mgl32.Perspective(0.78, 16.0/9.0, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{3, 2, 1}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	culler := FrustumFromMatrix(proj.Mul4(view))

	for i, p := range culler.planes {
		length := p.Vec3().Len()
		if length < 0.999 || length > 1.001 {
			t.Errorf("plane %d normal length = %v, want 1", i, length)
		}
	}
}

func TestFrustumCuller_PerspectiveView(t *testing.T) {
	// Camera at the origin looking down -Z.
	proj := mgl32.Perspective(0.78, 16.0/9.0, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	culler := FrustumFromMatrix(proj.Mul4(view))

	ahead := AabbFromParams(mgl32.Vec3{-1, -1, -11}, mgl32.Vec3{1, 1, -9})
	if got := culler.Test(ahead); got == IntersectionOutside {
		t.Errorf("box straight ahead culled: %v", got)
	}

	behind := AabbFromParams(mgl32.Vec3{-1, -1, 9}, mgl32.Vec3{1, 1, 11})
	if got := culler.Test(behind); got != IntersectionOutside {
		t.Errorf("box behind the camera not culled: %v", got)
	}

	beyondFar := AabbFromParams(mgl32.Vec3{-1, -1, -210}, mgl32.Vec3{1, 1, -201})
	if got := culler.Test(beyondFar); got != IntersectionOutside {
		t.Errorf("box beyond the far plane not culled: %v", got)
	}

	farOffAxis := AabbFromParams(mgl32.Vec3{200, -1, -11}, mgl32.Vec3{202, 1, -9})
	if got := culler.Test(farOffAxis); got != IntersectionOutside {
		t.Errorf("box far off to the side not culled: %v", got)
	}
}

func TestFrustumCuller_ShrinkingInsideBoxStaysInside(t *testing.T) {
	culler := FrustumFromMatrix(mgl32.Ident4())

	box := AabbFromParams(mgl32.Vec3{-0.8, -0.8, -0.8}, mgl32.Vec3{0.8, 0.8, 0.8})
	if culler.Test(box) != IntersectionInside {
		t.Fatalf("starting box not inside")
	}

	for i := 0; i < 5; i++ {
		box.Min = box.Min.Mul(0.5)
		box.Max = box.Max.Mul(0.5)
		if got := culler.Test(box); got != IntersectionInside {
			t.Errorf("shrunk box %v = %v, want inside", box, got)
		}
	}
}

func TestIntersection_String(t *testing.T) {
	if IntersectionInside.String() != "inside" ||
		IntersectionPartial.String() != "partial" ||
		IntersectionOutside.String() != "outside" {
		t.Errorf("unexpected Intersection string forms: %v %v %v",
			IntersectionInside, IntersectionPartial, IntersectionOutside)
	}
}

func TestAabb_Center(t *testing.T) {
	box := AabbFromParams(mgl32.Vec3{0, 2, -4}, mgl32.Vec3{2, 4, 0})
	want := mgl32.Vec3{1, 3, -2}
	if got := box.Center(); got != want {
		t.Errorf("Center() = %v, want %v", got, want)
	}
}
