package main

import (
	"image"
	"image/color"
	"math"
	"strings"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/rhi"
)

const quad = `o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`

func TestDecodeMeshFan(t *testing.T) {
	mesh, err := DecodeMesh(strings.NewReader(quad), nil)
	if err != nil {
		t.Fatalf("DecodeMesh: %v", err)
	}
	if len(mesh.Vertices) != 4 {
		t.Fatalf("got %d vertices, want 4 shared ones", len(mesh.Vertices))
	}
	want := []uint32{0, 1, 2, 0, 2, 3}
	if len(mesh.Indices) != len(want) {
		t.Fatalf("indices = %v, want %v", mesh.Indices, want)
	}
	for i := range want {
		if mesh.Indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", mesh.Indices, want)
		}
	}

	third := mesh.Vertices[2]
	if third.Position != (mgl32.Vec3{1, 1, 0}) {
		t.Errorf("position = %v, want (1, 1, 0)", third.Position)
	}
	// V is flipped to put the origin at the top left.
	if third.TexCoord != (mgl32.Vec2{1, 0}) {
		t.Errorf("texcoord = %v, want (1, 0)", third.TexCoord)
	}
	if third.Color != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("color = %v, want white", third.Color)
	}
}

func TestDecodeMeshWithoutUVs(t *testing.T) {
	src := "o tri\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	mesh, err := DecodeMesh(strings.NewReader(src), nil)
	if err != nil {
		t.Fatalf("DecodeMesh: %v", err)
	}
	if len(mesh.Vertices) != 3 || len(mesh.Indices) != 3 {
		t.Fatalf("got %d vertices and %d indices, want 3 and 3", len(mesh.Vertices), len(mesh.Indices))
	}
	for i, v := range mesh.Vertices {
		if v.TexCoord != (mgl32.Vec2{}) {
			t.Errorf("vertex %d texcoord = %v, want zero", i, v.TexCoord)
		}
	}
}

func TestDecodeMeshEmpty(t *testing.T) {
	if _, err := DecodeMesh(strings.NewReader("o empty\nv 0 0 0\n"), nil); err == nil {
		t.Fatal("mesh without faces decoded")
	}
}

func TestVertexInput(t *testing.T) {
	input := vertexInput()
	if got := input.Bindings[0].Stride; got != uint32(unsafe.Sizeof(Vertex{})) {
		t.Errorf("stride = %d", got)
	}
	want := []struct {
		format rhi.VertexFormat
		offset uint32
	}{
		{rhi.VertexFloat3, 0},
		{rhi.VertexFloat3, 12},
		{rhi.VertexFloat2, 24},
	}
	for i, w := range want {
		a := input.Attributes[i]
		if a.Location != uint32(i) || a.Format != w.format || a.Offset != w.offset {
			t.Errorf("attribute %d = %+v, want format %d at offset %d", i, a, w.format, w.offset)
		}
	}
}

func TestToRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(2, 3, 4, 4))
	src.Set(2, 3, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	src.Set(3, 3, color.RGBA{R: 40, G: 50, B: 60, A: 255})

	pixels, extent := toRGBA(src)
	if extent != (rhi.Extent2D{Width: 2, Height: 1}) {
		t.Fatalf("extent = %+v, want 2x1", extent)
	}
	want := []byte{10, 20, 30, 255, 40, 50, 60, 255}
	if string(pixels) != string(want) {
		t.Errorf("pixels = %v, want %v", pixels, want)
	}
}

func TestProjectionDepthRange(t *testing.T) {
	proj := projection(4.0 / 3.0)
	for _, tc := range []struct {
		z, depth float32
	}{
		{-0.1, 0},
		{-10, 1},
	} {
		clip := proj.Mul4x1(mgl32.Vec4{0, 0, tc.z, 1})
		if got := clip.Z() / clip.W(); math.Abs(float64(got-tc.depth)) > 1e-5 {
			t.Errorf("depth at z=%v is %v, want %v", tc.z, got, tc.depth)
		}
	}

	up := proj.Mul4x1(mgl32.Vec4{0, 1, -1, 1})
	if up.Y() >= 0 {
		t.Errorf("up maps to clip y %v, want negative", up.Y())
	}
}

func TestUniformsRepeat(t *testing.T) {
	extent := rhi.Extent2D{Width: 800, Height: 600}
	a := uniforms(1, extent)
	b := uniforms(5, extent)
	if !a.Model.ApproxEqualThreshold(b.Model, 1e-4) {
		t.Errorf("rotation does not repeat every 4 seconds")
	}
}
