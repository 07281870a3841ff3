package main

import (
	"io"
	"os"
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/rhi"
)

type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

func vertexInput() rhi.InputState {
	v := Vertex{}
	return rhi.InputState{
		Bindings: []rhi.VertexBinding{{Binding: 0, Stride: uint32(unsafe.Sizeof(v))}},
		Attributes: []rhi.VertexAttribute{
			{Location: 0, Format: rhi.VertexFloat3, Offset: uint32(unsafe.Offsetof(v.Position))},
			{Location: 1, Format: rhi.VertexFloat3, Offset: uint32(unsafe.Offsetof(v.Color))},
			{Location: 2, Format: rhi.VertexFloat2, Offset: uint32(unsafe.Offsetof(v.TexCoord))},
		},
	}
}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// key identifies a distinct position and texture coordinate pair.
type key struct {
	position, uv int
}

func (m *Mesh) addVertex(decoder *obj.Decoder, unique map[key]uint32, face obj.Face, corner int) {
	// Faces without texture coordinates carry an out of range UV index.
	k := key{position: face.Vertices[corner], uv: -1}
	if corner < len(face.Uvs) {
		if uv := face.Uvs[corner]; uv >= 0 && uv*2+1 < len(decoder.Uvs) {
			k.uv = uv
		}
	}

	index, ok := unique[k]
	if !ok {
		v := Vertex{
			Position: mgl32.Vec3{
				decoder.Vertices[k.position*3],
				decoder.Vertices[k.position*3+1],
				decoder.Vertices[k.position*3+2],
			},
			Color: mgl32.Vec3{1, 1, 1},
		}
		if k.uv >= 0 {
			v.TexCoord = mgl32.Vec2{
				decoder.Uvs[k.uv*2],
				1.0 - decoder.Uvs[k.uv*2+1],
			}
		}

		index = uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, v)
		unique[k] = index
	}
	m.Indices = append(m.Indices, index)
}

// DecodeMesh triangulates every face as a fan and shares vertices that
// repeat the same position and texture coordinate.
func DecodeMesh(mesh, material io.Reader) (*Mesh, error) {
	if material == nil {
		material = strings.NewReader("")
	}
	decoder, err := obj.DecodeReader(mesh, material)
	if err != nil {
		return nil, errors.Wrap(err, "decoding OBJ")
	}

	m := &Mesh{}
	unique := make(map[key]uint32)
	for _, object := range decoder.Objects {
		for _, face := range object.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				m.addVertex(decoder, unique, face, 0)
				m.addVertex(decoder, unique, face, i-1)
				m.addVertex(decoder, unique, face, i)
			}
		}
	}
	if len(m.Indices) == 0 {
		return nil, errors.New("mesh has no faces")
	}
	return m, nil
}

// LoadMesh reads an OBJ file. materialPath may be empty.
func LoadMesh(meshPath, materialPath string) (*Mesh, error) {
	meshFile, err := os.Open(meshPath)
	if err != nil {
		return nil, err
	}
	defer meshFile.Close()

	var material io.Reader
	if materialPath != "" {
		matFile, err := os.Open(materialPath)
		if err != nil {
			return nil, err
		}
		defer matFile.Close()
		material = matFile
	}
	return DecodeMesh(meshFile, material)
}
