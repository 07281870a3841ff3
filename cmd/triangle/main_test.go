package main

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"
)

func TestClearColorRange(t *testing.T) {
	for s := 0.0; s < 2*math.Pi; s += 0.1 {
		c := clearColor(s)
		for i := 0; i < 3; i++ {
			if c[i] < 0 || c[i] > 0.5 {
				t.Fatalf("clearColor(%v)[%d] = %v, outside [0, 0.5]", s, i, c[i])
			}
		}
		if c[3] != 1 {
			t.Fatalf("clearColor(%v) alpha = %v", s, c[3])
		}
	}
}

func TestVertexLayoutMatchesUpload(t *testing.T) {
	if got, want := binary.Size(vertices), len(vertices)*int(unsafe.Sizeof(Vertex{})); got != want {
		t.Errorf("uploaded %d bytes, pipeline strides over %d", got, want)
	}
	input := vertexInput()
	if input.Bindings[0].Stride != uint32(unsafe.Sizeof(Vertex{})) || input.Attributes[1].Offset != 8 {
		t.Errorf("input state = %+v", input)
	}
}
