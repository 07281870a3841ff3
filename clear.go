package rhi

// ClearValue is one of ClearColorFloat, ClearColorInt, ClearColorUint or
// ClearDepthStencil.
type ClearValue interface {
	isClearValue()
}

type ClearColorFloat [4]float32

type ClearColorInt [4]int32

type ClearColorUint [4]uint32

type ClearDepthStencil struct {
	Depth   float32
	Stencil uint32
}

func (ClearColorFloat) isClearValue()   {}
func (ClearColorInt) isClearValue()     {}
func (ClearColorUint) isClearValue()    {}
func (ClearDepthStencil) isClearValue() {}

// DefaultColorClear is used for colour attachments without a clear value.
var DefaultColorClear = ClearColorFloat{0, 0, 0, 1}

// DefaultDepthClear is used for depth/stencil attachments without a clear value.
var DefaultDepthClear = ClearDepthStencil{Depth: 1, Stencil: 0}

// IsColor reports whether v holds one of the colour variants.
func IsColor(v ClearValue) bool {
	switch v.(type) {
	case ClearColorFloat, ClearColorInt, ClearColorUint:
		return true
	}
	return false
}
