package rhi

import "unsafe"

type fakePhysicalDevice struct {
	PhysicalDevice
	families []QueueFamilyProperties
}

func (p *fakePhysicalDevice) QueueFamilyProperties(family int) (QueueFamilyProperties, error) {
	if family < 0 || family >= len(p.families) {
		return QueueFamilyProperties{}, InvalidArgumentf("QueueFamilyProperties: family %d out of range", family)
	}
	return p.families[family], nil
}

type fakeBuffer struct {
	size  uint64
	usage BufferUsage
}

func (b *fakeBuffer) NativeHandle() any            { return b }
func (b *fakeBuffer) Destroy()                     {}
func (b *fakeBuffer) Size() uint64                 { return b.size }
func (b *fakeBuffer) Usage() BufferUsage           { return b.usage }
func (b *fakeBuffer) Allocation() Allocation       { return nil }
func (b *fakeBuffer) Aliased() bool                { return false }
func (b *fakeBuffer) Map() (unsafe.Pointer, error) { return nil, nil }
func (b *fakeBuffer) Unmap()                       {}

type fakeImage struct {
	Image
	mips, layers uint32
}

func (i *fakeImage) MipLevels() uint32   { return i.mips }
func (i *fakeImage) ArrayLayers() uint32 { return i.layers }

type fakeView struct{ ImageView }

type fakeSampler struct{ Sampler }

type fakeShader struct{ Shader }

type fakeLayout struct{ PipelineLayout }

type fakeSetLayout struct{ DescriptorSetLayout }

type fakeSet struct{ DescriptorSet }

type fakeSemaphore struct{ BinarySemaphore }

type fakeSwapchain struct {
	Swapchain
	images int
}

func (s *fakeSwapchain) ImageCount() int { return s.images }

type fakeSurface struct{ Surface }

// spirv returns a minimal buffer carrying the SPIR-V magic number.
func spirv() []byte {
	return []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}
}
