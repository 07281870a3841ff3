package rhi

import (
	"testing"

	"github.com/cockroachdb/errors"
)

type validator interface {
	Validate() error
}

type validationCase struct {
	name  string
	desc  validator
	valid bool
}

func runValidationCases(t *testing.T, cases []validationCase) {
	t.Helper()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.desc.Validate()
			if c.valid && err != nil {
				t.Fatalf("unexpected error: %+v", err)
			}
			if !c.valid && !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("got %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestDeviceDescriptionValidate(t *testing.T) {
	pd := &fakePhysicalDevice{families: []QueueFamilyProperties{
		{Flags: QueueGraphics | QueueCompute | QueueTransfer, QueueCount: 2},
		{Flags: QueueTransfer, QueueCount: 1},
	}}

	runValidationCases(t, []validationCase{
		{"valid", DeviceDescription{PhysicalDevice: pd, QueueFamilies: []QueueFamilySelection{
			{Family: 0, Priorities: []float32{1, 0.5}},
			{Family: 1, Priorities: []float32{1}},
		}}, true},
		{"no physical device", DeviceDescription{QueueFamilies: []QueueFamilySelection{{Priorities: []float32{1}}}}, false},
		{"no families", DeviceDescription{PhysicalDevice: pd}, false},
		{"zero priorities", DeviceDescription{PhysicalDevice: pd, QueueFamilies: []QueueFamilySelection{{Family: 0}}}, false},
		{"too many queues", DeviceDescription{PhysicalDevice: pd, QueueFamilies: []QueueFamilySelection{
			{Family: 1, Priorities: []float32{1, 1}},
		}}, false},
		{"priority out of range", DeviceDescription{PhysicalDevice: pd, QueueFamilies: []QueueFamilySelection{
			{Family: 0, Priorities: []float32{1.5}},
		}}, false},
		{"family twice", DeviceDescription{PhysicalDevice: pd, QueueFamilies: []QueueFamilySelection{
			{Family: 0, Priorities: []float32{1}},
			{Family: 0, Priorities: []float32{1}},
		}}, false},
		{"unknown family", DeviceDescription{PhysicalDevice: pd, QueueFamilies: []QueueFamilySelection{
			{Family: 5, Priorities: []float32{1}},
		}}, false},
	})
}

func TestResourceDescriptionValidate(t *testing.T) {
	texel := &fakeBuffer{size: 256, usage: BufferUniformTexel}
	image := &fakeImage{mips: 4, layers: 6}

	runValidationCases(t, []validationCase{
		{"buffer", BufferDescription{Size: 64, Usage: BufferVertex}, true},
		{"buffer zero size", BufferDescription{Usage: BufferVertex}, false},
		{"buffer no usage", BufferDescription{Size: 64}, false},
		{"buffer concurrent one family", BufferDescription{Size: 64, Usage: BufferVertex,
			SharingMode: SharingConcurrent, QueueFamilies: []int{0}}, false},
		{"buffer bad priority", BufferDescription{Size: 64, Usage: BufferVertex,
			Memory: AllocationDescription{Priority: 2}}, false},

		{"buffer view", BufferViewDescription{Buffer: texel, Format: FormatR32Sfloat, Range: WholeSize}, true},
		{"buffer view no texel usage", BufferViewDescription{Buffer: &fakeBuffer{size: 256, usage: BufferVertex},
			Format: FormatR32Sfloat}, false},
		{"buffer view range overflow", BufferViewDescription{Buffer: texel, Format: FormatR32Sfloat,
			Offset: 128, Range: 256}, false},
		{"buffer view no format", BufferViewDescription{Buffer: texel}, false},

		{"image", ImageDescription{Format: FormatR8G8B8A8Unorm, Extent: Extent3D{64, 64, 1}, Usage: ImageSampled}, true},
		{"image zero extent", ImageDescription{Format: FormatR8G8B8A8Unorm, Extent: Extent3D{64, 0, 1}, Usage: ImageSampled}, false},
		{"image 2D with depth", ImageDescription{Format: FormatR8G8B8A8Unorm, Extent: Extent3D{64, 64, 4}, Usage: ImageSampled}, false},
		{"image bad samples", ImageDescription{Format: FormatR8G8B8A8Unorm, Extent: Extent3D{64, 64, 1},
			Usage: ImageColorAttachment, Samples: 3}, false},
		{"image bad initial layout", ImageDescription{Format: FormatR8G8B8A8Unorm, Extent: Extent3D{64, 64, 1},
			Usage: ImageSampled, InitialLayout: LayoutGeneral}, false},
		{"cube image", ImageDescription{Format: FormatR8G8B8A8Unorm, Extent: Extent3D{64, 64, 1},
			ArrayLayers: 6, Usage: ImageSampled, CubeCompatible: true}, true},
		{"cube not square", ImageDescription{Format: FormatR8G8B8A8Unorm, Extent: Extent3D{64, 32, 1},
			ArrayLayers: 6, Usage: ImageSampled, CubeCompatible: true}, false},

		{"view", ImageViewDescription{Image: image, Subresource: ImageSubresourceRange{BaseMipLevel: 3}}, true},
		{"view mips out of range", ImageViewDescription{Image: image,
			Subresource: ImageSubresourceRange{BaseMipLevel: 3, LevelCount: 2}}, false},
		{"cube view", ImageViewDescription{Image: image, Type: ViewTypeCube,
			Subresource: ImageSubresourceRange{LayerCount: 6}}, true},
		{"cube view wrong layers", ImageViewDescription{Image: image, Type: ViewTypeCube,
			Subresource: ImageSubresourceRange{LayerCount: 4}}, false},
		{"2D view many layers", ImageViewDescription{Image: image, Type: ViewType2D,
			Subresource: ImageSubresourceRange{LayerCount: 2}}, false},
		{"view no image", ImageViewDescription{}, false},

		{"sampler", SamplerDescription{MaxLod: 4}, true},
		{"sampler lod inverted", SamplerDescription{MinLod: 2, MaxLod: 1}, false},
		{"sampler anisotropy", SamplerDescription{EnableAnisotropy: true}, false},

		{"shader", ShaderDescription{Code: spirv()}, true},
		{"shader empty", ShaderDescription{}, false},
		{"shader misaligned", ShaderDescription{Code: spirv()[:6]}, false},
		{"shader not spirv", ShaderDescription{Code: []byte{1, 2, 3, 4}}, false},
	})
}

func TestPipelineDescriptionValidate(t *testing.T) {
	layout := &fakeLayout{}
	vert := ShaderStageDescription{Stage: ShaderVertex, Shader: &fakeShader{}}
	frag := ShaderStageDescription{Stage: ShaderFragment, Shader: &fakeShader{}}
	color := ColorBlendState{Attachments: []ColorAttachmentState{{Format: FormatB8G8R8A8Srgb}}}

	runValidationCases(t, []validationCase{
		{"layout", PipelineLayoutDescription{SetLayouts: []DescriptorSetLayout{&fakeSetLayout{}},
			PushConstantRanges: []PushConstantRange{{Stages: ShaderVertex, Size: 64}}}, true},
		{"layout nil set", PipelineLayoutDescription{SetLayouts: []DescriptorSetLayout{nil}}, false},
		{"layout odd push constant", PipelineLayoutDescription{
			PushConstantRanges: []PushConstantRange{{Stages: ShaderVertex, Size: 6}}}, false},

		{"compute", ComputePipelineDescription{Layout: layout,
			Stage: ShaderStageDescription{Stage: ShaderCompute, Shader: &fakeShader{}}}, true},
		{"compute wrong stage", ComputePipelineDescription{Layout: layout, Stage: vert}, false},
		{"compute no layout", ComputePipelineDescription{
			Stage: ShaderStageDescription{Stage: ShaderCompute, Shader: &fakeShader{}}}, false},

		{"graphics", GraphicsPipelineDescription{Layout: layout, Stages: []ShaderStageDescription{vert, frag},
			Input: InputState{
				Bindings:   []VertexBinding{{Binding: 0, Stride: 32}},
				Attributes: []VertexAttribute{{Location: 0, Binding: 0, Format: VertexFloat3}},
			},
			ColorBlend: color}, true},
		{"graphics depth only", GraphicsPipelineDescription{Layout: layout, Stages: []ShaderStageDescription{vert},
			DepthStencil: DepthStencilState{DepthFormat: FormatD32Sfloat}}, true},
		{"graphics no vertex stage", GraphicsPipelineDescription{Layout: layout,
			Stages: []ShaderStageDescription{frag}, ColorBlend: color}, false},
		{"graphics duplicate stage", GraphicsPipelineDescription{Layout: layout,
			Stages: []ShaderStageDescription{vert, vert}, ColorBlend: color}, false},
		{"graphics undeclared binding", GraphicsPipelineDescription{Layout: layout,
			Stages: []ShaderStageDescription{vert, frag},
			Input:  InputState{Attributes: []VertexAttribute{{Binding: 1}}}, ColorBlend: color}, false},
		{"graphics depth colour attachment", GraphicsPipelineDescription{Layout: layout,
			Stages:     []ShaderStageDescription{vert, frag},
			ColorBlend: ColorBlendState{Attachments: []ColorAttachmentState{{Format: FormatD32Sfloat}}}}, false},
		{"graphics colour depth format", GraphicsPipelineDescription{Layout: layout,
			Stages: []ShaderStageDescription{vert}, DepthStencil: DepthStencilState{DepthFormat: FormatR8Unorm}}, false},
		{"graphics no attachments", GraphicsPipelineDescription{Layout: layout,
			Stages: []ShaderStageDescription{vert}}, false},
		{"graphics multi-stage flag", GraphicsPipelineDescription{Layout: layout,
			Stages: []ShaderStageDescription{{Stage: ShaderVertex | ShaderFragment, Shader: &fakeShader{}}},
			ColorBlend: color}, false},
	})
}

func TestDescriptorValidate(t *testing.T) {
	set := &fakeSet{}
	uniform := &fakeBuffer{size: 256, usage: BufferUniform}

	runValidationCases(t, []validationCase{
		{"set layout", DescriptorSetLayoutDescription{Bindings: []DescriptorSetLayoutBinding{
			{Binding: 0, Type: DescriptorUniformBuffer, Count: 1, Stages: ShaderVertex},
			{Binding: 1, Type: DescriptorCombinedImageSampler, Count: 1, Stages: ShaderFragment},
		}}, true},
		{"set layout duplicate binding", DescriptorSetLayoutDescription{Bindings: []DescriptorSetLayoutBinding{
			{Binding: 0, Type: DescriptorUniformBuffer, Count: 1, Stages: ShaderVertex},
			{Binding: 0, Type: DescriptorSampler, Count: 1, Stages: ShaderVertex},
		}}, false},

		{"pool", DescriptorPoolDescription{MaxSets: 2, PoolSizes: []DescriptorPoolSize{{DescriptorUniformBuffer, 2}}}, true},
		{"pool no sets", DescriptorPoolDescription{PoolSizes: []DescriptorPoolSize{{DescriptorUniformBuffer, 2}}}, false},
		{"pool no sizes", DescriptorPoolDescription{MaxSets: 2}, false},

		{"buffer write", DescriptorWrite{Set: set, Type: DescriptorUniformBuffer,
			Buffers: []DescriptorBufferInfo{{Buffer: uniform, Range: WholeSize}}}, true},
		{"image write", DescriptorWrite{Set: set, Type: DescriptorCombinedImageSampler,
			Images: []DescriptorImageInfo{{View: &fakeView{}, Sampler: &fakeSampler{}, Layout: LayoutShaderReadOnly}}}, true},
		{"sampler write", DescriptorWrite{Set: set, Type: DescriptorSampler,
			Images: []DescriptorImageInfo{{Sampler: &fakeSampler{}}}}, true},
		{"write without set", DescriptorWrite{Type: DescriptorUniformBuffer,
			Buffers: []DescriptorBufferInfo{{Buffer: uniform}}}, false},
		{"write two kinds", DescriptorWrite{Set: set, Type: DescriptorUniformBuffer,
			Buffers: []DescriptorBufferInfo{{Buffer: uniform}},
			Images:  []DescriptorImageInfo{{View: &fakeView{}}}}, false},
		{"write no kind", DescriptorWrite{Set: set, Type: DescriptorUniformBuffer}, false},
		{"write kind mismatch", DescriptorWrite{Set: set, Type: DescriptorSampledImage,
			Buffers: []DescriptorBufferInfo{{Buffer: uniform}}}, false},
		{"combined sampler missing sampler", DescriptorWrite{Set: set, Type: DescriptorCombinedImageSampler,
			Images: []DescriptorImageInfo{{View: &fakeView{}}}}, false},
		{"texel write nil view", DescriptorWrite{Set: set, Type: DescriptorUniformTexelBuffer,
			TexelBuffers: []BufferView{nil}}, false},
		{"buffer offset past end", DescriptorWrite{Set: set, Type: DescriptorUniformBuffer,
			Buffers: []DescriptorBufferInfo{{Buffer: uniform, Offset: 256}}}, false},

		{"copy", DescriptorCopy{SrcSet: set, DstSet: set, Count: 1}, true},
		{"copy without destination", DescriptorCopy{SrcSet: set, Count: 1}, false},
	})
}

func TestCommandDescriptionValidate(t *testing.T) {
	view := &fakeView{}
	depth := &AttachmentDescription{View: view, Layout: LayoutDepthStencilAttachment, Clear: DefaultDepthClear}
	area := Rect2D{Extent: Extent2D{800, 600}}
	buffer := &fakeBuffer{size: 256}

	runValidationCases(t, []validationCase{
		{"command pool", CommandPoolDescription{QueueFamily: 0}, true},
		{"command pool negative family", CommandPoolDescription{QueueFamily: -1}, false},

		{"rendering", RenderingDescription{Area: area, Color: []AttachmentDescription{{View: view}}, Depth: depth}, true},
		{"rendering empty area", RenderingDescription{Color: []AttachmentDescription{{View: view}}}, false},
		{"rendering no attachments", RenderingDescription{Area: area}, false},
		{"rendering nil view", RenderingDescription{Area: area, Color: []AttachmentDescription{{}}}, false},
		{"rendering depth clear on colour", RenderingDescription{Area: area,
			Color: []AttachmentDescription{{View: view, Clear: DefaultDepthClear}}}, false},
		{"rendering colour clear on depth", RenderingDescription{Area: area,
			Depth: &AttachmentDescription{View: view, Clear: DefaultColorClear}}, false},
		{"rendering resolve without view", RenderingDescription{Area: area,
			Color: []AttachmentDescription{{View: view, ResolveMode: ResolveAverage}}}, false},

		{"barrier", BarrierDescription{Memory: []MemoryBarrier{{SrcStage: StageTransfer, DstStage: StageVertexInput}}}, true},
		{"barrier empty", BarrierDescription{}, false},
		{"barrier nil image", BarrierDescription{Images: []ImageBarrier{{NewLayout: LayoutGeneral}}}, false},
		{"barrier to undefined", BarrierDescription{Images: []ImageBarrier{{Image: &fakeImage{}}}}, false},
		{"barrier nil buffer", BarrierDescription{Buffers: []BufferBarrier{{}}}, false},
		{"barrier buffer range", BarrierDescription{Buffers: []BufferBarrier{{Buffer: buffer, Offset: 64, Size: 192}}}, true},
		{"barrier buffer rest", BarrierDescription{Buffers: []BufferBarrier{{Buffer: buffer, Offset: 192, Size: WholeSize}}}, true},
		{"barrier buffer offset at end", BarrierDescription{Buffers: []BufferBarrier{{Buffer: buffer, Offset: 256}}}, false},
		{"barrier buffer range past end", BarrierDescription{Buffers: []BufferBarrier{{Buffer: buffer, Offset: 64, Size: 193}}}, false},
		{"barrier buffer range overflows", BarrierDescription{Buffers: []BufferBarrier{{Buffer: buffer, Offset: 8, Size: ^uint64(0)}}}, false},
	})
}

func TestSubmitAndPresentValidate(t *testing.T) {
	sem := &fakeSemaphore{}
	swapchain := &fakeSwapchain{images: 3}

	runValidationCases(t, []validationCase{
		{"submit", SubmitDescription{
			WaitBinary:   []BinaryWait{{Semaphore: sem, Stage: StageColorAttachmentOutput}},
			SignalBinary: []BinarySignal{{Semaphore: sem}},
		}, true},
		{"submit nil wait", SubmitDescription{WaitBinary: []BinaryWait{{Stage: StageTransfer}}}, false},
		{"submit wait without stage", SubmitDescription{WaitBinary: []BinaryWait{{Semaphore: sem}}}, false},
		{"submit nil timeline wait", SubmitDescription{WaitTimeline: []TimelineWait{{Value: 1, Stage: StageTransfer}}}, false},
		{"submit nil command buffer", SubmitDescription{CommandBuffers: []CommandBuffer{nil}}, false},
		{"submit nil signal", SubmitDescription{SignalTimeline: []TimelineSignal{{Value: 1}}}, false},

		{"present", PresentDescription{WaitSemaphores: []BinarySemaphore{sem},
			Targets: []PresentTarget{{Swapchain: swapchain, ImageIndex: 2}}}, true},
		{"present no targets", PresentDescription{}, false},
		{"present index out of range", PresentDescription{Targets: []PresentTarget{{Swapchain: swapchain, ImageIndex: 3}}}, false},
		{"present without image", PresentDescription{Targets: []PresentTarget{{Swapchain: swapchain, ImageIndex: NoImage}}}, false},
		{"present same swapchain twice", PresentDescription{Targets: []PresentTarget{
			{Swapchain: swapchain}, {Swapchain: swapchain, ImageIndex: 1},
		}}, false},
		{"present nil semaphore", PresentDescription{WaitSemaphores: []BinarySemaphore{nil},
			Targets: []PresentTarget{{Swapchain: swapchain}}}, false},

		{"swapchain", SwapchainDescription{Surface: &fakeSurface{}, ImageUsage: ImageColorAttachment}, true},
		{"swapchain no surface", SwapchainDescription{ImageUsage: ImageColorAttachment}, false},
		{"swapchain no usage", SwapchainDescription{Surface: &fakeSurface{}}, false},
	})
}

func TestMemoryDescriptionValidate(t *testing.T) {
	runValidationCases(t, []validationCase{
		{"requirements", MemoryRequirements{Size: 256, Alignment: 256, MemoryTypeBits: 1}, true},
		{"requirements no size", MemoryRequirements{Alignment: 4, MemoryTypeBits: 1}, false},
		{"requirements odd alignment", MemoryRequirements{Size: 16, Alignment: 3, MemoryTypeBits: 1}, false},
		{"requirements no types", MemoryRequirements{Size: 16, Alignment: 4}, false},

		{"pool", PoolDescription{BlockSize: 1 << 20, MinBlockCount: 1, MaxBlockCount: 4}, true},
		{"pool max below min", PoolDescription{MinBlockCount: 4, MaxBlockCount: 2}, false},
		{"pool odd alignment", PoolDescription{MinAllocationAlignment: 48}, false},

		{"dedicated from pool", AllocationDescription{Dedicated: true, Pool: &fakePool{}}, false},
	})
}

type fakePool struct{ Pool }
