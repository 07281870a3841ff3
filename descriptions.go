package rhi

import "unsafe"

type DriverDescription struct {
	Kind               DriverKind
	ApplicationName    string
	ApplicationVersion Version
	EnableValidation   bool

	// InstanceExtensions lists the window system's surface extensions.
	InstanceExtensions []string
	// InstanceProcAddr optionally supplies the loader entry point. The
	// system loader is used when nil.
	InstanceProcAddr unsafe.Pointer
}

type PhysicalDeviceDescription struct {
	// PrimaryWindow is used to check presentation support. Nil selects a
	// headless device.
	PrimaryWindow Window
}

type QueueFamilySelection struct {
	Family     int
	Priorities []float32
}

type DeviceDescription struct {
	PhysicalDevice PhysicalDevice
	QueueFamilies  []QueueFamilySelection
}

type SurfaceDescription struct {
	Window Window
}

type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

type PoolDescription struct {
	Flags                  PoolFlags
	Usage                  MemoryUsage
	Access                 HostAccess
	BlockSize              uint64 // zero selects the allocator default
	MinBlockCount          int
	MaxBlockCount          int // zero means unbounded
	Priority               float32
	MinAllocationAlignment uint64
}

type AllocationDescription struct {
	Usage              MemoryUsage
	Access             HostAccess
	Pool               Pool
	Priority           float32
	PersistentlyMapped bool
	Dedicated          bool
}

type BufferDescription struct {
	Size          uint64
	Usage         BufferUsage
	SharingMode   SharingMode
	QueueFamilies []int
	Memory        AllocationDescription
}

type BufferViewDescription struct {
	Buffer Buffer
	Format Format
	Offset uint64
	Range  uint64 // WholeSize selects the rest of the buffer
}

type ImageDescription struct {
	Type            ImageType
	Format          Format
	Extent          Extent3D
	MipLevels       uint32 // zero means 1
	ArrayLayers     uint32 // zero means 1
	Samples         SampleCount
	InitialLayout   ImageLayout
	Tiling          ImageTiling
	Usage           ImageUsage
	SharingMode     SharingMode
	QueueFamilies   []int
	CubeCompatible  bool
	ArrayCompatible bool
	Memory          AllocationDescription
}

type Swizzle struct {
	R, G, B, A ComponentSwizzle
}

type ImageViewDescription struct {
	Image       Image
	Format      Format // FormatUndefined inherits the image format
	Type        ImageViewType
	Swizzle     Swizzle
	Subresource ImageSubresourceRange
}

type SamplerDescription struct {
	MagFilter               Filter
	MinFilter               Filter
	MipmapMode              MipmapMode
	AddressModeU            AddressMode
	AddressModeV            AddressMode
	AddressModeW            AddressMode
	MipLodBias              float32
	EnableAnisotropy        bool
	MaxAnisotropy           float32
	EnableCompare           bool
	CompareOp               CompareOp
	MinLod                  float32
	MaxLod                  float32
	BorderColor             BorderColor
	UnnormalizedCoordinates bool
}

// ShaderDescription takes precompiled SPIR-V.
type ShaderDescription struct {
	Code []byte
}

type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

type PipelineLayoutDescription struct {
	SetLayouts         []DescriptorSetLayout
	PushConstantRanges []PushConstantRange
}

type ShaderStageDescription struct {
	Stage      ShaderStage
	Shader     Shader
	EntryPoint string // empty means "main"
}

type ComputePipelineDescription struct {
	Layout PipelineLayout
	Stage  ShaderStageDescription
}

type VertexBinding struct {
	Binding   uint32
	Stride    uint32
	InputRate VertexInputRate
}

type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   VertexFormat
	Offset   uint32
}

type InputState struct {
	Bindings   []VertexBinding
	Attributes []VertexAttribute
}

type AssemblyState struct {
	Topology               PrimitiveTopology
	EnablePrimitiveRestart bool
}

type RasterizationState struct {
	PolygonMode             PolygonMode
	CullMode                CullMode
	FrontFace               FrontFace
	EnableDepthClamp        bool
	EnableDepthBias         bool
	DepthBiasConstantFactor float32
	DepthBiasClamp          float32
	DepthBiasSlopeFactor    float32
	LineWidth               float32 // zero means 1
}

type MultisampleState struct {
	Samples             SampleCount // zero means SampleCount1
	EnableSampleShading bool
	MinSampleShading    float32
	SampleMask          []uint32
}

type StencilOpState struct {
	FailOp      StencilOp
	PassOp      StencilOp
	DepthFailOp StencilOp
	CompareOp   CompareOp
	CompareMask uint32
	WriteMask   uint32
	Reference   uint32
}

type DepthStencilState struct {
	DepthFormat           Format
	StencilFormat         Format
	EnableDepthTest       bool
	EnableDepthWrite      bool
	DepthCompareOp        CompareOp
	EnableDepthBoundsTest bool
	MinDepthBounds        float32
	MaxDepthBounds        float32
	EnableStencilTest     bool
	Front                 StencilOpState
	Back                  StencilOpState
}

type ColorAttachmentState struct {
	Format              Format
	EnableBlending      bool
	SrcColorBlendFactor BlendFactor
	DstColorBlendFactor BlendFactor
	ColorBlendOp        BlendOp
	SrcAlphaBlendFactor BlendFactor
	DstAlphaBlendFactor BlendFactor
	AlphaBlendOp        BlendOp
	WriteMask           ColorComponent // zero means ComponentAll
}

type ColorBlendState struct {
	Attachments    []ColorAttachmentState
	EnableLogicOp  bool
	LogicOp        LogicOp
	BlendConstants [4]float32
}

// GraphicsPipelineDescription declares its attachment formats up front;
// viewport and scissor are always dynamic state.
type GraphicsPipelineDescription struct {
	Layout        PipelineLayout
	Stages        []ShaderStageDescription
	Input         InputState
	Assembly      AssemblyState
	Rasterization RasterizationState
	Multisample   MultisampleState
	DepthStencil  DepthStencilState
	ColorBlend    ColorBlendState
}

type DescriptorSetLayoutBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

type DescriptorSetLayoutDescription struct {
	Bindings []DescriptorSetLayoutBinding
}

type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

type DescriptorPoolDescription struct {
	MaxSets   uint32
	PoolSizes []DescriptorPoolSize
	Behavior  DescriptorPoolBehavior
}

type DescriptorImageInfo struct {
	View    ImageView
	Sampler Sampler
	Layout  ImageLayout
}

type DescriptorBufferInfo struct {
	Buffer Buffer
	Offset uint64
	Range  uint64 // WholeSize selects the rest of the buffer
}

// DescriptorWrite must populate exactly one of Images, Buffers or
// TexelBuffers.
type DescriptorWrite struct {
	Set          DescriptorSet
	Binding      uint32
	ArrayElement uint32
	Type         DescriptorType
	Images       []DescriptorImageInfo
	Buffers      []DescriptorBufferInfo
	TexelBuffers []BufferView
}

type DescriptorCopy struct {
	SrcSet          DescriptorSet
	SrcBinding      uint32
	SrcArrayElement uint32
	DstSet          DescriptorSet
	DstBinding      uint32
	DstArrayElement uint32
	Count           uint32
}

type CommandPoolDescription struct {
	QueueFamily int
	Behavior    CommandPoolBehavior
}

// InheritanceDescription describes the pass a secondary command buffer
// continues.
type InheritanceDescription struct {
	ColorFormats  []Format
	DepthFormat   Format
	StencilFormat Format
	Samples       SampleCount
}

type AttachmentDescription struct {
	View          ImageView
	Layout        ImageLayout
	ResolveMode   ResolveMode
	ResolveView   ImageView
	ResolveLayout ImageLayout
	LoadOp        AttachmentLoadOp
	StoreOp       AttachmentStoreOp
	// Clear defaults to DefaultColorClear or DefaultDepthClear.
	Clear ClearValue
}

type RenderingDescription struct {
	Area       Rect2D
	LayerCount uint32 // zero means 1
	ViewMask   uint32
	Color      []AttachmentDescription
	Depth      *AttachmentDescription
	Stencil    *AttachmentDescription
	Flags      RenderingFlags
}

type VertexBufferBinding struct {
	Buffer Buffer
	Offset uint64
}

type BufferCopyRegion struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

type BufferImageCopyRegion struct {
	BufferOffset      uint64
	BufferRowLength   uint32
	BufferImageHeight uint32
	Subresource       ImageSubresourceLayers
	ImageOffset       Offset3D
	ImageExtent       Extent3D
}

type MemoryBarrier struct {
	SrcStage  PipelineStage
	SrcAccess Access
	DstStage  PipelineStage
	DstAccess Access
}

type BufferBarrier struct {
	Buffer         Buffer
	SrcStage       PipelineStage
	SrcAccess      Access
	DstStage       PipelineStage
	DstAccess      Access
	SrcQueueFamily int
	DstQueueFamily int
	Offset         uint64
	Size           uint64 // WholeSize selects the rest of the buffer
}

type ImageBarrier struct {
	Image          Image
	SrcStage       PipelineStage
	SrcAccess      Access
	DstStage       PipelineStage
	DstAccess      Access
	OldLayout      ImageLayout
	NewLayout      ImageLayout
	SrcQueueFamily int
	DstQueueFamily int
	Subresource    ImageSubresourceRange
}

// BarrierDescription declares dependencies explicitly. No hazard tracking is
// done on the caller's behalf.
type BarrierDescription struct {
	Memory  []MemoryBarrier
	Buffers []BufferBarrier
	Images  []ImageBarrier
}

type BinaryWait struct {
	Semaphore BinarySemaphore
	Stage     PipelineStage
}

type TimelineWait struct {
	Semaphore TimelineSemaphore
	Value     uint64
	Stage     PipelineStage
}

type BinarySignal struct {
	Semaphore BinarySemaphore
	Stage     PipelineStage
}

type TimelineSignal struct {
	Semaphore TimelineSemaphore
	Value     uint64
	Stage     PipelineStage
}

type SubmitDescription struct {
	WaitBinary     []BinaryWait
	WaitTimeline   []TimelineWait
	CommandBuffers []CommandBuffer
	SignalBinary   []BinarySignal
	SignalTimeline []TimelineSignal
}

type PresentTarget struct {
	Swapchain  Swapchain
	ImageIndex uint32
}

type PresentDescription struct {
	WaitSemaphores []BinarySemaphore
	Targets        []PresentTarget
}

// PresentResult holds one code per target. PerSwapchain is authoritative
// when it disagrees with Overall.
type PresentResult struct {
	Overall      ResultCode
	PerSwapchain []ResultCode
}

type SwapchainDescription struct {
	Surface       Surface
	MinImageCount uint32 // zero means 3
	SurfaceFormat SurfaceFormat
	Extent        Extent2D // zero uses the surface's current extent
	ArrayLayers   uint32   // zero means 1
	ImageUsage    ImageUsage
	SharingMode   SharingMode
	QueueFamilies []int
	PresentMode   PresentMode
	Clipped       bool
	OldSwapchain  Swapchain
}

type FenceDescription struct {
	Signaled bool
}

type TimelineSemaphoreDescription struct {
	InitialValue uint64
}
