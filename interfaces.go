package rhi

import (
	"time"
	"unsafe"
)

// Driver is the process-wide entry point of one backend.
type Driver interface {
	Kind() DriverKind
	CreatePhysicalDevice(desc PhysicalDeviceDescription) (PhysicalDevice, error)
	CreateDevice(desc DeviceDescription) (Device, error)
	CreateSurface(desc SurfaceDescription) (Surface, error)
	NativeHandle() any
	Destroy()
}

// PhysicalDevice is an immutable view of one GPU's capabilities.
type PhysicalDevice interface {
	Name() string
	Type() PhysicalDeviceType
	QueueFamilyCount() int
	QueueFamilyProperties(family int) (QueueFamilyProperties, error)
	SupportsPresentation(surface Surface, family int) (bool, error)
	NativeHandle() any
}

// Surface is a presentation target bound to a window.
type Surface interface {
	SupportedFormats(pd PhysicalDevice) ([]SurfaceFormat, error)
	SupportedPresentModes(pd PhysicalDevice) ([]PresentMode, error)
	Capabilities(pd PhysicalDevice) (SurfaceCapabilities, error)
	NativeHandle() any
	Destroy()
}

// Resource is any GPU object exclusively owned by its creator until
// Destroy is called. Destroy is idempotent.
type Resource interface {
	NativeHandle() any
	Destroy()
}

// Device creates and destroys every GPU-side object.
type Device interface {
	PhysicalDevice() PhysicalDevice
	Allocator() Allocator

	CreateBuffer(desc BufferDescription) (Buffer, error)
	CreateBufferView(desc BufferViewDescription) (BufferView, error)
	CreateImage(desc ImageDescription) (Image, error)
	CreateImageView(desc ImageViewDescription) (ImageView, error)
	CreateSampler(desc SamplerDescription) (Sampler, error)
	CreateShader(desc ShaderDescription) (Shader, error)
	CreatePipelineLayout(desc PipelineLayoutDescription) (PipelineLayout, error)
	CreateComputePipeline(desc ComputePipelineDescription) (Pipeline, error)
	CreateGraphicsPipeline(desc GraphicsPipelineDescription) (Pipeline, error)
	CreateDescriptorSetLayout(desc DescriptorSetLayoutDescription) (DescriptorSetLayout, error)
	CreateDescriptorPool(desc DescriptorPoolDescription) (DescriptorPool, error)
	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error)
	AllocateDescriptorSets(pool DescriptorPool, layouts []DescriptorSetLayout) ([]DescriptorSet, error)
	FreeDescriptorSets(pool DescriptorPool, sets []DescriptorSet) error
	UpdateDescriptorSets(writes []DescriptorWrite, copies []DescriptorCopy) error
	CreateCommandPool(desc CommandPoolDescription) (CommandPool, error)
	CreateSwapchain(desc SwapchainDescription) (Swapchain, error)
	CreateFence(desc FenceDescription) (Fence, error)
	CreateBinarySemaphore() (BinarySemaphore, error)
	CreateTimelineSemaphore(desc TimelineSemaphoreDescription) (TimelineSemaphore, error)

	// Queue returns a handle owned by the device. It must not be destroyed.
	Queue(family, index int) (Queue, error)

	// WaitIdle blocks until all outstanding work on the device retires.
	// Use it for teardown and resize only.
	WaitIdle() error

	NativeHandle() any
	Destroy()
}

type Buffer interface {
	Resource
	Size() uint64
	Usage() BufferUsage
	// Allocation returns the memory the buffer is bound to.
	Allocation() Allocation
	// Aliased reports whether the buffer was placed on memory owned elsewhere.
	Aliased() bool
	// Map returns a host pointer to the start of the buffer. Repeated calls
	// return the same pointer until a matching number of Unmap calls.
	Map() (unsafe.Pointer, error)
	Unmap()
}

type BufferView interface {
	Resource
	Buffer() Buffer
	Format() Format
}

type Image interface {
	Resource
	Type() ImageType
	Format() Format
	Extent() Extent3D
	MipLevels() uint32
	ArrayLayers() uint32
	Samples() SampleCount
	// Allocation is nil for swapchain images.
	Allocation() Allocation
	Aliased() bool
	// Owned is false for images that belong to a swapchain. Destroying
	// such an image does nothing.
	Owned() bool
}

type ImageView interface {
	Resource
	Image() Image
	Format() Format
	Subresource() ImageSubresourceRange
}

type Sampler interface {
	Resource
}

type Shader interface {
	Resource
}

type PipelineLayout interface {
	Resource
}

type Pipeline interface {
	Resource
	BindPoint() PipelineBindPoint
	Layout() PipelineLayout
}

type DescriptorSetLayout interface {
	Resource
}

type DescriptorPool interface {
	Resource
	// Reset returns every set allocated from the pool.
	Reset() error
}

type DescriptorSet interface {
	NativeHandle() any
	Layout() DescriptorSetLayout
}

// CommandPool is not internally synchronized: only one goroutine may
// allocate from or record into buffers of the same pool at a time.
type CommandPool interface {
	QueueFamily() int
	Behavior() CommandPoolBehavior
	Allocate(level CommandBufferLevel) (CommandBuffer, error)
	AllocateN(count int, level CommandBufferLevel) ([]CommandBuffer, error)
	// Reset moves every live buffer back to Initial.
	Reset(releaseResources bool) error
	Free(buffers ...CommandBuffer) error
	NativeHandle() any
	Destroy()
}

type CommandBuffer interface {
	State() CommandBufferState
	Level() CommandBufferLevel
	Pool() CommandPool

	Begin(usage CommandBufferUsage) error
	BeginSecondary(usage CommandBufferUsage, inheritance InheritanceDescription) error
	End() error
	Reset(releaseResources bool) error

	BeginRendering(desc RenderingDescription) error
	EndRendering() error
	ExecuteCommands(buffers ...CommandBuffer) error

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error
	DispatchCompute(groupsX, groupsY, groupsZ uint32) error

	SetViewport(viewports ...Viewport) error
	SetScissor(scissors ...Rect2D) error
	Clear(image Image, layout ImageLayout, value ClearValue, ranges ...ImageSubresourceRange) error

	BindPipeline(pipeline Pipeline) error
	BindDescriptorSets(bindPoint PipelineBindPoint, layout PipelineLayout, sets []DescriptorSet, dynamicOffsets []uint32) error
	PushConstants(layout PipelineLayout, stages ShaderStage, offset uint32, data []byte) error
	BindVertexBuffers(firstBinding uint32, bindings ...VertexBufferBinding) error
	BindIndexBuffer(buffer Buffer, offset uint64, indexType IndexType) error

	CopyBuffer(src, dst Buffer, regions ...BufferCopyRegion) error
	CopyBufferToImage(src Buffer, dst Image, layout ImageLayout, regions ...BufferImageCopyRegion) error
	CopyImageToBuffer(src Image, layout ImageLayout, dst Buffer, regions ...BufferImageCopyRegion) error
	Barrier(desc BarrierDescription) error

	NativeHandle() any
}

type Queue interface {
	Family() int
	Index() int
	// Submit never blocks on GPU work. Retirement is observable through
	// fence or timeline semaphore values only.
	Submit(submits []SubmitDescription, fence Fence) error
	Present(desc PresentDescription) (PresentResult, error)
	WaitIdle() error
	NativeHandle() any
}

type Swapchain interface {
	// AcquireNextImage returns a usable index only when the result code
	// reports HasImage. Otherwise the index is NoImage.
	AcquireNextImage(timeout time.Duration, semaphore BinarySemaphore, fence Fence) (uint32, ResultCode, error)
	ImageCount() int
	Image(index int) (Image, error)
	Format() SurfaceFormat
	Extent() Extent2D
	NativeHandle() any
	Destroy()
}

type Fence interface {
	Wait(timeout time.Duration) error
	Reset() error
	IsSignaled() (bool, error)
	NativeHandle() any
	Destroy()
}

// BinarySemaphore is a GPU-only token. Each signal may be consumed by
// exactly one wait.
type BinarySemaphore interface {
	NativeHandle() any
	Destroy()
}

// TimelineSemaphore is a monotonically non-decreasing 64-bit counter.
type TimelineSemaphore interface {
	Wait(value uint64, timeout time.Duration) error
	Signal(value uint64) error
	CurrentValue() (uint64, error)
	NativeHandle() any
	Destroy()
}

// Allocator places buffers and images in pooled device memory.
type Allocator interface {
	CreatePool(desc PoolDescription) (Pool, error)
	Allocate(reqs MemoryRequirements, desc AllocationDescription) (Allocation, error)
	// AllocateForBuffer and AllocateForImage size an allocation after an
	// existing resource. The allocation is not bound; place resources on it
	// with CreateAliasedBuffer or CreateAliasedImage.
	AllocateForBuffer(buffer Buffer, desc AllocationDescription) (Allocation, error)
	AllocateForImage(image Image, desc AllocationDescription) (Allocation, error)
	CreateBuffer(desc BufferDescription, alloc AllocationDescription) (Buffer, error)
	CreateImage(desc ImageDescription, alloc AllocationDescription) (Image, error)
	// CreateAliasedBuffer and CreateAliasedImage never free the allocation
	// they are placed on. Overlap and lifetime are the caller's problem.
	CreateAliasedBuffer(allocation Allocation, desc BufferDescription, offset uint64) (Buffer, error)
	CreateAliasedImage(allocation Allocation, desc ImageDescription, offset uint64) (Image, error)
	Stats() AllocatorStats
}

type Pool interface {
	Stats() AllocatorStats
	Destroy()
}

type Allocation interface {
	Size() uint64
	Offset() uint64
	MemoryTypeIndex() int
	Map() (unsafe.Pointer, error)
	Unmap()
	Flush(offset, size uint64) error
	Invalidate(offset, size uint64) error
	Free() error
	NativeHandle() any
}

type AllocatorStats struct {
	Blocks      int
	Allocations int
	BlockBytes  uint64
	UsedBytes   uint64
}
