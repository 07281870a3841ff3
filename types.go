package rhi

import (
	"fmt"
	"math"
	"time"
)

// Infinite is the timeout value that waits forever.
const Infinite time.Duration = math.MaxInt64

// WholeSize selects the remainder of a buffer from the given offset.
const WholeSize uint64 = 0

// QueueFamilyIgnored marks a barrier that does not transfer queue ownership.
const QueueFamilyIgnored = -1

// NoImage is the index AcquireNextImage returns when no image was acquired.
// It is out of range for every swapchain.
const NoImage = ^uint32(0)

type DriverKind int

const (
	DriverVulkan DriverKind = iota
	DriverDirect3D12
	DriverMetal
	DriverOpenGL
	DriverOpenGLES
	DriverSoftware
)

var driverKindNames = map[DriverKind]string{
	DriverVulkan:     "Vulkan",
	DriverDirect3D12: "Direct3D12",
	DriverMetal:      "Metal",
	DriverOpenGL:     "OpenGL",
	DriverOpenGLES:   "OpenGLES",
	DriverSoftware:   "Software",
}

func (k DriverKind) String() string {
	if name, ok := driverKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DriverKind(%d)", int(k))
}

type Version struct {
	Major, Minor, Patch uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

type PhysicalDeviceType int

const (
	PhysicalDeviceOther PhysicalDeviceType = iota
	PhysicalDeviceIntegrated
	PhysicalDeviceDiscrete
	PhysicalDeviceVirtual
	PhysicalDeviceCPU
)

type Offset2D struct {
	X, Y int32
}

type Offset3D struct {
	X, Y, Z int32
}

type Extent2D struct {
	Width, Height uint32
}

type Extent3D struct {
	Width, Height, Depth uint32
}

type Rect2D struct {
	Offset Offset2D
	Extent Extent2D
}

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

type QueueType uint32

const (
	QueueGraphics QueueType = 1 << iota
	QueueCompute
	QueueTransfer
	QueuePresent
)

type QueueFamilyProperties struct {
	Flags      QueueType
	QueueCount int
}

// ResultCode is the outcome of a swapchain acquire or present.
type ResultCode int

const (
	ResultSuccess ResultCode = iota
	ResultSuboptimal
	ResultOutOfDate
	ResultSurfaceLost
	ResultDeviceLost
	ResultError
)

func (r ResultCode) String() string {
	switch r {
	case ResultSuccess:
		return "Success"
	case ResultSuboptimal:
		return "Suboptimal"
	case ResultOutOfDate:
		return "OutOfDate"
	case ResultSurfaceLost:
		return "SurfaceLost"
	case ResultDeviceLost:
		return "DeviceLost"
	case ResultError:
		return "Error"
	}
	return fmt.Sprintf("ResultCode(%d)", int(r))
}

// Stale reports whether the swapchain must (OutOfDate, SurfaceLost) or
// should (Suboptimal) be recreated.
func (r ResultCode) Stale() bool {
	return r == ResultSuboptimal || r == ResultOutOfDate || r == ResultSurfaceLost
}

// HasImage reports whether an acquire with this result yields a usable index.
func (r ResultCode) HasImage() bool {
	return r == ResultSuccess || r == ResultSuboptimal
}

type PresentMode int

const (
	PresentModeFifo PresentMode = iota
	PresentModeFifoRelaxed
	PresentModeMailbox
	PresentModeImmediate
	PresentModeSharedDemandRefresh
	PresentModeSharedContinuousRefresh
)

type ColorSpace int

const (
	ColorSpaceSRGBNonlinear ColorSpace = iota
	ColorSpaceDisplayP3Nonlinear
	ColorSpaceExtendedSRGBLinear
	ColorSpaceExtendedSRGBNonlinear
	ColorSpaceBT709Linear
	ColorSpaceBT709Nonlinear
	ColorSpaceBT2020Linear
	ColorSpaceDCIP3Nonlinear
	ColorSpaceHDR10ST2084
	ColorSpaceUnknown
)

type Format int

const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatR8Uint
	FormatR8Srgb
	FormatR16Unorm
	FormatR16Uint
	FormatR16Sfloat
	FormatR32Uint
	FormatR32Sfloat
	FormatR8G8Unorm
	FormatR8G8Uint
	FormatR8G8Srgb
	FormatR16G16Unorm
	FormatR16G16Uint
	FormatR16G16Sfloat
	FormatR32G32Uint
	FormatR32G32Sfloat
	FormatR32G32B32Sfloat
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8Uint
	FormatR8G8B8A8Srgb
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8Srgb
	FormatR16G16B16A16Sfloat
	FormatR32G32B32A32Sfloat
	FormatD16Unorm
	FormatD32Sfloat
	FormatD24UnormS8Uint
	FormatD32SfloatS8Uint
)

// HasDepth reports whether the format carries a depth component.
func (f Format) HasDepth() bool {
	switch f {
	case FormatD16Unorm, FormatD32Sfloat, FormatD24UnormS8Uint, FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// HasStencil reports whether the format carries a stencil component.
func (f Format) HasStencil() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32SfloatS8Uint
}

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32 // 0 means unbounded
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
}

type MemoryUsage int

const (
	MemoryUsageAuto MemoryUsage = iota
	MemoryUsagePreferGPU
	MemoryUsagePreferCPU
)

// HostAccess describes how the CPU will touch an allocation.
type HostAccess uint32

const (
	HostAccessNone HostAccess = 0
	HostAccessRandom HostAccess = 1 << iota
	HostAccessSequentialWrite
)

type PoolFlags uint32

const (
	PoolLinear PoolFlags = 1 << iota
)

type CommandPoolBehavior uint32

const (
	CommandPoolTransient CommandPoolBehavior = 1 << iota
	CommandPoolResetCommandBuffer
)

type CommandBufferUsage uint32

const (
	UsageOneTimeSubmit CommandBufferUsage = 1 << iota
	UsageMultipleSubmit
	UsageRenderPassContinue
)

type CommandBufferLevel int

const (
	CommandBufferPrimary CommandBufferLevel = iota
	CommandBufferSecondary
)

type PipelineBindPoint int

const (
	BindPointGraphics PipelineBindPoint = iota
	BindPointCompute
)

type PipelineStage uint32

const (
	StageNone       PipelineStage = 0
	StageTopOfPipe  PipelineStage = 1 << (iota - 1)
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageTessellationControlShader
	StageTessellationEvaluationShader
	StageGeometryShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottomOfPipe
	StageHost
	StageAllGraphics
	StageAllCommands
)

type Access uint32

const (
	AccessNone                Access = 0
	AccessIndirectCommandRead Access = 1 << (iota - 1)
	AccessIndexRead
	AccessVertexAttributeRead
	AccessUniformRead
	AccessInputAttachmentRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentRead
	AccessDepthStencilAttachmentWrite
	AccessTransferRead
	AccessTransferWrite
	AccessHostRead
	AccessHostWrite
	AccessMemoryRead
	AccessMemoryWrite
)

type ShaderStage uint32

const (
	ShaderVertex ShaderStage = 1 << iota
	ShaderFragment
	ShaderCompute
	ShaderGeometry
	ShaderTessellationControl
	ShaderTessellationEvaluation
)

type DescriptorType int

const (
	DescriptorSampler DescriptorType = iota
	DescriptorCombinedImageSampler
	DescriptorSampledImage
	DescriptorStorageImage
	DescriptorUniformTexelBuffer
	DescriptorStorageTexelBuffer
	DescriptorUniformBuffer
	DescriptorStorageBuffer
	DescriptorUniformBufferDynamic
	DescriptorStorageBufferDynamic
	DescriptorInputAttachment
)

type DescriptorPoolBehavior uint32

const (
	DescriptorPoolFreeIndividualSets DescriptorPoolBehavior = 1 << iota
)

type SharingMode int

const (
	SharingExclusive SharingMode = iota
	SharingConcurrent
)

type BufferUsage uint32

const (
	BufferTransferSrc BufferUsage = 1 << iota
	BufferTransferDst
	BufferUniformTexel
	BufferStorageTexel
	BufferUniform
	BufferStorage
	BufferVertex
	BufferIndex
	BufferIndirect
)

type ImageLayout int

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutDepthStencilReadOnly
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPreinitialized
	LayoutPresentSource
)

type ImageType int

const (
	ImageType2D ImageType = iota
	ImageType1D
	ImageType3D
)

type ImageViewType int

const (
	ViewType2D ImageViewType = iota
	ViewType1D
	ViewType1DArray
	ViewType2DArray
	ViewTypeCube
	ViewTypeCubeArray
	ViewType3D
)

type ComponentSwizzle int

const (
	SwizzleIdentity ComponentSwizzle = iota
	SwizzleZero
	SwizzleOne
	SwizzleR
	SwizzleG
	SwizzleB
	SwizzleA
)

type ImageUsage uint32

const (
	ImageSampled ImageUsage = 1 << iota
	ImageStorage
	ImageTransferSrc
	ImageTransferDst
	ImageColorAttachment
	ImageDepthStencilAttachment
	ImageInputAttachment
	ImageTransientAttachment
)

type ImageTiling int

const (
	TilingOptimal ImageTiling = iota
	TilingLinear
)

type ImageAspect uint32

const (
	AspectColor ImageAspect = 1 << iota
	AspectDepth
	AspectStencil
	AspectMetadata
)

type ImageSubresourceRange struct {
	Aspect         ImageAspect // zero means AspectColor
	BaseMipLevel   uint32
	LevelCount     uint32 // zero means 1
	BaseArrayLayer uint32
	LayerCount     uint32 // zero means 1
}

// Normalized fills the zero-value defaults.
func (r ImageSubresourceRange) Normalized() ImageSubresourceRange {
	if r.Aspect == 0 {
		r.Aspect = AspectColor
	}
	if r.LevelCount == 0 {
		r.LevelCount = 1
	}
	if r.LayerCount == 0 {
		r.LayerCount = 1
	}
	return r
}

type ImageSubresourceLayers struct {
	Aspect         ImageAspect
	MipLevel       uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

type SampleCount int

const (
	SampleCount1  SampleCount = 1
	SampleCount2  SampleCount = 2
	SampleCount4  SampleCount = 4
	SampleCount8  SampleCount = 8
	SampleCount16 SampleCount = 16
	SampleCount32 SampleCount = 32
	SampleCount64 SampleCount = 64
)

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type MipmapMode int

const (
	MipmapNearest MipmapMode = iota
	MipmapLinear
)

type AddressMode int

const (
	AddressRepeat AddressMode = iota
	AddressMirroredRepeat
	AddressClampToEdge
	AddressClampToBorder
	AddressMirrorClampToEdge
)

type BorderColor int

const (
	BorderFloatTransparentBlack BorderColor = iota
	BorderIntTransparentBlack
	BorderFloatOpaqueBlack
	BorderIntOpaqueBlack
	BorderFloatOpaqueWhite
	BorderIntOpaqueWhite
)

type CompareOp int

const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessOrEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterOrEqual
	CompareAlways
)

type StencilOp int

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrementAndClamp
	StencilDecrementAndClamp
	StencilInvert
	StencilIncrementAndWrap
	StencilDecrementAndWrap
)

// AttachmentLoadOp defaults to LoadOpClear.
type AttachmentLoadOp int

const (
	LoadOpClear AttachmentLoadOp = iota
	LoadOpLoad
	LoadOpDontCare
)

// AttachmentStoreOp defaults to StoreOpStore.
type AttachmentStoreOp int

const (
	StoreOpStore AttachmentStoreOp = iota
	StoreOpDontCare
)

type ResolveMode int

const (
	ResolveNone ResolveMode = iota
	ResolveAverage
	ResolveSampleZero
	ResolveMin
	ResolveMax
)

type RenderingFlags uint32

const (
	// RenderingContentsSecondary records the pass body through ExecuteCommands.
	RenderingContentsSecondary RenderingFlags = 1 << iota
)

type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendDstColor
	BlendOneMinusDstColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendConstantColor
	BlendOneMinusConstantColor
	BlendConstantAlpha
	BlendOneMinusConstantAlpha
)

type BlendOp int

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

type ColorComponent uint32

const (
	ComponentR ColorComponent = 1 << iota
	ComponentG
	ComponentB
	ComponentA

	ComponentAll = ComponentR | ComponentG | ComponentB | ComponentA
)

type LogicOp int

const (
	LogicClear LogicOp = iota
	LogicAnd
	LogicAndReverse
	LogicCopy
	LogicAndInverted
	LogicNoOp
	LogicXor
	LogicOr
	LogicNor
	LogicEquivalent
	LogicInvert
	LogicOrReverse
	LogicCopyInverted
	LogicOrInverted
	LogicNand
	LogicSet
)

type PrimitiveTopology int

const (
	TopologyTriangleList PrimitiveTopology = iota
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyPointList
	TopologyLineList
	TopologyLineStrip
)

type PolygonMode int

const (
	PolygonFill PolygonMode = iota
	PolygonLine
	PolygonPoint
)

type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
	CullFrontAndBack
)

type FrontFace int

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

type VertexInputRate int

const (
	InputRateVertex VertexInputRate = iota
	InputRateInstance
)

type VertexFormat int

const (
	VertexFloat VertexFormat = iota
	VertexFloat2
	VertexFloat3
	VertexFloat4
	VertexInt
	VertexInt2
	VertexInt3
	VertexInt4
	VertexUInt
	VertexUInt2
	VertexUInt3
	VertexUInt4
)

type IndexType int

const (
	IndexUInt16 IndexType = iota
	IndexUInt32
)
