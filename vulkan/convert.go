package vulkan

import (
	"time"

	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_2"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/constraints"
)

// translateFlags maps every set bit of src through table.
func translateFlags[S, D constraints.Integer](src S, table map[S]D) D {
	var out D
	for bit, flag := range table {
		if src&bit != 0 {
			out |= flag
		}
	}
	return out
}

func invert[K, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

var formats = map[rhi.Format]core1_0.Format{
	rhi.FormatUndefined:          core1_0.FormatUndefined,
	rhi.FormatR8Unorm:            core1_0.FormatR8UnsignedNormalized,
	rhi.FormatR8Uint:             core1_0.FormatR8UnsignedInt,
	rhi.FormatR8Srgb:             core1_0.FormatR8SRGB,
	rhi.FormatR16Unorm:           core1_0.FormatR16UnsignedNormalized,
	rhi.FormatR16Uint:            core1_0.FormatR16UnsignedInt,
	rhi.FormatR16Sfloat:          core1_0.FormatR16SignedFloat,
	rhi.FormatR32Uint:            core1_0.FormatR32UnsignedInt,
	rhi.FormatR32Sfloat:          core1_0.FormatR32SignedFloat,
	rhi.FormatR8G8Unorm:          core1_0.FormatR8G8UnsignedNormalized,
	rhi.FormatR8G8Uint:           core1_0.FormatR8G8UnsignedInt,
	rhi.FormatR8G8Srgb:           core1_0.FormatR8G8SRGB,
	rhi.FormatR16G16Unorm:        core1_0.FormatR16G16UnsignedNormalized,
	rhi.FormatR16G16Uint:         core1_0.FormatR16G16UnsignedInt,
	rhi.FormatR16G16Sfloat:       core1_0.FormatR16G16SignedFloat,
	rhi.FormatR32G32Uint:         core1_0.FormatR32G32UnsignedInt,
	rhi.FormatR32G32Sfloat:       core1_0.FormatR32G32SignedFloat,
	rhi.FormatR32G32B32Sfloat:    core1_0.FormatR32G32B32SignedFloat,
	rhi.FormatR8G8B8A8Unorm:      core1_0.FormatR8G8B8A8UnsignedNormalized,
	rhi.FormatR8G8B8A8Uint:       core1_0.FormatR8G8B8A8UnsignedInt,
	rhi.FormatR8G8B8A8Srgb:       core1_0.FormatR8G8B8A8SRGB,
	rhi.FormatB8G8R8A8Unorm:      core1_0.FormatB8G8R8A8UnsignedNormalized,
	rhi.FormatB8G8R8A8Srgb:       core1_0.FormatB8G8R8A8SRGB,
	rhi.FormatR16G16B16A16Sfloat: core1_0.FormatR16G16B16A16SignedFloat,
	rhi.FormatR32G32B32A32Sfloat: core1_0.FormatR32G32B32A32SignedFloat,
	rhi.FormatD16Unorm:           core1_0.FormatD16UnsignedNormalized,
	rhi.FormatD32Sfloat:          core1_0.FormatD32SignedFloat,
	rhi.FormatD24UnormS8Uint:     core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
	rhi.FormatD32SfloatS8Uint:    core1_0.FormatD32SignedFloatS8UnsignedInt,
}

var nativeFormats = invert(formats)

func toFormat(f rhi.Format) core1_0.Format {
	return formats[f]
}

// fromFormat returns FormatUndefined for formats this package does not
// expose.
func fromFormat(f core1_0.Format) rhi.Format {
	return nativeFormats[f]
}

var vertexFormats = map[rhi.VertexFormat]core1_0.Format{
	rhi.VertexFloat:  core1_0.FormatR32SignedFloat,
	rhi.VertexFloat2: core1_0.FormatR32G32SignedFloat,
	rhi.VertexFloat3: core1_0.FormatR32G32B32SignedFloat,
	rhi.VertexFloat4: core1_0.FormatR32G32B32A32SignedFloat,
	rhi.VertexInt:    core1_0.FormatR32SignedInt,
	rhi.VertexInt2:   core1_0.FormatR32G32SignedInt,
	rhi.VertexInt3:   core1_0.FormatR32G32B32SignedInt,
	rhi.VertexInt4:   core1_0.FormatR32G32B32A32SignedInt,
	rhi.VertexUInt:   core1_0.FormatR32UnsignedInt,
	rhi.VertexUInt2:  core1_0.FormatR32G32UnsignedInt,
	rhi.VertexUInt3:  core1_0.FormatR32G32B32UnsignedInt,
	rhi.VertexUInt4:  core1_0.FormatR32G32B32A32UnsignedInt,
}

var colorSpaces = map[rhi.ColorSpace]khr_surface.ColorSpace{
	rhi.ColorSpaceSRGBNonlinear: khr_surface.ColorSpaceSRGBNonlinear,
}

var nativeColorSpaces = invert(colorSpaces)

func fromColorSpace(c khr_surface.ColorSpace) rhi.ColorSpace {
	if cs, ok := nativeColorSpaces[c]; ok {
		return cs
	}
	return rhi.ColorSpaceUnknown
}

var presentModes = map[rhi.PresentMode]khr_surface.PresentMode{
	rhi.PresentModeFifo:        khr_surface.PresentModeFIFO,
	rhi.PresentModeFifoRelaxed: khr_surface.PresentModeFIFORelaxed,
	rhi.PresentModeMailbox:     khr_surface.PresentModeMailbox,
	rhi.PresentModeImmediate:   khr_surface.PresentModeImmediate,
}

var nativePresentModes = invert(presentModes)

var physicalDeviceTypes = map[core1_0.PhysicalDeviceType]rhi.PhysicalDeviceType{
	core1_0.PhysicalDeviceTypeOther:         rhi.PhysicalDeviceOther,
	core1_0.PhysicalDeviceTypeIntegratedGPU: rhi.PhysicalDeviceIntegrated,
	core1_0.PhysicalDeviceTypeDiscreteGPU:   rhi.PhysicalDeviceDiscrete,
	core1_0.PhysicalDeviceTypeVirtualGPU:    rhi.PhysicalDeviceVirtual,
	core1_0.PhysicalDeviceTypeCPU:           rhi.PhysicalDeviceCPU,
}

var queueTypes = map[core1_0.QueueFlags]rhi.QueueType{
	core1_0.QueueGraphics: rhi.QueueGraphics,
	core1_0.QueueCompute:  rhi.QueueCompute,
	core1_0.QueueTransfer: rhi.QueueTransfer,
}

var imageLayouts = map[rhi.ImageLayout]core1_0.ImageLayout{
	rhi.LayoutUndefined:              core1_0.ImageLayoutUndefined,
	rhi.LayoutGeneral:                core1_0.ImageLayoutGeneral,
	rhi.LayoutColorAttachment:        core1_0.ImageLayoutColorAttachmentOptimal,
	rhi.LayoutDepthStencilAttachment: core1_0.ImageLayoutDepthStencilAttachmentOptimal,
	rhi.LayoutDepthStencilReadOnly:   core1_0.ImageLayoutDepthStencilReadOnlyOptimal,
	rhi.LayoutShaderReadOnly:         core1_0.ImageLayoutShaderReadOnlyOptimal,
	rhi.LayoutTransferSrc:            core1_0.ImageLayoutTransferSrcOptimal,
	rhi.LayoutTransferDst:            core1_0.ImageLayoutTransferDstOptimal,
	rhi.LayoutPreinitialized:         core1_0.ImageLayoutPreinitialized,
	rhi.LayoutPresentSource:          khr_swapchain.ImageLayoutPresentSrc,
}

func toLayout(l rhi.ImageLayout) core1_0.ImageLayout {
	return imageLayouts[l]
}

var pipelineStages = map[rhi.PipelineStage]core1_0.PipelineStageFlags{
	rhi.StageTopOfPipe:                    core1_0.PipelineStageTopOfPipe,
	rhi.StageDrawIndirect:                 core1_0.PipelineStageDrawIndirect,
	rhi.StageVertexInput:                  core1_0.PipelineStageVertexInput,
	rhi.StageVertexShader:                 core1_0.PipelineStageVertexShader,
	rhi.StageTessellationControlShader:    core1_0.PipelineStageTessellationControlShader,
	rhi.StageTessellationEvaluationShader: core1_0.PipelineStageTessellationEvaluationShader,
	rhi.StageGeometryShader:               core1_0.PipelineStageGeometryShader,
	rhi.StageFragmentShader:               core1_0.PipelineStageFragmentShader,
	rhi.StageEarlyFragmentTests:           core1_0.PipelineStageEarlyFragmentTests,
	rhi.StageLateFragmentTests:            core1_0.PipelineStageLateFragmentTests,
	rhi.StageColorAttachmentOutput:        core1_0.PipelineStageColorAttachmentOutput,
	rhi.StageComputeShader:                core1_0.PipelineStageComputeShader,
	rhi.StageTransfer:                     core1_0.PipelineStageTransfer,
	rhi.StageBottomOfPipe:                 core1_0.PipelineStageBottomOfPipe,
	rhi.StageHost:                         core1_0.PipelineStageHost,
	rhi.StageAllGraphics:                  core1_0.PipelineStageAllGraphics,
	rhi.StageAllCommands:                  core1_0.PipelineStageAllCommands,
}

// toStages maps StageNone to top-of-pipe, which Vulkan 1.0 requires in place
// of an empty mask.
func toStages(s rhi.PipelineStage) core1_0.PipelineStageFlags {
	if s == rhi.StageNone {
		return core1_0.PipelineStageTopOfPipe
	}
	return translateFlags(s, pipelineStages)
}

var accessFlags = map[rhi.Access]core1_0.AccessFlags{
	rhi.AccessIndirectCommandRead:         core1_0.AccessIndirectCommandRead,
	rhi.AccessIndexRead:                   core1_0.AccessIndexRead,
	rhi.AccessVertexAttributeRead:         core1_0.AccessVertexAttributeRead,
	rhi.AccessUniformRead:                 core1_0.AccessUniformRead,
	rhi.AccessInputAttachmentRead:         core1_0.AccessInputAttachmentRead,
	rhi.AccessShaderRead:                  core1_0.AccessShaderRead,
	rhi.AccessShaderWrite:                 core1_0.AccessShaderWrite,
	rhi.AccessColorAttachmentRead:         core1_0.AccessColorAttachmentRead,
	rhi.AccessColorAttachmentWrite:        core1_0.AccessColorAttachmentWrite,
	rhi.AccessDepthStencilAttachmentRead:  core1_0.AccessDepthStencilAttachmentRead,
	rhi.AccessDepthStencilAttachmentWrite: core1_0.AccessDepthStencilAttachmentWrite,
	rhi.AccessTransferRead:                core1_0.AccessTransferRead,
	rhi.AccessTransferWrite:               core1_0.AccessTransferWrite,
	rhi.AccessHostRead:                    core1_0.AccessHostRead,
	rhi.AccessHostWrite:                   core1_0.AccessHostWrite,
	rhi.AccessMemoryRead:                  core1_0.AccessMemoryRead,
	rhi.AccessMemoryWrite:                 core1_0.AccessMemoryWrite,
}

func toAccess(a rhi.Access) core1_0.AccessFlags {
	return translateFlags(a, accessFlags)
}

var shaderStages = map[rhi.ShaderStage]core1_0.ShaderStageFlags{
	rhi.ShaderVertex:                 core1_0.StageVertex,
	rhi.ShaderFragment:               core1_0.StageFragment,
	rhi.ShaderCompute:                core1_0.StageCompute,
	rhi.ShaderGeometry:               core1_0.StageGeometry,
	rhi.ShaderTessellationControl:    core1_0.StageTessellationControl,
	rhi.ShaderTessellationEvaluation: core1_0.StageTessellationEvaluation,
}

func toShaderStages(s rhi.ShaderStage) core1_0.ShaderStageFlags {
	return translateFlags(s, shaderStages)
}

var descriptorTypes = map[rhi.DescriptorType]core1_0.DescriptorType{
	rhi.DescriptorSampler:              core1_0.DescriptorTypeSampler,
	rhi.DescriptorCombinedImageSampler: core1_0.DescriptorTypeCombinedImageSampler,
	rhi.DescriptorSampledImage:         core1_0.DescriptorTypeSampledImage,
	rhi.DescriptorStorageImage:         core1_0.DescriptorTypeStorageImage,
	rhi.DescriptorUniformTexelBuffer:   core1_0.DescriptorTypeUniformTexelBuffer,
	rhi.DescriptorStorageTexelBuffer:   core1_0.DescriptorTypeStorageTexelBuffer,
	rhi.DescriptorUniformBuffer:        core1_0.DescriptorTypeUniformBuffer,
	rhi.DescriptorStorageBuffer:        core1_0.DescriptorTypeStorageBuffer,
	rhi.DescriptorUniformBufferDynamic: core1_0.DescriptorTypeUniformBufferDynamic,
	rhi.DescriptorStorageBufferDynamic: core1_0.DescriptorTypeStorageBufferDynamic,
	rhi.DescriptorInputAttachment:      core1_0.DescriptorTypeInputAttachment,
}

var bufferUsages = map[rhi.BufferUsage]core1_0.BufferUsageFlags{
	rhi.BufferTransferSrc:  core1_0.BufferUsageTransferSrc,
	rhi.BufferTransferDst:  core1_0.BufferUsageTransferDst,
	rhi.BufferUniformTexel: core1_0.BufferUsageUniformTexelBuffer,
	rhi.BufferStorageTexel: core1_0.BufferUsageStorageTexelBuffer,
	rhi.BufferUniform:      core1_0.BufferUsageUniformBuffer,
	rhi.BufferStorage:      core1_0.BufferUsageStorageBuffer,
	rhi.BufferVertex:       core1_0.BufferUsageVertexBuffer,
	rhi.BufferIndex:        core1_0.BufferUsageIndexBuffer,
	rhi.BufferIndirect:     core1_0.BufferUsageIndirectBuffer,
}

var imageUsages = map[rhi.ImageUsage]core1_0.ImageUsageFlags{
	rhi.ImageSampled:                core1_0.ImageUsageSampled,
	rhi.ImageStorage:                core1_0.ImageUsageStorage,
	rhi.ImageTransferSrc:            core1_0.ImageUsageTransferSrc,
	rhi.ImageTransferDst:            core1_0.ImageUsageTransferDst,
	rhi.ImageColorAttachment:        core1_0.ImageUsageColorAttachment,
	rhi.ImageDepthStencilAttachment: core1_0.ImageUsageDepthStencilAttachment,
	rhi.ImageInputAttachment:        core1_0.ImageUsageInputAttachment,
	rhi.ImageTransientAttachment:    core1_0.ImageUsageTransientAttachment,
}

var nativeImageUsages = invert(imageUsages)

var sharingModes = map[rhi.SharingMode]core1_0.SharingMode{
	rhi.SharingExclusive:  core1_0.SharingModeExclusive,
	rhi.SharingConcurrent: core1_0.SharingModeConcurrent,
}

var imageTypes = map[rhi.ImageType]core1_0.ImageType{
	rhi.ImageType1D: core1_0.ImageType1D,
	rhi.ImageType2D: core1_0.ImageType2D,
	rhi.ImageType3D: core1_0.ImageType3D,
}

var imageViewTypes = map[rhi.ImageViewType]core1_0.ImageViewType{
	rhi.ViewType1D:        core1_0.ImageViewType1D,
	rhi.ViewType1DArray:   core1_0.ImageViewType1DArray,
	rhi.ViewType2D:        core1_0.ImageViewType2D,
	rhi.ViewType2DArray:   core1_0.ImageViewType2DArray,
	rhi.ViewTypeCube:      core1_0.ImageViewTypeCube,
	rhi.ViewTypeCubeArray: core1_0.ImageViewTypeCubeArray,
	rhi.ViewType3D:        core1_0.ImageViewType3D,
}

var swizzles = map[rhi.ComponentSwizzle]core1_0.ComponentSwizzle{
	rhi.SwizzleIdentity: core1_0.ComponentSwizzleIdentity,
	rhi.SwizzleZero:     core1_0.ComponentSwizzleZero,
	rhi.SwizzleOne:      core1_0.ComponentSwizzleOne,
	rhi.SwizzleR:        core1_0.ComponentSwizzleRed,
	rhi.SwizzleG:        core1_0.ComponentSwizzleGreen,
	rhi.SwizzleB:        core1_0.ComponentSwizzleBlue,
	rhi.SwizzleA:        core1_0.ComponentSwizzleAlpha,
}

var tilings = map[rhi.ImageTiling]core1_0.ImageTiling{
	rhi.TilingOptimal: core1_0.ImageTilingOptimal,
	rhi.TilingLinear:  core1_0.ImageTilingLinear,
}

var aspects = map[rhi.ImageAspect]core1_0.ImageAspectFlags{
	rhi.AspectColor:    core1_0.ImageAspectColor,
	rhi.AspectDepth:    core1_0.ImageAspectDepth,
	rhi.AspectStencil:  core1_0.ImageAspectStencil,
	rhi.AspectMetadata: core1_0.ImageAspectMetadata,
}

var sampleCounts = map[rhi.SampleCount]core1_0.SampleCountFlags{
	rhi.SampleCount1:  core1_0.Samples1,
	rhi.SampleCount2:  core1_0.Samples2,
	rhi.SampleCount4:  core1_0.Samples4,
	rhi.SampleCount8:  core1_0.Samples8,
	rhi.SampleCount16: core1_0.Samples16,
	rhi.SampleCount32: core1_0.Samples32,
	rhi.SampleCount64: core1_0.Samples64,
}

func toSamples(s rhi.SampleCount) core1_0.SampleCountFlags {
	if s == 0 {
		return core1_0.Samples1
	}
	return sampleCounts[s]
}

var filters = map[rhi.Filter]core1_0.Filter{
	rhi.FilterNearest: core1_0.FilterNearest,
	rhi.FilterLinear:  core1_0.FilterLinear,
}

var mipmapModes = map[rhi.MipmapMode]core1_0.SamplerMipmapMode{
	rhi.MipmapNearest: core1_0.SamplerMipmapModeNearest,
	rhi.MipmapLinear:  core1_0.SamplerMipmapModeLinear,
}

var addressModes = map[rhi.AddressMode]core1_0.SamplerAddressMode{
	rhi.AddressRepeat:            core1_0.SamplerAddressModeRepeat,
	rhi.AddressMirroredRepeat:    core1_0.SamplerAddressModeMirroredRepeat,
	rhi.AddressClampToEdge:       core1_0.SamplerAddressModeClampToEdge,
	rhi.AddressClampToBorder:     core1_0.SamplerAddressModeClampToBorder,
	rhi.AddressMirrorClampToEdge: core1_2.SamplerAddressModeMirrorClampToEdge,
}

var borderColors = map[rhi.BorderColor]core1_0.BorderColor{
	rhi.BorderFloatTransparentBlack: core1_0.BorderColorFloatTransparentBlack,
	rhi.BorderIntTransparentBlack:   core1_0.BorderColorIntTransparentBlack,
	rhi.BorderFloatOpaqueBlack:      core1_0.BorderColorFloatOpaqueBlack,
	rhi.BorderIntOpaqueBlack:        core1_0.BorderColorIntOpaqueBlack,
	rhi.BorderFloatOpaqueWhite:      core1_0.BorderColorFloatOpaqueWhite,
	rhi.BorderIntOpaqueWhite:        core1_0.BorderColorIntOpaqueWhite,
}

var compareOps = map[rhi.CompareOp]core1_0.CompareOp{
	rhi.CompareNever:          core1_0.CompareOpNever,
	rhi.CompareLess:           core1_0.CompareOpLess,
	rhi.CompareEqual:          core1_0.CompareOpEqual,
	rhi.CompareLessOrEqual:    core1_0.CompareOpLessOrEqual,
	rhi.CompareGreater:        core1_0.CompareOpGreater,
	rhi.CompareNotEqual:       core1_0.CompareOpNotEqual,
	rhi.CompareGreaterOrEqual: core1_0.CompareOpGreaterOrEqual,
	rhi.CompareAlways:         core1_0.CompareOpAlways,
}

var stencilOps = map[rhi.StencilOp]core1_0.StencilOp{
	rhi.StencilKeep:              core1_0.StencilKeep,
	rhi.StencilZero:              core1_0.StencilZero,
	rhi.StencilReplace:           core1_0.StencilReplace,
	rhi.StencilIncrementAndClamp: core1_0.StencilIncrementAndClamp,
	rhi.StencilDecrementAndClamp: core1_0.StencilDecrementAndClamp,
	rhi.StencilInvert:            core1_0.StencilInvert,
	rhi.StencilIncrementAndWrap:  core1_0.StencilIncrementAndWrap,
	rhi.StencilDecrementAndWrap:  core1_0.StencilDecrementAndWrap,
}

var loadOps = map[rhi.AttachmentLoadOp]core1_0.AttachmentLoadOp{
	rhi.LoadOpClear:    core1_0.AttachmentLoadOpClear,
	rhi.LoadOpLoad:     core1_0.AttachmentLoadOpLoad,
	rhi.LoadOpDontCare: core1_0.AttachmentLoadOpDontCare,
}

var storeOps = map[rhi.AttachmentStoreOp]core1_0.AttachmentStoreOp{
	rhi.StoreOpStore:    core1_0.AttachmentStoreOpStore,
	rhi.StoreOpDontCare: core1_0.AttachmentStoreOpDontCare,
}

var blendFactors = map[rhi.BlendFactor]core1_0.BlendFactor{
	rhi.BlendZero:                  core1_0.BlendFactorZero,
	rhi.BlendOne:                   core1_0.BlendFactorOne,
	rhi.BlendSrcColor:              core1_0.BlendFactorSrcColor,
	rhi.BlendOneMinusSrcColor:      core1_0.BlendFactorOneMinusSrcColor,
	rhi.BlendDstColor:              core1_0.BlendFactorDstColor,
	rhi.BlendOneMinusDstColor:      core1_0.BlendFactorOneMinusDstColor,
	rhi.BlendSrcAlpha:              core1_0.BlendFactorSrcAlpha,
	rhi.BlendOneMinusSrcAlpha:      core1_0.BlendFactorOneMinusSrcAlpha,
	rhi.BlendDstAlpha:              core1_0.BlendFactorDstAlpha,
	rhi.BlendOneMinusDstAlpha:      core1_0.BlendFactorOneMinusDstAlpha,
	rhi.BlendConstantColor:         core1_0.BlendFactorConstantColor,
	rhi.BlendOneMinusConstantColor: core1_0.BlendFactorOneMinusConstantColor,
	rhi.BlendConstantAlpha:         core1_0.BlendFactorConstantAlpha,
	rhi.BlendOneMinusConstantAlpha: core1_0.BlendFactorOneMinusConstantAlpha,
}

var blendOps = map[rhi.BlendOp]core1_0.BlendOp{
	rhi.BlendOpAdd:             core1_0.BlendOpAdd,
	rhi.BlendOpSubtract:        core1_0.BlendOpSubtract,
	rhi.BlendOpReverseSubtract: core1_0.BlendOpReverseSubtract,
	rhi.BlendOpMin:             core1_0.BlendOpMin,
	rhi.BlendOpMax:             core1_0.BlendOpMax,
}

var colorComponents = map[rhi.ColorComponent]core1_0.ColorComponentFlags{
	rhi.ComponentR: core1_0.ColorComponentRed,
	rhi.ComponentG: core1_0.ColorComponentGreen,
	rhi.ComponentB: core1_0.ColorComponentBlue,
	rhi.ComponentA: core1_0.ColorComponentAlpha,
}

var logicOps = map[rhi.LogicOp]core1_0.LogicOp{
	rhi.LogicClear:        core1_0.LogicOpClear,
	rhi.LogicAnd:          core1_0.LogicOpAnd,
	rhi.LogicAndReverse:   core1_0.LogicOpAndReverse,
	rhi.LogicCopy:         core1_0.LogicOpCopy,
	rhi.LogicAndInverted:  core1_0.LogicOpAndInverted,
	rhi.LogicNoOp:         core1_0.LogicOpNoop,
	rhi.LogicXor:          core1_0.LogicOpXor,
	rhi.LogicOr:           core1_0.LogicOpOr,
	rhi.LogicNor:          core1_0.LogicOpNor,
	rhi.LogicEquivalent:   core1_0.LogicOpEquivalent,
	rhi.LogicInvert:       core1_0.LogicOpInvert,
	rhi.LogicOrReverse:    core1_0.LogicOpOrReverse,
	rhi.LogicCopyInverted: core1_0.LogicOpCopyInverted,
	rhi.LogicOrInverted:   core1_0.LogicOpOrInverted,
	rhi.LogicNand:         core1_0.LogicOpNand,
	rhi.LogicSet:          core1_0.LogicOpSet,
}

var topologies = map[rhi.PrimitiveTopology]core1_0.PrimitiveTopology{
	rhi.TopologyTriangleList:  core1_0.PrimitiveTopologyTriangleList,
	rhi.TopologyTriangleStrip: core1_0.PrimitiveTopologyTriangleStrip,
	rhi.TopologyTriangleFan:   core1_0.PrimitiveTopologyTriangleFan,
	rhi.TopologyPointList:     core1_0.PrimitiveTopologyPointList,
	rhi.TopologyLineList:      core1_0.PrimitiveTopologyLineList,
	rhi.TopologyLineStrip:     core1_0.PrimitiveTopologyLineStrip,
}

var polygonModes = map[rhi.PolygonMode]core1_0.PolygonMode{
	rhi.PolygonFill:  core1_0.PolygonModeFill,
	rhi.PolygonLine:  core1_0.PolygonModeLine,
	rhi.PolygonPoint: core1_0.PolygonModePoint,
}

var cullModes = map[rhi.CullMode]core1_0.CullModeFlags{
	rhi.CullNone:         0,
	rhi.CullFront:        core1_0.CullModeFront,
	rhi.CullBack:         core1_0.CullModeBack,
	rhi.CullFrontAndBack: core1_0.CullModeFront | core1_0.CullModeBack,
}

var frontFaces = map[rhi.FrontFace]core1_0.FrontFace{
	rhi.FrontFaceCounterClockwise: core1_0.FrontFaceCounterClockwise,
	rhi.FrontFaceClockwise:        core1_0.FrontFaceClockwise,
}

var inputRates = map[rhi.VertexInputRate]core1_0.VertexInputRate{
	rhi.InputRateVertex:   core1_0.VertexInputRateVertex,
	rhi.InputRateInstance: core1_0.VertexInputRateInstance,
}

var indexTypes = map[rhi.IndexType]core1_0.IndexType{
	rhi.IndexUInt16: core1_0.IndexTypeUInt16,
	rhi.IndexUInt32: core1_0.IndexTypeUInt32,
}

var bindPoints = map[rhi.PipelineBindPoint]core1_0.PipelineBindPoint{
	rhi.BindPointGraphics: core1_0.PipelineBindPointGraphics,
	rhi.BindPointCompute:  core1_0.PipelineBindPointCompute,
}

func toSubresourceRange(r rhi.ImageSubresourceRange) core1_0.ImageSubresourceRange {
	r = r.Normalized()
	return core1_0.ImageSubresourceRange{
		AspectMask:     translateFlags(r.Aspect, aspects),
		BaseMipLevel:   int(r.BaseMipLevel),
		LevelCount:     int(r.LevelCount),
		BaseArrayLayer: int(r.BaseArrayLayer),
		LayerCount:     int(r.LayerCount),
	}
}

func toSubresourceLayers(l rhi.ImageSubresourceLayers) core1_0.ImageSubresourceLayers {
	aspect := l.Aspect
	if aspect == 0 {
		aspect = rhi.AspectColor
	}
	layers := l.LayerCount
	if layers == 0 {
		layers = 1
	}
	return core1_0.ImageSubresourceLayers{
		AspectMask:     translateFlags(aspect, aspects),
		MipLevel:       int(l.MipLevel),
		BaseArrayLayer: int(l.BaseArrayLayer),
		LayerCount:     int(layers),
	}
}

func toExtent2D(e rhi.Extent2D) core1_0.Extent2D {
	return core1_0.Extent2D{Width: int(e.Width), Height: int(e.Height)}
}

func fromExtent2D(e core1_0.Extent2D) rhi.Extent2D {
	return rhi.Extent2D{Width: uint32(e.Width), Height: uint32(e.Height)}
}

func toExtent3D(e rhi.Extent3D) core1_0.Extent3D {
	depth := e.Depth
	if depth == 0 {
		depth = 1
	}
	return core1_0.Extent3D{Width: int(e.Width), Height: int(e.Height), Depth: int(depth)}
}

func toRect(r rhi.Rect2D) core1_0.Rect2D {
	return core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: int(r.Offset.X), Y: int(r.Offset.Y)},
		Extent: toExtent2D(r.Extent),
	}
}

func toClearValue(v rhi.ClearValue) core1_0.ClearValue {
	switch v := v.(type) {
	case rhi.ClearColorFloat:
		return core1_0.ClearValueFloat(v)
	case rhi.ClearColorInt:
		return core1_0.ClearValueInt32(v)
	case rhi.ClearColorUint:
		return core1_0.ClearValueUint32(v)
	case rhi.ClearDepthStencil:
		return core1_0.ClearValueDepthStencil{Depth: v.Depth, Stencil: v.Stencil}
	}
	return nil
}

func toVersion(v rhi.Version) common.Version {
	return common.CreateVersion(v.Major, v.Minor, v.Patch)
}

// toTimeout maps rhi.Infinite to the native no-timeout value and clamps
// negative durations to a poll.
func toTimeout(d time.Duration) time.Duration {
	if d == rhi.Infinite {
		return common.NoTimeout
	}
	if d < 0 {
		return 0
	}
	return d
}
