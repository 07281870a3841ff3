package vulkan

import (
	"sync"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

type Shader struct {
	device *Device
	handle core1_0.ShaderModule
	once   sync.Once
}

func (s *Shader) NativeHandle() any { return s.handle }
func (s *Shader) owner() *Device    { return s.device }

func (s *Shader) Destroy() {
	s.once.Do(func() { s.handle.Destroy(nil) })
}

type PipelineLayout struct {
	device *Device
	handle core1_0.PipelineLayout
	once   sync.Once
}

func (l *PipelineLayout) NativeHandle() any { return l.handle }
func (l *PipelineLayout) owner() *Device    { return l.device }

func (l *PipelineLayout) Destroy() {
	l.once.Do(func() { l.handle.Destroy(nil) })
}

type Pipeline struct {
	device    *Device
	handle    core1_0.Pipeline
	bindPoint rhi.PipelineBindPoint
	layout    *PipelineLayout
	once      sync.Once
}

func (p *Pipeline) NativeHandle() any                { return p.handle }
func (p *Pipeline) BindPoint() rhi.PipelineBindPoint { return p.bindPoint }
func (p *Pipeline) Layout() rhi.PipelineLayout       { return p.layout }
func (p *Pipeline) owner() *Device                   { return p.device }

func (p *Pipeline) Destroy() {
	p.once.Do(func() { p.handle.Destroy(nil) })
}

func (d *Device) CreatePipelineLayout(desc rhi.PipelineLayoutDescription) (rhi.PipelineLayout, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	setLayouts := make([]core1_0.DescriptorSetLayout, len(desc.SetLayouts))
	for i, l := range desc.SetLayouts {
		layout, err := cast[*DescriptorSetLayout](d, "CreatePipelineLayout", "set layout", l)
		if err != nil {
			return nil, err
		}
		setLayouts[i] = layout.handle
	}

	var ranges []core1_0.PushConstantRange
	for _, r := range desc.PushConstantRanges {
		ranges = append(ranges, core1_0.PushConstantRange{
			StageFlags: toShaderStages(r.Stages),
			Offset:     int(r.Offset),
			Size:       int(r.Size),
		})
	}

	handle, res, err := d.handle.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts:         setLayouts,
		PushConstantRanges: ranges,
	})
	if err != nil {
		return nil, check("CreatePipelineLayout", res, err)
	}
	return &PipelineLayout{device: d, handle: handle}, nil
}

func (d *Device) shaderStage(op string, stage rhi.ShaderStageDescription) (core1_0.PipelineShaderStageCreateInfo, error) {
	shader, err := cast[*Shader](d, op, "shader", stage.Shader)
	if err != nil {
		return core1_0.PipelineShaderStageCreateInfo{}, err
	}
	name := stage.EntryPoint
	if name == "" {
		name = "main"
	}
	return core1_0.PipelineShaderStageCreateInfo{
		Stage:  toShaderStages(stage.Stage),
		Module: shader.handle,
		Name:   name,
	}, nil
}

func (d *Device) CreateComputePipeline(desc rhi.ComputePipelineDescription) (rhi.Pipeline, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	layout, err := cast[*PipelineLayout](d, "CreateComputePipeline", "layout", desc.Layout)
	if err != nil {
		return nil, err
	}
	stage, err := d.shaderStage("CreateComputePipeline", desc.Stage)
	if err != nil {
		return nil, err
	}

	pipelines, res, err := d.handle.CreateComputePipelines(nil, []core1_0.ComputePipelineCreateInfo{
		{
			Stage:             stage,
			Layout:            layout.handle,
			BasePipelineIndex: -1,
		},
	})
	if err != nil {
		return nil, check("CreateComputePipelines", res, err)
	}
	return &Pipeline{device: d, handle: pipelines[0], bindPoint: rhi.BindPointCompute, layout: layout}, nil
}

// CreateGraphicsPipeline builds the pipeline against a render pass that is
// compatible with the declared attachment formats, so it can be used inside
// any BeginRendering with those formats.
func (d *Device) CreateGraphicsPipeline(desc rhi.GraphicsPipelineDescription) (rhi.Pipeline, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	layout, err := cast[*PipelineLayout](d, "CreateGraphicsPipeline", "layout", desc.Layout)
	if err != nil {
		return nil, err
	}

	var stages []core1_0.PipelineShaderStageCreateInfo
	for _, s := range desc.Stages {
		stage, err := d.shaderStage("CreateGraphicsPipeline", s)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	renderPass, err := d.rendering.compatiblePass(pipelinePassKey(desc))
	if err != nil {
		return nil, err
	}

	info := graphicsPipelineInfo(desc)
	info.Stages = stages
	info.Layout = layout.handle
	info.RenderPass = renderPass

	pipelines, res, err := d.handle.CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{info})
	if err != nil {
		return nil, check("CreateGraphicsPipelines", res, err)
	}

	rhi.Logger().Debug("graphics pipeline created", slog.Int("stages", len(stages)),
		slog.Int("colorAttachments", len(desc.ColorBlend.Attachments)))
	return &Pipeline{device: d, handle: pipelines[0], bindPoint: rhi.BindPointGraphics, layout: layout}, nil
}

// pipelinePassKey describes the attachments a graphics pipeline renders to.
// Load and store operations do not affect render pass compatibility.
func pipelinePassKey(desc rhi.GraphicsPipelineDescription) passKey {
	samples := desc.Multisample.Samples
	if samples == 0 {
		samples = rhi.SampleCount1
	}

	var key passKey
	for _, a := range desc.ColorBlend.Attachments {
		key.color = append(key.color, passAttachment{
			format:  a.Format,
			samples: samples,
			layout:  rhi.LayoutColorAttachment,
		})
	}
	if format := depthStencilFormat(desc.DepthStencil); format != rhi.FormatUndefined {
		key.depth = &passAttachment{
			format:  format,
			samples: samples,
			layout:  rhi.LayoutDepthStencilAttachment,
		}
	}
	return key
}

func depthStencilFormat(ds rhi.DepthStencilState) rhi.Format {
	if ds.DepthFormat != rhi.FormatUndefined {
		return ds.DepthFormat
	}
	return ds.StencilFormat
}

func stencilOpState(s rhi.StencilOpState) core1_0.StencilOpState {
	return core1_0.StencilOpState{
		FailOp:      stencilOps[s.FailOp],
		PassOp:      stencilOps[s.PassOp],
		DepthFailOp: stencilOps[s.DepthFailOp],
		CompareOp:   compareOps[s.CompareOp],
		CompareMask: s.CompareMask,
		WriteMask:   s.WriteMask,
		Reference:   s.Reference,
	}
}

// graphicsPipelineInfo translates the fixed-function state. Stages, layout
// and render pass are filled in by the caller.
func graphicsPipelineInfo(desc rhi.GraphicsPipelineDescription) core1_0.GraphicsPipelineCreateInfo {
	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{}
	for _, b := range desc.Input.Bindings {
		vertexInput.VertexBindingDescriptions = append(vertexInput.VertexBindingDescriptions, core1_0.VertexInputBindingDescription{
			Binding:   int(b.Binding),
			Stride:    int(b.Stride),
			InputRate: inputRates[b.InputRate],
		})
	}
	for _, a := range desc.Input.Attributes {
		vertexInput.VertexAttributeDescriptions = append(vertexInput.VertexAttributeDescriptions, core1_0.VertexInputAttributeDescription{
			Binding:  int(a.Binding),
			Location: uint32(a.Location),
			Format:   vertexFormats[a.Format],
			Offset:   int(a.Offset),
		})
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               topologies[desc.Assembly.Topology],
		PrimitiveRestartEnable: desc.Assembly.EnablePrimitiveRestart,
	}

	// Viewport and scissor are dynamic, only the counts matter here
	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{{Width: 1, Height: 1, MaxDepth: 1}},
		Scissors:  []core1_0.Rect2D{{Extent: core1_0.Extent2D{Width: 1, Height: 1}}},
	}

	lineWidth := desc.Rasterization.LineWidth
	if lineWidth == 0 {
		lineWidth = 1
	}
	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        desc.Rasterization.EnableDepthClamp,
		RasterizerDiscardEnable: false,

		PolygonMode: polygonModes[desc.Rasterization.PolygonMode],
		CullMode:    cullModes[desc.Rasterization.CullMode],
		FrontFace:   frontFaces[desc.Rasterization.FrontFace],

		DepthBiasEnable:         desc.Rasterization.EnableDepthBias,
		DepthBiasConstantFactor: desc.Rasterization.DepthBiasConstantFactor,
		DepthBiasClamp:          desc.Rasterization.DepthBiasClamp,
		DepthBiasSlopeFactor:    desc.Rasterization.DepthBiasSlopeFactor,

		LineWidth: lineWidth,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  desc.Multisample.EnableSampleShading,
		RasterizationSamples: toSamples(desc.Multisample.Samples),
		MinSampleShading:     desc.Multisample.MinSampleShading,
		SampleMask:           desc.Multisample.SampleMask,
	}

	ds := desc.DepthStencil
	depthStencil := &core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:       ds.EnableDepthTest,
		DepthWriteEnable:      ds.EnableDepthWrite,
		DepthCompareOp:        compareOps[ds.DepthCompareOp],
		DepthBoundsTestEnable: ds.EnableDepthBoundsTest,
		StencilTestEnable:     ds.EnableStencilTest,
		Front:                 stencilOpState(ds.Front),
		Back:                  stencilOpState(ds.Back),
		MinDepthBounds:        ds.MinDepthBounds,
		MaxDepthBounds:        ds.MaxDepthBounds,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: desc.ColorBlend.EnableLogicOp,
		LogicOp:        logicOps[desc.ColorBlend.LogicOp],
		BlendConstants: desc.ColorBlend.BlendConstants,
	}
	for _, a := range desc.ColorBlend.Attachments {
		mask := a.WriteMask
		if mask == 0 {
			mask = rhi.ComponentAll
		}
		colorBlend.Attachments = append(colorBlend.Attachments, core1_0.PipelineColorBlendAttachmentState{
			BlendEnabled:        a.EnableBlending,
			SrcColorBlendFactor: blendFactors[a.SrcColorBlendFactor],
			DstColorBlendFactor: blendFactors[a.DstColorBlendFactor],
			ColorBlendOp:        blendOps[a.ColorBlendOp],
			SrcAlphaBlendFactor: blendFactors[a.SrcAlphaBlendFactor],
			DstAlphaBlendFactor: blendFactors[a.DstAlphaBlendFactor],
			AlphaBlendOp:        blendOps[a.AlphaBlendOp],
			ColorWriteMask:      translateFlags(mask, colorComponents),
		})
	}

	return core1_0.GraphicsPipelineCreateInfo{
		VertexInputState:   vertexInput,
		InputAssemblyState: inputAssembly,
		ViewportState:      viewport,
		RasterizationState: rasterization,
		MultisampleState:   multisample,
		DepthStencilState:  depthStencil,
		ColorBlendState:    colorBlend,
		DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
			DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor},
		},
		Subpass:           0,
		BasePipelineIndex: -1,
	}
}
