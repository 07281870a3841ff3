package rhi

import "encoding/binary"

const spirvMagic = 0x07230203

func (d DeviceDescription) Validate() error {
	if d.PhysicalDevice == nil {
		return InvalidArgumentf("CreateDevice: physical device is required")
	}
	if len(d.QueueFamilies) == 0 {
		return InvalidArgumentf("CreateDevice: at least one queue family is required")
	}
	seen := make(map[int]bool, len(d.QueueFamilies))
	for _, family := range d.QueueFamilies {
		if seen[family.Family] {
			return InvalidArgumentf("CreateDevice: queue family %d selected twice", family.Family)
		}
		seen[family.Family] = true

		if len(family.Priorities) == 0 {
			return InvalidArgumentf("CreateDevice: queue family %d has zero priorities", family.Family)
		}
		for _, priority := range family.Priorities {
			if priority < 0 || priority > 1 {
				return InvalidArgumentf("CreateDevice: queue family %d priority %v outside [0,1]", family.Family, priority)
			}
		}

		props, err := d.PhysicalDevice.QueueFamilyProperties(family.Family)
		if err != nil {
			return err
		}
		if len(family.Priorities) > props.QueueCount {
			return InvalidArgumentf("CreateDevice: queue family %d has %d priorities but only %d queues",
				family.Family, len(family.Priorities), props.QueueCount)
		}
	}
	return nil
}

func (d SurfaceDescription) Validate() error {
	if d.Window == nil {
		return InvalidArgumentf("CreateSurface: window is required")
	}
	return nil
}

func validateSharing(op string, mode SharingMode, families []int) error {
	if mode == SharingConcurrent && len(families) < 2 {
		return InvalidArgumentf("%s: concurrent sharing needs at least two queue families", op)
	}
	return nil
}

func (d MemoryRequirements) Validate() error {
	if d.Size == 0 {
		return InvalidArgumentf("Allocate: size must be non-zero")
	}
	if d.Alignment != 0 && d.Alignment&(d.Alignment-1) != 0 {
		return InvalidArgumentf("Allocate: alignment %d is not a power of two", d.Alignment)
	}
	if d.MemoryTypeBits == 0 {
		return InvalidArgumentf("Allocate: no acceptable memory types")
	}
	return nil
}

func (d PoolDescription) Validate() error {
	if d.MaxBlockCount != 0 && d.MaxBlockCount < d.MinBlockCount {
		return InvalidArgumentf("CreatePool: max block count %d below min block count %d", d.MaxBlockCount, d.MinBlockCount)
	}
	if d.MinBlockCount < 0 || d.MaxBlockCount < 0 {
		return InvalidArgumentf("CreatePool: negative block count")
	}
	if d.MinAllocationAlignment&(d.MinAllocationAlignment-1) != 0 && d.MinAllocationAlignment != 0 {
		return InvalidArgumentf("CreatePool: alignment %d is not a power of two", d.MinAllocationAlignment)
	}
	if d.Priority < 0 || d.Priority > 1 {
		return InvalidArgumentf("CreatePool: priority %v outside [0,1]", d.Priority)
	}
	return nil
}

func (d AllocationDescription) Validate() error {
	if d.Priority < 0 || d.Priority > 1 {
		return InvalidArgumentf("Allocate: priority %v outside [0,1]", d.Priority)
	}
	if d.Pool != nil && d.Dedicated {
		return InvalidArgumentf("Allocate: a dedicated allocation cannot come from a pool")
	}
	return nil
}

func (d BufferDescription) Validate() error {
	if d.Size == 0 {
		return InvalidArgumentf("CreateBuffer: size must be non-zero")
	}
	if d.Usage == 0 {
		return InvalidArgumentf("CreateBuffer: usage is required")
	}
	if err := validateSharing("CreateBuffer", d.SharingMode, d.QueueFamilies); err != nil {
		return err
	}
	return d.Memory.Validate()
}

func (d BufferViewDescription) Validate() error {
	if d.Buffer == nil {
		return InvalidArgumentf("CreateBufferView: buffer is required")
	}
	if d.Format == FormatUndefined {
		return InvalidArgumentf("CreateBufferView: format is required")
	}
	if d.Buffer.Usage()&(BufferUniformTexel|BufferStorageTexel) == 0 {
		return InvalidArgumentf("CreateBufferView: buffer was not created with a texel usage")
	}
	size := d.Buffer.Size()
	if d.Offset >= size {
		return InvalidArgumentf("CreateBufferView: offset %d beyond buffer size %d", d.Offset, size)
	}
	if d.Range != WholeSize && d.Offset+d.Range > size {
		return InvalidArgumentf("CreateBufferView: range %d at offset %d exceeds buffer size %d", d.Range, d.Offset, size)
	}
	return nil
}

func (d ImageDescription) Validate() error {
	if d.Format == FormatUndefined {
		return InvalidArgumentf("CreateImage: format is required")
	}
	if d.Extent.Width == 0 || d.Extent.Height == 0 || d.Extent.Depth == 0 {
		return InvalidArgumentf("CreateImage: extent %dx%dx%d has a zero dimension", d.Extent.Width, d.Extent.Height, d.Extent.Depth)
	}
	if d.Type != ImageType3D && d.Extent.Depth != 1 {
		return InvalidArgumentf("CreateImage: only 3D images may have depth %d", d.Extent.Depth)
	}
	if d.Type == ImageType1D && d.Extent.Height != 1 {
		return InvalidArgumentf("CreateImage: 1D images must have height 1")
	}
	if d.Usage == 0 {
		return InvalidArgumentf("CreateImage: usage is required")
	}
	switch d.Samples {
	case 0, SampleCount1, SampleCount2, SampleCount4, SampleCount8, SampleCount16, SampleCount32, SampleCount64:
	default:
		return InvalidArgumentf("CreateImage: %d is not a valid sample count", d.Samples)
	}
	if d.InitialLayout != LayoutUndefined && d.InitialLayout != LayoutPreinitialized {
		return InvalidArgumentf("CreateImage: initial layout must be Undefined or Preinitialized")
	}
	if d.CubeCompatible {
		if d.Type != ImageType2D || d.Extent.Width != d.Extent.Height || d.ArrayLayers < 6 {
			return InvalidArgumentf("CreateImage: cube images must be square 2D with at least 6 layers")
		}
	}
	if d.ArrayCompatible && d.Type != ImageType3D {
		return InvalidArgumentf("CreateImage: array compatibility applies to 3D images only")
	}
	if err := validateSharing("CreateImage", d.SharingMode, d.QueueFamilies); err != nil {
		return err
	}
	return d.Memory.Validate()
}

func (d ImageViewDescription) Validate() error {
	if d.Image == nil {
		return InvalidArgumentf("CreateImageView: image is required")
	}
	r := d.Subresource.Normalized()
	if r.BaseMipLevel+r.LevelCount > d.Image.MipLevels() {
		return InvalidArgumentf("CreateImageView: mip range %d+%d exceeds %d levels", r.BaseMipLevel, r.LevelCount, d.Image.MipLevels())
	}
	if r.BaseArrayLayer+r.LayerCount > d.Image.ArrayLayers() {
		return InvalidArgumentf("CreateImageView: layer range %d+%d exceeds %d layers", r.BaseArrayLayer, r.LayerCount, d.Image.ArrayLayers())
	}
	switch d.Type {
	case ViewTypeCube:
		if r.LayerCount != 6 {
			return InvalidArgumentf("CreateImageView: cube views need exactly 6 layers")
		}
	case ViewTypeCubeArray:
		if r.LayerCount%6 != 0 {
			return InvalidArgumentf("CreateImageView: cube array views need a multiple of 6 layers")
		}
	case ViewType1D, ViewType2D, ViewType3D:
		if r.LayerCount != 1 {
			return InvalidArgumentf("CreateImageView: non-array views need exactly 1 layer")
		}
	}
	return nil
}

func (d SamplerDescription) Validate() error {
	if d.EnableAnisotropy && d.MaxAnisotropy < 1 {
		return InvalidArgumentf("CreateSampler: max anisotropy %v below 1", d.MaxAnisotropy)
	}
	if d.MinLod > d.MaxLod {
		return InvalidArgumentf("CreateSampler: min lod %v above max lod %v", d.MinLod, d.MaxLod)
	}
	return nil
}

func (d ShaderDescription) Validate() error {
	if len(d.Code) == 0 {
		return InvalidArgumentf("CreateShader: code is empty")
	}
	if len(d.Code)%4 != 0 {
		return InvalidArgumentf("CreateShader: code length %d is not a multiple of 4", len(d.Code))
	}
	if binary.LittleEndian.Uint32(d.Code) != spirvMagic {
		return InvalidArgumentf("CreateShader: code is not SPIR-V")
	}
	return nil
}

func (d PipelineLayoutDescription) Validate() error {
	for i, layout := range d.SetLayouts {
		if layout == nil {
			return InvalidArgumentf("CreatePipelineLayout: set layout %d is nil", i)
		}
	}
	for i, r := range d.PushConstantRanges {
		if r.Stages == 0 {
			return InvalidArgumentf("CreatePipelineLayout: push constant range %d has no stages", i)
		}
		if r.Size == 0 || r.Size%4 != 0 || r.Offset%4 != 0 {
			return InvalidArgumentf("CreatePipelineLayout: push constant range %d must be a non-empty multiple of 4 at a 4-byte offset", i)
		}
	}
	return nil
}

func (s ShaderStageDescription) validate(op string) error {
	if s.Shader == nil {
		return InvalidArgumentf("%s: shader is required", op)
	}
	if s.Stage == 0 || s.Stage&(s.Stage-1) != 0 {
		return InvalidArgumentf("%s: each stage must name exactly one shader stage", op)
	}
	return nil
}

func (d ComputePipelineDescription) Validate() error {
	if d.Layout == nil {
		return InvalidArgumentf("CreateComputePipeline: layout is required")
	}
	if err := d.Stage.validate("CreateComputePipeline"); err != nil {
		return err
	}
	if d.Stage.Stage != ShaderCompute {
		return InvalidArgumentf("CreateComputePipeline: stage must be ShaderCompute")
	}
	return nil
}

func (d GraphicsPipelineDescription) Validate() error {
	const op = "CreateGraphicsPipeline"
	if d.Layout == nil {
		return InvalidArgumentf("%s: layout is required", op)
	}
	if len(d.Stages) == 0 {
		return InvalidArgumentf("%s: at least one shader stage is required", op)
	}
	var seen ShaderStage
	for _, stage := range d.Stages {
		if err := stage.validate(op); err != nil {
			return err
		}
		if stage.Stage == ShaderCompute {
			return InvalidArgumentf("%s: compute stage in a graphics pipeline", op)
		}
		if seen&stage.Stage != 0 {
			return InvalidArgumentf("%s: duplicate shader stage", op)
		}
		seen |= stage.Stage
	}
	if seen&ShaderVertex == 0 {
		return InvalidArgumentf("%s: a vertex stage is required", op)
	}

	bindings := make(map[uint32]bool, len(d.Input.Bindings))
	for _, b := range d.Input.Bindings {
		if bindings[b.Binding] {
			return InvalidArgumentf("%s: vertex binding %d declared twice", op, b.Binding)
		}
		bindings[b.Binding] = true
	}
	for _, a := range d.Input.Attributes {
		if !bindings[a.Binding] {
			return InvalidArgumentf("%s: attribute at location %d uses undeclared binding %d", op, a.Location, a.Binding)
		}
	}

	for i, attachment := range d.ColorBlend.Attachments {
		if attachment.Format == FormatUndefined || attachment.Format.HasDepth() {
			return InvalidArgumentf("%s: colour attachment %d needs a colour format", op, i)
		}
	}
	if f := d.DepthStencil.DepthFormat; f != FormatUndefined && !f.HasDepth() {
		return InvalidArgumentf("%s: depth format has no depth component", op)
	}
	if f := d.DepthStencil.StencilFormat; f != FormatUndefined && !f.HasStencil() {
		return InvalidArgumentf("%s: stencil format has no stencil component", op)
	}
	if d.DepthStencil.DepthFormat != FormatUndefined && d.DepthStencil.StencilFormat != FormatUndefined &&
		d.DepthStencil.DepthFormat != d.DepthStencil.StencilFormat {
		return InvalidArgumentf("%s: depth and stencil formats must match", op)
	}
	if len(d.ColorBlend.Attachments) == 0 && d.DepthStencil.DepthFormat == FormatUndefined &&
		d.DepthStencil.StencilFormat == FormatUndefined {
		return InvalidArgumentf("%s: no attachments declared", op)
	}
	return nil
}

func (d DescriptorSetLayoutDescription) Validate() error {
	seen := make(map[uint32]bool, len(d.Bindings))
	for _, b := range d.Bindings {
		if seen[b.Binding] {
			return InvalidArgumentf("CreateDescriptorSetLayout: binding %d declared twice", b.Binding)
		}
		seen[b.Binding] = true
		if b.Count > 0 && b.Stages == 0 {
			return InvalidArgumentf("CreateDescriptorSetLayout: binding %d has no stages", b.Binding)
		}
	}
	return nil
}

func (d DescriptorPoolDescription) Validate() error {
	if d.MaxSets == 0 {
		return InvalidArgumentf("CreateDescriptorPool: max sets must be non-zero")
	}
	if len(d.PoolSizes) == 0 {
		return InvalidArgumentf("CreateDescriptorPool: pool sizes are required")
	}
	for _, size := range d.PoolSizes {
		if size.Count == 0 {
			return InvalidArgumentf("CreateDescriptorPool: pool size for type %d is zero", size.Type)
		}
	}
	return nil
}

func (t DescriptorType) takesImages() bool {
	switch t {
	case DescriptorSampler, DescriptorCombinedImageSampler, DescriptorSampledImage,
		DescriptorStorageImage, DescriptorInputAttachment:
		return true
	}
	return false
}

func (t DescriptorType) takesBuffers() bool {
	switch t {
	case DescriptorUniformBuffer, DescriptorStorageBuffer,
		DescriptorUniformBufferDynamic, DescriptorStorageBufferDynamic:
		return true
	}
	return false
}

func (t DescriptorType) takesTexelBuffers() bool {
	return t == DescriptorUniformTexelBuffer || t == DescriptorStorageTexelBuffer
}

func (w DescriptorWrite) Validate() error {
	const op = "UpdateDescriptorSets"
	if w.Set == nil {
		return InvalidArgumentf("%s: write to binding %d has no set", op, w.Binding)
	}

	kinds := 0
	for _, populated := range []bool{len(w.Images) > 0, len(w.Buffers) > 0, len(w.TexelBuffers) > 0} {
		if populated {
			kinds++
		}
	}
	if kinds != 1 {
		return InvalidArgumentf("%s: write to binding %d must populate exactly one of images, buffers or texel buffers (got %d)",
			op, w.Binding, kinds)
	}

	switch {
	case len(w.Images) > 0:
		if !w.Type.takesImages() {
			return InvalidArgumentf("%s: descriptor type %d does not take images", op, w.Type)
		}
		for i, info := range w.Images {
			needsSampler := w.Type == DescriptorSampler || w.Type == DescriptorCombinedImageSampler
			if needsSampler && info.Sampler == nil {
				return InvalidArgumentf("%s: image %d of binding %d has no sampler", op, i, w.Binding)
			}
			if w.Type != DescriptorSampler && info.View == nil {
				return InvalidArgumentf("%s: image %d of binding %d has no view", op, i, w.Binding)
			}
		}
	case len(w.Buffers) > 0:
		if !w.Type.takesBuffers() {
			return InvalidArgumentf("%s: descriptor type %d does not take buffers", op, w.Type)
		}
		for i, info := range w.Buffers {
			if info.Buffer == nil {
				return InvalidArgumentf("%s: buffer %d of binding %d is nil", op, i, w.Binding)
			}
			if info.Offset >= info.Buffer.Size() {
				return InvalidArgumentf("%s: buffer %d of binding %d offset beyond its size", op, i, w.Binding)
			}
		}
	default:
		if !w.Type.takesTexelBuffers() {
			return InvalidArgumentf("%s: descriptor type %d does not take texel buffers", op, w.Type)
		}
		for i, view := range w.TexelBuffers {
			if view == nil {
				return InvalidArgumentf("%s: texel buffer %d of binding %d is nil", op, i, w.Binding)
			}
		}
	}
	return nil
}

func (c DescriptorCopy) Validate() error {
	if c.SrcSet == nil || c.DstSet == nil {
		return InvalidArgumentf("UpdateDescriptorSets: copy needs both source and destination sets")
	}
	if c.Count == 0 {
		return InvalidArgumentf("UpdateDescriptorSets: copy of zero descriptors")
	}
	return nil
}

func (d CommandPoolDescription) Validate() error {
	if d.QueueFamily < 0 {
		return InvalidArgumentf("CreateCommandPool: queue family %d is negative", d.QueueFamily)
	}
	return nil
}

func (a AttachmentDescription) validate(i int, depth bool) error {
	if a.View == nil {
		return InvalidArgumentf("BeginRendering: attachment %d has no view", i)
	}
	if a.Clear != nil && IsColor(a.Clear) == depth {
		return InvalidArgumentf("BeginRendering: attachment %d clear value does not match its aspect", i)
	}
	if a.ResolveView == nil && a.ResolveMode != ResolveNone {
		return InvalidArgumentf("BeginRendering: attachment %d resolves without a resolve view", i)
	}
	if a.ResolveView != nil && a.ResolveMode == ResolveNone {
		return InvalidArgumentf("BeginRendering: attachment %d has a resolve view but no resolve mode", i)
	}
	return nil
}

func (d RenderingDescription) Validate() error {
	if d.Area.Extent.Width == 0 || d.Area.Extent.Height == 0 {
		return InvalidArgumentf("BeginRendering: render area is empty")
	}
	if len(d.Color) == 0 && d.Depth == nil && d.Stencil == nil {
		return InvalidArgumentf("BeginRendering: no attachments")
	}
	for i, attachment := range d.Color {
		if err := attachment.validate(i, false); err != nil {
			return err
		}
	}
	if d.Depth != nil {
		if err := d.Depth.validate(len(d.Color), true); err != nil {
			return err
		}
	}
	if d.Stencil != nil {
		if err := d.Stencil.validate(len(d.Color)+1, true); err != nil {
			return err
		}
	}
	return nil
}

func (d BarrierDescription) Validate() error {
	if len(d.Memory) == 0 && len(d.Buffers) == 0 && len(d.Images) == 0 {
		return InvalidArgumentf("Barrier: no barriers given")
	}
	for i, b := range d.Buffers {
		if b.Buffer == nil {
			return InvalidArgumentf("Barrier: buffer barrier %d has no buffer", i)
		}
		size := b.Buffer.Size()
		if b.Offset >= size {
			return InvalidArgumentf("Barrier: buffer barrier %d offset %d is outside the buffer's %d bytes", i, b.Offset, size)
		}
		if b.Size != WholeSize && b.Size > size-b.Offset {
			return InvalidArgumentf("Barrier: buffer barrier %d range [%d, +%d) exceeds the buffer's %d bytes", i, b.Offset, b.Size, size)
		}
	}
	for i, b := range d.Images {
		if b.Image == nil {
			return InvalidArgumentf("Barrier: image barrier %d has no image", i)
		}
		if b.NewLayout == LayoutUndefined || b.NewLayout == LayoutPreinitialized {
			return InvalidArgumentf("Barrier: image barrier %d cannot transition to layout %d", i, b.NewLayout)
		}
	}
	return nil
}

func (d SubmitDescription) Validate() error {
	for i, w := range d.WaitBinary {
		if w.Semaphore == nil {
			return InvalidArgumentf("Submit: binary wait %d has no semaphore", i)
		}
		if w.Stage == StageNone {
			return InvalidArgumentf("Submit: binary wait %d has no stage", i)
		}
	}
	for i, w := range d.WaitTimeline {
		if w.Semaphore == nil {
			return InvalidArgumentf("Submit: timeline wait %d has no semaphore", i)
		}
		if w.Stage == StageNone {
			return InvalidArgumentf("Submit: timeline wait %d has no stage", i)
		}
	}
	for i, cb := range d.CommandBuffers {
		if cb == nil {
			return InvalidArgumentf("Submit: command buffer %d is nil", i)
		}
	}
	for i, s := range d.SignalBinary {
		if s.Semaphore == nil {
			return InvalidArgumentf("Submit: binary signal %d has no semaphore", i)
		}
	}
	for i, s := range d.SignalTimeline {
		if s.Semaphore == nil {
			return InvalidArgumentf("Submit: timeline signal %d has no semaphore", i)
		}
	}
	return nil
}

func (d PresentDescription) Validate() error {
	if len(d.Targets) == 0 {
		return InvalidArgumentf("Present: no swapchains given")
	}
	for i, s := range d.WaitSemaphores {
		if s == nil {
			return InvalidArgumentf("Present: wait semaphore %d is nil", i)
		}
	}
	seen := make(map[Swapchain]bool, len(d.Targets))
	for i, target := range d.Targets {
		if target.Swapchain == nil {
			return InvalidArgumentf("Present: target %d has no swapchain", i)
		}
		if seen[target.Swapchain] {
			return InvalidArgumentf("Present: swapchain of target %d given twice", i)
		}
		seen[target.Swapchain] = true
		if target.ImageIndex == NoImage || int64(target.ImageIndex) >= int64(target.Swapchain.ImageCount()) {
			return InvalidArgumentf("Present: image index %d out of range for target %d", target.ImageIndex, i)
		}
	}
	return nil
}

func (d SwapchainDescription) Validate() error {
	if d.Surface == nil {
		return InvalidArgumentf("CreateSwapchain: surface is required")
	}
	if d.ImageUsage == 0 {
		return InvalidArgumentf("CreateSwapchain: image usage is required")
	}
	return validateSharing("CreateSwapchain", d.SharingMode, d.QueueFamilies)
}
