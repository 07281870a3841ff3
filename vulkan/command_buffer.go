package vulkan

import (
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/rhi"
)

// CommandBuffer checks every call against its state machine before it
// reaches the driver.
type CommandBuffer struct {
	pool     *CommandPool
	handle   core1_0.CommandBuffer
	state    *rhi.CommandStateMachine
	released bool

	// secondaryContents is set while inside a pass begun with
	// RenderingContentsSecondary.
	secondaryContents bool
	// executed are the secondary buffers recorded through ExecuteCommands
	// since Begin. They go pending with this buffer.
	executed []*CommandBuffer
}

func newCommandBuffer(pool *CommandPool, handle core1_0.CommandBuffer, level rhi.CommandBufferLevel) *CommandBuffer {
	return &CommandBuffer{
		pool:   pool,
		handle: handle,
		state:  rhi.NewCommandStateMachine(level),
	}
}

func (c *CommandBuffer) State() rhi.CommandBufferState { return c.state.State() }
func (c *CommandBuffer) Level() rhi.CommandBufferLevel { return c.state.Level() }
func (c *CommandBuffer) Pool() rhi.CommandPool         { return c.pool }
func (c *CommandBuffer) NativeHandle() any             { return c.handle }
func (c *CommandBuffer) owner() *Device                { return c.pool.device }

// Retire is called by the device's submission tracker.
func (c *CommandBuffer) Retire(gen uint64) {
	c.state.Retire(gen)
}

func (c *CommandBuffer) resetState() {
	c.state.Reset()
	c.secondaryContents = false
	c.executed = nil
}

func commandBufferUsage(usage rhi.CommandBufferUsage) core1_0.CommandBufferUsageFlags {
	var flags core1_0.CommandBufferUsageFlags
	if usage&rhi.UsageOneTimeSubmit != 0 {
		flags |= core1_0.CommandBufferUsageOneTimeSubmit
	}
	if usage&rhi.UsageMultipleSubmit != 0 {
		flags |= core1_0.CommandBufferUsageSimultaneousUse
	}
	if usage&rhi.UsageRenderPassContinue != 0 {
		flags |= core1_0.CommandBufferUsageRenderPassContinue
	}
	return flags
}

func (c *CommandBuffer) Begin(usage rhi.CommandBufferUsage) error {
	if c.Level() == rhi.CommandBufferSecondary {
		return c.BeginSecondary(usage, rhi.InheritanceDescription{})
	}
	if err := c.state.Begin(usage); err != nil {
		return err
	}
	return c.begin(core1_0.CommandBufferBeginInfo{Flags: commandBufferUsage(usage)})
}

// BeginSecondary needs the attachment formats of the pass the buffer will
// continue when usage includes UsageRenderPassContinue.
func (c *CommandBuffer) BeginSecondary(usage rhi.CommandBufferUsage, inheritance rhi.InheritanceDescription) error {
	if err := c.state.BeginSecondary(usage); err != nil {
		return err
	}

	info := &core1_0.CommandBufferInheritanceInfo{}
	if usage&rhi.UsageRenderPassContinue != 0 {
		pass, err := c.pool.device.rendering.compatiblePass(inheritancePassKey(inheritance))
		if err != nil {
			c.resetState()
			return err
		}
		info.RenderPass = pass
		info.Subpass = 0
	}
	return c.begin(core1_0.CommandBufferBeginInfo{
		Flags:           commandBufferUsage(usage),
		InheritanceInfo: info,
	})
}

func (c *CommandBuffer) begin(info core1_0.CommandBufferBeginInfo) error {
	c.secondaryContents = false
	c.executed = nil
	res, err := c.handle.Begin(info)
	if err != nil {
		c.state.Invalidate()
		return check("BeginCommandBuffer", res, err)
	}
	return nil
}

func (c *CommandBuffer) End() error {
	if err := c.state.End(); err != nil {
		return err
	}
	res, err := c.handle.End()
	if err != nil {
		c.state.Invalidate()
		return check("EndCommandBuffer", res, err)
	}
	return nil
}

// Reset requires a pool created with CommandPoolResetCommandBuffer.
func (c *CommandBuffer) Reset(releaseResources bool) error {
	if c.pool.behavior&rhi.CommandPoolResetCommandBuffer == 0 {
		return rhi.InvalidStatef("ResetCommandBuffer: pool was not created with CommandPoolResetCommandBuffer")
	}
	if c.released {
		return rhi.InvalidStatef("ResetCommandBuffer: command buffer was freed")
	}
	if c.State() == rhi.StatePending {
		return rhi.InvalidStatef("ResetCommandBuffer: command buffer is pending")
	}

	var flags core1_0.CommandBufferResetFlags
	if releaseResources {
		flags |= core1_0.CommandBufferResetReleaseResources
	}
	res, err := c.handle.Reset(flags)
	if err != nil {
		return check("ResetCommandBuffer", res, err)
	}
	c.resetState()
	return nil
}

func (c *CommandBuffer) BeginRendering(desc rhi.RenderingDescription) error {
	if err := c.state.Record("BeginRendering"); err != nil {
		return err
	}
	if err := desc.Validate(); err != nil {
		return err
	}
	target, err := c.pool.device.rendering.target(desc)
	if err != nil {
		return err
	}
	if err := c.state.BeginRendering(); err != nil {
		return err
	}

	contents := core1_0.SubpassContentsInline
	c.secondaryContents = desc.Flags&rhi.RenderingContentsSecondary != 0
	if c.secondaryContents {
		contents = core1_0.SubpassContentsSecondaryCommandBuffers
	}

	err = c.handle.CmdBeginRenderPass(contents, core1_0.RenderPassBeginInfo{
		RenderPass:  target.pass,
		Framebuffer: target.framebuffer,
		RenderArea:  toRect(desc.Area),
		ClearValues: target.clears,
	})
	if err != nil {
		c.state.Invalidate()
		return check("CmdBeginRenderPass", 0, err)
	}
	return nil
}

func (c *CommandBuffer) EndRendering() error {
	if err := c.state.EndRendering(); err != nil {
		return err
	}
	c.secondaryContents = false
	c.handle.CmdEndRenderPass()
	return nil
}

func (c *CommandBuffer) ExecuteCommands(buffers ...rhi.CommandBuffer) error {
	const op = "ExecuteCommands"
	if err := c.state.Record(op); err != nil {
		return err
	}
	if c.Level() != rhi.CommandBufferPrimary {
		return rhi.InvalidStatef("%s: secondary buffers cannot execute other buffers", op)
	}
	if c.state.Rendering() && !c.secondaryContents {
		return rhi.InvalidStatef("%s: render pass was begun without RenderingContentsSecondary", op)
	}
	if len(buffers) == 0 {
		return rhi.InvalidArgumentf("%s: no command buffers given", op)
	}

	secondaries := make([]*CommandBuffer, len(buffers))
	handles := make([]core1_0.CommandBuffer, len(buffers))
	for i, b := range buffers {
		cb, err := cast[*CommandBuffer](c.pool.device, op, "command buffer", b)
		if err != nil {
			return err
		}
		if err := cb.state.CheckExecute(); err != nil {
			return err
		}
		secondaries[i] = cb
		handles[i] = cb.handle
	}

	c.handle.CmdExecuteCommands(handles)
	c.executed = append(c.executed, secondaries...)
	return nil
}

// recordDraw checks that op may be recorded as an inline draw.
func (c *CommandBuffer) recordDraw(op string) error {
	if err := c.state.RecordInRendering(op); err != nil {
		return err
	}
	if c.secondaryContents {
		return rhi.InvalidStatef("%s: render pass contents are recorded through ExecuteCommands", op)
	}
	return nil
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if err := c.recordDraw("Draw"); err != nil {
		return err
	}
	c.handle.CmdDraw(int(vertexCount), int(instanceCount), firstVertex, firstInstance)
	return nil
}

func (c *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	if err := c.recordDraw("DrawIndexed"); err != nil {
		return err
	}
	c.handle.CmdDrawIndexed(int(indexCount), int(instanceCount), firstIndex, int(vertexOffset), firstInstance)
	return nil
}

func (c *CommandBuffer) DispatchCompute(groupsX, groupsY, groupsZ uint32) error {
	if err := c.state.RecordOutsideRendering("DispatchCompute"); err != nil {
		return err
	}
	if groupsX == 0 || groupsY == 0 || groupsZ == 0 {
		return rhi.InvalidArgumentf("DispatchCompute: empty group count %dx%dx%d", groupsX, groupsY, groupsZ)
	}
	c.handle.CmdDispatch(int(groupsX), int(groupsY), int(groupsZ))
	return nil
}

func (c *CommandBuffer) SetViewport(viewports ...rhi.Viewport) error {
	if err := c.state.Record("SetViewport"); err != nil {
		return err
	}
	if len(viewports) == 0 {
		return rhi.InvalidArgumentf("SetViewport: no viewports given")
	}
	native := make([]core1_0.Viewport, len(viewports))
	for i, v := range viewports {
		native[i] = core1_0.Viewport{
			X:        v.X,
			Y:        v.Y,
			Width:    v.Width,
			Height:   v.Height,
			MinDepth: v.MinDepth,
			MaxDepth: v.MaxDepth,
		}
	}
	c.handle.CmdSetViewport(native)
	return nil
}

func (c *CommandBuffer) SetScissor(scissors ...rhi.Rect2D) error {
	if err := c.state.Record("SetScissor"); err != nil {
		return err
	}
	if len(scissors) == 0 {
		return rhi.InvalidArgumentf("SetScissor: no scissors given")
	}
	native := make([]core1_0.Rect2D, len(scissors))
	for i, s := range scissors {
		native[i] = toRect(s)
	}
	c.handle.CmdSetScissor(native)
	return nil
}

func toClearColor(v rhi.ClearValue) core1_0.ClearColorValue {
	switch v := v.(type) {
	case rhi.ClearColorInt:
		return core1_0.ClearValueInt32(v)
	case rhi.ClearColorUint:
		return core1_0.ClearValueUint32(v)
	case rhi.ClearColorFloat:
		return core1_0.ClearValueFloat(v)
	}
	return nil
}

// Clear clears whole subresources of an image outside a render pass. No
// ranges means the first mip level and layer.
func (c *CommandBuffer) Clear(image rhi.Image, layout rhi.ImageLayout, value rhi.ClearValue, ranges ...rhi.ImageSubresourceRange) error {
	const op = "Clear"
	if err := c.state.RecordOutsideRendering(op); err != nil {
		return err
	}
	img, err := c.pool.device.image(op, image)
	if err != nil {
		return err
	}
	if value == nil {
		return rhi.InvalidArgumentf("%s: no clear value", op)
	}
	if layout != rhi.LayoutGeneral && layout != rhi.LayoutTransferDst {
		return rhi.InvalidArgumentf("%s: image must be in General or TransferDst layout", op)
	}

	color := rhi.IsColor(value)
	if color == (img.desc.Format.HasDepth() || img.desc.Format.HasStencil()) {
		return rhi.InvalidArgumentf("%s: clear value does not match image format", op)
	}

	if len(ranges) == 0 {
		ranges = []rhi.ImageSubresourceRange{{}}
	}
	native := make([]core1_0.ImageSubresourceRange, len(ranges))
	for i, r := range ranges {
		if r.Aspect == 0 && !color {
			r.Aspect = rhi.AspectDepth
			if img.desc.Format.HasStencil() {
				r.Aspect |= rhi.AspectStencil
			}
		}
		native[i] = toSubresourceRange(r)
	}

	if color {
		c.handle.CmdClearColorImage(img.handle, toLayout(layout), toClearColor(value), native)
		return nil
	}
	ds := value.(rhi.ClearDepthStencil)
	c.handle.CmdClearDepthStencilImage(img.handle, toLayout(layout), &core1_0.ClearValueDepthStencil{
		Depth:   ds.Depth,
		Stencil: ds.Stencil,
	}, native)
	return nil
}

func (c *CommandBuffer) BindPipeline(pipeline rhi.Pipeline) error {
	if err := c.state.Record("BindPipeline"); err != nil {
		return err
	}
	p, err := cast[*Pipeline](c.pool.device, "BindPipeline", "pipeline", pipeline)
	if err != nil {
		return err
	}
	c.handle.CmdBindPipeline(bindPoints[p.bindPoint], p.handle)
	return nil
}

func (c *CommandBuffer) BindDescriptorSets(bindPoint rhi.PipelineBindPoint, layout rhi.PipelineLayout, sets []rhi.DescriptorSet, dynamicOffsets []uint32) error {
	const op = "BindDescriptorSets"
	if err := c.state.Record(op); err != nil {
		return err
	}
	l, err := cast[*PipelineLayout](c.pool.device, op, "layout", layout)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return rhi.InvalidArgumentf("%s: no sets given", op)
	}

	handles := make([]core1_0.DescriptorSet, len(sets))
	for i, s := range sets {
		set, err := c.pool.device.descriptorSet(op, s)
		if err != nil {
			return err
		}
		handles[i] = set.handle
	}
	var offsets []int
	for _, o := range dynamicOffsets {
		offsets = append(offsets, int(o))
	}
	c.handle.CmdBindDescriptorSets(bindPoints[bindPoint], l.handle, handles, offsets)
	return nil
}

func (c *CommandBuffer) PushConstants(layout rhi.PipelineLayout, stages rhi.ShaderStage, offset uint32, data []byte) error {
	const op = "PushConstants"
	if err := c.state.Record(op); err != nil {
		return err
	}
	l, err := cast[*PipelineLayout](c.pool.device, op, "layout", layout)
	if err != nil {
		return err
	}
	if len(data) == 0 || len(data)%4 != 0 || offset%4 != 0 {
		return rhi.InvalidArgumentf("%s: offset %d and size %d must be non-zero multiples of 4", op, offset, len(data))
	}
	c.handle.CmdPushConstants(l.handle, toShaderStages(stages), int(offset), data)
	return nil
}

func (c *CommandBuffer) BindVertexBuffers(firstBinding uint32, bindings ...rhi.VertexBufferBinding) error {
	const op = "BindVertexBuffers"
	if err := c.state.Record(op); err != nil {
		return err
	}
	if len(bindings) == 0 {
		return rhi.InvalidArgumentf("%s: no buffers given", op)
	}
	buffers := make([]core1_0.Buffer, len(bindings))
	offsets := make([]int, len(bindings))
	for i, b := range bindings {
		buffer, err := c.pool.device.buffer(op, b.Buffer)
		if err != nil {
			return err
		}
		if buffer.usage&rhi.BufferVertex == 0 {
			return rhi.InvalidArgumentf("%s: buffer %d lacks BufferVertex usage", op, i)
		}
		buffers[i] = buffer.handle
		offsets[i] = int(b.Offset)
	}
	c.handle.CmdBindVertexBuffers(int(firstBinding), buffers, offsets)
	return nil
}

func (c *CommandBuffer) BindIndexBuffer(buffer rhi.Buffer, offset uint64, indexType rhi.IndexType) error {
	const op = "BindIndexBuffer"
	if err := c.state.Record(op); err != nil {
		return err
	}
	b, err := c.pool.device.buffer(op, buffer)
	if err != nil {
		return err
	}
	if b.usage&rhi.BufferIndex == 0 {
		return rhi.InvalidArgumentf("%s: buffer lacks BufferIndex usage", op)
	}
	c.handle.CmdBindIndexBuffer(b.handle, int(offset), indexTypes[indexType])
	return nil
}

func (c *CommandBuffer) CopyBuffer(src, dst rhi.Buffer, regions ...rhi.BufferCopyRegion) error {
	const op = "CopyBuffer"
	if err := c.state.RecordOutsideRendering(op); err != nil {
		return err
	}
	s, err := c.pool.device.buffer(op, src)
	if err != nil {
		return err
	}
	d, err := c.pool.device.buffer(op, dst)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		regions = []rhi.BufferCopyRegion{{Size: minU64(s.size, d.size)}}
	}

	native := make([]core1_0.BufferCopy, len(regions))
	for i, r := range regions {
		if r.Size == 0 || r.SrcOffset+r.Size > s.size || r.DstOffset+r.Size > d.size {
			return rhi.InvalidArgumentf("%s: region %d out of bounds", op, i)
		}
		native[i] = core1_0.BufferCopy{
			SrcOffset: int(r.SrcOffset),
			DstOffset: int(r.DstOffset),
			Size:      int(r.Size),
		}
	}
	if err := c.handle.CmdCopyBuffer(s.handle, d.handle, native); err != nil {
		return check("CmdCopyBuffer", 0, err)
	}
	return nil
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func (c *CommandBuffer) CopyBufferToImage(src rhi.Buffer, dst rhi.Image, layout rhi.ImageLayout, regions ...rhi.BufferImageCopyRegion) error {
	const op = "CopyBufferToImage"
	if err := c.state.RecordOutsideRendering(op); err != nil {
		return err
	}
	s, err := c.pool.device.buffer(op, src)
	if err != nil {
		return err
	}
	d, err := c.pool.device.image(op, dst)
	if err != nil {
		return err
	}
	if layout != rhi.LayoutGeneral && layout != rhi.LayoutTransferDst {
		return rhi.InvalidArgumentf("%s: image must be in General or TransferDst layout", op)
	}
	if len(regions) == 0 {
		regions = []rhi.BufferImageCopyRegion{{ImageExtent: d.desc.Extent}}
	}

	if err := c.handle.CmdCopyBufferToImage(s.handle, d.handle, toLayout(layout), toBufferImageCopies(regions)); err != nil {
		return check("CmdCopyBufferToImage", 0, err)
	}
	return nil
}

func (c *CommandBuffer) CopyImageToBuffer(src rhi.Image, layout rhi.ImageLayout, dst rhi.Buffer, regions ...rhi.BufferImageCopyRegion) error {
	const op = "CopyImageToBuffer"
	if err := c.state.RecordOutsideRendering(op); err != nil {
		return err
	}
	s, err := c.pool.device.image(op, src)
	if err != nil {
		return err
	}
	d, err := c.pool.device.buffer(op, dst)
	if err != nil {
		return err
	}
	if layout != rhi.LayoutGeneral && layout != rhi.LayoutTransferSrc {
		return rhi.InvalidArgumentf("%s: image must be in General or TransferSrc layout", op)
	}
	if len(regions) == 0 {
		regions = []rhi.BufferImageCopyRegion{{ImageExtent: s.desc.Extent}}
	}

	if err := c.handle.CmdCopyImageToBuffer(s.handle, toLayout(layout), d.handle, toBufferImageCopies(regions)); err != nil {
		return check("CmdCopyImageToBuffer", 0, err)
	}
	return nil
}

func toBufferImageCopies(regions []rhi.BufferImageCopyRegion) []core1_0.BufferImageCopy {
	native := make([]core1_0.BufferImageCopy, len(regions))
	for i, r := range regions {
		native[i] = core1_0.BufferImageCopy{
			BufferOffset:      int(r.BufferOffset),
			BufferRowLength:   int(r.BufferRowLength),
			BufferImageHeight: int(r.BufferImageHeight),
			ImageSubresource:  toSubresourceLayers(r.Subresource),
			ImageOffset:       core1_0.Offset3D{X: int(r.ImageOffset.X), Y: int(r.ImageOffset.Y), Z: int(r.ImageOffset.Z)},
			ImageExtent:       toExtent3D(r.ImageExtent),
		}
	}
	return native
}

// Barrier records one pipeline barrier whose stage masks are the union of
// every barrier in desc.
func (c *CommandBuffer) Barrier(desc rhi.BarrierDescription) error {
	const op = "Barrier"
	if err := c.state.RecordOutsideRendering(op); err != nil {
		return err
	}
	if err := desc.Validate(); err != nil {
		return err
	}

	var src, dst rhi.PipelineStage
	var memory []core1_0.MemoryBarrier
	for _, b := range desc.Memory {
		src, dst = src|b.SrcStage, dst|b.DstStage
		memory = append(memory, core1_0.MemoryBarrier{
			SrcAccessMask: toAccess(b.SrcAccess),
			DstAccessMask: toAccess(b.DstAccess),
		})
	}

	var buffers []core1_0.BufferMemoryBarrier
	for _, b := range desc.Buffers {
		buffer, err := c.pool.device.buffer(op, b.Buffer)
		if err != nil {
			return err
		}
		size := b.Size
		if size == rhi.WholeSize {
			size = buffer.size - b.Offset
		}
		src, dst = src|b.SrcStage, dst|b.DstStage
		buffers = append(buffers, core1_0.BufferMemoryBarrier{
			SrcAccessMask:       toAccess(b.SrcAccess),
			DstAccessMask:       toAccess(b.DstAccess),
			SrcQueueFamilyIndex: b.SrcQueueFamily,
			DstQueueFamilyIndex: b.DstQueueFamily,
			Buffer:              buffer.handle,
			Offset:              int(b.Offset),
			Size:                int(size),
		})
	}

	var images []core1_0.ImageMemoryBarrier
	for _, b := range desc.Images {
		image, err := c.pool.device.image(op, b.Image)
		if err != nil {
			return err
		}
		subresource := b.Subresource
		if subresource.Aspect == 0 && image.desc.Format.HasDepth() {
			subresource.Aspect = rhi.AspectDepth
			if image.desc.Format.HasStencil() {
				subresource.Aspect |= rhi.AspectStencil
			}
		}
		src, dst = src|b.SrcStage, dst|b.DstStage
		images = append(images, core1_0.ImageMemoryBarrier{
			SrcAccessMask:       toAccess(b.SrcAccess),
			DstAccessMask:       toAccess(b.DstAccess),
			OldLayout:           toLayout(b.OldLayout),
			NewLayout:           toLayout(b.NewLayout),
			SrcQueueFamilyIndex: b.SrcQueueFamily,
			DstQueueFamilyIndex: b.DstQueueFamily,
			Image:               image.handle,
			SubresourceRange:    toSubresourceRange(subresource),
		})
	}

	src, dst = barrierStages(src, dst)
	err := c.handle.CmdPipelineBarrier(toStages(src), toStages(dst), 0, memory, buffers, images)
	if err != nil {
		return check("CmdPipelineBarrier", 0, err)
	}
	return nil
}

// barrierStages fills in empty stage masks, which the driver rejects. An
// empty source waits on nothing and an empty destination blocks nothing.
func barrierStages(src, dst rhi.PipelineStage) (rhi.PipelineStage, rhi.PipelineStage) {
	if src == rhi.StageNone {
		src = rhi.StageTopOfPipe
	}
	if dst == rhi.StageNone {
		dst = rhi.StageBottomOfPipe
	}
	return src, dst
}
