package vulkan

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

// passAttachment is everything about an attachment that goes into a render
// pass object.
type passAttachment struct {
	format       rhi.Format
	samples      rhi.SampleCount
	layout       rhi.ImageLayout
	load         rhi.AttachmentLoadOp
	store        rhi.AttachmentStoreOp
	stencilLoad  rhi.AttachmentLoadOp
	stencilStore rhi.AttachmentStoreOp

	resolve       bool
	resolveLayout rhi.ImageLayout
}

// attachmentUnused converts to VK_ATTACHMENT_UNUSED the same way -1 becomes
// VK_QUEUE_FAMILY_IGNORED.
const attachmentUnused = -1

type passKey struct {
	color []passAttachment
	depth *passAttachment
}

func (k passKey) String() string {
	var b strings.Builder
	for _, a := range k.color {
		fmt.Fprintf(&b, "c%v;", a)
	}
	if k.depth != nil {
		fmt.Fprintf(&b, "d%v;", *k.depth)
	}
	return b.String()
}

type cachedFramebuffer struct {
	handle core1_0.Framebuffer
	views  []*ImageView
}

// renderingCache turns BeginRendering calls into single-subpass render
// passes and framebuffers. Render passes live as long as the device;
// framebuffers are dropped when one of their views is destroyed.
type renderingCache struct {
	device *Device

	mu           sync.Mutex
	passes       map[string]core1_0.RenderPass
	framebuffers map[string]*cachedFramebuffer
}

func newRenderingCache(device *Device) *renderingCache {
	return &renderingCache{
		device:       device,
		passes:       make(map[string]core1_0.RenderPass),
		framebuffers: make(map[string]*cachedFramebuffer),
	}
}

func (c *renderingCache) compatiblePass(key passKey) (core1_0.RenderPass, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pass(key)
}

func (c *renderingCache) pass(key passKey) (core1_0.RenderPass, error) {
	id := key.String()
	if pass, ok := c.passes[id]; ok {
		return pass, nil
	}

	info := renderPassInfo(key)
	pass, res, err := c.device.handle.CreateRenderPass(nil, info)
	if err != nil {
		return nil, check("CreateRenderPass", res, err)
	}
	c.passes[id] = pass
	rhi.Logger().Debug("render pass cached", slog.Int("attachments", len(info.Attachments)),
		slog.Int("cached", len(c.passes)))
	return pass, nil
}

// renderPassInfo lays attachments out as colors, then depth/stencil, then
// color resolves. Images stay in their attachment layout across the pass.
func renderPassInfo(key passKey) core1_0.RenderPassCreateInfo {
	var attachments []core1_0.AttachmentDescription
	subpass := core1_0.SubpassDescription{
		PipelineBindPoint: core1_0.PipelineBindPointGraphics,
	}

	for i, a := range key.color {
		attachments = append(attachments, attachmentDescription(a))
		subpass.ColorAttachments = append(subpass.ColorAttachments, core1_0.AttachmentReference{
			Attachment: i,
			Layout:     toLayout(a.layout),
		})
	}

	if key.depth != nil {
		subpass.DepthStencilAttachment = &core1_0.AttachmentReference{
			Attachment: len(attachments),
			Layout:     toLayout(key.depth.layout),
		}
		attachments = append(attachments, attachmentDescription(*key.depth))
	}

	resolving := false
	for _, a := range key.color {
		if a.resolve {
			resolving = true
		}
	}
	if resolving {
		for _, a := range key.color {
			if !a.resolve {
				subpass.ResolveAttachments = append(subpass.ResolveAttachments, core1_0.AttachmentReference{
					Attachment: attachmentUnused,
				})
				continue
			}
			subpass.ResolveAttachments = append(subpass.ResolveAttachments, core1_0.AttachmentReference{
				Attachment: len(attachments),
				Layout:     toLayout(a.resolveLayout),
			})
			attachments = append(attachments, core1_0.AttachmentDescription{
				Format:         toFormat(a.format),
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpDontCare,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  toLayout(a.resolveLayout),
				FinalLayout:    toLayout(a.resolveLayout),
			})
		}
	}

	return core1_0.RenderPassCreateInfo{
		Attachments: attachments,
		Subpasses:   []core1_0.SubpassDescription{subpass},
	}
}

func attachmentDescription(a passAttachment) core1_0.AttachmentDescription {
	return core1_0.AttachmentDescription{
		Format:         toFormat(a.format),
		Samples:        toSamples(a.samples),
		LoadOp:         loadOps[a.load],
		StoreOp:        storeOps[a.store],
		StencilLoadOp:  loadOps[a.stencilLoad],
		StencilStoreOp: storeOps[a.stencilStore],
		InitialLayout:  toLayout(a.layout),
		FinalLayout:    toLayout(a.layout),
	}
}

// inheritancePassKey describes the pass a secondary buffer continues.
func inheritancePassKey(inheritance rhi.InheritanceDescription) passKey {
	samples := inheritance.Samples
	if samples == 0 {
		samples = rhi.SampleCount1
	}

	var key passKey
	for _, format := range inheritance.ColorFormats {
		key.color = append(key.color, passAttachment{
			format:  format,
			samples: samples,
			layout:  rhi.LayoutColorAttachment,
		})
	}
	format := inheritance.DepthFormat
	if format == rhi.FormatUndefined {
		format = inheritance.StencilFormat
	}
	if format != rhi.FormatUndefined {
		key.depth = &passAttachment{
			format:  format,
			samples: samples,
			layout:  rhi.LayoutDepthStencilAttachment,
		}
	}
	return key
}

// renderingTarget is what CmdBeginRenderPass needs for one BeginRendering.
type renderingTarget struct {
	pass        core1_0.RenderPass
	framebuffer core1_0.Framebuffer
	clears      []core1_0.ClearValue
}

type renderingView struct {
	view    *ImageView
	resolve *ImageView
	clear   rhi.ClearValue
}

func (c *renderingCache) view(op string, v rhi.ImageView) (*ImageView, error) {
	return cast[*ImageView](c.device, op, "attachment view", v)
}

// target finds or creates the render pass and framebuffer for desc.
func (c *renderingCache) target(desc rhi.RenderingDescription) (renderingTarget, error) {
	if desc.ViewMask != 0 {
		return renderingTarget{}, rhi.NotImplementedf("BeginRendering: multiview rendering is not supported")
	}
	if desc.Depth != nil && desc.Stencil != nil && desc.Depth.View != desc.Stencil.View {
		return renderingTarget{}, rhi.InvalidArgumentf("BeginRendering: depth and stencil attachments must share a view")
	}

	var key passKey
	var views []renderingView
	for _, a := range desc.Color {
		view, err := c.view("BeginRendering", a.View)
		if err != nil {
			return renderingTarget{}, err
		}
		attachment := passAttachment{
			format:       view.format,
			samples:      view.image.desc.Samples,
			layout:       a.Layout,
			load:         a.LoadOp,
			store:        a.StoreOp,
			stencilLoad:  rhi.LoadOpDontCare,
			stencilStore: rhi.StoreOpDontCare,
		}
		rv := renderingView{view: view, clear: a.Clear}
		if rv.clear == nil {
			rv.clear = rhi.DefaultColorClear
		}
		if a.ResolveView != nil {
			resolve, err := c.view("BeginRendering", a.ResolveView)
			if err != nil {
				return renderingTarget{}, err
			}
			attachment.resolve = true
			attachment.resolveLayout = a.ResolveLayout
			rv.resolve = resolve
		}
		key.color = append(key.color, attachment)
		views = append(views, rv)
	}

	if desc.Depth != nil || desc.Stencil != nil {
		a := desc.Depth
		if a == nil {
			a = desc.Stencil
		}
		if a.ResolveView != nil {
			return renderingTarget{}, rhi.NotImplementedf("BeginRendering: depth/stencil resolve is not supported")
		}
		view, err := c.view("BeginRendering", a.View)
		if err != nil {
			return renderingTarget{}, err
		}
		attachment := passAttachment{
			format:       view.format,
			samples:      view.image.desc.Samples,
			layout:       a.Layout,
			load:         rhi.LoadOpDontCare,
			store:        rhi.StoreOpDontCare,
			stencilLoad:  rhi.LoadOpDontCare,
			stencilStore: rhi.StoreOpDontCare,
		}
		if desc.Depth != nil {
			attachment.load, attachment.store = desc.Depth.LoadOp, desc.Depth.StoreOp
		}
		if desc.Stencil != nil {
			attachment.stencilLoad, attachment.stencilStore = desc.Stencil.LoadOp, desc.Stencil.StoreOp
		}
		key.depth = &attachment
		rv := renderingView{view: view, clear: a.Clear}
		if rv.clear == nil {
			rv.clear = rhi.DefaultDepthClear
		}
		views = append(views, rv)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pass, err := c.pass(key)
	if err != nil {
		return renderingTarget{}, err
	}

	ordered := make([]*ImageView, 0, len(views))
	clears := make([]core1_0.ClearValue, 0, len(views))
	for _, rv := range views {
		ordered = append(ordered, rv.view)
		clears = append(clears, toClearValue(rv.clear))
	}
	for _, rv := range views {
		if rv.resolve != nil {
			ordered = append(ordered, rv.resolve)
			clears = append(clears, core1_0.ClearValueFloat{})
		}
	}

	layers := desc.LayerCount
	if layers == 0 {
		layers = 1
	}
	framebuffer, err := c.framebuffer(key.String(), pass, ordered, desc.Area, layers)
	if err != nil {
		return renderingTarget{}, err
	}
	return renderingTarget{pass: pass, framebuffer: framebuffer, clears: clears}, nil
}

// framebuffer is sized to the smallest view so any render area inside the
// views is covered.
func (c *renderingCache) framebuffer(passID string, pass core1_0.RenderPass, views []*ImageView, area rhi.Rect2D, layers uint32) (core1_0.Framebuffer, error) {
	extent := views[0].extent()
	for _, v := range views[1:] {
		e := v.extent()
		extent.Width = minU32(extent.Width, e.Width)
		extent.Height = minU32(extent.Height, e.Height)
	}
	if uint32(area.Offset.X)+area.Extent.Width > extent.Width || uint32(area.Offset.Y)+area.Extent.Height > extent.Height {
		return nil, rhi.InvalidArgumentf("BeginRendering: render area %v exceeds attachment extent %v", area, extent)
	}

	var b strings.Builder
	b.WriteString(passID)
	for _, v := range views {
		fmt.Fprintf(&b, "%p;", v)
	}
	fmt.Fprintf(&b, "%dx%dx%d", extent.Width, extent.Height, layers)
	id := b.String()

	if fb, ok := c.framebuffers[id]; ok {
		return fb.handle, nil
	}

	handles := make([]core1_0.ImageView, len(views))
	for i, v := range views {
		handles[i] = v.handle
	}
	handle, res, err := c.device.handle.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  pass,
		Layers:      int(layers),
		Attachments: handles,
		Width:       int(extent.Width),
		Height:      int(extent.Height),
	})
	if err != nil {
		return nil, check("CreateFramebuffer", res, err)
	}
	c.framebuffers[id] = &cachedFramebuffer{handle: handle, views: views}
	return handle, nil
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// forgetView destroys every framebuffer that references view.
func (c *renderingCache) forgetView(view *ImageView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, fb := range c.framebuffers {
		for _, v := range fb.views {
			if v == view {
				fb.handle.Destroy(nil)
				delete(c.framebuffers, id)
				break
			}
		}
	}
}

func (c *renderingCache) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, fb := range c.framebuffers {
		fb.handle.Destroy(nil)
		delete(c.framebuffers, id)
	}
	for id, pass := range c.passes {
		pass.Destroy(nil)
		delete(c.passes, id)
	}
}
