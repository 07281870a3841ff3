package sample

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

// Swapchain pairs a swapchain with a view per image.
type Swapchain struct {
	Handle rhi.Swapchain
	Images []rhi.Image
	Views  []rhi.ImageView
}

func (s *Swapchain) Format() rhi.Format     { return s.Handle.Format().Format }
func (s *Swapchain) Extent() rhi.Extent2D   { return s.Handle.Extent() }
func (s *Swapchain) Viewport() rhi.Viewport { return FullViewport(s.Extent()) }

func (s *Swapchain) Destroy() {
	for _, view := range s.Views {
		view.Destroy()
	}
	s.Handle.Destroy()
}

// FullViewport covers extent with the default depth range.
func FullViewport(extent rhi.Extent2D) rhi.Viewport {
	return rhi.Viewport{Width: float32(extent.Width), Height: float32(extent.Height), MaxDepth: 1}
}

// chooseSurfaceFormat prefers 8-bit sRGB BGRA.
func chooseSurfaceFormat(formats []rhi.SurfaceFormat) (rhi.SurfaceFormat, error) {
	if len(formats) == 0 {
		return rhi.SurfaceFormat{}, errors.New("surface reports no formats")
	}
	for _, format := range formats {
		if format.Format == rhi.FormatB8G8R8A8Srgb && format.ColorSpace == rhi.ColorSpaceSRGBNonlinear {
			return format, nil
		}
	}
	return formats[0], nil
}

// choosePresentMode prefers mailbox and falls back to FIFO, which every
// surface supports.
func choosePresentMode(modes []rhi.PresentMode) rhi.PresentMode {
	for _, mode := range modes {
		if mode == rhi.PresentModeMailbox {
			return mode
		}
	}
	return rhi.PresentModeFifo
}

func (c *Context) newSwapchain(old *Swapchain) (*Swapchain, error) {
	formats, err := c.Surface.SupportedFormats(c.Physical)
	if err != nil {
		return nil, err
	}
	format, err := chooseSurfaceFormat(formats)
	if err != nil {
		return nil, err
	}
	modes, err := c.Surface.SupportedPresentModes(c.Physical)
	if err != nil {
		return nil, err
	}

	desc := rhi.SwapchainDescription{
		Surface:       c.Surface,
		SurfaceFormat: format,
		ImageUsage:    rhi.ImageColorAttachment,
		PresentMode:   choosePresentMode(modes),
		Clipped:       true,
	}
	if old != nil {
		desc.OldSwapchain = old.Handle
	}
	handle, err := c.Device.CreateSwapchain(desc)
	if err != nil {
		return nil, err
	}

	s := &Swapchain{Handle: handle}
	for i := 0; i < handle.ImageCount(); i++ {
		image, err := handle.Image(i)
		if err != nil {
			s.Destroy()
			return nil, err
		}
		view, err := c.Device.CreateImageView(rhi.ImageViewDescription{Image: image, Type: rhi.ViewType2D})
		if err != nil {
			s.Destroy()
			return nil, err
		}
		s.Images = append(s.Images, image)
		s.Views = append(s.Views, view)
	}
	return s, nil
}

type frame struct {
	commands       rhi.CommandBuffer
	imageAvailable rhi.BinarySemaphore
	inFlight       rhi.Fence
}

// Renderer runs the acquire, record, submit and present cycle with a fixed
// number of frames in flight.
type Renderer struct {
	ctx       *Context
	Swapchain *Swapchain

	pool           rhi.CommandPool
	frames         []frame
	renderFinished []rhi.BinarySemaphore
	current        int

	// OnRecreate runs after the swapchain was rebuilt, so callers can
	// resize whatever depends on it.
	OnRecreate func(s *Swapchain) error
}

// NewRenderer destroys whatever it created when a step fails.
func (c *Context) NewRenderer(framesInFlight int) (*Renderer, error) {
	r := &Renderer{ctx: c}
	if err := r.init(framesInFlight); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init(framesInFlight int) error {
	c := r.ctx
	var err error
	r.Swapchain, err = c.newSwapchain(nil)
	if err != nil {
		return err
	}
	r.pool, err = c.Device.CreateCommandPool(rhi.CommandPoolDescription{
		QueueFamily: c.Family,
		Behavior:    rhi.CommandPoolResetCommandBuffer,
	})
	if err != nil {
		return err
	}

	buffers, err := r.pool.AllocateN(framesInFlight, rhi.CommandBufferPrimary)
	if err != nil {
		return err
	}
	for _, cb := range buffers {
		f := frame{commands: cb}
		if f.imageAvailable, err = c.Device.CreateBinarySemaphore(); err != nil {
			return err
		}
		if f.inFlight, err = c.Device.CreateFence(rhi.FenceDescription{Signaled: true}); err != nil {
			f.imageAvailable.Destroy()
			return err
		}
		r.frames = append(r.frames, f)
	}
	return r.syncSemaphores()
}

// syncSemaphores keeps one render-finished semaphore per swapchain image,
// since presentation of an image may still be waiting on the previous one.
func (r *Renderer) syncSemaphores() error {
	for len(r.renderFinished) < r.Swapchain.Handle.ImageCount() {
		sem, err := r.ctx.Device.CreateBinarySemaphore()
		if err != nil {
			return err
		}
		r.renderFinished = append(r.renderFinished, sem)
	}
	return nil
}

// Recreate rebuilds the swapchain after the window changed.
func (r *Renderer) Recreate() error {
	if err := r.ctx.Device.WaitIdle(); err != nil {
		return err
	}
	s, err := r.ctx.newSwapchain(r.Swapchain)
	if err != nil {
		return err
	}
	r.Swapchain.Destroy()
	r.Swapchain = s
	if err := r.syncSemaphores(); err != nil {
		return err
	}

	extent := s.Extent()
	rhi.Logger().Debug("swapchain recreated", slog.Uint64("width", uint64(extent.Width)),
		slog.Uint64("height", uint64(extent.Height)))
	if r.OnRecreate != nil {
		return r.OnRecreate(s)
	}
	return nil
}

// Frame is the index of the frame being recorded, in [0, framesInFlight).
func (r *Renderer) Frame() int { return r.current }

// Draw renders one frame. record fills a command buffer that is already
// recording; image is the acquired swapchain image.
func (r *Renderer) Draw(record func(cb rhi.CommandBuffer, image int) error) error {
	f := r.frames[r.current]
	if err := f.inFlight.Wait(rhi.Infinite); err != nil {
		return err
	}

	index, code, err := r.Swapchain.Handle.AcquireNextImage(rhi.Infinite, f.imageAvailable, nil)
	if !code.HasImage() {
		if errors.Is(err, rhi.ErrPresentationStale) {
			return r.Recreate()
		}
		return err
	}
	stale := code.Stale()

	if err := f.inFlight.Reset(); err != nil {
		return err
	}
	if err := f.commands.Reset(false); err != nil {
		return err
	}
	if err := f.commands.Begin(rhi.UsageOneTimeSubmit); err != nil {
		return err
	}
	if err := record(f.commands, int(index)); err != nil {
		return err
	}
	if err := f.commands.End(); err != nil {
		return err
	}

	err = r.ctx.Queue.Submit([]rhi.SubmitDescription{{
		WaitBinary:     []rhi.BinaryWait{{Semaphore: f.imageAvailable, Stage: rhi.StageColorAttachmentOutput}},
		CommandBuffers: []rhi.CommandBuffer{f.commands},
		SignalBinary:   []rhi.BinarySignal{{Semaphore: r.renderFinished[index]}},
	}}, f.inFlight)
	if err != nil {
		return err
	}

	result, err := r.ctx.Queue.Present(rhi.PresentDescription{
		WaitSemaphores: []rhi.BinarySemaphore{r.renderFinished[index]},
		Targets:        []rhi.PresentTarget{{Swapchain: r.Swapchain.Handle, ImageIndex: index}},
	})
	if err != nil && !rhi.IsRecoverable(err) {
		return err
	}
	r.current = (r.current + 1) % len(r.frames)

	resized := r.ctx.Window.TakeResized()
	if len(result.PerSwapchain) > 0 && result.PerSwapchain[0].Stale() {
		stale = true
	}
	if stale || resized {
		return r.Recreate()
	}
	return nil
}

// Destroy tolerates a renderer that was only partly built.
func (r *Renderer) Destroy() {
	if r == nil {
		return
	}
	if r.ctx != nil && r.ctx.Device != nil {
		if err := r.ctx.Device.WaitIdle(); err != nil {
			rhi.Logger().Warn("device wait failed during shutdown", slog.Any("error", err))
		}
	}
	for _, f := range r.frames {
		f.imageAvailable.Destroy()
		f.inFlight.Destroy()
	}
	for _, sem := range r.renderFinished {
		sem.Destroy()
	}
	if r.pool != nil {
		r.pool.Destroy()
	}
	if r.Swapchain != nil {
		r.Swapchain.Destroy()
	}
}
