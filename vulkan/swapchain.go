package vulkan

import (
	"sync"
	"time"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

const defaultSwapchainImages = 3

type Swapchain struct {
	device *Device
	handle khr_swapchain.Swapchain
	format rhi.SurfaceFormat
	extent rhi.Extent2D
	images []*Image
	once   sync.Once
}

// swapchainImageCount clamps the requested count to what the surface
// allows. A zero maximum means unbounded.
func swapchainImageCount(requested uint32, caps rhi.SurfaceCapabilities) uint32 {
	if requested == 0 {
		requested = defaultSwapchainImages
	}
	if requested < caps.MinImageCount {
		requested = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && requested > caps.MaxImageCount {
		requested = caps.MaxImageCount
	}
	return requested
}

func (d *Device) CreateSwapchain(desc rhi.SwapchainDescription) (rhi.Swapchain, error) {
	const op = "CreateSwapchain"
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if d.swapchainExt == nil {
		return nil, rhi.NotImplementedf("%s: %s has no swapchain support", op, d.physical.Name())
	}
	surface, ok := desc.Surface.(*Surface)
	if !ok || surface.driver != d.driver {
		return nil, rhi.InvalidArgumentf("%s: surface belongs to another driver", op)
	}
	format, ok := formats[desc.SurfaceFormat.Format]
	if !ok {
		return nil, rhi.InvalidArgumentf("%s: format %d has no Vulkan equivalent", op, desc.SurfaceFormat.Format)
	}
	colorSpace, ok := colorSpaces[desc.SurfaceFormat.ColorSpace]
	if !ok {
		return nil, rhi.NotImplementedf("%s: color space %d is not supported", op, desc.SurfaceFormat.ColorSpace)
	}

	caps, res, err := surface.handle.PhysicalDeviceSurfaceCapabilities(d.physical.handle)
	if err != nil {
		return nil, check("PhysicalDeviceSurfaceCapabilities", res, err)
	}
	capabilities := surfaceCapabilities(caps, surface.window.DrawableSize())

	extent := desc.Extent
	if extent.Width == 0 || extent.Height == 0 {
		extent = capabilities.CurrentExtent
	}
	extent = clampExtent(extent, capabilities.MinImageExtent, capabilities.MaxImageExtent)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, rhi.InvalidStatef("%s: surface has a zero extent, the window is probably minimized", op)
	}

	layers := desc.ArrayLayers
	if layers == 0 {
		layers = 1
	}

	var old khr_swapchain.Swapchain
	if desc.OldSwapchain != nil {
		oldSwapchain, err := cast[*Swapchain](d, op, "old swapchain", desc.OldSwapchain)
		if err != nil {
			return nil, err
		}
		old = oldSwapchain.handle
	}

	handle, res, err := d.swapchainExt.CreateSwapchain(d.handle, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: surface.handle,

		MinImageCount:    int(swapchainImageCount(desc.MinImageCount, capabilities)),
		ImageFormat:      format,
		ImageColorSpace:  colorSpace,
		ImageExtent:      toExtent2D(extent),
		ImageArrayLayers: int(layers),
		ImageUsage:       translateFlags(desc.ImageUsage, imageUsages),

		ImageSharingMode:   sharingModes[desc.SharingMode],
		QueueFamilyIndices: desc.QueueFamilies,

		PreTransform:   caps.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentModes[desc.PresentMode],
		Clipped:        desc.Clipped,
		OldSwapchain:   old,
	})
	if err != nil {
		return nil, check(op, res, err)
	}

	handles, res, err := handle.SwapchainImages()
	if err != nil {
		handle.Destroy(nil)
		return nil, check("GetSwapchainImages", res, err)
	}

	s := &Swapchain{device: d, handle: handle, format: desc.SurfaceFormat, extent: extent}
	for _, image := range handles {
		s.images = append(s.images, swapchainImage(d, image, desc.SurfaceFormat.Format, extent, layers, desc.ImageUsage))
	}

	rhi.Logger().Debug("swapchain created", slog.Int("images", len(s.images)),
		slog.Uint64("width", uint64(extent.Width)), slog.Uint64("height", uint64(extent.Height)))
	return s, nil
}

func (s *Swapchain) ImageCount() int           { return len(s.images) }
func (s *Swapchain) Format() rhi.SurfaceFormat { return s.format }
func (s *Swapchain) Extent() rhi.Extent2D      { return s.extent }
func (s *Swapchain) NativeHandle() any         { return s.handle }
func (s *Swapchain) owner() *Device            { return s.device }

func (s *Swapchain) Image(index int) (rhi.Image, error) {
	if index < 0 || index >= len(s.images) {
		return nil, rhi.InvalidArgumentf("SwapchainImage: index %d out of range [0, %d)", index, len(s.images))
	}
	return s.images[index], nil
}

// AcquireNextImage returns ErrTimeout when no image became available in
// time. Suboptimal acquires return an image together with an
// ErrPresentationStale error.
func (s *Swapchain) AcquireNextImage(timeout time.Duration, semaphore rhi.BinarySemaphore, fence rhi.Fence) (uint32, rhi.ResultCode, error) {
	const op = "AcquireNextImage"
	if semaphore == nil && fence == nil {
		return rhi.NoImage, rhi.ResultError, rhi.InvalidArgumentf("%s: needs a semaphore, a fence or both", op)
	}

	var semaphoreHandle core1_0.Semaphore
	if semaphore != nil {
		sem, err := cast[*BinarySemaphore](s.device, op, "semaphore", semaphore)
		if err != nil {
			return rhi.NoImage, rhi.ResultError, err
		}
		semaphoreHandle = sem.handle
	}
	var fenceHandle core1_0.Fence
	if fence != nil {
		f, err := cast[*Fence](s.device, op, "fence", fence)
		if err != nil {
			return rhi.NoImage, rhi.ResultError, err
		}
		fenceHandle = f.handle
	}

	index, res, err := s.handle.AcquireNextImage(toTimeout(timeout), semaphoreHandle, fenceHandle)
	if res == core1_0.VKTimeout || res == core1_0.VKNotReady {
		return rhi.NoImage, rhi.ResultError, statusError(op, res)
	}
	code := resultCode(res)
	if !code.HasImage() {
		return rhi.NoImage, code, presentationError(op, res, err)
	}
	return uint32(index), code, presentationError(op, res, err)
}

// Destroy also invalidates the swapchain's images. Views created on them
// must be destroyed first.
func (s *Swapchain) Destroy() {
	s.once.Do(func() {
		s.handle.Destroy(nil)
		rhi.Logger().Debug("swapchain destroyed", slog.Int("images", len(s.images)))
	})
}
