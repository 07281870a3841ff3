package vulkan

import (
	"sync"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/rhi"
)

// SurfaceSource is implemented by windows that can create a Vulkan
// surface. platform/sdl2 windows implement it.
type SurfaceSource interface {
	CreateVulkanSurface(instance core1_0.Instance, ext khr_surface.Extension) (khr_surface.Surface, error)
}

func (d *Driver) nativeSurface(op string, window rhi.Window) (khr_surface.Surface, error) {
	source, ok := window.(SurfaceSource)
	if !ok {
		return nil, rhi.InvalidArgumentf("%s: window %T cannot create Vulkan surfaces", op, window)
	}
	if d.surfaceExt == nil {
		return nil, rhi.InvalidStatef("%s: driver was created without the window's surface extensions", op)
	}
	surface, err := source.CreateVulkanSurface(d.instance, d.surfaceExt)
	if err != nil {
		return nil, check(op, 0, err)
	}
	return surface, nil
}

type Surface struct {
	driver *Driver
	handle khr_surface.Surface
	window rhi.Window
	once   sync.Once
}

func (s *Surface) NativeHandle() any { return s.handle }

func (s *Surface) physical(op string, pd rhi.PhysicalDevice) (*PhysicalDevice, error) {
	p, ok := pd.(*PhysicalDevice)
	if !ok || p.driver != s.driver {
		return nil, rhi.InvalidArgumentf("%s: physical device belongs to another driver", op)
	}
	return p, nil
}

// SupportedFormats omits formats that rhi has no name for.
func (s *Surface) SupportedFormats(pd rhi.PhysicalDevice) ([]rhi.SurfaceFormat, error) {
	p, err := s.physical("SupportedFormats", pd)
	if err != nil {
		return nil, err
	}

	formats, res, err := s.handle.PhysicalDeviceSurfaceFormats(p.handle)
	if err != nil {
		return nil, check("PhysicalDeviceSurfaceFormats", res, err)
	}

	var out []rhi.SurfaceFormat
	for _, f := range formats {
		format := fromFormat(f.Format)
		if format == rhi.FormatUndefined {
			continue
		}
		out = append(out, rhi.SurfaceFormat{Format: format, ColorSpace: fromColorSpace(f.ColorSpace)})
	}
	return out, nil
}

func (s *Surface) SupportedPresentModes(pd rhi.PhysicalDevice) ([]rhi.PresentMode, error) {
	p, err := s.physical("SupportedPresentModes", pd)
	if err != nil {
		return nil, err
	}

	modes, res, err := s.handle.PhysicalDeviceSurfacePresentModes(p.handle)
	if err != nil {
		return nil, check("PhysicalDeviceSurfacePresentModes", res, err)
	}

	var out []rhi.PresentMode
	for _, m := range modes {
		if mode, ok := nativePresentModes[m]; ok {
			out = append(out, mode)
		}
	}
	return out, nil
}

// Capabilities reports the window's drawable size as the current extent
// when the surface leaves it to the swapchain.
func (s *Surface) Capabilities(pd rhi.PhysicalDevice) (rhi.SurfaceCapabilities, error) {
	p, err := s.physical("Capabilities", pd)
	if err != nil {
		return rhi.SurfaceCapabilities{}, err
	}

	caps, res, err := s.handle.PhysicalDeviceSurfaceCapabilities(p.handle)
	if err != nil {
		return rhi.SurfaceCapabilities{}, check("PhysicalDeviceSurfaceCapabilities", res, err)
	}
	return surfaceCapabilities(caps, s.window.DrawableSize()), nil
}

func surfaceCapabilities(caps *khr_surface.SurfaceCapabilities, drawable rhi.Extent2D) rhi.SurfaceCapabilities {
	out := rhi.SurfaceCapabilities{
		MinImageCount:  uint32(caps.MinImageCount),
		MaxImageCount:  uint32(caps.MaxImageCount),
		MinImageExtent: fromExtent2D(caps.MinImageExtent),
		MaxImageExtent: fromExtent2D(caps.MaxImageExtent),
	}
	if caps.CurrentExtent.Width != -1 {
		out.CurrentExtent = fromExtent2D(caps.CurrentExtent)
		return out
	}
	out.CurrentExtent = clampExtent(drawable, out.MinImageExtent, out.MaxImageExtent)
	return out
}

func clampExtent(e, min, max rhi.Extent2D) rhi.Extent2D {
	clamp := func(v, lo, hi uint32) uint32 {
		if v < lo {
			return lo
		}
		if hi > 0 && v > hi {
			return hi
		}
		return v
	}
	return rhi.Extent2D{
		Width:  clamp(e.Width, min.Width, max.Width),
		Height: clamp(e.Height, min.Height, max.Height),
	}
}

func (s *Surface) Destroy() {
	s.once.Do(func() { s.handle.Destroy(nil) })
}
