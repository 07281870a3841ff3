package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

type PhysicalDevice struct {
	driver     *Driver
	handle     core1_0.PhysicalDevice
	properties *core1_0.PhysicalDeviceProperties
	families   []rhi.QueueFamilyProperties
	extensions map[string]bool
}

func newPhysicalDevice(d *Driver, handle core1_0.PhysicalDevice) (*PhysicalDevice, error) {
	properties, err := handle.Properties()
	if err != nil {
		return nil, check("PhysicalDeviceProperties", 0, err)
	}

	extensions, res, err := handle.EnumerateDeviceExtensionProperties()
	if err != nil {
		return nil, check("EnumerateDeviceExtensionProperties", res, err)
	}

	p := &PhysicalDevice{
		driver:     d,
		handle:     handle,
		properties: properties,
		extensions: make(map[string]bool, len(extensions)),
	}
	for name := range extensions {
		p.extensions[name] = true
	}
	for _, family := range handle.QueueFamilyProperties() {
		p.families = append(p.families, rhi.QueueFamilyProperties{
			Flags:      translateFlags(family.QueueFlags, queueTypes),
			QueueCount: family.QueueCount,
		})
	}
	return p, nil
}

func (p *PhysicalDevice) Name() string          { return p.properties.DeviceName }
func (p *PhysicalDevice) QueueFamilyCount() int { return len(p.families) }
func (p *PhysicalDevice) NativeHandle() any     { return p.handle }

func (p *PhysicalDevice) Type() rhi.PhysicalDeviceType {
	return physicalDeviceTypes[p.properties.DeviceType]
}

// QueueFamilyProperties reports QueuePresent only for families that were
// checked against the primary window during selection.
func (p *PhysicalDevice) QueueFamilyProperties(family int) (rhi.QueueFamilyProperties, error) {
	if family < 0 || family >= len(p.families) {
		return rhi.QueueFamilyProperties{}, rhi.InvalidArgumentf("QueueFamilyProperties: family %d out of range [0, %d)", family, len(p.families))
	}
	return p.families[family], nil
}

func (p *PhysicalDevice) SupportsPresentation(surface rhi.Surface, family int) (bool, error) {
	s, ok := surface.(*Surface)
	if !ok || s.driver != p.driver {
		return false, rhi.InvalidArgumentf("SupportsPresentation: surface belongs to another driver")
	}
	if family < 0 || family >= len(p.families) {
		return false, rhi.InvalidArgumentf("SupportsPresentation: family %d out of range [0, %d)", family, len(p.families))
	}
	return p.supportsSurface(s.handle, family)
}

func (p *PhysicalDevice) supportsSurface(surface khr_surface.Surface, family int) (bool, error) {
	supported, res, err := surface.PhysicalDeviceSurfaceSupport(p.handle, family)
	if err != nil {
		return false, check("PhysicalDeviceSurfaceSupport", res, err)
	}
	return supported, nil
}

// candidate summarizes what selection needs to know about a GPU.
type candidate struct {
	deviceType   rhi.PhysicalDeviceType
	vulkan12     bool
	swapchain    bool
	graphics     bool
	presents     bool
	needsPresent bool
}

// score is negative for unusable devices. Higher is better.
func (c candidate) score() int {
	if !c.vulkan12 || !c.graphics {
		return -1
	}
	if c.needsPresent && (!c.swapchain || !c.presents) {
		return -1
	}
	switch c.deviceType {
	case rhi.PhysicalDeviceDiscrete:
		return 3
	case rhi.PhysicalDeviceIntegrated:
		return 2
	}
	return 1
}

// examine fills in QueuePresent for families that can present to surface.
func (p *PhysicalDevice) examine(surface khr_surface.Surface) (candidate, error) {
	c := candidate{
		deviceType:   p.Type(),
		vulkan12:     p.properties.APIVersion.IsAtLeast(common.Vulkan1_2),
		swapchain:    p.extensions[khr_swapchain.ExtensionName],
		needsPresent: surface != nil,
	}

	for i := range p.families {
		if p.families[i].Flags&rhi.QueueGraphics != 0 {
			c.graphics = true
		}
		if surface == nil {
			continue
		}
		supported, err := p.supportsSurface(surface, i)
		if err != nil {
			return c, err
		}
		if supported {
			p.families[i].Flags |= rhi.QueuePresent
			c.presents = true
		}
	}
	return c, nil
}

// CreatePhysicalDevice picks the best GPU: Vulkan 1.2 with a graphics
// queue, plus swapchain and presentation support when a window is given.
// Discrete GPUs beat integrated ones.
func (d *Driver) CreatePhysicalDevice(desc rhi.PhysicalDeviceDescription) (rhi.PhysicalDevice, error) {
	handles, res, err := d.instance.EnumeratePhysicalDevices()
	if err != nil {
		return nil, check("EnumeratePhysicalDevices", res, err)
	}
	if len(handles) == 0 {
		return nil, errors.Wrap(rhi.ErrBackendNotAvailable, "CreatePhysicalDevice: no Vulkan devices")
	}

	var surface khr_surface.Surface
	if desc.PrimaryWindow != nil {
		surface, err = d.nativeSurface("CreatePhysicalDevice", desc.PrimaryWindow)
		if err != nil {
			return nil, err
		}
		defer surface.Destroy(nil)
	}

	var best *PhysicalDevice
	bestScore := -1
	for _, handle := range handles {
		p, err := newPhysicalDevice(d, handle)
		if err != nil {
			return nil, err
		}
		c, err := p.examine(surface)
		if err != nil {
			return nil, err
		}

		score := c.score()
		rhi.Logger().Debug("physical device considered", slog.String("name", p.Name()), slog.Int("score", score))
		if score > bestScore {
			best, bestScore = p, score
		}
	}

	if bestScore < 0 {
		return nil, errors.Wrap(rhi.ErrBackendNotAvailable, "CreatePhysicalDevice: failed to find a suitable GPU")
	}
	rhi.Logger().Info("physical device selected", slog.String("name", best.Name()),
		slog.String("api", best.properties.APIVersion.String()))
	return best, nil
}
