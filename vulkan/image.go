package vulkan

import (
	"sync"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_1"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

type Image struct {
	device     *Device
	handle     core1_0.Image
	desc       rhi.ImageDescription
	allocation *Allocation
	offset     uint64
	aliased    bool
	owned      bool
	once       sync.Once
}

func newImage(device *Device, handle core1_0.Image, desc rhi.ImageDescription, allocation *Allocation, offset uint64, aliased bool) *Image {
	desc.MipLevels = max1(desc.MipLevels)
	desc.ArrayLayers = max1(desc.ArrayLayers)
	if desc.Samples == 0 {
		desc.Samples = rhi.SampleCount1
	}
	rhi.Logger().Debug("image created", slog.Int("format", int(desc.Format)),
		slog.Any("extent", desc.Extent), slog.Bool("aliased", aliased))
	return &Image{
		device:     device,
		handle:     handle,
		desc:       desc,
		allocation: allocation,
		offset:     offset,
		aliased:    aliased,
		owned:      true,
	}
}

// swapchainImage wraps an image owned by a swapchain.
func swapchainImage(device *Device, handle core1_0.Image, format rhi.Format, extent rhi.Extent2D, layers uint32, usage rhi.ImageUsage) *Image {
	return &Image{
		device: device,
		handle: handle,
		desc: rhi.ImageDescription{
			Type:        rhi.ImageType2D,
			Format:      format,
			Extent:      rhi.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
			MipLevels:   1,
			ArrayLayers: layers,
			Samples:     rhi.SampleCount1,
			Usage:       usage,
		},
	}
}

func max1(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func imageKind(tiling rhi.ImageTiling) resourceKind {
	if tiling == rhi.TilingLinear {
		return kindLinear
	}
	return kindOptimal
}

func (i *Image) kind() resourceKind {
	return imageKind(i.desc.Tiling)
}

func (d *Device) createNativeImage(desc rhi.ImageDescription) (core1_0.Image, error) {
	var flags core1_0.ImageCreateFlags
	if desc.CubeCompatible {
		flags |= core1_0.ImageCreateCubeCompatible
	}
	if desc.ArrayCompatible {
		flags |= core1_1.ImageCreate2DArrayCompatible
	}

	handle, res, err := d.handle.CreateImage(nil, core1_0.ImageCreateInfo{
		Flags:              flags,
		ImageType:          imageTypes[desc.Type],
		Format:             toFormat(desc.Format),
		Extent:             toExtent3D(desc.Extent),
		MipLevels:          int(max1(desc.MipLevels)),
		ArrayLayers:        int(max1(desc.ArrayLayers)),
		Samples:            toSamples(desc.Samples),
		Tiling:             tilings[desc.Tiling],
		Usage:              translateFlags(desc.Usage, imageUsages),
		SharingMode:        sharingModes[desc.SharingMode],
		QueueFamilyIndices: desc.QueueFamilies,
		InitialLayout:      toLayout(desc.InitialLayout),
	})
	if err != nil {
		return nil, check("CreateImage", res, err)
	}
	return handle, nil
}

func (i *Image) Type() rhi.ImageType      { return i.desc.Type }
func (i *Image) Format() rhi.Format       { return i.desc.Format }
func (i *Image) Extent() rhi.Extent3D     { return i.desc.Extent }
func (i *Image) MipLevels() uint32        { return i.desc.MipLevels }
func (i *Image) ArrayLayers() uint32      { return i.desc.ArrayLayers }
func (i *Image) Samples() rhi.SampleCount { return i.desc.Samples }
func (i *Image) Aliased() bool            { return i.aliased }
func (i *Image) Owned() bool              { return i.owned }
func (i *Image) NativeHandle() any        { return i.handle }
func (i *Image) owner() *Device           { return i.device }

func (i *Image) Allocation() rhi.Allocation {
	if i.allocation == nil {
		return nil
	}
	return i.allocation
}

// Destroy does nothing for swapchain images.
func (i *Image) Destroy() {
	if !i.owned {
		return
	}
	i.once.Do(func() {
		i.handle.Destroy(nil)
		if !i.aliased {
			i.allocation.release("image")
		}
	})
}

type ImageView struct {
	image       *Image
	handle      core1_0.ImageView
	format      rhi.Format
	subresource rhi.ImageSubresourceRange
	once        sync.Once
}

func (v *ImageView) Image() rhi.Image                       { return v.image }
func (v *ImageView) Format() rhi.Format                     { return v.format }
func (v *ImageView) Subresource() rhi.ImageSubresourceRange { return v.subresource }
func (v *ImageView) NativeHandle() any                      { return v.handle }
func (v *ImageView) owner() *Device                         { return v.image.device }

func (v *ImageView) extent() rhi.Extent2D {
	e := v.image.desc.Extent
	w, h := e.Width>>v.subresource.BaseMipLevel, e.Height>>v.subresource.BaseMipLevel
	return rhi.Extent2D{Width: maxU32(w, 1), Height: maxU32(h, 1)}
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// Destroy also drops cached framebuffers that reference the view.
func (v *ImageView) Destroy() {
	v.once.Do(func() {
		v.image.device.rendering.forgetView(v)
		v.handle.Destroy(nil)
	})
}

type Sampler struct {
	device *Device
	handle core1_0.Sampler
	once   sync.Once
}

func (s *Sampler) NativeHandle() any { return s.handle }
func (s *Sampler) owner() *Device    { return s.device }

func (s *Sampler) Destroy() {
	s.once.Do(func() { s.handle.Destroy(nil) })
}
