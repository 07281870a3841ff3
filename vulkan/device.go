package vulkan

import (
	"sync"

	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_2"
	"github.com/vkngwrapper/extensions/khr_portability_subset"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/rhi"
	"github.com/vkngwrapper/rhi/internal/inflight"
	"golang.org/x/exp/slog"
)

type queueKey struct {
	family, index int
}

// Device is a logical device with its queues, allocator and the caches
// behind BeginRendering.
type Device struct {
	driver       *Driver
	physical     *PhysicalDevice
	handle       core1_0.Device
	timeline     core1_2.Device
	swapchainExt khr_swapchain.Extension
	features     *core1_0.PhysicalDeviceFeatures
	allocator    *Allocator
	rendering    *renderingCache
	tracker      inflight.Tracker

	mu     sync.Mutex
	queues map[queueKey]*Queue
	counts map[int]int
	once   sync.Once
}

// deviceChild is implemented by every object a Device creates.
type deviceChild interface {
	owner() *Device
}

// cast checks that v is a T created by d.
func cast[T deviceChild](d *Device, op, what string, v any) (T, error) {
	t, ok := v.(T)
	if !ok || t.owner() != d {
		var zero T
		return zero, rhi.InvalidArgumentf("%s: %s %T was not created by this device", op, what, v)
	}
	return t, nil
}

func (d *Device) buffer(op string, b rhi.Buffer) (*Buffer, error) {
	return cast[*Buffer](d, op, "buffer", b)
}

func (d *Device) image(op string, i rhi.Image) (*Image, error) {
	return cast[*Image](d, op, "image", i)
}

func newDevice(driver *Driver, desc rhi.DeviceDescription) (*Device, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	physical, ok := desc.PhysicalDevice.(*PhysicalDevice)
	if !ok || physical.driver != driver {
		return nil, rhi.InvalidArgumentf("CreateDevice: physical device belongs to another driver")
	}
	if !physical.properties.APIVersion.IsAtLeast(common.Vulkan1_2) {
		return nil, rhi.NotImplementedf("CreateDevice: %s supports Vulkan %s, timeline semaphores need 1.2",
			physical.Name(), physical.properties.APIVersion)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	counts := make(map[int]int)
	for _, family := range desc.QueueFamilies {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family.Family,
			QueuePriorities:  family.Priorities,
		})
		counts[family.Family] = len(family.Priorities)
	}

	var extensionNames []string
	if physical.extensions[khr_swapchain.ExtensionName] {
		extensionNames = append(extensionNames, khr_swapchain.ExtensionName)
	}
	// Required on portability implementations such as MoltenVK
	if physical.extensions[khr_portability_subset.ExtensionName] {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	features := *physical.handle.Features()
	features.RobustBufferAccess = false

	createInfo := core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueFamilyOptions,
		EnabledFeatures:       &features,
		EnabledExtensionNames: extensionNames,
	}
	createInfo.Next = core1_2.PhysicalDeviceTimelineSemaphoreFeatures{
		TimelineSemaphore: true,
	}

	handle, res, err := physical.handle.CreateDevice(nil, createInfo)
	if err != nil {
		return nil, check("CreateDevice", res, err)
	}

	d := &Device{
		driver:   driver,
		physical: physical,
		handle:   handle,
		timeline: core1_2.PromoteDevice(handle),
		features: &features,
		queues:   make(map[queueKey]*Queue),
		counts:   counts,
	}
	if physical.extensions[khr_swapchain.ExtensionName] {
		d.swapchainExt = khr_swapchain.CreateExtensionFromDevice(handle)
	}
	d.allocator = newAllocator(d)
	d.rendering = newRenderingCache(d)

	rhi.Logger().Debug("device created", slog.String("name", physical.Name()),
		slog.Any("extensions", extensionNames), slog.Int("queueFamilies", len(counts)))
	return d, nil
}

func (d *Device) PhysicalDevice() rhi.PhysicalDevice { return d.physical }
func (d *Device) Allocator() rhi.Allocator           { return d.allocator }
func (d *Device) NativeHandle() any                  { return d.handle }

func (d *Device) Queue(family, index int) (rhi.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	count, ok := d.counts[family]
	if !ok {
		return nil, rhi.InvalidArgumentf("Queue: family %d was not requested at device creation", family)
	}
	if index < 0 || index >= count {
		return nil, rhi.InvalidArgumentf("Queue: index %d out of range [0, %d) for family %d", index, count, family)
	}

	key := queueKey{family, index}
	queue, ok := d.queues[key]
	if !ok {
		queue = &Queue{device: d, family: family, index: index, handle: d.handle.GetQueue(family, index)}
		d.queues[key] = queue
	}
	return queue, nil
}

// WaitIdle also retires every tracked submission.
func (d *Device) WaitIdle() error {
	res, err := d.handle.WaitIdle()
	if err != nil {
		return check("DeviceWaitIdle", res, err)
	}
	d.tracker.RetireAll()
	return nil
}

// Destroy waits for the device to go idle and releases its caches and
// memory before destroying it.
func (d *Device) Destroy() {
	d.once.Do(func() {
		if err := d.WaitIdle(); err != nil {
			rhi.Logger().Warn("device destroyed without going idle", slog.Any("error", err))
		}
		d.rendering.destroy()
		d.allocator.destroy()
		d.handle.Destroy(nil)
		rhi.Logger().Debug("device destroyed", slog.String("name", d.physical.Name()))
	})
}

func (d *Device) CreateBuffer(desc rhi.BufferDescription) (rhi.Buffer, error) {
	return d.allocator.CreateBuffer(desc, desc.Memory)
}

func (d *Device) CreateImage(desc rhi.ImageDescription) (rhi.Image, error) {
	return d.allocator.CreateImage(desc, desc.Memory)
}

func (d *Device) CreateBufferView(desc rhi.BufferViewDescription) (rhi.BufferView, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	buffer, err := d.buffer("CreateBufferView", desc.Buffer)
	if err != nil {
		return nil, err
	}

	length := desc.Range
	if length == rhi.WholeSize {
		length = buffer.size - desc.Offset
	}
	handle, res, err := d.handle.CreateBufferView(nil, core1_0.BufferViewCreateInfo{
		Buffer: buffer.handle,
		Format: toFormat(desc.Format),
		Offset: int(desc.Offset),
		Range:  int(length),
	})
	if err != nil {
		return nil, check("CreateBufferView", res, err)
	}
	return &BufferView{buffer: buffer, handle: handle, format: desc.Format}, nil
}

func (d *Device) CreateImageView(desc rhi.ImageViewDescription) (rhi.ImageView, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	image, err := d.image("CreateImageView", desc.Image)
	if err != nil {
		return nil, err
	}

	format := desc.Format
	if format == rhi.FormatUndefined {
		format = image.desc.Format
	}
	subresource := desc.Subresource.Normalized()
	if desc.Subresource.Aspect == 0 && format.HasDepth() {
		subresource.Aspect = rhi.AspectDepth
	}

	handle, res, err := d.handle.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image.handle,
		ViewType: imageViewTypes[desc.Type],
		Format:   toFormat(format),
		Components: core1_0.ComponentMapping{
			R: swizzles[desc.Swizzle.R],
			G: swizzles[desc.Swizzle.G],
			B: swizzles[desc.Swizzle.B],
			A: swizzles[desc.Swizzle.A],
		},
		SubresourceRange: toSubresourceRange(subresource),
	})
	if err != nil {
		return nil, check("CreateImageView", res, err)
	}
	return &ImageView{image: image, handle: handle, format: format, subresource: subresource}, nil
}

func (d *Device) CreateSampler(desc rhi.SamplerDescription) (rhi.Sampler, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	anisotropy := desc.MaxAnisotropy
	if desc.EnableAnisotropy {
		if !d.features.SamplerAnisotropy {
			return nil, rhi.NotImplementedf("CreateSampler: %s does not support anisotropic filtering", d.physical.Name())
		}
		if limit := d.physical.properties.Limits.MaxSamplerAnisotropy; anisotropy > limit {
			anisotropy = limit
		}
	}

	handle, res, err := d.handle.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:               filters[desc.MagFilter],
		MinFilter:               filters[desc.MinFilter],
		MipmapMode:              mipmapModes[desc.MipmapMode],
		AddressModeU:            addressModes[desc.AddressModeU],
		AddressModeV:            addressModes[desc.AddressModeV],
		AddressModeW:            addressModes[desc.AddressModeW],
		MipLodBias:              desc.MipLodBias,
		AnisotropyEnable:        desc.EnableAnisotropy,
		MaxAnisotropy:           anisotropy,
		CompareEnable:           desc.EnableCompare,
		CompareOp:               compareOps[desc.CompareOp],
		MinLod:                  desc.MinLod,
		MaxLod:                  desc.MaxLod,
		BorderColor:             borderColors[desc.BorderColor],
		UnnormalizedCoordinates: desc.UnnormalizedCoordinates,
	})
	if err != nil {
		return nil, check("CreateSampler", res, err)
	}
	return &Sampler{device: d, handle: handle}, nil
}

// bytesToBytecode reads little-endian SPIR-V words.
func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}

func (d *Device) CreateShader(desc rhi.ShaderDescription) (rhi.Shader, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	handle, res, err := d.handle.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: bytesToBytecode(desc.Code),
	})
	if err != nil {
		return nil, check("CreateShaderModule", res, err)
	}
	return &Shader{device: d, handle: handle}, nil
}
