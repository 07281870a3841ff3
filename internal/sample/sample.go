// Package sample holds the window, device and frame plumbing shared by the
// example commands.
package sample

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/rhi"
	"github.com/vkngwrapper/rhi/platform/sdl2"
	_ "github.com/vkngwrapper/rhi/stub"
	_ "github.com/vkngwrapper/rhi/vulkan"
	"golang.org/x/exp/slog"
)

type Config struct {
	Title      string
	Width      uint32
	Height     uint32
	Backend    string
	Validation bool
}

// ParseBackend matches name case-insensitively against the registered
// backends.
func ParseBackend(name string) (rhi.DriverKind, error) {
	for _, kind := range rhi.Available() {
		if strings.EqualFold(kind.String(), name) {
			return kind, nil
		}
	}
	return 0, errors.Wrapf(rhi.ErrBackendNotAvailable, "unknown backend %q", name)
}

// Context is a window with a device that can present to it. Graphics and
// presentation share one queue.
type Context struct {
	Manager  *sdl2.Manager
	Window   *sdl2.Window
	Driver   rhi.Driver
	Physical rhi.PhysicalDevice
	Surface  rhi.Surface
	Device   rhi.Device
	Queue    rhi.Queue
	Family   int

	transfer rhi.CommandPool
}

// New brings up a window and a device that presents to it. Whatever was
// created before a failure is destroyed again.
func New(cfg Config) (*Context, error) {
	kind, err := ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	ctx := &Context{Family: -1}
	if err := ctx.init(kind, cfg); err != nil {
		ctx.Destroy()
		return nil, err
	}
	rhi.Logger().Info("device ready", slog.String("gpu", ctx.Physical.Name()), slog.Int("family", ctx.Family))
	return ctx, nil
}

func (c *Context) init(kind rhi.DriverKind, cfg Config) error {
	var err error
	c.Manager, err = sdl2.NewManager()
	if err != nil {
		return err
	}
	c.Window, err = c.Manager.NewWindow(rhi.WindowDescription{
		Title:     cfg.Title,
		Extent:    rhi.Extent2D{Width: cfg.Width, Height: cfg.Height},
		Resizable: true,
	})
	if err != nil {
		return err
	}

	c.Driver, err = rhi.NewDriver(rhi.DriverDescription{
		Kind:               kind,
		ApplicationName:    cfg.Title,
		ApplicationVersion: rhi.Version{Major: 1},
		EnableValidation:   cfg.Validation,
		InstanceExtensions: c.Window.InstanceExtensions(),
		InstanceProcAddr:   c.Manager.InstanceProcAddr(),
	})
	if err != nil {
		return err
	}

	c.Physical, err = c.Driver.CreatePhysicalDevice(rhi.PhysicalDeviceDescription{PrimaryWindow: c.Window})
	if err != nil {
		return err
	}
	c.Surface, err = c.Driver.CreateSurface(rhi.SurfaceDescription{Window: c.Window})
	if err != nil {
		return err
	}

	c.Family, err = presentFamily(c.Physical)
	if err != nil {
		return err
	}
	c.Device, err = c.Driver.CreateDevice(rhi.DeviceDescription{
		PhysicalDevice: c.Physical,
		QueueFamilies:  []rhi.QueueFamilySelection{{Family: c.Family, Priorities: []float32{1}}},
	})
	if err != nil {
		return err
	}
	c.Queue, err = c.Device.Queue(c.Family, 0)
	if err != nil {
		return err
	}

	c.transfer, err = c.Device.CreateCommandPool(rhi.CommandPoolDescription{
		QueueFamily: c.Family,
		Behavior:    rhi.CommandPoolTransient | rhi.CommandPoolResetCommandBuffer,
	})
	if err != nil {
		return err
	}

	return nil
}

func presentFamily(physical rhi.PhysicalDevice) (int, error) {
	for i := 0; i < physical.QueueFamilyCount(); i++ {
		props, err := physical.QueueFamilyProperties(i)
		if err != nil {
			return -1, err
		}
		if props.Flags&rhi.QueueGraphics != 0 && props.Flags&rhi.QueuePresent != 0 {
			return i, nil
		}
	}
	return -1, errors.New("no queue family supports both graphics and presentation")
}

// Destroy tears down whatever New managed to create.
func (c *Context) Destroy() {
	if c == nil {
		return
	}
	if c.Device != nil {
		if err := c.Device.WaitIdle(); err != nil {
			rhi.Logger().Warn("device wait failed during shutdown", slog.Any("error", err))
		}
	}
	if c.transfer != nil {
		c.transfer.Destroy()
	}
	if c.Device != nil {
		c.Device.Destroy()
	}
	if c.Surface != nil {
		c.Surface.Destroy()
	}
	if c.Driver != nil {
		c.Driver.Destroy()
	}
	if c.Manager != nil {
		c.Manager.Destroy()
	}
}

// OneShot records commands into a transient buffer, submits them and waits
// for them to finish.
func (c *Context) OneShot(record func(cb rhi.CommandBuffer) error) (err error) {
	cb, err := c.transfer.Allocate(rhi.CommandBufferPrimary)
	if err != nil {
		return err
	}
	defer func() {
		if freeErr := c.transfer.Free(cb); err == nil {
			err = freeErr
		}
	}()

	if err := cb.Begin(rhi.UsageOneTimeSubmit); err != nil {
		return err
	}
	if err := record(cb); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}

	fence, err := c.Device.CreateFence(rhi.FenceDescription{})
	if err != nil {
		return err
	}
	defer fence.Destroy()

	err = c.Queue.Submit([]rhi.SubmitDescription{{CommandBuffers: []rhi.CommandBuffer{cb}}}, fence)
	if err != nil {
		return err
	}
	return fence.Wait(rhi.Infinite)
}

// WriteData copies data into a host-visible buffer at offset.
func WriteData(buffer rhi.Buffer, offset uint64, data any) error {
	size := binary.Size(data)
	if size < 0 {
		return errors.Newf("WriteData: %T has no fixed size", data)
	}

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, common.ByteOrder, data); err != nil {
		return err
	}

	ptr, err := buffer.Map()
	if err != nil {
		return err
	}
	defer buffer.Unmap()

	copy(unsafe.Slice((*byte)(unsafe.Add(ptr, int(offset))), size), buf.Bytes())
	return buffer.Allocation().Flush(offset, uint64(size))
}

func (c *Context) staging(data any) (rhi.Buffer, uint64, error) {
	size := binary.Size(data)
	if size <= 0 {
		return nil, 0, errors.Newf("upload: %T has no fixed size", data)
	}
	buffer, err := c.Device.CreateBuffer(rhi.BufferDescription{
		Size:   uint64(size),
		Usage:  rhi.BufferTransferSrc,
		Memory: rhi.AllocationDescription{Access: rhi.HostAccessSequentialWrite},
	})
	if err != nil {
		return nil, 0, err
	}
	if err := WriteData(buffer, 0, data); err != nil {
		buffer.Destroy()
		return nil, 0, err
	}
	return buffer, uint64(size), nil
}

// UploadBuffer creates a device-local buffer holding data.
func (c *Context) UploadBuffer(data any, usage rhi.BufferUsage) (rhi.Buffer, error) {
	staging, size, err := c.staging(data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	buffer, err := c.Device.CreateBuffer(rhi.BufferDescription{
		Size:  size,
		Usage: usage | rhi.BufferTransferDst,
	})
	if err != nil {
		return nil, err
	}

	err = c.OneShot(func(cb rhi.CommandBuffer) error {
		return cb.CopyBuffer(staging, buffer)
	})
	if err != nil {
		buffer.Destroy()
		return nil, err
	}
	return buffer, nil
}

// UploadImage creates a sampled 2D image from tightly packed pixels and
// leaves it in LayoutShaderReadOnly.
func (c *Context) UploadImage(pixels []byte, extent rhi.Extent2D, format rhi.Format) (rhi.Image, error) {
	staging, _, err := c.staging(pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	image, err := c.Device.CreateImage(rhi.ImageDescription{
		Type:    rhi.ImageType2D,
		Format:  format,
		Extent:  rhi.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		Samples: rhi.SampleCount1,
		Tiling:  rhi.TilingOptimal,
		Usage:   rhi.ImageTransferDst | rhi.ImageSampled,
	})
	if err != nil {
		return nil, err
	}

	err = c.OneShot(func(cb rhi.CommandBuffer) error {
		err := cb.Barrier(rhi.BarrierDescription{Images: []rhi.ImageBarrier{{
			Image:          image,
			SrcStage:       rhi.StageTopOfPipe,
			DstStage:       rhi.StageTransfer,
			DstAccess:      rhi.AccessTransferWrite,
			OldLayout:      rhi.LayoutUndefined,
			NewLayout:      rhi.LayoutTransferDst,
			SrcQueueFamily: rhi.QueueFamilyIgnored,
			DstQueueFamily: rhi.QueueFamilyIgnored,
		}}})
		if err != nil {
			return err
		}

		err = cb.CopyBufferToImage(staging, image, rhi.LayoutTransferDst, rhi.BufferImageCopyRegion{
			ImageExtent: rhi.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		})
		if err != nil {
			return err
		}

		return cb.Barrier(rhi.BarrierDescription{Images: []rhi.ImageBarrier{{
			Image:          image,
			SrcStage:       rhi.StageTransfer,
			SrcAccess:      rhi.AccessTransferWrite,
			DstStage:       rhi.StageFragmentShader,
			DstAccess:      rhi.AccessShaderRead,
			OldLayout:      rhi.LayoutTransferDst,
			NewLayout:      rhi.LayoutShaderReadOnly,
			SrcQueueFamily: rhi.QueueFamilyIgnored,
			DstQueueFamily: rhi.QueueFamilyIgnored,
		}}})
	})
	if err != nil {
		image.Destroy()
		return nil, err
	}
	return image, nil
}

// Loop polls window events and calls draw until the window closes. A
// positive frames stops after that many frames.
func (c *Context) Loop(frames int, draw func() error) error {
	start := hrtime.Now()
	count := 0
	for !c.Window.ShouldClose() && (frames <= 0 || count < frames) {
		c.Manager.PollEvents()
		if c.Window.Minimized() {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if err := draw(); err != nil {
			return err
		}
		count++
	}

	elapsed := hrtime.Since(start)
	if count > 0 {
		rhi.Logger().Info("frames rendered", slog.Int("frames", count), slog.Duration("elapsed", elapsed),
			slog.Duration("average", elapsed/time.Duration(count)))
	}
	return c.Device.WaitIdle()
}
