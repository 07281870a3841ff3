package vulkan_test

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/rhi"
	_ "github.com/vkngwrapper/rhi/vulkan"
)

// newTestDevice creates a headless device on the first graphics family.
// The test is skipped on machines without a usable Vulkan driver.
func newTestDevice(t *testing.T) (rhi.Device, rhi.Queue, int) {
	t.Helper()

	driver, err := rhi.NewDriver(rhi.DriverDescription{
		Kind:            rhi.DriverVulkan,
		ApplicationName: "rhi tests",
	})
	if err != nil {
		t.Skipf("Vulkan unavailable: %v", err)
	}
	t.Cleanup(driver.Destroy)

	physical, err := driver.CreatePhysicalDevice(rhi.PhysicalDeviceDescription{})
	if err != nil {
		t.Skipf("no usable GPU: %v", err)
	}

	family := -1
	for i := 0; i < physical.QueueFamilyCount(); i++ {
		props, err := physical.QueueFamilyProperties(i)
		if err != nil {
			t.Fatal(err)
		}
		if props.Flags&rhi.QueueGraphics != 0 {
			family = i
			break
		}
	}
	if family < 0 {
		t.Skip("no graphics queue family")
	}

	device, err := driver.CreateDevice(rhi.DeviceDescription{
		PhysicalDevice: physical,
		QueueFamilies:  []rhi.QueueFamilySelection{{Family: family, Priorities: []float32{1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(device.Destroy)

	queue, err := device.Queue(family, 0)
	if err != nil {
		t.Fatal(err)
	}
	return device, queue, family
}

func TestCopyBufferRoundTrip(t *testing.T) {
	device, queue, family := newTestDevice(t)
	payload := []byte("the quick brown fox jumps over the lazy dog")

	src, err := device.CreateBuffer(rhi.BufferDescription{
		Size:   uint64(len(payload)),
		Usage:  rhi.BufferTransferSrc,
		Memory: rhi.AllocationDescription{Access: rhi.HostAccessSequentialWrite},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Destroy()

	dst, err := device.CreateBuffer(rhi.BufferDescription{
		Size:   uint64(len(payload)),
		Usage:  rhi.BufferTransferDst,
		Memory: rhi.AllocationDescription{Access: rhi.HostAccessRandom},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Destroy()

	ptr, err := src.Map()
	if err != nil {
		t.Fatal(err)
	}
	copy(unsafe.Slice((*byte)(ptr), len(payload)), payload)
	if err := src.Allocation().Flush(0, rhi.WholeSize); err != nil {
		t.Fatal(err)
	}
	src.Unmap()

	pool, err := device.CreateCommandPool(rhi.CommandPoolDescription{QueueFamily: family})
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Destroy()

	cb, err := pool.Allocate(rhi.CommandBufferPrimary)
	if err != nil {
		t.Fatal(err)
	}
	if err := cb.Begin(rhi.UsageOneTimeSubmit); err != nil {
		t.Fatal(err)
	}
	if err := cb.CopyBuffer(src, dst); err != nil {
		t.Fatal(err)
	}
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}

	timeline, err := device.CreateTimelineSemaphore(rhi.TimelineSemaphoreDescription{})
	if err != nil {
		t.Fatal(err)
	}
	defer timeline.Destroy()
	fence, err := device.CreateFence(rhi.FenceDescription{})
	if err != nil {
		t.Fatal(err)
	}
	defer fence.Destroy()

	err = queue.Submit([]rhi.SubmitDescription{{
		CommandBuffers: []rhi.CommandBuffer{cb},
		SignalTimeline: []rhi.TimelineSignal{{Semaphore: timeline, Value: 1, Stage: rhi.StageTransfer}},
	}}, fence)
	if err != nil {
		t.Fatal(err)
	}
	if cb.State() != rhi.StatePending {
		t.Errorf("state after submit = %v, want Pending", cb.State())
	}
	if err := pool.Free(cb); !errors.Is(err, rhi.ErrInvalidState) {
		t.Errorf("freeing a pending buffer = %v, want ErrInvalidState", err)
	}

	if err := fence.Wait(rhi.Infinite); err != nil {
		t.Fatal(err)
	}
	if cb.State() != rhi.StateInvalid {
		t.Errorf("one-time buffer state after completion = %v, want Invalid", cb.State())
	}
	if value, err := timeline.CurrentValue(); err != nil || value != 1 {
		t.Errorf("timeline value = %d, %v, want 1", value, err)
	}

	ptr, err = dst.Map()
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Unmap()
	if err := dst.Allocation().Invalidate(0, rhi.WholeSize); err != nil {
		t.Fatal(err)
	}
	if got := unsafe.Slice((*byte)(ptr), len(payload)); !bytes.Equal(got, payload) {
		t.Errorf("read back %q, want %q", got, payload)
	}
}

func TestFenceResetUnsignaled(t *testing.T) {
	device, _, _ := newTestDevice(t)

	fence, err := device.CreateFence(rhi.FenceDescription{})
	if err != nil {
		t.Fatal(err)
	}
	defer fence.Destroy()
	if err := fence.Reset(); !errors.Is(err, rhi.ErrInvalidState) {
		t.Errorf("Reset on an unsignaled fence = %v, want ErrInvalidState", err)
	}

	signaled, err := device.CreateFence(rhi.FenceDescription{Signaled: true})
	if err != nil {
		t.Fatal(err)
	}
	defer signaled.Destroy()
	if err := signaled.Reset(); err != nil {
		t.Fatal(err)
	}
	if ok, err := signaled.IsSignaled(); err != nil || ok {
		t.Errorf("IsSignaled after reset = %v, %v", ok, err)
	}
}

func TestTimelineHostSignal(t *testing.T) {
	device, _, _ := newTestDevice(t)

	timeline, err := device.CreateTimelineSemaphore(rhi.TimelineSemaphoreDescription{InitialValue: 5})
	if err != nil {
		t.Fatal(err)
	}
	defer timeline.Destroy()

	if err := timeline.Signal(5); !errors.Is(err, rhi.ErrInvalidArgument) {
		t.Errorf("Signal(5) at 5 = %v, want ErrInvalidArgument", err)
	}
	if err := timeline.Signal(7); err != nil {
		t.Fatal(err)
	}
	if err := timeline.Wait(7, 0); err != nil {
		t.Errorf("Wait(7) after Signal(7) = %v", err)
	}
	if err := timeline.Wait(8, 0); !errors.Is(err, rhi.ErrTimeout) {
		t.Errorf("Wait(8) = %v, want ErrTimeout", err)
	}
}

func TestCommandBufferNeedsResetFlag(t *testing.T) {
	device, _, family := newTestDevice(t)

	pool, err := device.CreateCommandPool(rhi.CommandPoolDescription{QueueFamily: family})
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Destroy()

	cb, err := pool.Allocate(rhi.CommandBufferPrimary)
	if err != nil {
		t.Fatal(err)
	}
	if err := cb.Reset(false); !errors.Is(err, rhi.ErrInvalidState) {
		t.Errorf("Reset without CommandPoolResetCommandBuffer = %v, want ErrInvalidState", err)
	}

	if err := cb.Begin(0); err != nil {
		t.Fatal(err)
	}
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}
	if err := pool.Reset(false); err != nil {
		t.Fatal(err)
	}
	if cb.State() != rhi.StateInitial {
		t.Errorf("state after pool reset = %v, want Initial", cb.State())
	}
}

func TestPersistentMappingIsStable(t *testing.T) {
	device, _, _ := newTestDevice(t)

	buffer, err := device.CreateBuffer(rhi.BufferDescription{
		Size:  1024,
		Usage: rhi.BufferStorage,
		Memory: rhi.AllocationDescription{
			Access:             rhi.HostAccessSequentialWrite,
			PersistentlyMapped: true,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer buffer.Destroy()

	first, err := buffer.Map()
	if err != nil {
		t.Fatal(err)
	}
	second, err := buffer.Map()
	if err != nil {
		t.Fatal(err)
	}
	if first == nil || first != second {
		t.Fatalf("Map returned %p then %p, want one stable pointer", first, second)
	}
	unsafe.Slice((*byte)(first), 1024)[1023] = 0x5a
	buffer.Unmap()
	buffer.Unmap()

	if err := buffer.Allocation().Flush(0, rhi.WholeSize); err != nil {
		t.Fatal(err)
	}
}

func TestAliasedBufferLeavesAllocation(t *testing.T) {
	device, _, _ := newTestDevice(t)
	allocator := device.Allocator()

	owner, err := device.CreateBuffer(rhi.BufferDescription{Size: 4096, Usage: rhi.BufferStorage})
	if err != nil {
		t.Fatal(err)
	}
	allocation, err := allocator.AllocateForBuffer(owner, rhi.AllocationDescription{})
	owner.Destroy()
	if err != nil {
		t.Fatal(err)
	}

	a, err := allocator.CreateAliasedBuffer(allocation, rhi.BufferDescription{Size: 2048, Usage: rhi.BufferStorage}, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := allocator.CreateAliasedBuffer(allocation, rhi.BufferDescription{Size: 2048, Usage: rhi.BufferStorage}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Aliased() || !b.Aliased() {
		t.Fatal("buffers placed on an existing allocation are not reported as aliased")
	}

	a.Destroy()
	b.Destroy()
	if err := allocation.Free(); err != nil {
		t.Fatalf("allocation was freed by an aliased buffer: %v", err)
	}
	if err := allocation.Free(); !errors.Is(err, rhi.ErrInvalidState) {
		t.Fatalf("second Free returned %v, want ErrInvalidState", err)
	}
}

func TestClearPassReadBack(t *testing.T) {
	device, queue, family := newTestDevice(t)
	const width, height = 4, 4

	target, err := device.CreateImage(rhi.ImageDescription{
		Type:    rhi.ImageType2D,
		Format:  rhi.FormatR8G8B8A8Unorm,
		Extent:  rhi.Extent3D{Width: width, Height: height, Depth: 1},
		Samples: rhi.SampleCount1,
		Tiling:  rhi.TilingOptimal,
		Usage:   rhi.ImageColorAttachment | rhi.ImageTransferSrc,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()
	view, err := device.CreateImageView(rhi.ImageViewDescription{Image: target, Type: rhi.ViewType2D})
	if err != nil {
		t.Fatal(err)
	}
	defer view.Destroy()

	readback, err := device.CreateBuffer(rhi.BufferDescription{
		Size:   width * height * 4,
		Usage:  rhi.BufferTransferDst,
		Memory: rhi.AllocationDescription{Access: rhi.HostAccessRandom},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer readback.Destroy()

	pool, err := device.CreateCommandPool(rhi.CommandPoolDescription{QueueFamily: family})
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Destroy()
	fence, err := device.CreateFence(rhi.FenceDescription{})
	if err != nil {
		t.Fatal(err)
	}
	defer fence.Destroy()

	// The second pass shares the first pass's attachment formats.
	for _, tc := range []struct {
		clear rhi.ClearColorFloat
		want  []byte
	}{
		{rhi.ClearColorFloat{1, 0, 0, 1}, []byte{255, 0, 0, 255}},
		{rhi.ClearColorFloat{0, 1, 0, 1}, []byte{0, 255, 0, 255}},
	} {
		cb, err := pool.Allocate(rhi.CommandBufferPrimary)
		if err != nil {
			t.Fatal(err)
		}
		if err := cb.Begin(rhi.UsageOneTimeSubmit); err != nil {
			t.Fatal(err)
		}
		err = cb.Barrier(rhi.BarrierDescription{Images: []rhi.ImageBarrier{{
			Image:          target,
			DstStage:       rhi.StageColorAttachmentOutput,
			DstAccess:      rhi.AccessColorAttachmentWrite,
			OldLayout:      rhi.LayoutUndefined,
			NewLayout:      rhi.LayoutColorAttachment,
			SrcQueueFamily: rhi.QueueFamilyIgnored,
			DstQueueFamily: rhi.QueueFamilyIgnored,
		}}})
		if err != nil {
			t.Fatal(err)
		}
		err = cb.BeginRendering(rhi.RenderingDescription{
			Area: rhi.Rect2D{Extent: rhi.Extent2D{Width: width, Height: height}},
			Color: []rhi.AttachmentDescription{{
				View:    view,
				Layout:  rhi.LayoutColorAttachment,
				LoadOp:  rhi.LoadOpClear,
				StoreOp: rhi.StoreOpStore,
				Clear:   tc.clear,
			}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := cb.CopyImageToBuffer(target, rhi.LayoutTransferSrc, readback); !errors.Is(err, rhi.ErrInvalidState) {
			t.Errorf("copy inside the pass = %v, want ErrInvalidState", err)
		}
		if err := cb.EndRendering(); err != nil {
			t.Fatal(err)
		}
		err = cb.Barrier(rhi.BarrierDescription{Images: []rhi.ImageBarrier{{
			Image:          target,
			SrcStage:       rhi.StageColorAttachmentOutput,
			SrcAccess:      rhi.AccessColorAttachmentWrite,
			DstStage:       rhi.StageTransfer,
			DstAccess:      rhi.AccessTransferRead,
			OldLayout:      rhi.LayoutColorAttachment,
			NewLayout:      rhi.LayoutTransferSrc,
			SrcQueueFamily: rhi.QueueFamilyIgnored,
			DstQueueFamily: rhi.QueueFamilyIgnored,
		}}})
		if err != nil {
			t.Fatal(err)
		}
		if err := cb.CopyImageToBuffer(target, rhi.LayoutTransferSrc, readback); err != nil {
			t.Fatal(err)
		}
		err = cb.Barrier(rhi.BarrierDescription{Buffers: []rhi.BufferBarrier{{
			Buffer:         readback,
			SrcStage:       rhi.StageTransfer,
			SrcAccess:      rhi.AccessTransferWrite,
			DstStage:       rhi.StageHost,
			DstAccess:      rhi.AccessHostRead,
			SrcQueueFamily: rhi.QueueFamilyIgnored,
			DstQueueFamily: rhi.QueueFamilyIgnored,
		}}})
		if err != nil {
			t.Fatal(err)
		}
		if err := cb.End(); err != nil {
			t.Fatal(err)
		}

		if err := queue.Submit([]rhi.SubmitDescription{{CommandBuffers: []rhi.CommandBuffer{cb}}}, fence); err != nil {
			t.Fatal(err)
		}
		if err := fence.Wait(rhi.Infinite); err != nil {
			t.Fatal(err)
		}
		if err := fence.Reset(); err != nil {
			t.Fatal(err)
		}

		ptr, err := readback.Map()
		if err != nil {
			t.Fatal(err)
		}
		if err := readback.Allocation().Invalidate(0, rhi.WholeSize); err != nil {
			t.Fatal(err)
		}
		pixels := unsafe.Slice((*byte)(ptr), width*height*4)
		for i := 0; i < width*height; i++ {
			if got := pixels[i*4 : i*4+4]; !bytes.Equal(got, tc.want) {
				t.Errorf("clear %v: pixel %d = %v, want %v", tc.clear, i, got, tc.want)
				break
			}
		}
		readback.Unmap()

		if err := pool.Free(cb); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRecordingOutsideRendering(t *testing.T) {
	device, _, family := newTestDevice(t)

	pool, err := device.CreateCommandPool(rhi.CommandPoolDescription{QueueFamily: family})
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Destroy()
	cb, err := pool.Allocate(rhi.CommandBufferPrimary)
	if err != nil {
		t.Fatal(err)
	}

	if err := cb.BeginRendering(rhi.RenderingDescription{}); !errors.Is(err, rhi.ErrInvalidState) {
		t.Errorf("BeginRendering before Begin = %v, want ErrInvalidState", err)
	}
	if err := cb.Draw(3, 1, 0, 0); !errors.Is(err, rhi.ErrInvalidState) {
		t.Errorf("Draw before Begin = %v, want ErrInvalidState", err)
	}

	if err := cb.Begin(0); err != nil {
		t.Fatal(err)
	}
	if err := cb.Draw(3, 1, 0, 0); !errors.Is(err, rhi.ErrInvalidState) {
		t.Errorf("Draw outside a pass = %v, want ErrInvalidState", err)
	}
	if err := cb.DrawIndexed(3, 1, 0, 0, 0); !errors.Is(err, rhi.ErrInvalidState) {
		t.Errorf("DrawIndexed outside a pass = %v, want ErrInvalidState", err)
	}
	if err := cb.EndRendering(); !errors.Is(err, rhi.ErrInvalidState) {
		t.Errorf("EndRendering outside a pass = %v, want ErrInvalidState", err)
	}
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}
	if cb.State() != rhi.StateExecutable {
		t.Errorf("state after End = %v, want Executable", cb.State())
	}
}
