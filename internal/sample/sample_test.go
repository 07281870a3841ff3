package sample

import (
	"testing"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/rhi"
)

func TestParseBackend(t *testing.T) {
	kind, err := ParseBackend("vulkan")
	if err != nil || kind != rhi.DriverVulkan {
		t.Errorf("ParseBackend(vulkan) = %v, %v", kind, err)
	}
	kind, err = ParseBackend("Metal")
	if err != nil || kind != rhi.DriverMetal {
		t.Errorf("ParseBackend(Metal) = %v, %v", kind, err)
	}
	if _, err := ParseBackend("glide"); !errors.Is(err, rhi.ErrBackendNotAvailable) {
		t.Errorf("ParseBackend(glide) = %v, want ErrBackendNotAvailable", err)
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := rhi.SurfaceFormat{Format: rhi.FormatB8G8R8A8Srgb, ColorSpace: rhi.ColorSpaceSRGBNonlinear}
	other := rhi.SurfaceFormat{Format: rhi.FormatR8G8B8A8Unorm, ColorSpace: rhi.ColorSpaceSRGBNonlinear}

	if got, err := chooseSurfaceFormat([]rhi.SurfaceFormat{other, preferred}); err != nil || got != preferred {
		t.Errorf("chooseSurfaceFormat = %v, %v, want %v", got, err, preferred)
	}
	if got, err := chooseSurfaceFormat([]rhi.SurfaceFormat{other}); err != nil || got != other {
		t.Errorf("chooseSurfaceFormat fallback = %v, %v, want %v", got, err, other)
	}
	if _, err := chooseSurfaceFormat(nil); err == nil {
		t.Error("chooseSurfaceFormat accepted an empty list")
	}
}

func TestChoosePresentMode(t *testing.T) {
	cases := []struct {
		modes []rhi.PresentMode
		want  rhi.PresentMode
	}{
		{[]rhi.PresentMode{rhi.PresentModeFifo, rhi.PresentModeMailbox}, rhi.PresentModeMailbox},
		{[]rhi.PresentMode{rhi.PresentModeImmediate}, rhi.PresentModeFifo},
		{nil, rhi.PresentModeFifo},
	}
	for _, c := range cases {
		if got := choosePresentMode(c.modes); got != c.want {
			t.Errorf("choosePresentMode(%v) = %v, want %v", c.modes, got, c.want)
		}
	}
}

func TestFullViewport(t *testing.T) {
	got := FullViewport(rhi.Extent2D{Width: 800, Height: 600})
	want := rhi.Viewport{Width: 800, Height: 600, MaxDepth: 1}
	if got != want {
		t.Errorf("FullViewport = %+v, want %+v", got, want)
	}
}

type fakeBuffer struct {
	rhi.Buffer
	memory  []byte
	flushed [2]uint64
}

func (b *fakeBuffer) Map() (unsafe.Pointer, error) { return unsafe.Pointer(&b.memory[0]), nil }
func (b *fakeBuffer) Unmap()                       {}
func (b *fakeBuffer) Allocation() rhi.Allocation   { return &fakeAllocation{buffer: b} }

type fakeAllocation struct {
	rhi.Allocation
	buffer *fakeBuffer
}

func (a *fakeAllocation) Flush(offset, size uint64) error {
	a.buffer.flushed = [2]uint64{offset, size}
	return nil
}

func TestWriteData(t *testing.T) {
	b := &fakeBuffer{memory: make([]byte, 64)}
	v := mgl32.Vec2{1, 2}
	if err := WriteData(b, 8, v); err != nil {
		t.Fatal(err)
	}
	if b.flushed != [2]uint64{8, 8} {
		t.Errorf("flushed %v, want [8 8]", b.flushed)
	}
	// 1.0f and 2.0f, little endian.
	want := []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0x40}
	for i, x := range want {
		if b.memory[8+i] != x {
			t.Fatalf("memory[%d:%d] = %x, want %x", 8, 16, b.memory[8:16], want)
		}
	}

	if err := WriteData(b, 0, []int{1}); err == nil {
		t.Error("WriteData accepted a type without a fixed size")
	}
}

func TestDestroyPartial(t *testing.T) {
	var nilContext *Context
	nilContext.Destroy()
	(&Context{Family: -1}).Destroy()

	var nilRenderer *Renderer
	nilRenderer.Destroy()
	(&Renderer{ctx: &Context{Family: -1}}).Destroy()
}

type fakeCommandBuffer struct {
	rhi.CommandBuffer
	state rhi.CommandBufferState
}

func (cb *fakeCommandBuffer) Begin(rhi.CommandBufferUsage) error {
	cb.state = rhi.StateRecording
	return nil
}

func (cb *fakeCommandBuffer) End() error {
	cb.state = rhi.StateExecutable
	return nil
}

type fakePool struct {
	rhi.CommandPool
	buffers []*fakeCommandBuffer
	freed   int
	freeErr error
}

func (p *fakePool) Allocate(rhi.CommandBufferLevel) (rhi.CommandBuffer, error) {
	cb := &fakeCommandBuffer{state: rhi.StateInitial}
	p.buffers = append(p.buffers, cb)
	return cb, nil
}

func (p *fakePool) Free(buffers ...rhi.CommandBuffer) error {
	p.freed += len(buffers)
	return p.freeErr
}

type fakeFence struct{ rhi.Fence }

func (fakeFence) Wait(time.Duration) error { return nil }
func (fakeFence) Destroy()                 {}

type fakeDevice struct{ rhi.Device }

func (fakeDevice) CreateFence(rhi.FenceDescription) (rhi.Fence, error) { return fakeFence{}, nil }

type fakeQueue struct {
	rhi.Queue
	submitted int
}

func (q *fakeQueue) Submit(submits []rhi.SubmitDescription, fence rhi.Fence) error {
	q.submitted += len(submits)
	return nil
}

func TestOneShotFreesBuffer(t *testing.T) {
	pool, queue := &fakePool{}, &fakeQueue{}
	c := &Context{Device: fakeDevice{}, Queue: queue, transfer: pool}

	for i := 0; i < 3; i++ {
		if err := c.OneShot(func(rhi.CommandBuffer) error { return nil }); err != nil {
			t.Fatal(err)
		}
	}
	if queue.submitted != 3 || pool.freed != 3 {
		t.Errorf("submitted %d, freed %d, want 3 and 3", queue.submitted, pool.freed)
	}

	recordErr := errors.New("record failed")
	if err := c.OneShot(func(rhi.CommandBuffer) error { return recordErr }); !errors.Is(err, recordErr) {
		t.Errorf("OneShot returned %v, want the record error", err)
	}
	if pool.freed != 4 {
		t.Errorf("buffer of a failed recording not freed")
	}
}

func TestOneShotReportsFreeError(t *testing.T) {
	pool := &fakePool{freeErr: rhi.InvalidStatef("FreeCommandBuffers: command buffer 0 is still pending")}
	c := &Context{Device: fakeDevice{}, Queue: &fakeQueue{}, transfer: pool}

	err := c.OneShot(func(rhi.CommandBuffer) error { return nil })
	if !errors.Is(err, rhi.ErrInvalidState) {
		t.Fatalf("OneShot returned %v, want ErrInvalidState", err)
	}
}
