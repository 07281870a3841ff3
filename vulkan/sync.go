package vulkan

import (
	"sync"
	"time"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_2"
	"github.com/vkngwrapper/rhi"
)

type Fence struct {
	device *Device
	handle core1_0.Fence
	once   sync.Once
}

func (d *Device) CreateFence(desc rhi.FenceDescription) (rhi.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if desc.Signaled {
		flags |= core1_0.FenceCreateSignaled
	}
	handle, res, err := d.handle.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: flags,
	})
	if err != nil {
		return nil, check("CreateFence", res, err)
	}
	return &Fence{device: d, handle: handle}, nil
}

func (f *Fence) NativeHandle() any { return f.handle }
func (f *Fence) owner() *Device    { return f.device }

// Wait retires the submissions the fence guards once it is signaled.
func (f *Fence) Wait(timeout time.Duration) error {
	res, err := f.handle.Wait(toTimeout(timeout))
	if err != nil {
		return check("WaitForFences", res, err)
	}
	if res == core1_0.VKTimeout {
		return statusError("WaitForFences", res)
	}
	f.device.tracker.RetireFence(f)
	return nil
}

func (f *Fence) IsSignaled() (bool, error) {
	res, err := f.handle.Status()
	if err != nil {
		return false, check("GetFenceStatus", res, err)
	}
	if res != core1_0.VKSuccess {
		return false, nil
	}
	f.device.tracker.RetireFence(f)
	return true, nil
}

// Reset fails with ErrInvalidState unless the fence is signaled.
func (f *Fence) Reset() error {
	signaled, err := f.IsSignaled()
	if err != nil {
		return err
	}
	if !signaled {
		return rhi.InvalidStatef("ResetFences: fence is not signaled")
	}
	res, err := f.handle.Reset()
	if err != nil {
		return check("ResetFences", res, err)
	}
	return nil
}

func (f *Fence) Destroy() {
	f.once.Do(func() { f.handle.Destroy(nil) })
}

type BinarySemaphore struct {
	device *Device
	handle core1_0.Semaphore
	once   sync.Once
}

func (d *Device) CreateBinarySemaphore() (rhi.BinarySemaphore, error) {
	handle, res, err := d.handle.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, check("CreateSemaphore", res, err)
	}
	return &BinarySemaphore{device: d, handle: handle}, nil
}

func (s *BinarySemaphore) NativeHandle() any { return s.handle }
func (s *BinarySemaphore) owner() *Device    { return s.device }

func (s *BinarySemaphore) Destroy() {
	s.once.Do(func() { s.handle.Destroy(nil) })
}

type TimelineSemaphore struct {
	device  *Device
	handle  core1_0.Semaphore
	counter core1_2.Semaphore
	once    sync.Once
}

func (d *Device) CreateTimelineSemaphore(desc rhi.TimelineSemaphoreDescription) (rhi.TimelineSemaphore, error) {
	info := core1_0.SemaphoreCreateInfo{}
	info.Next = core1_2.SemaphoreTypeCreateInfo{
		SemaphoreType: core1_2.SemaphoreTypeTimeline,
		InitialValue:  desc.InitialValue,
	}
	handle, res, err := d.handle.CreateSemaphore(nil, info)
	if err != nil {
		return nil, check("CreateSemaphore", res, err)
	}
	return &TimelineSemaphore{device: d, handle: handle, counter: core1_2.PromoteSemaphore(handle)}, nil
}

func (s *TimelineSemaphore) NativeHandle() any { return s.handle }
func (s *TimelineSemaphore) owner() *Device    { return s.device }

// CurrentValue also retires submissions that signal values up to the one
// read.
func (s *TimelineSemaphore) CurrentValue() (uint64, error) {
	value, res, err := s.counter.CounterValue()
	if err != nil {
		return 0, check("GetSemaphoreCounterValue", res, err)
	}
	s.device.tracker.RetireTimeline(s, value)
	return value, nil
}

func (s *TimelineSemaphore) Wait(value uint64, timeout time.Duration) error {
	res, err := s.device.timeline.WaitSemaphores(toTimeout(timeout), core1_2.SemaphoreWaitInfo{
		Semaphores: []core1_0.Semaphore{s.handle},
		Values:     []uint64{value},
	})
	if err != nil {
		return check("WaitSemaphores", res, err)
	}
	if res == core1_0.VKTimeout {
		return statusError("WaitSemaphores", res)
	}
	s.device.tracker.RetireTimeline(s, value)
	return nil
}

// Signal sets the counter from the host. The value must exceed the
// current one.
func (s *TimelineSemaphore) Signal(value uint64) error {
	current, res, err := s.counter.CounterValue()
	if err != nil {
		return check("GetSemaphoreCounterValue", res, err)
	}
	if value <= current {
		return rhi.InvalidArgumentf("SignalSemaphore: value %d does not exceed current value %d", value, current)
	}

	res, err = s.device.timeline.SignalSemaphore(core1_2.SemaphoreSignalInfo{
		Semaphore: s.handle,
		Value:     value,
	})
	if err != nil {
		return check("SignalSemaphore", res, err)
	}
	return nil
}

func (s *TimelineSemaphore) Destroy() {
	s.once.Do(func() { s.handle.Destroy(nil) })
}
