package vulkan

import (
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_2"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/rhi"
	"github.com/vkngwrapper/rhi/internal/inflight"
)

// Queue is owned by its Device.
type Queue struct {
	device *Device
	family int
	index  int
	handle core1_0.Queue
}

func (q *Queue) Family() int       { return q.family }
func (q *Queue) Index() int        { return q.index }
func (q *Queue) NativeHandle() any { return q.handle }

// batch is one resolved SubmitDescription.
type batch struct {
	info    core1_0.SubmitInfo
	buffers []*CommandBuffer
	signals []inflight.Point
}

func (q *Queue) resolveBatch(desc rhi.SubmitDescription, seen map[*CommandBuffer]bool) (batch, error) {
	const op = "Submit"
	d := q.device
	var b batch
	var waitValues, signalValues []uint64
	timeline := len(desc.WaitTimeline) > 0 || len(desc.SignalTimeline) > 0

	for _, w := range desc.WaitBinary {
		sem, err := cast[*BinarySemaphore](d, op, "wait semaphore", w.Semaphore)
		if err != nil {
			return b, err
		}
		b.info.WaitSemaphores = append(b.info.WaitSemaphores, sem.handle)
		b.info.WaitDstStageMask = append(b.info.WaitDstStageMask, toStages(w.Stage))
		waitValues = append(waitValues, 0)
	}
	for _, w := range desc.WaitTimeline {
		sem, err := cast[*TimelineSemaphore](d, op, "wait semaphore", w.Semaphore)
		if err != nil {
			return b, err
		}
		b.info.WaitSemaphores = append(b.info.WaitSemaphores, sem.handle)
		b.info.WaitDstStageMask = append(b.info.WaitDstStageMask, toStages(w.Stage))
		waitValues = append(waitValues, w.Value)
	}

	for i, c := range desc.CommandBuffers {
		cb, err := cast[*CommandBuffer](d, op, "command buffer", c)
		if err != nil {
			return b, err
		}
		if cb.pool.family != q.family {
			return b, rhi.InvalidArgumentf("%s: command buffer %d belongs to queue family %d, queue is family %d",
				op, i, cb.pool.family, q.family)
		}
		if err := cb.state.CheckSubmit(); err != nil {
			return b, err
		}
		if seen[cb] && cb.state.Usage()&rhi.UsageMultipleSubmit == 0 {
			return b, rhi.InvalidStatef("%s: command buffer %d submitted twice without UsageMultipleSubmit", op, i)
		}
		seen[cb] = true
		b.info.CommandBuffers = append(b.info.CommandBuffers, cb.handle)
		b.buffers = append(b.buffers, cb)
	}

	// Signal stages do not exist before synchronization2; signals happen
	// when the batch completes.
	for _, s := range desc.SignalBinary {
		sem, err := cast[*BinarySemaphore](d, op, "signal semaphore", s.Semaphore)
		if err != nil {
			return b, err
		}
		b.info.SignalSemaphores = append(b.info.SignalSemaphores, sem.handle)
		signalValues = append(signalValues, 0)
	}
	for _, s := range desc.SignalTimeline {
		sem, err := cast[*TimelineSemaphore](d, op, "signal semaphore", s.Semaphore)
		if err != nil {
			return b, err
		}
		b.info.SignalSemaphores = append(b.info.SignalSemaphores, sem.handle)
		signalValues = append(signalValues, s.Value)
		b.signals = append(b.signals, inflight.Point{Semaphore: sem, Value: s.Value})
	}

	if timeline {
		b.info.Next = core1_2.TimelineSemaphoreSubmitInfo{
			WaitSemaphoreValues:   waitValues,
			SignalSemaphoreValues: signalValues,
		}
	}
	return b, nil
}

// Submit validates every batch before anything reaches the driver. The
// command buffers go Pending until the fence, a timeline value they signal,
// or a WaitIdle shows they finished.
func (q *Queue) Submit(submits []rhi.SubmitDescription, fence rhi.Fence) error {
	const op = "Submit"
	d := q.device

	var fenceHandle core1_0.Fence
	var f *Fence
	if fence != nil {
		var err error
		f, err = cast[*Fence](d, op, "fence", fence)
		if err != nil {
			return err
		}
		fenceHandle = f.handle
	}

	seen := make(map[*CommandBuffer]bool)
	batches := make([]batch, 0, len(submits))
	infos := make([]core1_0.SubmitInfo, 0, len(submits))
	for _, desc := range submits {
		if err := desc.Validate(); err != nil {
			return err
		}
		b, err := q.resolveBatch(desc, seen)
		if err != nil {
			return err
		}
		batches = append(batches, b)
		infos = append(infos, b.info)
	}

	res, err := q.handle.Submit(fenceHandle, infos)
	if err != nil {
		return check("QueueSubmit", res, err)
	}

	for _, b := range batches {
		submission := inflight.Submission{Queue: q, Signals: b.signals}
		if f != nil {
			submission.Fence = f
		}
		for _, cb := range b.buffers {
			submission.Buffers = append(submission.Buffers, inflight.Buffer{Retirer: cb, Generation: cb.state.Submitted()})
			for _, secondary := range cb.executed {
				submission.Buffers = append(submission.Buffers, inflight.Buffer{
					Retirer:    secondary,
					Generation: secondary.state.Submitted(),
				})
			}
		}
		d.tracker.Add(submission)
	}
	if len(batches) == 0 && f != nil {
		d.tracker.Add(inflight.Submission{Queue: q, Fence: f})
	}
	return nil
}

// Present reports the same code for every target: the swapchain extension
// only surfaces the overall result.
func (q *Queue) Present(desc rhi.PresentDescription) (rhi.PresentResult, error) {
	const op = "QueuePresent"
	if err := desc.Validate(); err != nil {
		return rhi.PresentResult{}, err
	}
	d := q.device
	if d.swapchainExt == nil {
		return rhi.PresentResult{}, rhi.NotImplementedf("%s: device has no swapchain support", op)
	}

	info := khr_swapchain.PresentInfo{}
	for _, s := range desc.WaitSemaphores {
		sem, err := cast[*BinarySemaphore](d, op, "wait semaphore", s)
		if err != nil {
			return rhi.PresentResult{}, err
		}
		info.WaitSemaphores = append(info.WaitSemaphores, sem.handle)
	}
	for _, target := range desc.Targets {
		swapchain, err := cast[*Swapchain](d, op, "swapchain", target.Swapchain)
		if err != nil {
			return rhi.PresentResult{}, err
		}
		info.Swapchains = append(info.Swapchains, swapchain.handle)
		info.ImageIndices = append(info.ImageIndices, int(target.ImageIndex))
	}

	res, err := d.swapchainExt.QueuePresent(q.handle, info)
	result := rhi.PresentResult{Overall: resultCode(res)}
	for range desc.Targets {
		result.PerSwapchain = append(result.PerSwapchain, result.Overall)
	}
	return result, presentationError(op, res, err)
}

func (q *Queue) WaitIdle() error {
	res, err := q.handle.WaitIdle()
	if err != nil {
		return check("QueueWaitIdle", res, err)
	}
	q.device.tracker.RetireQueue(q)
	return nil
}
