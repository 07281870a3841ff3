package vulkan

import (
	"sync"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

// CommandPool tracks the buffers it allocated. Buffers freed from a pool
// without CommandPoolResetCommandBuffer stay allocated natively until the
// next Reset or Destroy.
type CommandPool struct {
	device   *Device
	handle   core1_0.CommandPool
	family   int
	behavior rhi.CommandPoolBehavior

	mu        sync.Mutex
	buffers   map[*CommandBuffer]struct{}
	deferred  []*CommandBuffer
	destroyed bool
	once      sync.Once
}

func (d *Device) CreateCommandPool(desc rhi.CommandPoolDescription) (rhi.CommandPool, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.QueueFamily >= d.physical.QueueFamilyCount() {
		return nil, rhi.InvalidArgumentf("CreateCommandPool: queue family %d out of range [0, %d)",
			desc.QueueFamily, d.physical.QueueFamilyCount())
	}

	var flags core1_0.CommandPoolCreateFlags
	if desc.Behavior&rhi.CommandPoolTransient != 0 {
		flags |= core1_0.CommandPoolCreateTransient
	}
	if desc.Behavior&rhi.CommandPoolResetCommandBuffer != 0 {
		flags |= core1_0.CommandPoolCreateResetBuffer
	}

	handle, res, err := d.handle.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            flags,
		QueueFamilyIndex: desc.QueueFamily,
	})
	if err != nil {
		return nil, check("CreateCommandPool", res, err)
	}
	return &CommandPool{
		device:   d,
		handle:   handle,
		family:   desc.QueueFamily,
		behavior: desc.Behavior,
		buffers:  make(map[*CommandBuffer]struct{}),
	}, nil
}

func (p *CommandPool) QueueFamily() int                  { return p.family }
func (p *CommandPool) Behavior() rhi.CommandPoolBehavior { return p.behavior }
func (p *CommandPool) NativeHandle() any                 { return p.handle }

func (p *CommandPool) Allocate(level rhi.CommandBufferLevel) (rhi.CommandBuffer, error) {
	buffers, err := p.AllocateN(1, level)
	if err != nil {
		return nil, err
	}
	return buffers[0], nil
}

func (p *CommandPool) AllocateN(count int, level rhi.CommandBufferLevel) ([]rhi.CommandBuffer, error) {
	if count <= 0 {
		return nil, rhi.InvalidArgumentf("AllocateCommandBuffers: count %d must be positive", count)
	}
	nativeLevel := core1_0.CommandBufferLevelPrimary
	switch level {
	case rhi.CommandBufferPrimary:
	case rhi.CommandBufferSecondary:
		nativeLevel = core1_0.CommandBufferLevelSecondary
	default:
		return nil, rhi.InvalidArgumentf("AllocateCommandBuffers: unknown level %d", level)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return nil, rhi.InvalidStatef("AllocateCommandBuffers: pool was destroyed")
	}

	handles, res, err := p.device.handle.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        p.handle,
		Level:              nativeLevel,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, check("AllocateCommandBuffers", res, err)
	}

	buffers := make([]rhi.CommandBuffer, len(handles))
	for i, handle := range handles {
		cb := newCommandBuffer(p, handle, level)
		p.buffers[cb] = struct{}{}
		buffers[i] = cb
	}
	return buffers, nil
}

func (p *CommandPool) ownedBuffer(op string, i int, b rhi.CommandBuffer) (*CommandBuffer, error) {
	cb, ok := b.(*CommandBuffer)
	if !ok || cb.pool != p {
		return nil, rhi.InvalidArgumentf("%s: command buffer %d was not allocated from this pool", op, i)
	}
	if _, live := p.buffers[cb]; !live {
		return nil, rhi.InvalidStatef("%s: command buffer %d was already freed", op, i)
	}
	return cb, nil
}

// Free fails without freeing anything when one of the buffers is still
// pending.
func (p *CommandPool) Free(buffers ...rhi.CommandBuffer) error {
	const op = "FreeCommandBuffers"
	p.mu.Lock()
	defer p.mu.Unlock()

	freed := make([]*CommandBuffer, 0, len(buffers))
	for i, b := range buffers {
		cb, err := p.ownedBuffer(op, i, b)
		if err != nil {
			return err
		}
		if cb.State() == rhi.StatePending {
			return rhi.InvalidStatef("%s: command buffer %d is still pending", op, i)
		}
		freed = append(freed, cb)
	}

	for _, cb := range freed {
		delete(p.buffers, cb)
		cb.state.Invalidate()
	}
	if p.behavior&rhi.CommandPoolResetCommandBuffer == 0 {
		p.deferred = append(p.deferred, freed...)
		return nil
	}
	p.release(freed)
	return nil
}

func (p *CommandPool) release(buffers []*CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	handles := make([]core1_0.CommandBuffer, len(buffers))
	for i, cb := range buffers {
		handles[i] = cb.handle
		cb.released = true
	}
	p.device.handle.FreeCommandBuffers(handles)
}

// Reset returns every live buffer to Initial and releases the ones freed
// since the last reset.
func (p *CommandPool) Reset(releaseResources bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return rhi.InvalidStatef("ResetCommandPool: pool was destroyed")
	}
	for cb := range p.buffers {
		if cb.State() == rhi.StatePending {
			return rhi.InvalidStatef("ResetCommandPool: a command buffer is still pending")
		}
	}

	var flags core1_0.CommandPoolResetFlags
	if releaseResources {
		flags |= core1_0.CommandPoolResetReleaseResources
	}
	res, err := p.handle.Reset(flags)
	if err != nil {
		return check("ResetCommandPool", res, err)
	}

	p.release(p.deferred)
	p.deferred = nil
	for cb := range p.buffers {
		cb.resetState()
	}
	return nil
}

// Destroy frees every buffer of the pool along with it.
func (p *CommandPool) Destroy() {
	p.once.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		pending := 0
		for cb := range p.buffers {
			if cb.State() == rhi.StatePending {
				pending++
			}
			cb.state.Invalidate()
			cb.released = true
		}
		if pending > 0 {
			rhi.Logger().Warn("command pool destroyed with pending buffers", slog.Int("pending", pending))
		}
		for _, cb := range p.deferred {
			cb.released = true
		}
		p.buffers = nil
		p.deferred = nil
		p.destroyed = true
		p.handle.Destroy(nil)
	})
}
