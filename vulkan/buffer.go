package vulkan

import (
	"sync"
	"unsafe"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

type Buffer struct {
	device     *Device
	handle     core1_0.Buffer
	size       uint64
	usage      rhi.BufferUsage
	allocation *Allocation
	offset     uint64
	aliased    bool
	once       sync.Once
}

func newBuffer(device *Device, handle core1_0.Buffer, desc rhi.BufferDescription, allocation *Allocation, offset uint64, aliased bool) *Buffer {
	rhi.Logger().Debug("buffer created", slog.Uint64("size", desc.Size), slog.Bool("aliased", aliased))
	return &Buffer{
		device:     device,
		handle:     handle,
		size:       desc.Size,
		usage:      desc.Usage,
		allocation: allocation,
		offset:     offset,
		aliased:    aliased,
	}
}

func (d *Device) createNativeBuffer(desc rhi.BufferDescription) (core1_0.Buffer, error) {
	handle, res, err := d.handle.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:               int(desc.Size),
		Usage:              translateFlags(desc.Usage, bufferUsages),
		SharingMode:        sharingModes[desc.SharingMode],
		QueueFamilyIndices: desc.QueueFamilies,
	})
	if err != nil {
		return nil, check("CreateBuffer", res, err)
	}
	return handle, nil
}

func (b *Buffer) Size() uint64               { return b.size }
func (b *Buffer) Usage() rhi.BufferUsage     { return b.usage }
func (b *Buffer) Allocation() rhi.Allocation { return b.allocation }
func (b *Buffer) Aliased() bool              { return b.aliased }
func (b *Buffer) NativeHandle() any          { return b.handle }
func (b *Buffer) owner() *Device             { return b.device }

func (b *Buffer) Map() (unsafe.Pointer, error) {
	ptr, err := b.allocation.Map()
	if err != nil {
		return nil, err
	}
	return unsafe.Add(ptr, int(b.offset)), nil
}

func (b *Buffer) Unmap() {
	b.allocation.Unmap()
}

// Destroy frees the buffer's allocation unless the buffer is aliased.
func (b *Buffer) Destroy() {
	b.once.Do(func() {
		b.handle.Destroy(nil)
		if !b.aliased {
			b.allocation.release("buffer")
		}
	})
}

type BufferView struct {
	buffer *Buffer
	handle core1_0.BufferView
	format rhi.Format
	once   sync.Once
}

func (v *BufferView) Buffer() rhi.Buffer { return v.buffer }
func (v *BufferView) Format() rhi.Format { return v.format }
func (v *BufferView) NativeHandle() any  { return v.handle }
func (v *BufferView) owner() *Device     { return v.buffer.device }

func (v *BufferView) Destroy() {
	v.once.Do(func() { v.handle.Destroy(nil) })
}
