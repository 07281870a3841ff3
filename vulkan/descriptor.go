package vulkan

import (
	"sync"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/rhi"
)

type DescriptorSetLayout struct {
	device *Device
	handle core1_0.DescriptorSetLayout
	once   sync.Once
}

func (l *DescriptorSetLayout) NativeHandle() any { return l.handle }
func (l *DescriptorSetLayout) owner() *Device    { return l.device }

func (l *DescriptorSetLayout) Destroy() {
	l.once.Do(func() { l.handle.Destroy(nil) })
}

// DescriptorPool remembers its live sets so Reset and Free can reject
// stale handles.
type DescriptorPool struct {
	device   *Device
	handle   core1_0.DescriptorPool
	behavior rhi.DescriptorPoolBehavior

	mu   sync.Mutex
	sets map[*DescriptorSet]struct{}
	once sync.Once
}

func (p *DescriptorPool) NativeHandle() any { return p.handle }
func (p *DescriptorPool) owner() *Device    { return p.device }

func (p *DescriptorPool) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.handle.Reset(0)
	if err != nil {
		return check("ResetDescriptorPool", res, err)
	}
	for set := range p.sets {
		set.freed = true
	}
	p.sets = make(map[*DescriptorSet]struct{})
	return nil
}

func (p *DescriptorPool) Destroy() {
	p.once.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for set := range p.sets {
			set.freed = true
		}
		p.sets = nil
		p.handle.Destroy(nil)
	})
}

type DescriptorSet struct {
	pool   *DescriptorPool
	layout *DescriptorSetLayout
	handle core1_0.DescriptorSet
	freed  bool
}

func (s *DescriptorSet) NativeHandle() any               { return s.handle }
func (s *DescriptorSet) Layout() rhi.DescriptorSetLayout { return s.layout }
func (s *DescriptorSet) owner() *Device                  { return s.pool.device }

func (d *Device) CreateDescriptorSetLayout(desc rhi.DescriptorSetLayoutDescription) (rhi.DescriptorSetLayout, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	var bindings []core1_0.DescriptorSetLayoutBinding
	for _, b := range desc.Bindings {
		bindings = append(bindings, core1_0.DescriptorSetLayoutBinding{
			Binding:         int(b.Binding),
			DescriptorType:  descriptorTypes[b.Type],
			DescriptorCount: int(b.Count),
			StageFlags:      toShaderStages(b.Stages),
		})
	}

	handle, res, err := d.handle.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: bindings,
	})
	if err != nil {
		return nil, check("CreateDescriptorSetLayout", res, err)
	}
	return &DescriptorSetLayout{device: d, handle: handle}, nil
}

func (d *Device) CreateDescriptorPool(desc rhi.DescriptorPoolDescription) (rhi.DescriptorPool, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	var sizes []core1_0.DescriptorPoolSize
	for _, size := range desc.PoolSizes {
		sizes = append(sizes, core1_0.DescriptorPoolSize{
			Type:            descriptorTypes[size.Type],
			DescriptorCount: int(size.Count),
		})
	}

	var flags core1_0.DescriptorPoolCreateFlags
	if desc.Behavior&rhi.DescriptorPoolFreeIndividualSets != 0 {
		flags |= core1_0.DescriptorPoolCreateFreeDescriptorSet
	}

	handle, res, err := d.handle.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		Flags:     flags,
		MaxSets:   int(desc.MaxSets),
		PoolSizes: sizes,
	})
	if err != nil {
		return nil, check("CreateDescriptorPool", res, err)
	}
	return &DescriptorPool{
		device:   d,
		handle:   handle,
		behavior: desc.Behavior,
		sets:     make(map[*DescriptorSet]struct{}),
	}, nil
}

func (d *Device) AllocateDescriptorSet(pool rhi.DescriptorPool, layout rhi.DescriptorSetLayout) (rhi.DescriptorSet, error) {
	sets, err := d.AllocateDescriptorSets(pool, []rhi.DescriptorSetLayout{layout})
	if err != nil {
		return nil, err
	}
	return sets[0], nil
}

// AllocateDescriptorSets fails with ErrOutOfPoolMemory when the pool is
// exhausted or fragmented.
func (d *Device) AllocateDescriptorSets(pool rhi.DescriptorPool, layouts []rhi.DescriptorSetLayout) ([]rhi.DescriptorSet, error) {
	const op = "AllocateDescriptorSets"
	p, err := cast[*DescriptorPool](d, op, "pool", pool)
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return nil, rhi.InvalidArgumentf("%s: no layouts given", op)
	}

	kept := make([]*DescriptorSetLayout, len(layouts))
	handles := make([]core1_0.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		layout, err := cast[*DescriptorSetLayout](d, op, "layout", l)
		if err != nil {
			return nil, err
		}
		kept[i] = layout
		handles[i] = layout.handle
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sets == nil {
		return nil, rhi.InvalidStatef("%s: pool was destroyed", op)
	}

	native, res, err := d.handle.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: p.handle,
		SetLayouts:     handles,
	})
	if err != nil {
		return nil, check(op, res, err)
	}

	sets := make([]rhi.DescriptorSet, len(native))
	for i, handle := range native {
		set := &DescriptorSet{pool: p, layout: kept[i], handle: handle}
		p.sets[set] = struct{}{}
		sets[i] = set
	}
	return sets, nil
}

func (d *Device) FreeDescriptorSets(pool rhi.DescriptorPool, sets []rhi.DescriptorSet) error {
	const op = "FreeDescriptorSets"
	p, err := cast[*DescriptorPool](d, op, "pool", pool)
	if err != nil {
		return err
	}
	if p.behavior&rhi.DescriptorPoolFreeIndividualSets == 0 {
		return rhi.InvalidStatef("%s: pool was not created with DescriptorPoolFreeIndividualSets", op)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	freed := make([]*DescriptorSet, 0, len(sets))
	handles := make([]core1_0.DescriptorSet, 0, len(sets))
	for i, s := range sets {
		set, ok := s.(*DescriptorSet)
		if !ok || set.pool != p {
			return rhi.InvalidArgumentf("%s: set %d was not allocated from this pool", op, i)
		}
		if _, live := p.sets[set]; !live {
			return rhi.InvalidStatef("%s: set %d was already freed", op, i)
		}
		freed = append(freed, set)
		handles = append(handles, set.handle)
	}
	if len(handles) == 0 {
		return nil
	}

	res, err := d.handle.FreeDescriptorSets(handles)
	if err != nil {
		return check(op, res, err)
	}
	for _, set := range freed {
		set.freed = true
		delete(p.sets, set)
	}
	return nil
}

func (d *Device) descriptorSet(op string, s rhi.DescriptorSet) (*DescriptorSet, error) {
	set, err := cast[*DescriptorSet](d, op, "descriptor set", s)
	if err != nil {
		return nil, err
	}
	set.pool.mu.Lock()
	freed := set.freed
	set.pool.mu.Unlock()
	if freed {
		return nil, rhi.InvalidStatef("%s: descriptor set was freed", op)
	}
	return set, nil
}

func (d *Device) UpdateDescriptorSets(writes []rhi.DescriptorWrite, copies []rhi.DescriptorCopy) error {
	const op = "UpdateDescriptorSets"

	var nativeWrites []core1_0.WriteDescriptorSet
	for _, w := range writes {
		if err := w.Validate(); err != nil {
			return err
		}
		write, err := d.descriptorWrite(op, w)
		if err != nil {
			return err
		}
		nativeWrites = append(nativeWrites, write)
	}

	var nativeCopies []core1_0.CopyDescriptorSet
	for _, c := range copies {
		if err := c.Validate(); err != nil {
			return err
		}
		src, err := d.descriptorSet(op, c.SrcSet)
		if err != nil {
			return err
		}
		dst, err := d.descriptorSet(op, c.DstSet)
		if err != nil {
			return err
		}
		nativeCopies = append(nativeCopies, core1_0.CopyDescriptorSet{
			SrcSet:          src.handle,
			SrcBinding:      int(c.SrcBinding),
			SrcArrayElement: int(c.SrcArrayElement),
			DstSet:          dst.handle,
			DstBinding:      int(c.DstBinding),
			DstArrayElement: int(c.DstArrayElement),
			DescriptorCount: int(c.Count),
		})
	}

	if len(nativeWrites) == 0 && len(nativeCopies) == 0 {
		return nil
	}
	if err := d.handle.UpdateDescriptorSets(nativeWrites, nativeCopies); err != nil {
		return check(op, 0, err)
	}
	return nil
}

func (d *Device) descriptorWrite(op string, w rhi.DescriptorWrite) (core1_0.WriteDescriptorSet, error) {
	set, err := d.descriptorSet(op, w.Set)
	if err != nil {
		return core1_0.WriteDescriptorSet{}, err
	}
	write := core1_0.WriteDescriptorSet{
		DstSet:          set.handle,
		DstBinding:      int(w.Binding),
		DstArrayElement: int(w.ArrayElement),
		DescriptorType:  descriptorTypes[w.Type],
	}

	for _, info := range w.Images {
		image := core1_0.DescriptorImageInfo{ImageLayout: toLayout(info.Layout)}
		if info.View != nil {
			view, err := cast[*ImageView](d, op, "image view", info.View)
			if err != nil {
				return write, err
			}
			image.ImageView = view.handle
		}
		if info.Sampler != nil {
			sampler, err := cast[*Sampler](d, op, "sampler", info.Sampler)
			if err != nil {
				return write, err
			}
			image.Sampler = sampler.handle
		}
		write.ImageInfo = append(write.ImageInfo, image)
	}

	for _, info := range w.Buffers {
		buffer, err := d.buffer(op, info.Buffer)
		if err != nil {
			return write, err
		}
		length := info.Range
		if length == rhi.WholeSize {
			length = buffer.size - info.Offset
		}
		write.BufferInfo = append(write.BufferInfo, core1_0.DescriptorBufferInfo{
			Buffer: buffer.handle,
			Offset: int(info.Offset),
			Range:  int(length),
		})
	}

	for _, v := range w.TexelBuffers {
		view, err := cast[*BufferView](d, op, "buffer view", v)
		if err != nil {
			return write, err
		}
		write.TexelBufferView = append(write.TexelBufferView, view.handle)
	}
	return write, nil
}
