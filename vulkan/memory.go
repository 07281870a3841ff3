package vulkan

import (
	"math"
	"math/bits"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/rhi"
	"github.com/vkngwrapper/rhi/internal/suballoc"
	"golang.org/x/exp/slog"
)

const (
	defaultBlockSize uint64 = 256 << 20
	smallHeapSize    uint64 = 1 << 30
)

// resourceKind separates linear and optimal resources into different
// default blocks so bufferImageGranularity never has to be honoured
// between neighbours.
type resourceKind int

const (
	kindUnknown resourceKind = iota
	kindLinear
	kindOptimal
)

type poolKey struct {
	memoryType int
	kind       resourceKind
}

type memoryType struct {
	flags    core1_0.MemoryPropertyFlags
	heapSize uint64
}

// memoryPreferences turns a usage hint into required, preferred and
// unwanted property flags. deviceAccess is false when the GPU only uses the
// memory as a transfer source or destination.
func memoryPreferences(usage rhi.MemoryUsage, access rhi.HostAccess, deviceAccess bool) (required, preferred, notPreferred core1_0.MemoryPropertyFlags) {
	preferHost := usage == rhi.MemoryUsagePreferCPU
	preferDevice := usage == rhi.MemoryUsagePreferGPU

	switch {
	case access&rhi.HostAccessRandom != 0:
		required |= core1_0.MemoryPropertyHostVisible
		preferred |= core1_0.MemoryPropertyHostCached
	case access&rhi.HostAccessSequentialWrite != 0:
		required |= core1_0.MemoryPropertyHostVisible
		notPreferred |= core1_0.MemoryPropertyHostCached
		switch {
		case deviceAccess && preferHost:
			notPreferred |= core1_0.MemoryPropertyDeviceLocal
		case deviceAccess || preferDevice:
			preferred |= core1_0.MemoryPropertyDeviceLocal
		default:
			notPreferred |= core1_0.MemoryPropertyDeviceLocal
		}
	default:
		if preferHost {
			notPreferred |= core1_0.MemoryPropertyDeviceLocal
		} else {
			preferred |= core1_0.MemoryPropertyDeviceLocal
		}
	}
	return required, preferred, notPreferred
}

// findMemoryType returns the allowed type with every required flag and the
// fewest missing preferred or present unwanted flags.
func findMemoryType(types []core1_0.MemoryPropertyFlags, allowed uint32, required, preferred, notPreferred core1_0.MemoryPropertyFlags) (int, bool) {
	best := -1
	minCost := math.MaxInt

	for i, flags := range types {
		if allowed&(1<<uint(i)) == 0 {
			continue
		}
		if flags&required != required {
			continue
		}

		cost := bits.OnesCount32(uint32(preferred&^flags)) + bits.OnesCount32(uint32(notPreferred&flags))
		if cost == 0 {
			return i, true
		}
		if cost < minCost {
			best = i
			minCost = cost
		}
	}
	return best, best >= 0
}

// preferredBlockSize keeps blocks at an eighth of heaps of a gigabyte or
// less.
func preferredBlockSize(heapSize uint64) uint64 {
	if heapSize > 0 && heapSize <= smallHeapSize {
		return suballoc.AlignUp(heapSize/8, 32)
	}
	return defaultBlockSize
}

func alignDown(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return v - v%align
}

// flushRange expands [offset, offset+size) of an allocation to the
// non-coherent atom size, clamped to the block.
func flushRange(offset, size, allocOffset, allocSize, blockSize, atom uint64) (start, length uint64, err error) {
	if offset > allocSize {
		return 0, 0, rhi.InvalidArgumentf("offset %d past allocation of %d bytes", offset, allocSize)
	}
	if size == rhi.WholeSize {
		size = allocSize - offset
	}
	if offset+size > allocSize {
		return 0, 0, rhi.InvalidArgumentf("range [%d, %d) past allocation of %d bytes", offset, offset+size, allocSize)
	}

	start = alignDown(allocOffset+offset, atom)
	end := suballoc.AlignUp(allocOffset+offset+size, atom)
	if end > blockSize {
		end = blockSize
	}
	return start, end - start, nil
}

// Allocator sub-allocates device memory from per-memory-type blocks.
// All methods are safe for concurrent use.
type Allocator struct {
	device      *Device
	types       []memoryType
	atomSize    uint64
	granularity uint64

	mu        sync.Mutex
	defaults  map[poolKey]*Pool
	pools     map[*Pool]struct{}
	dedicated map[*memoryBlock]struct{}
}

func newAllocator(device *Device) *Allocator {
	props := device.physical.handle.MemoryProperties()
	types := make([]memoryType, len(props.MemoryTypes))
	for i, t := range props.MemoryTypes {
		types[i] = memoryType{
			flags:    t.PropertyFlags,
			heapSize: uint64(props.MemoryHeaps[t.HeapIndex].Size),
		}
	}

	limits := device.physical.properties.Limits
	return &Allocator{
		device:      device,
		types:       types,
		atomSize:    uint64(limits.NonCoherentAtomSize),
		granularity: uint64(limits.BufferImageGranularity),
		defaults:    make(map[poolKey]*Pool),
		pools:       make(map[*Pool]struct{}),
		dedicated:   make(map[*memoryBlock]struct{}),
	}
}

func (a *Allocator) typeFlags() []core1_0.MemoryPropertyFlags {
	flags := make([]core1_0.MemoryPropertyFlags, len(a.types))
	for i, t := range a.types {
		flags[i] = t.flags
	}
	return flags
}

func (a *Allocator) alignment(align uint64, kind resourceKind, min uint64) uint64 {
	if align < min {
		align = min
	}
	if kind == kindUnknown && a.granularity > align {
		align = a.granularity
	}
	return align
}

func (a *Allocator) chooseType(op string, reqs rhi.MemoryRequirements, usage rhi.MemoryUsage, access rhi.HostAccess, deviceAccess bool) (int, error) {
	required, preferred, notPreferred := memoryPreferences(usage, access, deviceAccess)
	index, ok := findMemoryType(a.typeFlags(), reqs.MemoryTypeBits, required, preferred, notPreferred)
	if !ok {
		return -1, errors.Wrapf(rhi.ErrBackendFailure, "%s: no memory type in %#x satisfies usage %d access %d",
			op, reqs.MemoryTypeBits, usage, access)
	}
	return index, nil
}

func (a *Allocator) CreatePool(desc rhi.PoolDescription) (rhi.Pool, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	index, err := a.chooseType("CreatePool", rhi.MemoryRequirements{MemoryTypeBits: math.MaxUint32},
		desc.Usage, desc.Access, true)
	if err != nil {
		return nil, err
	}

	blockSize := desc.BlockSize
	if blockSize == 0 {
		blockSize = preferredBlockSize(a.types[index].heapSize)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pool := &Pool{
		allocator:  a,
		desc:       desc,
		memoryType: index,
		blockSize:  blockSize,
		custom:     true,
	}
	for i := 0; i < desc.MinBlockCount; i++ {
		if _, err := pool.addBlock(); err != nil {
			pool.destroyLocked()
			return nil, err
		}
	}
	a.pools[pool] = struct{}{}

	rhi.Logger().Debug("memory pool created", slog.Int("memoryType", index),
		slog.Uint64("blockSize", blockSize), slog.Int("minBlocks", desc.MinBlockCount))
	return pool, nil
}

func (a *Allocator) Allocate(reqs rhi.MemoryRequirements, desc rhi.AllocationDescription) (rhi.Allocation, error) {
	if err := reqs.Validate(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return a.allocate("Allocate", reqs, desc, kindUnknown, true)
}

func (a *Allocator) AllocateForBuffer(buffer rhi.Buffer, desc rhi.AllocationDescription) (rhi.Allocation, error) {
	b, err := a.device.buffer("AllocateForBuffer", buffer)
	if err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return a.allocate("AllocateForBuffer", bufferRequirements(b.handle), desc, kindLinear, deviceAccess(uint32(b.usage), transferBufferUsage))
}

func (a *Allocator) AllocateForImage(image rhi.Image, desc rhi.AllocationDescription) (rhi.Allocation, error) {
	img, err := a.device.image("AllocateForImage", image)
	if err != nil {
		return nil, err
	}
	if !img.owned {
		return nil, rhi.InvalidArgumentf("AllocateForImage: swapchain images have no memory requirements")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return a.allocate("AllocateForImage", imageRequirements(img.handle), desc, img.kind(), deviceAccess(uint32(img.desc.Usage), transferImageUsage))
}

const (
	transferBufferUsage = uint32(rhi.BufferTransferSrc | rhi.BufferTransferDst)
	transferImageUsage  = uint32(rhi.ImageTransferSrc | rhi.ImageTransferDst)
)

// deviceAccess reports whether usage does anything beyond transfers.
func deviceAccess(usage, transfer uint32) bool {
	return usage&^transfer != 0
}

func bufferRequirements(buffer core1_0.Buffer) rhi.MemoryRequirements {
	reqs := buffer.MemoryRequirements()
	return rhi.MemoryRequirements{
		Size:           uint64(reqs.Size),
		Alignment:      uint64(reqs.Alignment),
		MemoryTypeBits: reqs.MemoryTypeBits,
	}
}

func imageRequirements(image core1_0.Image) rhi.MemoryRequirements {
	reqs := image.MemoryRequirements()
	return rhi.MemoryRequirements{
		Size:           uint64(reqs.Size),
		Alignment:      uint64(reqs.Alignment),
		MemoryTypeBits: reqs.MemoryTypeBits,
	}
}

func (a *Allocator) allocate(op string, reqs rhi.MemoryRequirements, desc rhi.AllocationDescription, kind resourceKind, device bool) (*Allocation, error) {
	access := desc.Access
	if desc.PersistentlyMapped && access == rhi.HostAccessNone {
		access = rhi.HostAccessSequentialWrite
	}

	var pool *Pool
	index := -1
	if desc.Pool != nil {
		p, ok := desc.Pool.(*Pool)
		if !ok || p.allocator != a {
			return nil, rhi.InvalidArgumentf("%s: pool belongs to another allocator", op)
		}
		if reqs.MemoryTypeBits&(1<<uint(p.memoryType)) == 0 {
			return nil, rhi.InvalidArgumentf("%s: pool memory type %d not in %#x", op, p.memoryType, reqs.MemoryTypeBits)
		}
		pool = p
	} else {
		var err error
		index, err = a.chooseType(op, reqs, desc.Usage, access, device)
		if err != nil {
			return nil, err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var alloc *Allocation
	var err error
	switch {
	case pool != nil:
		if pool.destroyed {
			return nil, rhi.InvalidStatef("%s: pool was destroyed", op)
		}
		alloc, err = pool.allocate(reqs.Size, a.alignment(reqs.Alignment, kindUnknown, pool.desc.MinAllocationAlignment))
	case desc.Dedicated || reqs.Size > preferredBlockSize(a.types[index].heapSize)/2:
		alloc, err = a.allocateDedicated(index, reqs.Size)
	default:
		alloc, err = a.defaultPool(index, kind).allocate(reqs.Size, a.alignment(reqs.Alignment, kind, 0))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	if desc.PersistentlyMapped {
		if _, err := alloc.mapLocked(); err != nil {
			alloc.freeLocked()
			return nil, errors.Wrapf(err, "%s", op)
		}
	}
	return alloc, nil
}

func (a *Allocator) defaultPool(index int, kind resourceKind) *Pool {
	key := poolKey{index, kind}
	pool, ok := a.defaults[key]
	if !ok {
		pool = &Pool{
			allocator:  a,
			memoryType: index,
			blockSize:  preferredBlockSize(a.types[index].heapSize),
		}
		a.defaults[key] = pool
	}
	return pool
}

func (a *Allocator) allocateDedicated(index int, size uint64) (*Allocation, error) {
	block, err := a.allocateBlock(nil, index, size, false)
	if err != nil {
		return nil, err
	}
	region, _ := block.sub.Allocate(size, 1)
	a.dedicated[block] = struct{}{}
	return &Allocation{allocator: a, block: block, region: region}, nil
}

func (a *Allocator) allocateBlock(pool *Pool, index int, size uint64, linear bool) (*memoryBlock, error) {
	memory, res, err := a.device.handle.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  int(size),
		MemoryTypeIndex: index,
	})
	if err != nil {
		rhi.Logger().Debug("memory block allocation failed", slog.Int("memoryType", index), slog.Uint64("size", size))
		return nil, check("AllocateMemory", res, err)
	}

	rhi.Logger().Debug("memory block allocated", slog.Int("memoryType", index), slog.Uint64("size", size),
		slog.Bool("dedicated", pool == nil))
	return &memoryBlock{
		pool:       pool,
		memory:     memory,
		memoryType: index,
		flags:      a.types[index].flags,
		sub:        suballoc.NewBlock(size, linear),
	}, nil
}

func (a *Allocator) CreateBuffer(desc rhi.BufferDescription, alloc rhi.AllocationDescription) (rhi.Buffer, error) {
	desc.Memory = alloc
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	handle, err := a.device.createNativeBuffer(desc)
	if err != nil {
		return nil, err
	}

	allocation, err := a.allocate("CreateBuffer", bufferRequirements(handle), alloc, kindLinear,
		deviceAccess(uint32(desc.Usage), transferBufferUsage))
	if err != nil {
		handle.Destroy(nil)
		return nil, err
	}

	res, err := handle.BindBufferMemory(allocation.block.memory, int(allocation.Offset()))
	if err != nil {
		handle.Destroy(nil)
		allocation.release("buffer")
		return nil, check("BindBufferMemory", res, err)
	}
	return newBuffer(a.device, handle, desc, allocation, 0, false), nil
}

func (a *Allocator) CreateImage(desc rhi.ImageDescription, alloc rhi.AllocationDescription) (rhi.Image, error) {
	desc.Memory = alloc
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	handle, err := a.device.createNativeImage(desc)
	if err != nil {
		return nil, err
	}

	allocation, err := a.allocate("CreateImage", imageRequirements(handle), alloc, imageKind(desc.Tiling),
		deviceAccess(uint32(desc.Usage), transferImageUsage))
	if err != nil {
		handle.Destroy(nil)
		return nil, err
	}

	res, err := handle.BindImageMemory(allocation.block.memory, int(allocation.Offset()))
	if err != nil {
		handle.Destroy(nil)
		allocation.release("image")
		return nil, check("BindImageMemory", res, err)
	}
	return newImage(a.device, handle, desc, allocation, 0, false), nil
}

func (a *Allocator) placement(op string, allocation rhi.Allocation, reqs rhi.MemoryRequirements, offset uint64) (*Allocation, error) {
	alloc, ok := allocation.(*Allocation)
	if !ok || alloc.allocator != a {
		return nil, rhi.InvalidArgumentf("%s: allocation belongs to another allocator", op)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if alloc.freed {
		return nil, rhi.InvalidStatef("%s: allocation was freed", op)
	}
	if reqs.MemoryTypeBits&(1<<uint(alloc.block.memoryType)) == 0 {
		return nil, rhi.InvalidArgumentf("%s: memory type %d not in %#x", op, alloc.block.memoryType, reqs.MemoryTypeBits)
	}
	if reqs.Alignment > 1 && (alloc.Offset()+offset)%reqs.Alignment != 0 {
		return nil, rhi.InvalidArgumentf("%s: offset %d is not aligned to %d", op, offset, reqs.Alignment)
	}
	if offset+reqs.Size > alloc.region.Size {
		return nil, rhi.InvalidArgumentf("%s: %d bytes at offset %d exceed allocation of %d bytes",
			op, reqs.Size, offset, alloc.region.Size)
	}
	return alloc, nil
}

func (a *Allocator) CreateAliasedBuffer(allocation rhi.Allocation, desc rhi.BufferDescription, offset uint64) (rhi.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	handle, err := a.device.createNativeBuffer(desc)
	if err != nil {
		return nil, err
	}

	alloc, err := a.placement("CreateAliasedBuffer", allocation, bufferRequirements(handle), offset)
	if err != nil {
		handle.Destroy(nil)
		return nil, err
	}

	res, err := handle.BindBufferMemory(alloc.block.memory, int(alloc.Offset()+offset))
	if err != nil {
		handle.Destroy(nil)
		return nil, check("BindBufferMemory", res, err)
	}
	return newBuffer(a.device, handle, desc, alloc, offset, true), nil
}

func (a *Allocator) CreateAliasedImage(allocation rhi.Allocation, desc rhi.ImageDescription, offset uint64) (rhi.Image, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	handle, err := a.device.createNativeImage(desc)
	if err != nil {
		return nil, err
	}

	alloc, err := a.placement("CreateAliasedImage", allocation, imageRequirements(handle), offset)
	if err != nil {
		handle.Destroy(nil)
		return nil, err
	}

	res, err := handle.BindImageMemory(alloc.block.memory, int(alloc.Offset()+offset))
	if err != nil {
		handle.Destroy(nil)
		return nil, check("BindImageMemory", res, err)
	}
	return newImage(a.device, handle, desc, alloc, offset, true), nil
}

func (a *Allocator) Stats() rhi.AllocatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	var stats rhi.AllocatorStats
	for _, pool := range a.defaults {
		pool.addStats(&stats)
	}
	for pool := range a.pools {
		pool.addStats(&stats)
	}
	for block := range a.dedicated {
		block.addStats(&stats)
	}
	return stats
}

// destroy frees every block. Allocations still alive become invalid.
func (a *Allocator) destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, pool := range a.defaults {
		pool.destroyLocked()
	}
	for pool := range a.pools {
		pool.destroyLocked()
	}
	for block := range a.dedicated {
		block.free()
	}
	a.defaults = make(map[poolKey]*Pool)
	a.pools = make(map[*Pool]struct{})
	a.dedicated = make(map[*memoryBlock]struct{})
}

// Pool is a set of equally sized blocks of one memory type. Default pools
// are created per memory type on demand; custom pools come from
// CreatePool.
type Pool struct {
	allocator  *Allocator
	desc       rhi.PoolDescription
	memoryType int
	blockSize  uint64
	custom     bool
	blocks     []*memoryBlock
	destroyed  bool
}

// keep is the number of empty blocks that survive a free.
func (p *Pool) keep() int {
	if p.desc.MinBlockCount > 1 {
		return p.desc.MinBlockCount
	}
	return 1
}

func (p *Pool) addBlock() (*memoryBlock, error) {
	if p.desc.MaxBlockCount > 0 && len(p.blocks) >= p.desc.MaxBlockCount {
		return nil, errors.Wrapf(rhi.ErrOutOfPoolMemory, "pool is limited to %d blocks", p.desc.MaxBlockCount)
	}
	block, err := p.allocator.allocateBlock(p, p.memoryType, p.blockSize, p.desc.Flags&rhi.PoolLinear != 0)
	if err != nil {
		return nil, err
	}
	p.blocks = append(p.blocks, block)
	return block, nil
}

func (p *Pool) allocate(size, align uint64) (*Allocation, error) {
	if size > p.blockSize {
		if p.custom {
			return nil, errors.Wrapf(rhi.ErrOutOfPoolMemory, "%d bytes exceed the pool block size of %d", size, p.blockSize)
		}
		return nil, rhi.InvalidArgumentf("%d bytes exceed the block size of %d", size, p.blockSize)
	}

	for _, block := range p.blocks {
		if region, ok := block.sub.Allocate(size, align); ok {
			return &Allocation{allocator: p.allocator, block: block, region: region}, nil
		}
	}

	block, err := p.addBlock()
	if err != nil {
		return nil, err
	}
	region, ok := block.sub.Allocate(size, align)
	if !ok {
		return nil, errors.Wrapf(rhi.ErrOutOfPoolMemory, "%d bytes aligned to %d do not fit a fresh block", size, align)
	}
	return &Allocation{allocator: p.allocator, block: block, region: region}, nil
}

// release drops empty blocks beyond the ones the pool keeps.
func (p *Pool) release(block *memoryBlock) {
	if !block.sub.Empty() || len(p.blocks) <= p.keep() {
		return
	}
	for i, b := range p.blocks {
		if b == block {
			p.blocks = append(p.blocks[:i], p.blocks[i+1:]...)
			break
		}
	}
	block.free()
}

func (p *Pool) addStats(stats *rhi.AllocatorStats) {
	for _, block := range p.blocks {
		block.addStats(stats)
	}
}

func (p *Pool) Stats() rhi.AllocatorStats {
	p.allocator.mu.Lock()
	defer p.allocator.mu.Unlock()

	var stats rhi.AllocatorStats
	p.addStats(&stats)
	return stats
}

// Destroy frees the pool's blocks. Allocations still alive become invalid.
func (p *Pool) Destroy() {
	p.allocator.mu.Lock()
	defer p.allocator.mu.Unlock()
	if p.destroyed {
		return
	}

	live := 0
	for _, block := range p.blocks {
		live += block.sub.Count()
	}
	if live > 0 {
		rhi.Logger().Warn("memory pool destroyed with live allocations", slog.Int("allocations", live))
	}
	p.destroyLocked()
	delete(p.allocator.pools, p)
}

func (p *Pool) destroyLocked() {
	for _, block := range p.blocks {
		block.free()
	}
	p.blocks = nil
	p.destroyed = true
}

type memoryBlock struct {
	pool       *Pool
	memory     core1_0.DeviceMemory
	memoryType int
	flags      core1_0.MemoryPropertyFlags
	sub        *suballoc.Block

	mapped   unsafe.Pointer
	mapCount int
	freed    bool
}

func (b *memoryBlock) hostVisible() bool {
	return b.flags&core1_0.MemoryPropertyHostVisible != 0
}

func (b *memoryBlock) coherent() bool {
	return b.flags&core1_0.MemoryPropertyHostCoherent != 0
}

func (b *memoryBlock) mapMemory() (unsafe.Pointer, error) {
	if b.mapCount == 0 {
		ptr, res, err := b.memory.Map(0, int(b.sub.Size()), 0)
		if err != nil {
			return nil, check("MapMemory", res, err)
		}
		b.mapped = ptr
	}
	b.mapCount++
	return b.mapped, nil
}

func (b *memoryBlock) unmap() {
	if b.mapCount == 0 {
		return
	}
	b.mapCount--
	if b.mapCount == 0 {
		b.memory.Unmap()
		b.mapped = nil
	}
}

func (b *memoryBlock) free() {
	if b.freed {
		return
	}
	if b.mapCount > 0 {
		b.memory.Unmap()
		b.mapCount = 0
		b.mapped = nil
	}
	b.memory.Free(nil)
	b.freed = true
}

func (b *memoryBlock) addStats(stats *rhi.AllocatorStats) {
	stats.Blocks++
	stats.Allocations += b.sub.Count()
	stats.BlockBytes += b.sub.Size()
	stats.UsedBytes += b.sub.Used()
}

// Allocation is a region of one memory block.
type Allocation struct {
	allocator *Allocator
	block     *memoryBlock
	region    *suballoc.Region
	maps      int
	freed     bool
}

func (a *Allocation) Size() uint64         { return a.region.Size }
func (a *Allocation) Offset() uint64       { return a.region.Offset }
func (a *Allocation) MemoryTypeIndex() int { return a.block.memoryType }
func (a *Allocation) NativeHandle() any    { return a.block.memory }

// Map returns a pointer to the start of the allocation. The block stays
// mapped while any allocation in it holds a mapping.
func (a *Allocation) Map() (unsafe.Pointer, error) {
	a.allocator.mu.Lock()
	defer a.allocator.mu.Unlock()
	return a.mapLocked()
}

func (a *Allocation) mapLocked() (unsafe.Pointer, error) {
	if a.freed {
		return nil, rhi.InvalidStatef("Map: allocation was freed")
	}
	if !a.block.hostVisible() {
		return nil, rhi.InvalidStatef("Map: memory type %d is not host visible", a.block.memoryType)
	}
	ptr, err := a.block.mapMemory()
	if err != nil {
		return nil, err
	}
	a.maps++
	return unsafe.Add(ptr, int(a.region.Offset)), nil
}

func (a *Allocation) Unmap() {
	a.allocator.mu.Lock()
	defer a.allocator.mu.Unlock()
	if a.freed || a.maps == 0 {
		return
	}
	a.maps--
	a.block.unmap()
}

func (a *Allocation) Flush(offset, size uint64) error {
	return a.syncRange("Flush", offset, size, func(r []core1_0.MappedMemoryRange) error {
		res, err := a.allocator.device.handle.FlushMappedMemoryRanges(r)
		return check("FlushMappedMemoryRanges", res, err)
	})
}

func (a *Allocation) Invalidate(offset, size uint64) error {
	return a.syncRange("Invalidate", offset, size, func(r []core1_0.MappedMemoryRange) error {
		res, err := a.allocator.device.handle.InvalidateMappedMemoryRanges(r)
		return check("InvalidateMappedMemoryRanges", res, err)
	})
}

func (a *Allocation) syncRange(op string, offset, size uint64, call func([]core1_0.MappedMemoryRange) error) error {
	a.allocator.mu.Lock()
	defer a.allocator.mu.Unlock()

	if a.freed {
		return rhi.InvalidStatef("%s: allocation was freed", op)
	}
	start, length, err := flushRange(offset, size, a.region.Offset, a.region.Size, a.block.sub.Size(), a.allocator.atomSize)
	if err != nil {
		return errors.Wrapf(err, "%s", op)
	}
	if a.block.coherent() || length == 0 {
		return nil
	}
	if a.block.mapCount == 0 {
		return rhi.InvalidStatef("%s: allocation is not mapped", op)
	}
	return call([]core1_0.MappedMemoryRange{{
		Memory: a.block.memory,
		Offset: int(start),
		Size:   int(length),
	}})
}

// Free returns the region to its block. Freeing twice fails with
// ErrInvalidState.
func (a *Allocation) Free() error {
	a.allocator.mu.Lock()
	defer a.allocator.mu.Unlock()
	if a.freed {
		return rhi.InvalidStatef("Free: allocation was already freed")
	}
	a.freeLocked()
	return nil
}

// release frees an allocation during teardown, where the error can only
// be logged.
func (a *Allocation) release(owner string) {
	if err := a.Free(); err != nil {
		rhi.Logger().Warn("allocation free failed", slog.String("owner", owner), slog.Any("error", err))
	}
}

func (a *Allocation) freeLocked() {
	for ; a.maps > 0; a.maps-- {
		a.block.unmap()
	}
	a.freed = true
	a.block.sub.Release(a.region)

	if a.block.pool == nil {
		delete(a.allocator.dedicated, a.block)
		a.block.free()
		return
	}
	if !a.block.freed {
		a.block.pool.release(a.block)
	}
}
