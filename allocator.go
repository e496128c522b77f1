package voxelvk

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//DefaultBlockSize is the size of one device memory block the allocator carves up
const DefaultBlockSize = 64 << 20

//MemoryLocation says who reads and writes a resource
type MemoryLocation int

const (
	//GpuOnly memory is device local and never mapped
	GpuOnly MemoryLocation = iota
	//CpuToGpu memory is mapped for uploads, device local when the heap allows it
	CpuToGpu
	//GpuToCpu memory is mapped for readbacks, cached when possible
	GpuToCpu
)

func (l MemoryLocation) String() string {
	switch l {
	case GpuOnly:
		return "GpuOnly"
	case CpuToGpu:
		return "CpuToGpu"
	case GpuToCpu:
		return "GpuToCpu"
	}
	return fmt.Sprintf("MemoryLocation(%d)", int(l))
}

func (l MemoryLocation) flags() (required, preferred vk.MemoryPropertyFlags) {
	switch l {
	case CpuToGpu:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	case GpuToCpu:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit)
	}
	return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), 0
}

//Mapped reports whether memory for the location is host visible
func (l MemoryLocation) Mapped() bool {
	return l != GpuOnly
}

//PickMemoryType returns the first memory type allowed by typeBits that has every flag the
//location requires, preferring types that also carry the preferred flags. GPU only requests
//fall back to any allowed type, host visible ones never do.
func PickMemoryType(types []vk.MemoryPropertyFlags, typeBits uint32, location MemoryLocation) (uint32, bool) {
	required, preferred := location.flags()

	find := func(want vk.MemoryPropertyFlags) (uint32, bool) {
		for i, flags := range types {
			if i >= 32 || typeBits&(1<<uint(i)) == 0 {
				continue
			}
			if flags&want == want {
				return uint32(i), true
			}
		}
		return 0, false
	}

	if preferred != 0 {
		if i, ok := find(required | preferred); ok {
			return i, true
		}
	}
	if i, ok := find(required); ok {
		return i, true
	}
	if location == GpuOnly {
		return find(0)
	}
	return 0, false
}

//MemoryTypes flattens the memory types of the physical device properties
func MemoryTypes(props vk.PhysicalDeviceMemoryProperties) []vk.MemoryPropertyFlags {
	types := make([]vk.MemoryPropertyFlags, 0, props.MemoryTypeCount)
	for i := uint32(0); i < props.MemoryTypeCount && i < vk.MaxMemoryTypes; i++ {
		props.MemoryTypes[i].Deref()
		types = append(types, props.MemoryTypes[i].PropertyFlags)
	}
	return types
}

//Allocation is a range of a memory block
type Allocation struct {
	Offset uint64
	Size   uint64
}

func (a *Allocation) String() string {
	return fmt.Sprintf("[%d %d]", a.Offset, a.Size)
}

func makeAlignUp(a uint64, align uint64) uint64 {
	if align <= 1 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	return (a - m) + align
}

//blockAllocator hands out first fit ranges of a block of Size bytes. allocs stays sorted
//by offset.
type blockAllocator struct {
	Size   uint64
	allocs []*Allocation
}

func (p *blockAllocator) Allocate(size uint64, align uint64) *Allocation {
	if size == 0 || size > p.Size {
		return nil
	}

	at := func(i int, offset uint64) *Allocation {
		na := &Allocation{Offset: offset, Size: size}
		p.allocs = append(p.allocs, nil)
		copy(p.allocs[i+1:], p.allocs[i:])
		p.allocs[i] = na
		return na
	}

	low := uint64(0)
	for i, c := range p.allocs {
		if c.Offset >= low && c.Offset-low >= size {
			return at(i, low)
		}
		low = makeAlignUp(c.Offset+c.Size, align)
	}
	if low <= p.Size && p.Size-low >= size {
		return at(len(p.allocs), low)
	}
	return nil
}

func (p *blockAllocator) Free(fa *Allocation) {
	for i, a := range p.allocs {
		if a == fa {
			p.allocs = append(p.allocs[:i], p.allocs[i+1:]...)
			return
		}
	}
}

//Used is the number of bytes handed out
func (p *blockAllocator) Used() uint64 {
	var used uint64
	for _, a := range p.allocs {
		used += a.Size
	}
	return used
}

func (p *blockAllocator) Empty() bool {
	return len(p.allocs) == 0
}

func (p *blockAllocator) String() string {
	return fmt.Sprintf("%v", p.allocs)
}

type memoryBlock struct {
	memory    vk.DeviceMemory
	typeIndex uint32
	ranges    blockAllocator
	mapped    unsafe.Pointer
	dedicated bool
}

//DeviceAllocation is a sub-range of a device memory block bound to one resource
type DeviceAllocation struct {
	block    *memoryBlock
	alloc    *Allocation
	location MemoryLocation
	mapped   []byte
}

func (a *DeviceAllocation) Memory() vk.DeviceMemory {
	return a.block.memory
}

func (a *DeviceAllocation) Offset() vk.DeviceSize {
	return vk.DeviceSize(a.alloc.Offset)
}

func (a *DeviceAllocation) Size() vk.DeviceSize {
	return vk.DeviceSize(a.alloc.Size)
}

func (a *DeviceAllocation) Location() MemoryLocation {
	return a.location
}

//Mapped is the host view of the allocation, nil for GPU only memory
func (a *DeviceAllocation) Mapped() []byte {
	return a.mapped
}

//DeviceAllocator sub-allocates device memory in blocks per memory type. Host visible blocks
//stay mapped for their whole life. Safe for concurrent use.
type DeviceAllocator struct {
	device    vk.Device
	types     []vk.MemoryPropertyFlags
	blockSize uint64
	logs      *Logs

	mu     sync.Mutex
	blocks map[uint32][]*memoryBlock
}

func NewDeviceAllocator(device vk.Device, props vk.PhysicalDeviceMemoryProperties, blockSize uint64, logs *Logs) *DeviceAllocator {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	if logs == nil {
		logs = DiscardLogs()
	}
	return &DeviceAllocator{
		device:    device,
		types:     MemoryTypes(props),
		blockSize: blockSize,
		logs:      logs,
		blocks:    make(map[uint32][]*memoryBlock),
	}
}

//Allocate finds room for req in a block of a suitable memory type, creating a block when
//none has space. Requests larger than the block size get a dedicated block.
func (d *DeviceAllocator) Allocate(req vk.MemoryRequirements, location MemoryLocation) (*DeviceAllocation, error) {
	typeIndex, ok := PickMemoryType(d.types, req.MemoryTypeBits, location)
	if !ok {
		return nil, errors.Wrapf(ErrOutOfMemory, "no memory type for %s in bits %#x", location, req.MemoryTypeBits)
	}
	size, align := uint64(req.Size), uint64(req.Alignment)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, block := range d.blocks[typeIndex] {
		if block.dedicated {
			continue
		}
		if a := block.ranges.Allocate(size, align); a != nil {
			return d.bind(block, a, location), nil
		}
	}

	blockSize, dedicated := d.blockSize, false
	if size > d.blockSize {
		blockSize, dedicated = size, true
	}
	block, err := d.newBlock(typeIndex, blockSize, location.Mapped())
	if err != nil {
		return nil, err
	}
	block.dedicated = dedicated
	d.blocks[typeIndex] = append(d.blocks[typeIndex], block)
	d.logs.Debug.Printf("memory block of %d bytes on type %d for %s", blockSize, typeIndex, location)

	a := block.ranges.Allocate(size, align)
	if a == nil {
		return nil, errors.Wrapf(ErrOutOfMemory, "%d bytes in a fresh block of %d", size, blockSize)
	}
	return d.bind(block, a, location), nil
}

func (d *DeviceAllocator) bind(block *memoryBlock, a *Allocation, location MemoryLocation) *DeviceAllocation {
	da := &DeviceAllocation{block: block, alloc: a, location: location}
	if block.mapped != nil {
		da.mapped = unsafe.Slice((*byte)(unsafe.Add(block.mapped, a.Offset)), a.Size)
	}
	return da
}

func (d *DeviceAllocator) newBlock(typeIndex uint32, size uint64, mapped bool) (*memoryBlock, error) {
	var memory vk.DeviceMemory
	ret := vk.AllocateMemory(d.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}, nil, &memory)
	if isError(ret) {
		return nil, errors.Wrapf(NewError(ret), "allocate %d bytes of memory type %d", size, typeIndex)
	}

	block := &memoryBlock{memory: memory, typeIndex: typeIndex, ranges: blockAllocator{Size: size}}
	if mapped {
		var ptr unsafe.Pointer
		ret = vk.MapMemory(d.device, memory, 0, vk.DeviceSize(size), 0, &ptr)
		if isError(ret) {
			vk.FreeMemory(d.device, memory, nil)
			return nil, errors.Wrap(NewError(ret), "map memory block")
		}
		block.mapped = ptr
	}
	return block, nil
}

//Free returns the range to its block. Dedicated blocks are released with it.
func (d *DeviceAllocator) Free(a *DeviceAllocation) {
	if a == nil || a.block == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	block := a.block
	block.ranges.Free(a.alloc)
	a.block, a.mapped = nil, nil

	if block.dedicated && block.ranges.Empty() {
		d.release(block)
		list := d.blocks[block.typeIndex]
		for i := range list {
			if list[i] == block {
				d.blocks[block.typeIndex] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

func (d *DeviceAllocator) release(block *memoryBlock) {
	if block.mapped != nil {
		vk.UnmapMemory(d.device, block.memory)
		block.mapped = nil
	}
	vk.FreeMemory(d.device, block.memory, nil)
}

//Destroy frees every block, leaked allocations are logged
func (d *DeviceAllocator) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for typeIndex, list := range d.blocks {
		for _, block := range list {
			if !block.ranges.Empty() {
				d.logs.Warn.Printf("memory type %d block freed with %d bytes in use", typeIndex, block.ranges.Used())
			}
			d.release(block)
		}
	}
	d.blocks = make(map[uint32][]*memoryBlock)
}
