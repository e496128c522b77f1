package voxelvk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//ErrNotMapped is returned when host access is attempted on GPU only memory
var ErrNotMapped = errors.New("voxelvk: buffer memory is not host visible")

//CoreBuffer is a buffer bound to a range of allocator memory. Buffers at CpuToGpu or
//GpuToCpu locations are mapped for their whole life.
type CoreBuffer struct {
	handle     vk.Buffer
	allocation *DeviceAllocation
	size       uint64
	usage      vk.BufferUsageFlags
}

func (b *CoreBuffer) Handle() vk.Buffer {
	return b.handle
}

func (b *CoreBuffer) Size() uint64 {
	return b.size
}

func (b *CoreBuffer) Usage() vk.BufferUsageFlags {
	return b.usage
}

//Bytes is the mapped memory of the buffer, nil when not host visible
func (b *CoreBuffer) Bytes() []byte {
	if b.allocation == nil {
		return nil
	}
	mapped := b.allocation.Mapped()
	if uint64(len(mapped)) > b.size {
		mapped = mapped[:b.size]
	}
	return mapped
}

//Write copies data into the buffer at offset
func (b *CoreBuffer) Write(offset uint64, data []byte) error {
	mapped := b.Bytes()
	if mapped == nil {
		return ErrNotMapped
	}
	if offset+uint64(len(data)) > uint64(len(mapped)) {
		return errors.Errorf("write of %d bytes at %d overflows buffer of %d", len(data), offset, len(mapped))
	}
	copy(mapped[offset:], data)
	return nil
}

//Read copies n bytes from offset out of the buffer
func (b *CoreBuffer) Read(offset uint64, n int) ([]byte, error) {
	mapped := b.Bytes()
	if mapped == nil {
		return nil, ErrNotMapped
	}
	if offset+uint64(n) > uint64(len(mapped)) {
		return nil, errors.Errorf("read of %d bytes at %d overflows buffer of %d", n, offset, len(mapped))
	}
	out := make([]byte, n)
	copy(out, mapped[offset:])
	return out, nil
}
