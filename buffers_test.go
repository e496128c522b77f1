package voxelvk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func mappedBuffer(size int) *CoreBuffer {
	return &CoreBuffer{
		allocation: &DeviceAllocation{location: CpuToGpu, mapped: make([]byte, size+8)},
		size:       uint64(size),
		usage:      vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
	}
}

func TestCoreBufferWriteRead(t *testing.T) {
	buf := mappedBuffer(8)
	assert.Len(t, buf.Bytes(), 8, "the view stops at the buffer size")
	assert.Equal(t, uint64(8), buf.Size())
	assert.Equal(t, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), buf.Usage())

	require.NoError(t, buf.Write(2, []byte{1, 2, 3}))
	got, err := buf.Read(0, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 1, 2, 3, 0}, got)

	got[2] = 9
	again, err := buf.Read(2, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, again, "reads copy out of mapped memory")

	assert.Error(t, buf.Write(6, []byte{1, 2, 3}))
	_, err = buf.Read(4, 5)
	assert.Error(t, err)
}

func TestCoreBufferNotMapped(t *testing.T) {
	gpu := &CoreBuffer{allocation: &DeviceAllocation{location: GpuOnly}, size: 16}
	assert.Nil(t, gpu.Bytes())
	assert.ErrorIs(t, gpu.Write(0, []byte{1}), ErrNotMapped)
	_, err := gpu.Read(0, 1)
	assert.ErrorIs(t, err, ErrNotMapped)

	bare := &CoreBuffer{}
	assert.Nil(t, bare.Bytes())
}
