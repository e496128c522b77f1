package voxelvk

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestNewCorePool(t *testing.T) {
	native := newFakeNative()
	pool, err := NewCorePool(native, 3, 8, nil)
	require.NoError(t, err)

	assert.Equal(t, 8, pool.Capacity())
	require.Len(t, native.pools, 1)
	assert.Equal(t, uint32(3), native.pools[0].family)
	assert.Equal(t, vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit), native.pools[0].flags)
	assert.Len(t, native.fences, 8)
	for i := 0; i < pool.Capacity(); i++ {
		assert.Equal(t, BufferIdle, pool.Status(i))
		assert.Equal(t, TagChainable, pool.Tags(i))
	}
	for _, f := range native.fences {
		signaled, _ := f.Signaled()
		assert.False(t, signaled, "buffer fences start unsignaled")
	}

	pool.Destroy()
	assert.True(t, native.pools[0].destroyed)
	assert.Equal(t, 0, pool.Capacity())
}

func TestNewCorePoolCapacity(t *testing.T) {
	_, err := NewCorePool(newFakeNative(), 0, 0, nil)
	assert.Error(t, err)
	_, err = NewCorePool(newFakeNative(), 0, -1, nil)
	assert.Error(t, err)
}

func TestNewCorePoolFenceFailure(t *testing.T) {
	native := newFakeNative()
	native.failFence = errors.New("out of host memory")

	_, err := NewCorePool(native, 0, 4, nil)
	require.Error(t, err)
	assert.True(t, native.pools[0].destroyed)
}

func TestPoolAcquireExhausted(t *testing.T) {
	pool, err := NewCorePool(newFakeNative(), 0, 2, nil)
	require.NoError(t, err)

	a, err := pool.acquire(false)
	require.NoError(t, err)
	b, err := pool.acquire(false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, []int{a.Index(), b.Index()})

	c, err := pool.acquire(false)
	require.NoError(t, err)
	assert.Nil(t, c, "exhausted pool hands out nothing")
}

func TestCommandBufferTransitions(t *testing.T) {
	buf := newCommandBuffer(&fakeBuffer{}, &fakeFence{})
	assert.Equal(t, BufferIdle, buf.status)

	assert.Panics(t, func() { buf.setStatus(BufferPending) }, "idle buffers are never submitted")

	buf.setStatus(BufferRecording)
	buf.setStatus(BufferRecording)
	buf.setStatus(BufferPending)
	assert.Equal(t, TagChainable|TagPending, buf.Tags())
	assert.False(t, buf.eligible(true))

	buf.settled()
	assert.Equal(t, BufferIdle, buf.status)
	assert.Equal(t, uint64(1), buf.cycle)
	assert.True(t, buf.eligible(false))
}

func TestCommandBufferSettledWithHolders(t *testing.T) {
	buf := newCommandBuffer(&fakeBuffer{}, &fakeFence{})
	buf.setStatus(BufferRecording)
	buf.setStatus(BufferPending)
	buf.holders = 1

	assert.Equal(t, buf.cycle+1, buf.nextCycle())
	buf.settled()
	assert.Equal(t, BufferRecording, buf.status)
	assert.Equal(t, buf.cycle, buf.nextCycle())
}

func TestCommandBufferEligible(t *testing.T) {
	buf := newCommandBuffer(&fakeBuffer{}, &fakeFence{})
	buf.setStatus(BufferRecording)

	assert.True(t, buf.eligible(true))
	assert.False(t, buf.eligible(false))

	buf.chainable = false
	assert.False(t, buf.eligible(true))
	assert.Equal(t, TagRecording, buf.Tags())
}

func TestCommandBufferTake(t *testing.T) {
	buf := newCommandBuffer(&fakeBuffer{}, &fakeFence{})
	buf.state.Commands = append(buf.state.Commands, Dispatch{X: 1})

	first := buf.take()
	assert.Equal(t, 1, first.Len())
	assert.Panics(t, func() { buf.take() }, "state can only be taken once")

	buf.holders = 1
	second := buf.take()
	assert.True(t, second.Empty())

	buf.restore(first)
	buf.restore(second)
	assert.Equal(t, 1, buf.state.Len())
}

func TestBufferStatusString(t *testing.T) {
	assert.Equal(t, "Idle", BufferIdle.String())
	assert.Equal(t, "Recording", BufferRecording.String())
	assert.Equal(t, "Pending", BufferPending.String())
	assert.Equal(t, "BufferStatus(9)", BufferStatus(9).String())
}
