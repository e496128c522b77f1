package voxelvk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestDispatchSize(t *testing.T) {
	assert.Equal(t, uint32(0), DispatchSize(0, WorkgroupSize))
	assert.Equal(t, uint32(1), DispatchSize(1, WorkgroupSize))
	assert.Equal(t, uint32(2), DispatchSize(64, WorkgroupSize))
	assert.Equal(t, uint32(3), DispatchSize(65, WorkgroupSize))
	assert.Equal(t, uint32(16), DispatchSize(128, 8))
	assert.Equal(t, uint32(0), DispatchSize(10, 0))
}

func TestStorageImageBindings(t *testing.T) {
	bindings := storageImageBindings(2)
	require.Len(t, bindings, 2)
	for i, b := range bindings {
		assert.Equal(t, uint32(i), b.Binding)
		assert.Equal(t, vk.DescriptorTypeStorageImage, b.DescriptorType)
		assert.Equal(t, uint32(1), b.DescriptorCount)
		assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageComputeBit), b.StageFlags)
	}
	assert.Empty(t, storageImageBindings(0))
}

func TestComputePipelineRecords(t *testing.T) {
	q, native := newTestQueue(t, nil)
	p := &ComputePipeline{push: 8}

	rec, err := q.Acquire(false)
	require.NoError(t, err)
	p.Bind(rec, vk.NullDescriptorSet)
	require.NoError(t, p.Push(rec, []byte{1, 0, 0, 0, 2, 0, 0, 0}))
	assert.Error(t, p.Push(rec, make([]byte, 12)), "larger than the push range")
	rec.Dispatch(DispatchSize(100, WorkgroupSize), 1, 1)
	_, err = q.Submit(rec)
	require.NoError(t, err)

	submits := native.queue.submitted()
	require.Len(t, submits, 1)
	assert.Equal(t, []string{
		"BindPipeline(1)",
		"BindDescriptorSets(1,0,1)",
		"PushConstants(0,[1 0 0 0 2 0 0 0])",
		"Dispatch(4,1,1)",
	}, submits[0].calls)
}
