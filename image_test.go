package voxelvk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestImageInfoTypes(t *testing.T) {
	flat := ImageInfo{Extent: vk.Extent3D{Width: 4, Height: 4, Depth: 1}}
	assert.Equal(t, vk.ImageType2d, flat.imageType())
	assert.Equal(t, vk.ImageViewType2d, flat.viewType())

	volume := ImageInfo{Extent: vk.Extent3D{Width: 4, Height: 4, Depth: 4}}
	assert.Equal(t, vk.ImageType3d, volume.imageType())
	assert.Equal(t, vk.ImageViewType3d, volume.viewType())
}

func TestTransitionBarrier(t *testing.T) {
	b := Transition{
		OldLayout: vk.ImageLayoutUndefined,
		NewLayout: vk.ImageLayoutGeneral,
		DstAccess: vk.AccessFlags(vk.AccessShaderWriteBit),
		SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		DstStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
	}.Barrier()

	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), b.SrcStageMask)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), b.DstStageMask)
	assert.Empty(t, b.MemoryBarriers)
	require.Len(t, b.ImageMemoryBarriers, 1)

	img := b.ImageMemoryBarriers[0]
	assert.Equal(t, vk.StructureTypeImageMemoryBarrier, img.SType)
	assert.Equal(t, vk.ImageLayoutGeneral, img.NewLayout)
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderWriteBit), img.DstAccessMask)
	assert.Equal(t, uint32(vk.QueueFamilyIgnored), img.SrcQueueFamilyIndex)
	assert.Equal(t, ColorRange(), img.SubresourceRange)
}

func TestBlitRegion(t *testing.T) {
	region := BlitRegion(vk.Extent2D{Width: 320, Height: 180}, vk.Extent2D{Width: 1280, Height: 720})
	assert.Equal(t, vk.Offset3D{}, region.SrcOffsets[0])
	assert.Equal(t, vk.Offset3D{X: 320, Y: 180, Z: 1}, region.SrcOffsets[1])
	assert.Equal(t, vk.Offset3D{X: 1280, Y: 720, Z: 1}, region.DstOffsets[1])
	assert.Equal(t, uint32(1), region.SrcSubresource.LayerCount)
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), region.DstSubresource.AspectMask)
}
