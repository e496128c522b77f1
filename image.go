package voxelvk

import vk "github.com/vulkan-go/vulkan"

//ImageInfo describes an image to create. A depth above one makes a 3D image.
type ImageInfo struct {
	Format vk.Format
	Extent vk.Extent3D
	Usage  vk.ImageUsageFlags
}

func (i ImageInfo) imageType() vk.ImageType {
	if i.Extent.Depth > 1 {
		return vk.ImageType3d
	}
	return vk.ImageType2d
}

func (i ImageInfo) viewType() vk.ImageViewType {
	if i.Extent.Depth > 1 {
		return vk.ImageViewType3d
	}
	return vk.ImageViewType2d
}

//CoreImage is an image with its view. Swapchain images are wrapped without owning them.
type CoreImage struct {
	handle     vk.Image
	view       vk.ImageView
	allocation *DeviceAllocation
	info       ImageInfo
	owned      bool
}

func (c *CoreImage) Handle() vk.Image {
	return c.handle
}

func (c *CoreImage) View() vk.ImageView {
	return c.view
}

func (c *CoreImage) Info() ImageInfo {
	return c.info
}

//ColorRange covers the first mip level and array layer of a color image
func ColorRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
}

func ColorLayers() vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
}

//Transition is an image layout change recorded as a barrier
type Transition struct {
	Image     vk.Image
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	SrcStage  vk.PipelineStageFlags
	DstStage  vk.PipelineStageFlags
}

//Barrier builds the pipeline barrier performing the transition on the whole color range
func (t Transition) Barrier() Barrier {
	return Barrier{
		SrcStageMask: t.SrcStage,
		DstStageMask: t.DstStage,
		ImageMemoryBarriers: []vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       t.SrcAccess,
			DstAccessMask:       t.DstAccess,
			OldLayout:           t.OldLayout,
			NewLayout:           t.NewLayout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               t.Image,
			SubresourceRange:    ColorRange(),
		}},
	}
}

//BlitRegion scales the whole of a src extent onto a dst extent
func BlitRegion(src, dst vk.Extent2D) vk.ImageBlit {
	return vk.ImageBlit{
		SrcSubresource: ColorLayers(),
		SrcOffsets:     [2]vk.Offset3D{{}, {X: int32(src.Width), Y: int32(src.Height), Z: 1}},
		DstSubresource: ColorLayers(),
		DstOffsets:     [2]vk.Offset3D{{}, {X: int32(dst.Width), Y: int32(dst.Height), Z: 1}},
	}
}
