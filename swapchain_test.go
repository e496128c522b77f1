package voxelvk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestChoosePresentMode(t *testing.T) {
	assert.Equal(t, vk.PresentModeMailbox, ChoosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox, vk.PresentModeImmediate}))
	assert.Equal(t, vk.PresentModeImmediate, ChoosePresentMode([]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox}))
	assert.Equal(t, vk.PresentModeFifo, ChoosePresentMode([]vk.PresentMode{vk.PresentModeFifoRelaxed}))
	assert.Equal(t, vk.PresentModeFifo, ChoosePresentMode(nil))
}

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	f, err := ChooseSurfaceFormat([]vk.SurfaceFormat{srgb, unorm})
	require.NoError(t, err)
	assert.Equal(t, unorm, f)

	f, err = ChooseSurfaceFormat([]vk.SurfaceFormat{srgb})
	require.NoError(t, err)
	assert.Equal(t, srgb, f)

	f, err = ChooseSurfaceFormat([]vk.SurfaceFormat{{Format: vk.FormatUndefined, ColorSpace: vk.ColorSpaceSrgbNonlinear}})
	require.NoError(t, err)
	assert.Equal(t, unorm, f)

	_, err = ChooseSurfaceFormat(nil)
	assert.Error(t, err)
}

func TestChooseExtent(t *testing.T) {
	fixed := vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: 800, Height: 600}}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, ChooseExtent(fixed, 1024, 768))

	free := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 1920, Height: 1080},
	}
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 768}, ChooseExtent(free, 1024, 768))
	assert.Equal(t, vk.Extent2D{Width: 1920, Height: 64}, ChooseExtent(free, 4000, 10))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(2), ChooseImageCount(vk.SurfaceCapabilities{MinImageCount: 1, MaxImageCount: 3}))
	assert.Equal(t, uint32(3), ChooseImageCount(vk.SurfaceCapabilities{MinImageCount: 3}))
	assert.Equal(t, uint32(1), ChooseImageCount(vk.SurfaceCapabilities{MinImageCount: 1, MaxImageCount: 1}))
}

func TestChooseCompositeAlpha(t *testing.T) {
	caps := vk.SurfaceCapabilities{SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit | vk.CompositeAlphaPreMultipliedBit)}
	assert.Equal(t, vk.CompositeAlphaPreMultipliedBit, chooseCompositeAlpha(caps))
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, chooseCompositeAlpha(vk.SurfaceCapabilities{}))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(5), clamp(1, 5, 10))
	assert.Equal(t, uint32(10), clamp(20, 5, 10))
	assert.Equal(t, uint32(20), clamp(20, 5, 0), "zero max is unbounded")
}
