package voxelvk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func suitableInfo(name string, kind vk.PhysicalDeviceType) AdapterInfo {
	return AdapterInfo{
		Name:          name,
		Type:          kind,
		MinImageCount: 2,
		MaxImageCount: 8,
		Formats:       []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}},
		PresentModes:  []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate},
		Families:      graphicsFamilies(),
	}
}

func TestAdapterCheck(t *testing.T) {
	info := suitableInfo("integrated", vk.PhysicalDeviceTypeIntegratedGpu)
	s := info.Check(true)
	assert.True(t, s.Ok())
	assert.False(t, s.Discrete)
	assert.Equal(t, 1, s.Score())

	info.MinImageCount = 3
	assert.False(t, info.Check(true).DoubleBuffering)

	info = suitableInfo("fifo only", vk.PhysicalDeviceTypeDiscreteGpu)
	info.PresentModes = []vk.PresentMode{vk.PresentModeFifo}
	assert.False(t, info.Check(true).Ok())

	info = suitableInfo("rgba", vk.PhysicalDeviceTypeDiscreteGpu)
	info.Formats = []vk.SurfaceFormat{{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}}
	assert.False(t, info.Check(true).Format)

	info = suitableInfo("no present", vk.PhysicalDeviceTypeDiscreteGpu)
	info.Families = []QueueFamily{{Index: 0, Flags: vk.QueueFlags(vk.QueueGraphicsBit), Count: 1}}
	assert.Equal(t, -1, info.Check(true).Score())
	assert.True(t, info.Check(false).Ok(), "headless adapters only need a queue")
}

func TestPickAdapter(t *testing.T) {
	infos := []AdapterInfo{
		suitableInfo("integrated", vk.PhysicalDeviceTypeIntegratedGpu),
		suitableInfo("discrete", vk.PhysicalDeviceTypeDiscreteGpu),
		suitableInfo("second discrete", vk.PhysicalDeviceTypeDiscreteGpu),
	}
	best, err := pickAdapter(infos, true, DiscardLogs())
	require.NoError(t, err)
	assert.Equal(t, 1, best)

	best, err = pickAdapter(infos[:1], true, DiscardLogs())
	require.NoError(t, err)
	assert.Equal(t, 0, best, "a discrete GPU is preferred, not required")

	broken := suitableInfo("broken", vk.PhysicalDeviceTypeDiscreteGpu)
	broken.Formats = nil
	_, err = pickAdapter([]AdapterInfo{broken}, true, DiscardLogs())
	assert.ErrorIs(t, err, ErrNoAdapter)

	_, err = pickAdapter(nil, false, DiscardLogs())
	assert.ErrorIs(t, err, ErrNoAdapter)
}
