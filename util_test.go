package voxelvk

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeString(t *testing.T) {
	assert.Equal(t, "\x00", safeString(""))
	assert.Equal(t, "VK_KHR_surface\x00", safeString("VK_KHR_surface"))
	assert.Equal(t, "VK_KHR_surface\x00", safeString("VK_KHR_surface\x00"))
	assert.Equal(t, []string{"a\x00", "b\x00"}, safeStrings([]string{"a", "b\x00"}))
}

func TestCheckExisting(t *testing.T) {
	existing, missing := checkExisting(
		[]string{"VK_LAYER_KHRONOS_validation\x00", "VK_LAYER_LUNARG_monitor"},
		[]string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_missing"},
	)
	assert.Equal(t, []string{"VK_LAYER_KHRONOS_validation\x00"}, existing)
	assert.Equal(t, 1, missing)
}

func TestSliceUint32(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, spirvMagic)
	binary.LittleEndian.PutUint32(data[4:], 42)

	words := sliceUint32(data)
	require.Len(t, words, 2)
	assert.Equal(t, uint32(42), words[1])
	assert.Nil(t, sliceUint32([]byte{1, 2}))
}

func TestExtensionSet(t *testing.T) {
	set := NewExtensionSet(
		[]string{"VK_EXT_debug_report", "VK_EXT_missing"},
		[]string{"VK_KHR_surface", "VK_KHR_swapchain"},
		[]string{"VK_KHR_surface", "VK_KHR_swapchain", "VK_EXT_debug_report"},
	)

	ok, missing := set.HasRequired()
	assert.True(t, ok)
	assert.Empty(t, missing)

	ok, missing = set.HasWanted()
	assert.False(t, ok)
	assert.Equal(t, []string{"VK_EXT_missing"}, missing)

	assert.Equal(t, []string{"VK_KHR_surface\x00", "VK_KHR_swapchain\x00", "VK_EXT_debug_report\x00"}, set.Enabled())
}

func TestExtensionSetMissingRequired(t *testing.T) {
	set := NewExtensionSet(nil, []string{"VK_KHR_swapchain", "VK_KHR_swapchain"}, nil)
	ok, missing := set.HasRequired()
	assert.False(t, ok)
	assert.Len(t, missing, 2)
	assert.Equal(t, []string{"VK_KHR_swapchain\x00"}, set.Enabled(), "duplicates are enabled once")
}
