package voxelvk

import (
	"strings"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//VulkanMode lists the kinds of work an application sends to its queue
type VulkanMode uint32

const (
	VulkanNone    VulkanMode = 0
	VulkanCompute VulkanMode = 1 << (iota - 1)
	VulkanGraphics
	VulkanPresent
)

var DefaultVulkanMode = VulkanCompute | VulkanGraphics | VulkanPresent

func (v VulkanMode) Has(mode VulkanMode) bool {
	return v&mode == mode
}

//QueueFlags are the queue capabilities the mode needs. Graphics is always asked for, the
//core records transfer and compute work on a graphics queue.
func (v VulkanMode) QueueFlags() vk.QueueFlags {
	required := vk.QueueFlags(vk.QueueGraphicsBit)
	if v.Has(VulkanCompute) {
		required |= vk.QueueFlags(vk.QueueComputeBit)
	}
	return required
}

var modeNames = []struct {
	mode VulkanMode
	name string
}{
	{VulkanCompute, "compute"},
	{VulkanGraphics, "graphics"},
	{VulkanPresent, "present"},
}

func (v VulkanMode) String() string {
	if v == VulkanNone {
		return "none"
	}
	var parts []string
	for _, m := range modeNames {
		if v.Has(m.mode) {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(parts, "|")
}

//UnmarshalText reads "compute|graphics|present" style lists
func (v *VulkanMode) UnmarshalText(text []byte) error {
	var mode VulkanMode
	for _, part := range strings.Split(string(text), "|") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" || part == "none" {
			continue
		}
		found := false
		for _, m := range modeNames {
			if m.name == part {
				mode |= m.mode
				found = true
			}
		}
		if !found {
			return errors.Errorf("unknown vulkan mode %q", part)
		}
	}
	*v = mode
	return nil
}

func (v VulkanMode) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// SwapchainDimensions describes the size and format of the swapchain.
type SwapchainDimensions struct {
	// Width of the swapchain.
	Width uint32
	// Height of the swapchain.
	Height uint32
	// Format is the pixel format of the swapchain.
	Format vk.Format
}
