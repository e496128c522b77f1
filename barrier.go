package voxelvk

import (
	"sort"

	vk "github.com/vulkan-go/vulkan"
)

//Barrier is a pipeline barrier tied to a position in the command sequence. After is the
//number of commands that must execute before it: After == 0 puts it ahead of the first
//command, After == len(commands) behind the last one.
type Barrier struct {
	After                int
	SrcStageMask         vk.PipelineStageFlags
	DstStageMask         vk.PipelineStageFlags
	DependencyFlags      vk.DependencyFlags
	MemoryBarriers       []vk.MemoryBarrier
	BufferMemoryBarriers []vk.BufferMemoryBarrier
	ImageMemoryBarriers  []vk.ImageMemoryBarrier
}

func (b *Barrier) replay(sink CommandSink) {
	sink.PipelineBarrier(b.SrcStageMask, b.DstStageMask, b.DependencyFlags,
		b.MemoryBarriers, b.BufferMemoryBarriers, b.ImageMemoryBarriers)
}

// mergeable reports whether o can be folded into b as one native call.
func (b *Barrier) mergeable(o *Barrier) bool {
	return b.After == o.After &&
		b.SrcStageMask == o.SrcStageMask &&
		b.DstStageMask == o.DstStageMask &&
		b.DependencyFlags == o.DependencyFlags
}

func clampPosition(after, commands int) int {
	if after < 0 {
		return 0
	}
	if after > commands {
		return commands
	}
	return after
}

//scheduleBarriers clamps barrier positions to [0, commands], orders them by position
//keeping recording order within a position, and merges neighbours that share stage masks
//and dependency flags.
func scheduleBarriers(barriers []Barrier, commands int) []Barrier {
	if len(barriers) == 0 {
		return nil
	}

	sorted := make([]Barrier, len(barriers))
	copy(sorted, barriers)
	for i := range sorted {
		sorted[i].After = clampPosition(sorted[i].After, commands)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].After < sorted[j].After
	})

	merged := make([]Barrier, 0, len(sorted))
	for i := range sorted {
		b := sorted[i]
		if n := len(merged); n > 0 && merged[n-1].mergeable(&b) {
			last := &merged[n-1]
			last.MemoryBarriers = append(last.MemoryBarriers, b.MemoryBarriers...)
			last.BufferMemoryBarriers = append(last.BufferMemoryBarriers, b.BufferMemoryBarriers...)
			last.ImageMemoryBarriers = append(last.ImageMemoryBarriers, b.ImageMemoryBarriers...)
			continue
		}
		// own the slices so merging never writes into the caller's arrays
		b.MemoryBarriers = append([]vk.MemoryBarrier(nil), b.MemoryBarriers...)
		b.BufferMemoryBarriers = append([]vk.BufferMemoryBarrier(nil), b.BufferMemoryBarriers...)
		b.ImageMemoryBarriers = append([]vk.ImageMemoryBarrier(nil), b.ImageMemoryBarriers...)
		merged = append(merged, b)
	}
	return merged
}
