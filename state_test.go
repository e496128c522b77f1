package voxelvk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func stageBarrier(after int, src, dst vk.PipelineStageFlagBits) Barrier {
	return Barrier{After: after, SrcStageMask: vk.PipelineStageFlags(src), DstStageMask: vk.PipelineStageFlags(dst)}
}

func barrierCall(b Barrier, memory int) string {
	return fmt.Sprintf("Barrier(%#x,%#x,%d,0,0)", uint32(b.SrcStageMask), uint32(b.DstStageMask), memory)
}

func TestStateFinish(t *testing.T) {
	head := stageBarrier(0, vk.PipelineStageTopOfPipeBit, vk.PipelineStageComputeShaderBit)
	tail := stageBarrier(2, vk.PipelineStageComputeShaderBit, vk.PipelineStageHostBit)
	s := &State{
		Commands: []Command{Dispatch{X: 1}, Dispatch{X: 2}},
		Barriers: []Barrier{tail, head},
	}

	sink := &fakeBuffer{}
	s.Finish(sink)
	assert.Equal(t, []string{barrierCall(head, 0), dispatch(1), dispatch(2), barrierCall(tail, 0)}, sink.log())
	assert.True(t, s.Empty(), "finish drains the state")
}

func TestStateFinishClampsPositions(t *testing.T) {
	before := stageBarrier(-3, vk.PipelineStageTransferBit, vk.PipelineStageTransferBit)
	after := stageBarrier(40, vk.PipelineStageComputeShaderBit, vk.PipelineStageComputeShaderBit)
	s := &State{
		Commands: []Command{Dispatch{X: 1}},
		Barriers: []Barrier{after, before},
	}

	sink := &fakeBuffer{}
	s.Finish(sink)
	assert.Equal(t, []string{barrierCall(before, 0), dispatch(1), barrierCall(after, 0)}, sink.log())
}

func TestStateFinishBarriersOnly(t *testing.T) {
	b := stageBarrier(5, vk.PipelineStageTransferBit, vk.PipelineStageHostBit)
	s := &State{Barriers: []Barrier{b}}
	assert.False(t, s.Empty())

	sink := &fakeBuffer{}
	s.Finish(sink)
	assert.Equal(t, []string{barrierCall(b, 0)}, sink.log())
}

func TestStateAppend(t *testing.T) {
	s := &State{Commands: []Command{Dispatch{X: 1}, Dispatch{X: 2}, Dispatch{X: 3}}}
	other := &State{
		Commands: []Command{Dispatch{X: 4}},
		Barriers: []Barrier{
			stageBarrier(0, vk.PipelineStageTransferBit, vk.PipelineStageTransferBit),
			stageBarrier(9, vk.PipelineStageTransferBit, vk.PipelineStageHostBit),
		},
	}

	s.Append(other)
	require.Equal(t, 4, s.Len())
	require.Len(t, s.Barriers, 2)
	assert.Equal(t, 3, s.Barriers[0].After)
	assert.Equal(t, 4, s.Barriers[1].After, "positions are clamped to the appended commands first")
	assert.True(t, other.Empty())

	s.Append(nil)
	assert.Equal(t, 4, s.Len())
}

func TestStateEmpty(t *testing.T) {
	assert.True(t, (&State{}).Empty())
	assert.Equal(t, 0, (&State{}).Len())
	assert.False(t, (&State{Commands: []Command{Dispatch{}}}).Empty())
}
