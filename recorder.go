package voxelvk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

//MaxUpdateBufferSize is the largest inline payload vkCmdUpdateBuffer accepts
const MaxUpdateBufferSize = 65536

//Recorder is an open recording session on one pooled command buffer. Appending only stores
//commands, nothing reaches the GPU until the recorder is submitted through its queue.
//A recorder is owned by one goroutine and must not be used after Submit or Discard.
type Recorder struct {
	pool   int
	index  int
	state  *State
	raw    vk.CommandBuffer
	queue  *CoreQueue
	closed bool
}

//Index is the buffer slot the recorder was issued from
func (r *Recorder) Index() int {
	return r.index
}

//Pool is the index of the pool owning the buffer
func (r *Recorder) Pool() int {
	return r.pool
}

//Handle is the native command buffer the commands will be replayed on
func (r *Recorder) Handle() vk.CommandBuffer {
	return r.raw
}

//Len is the number of commands recorded so far, including chained ones taken over on acquire
func (r *Recorder) Len() int {
	if r.state == nil {
		return 0
	}
	return r.state.Len()
}

//State exposes the recorded commands and barriers
func (r *Recorder) State() *State {
	return r.state
}

func (r *Recorder) push(cmd Command) {
	if r.closed {
		panic(fmt.Sprintf("voxelvk: recorder for buffer %d/%d used after submit", r.pool, r.index))
	}
	r.state.Commands = append(r.state.Commands, cmd)
}

//BindIndexBuffer binds an index buffer for subsequent indexed draws
func (r *Recorder) BindIndexBuffer(buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	r.push(BindIndexBuffer{Buffer: buffer, Offset: offset, IndexType: indexType})
}

//BindVertexBuffers binds vertex buffers starting at firstBinding
func (r *Recorder) BindVertexBuffers(firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	r.push(BindVertexBuffers{FirstBinding: firstBinding, Buffers: buffers, Offsets: offsets})
}

//CopyBuffer copies regions of src into dst in GPU memory
func (r *Recorder) CopyBuffer(src, dst vk.Buffer, regions ...vk.BufferCopy) {
	r.push(CopyBuffer{Src: src, Dst: dst, Regions: regions})
}

//CopyImageToBuffer copies regions of image, currently in layout, into buffer
func (r *Recorder) CopyImageToBuffer(buffer vk.Buffer, image vk.Image, layout vk.ImageLayout, regions ...vk.BufferImageCopy) {
	r.push(CopyImageToBuffer{Src: image, Layout: layout, Dst: buffer, Regions: regions})
}

//ClearBuffer zeroes size bytes of buffer from offset
func (r *Recorder) ClearBuffer(buffer vk.Buffer, offset, size vk.DeviceSize) {
	r.push(FillBuffer{Dst: buffer, Offset: offset, Size: size, Data: 0})
}

//FillBuffer repeats data over size bytes of buffer from offset
func (r *Recorder) FillBuffer(buffer vk.Buffer, offset, size vk.DeviceSize, data uint32) {
	r.push(FillBuffer{Dst: buffer, Offset: offset, Size: size, Data: data})
}

//UpdateBuffer writes data into buffer through the command buffer itself. The payload is
//copied, so the caller may reuse data right away.
func (r *Recorder) UpdateBuffer(buffer vk.Buffer, offset vk.DeviceSize, data []byte) {
	if len(data) == 0 || len(data) > MaxUpdateBufferSize || len(data)%4 != 0 {
		panic(fmt.Sprintf("voxelvk: UpdateBuffer payload of %d bytes, must be a non-zero multiple of 4 up to %d", len(data), MaxUpdateBufferSize))
	}
	r.push(UpdateBuffer{Dst: buffer, Offset: offset, Data: append([]byte(nil), data...)})
}

//CopyBufferToImage uploads regions of buffer into image, which must be in layout
func (r *Recorder) CopyBufferToImage(buffer vk.Buffer, image vk.Image, layout vk.ImageLayout, regions ...vk.BufferImageCopy) {
	r.push(CopyBufferToImage{Src: buffer, Dst: image, Layout: layout, Regions: regions})
}

//ClearColorImage clears the ranges of image to a float color
func (r *Recorder) ClearColorImage(image vk.Image, layout vk.ImageLayout, color [4]float32, ranges ...vk.ImageSubresourceRange) {
	r.push(ClearColorImage{Image: image, Layout: layout, Color: color, Ranges: ranges})
}

//BlitImage scales regions of src into dst
func (r *Recorder) BlitImage(src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, filter vk.Filter, regions ...vk.ImageBlit) {
	r.push(BlitImage{Src: src, SrcLayout: srcLayout, Dst: dst, DstLayout: dstLayout, Regions: regions, Filter: filter})
}

func (r *Recorder) BindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	r.push(BindPipeline{BindPoint: bindPoint, Pipeline: pipeline})
}

func (r *Recorder) BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	r.push(BindDescriptorSets{BindPoint: bindPoint, Layout: layout, FirstSet: firstSet, Sets: sets, DynamicOffsets: dynamicOffsets})
}

//PushConstants copies data, so the caller may reuse it right away
func (r *Recorder) PushConstants(layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	r.push(PushConstants{Layout: layout, Stages: stages, Offset: offset, Data: append([]byte(nil), data...)})
}

func (r *Recorder) Dispatch(x, y, z uint32) {
	r.push(Dispatch{X: x, Y: y, Z: z})
}

//PipelineBarrier records a barrier behind every command recorded so far
func (r *Recorder) PipelineBarrier(b Barrier) {
	r.BarrierAt(r.Len(), b)
}

//BarrierAt records a barrier that runs after the first `after` commands of this recorder,
//whatever its position in the recording order. Out of range positions are clamped at replay.
func (r *Recorder) BarrierAt(after int, b Barrier) {
	if r.closed {
		panic(fmt.Sprintf("voxelvk: recorder for buffer %d/%d used after submit", r.pool, r.index))
	}
	b.After = after
	r.state.Barriers = append(r.state.Barriers, b)
}
