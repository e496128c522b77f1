package voxelvk

import (
	vk "github.com/vulkan-go/vulkan"
)

//Command is one recorded GPU operation. The set of commands is closed: every variant lives
//in this file and replays itself with exactly one CommandSink call.
type Command interface {
	replay(sink CommandSink)
}

//Buffer commands

type BindIndexBuffer struct {
	Buffer    vk.Buffer
	Offset    vk.DeviceSize
	IndexType vk.IndexType
}

type BindVertexBuffers struct {
	FirstBinding uint32
	Buffers      []vk.Buffer
	Offsets      []vk.DeviceSize
}

type CopyBuffer struct {
	Src     vk.Buffer
	Dst     vk.Buffer
	Regions []vk.BufferCopy
}

type CopyImageToBuffer struct {
	Src     vk.Image
	Layout  vk.ImageLayout
	Dst     vk.Buffer
	Regions []vk.BufferImageCopy
}

//FillBuffer writes Data repeatedly, ClearBuffer records it with zero
type FillBuffer struct {
	Dst    vk.Buffer
	Offset vk.DeviceSize
	Size   vk.DeviceSize
	Data   uint32
}

//UpdateBuffer carries its payload inline in the command buffer
type UpdateBuffer struct {
	Dst    vk.Buffer
	Offset vk.DeviceSize
	Data   []byte
}

//Image commands

type CopyBufferToImage struct {
	Src     vk.Buffer
	Dst     vk.Image
	Layout  vk.ImageLayout
	Regions []vk.BufferImageCopy
}

type ClearColorImage struct {
	Image  vk.Image
	Layout vk.ImageLayout
	Color  [4]float32
	Ranges []vk.ImageSubresourceRange
}

type BlitImage struct {
	Src       vk.Image
	SrcLayout vk.ImageLayout
	Dst       vk.Image
	DstLayout vk.ImageLayout
	Regions   []vk.ImageBlit
	Filter    vk.Filter
}

//Compute commands

type BindPipeline struct {
	BindPoint vk.PipelineBindPoint
	Pipeline  vk.Pipeline
}

type BindDescriptorSets struct {
	BindPoint      vk.PipelineBindPoint
	Layout         vk.PipelineLayout
	FirstSet       uint32
	Sets           []vk.DescriptorSet
	DynamicOffsets []uint32
}

type PushConstants struct {
	Layout vk.PipelineLayout
	Stages vk.ShaderStageFlags
	Offset uint32
	Data   []byte
}

type Dispatch struct {
	X, Y, Z uint32
}

func (c BindIndexBuffer) replay(sink CommandSink) {
	sink.BindIndexBuffer(c.Buffer, c.Offset, c.IndexType)
}

func (c BindVertexBuffers) replay(sink CommandSink) {
	sink.BindVertexBuffers(c.FirstBinding, c.Buffers, c.Offsets)
}

func (c CopyBuffer) replay(sink CommandSink) {
	sink.CopyBuffer(c.Src, c.Dst, c.Regions)
}

func (c CopyImageToBuffer) replay(sink CommandSink) {
	sink.CopyImageToBuffer(c.Src, c.Layout, c.Dst, c.Regions)
}

func (c FillBuffer) replay(sink CommandSink) {
	sink.FillBuffer(c.Dst, c.Offset, c.Size, c.Data)
}

func (c UpdateBuffer) replay(sink CommandSink) {
	sink.UpdateBuffer(c.Dst, c.Offset, c.Data)
}

func (c CopyBufferToImage) replay(sink CommandSink) {
	sink.CopyBufferToImage(c.Src, c.Dst, c.Layout, c.Regions)
}

func (c ClearColorImage) replay(sink CommandSink) {
	sink.ClearColorImage(c.Image, c.Layout, c.Color, c.Ranges)
}

func (c BlitImage) replay(sink CommandSink) {
	sink.BlitImage(c.Src, c.SrcLayout, c.Dst, c.DstLayout, c.Regions, c.Filter)
}

func (c BindPipeline) replay(sink CommandSink) {
	sink.BindPipeline(c.BindPoint, c.Pipeline)
}

func (c BindDescriptorSets) replay(sink CommandSink) {
	sink.BindDescriptorSets(c.BindPoint, c.Layout, c.FirstSet, c.Sets, c.DynamicOffsets)
}

func (c PushConstants) replay(sink CommandSink) {
	sink.PushConstants(c.Layout, c.Stages, c.Offset, c.Data)
}

func (c Dispatch) replay(sink CommandSink) {
	sink.Dispatch(c.X, c.Y, c.Z)
}
