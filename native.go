package voxelvk

import (
	"time"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

//Native is the narrow set of device level calls the submission core makes. The vulkan
//implementation lives in vknative.go, tests swap in an in-memory one.
type Native interface {
	// CreateCommandPool creates a command pool for the queue family with the given flags.
	CreateCommandPool(familyIndex uint32, flags vk.CommandPoolCreateFlags) (NativePool, error)
	// CreateFence creates a fence, optionally already signaled.
	CreateFence(signaled bool) (NativeFence, error)
	// Queue fetches the queue at index within the family.
	Queue(familyIndex uint32, index uint32) NativeQueue
}

//NativePool owns native command buffers
type NativePool interface {
	// Allocate batch allocates count primary command buffers.
	Allocate(count int) ([]NativeBuffer, error)
	// Destroy frees the given buffers and the pool itself.
	Destroy(buffers []NativeBuffer)
}

//NativeQueue is a device queue that accepts native command buffers
type NativeQueue interface {
	Submit(buffers []NativeBuffer, sync FrameSync, fence NativeFence) error
	WaitIdle() error
	// Present queues image index of swapchain for presentation, ErrOutOfDate when the
	// swapchain no longer matches the surface.
	Present(swapchain vk.Swapchain, index uint32, wait []vk.Semaphore) error
}

//NativeFence signals completion of a single queue submission
type NativeFence interface {
	// Signaled polls the fence without blocking.
	Signaled() (bool, error)
	// Wait blocks until the fence signals or the timeout expires, returning ErrTimeout on expiry.
	Wait(timeout time.Duration) error
	Reset() error
	Destroy()
}

//FrameSync carries the semaphores of a queue submission. The zero value waits on and
//signals nothing.
type FrameSync struct {
	Wait       []vk.Semaphore
	WaitStages []vk.PipelineStageFlags
	Signal     []vk.Semaphore
}

//CommandSink receives replayed commands. Each method maps onto exactly one vkCmd* call.
type CommandSink interface {
	BindIndexBuffer(buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	BindVertexBuffers(firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CopyBuffer(src, dst vk.Buffer, regions []vk.BufferCopy)
	CopyImageToBuffer(src vk.Image, layout vk.ImageLayout, dst vk.Buffer, regions []vk.BufferImageCopy)
	CopyBufferToImage(src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy)
	FillBuffer(dst vk.Buffer, offset, size vk.DeviceSize, data uint32)
	UpdateBuffer(dst vk.Buffer, offset vk.DeviceSize, data []byte)
	ClearColorImage(image vk.Image, layout vk.ImageLayout, color [4]float32, ranges []vk.ImageSubresourceRange)
	BlitImage(src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter)
	BindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline)
	BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32)
	PushConstants(layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)
	Dispatch(x, y, z uint32)
	PipelineBarrier(src, dst vk.PipelineStageFlags, deps vk.DependencyFlags, memory []vk.MemoryBarrier, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier)
}

//NativeBuffer is one native primary command buffer
type NativeBuffer interface {
	CommandSink
	// Begin starts native recording, the buffer is submitted once per begin.
	Begin() error
	End() error
	Reset() error
	// Handle returns the vulkan command buffer.
	Handle() vk.CommandBuffer
}

// bytesPointer returns a pointer to the first byte of data for cgo calls taking void*.
func bytesPointer(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}
