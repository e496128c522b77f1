package voxelvk

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//vkNative implements Native on a vulkan logical device
type vkNative struct {
	device vk.Device
}

func newVkNative(device vk.Device) *vkNative {
	return &vkNative{device: device}
}

func (n *vkNative) CreateCommandPool(familyIndex uint32, flags vk.CommandPoolCreateFlags) (NativePool, error) {
	var cmdPool vk.CommandPool

	ret := vk.CreateCommandPool(n.device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: familyIndex,
		Flags:            flags,
	}, nil, &cmdPool)

	if isError(ret) {
		return nil, errors.Wrap(NewError(ret), "create command pool")
	}

	return &vkPool{device: n.device, pool: cmdPool}, nil
}

func (n *vkNative) CreateFence(signaled bool) (NativeFence, error) {
	var fence vk.Fence
	var fenceCreateInfo = vk.FenceCreateInfo{}
	fenceCreateInfo.SType = vk.StructureTypeFenceCreateInfo
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	ret := vk.CreateFence(n.device, &fenceCreateInfo, nil, &fence)
	if isError(ret) {
		return nil, errors.Wrap(NewError(ret), "create fence")
	}
	return &vkFence{device: n.device, fence: fence}, nil
}

func (n *vkNative) Queue(familyIndex uint32, index uint32) NativeQueue {
	var queue vk.Queue
	vk.GetDeviceQueue(n.device, familyIndex, index, &queue)
	return &vkQueue{queue: queue}
}

type vkPool struct {
	device vk.Device
	pool   vk.CommandPool
}

func (p *vkPool) Allocate(count int) ([]NativeBuffer, error) {
	var commandBufferAllocateInfo = vk.CommandBufferAllocateInfo{}
	commandBufferAllocateInfo.SType = vk.StructureTypeCommandBufferAllocateInfo
	commandBufferAllocateInfo.CommandPool = p.pool
	commandBufferAllocateInfo.Level = vk.CommandBufferLevelPrimary
	commandBufferAllocateInfo.CommandBufferCount = uint32(count)

	cmdBuffers := make([]vk.CommandBuffer, count)

	ret := vk.AllocateCommandBuffers(p.device, &commandBufferAllocateInfo, cmdBuffers)
	if isError(ret) {
		return nil, errors.Wrapf(NewError(ret), "allocate %d command buffers", count)
	}

	buffers := make([]NativeBuffer, count)
	for i := range cmdBuffers {
		buffers[i] = &vkBuffer{cmd: cmdBuffers[i]}
	}
	return buffers, nil
}

func (p *vkPool) Destroy(buffers []NativeBuffer) {
	if len(buffers) > 0 {
		raw := make([]vk.CommandBuffer, len(buffers))
		for i := range buffers {
			raw[i] = buffers[i].Handle()
		}
		vk.FreeCommandBuffers(p.device, p.pool, uint32(len(raw)), raw)
	}
	vk.DestroyCommandPool(p.device, p.pool, nil)
}

type vkQueue struct {
	queue vk.Queue
}

func (q *vkQueue) Submit(buffers []NativeBuffer, sync FrameSync, fence NativeFence) error {
	raw := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		raw[i] = buffers[i].Handle()
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(raw)),
		PCommandBuffers:    raw,
	}
	if len(sync.Wait) > 0 {
		submitInfo.WaitSemaphoreCount = uint32(len(sync.Wait))
		submitInfo.PWaitSemaphores = sync.Wait
		submitInfo.PWaitDstStageMask = sync.WaitStages
	}
	if len(sync.Signal) > 0 {
		submitInfo.SignalSemaphoreCount = uint32(len(sync.Signal))
		submitInfo.PSignalSemaphores = sync.Signal
	}

	vkfence := vk.NullFence
	if f, ok := fence.(*vkFence); ok && f != nil {
		vkfence = f.fence
	}

	ret := vk.QueueSubmit(q.queue, 1, []vk.SubmitInfo{submitInfo}, vkfence)
	if isError(ret) {
		return errors.Wrap(NewError(ret), "queue submit")
	}
	return nil
}

func (q *vkQueue) WaitIdle() error {
	ret := vk.QueueWaitIdle(q.queue)
	if isError(ret) {
		return errors.Wrap(NewError(ret), "queue wait idle")
	}
	return nil
}

func (q *vkQueue) Present(swapchain vk.Swapchain, index uint32, wait []vk.Semaphore) error {
	ret := vk.QueuePresent(q.queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(wait)),
		PWaitSemaphores:    wait,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain},
		PImageIndices:      []uint32{index},
	})
	switch ret {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return ErrOutOfDate
	default:
		return errors.Wrap(NewError(ret), "queue present")
	}
}

type vkFence struct {
	device vk.Device
	fence  vk.Fence
}

func (f *vkFence) Signaled() (bool, error) {
	switch ret := vk.GetFenceStatus(f.device, f.fence); ret {
	case vk.Success:
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, errors.Wrap(NewError(ret), "fence status")
	}
}

func (f *vkFence) Wait(timeout time.Duration) error {
	ret := vk.WaitForFences(f.device, 1, []vk.Fence{f.fence}, vk.True, uint64(timeout.Nanoseconds()))
	switch ret {
	case vk.Success:
		return nil
	case vk.Timeout:
		return ErrTimeout
	default:
		return errors.Wrap(NewError(ret), "wait for fence")
	}
}

func (f *vkFence) Reset() error {
	ret := vk.ResetFences(f.device, 1, []vk.Fence{f.fence})
	if isError(ret) {
		return errors.Wrap(NewError(ret), "reset fence")
	}
	return nil
}

func (f *vkFence) Destroy() {
	vk.DestroyFence(f.device, f.fence, nil)
}

//vkBuffer forwards every CommandSink call to the matching vkCmd* entry point
type vkBuffer struct {
	cmd vk.CommandBuffer
}

func (b *vkBuffer) Handle() vk.CommandBuffer {
	return b.cmd
}

func (b *vkBuffer) Begin() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	return vk.Error(vk.BeginCommandBuffer(b.cmd, &beginInfo))
}

func (b *vkBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(b.cmd))
}

func (b *vkBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(b.cmd, 0))
}

func (b *vkBuffer) BindIndexBuffer(buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(b.cmd, buffer, offset, indexType)
}

func (b *vkBuffer) BindVertexBuffers(firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(b.cmd, firstBinding, uint32(len(buffers)), buffers, offsets)
}

func (b *vkBuffer) CopyBuffer(src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(b.cmd, src, dst, uint32(len(regions)), regions)
}

func (b *vkBuffer) CopyImageToBuffer(src vk.Image, layout vk.ImageLayout, dst vk.Buffer, regions []vk.BufferImageCopy) {
	vk.CmdCopyImageToBuffer(b.cmd, src, layout, dst, uint32(len(regions)), regions)
}

func (b *vkBuffer) CopyBufferToImage(src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(b.cmd, src, dst, layout, uint32(len(regions)), regions)
}

func (b *vkBuffer) FillBuffer(dst vk.Buffer, offset, size vk.DeviceSize, data uint32) {
	vk.CmdFillBuffer(b.cmd, dst, offset, size, data)
}

func (b *vkBuffer) UpdateBuffer(dst vk.Buffer, offset vk.DeviceSize, data []byte) {
	vk.CmdUpdateBuffer(b.cmd, dst, offset, vk.DeviceSize(len(data)), (*uint32)(bytesPointer(data)))
}

func (b *vkBuffer) ClearColorImage(image vk.Image, layout vk.ImageLayout, color [4]float32, ranges []vk.ImageSubresourceRange) {
	var value vk.ClearColorValue
	*(*[4]float32)(unsafe.Pointer(&value)) = color
	vk.CmdClearColorImage(b.cmd, image, layout, &value, uint32(len(ranges)), ranges)
}

func (b *vkBuffer) BlitImage(src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	vk.CmdBlitImage(b.cmd, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions, filter)
}

func (b *vkBuffer) BindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(b.cmd, bindPoint, pipeline)
}

func (b *vkBuffer) BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	vk.CmdBindDescriptorSets(b.cmd, bindPoint, layout, firstSet, uint32(len(sets)), sets, uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (b *vkBuffer) PushConstants(layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	vk.CmdPushConstants(b.cmd, layout, stages, offset, uint32(len(data)), bytesPointer(data))
}

func (b *vkBuffer) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(b.cmd, x, y, z)
}

func (b *vkBuffer) PipelineBarrier(src, dst vk.PipelineStageFlags, deps vk.DependencyFlags, memory []vk.MemoryBarrier, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(b.cmd, src, dst, deps,
		uint32(len(memory)), memory,
		uint32(len(buffers)), buffers,
		uint32(len(images)), images)
}
