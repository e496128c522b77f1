package voxelvk

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

//fakeNative is an in-memory Native. Fences signal as soon as they are submitted unless
//manual is set, then tests signal them through signalAll.
type fakeNative struct {
	mu         sync.Mutex
	manual     bool
	failSubmit error
	failFence  error
	pools      []*fakePool
	fences     []*fakeFence
	queue      *fakeQueue
}

func newFakeNative() *fakeNative {
	n := &fakeNative{}
	n.queue = &fakeQueue{native: n}
	return n
}

func (n *fakeNative) CreateCommandPool(familyIndex uint32, flags vk.CommandPoolCreateFlags) (NativePool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := &fakePool{family: familyIndex, flags: flags}
	n.pools = append(n.pools, p)
	return p, nil
}

func (n *fakeNative) CreateFence(signaled bool) (NativeFence, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFence != nil {
		return nil, n.failFence
	}
	f := &fakeFence{signaled: signaled}
	n.fences = append(n.fences, f)
	return f, nil
}

func (n *fakeNative) Queue(familyIndex uint32, index uint32) NativeQueue {
	return n.queue
}

func (n *fakeNative) isManual() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.manual
}

func (n *fakeNative) submitError() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failSubmit
}

//signalAll signals every fence that was submitted and not reset since
func (n *fakeNative) signalAll() {
	n.mu.Lock()
	fences := append([]*fakeFence(nil), n.fences...)
	n.mu.Unlock()
	for _, f := range fences {
		f.mu.Lock()
		if f.inFlight {
			f.signaled = true
		}
		f.mu.Unlock()
	}
}

type fakePool struct {
	family    uint32
	flags     vk.CommandPoolCreateFlags
	buffers   []*fakeBuffer
	destroyed bool
}

func (p *fakePool) Allocate(count int) ([]NativeBuffer, error) {
	out := make([]NativeBuffer, count)
	for i := range out {
		b := &fakeBuffer{id: i}
		p.buffers = append(p.buffers, b)
		out[i] = b
	}
	return out, nil
}

func (p *fakePool) Destroy(buffers []NativeBuffer) {
	p.destroyed = true
}

type fakeSubmit struct {
	buffers []int
	calls   []string
	sync    FrameSync
	fenced  bool
}

type fakePresent struct {
	index uint32
	wait  int
}

type fakeQueue struct {
	native *fakeNative

	mu         sync.Mutex
	submits    []fakeSubmit
	presents   []fakePresent
	idleWaits  int
	idleErr    error
	presentErr error
}

func (q *fakeQueue) Submit(buffers []NativeBuffer, sync FrameSync, fence NativeFence) error {
	if err := q.native.submitError(); err != nil {
		return err
	}
	s := fakeSubmit{sync: sync, fenced: fence != nil}
	for _, b := range buffers {
		fb := b.(*fakeBuffer)
		s.buffers = append(s.buffers, fb.id)
		s.calls = append(s.calls, fb.log()...)
	}
	q.mu.Lock()
	q.submits = append(q.submits, s)
	q.mu.Unlock()

	if fence != nil {
		f := fence.(*fakeFence)
		f.mu.Lock()
		f.inFlight = true
		f.submitted++
		if !q.native.isManual() {
			f.signaled = true
		}
		f.mu.Unlock()
	}
	return nil
}

func (q *fakeQueue) WaitIdle() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.idleWaits++
	return q.idleErr
}

func (q *fakeQueue) Present(swapchain vk.Swapchain, index uint32, wait []vk.Semaphore) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.presents = append(q.presents, fakePresent{index: index, wait: len(wait)})
	return q.presentErr
}

func (q *fakeQueue) submitted() []fakeSubmit {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]fakeSubmit(nil), q.submits...)
}

type fakeFence struct {
	mu        sync.Mutex
	signaled  bool
	inFlight  bool
	submitted int
	resets    int
	destroyed bool
}

func (f *fakeFence) Signaled() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled, nil
}

func (f *fakeFence) Wait(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if ok, _ := f.Signaled(); ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(50 * time.Microsecond)
	}
}

func (f *fakeFence) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = false
	f.inFlight = false
	f.resets++
	return nil
}

func (f *fakeFence) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
}

//fakeBuffer logs every native call as a short string
type fakeBuffer struct {
	id int

	mu     sync.Mutex
	calls  []string
	begins int
	resets int
}

func (b *fakeBuffer) record(format string, args ...interface{}) {
	b.mu.Lock()
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
	b.mu.Unlock()
}

func (b *fakeBuffer) log() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBuffer) Begin() error {
	b.mu.Lock()
	b.begins++
	b.mu.Unlock()
	return nil
}

func (b *fakeBuffer) End() error {
	return nil
}

func (b *fakeBuffer) Reset() error {
	b.mu.Lock()
	b.calls = nil
	b.resets++
	b.mu.Unlock()
	return nil
}

func (b *fakeBuffer) Handle() vk.CommandBuffer {
	return nil
}

func (b *fakeBuffer) BindIndexBuffer(buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	b.record("BindIndexBuffer(%d,%d)", offset, indexType)
}

func (b *fakeBuffer) BindVertexBuffers(firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	b.record("BindVertexBuffers(%d,%d)", firstBinding, len(buffers))
}

func (b *fakeBuffer) CopyBuffer(src, dst vk.Buffer, regions []vk.BufferCopy) {
	b.record("CopyBuffer(%d)", len(regions))
}

func (b *fakeBuffer) CopyImageToBuffer(src vk.Image, layout vk.ImageLayout, dst vk.Buffer, regions []vk.BufferImageCopy) {
	b.record("CopyImageToBuffer(%d,%d)", layout, len(regions))
}

func (b *fakeBuffer) CopyBufferToImage(src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	b.record("CopyBufferToImage(%d,%d)", layout, len(regions))
}

func (b *fakeBuffer) FillBuffer(dst vk.Buffer, offset, size vk.DeviceSize, data uint32) {
	b.record("FillBuffer(%d,%d,%d)", offset, size, data)
}

func (b *fakeBuffer) UpdateBuffer(dst vk.Buffer, offset vk.DeviceSize, data []byte) {
	b.record("UpdateBuffer(%d,%v)", offset, data)
}

func (b *fakeBuffer) ClearColorImage(image vk.Image, layout vk.ImageLayout, color [4]float32, ranges []vk.ImageSubresourceRange) {
	b.record("ClearColorImage(%v,%d)", color, len(ranges))
}

func (b *fakeBuffer) BlitImage(src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	b.record("BlitImage(%d,%d,%d)", len(regions), filter, dstLayout)
}

func (b *fakeBuffer) BindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	b.record("BindPipeline(%d)", bindPoint)
}

func (b *fakeBuffer) BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	b.record("BindDescriptorSets(%d,%d,%d)", bindPoint, firstSet, len(sets))
}

func (b *fakeBuffer) PushConstants(layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	b.record("PushConstants(%d,%v)", offset, data)
}

func (b *fakeBuffer) Dispatch(x, y, z uint32) {
	b.record("Dispatch(%d,%d,%d)", x, y, z)
}

func (b *fakeBuffer) PipelineBarrier(src, dst vk.PipelineStageFlags, deps vk.DependencyFlags, memory []vk.MemoryBarrier, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	b.record("Barrier(%#x,%#x,%d,%d,%d)", uint32(src), uint32(dst), len(memory), len(buffers), len(images))
}

//graphicsFamilies is a single family that can do everything
func graphicsFamilies() []QueueFamily {
	return []QueueFamily{{
		Index:   0,
		Flags:   vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit),
		Count:   1,
		Present: true,
	}}
}

//testUsage returns fast defaults, edit applies test specific changes
func testUsage(edit func(u *Usage)) *Usage {
	u := NewUsage("test")
	u.PollInterval = Duration{100 * time.Microsecond}
	u.FenceTimeout = Duration{2 * time.Second}
	if edit != nil {
		edit(u)
	}
	return u
}

func newTestQueue(t *testing.T, edit func(u *Usage)) (*CoreQueue, *fakeNative) {
	t.Helper()
	native := newFakeNative()
	q, err := newCoreQueue(native, graphicsFamilies(), testUsage(edit), nil)
	require.NoError(t, err)
	return q, native
}

func dispatch(n uint32) string {
	return fmt.Sprintf("Dispatch(%d,0,0)", n)
}
