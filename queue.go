package voxelvk

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//QueueFamily describes one queue family of a physical device
type QueueFamily struct {
	Index   uint32
	Flags   vk.QueueFlags
	Count   uint32
	Present bool
}

//PickQueueFamily returns the first family whose flags contain every required bit and which
//can present when presenting is requested.
func PickQueueFamily(families []QueueFamily, supportsPresenting bool, required vk.QueueFlags) (uint32, error) {
	for _, family := range families {
		if family.Flags&required != required {
			continue
		}
		if supportsPresenting && !family.Present {
			continue
		}
		return family.Index, nil
	}
	return 0, errors.Wrapf(ErrNoQueueFamily, "flags %#x, present %t", uint32(required), supportsPresenting)
}

//CoreQueue is the single graphics queue of a device together with its command pools.
//Recorders are acquired from the queue and submitted back to it.
type CoreQueue struct {
	family uint32
	flags  vk.QueueFlags
	native Native
	queue  NativeQueue
	usage  *Usage
	logs   *Logs

	// guards pools and frame
	mu    sync.Mutex
	pools []*CorePool
	frame FrameSync

	// host synchronization of the native queue
	submitMu sync.Mutex

	// closed and replaced whenever a buffer is released
	releaseMu sync.Mutex
	release   chan struct{}
}

//NewCoreQueue binds the graphics queue of device, with the capabilities of the usage mode,
//and creates its first command pool.
func NewCoreQueue(device *CoreDevice, adapter *CoreAdapter) (*CoreQueue, error) {
	return newCoreQueue(device.Native(), adapter.Families(), device.usage, device.logs)
}

func newCoreQueue(native Native, families []QueueFamily, usage *Usage, logs *Logs) (*CoreQueue, error) {
	if usage == nil {
		usage = NewUsage("voxelvk")
	}
	if err := usage.Validate(); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = DiscardLogs()
	}

	family, err := PickQueueFamily(families, usage.Mode.Has(VulkanPresent), usage.Mode.QueueFlags())
	if err != nil {
		return nil, err
	}

	q := &CoreQueue{
		family:  family,
		native:  native,
		queue:   native.Queue(family, 0),
		usage:   usage,
		logs:    logs,
		release: make(chan struct{}),
	}
	for _, f := range families {
		if f.Index == family {
			q.flags = f.Flags
		}
	}

	if _, err := q.grow(); err != nil {
		return nil, err
	}
	logs.Info.Printf("queue bound to family %d, %d buffers per pool, %s submits", family, usage.PoolCapacity, usage.SubmitMode)
	return q, nil
}

//Family is the queue family index the queue was bound to
func (q *CoreQueue) Family() uint32 {
	return q.family
}

//Flags are the capabilities of the bound family
func (q *CoreQueue) Flags() vk.QueueFlags {
	return q.flags
}

//Pools returns the number of command pools created so far
func (q *CoreQueue) Pools() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pools)
}

//Pool returns the command pool at index
func (q *CoreQueue) Pool(index int) *CorePool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pools[index]
}

// grow adds a pool, caller holds mu or owns q exclusively
func (q *CoreQueue) grow() (*CorePool, error) {
	pool, err := NewCorePool(q.native, q.family, q.usage.PoolCapacity, q.logs)
	if err != nil {
		return nil, err
	}
	pool.index = len(q.pools)
	pool.released = q.notify
	q.pools = append(q.pools, pool)
	return pool, nil
}

func (q *CoreQueue) notify() {
	q.releaseMu.Lock()
	close(q.release)
	q.release = make(chan struct{})
	q.releaseMu.Unlock()
}

func (q *CoreQueue) released() <-chan struct{} {
	q.releaseMu.Lock()
	defer q.releaseMu.Unlock()
	return q.release
}

//Acquire returns a recorder on a free command buffer. A chainable recorder may share a
//buffer that is still recording for another chainable recorder, their work is then submitted
//together. When every buffer is taken and the queue already has Usage.MaxPools pools the
//result is ErrPoolExhausted.
func (q *CoreQueue) Acquire(chainable bool) (*Recorder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, pool := range q.pools {
		rec, err := pool.acquire(chainable)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			rec.queue = q
			return rec, nil
		}
	}

	if len(q.pools) >= q.usage.MaxPools {
		return nil, ErrPoolExhausted
	}

	pool, err := q.grow()
	if err != nil {
		return nil, err
	}
	q.logs.Warn.Printf("all %d command pools exhausted, created pool %d", pool.index, pool.index)

	rec, err := pool.acquire(chainable)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrPoolExhausted
	}
	rec.queue = q
	return rec, nil
}

//AcquireWait retries Acquire until a buffer frees up or ctx is done. It wakes up whenever a
//buffer is released and every Usage.PollInterval to poll the fences of pending buffers.
func (q *CoreQueue) AcquireWait(ctx context.Context, chainable bool) (*Recorder, error) {
	for {
		released := q.released()
		rec, err := q.Acquire(chainable)
		if !errors.Is(err, ErrPoolExhausted) {
			return rec, err
		}

		timer := time.NewTimer(q.usage.PollInterval.Duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-released:
		case <-timer.C:
		}
		timer.Stop()
	}
}

//SetFrameSync attaches the semaphores to every flush until ClearFrameSync
func (q *CoreQueue) SetFrameSync(sync FrameSync) {
	q.mu.Lock()
	q.frame = sync
	q.mu.Unlock()
}

func (q *CoreQueue) ClearFrameSync() {
	q.SetFrameSync(FrameSync{})
}

func (q *CoreQueue) frameSync() FrameSync {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.frame
}

//Submit hands the recorder back. Its commands are replayed and submitted to the GPU once no
//other chained recorder is open on the same buffer, until then the submission is deferred.
func (q *CoreQueue) Submit(rec *Recorder) (*Submission, error) {
	return q.finish(rec, false, false, nil)
}

//SubmitForce flushes the buffer right away even if chained recorders are still open on it.
//Their work goes into the next submission of the same buffer.
func (q *CoreQueue) SubmitForce(rec *Recorder) (*Submission, error) {
	return q.finish(rec, true, false, nil)
}

//SubmitSync flushes right away like SubmitForce, waiting on and signaling the semaphores of
//sync instead of the queue frame sync. Frame submissions use it so the semaphores are
//consumed by exactly this flush.
func (q *CoreQueue) SubmitSync(rec *Recorder, sync FrameSync) (*Submission, error) {
	return q.finish(rec, true, false, &sync)
}

//Discard drops a recorder that was never submitted. Work other chained recorders already
//submitted on the buffer is flushed when the discarded recorder was the last one open.
//Discarding a submitted recorder does nothing, so it is safe to defer.
func (q *CoreQueue) Discard(rec *Recorder) {
	if rec == nil || rec.closed {
		return
	}
	if _, err := q.finish(rec, false, true, nil); err != nil {
		q.logs.Error.Printf("flush after discard of buffer %d/%d: %v", rec.pool, rec.index, err)
	}
}

func (q *CoreQueue) finish(rec *Recorder, force, discard bool, frame *FrameSync) (*Submission, error) {
	if rec == nil || rec.closed {
		return nil, ErrRecorderConsumed
	}
	if rec.queue != q {
		return nil, errors.Errorf("recorder for buffer %d/%d belongs to another queue", rec.pool, rec.index)
	}
	rec.closed = true

	pool := q.Pool(rec.pool)
	buf := pool.buffers[rec.index]
	sub := &Submission{queue: q, pool: pool, index: rec.index}

	state := rec.state
	rec.state = nil
	if discard {
		q.logs.Debug.Printf("discard %d commands on buffer %d/%d", state.Len(), rec.pool, rec.index)
		state = nil
	}

	pool.mu.Lock()
	if buf.holders > 1 && !force {
		buf.restore(state)
		buf.holders--
		open := buf.holders
		sub.cycle = buf.nextCycle()
		pool.mu.Unlock()
		q.logs.Debug.Printf("submission on buffer %d/%d deferred, %d chained recorders open", rec.pool, rec.index, open)
		return sub, nil
	}

	if discard && buf.holders == 1 && (buf.state == nil || buf.state.Empty()) {
		buf.holders--
		if buf.state == nil {
			buf.state = &State{}
		}
		// deferred submissions of the open cycle had nothing to run
		switch buf.status {
		case BufferRecording:
			buf.cycle++
			buf.setStatus(BufferIdle)
			pool.released()
		case BufferPending:
			buf.retire(buf.nextCycle(), nil)
		}
		pool.mu.Unlock()
		return nil, nil
	}

	// a forced cycle may still run on this buffer
	err := pool.await(buf, func() bool { return buf.status != BufferPending },
		q.usage.FenceTimeout.Duration, q.usage.PollInterval.Duration)
	if err != nil {
		err = errors.Wrapf(err, "buffer %d/%d still pending", rec.pool, rec.index)
		buf.holders--
		if buf.state == nil {
			buf.state = &State{}
		}
		if buf.holders == 0 && !buf.state.Empty() {
			// nobody is left to flush the deferred work
			buf.retire(buf.nextCycle(), err)
			buf.state = &State{}
		}
		pool.mu.Unlock()
		return nil, err
	}

	buf.restore(state)
	buf.holders--
	state = buf.state
	buf.state = &State{}
	buf.setStatus(BufferPending)
	sub.cycle = buf.cycle
	pool.mu.Unlock()

	if err := q.flush(buf, state, frame); err != nil {
		pool.mu.Lock()
		pool.abandon(buf, err)
		pool.mu.Unlock()
		q.logs.Error.Printf("flush of buffer %d/%d: %v", rec.pool, rec.index, err)
		return nil, err
	}

	if q.usage.SubmitMode == SubmitIdle {
		if err := q.WaitIdle(); err != nil {
			pool.mu.Lock()
			if buf.status == BufferPending && buf.cycle == sub.cycle {
				pool.abandon(buf, err)
			}
			pool.mu.Unlock()
			return nil, err
		}
		pool.mu.Lock()
		if buf.status == BufferPending && buf.cycle == sub.cycle {
			err = pool.complete(buf)
		}
		pool.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	return sub, nil
}

//flush replays state into the native buffer and submits it with the buffer fence. buf is
//Pending, so no acquire can observe it while the pool lock is released. A nil frame means
//the queue frame sync.
func (q *CoreQueue) flush(buf *CommandBuffer, state *State, frame *FrameSync) error {
	commands, barriers := len(state.Commands), len(state.Barriers)

	if err := buf.native.Reset(); err != nil {
		return errors.Wrap(err, "reset command buffer")
	}
	if err := buf.native.Begin(); err != nil {
		return errors.Wrap(err, "begin command buffer")
	}
	state.Finish(buf.native)
	if err := buf.native.End(); err != nil {
		return errors.Wrap(err, "end command buffer")
	}

	var fence NativeFence
	if q.usage.SubmitMode == SubmitFence {
		fence = buf.fence
	}

	sync := q.frameSync()
	if frame != nil {
		sync = *frame
	}
	q.submitMu.Lock()
	err := q.queue.Submit([]NativeBuffer{buf.native}, sync, fence)
	q.submitMu.Unlock()
	if err != nil {
		return errors.Wrap(err, "queue submit")
	}

	q.logs.Debug.Printf("flushed %d commands, %d barriers", commands, barriers)
	return nil
}

//Present hands a swapchain image to the presentation engine once wait is signaled
func (q *CoreQueue) Present(swapchain vk.Swapchain, index uint32, wait []vk.Semaphore) error {
	q.submitMu.Lock()
	defer q.submitMu.Unlock()
	return q.queue.Present(swapchain, index, wait)
}

//WaitIdle blocks until the queue has finished all submitted work
func (q *CoreQueue) WaitIdle() error {
	q.submitMu.Lock()
	defer q.submitMu.Unlock()
	if err := q.queue.WaitIdle(); err != nil {
		return errors.Wrap(err, "queue wait idle")
	}
	return nil
}

//Destroy waits for the queue and releases every pool
func (q *CoreQueue) Destroy() {
	if err := q.WaitIdle(); err != nil {
		q.logs.Error.Printf("destroy queue: %v", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, pool := range q.pools {
		pool.Destroy()
	}
	q.pools = nil
}
