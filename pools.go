package voxelvk

import (
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//CorePool owns a fixed batch of primary command buffers allocated from one native command
//pool. Buffers are never allocated after construction, running out is reported as
//ErrPoolExhausted.
type CorePool struct {
	index   int
	family  uint32
	native  NativePool
	buffers []*CommandBuffer
	logs    *Logs

	// called with mu held whenever a buffer becomes available again
	released func()

	mu sync.Mutex
}

//NewCorePool creates a resettable command pool on the queue family, allocates capacity
//primary buffers in one batch and an unsignaled fence for each.
func NewCorePool(native Native, familyIndex uint32, capacity int, logs *Logs) (*CorePool, error) {
	if capacity <= 0 {
		return nil, errors.Errorf("command pool capacity must be positive, got %d", capacity)
	}
	if logs == nil {
		logs = DiscardLogs()
	}

	pool, err := native.CreateCommandPool(familyIndex, vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit))
	if err != nil {
		return nil, errors.Wrap(err, "create command pool")
	}

	raw, err := pool.Allocate(capacity)
	if err != nil {
		pool.Destroy(nil)
		return nil, errors.Wrapf(err, "allocate %d command buffers", capacity)
	}

	core := &CorePool{
		family:   familyIndex,
		native:   pool,
		buffers:  make([]*CommandBuffer, 0, capacity),
		logs:     logs,
		released: func() {},
	}
	for _, buf := range raw {
		fence, err := native.CreateFence(false)
		if err != nil {
			for _, created := range core.buffers {
				created.fence.Destroy()
			}
			pool.Destroy(raw)
			return nil, errors.Wrap(err, "create command buffer fence")
		}
		core.buffers = append(core.buffers, newCommandBuffer(buf, fence))
	}

	logs.Debug.Printf("command pool on family %d with %d buffers", familyIndex, capacity)
	return core, nil
}

//Index is the position of the pool within its queue
func (p *CorePool) Index() int {
	return p.index
}

func (p *CorePool) Capacity() int {
	return len(p.buffers)
}

//Status reports the lifecycle state of buffer i
func (p *CorePool) Status(i int) BufferStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[i].status
}

//Tags reports the flag view of buffer i
func (p *CorePool) Tags(i int) Tags {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[i].Tags()
}

//free returns the first buffer an acquire may use. Pending buffers whose fence signaled
//are completed on the way. Must be called with mu held.
func (p *CorePool) free(chainable bool) (int, error) {
	for i, buf := range p.buffers {
		if buf.status == BufferPending {
			if err := p.poll(buf); err != nil {
				return 0, err
			}
		}
		if buf.eligible(chainable) {
			return i, nil
		}
	}
	return 0, ErrPoolExhausted
}

//acquire claims a buffer for a new recorder, nil when the pool is exhausted
func (p *CorePool) acquire(chainable bool) (*Recorder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	index, err := p.free(chainable)
	if err != nil {
		if errors.Is(err, ErrPoolExhausted) {
			return nil, nil
		}
		return nil, err
	}

	buf := p.buffers[index]
	chained := buf.holders > 0
	buf.setStatus(BufferRecording)
	buf.chainable = chainable
	state := buf.take()
	buf.holders++

	if chained {
		p.logs.Debug.Printf("chained recorder on buffer %d/%d, %d holders", p.index, index, buf.holders)
	} else {
		p.logs.Debug.Printf("recorder on buffer %d/%d with %d commands, %d barriers", p.index, index, len(state.Commands), len(state.Barriers))
	}

	return &Recorder{
		pool:  p.index,
		index: index,
		state: state,
		raw:   buf.native.Handle(),
	}, nil
}

//poll completes buf if its fence signaled. Must be called with mu held.
func (p *CorePool) poll(buf *CommandBuffer) error {
	if buf.status != BufferPending {
		return nil
	}
	signaled, err := buf.fence.Signaled()
	if err != nil {
		return errors.Wrap(err, "poll command buffer fence")
	}
	if signaled {
		return p.complete(buf)
	}
	return nil
}

//complete finishes the pending cycle of buf. Must be called with mu held.
func (p *CorePool) complete(buf *CommandBuffer) error {
	if err := buf.fence.Reset(); err != nil {
		return errors.Wrap(err, "reset command buffer fence")
	}
	buf.settled()
	p.released()
	return nil
}

//abandon takes buf out of Pending after a failed flush. The fence never got submitted, so
//it is left alone. Submissions of the failed cycle report cause. Must be called with mu held.
func (p *CorePool) abandon(buf *CommandBuffer, cause error) {
	if err := buf.native.Reset(); err != nil {
		p.logs.Error.Printf("reset of failed command buffer: %v", err)
	}
	buf.retire(buf.cycle, cause)
	buf.settled()
	p.released()
}

//await blocks until done holds, polling the fence of buf while it is pending and sleeping
//in slices otherwise. Must be called with mu held, the lock is released between slices.
func (p *CorePool) await(buf *CommandBuffer, done func() bool, timeout, slice time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !done() {
		if err := p.poll(buf); err != nil {
			return err
		}
		if done() {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		wait := slice
		if remaining < wait {
			wait = remaining
		}

		if buf.status == BufferPending {
			// fence waits stay under the lock so no other poller resets it meanwhile
			if err := buf.fence.Wait(wait); err != nil && !errors.Is(err, ErrTimeout) {
				return errors.Wrap(err, "wait for command buffer fence")
			}
			p.mu.Unlock()
			runtime.Gosched()
			p.mu.Lock()
		} else {
			p.mu.Unlock()
			time.Sleep(wait)
			p.mu.Lock()
		}
	}
	return nil
}

//Destroy frees the buffers, their fences and the native pool. The queue must be idle.
func (p *CorePool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw := make([]NativeBuffer, 0, len(p.buffers))
	for _, buf := range p.buffers {
		buf.fence.Destroy()
		raw = append(raw, buf.native)
	}
	if p.native != nil && len(raw) > 0 {
		p.native.Destroy(raw)
		p.native = nil
	}
	p.buffers = nil
}
