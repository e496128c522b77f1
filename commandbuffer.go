package voxelvk

import (
	"fmt"
)

//BufferStatus is the lifecycle of a pooled command buffer
type BufferStatus int

const (
	//BufferIdle buffers hold no open recorder and no GPU work
	BufferIdle BufferStatus = iota
	//BufferRecording buffers have at least one open recorder
	BufferRecording
	//BufferPending buffers were submitted and wait for their fence
	BufferPending
)

func (s BufferStatus) String() string {
	switch s {
	case BufferIdle:
		return "Idle"
	case BufferRecording:
		return "Recording"
	case BufferPending:
		return "Pending"
	}
	return fmt.Sprintf("BufferStatus(%d)", int(s))
}

//Tags is the flag view of a buffer (chainable, recording, pending)
type Tags uint32

const (
	TagChainable Tags = 1 << iota
	TagRecording
	TagPending
)

func (t Tags) Has(tag Tags) bool {
	return t&tag == tag
}

//transitions lists the legal status changes. Pending -> Recording happens when a buffer
//was force submitted while other chained recorders were still open on it.
var transitions = map[BufferStatus][]BufferStatus{
	BufferIdle:      {BufferRecording},
	BufferRecording: {BufferRecording, BufferPending, BufferIdle},
	BufferPending:   {BufferIdle, BufferRecording},
}

//CommandBuffer wraps one pre-allocated native command buffer and its recording state.
//All fields are guarded by the owning pool's lock.
type CommandBuffer struct {
	native NativeBuffer
	fence  NativeFence

	status    BufferStatus
	chainable bool

	// open recorders on this buffer
	holders int

	// stored state, nil while taken by the first holder
	state *State

	// completed submissions, a Submission of cycle c is done once cycle > c
	cycle uint64

	// cycles that ended without running, with the error reported to their submissions
	retired map[uint64]error
}

func newCommandBuffer(native NativeBuffer, fence NativeFence) *CommandBuffer {
	return &CommandBuffer{
		native:    native,
		fence:     fence,
		status:    BufferIdle,
		chainable: true,
		state:     &State{},
	}
}

func (c *CommandBuffer) setStatus(next BufferStatus) {
	for _, s := range transitions[c.status] {
		if s == next {
			c.status = next
			return
		}
	}
	panic(fmt.Sprintf("voxelvk: illegal command buffer transition %s -> %s", c.status, next))
}

//Tags derives the flag view of the buffer
func (c *CommandBuffer) Tags() Tags {
	var t Tags
	if c.chainable {
		t |= TagChainable
	}
	switch c.status {
	case BufferRecording:
		t |= TagRecording
	case BufferPending:
		t |= TagPending
	}
	return t
}

//eligible is the acquire predicate: an idle buffer, or, for a chainable request, one still
//recording that allows chaining. Pending buffers are never eligible.
func (c *CommandBuffer) eligible(chainable bool) bool {
	return c.status == BufferIdle || (chainable && c.status == BufferRecording && c.chainable)
}

//nextCycle is the cycle the stored state will be flushed in
func (c *CommandBuffer) nextCycle() uint64 {
	if c.status == BufferPending {
		return c.cycle + 1
	}
	return c.cycle
}

//settled moves a finished buffer out of Pending
func (c *CommandBuffer) settled() {
	c.cycle++
	for {
		if _, ok := c.retired[c.cycle]; !ok {
			break
		}
		c.cycle++
	}
	if c.holders > 0 {
		c.setStatus(BufferRecording)
	} else {
		c.setStatus(BufferIdle)
	}
}

//retire marks cycle as ended without GPU work. A nil err means there was nothing to run.
//The buffer never flushes in a retired cycle.
func (c *CommandBuffer) retire(cycle uint64, err error) {
	if c.retired == nil {
		c.retired = make(map[uint64]error)
	}
	c.retired[cycle] = err
}

//failure is the error of a retired cycle, nil for cycles that ran
func (c *CommandBuffer) failure(cycle uint64) error {
	return c.retired[cycle]
}

//take moves the stored state out. The first holder gets whatever was chained before,
//later holders start empty and are appended on submit.
func (c *CommandBuffer) take() *State {
	if c.holders == 0 {
		if c.state == nil {
			panic("voxelvk: command buffer state already taken")
		}
		s := c.state
		c.state = nil
		return s
	}
	return &State{}
}

//restore hands a recorder's state back to the buffer
func (c *CommandBuffer) restore(s *State) {
	if c.state == nil {
		c.state = &State{}
	}
	c.state.Append(s)
}
