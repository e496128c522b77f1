package voxelvk

import (
	"context"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//Frame is one frame in flight. Acquire is signaled when the swapchain image is ready and
//waited on by the frame submission, which in turn signals Release for present to wait on.
type Frame struct {
	Index   int
	Acquire vk.Semaphore
	Release vk.Semaphore
	// Image is the swapchain image the frame renders into, set by the caller after acquiring
	Image uint32

	recorder *Recorder
	last     *Submission
}

//Recorder is the frame's recorder between BeginFrame and EndFrame
func (f *Frame) Recorder() *Recorder {
	return f.recorder
}

//FrameContext cycles through a fixed ring of frames. It is driven by one render goroutine,
//other goroutines keep submitting through the queue as usual.
type FrameContext struct {
	queue     *CoreQueue
	frames    []*Frame
	current   int
	waitStage vk.PipelineStageFlags
	logs      *Logs
}

//NewFrameContext creates count frames with their semaphores taken from sync
func NewFrameContext(queue *CoreQueue, sync *SyncManager, count int) (*FrameContext, error) {
	if count < 1 {
		return nil, errors.Errorf("frame context needs at least one frame, got %d", count)
	}
	c := &FrameContext{
		queue:     queue,
		waitStage: vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		logs:      queue.logs,
	}
	for i := 0; i < count; i++ {
		semaphores, err := sync.Semaphores(2)
		if err != nil {
			return nil, errors.Wrapf(err, "semaphores of frame %d", i)
		}
		c.frames = append(c.frames, &Frame{
			Index:   i,
			Acquire: semaphores[0],
			Release: semaphores[1],
		})
	}
	return c, nil
}

//SetWaitStage sets the stage at which frame submissions wait for the acquire semaphore
func (c *FrameContext) SetWaitStage(stage vk.PipelineStageFlags) {
	c.waitStage = stage
}

func (c *FrameContext) Frames() int {
	return len(c.frames)
}

//Current is the frame the next BeginFrame returns
func (c *FrameContext) Current() *Frame {
	return c.frames[c.current]
}

//BeginFrame waits until the GPU finished the last use of the current frame and opens a
//non chainable recorder for it. The recorder is submitted by EndFrame.
func (c *FrameContext) BeginFrame(ctx context.Context) (*Frame, *Recorder, error) {
	frame := c.frames[c.current]
	if frame.recorder != nil {
		return nil, nil, errors.Errorf("frame %d already begun", frame.Index)
	}
	if frame.last != nil {
		if err := frame.last.Wait(); err != nil {
			return nil, nil, errors.Wrapf(err, "frame %d", frame.Index)
		}
		frame.last = nil
	}

	rec, err := c.queue.AcquireWait(ctx, false)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "recorder for frame %d", frame.Index)
	}
	frame.recorder = rec
	return frame, rec, nil
}

//EndFrame submits the frame's recorder waiting on Acquire and signaling Release, then moves
//on to the next frame of the ring.
func (c *FrameContext) EndFrame(frame *Frame) (*Submission, error) {
	if frame == nil || frame.recorder == nil {
		return nil, errors.New("end of a frame that was not begun")
	}
	rec := frame.recorder
	frame.recorder = nil
	c.current = (c.current + 1) % len(c.frames)

	sub, err := c.queue.SubmitSync(rec, FrameSync{
		Wait:       []vk.Semaphore{frame.Acquire},
		WaitStages: []vk.PipelineStageFlags{c.waitStage},
		Signal:     []vk.Semaphore{frame.Release},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "submit frame %d", frame.Index)
	}
	frame.last = sub
	return sub, nil
}

//CancelFrame drops the recorder of a begun frame without submitting it
func (c *FrameContext) CancelFrame(frame *Frame) {
	if frame == nil || frame.recorder == nil {
		return
	}
	c.queue.Discard(frame.recorder)
	frame.recorder = nil
}

//Present queues the frame's image of swapchain once its Release semaphore is signaled
func (c *FrameContext) Present(swapchain vk.Swapchain, frame *Frame) error {
	return c.queue.Present(swapchain, frame.Image, []vk.Semaphore{frame.Release})
}

//Wait blocks until every frame in flight completed
func (c *FrameContext) Wait() error {
	for _, frame := range c.frames {
		if frame.last == nil {
			continue
		}
		if err := frame.last.Wait(); err != nil {
			return errors.Wrapf(err, "frame %d", frame.Index)
		}
		frame.last = nil
	}
	return nil
}
