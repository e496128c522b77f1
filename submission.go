package voxelvk

import (
	"time"

	"github.com/pkg/errors"
)

//Submission is the receipt of a submitted recorder. It completes when the GPU finished the
//cycle of the command buffer the recorder's work was flushed in.
type Submission struct {
	queue *CoreQueue
	pool  *CorePool
	index int
	cycle uint64
}

//Index is the buffer slot the work was recorded on
func (s *Submission) Index() int {
	return s.index
}

//Pool is the index of the pool owning the buffer
func (s *Submission) Pool() int {
	return s.pool.index
}

func (s *Submission) finished(buf *CommandBuffer) bool {
	return buf.cycle > s.cycle
}

//Done polls the fence without blocking. A finished submission whose work never reached the
//GPU reports true with the failure.
func (s *Submission) Done() (bool, error) {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()

	buf := s.pool.buffers[s.index]
	if !s.finished(buf) {
		if err := s.pool.poll(buf); err != nil {
			return false, err
		}
		if !s.finished(buf) {
			return false, nil
		}
	}
	return true, s.failed(buf)
}

func (s *Submission) failed(buf *CommandBuffer) error {
	if err := buf.failure(s.cycle); err != nil {
		return errors.Wrapf(err, "submission on buffer %d/%d never ran", s.pool.index, s.index)
	}
	return nil
}

//Wait blocks until the work completed or the usage fence timeout expired
func (s *Submission) Wait() error {
	return s.WaitTimeout(s.queue.usage.FenceTimeout.Duration)
}

//WaitTimeout blocks until the work completed, ErrTimeout when timeout expires first
func (s *Submission) WaitTimeout(timeout time.Duration) error {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()

	buf := s.pool.buffers[s.index]
	err := s.pool.await(buf, func() bool { return s.finished(buf) }, timeout, s.queue.usage.PollInterval.Duration)
	if err != nil {
		return errors.Wrapf(err, "submission on buffer %d/%d", s.pool.index, s.index)
	}
	return s.failed(buf)
}
