package voxelvk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

//SyncDevice creates and destroys the synchronization objects a SyncManager hands out.
//CoreDevice implements it.
type SyncDevice interface {
	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(semaphore vk.Semaphore)
	CreateFence(signaled bool) (vk.Fence, error)
	DestroyFence(fence vk.Fence)
}

// SyncManager keeps track of the semaphores and fences created for rendering so they can be
// released together when the device goes away. It is safe for concurrent use.
type SyncManager struct {
	device SyncDevice

	mu         sync.Mutex
	semaphores []vk.Semaphore
	fences     []vk.Fence
}

func NewSyncManager(device SyncDevice) *SyncManager {
	return &SyncManager{device: device}
}

func (m *SyncManager) Semaphore() (vk.Semaphore, error) {
	semaphore, err := m.device.CreateSemaphore()
	if err != nil {
		return vk.NullSemaphore, err
	}
	m.mu.Lock()
	m.semaphores = append(m.semaphores, semaphore)
	m.mu.Unlock()
	return semaphore, nil
}

//Semaphores creates count semaphores, on failure the ones already created stay tracked
func (m *SyncManager) Semaphores(count int) ([]vk.Semaphore, error) {
	out := make([]vk.Semaphore, 0, count)
	for i := 0; i < count; i++ {
		semaphore, err := m.Semaphore()
		if err != nil {
			return nil, err
		}
		out = append(out, semaphore)
	}
	return out, nil
}

func (m *SyncManager) Fence(signaled bool) (vk.Fence, error) {
	fence, err := m.device.CreateFence(signaled)
	if err != nil {
		return vk.NullFence, err
	}
	m.mu.Lock()
	m.fences = append(m.fences, fence)
	m.mu.Unlock()
	return fence, nil
}

//Tracked returns how many semaphores and fences are alive
func (m *SyncManager) Tracked() (semaphores, fences int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.semaphores), len(m.fences)
}

// Destroy releases every tracked object. The GPU must be done with them, wait for the
// device to go idle first.
func (m *SyncManager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, semaphore := range m.semaphores {
		m.device.DestroySemaphore(semaphore)
	}
	for _, fence := range m.fences {
		m.device.DestroyFence(fence)
	}
	m.semaphores = nil
	m.fences = nil
}
