package voxelvk

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//FramesInFlight is how many frames the CPU may record ahead of the GPU
const FramesInFlight = 2

//BaseCore brings up the whole stack for a usage: logs, instance, the window surface,
//adapter, device, queue and, when presenting, the swapchain with its frame ring. Core
//objects are created in that order and destroyed in reverse.
type BaseCore struct {
	usage *Usage
	logs  *Logs

	window    *glfw.Window
	instance  *CoreInstance
	display   *CoreDisplay
	adapter   *CoreAdapter
	device    *CoreDevice
	queue     *CoreQueue
	sync      *SyncManager
	swapchain *CoreSwapchain
	frames    *FrameContext
}

//NewBaseCore creates the core for usage. window is required when the usage mode presents
//and ignored otherwise. On error everything created so far is released.
func NewBaseCore(usage *Usage, window *glfw.Window) (core *BaseCore, err error) {
	if err := usage.Validate(); err != nil {
		return nil, err
	}
	presenting := usage.Mode.Has(VulkanPresent)
	if presenting && window == nil {
		return nil, errors.Errorf("usage %q presents but no window was given", usage.Name)
	}

	logs, err := NewLogs(usage.LogDir, usage.Debug)
	if err != nil {
		return nil, err
	}
	core = &BaseCore{usage: usage, logs: logs}
	defer func() {
		if err != nil {
			core.Destroy()
			core = nil
		}
	}()

	var required []string
	if presenting {
		core.window = window
		required = RequiredExtensions(window)
	}
	if core.instance, err = NewCoreInstance(usage, required, logs); err != nil {
		return core, err
	}

	if presenting {
		if core.display, err = NewCoreDisplay(window, core.instance); err != nil {
			return core, err
		}
		core.adapter, err = PickAdapter(core.instance, core.display.Surface(), logs)
	} else {
		core.adapter, err = PickAdapter(core.instance, vk.NullSurface, logs)
	}
	if err != nil {
		return core, err
	}

	if core.device, err = NewCoreDevice(core.instance, core.adapter, usage, logs); err != nil {
		return core, err
	}
	if core.queue, err = NewCoreQueue(core.device, core.adapter); err != nil {
		return core, err
	}
	core.sync = NewSyncManager(core.device)

	if presenting {
		if core.swapchain, err = NewCoreSwapchain(core.device, core.display); err != nil {
			return core, err
		}
		if core.frames, err = NewFrameContext(core.queue, core.sync, FramesInFlight); err != nil {
			return core, err
		}
	}
	logs.Info.Printf("core %q ready, mode %s", usage.Name, usage.Mode)
	return core, nil
}

func (c *BaseCore) Usage() *Usage {
	return c.usage
}

func (c *BaseCore) Logs() *Logs {
	return c.logs
}

func (c *BaseCore) Instance() *CoreInstance {
	return c.instance
}

func (c *BaseCore) Display() *CoreDisplay {
	return c.display
}

func (c *BaseCore) Adapter() *CoreAdapter {
	return c.adapter
}

func (c *BaseCore) Device() *CoreDevice {
	return c.device
}

func (c *BaseCore) Queue() *CoreQueue {
	return c.queue
}

func (c *BaseCore) Sync() *SyncManager {
	return c.sync
}

//Swapchain is nil for headless cores
func (c *BaseCore) Swapchain() *CoreSwapchain {
	return c.swapchain
}

//Frames is nil for headless cores
func (c *BaseCore) Frames() *FrameContext {
	return c.frames
}

//Fatal logs err and exits after destroying the core
func (c *BaseCore) Fatal(err error) {
	if err == nil {
		return
	}
	if c.logs != nil {
		c.logs.Error.Printf("%+v", err)
	}
	Fatal(c.usage.LogDir, err, c.Destroy)
}

//Destroy waits for the GPU and releases everything NewBaseCore created
func (c *BaseCore) Destroy() {
	if c.frames != nil {
		if err := c.frames.Wait(); err != nil {
			c.logs.Error.Printf("wait for frames: %v", err)
		}
		c.frames = nil
	}
	if c.queue != nil {
		c.queue.Destroy()
		c.queue = nil
	}
	if c.sync != nil {
		c.sync.Destroy()
		c.sync = nil
	}
	if c.swapchain != nil {
		c.swapchain.Destroy()
		c.swapchain = nil
	}
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
	}
	if c.display != nil {
		c.display.Destroy()
		c.display = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
	if c.logs != nil {
		c.logs.Close()
	}
}
