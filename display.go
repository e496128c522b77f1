package voxelvk

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//InitWindowing starts glfw and loads vulkan through the loader glfw found. Call it from the
//main goroutine before anything else, with runtime.LockOSThread in effect.
func InitWindowing() error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "glfw init")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("glfw: vulkan is not supported")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "vulkan init")
	}
	return nil
}

//NewWindow opens a window without a client API, vulkan presents into it through a surface
func NewWindow(usage WindowUsage) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(usage.Width, usage.Height, usage.Title, nil, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create window %q", usage.Title)
	}
	return window, nil
}

//RequiredExtensions are the instance extensions the window system needs
func RequiredExtensions(window *glfw.Window) []string {
	return window.GetRequiredInstanceExtensions()
}

//CoreDisplay pairs a window with its vulkan surface
type CoreDisplay struct {
	window   *glfw.Window
	instance vk.Instance
	surface  vk.Surface
}

//NewCoreDisplay creates the surface for window on instance
func NewCoreDisplay(window *glfw.Window, instance *CoreInstance) (*CoreDisplay, error) {
	ptr, err := window.CreateWindowSurface(instance.Handle(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window surface")
	}
	return &CoreDisplay{
		window:   window,
		instance: instance.Handle(),
		surface:  vk.SurfaceFromPointer(ptr),
	}, nil
}

func (d *CoreDisplay) Window() *glfw.Window {
	return d.window
}

func (d *CoreDisplay) Surface() vk.Surface {
	return d.surface
}

//Size is the framebuffer size in pixels, zero while the window is minimized
func (d *CoreDisplay) Size() (uint32, uint32) {
	w, h := d.window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

//ShouldClose polls window events and reports whether the user asked to close
func (d *CoreDisplay) ShouldClose() bool {
	glfw.PollEvents()
	return d.window.ShouldClose()
}

//Destroy releases the surface, the window stays with its owner
func (d *CoreDisplay) Destroy() {
	if d.surface != vk.NullSurface {
		vk.DestroySurface(d.instance, d.surface, nil)
		d.surface = vk.NullSurface
	}
}
