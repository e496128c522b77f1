package voxelvk

import (
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//SwapchainUsage is what the renderer does with swapchain images: blit into them, write
//them from compute shaders and attach them as color targets
const SwapchainUsage = vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit | vk.ImageUsageStorageBit)

//ChoosePresentMode prefers the first uncapped mode, immediate or mailbox, and falls back to
//fifo which every surface supports
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeImmediate || m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

//ChooseSurfaceFormat picks B8G8R8A8 unorm when offered, which compute shaders can write and
//blits can target, otherwise the first format. An undefined first format leaves the choice
//to us.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, errors.New("surface reports no formats")
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm {
			return f, nil
		}
	}
	if formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: formats[0].ColorSpace}, nil
	}
	return formats[0], nil
}

//ChooseExtent uses the surface extent when the surface dictates one, otherwise the window
//size clamped to what the surface allows
func ChooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

//ChooseImageCount asks for the minimum count, at least two, within the surface maximum
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount
	if count < 2 {
		count = 2
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func chooseCompositeAlpha(caps vk.SurfaceCapabilities) vk.CompositeAlphaFlagBits {
	for _, alpha := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(alpha) != 0 {
			return alpha
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

//CoreSwapchain is the swapchain of a display with a view per image
type CoreSwapchain struct {
	device  *CoreDevice
	display *CoreDisplay

	handle vk.Swapchain
	format vk.SurfaceFormat
	extent vk.Extent2D
	mode   vk.PresentMode
	usage  vk.ImageUsageFlags
	images []*CoreImage
}

//NewCoreSwapchain creates the swapchain for display sized to its framebuffer
func NewCoreSwapchain(device *CoreDevice, display *CoreDisplay) (*CoreSwapchain, error) {
	s := &CoreSwapchain{device: device, display: display}
	if err := s.create(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CoreSwapchain) create() (err error) {
	defer checkErr(&err)

	gpu := s.device.Adapter().Handle()
	surface := s.display.Surface()
	logs := s.device.Logs()

	var caps vk.SurfaceCapabilities
	if ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps); isError(ret) {
		return errors.Wrap(NewError(ret), "surface capabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	formats, err := surfaceFormats(gpu, surface)
	if err != nil {
		return err
	}
	modes, err := presentModes(gpu, surface)
	if err != nil {
		return err
	}

	format, err := ChooseSurfaceFormat(formats)
	if err != nil {
		return err
	}
	width, height := s.display.Size()
	extent := ChooseExtent(caps, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		return errors.Wrap(ErrOutOfDate, "surface has zero size")
	}
	mode := ChoosePresentMode(modes)
	usage := SwapchainUsage & caps.SupportedUsageFlags
	if usage&vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) == 0 {
		return errors.Errorf("surface images can not be blit targets, usage %#x", uint32(caps.SupportedUsageFlags))
	}

	transform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		transform = vk.SurfaceTransformIdentityBit
	}

	old := s.handle
	var handle vk.Swapchain
	ret := vk.CreateSwapchain(s.device.Handle(), &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    ChooseImageCount(caps),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       usage,
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     transform,
		CompositeAlpha:   chooseCompositeAlpha(caps),
		PresentMode:      mode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}, nil, &handle)
	if isError(ret) {
		return errors.Wrap(NewError(ret), "create swapchain")
	}

	s.destroyImages()
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(s.device.Handle(), old, nil)
	}
	s.handle, s.format, s.extent, s.mode, s.usage = handle, format, extent, mode, usage

	var count uint32
	vk.GetSwapchainImages(s.device.Handle(), handle, &count, nil)
	images := make([]vk.Image, count)
	if ret := vk.GetSwapchainImages(s.device.Handle(), handle, &count, images); isError(ret) {
		return errors.Wrap(NewError(ret), "swapchain images")
	}
	info := ImageInfo{
		Format: format.Format,
		Extent: vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		Usage:  usage,
	}
	for _, image := range images {
		view, err := s.device.CreateImageView(image, vk.ImageViewType2d, format.Format)
		if err != nil {
			return err
		}
		s.images = append(s.images, &CoreImage{handle: image, view: view, info: info})
	}

	logs.Info.Printf("swapchain %dx%d, %d images, present mode %d", extent.Width, extent.Height, count, mode)
	return nil
}

//Recreate waits for the device and rebuilds the swapchain for the current window size
func (s *CoreSwapchain) Recreate() error {
	if err := s.device.WaitIdle(); err != nil {
		return err
	}
	return s.create()
}

//AcquireNext returns the index of the next image, signaling semaphore once it can be
//written. ErrOutOfDate asks for Recreate, a suboptimal swapchain is still used.
func (s *CoreSwapchain) AcquireNext(semaphore vk.Semaphore, timeout time.Duration) (uint32, error) {
	var index uint32
	ret := vk.AcquireNextImage(s.device.Handle(), s.handle, uint64(timeout.Nanoseconds()), semaphore, vk.NullFence, &index)
	switch ret {
	case vk.Success, vk.Suboptimal:
		return index, nil
	case vk.ErrorOutOfDate:
		return 0, ErrOutOfDate
	case vk.Timeout, vk.NotReady:
		return 0, errors.Wrap(ErrTimeout, "acquire swapchain image")
	default:
		return 0, errors.Wrap(NewError(ret), "acquire swapchain image")
	}
}

func (s *CoreSwapchain) Handle() vk.Swapchain {
	return s.handle
}

func (s *CoreSwapchain) Extent() vk.Extent2D {
	return s.extent
}

func (s *CoreSwapchain) Format() vk.SurfaceFormat {
	return s.format
}

func (s *CoreSwapchain) Dimensions() SwapchainDimensions {
	return SwapchainDimensions{Width: s.extent.Width, Height: s.extent.Height, Format: s.format.Format}
}

//Usage is the image usage the swapchain was created with, storage may be missing
func (s *CoreSwapchain) Usage() vk.ImageUsageFlags {
	return s.usage
}

func (s *CoreSwapchain) Image(index uint32) *CoreImage {
	return s.images[index]
}

func (s *CoreSwapchain) Len() int {
	return len(s.images)
}

func (s *CoreSwapchain) destroyImages() {
	for _, image := range s.images {
		s.device.DestroyImage(image)
	}
	s.images = nil
}

func (s *CoreSwapchain) Destroy() {
	s.destroyImages()
	if s.handle != vk.NullSwapchain {
		vk.DestroySwapchain(s.device.Handle(), s.handle, nil)
		s.handle = vk.NullSwapchain
	}
}
