package voxelvk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const swapchainExtension = "VK_KHR_swapchain"

//CoreDevice is the logical device with its single queue family and the memory allocator
//every buffer and image comes from
type CoreDevice struct {
	handle    vk.Device
	adapter   *CoreAdapter
	native    *vkNative
	allocator *DeviceAllocator
	usage     *Usage
	logs      *Logs
	family    uint32
}

//NewCoreDevice creates the logical device on adapter with one queue of the family the
//usage mode asks for. Device extensions from the usage are enabled when available, the
//swapchain extension is required when presenting.
func NewCoreDevice(instance *CoreInstance, adapter *CoreAdapter, usage *Usage, logs *Logs) (*CoreDevice, error) {
	if logs == nil {
		logs = DiscardLogs()
	}
	if err := usage.Validate(); err != nil {
		return nil, err
	}

	family, err := PickQueueFamily(adapter.Families(), usage.Mode.Has(VulkanPresent), usage.Mode.QueueFlags())
	if err != nil {
		return nil, err
	}

	actual, err := DeviceExtensions(adapter.Handle())
	if err != nil {
		return nil, errors.Wrap(err, "enumerate device extensions")
	}
	var required []string
	if usage.Mode.Has(VulkanPresent) {
		required = append(required, swapchainExtension)
	}
	extensions := NewExtensionSet(usage.DeviceExtensions, required, actual)
	if ok, missing := extensions.HasRequired(); !ok {
		return nil, errors.Errorf("adapter %q lacks device extensions %v", adapter.Name(), missing)
	}
	if ok, missing := extensions.HasWanted(); !ok {
		logs.Warn.Printf("device extensions not available: %v", missing)
	}
	enabled := extensions.Enabled()

	var device vk.Device
	ret := vk.CreateDevice(adapter.Handle(), &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: enabled,
		EnabledLayerCount:       uint32(len(instance.Layers())),
		PpEnabledLayerNames:     instance.Layers(),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{adapter.Features()},
	}, nil, &device)
	if isError(ret) {
		return nil, errors.Wrapf(NewError(ret), "create device on %q", adapter.Name())
	}
	logs.Info.Printf("device on %q, family %d, %d extensions", adapter.Name(), family, len(enabled))

	return &CoreDevice{
		handle:    device,
		adapter:   adapter,
		native:    newVkNative(device),
		allocator: NewDeviceAllocator(device, adapter.MemoryProperties(), DefaultBlockSize, logs),
		usage:     usage,
		logs:      logs,
		family:    family,
	}, nil
}

func (d *CoreDevice) Handle() vk.Device {
	return d.handle
}

//Native is the seam command pools and queues are created through
func (d *CoreDevice) Native() Native {
	return d.native
}

func (d *CoreDevice) Adapter() *CoreAdapter {
	return d.adapter
}

func (d *CoreDevice) Allocator() *DeviceAllocator {
	return d.allocator
}

//Family is the queue family the device queue was created on
func (d *CoreDevice) Family() uint32 {
	return d.family
}

func (d *CoreDevice) Usage() *Usage {
	return d.usage
}

func (d *CoreDevice) Logs() *Logs {
	return d.logs
}

//CreateBuffer creates an exclusive buffer of size bytes backed by memory at location
func (d *CoreDevice) CreateBuffer(size uint64, usage vk.BufferUsageFlags, location MemoryLocation) (*CoreBuffer, error) {
	var buffer vk.Buffer
	ret := vk.CreateBuffer(d.handle, &vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  vk.DeviceSize(size),
		Usage:                 usage,
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 1,
		PQueueFamilyIndices:   []uint32{d.family},
	}, nil, &buffer)
	if isError(ret) {
		return nil, errors.Wrapf(NewError(ret), "create buffer of %d bytes", size)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.handle, buffer, &req)
	req.Deref()

	allocation, err := d.allocator.Allocate(req, location)
	if err != nil {
		vk.DestroyBuffer(d.handle, buffer, nil)
		return nil, errors.Wrapf(err, "memory for buffer of %d bytes", size)
	}
	ret = vk.BindBufferMemory(d.handle, buffer, allocation.Memory(), allocation.Offset())
	if isError(ret) {
		d.allocator.Free(allocation)
		vk.DestroyBuffer(d.handle, buffer, nil)
		return nil, errors.Wrap(NewError(ret), "bind buffer memory")
	}

	d.logs.Debug.Printf("buffer of %d bytes at %s offset %d", size, location, allocation.Offset())
	return &CoreBuffer{handle: buffer, allocation: allocation, size: size, usage: usage}, nil
}

//DestroyBuffer releases the buffer and its memory
func (d *CoreDevice) DestroyBuffer(buffer *CoreBuffer) {
	if buffer == nil || buffer.handle == vk.NullBuffer {
		return
	}
	vk.DestroyBuffer(d.handle, buffer.handle, nil)
	d.allocator.Free(buffer.allocation)
	buffer.handle = vk.NullBuffer
	buffer.allocation = nil
}

//CreateImage creates an optimally tiled image with a view over all of it
func (d *CoreDevice) CreateImage(info ImageInfo, location MemoryLocation) (*CoreImage, error) {
	var image vk.Image
	ret := vk.CreateImage(d.handle, &vk.ImageCreateInfo{
		SType:                 vk.StructureTypeImageCreateInfo,
		ImageType:             info.imageType(),
		Format:                info.Format,
		Extent:                info.Extent,
		MipLevels:             1,
		ArrayLayers:           1,
		Samples:               vk.SampleCount1Bit,
		Tiling:                vk.ImageTilingOptimal,
		Usage:                 info.Usage,
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 1,
		PQueueFamilyIndices:   []uint32{d.family},
		InitialLayout:         vk.ImageLayoutUndefined,
	}, nil, &image)
	if isError(ret) {
		return nil, errors.Wrapf(NewError(ret), "create image %dx%dx%d", info.Extent.Width, info.Extent.Height, info.Extent.Depth)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, image, &req)
	req.Deref()

	allocation, err := d.allocator.Allocate(req, location)
	if err != nil {
		vk.DestroyImage(d.handle, image, nil)
		return nil, errors.Wrap(err, "memory for image")
	}
	ret = vk.BindImageMemory(d.handle, image, allocation.Memory(), allocation.Offset())
	if isError(ret) {
		d.allocator.Free(allocation)
		vk.DestroyImage(d.handle, image, nil)
		return nil, errors.Wrap(NewError(ret), "bind image memory")
	}

	view, err := d.CreateImageView(image, info.viewType(), info.Format)
	if err != nil {
		d.allocator.Free(allocation)
		vk.DestroyImage(d.handle, image, nil)
		return nil, err
	}
	return &CoreImage{handle: image, view: view, allocation: allocation, info: info, owned: true}, nil
}

//CreateImageView makes a color view over the first mip level and layer of image
func (d *CoreDevice) CreateImageView(image vk.Image, viewType vk.ImageViewType, format vk.Format) (vk.ImageView, error) {
	var view vk.ImageView
	ret := vk.CreateImageView(d.handle, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: ColorRange(),
	}, nil, &view)
	if isError(ret) {
		return vk.NullImageView, errors.Wrap(NewError(ret), "create image view")
	}
	return view, nil
}

//DestroyImage releases the view, and the image with its memory when the device created it
func (d *CoreDevice) DestroyImage(image *CoreImage) {
	if image == nil {
		return
	}
	if image.view != vk.NullImageView {
		vk.DestroyImageView(d.handle, image.view, nil)
		image.view = vk.NullImageView
	}
	if image.owned && image.handle != vk.NullImage {
		vk.DestroyImage(d.handle, image.handle, nil)
		d.allocator.Free(image.allocation)
	}
	image.handle = vk.NullImage
	image.allocation = nil
}

func (d *CoreDevice) CreateSemaphore() (vk.Semaphore, error) {
	var semaphore vk.Semaphore
	ret := vk.CreateSemaphore(d.handle, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &semaphore)
	if isError(ret) {
		return vk.NullSemaphore, errors.Wrap(NewError(ret), "create semaphore")
	}
	return semaphore, nil
}

func (d *CoreDevice) CreateFence(signaled bool) (vk.Fence, error) {
	f, err := d.native.CreateFence(signaled)
	if err != nil {
		return vk.NullFence, err
	}
	return f.(*vkFence).fence, nil
}

func (d *CoreDevice) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.handle, semaphore, nil)
}

func (d *CoreDevice) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(d.handle, fence, nil)
}

//WaitIdle blocks until every queue of the device is idle
func (d *CoreDevice) WaitIdle() error {
	if ret := vk.DeviceWaitIdle(d.handle); isError(ret) {
		return errors.Wrap(NewError(ret), "device wait idle")
	}
	return nil
}

//Destroy waits for the device, frees the allocator blocks and the device
func (d *CoreDevice) Destroy() {
	if d.handle == nil {
		return
	}
	if err := d.WaitIdle(); err != nil {
		d.logs.Error.Printf("destroy device: %v", err)
	}
	d.allocator.Destroy()
	vk.DestroyDevice(d.handle, nil)
	d.handle = nil
}
