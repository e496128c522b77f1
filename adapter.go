package voxelvk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//AdapterInfo is what adapter selection looks at, copied out of the vulkan structs
type AdapterInfo struct {
	Name          string
	Type          vk.PhysicalDeviceType
	MinImageCount uint32
	MaxImageCount uint32
	Formats       []vk.SurfaceFormat
	PresentModes  []vk.PresentMode
	Families      []QueueFamily
}

//Suitability lists the checks an adapter passed
type Suitability struct {
	DoubleBuffering bool
	Format          bool
	PresentMode     bool
	Present         bool
	Discrete        bool
}

//Ok reports whether the adapter can render and present. A discrete GPU is preferred, not
//required.
func (s Suitability) Ok() bool {
	return s.DoubleBuffering && s.Format && s.PresentMode && s.Present
}

func (s Suitability) Score() int {
	if !s.Ok() {
		return -1
	}
	score := 1
	if s.Discrete {
		score += 10
	}
	return score
}

//Check runs the suitability checks. Without a surface only the device type counts.
func (a *AdapterInfo) Check(presenting bool) Suitability {
	s := Suitability{Discrete: a.Type == vk.PhysicalDeviceTypeDiscreteGpu}
	if !presenting {
		s.DoubleBuffering, s.Format, s.PresentMode, s.Present = true, true, true, true
		return s
	}

	s.DoubleBuffering = a.MinImageCount <= 2 && (a.MaxImageCount == 0 || a.MaxImageCount >= 2)
	for _, f := range a.Formats {
		if (f.Format == vk.FormatB8g8r8a8Srgb || f.Format == vk.FormatB8g8r8a8Unorm) && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			s.Format = true
		}
	}
	for _, m := range a.PresentModes {
		if m == vk.PresentModeFifoRelaxed || m == vk.PresentModeImmediate {
			s.PresentMode = true
		}
	}
	for _, f := range a.Families {
		if f.Present {
			s.Present = true
		}
	}
	return s
}

//pickAdapter returns the index of the best scoring suitable adapter, first one on ties
func pickAdapter(infos []AdapterInfo, presenting bool, logs *Logs) (int, error) {
	best, bestScore := -1, 0
	for i := range infos {
		s := infos[i].Check(presenting)
		logs.Debug.Printf("adapter %q: %+v", infos[i].Name, s)
		if score := s.Score(); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return 0, ErrNoAdapter
	}
	return best, nil
}

//CoreAdapter is the physical device chosen for the application
type CoreAdapter struct {
	gpu          vk.PhysicalDevice
	info         AdapterInfo
	properties   vk.PhysicalDeviceProperties
	memory       vk.PhysicalDeviceMemoryProperties
	features     vk.PhysicalDeviceFeatures
	capabilities vk.SurfaceCapabilities
}

//PickAdapter queries every physical device of the instance against surface and returns the
//best suitable one. Pass vk.NullSurface for headless use.
func PickAdapter(instance *CoreInstance, surface vk.Surface, logs *Logs) (*CoreAdapter, error) {
	if logs == nil {
		logs = DiscardLogs()
	}
	gpus, err := instance.PhysicalDevices()
	if err != nil {
		return nil, err
	}

	adapters := make([]*CoreAdapter, 0, len(gpus))
	infos := make([]AdapterInfo, 0, len(gpus))
	for _, gpu := range gpus {
		adapter, err := NewCoreAdapter(gpu, surface)
		if err != nil {
			logs.Warn.Printf("skipping adapter: %v", err)
			continue
		}
		adapters = append(adapters, adapter)
		infos = append(infos, adapter.info)
	}

	i, err := pickAdapter(infos, surface != vk.NullSurface, logs)
	if err != nil {
		return nil, errors.Wrapf(err, "%d adapters checked", len(infos))
	}
	logs.Info.Printf("using adapter %q", adapters[i].Name())
	return adapters[i], nil
}

//NewCoreAdapter reads the properties of gpu, and its surface support when surface is set
func NewCoreAdapter(gpu vk.PhysicalDevice, surface vk.Surface) (adapter *CoreAdapter, err error) {
	defer checkErr(&err)

	a := &CoreAdapter{gpu: gpu}
	vk.GetPhysicalDeviceProperties(gpu, &a.properties)
	a.properties.Deref()
	vk.GetPhysicalDeviceMemoryProperties(gpu, &a.memory)
	a.memory.Deref()
	vk.GetPhysicalDeviceFeatures(gpu, &a.features)
	a.features.Deref()

	a.info.Name = vk.ToString(a.properties.DeviceName[:])
	a.info.Type = a.properties.DeviceType

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)
	for i := range props {
		props[i].Deref()
		family := QueueFamily{
			Index: uint32(i),
			Flags: props[i].QueueFlags,
			Count: props[i].QueueCount,
		}
		if surface != vk.NullSurface {
			var supported vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), surface, &supported)
			family.Present = supported.B()
		}
		a.info.Families = append(a.info.Families, family)
	}

	if surface == vk.NullSurface {
		return a, nil
	}

	ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &a.capabilities)
	if isError(ret) {
		return nil, errors.Wrapf(NewError(ret), "surface capabilities of %s", a.info.Name)
	}
	a.capabilities.Deref()
	a.capabilities.CurrentExtent.Deref()
	a.capabilities.MinImageExtent.Deref()
	a.capabilities.MaxImageExtent.Deref()
	a.info.MinImageCount = a.capabilities.MinImageCount
	a.info.MaxImageCount = a.capabilities.MaxImageCount

	if a.info.Formats, err = surfaceFormats(gpu, surface); err != nil {
		return nil, err
	}
	if a.info.PresentModes, err = presentModes(gpu, surface); err != nil {
		return nil, err
	}
	return a, nil
}

func surfaceFormats(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if ret := vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, nil); isError(ret) {
		return nil, errors.Wrap(NewError(ret), "surface formats")
	}
	formats := make([]vk.SurfaceFormat, count)
	if ret := vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, formats); isError(ret) {
		return nil, errors.Wrap(NewError(ret), "surface formats")
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

func presentModes(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	if ret := vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, nil); isError(ret) {
		return nil, errors.Wrap(NewError(ret), "present modes")
	}
	modes := make([]vk.PresentMode, count)
	if ret := vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, modes); isError(ret) {
		return nil, errors.Wrap(NewError(ret), "present modes")
	}
	return modes, nil
}

func (a *CoreAdapter) Handle() vk.PhysicalDevice {
	return a.gpu
}

func (a *CoreAdapter) Name() string {
	return a.info.Name
}

//Families lists the queue families with their present support
func (a *CoreAdapter) Families() []QueueFamily {
	return a.info.Families
}

//Info is the data adapter selection looked at
func (a *CoreAdapter) Info() AdapterInfo {
	return a.info
}

func (a *CoreAdapter) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	return a.memory
}

func (a *CoreAdapter) Features() vk.PhysicalDeviceFeatures {
	return a.features
}

//Capabilities are the surface capabilities read at selection time
func (a *CoreAdapter) Capabilities() vk.SurfaceCapabilities {
	return a.capabilities
}
