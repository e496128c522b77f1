package voxelvk

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const (
	debugReportExtension      = "VK_EXT_debug_report"
	portabilityEnumeration    = "VK_KHR_portability_enumeration"
	instanceCreatePortability = 0x00000001 //VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
)

//CoreInstance owns the vulkan instance with its enabled layers, extensions and the debug
//report callback
type CoreInstance struct {
	handle     vk.Instance
	layers     []string
	extensions []string
	debug      vk.DebugReportCallback
	logs       *Logs
}

// receives validation messages, one instance per process
var debugLogs atomic.Pointer[Logs]

//NewCoreInstance creates the instance for usage. required are the extensions the window
//system needs, usually glfw's GetRequiredInstanceExtensions. Validation layers that are not
//installed are skipped with a warning.
func NewCoreInstance(usage *Usage, required []string, logs *Logs) (*CoreInstance, error) {
	if logs == nil {
		logs = DiscardLogs()
	}

	actual, err := InstanceExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}
	var wanted []string
	if usage.Debug {
		wanted = append(wanted, debugReportExtension)
	}
	var flags vk.InstanceCreateFlags
	if runtime.GOOS == "darwin" {
		wanted = append(wanted, portabilityEnumeration)
		flags = vk.InstanceCreateFlags(instanceCreatePortability)
	}

	extensions := NewExtensionSet(wanted, required, actual)
	if ok, missing := extensions.HasRequired(); !ok {
		return nil, errors.Errorf("missing required instance extensions %v", missing)
	}
	if ok, missing := extensions.HasWanted(); !ok {
		logs.Warn.Printf("instance extensions not available: %v", missing)
	}

	var layers []string
	if usage.Debug && len(usage.ValidationLayers) > 0 {
		available, err := ValidationLayers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerate validation layers")
		}
		set := NewExtensionSet(usage.ValidationLayers, nil, available)
		if ok, missing := set.HasWanted(); !ok {
			logs.Warn.Printf("validation layers not installed: %v", missing)
		}
		layers = set.Enabled()
	}

	core := &CoreInstance{
		layers:     layers,
		extensions: extensions.Enabled(),
		logs:       logs,
	}

	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(usage.Name),
			PEngineName:        safeString(usage.Engine),
		},
		EnabledExtensionCount:   uint32(len(core.extensions)),
		PpEnabledExtensionNames: core.extensions,
		EnabledLayerCount:       uint32(len(core.layers)),
		PpEnabledLayerNames:     core.layers,
		Flags:                   flags,
	}, nil, &core.handle)
	if isError(ret) {
		return nil, errors.Wrap(NewError(ret), "create instance")
	}
	if err := vk.InitInstance(core.handle); err != nil {
		vk.DestroyInstance(core.handle, nil)
		return nil, errors.Wrap(err, "load instance functions")
	}
	logs.Info.Printf("instance with %d extensions, %d layers", len(core.extensions), len(core.layers))

	if usage.Debug && core.enabled(debugReportExtension) {
		debugLogs.Store(logs)
		ret := vk.CreateDebugReportCallback(core.handle, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: debugReport,
		}, nil, &core.debug)
		if isError(ret) {
			logs.Warn.Printf("debug report callback: %v", NewError(ret))
		} else {
			logs.Info.Printf("debug report callback enabled")
		}
	}
	return core, nil
}

func (c *CoreInstance) enabled(name string) bool {
	for _, ext := range c.extensions {
		if ext == safeString(name) {
			return true
		}
	}
	return false
}

func (c *CoreInstance) Handle() vk.Instance {
	return c.handle
}

//Layers are the validation layers the instance was created with, devices enable the same
func (c *CoreInstance) Layers() []string {
	return c.layers
}

//PhysicalDevices enumerates the GPUs visible to the instance
func (c *CoreInstance) PhysicalDevices() ([]vk.PhysicalDevice, error) {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(c.handle, &count, nil)
	if isError(ret) {
		return nil, errors.Wrap(NewError(ret), "enumerate physical devices")
	}
	if count == 0 {
		return nil, errors.Wrap(ErrNoAdapter, "no physical devices")
	}
	gpus := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(c.handle, &count, gpus)
	if isError(ret) {
		return nil, errors.Wrap(NewError(ret), "enumerate physical devices")
	}
	return gpus, nil
}

func (c *CoreInstance) Destroy() {
	if c.debug != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(c.handle, c.debug, nil)
		c.debug = vk.NullDebugReportCallback
	}
	if c.handle != nil {
		vk.DestroyInstance(c.handle, nil)
		c.handle = nil
	}
}

func debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	logs := debugLogs.Load()
	if logs == nil {
		return vk.Bool32(vk.False)
	}
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		logs.Error.Printf("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		logs.Warn.Printf("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		logs.Debug.Printf("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
