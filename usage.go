package voxelvk

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

//DefaultPoolCapacity is the number of command buffers pre-allocated per pool
const DefaultPoolCapacity = 32

//SubmitMode selects how a flushed command buffer is known to be finished
type SubmitMode string

const (
	//SubmitFence attaches the buffer fence to the submission and returns immediately
	SubmitFence SubmitMode = "fence"
	//SubmitIdle blocks every flush until the queue is idle
	SubmitIdle SubmitMode = "idle"
)

//Duration reads "250ms" style strings from a usage file
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

//Window properties used when the usage drives a windowed application
type WindowUsage struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

//VoxelUsage holds the demo renderer settings
type VoxelUsage struct {
	ShaderDir     string `toml:"shader_dir"`
	Size          uint32 `toml:"size"`
	ScalingFactor uint32 `toml:"scaling_factor"`
}

//Usage defines the core usage properties and expected usage patterns. Corresponds to a TOML
//document, fields left out of the document keep the defaults from NewUsage.
type Usage struct {
	Name             string   `toml:"name"`
	Engine           string   `toml:"engine"`
	ValidationLayers []string `toml:"validation_layers"`
	DeviceExtensions []string `toml:"device_extensions"`

	PoolCapacity int        `toml:"pool_capacity"`
	MaxPools     int        `toml:"max_pools"`
	SubmitMode   SubmitMode `toml:"submit_mode"`
	FenceTimeout Duration   `toml:"fence_timeout"`
	PollInterval Duration   `toml:"poll_interval"`
	Mode         VulkanMode `toml:"mode"`

	LogDir string `toml:"log_dir"`
	Debug  bool   `toml:"debug"`

	Window WindowUsage `toml:"window"`
	Voxel  VoxelUsage  `toml:"voxel"`
}

//NewUsage returns the defaults for an application called name
func NewUsage(name string) *Usage {
	return &Usage{
		Name:             name,
		Engine:           "voxelvk",
		ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
		DeviceExtensions: []string{"VK_KHR_swapchain"},
		PoolCapacity:     DefaultPoolCapacity,
		MaxPools:         1,
		SubmitMode:       SubmitFence,
		FenceTimeout:     Duration{time.Second},
		PollInterval:     Duration{500 * time.Microsecond},
		Mode:             DefaultVulkanMode,
		Window: WindowUsage{
			Title:  name,
			Width:  800,
			Height: 600,
		},
		Voxel: VoxelUsage{
			ShaderDir:     "shaders",
			Size:          128,
			ScalingFactor: 2,
		},
	}
}

//LoadUsage overlays the TOML file at path on the defaults and validates the result
func LoadUsage(path string) (*Usage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read usage")
	}
	return ParseUsage(data)
}

//ParseUsage is LoadUsage for an in-memory document
func ParseUsage(data []byte) (*Usage, error) {
	u := NewUsage("")
	if err := toml.Unmarshal(data, u); err != nil {
		return nil, errors.Wrap(err, "parse usage")
	}
	if u.Window.Title == "" {
		u.Window.Title = u.Name
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

//Validate checks that the properties can drive a queue
func (u *Usage) Validate() error {
	if u.PoolCapacity <= 0 {
		return errors.Errorf("usage %q: pool_capacity must be positive, got %d", u.Name, u.PoolCapacity)
	}
	if u.MaxPools <= 0 {
		return errors.Errorf("usage %q: max_pools must be positive, got %d", u.Name, u.MaxPools)
	}
	switch u.SubmitMode {
	case SubmitFence, SubmitIdle:
	default:
		return errors.Errorf("usage %q: unknown submit_mode %q", u.Name, u.SubmitMode)
	}
	if u.FenceTimeout.Duration <= 0 {
		return errors.Errorf("usage %q: fence_timeout must be positive", u.Name)
	}
	if u.PollInterval.Duration <= 0 {
		return errors.Errorf("usage %q: poll_interval must be positive", u.Name)
	}
	if !u.Mode.Has(VulkanGraphics) {
		return errors.Errorf("usage %q: mode %s must include graphics", u.Name, u.Mode)
	}
	if u.Voxel.ScalingFactor == 0 {
		return errors.Errorf("usage %q: voxel scaling_factor must be positive", u.Name)
	}
	return nil
}

//Print writes the usage tree to stdout
func (u *Usage) Print() {
	out, err := toml.Marshal(u)
	if err != nil {
		fmt.Printf("%+v\n", *u)
		return
	}
	fmt.Print(string(out))
}
