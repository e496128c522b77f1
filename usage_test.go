package voxelvk

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsageDefaults(t *testing.T) {
	u := NewUsage("demo")
	require.NoError(t, u.Validate())
	assert.Equal(t, DefaultPoolCapacity, u.PoolCapacity)
	assert.Equal(t, 1, u.MaxPools)
	assert.Equal(t, SubmitFence, u.SubmitMode)
	assert.Equal(t, time.Second, u.FenceTimeout.Duration)
	assert.Equal(t, DefaultVulkanMode, u.Mode)
	assert.Equal(t, "demo", u.Window.Title)
}

func TestParseUsage(t *testing.T) {
	doc := `
name = "bench"
mode = "graphics"
submit_mode = "idle"
fence_timeout = "250ms"
pool_capacity = 4
max_pools = 3

[voxel]
size = 64
`
	u, err := ParseUsage([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "bench", u.Name)
	assert.Equal(t, VulkanGraphics, u.Mode)
	assert.Equal(t, SubmitIdle, u.SubmitMode)
	assert.Equal(t, 250*time.Millisecond, u.FenceTimeout.Duration)
	assert.Equal(t, 500*time.Microsecond, u.PollInterval.Duration, "missing keys keep their defaults")
	assert.Equal(t, 4, u.PoolCapacity)
	assert.Equal(t, 3, u.MaxPools)
	assert.Equal(t, uint32(64), u.Voxel.Size)
	assert.Equal(t, uint32(2), u.Voxel.ScalingFactor)
	assert.Equal(t, "bench", u.Window.Title, "window title follows the name")
}

func TestParseUsageErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"syntax":        `name = `,
		"mode":          `mode = "raytracing"`,
		"no graphics":   `mode = "compute|present"`,
		"submit mode":   `submit_mode = "spin"`,
		"duration":      `fence_timeout = "soon"`,
		"zero timeout":  `poll_interval = "0s"`,
		"capacity":      `pool_capacity = 0`,
		"max pools":     `max_pools = -1`,
		"scale":         "[voxel]\nscaling_factor = 0",
	} {
		_, err := ParseUsage([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestUsageValidateStack(t *testing.T) {
	u := NewUsage("stack")
	u.PoolCapacity = 0
	err := u.Validate()
	require.Error(t, err)
	assert.Contains(t, fmt.Sprintf("%+v", err), "(*Usage).Validate")
}

func TestLoadUsage(t *testing.T) {
	u, err := LoadUsage(filepath.Join("examples", "voxel", "voxel.toml"))
	require.NoError(t, err)
	assert.Equal(t, "voxel", u.Name)
	assert.Equal(t, 2, u.MaxPools)
	assert.Equal(t, 2*time.Second, u.FenceTimeout.Duration)
	assert.Equal(t, 1280, u.Window.Width)
	assert.True(t, u.Mode.Has(VulkanPresent))

	_, err = LoadUsage(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestUsageRoundTrip(t *testing.T) {
	u := NewUsage("round")
	u.SubmitMode = SubmitIdle
	u.PollInterval = Duration{time.Millisecond}

	data, err := toml.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1ms")
	assert.Contains(t, string(data), "compute|graphics|present")

	back, err := ParseUsage(data)
	require.NoError(t, err)
	assert.Equal(t, u, back)
}

func TestUsagePrint(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	NewUsage("printed").Print()
	os.Stdout = stdout
	require.NoError(t, w.Close())

	var out bytes.Buffer
	_, err = out.ReadFrom(r)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out.String(), "printed"))
	assert.True(t, strings.Contains(out.String(), "pool_capacity"))
}
