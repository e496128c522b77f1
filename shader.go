package voxelvk

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const spirvMagic = 0x07230203

//CheckSpirv verifies data looks like a SPIR-V module: whole words and the magic number in
//either byte order
func CheckSpirv(data []byte) error {
	if len(data) < 20 {
		return errors.Errorf("spir-v module of %d bytes is shorter than its header", len(data))
	}
	if len(data)%4 != 0 {
		return errors.Errorf("spir-v module of %d bytes is not word aligned", len(data))
	}
	if binary.LittleEndian.Uint32(data) != spirvMagic && binary.BigEndian.Uint32(data) != spirvMagic {
		return errors.Errorf("bad spir-v magic %#x", binary.LittleEndian.Uint32(data))
	}
	return nil
}

//LoadShaderModule creates a shader module from SPIR-V bytes
func LoadShaderModule(device vk.Device, data []byte) (vk.ShaderModule, error) {
	if err := CheckSpirv(data); err != nil {
		return vk.NullShaderModule, err
	}
	//Vulkan expects to recieve type uint32 data
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    sliceUint32(data),
	}, nil, &module)
	if isError(ret) {
		return vk.NullShaderModule, errors.Wrap(NewError(ret), "create shader module")
	}
	return module, nil
}

//LoadShaderFile reads name from dir and creates its module
func LoadShaderFile(device vk.Device, dir, name string) (vk.ShaderModule, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return vk.NullShaderModule, errors.Wrap(err, "read shader")
	}
	module, err := LoadShaderModule(device, data)
	if err != nil {
		return vk.NullShaderModule, errors.Wrapf(err, "shader %s", path)
	}
	return module, nil
}
