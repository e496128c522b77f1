package voxelvk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//WorkgroupSize is the local size the bundled compute shaders are compiled with
const WorkgroupSize = 32

//DispatchSize is the number of workgroups covering n invocations
func DispatchSize(n, group uint32) uint32 {
	if group == 0 {
		return 0
	}
	return (n + group - 1) / group
}

//storageImageBindings lays out count storage images at bindings 0 to count-1 of a compute set
func storageImageBindings(count int) []vk.DescriptorSetLayoutBinding {
	bindings := make([]vk.DescriptorSetLayoutBinding, count)
	for i := range bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeStorageImage,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}
	}
	return bindings
}

//ComputePipeline is a compute shader with one descriptor set of storage images and a push
//constant block
type ComputePipeline struct {
	device    vk.Device
	module    vk.ShaderModule
	setLayout vk.DescriptorSetLayout
	layout    vk.PipelineLayout
	pipeline  vk.Pipeline
	images    int
	push      uint32
}

//NewComputePipeline builds the pipeline for the SPIR-V in code. images is the number of
//storage image bindings, push the size of the push constant block in bytes.
func NewComputePipeline(device vk.Device, code []byte, images int, push uint32) (*ComputePipeline, error) {
	module, err := LoadShaderModule(device, code)
	if err != nil {
		return nil, err
	}
	p := &ComputePipeline{device: device, module: module, images: images, push: push}

	bindings := storageImageBindings(images)
	ret := vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &p.setLayout)
	if isError(ret) {
		p.Destroy()
		return nil, errors.Wrap(NewError(ret), "create descriptor set layout")
	}

	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{p.setLayout},
	}
	if push > 0 {
		info.PushConstantRangeCount = 1
		info.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Size:       push,
		}}
	}
	if ret := vk.CreatePipelineLayout(device, &info, nil, &p.layout); isError(ret) {
		p.Destroy()
		return nil, errors.Wrap(NewError(ret), "create pipeline layout")
	}

	pipelines := make([]vk.Pipeline, 1)
	ret = vk.CreateComputePipelines(device, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: module,
			PName:  safeString("main"),
		},
		Layout: p.layout,
	}}, nil, pipelines)
	if isError(ret) {
		p.Destroy()
		return nil, errors.Wrap(NewError(ret), "create compute pipeline")
	}
	p.pipeline = pipelines[0]
	return p, nil
}

func (p *ComputePipeline) Handle() vk.Pipeline {
	return p.pipeline
}

func (p *ComputePipeline) Layout() vk.PipelineLayout {
	return p.layout
}

func (p *ComputePipeline) SetLayout() vk.DescriptorSetLayout {
	return p.setLayout
}

//Bind records binding the pipeline and its descriptor set
func (p *ComputePipeline) Bind(rec *Recorder, set vk.DescriptorSet) {
	rec.BindPipeline(vk.PipelineBindPointCompute, p.pipeline)
	rec.BindDescriptorSets(vk.PipelineBindPointCompute, p.layout, 0, []vk.DescriptorSet{set}, nil)
}

//Push records the push constant block, data longer than the declared block is an error
func (p *ComputePipeline) Push(rec *Recorder, data []byte) error {
	if uint32(len(data)) > p.push {
		return errors.Errorf("push constants of %d bytes exceed the %d byte block", len(data), p.push)
	}
	rec.PushConstants(p.layout, vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, data)
	return nil
}

func (p *ComputePipeline) Destroy() {
	if p.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(p.device, p.pipeline, nil)
		p.pipeline = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(p.device, p.layout, nil)
		p.layout = vk.NullPipelineLayout
	}
	if p.setLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(p.device, p.setLayout, nil)
		p.setLayout = vk.NullDescriptorSetLayout
	}
	if p.module != vk.NullShaderModule {
		vk.DestroyShaderModule(p.device, p.module, nil)
		p.module = vk.NullShaderModule
	}
}

//DescriptorPool hands out storage image sets which can be freed one by one
type DescriptorPool struct {
	device vk.Device
	pool   vk.DescriptorPool
}

func NewDescriptorPool(device vk.Device, maxSets, storageImages uint32) (*DescriptorPool, error) {
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeStorageImage,
			DescriptorCount: storageImages,
		}},
	}, nil, &pool)
	if isError(ret) {
		return nil, errors.Wrap(NewError(ret), "create descriptor pool")
	}
	return &DescriptorPool{device: device, pool: pool}, nil
}

func (d *DescriptorPool) Allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	var set vk.DescriptorSet
	ret := vk.AllocateDescriptorSets(d.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, &set)
	if isError(ret) {
		return vk.NullDescriptorSet, errors.Wrap(NewError(ret), "allocate descriptor set")
	}
	return set, nil
}

//WriteStorageImages points bindings 0 to len(views)-1 of set at views in the general layout
func (d *DescriptorPool) WriteStorageImages(set vk.DescriptorSet, views ...vk.ImageView) {
	writes := make([]vk.WriteDescriptorSet, len(views))
	for i, view := range views {
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   view,
				ImageLayout: vk.ImageLayoutGeneral,
			}},
		}
	}
	vk.UpdateDescriptorSets(d.device, uint32(len(writes)), writes, 0, nil)
}

func (d *DescriptorPool) Free(sets ...vk.DescriptorSet) error {
	if len(sets) == 0 {
		return nil
	}
	if ret := vk.FreeDescriptorSets(d.device, d.pool, uint32(len(sets)), &sets[0]); isError(ret) {
		return errors.Wrap(NewError(ret), "free descriptor sets")
	}
	return nil
}

func (d *DescriptorPool) Destroy() {
	if d.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(d.device, d.pool, nil)
		d.pool = vk.NullDescriptorPool
	}
}
