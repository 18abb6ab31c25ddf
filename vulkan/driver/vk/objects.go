// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vk

import (
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

func (d *Driver) setLayout(dev vk.Device, bindings []driver.DescriptorBinding) (vk.DescriptorSetLayout, error) {
	list := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		list[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: max(b.Count, 1),
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAll),
		}
	}
	create := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(list)),
		PBindings:    list,
	}
	var layout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(dev, &create, nil, &layout)); err != nil {
		return nil, err
	}
	return layout, nil
}

func (d *Driver) CreatePipeline(device driver.Handle, info *driver.PipelineCreateInfo) (driver.Handle, error) {
	dev := d.device(device)
	p := &pipeline{}
	fail := func(err error) (driver.Handle, error) {
		d.destroyPipeline(dev, p)
		return driver.Null, err
	}
	for _, set := range info.SetLayouts {
		l, err := d.setLayout(dev, set)
		if err != nil {
			return fail(err)
		}
		p.setLayouts = append(p.setLayouts, l)
	}
	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(p.setLayouts)),
		PSetLayouts:    p.setLayouts,
	}
	if err := vk.Error(vk.CreatePipelineLayout(dev, &layoutInfo, nil, &p.layout)); err != nil {
		return fail(err)
	}
	stages := make([]vk.PipelineShaderStageCreateInfo, len(info.Stages))
	for i, s := range info.Stages {
		create := vk.ShaderModuleCreateInfo{
			SType:    vk.StructureTypeShaderModuleCreateInfo,
			CodeSize: uint64(len(s.Code) * 4),
			PCode:    s.Code,
		}
		var mod vk.ShaderModule
		if err := vk.Error(vk.CreateShaderModule(dev, &create, nil, &mod)); err != nil {
			return fail(err)
		}
		p.modules = append(p.modules, mod)
		entry := s.Entry
		if entry == "" {
			entry = "main"
		}
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(s.Stage),
			Module: mod,
			PName:  safeString(entry),
		}
	}

	out := make([]vk.Pipeline, 1)
	if info.BindPoint == driver.BindPointCompute {
		if len(stages) != 1 {
			return fail(errors.Errorf("Compute pipeline needs one stage, got %d", len(stages)))
		}
		create := []vk.ComputePipelineCreateInfo{{
			SType:  vk.StructureTypeComputePipelineCreateInfo,
			Stage:  stages[0],
			Layout: p.layout,
		}}
		if err := vk.Error(vk.CreateComputePipelines(dev, vk.NullPipelineCache, 1, create, nil, out)); err != nil {
			return fail(err)
		}
	} else {
		d.mu.Lock()
		rpInfo := d.passes[info.RenderPass]
		d.mu.Unlock()
		rp, _ := d.object(info.RenderPass).(vk.RenderPass)
		colors := 0
		if int(info.Subpass) < len(rpInfo.Subpasses) {
			colors = len(rpInfo.Subpasses[info.Subpass].ColorAttachments)
		}
		blend := make([]vk.PipelineColorBlendAttachmentState, colors)
		for i := range blend {
			blend[i].ColorWriteMask = vk.ColorComponentFlags(
				vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit)
		}
		dynamic := []vk.DynamicState{
			vk.DynamicStateViewport,
			vk.DynamicStateScissor,
			vk.DynamicStateLineWidth,
			vk.DynamicStateDepthBias,
			vk.DynamicStateBlendConstants,
		}
		create := []vk.GraphicsPipelineCreateInfo{{
			SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
			StageCount: uint32(len(stages)),
			PStages:    stages,
			PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
				SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
			},
			PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
				SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
				Topology: vk.PrimitiveTopology(info.Topology),
			},
			PViewportState: &vk.PipelineViewportStateCreateInfo{
				SType:         vk.StructureTypePipelineViewportStateCreateInfo,
				ViewportCount: 1,
				ScissorCount:  1,
			},
			PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
				SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
				PolygonMode: vk.PolygonModeFill,
				CullMode:    vk.CullModeFlags(vk.CullModeNone),
				FrontFace:   vk.FrontFaceCounterClockwise,
				LineWidth:   1,
			},
			PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
				SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
				RasterizationSamples: vk.SampleCount1Bit,
			},
			PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
				SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
				AttachmentCount: uint32(len(blend)),
				PAttachments:    blend,
			},
			PDynamicState: &vk.PipelineDynamicStateCreateInfo{
				SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
				DynamicStateCount: uint32(len(dynamic)),
				PDynamicStates:    dynamic,
			},
			Layout:     p.layout,
			RenderPass: rp,
			Subpass:    info.Subpass,
		}}
		if info.Topology == driver.TopologyPatchList {
			create[0].PTessellationState = &vk.PipelineTessellationStateCreateInfo{
				SType:              vk.StructureTypePipelineTessellationStateCreateInfo,
				PatchControlPoints: info.PatchControlPoints,
			}
		}
		if err := vk.Error(vk.CreateGraphicsPipelines(dev, vk.NullPipelineCache, 1, create, nil, out)); err != nil {
			return fail(err)
		}
	}
	p.handle = out[0]
	h := d.wrap(p.handle)
	d.mu.Lock()
	d.pipes[h] = p
	d.mu.Unlock()
	return h, nil
}

func (d *Driver) destroyPipeline(dev vk.Device, p *pipeline) {
	if p.handle != nil {
		vk.DestroyPipeline(dev, p.handle, nil)
	}
	for _, m := range p.modules {
		vk.DestroyShaderModule(dev, m, nil)
	}
	if p.layout != nil {
		vk.DestroyPipelineLayout(dev, p.layout, nil)
	}
	for _, l := range p.setLayouts {
		vk.DestroyDescriptorSetLayout(dev, l, nil)
	}
}

func (d *Driver) DestroyPipeline(device, h driver.Handle) {
	d.mu.Lock()
	p, ok := d.pipes[h]
	delete(d.pipes, h)
	d.mu.Unlock()
	if ok {
		d.destroyPipeline(d.device(device), p)
	}
	d.forget(h)
}

func (d *Driver) CreateCommandPool(device driver.Handle, info *driver.CommandPoolCreateInfo) (driver.Handle, error) {
	create := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(info.Flags | uint32(vk.CommandPoolCreateResetCommandBufferBit)),
		QueueFamilyIndex: info.QueueFamily,
	}
	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(d.device(device), &create, nil, &pool)); err != nil {
		return driver.Null, err
	}
	h := d.wrap(pool)
	d.mu.Lock()
	d.pools[h] = pool
	d.mu.Unlock()
	return h, nil
}

func (d *Driver) DestroyCommandPool(device, h driver.Handle) {
	d.mu.Lock()
	pool, ok := d.pools[h]
	delete(d.pools, h)
	d.mu.Unlock()
	if ok {
		vk.DestroyCommandPool(d.device(device), pool, nil)
	}
	d.forget(h)
}

func (d *Driver) AllocateCommandBuffers(device driver.Handle, info *driver.CommandBufferAllocateInfo) ([]driver.Handle, error) {
	d.mu.Lock()
	pool, ok := d.pools[info.Pool]
	d.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHandle, "Command pool %v", info.Pool)
	}
	count := max(info.Count, 1)
	create := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevel(info.Level),
		CommandBufferCount: count,
	}
	cmds := make([]vk.CommandBuffer, count)
	if err := vk.Error(vk.AllocateCommandBuffers(d.device(device), &create, cmds)); err != nil {
		return nil, err
	}
	out := make([]driver.Handle, count)
	for i, c := range cmds {
		out[i] = d.wrap(c)
	}
	return out, nil
}

func (d *Driver) FreeCommandBuffers(device, pool driver.Handle, buffers []driver.Handle) {
	d.mu.Lock()
	p := d.pools[pool]
	d.mu.Unlock()
	cmds := make([]vk.CommandBuffer, 0, len(buffers))
	for _, h := range buffers {
		if c := d.cmd(h); c != nil {
			cmds = append(cmds, c)
		}
		d.forget(h)
	}
	if p != nil && len(cmds) > 0 {
		vk.FreeCommandBuffers(d.device(device), p, uint32(len(cmds)), cmds)
	}
}

func (d *Driver) AllocateDescriptorSet(device driver.Handle, bindings []driver.DescriptorBinding) (driver.Handle, error) {
	dev := d.device(device)
	set := &descriptorSet{}
	layout, err := d.setLayout(dev, bindings)
	if err != nil {
		return driver.Null, err
	}
	set.layout = layout
	sizes := make([]vk.DescriptorPoolSize, 0, len(bindings))
	for _, b := range bindings {
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(b.Type),
			DescriptorCount: max(b.Count, 1),
		})
	}
	if len(sizes) == 0 {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: vk.DescriptorTypeSampler, DescriptorCount: 1})
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	if err := vk.Error(vk.CreateDescriptorPool(dev, &poolInfo, nil, &set.pool)); err != nil {
		vk.DestroyDescriptorSetLayout(dev, layout, nil)
		return driver.Null, err
	}
	alloc := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     set.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	if err := vk.Error(vk.AllocateDescriptorSets(dev, &alloc, &set.handle)); err != nil {
		vk.DestroyDescriptorPool(dev, set.pool, nil)
		vk.DestroyDescriptorSetLayout(dev, layout, nil)
		return driver.Null, err
	}
	h := d.wrap(set.handle)
	d.mu.Lock()
	d.sets[h] = set
	d.mu.Unlock()
	return h, nil
}

func (d *Driver) FreeDescriptorSet(device, h driver.Handle) {
	d.mu.Lock()
	set, ok := d.sets[h]
	delete(d.sets, h)
	d.mu.Unlock()
	if ok {
		dev := d.device(device)
		vk.DestroyDescriptorPool(dev, set.pool, nil)
		vk.DestroyDescriptorSetLayout(dev, set.layout, nil)
	}
	d.forget(h)
}

func (d *Driver) UpdateDescriptorSets(device driver.Handle, writes []driver.WriteDescriptorSet) {
	dev := d.device(device)
	list := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		d.mu.Lock()
		set, ok := d.sets[w.Set]
		d.mu.Unlock()
		if !ok {
			continue
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.handle,
			DstBinding:      w.Binding,
			DescriptorType:  vk.DescriptorType(w.Type),
			DescriptorCount: 1,
		}
		switch w.Type {
		case driver.DescriptorSampler:
			s, _ := d.object(w.Resource).(vk.Sampler)
			write.PImageInfo = []vk.DescriptorImageInfo{{Sampler: s}}
		case driver.DescriptorSampledImage, driver.DescriptorStorageImage, driver.DescriptorInputAttachment,
			driver.DescriptorCombinedImageSampler:
			view, err := d.view(dev, w.Resource)
			if err != nil {
				continue
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{ImageView: view, ImageLayout: vk.ImageLayoutGeneral}}
		default:
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: d.buffer(w.Resource),
				Offset: vk.DeviceSize(w.Offset),
				Range:  vk.DeviceSize(w.Range),
			}}
		}
		list = append(list, write)
	}
	if len(list) > 0 {
		vk.UpdateDescriptorSets(dev, uint32(len(list)), list, 0, nil)
	}
}
