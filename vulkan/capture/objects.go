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

package capture

import (
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/resources"
)

func (l *Layer) id(h driver.Handle) resid.ID { return l.rm.WrapperID(h) }

func (l *Layer) CreateInstance(info *driver.InstanceCreateInfo) (driver.Handle, error) {
	h, err := l.drv.CreateInstance(info)
	if err != nil {
		return h, err
	}
	l.instance = l.create(driver.ObjectInstance, h, nil, func(id resid.ID) calls.Call {
		return &calls.CreateInstance{Info: *info, Instance: id}
	})
	return h, nil
}

func (l *Layer) DestroyInstance(instance driver.Handle) {
	l.drv.DestroyInstance(instance)
	l.release(instance)
}

func (l *Layer) CreateDevice(instance driver.Handle, info *driver.DeviceCreateInfo) (driver.Handle, error) {
	h, err := l.drv.CreateDevice(instance, info)
	if err != nil {
		return h, err
	}
	inst := l.id(instance)
	l.create(driver.ObjectDevice, h, []resid.ID{inst}, func(id resid.ID) calls.Call {
		return &calls.CreateDevice{Instance: inst, Info: *info, Device: id}
	})
	return h, nil
}

func (l *Layer) DestroyDevice(device driver.Handle) {
	l.drv.DestroyDevice(device)
	l.release(device)
}

// GetDeviceQueue wraps a queue the first time it is fetched.
func (l *Layer) GetDeviceQueue(device driver.Handle, family, index uint32) driver.Handle {
	h := l.drv.GetDeviceQueue(device, family, index)
	if h == driver.Null || l.rm.HasWrapper(h) {
		return h
	}
	dev := l.id(device)
	l.create(driver.ObjectQueue, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.GetDeviceQueue{Device: dev, Family: family, Index: index, Queue: id}
	})
	return h
}

func (l *Layer) DeviceWaitIdle(device driver.Handle) error {
	err := l.drv.DeviceWaitIdle(device)
	l.recordFrame(&calls.DeviceWaitIdle{Device: l.id(device)}, resources.Refs{l.id(device): resources.Read})
	return err
}

func (l *Layer) CreateSampler(device driver.Handle, info *driver.SamplerCreateInfo) (driver.Handle, error) {
	h, err := l.drv.CreateSampler(device, info)
	if err != nil {
		return h, err
	}
	dev := l.id(device)
	l.create(driver.ObjectSampler, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.CreateSampler{Device: dev, Info: *info, Sampler: id}
	})
	return h, nil
}

// DestroySampler is recorded into the frame when it happens inside one.
func (l *Layer) DestroySampler(device, sampler driver.Handle) {
	l.drv.DestroySampler(device, sampler)
	l.recordFrame(&calls.DestroySampler{Device: l.id(device), Sampler: l.id(sampler)},
		resources.Refs{l.id(sampler): resources.Read})
	l.release(sampler)
}

func (l *Layer) CreateSemaphore(device driver.Handle) (driver.Handle, error) {
	h, err := l.drv.CreateSemaphore(device)
	if err != nil {
		return h, err
	}
	dev := l.id(device)
	l.create(driver.ObjectSemaphore, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.CreateSemaphore{Device: dev, Semaphore: id}
	})
	return h, nil
}

func (l *Layer) DestroySemaphore(device, semaphore driver.Handle) {
	l.drv.DestroySemaphore(device, semaphore)
	l.release(semaphore)
}

func (l *Layer) CreateFence(device driver.Handle, signaled bool) (driver.Handle, error) {
	h, err := l.drv.CreateFence(device, signaled)
	if err != nil {
		return h, err
	}
	dev := l.id(device)
	l.create(driver.ObjectFence, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.CreateFence{Device: dev, Signaled: signaled, Fence: id}
	})
	return h, nil
}

func (l *Layer) DestroyFence(device, fence driver.Handle) {
	l.drv.DestroyFence(device, fence)
	l.release(fence)
}

func (l *Layer) WaitForFences(device driver.Handle, fences []driver.Handle, waitAll bool, timeout uint64) error {
	err := l.drv.WaitForFences(device, fences, waitAll, timeout)
	l.recordFrame(&calls.WaitForFences{
		Device:  l.id(device),
		Fences:  l.rm.WrapperIDs(fences),
		WaitAll: waitAll,
		Timeout: timeout,
	}, resources.Refs{l.id(device): resources.Read})
	return err
}

func (l *Layer) CreateRenderPass(device driver.Handle, info *driver.RenderPassCreateInfo) (driver.Handle, error) {
	h, err := l.drv.CreateRenderPass(device, info)
	if err != nil {
		return h, err
	}
	dev := l.id(device)
	l.create(driver.ObjectRenderPass, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.CreateRenderPass{Device: dev, Info: *info, RenderPass: id}
	})
	return h, nil
}

func (l *Layer) DestroyRenderPass(device, renderPass driver.Handle) {
	l.drv.DestroyRenderPass(device, renderPass)
	l.release(renderPass)
}

// CreateFramebuffer records the attachments as written by anything that
// renders into the framebuffer.
func (l *Layer) CreateFramebuffer(device driver.Handle, info *driver.FramebufferCreateInfo) (driver.Handle, error) {
	h, err := l.drv.CreateFramebuffer(device, info)
	if err != nil {
		return h, err
	}
	dev, rp := l.id(device), l.id(info.RenderPass)
	attachments := l.rm.WrapperIDs(info.Attachments)
	parents := append([]resid.ID{dev, rp}, attachments...)
	id := l.create(driver.ObjectFramebuffer, h, parents, func(id resid.ID) calls.Call {
		return &calls.CreateFramebuffer{
			Device:      dev,
			RenderPass:  rp,
			Attachments: attachments,
			Width:       info.Width,
			Height:      info.Height,
			Layers:      info.Layers,
			Framebuffer: id,
		}
	})
	if r := l.record(id); r != nil {
		for _, a := range attachments {
			r.MarkResourceFrameReferenced(a, resources.Write)
		}
	}
	return h, nil
}

func (l *Layer) DestroyFramebuffer(device, framebuffer driver.Handle) {
	l.drv.DestroyFramebuffer(device, framebuffer)
	l.release(framebuffer)
}

func (l *Layer) CreateBuffer(device driver.Handle, info *driver.BufferCreateInfo) (driver.Handle, error) {
	h, err := l.drv.CreateBuffer(device, info)
	if err != nil {
		return h, err
	}
	dev := l.id(device)
	l.create(driver.ObjectBuffer, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.CreateBuffer{Device: dev, Info: *info, Buffer: id}
	})
	return h, nil
}

func (l *Layer) DestroyBuffer(device, buffer driver.Handle) {
	l.drv.DestroyBuffer(device, buffer)
	l.release(buffer)
}

func (l *Layer) CreateImage(device driver.Handle, info *driver.ImageCreateInfo) (driver.Handle, error) {
	h, err := l.drv.CreateImage(device, info)
	if err != nil {
		return h, err
	}
	dev := l.id(device)
	l.create(driver.ObjectImage, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.CreateImage{Device: dev, Info: *info, Image: id}
	})
	return h, nil
}

func (l *Layer) DestroyImage(device, image driver.Handle) {
	l.drv.DestroyImage(device, image)
	l.release(image)
}

// bind records a memory binding into the bound object's record, which from
// then on depends on the memory.
func (l *Layer) bind(object, memory resid.ID, call calls.Call) {
	if !l.writing() {
		return
	}
	r, mem := l.record(object), l.record(memory)
	if r == nil {
		log.E(l.ctx, "Memory bound to unrecorded object %v", object)
		return
	}
	if c := l.encode(call); c != nil {
		r.AddChunk(c)
	}
	r.AddParent(mem)
	r.MarkResourceFrameReferenced(memory, resources.Read)
}

func (l *Layer) BindBufferMemory(device, buffer, memory driver.Handle, offset uint64) error {
	if err := l.drv.BindBufferMemory(device, buffer, memory, offset); err != nil {
		return err
	}
	b, m := l.id(buffer), l.id(memory)
	l.bind(b, m, &calls.BindBufferMemory{Device: l.id(device), Buffer: b, Memory: m, Offset: offset})
	return nil
}

func (l *Layer) BindImageMemory(device, image, memory driver.Handle, offset uint64) error {
	if err := l.drv.BindImageMemory(device, image, memory, offset); err != nil {
		return err
	}
	i, m := l.id(image), l.id(memory)
	l.bind(i, m, &calls.BindImageMemory{Device: l.id(device), Image: i, Memory: m, Offset: offset})
	return nil
}

func (l *Layer) CreatePipeline(device driver.Handle, info *driver.PipelineCreateInfo) (driver.Handle, error) {
	h, err := l.drv.CreatePipeline(device, info)
	if err != nil {
		return h, err
	}
	dev, rp := l.id(device), l.id(info.RenderPass)
	l.create(driver.ObjectPipeline, h, []resid.ID{dev, rp}, func(id resid.ID) calls.Call {
		return &calls.CreatePipeline{
			Device:             dev,
			BindPoint:          info.BindPoint,
			Topology:           info.Topology,
			PatchControlPoints: info.PatchControlPoints,
			RenderPass:         rp,
			Subpass:            info.Subpass,
			Stages:             info.Stages,
			SetLayouts:         info.SetLayouts,
			Pipeline:           id,
		}
	})
	return h, nil
}

func (l *Layer) DestroyPipeline(device, pipeline driver.Handle) {
	l.drv.DestroyPipeline(device, pipeline)
	l.release(pipeline)
}

func (l *Layer) AllocateDescriptorSet(device driver.Handle, layout []driver.DescriptorBinding) (driver.Handle, error) {
	h, err := l.drv.AllocateDescriptorSet(device, layout)
	if err != nil {
		return h, err
	}
	dev := l.id(device)
	l.create(driver.ObjectDescriptorSet, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.AllocateDescriptorSet{Device: dev, Bindings: layout, Set: id}
	})
	return h, nil
}

func (l *Layer) FreeDescriptorSet(device, set driver.Handle) {
	l.drv.FreeDescriptorSet(device, set)
	l.release(set)
}

// UpdateDescriptorSets records the update into the sets' own records, or
// into the frame when one is being captured. Either way the sets remember
// what they now reference.
func (l *Layer) UpdateDescriptorSets(device driver.Handle, writes []driver.WriteDescriptorSet) {
	l.drv.UpdateDescriptorSets(device, writes)
	if !l.writing() {
		return
	}
	call := &calls.UpdateDescriptorSet{Device: l.id(device)}
	for _, w := range writes {
		call.Writes = append(call.Writes, calls.DescriptorWrite{
			Set:      l.id(w.Set),
			Binding:  w.Binding,
			Type:     w.Type,
			Resource: l.id(w.Resource),
			Offset:   w.Offset,
			Range:    w.Range,
		})
	}
	refs := call.Refs()
	sets := map[resid.ID]*resources.Record{}
	for i, w := range call.Writes {
		r := l.record(w.Set)
		if r == nil {
			log.E(l.ctx, "Update of unrecorded descriptor set %v", w.Set)
			continue
		}
		sets[w.Set] = r
		if !w.Resource.IsNull() {
			r.MarkResourceFrameReferenced(w.Resource, refs[i].Access)
			r.AddParent(l.record(w.Resource))
		}
	}
	if l.State() == WritingCapframe {
		extra := resources.Refs{}
		for id := range sets {
			extra.Mark(id, resources.Read)
		}
		l.recordFrame(call, extra)
		return
	}
	if c := l.encode(call); c != nil {
		for _, r := range sets {
			r.AddChunk(c)
		}
	}
}

func (l *Layer) AllocateMemory(device driver.Handle, info *driver.MemoryAllocateInfo) (driver.Handle, error) {
	h, err := l.drv.AllocateMemory(device, info)
	if err != nil {
		return h, err
	}
	dev := l.id(device)
	id := l.create(driver.ObjectMemory, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.AllocateMemory{Device: dev, Size: info.Size, TypeIndex: info.TypeIndex, Memory: id}
	})
	if r := l.record(id); r != nil {
		r.Memory = info.Size
	}
	l.memMu.Lock()
	l.memories[id] = &memory{device: device, handle: h, size: info.Size}
	l.memMu.Unlock()
	return h, nil
}

func (l *Layer) FreeMemory(device, mem driver.Handle) {
	l.drv.FreeMemory(device, mem)
	l.memMu.Lock()
	delete(l.memories, l.id(mem))
	l.memMu.Unlock()
	l.release(mem)
}
