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

package replay

import (
	"context"

	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/resources"
	"github.com/pkg/errors"
)

func (r *Replayer) buildHandlers() map[chunk.Kind]handler {
	return map[chunk.Kind]handler{
		chunk.CaptureEnd:            on(r.captureEnd),
		chunk.InitialContents:       on(r.initialContents),
		chunk.CreateInstance:        on(r.createInstance),
		chunk.CreateDevice:          on(r.createDevice),
		chunk.GetDeviceQueue:        on(r.getDeviceQueue),
		chunk.CreateSampler:         on(r.createSampler),
		chunk.DestroySampler:        on(r.destroySampler),
		chunk.CreateSemaphore:       on(r.createSemaphore),
		chunk.CreateFence:           on(r.createFence),
		chunk.CreateRenderPass:      on(r.createRenderPass),
		chunk.CreateFramebuffer:     on(r.createFramebuffer),
		chunk.CreateBuffer:          on(r.createBuffer),
		chunk.CreateImage:           on(r.createImage),
		chunk.BindBufferMemory:      on(r.bindBufferMemory),
		chunk.BindImageMemory:       on(r.bindImageMemory),
		chunk.CreatePipeline:        on(r.createPipeline),
		chunk.CreateCommandPool:     on(r.createCommandPool),
		chunk.AllocateDescriptorSet: on(r.allocateDescriptorSet),
		chunk.UpdateDescriptorSet:   on(r.updateDescriptorSet),
		chunk.AllocateMemory:        on(r.allocateMemory),
		chunk.FlushMappedMemory:     on(r.flushMappedMemory),

		chunk.BeginCommandBuffer:    on(r.beginCommandBuffer),
		chunk.EndCommandBuffer:      on(r.endCommandBuffer),
		chunk.CmdBeginRenderPass:    on(r.cmdBeginRenderPass),
		chunk.CmdNextSubpass:        on(r.cmdNextSubpass),
		chunk.CmdEndRenderPass:      on(r.cmdEndRenderPass),
		chunk.CmdBindPipeline:       on(r.cmdBindPipeline),
		chunk.CmdBindDescriptorSets: on(r.cmdBindDescriptorSets),
		chunk.CmdBindVertexBuffers:  on(r.cmdBindVertexBuffers),
		chunk.CmdBindIndexBuffer:    on(r.cmdBindIndexBuffer),
		chunk.CmdSetViewport:        on(r.cmdSetViewport),
		chunk.CmdSetScissor:         on(r.cmdSetScissor),
		chunk.CmdSetLineWidth:       on(r.cmdSetLineWidth),
		chunk.CmdSetDepthBias:       on(r.cmdSetDepthBias),
		chunk.CmdSetBlendConstants:  on(r.cmdSetBlendConstants),
		chunk.CmdDraw:               on(r.cmdDraw),
		chunk.CmdDrawIndexed:        on(r.cmdDrawIndexed),
		chunk.CmdDispatch:           on(r.cmdDispatch),
		chunk.CmdCopyBuffer:         on(r.cmdCopyBuffer),
		chunk.CmdClearColorImage:    on(r.cmdClearColorImage),
		chunk.CmdResolveImage:       on(r.cmdResolveImage),
		chunk.CmdDebugMarkerBegin:   on(r.cmdDebugMarkerBegin),
		chunk.CmdDebugMarkerEnd:     on(r.cmdDebugMarkerEnd),
		chunk.CmdDebugMarkerInsert:  on(r.cmdDebugMarkerInsert),

		chunk.QueueSubmit:    on(r.queueSubmit),
		chunk.QueueWaitIdle:  on(r.queueWaitIdle),
		chunk.DeviceWaitIdle: on(r.deviceWaitIdle),
		chunk.WaitForFences:  on(r.waitForFences),
	}
}

// created binds id to the handle the driver returned for it. If the driver
// handed out a handle another ID already owns, the duplicate reference is
// released again and id is redirected to the owner, so that creates and
// destroys stay balanced.
func (r *Replayer) created(ctx context.Context, t driver.ObjectType, id, device resid.ID, h driver.Handle) {
	if t.Dedupable() {
		if owner, ok := r.rm.LiveOwner(h); ok && owner != id {
			driver.Destroy(r.drv, t, r.rm.GetLiveHandle(device), h)
			r.rm.ReplaceResource(id, owner)
			log.D(ctx, "%v %v duplicates %v", t, id, owner)
			return
		}
	}
	r.rm.AddLiveResource(id, h)
	r.objects[id] = object{typ: t, device: device}
}

func (r *Replayer) liveDevice(id resid.ID) (driver.Handle, error) {
	h := r.rm.GetLiveHandle(id)
	if h == driver.Null {
		return driver.Null, errors.Errorf("Device %v was not recreated", id)
	}
	return h, nil
}

func (r *Replayer) createInstance(ctx context.Context, c *calls.CreateInstance) error {
	h, err := r.drv.CreateInstance(&c.Info)
	if err != nil {
		return log.Err(ctx, err, "Creating instance")
	}
	r.created(ctx, driver.ObjectInstance, c.Instance, resid.Null, h)
	return nil
}

func (r *Replayer) createDevice(ctx context.Context, c *calls.CreateDevice) error {
	h, err := r.drv.CreateDevice(r.rm.GetLiveHandle(c.Instance), &c.Info)
	if err != nil {
		return log.Err(ctx, err, "Creating device")
	}
	r.created(ctx, driver.ObjectDevice, c.Device, resid.Null, h)
	r.devices[c.Device] = c.Info
	if r.device.IsNull() {
		r.device = c.Device
	}
	return nil
}

func (r *Replayer) getDeviceQueue(ctx context.Context, c *calls.GetDeviceQueue) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	r.rm.AddLiveResource(c.Queue, r.drv.GetDeviceQueue(dev, c.Family, c.Index))
	if r.queue.IsNull() {
		r.queue = c.Queue
	}
	return nil
}

func (r *Replayer) createSampler(ctx context.Context, c *calls.CreateSampler) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	h, err := r.drv.CreateSampler(dev, &c.Info)
	if err != nil {
		return log.Err(ctx, err, "Creating sampler")
	}
	r.created(ctx, driver.ObjectSampler, c.Sampler, c.Device, h)
	return nil
}

// destroySampler only marks the event. The sampler may be shared with a
// deduplicated one and is destroyed on shutdown.
func (r *Replayer) destroySampler(ctx context.Context, c *calls.DestroySampler) error {
	log.D(ctx, "Deferring destruction of sampler %v", c.Sampler)
	return nil
}

func (r *Replayer) createSemaphore(ctx context.Context, c *calls.CreateSemaphore) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	h, err := r.drv.CreateSemaphore(dev)
	if err != nil {
		return log.Err(ctx, err, "Creating semaphore")
	}
	r.created(ctx, driver.ObjectSemaphore, c.Semaphore, c.Device, h)
	return nil
}

func (r *Replayer) createFence(ctx context.Context, c *calls.CreateFence) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	h, err := r.drv.CreateFence(dev, c.Signaled)
	if err != nil {
		return log.Err(ctx, err, "Creating fence")
	}
	r.created(ctx, driver.ObjectFence, c.Fence, c.Device, h)
	return nil
}

func (r *Replayer) createRenderPass(ctx context.Context, c *calls.CreateRenderPass) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	h, err := r.drv.CreateRenderPass(dev, &c.Info)
	if err != nil {
		return log.Err(ctx, err, "Creating render pass")
	}
	r.renderPasses[c.RenderPass] = c.Info
	r.created(ctx, driver.ObjectRenderPass, c.RenderPass, c.Device, h)
	return nil
}

func (r *Replayer) createFramebuffer(ctx context.Context, c *calls.CreateFramebuffer) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	info := driver.FramebufferCreateInfo{
		RenderPass:  r.rm.GetLiveHandle(c.RenderPass),
		Attachments: r.rm.GetLiveHandles(c.Attachments),
		Width:       c.Width,
		Height:      c.Height,
		Layers:      c.Layers,
	}
	h, err := r.drv.CreateFramebuffer(dev, &info)
	if err != nil {
		return log.Err(ctx, err, "Creating framebuffer")
	}
	r.framebuffers[c.Framebuffer] = framebufferInfo{renderPass: c.RenderPass, attachments: c.Attachments}
	r.created(ctx, driver.ObjectFramebuffer, c.Framebuffer, c.Device, h)
	return nil
}

func (r *Replayer) createBuffer(ctx context.Context, c *calls.CreateBuffer) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	h, err := r.drv.CreateBuffer(dev, &c.Info)
	if err != nil {
		return log.Err(ctx, err, "Creating buffer")
	}
	r.created(ctx, driver.ObjectBuffer, c.Buffer, c.Device, h)
	return nil
}

func (r *Replayer) createImage(ctx context.Context, c *calls.CreateImage) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	h, err := r.drv.CreateImage(dev, &c.Info)
	if err != nil {
		return log.Err(ctx, err, "Creating image")
	}
	r.created(ctx, driver.ObjectImage, c.Image, c.Device, h)
	return nil
}

func (r *Replayer) bindBufferMemory(ctx context.Context, c *calls.BindBufferMemory) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	return r.drv.BindBufferMemory(dev, r.rm.GetLiveHandle(c.Buffer), r.rm.GetLiveHandle(c.Memory), c.Offset)
}

func (r *Replayer) bindImageMemory(ctx context.Context, c *calls.BindImageMemory) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	return r.drv.BindImageMemory(dev, r.rm.GetLiveHandle(c.Image), r.rm.GetLiveHandle(c.Memory), c.Offset)
}

func (r *Replayer) createPipeline(ctx context.Context, c *calls.CreatePipeline) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	info := c.Info()
	info.RenderPass = r.rm.GetLiveHandle(c.RenderPass)
	h, err := r.drv.CreatePipeline(dev, &info)
	if err != nil {
		return log.Err(ctx, err, "Creating pipeline")
	}
	r.pipelines[c.Pipeline] = pipelineInfo{bindPoint: c.BindPoint, topology: c.Topology, patch: c.PatchControlPoints}
	r.created(ctx, driver.ObjectPipeline, c.Pipeline, c.Device, h)
	return nil
}

func (r *Replayer) createCommandPool(ctx context.Context, c *calls.CreateCommandPool) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	h, err := r.drv.CreateCommandPool(dev, &driver.CommandPoolCreateInfo{QueueFamily: c.QueueFamily, Flags: c.Flags})
	if err != nil {
		return log.Err(ctx, err, "Creating command pool")
	}
	r.created(ctx, driver.ObjectCommandPool, c.Pool, c.Device, h)
	return nil
}

func (r *Replayer) allocateDescriptorSet(ctx context.Context, c *calls.AllocateDescriptorSet) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	h, err := r.drv.AllocateDescriptorSet(dev, c.Bindings)
	if err != nil {
		return log.Err(ctx, err, "Allocating descriptor set")
	}
	r.created(ctx, driver.ObjectDescriptorSet, c.Set, c.Device, h)
	return nil
}

func (r *Replayer) updateDescriptorSet(ctx context.Context, c *calls.UpdateDescriptorSet) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	writes := make([]driver.WriteDescriptorSet, 0, len(c.Writes))
	for _, w := range c.Writes {
		set := r.rm.GetLiveHandle(w.Set)
		if set == driver.Null {
			return r.inconsistent(ctx, "Descriptor set %v was not recreated", w.Set)
		}
		writes = append(writes, driver.WriteDescriptorSet{
			Set:      set,
			Binding:  w.Binding,
			Type:     w.Type,
			Resource: r.rm.GetLiveHandle(w.Resource),
			Offset:   w.Offset,
			Range:    w.Range,
		})
	}
	r.drv.UpdateDescriptorSets(dev, writes)
	return nil
}

func (r *Replayer) allocateMemory(ctx context.Context, c *calls.AllocateMemory) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	h, err := r.drv.AllocateMemory(dev, &driver.MemoryAllocateInfo{Size: c.Size, TypeIndex: c.TypeIndex})
	if err != nil {
		return log.Err(ctx, err, "Allocating memory")
	}
	r.memories[c.Memory] = memoryInfo{device: c.Device, size: c.Size}
	r.created(ctx, driver.ObjectMemory, c.Memory, c.Device, h)
	return nil
}

// writeMemory copies data into the live memory of id at offset.
func (r *Replayer) writeMemory(ctx context.Context, id resid.ID, offset uint64, data []byte) error {
	m, ok := r.memories[id]
	if !ok {
		return r.inconsistent(ctx, "Memory %v was not allocated", id)
	}
	if offset+uint64(len(data)) > m.size {
		return r.inconsistent(ctx, "Write of [%d, %d) overruns memory %v of size %d", offset, offset+uint64(len(data)), id, m.size)
	}
	dev := r.rm.GetLiveHandle(m.device)
	mem := r.rm.GetLiveHandle(id)
	mapped, err := r.drv.MapMemory(dev, mem, offset, uint64(len(data)))
	if err != nil {
		return log.Err(ctx, err, "Mapping memory")
	}
	copy(mapped, data)
	r.drv.UnmapMemory(dev, mem)
	return nil
}

func (r *Replayer) flushMappedMemory(ctx context.Context, c *calls.FlushMappedMemory) error {
	return r.writeMemory(ctx, c.Memory, c.Offset, c.Data)
}

func (r *Replayer) initialContents(ctx context.Context, c *calls.InitialContents) error {
	if c.Type != driver.ObjectMemory {
		r.warnOnce(ctx, c.Type.String()+" initial contents")
		return nil
	}
	r.rm.SetInitialContents(c.ID, resources.InitialContents{Type: c.Type, Data: c.Data})
	return nil
}

// applyInitialContents restores every resource to its state at the start
// of the frame.
func (r *Replayer) applyInitialContents(ctx context.Context) {
	r.rm.ApplyInitialContents(func(id resid.ID, ic resources.InitialContents) {
		if err := r.writeMemory(ctx, id, 0, ic.Data); err != nil {
			log.E(ctx, "Applying initial contents of %v: %v", id, err)
		}
	})
}
