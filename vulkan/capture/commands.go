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

func (l *Layer) CreateCommandPool(device driver.Handle, info *driver.CommandPoolCreateInfo) (driver.Handle, error) {
	h, err := l.drv.CreateCommandPool(device, info)
	if err != nil {
		return h, err
	}
	dev := l.id(device)
	l.create(driver.ObjectCommandPool, h, []resid.ID{dev}, func(id resid.ID) calls.Call {
		return &calls.CreateCommandPool{Device: dev, QueueFamily: info.QueueFamily, Flags: info.Flags, Pool: id}
	})
	return h, nil
}

func (l *Layer) DestroyCommandPool(device, pool driver.Handle) {
	l.drv.DestroyCommandPool(device, pool)
	l.release(pool)
}

// AllocateCommandBuffers gives every command buffer a record without
// chunks. Its chunks are produced by Begin and handed to a baked record by
// End.
func (l *Layer) AllocateCommandBuffers(device driver.Handle, info *driver.CommandBufferAllocateInfo) ([]driver.Handle, error) {
	hs, err := l.drv.AllocateCommandBuffers(device, info)
	if err != nil {
		return hs, err
	}
	dev, pool := l.id(device), l.id(info.Pool)
	for _, h := range hs {
		id := l.rm.WrapResource(pool, h)
		r := l.rm.AddResourceRecord(id, driver.ObjectCommandBuffer)
		r.Cmd = &resources.CmdInfo{Device: dev, Pool: pool, Level: info.Level}
		r.AddParent(l.record(pool))
	}
	return hs, nil
}

func (l *Layer) FreeCommandBuffers(device, pool driver.Handle, buffers []driver.Handle) {
	l.drv.FreeCommandBuffers(device, pool, buffers)
	for _, h := range buffers {
		if r := l.record(l.id(h)); r != nil && r.Baked != nil {
			r.Baked.Delete()
			r.Baked = nil
		}
		l.release(h)
	}
}

// BeginCommandBuffer starts a new baked record. A baked record left over
// from an earlier recording is released first: Begin implicitly resets.
func (l *Layer) BeginCommandBuffer(cmd driver.Handle, info *driver.CommandBufferBeginInfo) error {
	if err := l.drv.BeginCommandBuffer(cmd, info); err != nil {
		return err
	}
	if !l.writing() {
		return nil
	}
	id := l.id(cmd)
	r := l.record(id)
	if r == nil || r.Cmd == nil {
		log.E(l.ctx, "Begin of unrecorded command buffer %v", id)
		return nil
	}
	if r.Baked != nil {
		r.Baked.Delete()
	}
	r.DropChunks()
	baked := l.rm.AddResourceRecord(l.rm.NewID(), driver.ObjectCommandBuffer)
	baked.Cmd = r.Cmd
	r.Baked = baked
	c := l.encode(&calls.BeginCommandBuffer{
		Cmd:    calls.Cmd{Buffer: id},
		Device: r.Cmd.Device,
		Pool:   r.Cmd.Pool,
		Level:  r.Cmd.Level,
		Baked:  baked.ID,
		Flags:  info.Flags,
	})
	if c != nil {
		r.AddChunk(c)
	}
	return nil
}

// EndCommandBuffer moves the recorded chunks into the baked record, which
// is not modified again.
func (l *Layer) EndCommandBuffer(cmd driver.Handle) error {
	err := l.drv.EndCommandBuffer(cmd)
	if !l.writing() {
		return err
	}
	id := l.id(cmd)
	r := l.record(id)
	if r == nil || r.Baked == nil {
		log.E(l.ctx, "End of command buffer %v without Begin", id)
		return err
	}
	if c := l.encode(&calls.EndCommandBuffer{Cmd: calls.Cmd{Buffer: id}, Baked: r.Baked.ID}); c != nil {
		r.AddChunk(c)
	}
	r.SwapChunks(r.Baked)
	return err
}

// ResetCommandBuffer releases the baked record. Nothing is serialized: the
// next Begin mints a fresh baked ID regardless.
func (l *Layer) ResetCommandBuffer(cmd driver.Handle) error {
	err := l.drv.ResetCommandBuffer(cmd)
	if r := l.record(l.id(cmd)); r != nil {
		if r.Baked != nil {
			r.Baked.Delete()
			r.Baked = nil
		}
		r.DropChunks()
	}
	return err
}

func (l *Layer) CmdBeginRenderPass(cmd driver.Handle, info *driver.RenderPassBeginInfo, contents driver.SubpassContents) {
	l.drv.CmdBeginRenderPass(cmd, info, contents)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdBeginRenderPass{
			Cmd:         c,
			RenderPass:  l.id(info.RenderPass),
			Framebuffer: l.id(info.Framebuffer),
			RenderArea:  info.RenderArea,
			ClearValues: info.ClearValues,
			Contents:    contents,
		}
	})
}

func (l *Layer) CmdNextSubpass(cmd driver.Handle, contents driver.SubpassContents) {
	l.drv.CmdNextSubpass(cmd, contents)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdNextSubpass{Cmd: c, Contents: contents} })
}

func (l *Layer) CmdEndRenderPass(cmd driver.Handle) {
	l.drv.CmdEndRenderPass(cmd)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdEndRenderPass{Cmd: c} })
}

func (l *Layer) CmdBindPipeline(cmd driver.Handle, bindPoint driver.PipelineBindPoint, pipeline driver.Handle) {
	l.drv.CmdBindPipeline(cmd, bindPoint, pipeline)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdBindPipeline{Cmd: c, BindPoint: bindPoint, Pipeline: l.id(pipeline)}
	})
}

func (l *Layer) CmdBindDescriptorSets(cmd driver.Handle, bindPoint driver.PipelineBindPoint, pipeline driver.Handle, firstSet uint32, sets []driver.Handle, dynamicOffsets []uint32) {
	l.drv.CmdBindDescriptorSets(cmd, bindPoint, pipeline, firstSet, sets, dynamicOffsets)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdBindDescriptorSets{
			Cmd:            c,
			BindPoint:      bindPoint,
			Layout:         l.id(pipeline),
			FirstSet:       firstSet,
			Sets:           l.rm.WrapperIDs(sets),
			DynamicOffsets: dynamicOffsets,
		}
	})
}

func (l *Layer) CmdBindVertexBuffers(cmd driver.Handle, firstBinding uint32, buffers []driver.Handle, offsets []uint64) {
	l.drv.CmdBindVertexBuffers(cmd, firstBinding, buffers, offsets)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdBindVertexBuffers{Cmd: c, First: firstBinding, Buffers: l.rm.WrapperIDs(buffers), Offsets: offsets}
	})
}

func (l *Layer) CmdBindIndexBuffer(cmd driver.Handle, buffer driver.Handle, offset uint64, indexType driver.IndexType) {
	l.drv.CmdBindIndexBuffer(cmd, buffer, offset, indexType)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdBindIndexBuffer{Cmd: c, Buffer: l.id(buffer), Offset: offset, IndexType: indexType}
	})
}

func (l *Layer) CmdSetViewport(cmd driver.Handle, first uint32, viewports []driver.Viewport) {
	l.drv.CmdSetViewport(cmd, first, viewports)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdSetViewport{Cmd: c, First: first, Viewports: viewports} })
}

func (l *Layer) CmdSetScissor(cmd driver.Handle, first uint32, scissors []driver.Rect2D) {
	l.drv.CmdSetScissor(cmd, first, scissors)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdSetScissor{Cmd: c, First: first, Scissors: scissors} })
}

func (l *Layer) CmdSetLineWidth(cmd driver.Handle, width float32) {
	l.drv.CmdSetLineWidth(cmd, width)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdSetLineWidth{Cmd: c, Width: width} })
}

func (l *Layer) CmdSetDepthBias(cmd driver.Handle, constant, clamp, slope float32) {
	l.drv.CmdSetDepthBias(cmd, constant, clamp, slope)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdSetDepthBias{Cmd: c, Constant: constant, Clamp: clamp, Slope: slope}
	})
}

func (l *Layer) CmdSetBlendConstants(cmd driver.Handle, constants [4]float32) {
	l.drv.CmdSetBlendConstants(cmd, constants)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdSetBlendConstants{Cmd: c, Constants: constants} })
}

func (l *Layer) CmdDraw(cmd driver.Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	l.drv.CmdDraw(cmd, vertexCount, instanceCount, firstVertex, firstInstance)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdDraw{Cmd: c, VertexCount: vertexCount, InstanceCount: instanceCount, FirstVertex: firstVertex, FirstInstance: firstInstance}
	})
}

func (l *Layer) CmdDrawIndexed(cmd driver.Handle, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	l.drv.CmdDrawIndexed(cmd, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdDrawIndexed{Cmd: c, IndexCount: indexCount, InstanceCount: instanceCount, FirstIndex: firstIndex, VertexOffset: vertexOffset, FirstInstance: firstInstance}
	})
}

func (l *Layer) CmdDispatch(cmd driver.Handle, x, y, z uint32) {
	l.drv.CmdDispatch(cmd, x, y, z)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdDispatch{Cmd: c, X: x, Y: y, Z: z} })
}

func (l *Layer) CmdCopyBuffer(cmd driver.Handle, src, dst driver.Handle, regions []driver.BufferCopy) {
	l.drv.CmdCopyBuffer(cmd, src, dst, regions)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdCopyBuffer{Cmd: c, Src: l.id(src), Dst: l.id(dst), Regions: regions}
	})
}

func (l *Layer) CmdClearColorImage(cmd driver.Handle, image driver.Handle, color [4]float32) {
	l.drv.CmdClearColorImage(cmd, image, color)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call {
		return &calls.CmdClearColorImage{Cmd: c, Image: l.id(image), Color: color}
	})
}

func (l *Layer) CmdResolveImage(cmd driver.Handle, src, dst driver.Handle) {
	l.drv.CmdResolveImage(cmd, src, dst)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdResolveImage{Cmd: c, Src: l.id(src), Dst: l.id(dst)} })
}

func (l *Layer) CmdDebugMarkerBegin(cmd driver.Handle, name string, color [4]float32) {
	l.drv.CmdDebugMarkerBegin(cmd, name, color)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdDebugMarkerBegin{Cmd: c, Name: name, Color: color} })
}

func (l *Layer) CmdDebugMarkerEnd(cmd driver.Handle) {
	l.drv.CmdDebugMarkerEnd(cmd)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdDebugMarkerEnd{Cmd: c} })
}

func (l *Layer) CmdDebugMarkerInsert(cmd driver.Handle, name string, color [4]float32) {
	l.drv.CmdDebugMarkerInsert(cmd, name, color)
	l.recordCmd(cmd, func(c calls.Cmd) calls.Call { return &calls.CmdDebugMarkerInsert{Cmd: c, Name: name, Color: color} })
}
