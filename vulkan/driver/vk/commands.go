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
	"unsafe"

	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	vk "github.com/goki/vulkan"
)

func (d *Driver) BeginCommandBuffer(cmd driver.Handle, info *driver.CommandBufferBeginInfo) error {
	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(info.Flags),
	}
	return vk.Error(vk.BeginCommandBuffer(d.cmd(cmd), &begin))
}

func (d *Driver) EndCommandBuffer(cmd driver.Handle) error {
	return vk.Error(vk.EndCommandBuffer(d.cmd(cmd)))
}

func (d *Driver) ResetCommandBuffer(cmd driver.Handle) error {
	return vk.Error(vk.ResetCommandBuffer(d.cmd(cmd), 0))
}

func (d *Driver) CmdBeginRenderPass(cmd driver.Handle, info *driver.RenderPassBeginInfo, contents driver.SubpassContents) {
	rp, _ := d.object(info.RenderPass).(vk.RenderPass)
	fb, _ := d.object(info.Framebuffer).(vk.Framebuffer)
	clears := make([]vk.ClearValue, len(info.ClearValues))
	for i, c := range info.ClearValues {
		clears[i].SetColor(c[:])
	}
	begin := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: info.RenderArea.Offset.X, Y: info.RenderArea.Offset.Y},
			Extent: vk.Extent2D{Width: info.RenderArea.Extent.Width, Height: info.RenderArea.Extent.Height},
		},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(d.cmd(cmd), &begin, vk.SubpassContents(contents))
}

func (d *Driver) CmdNextSubpass(cmd driver.Handle, contents driver.SubpassContents) {
	vk.CmdNextSubpass(d.cmd(cmd), vk.SubpassContents(contents))
}

func (d *Driver) CmdEndRenderPass(cmd driver.Handle) {
	vk.CmdEndRenderPass(d.cmd(cmd))
}

func bindPoint(p driver.PipelineBindPoint) vk.PipelineBindPoint {
	if p == driver.BindPointCompute {
		return vk.PipelineBindPointCompute
	}
	return vk.PipelineBindPointGraphics
}

func (d *Driver) CmdBindPipeline(cmd driver.Handle, point driver.PipelineBindPoint, pipeline driver.Handle) {
	d.mu.Lock()
	p, ok := d.pipes[pipeline]
	d.mu.Unlock()
	if ok {
		vk.CmdBindPipeline(d.cmd(cmd), bindPoint(point), p.handle)
	}
}

func (d *Driver) CmdBindDescriptorSets(cmd driver.Handle, point driver.PipelineBindPoint, pipeline driver.Handle, firstSet uint32, sets []driver.Handle, dynamicOffsets []uint32) {
	d.mu.Lock()
	p, ok := d.pipes[pipeline]
	list := make([]vk.DescriptorSet, 0, len(sets))
	for _, h := range sets {
		if s, found := d.sets[h]; found {
			list = append(list, s.handle)
		}
	}
	d.mu.Unlock()
	if !ok || len(list) == 0 {
		return
	}
	vk.CmdBindDescriptorSets(d.cmd(cmd), bindPoint(point), p.layout, firstSet,
		uint32(len(list)), list, uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (d *Driver) CmdBindVertexBuffers(cmd driver.Handle, first uint32, buffers []driver.Handle, offsets []uint64) {
	bufs := make([]vk.Buffer, len(buffers))
	offs := make([]vk.DeviceSize, len(buffers))
	for i, b := range buffers {
		bufs[i] = d.buffer(b)
		if i < len(offsets) {
			offs[i] = vk.DeviceSize(offsets[i])
		}
	}
	vk.CmdBindVertexBuffers(d.cmd(cmd), first, uint32(len(bufs)), bufs, offs)
}

func (d *Driver) CmdBindIndexBuffer(cmd driver.Handle, buffer driver.Handle, offset uint64, t driver.IndexType) {
	it := vk.IndexTypeUint16
	if t == driver.IndexTypeUint32 {
		it = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(d.cmd(cmd), d.buffer(buffer), vk.DeviceSize(offset), it)
}

func (d *Driver) CmdSetViewport(cmd driver.Handle, first uint32, viewports []driver.Viewport) {
	list := make([]vk.Viewport, len(viewports))
	for i, v := range viewports {
		list[i] = vk.Viewport{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height, MinDepth: v.MinDepth, MaxDepth: v.MaxDepth}
	}
	vk.CmdSetViewport(d.cmd(cmd), first, uint32(len(list)), list)
}

func (d *Driver) CmdSetScissor(cmd driver.Handle, first uint32, scissors []driver.Rect2D) {
	list := make([]vk.Rect2D, len(scissors))
	for i, s := range scissors {
		list[i] = vk.Rect2D{
			Offset: vk.Offset2D{X: s.Offset.X, Y: s.Offset.Y},
			Extent: vk.Extent2D{Width: s.Extent.Width, Height: s.Extent.Height},
		}
	}
	vk.CmdSetScissor(d.cmd(cmd), first, uint32(len(list)), list)
}

func (d *Driver) CmdSetLineWidth(cmd driver.Handle, width float32) {
	vk.CmdSetLineWidth(d.cmd(cmd), width)
}

func (d *Driver) CmdSetDepthBias(cmd driver.Handle, constant, clamp, slope float32) {
	vk.CmdSetDepthBias(d.cmd(cmd), constant, clamp, slope)
}

func (d *Driver) CmdSetBlendConstants(cmd driver.Handle, constants [4]float32) {
	vk.CmdSetBlendConstants(d.cmd(cmd), &constants)
}

func (d *Driver) CmdDraw(cmd driver.Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(d.cmd(cmd), vertexCount, instanceCount, firstVertex, firstInstance)
}

func (d *Driver) CmdDrawIndexed(cmd driver.Handle, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(d.cmd(cmd), indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (d *Driver) CmdDispatch(cmd driver.Handle, x, y, z uint32) {
	vk.CmdDispatch(d.cmd(cmd), x, y, z)
}

func (d *Driver) CmdCopyBuffer(cmd driver.Handle, src, dst driver.Handle, regions []driver.BufferCopy) {
	list := make([]vk.BufferCopy, len(regions))
	for i, r := range regions {
		list[i] = vk.BufferCopy{
			SrcOffset: vk.DeviceSize(r.SrcOffset),
			DstOffset: vk.DeviceSize(r.DstOffset),
			Size:      vk.DeviceSize(r.Size),
		}
	}
	vk.CmdCopyBuffer(d.cmd(cmd), d.buffer(src), d.buffer(dst), uint32(len(list)), list)
}

func (d *Driver) imageOf(h driver.Handle) *image {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.images[h]
}

func (d *Driver) CmdClearColorImage(cmd driver.Handle, h driver.Handle, color [4]float32) {
	img := d.imageOf(h)
	if img == nil {
		return
	}
	var value vk.ClearColorValue
	*(*[4]float32)(unsafe.Pointer(&value)) = color
	ranges := []vk.ImageSubresourceRange{{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: max(img.info.MipLevels, 1),
		LayerCount: max(img.info.Layers, 1),
	}}
	vk.CmdClearColorImage(d.cmd(cmd), img.handle, vk.ImageLayoutGeneral, &value, 1, ranges)
}

func (d *Driver) CmdResolveImage(cmd driver.Handle, src, dst driver.Handle) {
	s, t := d.imageOf(src), d.imageOf(dst)
	if s == nil || t == nil {
		return
	}
	layers := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
	region := []vk.ImageResolve{{
		SrcSubresource: layers,
		DstSubresource: layers,
		Extent: vk.Extent3D{
			Width:  min(s.info.Width, t.info.Width),
			Height: min(s.info.Height, t.info.Height),
			Depth:  1,
		},
	}}
	vk.CmdResolveImage(d.cmd(cmd), s.handle, vk.ImageLayoutGeneral, t.handle, vk.ImageLayoutGeneral, 1, region)
}

// CmdDebugMarkerBegin drops the marker. VK_EXT_debug_marker commands are
// not exposed by the loader bindings; markers only shape the replayer's
// drawcall tree.
func (d *Driver) CmdDebugMarkerBegin(cmd driver.Handle, name string, color [4]float32) {
	d.warnMarkers()
}

func (d *Driver) CmdDebugMarkerEnd(cmd driver.Handle) {
	d.warnMarkers()
}

func (d *Driver) CmdDebugMarkerInsert(cmd driver.Handle, name string, color [4]float32) {
	d.warnMarkers()
}

func (d *Driver) warnMarkers() {
	d.markers.Do(func() { log.W(d.ctx, "Debug markers are not forwarded to the Vulkan driver") })
}
