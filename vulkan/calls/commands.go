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

package calls

import (
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

func init() {
	register(func() Call { return &BeginCommandBuffer{} })
	register(func() Call { return &EndCommandBuffer{} })
	register(func() Call { return &CmdBeginRenderPass{} })
	register(func() Call { return &CmdNextSubpass{} })
	register(func() Call { return &CmdEndRenderPass{} })
	register(func() Call { return &CmdBindPipeline{} })
	register(func() Call { return &CmdBindDescriptorSets{} })
	register(func() Call { return &CmdBindVertexBuffers{} })
	register(func() Call { return &CmdBindIndexBuffer{} })
	register(func() Call { return &CmdSetViewport{} })
	register(func() Call { return &CmdSetScissor{} })
	register(func() Call { return &CmdSetLineWidth{} })
	register(func() Call { return &CmdSetDepthBias{} })
	register(func() Call { return &CmdSetBlendConstants{} })
	register(func() Call { return &CmdDraw{} })
	register(func() Call { return &CmdDrawIndexed{} })
	register(func() Call { return &CmdDispatch{} })
	register(func() Call { return &CmdCopyBuffer{} })
	register(func() Call { return &CmdClearColorImage{} })
	register(func() Call { return &CmdResolveImage{} })
	register(func() Call { return &CmdDebugMarkerBegin{} })
	register(func() Call { return &CmdDebugMarkerEnd{} })
	register(func() Call { return &CmdDebugMarkerInsert{} })
}

// Cmd is embedded by every command building call.
type Cmd struct {
	Buffer resid.ID
}

func (c *Cmd) CommandBuffer() resid.ID { return c.Buffer }

func (c *Cmd) serialise(s *serialize.Serializer) { s.ID("commandBuffer", &c.Buffer) }

// BeginCommandBuffer starts a baked command buffer. It carries the
// allocation info so the command buffer can be created on replay.
type BeginCommandBuffer struct {
	Cmd
	Device resid.ID
	Pool   resid.ID
	Level  driver.CommandBufferLevel
	Baked  resid.ID
	Flags  driver.CommandBufferUsage
}

func (c *BeginCommandBuffer) Kind() chunk.Kind { return chunk.BeginCommandBuffer }
func (c *BeginCommandBuffer) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.Struct("AllocateInfo", func(s *serialize.Serializer) {
		s.ID("commandPool", &c.Pool)
		serialize.Value(s, "level", &c.Level)
	})
	c.serialise(s)
	s.ID("bakeId", &c.Baked)
	serialize.Value(s, "flags", &c.Flags)
}

type EndCommandBuffer struct {
	Cmd
	Baked resid.ID
}

func (c *EndCommandBuffer) Kind() chunk.Kind { return chunk.EndCommandBuffer }
func (c *EndCommandBuffer) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.ID("bakeId", &c.Baked)
}

type CmdBeginRenderPass struct {
	Cmd
	RenderPass  resid.ID
	Framebuffer resid.ID
	RenderArea  driver.Rect2D
	ClearValues [][4]float32
	Contents    driver.SubpassContents
}

func (c *CmdBeginRenderPass) Kind() chunk.Kind { return chunk.CmdBeginRenderPass }
func (c *CmdBeginRenderPass) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.Struct("RenderPassBegin", func(s *serialize.Serializer) {
		s.ID("renderPass", &c.RenderPass)
		s.ID("framebuffer", &c.Framebuffer)
		rect(s, "renderArea", &c.RenderArea)
		serialize.Array(s, "pClearValues", &c.ClearValues, func(s *serialize.Serializer, v *[4]float32) {
			color(s, "color", v)
		})
	})
	serialize.Value(s, "contents", &c.Contents)
}

// Refs lists the render pass and framebuffer. The framebuffer's attachments
// are written, which capture adds from the framebuffer's own references.
func (c *CmdBeginRenderPass) Refs() []Ref { return reads(c.RenderPass, c.Framebuffer) }

type CmdNextSubpass struct {
	Cmd
	Contents driver.SubpassContents
}

func (c *CmdNextSubpass) Kind() chunk.Kind { return chunk.CmdNextSubpass }
func (c *CmdNextSubpass) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	serialize.Value(s, "contents", &c.Contents)
}

type CmdEndRenderPass struct{ Cmd }

func (c *CmdEndRenderPass) Kind() chunk.Kind                  { return chunk.CmdEndRenderPass }
func (c *CmdEndRenderPass) Serialise(s *serialize.Serializer) { c.serialise(s) }

type CmdBindPipeline struct {
	Cmd
	BindPoint driver.PipelineBindPoint
	Pipeline  resid.ID
}

func (c *CmdBindPipeline) Kind() chunk.Kind { return chunk.CmdBindPipeline }
func (c *CmdBindPipeline) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	serialize.Value(s, "pipelineBindPoint", &c.BindPoint)
	s.ID("pipeline", &c.Pipeline)
}

func (c *CmdBindPipeline) Refs() []Ref { return reads(c.Pipeline) }

type CmdBindDescriptorSets struct {
	Cmd
	BindPoint      driver.PipelineBindPoint
	Layout         resid.ID
	FirstSet       uint32
	Sets           []resid.ID
	DynamicOffsets []uint32
}

func (c *CmdBindDescriptorSets) Kind() chunk.Kind { return chunk.CmdBindDescriptorSets }
func (c *CmdBindDescriptorSets) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	serialize.Value(s, "pipelineBindPoint", &c.BindPoint)
	s.ID("layout", &c.Layout)
	s.U32("firstSet", &c.FirstSet)
	s.IDs("pDescriptorSets", &c.Sets)
	serialize.Array(s, "pDynamicOffsets", &c.DynamicOffsets, func(s *serialize.Serializer, v *uint32) { s.U32("", v) })
}

// Refs lists the sets. The resources they hold are added by capture from
// each set's own references.
func (c *CmdBindDescriptorSets) Refs() []Ref { return reads(c.Sets...) }

type CmdBindVertexBuffers struct {
	Cmd
	First   uint32
	Buffers []resid.ID
	Offsets []uint64
}

func (c *CmdBindVertexBuffers) Kind() chunk.Kind { return chunk.CmdBindVertexBuffers }
func (c *CmdBindVertexBuffers) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.U32("firstBinding", &c.First)
	s.IDs("pBuffers", &c.Buffers)
	serialize.Array(s, "pOffsets", &c.Offsets, func(s *serialize.Serializer, v *uint64) { s.U64("", v) })
}

func (c *CmdBindVertexBuffers) Refs() []Ref { return reads(c.Buffers...) }

type CmdBindIndexBuffer struct {
	Cmd
	Buffer    resid.ID
	Offset    uint64
	IndexType driver.IndexType
}

func (c *CmdBindIndexBuffer) Kind() chunk.Kind { return chunk.CmdBindIndexBuffer }
func (c *CmdBindIndexBuffer) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.ID("buffer", &c.Buffer)
	s.U64("offset", &c.Offset)
	serialize.Value(s, "indexType", &c.IndexType)
}

func (c *CmdBindIndexBuffer) Refs() []Ref { return reads(c.Buffer) }

type CmdSetViewport struct {
	Cmd
	First     uint32
	Viewports []driver.Viewport
}

func (c *CmdSetViewport) Kind() chunk.Kind { return chunk.CmdSetViewport }
func (c *CmdSetViewport) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.U32("firstViewport", &c.First)
	serialize.Array(s, "pViewports", &c.Viewports, viewport)
}

type CmdSetScissor struct {
	Cmd
	First    uint32
	Scissors []driver.Rect2D
}

func (c *CmdSetScissor) Kind() chunk.Kind { return chunk.CmdSetScissor }
func (c *CmdSetScissor) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.U32("firstScissor", &c.First)
	serialize.Array(s, "pScissors", &c.Scissors, func(s *serialize.Serializer, r *driver.Rect2D) {
		rect(s, "scissor", r)
	})
}

type CmdSetLineWidth struct {
	Cmd
	Width float32
}

func (c *CmdSetLineWidth) Kind() chunk.Kind { return chunk.CmdSetLineWidth }
func (c *CmdSetLineWidth) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.F32("lineWidth", &c.Width)
}

type CmdSetDepthBias struct {
	Cmd
	Constant, Clamp, Slope float32
}

func (c *CmdSetDepthBias) Kind() chunk.Kind { return chunk.CmdSetDepthBias }
func (c *CmdSetDepthBias) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.F32("depthBias", &c.Constant)
	s.F32("depthBiasClamp", &c.Clamp)
	s.F32("slopeScaledDepthBias", &c.Slope)
}

type CmdSetBlendConstants struct {
	Cmd
	Constants [4]float32
}

func (c *CmdSetBlendConstants) Kind() chunk.Kind { return chunk.CmdSetBlendConstants }
func (c *CmdSetBlendConstants) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	color(s, "blendConst", &c.Constants)
}

type CmdDraw struct {
	Cmd
	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

func (c *CmdDraw) Kind() chunk.Kind { return chunk.CmdDraw }
func (c *CmdDraw) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.U32("vertexCount", &c.VertexCount)
	s.U32("instanceCount", &c.InstanceCount)
	s.U32("firstVertex", &c.FirstVertex)
	s.U32("firstInstance", &c.FirstInstance)
}

type CmdDrawIndexed struct {
	Cmd
	IndexCount, InstanceCount, FirstIndex uint32
	VertexOffset                          int32
	FirstInstance                         uint32
}

func (c *CmdDrawIndexed) Kind() chunk.Kind { return chunk.CmdDrawIndexed }
func (c *CmdDrawIndexed) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.U32("indexCount", &c.IndexCount)
	s.U32("instanceCount", &c.InstanceCount)
	s.U32("firstIndex", &c.FirstIndex)
	s.I32("vertexOffset", &c.VertexOffset)
	s.U32("firstInstance", &c.FirstInstance)
}

type CmdDispatch struct {
	Cmd
	X, Y, Z uint32
}

func (c *CmdDispatch) Kind() chunk.Kind { return chunk.CmdDispatch }
func (c *CmdDispatch) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.U32("x", &c.X)
	s.U32("y", &c.Y)
	s.U32("z", &c.Z)
}

type CmdCopyBuffer struct {
	Cmd
	Src, Dst resid.ID
	Regions  []driver.BufferCopy
}

func (c *CmdCopyBuffer) Kind() chunk.Kind { return chunk.CmdCopyBuffer }
func (c *CmdCopyBuffer) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.ID("srcBuffer", &c.Src)
	s.ID("dstBuffer", &c.Dst)
	serialize.Array(s, "pRegions", &c.Regions, func(s *serialize.Serializer, r *driver.BufferCopy) {
		s.U64("srcOffset", &r.SrcOffset)
		s.U64("dstOffset", &r.DstOffset)
		s.U64("size", &r.Size)
	})
}

func (c *CmdCopyBuffer) Refs() []Ref { return append(reads(c.Src), writes(c.Dst)...) }

type CmdClearColorImage struct {
	Cmd
	Image resid.ID
	Color [4]float32
}

func (c *CmdClearColorImage) Kind() chunk.Kind { return chunk.CmdClearColorImage }
func (c *CmdClearColorImage) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.ID("image", &c.Image)
	color(s, "pColor", &c.Color)
}

func (c *CmdClearColorImage) Refs() []Ref { return writes(c.Image) }

type CmdResolveImage struct {
	Cmd
	Src, Dst resid.ID
}

func (c *CmdResolveImage) Kind() chunk.Kind { return chunk.CmdResolveImage }
func (c *CmdResolveImage) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.ID("srcImage", &c.Src)
	s.ID("dstImage", &c.Dst)
}

func (c *CmdResolveImage) Refs() []Ref { return append(reads(c.Src), writes(c.Dst)...) }

type CmdDebugMarkerBegin struct {
	Cmd
	Name  string
	Color [4]float32
}

func (c *CmdDebugMarkerBegin) Kind() chunk.Kind { return chunk.CmdDebugMarkerBegin }
func (c *CmdDebugMarkerBegin) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.String("pMarkerName", &c.Name)
	color(s, "color", &c.Color)
}

type CmdDebugMarkerEnd struct{ Cmd }

func (c *CmdDebugMarkerEnd) Kind() chunk.Kind                  { return chunk.CmdDebugMarkerEnd }
func (c *CmdDebugMarkerEnd) Serialise(s *serialize.Serializer) { c.serialise(s) }

type CmdDebugMarkerInsert struct {
	Cmd
	Name  string
	Color [4]float32
}

func (c *CmdDebugMarkerInsert) Kind() chunk.Kind { return chunk.CmdDebugMarkerInsert }
func (c *CmdDebugMarkerInsert) Serialise(s *serialize.Serializer) {
	c.serialise(s)
	s.String("pMarkerName", &c.Name)
	color(s, "color", &c.Color)
}

var _ = []CmdCall{
	&CmdDraw{}, &CmdBeginRenderPass{}, &BeginCommandBuffer{}, &EndCommandBuffer{},
}
