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
	"fmt"

	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/config"
	"github.com/gfxtrace/vkreplay/vulkan/drawcall"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
)

// shouldRerecord returns true if commands of cmd are recorded again while
// executing.
func (r *Replayer) shouldRerecord(cmd resid.ID) bool {
	s := r.session
	if s == nil {
		return false
	}
	return s.outside != driver.Null || (!cmd.IsNull() && cmd == s.partialParent)
}

// inRerecordRange returns true if the cursor of cmd has not passed the last
// event of the replay.
func (r *Replayer) inRerecordRange(cmd resid.ID) bool {
	s := r.session
	if s.outside != driver.Null {
		return r.rootEventID <= s.last
	}
	return r.bakedInfo(cmd).curEventID <= s.last-s.baseEvent
}

func (r *Replayer) rerecordBuffer() driver.Handle {
	if r.session.outside != driver.Null {
		return r.session.outside
	}
	return r.session.result
}

// target returns the command buffer a command recorded into cmd goes to.
// While reading that is the baked command buffer. While executing it is the
// partial command buffer, if the command is replayed at all.
func (r *Replayer) target(cmd resid.ID) (driver.Handle, bool) {
	if r.state == Reading {
		h := r.rm.GetLiveHandle(cmd)
		return h, h != driver.Null
	}
	if r.shouldRerecord(cmd) && r.inRerecordRange(cmd) {
		return r.rerecordBuffer(), true
	}
	return driver.Null, false
}

func (r *Replayer) beginCommandBuffer(ctx context.Context, c *calls.BeginCommandBuffer) error {
	info := r.bakedInfo(c.Buffer)
	if r.state == Executing {
		defer func() { info.curEventID = 0 }()
		s := r.session
		if s.outside != driver.Null {
			return nil
		}
		length := r.bakedInfo(c.Baked).eventCount
		for _, base := range r.submits[c.Baked] {
			if base > s.last || s.last >= base+length {
				continue
			}
			if !s.partialParent.IsNull() {
				r.internalError(ctx, "Command buffer %v is partial while %v is", c.Buffer, s.partialParent)
				return nil
			}
			if config.DebugPartialReplay {
				log.D(ctx, "Partial replay of %v from event %d", c.Buffer, base)
			}
			return r.beginPartial(ctx, c, base)
		}
		return nil
	}

	flags := c.Flags &^ driver.UsageOneTimeSubmit
	var h driver.Handle
	if !r.rm.HasLiveResource(c.Baked) {
		dev, err := r.liveDevice(c.Device)
		if err != nil {
			return err
		}
		cmds, err := r.drv.AllocateCommandBuffers(dev, &driver.CommandBufferAllocateInfo{
			Pool:  r.rm.GetLiveHandle(c.Pool),
			Level: c.Level,
			Count: 1,
		})
		if err != nil {
			return log.Err(ctx, err, "Allocating baked command buffer")
		}
		h = cmds[0]
		r.rm.AddLiveResource(c.Baked, h)
		r.rm.ReplaceResource(c.Buffer, c.Baked)
	} else {
		h = r.rm.GetLiveHandle(c.Baked)
	}
	if c.Level == driver.LevelSecondary {
		r.warnOnce(ctx, "Secondary command buffer execution")
	}
	info.draw = drawcall.NewNode(drawcall.Description{})
	info.drawStack = []*drawcall.TreeNode{info.draw}
	info.curEvents = nil
	info.curEventID, info.eventCount, info.drawCount = 0, 0, 0
	info.level, info.flags = c.Level, flags
	info.beginChunk = r.chunkIdx
	info.state = cmdState{}
	return r.drv.BeginCommandBuffer(h, &driver.CommandBufferBeginInfo{Flags: flags})
}

// beginPartial begins the command buffer that stands in for c while it is
// replayed up to the session's last event.
func (r *Replayer) beginPartial(ctx context.Context, c *calls.BeginCommandBuffer, base uint32) error {
	s := r.session
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	pool := r.rm.GetLiveHandle(c.Pool)
	cmds, err := r.drv.AllocateCommandBuffers(dev, &driver.CommandBufferAllocateInfo{Pool: pool, Level: c.Level, Count: 1})
	if err != nil {
		return log.Err(ctx, err, "Allocating partial command buffer")
	}
	s.partialParent, s.baseEvent = c.Buffer, base
	s.result, s.resultDevice, s.resultPool = cmds[0], dev, pool
	r.renderState.RenderPassActive = false
	return r.drv.BeginCommandBuffer(cmds[0], &driver.CommandBufferBeginInfo{Flags: c.Flags | driver.UsageOneTimeSubmit})
}

func (r *Replayer) endCommandBuffer(ctx context.Context, c *calls.EndCommandBuffer) error {
	info := r.bakedInfo(c.Buffer)
	if r.state == Executing {
		defer func() { info.curEventID = 0 }()
		s := r.session
		if s.outside != driver.Null || c.Buffer != s.partialParent || c.Buffer.IsNull() {
			return nil
		}
		cmd := s.result
		if r.renderState.RenderPassActive {
			r.endRenderPass(cmd)
		}
		s.partialParent = resid.Null
		return r.drv.EndCommandBuffer(cmd)
	}

	h := r.rm.GetLiveHandle(c.Baked)
	r.rm.RemoveReplacement(c.Buffer)
	err := r.drv.EndCommandBuffer(h)
	if len(info.curEvents) > 0 {
		r.AddEvent(c.Kind(), "vkEndCommandBuffer()")
		r.AddDrawcall(ctx, drawcall.Description{Name: "API Calls", Flags: drawcall.SetMarker | drawcall.APICalls}, true)
		info.curEventID++
	}
	if len(info.drawStack) > 1 {
		info.drawStack = info.drawStack[:len(info.drawStack)-1]
	}
	baked := r.bakedInfo(c.Baked)
	baked.draw = info.draw
	baked.curEvents = info.curEvents
	baked.eventCount = info.curEventID
	baked.drawCount = info.drawCount
	baked.level, baked.flags = info.level, info.flags
	baked.beginChunk, baked.endChunk = info.beginChunk, r.chunkIdx
	*info = bakedInfo{}
	return err
}

func (r *Replayer) cmdBeginRenderPass(ctx context.Context, c *calls.CmdBeginRenderPass) error {
	if cmd, ok := r.target(c.Buffer); ok {
		info := driver.RenderPassBeginInfo{
			RenderPass:  r.rm.GetLiveHandle(c.RenderPass),
			Framebuffer: r.rm.GetLiveHandle(c.Framebuffer),
			RenderArea:  c.RenderArea,
			ClearValues: c.ClearValues,
		}
		r.drv.CmdBeginRenderPass(cmd, &info, c.Contents)
		if r.state == Executing {
			s := &r.renderState
			s.RenderPassActive = true
			s.RenderPass, s.Framebuffer, s.Subpass = c.RenderPass, c.Framebuffer, 0
			s.RenderArea = c.RenderArea
		}
	}
	if r.state == Reading {
		st := &r.bakedInfo(c.Buffer).state
		st.renderPass, st.framebuffer, st.subpass = c.RenderPass, c.Framebuffer, 0
		r.AddEvent(c.Kind(), "vkCmdBeginRenderPass()")
		r.AddDrawcall(ctx, drawcall.Description{Name: "vkCmdBeginRenderPass()", Flags: drawcall.PassBoundary | drawcall.BeginPass}, true)
	}
	return nil
}

func (r *Replayer) cmdNextSubpass(ctx context.Context, c *calls.CmdNextSubpass) error {
	if cmd, ok := r.target(c.Buffer); ok {
		if r.state == Reading {
			r.drv.CmdNextSubpass(cmd, c.Contents)
		} else if r.session.first != r.session.last {
			r.drv.CmdNextSubpass(cmd, c.Contents)
			r.renderState.Subpass++
		}
	}
	if r.state == Reading {
		r.bakedInfo(c.Buffer).state.subpass++
		r.AddEvent(c.Kind(), "vkCmdNextSubpass()")
		r.AddDrawcall(ctx, drawcall.Description{Name: "vkCmdNextSubpass()", Flags: drawcall.PassBoundary | drawcall.BeginPass | drawcall.EndPass}, true)
	}
	return nil
}

func (r *Replayer) cmdEndRenderPass(ctx context.Context, c *calls.CmdEndRenderPass) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdEndRenderPass(cmd)
		if r.state == Executing {
			r.renderState.RenderPassActive = false
		}
	}
	if r.state == Reading {
		r.AddEvent(c.Kind(), "vkCmdEndRenderPass()")
		r.AddDrawcall(ctx, drawcall.Description{Name: "vkCmdEndRenderPass()", Flags: drawcall.PassBoundary | drawcall.EndPass}, true)
		st := &r.bakedInfo(c.Buffer).state
		st.renderPass, st.framebuffer, st.subpass = resid.Null, resid.Null, 0
	}
	return nil
}

func (r *Replayer) cmdBindPipeline(ctx context.Context, c *calls.CmdBindPipeline) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdBindPipeline(cmd, c.BindPoint, r.rm.GetLiveHandle(c.Pipeline))
		if r.state == Executing {
			r.binding(c.BindPoint).Pipeline = c.Pipeline
		}
	}
	if r.state == Reading && c.BindPoint == driver.BindPointGraphics {
		r.bakedInfo(c.Buffer).state.pipeline = c.Pipeline
	}
	return nil
}

func (r *Replayer) binding(point driver.PipelineBindPoint) *PipelineBinding {
	if point == driver.BindPointCompute {
		return &r.renderState.Compute
	}
	return &r.renderState.Graphics
}

func (r *Replayer) cmdBindDescriptorSets(ctx context.Context, c *calls.CmdBindDescriptorSets) error {
	cmd, ok := r.target(c.Buffer)
	if !ok {
		return nil
	}
	r.drv.CmdBindDescriptorSets(cmd, c.BindPoint, r.rm.GetLiveHandle(c.Layout), c.FirstSet, r.rm.GetLiveHandles(c.Sets), c.DynamicOffsets)
	if r.state == Executing {
		b := r.binding(c.BindPoint)
		b.FirstSet = c.FirstSet
		b.Sets = append([]resid.ID(nil), c.Sets...)
		b.DynamicOffsets = append([]uint32(nil), c.DynamicOffsets...)
	}
	return nil
}

func (r *Replayer) cmdBindVertexBuffers(ctx context.Context, c *calls.CmdBindVertexBuffers) error {
	cmd, ok := r.target(c.Buffer)
	if !ok {
		return nil
	}
	r.drv.CmdBindVertexBuffers(cmd, c.First, r.rm.GetLiveHandles(c.Buffers), c.Offsets)
	if r.state == Executing {
		s := &r.renderState
		s.FirstVertexBinding = c.First
		s.VertexBuffers = append([]resid.ID(nil), c.Buffers...)
		s.VertexOffsets = append([]uint64(nil), c.Offsets...)
	}
	return nil
}

func (r *Replayer) cmdBindIndexBuffer(ctx context.Context, c *calls.CmdBindIndexBuffer) error {
	if cmd, ok := r.target(c.Cmd.Buffer); ok {
		r.drv.CmdBindIndexBuffer(cmd, r.rm.GetLiveHandle(c.Buffer), c.Offset, c.IndexType)
		if r.state == Executing {
			s := &r.renderState
			s.IndexBuffer, s.IndexOffset, s.IndexType = c.Buffer, c.Offset, c.IndexType
		}
	}
	if r.state == Reading {
		r.bakedInfo(c.Cmd.Buffer).state.idxWidth = c.IndexType.Width()
	}
	return nil
}

func (r *Replayer) cmdSetViewport(ctx context.Context, c *calls.CmdSetViewport) error {
	cmd, ok := r.target(c.Buffer)
	if !ok {
		return nil
	}
	r.drv.CmdSetViewport(cmd, c.First, c.Viewports)
	if r.state == Executing {
		s := &r.renderState
		s.Viewports = setRange(s.Viewports, c.First, c.Viewports)
	}
	return nil
}

func (r *Replayer) cmdSetScissor(ctx context.Context, c *calls.CmdSetScissor) error {
	cmd, ok := r.target(c.Buffer)
	if !ok {
		return nil
	}
	r.drv.CmdSetScissor(cmd, c.First, c.Scissors)
	if r.state == Executing {
		s := &r.renderState
		s.Scissors = setRange(s.Scissors, c.First, c.Scissors)
	}
	return nil
}

// setRange overwrites list from first onwards, growing it as needed.
func setRange[T any](list []T, first uint32, values []T) []T {
	if need := int(first) + len(values); need > len(list) {
		list = append(list, make([]T, need-len(list))...)
	}
	copy(list[first:], values)
	return list
}

func (r *Replayer) cmdSetLineWidth(ctx context.Context, c *calls.CmdSetLineWidth) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdSetLineWidth(cmd, c.Width)
		if r.state == Executing {
			r.renderState.LineWidth = c.Width
		}
	}
	return nil
}

func (r *Replayer) cmdSetDepthBias(ctx context.Context, c *calls.CmdSetDepthBias) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdSetDepthBias(cmd, c.Constant, c.Clamp, c.Slope)
		if r.state == Executing {
			r.renderState.DepthBias = [3]float32{c.Constant, c.Clamp, c.Slope}
		}
	}
	return nil
}

func (r *Replayer) cmdSetBlendConstants(ctx context.Context, c *calls.CmdSetBlendConstants) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdSetBlendConstants(cmd, c.Constants)
		if r.state == Executing {
			r.renderState.BlendConstants = c.Constants
		}
	}
	return nil
}

func (r *Replayer) cmdDraw(ctx context.Context, c *calls.CmdDraw) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdDraw(cmd, c.VertexCount, c.InstanceCount, c.FirstVertex, c.FirstInstance)
	}
	if r.state == Reading {
		name := fmt.Sprintf("vkCmdDraw(%d, %d)", c.VertexCount, c.InstanceCount)
		flags := drawcall.Drawcall
		if c.InstanceCount > 1 {
			flags |= drawcall.Instanced
		}
		r.AddEvent(c.Kind(), name)
		r.AddDrawcall(ctx, drawcall.Description{
			Name:           name,
			Flags:          flags,
			NumIndices:     c.VertexCount,
			NumInstances:   c.InstanceCount,
			VertexOffset:   c.FirstVertex,
			InstanceOffset: c.FirstInstance,
		}, true)
	}
	return nil
}

func (r *Replayer) cmdDrawIndexed(ctx context.Context, c *calls.CmdDrawIndexed) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdDrawIndexed(cmd, c.IndexCount, c.InstanceCount, c.FirstIndex, c.VertexOffset, c.FirstInstance)
	}
	if r.state == Reading {
		name := fmt.Sprintf("vkCmdDrawIndexed(%d, %d)", c.IndexCount, c.InstanceCount)
		flags := drawcall.Drawcall | drawcall.Indexed
		if c.InstanceCount > 1 {
			flags |= drawcall.Instanced
		}
		r.AddEvent(c.Kind(), name)
		r.AddDrawcall(ctx, drawcall.Description{
			Name:           name,
			Flags:          flags,
			NumIndices:     c.IndexCount,
			NumInstances:   c.InstanceCount,
			IndexOffset:    c.FirstIndex,
			BaseVertex:     c.VertexOffset,
			InstanceOffset: c.FirstInstance,
		}, true)
	}
	return nil
}

func (r *Replayer) cmdDispatch(ctx context.Context, c *calls.CmdDispatch) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdDispatch(cmd, c.X, c.Y, c.Z)
	}
	if r.state == Reading {
		name := fmt.Sprintf("vkCmdDispatch(%d, %d, %d)", c.X, c.Y, c.Z)
		r.AddEvent(c.Kind(), name)
		r.AddDrawcall(ctx, drawcall.Description{Name: name, Flags: drawcall.Dispatch, Dispatch: [3]uint32{c.X, c.Y, c.Z}}, true)
	}
	return nil
}

func (r *Replayer) cmdCopyBuffer(ctx context.Context, c *calls.CmdCopyBuffer) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdCopyBuffer(cmd, r.rm.GetLiveHandle(c.Src), r.rm.GetLiveHandle(c.Dst), c.Regions)
	}
	if r.state == Reading {
		name := fmt.Sprintf("vkCmdCopyBuffer(%v, %v)", c.Src, c.Dst)
		r.AddEvent(c.Kind(), name)
		r.AddDrawcall(ctx, drawcall.Description{Name: name, Flags: drawcall.Copy}, true)
	}
	return nil
}

func (r *Replayer) cmdClearColorImage(ctx context.Context, c *calls.CmdClearColorImage) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdClearColorImage(cmd, r.rm.GetLiveHandle(c.Image), c.Color)
	}
	if r.state == Reading {
		name := fmt.Sprintf("vkCmdClearColorImage(%v)", c.Image)
		r.AddEvent(c.Kind(), name)
		d := drawcall.Description{Name: name, Flags: drawcall.Clear}
		d.Outputs[0] = c.Image
		r.AddDrawcall(ctx, d, true)
	}
	return nil
}

func (r *Replayer) cmdResolveImage(ctx context.Context, c *calls.CmdResolveImage) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdResolveImage(cmd, r.rm.GetLiveHandle(c.Src), r.rm.GetLiveHandle(c.Dst))
	}
	if r.state == Reading {
		name := fmt.Sprintf("vkCmdResolveImage(%v, %v)", c.Src, c.Dst)
		r.AddEvent(c.Kind(), name)
		r.AddDrawcall(ctx, drawcall.Description{Name: name, Flags: drawcall.Resolve}, true)
	}
	return nil
}

func (r *Replayer) cmdDebugMarkerBegin(ctx context.Context, c *calls.CmdDebugMarkerBegin) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdDebugMarkerBegin(cmd, c.Name, c.Color)
	}
	if r.state == Reading {
		r.AddEvent(c.Kind(), c.Name)
		r.AddDrawcall(ctx, drawcall.Description{Name: c.Name, Flags: drawcall.PushMarker}, false)
	}
	return nil
}

func (r *Replayer) cmdDebugMarkerEnd(ctx context.Context, c *calls.CmdDebugMarkerEnd) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdDebugMarkerEnd(cmd)
	}
	if r.state == Reading {
		pending := len(r.bakedInfo(c.Buffer).curEvents) > 0
		r.AddEvent(c.Kind(), "vkCmdDebugMarkerEnd()")
		if pending {
			r.AddDrawcall(ctx, drawcall.Description{Name: "API Calls", Flags: drawcall.SetMarker | drawcall.APICalls}, true)
		}
		r.AddDrawcall(ctx, drawcall.Description{Name: "Pop()", Flags: drawcall.PopMarker}, !pending)
	}
	return nil
}

func (r *Replayer) cmdDebugMarkerInsert(ctx context.Context, c *calls.CmdDebugMarkerInsert) error {
	if cmd, ok := r.target(c.Buffer); ok {
		r.drv.CmdDebugMarkerInsert(cmd, c.Name, c.Color)
	}
	if r.state == Reading {
		r.AddEvent(c.Kind(), c.Name)
		r.AddDrawcall(ctx, drawcall.Description{Name: c.Name, Flags: drawcall.SetMarker}, true)
	}
	return nil
}
