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
	"sort"

	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/pkg/errors"
)

// PipelineBinding is the pipeline and descriptor sets bound to one bind
// point.
type PipelineBinding struct {
	Pipeline       resid.ID
	FirstSet       uint32
	Sets           []resid.ID
	DynamicOffsets []uint32
}

// RenderState is the pipeline state bound by replayed commands. It persists
// across replays so a range can be replayed on top of the state the
// previous replay left behind.
type RenderState struct {
	RenderPass       resid.ID
	Framebuffer      resid.ID
	Subpass          uint32
	RenderArea       driver.Rect2D
	RenderPassActive bool

	Graphics PipelineBinding
	Compute  PipelineBinding

	FirstVertexBinding uint32
	VertexBuffers      []resid.ID
	VertexOffsets      []uint64
	IndexBuffer        resid.ID
	IndexOffset        uint64
	IndexType          driver.IndexType

	Viewports      []driver.Viewport
	Scissors       []driver.Rect2D
	LineWidth      float32
	DepthBias      [3]float32
	BlendConstants [4]float32
}

func (s RenderState) clone() RenderState {
	out := s
	out.Graphics.Sets = append([]resid.ID(nil), s.Graphics.Sets...)
	out.Graphics.DynamicOffsets = append([]uint32(nil), s.Graphics.DynamicOffsets...)
	out.Compute.Sets = append([]resid.ID(nil), s.Compute.Sets...)
	out.Compute.DynamicOffsets = append([]uint32(nil), s.Compute.DynamicOffsets...)
	out.VertexBuffers = append([]resid.ID(nil), s.VertexBuffers...)
	out.VertexOffsets = append([]uint64(nil), s.VertexOffsets...)
	out.Viewports = append([]driver.Viewport(nil), s.Viewports...)
	out.Scissors = append([]driver.Rect2D(nil), s.Scissors...)
	return out
}

// Session is the bookkeeping of a single replay request.
type Session struct {
	// partialParent is the command buffer whose truncated copy is being
	// recorded into result.
	partialParent resid.ID
	// baseEvent is the global event ID of partialParent's first command in
	// the submission being truncated.
	baseEvent uint32

	result       driver.Handle
	resultDevice driver.Handle
	resultPool   driver.Handle

	// outside, when set, receives every replayed command.
	outside driver.Handle

	first, last uint32
}

// BindMode selects which pipeline beginRenderPassAndApplyState rebinds.
type BindMode int

const (
	BindNone BindMode = iota
	BindGraphics
	BindCompute
)

// beginRenderPassAndApplyState resumes the render pass of the render state
// on cmd and rebinds the state selected by mode.
func (r *Replayer) beginRenderPassAndApplyState(cmd driver.Handle, mode BindMode) {
	s := &r.renderState
	info := driver.RenderPassBeginInfo{
		RenderPass:  r.rm.GetLiveHandle(s.RenderPass),
		Framebuffer: r.rm.GetLiveHandle(s.Framebuffer),
		RenderArea:  s.RenderArea,
	}
	r.drv.CmdBeginRenderPass(cmd, &info, driver.SubpassContentsInline)
	for i := uint32(0); i < s.Subpass; i++ {
		r.drv.CmdNextSubpass(cmd, driver.SubpassContentsInline)
	}
	r.bindPipeline(cmd, mode)
}

// bindPipeline rebinds the pipeline selected by mode with its descriptor
// sets. Graphics also restores vertex input and dynamic state.
func (r *Replayer) bindPipeline(cmd driver.Handle, mode BindMode) {
	s := &r.renderState
	bind := func(point driver.PipelineBindPoint, b *PipelineBinding) {
		if b.Pipeline.IsNull() {
			return
		}
		p := r.rm.GetLiveHandle(b.Pipeline)
		r.drv.CmdBindPipeline(cmd, point, p)
		if len(b.Sets) > 0 {
			r.drv.CmdBindDescriptorSets(cmd, point, p, b.FirstSet, r.rm.GetLiveHandles(b.Sets), b.DynamicOffsets)
		}
	}
	switch mode {
	case BindCompute:
		bind(driver.BindPointCompute, &s.Compute)
	case BindGraphics:
		bind(driver.BindPointGraphics, &s.Graphics)
		if len(s.VertexBuffers) > 0 {
			r.drv.CmdBindVertexBuffers(cmd, s.FirstVertexBinding, r.rm.GetLiveHandles(s.VertexBuffers), s.VertexOffsets)
		}
		if !s.IndexBuffer.IsNull() {
			r.drv.CmdBindIndexBuffer(cmd, r.rm.GetLiveHandle(s.IndexBuffer), s.IndexOffset, s.IndexType)
		}
		if len(s.Viewports) > 0 {
			r.drv.CmdSetViewport(cmd, 0, s.Viewports)
		}
		if len(s.Scissors) > 0 {
			r.drv.CmdSetScissor(cmd, 0, s.Scissors)
		}
		if s.LineWidth != 0 {
			r.drv.CmdSetLineWidth(cmd, s.LineWidth)
		}
		if s.DepthBias != [3]float32{} {
			r.drv.CmdSetDepthBias(cmd, s.DepthBias[0], s.DepthBias[1], s.DepthBias[2])
		}
		if s.BlendConstants != [4]float32{} {
			r.drv.CmdSetBlendConstants(cmd, s.BlendConstants)
		}
	}
}

// endRenderPass steps through the remaining subpasses of the active render
// pass and ends it.
func (r *Replayer) endRenderPass(cmd driver.Handle) {
	s := &r.renderState
	n := uint32(len(r.renderPasses[s.RenderPass].Subpasses))
	for sub := s.Subpass; sub+1 < n; sub++ {
		r.drv.CmdNextSubpass(cmd, driver.SubpassContentsInline)
	}
	r.drv.CmdEndRenderPass(cmd)
}

// internalPool returns the replayer's own command pool on the frame's
// device.
func (r *Replayer) internalPool(ctx context.Context) (driver.Handle, driver.Handle, error) {
	dev := r.rm.GetLiveHandle(r.device)
	if dev == driver.Null {
		return driver.Null, driver.Null, errors.New("No device to replay on")
	}
	if pool, ok := r.internal[r.device]; ok {
		return dev, pool, nil
	}
	info := driver.CommandPoolCreateInfo{QueueFamily: r.devices[r.device].QueueFamily}
	pool, err := r.drv.CreateCommandPool(dev, &info)
	if err != nil {
		return driver.Null, driver.Null, log.Err(ctx, err, "Creating replay command pool")
	}
	r.internal[r.device] = pool
	return dev, pool, nil
}

// beginOutside begins the command buffer a partial range is recorded into.
func (r *Replayer) beginOutside(ctx context.Context) (driver.Handle, error) {
	dev, pool, err := r.internalPool(ctx)
	if err != nil {
		return driver.Null, err
	}
	cmds, err := r.drv.AllocateCommandBuffers(dev, &driver.CommandBufferAllocateInfo{Pool: pool, Level: driver.LevelPrimary, Count: 1})
	if err != nil {
		return driver.Null, log.Err(ctx, err, "Allocating replay command buffer")
	}
	if err := r.drv.BeginCommandBuffer(cmds[0], &driver.CommandBufferBeginInfo{Flags: driver.UsageOneTimeSubmit}); err != nil {
		r.drv.FreeCommandBuffers(dev, pool, cmds)
		return driver.Null, log.Err(ctx, err, "Beginning replay command buffer")
	}
	return cmds[0], nil
}

// finishOutside ends, submits and frees the partial range command buffer.
func (r *Replayer) finishOutside(ctx context.Context, cmd driver.Handle) {
	dev, pool, _ := r.internalPool(ctx)
	defer r.drv.FreeCommandBuffers(dev, pool, []driver.Handle{cmd})
	if err := r.drv.EndCommandBuffer(cmd); err != nil {
		log.E(ctx, "Ending replay command buffer: %v", err)
		return
	}
	queue := r.rm.GetLiveHandle(r.queue)
	if err := r.drv.QueueSubmit(queue, []driver.SubmitInfo{{CommandBuffers: []driver.Handle{cmd}}}, driver.Null); err != nil {
		log.E(ctx, "Submitting replay command buffer: %v", err)
		return
	}
	r.drv.QueueWaitIdle(queue)
}

func sortIDs(ids []resid.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
