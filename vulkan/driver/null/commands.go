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

package null

import (
	"fmt"

	"github.com/gfxtrace/vkreplay/vulkan/driver"
)

// record appends a command to cmd, validating that it is being recorded.
// check, if non-nil, runs under the driver lock before the command is added.
func (d *Driver) record(cmd driver.Handle, name string, args string, check ...func(*cmdBuffer)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call(name, cmd)
	c, ok := d.cmds[cmd]
	if !ok {
		d.invalid("%s: %v is not a command buffer", name, cmd)
		return
	}
	if !c.recording {
		d.invalid("%s: %v is not recording", name, cmd)
		return
	}
	for _, f := range check {
		f(c)
	}
	c.commands = append(c.commands, Command{Name: name, Args: args})
}

func (d *Driver) BeginCommandBuffer(cmd driver.Handle, info *driver.CommandBufferBeginInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkBeginCommandBuffer", cmd)
	if err := d.failure("vkBeginCommandBuffer"); err != nil {
		return err
	}
	c, ok := d.cmds[cmd]
	if !ok {
		d.invalid("vkBeginCommandBuffer: %v is not a command buffer", cmd)
		return driver.ErrorInitializationFailed
	}
	if c.recording {
		d.invalid("vkBeginCommandBuffer: %v is already recording", cmd)
	}
	// Begin implicitly resets.
	*c = cmdBuffer{pool: c.pool, recording: true, oneTime: info.Flags&driver.UsageOneTimeSubmit != 0}
	return nil
}

func (d *Driver) EndCommandBuffer(cmd driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkEndCommandBuffer", cmd)
	c, ok := d.cmds[cmd]
	if !ok || !c.recording {
		d.invalid("vkEndCommandBuffer: %v is not recording", cmd)
		return driver.ErrorInitializationFailed
	}
	if c.inPass {
		d.invalid("vkEndCommandBuffer: %v ended inside a render pass", cmd)
	}
	c.recording, c.executable = false, true
	return d.failure("vkEndCommandBuffer")
}

func (d *Driver) ResetCommandBuffer(cmd driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkResetCommandBuffer", cmd)
	if c, ok := d.cmds[cmd]; ok {
		*c = cmdBuffer{pool: c.pool}
	}
	return nil
}

func (d *Driver) CmdBeginRenderPass(cmd driver.Handle, info *driver.RenderPassBeginInfo, contents driver.SubpassContents) {
	d.record(cmd, "vkCmdBeginRenderPass", fmt.Sprintf("rp=%v fb=%v", info.RenderPass, info.Framebuffer), func(c *cmdBuffer) {
		if c.inPass {
			d.invalid("vkCmdBeginRenderPass: %v already inside a render pass", cmd)
		}
		c.inPass = true
	})
}

func (d *Driver) CmdNextSubpass(cmd driver.Handle, contents driver.SubpassContents) {
	d.record(cmd, "vkCmdNextSubpass", "")
}

func (d *Driver) CmdEndRenderPass(cmd driver.Handle) {
	d.record(cmd, "vkCmdEndRenderPass", "", func(c *cmdBuffer) {
		if !c.inPass {
			d.invalid("vkCmdEndRenderPass: %v is not inside a render pass", cmd)
		}
		c.inPass = false
	})
}

func (d *Driver) CmdBindPipeline(cmd driver.Handle, bindPoint driver.PipelineBindPoint, pipeline driver.Handle) {
	d.record(cmd, "vkCmdBindPipeline", fmt.Sprintf("point=%d pipeline=%v", bindPoint, pipeline))
}

func (d *Driver) CmdBindDescriptorSets(cmd driver.Handle, bindPoint driver.PipelineBindPoint, pipeline driver.Handle, firstSet uint32, sets []driver.Handle, dynamicOffsets []uint32) {
	d.record(cmd, "vkCmdBindDescriptorSets", fmt.Sprintf("first=%d sets=%v offsets=%v", firstSet, sets, dynamicOffsets))
}

func (d *Driver) CmdBindVertexBuffers(cmd driver.Handle, firstBinding uint32, buffers []driver.Handle, offsets []uint64) {
	d.record(cmd, "vkCmdBindVertexBuffers", fmt.Sprintf("first=%d buffers=%v", firstBinding, buffers))
}

func (d *Driver) CmdBindIndexBuffer(cmd driver.Handle, buffer driver.Handle, offset uint64, indexType driver.IndexType) {
	d.record(cmd, "vkCmdBindIndexBuffer", fmt.Sprintf("buffer=%v type=%d", buffer, indexType))
}

func (d *Driver) CmdSetViewport(cmd driver.Handle, first uint32, viewports []driver.Viewport) {
	d.record(cmd, "vkCmdSetViewport", fmt.Sprintf("%v", viewports))
}

func (d *Driver) CmdSetScissor(cmd driver.Handle, first uint32, scissors []driver.Rect2D) {
	d.record(cmd, "vkCmdSetScissor", fmt.Sprintf("%v", scissors))
}

func (d *Driver) CmdSetLineWidth(cmd driver.Handle, width float32) {
	d.record(cmd, "vkCmdSetLineWidth", fmt.Sprint(width))
}

func (d *Driver) CmdSetDepthBias(cmd driver.Handle, constant, clamp, slope float32) {
	d.record(cmd, "vkCmdSetDepthBias", fmt.Sprint(constant, clamp, slope))
}

func (d *Driver) CmdSetBlendConstants(cmd driver.Handle, constants [4]float32) {
	d.record(cmd, "vkCmdSetBlendConstants", fmt.Sprint(constants))
}

func (d *Driver) CmdDraw(cmd driver.Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	d.record(cmd, "vkCmdDraw", fmt.Sprintf("vertices=%d instances=%d", vertexCount, instanceCount))
}

func (d *Driver) CmdDrawIndexed(cmd driver.Handle, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	d.record(cmd, "vkCmdDrawIndexed", fmt.Sprintf("indices=%d instances=%d", indexCount, instanceCount))
}

func (d *Driver) CmdDispatch(cmd driver.Handle, x, y, z uint32) {
	d.record(cmd, "vkCmdDispatch", fmt.Sprintf("%d,%d,%d", x, y, z))
}

func (d *Driver) CmdCopyBuffer(cmd driver.Handle, src, dst driver.Handle, regions []driver.BufferCopy) {
	d.record(cmd, "vkCmdCopyBuffer", fmt.Sprintf("%v -> %v", src, dst))
}

func (d *Driver) CmdClearColorImage(cmd driver.Handle, image driver.Handle, color [4]float32) {
	d.record(cmd, "vkCmdClearColorImage", fmt.Sprintf("%v %v", image, color))
}

func (d *Driver) CmdResolveImage(cmd driver.Handle, src, dst driver.Handle) {
	d.record(cmd, "vkCmdResolveImage", fmt.Sprintf("%v -> %v", src, dst))
}

func (d *Driver) CmdDebugMarkerBegin(cmd driver.Handle, name string, color [4]float32) {
	d.record(cmd, "vkCmdDebugMarkerBeginEXT", name)
}

func (d *Driver) CmdDebugMarkerEnd(cmd driver.Handle) {
	d.record(cmd, "vkCmdDebugMarkerEndEXT", "")
}

func (d *Driver) CmdDebugMarkerInsert(cmd driver.Handle, name string, color [4]float32) {
	d.record(cmd, "vkCmdDebugMarkerInsertEXT", name)
}

func (d *Driver) QueueSubmit(queue driver.Handle, submits []driver.SubmitInfo, fence driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkQueueSubmit", queue)
	if err := d.failure("vkQueueSubmit"); err != nil {
		return err
	}
	for _, s := range submits {
		for _, h := range s.CommandBuffers {
			c, ok := d.cmds[h]
			switch {
			case !ok:
				d.invalid("vkQueueSubmit: %v is not a command buffer", h)
			case !c.executable:
				d.invalid("vkQueueSubmit: %v is not executable", h)
			case c.oneTime && c.submitted:
				d.invalid("vkQueueSubmit: one-time %v submitted twice", h)
			default:
				c.submitted = true
			}
		}
		d.submissions = append(d.submissions, Submission{
			Queue:    queue,
			Commands: append([]driver.Handle{}, s.CommandBuffers...),
		})
	}
	return nil
}

func (d *Driver) QueueWaitIdle(queue driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkQueueWaitIdle", queue)
	return d.failure("vkQueueWaitIdle")
}

func (d *Driver) QueuePresent(queue driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkQueuePresentKHR", queue)
	return nil
}
