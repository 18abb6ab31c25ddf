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
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/config"
	"github.com/gfxtrace/vkreplay/vulkan/drawcall"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
)

// submit sends cmds to queue in one batch without semaphores or fence.
// Semaphore waits are replaced by idling the queue first.
func (r *Replayer) submit(ctx context.Context, queue driver.Handle, cmds []driver.Handle, wait bool) error {
	if wait {
		r.drv.QueueWaitIdle(queue)
	}
	if len(cmds) == 0 {
		return nil
	}
	if err := r.drv.QueueSubmit(queue, []driver.SubmitInfo{{CommandBuffers: cmds}}, driver.Null); err != nil {
		return log.Err(ctx, err, "Submitting")
	}
	return nil
}

func (r *Replayer) queueSubmit(ctx context.Context, c *calls.QueueSubmit) error {
	queue := r.rm.GetLiveHandle(c.Queue)
	if queue == driver.Null {
		return r.inconsistent(ctx, "Queue %v was not recreated", c.Queue)
	}
	ids := c.CommandBuffers()
	if r.state == Reading {
		return r.readSubmit(ctx, c, queue, ids)
	}

	s := r.session
	if s.outside != driver.Null {
		// Commands of the range are recorded into the outside buffer as
		// their events are walked.
		return nil
	}
	r.rootEventID++
	startEID := r.rootEventID
	for _, id := range ids {
		b := r.bakedInfo(id)
		r.rootEventID += 2 + b.eventCount
		r.rootDrawID += 2 + b.drawCount
	}
	r.rootEventID--

	switch {
	case len(ids) == 0 || s.last <= startEID:
		return nil
	case s.last < r.rootEventID:
		trimmed := []driver.Handle{}
		eid := startEID
		for _, id := range ids {
			count := r.bakedInfo(id).eventCount
			eid++
			end := eid + count
			switch {
			case s.last >= end:
				trimmed = append(trimmed, r.rm.GetLiveHandle(id))
			case s.last >= eid:
				if eid == s.baseEvent && s.result != driver.Null {
					trimmed = append(trimmed, s.result)
				} else {
					r.internalError(ctx, "No partial command buffer for %v at event %d", id, eid)
				}
			}
			eid += 1 + count
		}
		if config.DebugPartialReplay {
			log.D(ctx, "Submitting %d of %d command buffers", len(trimmed), len(ids))
		}
		return r.submit(ctx, queue, trimmed, c.HasWaits())
	default:
		return r.submit(ctx, queue, r.rm.GetLiveHandles(ids), c.HasWaits())
	}
}

// readSubmit submits the baked command buffers and splices their drawcalls
// into the frame, each between a begin and an end label.
func (r *Replayer) readSubmit(ctx context.Context, c *calls.QueueSubmit, queue driver.Handle, ids []resid.ID) error {
	live := make([]driver.Handle, 0, len(ids))
	for _, id := range ids {
		if h := r.rm.GetLiveHandle(id); h != driver.Null {
			live = append(live, h)
		}
	}
	err := r.submit(ctx, queue, live, c.HasWaits())

	r.AddEvent(c.Kind(), fmt.Sprintf("vkQueueSubmit(%d)", len(ids)))
	r.rootEventID++
	for i, id := range ids {
		b, ok := r.baked[id]
		if !ok || b.draw == nil {
			r.inconsistent(ctx, "Submitted command buffer %v was never recorded", id)
			b = &bakedInfo{draw: drawcall.NewNode(drawcall.Description{}), beginChunk: r.chunkIdx, endChunk: r.chunkIdx}
		}
		r.addLabel(ctx, chunk.BeginCommandBuffer, b.beginChunk, fmt.Sprintf("=> vkQueueSubmit(%d)[%d]: vkBeginCommandBuffer(%v)", len(ids), i, id))
		r.rootEventID++

		r.insertDraws(b.draw.Children)
		r.submits[id] = append(r.submits[id], r.rootEventID)
		r.rootEventID += b.eventCount
		r.rootDrawID += b.drawCount

		r.addLabel(ctx, chunk.EndCommandBuffer, b.endChunk, fmt.Sprintf("=> vkQueueSubmit(%d)[%d]: vkEndCommandBuffer(%v)", len(ids), i, id))
		r.rootEventID++
	}
	r.rootEventID--
	return err
}

func (r *Replayer) queueWaitIdle(ctx context.Context, c *calls.QueueWaitIdle) error {
	return r.drv.QueueWaitIdle(r.rm.GetLiveHandle(c.Queue))
}

func (r *Replayer) deviceWaitIdle(ctx context.Context, c *calls.DeviceWaitIdle) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	return r.drv.DeviceWaitIdle(dev)
}

// waitForFences idles the device. Fences are never signalled on replay.
func (r *Replayer) waitForFences(ctx context.Context, c *calls.WaitForFences) error {
	dev, err := r.liveDevice(c.Device)
	if err != nil {
		return err
	}
	return r.drv.DeviceWaitIdle(dev)
}

func (r *Replayer) captureEnd(ctx context.Context, c *calls.CaptureEnd) error {
	if r.state == Reading {
		r.AddEvent(c.Kind(), "vkQueuePresentKHR()")
		r.AddDrawcall(ctx, drawcall.Description{Name: "vkQueuePresentKHR()", Flags: drawcall.Present}, true)
	}
	return nil
}
