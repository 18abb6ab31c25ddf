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
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

func init() {
	register(func() Call { return &QueueSubmit{} })
	register(func() Call { return &QueueWaitIdle{} })
	register(func() Call { return &DeviceWaitIdle{} })
	register(func() Call { return &WaitForFences{} })
}

// Submit is one batch of a queue submission. CommandBuffers holds the baked
// IDs of the submitted command buffers.
type Submit struct {
	WaitSemaphores   []resid.ID
	CommandBuffers   []resid.ID
	SignalSemaphores []resid.ID
}

type QueueSubmit struct {
	Queue   resid.ID
	Submits []Submit
	Fence   resid.ID
}

func (c *QueueSubmit) Kind() chunk.Kind { return chunk.QueueSubmit }
func (c *QueueSubmit) Serialise(s *serialize.Serializer) {
	s.ID("queue", &c.Queue)
	serialize.Array(s, "pSubmits", &c.Submits, func(s *serialize.Serializer, b *Submit) {
		s.IDs("pWaitSemaphores", &b.WaitSemaphores)
		s.IDs("pCommandBuffers", &b.CommandBuffers)
		s.IDs("pSignalSemaphores", &b.SignalSemaphores)
	})
	s.ID("fence", &c.Fence)
}

// Refs lists the queue and the fence. Submitted command buffers are added
// by capture together with everything they reference.
func (c *QueueSubmit) Refs() []Ref {
	out := reads(c.Queue)
	for _, b := range c.Submits {
		out = append(out, reads(b.WaitSemaphores...)...)
		out = append(out, writes(b.SignalSemaphores...)...)
	}
	return append(out, writes(c.Fence)...)
}

// CommandBuffers returns every baked command buffer in submission order.
func (c *QueueSubmit) CommandBuffers() []resid.ID {
	var out []resid.ID
	for _, b := range c.Submits {
		out = append(out, b.CommandBuffers...)
	}
	return out
}

// HasWaits returns true if any batch waits on a semaphore.
func (c *QueueSubmit) HasWaits() bool {
	for _, b := range c.Submits {
		if len(b.WaitSemaphores) > 0 {
			return true
		}
	}
	return false
}

type QueueWaitIdle struct {
	Queue resid.ID
}

func (c *QueueWaitIdle) Kind() chunk.Kind { return chunk.QueueWaitIdle }
func (c *QueueWaitIdle) Serialise(s *serialize.Serializer) {
	s.ID("queue", &c.Queue)
}

func (c *QueueWaitIdle) Refs() []Ref { return reads(c.Queue) }

type DeviceWaitIdle struct {
	Device resid.ID
}

func (c *DeviceWaitIdle) Kind() chunk.Kind { return chunk.DeviceWaitIdle }
func (c *DeviceWaitIdle) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
}

type WaitForFences struct {
	Device  resid.ID
	Fences  []resid.ID
	WaitAll bool
	Timeout uint64
}

func (c *WaitForFences) Kind() chunk.Kind { return chunk.WaitForFences }
func (c *WaitForFences) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.IDs("pFences", &c.Fences)
	s.Bool("waitAll", &c.WaitAll)
	s.U64("timeout", &c.Timeout)
}

func (c *WaitForFences) Refs() []Ref { return reads(c.Fences...) }
