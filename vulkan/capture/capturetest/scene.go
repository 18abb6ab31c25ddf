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

// Package capturetest builds captured frames on the null driver for tests.
package capturetest

import (
	"context"

	"github.com/gfxtrace/vkreplay/vulkan/capture"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/driver/null"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

// MemorySize is the size of the scene's memory allocation.
const MemorySize = 256

// Scene is an armed capture layer over a null driver with a small set of
// objects ready for recording.
type Scene struct {
	Ctx    context.Context
	Null   *null.Driver
	Layer  *capture.Layer
	Output *capture.MemoryOutput

	Instance    driver.Handle
	Device      driver.Handle
	Queue       driver.Handle
	Pool        driver.Handle
	Memory      driver.Handle
	Buffer      driver.Handle
	Color       driver.Handle
	Texture     driver.Handle
	RenderPass  driver.Handle
	Framebuffer driver.Handle
	Pipeline    driver.Handle
	Compute     driver.Handle
	Sampler     driver.Handle
	Set         driver.Handle
}

// SamplerInfo is the description of the scene's sampler.
var SamplerInfo = driver.SamplerCreateInfo{MagFilter: 1, MinFilter: 1, MaxLod: 1}

// RenderPassInfo is the description of the scene's render pass.
var RenderPassInfo = driver.RenderPassCreateInfo{
	Attachments: []driver.AttachmentDescription{{Format: driver.FormatR8G8B8A8Unorm, Samples: 1}},
	Subpasses:   []driver.SubpassDescription{{ColorAttachments: []uint32{0}, DepthAttachment: driver.AttachmentUnused}},
}

// New returns a scene over a null driver capturing into memory. Any
// creation failure panics, the null driver only fails when told to.
func New(ctx context.Context) *Scene {
	drv, out := null.New(), &capture.MemoryOutput{}
	s := Build(ctx, drv, capture.Options{Armed: true, Output: out})
	s.Null, s.Output = drv, out
	return s
}

// Build returns a scene whose layer runs on drv with opts. Null and Output
// are left empty.
func Build(ctx context.Context, drv driver.Driver, opts capture.Options) *Scene {
	s := &Scene{Ctx: ctx}
	s.Layer = capture.New(ctx, drv, opts)
	l := s.Layer
	s.Instance = must(l.CreateInstance(&driver.InstanceCreateInfo{AppName: "scene", APIVersion: 1 << 22}))
	s.Device = must(l.CreateDevice(s.Instance, &driver.DeviceCreateInfo{QueueCount: 1}))
	s.Queue = l.GetDeviceQueue(s.Device, 0, 0)
	s.Pool = must(l.CreateCommandPool(s.Device, &driver.CommandPoolCreateInfo{}))
	s.Memory = must(l.AllocateMemory(s.Device, &driver.MemoryAllocateInfo{Size: MemorySize}))
	s.Buffer = must(l.CreateBuffer(s.Device, &driver.BufferCreateInfo{Size: 64}))
	check(l.BindBufferMemory(s.Device, s.Buffer, s.Memory, 0))
	s.Color = must(l.CreateImage(s.Device, &driver.ImageCreateInfo{Format: driver.FormatR8G8B8A8Unorm, Width: 4, Height: 4, MipLevels: 1, Layers: 1, Samples: 1}))
	check(l.BindImageMemory(s.Device, s.Color, s.Memory, 64))
	s.Texture = must(l.CreateImage(s.Device, &driver.ImageCreateInfo{Format: driver.FormatR8G8B8A8Unorm, Width: 2, Height: 2, MipLevels: 1, Layers: 1, Samples: 1}))
	check(l.BindImageMemory(s.Device, s.Texture, s.Memory, 128))
	s.RenderPass = must(l.CreateRenderPass(s.Device, &RenderPassInfo))
	s.Framebuffer = must(l.CreateFramebuffer(s.Device, &driver.FramebufferCreateInfo{
		RenderPass: s.RenderPass, Attachments: []driver.Handle{s.Color}, Width: 4, Height: 4, Layers: 1,
	}))
	layout := s.Layout()
	s.Pipeline = must(l.CreatePipeline(s.Device, &driver.PipelineCreateInfo{
		BindPoint:  driver.BindPointGraphics,
		Topology:   driver.TopologyTriangleList,
		RenderPass: s.RenderPass,
		SetLayouts: [][]driver.DescriptorBinding{layout},
	}))
	s.Compute = must(l.CreatePipeline(s.Device, &driver.PipelineCreateInfo{BindPoint: driver.BindPointCompute}))
	s.Sampler = must(l.CreateSampler(s.Device, &SamplerInfo))
	s.Set = must(l.AllocateDescriptorSet(s.Device, layout))
	l.UpdateDescriptorSets(s.Device, []driver.WriteDescriptorSet{
		{Set: s.Set, Binding: 0, Type: driver.DescriptorSampledImage, Resource: s.Texture},
		{Set: s.Set, Binding: 1, Type: driver.DescriptorSampler, Resource: s.Sampler},
	})
	return s
}

// Cmd allocates a primary command buffer from the scene's pool.
func (s *Scene) Cmd() driver.Handle {
	cmds, err := s.Layer.AllocateCommandBuffers(s.Device, &driver.CommandBufferAllocateInfo{Pool: s.Pool, Level: driver.LevelPrimary, Count: 1})
	check(err)
	return cmds[0]
}

// Record begins cmd, calls f and ends cmd.
func (s *Scene) Record(cmd driver.Handle, f func(cmd driver.Handle)) {
	check(s.Layer.BeginCommandBuffer(cmd, &driver.CommandBufferBeginInfo{}))
	f(cmd)
	check(s.Layer.EndCommandBuffer(cmd))
}

// Layout is the descriptor set layout of the scene's graphics pipeline.
func (s *Scene) Layout() []driver.DescriptorBinding {
	return []driver.DescriptorBinding{
		{Binding: 0, Type: driver.DescriptorSampledImage, Count: 1},
		{Binding: 1, Type: driver.DescriptorSampler, Count: 1},
	}
}

// BeginPass begins the scene's render pass and binds its pipeline.
func (s *Scene) BeginPass(cmd driver.Handle) {
	l := s.Layer
	l.CmdBeginRenderPass(cmd, &driver.RenderPassBeginInfo{
		RenderPass:  s.RenderPass,
		Framebuffer: s.Framebuffer,
		RenderArea:  driver.Rect2D{Extent: driver.Extent2D{Width: 4, Height: 4}},
	}, driver.SubpassContentsInline)
	l.CmdBindPipeline(cmd, driver.BindPointGraphics, s.Pipeline)
}

// BindSets binds sets to the scene's graphics pipeline.
func (s *Scene) BindSets(cmd driver.Handle, sets ...driver.Handle) {
	s.Layer.CmdBindDescriptorSets(cmd, driver.BindPointGraphics, s.Pipeline, 0, sets, nil)
}

// Pass records a render pass with draws draws in it.
func (s *Scene) Pass(cmd driver.Handle, draws int) {
	s.BeginPass(cmd)
	for i := 0; i < draws; i++ {
		s.Layer.CmdDraw(cmd, 3, 1, uint32(3*i), 0)
	}
	s.Layer.CmdEndRenderPass(cmd)
}

// Submit submits cmds to the scene's queue in one batch.
func (s *Scene) Submit(cmds ...driver.Handle) {
	check(s.Layer.QueueSubmit(s.Queue, []driver.SubmitInfo{{CommandBuffers: cmds}}, driver.Null))
}

// WaitIdle idles the queue n times.
func (s *Scene) WaitIdle(n int) {
	for i := 0; i < n; i++ {
		check(s.Layer.QueueWaitIdle(s.Queue))
	}
}

// Capture captures the calls made by f as one frame.
func (s *Scene) Capture(f func()) *serialize.Trace {
	check(s.Layer.StartFrameCapture(s.Ctx))
	f()
	t, err := s.Layer.EndFrameCapture(s.Ctx, s.Queue)
	check(err)
	return t
}

func must(h driver.Handle, err error) driver.Handle {
	check(err)
	return h
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
