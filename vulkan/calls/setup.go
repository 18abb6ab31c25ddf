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
	"github.com/gfxtrace/vkreplay/vulkan/resources"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

func init() {
	register(func() Call { return &CaptureBegin{} })
	register(func() Call { return &CaptureEnd{} })
	register(func() Call { return &InitialContents{} })
	register(func() Call { return &CreateInstance{} })
	register(func() Call { return &CreateDevice{} })
	register(func() Call { return &GetDeviceQueue{} })
	register(func() Call { return &CreateSampler{} })
	register(func() Call { return &DestroySampler{} })
	register(func() Call { return &CreateSemaphore{} })
	register(func() Call { return &CreateFence{} })
	register(func() Call { return &CreateRenderPass{} })
	register(func() Call { return &CreateFramebuffer{} })
	register(func() Call { return &CreateBuffer{} })
	register(func() Call { return &CreateImage{} })
	register(func() Call { return &BindBufferMemory{} })
	register(func() Call { return &BindImageMemory{} })
	register(func() Call { return &CreatePipeline{} })
	register(func() Call { return &CreateCommandPool{} })
	register(func() Call { return &AllocateDescriptorSet{} })
	register(func() Call { return &UpdateDescriptorSet{} })
	register(func() Call { return &AllocateMemory{} })
	register(func() Call { return &FlushMappedMemory{} })
}

// FrameRef is one entry of the frame reference list carried by CaptureBegin.
type FrameRef struct {
	ID     resid.ID
	Access resources.FrameRef
}

// CaptureBegin opens the captured frame. It lists every resource the frame
// references.
type CaptureBegin struct {
	Frame uint32
	Refs  []FrameRef
}

func (c *CaptureBegin) Kind() chunk.Kind { return chunk.CaptureBegin }
func (c *CaptureBegin) Serialise(s *serialize.Serializer) {
	s.U32("frameNumber", &c.Frame)
	serialize.Array(s, "frameRefs", &c.Refs, func(s *serialize.Serializer, r *FrameRef) {
		s.ID("id", &r.ID)
		serialize.Value(s, "access", &r.Access)
	})
}

// CaptureEnd closes the captured frame at the presenting queue.
type CaptureEnd struct {
	Queue resid.ID
}

func (c *CaptureEnd) Kind() chunk.Kind { return chunk.CaptureEnd }
func (c *CaptureEnd) Serialise(s *serialize.Serializer) {
	s.ID("queue", &c.Queue)
}

// InitialContents holds the contents of a resource at the start of the frame.
type InitialContents struct {
	ID   resid.ID
	Type driver.ObjectType
	Data []byte
}

func (c *InitialContents) Kind() chunk.Kind { return chunk.InitialContents }
func (c *InitialContents) Serialise(s *serialize.Serializer) {
	s.ID("id", &c.ID)
	serialize.Value(s, "type", &c.Type)
	s.Bytes("contents", &c.Data)
}

// CreateInstance is the initialization chunk that opens every trace.
type CreateInstance struct {
	Info     driver.InstanceCreateInfo
	Instance resid.ID
}

func (c *CreateInstance) Kind() chunk.Kind { return chunk.CreateInstance }
func (c *CreateInstance) Serialise(s *serialize.Serializer) {
	i := &c.Info
	s.Struct("AppInfo", func(s *serialize.Serializer) {
		s.String("AppName", &i.AppName)
		s.U32("AppVersion", &i.AppVersion)
		s.String("EngineName", &i.EngineName)
		s.U32("EngineVersion", &i.EngineVersion)
		s.U32("APIVersion", &i.APIVersion)
	})
	serialize.Array(s, "Layers", &i.Layers, func(s *serialize.Serializer, v *string) { s.String("", v) })
	serialize.Array(s, "Extensions", &i.Extensions, func(s *serialize.Serializer, v *string) { s.String("", v) })
	s.ID("InstanceID", &c.Instance)
}

type CreateDevice struct {
	Instance resid.ID
	Info     driver.DeviceCreateInfo
	Device   resid.ID
}

func (c *CreateDevice) Kind() chunk.Kind { return chunk.CreateDevice }
func (c *CreateDevice) Serialise(s *serialize.Serializer) {
	s.ID("instance", &c.Instance)
	s.Struct("CreateInfo", func(s *serialize.Serializer) {
		s.U32("queueFamilyIndex", &c.Info.QueueFamily)
		s.U32("queueCount", &c.Info.QueueCount)
		serialize.Array(s, "ppEnabledExtensionNames", &c.Info.Extensions, func(s *serialize.Serializer, v *string) { s.String("", v) })
	})
	s.ID("pDevice", &c.Device)
}

type GetDeviceQueue struct {
	Device resid.ID
	Family uint32
	Index  uint32
	Queue  resid.ID
}

func (c *GetDeviceQueue) Kind() chunk.Kind { return chunk.GetDeviceQueue }
func (c *GetDeviceQueue) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.U32("queueFamilyIndex", &c.Family)
	s.U32("queueIndex", &c.Index)
	s.ID("pQueue", &c.Queue)
}

type CreateSampler struct {
	Device  resid.ID
	Info    driver.SamplerCreateInfo
	Sampler resid.ID
}

func (c *CreateSampler) Kind() chunk.Kind { return chunk.CreateSampler }
func (c *CreateSampler) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	samplerInfo(s, &c.Info)
	s.ID("pSampler", &c.Sampler)
}

type DestroySampler struct {
	Device  resid.ID
	Sampler resid.ID
}

func (c *DestroySampler) Kind() chunk.Kind { return chunk.DestroySampler }
func (c *DestroySampler) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.ID("sampler", &c.Sampler)
}

type CreateSemaphore struct {
	Device    resid.ID
	Semaphore resid.ID
}

func (c *CreateSemaphore) Kind() chunk.Kind { return chunk.CreateSemaphore }
func (c *CreateSemaphore) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.ID("pSemaphore", &c.Semaphore)
}

type CreateFence struct {
	Device   resid.ID
	Signaled bool
	Fence    resid.ID
}

func (c *CreateFence) Kind() chunk.Kind { return chunk.CreateFence }
func (c *CreateFence) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.Bool("signaled", &c.Signaled)
	s.ID("pFence", &c.Fence)
}

type CreateRenderPass struct {
	Device     resid.ID
	Info       driver.RenderPassCreateInfo
	RenderPass resid.ID
}

func (c *CreateRenderPass) Kind() chunk.Kind { return chunk.CreateRenderPass }
func (c *CreateRenderPass) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	renderPassInfo(s, &c.Info)
	s.ID("pRenderPass", &c.RenderPass)
}

type CreateFramebuffer struct {
	Device      resid.ID
	RenderPass  resid.ID
	Attachments []resid.ID
	Width       uint32
	Height      uint32
	Layers      uint32
	Framebuffer resid.ID
}

func (c *CreateFramebuffer) Kind() chunk.Kind { return chunk.CreateFramebuffer }
func (c *CreateFramebuffer) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.Struct("CreateInfo", func(s *serialize.Serializer) {
		s.ID("renderPass", &c.RenderPass)
		s.IDs("pAttachments", &c.Attachments)
		s.U32("width", &c.Width)
		s.U32("height", &c.Height)
		s.U32("layers", &c.Layers)
	})
	s.ID("pFramebuffer", &c.Framebuffer)
}

type CreateBuffer struct {
	Device resid.ID
	Info   driver.BufferCreateInfo
	Buffer resid.ID
}

func (c *CreateBuffer) Kind() chunk.Kind { return chunk.CreateBuffer }
func (c *CreateBuffer) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	bufferInfo(s, &c.Info)
	s.ID("pBuffer", &c.Buffer)
}

type CreateImage struct {
	Device resid.ID
	Info   driver.ImageCreateInfo
	Image  resid.ID
}

func (c *CreateImage) Kind() chunk.Kind { return chunk.CreateImage }
func (c *CreateImage) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	imageInfo(s, &c.Info)
	s.ID("pImage", &c.Image)
}

type BindBufferMemory struct {
	Device resid.ID
	Buffer resid.ID
	Memory resid.ID
	Offset uint64
}

func (c *BindBufferMemory) Kind() chunk.Kind { return chunk.BindBufferMemory }
func (c *BindBufferMemory) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.ID("buffer", &c.Buffer)
	s.ID("memory", &c.Memory)
	s.U64("memoryOffset", &c.Offset)
}

type BindImageMemory struct {
	Device resid.ID
	Image  resid.ID
	Memory resid.ID
	Offset uint64
}

func (c *BindImageMemory) Kind() chunk.Kind { return chunk.BindImageMemory }
func (c *BindImageMemory) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.ID("image", &c.Image)
	s.ID("memory", &c.Memory)
	s.U64("memoryOffset", &c.Offset)
}

type CreatePipeline struct {
	Device             resid.ID
	BindPoint          driver.PipelineBindPoint
	Topology           driver.Topology
	PatchControlPoints uint32
	RenderPass         resid.ID
	Subpass            uint32
	Stages             []driver.ShaderStage
	SetLayouts         [][]driver.DescriptorBinding
	Pipeline           resid.ID
}

func (c *CreatePipeline) Kind() chunk.Kind { return chunk.CreatePipeline }
func (c *CreatePipeline) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.Struct("CreateInfo", func(s *serialize.Serializer) {
		serialize.Value(s, "bindPoint", &c.BindPoint)
		serialize.Value(s, "topology", &c.Topology)
		s.U32("patchControlPoints", &c.PatchControlPoints)
		s.ID("renderPass", &c.RenderPass)
		s.U32("subpass", &c.Subpass)
		serialize.Array(s, "pStages", &c.Stages, stage)
		serialize.Array(s, "pSetLayouts", &c.SetLayouts, func(s *serialize.Serializer, l *[]driver.DescriptorBinding) {
			bindings(s, "pBindings", l)
		})
	})
	s.ID("pPipeline", &c.Pipeline)
}

// Info returns the driver create info, with the render pass left for the
// caller to resolve.
func (c *CreatePipeline) Info() driver.PipelineCreateInfo {
	return driver.PipelineCreateInfo{
		BindPoint:          c.BindPoint,
		Topology:           c.Topology,
		PatchControlPoints: c.PatchControlPoints,
		Subpass:            c.Subpass,
		Stages:             c.Stages,
		SetLayouts:         c.SetLayouts,
	}
}

type CreateCommandPool struct {
	Device      resid.ID
	QueueFamily uint32
	Flags       uint32
	Pool        resid.ID
}

func (c *CreateCommandPool) Kind() chunk.Kind { return chunk.CreateCommandPool }
func (c *CreateCommandPool) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.U32("queueFamilyIndex", &c.QueueFamily)
	s.U32("flags", &c.Flags)
	s.ID("pCommandPool", &c.Pool)
}

type AllocateDescriptorSet struct {
	Device   resid.ID
	Bindings []driver.DescriptorBinding
	Set      resid.ID
}

func (c *AllocateDescriptorSet) Kind() chunk.Kind { return chunk.AllocateDescriptorSet }
func (c *AllocateDescriptorSet) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	bindings(s, "pBindings", &c.Bindings)
	s.ID("pDescriptorSet", &c.Set)
}

// DescriptorWrite is one binding update of a descriptor set.
type DescriptorWrite struct {
	Set      resid.ID
	Binding  uint32
	Type     driver.DescriptorType
	Resource resid.ID
	Offset   uint64
	Range    uint64
}

type UpdateDescriptorSet struct {
	Device resid.ID
	Writes []DescriptorWrite
}

func (c *UpdateDescriptorSet) Kind() chunk.Kind { return chunk.UpdateDescriptorSet }
func (c *UpdateDescriptorSet) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	serialize.Array(s, "pDescriptorWrites", &c.Writes, func(s *serialize.Serializer, w *DescriptorWrite) {
		s.ID("dstSet", &w.Set)
		s.U32("dstBinding", &w.Binding)
		serialize.Value(s, "descriptorType", &w.Type)
		s.ID("resource", &w.Resource)
		s.U64("offset", &w.Offset)
		s.U64("range", &w.Range)
	})
}

// Refs lists the resources written into descriptors, read or written as
// the descriptor type allows shaders to.
func (c *UpdateDescriptorSet) Refs() []Ref {
	out := make([]Ref, 0, len(c.Writes))
	for _, w := range c.Writes {
		if w.Resource.IsNull() {
			continue
		}
		access := resources.Read
		if w.Type.IsWrite() {
			access = resources.Write
		}
		out = append(out, Ref{w.Resource, access})
	}
	return out
}

type AllocateMemory struct {
	Device    resid.ID
	Size      uint64
	TypeIndex uint32
	Memory    resid.ID
}

func (c *AllocateMemory) Kind() chunk.Kind { return chunk.AllocateMemory }
func (c *AllocateMemory) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.U64("allocationSize", &c.Size)
	s.U32("memoryTypeIndex", &c.TypeIndex)
	s.ID("pMemory", &c.Memory)
}

// FlushMappedMemory carries one dirty range of a host mapping.
type FlushMappedMemory struct {
	Device resid.ID
	Memory resid.ID
	Offset uint64
	Data   []byte
}

func (c *FlushMappedMemory) Kind() chunk.Kind { return chunk.FlushMappedMemory }
func (c *FlushMappedMemory) Serialise(s *serialize.Serializer) {
	s.ID("device", &c.Device)
	s.ID("memory", &c.Memory)
	s.U64("offset", &c.Offset)
	s.Bytes("data", &c.Data)
}

// Refs marks the memory read before write: only part of it is overwritten.
func (c *FlushMappedMemory) Refs() []Ref {
	return []Ref{{c.Memory, resources.ReadBeforeWrite}}
}
