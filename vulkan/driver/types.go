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

package driver

// SubpassContents says how the commands of a subpass are provided.
type SubpassContents uint32

const (
	SubpassContentsInline SubpassContents = iota
	SubpassContentsSecondary
)

// PipelineBindPoint selects the graphics or compute binding slot.
type PipelineBindPoint uint32

const (
	BindPointGraphics PipelineBindPoint = iota
	BindPointCompute
)

// IndexType is the element type of an index buffer.
type IndexType uint32

const (
	IndexTypeUint16 IndexType = iota
	IndexTypeUint32
)

// Width returns the size of one index in bytes.
func (t IndexType) Width() uint32 {
	if t == IndexTypeUint32 {
		return 4
	}
	return 2
}

// Topology is the primitive topology of a graphics pipeline.
type Topology uint32

const (
	TopologyPointList Topology = iota
	TopologyLineList
	TopologyLineStrip
	TopologyTriangleList
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyPatchList = Topology(10)
)

// Format is a texel format. Only the values the layer inspects are named.
type Format uint32

const (
	FormatUndefined     = Format(0)
	FormatR8G8B8A8Unorm = Format(37)
	FormatB8G8R8A8Unorm = Format(44)
	FormatD32Sfloat     = Format(126)
	FormatD24UnormS8    = Format(129)
)

// IsDepth returns true for depth or depth/stencil formats.
func (f Format) IsDepth() bool { return f >= 124 && f <= 130 }

// CommandBufferLevel is primary or secondary.
type CommandBufferLevel uint32

const (
	LevelPrimary CommandBufferLevel = iota
	LevelSecondary
)

// CommandBufferUsage is a set of command buffer usage bits.
type CommandBufferUsage uint32

const (
	UsageOneTimeSubmit      CommandBufferUsage = 0x1
	UsageRenderPassContinue CommandBufferUsage = 0x2
	UsageSimultaneousUse    CommandBufferUsage = 0x4
)

// DescriptorType is the kind of resource bound through a descriptor.
type DescriptorType uint32

const (
	DescriptorSampler DescriptorType = iota
	DescriptorCombinedImageSampler
	DescriptorSampledImage
	DescriptorStorageImage
	DescriptorUniformTexelBuffer
	DescriptorStorageTexelBuffer
	DescriptorUniformBuffer
	DescriptorStorageBuffer
	DescriptorUniformBufferDynamic
	DescriptorStorageBufferDynamic
	DescriptorInputAttachment
)

// IsWrite returns true if shaders may write through descriptors of type t.
func (t DescriptorType) IsWrite() bool {
	switch t {
	case DescriptorStorageImage, DescriptorStorageTexelBuffer,
		DescriptorStorageBuffer, DescriptorStorageBufferDynamic:
		return true
	}
	return false
}

// AttachmentUnused marks an unused attachment reference.
const AttachmentUnused = ^uint32(0)

type InstanceCreateInfo struct {
	AppName       string
	AppVersion    uint32
	EngineName    string
	EngineVersion uint32
	APIVersion    uint32
	Layers        []string
	Extensions    []string
}

type DeviceCreateInfo struct {
	QueueFamily uint32
	QueueCount  uint32
	Extensions  []string
}

type SamplerCreateInfo struct {
	MagFilter     uint32
	MinFilter     uint32
	MipmapMode    uint32
	AddressModeU  uint32
	AddressModeV  uint32
	AddressModeW  uint32
	MipLodBias    float32
	MaxAnisotropy float32
	MinLod        float32
	MaxLod        float32
	BorderColor   uint32
}

type AttachmentDescription struct {
	Format  Format
	Samples uint32
	LoadOp  uint32
	StoreOp uint32
}

type SubpassDescription struct {
	ColorAttachments []uint32
	// DepthAttachment is AttachmentUnused when the subpass has none.
	DepthAttachment uint32
}

type RenderPassCreateInfo struct {
	Attachments []AttachmentDescription
	Subpasses   []SubpassDescription
}

type FramebufferCreateInfo struct {
	RenderPass  Handle
	Attachments []Handle
	Width       uint32
	Height      uint32
	Layers      uint32
}

type BufferCreateInfo struct {
	Size  uint64
	Usage uint32
}

type ImageCreateInfo struct {
	Format    Format
	Width     uint32
	Height    uint32
	MipLevels uint32
	Layers    uint32
	Samples   uint32
	Usage     uint32
}

type ShaderStage struct {
	Stage uint32
	Entry string
	Code  []uint32
}

type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
}

type PipelineCreateInfo struct {
	BindPoint          PipelineBindPoint
	Topology           Topology
	PatchControlPoints uint32
	RenderPass         Handle
	Subpass            uint32
	Stages             []ShaderStage
	SetLayouts         [][]DescriptorBinding
}

type CommandPoolCreateInfo struct {
	QueueFamily uint32
	Flags       uint32
}

type CommandBufferAllocateInfo struct {
	Pool  Handle
	Level CommandBufferLevel
	Count uint32
}

type CommandBufferBeginInfo struct {
	Flags CommandBufferUsage
}

type MemoryAllocateInfo struct {
	Size      uint64
	TypeIndex uint32
}

type WriteDescriptorSet struct {
	Set     Handle
	Binding uint32
	Type    DescriptorType
	// Resource is the sampler, image or buffer written to the binding.
	Resource Handle
	Offset   uint64
	Range    uint64
}

type Offset2D struct{ X, Y int32 }

type Extent2D struct{ Width, Height uint32 }

type Rect2D struct {
	Offset Offset2D
	Extent Extent2D
}

type Viewport struct {
	X, Y, Width, Height, MinDepth, MaxDepth float32
}

type RenderPassBeginInfo struct {
	RenderPass  Handle
	Framebuffer Handle
	RenderArea  Rect2D
	ClearValues [][4]float32
}

type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

type SubmitInfo struct {
	WaitSemaphores   []Handle
	CommandBuffers   []Handle
	SignalSemaphores []Handle
}
