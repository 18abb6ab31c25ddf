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

// Package driver declares the dispatch table the capture and replay layers
// forward API calls through.
package driver

import "fmt"

// Handle is an opaque driver object handle. Zero is the null handle.
type Handle uint64

// Null is the null handle.
const Null = Handle(0)

func (h Handle) String() string { return fmt.Sprintf("0x%x", uint64(h)) }

// Driver is the table of real API entry points.
//
// Command recording entry points never fail; errors surface at
// EndCommandBuffer or QueueSubmit as they do in the underlying API.
type Driver interface {
	CreateInstance(info *InstanceCreateInfo) (Handle, error)
	DestroyInstance(instance Handle)
	CreateDevice(instance Handle, info *DeviceCreateInfo) (Handle, error)
	DestroyDevice(device Handle)
	GetDeviceQueue(device Handle, family, index uint32) Handle
	DeviceWaitIdle(device Handle) error

	CreateSampler(device Handle, info *SamplerCreateInfo) (Handle, error)
	DestroySampler(device, sampler Handle)
	CreateSemaphore(device Handle) (Handle, error)
	DestroySemaphore(device, semaphore Handle)
	CreateFence(device Handle, signaled bool) (Handle, error)
	DestroyFence(device, fence Handle)
	WaitForFences(device Handle, fences []Handle, waitAll bool, timeout uint64) error
	CreateRenderPass(device Handle, info *RenderPassCreateInfo) (Handle, error)
	DestroyRenderPass(device, renderPass Handle)
	CreateFramebuffer(device Handle, info *FramebufferCreateInfo) (Handle, error)
	DestroyFramebuffer(device, framebuffer Handle)
	CreateBuffer(device Handle, info *BufferCreateInfo) (Handle, error)
	DestroyBuffer(device, buffer Handle)
	CreateImage(device Handle, info *ImageCreateInfo) (Handle, error)
	DestroyImage(device, image Handle)
	BindBufferMemory(device, buffer, memory Handle, offset uint64) error
	BindImageMemory(device, image, memory Handle, offset uint64) error
	CreatePipeline(device Handle, info *PipelineCreateInfo) (Handle, error)
	DestroyPipeline(device, pipeline Handle)
	CreateCommandPool(device Handle, info *CommandPoolCreateInfo) (Handle, error)
	DestroyCommandPool(device, pool Handle)
	AllocateCommandBuffers(device Handle, info *CommandBufferAllocateInfo) ([]Handle, error)
	FreeCommandBuffers(device, pool Handle, buffers []Handle)
	AllocateDescriptorSet(device Handle, layout []DescriptorBinding) (Handle, error)
	FreeDescriptorSet(device, set Handle)
	UpdateDescriptorSets(device Handle, writes []WriteDescriptorSet)
	AllocateMemory(device Handle, info *MemoryAllocateInfo) (Handle, error)
	FreeMemory(device, memory Handle)
	MapMemory(device, memory Handle, offset, size uint64) ([]byte, error)
	UnmapMemory(device, memory Handle)

	BeginCommandBuffer(cmd Handle, info *CommandBufferBeginInfo) error
	EndCommandBuffer(cmd Handle) error
	ResetCommandBuffer(cmd Handle) error
	CmdBeginRenderPass(cmd Handle, info *RenderPassBeginInfo, contents SubpassContents)
	CmdNextSubpass(cmd Handle, contents SubpassContents)
	CmdEndRenderPass(cmd Handle)
	CmdBindPipeline(cmd Handle, bindPoint PipelineBindPoint, pipeline Handle)
	// CmdBindDescriptorSets binds sets using the layout pipeline was created with.
	CmdBindDescriptorSets(cmd Handle, bindPoint PipelineBindPoint, pipeline Handle, firstSet uint32, sets []Handle, dynamicOffsets []uint32)
	CmdBindVertexBuffers(cmd Handle, firstBinding uint32, buffers []Handle, offsets []uint64)
	CmdBindIndexBuffer(cmd Handle, buffer Handle, offset uint64, indexType IndexType)
	CmdSetViewport(cmd Handle, first uint32, viewports []Viewport)
	CmdSetScissor(cmd Handle, first uint32, scissors []Rect2D)
	CmdSetLineWidth(cmd Handle, width float32)
	CmdSetDepthBias(cmd Handle, constant, clamp, slope float32)
	CmdSetBlendConstants(cmd Handle, constants [4]float32)
	CmdDraw(cmd Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	CmdDrawIndexed(cmd Handle, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	CmdDispatch(cmd Handle, x, y, z uint32)
	CmdCopyBuffer(cmd Handle, src, dst Handle, regions []BufferCopy)
	CmdClearColorImage(cmd Handle, image Handle, color [4]float32)
	CmdResolveImage(cmd Handle, src, dst Handle)
	CmdDebugMarkerBegin(cmd Handle, name string, color [4]float32)
	CmdDebugMarkerEnd(cmd Handle)
	CmdDebugMarkerInsert(cmd Handle, name string, color [4]float32)

	QueueSubmit(queue Handle, submits []SubmitInfo, fence Handle) error
	QueueWaitIdle(queue Handle) error
	QueuePresent(queue Handle) error
}
