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

package chunk

import "fmt"

// Kind identifies the API call, or pseudo-event, that produced a chunk.
type Kind uint32

const (
	Unknown Kind = iota

	// Capture scope pseudo-events.
	CaptureBegin
	CaptureEnd
	InitialContents

	// Instance and device setup. CreateInstance is the initialization chunk
	// that opens every trace.
	CreateInstance
	CreateDevice
	GetDeviceQueue

	// Object creation.
	CreateSampler
	DestroySampler
	CreateSemaphore
	CreateFence
	CreateRenderPass
	CreateFramebuffer
	CreateBuffer
	CreateImage
	BindBufferMemory
	BindImageMemory
	CreatePipeline
	CreateCommandPool
	AllocateDescriptorSet
	UpdateDescriptorSet
	AllocateMemory
	FlushMappedMemory

	// Command buffer scope.
	BeginCommandBuffer
	EndCommandBuffer

	// Command building.
	CmdBeginRenderPass
	CmdNextSubpass
	CmdEndRenderPass
	CmdBindPipeline
	CmdBindDescriptorSets
	CmdBindVertexBuffers
	CmdBindIndexBuffer
	CmdSetViewport
	CmdSetScissor
	CmdSetLineWidth
	CmdSetDepthBias
	CmdSetBlendConstants
	CmdDraw
	CmdDrawIndexed
	CmdDispatch
	CmdCopyBuffer
	CmdClearColorImage
	CmdResolveImage
	CmdDebugMarkerBegin
	CmdDebugMarkerEnd
	CmdDebugMarkerInsert

	// Queue and synchronisation.
	QueueSubmit
	QueueWaitIdle
	DeviceWaitIdle
	WaitForFences

	kindCount
)

var kindNames = [...]string{
	Unknown:               "Unknown",
	CaptureBegin:          "CaptureBegin",
	CaptureEnd:            "CaptureEnd",
	InitialContents:       "InitialContents",
	CreateInstance:        "vkCreateInstance",
	CreateDevice:          "vkCreateDevice",
	GetDeviceQueue:        "vkGetDeviceQueue",
	CreateSampler:         "vkCreateSampler",
	DestroySampler:        "vkDestroySampler",
	CreateSemaphore:       "vkCreateSemaphore",
	CreateFence:           "vkCreateFence",
	CreateRenderPass:      "vkCreateRenderPass",
	CreateFramebuffer:     "vkCreateFramebuffer",
	CreateBuffer:          "vkCreateBuffer",
	CreateImage:           "vkCreateImage",
	BindBufferMemory:      "vkBindBufferMemory",
	BindImageMemory:       "vkBindImageMemory",
	CreatePipeline:        "vkCreatePipeline",
	CreateCommandPool:     "vkCreateCommandPool",
	AllocateDescriptorSet: "vkAllocateDescriptorSets",
	UpdateDescriptorSet:   "vkUpdateDescriptorSets",
	AllocateMemory:        "vkAllocateMemory",
	FlushMappedMemory:     "vkFlushMappedMemoryRanges",
	BeginCommandBuffer:    "vkBeginCommandBuffer",
	EndCommandBuffer:      "vkEndCommandBuffer",
	CmdBeginRenderPass:    "vkCmdBeginRenderPass",
	CmdNextSubpass:        "vkCmdNextSubpass",
	CmdEndRenderPass:      "vkCmdEndRenderPass",
	CmdBindPipeline:       "vkCmdBindPipeline",
	CmdBindDescriptorSets: "vkCmdBindDescriptorSets",
	CmdBindVertexBuffers:  "vkCmdBindVertexBuffers",
	CmdBindIndexBuffer:    "vkCmdBindIndexBuffer",
	CmdSetViewport:        "vkCmdSetViewport",
	CmdSetScissor:         "vkCmdSetScissor",
	CmdSetLineWidth:       "vkCmdSetLineWidth",
	CmdSetDepthBias:       "vkCmdSetDepthBias",
	CmdSetBlendConstants:  "vkCmdSetBlendConstants",
	CmdDraw:               "vkCmdDraw",
	CmdDrawIndexed:        "vkCmdDrawIndexed",
	CmdDispatch:           "vkCmdDispatch",
	CmdCopyBuffer:         "vkCmdCopyBuffer",
	CmdClearColorImage:    "vkCmdClearColorImage",
	CmdResolveImage:       "vkCmdResolveImage",
	CmdDebugMarkerBegin:   "vkCmdDebugMarkerBeginEXT",
	CmdDebugMarkerEnd:     "vkCmdDebugMarkerEndEXT",
	CmdDebugMarkerInsert:  "vkCmdDebugMarkerInsertEXT",
	QueueSubmit:           "vkQueueSubmit",
	QueueWaitIdle:         "vkQueueWaitIdle",
	DeviceWaitIdle:        "vkDeviceWaitIdle",
	WaitForFences:         "vkWaitForFences",
}

func (k Kind) String() string {
	if k.IsValid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind<%d>", uint32(k))
}

// IsValid returns true if k is a known, non-Unknown chunk kind.
func (k Kind) IsValid() bool { return k > Unknown && k < kindCount }

// IsCommand returns true if k builds a command buffer, including the
// Begin/End scope chunks.
func (k Kind) IsCommand() bool { return k >= BeginCommandBuffer && k <= CmdDebugMarkerInsert }

// IsScope returns true for the Begin/End command buffer chunks, which do not
// occupy an event.
func (k Kind) IsScope() bool { return k == BeginCommandBuffer || k == EndCommandBuffer }

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := Unknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}
