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

// ObjectType is the closed set of object kinds the layer wraps.
type ObjectType uint32

const (
	ObjectUnknown ObjectType = iota
	ObjectInstance
	ObjectDevice
	ObjectQueue
	ObjectSampler
	ObjectSemaphore
	ObjectFence
	ObjectRenderPass
	ObjectFramebuffer
	ObjectBuffer
	ObjectImage
	ObjectPipeline
	ObjectCommandPool
	ObjectCommandBuffer
	ObjectDescriptorSet
	ObjectMemory
)

var objectNames = [...]string{
	"Unknown", "Instance", "Device", "Queue", "Sampler", "Semaphore", "Fence",
	"RenderPass", "Framebuffer", "Buffer", "Image", "Pipeline", "CommandPool",
	"CommandBuffer", "DescriptorSet", "DeviceMemory",
}

func (t ObjectType) String() string {
	if int(t) < len(objectNames) {
		return objectNames[t]
	}
	return "Invalid"
}

// Dedupable returns true for object kinds whose identical descriptions may
// collapse to one driver object.
func (t ObjectType) Dedupable() bool {
	switch t {
	case ObjectSampler, ObjectFramebuffer, ObjectRenderPass, ObjectSemaphore:
		return true
	}
	return false
}

// Destroy releases h, an object of kind t owned by device (or the instance
// itself for ObjectInstance). Queues and command buffers are owned by their
// parents and are not destroyed individually.
func Destroy(d Driver, t ObjectType, device, h Handle) {
	switch t {
	case ObjectInstance:
		d.DestroyInstance(h)
	case ObjectDevice:
		d.DestroyDevice(h)
	case ObjectSampler:
		d.DestroySampler(device, h)
	case ObjectSemaphore:
		d.DestroySemaphore(device, h)
	case ObjectFence:
		d.DestroyFence(device, h)
	case ObjectRenderPass:
		d.DestroyRenderPass(device, h)
	case ObjectFramebuffer:
		d.DestroyFramebuffer(device, h)
	case ObjectBuffer:
		d.DestroyBuffer(device, h)
	case ObjectImage:
		d.DestroyImage(device, h)
	case ObjectPipeline:
		d.DestroyPipeline(device, h)
	case ObjectCommandPool:
		d.DestroyCommandPool(device, h)
	case ObjectDescriptorSet:
		d.FreeDescriptorSet(device, h)
	case ObjectMemory:
		d.FreeMemory(device, h)
	}
}

// DestroyOrder is the order objects are torn down in, children first.
var DestroyOrder = []ObjectType{
	ObjectPipeline, ObjectFramebuffer, ObjectRenderPass, ObjectDescriptorSet,
	ObjectSampler, ObjectSemaphore, ObjectFence, ObjectBuffer, ObjectImage,
	ObjectMemory, ObjectCommandPool, ObjectDevice, ObjectInstance,
}
