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

// Package null provides an in-process driver that executes nothing but keeps
// enough state to validate and observe what the layer sends to it.
//
// Like real drivers, it hands back the same handle for bit-identical sampler,
// render pass and framebuffer descriptions, reference counting the shared
// object.
package null

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gfxtrace/vkreplay/core/data/binary"
	"github.com/gfxtrace/vkreplay/core/data/id"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
)

// Call is one entry point invocation observed by the driver.
type Call struct {
	Name   string
	Target driver.Handle
}

func (c Call) String() string { return fmt.Sprintf("%s(%v)", c.Name, c.Target) }

// Command is one command recorded into a command buffer.
type Command struct {
	Name string
	Args string
}

// Submission is one batch of command buffers handed to QueueSubmit.
type Submission struct {
	Queue    driver.Handle
	Commands []driver.Handle
}

type object struct {
	typ    driver.ObjectType
	key    id.ID
	refs   int
	device driver.Handle
	info   interface{}
}

type cmdBuffer struct {
	pool       driver.Handle
	recording  bool
	executable bool
	inPass     bool
	oneTime    bool
	submitted  bool
	commands   []Command
}

// Driver is the null driver. It is safe for concurrent use.
type Driver struct {
	mu          sync.Mutex
	next        driver.Handle
	objects     map[driver.Handle]*object
	dedup       map[id.ID]driver.Handle
	cmds        map[driver.Handle]*cmdBuffer
	memory      map[driver.Handle][]byte
	calls       []Call
	submissions []Submission
	errors      []string
	fail        map[string]error

	shareSemaphores bool
}

var _ driver.Driver = (*Driver)(nil)

// New returns a new null driver.
func New() *Driver {
	return &Driver{
		next:    0x1000,
		objects: map[driver.Handle]*object{},
		dedup:   map[id.ID]driver.Handle{},
		cmds:    map[driver.Handle]*cmdBuffer{},
		memory:  map[driver.Handle][]byte{},
		fail:    map[string]error{},
	}
}

// FailNext makes the next call to the named entry point fail with err.
func (d *Driver) FailNext(name string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[name] = err
}

// ShareSemaphores makes every later semaphore of a device the same object,
// as some drivers do for semaphores without payloads.
func (d *Driver) ShareSemaphores() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shareSemaphores = true
}

// Calls returns every call made so far, in order.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call{}, d.calls...)
}

// CallsTo returns the calls made to the named entry point.
func (d *Driver) CallsTo(name string) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []Call{}
	for _, c := range d.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Recorded returns the names of the commands recorded into cmd.
func (d *Driver) Recorded(cmd driver.Handle) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []string{}
	if c, ok := d.cmds[cmd]; ok {
		for _, r := range c.commands {
			out = append(out, r.Name)
		}
	}
	return out
}

// Commands returns the full command records of cmd.
func (d *Driver) Commands(cmd driver.Handle) []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.cmds[cmd]; ok {
		return append([]Command{}, c.commands...)
	}
	return nil
}

// Submissions returns every queue submission in order.
func (d *Driver) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission{}, d.submissions...)
}

// ResetObservations clears the call and submission logs.
func (d *Driver) ResetObservations() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls, d.submissions = nil, nil
}

// Errors returns the usage errors detected so far.
func (d *Driver) Errors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.errors...)
}

// Live returns the handles of every live object of type t, sorted.
func (d *Driver) Live(t driver.ObjectType) []driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []driver.Handle{}
	for h, o := range d.objects {
		if o.typ == t {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Memory returns the backing store of a memory allocation.
func (d *Driver) Memory(mem driver.Handle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.memory[mem]
}

func (d *Driver) call(name string, target driver.Handle) {
	d.calls = append(d.calls, Call{Name: name, Target: target})
}

func (d *Driver) failure(name string) error {
	if err, ok := d.fail[name]; ok {
		delete(d.fail, name)
		return err
	}
	return nil
}

func (d *Driver) invalid(f string, args ...interface{}) {
	d.errors = append(d.errors, fmt.Sprintf(f, args...))
}

func (d *Driver) alloc() driver.Handle {
	d.next++
	return d.next
}

// create registers a new object. If key is valid an existing object with the
// same key is shared instead.
func (d *Driver) create(name string, t driver.ObjectType, device driver.Handle, key id.ID, info interface{}) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(name); err != nil {
		d.call(name, driver.Null)
		return driver.Null, err
	}
	if key.IsValid() {
		if h, ok := d.dedup[key]; ok {
			d.objects[h].refs++
			d.call(name, h)
			return h, nil
		}
	}
	h := d.alloc()
	d.objects[h] = &object{typ: t, key: key, refs: 1, device: device, info: info}
	if key.IsValid() {
		d.dedup[key] = h
	}
	d.call(name, h)
	return h, nil
}

func (d *Driver) destroy(name string, t driver.ObjectType, h driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call(name, h)
	if h == driver.Null {
		return
	}
	o, ok := d.objects[h]
	if !ok || o.typ != t {
		d.invalid("%s: %v is not a live %v", name, h, t)
		return
	}
	if o.refs--; o.refs > 0 {
		return
	}
	delete(d.objects, h)
	if o.key.IsValid() {
		delete(d.dedup, o.key)
	}
	delete(d.memory, h)
}

func (d *Driver) CreateInstance(info *driver.InstanceCreateInfo) (driver.Handle, error) {
	return d.create("vkCreateInstance", driver.ObjectInstance, driver.Null, id.ID{}, *info)
}

func (d *Driver) DestroyInstance(instance driver.Handle) {
	d.destroy("vkDestroyInstance", driver.ObjectInstance, instance)
}

func (d *Driver) CreateDevice(instance driver.Handle, info *driver.DeviceCreateInfo) (driver.Handle, error) {
	return d.create("vkCreateDevice", driver.ObjectDevice, driver.Null, id.ID{}, *info)
}

func (d *Driver) DestroyDevice(device driver.Handle) {
	d.destroy("vkDestroyDevice", driver.ObjectDevice, device)
}

func (d *Driver) GetDeviceQueue(device driver.Handle, family, index uint32) driver.Handle {
	key := id.OfEncoded(func(w binary.Writer) {
		w.String("queue")
		w.Uint64(uint64(device))
		w.Uint32(family)
		w.Uint32(index)
	})
	h, _ := d.create("vkGetDeviceQueue", driver.ObjectQueue, device, key, nil)
	return h
}

func (d *Driver) DeviceWaitIdle(device driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkDeviceWaitIdle", device)
	return d.failure("vkDeviceWaitIdle")
}

func samplerKey(device driver.Handle, i *driver.SamplerCreateInfo) id.ID {
	return id.OfEncoded(func(w binary.Writer) {
		w.String("sampler")
		w.Uint64(uint64(device))
		for _, v := range []uint32{i.MagFilter, i.MinFilter, i.MipmapMode, i.AddressModeU, i.AddressModeV, i.AddressModeW, i.BorderColor} {
			w.Uint32(v)
		}
		for _, v := range []float32{i.MipLodBias, i.MaxAnisotropy, i.MinLod, i.MaxLod} {
			w.Float32(v)
		}
	})
}

func (d *Driver) CreateSampler(device driver.Handle, info *driver.SamplerCreateInfo) (driver.Handle, error) {
	return d.create("vkCreateSampler", driver.ObjectSampler, device, samplerKey(device, info), *info)
}

func (d *Driver) DestroySampler(device, sampler driver.Handle) {
	d.destroy("vkDestroySampler", driver.ObjectSampler, sampler)
}

func (d *Driver) CreateSemaphore(device driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	shared := d.shareSemaphores
	d.mu.Unlock()
	key := id.ID{}
	if shared {
		key = id.OfEncoded(func(w binary.Writer) {
			w.String("semaphore")
			w.Uint64(uint64(device))
		})
	}
	return d.create("vkCreateSemaphore", driver.ObjectSemaphore, device, key, nil)
}

func (d *Driver) DestroySemaphore(device, semaphore driver.Handle) {
	d.destroy("vkDestroySemaphore", driver.ObjectSemaphore, semaphore)
}

func (d *Driver) CreateFence(device driver.Handle, signaled bool) (driver.Handle, error) {
	return d.create("vkCreateFence", driver.ObjectFence, device, id.ID{}, signaled)
}

func (d *Driver) DestroyFence(device, fence driver.Handle) {
	d.destroy("vkDestroyFence", driver.ObjectFence, fence)
}

func (d *Driver) WaitForFences(device driver.Handle, fences []driver.Handle, waitAll bool, timeout uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkWaitForFences", device)
	return d.failure("vkWaitForFences")
}

func renderPassKey(device driver.Handle, i *driver.RenderPassCreateInfo) id.ID {
	return id.OfEncoded(func(w binary.Writer) {
		w.String("renderpass")
		w.Uint64(uint64(device))
		w.Uint32(uint32(len(i.Attachments)))
		for _, a := range i.Attachments {
			w.Uint32(uint32(a.Format))
			w.Uint32(a.Samples)
			w.Uint32(a.LoadOp)
			w.Uint32(a.StoreOp)
		}
		w.Uint32(uint32(len(i.Subpasses)))
		for _, s := range i.Subpasses {
			w.Uint32(uint32(len(s.ColorAttachments)))
			for _, c := range s.ColorAttachments {
				w.Uint32(c)
			}
			w.Uint32(s.DepthAttachment)
		}
	})
}

func (d *Driver) CreateRenderPass(device driver.Handle, info *driver.RenderPassCreateInfo) (driver.Handle, error) {
	return d.create("vkCreateRenderPass", driver.ObjectRenderPass, device, renderPassKey(device, info), *info)
}

func (d *Driver) DestroyRenderPass(device, renderPass driver.Handle) {
	d.destroy("vkDestroyRenderPass", driver.ObjectRenderPass, renderPass)
}

func framebufferKey(device driver.Handle, i *driver.FramebufferCreateInfo) id.ID {
	return id.OfEncoded(func(w binary.Writer) {
		w.String("framebuffer")
		w.Uint64(uint64(device))
		w.Uint64(uint64(i.RenderPass))
		w.Uint32(uint32(len(i.Attachments)))
		for _, a := range i.Attachments {
			w.Uint64(uint64(a))
		}
		w.Uint32(i.Width)
		w.Uint32(i.Height)
		w.Uint32(i.Layers)
	})
}

func (d *Driver) CreateFramebuffer(device driver.Handle, info *driver.FramebufferCreateInfo) (driver.Handle, error) {
	return d.create("vkCreateFramebuffer", driver.ObjectFramebuffer, device, framebufferKey(device, info), *info)
}

func (d *Driver) DestroyFramebuffer(device, framebuffer driver.Handle) {
	d.destroy("vkDestroyFramebuffer", driver.ObjectFramebuffer, framebuffer)
}

func (d *Driver) CreateBuffer(device driver.Handle, info *driver.BufferCreateInfo) (driver.Handle, error) {
	return d.create("vkCreateBuffer", driver.ObjectBuffer, device, id.ID{}, *info)
}

func (d *Driver) DestroyBuffer(device, buffer driver.Handle) {
	d.destroy("vkDestroyBuffer", driver.ObjectBuffer, buffer)
}

func (d *Driver) CreateImage(device driver.Handle, info *driver.ImageCreateInfo) (driver.Handle, error) {
	return d.create("vkCreateImage", driver.ObjectImage, device, id.ID{}, *info)
}

func (d *Driver) DestroyImage(device, image driver.Handle) {
	d.destroy("vkDestroyImage", driver.ObjectImage, image)
}

func (d *Driver) bind(name string, t driver.ObjectType, h, memory driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call(name, h)
	if o, ok := d.objects[h]; !ok || o.typ != t {
		d.invalid("%s: %v is not a live %v", name, h, t)
	}
	if o, ok := d.objects[memory]; !ok || o.typ != driver.ObjectMemory {
		d.invalid("%s: %v is not live memory", name, memory)
	}
	return d.failure(name)
}

func (d *Driver) BindBufferMemory(device, buffer, memory driver.Handle, offset uint64) error {
	return d.bind("vkBindBufferMemory", driver.ObjectBuffer, buffer, memory)
}

func (d *Driver) BindImageMemory(device, image, memory driver.Handle, offset uint64) error {
	return d.bind("vkBindImageMemory", driver.ObjectImage, image, memory)
}

func (d *Driver) CreatePipeline(device driver.Handle, info *driver.PipelineCreateInfo) (driver.Handle, error) {
	return d.create("vkCreatePipeline", driver.ObjectPipeline, device, id.ID{}, *info)
}

func (d *Driver) DestroyPipeline(device, pipeline driver.Handle) {
	d.destroy("vkDestroyPipeline", driver.ObjectPipeline, pipeline)
}

func (d *Driver) CreateCommandPool(device driver.Handle, info *driver.CommandPoolCreateInfo) (driver.Handle, error) {
	return d.create("vkCreateCommandPool", driver.ObjectCommandPool, device, id.ID{}, *info)
}

func (d *Driver) DestroyCommandPool(device, pool driver.Handle) {
	d.destroy("vkDestroyCommandPool", driver.ObjectCommandPool, pool)
	d.mu.Lock()
	defer d.mu.Unlock()
	for h, c := range d.cmds {
		if c.pool == pool {
			delete(d.cmds, h)
		}
	}
}

func (d *Driver) AllocateCommandBuffers(device driver.Handle, info *driver.CommandBufferAllocateInfo) ([]driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure("vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}
	if o, ok := d.objects[info.Pool]; !ok || o.typ != driver.ObjectCommandPool {
		d.invalid("vkAllocateCommandBuffers: %v is not a live pool", info.Pool)
	}
	out := make([]driver.Handle, info.Count)
	for i := range out {
		out[i] = d.alloc()
		d.cmds[out[i]] = &cmdBuffer{pool: info.Pool}
		d.call("vkAllocateCommandBuffers", out[i])
	}
	return out, nil
}

func (d *Driver) FreeCommandBuffers(device, pool driver.Handle, buffers []driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range buffers {
		d.call("vkFreeCommandBuffers", h)
		if _, ok := d.cmds[h]; !ok {
			d.invalid("vkFreeCommandBuffers: %v is not a command buffer", h)
		}
		delete(d.cmds, h)
	}
}

// IsCommandBuffer returns true if h is an allocated command buffer.
func (d *Driver) IsCommandBuffer(h driver.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.cmds[h]
	return ok
}

func (d *Driver) AllocateDescriptorSet(device driver.Handle, layout []driver.DescriptorBinding) (driver.Handle, error) {
	return d.create("vkAllocateDescriptorSets", driver.ObjectDescriptorSet, device, id.ID{}, layout)
}

func (d *Driver) FreeDescriptorSet(device, set driver.Handle) {
	d.destroy("vkFreeDescriptorSets", driver.ObjectDescriptorSet, set)
}

func (d *Driver) UpdateDescriptorSets(device driver.Handle, writes []driver.WriteDescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range writes {
		d.call("vkUpdateDescriptorSets", w.Set)
		if o, ok := d.objects[w.Set]; !ok || o.typ != driver.ObjectDescriptorSet {
			d.invalid("vkUpdateDescriptorSets: %v is not a live descriptor set", w.Set)
		}
	}
}

func (d *Driver) AllocateMemory(device driver.Handle, info *driver.MemoryAllocateInfo) (driver.Handle, error) {
	h, err := d.create("vkAllocateMemory", driver.ObjectMemory, device, id.ID{}, *info)
	if err == nil {
		d.mu.Lock()
		d.memory[h] = make([]byte, info.Size)
		d.mu.Unlock()
	}
	return h, err
}

func (d *Driver) FreeMemory(device, memory driver.Handle) {
	d.destroy("vkFreeMemory", driver.ObjectMemory, memory)
}

func (d *Driver) MapMemory(device, memory driver.Handle, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkMapMemory", memory)
	if err := d.failure("vkMapMemory"); err != nil {
		return nil, err
	}
	data, ok := d.memory[memory]
	if !ok || offset+size > uint64(len(data)) {
		d.invalid("vkMapMemory: bad range [%d, %d) of %v", offset, offset+size, memory)
		return nil, driver.ErrorMemoryMapFailed
	}
	return data[offset : offset+size], nil
}

func (d *Driver) UnmapMemory(device, memory driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("vkUnmapMemory", memory)
}
