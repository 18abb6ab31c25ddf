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

// Package vk implements the driver dispatch table on top of a real Vulkan
// implementation through github.com/goki/vulkan.
//
// Vulkan handles are pointers owned by the loader, so the package keeps a
// table translating them to and from driver.Handle values. A handle the
// implementation returns twice, such as a deduplicated sampler, maps back
// to the same driver.Handle.
package vk

import (
	"context"
	"sync"
	"unsafe"

	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

const (
	ErrNoDevice       = fault.Const("No Vulkan physical device")
	ErrUnknownHandle  = fault.Const("Unknown handle")
	ErrLoaderFailed   = fault.Const("Failed to load the Vulkan loader")
	defaultFenceLimit = ^uint64(0)
)

type image struct {
	handle vk.Image
	info   driver.ImageCreateInfo
	view   vk.ImageView
}

type pipeline struct {
	handle     vk.Pipeline
	layout     vk.PipelineLayout
	setLayouts []vk.DescriptorSetLayout
	modules    []vk.ShaderModule
}

type descriptorSet struct {
	handle vk.DescriptorSet
	pool   vk.DescriptorPool
	layout vk.DescriptorSetLayout
}

// Driver dispatches to a Vulkan implementation.
type Driver struct {
	ctx      context.Context
	markers  sync.Once
	mu       sync.Mutex
	next     driver.Handle
	objects  map[driver.Handle]interface{}
	handles  map[interface{}]driver.Handle
	physical vk.PhysicalDevice
	images   map[driver.Handle]*image
	passes   map[driver.Handle]driver.RenderPassCreateInfo
	pipes    map[driver.Handle]*pipeline
	sets     map[driver.Handle]*descriptorSet
	pools    map[driver.Handle]vk.CommandPool
}

var _ driver.Driver = (*Driver)(nil)

// New loads the system Vulkan loader and returns a driver using it.
// Warnings are logged to ctx.
func New(ctx context.Context) (*Driver, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, errors.Wrap(ErrLoaderFailed, err.Error())
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(ErrLoaderFailed, err.Error())
	}
	return &Driver{
		ctx:     ctx,
		next:    0x1000,
		objects: map[driver.Handle]interface{}{},
		handles: map[interface{}]driver.Handle{},
		images:  map[driver.Handle]*image{},
		passes:  map[driver.Handle]driver.RenderPassCreateInfo{},
		pipes:   map[driver.Handle]*pipeline{},
		sets:    map[driver.Handle]*descriptorSet{},
		pools:   map[driver.Handle]vk.CommandPool{},
	}, nil
}

// wrap returns the driver.Handle for the Vulkan object o, minting one if o
// has not been seen before.
func (d *Driver) wrap(o interface{}) driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h, ok := d.handles[o]; ok {
		return h
	}
	d.next++
	d.objects[d.next] = o
	d.handles[o] = d.next
	return d.next
}

func (d *Driver) forget(h driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.objects[h]; ok {
		delete(d.handles, o)
		delete(d.objects, h)
	}
}

func (d *Driver) object(h driver.Handle) interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.objects[h]
}

func (d *Driver) instance(h driver.Handle) vk.Instance {
	o, _ := d.object(h).(vk.Instance)
	return o
}

func (d *Driver) device(h driver.Handle) vk.Device {
	o, _ := d.object(h).(vk.Device)
	return o
}

func (d *Driver) queue(h driver.Handle) vk.Queue {
	o, _ := d.object(h).(vk.Queue)
	return o
}

func (d *Driver) cmd(h driver.Handle) vk.CommandBuffer {
	o, _ := d.object(h).(vk.CommandBuffer)
	return o
}

func (d *Driver) buffer(h driver.Handle) vk.Buffer {
	o, _ := d.object(h).(vk.Buffer)
	return o
}

func (d *Driver) memory(h driver.Handle) vk.DeviceMemory {
	o, _ := d.object(h).(vk.DeviceMemory)
	return o
}

func (d *Driver) semaphores(hs []driver.Handle) []vk.Semaphore {
	out := make([]vk.Semaphore, 0, len(hs))
	for _, h := range hs {
		if s, ok := d.object(h).(vk.Semaphore); ok {
			out = append(out, s)
		}
	}
	return out
}

func (d *Driver) CreateInstance(info *driver.InstanceCreateInfo) (driver.Handle, error) {
	app := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(info.AppName),
		ApplicationVersion: info.AppVersion,
		PEngineName:        safeString(info.EngineName),
		EngineVersion:      info.EngineVersion,
		ApiVersion:         info.APIVersion,
	}
	create := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        app,
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
	}
	var inst vk.Instance
	if err := vk.Error(vk.CreateInstance(&create, nil, &inst)); err != nil {
		return driver.Null, err
	}
	if err := vk.InitInstance(inst); err != nil {
		return driver.Null, err
	}
	var count uint32
	vk.EnumeratePhysicalDevices(inst, &count, nil)
	if count == 0 {
		vk.DestroyInstance(inst, nil)
		return driver.Null, ErrNoDevice
	}
	devices := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(inst, &count, devices)
	d.physical = devices[0]
	return d.wrap(inst), nil
}

func (d *Driver) DestroyInstance(instance driver.Handle) {
	vk.DestroyInstance(d.instance(instance), nil)
	d.forget(instance)
}

func (d *Driver) CreateDevice(instance driver.Handle, info *driver.DeviceCreateInfo) (driver.Handle, error) {
	count := info.QueueCount
	if count == 0 {
		count = 1
	}
	priorities := make([]float32, count)
	for i := range priorities {
		priorities[i] = 1
	}
	create := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: info.QueueFamily,
			QueueCount:       count,
			PQueuePriorities: priorities,
		}},
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
	}
	var dev vk.Device
	if err := vk.Error(vk.CreateDevice(d.physical, &create, nil, &dev)); err != nil {
		return driver.Null, err
	}
	return d.wrap(dev), nil
}

func (d *Driver) DestroyDevice(device driver.Handle) {
	vk.DestroyDevice(d.device(device), nil)
	d.forget(device)
}

func (d *Driver) GetDeviceQueue(device driver.Handle, family, index uint32) driver.Handle {
	var q vk.Queue
	vk.GetDeviceQueue(d.device(device), family, index, &q)
	return d.wrap(q)
}

func (d *Driver) DeviceWaitIdle(device driver.Handle) error {
	return vk.Error(vk.DeviceWaitIdle(d.device(device)))
}

func (d *Driver) CreateSampler(device driver.Handle, info *driver.SamplerCreateInfo) (driver.Handle, error) {
	create := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.Filter(info.MagFilter),
		MinFilter:        vk.Filter(info.MinFilter),
		MipmapMode:       vk.SamplerMipmapMode(info.MipmapMode),
		AddressModeU:     vk.SamplerAddressMode(info.AddressModeU),
		AddressModeV:     vk.SamplerAddressMode(info.AddressModeV),
		AddressModeW:     vk.SamplerAddressMode(info.AddressModeW),
		MipLodBias:       info.MipLodBias,
		AnisotropyEnable: boolean(info.MaxAnisotropy > 1),
		MaxAnisotropy:    info.MaxAnisotropy,
		MinLod:           info.MinLod,
		MaxLod:           info.MaxLod,
		BorderColor:      vk.BorderColor(info.BorderColor),
	}
	var s vk.Sampler
	if err := vk.Error(vk.CreateSampler(d.device(device), &create, nil, &s)); err != nil {
		return driver.Null, err
	}
	return d.wrap(s), nil
}

func (d *Driver) DestroySampler(device, sampler driver.Handle) {
	if s, ok := d.object(sampler).(vk.Sampler); ok {
		vk.DestroySampler(d.device(device), s, nil)
	}
	d.forget(sampler)
}

func (d *Driver) CreateSemaphore(device driver.Handle) (driver.Handle, error) {
	create := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var s vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(d.device(device), &create, nil, &s)); err != nil {
		return driver.Null, err
	}
	return d.wrap(s), nil
}

func (d *Driver) DestroySemaphore(device, semaphore driver.Handle) {
	if s, ok := d.object(semaphore).(vk.Semaphore); ok {
		vk.DestroySemaphore(d.device(device), s, nil)
	}
	d.forget(semaphore)
}

func (d *Driver) CreateFence(device driver.Handle, signaled bool) (driver.Handle, error) {
	create := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		create.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := vk.Error(vk.CreateFence(d.device(device), &create, nil, &f)); err != nil {
		return driver.Null, err
	}
	return d.wrap(f), nil
}

func (d *Driver) DestroyFence(device, fence driver.Handle) {
	if f, ok := d.object(fence).(vk.Fence); ok {
		vk.DestroyFence(d.device(device), f, nil)
	}
	d.forget(fence)
}

func (d *Driver) WaitForFences(device driver.Handle, fences []driver.Handle, waitAll bool, timeout uint64) error {
	fs := make([]vk.Fence, 0, len(fences))
	for _, h := range fences {
		if f, ok := d.object(h).(vk.Fence); ok {
			fs = append(fs, f)
		}
	}
	if len(fs) == 0 {
		return nil
	}
	if timeout == 0 {
		timeout = defaultFenceLimit
	}
	return vk.Error(vk.WaitForFences(d.device(device), uint32(len(fs)), fs, boolean(waitAll), timeout))
}

func (d *Driver) CreateRenderPass(device driver.Handle, info *driver.RenderPassCreateInfo) (driver.Handle, error) {
	atts := make([]vk.AttachmentDescription, len(info.Attachments))
	for i, a := range info.Attachments {
		final := vk.ImageLayoutColorAttachmentOptimal
		if a.Format.IsDepth() {
			final = vk.ImageLayoutDepthStencilAttachmentOptimal
		}
		atts[i] = vk.AttachmentDescription{
			Format:         vk.Format(a.Format),
			Samples:        samples(a.Samples),
			LoadOp:         vk.AttachmentLoadOp(a.LoadOp),
			StoreOp:        vk.AttachmentStoreOp(a.StoreOp),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    final,
		}
	}
	subs := make([]vk.SubpassDescription, len(info.Subpasses))
	for i, s := range info.Subpasses {
		refs := make([]vk.AttachmentReference, len(s.ColorAttachments))
		for j, c := range s.ColorAttachments {
			refs[j] = vk.AttachmentReference{Attachment: c, Layout: vk.ImageLayoutColorAttachmentOptimal}
		}
		subs[i] = vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(refs)),
			PColorAttachments:    refs,
		}
		if s.DepthAttachment != driver.AttachmentUnused {
			subs[i].PDepthStencilAttachment = &vk.AttachmentReference{
				Attachment: s.DepthAttachment,
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
		}
	}
	create := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(atts)),
		PAttachments:    atts,
		SubpassCount:    uint32(len(subs)),
		PSubpasses:      subs,
	}
	var rp vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(d.device(device), &create, nil, &rp)); err != nil {
		return driver.Null, err
	}
	h := d.wrap(rp)
	d.mu.Lock()
	d.passes[h] = *info
	d.mu.Unlock()
	return h, nil
}

func (d *Driver) DestroyRenderPass(device, renderPass driver.Handle) {
	if rp, ok := d.object(renderPass).(vk.RenderPass); ok {
		vk.DestroyRenderPass(d.device(device), rp, nil)
	}
	d.mu.Lock()
	delete(d.passes, renderPass)
	d.mu.Unlock()
	d.forget(renderPass)
}

// view returns an image view covering the whole of image, creating it on
// first use.
func (d *Driver) view(device vk.Device, h driver.Handle) (vk.ImageView, error) {
	d.mu.Lock()
	img, ok := d.images[h]
	d.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHandle, "Image %v", h)
	}
	if img.view != nil {
		return img.view, nil
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if img.info.Format.IsDepth() {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	create := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.handle,
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(img.info.Format),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if err := vk.Error(vk.CreateImageView(device, &create, nil, &img.view)); err != nil {
		return nil, err
	}
	return img.view, nil
}

func (d *Driver) CreateFramebuffer(device driver.Handle, info *driver.FramebufferCreateInfo) (driver.Handle, error) {
	dev := d.device(device)
	views := make([]vk.ImageView, len(info.Attachments))
	for i, a := range info.Attachments {
		v, err := d.view(dev, a)
		if err != nil {
			return driver.Null, err
		}
		views[i] = v
	}
	rp, _ := d.object(info.RenderPass).(vk.RenderPass)
	create := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           info.Width,
		Height:          info.Height,
		Layers:          max(info.Layers, 1),
	}
	var fb vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(dev, &create, nil, &fb)); err != nil {
		return driver.Null, err
	}
	return d.wrap(fb), nil
}

func (d *Driver) DestroyFramebuffer(device, framebuffer driver.Handle) {
	if fb, ok := d.object(framebuffer).(vk.Framebuffer); ok {
		vk.DestroyFramebuffer(d.device(device), fb, nil)
	}
	d.forget(framebuffer)
}

func (d *Driver) CreateBuffer(device driver.Handle, info *driver.BufferCreateInfo) (driver.Handle, error) {
	create := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(info.Size),
		Usage:       vk.BufferUsageFlags(info.Usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var b vk.Buffer
	if err := vk.Error(vk.CreateBuffer(d.device(device), &create, nil, &b)); err != nil {
		return driver.Null, err
	}
	return d.wrap(b), nil
}

func (d *Driver) DestroyBuffer(device, buffer driver.Handle) {
	vk.DestroyBuffer(d.device(device), d.buffer(buffer), nil)
	d.forget(buffer)
}

func (d *Driver) CreateImage(device driver.Handle, info *driver.ImageCreateInfo) (driver.Handle, error) {
	create := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vk.Format(info.Format),
		Extent:        vk.Extent3D{Width: info.Width, Height: info.Height, Depth: 1},
		MipLevels:     max(info.MipLevels, 1),
		ArrayLayers:   max(info.Layers, 1),
		Samples:       samples(info.Samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var img vk.Image
	if err := vk.Error(vk.CreateImage(d.device(device), &create, nil, &img)); err != nil {
		return driver.Null, err
	}
	h := d.wrap(img)
	d.mu.Lock()
	d.images[h] = &image{handle: img, info: *info}
	d.mu.Unlock()
	return h, nil
}

func (d *Driver) DestroyImage(device, h driver.Handle) {
	dev := d.device(device)
	d.mu.Lock()
	img, ok := d.images[h]
	delete(d.images, h)
	d.mu.Unlock()
	if ok {
		if img.view != nil {
			vk.DestroyImageView(dev, img.view, nil)
		}
		vk.DestroyImage(dev, img.handle, nil)
	}
	d.forget(h)
}

func (d *Driver) BindBufferMemory(device, buffer, memory driver.Handle, offset uint64) error {
	return vk.Error(vk.BindBufferMemory(d.device(device), d.buffer(buffer), d.memory(memory), vk.DeviceSize(offset)))
}

func (d *Driver) BindImageMemory(device, h, memory driver.Handle, offset uint64) error {
	d.mu.Lock()
	img, ok := d.images[h]
	d.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "Image %v", h)
	}
	return vk.Error(vk.BindImageMemory(d.device(device), img.handle, d.memory(memory), vk.DeviceSize(offset)))
}

func (d *Driver) AllocateMemory(device driver.Handle, info *driver.MemoryAllocateInfo) (driver.Handle, error) {
	create := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(info.Size),
		MemoryTypeIndex: info.TypeIndex,
	}
	var mem vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(d.device(device), &create, nil, &mem)); err != nil {
		return driver.Null, err
	}
	return d.wrap(mem), nil
}

func (d *Driver) FreeMemory(device, memory driver.Handle) {
	vk.FreeMemory(d.device(device), d.memory(memory), nil)
	d.forget(memory)
}

func (d *Driver) MapMemory(device, memory driver.Handle, offset, size uint64) ([]byte, error) {
	var ptr unsafe.Pointer
	if err := vk.Error(vk.MapMemory(d.device(device), d.memory(memory), vk.DeviceSize(offset), vk.DeviceSize(size), 0, &ptr)); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (d *Driver) UnmapMemory(device, memory driver.Handle) {
	vk.UnmapMemory(d.device(device), d.memory(memory))
}

func (d *Driver) QueueSubmit(queue driver.Handle, submits []driver.SubmitInfo, fence driver.Handle) error {
	infos := make([]vk.SubmitInfo, len(submits))
	for i, s := range submits {
		cmds := make([]vk.CommandBuffer, len(s.CommandBuffers))
		for j, c := range s.CommandBuffers {
			cmds[j] = d.cmd(c)
		}
		wait := d.semaphores(s.WaitSemaphores)
		stages := make([]vk.PipelineStageFlags, len(wait))
		for j := range stages {
			stages[j] = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
		}
		signal := d.semaphores(s.SignalSemaphores)
		infos[i] = vk.SubmitInfo{
			SType:                vk.StructureTypeSubmitInfo,
			WaitSemaphoreCount:   uint32(len(wait)),
			PWaitSemaphores:      wait,
			PWaitDstStageMask:    stages,
			CommandBufferCount:   uint32(len(cmds)),
			PCommandBuffers:      cmds,
			SignalSemaphoreCount: uint32(len(signal)),
			PSignalSemaphores:    signal,
		}
	}
	f, _ := d.object(fence).(vk.Fence)
	return vk.Error(vk.QueueSubmit(d.queue(queue), uint32(len(infos)), infos, f))
}

func (d *Driver) QueueWaitIdle(queue driver.Handle) error {
	return vk.Error(vk.QueueWaitIdle(d.queue(queue)))
}

// QueuePresent marks a frame boundary. The driver renders offscreen, so
// there is nothing to present.
func (d *Driver) QueuePresent(queue driver.Handle) error {
	return nil
}

func safeString(s string) string {
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

func boolean(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func samples(n uint32) vk.SampleCountFlagBits {
	if n == 0 {
		return vk.SampleCount1Bit
	}
	return vk.SampleCountFlagBits(n)
}
