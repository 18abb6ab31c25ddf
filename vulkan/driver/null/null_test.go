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

package null_test

import (
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/driver/null"
)

func device(t *testing.T, d *null.Driver) driver.Handle {
	inst, _ := d.CreateInstance(&driver.InstanceCreateInfo{AppName: "test"})
	dev, err := d.CreateDevice(inst, &driver.DeviceCreateInfo{QueueCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	return dev
}

func TestSamplerDedup(t *testing.T) {
	ctx := log.Testing(t)
	d := null.New()
	dev := device(t, d)
	info := driver.SamplerCreateInfo{MagFilter: 1, MaxLod: 4}
	a, _ := d.CreateSampler(dev, &info)
	b, _ := d.CreateSampler(dev, &info)
	other := info
	other.MinFilter = 1
	c, _ := d.CreateSampler(dev, &other)
	assert.For(ctx, "identical").That(b).Equals(a)
	assert.For(ctx, "different").That(c).NotEquals(a)

	d.DestroySampler(dev, a)
	assert.For(ctx, "still shared").ThatSlice(d.Live(driver.ObjectSampler)).Equals([]driver.Handle{a, c})
	d.DestroySampler(dev, b)
	assert.For(ctx, "released").ThatSlice(d.Live(driver.ObjectSampler)).Equals([]driver.Handle{c})
	assert.For(ctx, "errors").ThatSlice(d.Errors()).IsEmpty()
}

func TestSharedSemaphores(t *testing.T) {
	ctx := log.Testing(t)
	d := null.New()
	dev := device(t, d)
	a, _ := d.CreateSemaphore(dev)
	b, _ := d.CreateSemaphore(dev)
	assert.For(ctx, "distinct").That(b).NotEquals(a)

	d.ShareSemaphores()
	c, _ := d.CreateSemaphore(dev)
	e, _ := d.CreateSemaphore(dev)
	assert.For(ctx, "shared").That(e).Equals(c)
	assert.For(ctx, "fresh").That(c).NotEquals(a)
	d.DestroySemaphore(dev, c)
	assert.For(ctx, "still live").ThatSlice(d.Live(driver.ObjectSemaphore)).Equals([]driver.Handle{a, b, c})
	assert.For(ctx, "errors").ThatSlice(d.Errors()).IsEmpty()
}

func TestCommandValidation(t *testing.T) {
	ctx := log.Testing(t)
	d := null.New()
	dev := device(t, d)
	pool, _ := d.CreateCommandPool(dev, &driver.CommandPoolCreateInfo{})
	cmds, _ := d.AllocateCommandBuffers(dev, &driver.CommandBufferAllocateInfo{Pool: pool, Count: 1})
	cmd := cmds[0]
	queue := d.GetDeviceQueue(dev, 0, 0)

	d.CmdDraw(cmd, 3, 1, 0, 0)
	assert.For(ctx, "not recording").ThatSlice(d.Errors()).IsLength(1)

	d.BeginCommandBuffer(cmd, &driver.CommandBufferBeginInfo{Flags: driver.UsageOneTimeSubmit})
	d.CmdBeginRenderPass(cmd, &driver.RenderPassBeginInfo{}, driver.SubpassContentsInline)
	d.CmdDraw(cmd, 3, 1, 0, 0)
	d.EndCommandBuffer(cmd)
	assert.For(ctx, "dangling pass").ThatSlice(d.Errors()).IsLength(2)
	assert.For(ctx, "recorded").ThatSlice(d.Recorded(cmd)).Equals([]string{"vkCmdBeginRenderPass", "vkCmdDraw"})

	submit := []driver.SubmitInfo{{CommandBuffers: []driver.Handle{cmd}}}
	d.QueueSubmit(queue, submit, driver.Null)
	d.QueueSubmit(queue, submit, driver.Null)
	assert.For(ctx, "one time twice").ThatSlice(d.Errors()).IsLength(3)
	assert.For(ctx, "submissions").ThatSlice(d.Submissions()).IsLength(2)
}

func TestMemoryMapping(t *testing.T) {
	ctx := log.Testing(t)
	d := null.New()
	dev := device(t, d)
	mem, _ := d.AllocateMemory(dev, &driver.MemoryAllocateInfo{Size: 16})
	m, err := d.MapMemory(dev, mem, 4, 8)
	assert.For(ctx, "map").ThatError(err).Succeeded()
	copy(m, []byte{1, 2, 3})
	d.UnmapMemory(dev, mem)
	assert.For(ctx, "contents").ThatSlice(d.Memory(mem)[4:8]).Equals([]byte{1, 2, 3, 0})

	_, err = d.MapMemory(dev, mem, 12, 8)
	assert.For(ctx, "out of range").ThatError(err).Equals(driver.ErrorMemoryMapFailed)
}

func TestFailNext(t *testing.T) {
	ctx := log.Testing(t)
	d := null.New()
	dev := device(t, d)
	d.FailNext("vkCreateImage", driver.ErrorOutOfDeviceMemory)
	_, err := d.CreateImage(dev, &driver.ImageCreateInfo{})
	assert.For(ctx, "injected").ThatError(err).Equals(driver.ErrorOutOfDeviceMemory)
	_, err = d.CreateImage(dev, &driver.ImageCreateInfo{})
	assert.For(ctx, "once").ThatError(err).Succeeded()
}
