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

package calls_test

import (
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/resources"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

func TestEveryKindRegistered(t *testing.T) {
	ctx := log.Testing(t)
	for _, k := range chunk.Kinds() {
		c, err := calls.New(k)
		if !assert.For(ctx, "New(%v)", k).ThatError(err).Succeeded() {
			continue
		}
		assert.For(ctx, "kind of %v", k).That(c.Kind()).Equals(k)
		_, isCmd := c.(calls.CmdCall)
		assert.For(ctx, "%v builds a command buffer", k).ThatBoolean(isCmd).Equals(k.IsCommand())
	}
	_, err := calls.New(chunk.Unknown)
	assert.For(ctx, "unknown").ThatError(err).HasCause(calls.ErrUnknownKind)
}

func TestDecodeDebugString(t *testing.T) {
	ctx := log.Testing(t)
	seq := &chunk.Sequence{}
	s := serialize.NewWriter(seq, true)
	draw := &calls.CmdBeginRenderPass{
		Cmd:         calls.Cmd{Buffer: 7},
		RenderPass:  8,
		Framebuffer: 9,
		RenderArea:  driver.Rect2D{Extent: driver.Extent2D{Width: 64, Height: 32}},
		ClearValues: [][4]float32{{0, 0, 0, 1}},
	}
	c, err := calls.Encode(s, draw)
	assert.For(ctx, "encode").ThatError(err).Succeeded()
	assert.For(ctx, "debug").ThatString(c.Debug).Contains("renderArea")

	got, err := calls.Decode(c)
	assert.For(ctx, "decode").ThatError(err).Succeeded()
	assert.For(ctx, "decoded").That(got).DeepEquals(draw)
	assert.For(ctx, "command buffer").That(got.(calls.CmdCall).CommandBuffer()).Equals(resid.ID(7))

	c.Data = c.Data[:len(c.Data)-3]
	_, err = calls.Decode(c)
	assert.For(ctx, "truncated").ThatError(err).Failed()
}

func TestDescriptorRefs(t *testing.T) {
	ctx := log.Testing(t)
	update := &calls.UpdateDescriptorSet{Writes: []calls.DescriptorWrite{
		{Set: 1, Type: driver.DescriptorCombinedImageSampler, Resource: 10},
		{Set: 1, Type: driver.DescriptorStorageBuffer, Resource: 11},
		{Set: 1, Type: driver.DescriptorUniformBuffer, Resource: 12},
		{Set: 1, Type: driver.DescriptorStorageImage, Resource: resid.Null},
	}}
	assert.For(ctx, "refs").ThatSlice(update.Refs()).Equals([]calls.Ref{
		{ID: 10, Access: resources.Read},
		{ID: 11, Access: resources.Write},
		{ID: 12, Access: resources.Read},
	})
}

func TestSubmitRefs(t *testing.T) {
	ctx := log.Testing(t)
	submit := &calls.QueueSubmit{
		Queue: 1,
		Submits: []calls.Submit{
			{CommandBuffers: []resid.ID{20, 21}, WaitSemaphores: []resid.ID{30}},
			{CommandBuffers: []resid.ID{22}, SignalSemaphores: []resid.ID{31}},
		},
		Fence: 40,
	}
	assert.For(ctx, "buffers").ThatSlice(submit.CommandBuffers()).Equals([]resid.ID{20, 21, 22})
	assert.For(ctx, "waits").ThatBoolean(submit.HasWaits()).IsTrue()
	assert.For(ctx, "refs").ThatSlice(submit.Refs()).Equals([]calls.Ref{
		{ID: 1, Access: resources.Read},
		{ID: 30, Access: resources.Read},
		{ID: 31, Access: resources.Write},
		{ID: 40, Access: resources.Write},
	})
}
