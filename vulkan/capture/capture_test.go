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

package capture_test

import (
	"sync"
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/capture"
	"github.com/gfxtrace/vkreplay/vulkan/capture/capturetest"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/driver/null"
	"github.com/gfxtrace/vkreplay/vulkan/replay"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/resources"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

func decodeAll(ctx assert.Manager, list chunk.List, kind chunk.Kind) []calls.Call {
	out := []calls.Call{}
	for _, c := range list {
		if c.Kind != kind {
			continue
		}
		call, err := calls.Decode(c)
		ctx.For("decode %v", kind).ThatError(err).Succeeded()
		out = append(out, call)
	}
	return out
}

func split(ctx assert.Manager, t *serialize.Trace) (init, frame chunk.List) {
	init, frame, err := t.Split()
	ctx.For("split").ThatError(err).Succeeded()
	return init, frame
}

func TestStateTransitions(t *testing.T) {
	ctx := log.Testing(t)
	l := capture.New(ctx, null.New(), capture.Options{})
	assert.For(ctx, "initial").That(l.State()).Equals(capture.Idle)
	assert.For(ctx, "trigger unarmed").ThatError(l.TriggerCapture(1)).Equals(capture.ErrNotArmed)
	assert.For(ctx, "start unarmed").ThatError(l.StartFrameCapture(ctx)).Equals(capture.ErrNotArmed)

	s := capturetest.New(ctx)
	l = s.Layer
	assert.For(ctx, "armed").That(l.State()).Equals(capture.WritingIdle)
	_, err := l.EndFrameCapture(ctx, s.Queue)
	assert.For(ctx, "end without frame").ThatError(err).Equals(capture.ErrNotCapturing)

	assert.For(ctx, "trigger").ThatError(l.TriggerCapture(1)).Succeeded()
	assert.For(ctx, "pending").ThatInteger(l.Pending()).Equals(1)
	l.QueuePresent(s.Queue)
	assert.For(ctx, "capturing").That(l.State()).Equals(capture.WritingCapframe)
	assert.For(ctx, "pending taken").ThatInteger(l.Pending()).Equals(0)
	assert.For(ctx, "start twice").ThatError(l.StartFrameCapture(ctx)).Equals(capture.ErrAlreadyActive)

	l.QueuePresent(s.Queue)
	assert.For(ctx, "finished").That(l.State()).Equals(capture.WritingIdle)
	assert.For(ctx, "traces").ThatSlice(s.Output.Traces()).IsLength(1)
	assert.For(ctx, "frame").That(s.Output.Last().Frame).Equals(uint32(1))
	assert.For(ctx, "last capture").That(l.LastCapture().Frame).Equals(uint32(1))

	l.QueuePresent(s.Queue)
	assert.For(ctx, "one frame only").ThatSlice(s.Output.Traces()).IsLength(1)

	l.TriggerCapture(1)
	l.QueuePresent(s.Queue)
	l.Disarm()
	assert.For(ctx, "disarmed").That(l.State()).Equals(capture.Idle)
	assert.For(ctx, "abandoned").ThatSlice(s.Output.Traces()).IsLength(1)
}

func TestSubscribe(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	got := []capture.Capture{}
	unsubscribe := s.Layer.Subscribe(func(c capture.Capture) { got = append(got, c) })
	tr := s.Capture(func() { s.WaitIdle(1) })
	unsubscribe()
	s.Capture(func() { s.WaitIdle(1) })

	assert.For(ctx, "notified once").ThatSlice(got).IsLength(1)
	assert.For(ctx, "id").That(got[0].ID).Equals(tr.ID)
	assert.For(ctx, "chunks").ThatInteger(got[0].Chunks).Equals(len(tr.Chunks))
}

func TestTraceStructure(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	cmd := s.Cmd()
	tr := s.Capture(func() {
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
		s.Submit(cmd)
	})
	init, frame := split(assert.To(t), tr)

	assert.For(ctx, "first").That(init[0].Kind).Equals(chunk.CreateInstance)
	assert.For(ctx, "begin").That(frame[0].Kind).Equals(chunk.CaptureBegin)
	assert.For(ctx, "end").That(frame[len(frame)-1].Kind).Equals(chunk.CaptureEnd)
	for i := 1; i < len(init); i++ {
		if init[i].Kind == chunk.InitialContents {
			continue
		}
		assert.For(ctx, "init order %d", i).ThatBoolean(init[i-1].Index < init[i].Index).IsTrue()
	}
	for _, c := range init {
		assert.For(ctx, "no commands in init").ThatBoolean(c.Kind.IsCommand()).IsFalse()
	}

	ics := decodeAll(assert.To(t), init, chunk.InitialContents)
	assert.For(ctx, "initial contents").ThatSlice(ics).IsLength(1)
	ic := ics[0].(*calls.InitialContents)
	assert.For(ctx, "memory").That(ic.ID).Equals(s.Layer.Resources().WrapperID(s.Memory))
	assert.For(ctx, "size").ThatInteger(len(ic.Data)).Equals(capturetest.MemorySize)

	kinds := []chunk.Kind{}
	for _, c := range frame[1 : len(frame)-1] {
		kinds = append(kinds, c.Kind)
	}
	assert.For(ctx, "body").ThatSlice(kinds).Equals([]chunk.Kind{
		chunk.BeginCommandBuffer,
		chunk.CmdBeginRenderPass,
		chunk.CmdBindPipeline,
		chunk.CmdDraw,
		chunk.CmdEndRenderPass,
		chunk.EndCommandBuffer,
		chunk.QueueSubmit,
	})
}

func TestRebake(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	cmd := s.Cmd()
	tr := s.Capture(func() {
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
		s.Submit(cmd)
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 2) })
		s.Submit(cmd)
	})
	_, frame := split(assert.To(t), tr)

	begins := decodeAll(assert.To(t), frame, chunk.BeginCommandBuffer)
	assert.For(ctx, "begins").ThatSlice(begins).IsLength(2)
	first, second := begins[0].(*calls.BeginCommandBuffer), begins[1].(*calls.BeginCommandBuffer)
	assert.For(ctx, "same buffer").That(first.Buffer).Equals(second.Buffer)
	assert.For(ctx, "fresh baked id").That(first.Baked).NotEquals(second.Baked)

	submits := decodeAll(assert.To(t), frame, chunk.QueueSubmit)
	assert.For(ctx, "submits").ThatSlice(submits).IsLength(2)
	assert.For(ctx, "first submit").ThatSlice(submits[0].(*calls.QueueSubmit).CommandBuffers()).Equals([]resid.ID{first.Baked})
	assert.For(ctx, "second submit").ThatSlice(submits[1].(*calls.QueueSubmit).CommandBuffers()).Equals([]resid.ID{second.Baked})
	assert.For(ctx, "draws").ThatSlice(decodeAll(assert.To(t), frame, chunk.CmdDraw)).IsLength(3)
}

func TestConcurrentRecording(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	cmds := []driver.Handle{s.Cmd(), s.Cmd(), s.Cmd(), s.Cmd()}
	tr := s.Capture(func() {
		wg := sync.WaitGroup{}
		for i, cmd := range cmds {
			wg.Add(1)
			go func(cmd driver.Handle, draws int) {
				defer wg.Done()
				s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, draws) })
			}(cmd, i+1)
		}
		wg.Wait()
		s.Submit(cmds...)
	})

	_, frame := split(assert.To(t), tr)
	assert.For(ctx, "begins").ThatSlice(decodeAll(assert.To(t), frame, chunk.BeginCommandBuffer)).IsLength(len(cmds))
	draws := map[resid.ID]int{}
	for _, c := range decodeAll(assert.To(t), frame, chunk.CmdDraw) {
		draws[c.(calls.CmdCall).CommandBuffer()]++
	}
	rm := s.Layer.Resources()
	for i, cmd := range cmds {
		assert.For(ctx, "draws of %d", i).ThatInteger(draws[rm.WrapperID(cmd)]).Equals(i + 1)
	}

	r := replay.New(ctx, null.New())
	assert.For(ctx, "load").ThatError(r.Load(ctx, tr)).Succeeded()
	// The submit, CaptureEnd, then per buffer two labels, the pass markers
	// and its draws.
	want := 2
	for i := range cmds {
		want += 2 + 3 + i + 1
	}
	assert.For(ctx, "events").ThatSlice(r.Events()).IsLength(want)
	for i, e := range r.Events() {
		assert.For(ctx, "event %d", i).That(e.EventID).Equals(uint32(i + 1))
	}
	assert.For(ctx, "internal errors").ThatInteger(r.InternalErrors()).Equals(0)
}

func TestResetIsNotSerialized(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	cmd := s.Cmd()
	s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
	tr := s.Capture(func() {
		s.Layer.ResetCommandBuffer(cmd)
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
		s.Submit(cmd)
	})
	_, frame := split(assert.To(t), tr)
	assert.For(ctx, "begins").ThatSlice(decodeAll(assert.To(t), frame, chunk.BeginCommandBuffer)).IsLength(1)
}

func TestFrameReferences(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	cmd := s.Cmd()
	tr := s.Capture(func() {
		s.Record(cmd, func(cmd driver.Handle) {
			s.BeginPass(cmd)
			s.BindSets(cmd, s.Set)
			s.Layer.CmdDraw(cmd, 3, 1, 0, 0)
			s.Layer.CmdEndRenderPass(cmd)
		})
		s.Submit(cmd)
	})
	init, frame := split(assert.To(t), tr)
	begin := decodeAll(assert.To(t), frame, chunk.CaptureBegin)[0].(*calls.CaptureBegin)
	refs := map[resid.ID]resources.FrameRef{}
	for _, r := range begin.Refs {
		refs[r.ID] = r.Access
	}

	id := s.Layer.Resources().WrapperID
	for _, test := range []struct {
		name   string
		handle driver.Handle
		expect resources.FrameRef
	}{
		{"color attachment", s.Color, resources.Write},
		{"sampled texture", s.Texture, resources.Read},
		{"sampler", s.Sampler, resources.Read},
		{"descriptor set", s.Set, resources.Read},
		{"framebuffer", s.Framebuffer, resources.Read},
		{"render pass", s.RenderPass, resources.Read},
		{"pipeline", s.Pipeline, resources.Read},
		{"queue", s.Queue, resources.Read},
		{"attachment memory", s.Memory, resources.ReadBeforeWrite},
	} {
		assert.For(ctx, "%s", test.name).That(refs[id(test.handle)]).Equals(test.expect)
	}
	_, unused := refs[id(s.Buffer)]
	assert.For(ctx, "unused buffer").ThatBoolean(unused).IsFalse()

	created := map[resid.ID]bool{}
	for _, c := range decodeAll(assert.To(t), init, chunk.CreateImage) {
		created[c.(*calls.CreateImage).Image] = true
	}
	assert.For(ctx, "texture created").ThatBoolean(created[id(s.Texture)]).IsTrue()
	assert.For(ctx, "color created").ThatBoolean(created[id(s.Color)]).IsTrue()
	updates := decodeAll(assert.To(t), init, chunk.UpdateDescriptorSet)
	assert.For(ctx, "set contents").ThatSlice(updates).IsLength(1)
}

func TestDestroyedDuringFrame(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	l := s.Layer
	src, _ := l.CreateBuffer(s.Device, &driver.BufferCreateInfo{Size: 16})
	l.BindBufferMemory(s.Device, src, s.Memory, 0)
	srcID := l.Resources().WrapperID(src)
	cmd := s.Cmd()
	var sampler driver.Handle
	tr := s.Capture(func() {
		sampler, _ = l.CreateSampler(s.Device, &driver.SamplerCreateInfo{MaxLod: 4})
		set, _ := l.AllocateDescriptorSet(s.Device, s.Layout())
		l.UpdateDescriptorSets(s.Device, []driver.WriteDescriptorSet{{Set: set, Binding: 1, Type: driver.DescriptorSampler, Resource: sampler}})
		s.Record(cmd, func(cmd driver.Handle) {
			l.CmdCopyBuffer(cmd, src, s.Buffer, []driver.BufferCopy{{Size: 16}})
			s.BindSets(cmd, set)
		})
		s.Submit(cmd)
		l.DestroyBuffer(s.Device, src)
		l.DestroySampler(s.Device, sampler)
	})
	init, frame := split(assert.To(t), tr)

	buffers := map[resid.ID]bool{}
	for _, c := range decodeAll(assert.To(t), init, chunk.CreateBuffer) {
		buffers[c.(*calls.CreateBuffer).Buffer] = true
	}
	assert.For(ctx, "destroyed buffer kept").ThatBoolean(buffers[srcID]).IsTrue()
	assert.For(ctx, "sampler created before frame").ThatSlice(decodeAll(assert.To(t), init, chunk.CreateSampler)).IsLength(1)
	assert.For(ctx, "no creates in frame").ThatSlice(decodeAll(assert.To(t), frame, chunk.CreateSampler)).IsEmpty()
	assert.For(ctx, "update in frame").ThatSlice(decodeAll(assert.To(t), frame, chunk.UpdateDescriptorSet)).IsLength(1)
	assert.For(ctx, "destroy in frame").ThatSlice(decodeAll(assert.To(t), frame, chunk.DestroySampler)).IsLength(1)
}

func TestDirtyRanges(t *testing.T) {
	ctx := log.Testing(t)
	with := func(n int, set ...int) []byte {
		out := make([]byte, n)
		for _, i := range set {
			out[i] = 1
		}
		return out
	}
	for _, test := range []struct {
		name   string
		shadow []byte
		data   []byte
		gap    uint64
		expect []capture.Range
	}{
		{"clean", with(64), with(64), 16, nil},
		{"single", with(64), with(64, 5), 16, []capture.Range{{5, 1}}},
		{"joined", with(64), with(64, 5, 16), 16, []capture.Range{{5, 12}}},
		{"apart", with(64), with(64, 5, 40), 16, []capture.Range{{5, 1}, {40, 1}}},
		{"tail", with(8), with(12, 2), 0, []capture.Range{{2, 1}, {8, 4}}},
		{"tail joined", with(8), with(12, 2), 16, []capture.Range{{2, 10}}},
	} {
		assert.For(ctx, "%s", test.name).ThatSlice(capture.DirtyRanges(test.shadow, test.data, test.gap)).Equals(test.expect)
	}
}

func TestMappedMemory(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	l := s.Layer
	tr := s.Capture(func() {
		data, err := l.MapMemory(s.Device, s.Memory, 0, capturetest.MemorySize)
		assert.For(ctx, "map").ThatError(err).Succeeded()
		data[10] = 7
		data[200] = 9
		assert.For(ctx, "flush").ThatError(l.FlushMappedMemory(s.Device, s.Memory)).Succeeded()
		l.UnmapMemory(s.Device, s.Memory)
	})
	assert.For(ctx, "unknown memory").ThatError(l.FlushMappedMemory(s.Device, 0xdead)).Equals(capture.ErrNotMapped)

	_, frame := split(assert.To(t), tr)
	flushes := decodeAll(assert.To(t), frame, chunk.FlushMappedMemory)
	assert.For(ctx, "flushes").ThatSlice(flushes).IsLength(2)
	first, second := flushes[0].(*calls.FlushMappedMemory), flushes[1].(*calls.FlushMappedMemory)
	assert.For(ctx, "first offset").That(first.Offset).Equals(uint64(10))
	assert.For(ctx, "first data").ThatSlice(first.Data).Equals([]byte{7})
	assert.For(ctx, "second offset").That(second.Offset).Equals(uint64(200))
	assert.For(ctx, "second data").ThatSlice(second.Data).Equals([]byte{9})
}
