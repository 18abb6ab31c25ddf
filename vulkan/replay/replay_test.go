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

package replay_test

import (
	"context"
	"strings"
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/capture/capturetest"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/drawcall"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/driver/null"
	"github.com/gfxtrace/vkreplay/vulkan/replay"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

func load(ctx context.Context, t *serialize.Trace) (*replay.Replayer, *null.Driver) {
	drv := null.New()
	r := replay.New(ctx, drv)
	assert.For(ctx, "load").ThatError(r.Load(ctx, t)).Succeeded()
	return r, drv
}

// recordedInto returns the commands recorded into cmd since the last reset
// of the driver's observations.
func recordedInto(drv *null.Driver, cmd driver.Handle) []string {
	out := []string{}
	for _, c := range drv.Calls() {
		if c.Target == cmd && strings.HasPrefix(c.Name, "vkCmd") {
			out = append(out, c.Name)
		}
	}
	return out
}

// bakedIDs returns the baked command buffer IDs in recording order.
func bakedIDs(ctx context.Context, t *serialize.Trace) []resid.ID {
	out := []resid.ID{}
	for _, c := range t.Chunks {
		if c.Kind != chunk.BeginCommandBuffer {
			continue
		}
		call, err := calls.Decode(c)
		assert.For(ctx, "decode").ThatError(err).Succeeded()
		out = append(out, call.(*calls.BeginCommandBuffer).Baked)
	}
	return out
}

func checkNumbering(ctx context.Context, r *replay.Replayer) {
	for i, e := range r.Events() {
		assert.For(ctx, "event %d", i).That(e.EventID).Equals(uint32(i + 1))
	}
}

func TestSingleDrawScenario(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	cmd := s.Cmd()
	tr := s.Capture(func() {
		s.WaitIdle(9)
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
		s.Submit(cmd)
	})
	r, drv := load(ctx, tr)
	checkNumbering(ctx, r)
	assert.For(ctx, "events").ThatSlice(r.Events()).IsLength(17)

	for _, test := range []struct {
		eid  uint32
		kind chunk.Kind
	}{
		{9, chunk.QueueWaitIdle},
		{10, chunk.QueueSubmit},
		{12, chunk.CmdBeginRenderPass},
		{13, chunk.CmdBindPipeline},
		{14, chunk.CmdDraw},
		{15, chunk.CmdEndRenderPass},
		{17, chunk.CaptureEnd},
	} {
		assert.For(ctx, "event %d", test.eid).That(r.GetEvent(test.eid).Kind).Equals(test.kind)
	}
	draw := r.GetDrawcall(14)
	assert.For(ctx, "drawcall").That(draw).IsNotNil()
	assert.For(ctx, "name").ThatString(draw.Name).Equals("vkCmdDraw(3, 1)")
	assert.For(ctx, "flags").That(draw.Flags).Equals(drawcall.Drawcall)
	assert.For(ctx, "output").That(draw.Outputs[0]).Equals(s.Layer.Resources().WrapperID(s.Color))
	assert.For(ctx, "topology").That(draw.Topology).Equals(driver.TopologyTriangleList)
	assert.For(ctx, "pass").That(r.GetDrawcall(12).Flags).Equals(drawcall.PassBoundary | drawcall.BeginPass)
	assert.For(ctx, "present").That(r.GetDrawcall(17).Flags).Equals(drawcall.Present)

	baked := r.Resources().GetLiveHandle(bakedIDs(ctx, tr)[0])
	drv.ResetObservations()
	assert.For(ctx, "replay").ThatError(r.ReplayLog(ctx, 0, 14, replay.Full)).Succeeded()

	subs := drv.Submissions()
	assert.For(ctx, "submissions").ThatSlice(subs).IsLength(1)
	assert.For(ctx, "one buffer").ThatSlice(subs[0].Commands).IsLength(1)
	partial := subs[0].Commands[0]
	assert.For(ctx, "substituted").That(partial).NotEquals(baked)
	assert.For(ctx, "partial commands").ThatSlice(recordedInto(drv, partial)).Equals([]string{
		"vkCmdBeginRenderPass", "vkCmdBindPipeline", "vkCmdDraw", "vkCmdEndRenderPass",
	})
	assert.For(ctx, "partial parent").That(r.PartialParent()).Equals(resid.Null)
	assert.For(ctx, "internal errors").ThatInteger(r.InternalErrors()).Equals(0)
	assert.For(ctx, "driver errors").ThatSlice(drv.Errors()).IsEmpty()

	drv.ResetObservations()
	assert.For(ctx, "full frame").ThatError(r.ReplayLog(ctx, 0, 17, replay.Full)).Succeeded()
	subs = drv.Submissions()
	assert.For(ctx, "full submissions").ThatSlice(subs).IsLength(1)
	assert.For(ctx, "original submitted").ThatSlice(subs[0].Commands).Equals([]driver.Handle{baked})
}

func TestWithoutThenOnlyDraw(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	cmd := s.Cmd()
	tr := s.Capture(func() {
		s.WaitIdle(9)
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
		s.Submit(cmd)
	})
	r, drv := load(ctx, tr)

	drv.ResetObservations()
	assert.For(ctx, "without").ThatError(r.ReplayLog(ctx, 0, 14, replay.WithoutDraw)).Succeeded()
	subs := drv.Submissions()
	assert.For(ctx, "without submissions").ThatSlice(subs).IsLength(1)
	assert.For(ctx, "without commands").ThatSlice(recordedInto(drv, subs[0].Commands[0])).Equals([]string{
		"vkCmdBeginRenderPass", "vkCmdBindPipeline", "vkCmdEndRenderPass",
	})
	state := r.RenderState()
	assert.For(ctx, "pass active").ThatBoolean(state.RenderPassActive).IsTrue()
	assert.For(ctx, "pipeline").That(state.Graphics.Pipeline).Equals(s.Layer.Resources().WrapperID(s.Pipeline))

	drv.ResetObservations()
	assert.For(ctx, "only").ThatError(r.ReplayLog(ctx, 0, 14, replay.OnlyDraw)).Succeeded()
	subs = drv.Submissions()
	assert.For(ctx, "only submissions").ThatSlice(subs).IsLength(1)
	assert.For(ctx, "only commands").ThatSlice(recordedInto(drv, subs[0].Commands[0])).Equals([]string{
		"vkCmdBeginRenderPass", "vkCmdBindPipeline", "vkCmdDraw", "vkCmdEndRenderPass",
	})
	assert.For(ctx, "pass still active").ThatBoolean(r.RenderState().RenderPassActive).IsTrue()
	assert.For(ctx, "driver errors").ThatSlice(drv.Errors()).IsEmpty()
}

func TestPartialRange(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	a, x, b := s.Cmd(), s.Cmd(), s.Cmd()
	tr := s.Capture(func() {
		s.WaitIdle(43)
		s.Record(a, func(cmd driver.Handle) { s.Layer.CmdDraw(cmd, 3, 1, 0, 0) })
		s.Submit(a)
		s.Record(x, func(cmd driver.Handle) { s.Pass(cmd, 7) })
		s.Submit(x)
		s.Record(b, func(cmd driver.Handle) { s.Pass(cmd, 1) })
		s.Submit(b)
	})
	r, drv := load(ctx, tr)
	checkNumbering(ctx, r)
	assert.For(ctx, "a submit").That(r.GetEvent(44).Kind).Equals(chunk.QueueSubmit)
	assert.For(ctx, "a draw").That(r.GetEvent(46).Kind).Equals(chunk.CmdDraw)
	assert.For(ctx, "x submit").That(r.GetEvent(48).Kind).Equals(chunk.QueueSubmit)
	assert.For(ctx, "x base").That(r.GetEvent(50).Kind).Equals(chunk.CmdBeginRenderPass)
	assert.For(ctx, "x end").That(r.GetEvent(59).Kind).Equals(chunk.CmdEndRenderPass)

	ids := bakedIDs(ctx, tr)
	liveA := r.Resources().GetLiveHandle(ids[0])
	liveX := r.Resources().GetLiveHandle(ids[1])
	liveB := r.Resources().GetLiveHandle(ids[2])

	drv.ResetObservations()
	assert.For(ctx, "replay").ThatError(r.ReplayLog(ctx, 0, 55, replay.Full)).Succeeded()
	subs := drv.Submissions()
	assert.For(ctx, "submissions").ThatSlice(subs).IsLength(2)
	assert.For(ctx, "a whole").ThatSlice(subs[0].Commands).Equals([]driver.Handle{liveA})
	assert.For(ctx, "x partial").ThatSlice(subs[1].Commands).IsLength(1)
	partial := subs[1].Commands[0]
	assert.For(ctx, "not x").That(partial).NotEquals(liveX)
	assert.For(ctx, "not b").That(partial).NotEquals(liveB)
	assert.For(ctx, "partial commands").ThatSlice(recordedInto(drv, partial)).Equals([]string{
		"vkCmdBeginRenderPass", "vkCmdBindPipeline",
		"vkCmdDraw", "vkCmdDraw", "vkCmdDraw", "vkCmdDraw",
		"vkCmdEndRenderPass",
	})
	assert.For(ctx, "x untouched").ThatSlice(recordedInto(drv, liveX)).IsEmpty()
	assert.For(ctx, "one partial").ThatSlice(drv.CallsTo("vkAllocateCommandBuffers")).IsLength(1)
	assert.For(ctx, "partial parent").That(r.PartialParent()).Equals(resid.Null)
	assert.For(ctx, "internal errors").ThatInteger(r.InternalErrors()).Equals(0)
	assert.For(ctx, "driver errors").ThatSlice(drv.Errors()).IsEmpty()
}

func TestRangeAcrossSubmits(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	a, x := s.Cmd(), s.Cmd()
	tr := s.Capture(func() {
		s.Record(a, func(cmd driver.Handle) { s.Pass(cmd, 1) })
		s.Submit(a)
		s.Record(x, func(cmd driver.Handle) { s.Pass(cmd, 7) })
		s.Submit(x)
	})
	r, drv := load(ctx, tr)
	checkNumbering(ctx, r)
	assert.For(ctx, "a pass").That(r.GetEvent(3).Kind).Equals(chunk.CmdBeginRenderPass)
	assert.For(ctx, "x submit").That(r.GetEvent(8).Kind).Equals(chunk.QueueSubmit)
	assert.For(ctx, "x pass").That(r.GetEvent(10).Kind).Equals(chunk.CmdBeginRenderPass)
	assert.For(ctx, "x end").That(r.GetEvent(19).Kind).Equals(chunk.CmdEndRenderPass)
	assert.For(ctx, "present").That(r.GetEvent(21).Kind).Equals(chunk.CaptureEnd)
	assert.For(ctx, "whole frame").ThatError(r.ReplayLog(ctx, 0, 21, replay.Full)).Succeeded()

	const (
		brp  = "vkCmdBeginRenderPass"
		bp   = "vkCmdBindPipeline"
		draw = "vkCmdDraw"
		erp  = "vkCmdEndRenderPass"
	)
	for _, test := range []struct {
		name       string
		start, end uint32
		expected   []string
	}{
		{"from first submit", 1, 14, []string{brp, bp, draw, erp, brp, bp, draw, draw, draw, erp}},
		{"into second pass", 3, 11, []string{brp, bp, draw, erp, brp, bp, erp}},
		{"from second submit", 8, 12, []string{brp, bp, draw, erp}},
		{"from begin label", 9, 12, []string{brp, bp, draw, erp}},
		{"whole second pass", 10, 19, []string{brp, bp, draw, draw, draw, draw, draw, draw, draw, erp}},
	} {
		ctx := log.Enter(ctx, test.name)
		drv.ResetObservations()
		assert.For(ctx, "replay").ThatError(r.ReplayLog(ctx, test.start, test.end, replay.Full)).Succeeded()
		subs := drv.Submissions()
		assert.For(ctx, "submissions").ThatSlice(subs).IsLength(1)
		if len(subs) != 1 {
			continue
		}
		assert.For(ctx, "commands").ThatSlice(recordedInto(drv, subs[0].Commands[0])).Equals(test.expected)
		assert.For(ctx, "pass closed").ThatBoolean(r.RenderState().RenderPassActive).IsFalse()
		assert.For(ctx, "driver errors").ThatSlice(drv.Errors()).IsEmpty()
	}
	assert.For(ctx, "internal errors").ThatInteger(r.InternalErrors()).Equals(0)
}

func TestMarkers(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	cmd := s.Cmd()
	tr := s.Capture(func() {
		s.Record(cmd, func(cmd driver.Handle) {
			s.Layer.CmdDebugMarkerBegin(cmd, "shadows", [4]float32{})
			s.Pass(cmd, 1)
			s.Layer.CmdDebugMarkerInsert(cmd, "note", [4]float32{})
			s.Layer.CmdDebugMarkerEnd(cmd)
			s.Layer.CmdDispatch(cmd, 1, 2, 3)
		})
		s.Submit(cmd)
	})
	r, _ := load(ctx, tr)
	checkNumbering(ctx, r)

	draws := r.GetFrameRecord().Drawcalls
	names := []string{}
	for _, d := range draws {
		names = append(names, d.Name)
	}
	assert.For(ctx, "top level").ThatSlice(names).Equals([]string{
		"=> vkQueueSubmit(1)[0]: vkBeginCommandBuffer(" + bakedIDs(ctx, tr)[0].String() + ")",
		"shadows",
		"vkCmdDispatch(1, 2, 3)",
		"=> vkQueueSubmit(1)[0]: vkEndCommandBuffer(" + bakedIDs(ctx, tr)[0].String() + ")",
		"vkQueuePresentKHR()",
	})
	marker := draws[1]
	assert.For(ctx, "push").ThatBoolean(marker.Flags.IsPushMarker()).IsTrue()
	children := []string{}
	for _, d := range marker.Children {
		children = append(children, d.Name)
		assert.For(ctx, "parent of %s", d.Name).That(d.Parent).Equals(marker.EventID)
	}
	assert.For(ctx, "children").ThatSlice(children).Equals([]string{
		"vkCmdBeginRenderPass()", "vkCmdDraw(3, 1)", "vkCmdEndRenderPass()", "note",
	})
	dispatch := r.GetDrawcall(draws[2].EventID)
	assert.For(ctx, "dispatch").That(dispatch.Dispatch).Equals([3]uint32{1, 2, 3})
}

func TestSamplerDedup(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	l := s.Layer
	second, _ := l.CreateSampler(s.Device, &capturetest.SamplerInfo)
	set, _ := l.AllocateDescriptorSet(s.Device, s.Layout())
	l.UpdateDescriptorSets(s.Device, []driver.WriteDescriptorSet{{Set: set, Binding: 1, Type: driver.DescriptorSampler, Resource: second}})
	cmd := s.Cmd()
	tr := s.Capture(func() {
		s.Record(cmd, func(cmd driver.Handle) {
			s.BeginPass(cmd)
			s.BindSets(cmd, s.Set, set)
			l.CmdDraw(cmd, 3, 1, 0, 0)
			l.CmdEndRenderPass(cmd)
		})
		s.Submit(cmd)
	})
	creates := 0
	ids := []resid.ID{}
	for _, c := range tr.Chunks {
		if c.Kind == chunk.CreateSampler {
			call, _ := calls.Decode(c)
			ids = append(ids, call.(*calls.CreateSampler).Sampler)
			creates++
		}
	}
	assert.For(ctx, "captured samplers").ThatInteger(creates).Equals(2)

	r, drv := load(ctx, tr)
	assert.For(ctx, "live samplers").ThatSlice(drv.Live(driver.ObjectSampler)).IsLength(1)
	assert.For(ctx, "duplicate destroyed").ThatSlice(drv.CallsTo("vkDestroySampler")).IsLength(1)
	rm := r.Resources()
	assert.For(ctx, "same object").That(rm.GetLiveHandle(ids[1])).Equals(rm.GetLiveHandle(ids[0]))

	r.Shutdown(ctx)
	assert.For(ctx, "no samplers").ThatSlice(drv.Live(driver.ObjectSampler)).IsEmpty()
	assert.For(ctx, "balanced").ThatSlice(drv.CallsTo("vkDestroySampler")).IsLength(2)
	assert.For(ctx, "no images").ThatSlice(drv.Live(driver.ObjectImage)).IsEmpty()
	assert.For(ctx, "no memory").ThatSlice(drv.Live(driver.ObjectMemory)).IsEmpty()
	assert.For(ctx, "no devices").ThatSlice(drv.Live(driver.ObjectDevice)).IsEmpty()
	assert.For(ctx, "driver errors").ThatSlice(drv.Errors()).IsEmpty()
}

func TestDedup(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		name    string
		typ     driver.ObjectType
		kind    chunk.Kind
		destroy string
		// prepare creates a duplicate of an object and records uses of both.
		// It returns the calls to capture.
		prepare func(s *capturetest.Scene) func()
		// created returns the ID a create call assigned.
		created func(c calls.Call) resid.ID
		shared  bool
	}{
		{
			name:    "framebuffer",
			typ:     driver.ObjectFramebuffer,
			kind:    chunk.CreateFramebuffer,
			destroy: "vkDestroyFramebuffer",
			prepare: func(s *capturetest.Scene) func() {
				first := s.Cmd()
				s.Record(first, func(cmd driver.Handle) { s.Pass(cmd, 1) })
				dup := must(s.Layer.CreateFramebuffer(s.Device, &driver.FramebufferCreateInfo{
					RenderPass: s.RenderPass, Attachments: []driver.Handle{s.Color}, Width: 4, Height: 4, Layers: 1,
				}))
				second := s.Cmd()
				s.Record(second, func(cmd driver.Handle) { begin(s, cmd, s.RenderPass, dup) })
				return func() { s.Submit(first, second) }
			},
			created: func(c calls.Call) resid.ID { return c.(*calls.CreateFramebuffer).Framebuffer },
		},
		{
			name:    "render pass",
			typ:     driver.ObjectRenderPass,
			kind:    chunk.CreateRenderPass,
			destroy: "vkDestroyRenderPass",
			prepare: func(s *capturetest.Scene) func() {
				first := s.Cmd()
				s.Record(first, func(cmd driver.Handle) { s.Pass(cmd, 1) })
				dup := must(s.Layer.CreateRenderPass(s.Device, &capturetest.RenderPassInfo))
				second := s.Cmd()
				s.Record(second, func(cmd driver.Handle) { begin(s, cmd, dup, s.Framebuffer) })
				return func() { s.Submit(first, second) }
			},
			created: func(c calls.Call) resid.ID { return c.(*calls.CreateRenderPass).RenderPass },
		},
		{
			name:    "semaphore",
			typ:     driver.ObjectSemaphore,
			kind:    chunk.CreateSemaphore,
			destroy: "vkDestroySemaphore",
			prepare: func(s *capturetest.Scene) func() {
				a := must(s.Layer.CreateSemaphore(s.Device))
				b := must(s.Layer.CreateSemaphore(s.Device))
				cmd := s.Cmd()
				s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
				return func() { signal(s, cmd, a, b) }
			},
			created: func(c calls.Call) resid.ID { return c.(*calls.CreateSemaphore).Semaphore },
			shared:  true,
		},
	} {
		ctx := log.Enter(ctx, test.name)
		s := capturetest.New(ctx)
		tr := s.Capture(test.prepare(s))
		ids := []resid.ID{}
		for _, c := range tr.Chunks {
			if c.Kind == test.kind {
				call, err := calls.Decode(c)
				assert.For(ctx, "decode").ThatError(err).Succeeded()
				ids = append(ids, test.created(call))
			}
		}
		if !assert.For(ctx, "captured").ThatSlice(ids).IsLength(2) {
			continue
		}

		drv := null.New()
		if test.shared {
			drv.ShareSemaphores()
		}
		r := replay.New(ctx, drv)
		assert.For(ctx, "load").ThatError(r.Load(ctx, tr)).Succeeded()
		assert.For(ctx, "live").ThatSlice(drv.Live(test.typ)).IsLength(1)
		assert.For(ctx, "duplicate destroyed").ThatSlice(drv.CallsTo(test.destroy)).IsLength(1)
		rm := r.Resources()
		assert.For(ctx, "same object").That(rm.GetLiveHandle(ids[1])).Equals(rm.GetLiveHandle(ids[0]))

		r.Shutdown(ctx)
		assert.For(ctx, "released").ThatSlice(drv.Live(test.typ)).IsEmpty()
		assert.For(ctx, "balanced").ThatSlice(drv.CallsTo(test.destroy)).IsLength(2)
		assert.For(ctx, "driver errors").ThatSlice(drv.Errors()).IsEmpty()
		assert.For(ctx, "skipped").ThatSlice(r.Skipped()).IsEmpty()
	}
}

// begin records a render pass over rp and fb with one draw.
func begin(s *capturetest.Scene, cmd, rp, fb driver.Handle) {
	l := s.Layer
	l.CmdBeginRenderPass(cmd, &driver.RenderPassBeginInfo{
		RenderPass:  rp,
		Framebuffer: fb,
		RenderArea:  driver.Rect2D{Extent: driver.Extent2D{Width: 4, Height: 4}},
	}, driver.SubpassContentsInline)
	l.CmdBindPipeline(cmd, driver.BindPointGraphics, s.Pipeline)
	l.CmdDraw(cmd, 3, 1, 0, 0)
	l.CmdEndRenderPass(cmd)
}

// signal submits cmd signalling semaphores.
func signal(s *capturetest.Scene, cmd driver.Handle, semaphores ...driver.Handle) {
	err := s.Layer.QueueSubmit(s.Queue, []driver.SubmitInfo{{CommandBuffers: []driver.Handle{cmd}, SignalSemaphores: semaphores}}, driver.Null)
	assert.For(s.Ctx, "submit").ThatError(err).Succeeded()
}

func must(h driver.Handle, err error) driver.Handle {
	if err != nil {
		panic(err)
	}
	return h
}

func TestSkippedChunks(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	sem := must(s.Layer.CreateSemaphore(s.Device))
	cmd := s.Cmd()
	s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
	tr := s.Capture(func() { signal(s, cmd, sem) })

	drv := null.New()
	drv.FailNext("vkCreateSemaphore", driver.ErrorOutOfDeviceMemory)
	r := replay.New(ctx, drv)
	assert.For(ctx, "load").ThatError(r.Load(ctx, tr)).Succeeded()
	skipped := r.Skipped()
	assert.For(ctx, "skipped").ThatSlice(skipped).IsLength(1)
	assert.For(ctx, "cause").ThatError(skipped.First()).HasCause(driver.ErrorOutOfDeviceMemory)
	assert.For(ctx, "summary").ThatError(skipped.Err()).Equals(skipped.First())
	assert.For(ctx, "events").ThatSlice(r.Events()).IsLength(8)
	assert.For(ctx, "internal errors").ThatInteger(r.InternalErrors()).Equals(0)
}

func TestRebakeReplay(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	cmd := s.Cmd()
	tr := s.Capture(func() {
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
		s.Submit(cmd)
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 2) })
		s.Submit(cmd)
	})
	r, drv := load(ctx, tr)
	checkNumbering(ctx, r)

	draws := 0
	drawcall.Walk(r.GetFrameRecord().Drawcalls, func(d *drawcall.Description) bool {
		if d.Flags.IsDrawcall() {
			draws++
		}
		return true
	})
	assert.For(ctx, "draws").ThatInteger(draws).Equals(3)

	last := r.Events()[len(r.Events())-1].EventID
	drv.ResetObservations()
	assert.For(ctx, "replay").ThatError(r.ReplayLog(ctx, 0, last, replay.Full)).Succeeded()
	subs := drv.Submissions()
	assert.For(ctx, "submissions").ThatSlice(subs).IsLength(2)
	assert.For(ctx, "distinct").That(subs[0].Commands[0]).NotEquals(subs[1].Commands[0])
	assert.For(ctx, "second recording").ThatSlice(recordedInto(drv, subs[1].Commands[0])).IsEmpty()
	assert.For(ctx, "driver errors").ThatSlice(drv.Errors()).IsEmpty()
}

func TestInitialContents(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	l := s.Layer
	data, _ := l.MapMemory(s.Device, s.Memory, 0, capturetest.MemorySize)
	data[0] = 5
	l.UnmapMemory(s.Device, s.Memory)
	tr := s.Capture(func() {
		s.WaitIdle(1)
		data, _ := l.MapMemory(s.Device, s.Memory, 0, capturetest.MemorySize)
		data[0] = 6
		l.UnmapMemory(s.Device, s.Memory)
		s.WaitIdle(1)
	})
	r, drv := load(ctx, tr)
	mem := r.Resources().GetLiveHandle(l.Resources().WrapperID(s.Memory))
	assert.For(ctx, "after load").That(drv.Memory(mem)[0]).Equals(byte(6))

	assert.For(ctx, "replay").ThatError(r.ReplayLog(ctx, 0, 1, replay.Full)).Succeeded()
	assert.For(ctx, "restored").That(drv.Memory(mem)[0]).Equals(byte(5))

	assert.For(ctx, "replay flush").ThatError(r.ReplayLog(ctx, 0, 2, replay.Full)).Succeeded()
	assert.For(ctx, "flushed").That(drv.Memory(mem)[0]).Equals(byte(6))
}

func TestCorruptTrace(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	tr := s.Capture(func() { s.WaitIdle(1) })

	noInstance := &serialize.Trace{ID: tr.ID, Chunks: tr.Chunks[1:]}
	err := replay.New(ctx, null.New()).Load(ctx, noInstance)
	assert.For(ctx, "no instance").ThatError(err).HasCause(replay.ErrCorruptTrace)

	unknown := &serialize.Trace{ID: tr.ID}
	unknown.Chunks = append(unknown.Chunks, tr.Chunks[0], &chunk.Chunk{Index: 1 << 40, Kind: chunk.Unknown})
	unknown.Chunks = append(unknown.Chunks, tr.Chunks[1:]...)
	err = replay.New(ctx, null.New()).Load(ctx, unknown)
	assert.For(ctx, "unknown").ThatError(err).HasCause(replay.ErrUnknownChunk)

	truncated := &serialize.Trace{ID: tr.ID}
	dev := *tr.Chunks[1]
	dev.Data = dev.Data[:2]
	truncated.Chunks = append(truncated.Chunks, tr.Chunks[0], &dev)
	truncated.Chunks = append(truncated.Chunks, tr.Chunks[2:]...)
	err = replay.New(ctx, null.New()).Load(ctx, truncated)
	assert.For(ctx, "truncated").ThatError(err).HasCause(replay.ErrCorruptTrace)

	r := replay.New(ctx, null.New())
	assert.For(ctx, "not loaded").ThatError(r.ReplayLog(ctx, 0, 1, replay.Full)).Equals(replay.ErrNotLoaded)
}

func TestParseReplayType(t *testing.T) {
	ctx := log.Testing(t)
	for _, rt := range []replay.ReplayType{replay.Full, replay.WithoutDraw, replay.OnlyDraw} {
		got, err := replay.ParseReplayType(rt.String())
		assert.For(ctx, "parse %v", rt).ThatError(err).Succeeded()
		assert.For(ctx, "round trip %v", rt).That(got).Equals(rt)
	}
	_, err := replay.ParseReplayType("sideways")
	assert.For(ctx, "unknown").ThatError(err).Failed()
}
