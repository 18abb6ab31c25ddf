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

package capture

import (
	"context"
	"sort"
	"time"

	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resources"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// QueueSubmit records the submission inside a captured frame. Each
// submitted baked record is held until the frame ends, and everything it
// references becomes frame referenced.
func (l *Layer) QueueSubmit(queue driver.Handle, submits []driver.SubmitInfo, fence driver.Handle) error {
	err := l.drv.QueueSubmit(queue, submits, fence)
	if l.State() != WritingCapframe {
		return err
	}
	call := &calls.QueueSubmit{Queue: l.id(queue), Fence: l.id(fence)}
	extra := resources.Refs{}
	var baked []*resources.Record
	for _, s := range submits {
		b := calls.Submit{
			WaitSemaphores:   l.rm.WrapperIDs(s.WaitSemaphores),
			SignalSemaphores: l.rm.WrapperIDs(s.SignalSemaphores),
		}
		for _, h := range s.CommandBuffers {
			id := l.id(h)
			r := l.record(id)
			if r == nil || r.Baked == nil {
				log.E(l.ctx, "Submitted command buffer %v was never recorded", id)
				continue
			}
			b.CommandBuffers = append(b.CommandBuffers, r.Baked.ID)
			baked = append(baked, r.Baked)
			extra.Merge(r.Baked.FrameRefs())
			extra.Mark(r.Cmd.Pool, resources.Read)
			extra.Mark(r.Cmd.Device, resources.Read)
		}
		call.Submits = append(call.Submits, b)
	}
	l.frameMu.Lock()
	if l.State() == WritingCapframe {
		for _, r := range baked {
			r.AddRef()
			l.frameCmds = append(l.frameCmds, r)
		}
	}
	l.frameMu.Unlock()
	l.recordFrame(call, extra)
	return err
}

func (l *Layer) QueueWaitIdle(queue driver.Handle) error {
	err := l.drv.QueueWaitIdle(queue)
	l.recordFrame(&calls.QueueWaitIdle{Queue: l.id(queue)}, nil)
	return err
}

// QueuePresent is the frame boundary. It ends a frame being captured, then
// starts the next pending one.
func (l *Layer) QueuePresent(queue driver.Handle) error {
	err := l.drv.QueuePresent(queue)
	l.capLock.Lock()
	defer l.capLock.Unlock()
	if l.State() == WritingCapframe {
		if _, ferr := l.endFrameCapture(l.ctx, queue); ferr != nil {
			log.E(l.ctx, "Frame capture failed: %v", ferr)
		}
	}
	l.frameNumber++
	if l.pending > 0 && l.State() == WritingIdle {
		l.pending--
		l.startFrameCapture(l.ctx)
	}
	return err
}

// StartFrameCapture begins capturing immediately rather than at the next
// present.
func (l *Layer) StartFrameCapture(ctx context.Context) error {
	l.capLock.Lock()
	defer l.capLock.Unlock()
	switch l.State() {
	case Idle:
		return ErrNotArmed
	case WritingCapframe:
		return ErrAlreadyActive
	}
	l.startFrameCapture(ctx)
	return nil
}

// EndFrameCapture finishes the frame being captured and returns its trace.
func (l *Layer) EndFrameCapture(ctx context.Context, queue driver.Handle) (*serialize.Trace, error) {
	l.capLock.Lock()
	defer l.capLock.Unlock()
	if l.State() != WritingCapframe {
		return nil, ErrNotCapturing
	}
	return l.endFrameCapture(ctx, queue)
}

func (l *Layer) startFrameCapture(ctx context.Context) {
	ctx = log.Enter(ctx, "StartFrameCapture")
	l.rm.ClearReferencedResources()
	l.rm.ClearInitialContents()
	l.snapshotMemory(ctx)

	l.frameMu.Lock()
	l.frame = l.rm.AddResourceRecord(l.rm.NewID(), driver.ObjectUnknown)
	l.frameCmds, l.held = nil, nil
	l.frameStart = l.frameNumber
	l.setState(WritingCapframe)
	l.frameMu.Unlock()
	log.I(ctx, "Capturing frame %d", l.frameStart)
}

// detachFrame leaves the captured frame, returning what it recorded.
func (l *Layer) detachFrame() (frame *resources.Record, cmds, held []*resources.Record) {
	l.frameMu.Lock()
	defer l.frameMu.Unlock()
	l.setState(WritingIdle)
	frame, cmds, held = l.frame, l.frameCmds, l.held
	l.frame, l.frameCmds, l.held = nil, nil, nil
	return frame, cmds, held
}

func release(frame *resources.Record, lists ...[]*resources.Record) {
	for _, list := range lists {
		for _, r := range list {
			r.Delete()
		}
	}
	if frame != nil {
		frame.Delete()
	}
}

func (l *Layer) abandonFrame() {
	frame, cmds, held := l.detachFrame()
	release(frame, cmds, held)
	l.rm.ClearReferencedResources()
	l.rm.ClearInitialContents()
	l.dropSnapshots()
	log.W(l.ctx, "Frame capture %d abandoned", l.frameStart)
}

func (l *Layer) endFrameCapture(ctx context.Context, queue driver.Handle) (*serialize.Trace, error) {
	ctx = log.Enter(ctx, "EndFrameCapture")
	frame, cmds, held := l.detachFrame()
	defer func() {
		release(frame, cmds, held)
		l.rm.ClearReferencedResources()
		l.rm.ClearInitialContents()
		l.dropSnapshots()
	}()

	end := l.encode(&calls.CaptureEnd{Queue: l.id(queue)})
	refs := l.rm.ReferencedResources()

	history := map[uint64]*chunk.Chunk{}
	if r := l.record(l.instance); r != nil {
		r.Insert(history)
	}
	for id := range refs {
		if r := l.record(id); r != nil {
			r.Insert(history)
		}
	}
	init := make(chunk.List, 0, len(history))
	for _, c := range history {
		init = append(init, c)
	}
	init = chunk.Merge(init)
	if len(init) == 0 || init[0].Kind != chunk.CreateInstance {
		return nil, errors.Errorf("Frame %d has no recorded instance", l.frameStart)
	}

	l.rm.PrepareInitialContents(l.prepareInitialContents)
	for _, id := range l.rm.InitialContentIDs() {
		ic, _ := l.rm.GetInitialContents(id)
		if c := l.encode(&calls.InitialContents{ID: id, Type: ic.Type, Data: ic.Data}); c != nil {
			init = append(init, c)
		}
	}

	begin := &calls.CaptureBegin{Frame: l.frameStart}
	for id, ref := range refs {
		begin.Refs = append(begin.Refs, calls.FrameRef{ID: id, Access: ref})
	}
	sort.Slice(begin.Refs, func(i, j int) bool { return begin.Refs[i].ID < begin.Refs[j].ID })
	beginChunk := l.encode(begin)
	if beginChunk == nil || end == nil {
		return nil, errors.Errorf("Failed to encode the bounds of frame %d", l.frameStart)
	}

	lists := []chunk.List{frame.Chunks()}
	for _, r := range cmds {
		lists = append(lists, r.Chunks())
	}
	body := chunk.Merge(lists...)

	t := &serialize.Trace{ID: uuid.New(), Frame: l.frameStart}
	t.Chunks = append(t.Chunks, init...)
	t.Chunks = append(t.Chunks, beginChunk)
	t.Chunks = append(t.Chunks, body...)
	t.Chunks = append(t.Chunks, end)

	c := Capture{ID: t.ID, Frame: t.Frame, Chunks: len(t.Chunks), Time: time.Now()}
	if l.output != nil {
		path, err := l.output.Write(ctx, t)
		if err != nil {
			return nil, log.Err(ctx, err, "Writing capture")
		}
		c.Path = path
	}
	log.I(ctx, "Captured frame %d: %d chunks, %d referenced resources", t.Frame, len(t.Chunks), len(refs))
	l.notify(c)
	return t, nil
}

// prepareInitialContents supplies the start-of-frame contents of memory.
func (l *Layer) prepareInitialContents(r *resources.Record) (resources.InitialContents, bool) {
	if r.Type != driver.ObjectMemory {
		return resources.InitialContents{}, false
	}
	l.memMu.Lock()
	defer l.memMu.Unlock()
	data, ok := l.snapshots[r.ID]
	if !ok {
		return resources.InitialContents{}, false
	}
	return resources.InitialContents{Type: driver.ObjectMemory, Data: data}, true
}

// ReferencedResources returns the resources referenced by the frame being
// captured.
func (l *Layer) ReferencedResources() resources.Refs {
	return l.rm.ReferencedResources()
}
