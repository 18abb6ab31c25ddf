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

// Package capture implements the capturing layer. A Layer sits between the
// application and a driver.Driver, forwarding every call and recording the
// calls needed to replay a chosen frame.
package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/config"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/resources"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

const (
	ErrNotCapturing  = fault.Const("No frame is being captured")
	ErrAlreadyActive = fault.Const("A frame is already being captured")
	ErrNotArmed      = fault.Const("Capture is not armed")
	ErrNotMapped     = fault.Const("Memory is not known to the layer")
)

// State is the recording state of the layer.
type State int32

const (
	// Idle forwards calls without recording anything.
	Idle State = iota
	// WritingIdle records creation history into per-object records.
	WritingIdle
	// WritingCapframe also records queue-level calls and frame references.
	WritingCapframe
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case WritingIdle:
		return "WritingIdle"
	case WritingCapframe:
		return "WritingCapframe"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Writing returns true if calls are recorded in state s.
func (s State) Writing() bool { return s >= WritingIdle }

// Options configures a Layer.
type Options struct {
	// Armed starts the layer in WritingIdle.
	Armed bool
	// Frames is the number of frames to capture as soon as possible.
	Frames int
	// Output receives every finished trace. Nil discards them.
	Output Output
}

// Layer is a capturing driver.Driver.
type Layer struct {
	ctx context.Context
	drv driver.Driver
	rm  *resources.Manager

	seq         chunk.Sequence
	serializers sync.Pool

	state int32

	// capLock serializes frame boundary transitions.
	capLock     sync.Mutex
	pending     int
	frameNumber uint32
	frameStart  uint32

	// frameMu guards the frame capture record.
	frameMu   sync.Mutex
	frame     *resources.Record
	frameCmds []*resources.Record
	held      []*resources.Record

	instance resid.ID

	memMu     sync.Mutex
	memories  map[resid.ID]*memory
	snapshots map[resid.ID][]byte

	output      Output
	listenMu    sync.Mutex
	listeners   map[int]func(Capture)
	nextListen  int
	lastCapture Capture
}

var _ driver.Driver = (*Layer)(nil)

// New returns a layer forwarding to drv.
func New(ctx context.Context, drv driver.Driver, opts Options) *Layer {
	l := &Layer{
		ctx:       ctx,
		drv:       drv,
		rm:        resources.New(),
		memories:  map[resid.ID]*memory{},
		output:    opts.Output,
		listeners: map[int]func(Capture){},
		pending:   opts.Frames,
	}
	l.serializers.New = func() interface{} {
		return serialize.NewWriter(&l.seq, config.DebugChunkStrings)
	}
	if opts.Armed {
		l.state = int32(WritingIdle)
	}
	return l
}

// Resources returns the layer's resource manager.
func (l *Layer) Resources() *resources.Manager { return l.rm }

// State returns the current recording state.
func (l *Layer) State() State { return State(atomic.LoadInt32(&l.state)) }

func (l *Layer) setState(s State) { atomic.StoreInt32(&l.state, int32(s)) }

func (l *Layer) writing() bool { return l.State().Writing() }

// Arm starts recording creation history.
func (l *Layer) Arm() {
	l.capLock.Lock()
	defer l.capLock.Unlock()
	if l.State() == Idle {
		l.setState(WritingIdle)
		log.I(l.ctx, "Capture armed")
	}
}

// Disarm stops recording. An active frame capture is abandoned.
func (l *Layer) Disarm() {
	l.capLock.Lock()
	defer l.capLock.Unlock()
	if l.State() == WritingCapframe {
		l.abandonFrame()
	}
	l.setState(Idle)
	l.pending = 0
	log.I(l.ctx, "Capture disarmed")
}

// TriggerCapture asks for the next frames frames to be captured, one trace
// per frame.
func (l *Layer) TriggerCapture(frames int) error {
	l.capLock.Lock()
	defer l.capLock.Unlock()
	if l.State() == Idle {
		return ErrNotArmed
	}
	if frames < 1 {
		frames = 1
	}
	l.pending += frames
	log.D(l.ctx, "Capture of %d frame(s) triggered", frames)
	return nil
}

// Pending returns the number of frames still to be captured.
func (l *Layer) Pending() int {
	l.capLock.Lock()
	defer l.capLock.Unlock()
	return l.pending
}

// encode serializes c with a pooled serializer. Failures are logged and
// return nil.
func (l *Layer) encode(c calls.Call) *chunk.Chunk {
	s := l.serializers.Get().(*serialize.Serializer)
	defer l.serializers.Put(s)
	out, err := calls.Encode(s, c)
	if err != nil {
		log.E(l.ctx, "Failed to record %v: %v", c.Kind(), err)
		return nil
	}
	return out
}

func (l *Layer) record(id resid.ID) *resources.Record {
	return l.rm.GetResourceRecord(id)
}

// create wraps the new handle and, while writing, gives it a record holding
// the creation chunk. The first parent is the object the handle was created
// from.
func (l *Layer) create(t driver.ObjectType, handle driver.Handle, parents []resid.ID, build func(id resid.ID) calls.Call) resid.ID {
	parent := resid.Null
	if len(parents) > 0 {
		parent = parents[0]
	}
	id := l.rm.WrapResource(parent, handle)
	if !l.writing() {
		return id
	}
	r := l.rm.AddResourceRecord(id, t)
	for _, p := range parents {
		r.AddParent(l.record(p))
	}
	if c := l.encode(build(id)); c != nil {
		r.AddChunk(c)
	}
	return id
}

// release drops the wrapper of handle and its record. Records the current
// frame references are kept until the frame ends.
func (l *Layer) release(handle driver.Handle) {
	id := l.rm.ReleaseWrapper(handle)
	r := l.record(id)
	if r == nil {
		return
	}
	l.frameMu.Lock()
	if l.State() == WritingCapframe {
		if _, used := l.rm.ReferencedResources()[id]; used {
			l.held = append(l.held, r)
			l.frameMu.Unlock()
			return
		}
	}
	l.frameMu.Unlock()
	r.Delete()
}

// recordCmd records a command building call into the command buffer's own
// record, and notes its references on the baked record.
func (l *Layer) recordCmd(cmd driver.Handle, build func(c calls.Cmd) calls.Call) {
	if !l.writing() {
		return
	}
	id := l.rm.WrapperID(cmd)
	r := l.record(id)
	if r == nil || r.Baked == nil {
		log.E(l.ctx, "Command recorded into %v outside Begin/End", id)
		return
	}
	call := build(calls.Cmd{Buffer: id})
	c := l.encode(call)
	if c == nil {
		return
	}
	r.AddChunk(c)
	if ref, ok := call.(calls.Referencer); ok {
		for _, x := range ref.Refs() {
			r.Baked.MarkResourceFrameReferenced(x.ID, x.Access)
		}
	}
}

// recordFrame records a queue-level call into the frame capture record and
// marks what it references. It does nothing outside a captured frame.
func (l *Layer) recordFrame(call calls.Call, extra resources.Refs) {
	l.frameMu.Lock()
	defer l.frameMu.Unlock()
	if l.State() != WritingCapframe {
		return
	}
	c := l.encode(call)
	if c == nil {
		return
	}
	l.frame.AddChunk(c)
	refs := resources.Refs{}
	if ref, ok := call.(calls.Referencer); ok {
		for _, x := range ref.Refs() {
			refs.Mark(x.ID, x.Access)
		}
	}
	refs.Merge(extra)
	l.markReferenced(refs)
}

// markReferenced marks refs on the manager together with everything the
// referenced objects themselves touch: the attachments of a framebuffer,
// the contents of a descriptor set, and the memory behind a buffer or image.
func (l *Layer) markReferenced(refs resources.Refs) {
	seen := map[resid.ID]bool{}
	var mark func(id resid.ID, ref resources.FrameRef)
	mark = func(id resid.ID, ref resources.FrameRef) {
		l.rm.MarkResourceFrameReferenced(id, ref)
		if seen[id] {
			return
		}
		seen[id] = true
		r := l.record(id)
		if r == nil {
			return
		}
		for inner, access := range r.FrameRefs() {
			switch r.Type {
			case driver.ObjectBuffer, driver.ObjectImage:
				// Writing the object writes part of its memory.
				access = ref
				if access == resources.Write {
					access = resources.ReadBeforeWrite
				}
			}
			mark(inner, access)
		}
	}
	for id, ref := range refs {
		mark(id, ref)
	}
}

// Subscribe registers f to be called with every finished capture. The
// returned function unregisters it.
func (l *Layer) Subscribe(f func(Capture)) func() {
	l.listenMu.Lock()
	defer l.listenMu.Unlock()
	n := l.nextListen
	l.nextListen++
	l.listeners[n] = f
	return func() {
		l.listenMu.Lock()
		defer l.listenMu.Unlock()
		delete(l.listeners, n)
	}
}

// LastCapture returns the most recently finished capture.
func (l *Layer) LastCapture() Capture {
	l.listenMu.Lock()
	defer l.listenMu.Unlock()
	return l.lastCapture
}

func (l *Layer) notify(c Capture) {
	l.listenMu.Lock()
	l.lastCapture = c
	fs := make([]func(Capture), 0, len(l.listeners))
	for _, f := range l.listeners {
		fs = append(fs, f)
	}
	l.listenMu.Unlock()
	for _, f := range fs {
		f(c)
	}
}
