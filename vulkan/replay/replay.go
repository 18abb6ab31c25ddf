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

// Package replay recreates a captured frame on a driver and replays any
// range of its events.
//
// Load processes the trace once in the Reading state: it recreates every
// object, records each baked command buffer and indexes every event and
// drawcall. Afterwards the replayer is Executing and ReplayLog can replay
// the frame up to any event, substituting a truncated command buffer for
// the one the end event falls inside.
package replay

import (
	"context"
	"fmt"

	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/config"
	"github.com/gfxtrace/vkreplay/vulkan/drawcall"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/resources"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
	"github.com/pkg/errors"
)

const (
	ErrCorruptTrace = fault.Const("Corrupt trace")
	ErrUnknownChunk = fault.Const("Unknown chunk")
	ErrNotLoaded    = fault.Const("No trace loaded")
	ErrLoaded       = fault.Const("Trace already loaded")
)

// State is the replay state.
type State int

const (
	// Reading is the single pass that recreates and indexes the frame.
	Reading State = iota
	// Executing replays ranges of the indexed frame.
	Executing
)

func (s State) String() string {
	if s == Reading {
		return "Reading"
	}
	return "Executing"
}

// ReplayType selects what part of a range ReplayLog replays.
type ReplayType int

const (
	// Full replays every event up to and including the end event.
	Full ReplayType = iota
	// WithoutDraw replays up to, but not including, the end event.
	WithoutDraw
	// OnlyDraw replays the end event alone, on top of the state left by a
	// previous replay.
	OnlyDraw
)

func (t ReplayType) String() string {
	switch t {
	case Full:
		return "full"
	case WithoutDraw:
		return "without"
	case OnlyDraw:
		return "only"
	}
	return fmt.Sprintf("ReplayType(%d)", int(t))
}

// ParseReplayType parses the String form of a ReplayType.
func ParseReplayType(s string) (ReplayType, error) {
	for _, t := range []ReplayType{Full, WithoutDraw, OnlyDraw} {
		if t.String() == s {
			return t, nil
		}
	}
	return Full, errors.Errorf("Unknown replay type %q", s)
}

// handler replays one decoded call.
type handler func(ctx context.Context, c calls.Call) error

// on adapts a typed handler to the handler table.
func on[T calls.Call](f func(ctx context.Context, c T) error) handler {
	return func(ctx context.Context, c calls.Call) error {
		t, ok := c.(T)
		if !ok {
			return errors.Errorf("Handler for %v given %T", c.Kind(), c)
		}
		return f(ctx, t)
	}
}

// cmdState is the state of a command buffer while it is read.
type cmdState struct {
	renderPass  resid.ID
	framebuffer resid.ID
	subpass     uint32
	pipeline    resid.ID
	idxWidth    uint32
}

// bakedInfo is kept for every command buffer and every baked command
// buffer. Reading accumulates into the command buffer's entry and moves the
// result to the baked entry on End.
type bakedInfo struct {
	draw      *drawcall.TreeNode
	drawStack []*drawcall.TreeNode
	curEvents []drawcall.APIEvent

	eventCount uint32
	drawCount  uint32
	// curEventID is the event cursor within the command buffer.
	curEventID uint32
	// beginChunk and endChunk locate the Begin and End chunks in the frame.
	beginChunk, endChunk int

	level driver.CommandBufferLevel
	flags driver.CommandBufferUsage
	state cmdState
}

type object struct {
	typ    driver.ObjectType
	device resid.ID
}

type framebufferInfo struct {
	renderPass  resid.ID
	attachments []resid.ID
}

type pipelineInfo struct {
	bindPoint driver.PipelineBindPoint
	topology  driver.Topology
	patch     uint32
}

type memoryInfo struct {
	device resid.ID
	size   uint64
}

// FrameRecord describes the indexed frame.
type FrameRecord struct {
	FrameNumber uint32
	Drawcalls   []drawcall.Description
	Events      []drawcall.APIEvent
	Refs        []calls.FrameRef
}

// Replayer replays a captured frame. It is not safe for concurrent use.
type Replayer struct {
	drv      driver.Driver
	rm       *resources.Manager
	state    State
	loaded   bool
	handlers map[chunk.Kind]handler

	trace       *serialize.Trace
	frame       chunk.List
	cur         chunk.List
	chunkIdx    int
	frameNumber uint32
	frameRefs   []calls.FrameRef

	baked     map[resid.ID]*bakedInfo
	submits   map[resid.ID][]uint32
	lastCmd   resid.ID
	addedDraw bool

	rootEventID uint32
	rootDrawID  uint32
	rootEvents  []drawcall.APIEvent
	events      []drawcall.APIEvent
	root        *drawcall.TreeNode
	drawStack   []*drawcall.TreeNode
	draws       []drawcall.Description
	drawIndex   map[uint32]*drawcall.Description

	renderState RenderState
	session     *Session

	objects      map[resid.ID]object
	devices      map[resid.ID]driver.DeviceCreateInfo
	renderPasses map[resid.ID]driver.RenderPassCreateInfo
	framebuffers map[resid.ID]framebufferInfo
	pipelines    map[resid.ID]pipelineInfo
	memories     map[resid.ID]memoryInfo
	device       resid.ID
	queue        resid.ID
	internal     map[resid.ID]driver.Handle

	warned         map[string]bool
	skipped        fault.List
	internalErrors fault.List
}

// New returns a replayer that recreates objects on drv.
func New(ctx context.Context, drv driver.Driver) *Replayer {
	r := &Replayer{
		drv:          drv,
		rm:           resources.New(),
		baked:        map[resid.ID]*bakedInfo{},
		submits:      map[resid.ID][]uint32{},
		objects:      map[resid.ID]object{},
		devices:      map[resid.ID]driver.DeviceCreateInfo{},
		renderPasses: map[resid.ID]driver.RenderPassCreateInfo{},
		framebuffers: map[resid.ID]framebufferInfo{},
		pipelines:    map[resid.ID]pipelineInfo{},
		memories:     map[resid.ID]memoryInfo{},
		internal:     map[resid.ID]driver.Handle{},
		warned:       map[string]bool{},
	}
	r.handlers = r.buildHandlers()
	return r
}

// Resources returns the replayer's resource manager.
func (r *Replayer) Resources() *resources.Manager { return r.rm }

// State returns the replay state.
func (r *Replayer) State() State { return r.state }

// Trace returns the loaded trace.
func (r *Replayer) Trace() *serialize.Trace { return r.trace }

// Frame returns the frame chunks that follow CaptureBegin. Event chunk
// indices point into this list.
func (r *Replayer) Frame() chunk.List { return r.frame }

// InternalErrors returns the number of internal errors detected so far.
func (r *Replayer) InternalErrors() int { return len(r.internalErrors) }

// Skipped returns the handler failures of the chunks skipped so far.
func (r *Replayer) Skipped() fault.List { return r.skipped }

// Load recreates the objects of t and indexes its frame.
func (r *Replayer) Load(ctx context.Context, t *serialize.Trace) error {
	if r.loaded {
		return ErrLoaded
	}
	ctx = log.Enter(ctx, "Load")
	init, frame, err := t.Split()
	if err != nil {
		return errors.Wrapf(ErrCorruptTrace, "%v", err)
	}
	if len(init) == 0 || init[0].Kind != chunk.CreateInstance {
		return errors.Wrap(ErrCorruptTrace, "Trace does not start with CreateInstance")
	}
	r.trace = t
	r.state = Reading
	r.loaded = true

	r.cur = init
	for i, c := range init {
		if err := r.ProcessChunk(ctx, i, c.Kind); err != nil {
			return err
		}
	}

	call, err := calls.Decode(frame[0])
	if err != nil {
		return errors.Wrapf(ErrCorruptTrace, "%v", err)
	}
	begin := call.(*calls.CaptureBegin)
	r.frameNumber, r.frameRefs = begin.Frame, begin.Refs
	r.frame = frame[1:]
	r.cur = r.frame

	r.applyInitialContents(ctx)
	if err := r.ContextReplayLog(ctx, 0, 0, false); err != nil {
		return err
	}
	r.state = Executing
	if config.DebugPartialReplay {
		r.logDraws(ctx)
	}
	if err := r.skipped.Err(); err != nil {
		log.W(ctx, "Skipped chunks while loading: %v", err)
	}
	log.I(ctx, "Loaded frame %d: %d events, %d drawcalls", r.frameNumber, len(r.events), r.rootDrawID-1)
	return nil
}

// ProcessChunk decodes the chunk at index of the list being processed and
// dispatches it to its handler. Handler failures are logged and the chunk
// is skipped. Only a chunk that cannot be decoded is fatal.
func (r *Replayer) ProcessChunk(ctx context.Context, index int, kind chunk.Kind) error {
	if index < 0 || index >= len(r.cur) || r.cur[index].Kind != kind {
		return errors.Wrapf(ErrCorruptTrace, "No %v chunk at %d", kind, index)
	}
	h, ok := r.handlers[kind]
	if !ok {
		return errors.Wrapf(ErrUnknownChunk, "%v at %d", kind, index)
	}
	call, err := calls.Decode(r.cur[index])
	if err != nil {
		return errors.Wrapf(ErrCorruptTrace, "%v", err)
	}
	r.chunkIdx = index
	if cmd, ok := call.(calls.CmdCall); ok {
		r.lastCmd = cmd.CommandBuffer()
	}
	if err := h(ctx, call); err != nil {
		log.E(ctx, "Replaying %v: %v", kind, err)
		r.skipped.Collect(errors.Wrapf(err, "%v at %d", kind, index))
	}
	return nil
}

// contextProcessChunk processes a frame chunk, adding an event for it while
// reading unless its handler already did.
func (r *Replayer) contextProcessChunk(ctx context.Context, index int, kind chunk.Kind) error {
	r.addedDraw = false
	if err := r.ProcessChunk(ctx, index, kind); err != nil {
		return err
	}
	if r.state == Reading && !r.addedDraw {
		switch kind {
		case chunk.BeginCommandBuffer, chunk.EndCommandBuffer,
			chunk.CmdDebugMarkerBegin, chunk.CmdDebugMarkerEnd, chunk.CmdDebugMarkerInsert:
			// Added by the handler or at submission.
		default:
			r.AddEvent(kind, kind.String())
		}
	}
	r.addedDraw = false
	return nil
}

// ReplayLog replays events start to end of the frame. A start of 0 with
// Full or WithoutDraw replays from the beginning of the frame after
// restoring the initial contents. Any other range is recorded into a single
// command buffer of the replayer's own, on top of the state left by the
// previous replay.
func (r *Replayer) ReplayLog(ctx context.Context, start, end uint32, t ReplayType) error {
	if !r.loaded || r.state != Executing {
		return ErrNotLoaded
	}
	ctx = log.Enter(ctx, "ReplayLog")
	partial := true
	if start == 0 && (t == Full || t == WithoutDraw) {
		start, partial = 1, false
	}
	if !partial {
		r.applyInitialContents(ctx)
		r.renderState = RenderState{}
	}
	r.session = &Session{}
	rpWasActive := r.renderState.RenderPassActive

	if partial {
		cmd, err := r.beginOutside(ctx)
		if err != nil {
			return err
		}
		r.session.outside = cmd
		if r.renderState.RenderPassActive {
			mode := BindGraphics
			if t == OnlyDraw {
				if d := r.GetDrawcall(end); d == nil || !(d.Flags.IsDrawcall() || d.Flags.IsDispatch()) {
					mode = BindNone
				}
			}
			r.beginRenderPassAndApplyState(cmd, mode)
		} else if !r.renderState.Compute.Pipeline.IsNull() {
			r.bindPipeline(cmd, BindCompute)
		}
	}

	var err error
	switch t {
	case Full:
		err = r.ContextReplayLog(ctx, start, end, partial)
	case WithoutDraw:
		if end < 1 {
			end = 1
		}
		err = r.ContextReplayLog(ctx, start, end-1, partial)
	case OnlyDraw:
		err = r.ContextReplayLog(ctx, end, end, partial)
	default:
		err = errors.Errorf("Unexpected replay type %v", t)
	}

	if cmd := r.session.outside; cmd != driver.Null {
		if r.renderState.RenderPassActive {
			r.endRenderPass(cmd)
		}
		// Keep the render pass state of the replay this one builds on.
		r.renderState.RenderPassActive = rpWasActive
		r.finishOutside(ctx, cmd)
		r.session.outside = driver.Null
	}
	return err
}

// ContextReplayLog runs the frame's chunks through the handlers. While
// reading it processes the whole frame and builds the index. While
// executing it stops once the end event has been replayed. If partial is
// true execution starts at the chunk of the start event.
func (r *Replayer) ContextReplayLog(ctx context.Context, start, end uint32, partial bool) error {
	if r.session == nil {
		r.session = &Session{}
	}
	s := r.session
	pos := 0
	// walk visits the chunk of each event in turn instead of every chunk.
	walk := r.state == Executing && partial
	r.rootEvents = nil
	if r.state == Executing {
		ev := r.GetEvent(start)
		r.rootEventID = ev.EventID
		if partial {
			pos = ev.ChunkIndex
		}
		s.first, s.last = start, end
		if start == end && r.rootEventID != start {
			s.first, s.last = r.rootEventID, r.rootEventID
		}
	} else {
		r.rootEventID, r.rootDrawID = 1, 1
		r.root = drawcall.NewNode(drawcall.Description{Name: "Frame"})
		r.drawStack = []*drawcall.TreeNode{r.root}
		r.events = nil
		s.first, s.last = 0, ^uint32(0)
	}
	if config.DebugPartialReplay {
		log.D(ctx, "%v events [%d, %d] from chunk %d", r.state, s.first, s.last, pos)
	}

	for {
		if r.state == Executing && r.rootEventID > end {
			break
		}
		if pos >= len(r.frame) {
			return errors.Wrap(ErrCorruptTrace, "Frame is not terminated by CaptureEnd")
		}
		kind := r.frame[pos].Kind
		r.lastCmd = resid.Null
		if err := r.contextProcessChunk(ctx, pos, kind); err != nil {
			return err
		}
		pos++
		if kind == chunk.CaptureEnd {
			break
		}
		if r.state == Executing && start == end {
			break
		}
		switch {
		case walk:
			r.rootEventID++
			pos = r.GetEvent(r.rootEventID).ChunkIndex
		case r.lastCmd.IsNull():
			r.rootEventID++
		case !kind.IsScope():
			r.bakedInfo(r.lastCmd).curEventID++
		}
	}

	if r.state == Reading {
		r.bake()
		if dev := r.rm.GetLiveHandle(r.device); dev != driver.Null {
			r.drv.DeviceWaitIdle(dev)
		}
		return nil
	}
	r.finishSession(ctx)
	return nil
}

// finishSession waits for the partial command buffer and releases it.
func (r *Replayer) finishSession(ctx context.Context) {
	s := r.session
	if !s.partialParent.IsNull() {
		r.internalError(ctx, "Partial command buffer %v was never ended", s.partialParent)
		s.partialParent = resid.Null
	}
	if s.result == driver.Null {
		return
	}
	r.drv.DeviceWaitIdle(s.resultDevice)
	r.drv.FreeCommandBuffers(s.resultDevice, s.resultPool, []driver.Handle{s.result})
	s.result = driver.Null
}

// PartialParent returns the command buffer being partially replayed. It is
// null outside a replay.
func (r *Replayer) PartialParent() resid.ID {
	if r.session == nil {
		return resid.Null
	}
	return r.session.partialParent
}

// RenderState returns the state bound by the last partial replay.
func (r *Replayer) RenderState() RenderState { return r.renderState.clone() }

// GetFrameRecord returns the indexed frame.
func (r *Replayer) GetFrameRecord() FrameRecord {
	return FrameRecord{
		FrameNumber: r.frameNumber,
		Drawcalls:   r.draws,
		Events:      r.events,
		Refs:        r.frameRefs,
	}
}

func (r *Replayer) bakedInfo(id resid.ID) *bakedInfo {
	b, ok := r.baked[id]
	if !ok {
		b = &bakedInfo{}
		r.baked[id] = b
	}
	return b
}

// inconsistent reports a trace that contradicts itself. The chunk is
// skipped.
func (r *Replayer) inconsistent(ctx context.Context, f string, args ...interface{}) error {
	err := errors.Errorf(f, args...)
	if config.StrictConsistency {
		panic(err)
	}
	return err
}

// internalError reports a bookkeeping failure of the replayer itself.
func (r *Replayer) internalError(ctx context.Context, f string, args ...interface{}) {
	err := errors.Errorf(f, args...)
	r.internalErrors.Collect(err)
	log.E(ctx, "Internal error: %v", err)
	if config.StrictConsistency {
		panic(err)
	}
}

// warnOnce logs that a feature is not supported, once per feature.
func (r *Replayer) warnOnce(ctx context.Context, feature string) {
	if r.warned[feature] {
		return
	}
	r.warned[feature] = true
	log.W(ctx, "%s is not supported and will be skipped", feature)
}

// Shutdown destroys every object the replayer created, children first.
func (r *Replayer) Shutdown(ctx context.Context) {
	for dev, pool := range r.internal {
		r.drv.DestroyCommandPool(r.rm.GetLiveHandle(dev), pool)
	}
	r.internal = map[resid.ID]driver.Handle{}
	for _, t := range driver.DestroyOrder {
		ids := []resid.ID{}
		for id, o := range r.objects {
			if o.typ == t {
				ids = append(ids, id)
			}
		}
		sortIDs(ids)
		for _, id := range ids {
			h := r.rm.GetLiveHandle(id)
			driver.Destroy(r.drv, t, r.rm.GetLiveHandle(r.objects[id].device), h)
			r.rm.EraseLiveResource(id)
			delete(r.objects, id)
		}
	}
	log.D(ctx, "Replayer shut down")
}
