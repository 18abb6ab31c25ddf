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

package replay

import (
	"context"
	"sort"

	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/drawcall"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
)

// AddEvent adds an event for the chunk being read. Inside a command buffer
// the event is numbered relative to the command buffer and held until a
// drawcall claims it. Outside one it takes the next global event ID.
func (r *Replayer) AddEvent(kind chunk.Kind, desc string) {
	ev := drawcall.APIEvent{ChunkIndex: r.chunkIdx, Kind: kind, Desc: desc}
	if !r.lastCmd.IsNull() {
		b := r.bakedInfo(r.lastCmd)
		ev.EventID = b.curEventID
		b.curEvents = append(b.curEvents, ev)
		return
	}
	ev.EventID = r.rootEventID
	r.rootEvents = append(r.rootEvents, ev)
	r.events = append(r.events, ev)
}

// AddDrawcall adds d to the drawcall tree under the innermost open marker.
// If hasEvents is true d claims every event added since the last drawcall.
func (r *Replayer) AddDrawcall(ctx context.Context, d drawcall.Description, hasEvents bool) {
	r.addedDraw = true
	var stack []*drawcall.TreeNode
	if !r.lastCmd.IsNull() {
		b := r.bakedInfo(r.lastCmd)
		d.EventID, d.DrawcallID = b.curEventID, b.drawCount
		b.drawCount++
		r.fillOutputs(&d, b)
		if hasEvents {
			d.Events, b.curEvents = b.curEvents, nil
		}
		stack = b.drawStack
	} else {
		d.EventID, d.DrawcallID = r.rootEventID, r.rootDrawID
		r.rootDrawID++
		if hasEvents {
			d.Events, r.rootEvents = r.rootEvents, nil
		}
		stack = r.drawStack
	}
	if len(stack) == 0 {
		r.internalError(ctx, "No drawcall stack for %q", d.Name)
		return
	}
	stack[len(stack)-1].Add(d)
}

// fillOutputs records the attachments and input state bound when d ran.
func (r *Replayer) fillOutputs(d *drawcall.Description, b *bakedInfo) {
	st := b.state
	if p, ok := r.pipelines[st.pipeline]; ok {
		d.Topology = p.topology
		if p.topology == driver.TopologyPatchList {
			d.Topology = driver.Topology(uint32(driver.TopologyPatchList) + p.patch - 1)
		}
	}
	d.IndexWidth = st.idxWidth
	fb, ok := r.framebuffers[st.framebuffer]
	if !ok {
		return
	}
	rp := r.renderPasses[st.renderPass]
	if int(st.subpass) >= len(rp.Subpasses) {
		return
	}
	sub := rp.Subpasses[st.subpass]
	out := 0
	for _, a := range sub.ColorAttachments {
		if a == driver.AttachmentUnused || int(a) >= len(fb.attachments) || out >= drawcall.MaxOutputs {
			continue
		}
		d.Outputs[out] = fb.attachments[a]
		out++
	}
	if a := sub.DepthAttachment; a != driver.AttachmentUnused && int(a) < len(fb.attachments) {
		d.DepthOut = fb.attachments[a]
	}
}

// addLabel adds a root marker drawcall with an event of its own. The event
// refers to the chunk at idx.
func (r *Replayer) addLabel(ctx context.Context, kind chunk.Kind, idx int, name string) {
	cur := r.chunkIdx
	r.chunkIdx = idx
	r.AddEvent(kind, name)
	r.chunkIdx = cur
	r.AddDrawcall(ctx, drawcall.Description{Name: name, Flags: drawcall.SetMarker}, true)
}

// insertDraws copies the drawcalls of a baked command buffer into the frame
// tree at the current root offsets. Marker drawcalls open and close levels
// of the tree.
func (r *Replayer) insertDraws(children []*drawcall.TreeNode) {
	for _, n := range children {
		if n.Draw.Flags.IsPopMarker() {
			if len(r.drawStack) > 1 {
				r.drawStack = r.drawStack[:len(r.drawStack)-1]
			}
			for _, e := range n.Draw.Events {
				e.EventID += r.rootEventID
				r.events = append(r.events, e)
			}
			continue
		}
		c := n.CloneWithOffsets(r.rootEventID, r.rootDrawID)
		r.events = append(r.events, c.Draw.Events...)
		top := r.drawStack[len(r.drawStack)-1]
		top.Children = append(top.Children, c)
		if c.Draw.Flags.IsPushMarker() {
			r.drawStack = append(r.drawStack, c)
		}
	}
}

// bake freezes the drawcall tree and event list built while reading.
func (r *Replayer) bake() {
	r.draws = r.root.Bake()
	drawcall.Link(r.draws)
	r.drawIndex = drawcall.Index(r.draws)
	sort.SliceStable(r.events, func(i, j int) bool { return r.events[i].EventID < r.events[j].EventID })
}

// GetEvent returns the first event with an ID of at least eid, or the last
// event if there is none.
func (r *Replayer) GetEvent(eid uint32) drawcall.APIEvent {
	if len(r.events) == 0 {
		return drawcall.APIEvent{}
	}
	i := sort.Search(len(r.events), func(i int) bool { return r.events[i].EventID >= eid })
	if i == len(r.events) {
		i--
	}
	return r.events[i]
}

// GetDrawcall returns the drawcall of the event eid, or nil.
func (r *Replayer) GetDrawcall(eid uint32) *drawcall.Description {
	return r.drawIndex[eid]
}

// Events returns every event of the frame in order.
func (r *Replayer) Events() []drawcall.APIEvent { return r.events }

func (r *Replayer) logDraws(ctx context.Context) {
	drawcall.Walk(r.draws, func(d *drawcall.Description) bool {
		log.D(ctx, "%d/%d %s %v", d.EventID, d.DrawcallID, d.Name, d.Flags)
		return true
	})
}
