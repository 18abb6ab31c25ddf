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

// Package drawcall holds the tree of API events and drawcalls built while a
// frame is indexed.
package drawcall

import (
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
)

// MaxOutputs is the number of color outputs a drawcall records.
const MaxOutputs = 8

// APIEvent is one API call in the replayed frame.
type APIEvent struct {
	EventID    uint32     // Global event ID, 1-based.
	ChunkIndex int        // Position of the chunk in the frame chunk list.
	Kind       chunk.Kind // Kind of the chunk.
	Desc       string     // Readable rendering of the call parameters.
}

// Description is a drawcall, or a marker grouping other drawcalls.
type Description struct {
	EventID    uint32
	DrawcallID uint32
	Name       string
	Flags      Flags

	NumIndices     uint32
	NumInstances   uint32
	IndexOffset    uint32
	BaseVertex     int32
	VertexOffset   uint32
	InstanceOffset uint32
	Dispatch       [3]uint32

	Outputs    [MaxOutputs]resid.ID // Color attachments bound when the call ran.
	DepthOut   resid.ID             // Depth attachment bound when the call ran.
	Topology   driver.Topology
	IndexWidth uint32

	Events   []APIEvent    // The events leading up to and including this one.
	Children []Description // Nested drawcalls, only set once baked.

	// Event IDs of linked drawcalls, zero when absent.
	Parent   uint32
	Previous uint32
	Next     uint32
}

// TreeNode is a node of the drawcall tree under construction.
type TreeNode struct {
	Draw     Description
	Children []*TreeNode
}

// NewNode returns a tree node holding d.
func NewNode(d Description) *TreeNode { return &TreeNode{Draw: d} }

// Add appends a child holding d and returns it.
func (n *TreeNode) Add(d Description) *TreeNode {
	c := NewNode(d)
	n.Children = append(n.Children, c)
	return c
}

// CloneWithOffsets returns a deep copy of n with every event ID shifted by
// eventBase and every drawcall ID shifted by drawBase. n is not modified.
func (n *TreeNode) CloneWithOffsets(eventBase, drawBase uint32) *TreeNode {
	out := &TreeNode{Draw: n.Draw}
	out.Draw.EventID += eventBase
	out.Draw.DrawcallID += drawBase
	out.Draw.Children = nil
	if len(n.Draw.Events) > 0 {
		out.Draw.Events = make([]APIEvent, len(n.Draw.Events))
		for i, e := range n.Draw.Events {
			e.EventID += eventBase
			out.Draw.Events[i] = e
		}
	}
	if len(n.Children) > 0 {
		out.Children = make([]*TreeNode, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.CloneWithOffsets(eventBase, drawBase)
		}
	}
	return out
}

// Bake flattens the children of n into plain descriptions, keeping the
// hierarchy in the nested Children lists.
func (n *TreeNode) Bake() []Description {
	if len(n.Children) == 0 {
		return nil
	}
	out := make([]Description, len(n.Children))
	for i, c := range n.Children {
		out[i] = c.Draw
		out[i].Children = c.Bake()
	}
	return out
}

// Count returns the number of nodes below n.
func (n *TreeNode) Count() int {
	total := len(n.Children)
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Link sets the Parent, Previous and Next links of every drawcall in the
// baked list. Previous and Next chain the leaf drawcalls in execution
// order.
func Link(draws []Description) {
	var prev *Description
	var link func(list []Description, parent uint32)
	link = func(list []Description, parent uint32) {
		for i := range list {
			d := &list[i]
			d.Parent = parent
			if len(d.Children) > 0 {
				link(d.Children, d.EventID)
				continue
			}
			if prev != nil {
				d.Previous = prev.EventID
				prev.Next = d.EventID
			}
			prev = d
		}
	}
	link(draws, 0)
}

// Walk calls f for every drawcall in execution order, parents before their
// children. Walk stops if f returns false.
func Walk(draws []Description, f func(d *Description) bool) bool {
	for i := range draws {
		if !f(&draws[i]) {
			return false
		}
		if !Walk(draws[i].Children, f) {
			return false
		}
	}
	return true
}

// Index returns a lookup from event ID to the drawcall ending at it.
func Index(draws []Description) map[uint32]*Description {
	out := map[uint32]*Description{}
	Walk(draws, func(d *Description) bool {
		out[d.EventID] = d
		return true
	})
	return out
}
