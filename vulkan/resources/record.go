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

package resources

import (
	"sync"
	"sync/atomic"

	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
)

// CmdInfo holds what a command buffer record needs to re-allocate the
// command buffer on replay.
type CmdInfo struct {
	Device resid.ID
	Pool   resid.ID
	Level  driver.CommandBufferLevel
}

// Record is the capture-time record of one wrapped object. It owns the
// chunks that created or built the object, the records it depends on and
// the resources it references.
//
// A record is only mutated by the thread that owns the object, apart from
// its reference count.
type Record struct {
	ID   resid.ID
	Type driver.ObjectType

	mu       sync.Mutex
	chunks   chunk.List
	parents  []*Record
	refs     Refs
	refCount int32
	owner    *Manager

	// Baked is the current baked record of a command buffer.
	Baked *Record
	// Cmd is set for command buffer records.
	Cmd *CmdInfo
	// Memory is the size of a memory allocation.
	Memory uint64
}

// AddChunk appends c to the record.
func (r *Record) AddChunk(c *chunk.Chunk) {
	r.mu.Lock()
	r.chunks = append(r.chunks, c)
	r.mu.Unlock()
}

// Chunks returns a copy of the recorded chunk list.
func (r *Record) Chunks() chunk.List {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(chunk.List(nil), r.chunks...)
}

// NumChunks returns the number of recorded chunks.
func (r *Record) NumChunks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

// SwapChunks moves every chunk in r into other, leaving r empty.
func (r *Record) SwapChunks(other *Record) {
	r.mu.Lock()
	list := r.chunks
	r.chunks = nil
	r.mu.Unlock()
	other.mu.Lock()
	other.chunks = append(other.chunks, list...)
	other.mu.Unlock()
}

// AddParent makes r depend on p: r's creation needs p's history. The
// parent is kept alive for as long as r is.
func (r *Record) AddParent(p *Record) {
	if p == nil || p == r {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.parents {
		if q == p {
			return
		}
	}
	p.AddRef()
	r.parents = append(r.parents, p)
}

// Parents returns the direct parents of r.
func (r *Record) Parents() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Record(nil), r.parents...)
}

// Insert adds every chunk of r and its ancestors to out, keyed by index.
func (r *Record) Insert(out map[uint64]*chunk.Chunk) {
	seen := map[*Record]bool{}
	var visit func(*Record)
	visit = func(rec *Record) {
		if seen[rec] {
			return
		}
		seen[rec] = true
		for _, c := range rec.Chunks() {
			out[c.Index] = c
		}
		for _, p := range rec.Parents() {
			visit(p)
		}
	}
	visit(r)
}

// MarkResourceFrameReferenced notes that the object r describes touches id.
func (r *Record) MarkResourceFrameReferenced(id resid.ID, ref FrameRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == nil {
		r.refs = Refs{}
	}
	r.refs.Mark(id, ref)
}

// FrameRefs returns a copy of the references marked on r.
func (r *Record) FrameRefs() Refs {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(Refs, len(r.refs))
	for id, ref := range r.refs {
		out[id] = ref
	}
	return out
}

// AddResourceReferences marks every reference held by r on the manager.
func (r *Record) AddResourceReferences(m *Manager) {
	for id, ref := range r.FrameRefs() {
		m.MarkResourceFrameReferenced(id, ref)
	}
}

// AddRef takes a reference on the record.
func (r *Record) AddRef() { atomic.AddInt32(&r.refCount, 1) }

// RefCount returns the number of outstanding references.
func (r *Record) RefCount() int32 { return atomic.LoadInt32(&r.refCount) }

// Delete drops a reference. When the last reference goes the record is
// removed from its manager and releases its parents.
func (r *Record) Delete() {
	if atomic.AddInt32(&r.refCount, -1) > 0 {
		return
	}
	r.mu.Lock()
	parents := r.parents
	r.parents, r.chunks, r.refs = nil, nil, nil
	r.mu.Unlock()
	if r.owner != nil {
		r.owner.removeRecord(r)
	}
	for _, p := range parents {
		p.Delete()
	}
}

// DropChunks discards the recorded chunks, keeping parents and references.
func (r *Record) DropChunks() {
	r.mu.Lock()
	r.chunks = nil
	r.mu.Unlock()
}
