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

// Package resources tracks the identity of API objects across capture and
// replay.
//
// At capture time every driver handle handed to the application is wrapped
// with an original ID, and a Record accumulates the chunks needed to
// recreate it. At replay time each original ID is mapped to the live handle
// recreated for it. An ID may be replaced by another so that duplicate
// objects collapse to one live object.
package resources

import (
	"sort"
	"sync"

	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
)

const ErrNoLiveResource = fault.Const("No live resource")

type wrapper struct {
	id     resid.ID
	parent resid.ID
	count  int
}

type live struct {
	handle driver.Handle
	id     resid.ID
}

// Manager maps original IDs to live objects and owns the capture records.
type Manager struct {
	mu sync.RWMutex

	ids      *resid.Generator
	wrappers map[driver.Handle]*wrapper
	wrapped  map[resid.ID]driver.Handle
	records  map[resid.ID]*Record

	liveIDs      *resid.Generator
	live         map[resid.ID]live
	originals    map[resid.ID]resid.ID
	owners       map[driver.Handle]resid.ID
	replacements map[resid.ID]resid.ID

	refs    Refs
	initial map[resid.ID]InitialContents
}

// New returns an empty manager.
func New() *Manager {
	return &Manager{
		ids:          resid.NewGenerator(resid.Null),
		wrappers:     map[driver.Handle]*wrapper{},
		wrapped:      map[resid.ID]driver.Handle{},
		records:      map[resid.ID]*Record{},
		liveIDs:      resid.NewGenerator(resid.ReplayBase),
		live:         map[resid.ID]live{},
		originals:    map[resid.ID]resid.ID{},
		owners:       map[driver.Handle]resid.ID{},
		replacements: map[resid.ID]resid.ID{},
		refs:         Refs{},
		initial:      map[resid.ID]InitialContents{},
	}
}

// NewID mints an original ID that is not bound to any handle, such as the
// ID of a baked command buffer.
func (m *Manager) NewID() resid.ID { return m.ids.New() }

// WrapResource assigns a fresh original ID to handle, created from parent.
// A driver may return the same handle for two identical create calls; each
// call still gets its own ID, and later lookups of the handle resolve to the
// most recent one.
func (m *Manager) WrapResource(parent resid.ID, handle driver.Handle) resid.ID {
	id := m.ids.New()
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wrappers[handle]
	if !ok {
		w = &wrapper{}
		m.wrappers[handle] = w
	}
	w.id, w.parent = id, parent
	w.count++
	m.wrapped[id] = handle
	return id
}

// HasWrapper returns true if handle has been wrapped.
func (m *Manager) HasWrapper(handle driver.Handle) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.wrappers[handle]
	return ok
}

// WrapperID returns the original ID of handle, or resid.Null.
func (m *Manager) WrapperID(handle driver.Handle) resid.ID {
	if handle == driver.Null {
		return resid.Null
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wrappers[handle]; ok {
		return w.id
	}
	return resid.Null
}

// WrapperIDs maps a list of handles to their original IDs.
func (m *Manager) WrapperIDs(handles []driver.Handle) []resid.ID {
	out := make([]resid.ID, len(handles))
	for i, h := range handles {
		out[i] = m.WrapperID(h)
	}
	return out
}

// Unwrap returns the handle wrapped as id.
func (m *Manager) Unwrap(id resid.ID) driver.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wrapped[id]
}

// ReleaseWrapper drops one wrap of handle, returning the ID released.
func (m *Manager) ReleaseWrapper(handle driver.Handle) resid.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wrappers[handle]
	if !ok {
		return resid.Null
	}
	id := w.id
	delete(m.wrapped, id)
	if w.count--; w.count == 0 {
		delete(m.wrappers, handle)
	}
	return id
}

// AddResourceRecord creates the record for id, holding one reference.
func (m *Manager) AddResourceRecord(id resid.ID, t driver.ObjectType) *Record {
	r := &Record{ID: id, Type: t, refCount: 1, owner: m}
	m.mu.Lock()
	m.records[id] = r
	m.mu.Unlock()
	return r
}

// GetResourceRecord returns the record for id, or nil.
func (m *Manager) GetResourceRecord(id resid.ID) *Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id]
}

// NumRecords returns the number of records alive.
func (m *Manager) NumRecords() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Manager) removeRecord(r *Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[r.ID] == r {
		delete(m.records, r.ID)
	}
}

// AddLiveResource binds the original id to the live handle recreated for it
// and returns the new live ID.
func (m *Manager) AddLiveResource(id resid.ID, handle driver.Handle) resid.ID {
	liveID := m.liveIDs.New()
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.live[id]; ok {
		delete(m.originals, old.id)
	}
	m.live[id] = live{handle: handle, id: liveID}
	m.originals[liveID] = id
	if _, taken := m.owners[handle]; !taken {
		m.owners[handle] = id
	}
	return liveID
}

func (m *Manager) resolve(id resid.ID) resid.ID {
	for i := 0; i < len(m.replacements)+1; i++ {
		with, ok := m.replacements[id]
		if !ok {
			break
		}
		id = with
	}
	return id
}

// HasLiveResource returns true if id, after replacement, has a live object.
func (m *Manager) HasLiveResource(id resid.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.live[m.resolve(id)]
	return ok
}

// GetLiveHandle returns the live handle for id, following replacements.
func (m *Manager) GetLiveHandle(id resid.ID) driver.Handle {
	if id.IsNull() {
		return driver.Null
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live[m.resolve(id)].handle
}

// GetLiveHandles maps a list of original IDs to live handles.
func (m *Manager) GetLiveHandles(ids []resid.ID) []driver.Handle {
	out := make([]driver.Handle, len(ids))
	for i, id := range ids {
		out[i] = m.GetLiveHandle(id)
	}
	return out
}

// GetLiveID returns the live ID of id, following replacements.
func (m *Manager) GetLiveID(id resid.ID) resid.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live[m.resolve(id)].id
}

// GetOriginalID returns the original ID a live ID was recreated for.
func (m *Manager) GetOriginalID(liveID resid.ID) resid.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.originals[liveID]
}

// LiveOwner returns the original ID that first claimed the live handle.
func (m *Manager) LiveOwner(handle driver.Handle) (resid.ID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.owners[handle]
	return id, ok
}

// EraseLiveResource forgets the live object of id.
func (m *Manager) EraseLiveResource(id resid.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.live[id]
	if !ok {
		return
	}
	delete(m.live, id)
	delete(m.originals, l.id)
	if m.owners[l.handle] == id {
		delete(m.owners, l.handle)
	}
}

// ReplaceResource redirects every lookup of id to with.
func (m *Manager) ReplaceResource(id, with resid.ID) {
	if id == with {
		return
	}
	m.mu.Lock()
	m.replacements[id] = with
	m.mu.Unlock()
}

// HasReplacement returns true if id is redirected.
func (m *Manager) HasReplacement(id resid.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.replacements[id]
	return ok
}

// RemoveReplacement undoes ReplaceResource for id.
func (m *Manager) RemoveReplacement(id resid.ID) {
	m.mu.Lock()
	delete(m.replacements, id)
	m.mu.Unlock()
}

// LiveResources calls f for every live resource, in original ID order.
func (m *Manager) LiveResources(f func(id resid.ID, handle driver.Handle)) {
	m.mu.RLock()
	ids := make([]resid.ID, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		f(id, m.GetLiveHandle(id))
	}
}

// MarkResourceFrameReferenced records a frame reference to id.
func (m *Manager) MarkResourceFrameReferenced(id resid.ID, ref FrameRef) {
	m.mu.Lock()
	m.refs.Mark(id, ref)
	m.mu.Unlock()
}

// ReferencedResources returns a copy of the frame references.
func (m *Manager) ReferencedResources() Refs {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(Refs, len(m.refs))
	for id, ref := range m.refs {
		out[id] = ref
	}
	return out
}

// ClearReferencedResources forgets every frame reference.
func (m *Manager) ClearReferencedResources() {
	m.mu.Lock()
	m.refs = Refs{}
	m.mu.Unlock()
}
