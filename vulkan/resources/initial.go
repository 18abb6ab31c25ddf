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
	"sort"

	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
)

// InitialContents is the state of a resource at the start of a frame.
type InitialContents struct {
	Type driver.ObjectType
	Data []byte
}

// SetInitialContents stores the initial contents of id.
func (m *Manager) SetInitialContents(id resid.ID, ic InitialContents) {
	m.mu.Lock()
	m.initial[id] = ic
	m.mu.Unlock()
}

// GetInitialContents returns the initial contents of id.
func (m *Manager) GetInitialContents(id resid.ID) (InitialContents, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ic, ok := m.initial[id]
	return ic, ok
}

// ClearInitialContents forgets all stored initial contents.
func (m *Manager) ClearInitialContents() {
	m.mu.Lock()
	m.initial = map[resid.ID]InitialContents{}
	m.mu.Unlock()
}

func (m *Manager) sortedInitial() []resid.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]resid.ID, 0, len(m.initial))
	for id := range m.initial {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PrepareInitialContents calls prepare for every frame referenced resource
// with a record, in ID order. Resources that are written before being read
// are skipped. Contents prepare returns are stored.
func (m *Manager) PrepareInitialContents(prepare func(r *Record) (InitialContents, bool)) {
	refs := m.ReferencedResources()
	ids := make([]resid.ID, 0, len(refs))
	for id, ref := range refs {
		if ref != Write {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		r := m.GetResourceRecord(id)
		if r == nil {
			continue
		}
		if ic, ok := prepare(r); ok {
			m.SetInitialContents(id, ic)
		}
	}
}

// ApplyInitialContents calls apply for every stored initial contents, in ID
// order.
func (m *Manager) ApplyInitialContents(apply func(id resid.ID, ic InitialContents)) {
	for _, id := range m.sortedInitial() {
		ic, _ := m.GetInitialContents(id)
		apply(id, ic)
	}
}

// InitialContentIDs returns the IDs with stored initial contents, in order.
func (m *Manager) InitialContentIDs() []resid.ID { return m.sortedInitial() }
