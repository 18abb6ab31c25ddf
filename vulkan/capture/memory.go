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

	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
)

// memory is a device memory allocation known to the layer.
type memory struct {
	device driver.Handle
	handle driver.Handle
	size   uint64

	// The application's current mapping, if any.
	mapped []byte
	offset uint64
	// shadow is the mapping's contents as last recorded in the frame.
	shadow []byte
}

// Range is a span of bytes within a mapping.
type Range struct {
	Offset uint64
	Size   uint64
}

// DirtyRanges returns the spans where data differs from shadow. Spans
// separated by at most gap equal bytes are joined.
func DirtyRanges(shadow, data []byte, gap uint64) []Range {
	var out []Range
	n := uint64(len(data))
	if uint64(len(shadow)) < n {
		n = uint64(len(shadow))
	}
	for i := uint64(0); i < n; i++ {
		if shadow[i] == data[i] {
			continue
		}
		start := i
		end := i + 1
		for j := i + 1; j < n && j < end+gap+1; j++ {
			if shadow[j] != data[j] {
				end = j + 1
			}
		}
		out = append(out, Range{Offset: start, Size: end - start})
		i = end
	}
	if uint64(len(data)) > n {
		// Bytes without a shadow are always dirty.
		if len(out) > 0 && out[len(out)-1].Offset+out[len(out)-1].Size+gap >= n {
			last := &out[len(out)-1]
			last.Size = uint64(len(data)) - last.Offset
		} else {
			out = append(out, Range{Offset: n, Size: uint64(len(data)) - n})
		}
	}
	return out
}

// dirtyGap is the number of unchanged bytes tolerated inside one range.
const dirtyGap = 16

func (l *Layer) MapMemory(device, mem driver.Handle, offset, size uint64) ([]byte, error) {
	data, err := l.drv.MapMemory(device, mem, offset, size)
	if err != nil {
		return data, err
	}
	l.memMu.Lock()
	defer l.memMu.Unlock()
	if m, ok := l.memories[l.id(mem)]; ok {
		m.mapped, m.offset = data, offset
		if l.State() == WritingCapframe {
			m.shadow = append([]byte(nil), data...)
		}
	}
	return data, nil
}

// UnmapMemory records what the application changed in the mapping when a
// frame is being captured.
func (l *Layer) UnmapMemory(device, mem driver.Handle) {
	l.flushDirty(l.id(mem))
	l.memMu.Lock()
	if m, ok := l.memories[l.id(mem)]; ok {
		m.mapped, m.shadow = nil, nil
	}
	l.memMu.Unlock()
	l.drv.UnmapMemory(device, mem)
}

// FlushMappedMemory publishes the application's writes to a mapping. Host
// memory is coherent, so only the layer observes the flush.
func (l *Layer) FlushMappedMemory(device, mem driver.Handle) error {
	id := l.id(mem)
	l.memMu.Lock()
	_, ok := l.memories[id]
	l.memMu.Unlock()
	if !ok {
		return ErrNotMapped
	}
	l.flushDirty(id)
	return nil
}

// flushDirty serializes the changed spans of a mapping into the frame and
// brings the shadow up to date.
func (l *Layer) flushDirty(id resid.ID) {
	if l.State() != WritingCapframe {
		return
	}
	l.memMu.Lock()
	m, ok := l.memories[id]
	if !ok || m.mapped == nil {
		l.memMu.Unlock()
		return
	}
	if m.shadow == nil {
		m.shadow = make([]byte, len(m.mapped))
	}
	var writes []*calls.FlushMappedMemory
	for _, r := range DirtyRanges(m.shadow, m.mapped, dirtyGap) {
		data := append([]byte(nil), m.mapped[r.Offset:r.Offset+r.Size]...)
		writes = append(writes, &calls.FlushMappedMemory{
			Device: l.id(m.device),
			Memory: id,
			Offset: m.offset + r.Offset,
			Data:   data,
		})
	}
	m.shadow = append(m.shadow[:0], m.mapped...)
	l.memMu.Unlock()
	for _, w := range writes {
		l.recordFrame(w, nil)
	}
}

// snapshotMemory keeps the contents of every allocation at the start of the
// frame, and the shadow of every live mapping.
func (l *Layer) snapshotMemory(ctx context.Context) {
	l.memMu.Lock()
	defer l.memMu.Unlock()
	l.snapshots = make(map[resid.ID][]byte, len(l.memories))
	for id, m := range l.memories {
		data := make([]byte, m.size)
		if m.mapped != nil {
			copy(data[m.offset:], m.mapped)
			m.shadow = append([]byte(nil), m.mapped...)
		} else {
			mapped, err := l.drv.MapMemory(m.device, m.handle, 0, m.size)
			if err != nil {
				log.W(ctx, "Could not read contents of %v: %v", id, err)
				continue
			}
			copy(data, mapped)
			l.drv.UnmapMemory(m.device, m.handle)
		}
		l.snapshots[id] = data
	}
}

func (l *Layer) dropSnapshots() {
	l.memMu.Lock()
	defer l.memMu.Unlock()
	l.snapshots = nil
	for _, m := range l.memories {
		m.shadow = nil
	}
}
