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

// Package chunk holds the serialized records that make up a trace.
package chunk

import (
	"sort"
	"sync/atomic"
)

// Chunk is one serialized API call or pseudo-event.
type Chunk struct {
	// Index is the global creation order of the chunk. Chunks recorded into
	// different per-object lists are merged back into capture order by Index.
	Index uint64
	Kind  Kind
	Data  []byte
	// Debug is a human readable rendering of the payload. It may be empty.
	Debug string
}

// List is an ordered list of chunks.
type List []*Chunk

// Sequence hands out chunk indices. It is safe for concurrent use.
type Sequence struct{ next uint64 }

// Next returns the next chunk index. The first index is 1.
func (s *Sequence) Next() uint64 { return atomic.AddUint64(&s.next, 1) }

// Merge combines lists into a single list sorted by Index. Chunks that
// appear in more than one list, such as those of a command buffer submitted
// twice, are kept once.
func Merge(lists ...List) List {
	seen := map[uint64]*Chunk{}
	for _, l := range lists {
		for _, c := range l {
			seen[c.Index] = c
		}
	}
	out := make(List, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Find returns the position of the first chunk of kind k, or -1.
func (l List) Find(k Kind) int {
	for i, c := range l {
		if c.Kind == k {
			return i
		}
	}
	return -1
}
