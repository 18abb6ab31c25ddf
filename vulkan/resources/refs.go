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

import "github.com/gfxtrace/vkreplay/vulkan/resid"

// FrameRef is the way a resource was accessed inside a captured frame.
type FrameRef uint8

const (
	None FrameRef = iota
	Read
	Write
	// ReadBeforeWrite means the first access read the resource, so its
	// contents at the start of the frame matter even though it is later
	// overwritten.
	ReadBeforeWrite
)

func (r FrameRef) String() string {
	switch r {
	case None:
		return "None"
	case Read:
		return "Read"
	case Write:
		return "Write"
	case ReadBeforeWrite:
		return "ReadBeforeWrite"
	}
	return "FrameRef?"
}

// Combine returns the access kind after an access of kind next follows r.
func (r FrameRef) Combine(next FrameRef) FrameRef {
	switch r {
	case None:
		return next
	case Read:
		if next == Write || next == ReadBeforeWrite {
			return ReadBeforeWrite
		}
		return Read
	}
	// A resource written first never depends on its earlier contents.
	return r
}

// Refs is a set of frame references.
type Refs map[resid.ID]FrameRef

// Mark merges ref for id into the set.
func (r Refs) Mark(id resid.ID, ref FrameRef) {
	if id.IsNull() || ref == None {
		return
	}
	r[id] = r[id].Combine(ref)
}

// Merge folds every reference in o into r, in the order r then o.
func (r Refs) Merge(o Refs) {
	for id, ref := range o {
		r.Mark(id, ref)
	}
}
