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

// Package resid provides the identifiers used to name API objects in both
// the capture-time and the replay-time identity spaces.
package resid

import (
	"fmt"
	"sync/atomic"
)

// ID is an opaque, comparable identifier for a wrapped API object.
type ID uint64

// Null is the empty ID. No object is ever assigned it.
const Null = ID(0)

// ReplayBase is the first ID handed out for objects created during replay.
// Capture IDs are allocated from 1 upwards, so the two spaces never overlap.
const ReplayBase = ID(1 << 40)

// IsNull returns true if id is the empty ID.
func (id ID) IsNull() bool { return id == Null }

// IsLive returns true if id was minted in the replay identity space.
func (id ID) IsLive() bool { return id >= ReplayBase }

func (id ID) String() string {
	switch {
	case id == Null:
		return "ResID_Null"
	case id.IsLive():
		return fmt.Sprintf("LiveID_%d", uint64(id-ReplayBase))
	default:
		return fmt.Sprintf("ResID_%d", uint64(id))
	}
}

// Generator mints unique IDs. It is safe for concurrent use.
type Generator struct {
	next uint64
}

// NewGenerator returns a generator whose first ID is base, or 1 if base is
// Null.
func NewGenerator(base ID) *Generator {
	if base == Null {
		base = 1
	}
	return &Generator{next: uint64(base) - 1}
}

// New returns a fresh ID.
func (g *Generator) New() ID {
	return ID(atomic.AddUint64(&g.next, 1))
}
