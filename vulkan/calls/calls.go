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

// Package calls is the table of intercepted entry points. Each entry point
// has one parameter struct whose Serialise method both encodes the call at
// capture time and decodes it at replay time, so the argument order on the
// wire is defined in exactly one place.
package calls

import (
	"fmt"

	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/resources"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
	"github.com/pkg/errors"
)

const ErrUnknownKind = fault.Const("No call registered for chunk kind")

// Call is the parameter list of one intercepted entry point.
type Call interface {
	// Kind returns the chunk kind the call serializes as.
	Kind() chunk.Kind
	// Serialise encodes or decodes every parameter, in argument order.
	Serialise(s *serialize.Serializer)
}

// Ref is a direct reference from a call to a resource.
type Ref struct {
	ID     resid.ID
	Access resources.FrameRef
}

// Referencer is implemented by calls that touch resources inside a frame.
type Referencer interface {
	Refs() []Ref
}

// CmdCall is implemented by calls that build a command buffer.
type CmdCall interface {
	Call
	CommandBuffer() resid.ID
}

var registry = map[chunk.Kind]func() Call{}

// register adds a constructor for a call kind.
// It is illegal to register the same kind twice.
func register(f func() Call) {
	k := f().Kind()
	if _, present := registry[k]; present {
		panic(fmt.Errorf("Call %v registered more than once", k))
	}
	registry[k] = f
}

// New returns an empty call of the given kind, ready to be decoded into.
func New(kind chunk.Kind) (Call, error) {
	f, ok := registry[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "%v", kind)
	}
	return f(), nil
}

// Encode serializes c as a new chunk.
func Encode(s *serialize.Serializer, c Call) (*chunk.Chunk, error) {
	s.BeginChunk(c.Kind())
	c.Serialise(s)
	out := s.EndChunk()
	return out, s.Check()
}

// Decode deserializes the call held in c.
func Decode(c *chunk.Chunk) (Call, error) {
	call, err := New(c.Kind)
	if err != nil {
		return nil, err
	}
	s := serialize.NewReader(c)
	call.Serialise(s)
	if err := s.Check(); err != nil {
		return nil, err
	}
	return call, nil
}

func reads(ids ...resid.ID) []Ref {
	out := make([]Ref, 0, len(ids))
	for _, id := range ids {
		if !id.IsNull() {
			out = append(out, Ref{id, resources.Read})
		}
	}
	return out
}

func writes(ids ...resid.ID) []Ref {
	out := make([]Ref, 0, len(ids))
	for _, id := range ids {
		if !id.IsNull() {
			out = append(out, Ref{id, resources.Write})
		}
	}
	return out
}
