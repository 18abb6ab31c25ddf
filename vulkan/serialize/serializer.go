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

// Package serialize implements the symmetric chunk serializer and the trace
// file format.
//
// The same Serializer methods drive both directions: when writing they
// encode the pointed-to value, when reading they overwrite it. A call
// description therefore needs a single Serialise method to be both encoded
// at capture time and decoded at replay time.
package serialize

import (
	"bytes"
	eb "encoding/binary"
	"fmt"
	"strings"

	"github.com/gfxtrace/vkreplay/core/data/binary"
	"github.com/gfxtrace/vkreplay/core/data/endian"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Mode is the direction a Serializer works in.
type Mode int

const (
	Writing Mode = iota
	Reading
)

// maxCount bounds any decoded array length.
const maxCount = 1 << 20

var order = eb.LittleEndian

// Serializer encodes or decodes the payload of a single chunk at a time.
type Serializer struct {
	mode  Mode
	kind  chunk.Kind
	seq   *chunk.Sequence
	buf   bytes.Buffer
	w     binary.Writer
	r     binary.Reader
	debug bool
	text  strings.Builder
	depth int
	last  string
}

// NewWriter returns a Serializer that encodes chunks. Chunk indices are taken
// from seq. If debug is true, each chunk carries a readable rendering of its
// payload.
func NewWriter(seq *chunk.Sequence, debug bool) *Serializer {
	s := &Serializer{mode: Writing, seq: seq, debug: debug}
	s.w = endian.Writer(&s.buf, order)
	return s
}

// NewReader returns a Serializer that decodes the payload of c.
func NewReader(c *chunk.Chunk) *Serializer {
	s := &Serializer{mode: Reading, kind: c.Kind, debug: true}
	s.r = endian.Reader(bytes.NewReader(c.Data), order)
	return s
}

// Reading returns true if the serializer is decoding.
func (s *Serializer) Reading() bool { return s.mode == Reading }

// Kind returns the kind of the chunk being processed.
func (s *Serializer) Kind() chunk.Kind { return s.kind }

// BeginChunk starts encoding a new chunk of the given kind.
func (s *Serializer) BeginChunk(kind chunk.Kind) {
	if s.mode != Writing {
		panic("BeginChunk on a reading serializer")
	}
	s.kind = kind
	s.buf.Reset()
	s.text.Reset()
	s.depth = 0
	s.w = endian.Writer(&s.buf, order)
}

// EndChunk finishes the current chunk and returns it.
func (s *Serializer) EndChunk() *chunk.Chunk {
	data := make([]byte, s.buf.Len())
	copy(data, s.buf.Bytes())
	s.last = s.text.String()
	return &chunk.Chunk{
		Index: s.seq.Next(),
		Kind:  s.kind,
		Data:  data,
		Debug: s.last,
	}
}

// Debug returns the readable rendering of the last chunk. When reading it
// covers everything decoded so far.
func (s *Serializer) Debug() string {
	if s.mode == Reading {
		return s.text.String()
	}
	return s.last
}

// Error returns the first encoding or decoding error.
func (s *Serializer) Error() error {
	if s.mode == Reading {
		return s.r.Error()
	}
	return s.w.Error()
}

// Fail stops further decoding with err.
func (s *Serializer) Fail(err error) {
	if s.mode == Reading {
		s.r.SetError(err)
	} else {
		s.w.SetError(err)
	}
}

func (s *Serializer) note(name string, v interface{}) {
	if !s.debug {
		return
	}
	s.text.WriteString(strings.Repeat("  ", s.depth))
	s.text.WriteString(name)
	if v != nil {
		fmt.Fprintf(&s.text, ": %v", v)
	}
	s.text.WriteByte('\n')
}

func (s *Serializer) U32(name string, v *uint32) {
	if s.Reading() {
		*v = s.r.Uint32()
	} else {
		s.w.Uint32(*v)
	}
	s.note(name, *v)
}

func (s *Serializer) I32(name string, v *int32) {
	if s.Reading() {
		*v = s.r.Int32()
	} else {
		s.w.Int32(*v)
	}
	s.note(name, *v)
}

func (s *Serializer) U64(name string, v *uint64) {
	if s.Reading() {
		*v = s.r.Uint64()
	} else {
		s.w.Uint64(*v)
	}
	s.note(name, *v)
}

func (s *Serializer) F32(name string, v *float32) {
	if s.Reading() {
		*v = s.r.Float32()
	} else {
		s.w.Float32(*v)
	}
	s.note(name, *v)
}

func (s *Serializer) Bool(name string, v *bool) {
	if s.Reading() {
		*v = s.r.Bool()
	} else {
		s.w.Bool(*v)
	}
	s.note(name, *v)
}

func (s *Serializer) String(name string, v *string) {
	if s.Reading() {
		*v = s.r.String()
	} else {
		s.w.String(*v)
	}
	s.note(name, fmt.Sprintf("%q", *v))
}

// ID serializes a resource ID in the capture identity space.
func (s *Serializer) ID(name string, v *resid.ID) {
	if s.Reading() {
		*v = resid.ID(s.r.Uint64())
	} else {
		s.w.Uint64(uint64(*v))
	}
	s.note(name, *v)
}

// IDs serializes a list of resource IDs.
func (s *Serializer) IDs(name string, v *[]resid.ID) {
	Array(s, name, v, func(s *Serializer, e *resid.ID) { s.ID("", e) })
}

// Bytes serializes a variable length buffer.
func (s *Serializer) Bytes(name string, v *[]byte) {
	if s.Reading() {
		n := binary.ReadCount(s.r, maxCount*64)
		*v = make([]byte, n)
		s.r.Data(*v)
	} else {
		s.w.Uint32(uint32(len(*v)))
		s.w.Data(*v)
	}
	s.note(name, fmt.Sprintf("<%d bytes>", len(*v)))
}

// Struct serializes a nested value inside its own debug scope.
func (s *Serializer) Struct(name string, f func(*Serializer)) {
	s.note(name, nil)
	s.depth++
	f(s)
	s.depth--
}

// Value serializes any integer typed value, such as an enum or flag set.
func Value[T constraints.Integer](s *Serializer, name string, v *T) {
	if s.Reading() {
		*v = T(s.r.Int64())
	} else {
		s.w.Int64(int64(*v))
	}
	s.note(name, *v)
}

// Floats serializes a fixed number of floats in place.
func Floats[T constraints.Float](s *Serializer, name string, v []T) {
	for i := range v {
		if s.Reading() {
			v[i] = T(s.r.Float64())
		} else {
			s.w.Float64(float64(v[i]))
		}
	}
	s.note(name, v)
}

// Array serializes a variable length list, using elem for each element.
func Array[T any](s *Serializer, name string, v *[]T, elem func(*Serializer, *T)) {
	var n uint32
	if s.Reading() {
		n = binary.ReadCount(s.r, maxCount)
		*v = make([]T, n)
	} else {
		n = uint32(len(*v))
		s.w.Uint32(n)
	}
	s.note(fmt.Sprintf("%s[%d]", name, n), nil)
	s.depth++
	for i := range *v {
		if s.Error() != nil {
			break
		}
		elem(s, &(*v)[i])
	}
	s.depth--
}

// Check returns an error naming the chunk kind if serialization failed.
func (s *Serializer) Check() error {
	if err := s.Error(); err != nil {
		return errors.Wrapf(err, "Serializing %v", s.kind)
	}
	return nil
}
