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

package serialize_test

import (
	"bytes"
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type mode uint8

type sample struct {
	Device  resid.ID
	Name    string
	Mode    mode
	Weights []float32
	Targets []resid.ID
	Blob    []byte
	Color   [4]float32
	Nested  struct{ A, B uint32 }
}

func (v *sample) serialise(s *serialize.Serializer) {
	s.ID("device", &v.Device)
	s.String("name", &v.Name)
	serialize.Value(s, "mode", &v.Mode)
	serialize.Array(s, "weights", &v.Weights, func(s *serialize.Serializer, f *float32) { s.F32("", f) })
	s.IDs("targets", &v.Targets)
	s.Bytes("blob", &v.Blob)
	serialize.Floats(s, "color", v.Color[:])
	s.Struct("nested", func(s *serialize.Serializer) {
		s.U32("a", &v.Nested.A)
		s.U32("b", &v.Nested.B)
	})
}

func TestSymmetricChunk(t *testing.T) {
	ctx := log.Testing(t)
	seq := &chunk.Sequence{}
	in := sample{
		Device:  7,
		Name:    "sampler",
		Mode:    3,
		Weights: []float32{0.5, 2},
		Targets: []resid.ID{1, 2, 3},
		Blob:    []byte{9, 8, 7},
		Color:   [4]float32{1, 0, 0, 1},
	}
	in.Nested.A, in.Nested.B = 10, 20

	w := serialize.NewWriter(seq, true)
	w.BeginChunk(chunk.CreateSampler)
	in.serialise(w)
	c := w.EndChunk()
	assert.For(ctx, "index").That(c.Index).Equals(uint64(1))
	assert.For(ctx, "debug").ThatString(c.Debug).Contains(`name: "sampler"`)

	out := sample{}
	r := serialize.NewReader(c)
	out.serialise(r)
	assert.For(ctx, "err").ThatError(r.Check()).Succeeded()
	assert.For(ctx, "decoded").That(out).DeepEquals(in)
	assert.For(ctx, "reader debug").ThatString(r.Debug()).Contains("targets[3]")
}

func TestTruncatedChunk(t *testing.T) {
	ctx := log.Testing(t)
	c := &chunk.Chunk{Kind: chunk.CmdDraw, Data: []byte{1, 0}}
	r := serialize.NewReader(c)
	var v uint32
	r.U32("vertexCount", &v)
	assert.For(ctx, "err").ThatError(r.Check()).Failed()
}

func testTrace() *serialize.Trace {
	return &serialize.Trace{
		ID:    uuid.New(),
		Frame: 42,
		Chunks: chunk.List{
			{Index: 1, Kind: chunk.CreateInstance, Data: []byte{1}},
			{Index: 2, Kind: chunk.CreateDevice},
			{Index: 5, Kind: chunk.CaptureBegin},
			{Index: 6, Kind: chunk.QueueWaitIdle, Debug: "queue: ResID_3\n"},
			{Index: 7, Kind: chunk.CaptureEnd},
		},
	}
}

func TestTraceRoundTrip(t *testing.T) {
	ctx := log.Testing(t)
	in := testTrace()
	buf := &bytes.Buffer{}
	assert.For(ctx, "write").ThatError(serialize.Write(buf, in)).Succeeded()
	out, err := serialize.Read(buf)
	assert.For(ctx, "read").ThatError(err).Succeeded()
	assert.For(ctx, "trace").That(out).DeepEquals(in)

	init, frame, err := out.Split()
	assert.For(ctx, "split").ThatError(err).Succeeded()
	assert.For(ctx, "init").ThatSlice(init).IsLength(2)
	assert.For(ctx, "frame").ThatSlice(frame).IsLength(3)
	assert.For(ctx, "frame start").That(frame[0].Kind).Equals(chunk.CaptureBegin)
}

func TestTraceCorruption(t *testing.T) {
	ctx := log.Testing(t)
	buf := &bytes.Buffer{}
	serialize.Write(buf, testTrace())
	data := buf.Bytes()

	_, err := serialize.Read(bytes.NewReader([]byte("NOPE")))
	assert.For(ctx, "magic").ThatError(err).Equals(serialize.ErrBadMagic)

	_, err = serialize.Read(bytes.NewReader(data[:len(data)-3]))
	assert.For(ctx, "short").ThatError(err).HasCause(serialize.ErrCorrupt)

	bad := append([]byte{}, data...)
	// The first chunk kind follows magic, version, uuid, frame and count.
	bad[4+4+16+4+4] = 0xff
	_, err = serialize.Read(bytes.NewReader(bad))
	assert.For(ctx, "kind").That(errors.Cause(err)).Equals(serialize.ErrUnknownKind)
}

func TestSplitNoFrame(t *testing.T) {
	ctx := log.Testing(t)
	tr := &serialize.Trace{Chunks: chunk.List{{Index: 1, Kind: chunk.CreateInstance}}}
	_, _, err := tr.Split()
	assert.For(ctx, "err").ThatError(err).Equals(serialize.ErrNoFrame)
}
