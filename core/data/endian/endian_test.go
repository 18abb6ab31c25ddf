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

package endian_test

import (
	"bytes"
	eb "encoding/binary"
	"io"
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/data/endian"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/pkg/errors"
)

func TestPrimitives(t *testing.T) {
	ctx := log.Testing(t)
	buf := &bytes.Buffer{}
	w := endian.Writer(buf, eb.LittleEndian)
	w.Bool(true)
	w.Uint32(0xdeadbeef)
	w.Int64(-3)
	w.Float32(1.5)
	w.String("vkCmdDraw")
	w.String("")
	assert.For(ctx, "write err").ThatError(w.Error()).Succeeded()
	assert.For(ctx, "le").That(buf.Bytes()[1]).Equals(byte(0xef))

	r := endian.Reader(bytes.NewReader(buf.Bytes()), eb.LittleEndian)
	assert.For(ctx, "bool").That(r.Bool()).Equals(true)
	assert.For(ctx, "u32").That(r.Uint32()).Equals(uint32(0xdeadbeef))
	assert.For(ctx, "i64").That(r.Int64()).Equals(int64(-3))
	assert.For(ctx, "f32").That(r.Float32()).Equals(float32(1.5))
	assert.For(ctx, "string").That(r.String()).Equals("vkCmdDraw")
	assert.For(ctx, "empty").That(r.String()).Equals("")
	assert.For(ctx, "read err").ThatError(r.Error()).Succeeded()
}

func TestShortRead(t *testing.T) {
	ctx := log.Testing(t)
	r := endian.Reader(bytes.NewReader([]byte{1, 2}), eb.LittleEndian)
	assert.For(ctx, "u32").That(r.Uint32()).Equals(uint32(0))
	assert.For(ctx, "err").ThatError(errors.Cause(r.Error())).Equals(io.ErrUnexpectedEOF)
	assert.For(ctx, "sticky").That(r.Uint64()).Equals(uint64(0))
}

func TestHugeString(t *testing.T) {
	ctx := log.Testing(t)
	r := endian.Reader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}), eb.LittleEndian)
	assert.For(ctx, "s").That(r.String()).Equals("")
	assert.For(ctx, "err").ThatError(r.Error()).Failed()
}
