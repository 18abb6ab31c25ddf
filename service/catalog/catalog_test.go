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

package catalog_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/service/catalog"
	"github.com/gfxtrace/vkreplay/vulkan/capture"
	"github.com/gfxtrace/vkreplay/vulkan/capture/capturetest"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
	"github.com/google/uuid"
)

func TestRegisterListGet(t *testing.T) {
	ctx := log.Testing(t)
	c, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	assert.For(ctx, "open").ThatError(err).Succeeded()
	defer c.Close()

	base := time.Unix(1700000000, 0)
	first := capture.Capture{ID: uuid.New(), Frame: 3, Path: "a.vkrt", Chunks: 10, Time: base}
	second := capture.Capture{ID: uuid.New(), Frame: 9, Path: "b.vkrt", Chunks: 20, Time: base.Add(time.Second)}
	for _, cp := range []capture.Capture{first, second} {
		assert.For(ctx, "register %v", cp.Path).ThatError(c.Register(ctx, cp)).Succeeded()
	}

	list, err := c.List(ctx)
	assert.For(ctx, "list").ThatError(err).Succeeded()
	assert.For(ctx, "length").ThatSlice(list).IsLength(2)
	assert.For(ctx, "newest first").That(list[0].ID).Equals(second.ID)
	assert.For(ctx, "time").ThatBoolean(list[1].Time.Equal(base)).IsTrue()

	got, err := c.Get(ctx, first.ID)
	assert.For(ctx, "get").ThatError(err).Succeeded()
	assert.For(ctx, "frame").That(got.Frame).Equals(uint32(3))
	assert.For(ctx, "path").That(got.Path).Equals("a.vkrt")
	assert.For(ctx, "chunks").That(got.Chunks).Equals(10)

	_, err = c.Get(ctx, uuid.New())
	assert.For(ctx, "missing").ThatError(err).Equals(catalog.ErrNotFound)

	assert.For(ctx, "remove").ThatError(c.Remove(ctx, first.ID)).Succeeded()
	assert.For(ctx, "remove again").ThatError(c.Remove(ctx, first.ID)).Equals(catalog.ErrNotFound)
	list, _ = c.List(ctx)
	assert.For(ctx, "after remove").ThatSlice(list).IsLength(1)
}

func TestDirOutputRegisters(t *testing.T) {
	ctx := log.Testing(t)
	dir := t.TempDir()
	c, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	assert.For(ctx, "open").ThatError(err).Succeeded()
	defer c.Close()

	s := capturetest.New(ctx)
	tr := s.Capture(func() { s.WaitIdle(1) })
	out := capture.DirOutput{Dir: filepath.Join(dir, "traces"), Registrar: c}
	path, err := out.Write(ctx, tr)
	assert.For(ctx, "write").ThatError(err).Succeeded()

	got, err := c.Get(ctx, tr.ID)
	assert.For(ctx, "registered").ThatError(err).Succeeded()
	assert.For(ctx, "path").That(got.Path).Equals(path)
	assert.For(ctx, "chunks").That(got.Chunks).Equals(len(tr.Chunks))

	read, err := serialize.ReadFile(got.Path)
	assert.For(ctx, "read").ThatError(err).Succeeded()
	assert.For(ctx, "same trace").That(read.ID).Equals(tr.ID)
}
