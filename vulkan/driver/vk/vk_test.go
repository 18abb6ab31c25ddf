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

package vk

import (
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	vk "github.com/goki/vulkan"
)

func TestMarkersAreDropped(t *testing.T) {
	ctx := log.Testing(t)
	d := &Driver{ctx: ctx}
	d.CmdDebugMarkerBegin(0x10, "shadows", [4]float32{1, 0, 0, 1})
	d.CmdDebugMarkerInsert(0x10, "note", [4]float32{})
	d.CmdDebugMarkerEnd(0x10)
	assert.For(ctx, "objects").That(len(d.objects)).Equals(0)
}

func TestConversions(t *testing.T) {
	ctx := log.Testing(t)
	assert.For(ctx, "string").ThatString(safeString("main")).Equals("main\x00")
	assert.For(ctx, "strings").ThatSlice(safeStrings([]string{"a", "b"})).Equals([]string{"a\x00", "b\x00"})
	assert.For(ctx, "true").That(boolean(true)).Equals(vk.Bool32(vk.True))
	assert.For(ctx, "false").That(boolean(false)).Equals(vk.Bool32(vk.False))
	assert.For(ctx, "default samples").That(samples(0)).Equals(vk.SampleCount1Bit)
	assert.For(ctx, "samples").That(samples(4)).Equals(vk.SampleCountFlagBits(4))
}
