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

package drawcall_test

import (
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/drawcall"
)

func tree() *drawcall.TreeNode {
	root := drawcall.NewNode(drawcall.Description{})
	pass := root.Add(drawcall.Description{EventID: 1, DrawcallID: 1, Name: "pass", Flags: drawcall.PushMarker})
	pass.Add(drawcall.Description{
		EventID: 3, DrawcallID: 2, Name: "draw", Flags: drawcall.Drawcall,
		Events: []drawcall.APIEvent{{EventID: 2}, {EventID: 3}},
	})
	pass.Add(drawcall.Description{EventID: 4, DrawcallID: 3, Name: "draw", Flags: drawcall.Drawcall,
		Events: []drawcall.APIEvent{{EventID: 4}}})
	root.Add(drawcall.Description{EventID: 5, DrawcallID: 4, Name: "clear", Flags: drawcall.Clear,
		Events: []drawcall.APIEvent{{EventID: 5}}})
	return root
}

func TestCloneWithOffsets(t *testing.T) {
	ctx := log.Testing(t)
	root := tree()
	clone := root.CloneWithOffsets(10, 100)
	assert.For(ctx, "count").ThatInteger(clone.Count()).Equals(root.Count())

	draw := clone.Children[0].Children[0].Draw
	assert.For(ctx, "event").That(draw.EventID).Equals(uint32(13))
	assert.For(ctx, "drawcall").That(draw.DrawcallID).Equals(uint32(102))
	assert.For(ctx, "events").ThatSlice(draw.Events).Equals([]drawcall.APIEvent{{EventID: 12}, {EventID: 13}})

	orig := root.Children[0].Children[0].Draw
	assert.For(ctx, "original event").That(orig.EventID).Equals(uint32(3))
	assert.For(ctx, "original events").ThatSlice(orig.Events).Equals([]drawcall.APIEvent{{EventID: 2}, {EventID: 3}})
}

func TestBakeAndLink(t *testing.T) {
	ctx := log.Testing(t)
	draws := tree().Bake()
	assert.For(ctx, "top level").ThatSlice(draws).IsLength(2)
	assert.For(ctx, "nested").ThatSlice(draws[0].Children).IsLength(2)

	drawcall.Link(draws)
	first, second, clear := draws[0].Children[0], draws[0].Children[1], draws[1]
	assert.For(ctx, "parent").That(first.Parent).Equals(uint32(1))
	assert.For(ctx, "root parent").That(clear.Parent).Equals(uint32(0))
	assert.For(ctx, "first prev").That(first.Previous).Equals(uint32(0))
	assert.For(ctx, "first next").That(first.Next).Equals(uint32(4))
	assert.For(ctx, "second next").That(second.Next).Equals(uint32(5))
	assert.For(ctx, "clear prev").That(clear.Previous).Equals(uint32(4))

	index := drawcall.Index(draws)
	assert.For(ctx, "indexed").ThatInteger(len(index)).Equals(4)
	assert.For(ctx, "lookup").That(index[4].Name).Equals("draw")
}

func TestFlags(t *testing.T) {
	ctx := log.Testing(t)
	f := drawcall.Drawcall | drawcall.Indexed
	assert.For(ctx, "string").ThatString(f.String()).Equals("Drawcall|Indexed")
	assert.For(ctx, "drawcall").ThatBoolean(f.IsDrawcall()).IsTrue()
	assert.For(ctx, "action").ThatBoolean(f.IsAction()).IsTrue()
	assert.For(ctx, "marker").ThatBoolean(drawcall.PopMarker.IsMarker()).IsTrue()
	assert.For(ctx, "no flags").ThatString(drawcall.NoFlags.String()).Equals("NoFlags")
}
