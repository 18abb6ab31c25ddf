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

package chunk_test

import (
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
)

func indices(l chunk.List) []uint64 {
	out := make([]uint64, len(l))
	for i, c := range l {
		out[i] = c.Index
	}
	return out
}

func TestMerge(t *testing.T) {
	ctx := log.Testing(t)
	shared := &chunk.Chunk{Index: 3, Kind: chunk.CmdDraw}
	frame := chunk.List{{Index: 2, Kind: chunk.QueueWaitIdle}, {Index: 7, Kind: chunk.QueueSubmit}}
	cmdA := chunk.List{{Index: 1, Kind: chunk.BeginCommandBuffer}, shared, {Index: 5, Kind: chunk.EndCommandBuffer}}
	cmdB := chunk.List{shared, {Index: 6, Kind: chunk.CmdDispatch}}
	got := chunk.Merge(frame, cmdA, cmdB)
	assert.For(ctx, "order").ThatSlice(indices(got)).Equals([]uint64{1, 2, 3, 5, 6, 7})
	assert.For(ctx, "find").ThatInteger(got.Find(chunk.QueueSubmit)).Equals(5)
	assert.For(ctx, "missing").ThatInteger(got.Find(chunk.CaptureEnd)).Equals(-1)
}

func TestKinds(t *testing.T) {
	ctx := log.Testing(t)
	for _, k := range chunk.Kinds() {
		assert.For(ctx, "%v valid", k).ThatBoolean(k.IsValid()).IsTrue()
		assert.For(ctx, "%v named", uint32(k)).ThatString(k.String()).DoesNotContain("Kind<")
	}
	assert.For(ctx, "unknown").ThatBoolean(chunk.Unknown.IsValid()).IsFalse()
	assert.For(ctx, "draw is command").ThatBoolean(chunk.CmdDraw.IsCommand()).IsTrue()
	assert.For(ctx, "submit is not").ThatBoolean(chunk.QueueSubmit.IsCommand()).IsFalse()
	assert.For(ctx, "begin is scope").ThatBoolean(chunk.BeginCommandBuffer.IsScope()).IsTrue()
	assert.For(ctx, "bogus").ThatString(chunk.Kind(1000).String()).Equals("Kind<1000>")
}
