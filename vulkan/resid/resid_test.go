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

package resid_test

import (
	"sync"
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/resid"
)

func TestGeneratorSpaces(t *testing.T) {
	ctx := log.Testing(t)
	capture := resid.NewGenerator(resid.Null)
	replay := resid.NewGenerator(resid.ReplayBase)
	c, r := capture.New(), replay.New()
	assert.For(ctx, "capture").That(c).Equals(resid.ID(1))
	assert.For(ctx, "replay").That(r).Equals(resid.ReplayBase)
	assert.For(ctx, "capture live").ThatBoolean(c.IsLive()).IsFalse()
	assert.For(ctx, "replay live").ThatBoolean(r.IsLive()).IsTrue()
	assert.For(ctx, "names").ThatString(c).Equals("ResID_1")
	assert.For(ctx, "null").ThatString(resid.Null).Equals("ResID_Null")
}

func TestGeneratorConcurrent(t *testing.T) {
	ctx := log.Testing(t)
	g := resid.NewGenerator(resid.Null)
	const workers, each = 8, 100
	ids := make(chan resid.ID, workers*each)
	wg := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				ids <- g.New()
			}
		}()
	}
	wg.Wait()
	close(ids)
	seen := map[resid.ID]bool{}
	for id := range ids {
		assert.For(ctx, "duplicate %v", id).ThatBoolean(seen[id]).IsFalse()
		seen[id] = true
	}
	assert.For(ctx, "count").ThatInteger(len(seen)).Equals(workers * each)
}
