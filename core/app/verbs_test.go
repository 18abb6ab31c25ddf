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

package app

import (
	"context"
	"flag"
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
)

type countVerb struct {
	end  int
	args []string
}

func (v *countVerb) BindFlags(f *flag.FlagSet) { f.IntVar(&v.end, "end", 0, "end event") }

func (v *countVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	v.args = flags.Args()
	return nil
}

func TestInvokeVerb(t *testing.T) {
	ctx := log.Testing(t)
	root := Verb{}
	drawcalls := &countVerb{}
	root.Add(&Verb{Name: "drawcalls", Auto: drawcalls})
	root.Add(&Verb{Name: "replay", Auto: &countVerb{}})

	err := root.Invoke(ctx, []string{"draw", "-end", "12", "frame.vkrt"})
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "end").That(drawcalls.end).Equals(12)
	assert.For(ctx, "args").ThatSlice(drawcalls.args).Equals([]string{"frame.vkrt"})
}

func TestDuplicateVerbPanics(t *testing.T) {
	ctx := log.Testing(t)
	root := Verb{}
	root.Add(&Verb{Name: "info", Auto: &countVerb{}})
	defer func() {
		assert.For(ctx, "panic").That(recover()).IsNotNil()
	}()
	root.Add(&Verb{Name: "info", Auto: &countVerb{}})
}
