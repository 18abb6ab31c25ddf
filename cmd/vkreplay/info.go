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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/gfxtrace/vkreplay/core/app"
	"github.com/gfxtrace/vkreplay/vulkan/calls"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
)

type infoVerb struct{}

func init() {
	app.AddVerb(&app.Verb{
		Name:      "info",
		ShortHelp: "Prints a summary of a trace file",
		Auto:      &infoVerb{},
	})
}

func (verb *infoVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	t, err := traceArg(ctx, flags)
	if err != nil {
		return err
	}
	init, frame, err := t.Split()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Capture:    %v\n", t.ID)
	fmt.Fprintf(os.Stdout, "Frame:      %d\n", t.Frame)
	fmt.Fprintf(os.Stdout, "Init:       %d chunks\n", len(init))
	fmt.Fprintf(os.Stdout, "Frame body: %d chunks\n", len(frame))
	if call, err := calls.Decode(frame[0]); err == nil {
		fmt.Fprintf(os.Stdout, "References: %d resources\n", len(call.(*calls.CaptureBegin).Refs))
	}

	counts := map[chunk.Kind]int{}
	for _, c := range t.Chunks {
		counts[c.Kind]++
	}
	kinds := make([]chunk.Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		fmt.Fprintf(os.Stdout, "  %-24v %d\n", k, counts[k])
	}
	return nil
}
