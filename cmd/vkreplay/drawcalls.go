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
	"strings"

	"github.com/gfxtrace/vkreplay/core/app"
	"github.com/gfxtrace/vkreplay/vulkan/drawcall"
)

type drawcallsVerb struct {
	DriverFlags
	Events bool
}

func init() {
	app.AddVerb(&app.Verb{
		Name:      "drawcalls",
		ShortHelp: "Prints the drawcall tree of a trace file",
		Auto:      &drawcallsVerb{},
	})
}

func (verb *drawcallsVerb) BindFlags(f *flag.FlagSet) {
	verb.DriverFlags.bind(f)
	f.BoolVar(&verb.Events, "events", false, "also print the events of each drawcall")
}

func (verb *drawcallsVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	r, err := load(ctx, flags, verb.DriverFlags)
	if err != nil {
		return err
	}
	defer r.Shutdown(ctx)
	printDraws(r.GetFrameRecord().Drawcalls, 0, verb.Events)
	return nil
}

func printDraws(draws []drawcall.Description, depth int, events bool) {
	indent := strings.Repeat("  ", depth)
	for _, d := range draws {
		fmt.Fprintf(os.Stdout, "%s%4d %s [%v]\n", indent, d.EventID, d.Name, d.Flags)
		if events {
			for _, e := range d.Events {
				fmt.Fprintf(os.Stdout, "%s     - %d %s\n", indent, e.EventID, e.Desc)
			}
		}
		printDraws(d.Children, depth+1, events)
	}
}
