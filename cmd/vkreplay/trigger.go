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

	"github.com/gfxtrace/vkreplay/core/app"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/service/control"
)

type triggerVerb struct {
	Addr   string
	Frames int
	Wait   bool
}

func init() {
	app.AddVerb(&app.Verb{
		Name:      "trigger",
		ShortHelp: "Asks a capturing process to capture frames",
		Auto:      &triggerVerb{},
	})
}

func (verb *triggerVerb) BindFlags(f *flag.FlagSet) {
	f.StringVar(&verb.Addr, "addr", "", "control address of the capturing process (default from config)")
	f.IntVar(&verb.Frames, "frames", 1, "number of frames to capture")
	f.BoolVar(&verb.Wait, "wait", true, "wait for the captures to be written")
}

func (verb *triggerVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	if verb.Addr == "" {
		opts, err := options(ctx)
		if err != nil {
			return err
		}
		verb.Addr = opts.Server.Listen
	}
	c, err := control.Dial(ctx, verb.Addr)
	if err != nil {
		return err
	}
	defer c.Close()
	ack, err := c.Trigger(verb.Frames)
	if err != nil {
		return log.Err(ctx, err, "Trigger refused")
	}
	log.I(ctx, "%d frame(s) pending", ack.Frames)
	for seen := 0; verb.Wait && seen < verb.Frames; {
		m, err := c.Next()
		if err != nil {
			return err
		}
		if m.Type == control.TypeCapture {
			fmt.Fprintf(os.Stdout, "%s  frame %d  %s\n", m.ID, m.Frame, m.Path)
			seen++
		}
	}
	return nil
}
