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
	"github.com/gfxtrace/vkreplay/vulkan/replay"
)

type replayVerb struct {
	DriverFlags
	Start uint
	End   uint
	Type  string
}

func init() {
	app.AddVerb(&app.Verb{
		Name:      "replay",
		ShortHelp: "Replays a trace file up to an event",
		Auto:      &replayVerb{},
	})
}

func (verb *replayVerb) BindFlags(f *flag.FlagSet) {
	verb.DriverFlags.bind(f)
	f.UintVar(&verb.Start, "start", 0, "first event to replay, 0 for the whole frame")
	f.UintVar(&verb.End, "end", 0, "last event to replay, 0 for the end of the frame")
	f.StringVar(&verb.Type, "type", replay.Full.String(), "replay type: full, without or only")
}

func (verb *replayVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	t, err := replay.ParseReplayType(verb.Type)
	if err != nil {
		app.Usage(ctx, "%v", err)
		return nil
	}
	r, err := load(ctx, flags, verb.DriverFlags)
	if err != nil {
		return err
	}
	defer r.Shutdown(ctx)

	end := uint32(verb.End)
	if end == 0 {
		events := r.Events()
		if len(events) > 0 {
			end = events[len(events)-1].EventID
		}
	}
	if err := r.ReplayLog(ctx, uint32(verb.Start), end, t); err != nil {
		return log.Err(ctx, err, "Replay failed")
	}
	ev := r.GetEvent(end)
	fmt.Fprintf(os.Stdout, "Replayed [%d, %d] %v, stopped at %d: %s\n", verb.Start, end, t, ev.EventID, ev.Desc)
	if d := r.GetDrawcall(end); d != nil {
		fmt.Fprintf(os.Stdout, "Drawcall: %s [%v]\n", d.Name, d.Flags)
	}
	s := r.RenderState()
	fmt.Fprintf(os.Stdout, "Render pass %v (subpass %d, active %v), pipeline %v\n",
		s.RenderPass, s.Subpass, s.RenderPassActive, s.Graphics.Pipeline)
	if n := r.InternalErrors(); n > 0 {
		log.W(ctx, "%d internal errors during replay", n)
	}
	return nil
}
