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
	"path/filepath"
	"time"

	"github.com/gfxtrace/vkreplay/core/app"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/service/catalog"
	"github.com/gfxtrace/vkreplay/service/control"
	"github.com/gfxtrace/vkreplay/service/trigger"
	"github.com/gfxtrace/vkreplay/vulkan/capture"
	"github.com/gfxtrace/vkreplay/vulkan/capture/capturetest"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
)

type demoVerb struct {
	DriverFlags
	Frames   int
	Interval time.Duration
	Draws    int
}

func init() {
	app.AddVerb(&app.Verb{
		Name:      "demo",
		ShortHelp: "Runs a synthetic application under the capture layer",
		Auto:      &demoVerb{},
	})
}

func (verb *demoVerb) BindFlags(f *flag.FlagSet) {
	verb.DriverFlags.bind(f)
	f.IntVar(&verb.Frames, "frames", 0, "frames to render, 0 to run until interrupted")
	f.DurationVar(&verb.Interval, "interval", 100*time.Millisecond, "time between frames")
	f.IntVar(&verb.Draws, "draws", 3, "draws per frame")
}

func (verb *demoVerb) Run(ctx context.Context, flags flag.FlagSet) (err error) {
	opts, err := options(ctx)
	if err != nil {
		return err
	}
	drv, err := newDriver(ctx, verb.Driver)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Capture.Catalog), 0755); err != nil {
		return err
	}
	cat, err := catalog.Open(opts.Capture.Catalog)
	if err != nil {
		return log.Err(ctx, err, "Opening catalog")
	}
	defer cat.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Demo application failed: %v", r)
		}
	}()
	// The layer is always armed so later triggers have the creation history.
	s := capturetest.Build(ctx, drv, capture.Options{
		Armed:  true,
		Output: capture.DirOutput{Dir: opts.Capture.OutputDir, Registrar: cat},
	})
	l := s.Layer
	if opts.Capture.Armed {
		l.TriggerCapture(int(opts.Capture.Frames))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := control.New(ctx, l).Serve(ctx, opts.Server.Listen); err != nil {
			log.E(ctx, "Control server: %v", err)
		}
	}()
	if opts.Capture.TriggerFile != "" {
		go trigger.Watch(ctx, opts.Capture.TriggerFile, func(ctx context.Context) {
			if err := l.TriggerCapture(int(opts.Capture.Frames)); err != nil {
				log.W(ctx, "Trigger ignored: %v", err)
			}
		})
	}

	cmd := s.Cmd()
	tick := time.NewTicker(verb.Interval)
	defer tick.Stop()
	for frame := 0; verb.Frames == 0 || frame < verb.Frames; frame++ {
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, verb.Draws) })
		s.Submit(cmd)
		if err := l.QueuePresent(s.Queue); err != nil {
			return log.Err(ctx, err, "Presenting")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
	return nil
}
