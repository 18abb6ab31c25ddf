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

	"github.com/gfxtrace/vkreplay/core/app"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/config"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/driver/null"
	"github.com/gfxtrace/vkreplay/vulkan/driver/vk"
	"github.com/gfxtrace/vkreplay/vulkan/replay"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

// DriverFlags selects the driver traces are replayed on.
type DriverFlags struct {
	Driver string
}

func (f *DriverFlags) bind(set *flag.FlagSet) {
	set.StringVar(&f.Driver, "driver", "", "driver to replay on: null or vulkan (default from config)")
}

func options(ctx context.Context) (config.Options, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	opts, err := config.Load(*configPath)
	if err != nil {
		return opts, log.Err(ctx, err, "Loading options")
	}
	return opts, nil
}

func newDriver(ctx context.Context, name string) (driver.Driver, error) {
	if name == "" {
		opts, err := options(ctx)
		if err != nil {
			return nil, err
		}
		name = opts.Replay.Driver
	}
	switch name {
	case "null":
		return null.New(), nil
	case "vulkan":
		d, err := vk.New(ctx)
		if err != nil {
			return nil, log.Err(ctx, err, "Initializing Vulkan")
		}
		return d, nil
	default:
		return nil, fmt.Errorf("Unknown driver %q", name)
	}
}

// traceArg reads the single trace file named on the command line.
func traceArg(ctx context.Context, flags flag.FlagSet) (*serialize.Trace, error) {
	if flags.NArg() != 1 {
		app.Usage(ctx, "Exactly one trace file expected, got %d", flags.NArg())
		return nil, nil
	}
	t, err := serialize.ReadFile(flags.Arg(0))
	if err != nil {
		return nil, log.Err(ctx, err, "Failed to read the trace")
	}
	return t, nil
}

// load reads the trace named on the command line and loads it for replay.
func load(ctx context.Context, flags flag.FlagSet, d DriverFlags) (*replay.Replayer, error) {
	t, err := traceArg(ctx, flags)
	if err != nil {
		return nil, err
	}
	drv, err := newDriver(ctx, d.Driver)
	if err != nil {
		return nil, err
	}
	r := replay.New(ctx, drv)
	if err := r.Load(ctx, t); err != nil {
		r.Shutdown(ctx)
		return nil, log.Err(ctx, err, "Failed to load the trace")
	}
	return r, nil
}
