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

	"github.com/gfxtrace/vkreplay/core/app"
	"github.com/gfxtrace/vkreplay/service/inspect"
)

type serveVerb struct {
	DriverFlags
	Listen string
}

func init() {
	app.AddVerb(&app.Verb{
		Name:      "serve",
		ShortHelp: "Serves a loaded trace over HTTP",
		Auto:      &serveVerb{},
	})
}

func (verb *serveVerb) BindFlags(f *flag.FlagSet) {
	verb.DriverFlags.bind(f)
	f.StringVar(&verb.Listen, "listen", "", "address to listen on (default from config)")
}

func (verb *serveVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	opts, err := options(ctx)
	if err != nil {
		return err
	}
	if verb.Listen == "" {
		verb.Listen = opts.Server.Listen
	}
	r, err := load(ctx, flags, verb.DriverFlags)
	if err != nil {
		return err
	}
	defer r.Shutdown(ctx)
	return inspect.New(ctx, r).Serve(ctx, verb.Listen)
}
