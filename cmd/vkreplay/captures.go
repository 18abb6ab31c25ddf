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
	"github.com/gfxtrace/vkreplay/service/catalog"
)

type capturesVerb struct {
	Catalog string
}

func init() {
	app.AddVerb(&app.Verb{
		Name:      "captures",
		ShortHelp: "Lists the captures in a catalog",
		Auto:      &capturesVerb{},
	})
}

func (verb *capturesVerb) BindFlags(f *flag.FlagSet) {
	f.StringVar(&verb.Catalog, "catalog", "", "path of the capture catalog (default from config)")
}

func (verb *capturesVerb) Run(ctx context.Context, flags flag.FlagSet) error {
	if verb.Catalog == "" {
		opts, err := options(ctx)
		if err != nil {
			return err
		}
		verb.Catalog = opts.Capture.Catalog
	}
	c, err := catalog.Open(verb.Catalog)
	if err != nil {
		return log.Err(ctx, err, "Opening catalog")
	}
	defer c.Close()
	list, err := c.List(ctx)
	if err != nil {
		return err
	}
	for _, cp := range list {
		fmt.Fprintf(os.Stdout, "%v  frame %-6d %6d chunks  %s  %s\n",
			cp.ID, cp.Frame, cp.Chunks, cp.Time.Format("2006-01-02 15:04:05"), cp.Path)
	}
	return nil
}
