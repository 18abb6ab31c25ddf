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

package config

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Capture configures the capture layer.
type Capture struct {
	Armed       bool   `toml:"armed"`        // Start armed, capturing the next frame.
	Frames      uint32 `toml:"frames"`       // Frames captured per trigger.
	OutputDir   string `toml:"output_dir"`   // Directory traces are written to.
	TriggerFile string `toml:"trigger_file"` // Creating this file triggers a capture.
	Catalog     string `toml:"catalog"`      // Path of the sqlite capture catalog.
}

// Replay configures the replayer.
type Replay struct {
	Driver string `toml:"driver"` // "null" or "vulkan".
}

// Server configures the inspection and control server.
type Server struct {
	Listen string `toml:"listen"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Options is the full runtime configuration.
type Options struct {
	Capture Capture `toml:"capture"`
	Replay  Replay  `toml:"replay"`
	Server  Server  `toml:"server"`
	Log     Log     `toml:"log"`
}

// Default returns the default options.
func Default() Options {
	return Options{
		Capture: Capture{
			Frames:    1,
			OutputDir: "captures",
			Catalog:   "captures/catalog.db",
		},
		Replay: Replay{Driver: "null"},
		Server: Server{Listen: "localhost:8180"},
		Log:    Log{Level: "info"},
	}
}

// Load returns the default options overlaid with the TOML file at path.
// Unknown keys are an error.
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrap(err, "Reading config")
	}
	return Parse(data)
}

// Parse returns the default options overlaid with TOML data.
func Parse(data []byte) (Options, error) {
	opts := Default()
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(&opts); err != nil {
		return opts, errors.Wrap(err, "Parsing config")
	}
	if opts.Capture.Frames == 0 {
		opts.Capture.Frames = 1
	}
	switch opts.Replay.Driver {
	case "null", "vulkan":
	default:
		return opts, errors.Errorf("Unknown replay driver %q", opts.Replay.Driver)
	}
	return opts, nil
}

// Encode renders o as TOML.
func (o Options) Encode() ([]byte, error) {
	return toml.Marshal(o)
}
