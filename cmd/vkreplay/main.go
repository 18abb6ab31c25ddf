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

// The vkreplay command inspects and replays captured Vulkan frames.
package main

import (
	"flag"

	"github.com/gfxtrace/vkreplay/core/app"
)

var configPath = flag.String("config", "", "path of a TOML options file")

func main() {
	app.ShortHelp = "vkreplay inspects and replays captured Vulkan frames"
	app.Run(app.VerbMain)
}
