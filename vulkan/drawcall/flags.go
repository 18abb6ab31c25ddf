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

package drawcall

// Flags is a bitfield describing characteristics of a drawcall.
type Flags uint32

const (
	NoFlags Flags = 0
	Clear   Flags = 1 << (iota - 1)
	Drawcall
	Dispatch
	Copy
	Resolve
	SetMarker
	PushMarker
	PopMarker
	PassBoundary
	BeginPass
	EndPass
	APICalls
	Present
	Indexed
	Instanced
)

var flagNames = []string{
	"Clear", "Drawcall", "Dispatch", "Copy", "Resolve", "SetMarker",
	"PushMarker", "PopMarker", "PassBoundary", "BeginPass", "EndPass",
	"APICalls", "Present", "Indexed", "Instanced",
}

func (f Flags) String() string {
	if f == NoFlags {
		return "NoFlags"
	}
	out := ""
	for i, name := range flagNames {
		if f&(1<<i) != 0 {
			if out != "" {
				out += "|"
			}
			out += name
		}
	}
	return out
}

// IsDrawcall returns true if the drawcall rasterizes.
func (f Flags) IsDrawcall() bool { return f&Drawcall != 0 }

// IsDispatch returns true if the drawcall dispatches compute work.
func (f Flags) IsDispatch() bool { return f&Dispatch != 0 }

// IsMarker returns true if the node only structures the tree.
func (f Flags) IsMarker() bool { return f&(SetMarker|PushMarker|PopMarker) != 0 }

// IsPushMarker returns true if the node opens a nested group.
func (f Flags) IsPushMarker() bool { return f&PushMarker != 0 }

// IsPopMarker returns true if the node closes the innermost group.
func (f Flags) IsPopMarker() bool { return f&PopMarker != 0 }

// IsAction returns true if the drawcall does work on the GPU a user would
// want to inspect the result of.
func (f Flags) IsAction() bool {
	return f&(Clear|Drawcall|Dispatch|Copy|Resolve|Present) != 0
}
