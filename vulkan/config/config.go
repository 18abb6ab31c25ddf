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

// Package config contains build configuration flags and the runtime options
// of the capture layer and replayer.
package config

const (
	DebugPartialReplay = false // Logs every partial replay decision
	DebugChunkStrings  = true  // Captured chunks carry a readable rendering of their parameters
	StrictConsistency  = false // Panics on replay consistency violations instead of logging them
)
