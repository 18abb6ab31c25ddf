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

package log

import "time"

// Message is a single log entry.
type Message struct {
	Text        string
	Time        time.Time
	Severity    Severity
	StopProcess bool
	Tag         string
	Process     string
	Trace       []string
	Values      Values
}

// Value is a named value bound to a Message.
type Value struct {
	Name  string
	Value interface{}
}

// Values is a list of values, sortable by name.
type Values []*Value

func (v Values) Len() int           { return len(v) }
func (v Values) Less(i, j int) bool { return v[i].Name < v[j].Name }
func (v Values) Swap(i, j int)      { v[i], v[j] = v[j], v[i] }
