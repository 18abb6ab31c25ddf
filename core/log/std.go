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

import (
	"io"
	"os"
	"strings"
	"time"

	charm "github.com/charmbracelet/log"
)

// Std returns a Handler that writes styled messages to stderr.
func Std() Handler {
	return Terminal(os.Stderr, "")
}

// Terminal returns a Handler that writes messages to w using a charm logger.
// Tags and traces are folded into the prefix, values become key-value pairs.
func Terminal(w io.Writer, prefix string) Handler {
	l := charm.NewWithOptions(w, charm.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          prefix,
		Level:           charm.DebugLevel,
	})
	return NewHandler(func(m *Message) {
		kv := make([]interface{}, 0, 2*len(m.Values)+4)
		if m.Tag != "" {
			kv = append(kv, "tag", m.Tag)
		}
		if len(m.Trace) > 0 {
			kv = append(kv, "trace", strings.Join(m.Trace, "<"))
		}
		for _, v := range m.Values {
			kv = append(kv, v.Name, v.Value)
		}
		l.Log(charmLevel(m.Severity), m.Text, kv...)
	}, nil)
}

func charmLevel(s Severity) charm.Level {
	switch s {
	case Verbose, Debug:
		return charm.DebugLevel
	case Info:
		return charm.InfoLevel
	case Warning:
		return charm.WarnLevel
	case Error:
		return charm.ErrorLevel
	default:
		return charm.FatalLevel
	}
}
