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

package log_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/core/log"
)

var testClock log.Clock

func init() {
	t, err := time.Parse("Mon Jan _2 15:04:05.999 2006", "Mon Jan 22 12:34:56.789 2000")
	if err != nil {
		panic(err)
	}
	testClock = log.FixedClock(t)
}

type testMessage struct {
	msg      string
	args     []interface{}
	values   log.V
	severity log.Severity
	tag      string

	raw      string
	brief    string
	normal   string
	detailed string
}

func (m testMessage) send(h log.Handler) {
	ctx := context.Background()
	ctx = log.PutHandler(ctx, h)
	ctx = log.PutTag(ctx, m.tag)
	ctx = log.PutClock(ctx, testClock)
	ctx = m.values.Bind(ctx)
	log.From(ctx).Logf(m.severity, false, m.msg, m.args...)
}

var testMessages = []testMessage{
	{
		msg:      "plain warning",
		severity: log.Warning,

		raw:      "plain warning",
		brief:    "W: plain warning",
		normal:   "12:34:56.789 W: plain warning",
		detailed: "12:34:56.789 Warning: plain warning",
	}, {
		msg:      "info with values",
		severity: log.Info,
		values:   log.V{"cat": "meow", "dog": "woof"},

		raw:      "info with values",
		brief:    "I: info with values",
		normal:   "12:34:56.789 I: info with values",
		detailed: "12:34:56.789 Info: info with values \n  cat: meow\n  dog: woof",
	}, {
		msg:      "chunk %d",
		args:     []interface{}{42},
		severity: log.Error,
		tag:      "replay",

		raw:      "chunk 42",
		brief:    "E: chunk 42",
		normal:   "12:34:56.789 E: [replay] chunk 42",
		detailed: "12:34:56.789 Error: [replay] chunk 42",
	},
}

func TestStyles(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range testMessages {
		for _, s := range []struct {
			style    log.Style
			expected string
		}{
			{log.Raw, test.raw},
			{log.Brief, test.brief},
			{log.Normal, test.normal},
			{log.Detailed, test.detailed},
		} {
			w, buf := log.Buffer()
			test.send(s.style.Handler(w))
			got := strings.TrimRight(buf.String(), "\n")
			assert.For(ctx, "%s(%s)", s.style.Name, test.msg).ThatString(got).Equals(s.expected)
		}
	}
}

type messages []*log.Message

func (l *messages) Handle(m *log.Message) { *l = append(*l, m) }
func (l *messages) Close()                {}

func TestBroadcasterListen(t *testing.T) {
	ctx := log.Testing(t)
	b := log.Broadcast()

	b.Handle(&log.Message{})

	p1 := messages{}
	b.Listen(&p1)
	b.Handle(&log.Message{})
	assert.For(ctx, "p1").ThatSlice(p1).IsNotEmpty()

	p2 := messages{}
	unlisten := b.Listen(&p2)
	unlisten()
	b.Handle(&log.Message{})
	assert.For(ctx, "p2").ThatSlice(p2).IsEmpty()
}

func TestSeverityFilter(t *testing.T) {
	ctx := log.Testing(t)
	got := messages{}
	lctx := log.PutHandler(context.Background(), &got)
	lctx = log.PutFilter(lctx, log.SeverityFilter(log.Warning))
	log.D(lctx, "dropped")
	log.I(lctx, "dropped")
	log.W(lctx, "kept")
	log.E(lctx, "kept")
	assert.For(ctx, "messages").ThatSlice(got).IsLength(2)
}

func TestValuesShadow(t *testing.T) {
	ctx := log.Testing(t)
	got := messages{}
	lctx := log.PutHandler(context.Background(), &got)
	lctx = log.V{"eid": 1, "kind": "draw"}.Bind(lctx)
	lctx = log.V{"eid": 2}.Bind(lctx)
	log.I(lctx, "x")
	assert.For(ctx, "values").ThatSlice(got[0].Values).IsLength(2)
	assert.For(ctx, "eid").That(got[0].Values[0].Value).Equals(2)
}

func TestErrCause(t *testing.T) {
	ctx := log.Testing(t)
	cause := fault.Const("boom")
	err := log.Err(context.Background(), cause, "wrapped")
	assert.For(ctx, "err").ThatError(err).HasCause(cause)
}

func TestParseSeverity(t *testing.T) {
	ctx := log.Testing(t)
	s, err := log.ParseSeverity("warning")
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "severity").That(s).Equals(log.Warning)
	_, err = log.ParseSeverity("loud")
	assert.For(ctx, "err").ThatError(err).Failed()
}

func TestTerminal(t *testing.T) {
	ctx := log.Testing(t)
	buf := &bytes.Buffer{}
	lctx := log.PutHandler(context.Background(), log.Terminal(buf, "vk"))
	lctx = log.V{"chunk": 7}.Bind(lctx)
	log.W(lctx, "not implemented")
	out := buf.String()
	assert.For(ctx, "text").ThatString(out).Contains("not implemented")
	assert.For(ctx, "value").ThatString(out).Contains("chunk=7")
}
