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

package control_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/service/control"
	"github.com/gfxtrace/vkreplay/vulkan/capture"
	"github.com/gfxtrace/vkreplay/vulkan/capture/capturetest"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
)

func TestTriggerAndNotify(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	srv := httptest.NewServer(control.New(ctx, s.Layer).Handler())
	defer srv.Close()

	client, err := control.Dial(ctx, srv.URL+"/control")
	if !assert.For(ctx, "dial").ThatError(err).Succeeded() {
		t.FailNow()
	}
	defer client.Close()

	ack, err := client.Trigger(1)
	assert.For(ctx, "trigger").ThatError(err).Succeeded()
	assert.For(ctx, "ack").That(ack.Type).Equals(control.TypeAck)
	assert.For(ctx, "pending").That(ack.Frames).Equals(1)

	cmd := s.Cmd()
	assert.For(ctx, "start").ThatError(s.Layer.QueuePresent(s.Queue)).Succeeded()
	assert.For(ctx, "capturing").That(s.Layer.State()).Equals(capture.WritingCapframe)
	s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 1) })
	s.Submit(cmd)
	assert.For(ctx, "end").ThatError(s.Layer.QueuePresent(s.Queue)).Succeeded()

	m, err := client.Next()
	assert.For(ctx, "next").ThatError(err).Succeeded()
	assert.For(ctx, "type").That(m.Type).Equals(control.TypeCapture)
	assert.For(ctx, "id").ThatString(m.ID).Equals(s.Output.Last().ID.String())
	assert.For(ctx, "frame").That(m.Frame).Equals(uint32(1))
	assert.For(ctx, "path").ThatString(m.Path).HasPrefix("memory:")
	assert.For(ctx, "chunks").ThatInteger(m.Chunks).Equals(len(s.Output.Last().Chunks))
}

func TestDialAddresses(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	srv := httptest.NewServer(control.New(ctx, s.Layer).Handler())
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	for _, addr := range []string{
		host,
		srv.URL,
		srv.URL + "/",
		srv.URL + "/control",
		"ws://" + host,
		"ws://" + host + "/control",
	} {
		client, err := control.Dial(ctx, addr)
		if !assert.For(ctx, "dial %v", addr).ThatError(err).Succeeded() {
			continue
		}
		client.Close()
	}
	_, err := control.Dial(ctx, "ftp://"+host)
	assert.For(ctx, "bad scheme").ThatError(err).Failed()
}

func TestTriggerDisarmed(t *testing.T) {
	ctx := log.Testing(t)
	s := capturetest.New(ctx)
	s.Layer.Disarm()
	srv := httptest.NewServer(control.New(ctx, s.Layer).Handler())
	defer srv.Close()

	client, err := control.Dial(ctx, strings.TrimPrefix(srv.URL, "http://"))
	if !assert.For(ctx, "dial").ThatError(err).Succeeded() {
		t.FailNow()
	}
	defer client.Close()

	m, err := client.Trigger(2)
	assert.For(ctx, "trigger").ThatError(err).HasMessage(capture.ErrNotArmed.Error())
	assert.For(ctx, "type").That(m.Type).Equals(control.TypeError)
	assert.For(ctx, "pending").ThatInteger(s.Layer.Pending()).Equals(0)
}
