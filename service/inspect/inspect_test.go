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

package inspect_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/service/inspect"
	"github.com/gfxtrace/vkreplay/vulkan/capture/capturetest"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/gfxtrace/vkreplay/vulkan/drawcall"
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/driver/null"
	"github.com/gfxtrace/vkreplay/vulkan/replay"
)

func newServer(ctx context.Context) (*inspect.Server, *capturetest.Scene) {
	s := capturetest.New(ctx)
	cmd := s.Cmd()
	tr := s.Capture(func() {
		s.Record(cmd, func(cmd driver.Handle) { s.Pass(cmd, 2) })
		s.Submit(cmd)
	})
	r := replay.New(ctx, null.New())
	assert.For(ctx, "load").ThatError(r.Load(ctx, tr)).Succeeded()
	return inspect.New(ctx, r), s
}

func do(srv *inspect.Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(ctx context.Context, rec *httptest.ResponseRecorder, out interface{}) {
	assert.For(ctx, "json").ThatError(json.Unmarshal(rec.Body.Bytes(), out)).Succeeded()
}

func TestFrame(t *testing.T) {
	ctx := log.Testing(t)
	srv, _ := newServer(ctx)
	rec := do(srv, http.MethodGet, "/frame", "")
	assert.For(ctx, "status").That(rec.Code).Equals(http.StatusOK)
	var f inspect.Frame
	decode(ctx, rec, &f)
	// Submit, begin label, BRP, BP, 2 draws, ERP, end label, present.
	assert.For(ctx, "events").ThatInteger(f.Events).Equals(9)
	assert.For(ctx, "top level").ThatSlice(f.Drawcalls).IsLength(7)
	assert.For(ctx, "trace").ThatString(f.Trace).NotEquals("")
}

func TestEventsAndDrawcalls(t *testing.T) {
	ctx := log.Testing(t)
	srv, _ := newServer(ctx)
	for _, test := range []struct {
		path   string
		status int
	}{
		{"/events/1", http.StatusOK},
		{"/events/400", http.StatusNotFound},
		{"/events/x", http.StatusBadRequest},
		{"/drawcalls/5", http.StatusOK},
		{"/drawcalls/4", http.StatusNotFound},
		{"/drawcalls/-1", http.StatusBadRequest},
	} {
		rec := do(srv, http.MethodGet, test.path, "")
		assert.For(ctx, "%s", test.path).That(rec.Code).Equals(test.status)
	}

	var ev drawcall.APIEvent
	decode(ctx, do(srv, http.MethodGet, "/events/1", ""), &ev)
	assert.For(ctx, "submit").That(ev.Kind).Equals(chunk.QueueSubmit)

	var d drawcall.Description
	decode(ctx, do(srv, http.MethodGet, "/drawcalls/5", ""), &d)
	assert.For(ctx, "name").ThatString(d.Name).Equals("vkCmdDraw(3, 1)")
	assert.For(ctx, "next").That(d.Next).Equals(uint32(6))
}

func TestReplay(t *testing.T) {
	ctx := log.Testing(t)
	srv, s := newServer(ctx)
	rec := do(srv, http.MethodPost, "/replay", `{"start":0,"end":5,"type":"full"}`)
	assert.For(ctx, "status").That(rec.Code).Equals(http.StatusOK)
	var res inspect.ReplayResult
	decode(ctx, rec, &res)
	assert.For(ctx, "event").That(res.Event).Equals(uint32(5))
	assert.For(ctx, "internal errors").ThatInteger(res.InternalErrors).Equals(0)
	assert.For(ctx, "pipeline").That(res.State.Graphics.Pipeline).Equals(s.Layer.Resources().WrapperID(s.Pipeline))

	var state replay.RenderState
	decode(ctx, do(srv, http.MethodGet, "/state", ""), &state)
	assert.For(ctx, "state").That(state.RenderPass).Equals(s.Layer.Resources().WrapperID(s.RenderPass))

	for _, body := range []string{`{"end":5,"type":"sideways"}`, `{"start":6,"end":5}`, `{`} {
		rec := do(srv, http.MethodPost, "/replay", body)
		assert.For(ctx, "%s", body).That(rec.Code).Equals(http.StatusBadRequest)
	}
}
