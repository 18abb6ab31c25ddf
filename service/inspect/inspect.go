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

// Package inspect serves a read-only HTTP view of a loaded replay, plus an
// endpoint to move the replay to another event.
package inspect

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/drawcall"
	"github.com/gfxtrace/vkreplay/vulkan/replay"
	"github.com/labstack/echo/v4"
)

// Server is the query surface of one replayer. Requests are serialized, the
// replayer is not safe for concurrent use.
type Server struct {
	ctx  context.Context
	mu   sync.Mutex
	r    *replay.Replayer
	echo *echo.Echo
}

// Frame is the summary returned by GET /frame.
type Frame struct {
	Trace     string                 `json:"trace"`
	Frame     uint32                 `json:"frame"`
	Events    int                    `json:"events"`
	Drawcalls []drawcall.Description `json:"drawcalls"`
}

// ReplayRequest is the body of POST /replay.
type ReplayRequest struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
	Type  string `json:"type"`
}

// ReplayResult is the response to POST /replay.
type ReplayResult struct {
	Event          uint32             `json:"event"`
	State          replay.RenderState `json:"state"`
	InternalErrors int                `json:"internal_errors"`
}

type errorBody struct {
	Error string `json:"error"`
}

// New returns a server over r, which must be loaded.
func New(ctx context.Context, r *replay.Replayer) *Server {
	s := &Server{ctx: log.Enter(ctx, "inspect"), r: r, echo: echo.New()}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.RegisterRoutes(s.echo)
	return s
}

// RegisterRoutes adds the server's routes to e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/frame", s.frame)
	e.GET("/events/:eid", s.event)
	e.GET("/drawcalls/:eid", s.drawcall)
	e.GET("/state", s.state)
	e.POST("/replay", s.replay)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errs := make(chan error, 1)
	go func() { errs <- s.echo.Start(addr) }()
	log.I(ctx, "Serving replay on %v", addr)
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return s.echo.Shutdown(context.Background())
	}
}

func (s *Server) frame(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.r.GetFrameRecord()
	out := Frame{Frame: rec.FrameNumber, Events: len(rec.Events), Drawcalls: rec.Drawcalls}
	if t := s.r.Trace(); t != nil {
		out.Trace = t.ID.String()
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) event(c echo.Context) error {
	eid, ok := eventID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{"invalid event id"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.r.GetEvent(eid)
	if ev.EventID != eid {
		return c.JSON(http.StatusNotFound, errorBody{"no such event"})
	}
	return c.JSON(http.StatusOK, ev)
}

func (s *Server) drawcall(c echo.Context) error {
	eid, ok := eventID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{"invalid event id"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.r.GetDrawcall(eid)
	if d == nil {
		return c.JSON(http.StatusNotFound, errorBody{"no drawcall at event"})
	}
	return c.JSON(http.StatusOK, d)
}

func (s *Server) state(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.r.RenderState())
}

func (s *Server) replay(c echo.Context) error {
	var req ReplayRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{"invalid request body"})
	}
	t := replay.Full
	if req.Type != "" {
		var err error
		if t, err = replay.ParseReplayType(req.Type); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{err.Error()})
		}
	}
	if req.Start > req.End {
		return c.JSON(http.StatusBadRequest, errorBody{"start is after end"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.r.ReplayLog(s.ctx, req.Start, req.End, t); err != nil {
		log.E(s.ctx, "Replay of [%d, %d] %v failed: %v", req.Start, req.End, t, err)
		return c.JSON(http.StatusInternalServerError, errorBody{err.Error()})
	}
	return c.JSON(http.StatusOK, ReplayResult{
		Event:          req.End,
		State:          s.r.RenderState(),
		InternalErrors: s.r.InternalErrors(),
	})
}

func eventID(c echo.Context) (uint32, bool) {
	eid, err := strconv.ParseUint(c.Param("eid"), 10, 32)
	return uint32(eid), err == nil
}
