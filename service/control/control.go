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

// Package control implements the target-control channel of a capturing
// process. Clients connect over a websocket, ask for frames to be captured
// and are told about every capture the layer finishes.
package control

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/capture"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Message types.
const (
	TypeTrigger = "trigger"
	TypeAck     = "ack"
	TypeCapture = "capture"
	TypeError   = "error"
)

// ErrClosed is returned by a client whose connection has gone away.
const ErrClosed = fault.Const("Control connection closed")

// Message is every message exchanged on the channel.
type Message struct {
	Type    string `json:"type"`
	Frames  int    `json:"frames,omitempty"`
	ID      string `json:"id,omitempty"`
	Frame   uint32 `json:"frame,omitempty"`
	Path    string `json:"path,omitempty"`
	Chunks  int    `json:"chunks,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	sendQueue    = 16
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	maxMessage   = 4096
)

// Server accepts control connections for one layer.
type Server struct {
	ctx      context.Context
	layer    *capture.Layer
	echo     *echo.Echo
	upgrader websocket.Upgrader
}

// New returns a control server for layer.
func New(ctx context.Context, layer *capture.Layer) *Server {
	s := &Server{
		ctx:   log.Enter(ctx, "control"),
		layer: layer,
		echo:  echo.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.GET("/control", s.connect)
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errs := make(chan error, 1)
	go func() { errs <- s.echo.Start(addr) }()
	log.I(ctx, "Control channel on %v", addr)
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return s.echo.Shutdown(context.Background())
	}
}

type conn struct {
	ctx  context.Context
	ws   *websocket.Conn
	send chan Message
	done chan struct{}
}

// post queues m without blocking. It runs with the layer's capture lock
// held when announcing a capture.
func (c *conn) post(m Message) {
	select {
	case c.send <- m:
	case <-c.done:
	default:
		log.W(c.ctx, "Dropping %v message for slow control client", m.Type)
	}
}

func (s *Server) connect(e echo.Context) error {
	ws, err := s.upgrader.Upgrade(e.Response(), e.Request(), nil)
	if err != nil {
		return log.Err(s.ctx, err, "Upgrading control connection")
	}
	c := &conn{
		ctx:  log.Enter(s.ctx, e.Request().RemoteAddr),
		ws:   ws,
		send: make(chan Message, sendQueue),
		done: make(chan struct{}),
	}
	ws.SetReadLimit(maxMessage)
	unsubscribe := s.layer.Subscribe(func(cp capture.Capture) {
		c.post(Message{Type: TypeCapture, ID: cp.ID.String(), Frame: cp.Frame, Path: cp.Path, Chunks: cp.Chunks})
	})
	log.I(c.ctx, "Control client connected")
	go c.writePump()
	go func() {
		defer func() {
			unsubscribe()
			close(c.done)
			ws.Close()
			log.I(c.ctx, "Control client disconnected")
		}()
		s.readPump(c)
	}()
	return nil
}

func (s *Server) readPump(c *conn) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.W(c.ctx, "Control connection: %v", err)
			}
			return
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			c.post(Message{Type: TypeError, Message: "invalid message"})
			continue
		}
		switch m.Type {
		case TypeTrigger:
			if err := s.layer.TriggerCapture(m.Frames); err != nil {
				c.post(Message{Type: TypeError, Message: err.Error()})
				continue
			}
			log.I(c.ctx, "Capture of %d frame(s) requested", m.Frames)
			c.post(Message{Type: TypeAck, Frames: s.layer.Pending()})
		default:
			c.post(Message{Type: TypeError, Message: "unknown message type " + m.Type})
		}
	}
}

func (c *conn) writePump() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case m := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(m); err != nil {
				log.W(c.ctx, "Writing to control client: %v", err)
				return
			}
		case <-ping.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
