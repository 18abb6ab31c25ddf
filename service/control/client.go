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

package control

import (
	"context"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Client is the tool side of a control connection.
type Client struct {
	ws *websocket.Conn
}

// Dial connects to the control server at addr, given either as host:port or
// as a ws, wss, http or https URL.
func Dial(ctx context.Context, addr string) (*Client, error) {
	url := addr
	switch {
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case !strings.Contains(url, "://"):
		url = "ws://" + url
	}
	if !strings.HasSuffix(url, "/control") {
		url = strings.TrimSuffix(url, "/") + "/control"
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Connecting to %v", url)
	}
	return &Client{ws: ws}, nil
}

// Trigger asks for frames frames to be captured and waits for the answer.
// Capture announcements that arrive first are skipped.
func (c *Client) Trigger(frames int) (Message, error) {
	if err := c.ws.WriteJSON(Message{Type: TypeTrigger, Frames: frames}); err != nil {
		return Message{}, errors.Wrap(err, "Sending trigger")
	}
	for {
		m, err := c.Next()
		if err != nil {
			return m, err
		}
		switch m.Type {
		case TypeAck:
			return m, nil
		case TypeError:
			return m, errors.New(m.Message)
		}
	}
}

// Next waits for the next message from the server.
func (c *Client) Next() (Message, error) {
	var m Message
	if err := c.ws.ReadJSON(&m); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return m, ErrClosed
		}
		return m, errors.Wrap(err, "Reading control message")
	}
	return m, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}
