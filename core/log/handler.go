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
	"context"
	"sync"

	"github.com/gfxtrace/vkreplay/core/context/keys"
)

// Handler is the handler of log messages.
type Handler interface {
	Handle(*Message)
	Close()
}

// NewHandler returns a Handler that calls handle for each message and close
// when the handler is closed.
func NewHandler(handle func(*Message), close func()) Handler {
	if close == nil {
		close = func() {}
	}
	return handler{handle, close}
}

type handler struct {
	handle func(*Message)
	close  func()
}

func (h handler) Handle(m *Message) { h.handle(m) }
func (h handler) Close()            { h.close() }

type handlerKeyTy string

const handlerKey handlerKeyTy = "log.handlerKey"

// PutHandler returns a new context with the Handler assigned to w.
func PutHandler(ctx context.Context, w Handler) context.Context {
	return keys.WithValue(ctx, handlerKey, w)
}

// GetHandler returns the Handler assigned to ctx.
func GetHandler(ctx context.Context) Handler {
	out, _ := ctx.Value(handlerKey).(Handler)
	return out
}

// Broadcaster forwards all messages to all its listeners.
type Broadcaster struct {
	mutex     sync.RWMutex
	handlers  map[int]Handler
	nextIndex int
}

// Broadcast returns a new Broadcaster that forwards to the given handlers.
func Broadcast(handlers ...Handler) *Broadcaster {
	b := &Broadcaster{handlers: map[int]Handler{}}
	for _, h := range handlers {
		b.Listen(h)
	}
	return b
}

// Listen adds h to the list of handlers, returning a function to remove it.
func (b *Broadcaster) Listen(h Handler) (unlisten func()) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	index := b.nextIndex
	b.nextIndex++
	b.handlers[index] = h
	return func() {
		b.mutex.Lock()
		defer b.mutex.Unlock()
		delete(b.handlers, index)
	}
}

// Handle forwards m to all the listeners.
func (b *Broadcaster) Handle(m *Message) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	for _, h := range b.handlers {
		h.Handle(m)
	}
}

// Close closes all the listeners.
func (b *Broadcaster) Close() {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	for _, h := range b.handlers {
		h.Close()
	}
}
