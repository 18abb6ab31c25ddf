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

package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Extension is the file extension of written traces.
const Extension = ".vkrt"

// Capture describes a finished frame capture.
type Capture struct {
	ID     uuid.UUID
	Frame  uint32
	Path   string
	Chunks int
	Time   time.Time
}

// Output receives finished traces.
type Output interface {
	// Write stores t and returns where it was stored.
	Write(ctx context.Context, t *serialize.Trace) (string, error)
}

// Registrar is told about every trace a DirOutput writes.
type Registrar interface {
	Register(ctx context.Context, c Capture) error
}

// DirOutput writes each trace to its own file in Dir.
type DirOutput struct {
	Dir       string
	Registrar Registrar
}

func (o DirOutput) Write(ctx context.Context, t *serialize.Trace) (string, error) {
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return "", errors.Wrapf(err, "Creating %v", o.Dir)
	}
	path := filepath.Join(o.Dir, t.ID.String()+Extension)
	if err := serialize.WriteFile(path, t); err != nil {
		return "", err
	}
	log.I(ctx, "Wrote capture to %v", path)
	if o.Registrar != nil {
		c := Capture{ID: t.ID, Frame: t.Frame, Path: path, Chunks: len(t.Chunks), Time: time.Now()}
		if err := o.Registrar.Register(ctx, c); err != nil {
			// The trace is on disk even if the catalog missed it.
			log.E(ctx, "Failed to register capture %v: %v", t.ID, err)
		}
	}
	return path, nil
}

// MemoryOutput keeps traces in memory.
type MemoryOutput struct {
	mu     sync.Mutex
	traces []*serialize.Trace
}

func (o *MemoryOutput) Write(ctx context.Context, t *serialize.Trace) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.traces = append(o.traces, t)
	return fmt.Sprintf("memory:%v", t.ID), nil
}

// Traces returns every trace written so far.
func (o *MemoryOutput) Traces() []*serialize.Trace {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*serialize.Trace(nil), o.traces...)
}

// Last returns the most recent trace, or nil.
func (o *MemoryOutput) Last() *serialize.Trace {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.traces) == 0 {
		return nil
	}
	return o.traces[len(o.traces)-1]
}
