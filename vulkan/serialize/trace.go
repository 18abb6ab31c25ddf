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

package serialize

import (
	"bufio"
	"io"
	"os"

	"github.com/gfxtrace/vkreplay/core/data/binary"
	"github.com/gfxtrace/vkreplay/core/data/endian"
	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/vulkan/chunk"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Magic opens every trace file.
const Magic = "VKRT"

// Version is the trace format version written by this package.
const Version = uint32(1)

const maxChunkSize = 1 << 28

const (
	ErrBadMagic     = fault.Const("Not a trace file")
	ErrBadVersion   = fault.Const("Unsupported trace version")
	ErrUnknownKind  = fault.Const("Unknown chunk kind")
	ErrCorrupt      = fault.Const("Corrupt trace")
	ErrNoFrame      = fault.Const("Trace has no captured frame")
	ErrChunkTooLong = fault.Const("Chunk exceeds size limit")
)

// Trace is a captured frame with everything needed to replay it.
type Trace struct {
	// ID uniquely identifies the capture.
	ID uuid.UUID
	// Frame is the application frame number the capture started on.
	Frame uint32
	// Chunks holds the initialization section, the CaptureBegin chunk, the
	// frame and the closing CaptureEnd chunk, in that order.
	Chunks chunk.List
}

// Split returns the initialization section and the frame section of t. The
// frame section starts with the CaptureBegin chunk and ends with CaptureEnd.
func (t *Trace) Split() (init, frame chunk.List, err error) {
	begin := t.Chunks.Find(chunk.CaptureBegin)
	if begin < 0 {
		return nil, nil, ErrNoFrame
	}
	frame = t.Chunks[begin:]
	if frame[len(frame)-1].Kind != chunk.CaptureEnd {
		return nil, nil, errors.Wrap(ErrCorrupt, "Frame is not terminated by CaptureEnd")
	}
	return t.Chunks[:begin], frame, nil
}

// Write encodes t to w.
func Write(w io.Writer, t *Trace) error {
	bw := bufio.NewWriter(w)
	e := endian.Writer(bw, order)
	e.Data([]byte(Magic))
	e.Uint32(Version)
	e.Data(t.ID[:])
	e.Uint32(t.Frame)
	e.Uint32(uint32(len(t.Chunks)))
	for _, c := range t.Chunks {
		writeChunk(e, c)
	}
	if err := e.Error(); err != nil {
		return errors.Wrap(err, "Writing trace")
	}
	return bw.Flush()
}

func writeChunk(e binary.Writer, c *chunk.Chunk) {
	e.Uint32(uint32(c.Kind))
	e.Uint64(c.Index)
	e.Uint32(uint32(len(c.Data)))
	e.Data(c.Data)
	e.String(c.Debug)
}

// Read decodes a trace from r. Any malformed record fails the whole read,
// since no later chunk boundary can be trusted.
func Read(r io.Reader) (*Trace, error) {
	d := endian.Reader(bufio.NewReader(r), order)
	magic := make([]byte, len(Magic))
	d.Data(magic)
	if d.Error() == nil && string(magic) != Magic {
		return nil, ErrBadMagic
	}
	if v := d.Uint32(); d.Error() == nil && v != Version {
		return nil, errors.Wrapf(ErrBadVersion, "Version %d", v)
	}
	t := &Trace{}
	d.Data(t.ID[:])
	t.Frame = d.Uint32()
	n := binary.ReadCount(d, maxCount)
	t.Chunks = make(chunk.List, 0, n)
	for i := uint32(0); i < n && d.Error() == nil; i++ {
		c, err := readChunk(d)
		if err != nil {
			return nil, errors.Wrapf(err, "Chunk %d", i)
		}
		t.Chunks = append(t.Chunks, c)
	}
	if err := d.Error(); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	return t, nil
}

func readChunk(d binary.Reader) (*chunk.Chunk, error) {
	c := &chunk.Chunk{Kind: chunk.Kind(d.Uint32())}
	c.Index = d.Uint64()
	size := d.Uint32()
	if err := d.Error(); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	if !c.Kind.IsValid() {
		return nil, errors.Wrapf(ErrUnknownKind, "Kind %d", uint32(c.Kind))
	}
	if size > maxChunkSize {
		return nil, errors.Wrapf(ErrChunkTooLong, "%v is %d bytes", c.Kind, size)
	}
	if size > 0 {
		c.Data = make([]byte, size)
		d.Data(c.Data)
	}
	c.Debug = d.String()
	if err := d.Error(); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	return c, nil
}

// WriteFile writes t to the file at path.
func WriteFile(path string, t *Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a trace from the file at path.
func ReadFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
