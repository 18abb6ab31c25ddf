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

// Package binary declares the primitive stream coding interfaces used by the
// trace serializer.
package binary

import (
	"io"

	"github.com/pkg/errors"
)

// Reader provides methods for decoding values.
type Reader interface {
	io.Reader
	// Data reads the data bytes in their entirety.
	Data([]byte)
	// Bool decodes and returns a boolean value from the Reader.
	Bool() bool
	// Uint8 decodes and returns an unsigned, 8 bit integer value from the Reader.
	Uint8() uint8
	// Int32 decodes and returns a signed, 32 bit integer value from the Reader.
	Int32() int32
	// Uint32 decodes and returns an unsigned, 32 bit integer value from the Reader.
	Uint32() uint32
	// Int64 decodes and returns a signed, 64 bit integer value from the Reader.
	Int64() int64
	// Uint64 decodes and returns an unsigned, 64 bit integer value from the Reader.
	Uint64() uint64
	// Float32 decodes and returns a 32 bit floating-point value from the Reader.
	Float32() float32
	// Float64 decodes and returns a 64 bit floating-point value from the Reader.
	Float64() float64
	// String decodes and returns a length prefixed string from the Reader.
	String() string
	// Count decodes a collection count from the stream.
	Count() uint32
	// If there is an error reading any input, all further reading returns the
	// zero value of the type read. Error() returns the error which stopped
	// reading from the stream. If reading has not stopped it returns nil.
	Error() error
	// Set the error state and stop reading from the stream.
	SetError(error)
}

// ErrCountTooLarge is returned when a decoded count exceeds a sanity limit.
var ErrCountTooLarge = errors.New("Count exceeds limit")

// ReadCount reads a count and fails the reader if it is larger than limit.
func ReadCount(r Reader, limit uint32) uint32 {
	n := r.Count()
	if n > limit {
		r.SetError(errors.Wrapf(ErrCountTooLarge, "%d > %d", n, limit))
		return 0
	}
	return n
}
