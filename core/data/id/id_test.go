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

package id_test

import (
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/data/binary"
	"github.com/gfxtrace/vkreplay/core/data/id"
	"github.com/gfxtrace/vkreplay/core/log"
)

var (
	sampleID = id.ID{
		0x00, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x00,
		0x00, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x00,
	}
	sampleIDString = "000123456789abcdef00" + "000123456789abcdef00"
)

func TestIDString(t *testing.T) {
	ctx := log.Testing(t)
	assert.For(ctx, "str").That(sampleID.String()).Equals(sampleIDString)
	assert.For(ctx, "short").That(sampleID.Short()).Equals("00012345")
}

func TestParse(t *testing.T) {
	ctx := log.Testing(t)
	got, err := id.Parse(sampleIDString)
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "id").That(got).Equals(sampleID)
	_, err = id.Parse(sampleIDString + "00")
	assert.For(ctx, "too long").ThatError(err).Failed()
	_, err = id.Parse("abcdefghijklmnopqrs")
	assert.For(ctx, "invalid").ThatError(err).Failed()
}

func TestOfBytes(t *testing.T) {
	ctx := log.Testing(t)
	got := id.OfBytes([]byte{0x00, 0x01, 0x02, 0x03})
	assert.For(ctx, "id").ThatString(got).Equals("a02a05b025b928c039cf1ae7e8ee04e7c190c0db")
	assert.For(ctx, "valid").That(got.IsValid()).Equals(true)
	assert.For(ctx, "zero").That(id.ID{}.IsValid()).Equals(false)
}

func TestOfEncoded(t *testing.T) {
	ctx := log.Testing(t)
	a := id.OfEncoded(func(w binary.Writer) { w.Uint32(9729); w.Float32(1) })
	b := id.OfEncoded(func(w binary.Writer) { w.Uint32(9729); w.Float32(1) })
	c := id.OfEncoded(func(w binary.Writer) { w.Uint32(9728); w.Float32(1) })
	assert.For(ctx, "same").That(a).Equals(b)
	assert.For(ctx, "different").That(a).NotEquals(c)
}
