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

package assert_test

import (
	"strings"
	"testing"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/pkg/errors"
)

// recorder collects assertion output instead of failing the test.
type recorder struct {
	errors []string
	logs   []string
}

func (r *recorder) Fatal(args ...interface{}) { r.Error(args...) }
func (r *recorder) Error(args ...interface{}) {
	for _, a := range args {
		r.errors = append(r.errors, a.(string))
	}
}
func (r *recorder) Log(args ...interface{}) {
	for _, a := range args {
		r.logs = append(r.logs, a.(string))
	}
}

type pair struct {
	A int
	B []string
}

func TestPassingAssertionsAreSilent(t *testing.T) {
	r := &recorder{}
	a := assert.To(r)
	a.For("value").That(3).Equals(3)
	a.For("deep").That(pair{1, []string{"x"}}).DeepEquals(pair{1, []string{"x"}})
	a.For("slice").ThatSlice([]int{1, 2}).Equals([]int{1, 2})
	a.For("string").ThatString("vkCmdDraw").HasPrefix("vkCmd")
	a.For("integer").ThatInteger(5).IsBetween(1, 10)
	a.For("map").ThatMap(map[int]string{1: "a"}).Equals(map[int]string{1: "a"})
	a.For("nil").That((*pair)(nil)).IsNil()
	if len(r.errors) != 0 {
		t.Errorf("unexpected failures: %v", r.errors)
	}
}

func TestFailingAssertionsReport(t *testing.T) {
	r := &recorder{}
	a := assert.To(r)
	a.For("value").That(3).Equals(4)
	a.For("deep").That(pair{1, nil}).DeepEquals(pair{2, nil})
	a.For("slice").ThatSlice([]int{1, 2}).Equals([]int{1, 3})
	a.For("bool").ThatBoolean(false).IsTrue()
	if len(r.errors) != 4 {
		t.Fatalf("expected 4 failures, got %d: %v", len(r.errors), r.errors)
	}
	if !strings.Contains(r.errors[2], "==>") {
		t.Errorf("slice diff missing marker: %v", r.errors[2])
	}
}

func TestErrorCause(t *testing.T) {
	r := &recorder{}
	const cause = fault.Const("bad chunk")
	err := errors.Wrap(cause, "reading trace")
	assert.To(r).For("cause").ThatError(err).HasCause(cause)
	assert.To(r).For("failed").ThatError(err).Failed()
	if len(r.errors) != 0 {
		t.Errorf("unexpected failures: %v", r.errors)
	}
}
