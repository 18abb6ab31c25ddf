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

package trigger_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gfxtrace/vkreplay/core/assert"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/gfxtrace/vkreplay/service/trigger"
)

func waitFor(fired chan struct{}) bool {
	select {
	case <-fired:
		return true
	case <-time.After(5 * time.Second):
		return false
	}
}

func TestWatch(t *testing.T) {
	ctx := log.Testing(t)
	path := filepath.Join(t.TempDir(), "capture.trigger")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	fired := make(chan struct{}, 4)
	done := make(chan error)
	go func() {
		done <- trigger.Watch(ctx, path, func(context.Context) { fired <- struct{}{} })
	}()

	assert.For(ctx, "existing file").ThatBoolean(waitFor(fired)).IsTrue()
	_, err := os.Stat(path)
	assert.For(ctx, "removed").ThatBoolean(os.IsNotExist(err)).IsTrue()

	if err := os.WriteFile(path, []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}
	assert.For(ctx, "created").ThatBoolean(waitFor(fired)).IsTrue()

	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	cancel()
	assert.For(ctx, "stopped").ThatError(<-done).Succeeded()
}

func TestWatchMissingDirectory(t *testing.T) {
	ctx := log.Testing(t)
	path := filepath.Join(t.TempDir(), "missing", "capture.trigger")
	err := trigger.Watch(ctx, path, func(context.Context) {})
	assert.For(ctx, "error").ThatError(err).Failed()
}
