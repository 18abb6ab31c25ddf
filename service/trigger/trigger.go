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

// Package trigger arms captures from the filesystem: creating the trigger
// file asks for a capture, and the file is removed once seen.
package trigger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gfxtrace/vkreplay/core/log"
	"github.com/pkg/errors"
)

// Watch calls fn every time the file at path is created or written, then
// removes the file. A file already present when Watch starts fires at once.
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, fn func(ctx context.Context)) error {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "Creating trigger watcher")
	}
	defer w.Close()
	// Watch the directory, the file itself comes and goes.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "Watching %v", filepath.Dir(path))
	}
	ctx = log.Enter(ctx, "trigger")
	if _, err := os.Stat(path); err == nil {
		fire(ctx, path, fn)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				continue
			}
			fire(ctx, path, fn)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.W(ctx, "Trigger watcher: %v", err)
		}
	}
}

func fire(ctx context.Context, path string, fn func(ctx context.Context)) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.W(ctx, "Removing trigger file: %v", err)
	}
	log.I(ctx, "Trigger file %v seen", path)
	fn(ctx)
}
