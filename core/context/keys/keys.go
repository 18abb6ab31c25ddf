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

// Package keys tracks the keys stored in a context so that they can be
// copied onto a context with a different lifetime.
package keys

import "context"

type keySetType int

const keySet = keySetType(0)

type link struct {
	key  interface{}
	next *link
}

// Get returns the unique list of keys registered with WithValue on ctx, most
// recent first.
func Get(ctx context.Context) []interface{} {
	seen := map[interface{}]bool{}
	result := make([]interface{}, 0, 10)
	for l, _ := ctx.Value(keySet).(*link); l != nil; l = l.next {
		if !seen[l.key] {
			seen[l.key] = true
			result = append(result, l.key)
		}
	}
	return result
}

// WithValue is context.WithValue that also records key on the context.
func WithValue(ctx context.Context, key interface{}, value interface{}) context.Context {
	old, _ := ctx.Value(keySet).(*link)
	ctx = context.WithValue(ctx, key, value)
	return context.WithValue(ctx, keySet, &link{key: key, next: old})
}

// Clone copies every recorded value of from onto ctx.
func Clone(ctx context.Context, from context.Context) context.Context {
	keys := Get(from)
	for i := len(keys) - 1; i >= 0; i-- {
		ctx = WithValue(ctx, keys[i], from.Value(keys[i]))
	}
	return ctx
}

// Detach returns a background context carrying the recorded values of ctx
// but none of its cancellation.
func Detach(ctx context.Context) context.Context {
	return Clone(context.Background(), ctx)
}
