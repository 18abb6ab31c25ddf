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

package fault

import "fmt"

// List gathers the errors of an operation that carries on past failures.
type List []error

// First returns the first error collected, or nil.
func (l List) First() error {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// Collect appends err to the list. A nil err is ignored.
func (l *List) Collect(err error) {
	if err != nil {
		*l = append(*l, err)
	}
}

// Err returns nil for an empty list, the only error of a list of one, or an
// error counting the failures and quoting the first.
func (l List) Err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	default:
		return fmt.Errorf("%d errors, first: %v", len(l), l[0])
	}
}
