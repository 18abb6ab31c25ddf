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

package app

import (
	"context"
	"flag"
	"fmt"
	"strings"
)

// Verb holds information about a runnable api command.
type Verb struct {
	Name       string   // The name of the command
	ShortHelp  string   // Help for the purpose of the command
	ShortUsage string   // Help for how to use the command
	Auto       AutoVerb // The implementation of the command
	flags      *flag.FlagSet
	verbs      []*Verb
}

// AutoVerb is the interface implemented by verb actions.
type AutoVerb interface {
	// Run performs the action associated with the verb. flags holds the
	// parsed verb flags and the remaining positional arguments.
	Run(ctx context.Context, flags flag.FlagSet) error
}

// FlagBinder is implemented by verbs that accept command line flags.
type FlagBinder interface {
	BindFlags(f *flag.FlagSet)
}

var globalVerbs Verb

// Add adds a new verb to the supported set, it will panic if a
// duplicate name is encountered.
func (v *Verb) Add(child *Verb) {
	if len(v.Filter(child.Name)) != 0 {
		panic(fmt.Errorf("Duplicate verb name %s", child.Name))
	}
	child.flags = flag.NewFlagSet(child.Name, flag.ContinueOnError)
	if b, ok := child.Auto.(FlagBinder); ok {
		b.BindFlags(child.flags)
	}
	v.verbs = append(v.verbs, child)
}

// Filter returns the filtered list of verbs who's names match the specified
// prefix.
func (v *Verb) Filter(prefix string) (result []*Verb) {
	for _, child := range v.verbs {
		if strings.HasPrefix(child.Name, prefix) {
			result = append(result, child)
		}
	}
	return result
}

// Invoke runs a verb, handing it the command line arguments it should process.
func (v *Verb) Invoke(ctx context.Context, args []string) error {
	if len(args) < 1 {
		Usage(ctx, "Must supply a verb")
		return nil
	}
	name := args[0]
	matches := v.Filter(name)
	for _, m := range matches {
		if m.Name == name {
			matches = []*Verb{m}
			break
		}
	}
	switch len(matches) {
	case 1:
		selected := matches[0]
		if err := selected.flags.Parse(args[1:]); err != nil {
			return ErrUsage
		}
		return selected.Auto.Run(ctx, *selected.flags)
	case 0:
		Usage(ctx, "Verb '%s' is unknown", name)
	default:
		Usage(ctx, "Verb '%s' is ambiguous", name)
	}
	return nil
}

// AddVerb adds a new verb to the supported set, it will panic if a
// duplicate name is encountered.
func AddVerb(v *Verb) {
	globalVerbs.Add(v)
}

// VerbMain is a task that can be handed to Run to invoke the verb handling
// system.
func VerbMain(ctx context.Context) error {
	return globalVerbs.Invoke(ctx, flag.Args())
}
