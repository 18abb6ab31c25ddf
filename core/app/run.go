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

// Package app provides the verb based command line framework shared by the
// tools in this module.
package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/core/log"
)

var (
	// Name is the full name of the application
	Name = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
	// ShortHelp should be set to add a help message to the usage text.
	ShortHelp = ""
	// ExitFuncForTesting can be set to change the behaviour when there is a
	// command line parsing failure. It defaults to os.Exit
	ExitFuncForTesting = os.Exit
)

// ExitCode is the type for named return values from the application main entry point.
type ExitCode int

const (
	// SuccessExit is the exit code for a successful run.
	SuccessExit = ExitCode(0)
	// FatalExit is the exit code if something panicked or logged a fatal message.
	FatalExit = ExitCode(1)
	// UsageExit is the exit code if the command line was invalid.
	UsageExit = ExitCode(2)
)

// ErrUsage is returned by verbs that were invoked with bad arguments.
const ErrUsage = fault.Const("Invalid command line")

// Task is the signature of the application main function.
type Task func(ctx context.Context) error

// Run performs all the work needed to start up an application.
// It parses the main command line arguments, installs the logging handler,
// cancels the context on SIGINT or SIGTERM and then runs main.
func Run(main Task) {
	defer func() {
		switch cause := recover().(type) {
		case nil:
		case ExitCode:
			ExitFuncForTesting(int(cause))
		default:
			panic(cause)
		}
	}()

	level := flag.String("log-level", "info", "minimum severity of log messages")
	flag.CommandLine.Usage = func() { usage(os.Stderr, "") }
	flag.Parse()

	ctx := log.PutProcess(context.Background(), Name)
	ctx = log.PutHandler(ctx, log.Std())
	severity, err := log.ParseSeverity(*level)
	if err != nil {
		usage(os.Stderr, "%v", err)
		panic(UsageExit)
	}
	ctx = log.PutFilter(ctx, log.SeverityFilter(severity))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := main(ctx); err != nil {
		if err == ErrUsage {
			panic(UsageExit)
		}
		log.E(ctx, "Main failed\nError: %v", err)
		panic(FatalExit)
	}
}

// Usage prints message and the verb help to stderr and exits.
func Usage(ctx context.Context, message string, args ...interface{}) {
	usage(os.Stderr, message, args...)
	panic(UsageExit)
}

func usage(w *os.File, message string, args ...interface{}) {
	if message != "" {
		fmt.Fprintf(w, message, args...)
		fmt.Fprintln(w)
		fmt.Fprintln(w)
	}
	if ShortHelp != "" {
		fmt.Fprintf(w, "%s: %s\n", Name, ShortHelp)
	}
	fmt.Fprintf(w, "Usage: %s [flags] verb [verb-flags] [args]\n", Name)
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
	fmt.Fprintln(w, "Verbs:")
	for _, v := range globalVerbs.verbs {
		fmt.Fprintf(w, "  %-12s %s\n", v.Name, v.ShortHelp)
	}
}
