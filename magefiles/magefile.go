//go:build mage

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

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "vkreplay"

var Default = Build

// Build compiles the vkreplay command into bin/.
func Build() error {
	out := filepath.Join("bin", binary)
	return sh.RunV("go", "build", "-o", out, "./cmd/vkreplay")
}

// Test runs every test. The sqlite catalog needs cgo.
func Test() error {
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./...")
}

// Race runs the capture and replay tests with the race detector.
func Race() error {
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "-race", "./vulkan/...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check vets and tests, then tests again under the race detector.
func Check() {
	mg.SerialDeps(Vet, Test, Race)
}

// Clean removes build output.
func Clean() error {
	return os.RemoveAll("bin")
}
