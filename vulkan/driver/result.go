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

package driver

import "fmt"

// Result is a non-success API result code. It implements error.
type Result int32

const (
	Success                   = Result(0)
	NotReady                  = Result(1)
	Timeout                   = Result(2)
	ErrorOutOfHostMemory      = Result(-1)
	ErrorOutOfDeviceMemory    = Result(-2)
	ErrorInitializationFailed = Result(-3)
	ErrorDeviceLost           = Result(-4)
	ErrorMemoryMapFailed      = Result(-5)
	ErrorFeatureNotPresent    = Result(-8)
)

var resultNames = map[Result]string{
	Success:                   "VK_SUCCESS",
	NotReady:                  "VK_NOT_READY",
	Timeout:                   "VK_TIMEOUT",
	ErrorOutOfHostMemory:      "VK_ERROR_OUT_OF_HOST_MEMORY",
	ErrorOutOfDeviceMemory:    "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	ErrorInitializationFailed: "VK_ERROR_INITIALIZATION_FAILED",
	ErrorDeviceLost:           "VK_ERROR_DEVICE_LOST",
	ErrorMemoryMapFailed:      "VK_ERROR_MEMORY_MAP_FAILED",
	ErrorFeatureNotPresent:    "VK_ERROR_FEATURE_NOT_PRESENT",
}

func (r Result) Error() string {
	if n, ok := resultNames[r]; ok {
		return n
	}
	return fmt.Sprintf("VkResult(%d)", int32(r))
}

// Check converts a raw result code into an error, nil for success.
func Check(code int32) error {
	if code == int32(Success) {
		return nil
	}
	return Result(code)
}
