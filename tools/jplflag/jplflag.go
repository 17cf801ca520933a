// Copyright 2025 The JPL Compiler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package jplflag scans the compiler driver's argument list.
//
// The driver's surface is deliberately simple: stage flags are matched as
// exact arguments, and the optimization level is found by scanning for an
// argument whose first two bytes are -O and reading the single byte after
// them as a digit. Spaces or other flags between -O and the digit are not
// recognized; this scanning rule is part of the surface and is preserved
// as is.
package jplflag

// Has reports whether flag appears verbatim in the argument list.
func Has(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

// OptLevel returns the optimization level: the byte following the first
// -O prefix, as a digit. Absent any -O argument the level is 0.
func OptLevel(flags []string) int {
	for _, f := range flags {
		if len(f) >= 3 && f[0] == '-' && f[1] == 'O' {
			return int(f[2] - '0')
		}
	}
	return 0
}
