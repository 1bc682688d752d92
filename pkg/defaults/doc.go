// Copyright (c) 2025, The pkgsmith Authors.  All rights reserved.
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

// Package defaults provides centralized configuration constants for pkgsmith.
//
// # Timeout Categories
//
//   - Source timeouts: git clone/checkout and brew queries
//   - CMake timeouts: configure, build, install per configuration
//   - Consumer timeouts: test project build and execution
//   - Distribution timeouts: archive creation and OCI push
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.CMakeBuildTimeout)
//	defer cancel()
//
// A timeout only narrows the parent context; a parent deadline that is
// shorter always wins.
package defaults
