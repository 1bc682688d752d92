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

// Package toolchain selects the CMake generator for a target platform and
// writes the per-build toolchain files: pkgsmith_toolchain.cmake (cache
// variables), deps.cmake (<name>_ROOT for each requirement) and
// toolchain.yaml, which later stages load to reuse the same generator.
//
// Generator policy:
//
//	Windows  CMake default (Visual Studio family)
//	Macos    Xcode
//	Linux    Ninja Multi-Config, CMake 3.17 or newer
package toolchain
