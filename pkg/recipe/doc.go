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

// Package recipe defines package recipes: how one upstream C++ library is
// fetched at a release tag, configured with CMake, built for each build
// configuration and repackaged into a package folder.
//
// Recipes live in subpackages and register themselves from init():
//
//	func init() {
//	    recipe.MustRegister("lz4", func(cfg *config.Config) recipe.Recipe {
//	        return New()
//	    })
//	}
//
// A Recipe only states what differs between libraries (patches, cache
// variables, packaging quirks). Base supplies the shared steps: fetch,
// toolchain generation, configure-once and build-per-configuration,
// staging installs and typed artifact copies.
//
// Every stage is sequential inside a recipe and aborts on the first error.
// Output of completed steps stays on disk; nothing is rolled back.
package recipe
