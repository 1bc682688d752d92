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

// Package config provides the immutable run configuration shared by all
// recipes.
//
// Values are layered in this order, later layers winning:
//
//  1. built-in defaults (NewConfig)
//  2. the YAML file ($HOME/.pkgsmith.yaml or --config)
//  3. environment (PKGSMITH_WORKSPACE, BLAS_ROOT)
//  4. command-line flags
//
// Example file:
//
//	workspace: /data/pkgsmith
//	jobs: 2
//	archive: tar.zst
//	settings:
//	  compiler.version: "13"
//	options:
//	  lz4:
//	    shared: "False"
package config
