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

// Package errors provides structured error types for better observability
// and programmatic error handling across pkgsmith.
//
// Every lifecycle failure is fatal for the recipe being processed; the code
// tells the caller which stage gave up:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeBuildFailed,
//	    "cmake build failed",
//	    cause,
//	    map[string]any{
//	        "recipe": "lz4",
//	        "config": "Debug",
//	    },
//	)
package errors
