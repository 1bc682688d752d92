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

// Package logging provides structured logging utilities for pkgsmith.
//
// It wraps log/slog with a JSON handler on stderr, injects the module name
// and version into every record, and adds source locations at debug level.
//
// # Log Levels
//
// Supported levels (case-insensitive): debug, info (default), warn/warning,
// error. The LOG_LEVEL environment variable is consulted when no explicit
// level is given:
//
//	LOG_LEVEL=debug pkgsmith create lz4
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("pkgsmith", version)
//	    slog.Info("starting", "recipe", "lz4")
//	}
//
// External tool output (cmake, git) is not logged through slog; it is
// streamed to stderr by pkg/command so build logs stay readable.
package logging
