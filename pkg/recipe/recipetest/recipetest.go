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

// Package recipetest provides command.Recorder handlers that imitate git
// and CMake side effects, so recipes can be exercised end to end without
// network access or a compiler.
package recipetest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/biovault/pkgsmith/pkg/command"
)

// ConfigToken in a path passed to Install is replaced by the configuration.
const ConfigToken = "{config}"

// ArgAfter returns the argument following flag, or empty.
func ArgAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// Runner returns a Recorder that reports cmakeVersion for `cmake --version`.
func Runner(cmakeVersion string) *command.Recorder {
	return command.NewRecorder().On(command.Match("cmake", "--version"), func(command.Cmd) (string, error) {
		return "cmake version " + cmakeVersion + "\n", nil
	})
}

// Clone writes files (relative path -> content) into the directory passed
// as the last `git clone` argument.
func Clone(files map[string]string) command.Handler {
	return func(c command.Cmd) (string, error) {
		dir := c.Args[len(c.Args)-1]
		return "", writeAll(dir, files, "")
	}
}

// Install writes the given relative paths under the --prefix of a
// `cmake --install` call, substituting ConfigToken.
func Install(paths ...string) command.Handler {
	return func(c command.Cmd) (string, error) {
		files := make(map[string]string, len(paths))
		for _, p := range paths {
			files[p] = p
		}
		return "", writeAll(ArgAfter(c.Args, "--prefix"), files, ArgAfter(c.Args, "--config"))
	}
}

// BuildOutput writes paths under <build>/<config> for a `cmake --build` call,
// imitating files that install rules skip (MSVC .pdb).
func BuildOutput(paths ...string) command.Handler {
	return func(c command.Cmd) (string, error) {
		build := ArgAfter(c.Args, "--build")
		config := ArgAfter(c.Args, "--config")
		files := make(map[string]string, len(paths))
		for _, p := range paths {
			files[p] = p
		}
		return "", writeAll(filepath.Join(build, config), files, config)
	}
}

func writeAll(root string, files map[string]string, config string) error {
	for rel, content := range files {
		rel = strings.ReplaceAll(rel, ConfigToken, config)
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
