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

package toolchain

import (
	"context"
	"log/slog"
	"strings"

	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/version"
)

// Generator names.
const (
	// GeneratorDefault leaves the choice to CMake (Visual Studio on Windows).
	GeneratorDefault = ""
	GeneratorXcode   = "Xcode"
	GeneratorNinjaMC = "Ninja Multi-Config"
)

// MultiConfigMinCMake is the oldest CMake that ships Ninja Multi-Config.
var MultiConfigMinCMake = version.MustParseVersion("3.17")

// SelectGenerator maps the target OS to a multi-config CMake generator.
func SelectGenerator(os settings.OS) string {
	switch os {
	case settings.Macos:
		return GeneratorXcode
	case settings.Linux:
		return GeneratorNinjaMC
	default:
		return GeneratorDefault
	}
}

// MinCMake returns the minimum CMake version the generator needs, and false
// when the generator has no particular requirement.
func MinCMake(generator string) (version.Version, bool) {
	if generator == GeneratorNinjaMC {
		return MultiConfigMinCMake, true
	}
	return version.Version{}, false
}

// BrewPrefix resolves the install root of a Homebrew formula. A missing brew
// executable or formula is fatal; there is no fallback location.
func BrewPrefix(ctx context.Context, runner command.Runner, formula string) (string, error) {
	out, err := runner.Output(ctx, command.Cmd{
		Name:    "brew",
		Args:    []string{"--prefix", formula},
		Timeout: defaults.BrewQueryTimeout,
	})
	if err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeToolFailed, "brew --prefix failed", err,
			map[string]any{"formula": formula})
	}
	prefix := strings.TrimSpace(out)
	if prefix == "" {
		return "", errors.NewWithContext(errors.ErrCodeToolFailed, "brew returned an empty prefix",
			map[string]any{"formula": formula})
	}
	slog.Debug("resolved brew prefix", slog.String("formula", formula), slog.String("prefix", prefix))
	return prefix, nil
}
