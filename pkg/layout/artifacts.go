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

package layout

import "github.com/biovault/pkgsmith/pkg/settings"

// Origin names the tree a Rule copies from.
type Origin int

const (
	// FromStaging copies from the configuration's staging install.
	FromStaging Origin = iota
	// FromBuild copies from <build>/<config>, where MSVC leaves debug symbols
	// that install rules do not pick up.
	FromBuild
)

// Rule copies files matching Patterns, flattened, into <Dest>/<config> of
// the package folder.
type Rule struct {
	Patterns []string
	// Dest is LibDir or BinDir.
	Dest string
	// Under restricts the walk to a subdirectory of the origin.
	Under  string
	Origin Origin
}

// Header patterns recognized in include/.
var HeaderPatterns = []string{"*.h", "*.hpp", "*.hxx", "*.hh", "*.inl"}

// LibraryPatterns returns the library file patterns for the target OS.
func LibraryPatterns(os settings.OS) []string {
	switch os {
	case settings.Windows:
		return []string{"*.lib"}
	case settings.Macos:
		return []string{"*.a", "*.dylib"}
	default:
		return []string{"*.a", "*.so", "*.so.*"}
	}
}

// SharedLibraryPatterns returns the runtime shared library patterns.
func SharedLibraryPatterns(os settings.OS) []string {
	switch os {
	case settings.Windows:
		return []string{"*.dll"}
	case settings.Macos:
		return []string{"*.dylib"}
	default:
		return []string{"*.so", "*.so.*"}
	}
}

// ArtifactRules returns the typed copy rules for one configuration.
func ArtifactRules(s settings.Settings, config settings.BuildConfig) []Rule {
	var rules []Rule
	switch s.OS {
	case settings.Windows:
		rules = []Rule{
			{Patterns: LibraryPatterns(s.OS), Dest: LibDir},
			{Patterns: []string{"*.dll", "*.exe"}, Dest: BinDir},
		}
	default:
		rules = []Rule{
			{Patterns: LibraryPatterns(s.OS), Dest: LibDir},
			{Patterns: []string{"*"}, Dest: BinDir, Under: BinDir},
		}
	}
	if s.IsMSVC() && config.HasDebugInfo() {
		rules = append(rules, Rule{Patterns: []string{"*.pdb"}, Dest: LibDir, Origin: FromBuild})
	}
	return rules
}
