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
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/settings"
)

// Files written by Generate into the build folder.
const (
	ToolchainFile = "pkgsmith_toolchain.cmake"
	StateFile     = "toolchain.yaml"
	DepsFile      = "deps.cmake"
)

//go:embed templates/toolchain.cmake.tmpl
var toolchainTemplate string

var tmpl = template.Must(template.New("toolchain").
	Funcs(template.FuncMap{"quote": cmakeQuote}).
	Parse(toolchainTemplate))

// Variable is one CMake cache variable.
type Variable struct {
	Name  string
	Value string
}

// Toolchain is the generated CMake configuration for one build folder. It is
// persisted as toolchain.yaml so later stages reuse the same generator.
type Toolchain struct {
	Name           string                 `json:"name" yaml:"name"`
	Generator      string                 `json:"generator,omitempty" yaml:"generator,omitempty"`
	Settings       settings.Settings      `json:"settings" yaml:"settings"`
	Configurations []settings.BuildConfig `json:"configurations,omitempty" yaml:"configurations,omitempty"`
	Variables      map[string]string      `json:"variables" yaml:"variables"`
	// Requirements maps a dependency name to its package root.
	Requirements map[string]string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
}

// New returns a toolchain for s using the OS generator policy. The
// configuration list is pinned in the cache only for Ninja Multi-Config,
// which otherwise defaults to Debug;Release;RelWithDebInfo plus MinSizeRel.
// Install directories separate libraries and executables per configuration.
func New(name string, s settings.Settings, configs []settings.BuildConfig) *Toolchain {
	t := &Toolchain{
		Name:         name,
		Generator:    SelectGenerator(s.OS),
		Settings:     s,
		Variables:    map[string]string{},
		Requirements: map[string]string{},
	}
	if s.OS == settings.Linux {
		t.Configurations = slices.Clone(configs)
	}
	t.Set("CMAKE_INSTALL_LIBDIR", "lib/$<CONFIG>")
	t.Set("CMAKE_INSTALL_BINDIR", "bin/$<CONFIG>")
	t.Set("CMAKE_INSTALL_INCLUDEDIR", "include")
	return t
}

// Set defines a cache variable, replacing any previous value.
func (t *Toolchain) Set(key, value string) {
	t.Variables[key] = value
}

// SetBool defines an ON/OFF cache variable.
func (t *Toolchain) SetBool(key string, on bool) {
	if on {
		t.Set(key, "ON")
		return
	}
	t.Set(key, "OFF")
}

// Require records that <name>_ROOT points at root in deps.cmake.
func (t *Toolchain) Require(name, root string) {
	t.Requirements[name] = root
}

// SortedVariables returns the cache variables ordered by name.
func (t *Toolchain) SortedVariables() []Variable {
	out := make([]Variable, 0, len(t.Variables))
	for k, v := range t.Variables {
		out = append(out, Variable{Name: k, Value: v})
	}
	slices.SortFunc(out, func(a, b Variable) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// ConfigurationList renders Configurations as a CMake list.
func (t *Toolchain) ConfigurationList() string {
	return settings.JoinConfigs(t.Configurations)
}

// MSVCRuntime maps compiler.runtime (MD, MT, MDd, MTd) onto
// CMAKE_MSVC_RUNTIME_LIBRARY; empty when the compiler is not MSVC.
func (t *Toolchain) MSVCRuntime() string {
	if !t.Settings.IsMSVC() || t.Settings.CompilerRuntime == "" {
		return ""
	}
	rt := strings.TrimSuffix(t.Settings.CompilerRuntime, "d")
	lib := "MultiThreaded$<$<CONFIG:Debug>:Debug>"
	if rt == "MD" {
		lib += "DLL"
	}
	return lib
}

// DepsFile is exposed to the template.
func (t *Toolchain) DepsFile() string {
	return DepsFile
}

// FilePath returns the toolchain file path inside dir.
func FilePath(dir string) string {
	return filepath.Join(dir, ToolchainFile)
}

// Generate writes the toolchain file, the persisted description and the
// dependency file into dir.
func (t *Toolchain) Generate(dir string) error {
	if err := os.MkdirAll(dir, defaults.DirPermissions); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create build directory", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to render toolchain", err)
	}
	if err := writeFile(filepath.Join(dir, ToolchainFile), buf.Bytes()); err != nil {
		return err
	}

	if err := writeFile(filepath.Join(dir, DepsFile), t.renderDeps()); err != nil {
		return err
	}

	state, err := yaml.Marshal(t)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to serialize toolchain", err)
	}
	if err := writeFile(filepath.Join(dir, StateFile), state); err != nil {
		return err
	}

	slog.Debug("toolchain generated",
		slog.String("dir", dir),
		slog.String("generator", t.Generator),
		slog.Int("variables", len(t.Variables)))
	return nil
}

func (t *Toolchain) renderDeps() []byte {
	names := make([]string, 0, len(t.Requirements))
	for n := range t.Requirements {
		names = append(names, n)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("# Generated by pkgsmith. Do not edit.\n")
	for _, n := range names {
		root := cmakeQuote(t.Requirements[n])
		fmt.Fprintf(&b, "set(%s_ROOT %s)\n", n, root)
		fmt.Fprintf(&b, "list(PREPEND CMAKE_PREFIX_PATH %s)\n", root)
	}
	return []byte(b.String())
}

// Load reads the toolchain persisted in dir by Generate.
func Load(dir string) (*Toolchain, error) {
	path := filepath.Join(dir, StateFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewWithContext(errors.ErrCodeNotFound,
				"toolchain not generated, run the generate stage first",
				map[string]any{"path": path})
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read toolchain", err)
	}
	var t Toolchain
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to parse toolchain", err)
	}
	if t.Variables == nil {
		t.Variables = map[string]string{}
	}
	if t.Requirements == nil {
		t.Requirements = map[string]string{}
	}
	return &t, nil
}

func writeFile(path string, b []byte) error {
	if err := os.WriteFile(path, b, defaults.FilePermissions); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("failed to write %s", filepath.Base(path)), err)
	}
	return nil
}

// cmakeQuote renders s as a quoted CMake argument. Backslashes become
// forward slashes since every value written here is a path or a flag.
func cmakeQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, "/")
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
