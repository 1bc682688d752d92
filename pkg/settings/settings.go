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

// Package settings models the build settings a package is produced for:
// operating system, compiler, compiler version and runtime, build type and
// architecture, plus the fixed set of build configurations.
package settings

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/biovault/pkgsmith/pkg/errors"
)

// OS is a target operating system name.
type OS string

const (
	Windows OS = "Windows"
	Macos   OS = "Macos"
	Linux   OS = "Linux"
)

// Compiler names as they appear in package identities.
const (
	GCC          = "gcc"
	Clang        = "clang"
	AppleClang   = "apple-clang"
	VisualStudio = "Visual Studio"
	MSVC         = "msvc"
)

// Setting keys used in package identities.
const (
	KeyOS              = "os"
	KeyArch            = "arch"
	KeyCompiler        = "compiler"
	KeyCompilerVersion = "compiler.version"
	KeyCompilerRuntime = "compiler.runtime"
	KeyBuildType       = "build_type"
)

// BuildConfig is a named build profile.
type BuildConfig string

const (
	Debug          BuildConfig = "Debug"
	Release        BuildConfig = "Release"
	RelWithDebInfo BuildConfig = "RelWithDebInfo"
)

// AllConfigs is every configuration in build order.
var AllConfigs = []BuildConfig{Debug, Release, RelWithDebInfo}

// HasDebugInfo reports whether the configuration emits debug symbols.
func (c BuildConfig) HasDebugInfo() bool {
	return c == Debug || c == RelWithDebInfo
}

// JoinConfigs renders configurations as a CMake list ("Debug;Release").
func JoinConfigs(configs []BuildConfig) string {
	s := make([]string, len(configs))
	for i, c := range configs {
		s[i] = string(c)
	}
	return strings.Join(s, ";")
}

// ParseBuildConfig accepts any casing of a configuration name.
func ParseBuildConfig(s string) (BuildConfig, error) {
	for _, c := range AllConfigs {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidRequest,
		fmt.Sprintf("unknown build configuration %q (want one of %s)", s, JoinConfigs(AllConfigs)))
}

// Settings is the build-settings part of a package identity.
type Settings struct {
	OS              OS     `json:"os" yaml:"os"`
	Arch            string `json:"arch" yaml:"arch"`
	Compiler        string `json:"compiler" yaml:"compiler"`
	CompilerVersion string `json:"compilerVersion,omitempty" yaml:"compilerVersion,omitempty"`
	CompilerRuntime string `json:"compilerRuntime,omitempty" yaml:"compilerRuntime,omitempty"`
	BuildType       string `json:"buildType,omitempty" yaml:"buildType,omitempty"`
}

// Detect returns settings for the host the process runs on.
func Detect() Settings {
	return ForPlatform(runtime.GOOS, runtime.GOARCH)
}

// ForPlatform maps a Go GOOS/GOARCH pair to settings with the platform's
// default compiler.
func ForPlatform(goos, goarch string) Settings {
	s := Settings{Arch: archName(goarch), BuildType: string(Release)}
	switch goos {
	case "windows":
		s.OS = Windows
		s.Compiler = VisualStudio
		s.CompilerRuntime = "MD"
	case "darwin":
		s.OS = Macos
		s.Compiler = AppleClang
	default:
		s.OS = Linux
		s.Compiler = GCC
	}
	return s
}

func archName(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86"
	case "arm64":
		return "armv8"
	case "arm":
		return "armv7"
	default:
		return goarch
	}
}

// ParseOS normalizes user input ("linux", "MACOS", "darwin") to an OS.
func ParseOS(s string) (OS, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "darwin", "macos", "osx":
		return Macos, nil
	}
	o := OS(cases.Title(language.Und).String(strings.TrimSpace(s)))
	switch o {
	case Windows, Macos, Linux:
		return o, nil
	}
	return "", errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("unsupported os %q", s))
}

// IsVisualStudio reports whether the compiler is the Visual Studio family
// whose runtime setting is dropped from package identities.
func (s Settings) IsVisualStudio() bool {
	return s.Compiler == VisualStudio
}

// IsMSVC reports whether the compiler produces .pdb debug symbols.
func (s Settings) IsMSVC() bool {
	return s.Compiler == VisualStudio || s.Compiler == MSVC
}

// CrossBuilding reports whether s targets a different os or arch than host.
func (s Settings) CrossBuilding(host Settings) bool {
	return s.OS != host.OS || s.Arch != host.Arch
}

// Set applies one key=value override. Keys are the identity keys (os,
// arch, compiler, compiler.version, compiler.runtime, build_type).
func (s *Settings) Set(key, value string) error {
	switch key {
	case KeyOS:
		o, err := ParseOS(value)
		if err != nil {
			return err
		}
		s.OS = o
	case KeyArch:
		s.Arch = value
	case KeyCompiler:
		s.Compiler = value
	case KeyCompilerVersion:
		s.CompilerVersion = value
	case KeyCompilerRuntime:
		s.CompilerRuntime = value
	case KeyBuildType:
		c, err := ParseBuildConfig(value)
		if err != nil {
			return err
		}
		s.BuildType = string(c)
	default:
		return errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("unknown setting %q", key))
	}
	return nil
}

// Apply applies overrides in sorted key order.
func (s *Settings) Apply(overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := s.Set(k, overrides[k]); err != nil {
			return err
		}
	}
	return nil
}

// Values returns the non-empty settings keyed by identity key.
func (s Settings) Values() map[string]string {
	m := map[string]string{
		KeyOS:              string(s.OS),
		KeyArch:            s.Arch,
		KeyCompiler:        s.Compiler,
		KeyCompilerVersion: s.CompilerVersion,
		KeyCompilerRuntime: s.CompilerRuntime,
		KeyBuildType:       s.BuildType,
	}
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}

// ExeSuffix is the executable file suffix for the target OS.
func (s Settings) ExeSuffix() string {
	if s.OS == Windows {
		return ".exe"
	}
	return ""
}
