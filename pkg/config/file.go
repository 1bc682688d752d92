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

package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/biovault/pkgsmith/pkg/errors"
)

// DefaultFileName is looked up in the user's home directory.
const DefaultFileName = ".pkgsmith.yaml"

// File is the on-disk configuration document.
type File struct {
	Workspace string                       `yaml:"workspace,omitempty"`
	Jobs      int                          `yaml:"jobs,omitempty"`
	Verbose   *bool                        `yaml:"verbose,omitempty"`
	BLASRoot  string                       `yaml:"blasRoot,omitempty"`
	Archive   string                       `yaml:"archive,omitempty"`
	Checksums *bool                        `yaml:"checksums,omitempty"`
	Verify    *bool                        `yaml:"verify,omitempty"`
	Settings  map[string]string            `yaml:"settings,omitempty"`
	Options   map[string]map[string]string `yaml:"options,omitempty"`
}

// DefaultPath returns $HOME/.pkgsmith.yaml, or empty when there is no home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultFileName)
}

// LoadFile reads a configuration file. When optional is set a missing file
// yields an empty File.
func LoadFile(path string, optional bool) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && optional {
			return &File{}, nil
		}
		return nil, errors.WrapWithContext(errors.ErrCodeNotFound, "failed to read config file", err,
			map[string]any{"path": path})
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest, "failed to parse config file", err,
			map[string]any{"path": path})
	}
	return &f, nil
}

// ConfigOptions converts the file into Config options. Only fields present
// in the file produce options.
func (f *File) ConfigOptions() []Option {
	var opts []Option
	if f.Workspace != "" {
		opts = append(opts, WithWorkspace(f.Workspace))
	}
	if f.Jobs != 0 {
		opts = append(opts, WithJobs(f.Jobs))
	}
	if f.Verbose != nil {
		opts = append(opts, WithVerbose(*f.Verbose))
	}
	if f.BLASRoot != "" {
		opts = append(opts, WithBLASRoot(f.BLASRoot))
	}
	if f.Archive != "" {
		opts = append(opts, WithArchiveFormat(f.Archive))
	}
	if f.Checksums != nil {
		opts = append(opts, WithIncludeChecksums(*f.Checksums))
	}
	if f.Verify != nil {
		opts = append(opts, WithVerifyLayout(*f.Verify))
	}
	if len(f.Settings) > 0 {
		opts = append(opts, WithSettingOverrides(f.Settings))
	}
	if len(f.Options) > 0 {
		opts = append(opts, WithOptionOverrides(f.Options))
	}
	return opts
}

// FromEnv returns options for PKGSMITH_WORKSPACE and BLAS_ROOT. BLAS_ROOT is
// read once here; recipes never consult the environment themselves.
func FromEnv() []Option {
	var opts []Option
	if ws := os.Getenv(EnvWorkspace); ws != "" {
		opts = append(opts, WithWorkspace(ws))
	}
	if br := os.Getenv(EnvBLASRoot); br != "" {
		opts = append(opts, WithBLASRoot(br))
	}
	return opts
}
