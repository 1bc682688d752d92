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

// Package packageid computes package identities. An identity is the recipe
// name and version plus the settings and options a package was built for;
// its fingerprint decides whether two builds are the same package. Recipes
// remove settings (build_type, compiler.runtime) so that one package folder
// holding every configuration satisfies requests for any of them.
package packageid

import (
	"encoding/hex"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/header"
	"github.com/biovault/pkgsmith/pkg/settings"
)

// FileName is the metadata file written into the package folder.
const FileName = "pkginfo.yaml"

// fingerprintKey separates package fingerprints from any other BLAKE3 use.
// ASCII "pkgsmith.package.id" zero-padded to 32 bytes.
var fingerprintKey = [32]byte{
	'p', 'k', 'g', 's', 'm', 'i', 't', 'h', '.', 'p', 'a', 'c', 'k', 'a', 'g', 'e',
	'.', 'i', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Info is the identity of one package.
type Info struct {
	Name     string            `json:"name" yaml:"name"`
	Version  string            `json:"version" yaml:"version"`
	Settings map[string]string `json:"settings" yaml:"settings"`
	Options  map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
	// Removed lists settings dropped from the identity, in removal order.
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// New returns the full identity before any normalization.
func New(name, version string, s settings.Settings, options map[string]string) *Info {
	return &Info{
		Name:     name,
		Version:  version,
		Settings: s.Values(),
		Options:  maps.Clone(options),
	}
}

// RemoveSetting drops key from the identity. Removing an absent key is
// recorded anyway so the normalization stays visible in metadata.
func (i *Info) RemoveSetting(key string) {
	delete(i.Settings, key)
	if !slices.Contains(i.Removed, key) {
		i.Removed = append(i.Removed, key)
	}
}

// Setting returns a setting value.
func (i *Info) Setting(key string) string {
	return i.Settings[key]
}

// Lines renders the identity as sorted key=value lines, the fingerprint input.
func (i *Info) Lines() []string {
	lines := []string{"name=" + i.Name, "version=" + i.Version}
	for k, v := range i.Settings {
		lines = append(lines, fmt.Sprintf("settings.%s=%s", k, v))
	}
	for k, v := range i.Options {
		lines = append(lines, fmt.Sprintf("options.%s=%s", k, v))
	}
	slices.Sort(lines)
	return lines
}

// Fingerprint is the hex BLAKE3 keyed hash of Lines.
func (i *Info) Fingerprint() string {
	h, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("packageid: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write([]byte(strings.Join(i.Lines(), "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// Record is the pkginfo.yaml document.
type Record struct {
	header.Header `yaml:",inline"`

	Info        *Info          `json:"info" yaml:"info"`
	PackageID   string         `json:"packageId" yaml:"packageId"`
	Properties  map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	Configs     []string       `json:"configs,omitempty" yaml:"configs,omitempty"`
	Libraries   []string       `json:"libraries,omitempty" yaml:"libraries,omitempty"`
	LibDirs     []string       `json:"libdirs,omitempty" yaml:"libdirs,omitempty"`
	BinDirs     []string       `json:"bindirs,omitempty" yaml:"bindirs,omitempty"`
	IncludeDirs []string       `json:"includedirs,omitempty" yaml:"includedirs,omitempty"`
}

// NewRecord wraps info with its fingerprint.
func NewRecord(info *Info) *Record {
	rec := &Record{
		Info:        info,
		PackageID:   info.Fingerprint(),
		LibDirs:     []string{"lib/$<CONFIG>"},
		BinDirs:     []string{"bin/$<CONFIG>"},
		IncludeDirs: []string{"include"},
	}
	rec.Init(header.KindPackageInfo, header.APIVersion, "")
	return rec
}

// Save writes the record as pkginfo.yaml into dir.
func (r *Record) Save(dir string) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to serialize package info", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), b, defaults.FilePermissions); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write package info", err)
	}
	return nil
}

// Load reads pkginfo.yaml from dir.
func Load(dir string) (*Record, error) {
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewWithContext(errors.ErrCodeNotFound, "package info not found, run the package stage first",
				map[string]any{"path": path})
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read package info", err)
	}
	var r Record
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to parse package info", err)
	}
	if err := r.Check(header.KindPackageInfo); err != nil {
		return nil, err
	}
	if r.Info == nil {
		return nil, errors.New(errors.ErrCodeInternal, "package info has no identity")
	}
	return &r, nil
}
