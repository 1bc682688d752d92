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

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/settings"
)

// Report is the outcome of Verify.
type Report struct {
	Headers  int                          `json:"headers" yaml:"headers"`
	Libs     map[settings.BuildConfig]int `json:"libs" yaml:"libs"`
	Bins     map[settings.BuildConfig]int `json:"bins,omitempty" yaml:"bins,omitempty"`
	Problems []string                     `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// OK reports whether no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Verify checks the package folder: include/ holds at least one header,
// every lib/<config> holds the platform's library files, and for shared
// Windows builds every bin/<config> holds a DLL. The report is returned
// together with a NOT_FOUND error when anything is missing.
func Verify(pkgDir string, os settings.OS, configs []settings.BuildConfig, shared bool) (*Report, error) {
	r := &Report{
		Libs: map[settings.BuildConfig]int{},
		Bins: map[settings.BuildConfig]int{},
	}

	var err error
	r.Headers, err = count(filepath.Join(pkgDir, IncludeDir), HeaderPatterns)
	if err != nil {
		return nil, err
	}
	if r.Headers == 0 {
		r.Problems = append(r.Problems, "include/ contains no headers")
	}

	for _, c := range configs {
		libDir := ConfigDir(pkgDir, LibDir, c)
		n, err := count(libDir, LibraryPatterns(os))
		if err != nil {
			return nil, err
		}
		r.Libs[c] = n
		if n == 0 {
			r.Problems = append(r.Problems, fmt.Sprintf("lib/%s has no %s files", c, strings.Join(LibraryPatterns(os), ", ")))
		}

		if shared && os == settings.Windows {
			n, err := count(ConfigDir(pkgDir, BinDir, c), SharedLibraryPatterns(os))
			if err != nil {
				return nil, err
			}
			r.Bins[c] = n
			if n == 0 {
				r.Problems = append(r.Problems, fmt.Sprintf("bin/%s has no .dll files", c))
			}
		}
	}

	if !r.OK() {
		return r, errors.NewWithContext(errors.ErrCodeNotFound, "package is missing expected artifacts",
			map[string]any{"package": pkgDir, "problems": r.Problems})
	}
	return r, nil
}

func count(dir string, patterns []string) (int, error) {
	n := 0
	err := walkFiles(dir, func(name string) {
		if matchAny(name, patterns) {
			n++
		}
	})
	return n, err
}
