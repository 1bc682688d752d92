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

package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/biovault/pkgsmith/pkg/errors"
)

const excerptLen = 60

// Patch is an exact-text replacement in one file, relative to a source root.
type Patch struct {
	File string `json:"file" yaml:"file"`
	Old  string `json:"old" yaml:"old"`
	New  string `json:"new" yaml:"new"`
	// Reason is a short note shown in logs.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ReplaceInFile replaces every occurrence of oldText with newText in path. If oldText is
// not present the file is left untouched and a PATCH_FAILED error names the
// file and the expected text.
func ReplaceInFile(path, oldText, newText string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodePatchFailed, "patch target missing", err,
			map[string]any{"file": path})
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("failed to read %s", path), err)
	}

	content := string(b)
	if !strings.Contains(content, oldText) {
		return errors.NewWithContext(errors.ErrCodePatchFailed,
			fmt.Sprintf("expected text not found in %s", path),
			map[string]any{"file": path, "expected": excerpt(oldText)})
	}

	content = strings.ReplaceAll(content, oldText, newText)
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// ApplyPatches applies patches in order under root and stops at the first failure.
func ApplyPatches(root string, patches []Patch) error {
	for i, p := range patches {
		path := filepath.Join(root, filepath.FromSlash(p.File))
		if err := ReplaceInFile(path, p.Old, p.New); err != nil {
			return fmt.Errorf("patch %d/%d: %w", i+1, len(patches), err)
		}
		slog.Debug("patched source file", slog.String("file", p.File), slog.String("reason", p.Reason))
	}
	return nil
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > excerptLen {
		s = s[:excerptLen] + "..."
	}
	return s
}
