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
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
)

// Copy copies every file under src whose base name matches one of patterns
// into dst. With keepPath the path relative to src is preserved; otherwise
// files land directly in dst. Relative symlinks that stay inside the copied
// set (liblz4.so -> liblz4.so.1) are recreated as links. A missing src copies
// nothing. It returns the destination paths relative to dst, sorted.
func Copy(src, dst string, patterns []string, keepPath bool) ([]string, error) {
	if !Exists(src) {
		return nil, nil
	}

	var copied []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !matchAny(d.Name(), patterns) {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if !keepPath {
			rel = d.Name()
		}
		if err := copyEntry(path, filepath.Join(dst, rel), d); err != nil {
			return err
		}
		copied = append(copied, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInternal, "copy failed", err,
			map[string]any{"src": src, "dst": dst})
	}
	slices.Sort(copied)
	return copied, nil
}

// CopyTree copies the whole tree under src into dst, merging with existing
// content. It returns the number of files copied.
func CopyTree(src, dst string) (int, error) {
	files, err := Copy(src, dst, []string{"*"}, true)
	return len(files), err
}

// Move relocates src to dst. When dst already exists the trees are merged and
// src is removed.
func Move(src, dst string) error {
	if !Exists(src) {
		return errors.NewWithContext(errors.ErrCodeNotFound, "move source does not exist",
			map[string]any{"src": src})
	}
	if err := os.MkdirAll(filepath.Dir(dst), defaults.DirPermissions); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create move target parent", err)
	}
	if !Exists(dst) {
		if err := os.Rename(src, dst); err == nil {
			return nil
		}
	}
	if _, err := CopyTree(src, dst); err != nil {
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to remove move source", err)
	}
	return nil
}

// RemoveStrayFiles deletes the regular files directly inside dir, leaving
// subdirectories alone, and returns the removed names.
func RemoveStrayFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to list directory", err)
	}
	var removed []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("failed to remove %s", e.Name()), err)
		}
		removed = append(removed, e.Name())
	}
	if len(removed) > 0 {
		slog.Debug("removed stray files", slog.String("dir", dir), slog.Any("files", removed))
	}
	return removed, nil
}

// walkFiles calls fn with the base name of every non-directory entry under
// dir. A missing dir is empty.
func walkFiles(dir string, fn func(name string)) error {
	if !Exists(dir) {
		return nil
	}
	return filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			fn(d.Name())
		}
		return nil
	})
}

func matchAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

func copyEntry(src, dst string, d fs.DirEntry) error {
	if err := os.MkdirAll(filepath.Dir(dst), defaults.DirPermissions); err != nil {
		return err
	}
	if d.Type()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(target) && filepath.Base(target) == target {
			_ = os.Remove(dst)
			return os.Symlink(target, dst)
		}
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
