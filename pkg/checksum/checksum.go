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

package checksum

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
)

// ChecksumFileName is the standard name for checksum files.
const ChecksumFileName = "checksums.txt"

// Entry is one manifest line.
type Entry struct {
	Path   string `json:"path" yaml:"path"`
	Digest string `json:"digest" yaml:"digest"`
}

// GenerateChecksums writes checksums.txt into dir for files, given as paths
// relative to dir, and returns the entries written.
func GenerateChecksums(ctx context.Context, dir string, files []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "checksum generation cancelled", err)
		}
		if filepath.ToSlash(rel) == ChecksumFileName {
			continue
		}
		digest, err := fileDigest(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Path: filepath.ToSlash(rel), Digest: digest})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })
	entries = slices.CompactFunc(entries, func(a, b Entry) bool { return a.Path == b.Path })

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s  %s\n", e.Digest, e.Path)
	}

	path := GetChecksumFilePath(dir)
	if err := os.WriteFile(path, []byte(sb.String()), defaults.FilePermissions); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to write checksums", err)
	}

	slog.Debug("checksums generated",
		"file_count", len(entries),
		"path", path,
	)
	return entries, nil
}

// ReadChecksums parses the checksums.txt in dir.
func ReadChecksums(dir string) ([]Entry, error) {
	f, err := os.Open(GetChecksumFilePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewWithContext(errors.ErrCodeNotFound, "package has no checksums.txt",
				map[string]any{"dir": dir})
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to open checksums", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		digest, path, ok := strings.Cut(line, "  ")
		if !ok || len(digest) != sha256.Size*2 {
			return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "malformed checksum line",
				map[string]any{"line": n})
		}
		entries = append(entries, Entry{Path: path, Digest: digest})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read checksums", err)
	}
	return entries, nil
}

// VerifyChecksums recomputes every digest listed in dir's checksums.txt and
// returns the paths that are missing or differ, sorted.
func VerifyChecksums(ctx context.Context, dir string) ([]string, error) {
	entries, err := ReadChecksums(dir)
	if err != nil {
		return nil, err
	}
	var bad []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "checksum verification cancelled", err)
		}
		digest, err := fileDigest(filepath.Join(dir, filepath.FromSlash(e.Path)))
		if err != nil || digest != e.Digest {
			bad = append(bad, e.Path)
		}
	}
	slices.Sort(bad)
	return bad, nil
}

// GetChecksumFilePath returns the full path to the checksums.txt file
// in the given package directory.
func GetChecksumFilePath(dir string) string {
	return filepath.Join(dir, ChecksumFileName)
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeNotFound, "failed to open file for checksum", err,
			map[string]any{"path": path})
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("failed to read %s for checksum", path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
