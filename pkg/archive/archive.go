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

package archive

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
)

// epoch is the modification time stamped on every entry.
var epoch = time.Unix(0, 0).UTC()

// Info describes a written archive.
type Info struct {
	Path   string `json:"path" yaml:"path"`
	Format Format `json:"format" yaml:"format"`
	// Files counts regular files and symlinks.
	Files int   `json:"files" yaml:"files"`
	Size  int64 `json:"size" yaml:"size"`
	// Digest is the hex SHA256 of the archive bytes.
	Digest string `json:"digest" yaml:"digest"`
}

// FileName returns the conventional archive name for a package.
func FileName(name, version, packageID string, f Format) string {
	if len(packageID) > 12 {
		packageID = packageID[:12]
	}
	return fmt.Sprintf("%s-%s-%s%s", name, version, packageID, f.Ext())
}

// Create packs srcDir into dst. Entries are named prefix/<relative path>,
// or just the relative path when prefix is empty. dst is written atomically.
func Create(ctx context.Context, srcDir, dst string, f Format, prefix string) (*Info, error) {
	if _, err := os.Stat(srcDir); err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeNotFound, "archive source not found", err,
			map[string]any{"dir": srcDir})
	}
	if err := os.MkdirAll(filepath.Dir(dst), defaults.DirPermissions); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create archive directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".archive-*")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create archive", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(tmp, h)}
	files, err := write(ctx, srcDir, counter, f, prefix)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = errors.Wrap(errors.ErrCodeInternal, "failed to close archive", closeErr)
	}
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to move archive into place", err)
	}
	if err := os.Chmod(dst, defaults.FilePermissions); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to set archive permissions", err)
	}

	info := &Info{
		Path:   dst,
		Format: f,
		Files:  files,
		Size:   counter.n,
		Digest: hex.EncodeToString(h.Sum(nil)),
	}
	slog.Debug("archive written",
		"path", dst,
		"format", string(f),
		"files", files,
		"size_bytes", info.Size,
	)
	return info, nil
}

func write(ctx context.Context, srcDir string, w io.Writer, f Format, prefix string) (int, error) {
	cw, err := f.compressor(w)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to create compressor", err)
	}
	tw := tar.NewWriter(cw)

	files := 0
	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)
		if prefix != "" {
			name = path.Join(prefix, name)
		}
		hdr, err := header(p, name, d)
		if err != nil || hdr == nil {
			return err
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if hdr.Typeflag == tar.TypeDir {
			return nil
		}
		files++
		if hdr.Typeflag != tar.TypeReg {
			return nil
		}
		return copyFile(tw, p)
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return 0, errors.Wrap(errors.ErrCodeTimeout, "archive cancelled", walkErr)
		}
		return 0, errors.Wrap(errors.ErrCodeInternal, "failed to write archive", walkErr)
	}
	if err := tw.Close(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, "failed to finish tar stream", err)
	}
	if err := cw.Close(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, "failed to finish compression", err)
	}
	return files, nil
}

// header builds a normalized tar header; other file types are skipped.
func header(p, name string, d fs.DirEntry) (*tar.Header, error) {
	fi, err := d.Info()
	if err != nil {
		return nil, err
	}
	hdr := &tar.Header{
		Name:    name,
		ModTime: epoch,
		Format:  tar.FormatPAX,
	}
	switch {
	case fi.IsDir():
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"
		hdr.Mode = 0o755
	case fi.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(p)
		if err != nil {
			return nil, err
		}
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = filepath.ToSlash(target)
		hdr.Mode = 0o777
	case fi.Mode().IsRegular():
		hdr.Typeflag = tar.TypeReg
		hdr.Size = fi.Size()
		hdr.Mode = 0o644
		if fi.Mode()&0o111 != 0 {
			hdr.Mode = 0o755
		}
	default:
		slog.Warn("skipping special file", "path", p)
		return nil, nil
	}
	return hdr, nil
}

func copyFile(w io.Writer, p string) error {
	src, err := os.Open(p)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(w, src)
	return err
}

// Extract unpacks the archive at src into dst, inferring the format from
// the file name, and returns the extracted regular files and symlinks as
// slash-separated paths. Entries escaping dst are rejected.
func Extract(ctx context.Context, src, dst string) ([]string, error) {
	f, err := FormatOf(src)
	if err != nil {
		return nil, err
	}
	in, err := os.Open(src)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeNotFound, "archive not found", err,
			map[string]any{"path": src})
	}
	defer in.Close()

	dr, err := f.decompressor(in)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to open archive stream", err)
	}
	defer dr.Close()

	var out []string
	tr := tar.NewReader(dr)
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "extract cancelled", err)
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "corrupt archive", err)
		}
		target, err := safeJoin(dst, hdr.Name)
		if err != nil {
			return nil, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, defaults.DirPermissions)
		case tar.TypeSymlink:
			err = extractSymlink(dst, target, hdr.Linkname)
			out = append(out, strings.TrimSuffix(hdr.Name, "/"))
		case tar.TypeReg:
			err = extractFile(tr, target, fs.FileMode(hdr.Mode).Perm())
			out = append(out, hdr.Name)
		default:
			slog.Warn("skipping unsupported archive entry", "name", hdr.Name)
		}
		if err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeInternal, "failed to extract entry", err,
				map[string]any{"name": hdr.Name})
		}
	}
	return out, nil
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if path.IsAbs(name) || !within(root, target) {
		return "", errors.NewWithContext(errors.ErrCodeInvalidRequest, "archive entry escapes destination",
			map[string]any{"name": name})
	}
	return target, nil
}

func extractSymlink(root, target, link string) error {
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(link))
	if filepath.IsAbs(link) || !within(root, resolved) {
		return fmt.Errorf("symlink %s points outside the archive", link)
	}
	if err := os.MkdirAll(filepath.Dir(target), defaults.DirPermissions); err != nil {
		return err
	}
	_ = os.Remove(target)
	return os.Symlink(link, target)
}

func extractFile(r io.Reader, target string, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), defaults.DirPermissions); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
