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
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/biovault/pkgsmith/pkg/errors"
)

// Format identifies a compressed tarball flavour.
type Format string

// Supported formats.
const (
	FormatTarGz  Format = "tar.gz"
	FormatTarZst Format = "tar.zst"
	FormatTarLZ4 Format = "tar.lz4"
	FormatTarXz  Format = "tar.xz"

	// DefaultFormat is used when none is configured.
	DefaultFormat = FormatTarGz
)

// Formats lists the supported formats.
var Formats = []Format{FormatTarGz, FormatTarZst, FormatTarLZ4, FormatTarXz}

// ParseFormat resolves a format name; a leading dot and the short names
// gz, zst, lz4 and xz are accepted. An empty name yields DefaultFormat.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	if s == "" {
		return DefaultFormat, nil
	}
	if !strings.HasPrefix(s, "tar.") {
		s = "tar." + s
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("unsupported archive format %q", s))
}

// FormatOf infers the format from a file name.
func FormatOf(name string) (Format, error) {
	for _, f := range Formats {
		if strings.HasSuffix(name, "."+string(f)) {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("cannot infer archive format of %q", name))
}

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// MediaType returns the OCI layer media type for the format.
func (f Format) MediaType() string {
	switch f {
	case FormatTarGz:
		return "application/vnd.oci.image.layer.v1.tar+gzip"
	case FormatTarZst:
		return "application/vnd.oci.image.layer.v1.tar+zstd"
	case FormatTarLZ4:
		return "application/vnd.pkgsmith.package.v1.tar+lz4"
	case FormatTarXz:
		return "application/vnd.pkgsmith.package.v1.tar+xz"
	}
	return "application/octet-stream"
}

// compressor wraps w in the format's encoder. Closing the result flushes the
// encoder but leaves w open.
func (f Format) compressor(w io.Writer) (io.WriteCloser, error) {
	switch f {
	case FormatTarGz:
		gw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case FormatTarZst:
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1))
	case FormatTarLZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, err
		}
		return lw, nil
	case FormatTarXz:
		return xz.NewWriter(w)
	}
	return nil, errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("unsupported archive format %q", f))
}

// decompressor wraps r in the format's decoder.
func (f Format) decompressor(r io.Reader) (io.ReadCloser, error) {
	switch f {
	case FormatTarGz:
		return gzip.NewReader(r)
	case FormatTarZst:
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case FormatTarLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case FormatTarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("unsupported archive format %q", f))
}
