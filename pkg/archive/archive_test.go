package archive

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biovault/pkgsmith/pkg/errors"
)

func makePackage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"include/foo/foo.h":             "#pragma once\n",
		"lib/Release/libfoo.so.1":       "elf",
		"lib/cmake/foo/fooConfig.cmake": "set(foo_FOUND 1)\n",
		"bin/Release/footool":           "#!/bin/sh\n",
		"pkginfo.yaml":                  "name: foo\n",
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	require.NoError(t, os.Chmod(filepath.Join(dir, "bin", "Release", "footool"), 0o755))
	require.NoError(t, os.Symlink("libfoo.so.1", filepath.Join(dir, "lib", "Release", "libfoo.so")))
	return dir
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTarGz},
		{in: "tar.gz", want: FormatTarGz},
		{in: ".tar.zst", want: FormatTarZst},
		{in: "lz4", want: FormatTarLZ4},
		{in: "XZ", want: FormatTarXz},
		{in: "zip", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "lz4-1.10.0-0123456789ab.tar.zst",
		FileName("lz4", "1.10.0", "0123456789abcdef", FormatTarZst))
	assert.Equal(t, "lz4-1.10.0-abc.tar.gz", FileName("lz4", "1.10.0", "abc", FormatTarGz))

	f, err := FormatOf("/tmp/" + FileName("faiss", "1.8.0", "abc", FormatTarXz))
	require.NoError(t, err)
	assert.Equal(t, FormatTarXz, f)
}

func TestRoundTrip(t *testing.T) {
	src := makePackage(t)
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			dst := filepath.Join(t.TempDir(), "foo"+f.Ext())
			info, err := Create(context.Background(), src, dst, f, "foo")
			require.NoError(t, err)
			assert.Equal(t, 6, info.Files)
			assert.Len(t, info.Digest, 64)

			st, err := os.Stat(dst)
			require.NoError(t, err)
			assert.Equal(t, st.Size(), info.Size)

			out := t.TempDir()
			files, err := Extract(context.Background(), dst, out)
			require.NoError(t, err)
			assert.Contains(t, files, "foo/include/foo/foo.h")
			assert.Contains(t, files, "foo/lib/Release/libfoo.so")

			data, err := os.ReadFile(filepath.Join(out, "foo", "lib", "cmake", "foo", "fooConfig.cmake"))
			require.NoError(t, err)
			assert.Equal(t, "set(foo_FOUND 1)\n", string(data))

			link, err := os.Readlink(filepath.Join(out, "foo", "lib", "Release", "libfoo.so"))
			require.NoError(t, err)
			assert.Equal(t, "libfoo.so.1", link)

			tool, err := os.Stat(filepath.Join(out, "foo", "bin", "Release", "footool"))
			require.NoError(t, err)
			assert.NotZero(t, tool.Mode()&0o100)
		})
	}
}

func TestCreateIsReproducible(t *testing.T) {
	src := makePackage(t)
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			dir := t.TempDir()
			a, err := Create(context.Background(), src, filepath.Join(dir, "a"+f.Ext()), f, "")
			require.NoError(t, err)

			now := time.Now().Add(time.Hour)
			require.NoError(t, os.Chtimes(filepath.Join(src, "pkginfo.yaml"), now, now))

			b, err := Create(context.Background(), src, filepath.Join(dir, "b"+f.Ext()), f, "")
			require.NoError(t, err)
			assert.Equal(t, a.Digest, b.Digest)
		})
	}
}

func TestCreateMissingSource(t *testing.T) {
	_, err := Create(context.Background(), filepath.Join(t.TempDir(), "absent"),
		filepath.Join(t.TempDir(), "x.tar.gz"), FormatTarGz, "")
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestCreateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst := filepath.Join(t.TempDir(), "x.tar.gz")
	_, err := Create(ctx, makePackage(t), dst, FormatTarGz, "")
	assert.Equal(t, errors.ErrCodeTimeout, errors.CodeOf(err))
	assert.NoFileExists(t, dst)
}

func TestExtractRejectsTraversal(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "evil.tar.gz")
	out, err := os.Create(dst)
	require.NoError(t, err)
	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)
	body := []byte("pwned")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../escape.txt", Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body))}))
	_, err = tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, out.Close())

	root := t.TempDir()
	target := filepath.Join(root, "extract")
	_, err = Extract(context.Background(), dst, target)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
	assert.NoFileExists(t, filepath.Join(root, "escape.txt"))
}

func TestExtractUnknownFormat(t *testing.T) {
	_, err := Extract(context.Background(), "package.zip", t.TempDir())
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}
