package layout

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/settings"
)

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(rel), 0o644))
	}
}

func TestLayoutPaths(t *testing.T) {
	l := New("/ws", "lz4", "1.10.0")
	assert.Equal(t, filepath.Join("/ws", "lz4", "1.10.0"), l.Root())
	assert.Equal(t, filepath.Join("/ws", "lz4", "1.10.0", "source"), l.SourceDir())
	assert.Equal(t, filepath.Join("/ws", "lz4", "1.10.0", "install", "Debug"), l.InstallDir(settings.Debug))
	assert.Equal(t, filepath.Join("/ws", "lz4", "1.10.0", "package", "lib", "Release"), l.LibDir(settings.Release))
	assert.Equal(t, filepath.Join("/ws", "lz4", "1.10.0", "package", "bin", "RelWithDebInfo"), l.BinDir(settings.RelWithDebInfo))
}

func TestConfigDir(t *testing.T) {
	l := New("/ws", "faiss", "1.8.0")
	tests := []struct {
		sub    string
		config settings.BuildConfig
		want   string
	}{
		{LibDir, settings.Debug, l.LibDir(settings.Debug)},
		{LibDir, settings.Release, l.LibDir(settings.Release)},
		{BinDir, settings.RelWithDebInfo, l.BinDir(settings.RelWithDebInfo)},
	}
	for _, tt := range tests {
		t.Run(tt.sub+"/"+string(tt.config), func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigDir(l.PackageDir(), tt.sub, tt.config))
		})
	}
}

func TestReset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "package")
	touch(t, dir, "lib/Debug/old.a")
	require.NoError(t, Reset(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCopyFlatten(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	touch(t, src, "lib/Debug/liblz4.a", "lib/Debug/cmake/lz4/lz4Config.cmake", "bin/Debug/lz4", "lib/Debug/pkgconfig/liblz4.pc")

	copied, err := Copy(src, dst, []string{"*.a"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"liblz4.a"}, copied)
	assert.FileExists(t, filepath.Join(dst, "liblz4.a"))
}

func TestCopyKeepPath(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	touch(t, src, "oneapi/tbb/tick_count.h", "tbb/tbb.h", "README.md")

	copied, err := Copy(src, dst, HeaderPatterns, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"oneapi/tbb/tick_count.h", "tbb/tbb.h"}, copied)
	assert.FileExists(t, filepath.Join(dst, "oneapi", "tbb", "tick_count.h"))
	assert.NoFileExists(t, filepath.Join(dst, "README.md"))
}

func TestCopyMissingSource(t *testing.T) {
	copied, err := Copy(filepath.Join(t.TempDir(), "absent"), t.TempDir(), []string{"*"}, true)
	require.NoError(t, err)
	assert.Empty(t, copied)
}

func TestCopyRecreatesSonameLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	src := t.TempDir()
	dst := t.TempDir()
	touch(t, src, "liblz4.so.1.10.0")
	require.NoError(t, os.Symlink("liblz4.so.1.10.0", filepath.Join(src, "liblz4.so.1")))
	require.NoError(t, os.Symlink("liblz4.so.1", filepath.Join(src, "liblz4.so")))

	copied, err := Copy(src, dst, LibraryPatterns(settings.Linux), false)
	require.NoError(t, err)
	assert.Len(t, copied, 3)

	target, err := os.Readlink(filepath.Join(dst, "liblz4.so"))
	require.NoError(t, err)
	assert.Equal(t, "liblz4.so.1", target)
}

func TestMoveIntoMissingTarget(t *testing.T) {
	pkg := t.TempDir()
	touch(t, pkg, "cmake/lz4/lz4Config.cmake")

	require.NoError(t, Move(filepath.Join(pkg, "cmake"), filepath.Join(pkg, "lib", "cmake")))
	assert.FileExists(t, filepath.Join(pkg, "lib", "cmake", "lz4", "lz4Config.cmake"))
	assert.NoDirExists(t, filepath.Join(pkg, "cmake"))
}

func TestMoveMergesIntoExistingTarget(t *testing.T) {
	pkg := t.TempDir()
	touch(t, pkg,
		"cmake/lz4/lz4Targets-debug.cmake",
		"lib/cmake/lz4/lz4Targets-release.cmake",
	)

	require.NoError(t, Move(filepath.Join(pkg, "cmake"), filepath.Join(pkg, "lib", "cmake")))
	assert.FileExists(t, filepath.Join(pkg, "lib", "cmake", "lz4", "lz4Targets-debug.cmake"))
	assert.FileExists(t, filepath.Join(pkg, "lib", "cmake", "lz4", "lz4Targets-release.cmake"))
	assert.NoDirExists(t, filepath.Join(pkg, "cmake"))
}

func TestMoveMissingSource(t *testing.T) {
	err := Move(filepath.Join(t.TempDir(), "cmake"), filepath.Join(t.TempDir(), "lib"))
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestRemoveStrayFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "faiss.h", "IndexFlat.h", "include/faiss/Index.h", "lib/Release/libfaiss.a")

	removed, err := RemoveStrayFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"IndexFlat.h", "faiss.h"}, removed)
	assert.FileExists(t, filepath.Join(dir, "include", "faiss", "Index.h"))
	assert.FileExists(t, filepath.Join(dir, "lib", "Release", "libfaiss.a"))

	removed, err = RemoveStrayFiles(filepath.Join(dir, "absent"))
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestArtifactRules(t *testing.T) {
	linux := ArtifactRules(settings.ForPlatform("linux", "amd64"), settings.Debug)
	require.Len(t, linux, 2)
	assert.Equal(t, []string{"*.a", "*.so", "*.so.*"}, linux[0].Patterns)
	assert.Equal(t, BinDir, linux[1].Under)

	win := settings.ForPlatform("windows", "amd64")
	debug := ArtifactRules(win, settings.Debug)
	require.Len(t, debug, 3)
	assert.Equal(t, []string{"*.pdb"}, debug[2].Patterns)
	assert.Equal(t, FromBuild, debug[2].Origin)
	assert.Equal(t, LibDir, debug[2].Dest)

	assert.Len(t, ArtifactRules(win, settings.Release), 2)
	assert.Len(t, ArtifactRules(win, settings.RelWithDebInfo), 3)
}

func TestVerify(t *testing.T) {
	configs := []settings.BuildConfig{settings.Debug, settings.Release}

	t.Run("complete linux package", func(t *testing.T) {
		pkg := t.TempDir()
		touch(t, pkg, "include/lz4.h", "lib/Debug/liblz4.a", "lib/Release/liblz4.so.1.10.0")
		r, err := Verify(pkg, settings.Linux, configs, true)
		require.NoError(t, err)
		assert.True(t, r.OK())
		assert.Equal(t, 1, r.Headers)
		assert.Equal(t, 1, r.Libs[settings.Release])
	})

	t.Run("missing headers and config", func(t *testing.T) {
		pkg := t.TempDir()
		touch(t, pkg, "lib/Debug/liblz4.a")
		r, err := Verify(pkg, settings.Linux, configs, false)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
		assert.Len(t, r.Problems, 2)
	})

	t.Run("windows shared needs dlls", func(t *testing.T) {
		pkg := t.TempDir()
		touch(t, pkg, "include/tbb/tbb.h", "lib/Debug/tbb12_debug.lib", "lib/Release/tbb12.lib", "bin/Release/tbb12.dll")
		r, err := Verify(pkg, settings.Windows, configs, true)
		require.Error(t, err)
		assert.Equal(t, []string{"bin/Debug has no .dll files"}, r.Problems)
	})
}
