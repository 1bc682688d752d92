package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biovault/pkgsmith/pkg/errors"
)

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, ".pkgsmith", c.Workspace())
	assert.Equal(t, 1, c.Jobs())
	assert.True(t, c.IncludeChecksums())
	assert.True(t, c.VerifyLayout())
	assert.Empty(t, c.ArchiveFormat())
	assert.NoError(t, c.Validate())
}

func TestConfigImmutability(t *testing.T) {
	c := NewConfig(WithOptionOverrides(map[string]map[string]string{"lz4": {"shared": "False"}}))

	got := c.OptionOverrides("lz4")
	got["shared"] = "True"
	assert.Equal(t, "False", c.OptionOverrides("lz4")["shared"])

	s := c.SettingOverrides()
	s["os"] = "Windows"
	assert.Empty(t, c.SettingOverrides())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		ok   bool
	}{
		{"defaults", nil, true},
		{"zstd archive", []Option{WithArchiveFormat("tar.zst")}, true},
		{"bad archive", []Option{WithArchiveFormat("rar")}, false},
		{"zero jobs", []Option{WithJobs(0)}, false},
		{"empty workspace", []Option{WithWorkspace("")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opts...).Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
		})
	}
}

func TestParseSettingOverrides(t *testing.T) {
	got, err := ParseSettingOverrides([]string{"compiler=clang", "compiler.version = 17"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"compiler": "clang", "compiler.version": "17"}, got)

	_, err = ParseSettingOverrides([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseSettingOverrides([]string{"=x"})
	assert.Error(t, err)
}

func TestParseOptionOverrides(t *testing.T) {
	got, err := ParseOptionOverrides([]string{"lz4:shared=False", "lz4:testing=True", "faiss:shared=False"})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]string{
		"lz4":   {"shared": "False", "testing": "True"},
		"faiss": {"shared": "False"},
	}, got)

	for _, bad := range []string{"shared=False", ":shared=False", "lz4:shared"} {
		_, err := ParseOptionOverrides([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkgsmith.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workspace: /data/ws
jobs: 3
verbose: true
archive: tar.xz
checksums: false
settings:
  compiler: clang
options:
  onetbb:
    shared: "False"
`), 0o644))

	f, err := LoadFile(path, false)
	require.NoError(t, err)

	c := NewConfig(f.ConfigOptions()...)
	assert.Equal(t, "/data/ws", c.Workspace())
	assert.Equal(t, 3, c.Jobs())
	assert.True(t, c.Verbose())
	assert.Equal(t, "tar.xz", c.ArchiveFormat())
	assert.False(t, c.IncludeChecksums())
	assert.True(t, c.VerifyLayout())
	assert.Equal(t, "clang", c.SettingOverrides()["compiler"])
	assert.Equal(t, "False", c.OptionOverrides("onetbb")["shared"])
}

func TestLoadFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	f, err := LoadFile(path, true)
	require.NoError(t, err)
	assert.Empty(t, f.ConfigOptions())

	_, err = LoadFile(path, false)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs: [1, 2"), 0o644))
	_, err := LoadFile(path, false)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvWorkspace, "/env/ws")
	t.Setenv(EnvBLASRoot, `D:\openblas\lib\native`)

	c := NewConfig(FromEnv()...)
	assert.Equal(t, "/env/ws", c.Workspace())
	assert.Equal(t, `D:\openblas\lib\native`, c.BLASRoot())
}
