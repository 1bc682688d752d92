package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/packageid"
	"github.com/biovault/pkgsmith/pkg/settings"
)

func testDescriptor() *Descriptor {
	return &Descriptor{
		Name:           "foo",
		Version:        "1.2.3",
		License:        "MIT",
		Upstream:       "https://example.com/foo.git",
		Settings:       DefaultSettings,
		Options:        map[string][]string{OptionShared: BoolOption, OptionTesting: BoolOption},
		DefaultOptions: map[string]string{OptionShared: True, OptionTesting: False},
		Configs:        settings.AllConfigs,
	}
}

func TestDescriptorTag(t *testing.T) {
	assert.Equal(t, "v1.2.3", testDescriptor().Tag())
}

func TestResolveOptions(t *testing.T) {
	d := testDescriptor()

	opts, err := d.ResolveOptions(nil)
	require.NoError(t, err)
	assert.True(t, opts.Bool(OptionShared))
	assert.False(t, opts.Bool(OptionTesting))

	opts, err = d.ResolveOptions(map[string]string{OptionShared: "false", OptionTesting: "on"})
	require.NoError(t, err)
	assert.Equal(t, False, opts[OptionShared])
	assert.Equal(t, True, opts[OptionTesting])
	assert.Equal(t, True, d.DefaultOptions[OptionShared], "defaults must not change")

	_, err = d.ResolveOptions(map[string]string{"gpu": "True"})
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))

	_, err = d.ResolveOptions(map[string]string{OptionShared: "maybe"})
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestNewContext(t *testing.T) {
	cfg := config.NewConfig(
		config.WithWorkspace("/ws"),
		config.WithSettingOverrides(map[string]string{"compiler.version": "13"}),
		config.WithOptionOverrides(map[string]map[string]string{"foo": {"shared": "False"}}),
		config.WithVerbose(true),
	)
	host := settings.ForPlatform("linux", "amd64")

	rc, err := NewContext(cfg, testDescriptor(), command.NewRecorder(), host)
	require.NoError(t, err)
	assert.Equal(t, "13", rc.Settings.CompilerVersion)
	assert.Empty(t, rc.Host.CompilerVersion)
	assert.False(t, rc.Options.Bool(OptionShared))
	assert.True(t, rc.Verbose)
	assert.Contains(t, rc.Layout.Root(), "foo")

	bad := config.NewConfig(config.WithSettingOverrides(map[string]string{"os": "beos"}))
	_, err = NewContext(bad, testDescriptor(), command.NewRecorder(), host)
	assert.Error(t, err)
}

func TestStandardPackageID(t *testing.T) {
	tests := []struct {
		name        string
		compiler    string
		wantRemoved []string
	}{
		{"gcc keeps runtime", settings.GCC, []string{settings.KeyBuildType}},
		{"visual studio drops runtime", settings.VisualStudio, []string{settings.KeyBuildType, settings.KeyCompilerRuntime}},
		{"msvc keeps runtime", settings.MSVC, []string{settings.KeyBuildType}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := settings.ForPlatform("windows", "amd64")
			s.Compiler = tt.compiler
			info := packageid.New("foo", "1.2.3", s, map[string]string{"shared": True})
			StandardPackageID(info)
			assert.Equal(t, tt.wantRemoved, info.Removed)
			assert.NotContains(t, info.Settings, settings.KeyBuildType)
		})
	}
}

func TestStandardPackageIDBuildTypeIndependent(t *testing.T) {
	ids := map[string]bool{}
	for _, bt := range []string{"Debug", "Release", "RelWithDebInfo"} {
		s := settings.ForPlatform("windows", "amd64")
		s.BuildType = bt
		s.CompilerRuntime = map[string]string{"Debug": "MDd", "Release": "MD", "RelWithDebInfo": "MD"}[bt]
		info := packageid.New("foo", "1.2.3", s, map[string]string{"shared": True})
		StandardPackageID(info)
		ids[info.Fingerprint()] = true
	}
	assert.Len(t, ids, 1)
}

func TestStandardPackageInfo(t *testing.T) {
	p := StandardPackageInfo()
	assert.Equal(t, true, p["skip_deps_file"])
	assert.Equal(t, true, p["cmake_config_file"])
}

func TestPackageReportAllFiles(t *testing.T) {
	r := &PackageReport{Files: map[settings.BuildConfig][]string{
		settings.Debug:   {"include/foo.h", "lib/Debug/libfoo.a"},
		settings.Release: {"include/foo.h", "lib/Release/libfoo.a"},
	}}
	assert.Equal(t, []string{"include/foo.h", "lib/Debug/libfoo.a", "lib/Release/libfoo.a"}, r.AllFiles())
}
