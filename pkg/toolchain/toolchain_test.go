package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/settings"
)

func TestSelectGenerator(t *testing.T) {
	tests := []struct {
		os   settings.OS
		want string
	}{
		{settings.Windows, GeneratorDefault},
		{settings.Macos, GeneratorXcode},
		{settings.Linux, GeneratorNinjaMC},
	}
	for _, tt := range tests {
		t.Run(string(tt.os), func(t *testing.T) {
			assert.Equal(t, tt.want, SelectGenerator(tt.os))
		})
	}
}

func TestMinCMake(t *testing.T) {
	v, ok := MinCMake(GeneratorNinjaMC)
	require.True(t, ok)
	assert.Equal(t, "3.17", v.String())

	_, ok = MinCMake(GeneratorXcode)
	assert.False(t, ok)
}

func TestNewConfigurationTypesOnlyOnLinux(t *testing.T) {
	configs := []settings.BuildConfig{settings.Debug, settings.Release}

	linux := New("onetbb", settings.ForPlatform("linux", "amd64"), configs)
	assert.Equal(t, "Debug;Release", linux.ConfigurationList())

	mac := New("onetbb", settings.ForPlatform("darwin", "arm64"), configs)
	assert.Empty(t, mac.Configurations)
	assert.Equal(t, GeneratorXcode, mac.Generator)
}

func TestNewInstallDirs(t *testing.T) {
	tc := New("lz4", settings.ForPlatform("linux", "amd64"), settings.AllConfigs)
	assert.Equal(t, "lib/$<CONFIG>", tc.Variables["CMAKE_INSTALL_LIBDIR"])
	assert.Equal(t, "bin/$<CONFIG>", tc.Variables["CMAKE_INSTALL_BINDIR"])
	assert.Equal(t, "include", tc.Variables["CMAKE_INSTALL_INCLUDEDIR"])
}

func TestMSVCRuntime(t *testing.T) {
	win := settings.ForPlatform("windows", "amd64")
	tc := New("faiss", win, settings.AllConfigs)
	assert.Equal(t, "MultiThreaded$<$<CONFIG:Debug>:Debug>DLL", tc.MSVCRuntime())

	win.CompilerRuntime = "MT"
	tc = New("faiss", win, settings.AllConfigs)
	assert.Equal(t, "MultiThreaded$<$<CONFIG:Debug>:Debug>", tc.MSVCRuntime())

	linux := New("faiss", settings.ForPlatform("linux", "amd64"), settings.AllConfigs)
	assert.Empty(t, linux.MSVCRuntime())
}

func TestGenerateAndLoad(t *testing.T) {
	dir := t.TempDir()
	tc := New("lz4", settings.ForPlatform("linux", "amd64"), settings.AllConfigs)
	tc.Set("CMAKE_CXX_STANDARD", "17")
	tc.Set("BUILD_STATIC_LIBS", "True")
	tc.SetBool("BUILD_SHARED_LIBS", true)
	tc.Require("BLAS", `C:\blas\lib`)

	require.NoError(t, tc.Generate(dir))

	body, err := os.ReadFile(FilePath(dir))
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `set(CMAKE_CONFIGURATION_TYPES "Debug;Release;RelWithDebInfo"`)
	assert.Contains(t, text, `set(CMAKE_CXX_STANDARD "17" CACHE STRING`)
	assert.Contains(t, text, `set(BUILD_STATIC_LIBS "True" CACHE STRING`)
	assert.Contains(t, text, `set(BUILD_SHARED_LIBS "ON" CACHE STRING`)
	assert.Contains(t, text, `include("${CMAKE_CURRENT_LIST_DIR}/deps.cmake")`)
	assert.NotContains(t, text, "CMAKE_MSVC_RUNTIME_LIBRARY")

	deps, err := os.ReadFile(filepath.Join(dir, DepsFile))
	require.NoError(t, err)
	assert.Contains(t, string(deps), `set(BLAS_ROOT "C:/blas/lib")`)

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, GeneratorNinjaMC, loaded.Generator)
	assert.Equal(t, tc.Variables, loaded.Variables)
	assert.Equal(t, tc.Configurations, loaded.Configurations)
	assert.Equal(t, settings.Linux, loaded.Settings.OS)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestBrewPrefix(t *testing.T) {
	rec := command.NewRecorder().On(command.Match("brew", "--prefix", "libomp"), func(command.Cmd) (string, error) {
		return "/opt/homebrew/opt/libomp\n", nil
	})
	prefix, err := BrewPrefix(context.Background(), rec, "libomp")
	require.NoError(t, err)
	assert.Equal(t, "/opt/homebrew/opt/libomp", prefix)
}

func TestBrewPrefixFailures(t *testing.T) {
	missing := command.NewRecorder().On(command.Match("brew"), func(command.Cmd) (string, error) {
		return "", errors.New(errors.ErrCodeToolFailed, "brew not found in PATH")
	})
	_, err := BrewPrefix(context.Background(), missing, "libomp")
	assert.Equal(t, errors.ErrCodeToolFailed, errors.CodeOf(err))

	empty := command.NewRecorder()
	_, err = BrewPrefix(context.Background(), empty, "libomp")
	assert.Equal(t, errors.ErrCodeToolFailed, errors.CodeOf(err))
}

func TestCMakeQuote(t *testing.T) {
	assert.Equal(t, `"a b"`, cmakeQuote("a b"))
	assert.Equal(t, `"C:/x/y"`, cmakeQuote(`C:\x\y`))
	assert.Equal(t, `"say \"hi\""`, cmakeQuote(`say "hi"`))
}
