package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biovault/pkgsmith/pkg/checksum"
	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/header"
	"github.com/biovault/pkgsmith/pkg/layout"
	"github.com/biovault/pkgsmith/pkg/packageid"
	"github.com/biovault/pkgsmith/pkg/recipe"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/testpackage"
)

// fakeRecipe writes its package directly instead of driving CMake.
type fakeRecipe struct {
	recipe.Base
	fail Stage

	mu    sync.Mutex
	calls []Stage
}

func newFake(name string, fail Stage) *fakeRecipe {
	return &fakeRecipe{
		Base: recipe.NewBase(&recipe.Descriptor{
			Name:     name,
			Version:  "1.0.0",
			License:  "MIT",
			Upstream: "https://example.com/" + name + ".git",
			Settings: recipe.DefaultSettings,
			Options: map[string][]string{
				recipe.OptionShared:  recipe.BoolOption,
				recipe.OptionTesting: recipe.BoolOption,
			},
			DefaultOptions: map[string]string{
				recipe.OptionShared:  recipe.False,
				recipe.OptionTesting: recipe.False,
			},
			Configs: []settings.BuildConfig{settings.Release},
		}),
		fail: fail,
	}
}

func (f *fakeRecipe) step(s Stage) error {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
	if f.fail == s {
		return errors.New(errors.ErrCodeBuildFailed, string(s)+" exploded")
	}
	return nil
}

func (f *fakeRecipe) Source(context.Context, *recipe.Context) error   { return f.step(StageSource) }
func (f *fakeRecipe) Generate(context.Context, *recipe.Context) error { return f.step(StageGenerate) }
func (f *fakeRecipe) Build(context.Context, *recipe.Context) error    { return f.step(StageBuild) }

func (f *fakeRecipe) Package(_ context.Context, rc *recipe.Context) (*recipe.PackageReport, error) {
	if err := f.step(StagePackage); err != nil {
		return nil, err
	}
	pkg := rc.Layout.PackageDir()
	if err := layout.Reset(pkg); err != nil {
		return nil, err
	}
	files := []string{"include/fake.h", "lib/Release/libfake.a"}
	for _, rel := range files {
		p := filepath.Join(pkg, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
			return nil, err
		}
	}
	return &recipe.PackageReport{Dir: pkg, Files: map[settings.BuildConfig][]string{settings.Release: files}}, nil
}

func (f *fakeRecipe) TestProject() *testpackage.Project {
	return &testpackage.Project{
		Package:    f.Descriptor().Name,
		Files:      map[string][]byte{"CMakeLists.txt": []byte("project(PackageTest)\n")},
		Executable: testpackage.DefaultExecutable,
	}
}

func (f *fakeRecipe) Calls() []Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Stage(nil), f.calls...)
}

func newCreator(t *testing.T, rec *command.Recorder, recipes []*fakeRecipe, opts ...config.Option) *Creator {
	t.Helper()
	reg := recipe.NewRegistry()
	for _, r := range recipes {
		reg.Register(r.Descriptor().Name, r)
	}
	opts = append([]config.Option{config.WithWorkspace(t.TempDir())}, opts...)
	c, err := New(config.NewConfig(opts...),
		WithRegistry(reg),
		WithRunner(rec),
		WithHost(settings.ForPlatform("linux", "amd64")))
	require.NoError(t, err)
	return c
}

func TestParseStages(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []Stage
		wantErr bool
	}{
		{name: "empty selects all", want: AllStages},
		{name: "reordered", in: []string{"test", "source", "Build"}, want: []Stage{StageSource, StageBuild, StageTest}},
		{name: "duplicates", in: []string{"package", "package"}, want: []Stage{StagePackage}},
		{name: "unknown", in: []string{"deploy"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStages(tt.in)
			if tt.wantErr {
				assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(config.NewConfig(config.WithJobs(0)))
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestRunAllStages(t *testing.T) {
	rec := command.NewRecorder()
	fake := newFake("fake", "")
	c := newCreator(t, rec, []*fakeRecipe{fake})

	out, err := c.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.NotEmpty(t, out.RunID)
	assert.False(t, out.HasErrors())
	assert.Equal(t, header.KindRunResult, out.Kind)
	assert.NotEmpty(t, out.Metadata["timestamp"])

	res := out.Results[0]
	assert.True(t, res.Success)
	require.Len(t, res.Stages, len(AllStages))
	for i, s := range AllStages {
		assert.Equal(t, string(s), res.Stages[i].Stage)
		assert.True(t, res.Stages[i].Success)
	}
	assert.Equal(t, []Stage{StageSource, StageGenerate, StageBuild, StagePackage}, fake.Calls())

	pkg := res.PackageDir
	stored, err := packageid.Load(pkg)
	require.NoError(t, err)
	assert.Equal(t, stored.PackageID, res.PackageID)
	assert.Len(t, res.PackageID, 64)
	assert.Equal(t, []string{"fake"}, stored.Libraries)
	assert.Equal(t, true, stored.Properties["cmake_config_file"])
	assert.Contains(t, stored.Info.Removed, settings.KeyBuildType)

	assert.FileExists(t, checksum.GetChecksumFilePath(pkg))
	assert.ElementsMatch(t,
		[]string{"include/fake.h", "lib/Release/libfake.a", packageid.FileName, checksum.ChecksumFileName},
		res.Files)
	assert.Equal(t, 4, out.TotalFiles)

	exe := rec.Find(func(cmd command.Cmd) bool { return strings.HasSuffix(cmd.Name, "example") })
	assert.Len(t, exe, 1)
}

func TestRunStopsAtFailingStage(t *testing.T) {
	fake := newFake("fake", StageBuild)
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{fake})

	out, err := c.Run(context.Background(), []string{"fake"}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBuildFailed, errors.CodeOf(err))

	res := out.Results[0]
	assert.False(t, res.Success)
	require.Len(t, res.Stages, 3)
	assert.False(t, res.Stages[2].Success)
	assert.Contains(t, res.Stages[2].Error, "build exploded")
	assert.Equal(t, []Stage{StageSource, StageGenerate, StageBuild}, fake.Calls())
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "fake", out.Errors[0].Recipe)
}

func TestRunContinuesOtherRecipes(t *testing.T) {
	a := newFake("a", StageGenerate)
	b := newFake("b", "")
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{a, b}, config.WithJobs(2))

	out, err := c.Run(context.Background(), []string{"a", "b"}, []Stage{StageSource, StageGenerate, StageBuild})
	require.Error(t, err)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "a", out.Results[0].Recipe)
	assert.False(t, out.Results[0].Success)
	assert.Equal(t, "b", out.Results[1].Recipe)
	assert.True(t, out.Results[1].Success)
	assert.Equal(t, 1, out.SuccessCount())
	assert.Len(t, b.Calls(), 3)
}

func TestRunUnknownRecipe(t *testing.T) {
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")})
	_, err := c.Run(context.Background(), []string{"zlib"}, nil)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestRunCancelled(t *testing.T) {
	fake := newFake("fake", "")
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{fake})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, nil, nil)
	assert.Equal(t, errors.ErrCodeTimeout, errors.CodeOf(err))
	assert.Empty(t, fake.Calls())
}

func TestTestStageRequiresPackage(t *testing.T) {
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")})
	_, err := c.Run(context.Background(), nil, []Stage{StageTest})
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestTestStageSkippedWhenCrossBuilding(t *testing.T) {
	rec := command.NewRecorder()
	c := newCreator(t, rec, []*fakeRecipe{newFake("fake", "")},
		config.WithSettingOverrides(map[string]string{settings.KeyArch: "armv8"}))

	out, err := c.Run(context.Background(), nil, []Stage{StagePackage, StageTest})
	require.NoError(t, err)
	test := out.Results[0].Stage(string(StageTest))
	require.NotNil(t, test)
	assert.True(t, test.Skipped)
	assert.Contains(t, test.Note, "cross building")
	assert.Empty(t, rec.Calls())
}

func TestPackageIDIgnoresBuildType(t *testing.T) {
	ids := map[string]string{}
	for _, bt := range []string{"Debug", "Release"} {
		c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")},
			config.WithSettingOverrides(map[string]string{settings.KeyBuildType: bt}))
		desc, err := c.Describe(nil)
		require.NoError(t, err)
		require.Len(t, desc, 1)
		assert.Equal(t, []string{settings.KeyBuildType}, desc[0].Removed)
		assert.False(t, desc[0].Packaged)
		ids[bt] = desc[0].PackageID
	}
	assert.Equal(t, ids["Debug"], ids["Release"])
}

func TestPackageIDRefreshesRecord(t *testing.T) {
	ws := t.TempDir()
	fake := newFake("fake", "")
	first := newCreator(t, command.NewRecorder(), []*fakeRecipe{fake}, config.WithWorkspace(ws))
	out, err := first.Run(context.Background(), nil, []Stage{StagePackage})
	require.NoError(t, err)
	before := out.Results[0].PackageID

	second := newCreator(t, command.NewRecorder(), []*fakeRecipe{fake}, config.WithWorkspace(ws),
		config.WithOptionOverrides(map[string]map[string]string{"fake": {recipe.OptionShared: "True"}}))
	out, err = second.Run(context.Background(), nil, []Stage{StagePackageID})
	require.NoError(t, err)
	after := out.Results[0].PackageID
	assert.NotEqual(t, before, after)

	rc, err := second.Context(fake)
	require.NoError(t, err)
	stored, err := packageid.Load(rc.Layout.PackageDir())
	require.NoError(t, err)
	assert.Equal(t, after, stored.PackageID)
}

func TestArchiveDuringPackage(t *testing.T) {
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")},
		config.WithArchiveFormat("tar.zst"))

	out, err := c.Run(context.Background(), nil, []Stage{StagePackage})
	require.NoError(t, err)
	res := out.Results[0]
	require.NotEmpty(t, res.Archive)
	assert.FileExists(t, res.Archive)
	assert.True(t, strings.HasSuffix(res.Archive, ".tar.zst"))
	assert.Contains(t, filepath.Base(res.Archive), "fake-1.0.0-"+res.PackageID[:12])
}

func TestVerify(t *testing.T) {
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")})
	out, err := c.Run(context.Background(), nil, []Stage{StagePackage})
	require.NoError(t, err)

	reports, err := c.Verify(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].OK)

	pkg := out.Results[0].PackageDir
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "include", "fake.h"), []byte("tampered"), 0o644))
	reports, err = c.Verify(context.Background(), nil)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
	require.Len(t, reports, 1)
	assert.False(t, reports[0].OK)
	assert.Equal(t, []string{"include/fake.h"}, reports[0].Corrupt)
}

func TestVerifyArchive(t *testing.T) {
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")},
		config.WithArchiveFormat("tar.zst"))
	out, err := c.Run(context.Background(), nil, []Stage{StagePackage})
	require.NoError(t, err)
	arc := out.Results[0].Archive
	require.FileExists(t, arc)

	reports, err := c.Verify(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Archives, 1)
	assert.Equal(t, arc, reports[0].Archives[0].Path)
	assert.True(t, reports[0].Archives[0].OK)
	assert.True(t, reports[0].OK)

	require.NoError(t, os.WriteFile(arc, []byte("not an archive"), 0o644))
	reports, err = c.Verify(context.Background(), nil)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Archives, 1)
	assert.False(t, reports[0].Archives[0].OK)
	assert.NotEmpty(t, reports[0].Archives[0].Error)
	assert.False(t, reports[0].OK)

	entries, err := os.ReadDir(filepath.Dir(arc))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "verify-"), "scratch folder %s left behind", e.Name())
	}
}

func TestVerifyWithoutPackage(t *testing.T) {
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")})
	_, err := c.Verify(context.Background(), nil)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestLibraryNames(t *testing.T) {
	got := libraryNames([]string{
		"lib/Release/liblz4.so.1.10.0",
		"lib/Release/liblz4.a",
		"lib/Debug/tbb12_debug.lib",
		"lib/Debug/tbb12_debug.pdb",
		"lib/cmake/TBBConfig.cmake",
		"lib/cmake/TBB/TBBTargets.cmake",
		"bin/Release/tbb12.dll",
		"include/lz4.h",
	})
	assert.Equal(t, []string{"lz4", "tbb12_debug"}, got)
}
