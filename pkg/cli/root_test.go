package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/lifecycle"

	_ "github.com/biovault/pkgsmith/pkg/recipe/builtin"
)

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	return newRootCmd().Run(context.Background(), append([]string{name}, args...))
}

func TestRootCommands(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"list", "info", "source", "generate", "build", "package", "package-id", "test",
		"create", "verify", "archive", "push",
	}, names)
}

func TestListCommand(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "list.json")
	require.NoError(t, runRoot(t, "--workspace", t.TempDir(), "list", "--format", "json", "--output", out))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var got []recipeEntry
	require.NoError(t, json.Unmarshal(b, &got))
	require.Len(t, got, 3)
	assert.Equal(t, "faiss", got[0].Name)
	assert.Equal(t, "lz4", got[1].Name)
	assert.Equal(t, "1.10.0", got[1].Version)
	assert.Equal(t, "onetbb", got[2].Name)
}

func TestInfoCommand(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "info.yaml")
	require.NoError(t, runRoot(t, "--workspace", t.TempDir(), "-s", "build_type=Debug",
		"info", "lz4", "-o", out))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var got []lifecycle.Description
	require.NoError(t, yaml.Unmarshal(b, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "lz4", got[0].Recipe.Name)
	assert.Equal(t, "Debug", got[0].Settings["build_type"])
	assert.Len(t, got[0].PackageID, 64)
	assert.False(t, got[0].Packaged)
}

func TestCreateUnknownRecipe(t *testing.T) {
	isolate(t)
	err := runRoot(t, "--workspace", t.TempDir(), "create", "zlib")
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestCreateUnknownStage(t *testing.T) {
	isolate(t)
	err := runRoot(t, "--workspace", t.TempDir(), "create", "--stages", "source,deploy", "lz4")
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestVerifyWithoutPackage(t *testing.T) {
	isolate(t)
	err := runRoot(t, "--workspace", t.TempDir(), "verify", "lz4", "-o", filepath.Join(t.TempDir(), "v.yaml"))
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestPushValidation(t *testing.T) {
	isolate(t)
	ws := t.TempDir()

	assert.Error(t, runRoot(t, "--workspace", ws, "push", "lz4"))

	err := runRoot(t, "--workspace", ws, "push", "--registry", "ghcr.io/BioVault", "lz4")
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))

	err = runRoot(t, "--workspace", ws, "push", "--registry", "ghcr.io/biovault:v1", "--tag", "v2", "lz4")
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))

	err = runRoot(t, "--workspace", ws, "push", "--registry", "ghcr.io/biovault", "lz4")
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}
