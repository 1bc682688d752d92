package lifecycle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/oci"
)

func TestArchiveAll(t *testing.T) {
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("a", ""), newFake("b", "")},
		config.WithArchiveFormat("tar.xz"))
	_, err := c.Run(context.Background(), nil, []Stage{StagePackage})
	require.NoError(t, err)

	infos, err := c.ArchiveAll(context.Background(), nil, "lz4")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	for _, info := range infos {
		assert.True(t, strings.HasSuffix(info.Path, ".tar.lz4"), info.Path)
		assert.FileExists(t, info.Path)
	}
}

func TestArchiveAllWithoutPackage(t *testing.T) {
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")})
	_, err := c.ArchiveAll(context.Background(), nil, "")
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestPublishRequiresReference(t *testing.T) {
	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")})
	_, err := c.Publish(context.Background(), nil, PublishOptions{})
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestPublishStagesLayoutBeforePush(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newCreator(t, command.NewRecorder(), []*fakeRecipe{newFake("fake", "")})
	out, err := c.Run(context.Background(), nil, []Stage{StagePackage})
	require.NoError(t, err)
	id := out.Results[0].PackageID

	ref, err := oci.ParseReference(strings.TrimPrefix(srv.URL, "http://") + "/biovault")
	require.NoError(t, err)
	_, err = c.Publish(context.Background(), nil, PublishOptions{Reference: ref, PlainHTTP: true})
	assert.Equal(t, errors.ErrCodeUnavailable, errors.CodeOf(err))

	rcp, err := c.Registry().Get("fake")
	require.NoError(t, err)
	rc, err := c.Context(rcp)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(rc.Layout.Root(), "fake-1.0.0-"+id[:12]+".tar.gz"))
	assert.FileExists(t, filepath.Join(rc.Layout.Root(), StoreDirName, "index.json"))
}
