package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/biovault/pkgsmith/pkg/errors"
)

type recipeRow struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

type stageTable struct {
	rows [][]string
}

func (s stageTable) TableHeader() []string { return []string{"RECIPE", "STAGE"} }
func (s stageTable) TableRows() [][]string { return s.rows }

func TestWriterJSONAndYAML(t *testing.T) {
	data := []recipeRow{
		{Name: "lz4", Version: "1.10.0"},
		{Name: "faiss", Version: "1.8.0"},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriter(FormatJSON, &buf).Serialize(context.Background(), data))
		var got []recipeRow
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, data, got)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriter(FormatYAML, &buf).Serialize(context.Background(), data))
		var got []recipeRow
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, data, got)
		assert.Contains(t, buf.String(), "- name: lz4")
	})
}

func TestWriterTable(t *testing.T) {
	tests := []struct {
		name string
		data any
		want []string
	}{
		{
			name: "flattened slice",
			data: []recipeRow{{Name: "lz4", Version: "1.10.0"}},
			want: []string{"FIELD", "VALUE", "[0].Name", "lz4", "[0].Version"},
		},
		{
			name: "nested map",
			data: map[string]any{"options": map[string]string{"shared": "True"}},
			want: []string{"options.shared", "True"},
		},
		{
			name: "nil pointer field",
			data: struct {
				Name  string
				Value *int
			}{Name: "onetbb"},
			want: []string{"Name", "onetbb", "Value"},
		},
		{
			name: "empty",
			data: []recipeRow{},
			want: []string{"<empty>"},
		},
		{
			name: "tabler",
			data: stageTable{rows: [][]string{{"lz4", "build"}, {"faiss", "generate"}}},
			want: []string{"RECIPE", "------", "lz4", "generate"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewWriter(FormatTable, &buf).Serialize(context.Background(), tt.data))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestTablerColumnsAligned(t *testing.T) {
	var buf bytes.Buffer
	data := stageTable{rows: [][]string{{"lz4", "build"}, {"onetbb", "package"}}}
	require.NoError(t, NewWriter(FormatTable, &buf).Serialize(context.Background(), data))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	col := strings.Index(lines[0], "STAGE")
	assert.Equal(t, col, strings.Index(lines[2], "build"))
	assert.Equal(t, col, strings.Index(lines[3], "package"))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatYAML},
		{in: "json", want: FormatJSON},
		{in: " TABLE ", want: FormatTable},
		{in: "xml", wantErr: true},
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

func TestNewWriterUnknownFormatFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter("xml", &buf).Serialize(context.Background(), recipeRow{Name: "lz4"}))
	var got recipeRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "lz4", got.Name)
}

func TestNewFileWriterOrStdout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	w := NewFileWriterOrStdout(FormatYAML, path)
	require.NoError(t, w.Serialize(context.Background(), recipeRow{Name: "faiss", Version: "1.8.0"}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: faiss")

	for _, p := range []string{"", "  ", filepath.Join(t.TempDir(), "missing", "out.json")} {
		w := NewFileWriterOrStdout(FormatJSON, p)
		require.NotNil(t, w)
		assert.NoError(t, w.Close())
	}
}

func TestSerializeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	err := NewWriter(FormatJSON, &buf).Serialize(ctx, recipeRow{})
	assert.Equal(t, errors.ErrCodeTimeout, errors.CodeOf(err))
	assert.Empty(t, buf.String())
}
