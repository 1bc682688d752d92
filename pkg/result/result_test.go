package result

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStages(t *testing.T) {
	r := New("lz4", "1.10.0")
	r.AddStage(&StageResult{Stage: "source", Success: true})
	r.AddStage(&StageResult{Stage: "build", Error: "cmake build Release failed"})

	require.NotNil(t, r.Stage("build"))
	assert.False(t, r.Stage("build").Success)
	assert.Nil(t, r.Stage("package"))
	assert.Equal(t, []string{"build: cmake build Release failed"}, r.Errors)
}

func TestResultConcurrentFiles(t *testing.T) {
	r := New("faiss", "1.8.0")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.AddFile("lib/Release/libfaiss.a", 10)
		}()
	}
	wg.Wait()
	assert.Len(t, r.Files, 50)
	assert.Equal(t, int64(500), r.Size)
}

func TestOutput(t *testing.T) {
	ok := New("lz4", "1.10.0")
	ok.AddFile("include/lz4.h", 2048)
	ok.MarkSuccess()
	failed := New("faiss", "1.8.0")

	o := &Output{TotalDuration: 1500 * time.Millisecond}
	o.Add(ok, nil)
	o.Add(failed, errors.New("[INVALID_REQUEST] BLAS_ROOT is required on Windows"))

	assert.True(t, o.HasErrors())
	assert.Equal(t, 1, o.SuccessCount())
	assert.Equal(t, 1, o.TotalFiles)
	assert.Equal(t, "faiss", o.Errors[0].Recipe)
	assert.Same(t, ok, o.ByRecipe()["lz4"])
	assert.Equal(t, "Packaged 1 files (2.0 KB) in 1.5s. Success: 1/2 recipes.", o.Summary())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}

func TestOutputTableRows(t *testing.T) {
	ok := New("lz4", "1.10.0")
	ok.PackageID = "0123456789abcdef0123"
	ok.AddStage(&StageResult{Stage: "build", Success: true})
	ok.AddStage(&StageResult{Stage: "test", Success: true, Skipped: true})
	ok.MarkSuccess()
	failed := New("faiss", "1.8.0")
	failed.AddStage(&StageResult{Stage: "generate", Error: "BLAS_ROOT is required"})

	o := &Output{}
	o.Add(ok, nil)
	o.Add(failed, errors.New("generate failed"))

	assert.Len(t, o.TableHeader(), 7)
	rows := o.TableRows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"lz4", "1.10.0", "0123456789ab", "build,test(skipped)", "0 B", "0s", "ok"}, rows[0])
	assert.Equal(t, "-", rows[1][2])
	assert.Equal(t, "generate(failed)", rows[1][3])
	assert.Equal(t, "failed", rows[1][6])
}
