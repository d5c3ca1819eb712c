package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/splitgo"
	"github.com/hupe1980/splitgo/archive"
	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/internal/fs"
	"github.com/hupe1980/splitgo/manifest"
	"github.com/hupe1980/splitgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func scenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, testutil.Scenario().Write(fs.Default, dir))
	return dir
}

func TestSplit(t *testing.T) {
	src := scenario(t)
	out := t.TempDir()
	tmp := t.TempDir()
	archivePath := filepath.Join(tmp, "split.tar.lz4")
	metricsPath := filepath.Join(tmp, "splitgo.prom")

	stdout, _, err := execute(t, "split",
		"--src", src,
		"--out", out,
		"--valid", "0.2",
		"--test", "0.1",
		"--archive", archivePath,
		"--metrics-file", metricsPath,
	)
	require.NoError(t, err)

	assert.Contains(t, stdout, "stratified")
	assert.Contains(t, stdout, "70 images")
	assert.Contains(t, stdout, "20 images")
	assert.Contains(t, stdout, "10 images")

	m, err := manifest.Read(context.Background(), blobstore.NewLocalStore(out), manifest.DataFile)
	require.NoError(t, err)
	assert.True(t, m.HasTest())

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()
	mem := blobstore.NewMemoryStore()
	stats, err := archive.Extract(context.Background(), f, mem, archive.CodecLZ4)
	require.NoError(t, err)
	assert.Equal(t, 203, stats.Files)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `splitgo_split_images{split="train"} 70`)
}

func TestSplit_DryRun(t *testing.T) {
	src := scenario(t)
	out := t.TempDir()

	stdout, _, err := execute(t, "split", "--src", src, "--out", out, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "(dry run)")
	assert.Contains(t, stdout, "80 images")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSplit_JSONLogs(t *testing.T) {
	src := scenario(t)

	_, stderr, err := execute(t, "split", "--src", src, "--out", t.TempDir(), "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"split completed"`)
}

func TestSplit_Errors(t *testing.T) {
	src := scenario(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing src", []string{"split"}},
		{"ratios sum", []string{"split", "--src", src, "--valid", "0.6", "--test", "0.4"}},
		{"out and dest", []string{"split", "--src", src, "--out", "x", "--dest", "s3://bucket"}},
		{"bad dest", []string{"split", "--src", src, "--dest", "gs://bucket"}},
		{"bad codec", []string{"split", "--src", src, "--archive-codec", "gzip"}},
		{"min samples", []string{"split", "--src", src, "--min-samples", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestSplit_OutputExists(t *testing.T) {
	src := scenario(t)
	out := t.TempDir()

	_, _, err := execute(t, "split", "--src", src, "--out", out)
	require.NoError(t, err)

	_, _, err = execute(t, "split", "--src", src, "--out", out)
	require.ErrorIs(t, err, splitgo.ErrOutputExists)

	_, _, err = execute(t, "split", "--src", src, "--out", out, "--overwrite")
	require.NoError(t, err)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testutil.Scenario().WriteImagesOnly(fs.Default, dir))

	stdout, _, err := execute(t, "check", "--src", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "images: 100")
	assert.Contains(t, stdout, "paired: 75")
	assert.Contains(t, stdout, "missing label: img099")

	_, _, err = execute(t, "check", "--src", dir, "--strict")
	require.ErrorIs(t, err, errPairing)
}

func TestCheck_JSON(t *testing.T) {
	src := scenario(t)

	stdout, _, err := execute(t, "check", "--src", src, "--json")
	require.NoError(t, err)

	var rep struct {
		Images int `json:"images"`
		Paired int `json:"paired"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, 100, rep.Images)
	assert.Equal(t, 100, rep.Paired)
}

func TestClasses(t *testing.T) {
	src := scenario(t)

	stdout, _, err := execute(t, "classes", "--src", src, "--min-samples", "20", "--json")
	require.NoError(t, err)

	var rows []splitgo.ClassInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].ID)
	assert.Equal(t, 60, rows[0].Images)
	assert.False(t, rows[0].Removed)
	assert.Equal(t, 15, rows[1].Images)
	assert.True(t, rows[1].Removed)

	stdout, _, err = execute(t, "classes", "--src", src)
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "class_1")
}

func TestExtract(t *testing.T) {
	src := scenario(t)
	archivePath := filepath.Join(t.TempDir(), "split.tar.zst")

	_, _, err := execute(t, "split", "--src", src, "--out", t.TempDir(), "--test", "0.1", "--archive", archivePath)
	require.NoError(t, err)

	restored := t.TempDir()
	stdout, _, err := execute(t, "extract", archivePath, "--out", restored)
	require.NoError(t, err)
	assert.Contains(t, stdout, "extracted 203 files")

	entries, err := os.ReadDir(filepath.Join(restored, "train", "images"))
	require.NoError(t, err)
	assert.Len(t, entries, 70)

	m, err := manifest.Read(context.Background(), blobstore.NewLocalStore(restored), manifest.DataFile)
	require.NoError(t, err)
	assert.True(t, m.HasTest())

	_, _, err = execute(t, "extract", archivePath, "--out", restored)
	require.ErrorIs(t, err, splitgo.ErrOutputExists)

	_, _, err = execute(t, "extract", archivePath, "--out", restored, "--overwrite")
	require.NoError(t, err)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no archive", []string{"extract", "--out", t.TempDir()}},
		{"no out", []string{"extract", "split.tar"}},
		{"missing file", []string{"extract", filepath.Join(t.TempDir(), "none.tar"), "--out", t.TempDir()}},
		{"bad codec", []string{"extract", "split.bin", "--out", t.TempDir(), "--archive-codec", "gzip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestReport(t *testing.T) {
	src := scenario(t)
	out := t.TempDir()

	_, _, err := execute(t, "split", "--src", src, "--out", out, "--seed", "7")
	require.NoError(t, err)

	stdout, _, err := execute(t, "report", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "stratified")
	assert.Contains(t, stdout, "80 images")
	assert.Contains(t, stdout, "20 images")

	stdout, _, err = execute(t, "report", out, "--json")
	require.NoError(t, err)

	var rep manifest.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, manifest.ModeStratified, rep.Mode)
	assert.Equal(t, uint64(7), rep.Seed)
	assert.Equal(t, map[string]int{"train": 80, "valid": 20}, rep.Sizes)

	_, _, err = execute(t, "report", t.TempDir())
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "splitgo "+Version+"\n", stdout)
}
