package promcollector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/splitgo"
	"github.com/hupe1980/splitgo/internal/fs"
	"github.com/hupe1980/splitgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, c *Collector) map[string]float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "," + lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestCollector(t *testing.T) {
	c := New()

	c.RecordStage(splitgo.StageIndex, 10*time.Millisecond, nil)
	c.RecordStage(splitgo.StageMaterialize, time.Second, errors.New("boom"))
	c.RecordFile("train", 100, nil)
	c.RecordFile("train", 50, nil)
	c.RecordFile("valid", 0, errors.New("nope"))
	c.RecordClasses(4, 1)
	c.RecordSplit("train", 70)
	c.RecordFallback()

	m := gather(t, c)
	assert.Equal(t, 1.0, m["splitgo_stage_duration_seconds,stage=index,status=success"])
	assert.Equal(t, 1.0, m["splitgo_stage_duration_seconds,stage=materialize,status=error"])
	assert.Equal(t, 2.0, m["splitgo_files_total,split=train,status=success"])
	assert.Equal(t, 1.0, m["splitgo_files_total,split=valid,status=error"])
	assert.Equal(t, 150.0, m["splitgo_bytes_total,split=train"])
	assert.Equal(t, 4.0, m["splitgo_classes,state=retained"])
	assert.Equal(t, 1.0, m["splitgo_classes,state=removed"])
	assert.Equal(t, 70.0, m["splitgo_split_images,split=train"])
	assert.Equal(t, 1.0, m["splitgo_fallback_total"])
}

func TestCollector_Run(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testutil.Scenario().Write(fs.Default, dir))

	c := New()
	_, err := splitgo.Run(context.Background(), dir,
		splitgo.WithOutputDir(t.TempDir()),
		splitgo.WithRatios(0.2, 0.1),
		splitgo.WithMetricsCollector(c),
	)
	require.NoError(t, err)

	m := gather(t, c)
	assert.Equal(t, 140.0, m["splitgo_files_total,split=train,status=success"])
	assert.Equal(t, 10.0, m["splitgo_split_images,split=test"])

	path := filepath.Join(t.TempDir(), "splitgo.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `splitgo_split_images{split="valid"} 20`)
	assert.Contains(t, string(data), "# TYPE splitgo_files_total counter")
}
