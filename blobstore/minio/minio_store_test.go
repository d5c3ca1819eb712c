package minio

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/splitgo"
	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/internal/fs"
	"github.com/hupe1980/splitgo/manifest"
	"github.com/hupe1980/splitgo/materialize"
	"github.com/hupe1980/splitgo/partition"
	"github.com/hupe1980/splitgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Keys(t *testing.T) {
	s := NewStore(nil, "datasets", "/corals-v3/")

	assert.Equal(t, "minio://datasets/corals-v3", s.Location())
	assert.Equal(t, "minio://datasets/corals-v3", blobstore.Location(s))
	assert.Equal(t, "corals-v3/train/", s.key("train/"))
	assert.Equal(t, "corals-v3/train/images/a.jpg", s.key("train/images/a.jpg"))
	assert.Equal(t, "train/images/a.jpg", s.name("corals-v3/train/images/a.jpg"))

	root := NewStore(nil, "datasets", "")
	assert.Equal(t, "minio://datasets", root.Location())
	assert.Equal(t, "data.yaml", root.key("data.yaml"))
	assert.Equal(t, "data.yaml", root.name("data.yaml"))
}

// TestStore_Split writes a whole split into a live MinIO server. It runs
// only when SPLITGO_MINIO_ENDPOINT is set, e.g. to localhost:9000 with the
// default minioadmin credentials.
func TestStore_Split(t *testing.T) {
	endpoint := os.Getenv("SPLITGO_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("SPLITGO_MINIO_ENDPOINT not set")
	}

	ctx := context.Background()
	store, err := New(ctx, Config{
		Endpoint:  endpoint,
		AccessKey: envOr("SPLITGO_MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey: envOr("SPLITGO_MINIO_SECRET_KEY", "minioadmin"),
		Bucket:    "splitgo-test",
		Prefix:    fmt.Sprintf("run-%d", time.Now().UnixNano()),
	})
	require.NoError(t, err)

	src := t.TempDir()
	require.NoError(t, testutil.Scenario().Write(fs.Default, src))

	res, err := splitgo.Run(ctx, src, splitgo.WithDestination(store), splitgo.WithRatios(0.2, 0.1))
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, store.Location(), res.Location)

	m, err := manifest.Read(ctx, store, manifest.DataFile)
	require.NoError(t, err)
	assert.Equal(t, store.Location(), m.Path)

	existing, err := materialize.Existing(ctx, store)
	require.NoError(t, err)
	assert.Len(t, existing, 200)

	first := res.Dataset.Image(res.Assignment.Images(partition.Train).Minimum())
	data, err := blobstore.ReadAll(ctx, store, "train/images/"+first.ID+".jpg")
	require.NoError(t, err)
	assert.Equal(t, testutil.ImageBytes(first.ID), data)

	require.NoError(t, materialize.Clear(ctx, store))
	left, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = store.Open(ctx, manifest.DataFile)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
