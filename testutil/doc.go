// Package testutil provides testing utilities for splitgo.
//
// This package is intended for use in tests and benchmarks only.
// It generates synthetic annotated corpora and writes them in the
// all_images/all_labels layout.
//
// # Synthetic Corpora
//
//	rng := testutil.NewRNG(seed)
//	c := rng.Corpus(testutil.CorpusConfig{Images: 500, Classes: 8, Skew: 1.2})
//	require.NoError(t, c.Write(fsys, dir))
//
// # Fixed Scenarios
//
//	c := testutil.Scenario() // 60 images of class 0, 15 of class 1, 25 backgrounds
package testutil
