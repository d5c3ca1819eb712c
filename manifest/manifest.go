package manifest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hupe1980/splitgo/blobstore"
	"github.com/hupe1980/splitgo/partition"
	"gopkg.in/yaml.v3"
)

const (
	// DataFile is the training manifest.
	DataFile = "data.yaml"
	// TestFile is the evaluation manifest.
	TestFile = "test.yaml"
)

// Manifest is the content of data.yaml and test.yaml.
type Manifest struct {
	Path  string       `yaml:"path"`
	Train string       `yaml:"train"`
	Val   string       `yaml:"val"`
	Test  string       `yaml:"test,omitempty"`
	NC    int          `yaml:"nc"`
	Names ClassMapping `yaml:"names"`
}

// ImagesDir returns the images directory of split s relative to the root.
func ImagesDir(s partition.Split) string {
	return s.String() + "/images"
}

// LabelsDir returns the labels directory of split s relative to the root.
func LabelsDir(s partition.Split) string {
	return s.String() + "/labels"
}

// New builds the training manifest for the given splits. nc is the largest
// class id plus one, as YOLO trainers expect.
func New(location string, splits []partition.Split, names ClassMapping) *Manifest {
	m := &Manifest{
		Path:  location,
		Train: ImagesDir(partition.Train),
		Val:   ImagesDir(partition.Valid),
		NC:    names.Dim(),
		Names: names,
	}
	for _, s := range splits {
		if s == partition.Test {
			m.Test = ImagesDir(partition.Test)
		}
	}
	return m
}

// HasTest reports whether the manifest references a test split.
func (m *Manifest) HasTest() bool {
	return m.Test != ""
}

// ForTesting returns a copy whose val entry points at the test split.
func (m *Manifest) ForTesting() *Manifest {
	c := *m
	c.Val = m.Test
	return &c
}

// Marshal encodes m as YAML with two-space indentation.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load decodes a manifest.
func Load(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if m.NC == 0 {
		m.NC = m.Names.Dim()
	}
	return &m, nil
}

// Write emits data.yaml and, when a test split exists, test.yaml into store.
// names should be a dense Table. It returns the names of the files written.
func Write(ctx context.Context, store blobstore.BlobStore, splits []partition.Split, names ClassMapping) ([]string, error) {
	m := New(blobstore.Location(store), splits, names)

	data, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, DataFile, data); err != nil {
		return nil, fmt.Errorf("manifest: write %s: %w", DataFile, err)
	}
	written := []string{DataFile}

	if !m.HasTest() {
		return written, nil
	}

	data, err = m.ForTesting().Marshal()
	if err != nil {
		return written, err
	}
	if err := store.Put(ctx, TestFile, data); err != nil {
		return written, fmt.Errorf("manifest: write %s: %w", TestFile, err)
	}
	return append(written, TestFile), nil
}

// Read loads a manifest file from store.
func Read(ctx context.Context, store blobstore.BlobStore, name string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	return Load(data)
}
