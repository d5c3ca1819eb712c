package manifest

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/hupe1980/splitgo/internal/fs"
	"gopkg.in/yaml.v3"
)

// ClassMapping is an ordered class id to name mapping.
// The zero value is an empty mapping.
type ClassMapping struct {
	ids   []int
	names map[int]string
}

// DefaultName returns the placeholder name of a class without a known name.
func DefaultName(id int) string {
	return "class_" + strconv.Itoa(id)
}

// NewClassMapping maps ids to names, using DefaultName where names has no
// entry. ids are sorted and deduplicated.
func NewClassMapping(ids []int, names map[int]string) ClassMapping {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	m := ClassMapping{ids: sorted, names: make(map[int]string, len(sorted))}
	for _, id := range sorted {
		if n, ok := names[id]; ok && n != "" {
			m.names[id] = n
		} else {
			m.names[id] = DefaultName(id)
		}
	}
	return m
}

// Table returns the class table handed to a trainer: every id from 0 up to
// the largest id of m or source, so that no class id left in a label file
// exceeds nc. Names come from source, then m, then DefaultName.
func Table(m ClassMapping, source map[int]string) ClassMapping {
	top := m.Dim() - 1
	for id := range source {
		top = max(top, id)
	}

	ids := make([]int, 0, top+1)
	names := make(map[int]string, top+1)
	for id := 0; id <= top; id++ {
		ids = append(ids, id)
		if n := source[id]; n != "" {
			names[id] = n
		} else if n, ok := m.names[id]; ok {
			names[id] = n
		}
	}
	return NewClassMapping(ids, names)
}

// Dim returns the largest class id plus one, or 0 for an empty mapping.
func (m ClassMapping) Dim() int {
	if len(m.ids) == 0 {
		return 0
	}
	return m.ids[len(m.ids)-1] + 1
}

// IDs returns the class ids in ascending order.
func (m ClassMapping) IDs() []int {
	return m.ids
}

// Len returns the number of classes.
func (m ClassMapping) Len() int {
	return len(m.ids)
}

// Name returns the name of class id.
func (m ClassMapping) Name(id int) (string, bool) {
	n, ok := m.names[id]
	return n, ok
}

// Names returns a copy of the id to name map.
func (m ClassMapping) Names() map[int]string {
	out := make(map[int]string, len(m.names))
	for k, v := range m.names {
		out[k] = v
	}
	return out
}

// MarshalYAML encodes the mapping as an ordered YAML map.
func (m ClassMapping) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, id := range m.ids {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(id)},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.names[id]},
		)
	}
	return node, nil
}

// UnmarshalYAML accepts a sequence (index is the id) or an id to name map.
func (m *ClassMapping) UnmarshalYAML(node *yaml.Node) error {
	names := make(map[int]string)
	var ids []int

	switch node.Kind {
	case yaml.SequenceNode:
		for i, n := range node.Content {
			var name string
			if err := n.Decode(&name); err != nil {
				return err
			}
			ids = append(ids, i)
			names[i] = name
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			id, err := strconv.Atoi(node.Content[i].Value)
			if err != nil {
				return fmt.Errorf("manifest: class id %q: %w", node.Content[i].Value, err)
			}
			var name string
			if err := node.Content[i+1].Decode(&name); err != nil {
				return err
			}
			if _, dup := names[id]; dup {
				return fmt.Errorf("manifest: duplicate class id %d", id)
			}
			ids = append(ids, id)
			names[id] = name
		}
	default:
		return fmt.Errorf("manifest: names must be a list or a map, line %d", node.Line)
	}

	*m = NewClassMapping(ids, names)
	return nil
}

// LoadNames reads the names entry of an existing data.yaml. A missing file
// yields an empty map.
func LoadNames(fsys fs.FileSystem, path string) (map[int]string, error) {
	if fsys == nil {
		fsys = fs.Default
	}

	data, err := fs.ReadFile(fsys, path)
	if errors.Is(err, os.ErrNotExist) {
		return map[int]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc struct {
		Names ClassMapping `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}

	return doc.Names.Names(), nil
}
