package label

import (
	"fmt"
	"strings"
)

// FormatError reports a label line that cannot be parsed.
type FormatError struct {
	Path string
	Line int
	Text string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("label: %s:%d: malformed line %q: %v", e.Path, e.Line, e.Text, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ConsistencyKind classifies a ConsistencyError.
type ConsistencyKind int

const (
	// MissingLabel is an image without a label file (strict mode only).
	MissingLabel ConsistencyKind = iota
	// OrphanLabel is a label file without an image (strict mode only).
	OrphanLabel
	// DuplicateStem is two images that map to the same label file.
	DuplicateStem
)

func (k ConsistencyKind) String() string {
	switch k {
	case MissingLabel:
		return "missing label"
	case OrphanLabel:
		return "orphan label"
	case DuplicateStem:
		return "duplicate stem"
	default:
		return fmt.Sprintf("ConsistencyKind(%d)", int(k))
	}
}

// ConsistencyError reports an image/label pairing problem.
type ConsistencyError struct {
	Kind    ConsistencyKind
	ImageID string
	Paths   []string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("label: %s for %q (%s)", e.Kind, e.ImageID, strings.Join(e.Paths, ", "))
}
