package materialize

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/splitgo/partition"
)

// ErrAllFailed is returned when not a single file could be written.
var ErrAllFailed = errors.New("materialize: every copy failed")

// IOFailure records a file that could not be copied.
type IOFailure struct {
	Split partition.Split
	// Path is the destination name relative to the store root.
	Path string
	Err  error
}

func (e *IOFailure) Error() string {
	return fmt.Sprintf("materialize: %s: %s: %v", e.Split, e.Path, e.Err)
}

func (e *IOFailure) Unwrap() error { return e.Err }

func sortFailures(fs []*IOFailure) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].Split != fs[j].Split {
			return fs[i].Split < fs[j].Split
		}
		return fs[i].Path < fs[j].Path
	})
}

// Join combines failures into a single error, or nil.
func Join(fs []*IOFailure) error {
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f
	}
	return errors.Join(errs...)
}
