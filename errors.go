package splitgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/splitgo/label"
	"github.com/hupe1980/splitgo/materialize"
	"github.com/hupe1980/splitgo/partition"
)

var (
	// ErrInsufficientData is returned when validation removed every class or
	// left no image to partition.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidOptions is returned for out-of-range options.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrOutputExists is returned when the destination already holds a split
	// and overwriting was not requested.
	ErrOutputExists = errors.New("output already contains a split")

	// ErrStratificationInfeasible signals that some class cannot be
	// represented in every active split. Run recovers from it by falling back
	// to a random split.
	ErrStratificationInfeasible = partition.ErrStratificationInfeasible

	// ErrAllFailed is returned when materialization copied no file at all.
	ErrAllFailed = materialize.ErrAllFailed
)

type (
	// FormatError is a malformed label line.
	FormatError = label.FormatError
	// ConsistencyError is an image/label pairing violation.
	ConsistencyError = label.ConsistencyError
	// IOFailure is a per-file materialization failure.
	IOFailure = materialize.IOFailure
)

// InsufficientDataError carries the validation outcome that left nothing to
// split. It matches ErrInsufficientData.
type InsufficientDataError struct {
	Classes    int
	Images     int
	MinSamples int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d classes and %d images left after validation with min_samples=%d",
		e.Classes, e.Images, e.MinSamples)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// IsFatal reports whether err aborts a run before any output is written.
// Fallback conditions and per-file failures are not fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fe *FormatError
	var ce *ConsistencyError
	return errors.As(err, &fe) || errors.As(err, &ce) ||
		errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrInvalidOptions) ||
		errors.Is(err, ErrOutputExists)
}
