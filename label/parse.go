package label

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MinGeometryFields is the smallest number of geometry values on a line.
const MinGeometryFields = 4

var (
	errTooFewFields  = fmt.Errorf("need a class id and at least %d geometry values", MinGeometryFields)
	errNegativeClass = errors.New("class id must not be negative")
)

// Parse reads label lines from r. path is only used for error reporting.
// Blank lines are skipped.
func Parse(path string, r io.Reader) ([]Annotation, error) {
	var anns []Annotation

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		a, err := ParseLine(text)
		if err != nil {
			return nil, &FormatError{Path: path, Line: lineNo, Text: text, Err: err}
		}
		anns = append(anns, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("label: read %s: %w", path, err)
	}

	return anns, nil
}

// ParseLine parses a single non-blank label line.
func ParseLine(line string) (Annotation, error) {
	fields := strings.Fields(line)
	if len(fields) < 1+MinGeometryFields {
		return Annotation{}, errTooFewFields
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Annotation{}, fmt.Errorf("class id: %w", err)
	}
	if id < 0 {
		return Annotation{}, errNegativeClass
	}

	geom := make([]float64, len(fields)-1)
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Annotation{}, fmt.Errorf("geometry field %d: %w", i+1, err)
		}
		geom[i] = v
	}

	return Annotation{ClassID: id, Geometry: geom, Raw: line}, nil
}
