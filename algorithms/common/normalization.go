package common

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrUnknownMethod is returned by ParseMethod for names that do not map to a
// normalization method.
var ErrUnknownMethod = errors.New("unknown normalization method")

// Method defines a frame-matrix normalization method
type Method int

const (
	Identity Method = iota
	MeanCenter
	ZNorm
	StdevNorm
)

// String returns the canonical configuration name of the method.
func (m Method) String() string {
	switch m {
	case Identity:
		return "none"
	case MeanCenter:
		return "meanCenter"
	case ZNorm:
		return "zNorm"
	case StdevNorm:
		return "stdevNorm"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// methodNames holds every accepted spelling, including the historical
// function names older clients send.
var methodNames = map[string]Method{
	"none":         Identity,
	"None":         Identity,
	"identity":     Identity,
	"meanCenter":   MeanCenter,
	"zNorm":        ZNorm,
	"getZNorm":     ZNorm,
	"stdevNorm":    StdevNorm,
	"getSTDevNorm": StdevNorm,
}

// ParseMethod resolves a normalization name. Surrounding whitespace is
// ignored; matching is otherwise exact.
func ParseMethod(name string) (Method, error) {
	if m, ok := methodNames[strings.TrimSpace(name)]; ok {
		return m, nil
	}
	return Identity, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// Normalizer applies one normalization method to frame matrices
type Normalizer struct {
	method Method
}

// NewNormalizer creates a new normalizer
func NewNormalizer(method Method) *Normalizer {
	return &Normalizer{
		method: method,
	}
}

// Method returns the method the normalizer applies.
func (n *Normalizer) Method() Method {
	return n.method
}

// Normalize normalizes X using the configured method. Identity returns X
// itself; every other method returns a fresh matrix and leaves X untouched.
func (n *Normalizer) Normalize(X [][]float64) [][]float64 {
	switch n.method {
	case MeanCenter:
		return CenterColumns(X)
	case ZNorm:
		return NormalizeRows(X)
	case StdevNorm:
		return NormalizeColumnsStdev(X)
	default:
		return X
	}
}

// CenterColumns subtracts each column's arithmetic mean from every row.
func CenterColumns(X [][]float64) [][]float64 {
	rows, cols := Dims(X)
	out := Clone(X)
	if rows == 0 || cols == 0 {
		return out
	}

	means := make([]float64, cols)
	for j := range means {
		means[j] = Mean(Column(X, j))
	}
	for _, row := range out {
		floats.Sub(row, means)
	}
	return out
}

// NormalizeRows mean-centers X and then scales every row to unit Euclidean
// norm. Rows whose norm is exactly zero after centering are left as is.
func NormalizeRows(X [][]float64) [][]float64 {
	out := CenterColumns(X)
	for _, row := range out {
		norm := floats.Norm(row, 2)
		if norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return out
}

// NormalizeColumnsStdev mean-centers X and divides every column by its
// sample standard deviation times sqrt(N). Constant columns are left as is.
func NormalizeColumnsStdev(X [][]float64) [][]float64 {
	out := CenterColumns(X)
	rows, cols := Dims(out)
	if rows < 2 {
		return out
	}

	sqrtN := math.Sqrt(float64(rows))
	for j := 0; j < cols; j++ {
		col := Column(out, j)
		ss := floats.Dot(col, col)
		if ss <= 0 {
			continue
		}
		norm := math.Sqrt(ss/float64(rows-1)) * sqrtN
		for _, row := range out {
			row[j] /= norm
		}
	}
	return out
}
