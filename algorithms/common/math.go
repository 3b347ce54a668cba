package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions and frame-matrix helpers used across algorithms.
//
// A frame matrix is a [][]float64 with one row per frame. Rows all have the
// same length; an N x 0 matrix is N empty rows.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the sample variance of a slice using gonum
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return math.Sqrt(Variance(data))
}

// Dims returns the number of rows and columns of X. The column count is
// taken from the first row; a matrix with no rows has zero columns.
func Dims(X [][]float64) (rows, cols int) {
	rows = len(X)
	if rows == 0 {
		return 0, 0
	}
	return rows, len(X[0])
}

// Zeros allocates a rows x cols matrix backed by one contiguous slice.
func Zeros(rows, cols int) [][]float64 {
	backing := make([]float64, rows*cols)
	out := make([][]float64, rows)
	for i := range out {
		out[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return out
}

// Clone returns a deep copy of X.
func Clone(X [][]float64) [][]float64 {
	rows, cols := Dims(X)
	out := Zeros(rows, cols)
	for i, row := range X {
		copy(out[i], row)
	}
	return out
}

// Column copies column j of X into a new slice.
func Column(X [][]float64, j int) []float64 {
	col := make([]float64, len(X))
	for i, row := range X {
		col[i] = row[j]
	}
	return col
}

// Scale multiplies every entry of X by alpha in place.
func Scale(alpha float64, X [][]float64) {
	for _, row := range X {
		floats.Scale(alpha, row)
	}
}

// HConcat returns a new matrix whose row i is A[i] followed by B[i].
// Both inputs must have the same row count.
func HConcat(A, B [][]float64) [][]float64 {
	rows, colsA := Dims(A)
	_, colsB := Dims(B)
	out := Zeros(rows, colsA+colsB)
	for i := range out {
		copy(out[i], A[i])
		copy(out[i][colsA:], B[i])
	}
	return out
}
