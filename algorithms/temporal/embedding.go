package temporal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/common"
)

// Mode selects the sliding-window transform applied to a frame matrix
type Mode int

const (
	ModeNone Mode = iota
	DelayEmbedding
	RunningMean
	RunningStdev
	RunningMeanStdev
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case DelayEmbedding:
		return "delay_embedding"
	case RunningMean:
		return "running_mean"
	case RunningStdev:
		return "running_stdev"
	case RunningMeanStdev:
		return "running_mean_stdev"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// OutputRows returns the number of windows of length winLength that fit in
// n frames. A window length of 1 or less keeps every frame.
func OutputRows(n, winLength int) int {
	if winLength <= 1 {
		return n
	}
	return max(n-winLength+1, 0)
}

// Embedder turns a frame matrix into a matrix of sliding-window descriptors
type Embedder struct {
	// No state needed - stateless calculation
}

// NewEmbedder creates a new sliding-window embedder
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// Embed applies mode with the given window length. A window length of 1 or
// less, and ModeNone, return X itself. Every other combination returns
// OutputRows(len(X), winLength) rows.
func (e *Embedder) Embed(X [][]float64, winLength int, mode Mode) [][]float64 {
	if winLength <= 1 {
		return X
	}

	switch mode {
	case DelayEmbedding:
		return e.DelayEmbed(X, winLength)
	case RunningMean:
		return e.WindowMean(X, winLength)
	case RunningStdev:
		return e.WindowStdev(X, winLength, nil)
	case RunningMeanStdev:
		return e.WindowMeanStdev(X, winLength)
	default:
		return X
	}
}

// DelayEmbed concatenates rows i..i+winLength-1 of X into output row i.
func (e *Embedder) DelayEmbed(X [][]float64, winLength int) [][]float64 {
	if winLength <= 1 {
		return X
	}

	rows, cols := common.Dims(X)
	outRows := OutputRows(rows, winLength)
	out := common.Zeros(outRows, cols*winLength)
	for i := range outRows {
		for di := range winLength {
			copy(out[i][di*cols:(di+1)*cols], X[i+di])
		}
	}
	return out
}

// WindowMean computes the column-wise mean of every window with a running
// sum: the incoming row is added and the outgoing row subtracted.
func (e *Embedder) WindowMean(X [][]float64, winLength int) [][]float64 {
	if winLength <= 1 {
		return X
	}

	rows, cols := common.Dims(X)
	outRows := OutputRows(rows, winLength)
	out := common.Zeros(outRows, cols)
	if outRows == 0 {
		return out
	}

	sum := make([]float64, cols)
	for i := range winLength {
		floats.Add(sum, X[i])
	}

	inv := 1 / float64(winLength)
	for i := range outRows {
		if i > 0 {
			floats.Add(sum, X[i+winLength-1])
			floats.Sub(sum, X[i-1])
		}
		floats.ScaleTo(out[i], inv, sum)
	}
	return out
}

// WindowStdev computes the column-wise sample standard deviation
// (denominator winLength-1) of every window. means holds the window means
// when they are already known; pass nil to have them computed.
func (e *Embedder) WindowStdev(X [][]float64, winLength int, means [][]float64) [][]float64 {
	if winLength <= 1 {
		return X
	}

	rows, cols := common.Dims(X)
	outRows := OutputRows(rows, winLength)
	if means == nil {
		means = e.WindowMean(X, winLength)
	}

	out := common.Zeros(outRows, cols)
	denom := float64(winLength - 1)
	for i := range outRows {
		for j := range cols {
			ss := 0.0
			for k := i; k < i+winLength; k++ {
				d := X[k][j] - means[i][j]
				ss += d * d
			}
			out[i][j] = math.Sqrt(ss / denom)
		}
	}
	return out
}

// WindowMeanStdev returns the window means followed by the window standard
// deviations. The means are computed once and reused for the deviations.
func (e *Embedder) WindowMeanStdev(X [][]float64, winLength int) [][]float64 {
	if winLength <= 1 {
		return X
	}

	means := e.WindowMean(X, winLength)
	stdevs := e.WindowStdev(X, winLength, means)
	return common.HConcat(means, stdevs)
}
