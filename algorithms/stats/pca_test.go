package stats_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/common"
	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/stats"
)

func wide() [][]float64 {
	return [][]float64{
		{1, 0, 2, 5, -1},
		{0, 3, 1, 2, 2},
		{4, 1, 0, -3, 1},
		{2, 2, 2, 2, 2},
		{-1, 5, 3, 0, 0},
		{3, -2, 1, 1, 4},
	}
}

func TestPCASkipsNarrowInput(t *testing.T) {
	p := stats.NewPCA(1)
	for _, X := range [][][]float64{
		{{1}, {2}, {3}},
		{{1, 10}, {2, 10}},
		{{1, 2, 3}, {4, 5, 6}},
	} {
		Y := p.Reduce(X)
		assert.Same(t, &X[0][0], &Y[0][0])
		assert.Equal(t, X, Y)
	}

	empty := [][]float64{{}, {}}
	assert.Equal(t, empty, p.Reduce(empty))
}

func TestPCAShape(t *testing.T) {
	X := wide()
	Y := stats.NewPCA(7).Reduce(X)

	rows, cols := common.Dims(Y)
	assert.Equal(t, len(X), rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, wide(), X, "input must not be modified")
}

func TestPCACustomTargetDim(t *testing.T) {
	p := stats.NewPCAWithParams(stats.PCAParams{TargetDim: 2, Iterations: 50, Seed: 3})
	Y := p.Reduce(wide())
	_, cols := common.Dims(Y)
	assert.Equal(t, 2, cols)
	assert.True(t, p.Skips(2))
	assert.False(t, p.Skips(3))
}

func TestPCASeedIsReproducible(t *testing.T) {
	a := stats.NewPCA(42).Reduce(wide())
	b := stats.NewPCA(42).Reduce(wide())
	assert.Equal(t, a, b)
}

func TestPCARankOneRecoversDirection(t *testing.T) {
	u := []float64{1, 2, 0, -2, 4}
	norm := 0.0
	for _, v := range u {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	ts := []float64{-2, -1, 0.5, 1, 3, 4}
	X := make([][]float64, len(ts))
	for i, s := range ts {
		X[i] = make([]float64, len(u))
		for k, v := range u {
			X[i][k] = s * v
		}
	}

	Y := stats.NewPCA(11).Reduce(X)
	sign := math.Copysign(1, Y[len(ts)-1][0])
	for i, s := range ts {
		assert.InDelta(t, s*norm, sign*Y[i][0], 1e-6, "row %d", i)
	}
}

func TestPCAFirstComponentCarriesMostVariance(t *testing.T) {
	// Column scales differ by an order of magnitude, so the extraction order
	// after 100 iterations matches the variance order.
	X := make([][]float64, 40)
	for i := range X {
		s := float64(i)
		X[i] = []float64{
			100 * math.Sin(s*0.3),
			10 * math.Cos(s*0.7),
			1 * math.Sin(s*1.1),
			0.1 * math.Cos(s*1.9),
		}
	}
	Y := stats.NewPCA(5).Reduce(common.CenterColumns(X))

	energy := make([]float64, 3)
	for _, row := range Y {
		for j, v := range row {
			energy[j] += v * v
		}
	}
	assert.Greater(t, energy[0], energy[1])
	assert.Greater(t, energy[1], energy[2])
}

func TestPCAContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := stats.NewPCA(1).ReduceContext(ctx, wide())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDominantEigenvector(t *testing.T) {
	a := mat.NewDiagDense(3, []float64{5, 2, 1})
	start := mat.NewVecDense(3, []float64{0.3, 0.8, 0.5})

	v := stats.DominantEigenvector(a, start, 100)
	require.Equal(t, 3, v.Len())
	assert.InDelta(t, 1, mat.Norm(v, 2), 1e-12)
	assert.InDelta(t, 1, math.Abs(v.AtVec(0)), 1e-9)
	assert.InDelta(t, 0, v.AtVec(1), 1e-9)

	// The start vector is not modified.
	assert.Equal(t, 0.3, start.AtVec(0))
}

func TestDominantEigenvectorZeroMatrix(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	start := mat.NewVecDense(2, []float64{3, 4})

	v := stats.DominantEigenvector(a, start, 10)
	assert.InDelta(t, 0.6, v.AtVec(0), 1e-12)
	assert.InDelta(t, 0.8, v.AtVec(1), 1e-12)
}
