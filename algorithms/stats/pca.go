package stats

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/common"
)

// PCAParams configures the power-iteration PCA reducer
type PCAParams struct {
	TargetDim  int    `json:"target_dim"` // number of components to extract
	Iterations int    `json:"iterations"` // power iterations per component, no convergence test
	Seed       uint64 `json:"seed"`       // seed of the random starting vectors
}

// PCA reduces frame matrices to at most TargetDim dimensions by sequential
// deflation and power iteration on the Gram matrix of the residual.
//
// Every component starts from a uniformly random vector, so only the seed
// makes results repeatable. Components come out in extraction order; with
// too few iterations that need not be the order of explained variance, and
// the sign of each component is arbitrary.
type PCA struct {
	params PCAParams
}

// NewPCA creates a reducer to 3 dimensions with 100 iterations per
// component and the given seed
func NewPCA(seed uint64) *PCA {
	return &PCA{
		params: PCAParams{
			TargetDim:  3,
			Iterations: 100,
			Seed:       seed,
		},
	}
}

// NewPCAWithParams creates a reducer with custom parameters
func NewPCAWithParams(params PCAParams) *PCA {
	return &PCA{params: params}
}

// Params returns the reducer parameters
func (p *PCA) Params() PCAParams {
	return p.params
}

// Skips reports whether Reduce returns a matrix with cols columns unchanged.
func (p *PCA) Skips(cols int) bool {
	return cols <= p.params.TargetDim
}

// Reduce projects X onto its leading TargetDim directions. When X has
// TargetDim columns or fewer it is returned unchanged.
func (p *PCA) Reduce(X [][]float64) [][]float64 {
	out, _ := p.ReduceContext(context.Background(), X)
	return out
}

// ReduceContext is Reduce with cancellation checked before every component.
func (p *PCA) ReduceContext(ctx context.Context, X [][]float64) ([][]float64, error) {
	rows, cols := common.Dims(X)
	if p.Skips(cols) {
		return X, nil
	}
	k := p.params.TargetDim
	if rows == 0 || k <= 0 {
		return common.Zeros(rows, max(k, 0)), nil
	}

	data := make([]float64, 0, rows*cols)
	for _, row := range X {
		data = append(data, row...)
	}
	x := mat.NewDense(rows, cols, data)
	y := mat.DenseCopyOf(x)

	uniform := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(p.params.Seed, p.params.Seed)}
	start := mat.NewVecDense(cols, nil)

	out := common.Zeros(rows, k)
	var gram mat.Dense
	var proj mat.VecDense
	for j := range k {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		gram.Reset()
		gram.Mul(y.T(), y)

		for i := range cols {
			start.SetVec(i, uniform.Rand())
		}
		v := DominantEigenvector(&gram, start, p.params.Iterations)

		// Coordinates come from the original data, not the residual.
		proj.Reset()
		proj.MulVec(x, v)
		for i := range rows {
			out[i][j] = proj.AtVec(i)
		}

		y.RankOne(y, -1, &proj, v)
	}
	return out, nil
}

// DominantEigenvector approximates the dominant eigenvector of the square
// matrix a by running the power method from start for a fixed number of
// iterations. The result has unit norm unless start is the zero vector.
// If a maps the current estimate to zero the estimate is kept as is.
func DominantEigenvector(a mat.Matrix, start mat.Vector, iterations int) *mat.VecDense {
	v := mat.VecDenseCopyOf(start)
	if norm := mat.Norm(v, 2); norm > 0 {
		v.ScaleVec(1/norm, v)
	}

	next := mat.NewVecDense(v.Len(), nil)
	for range iterations {
		next.MulVec(a, v)
		norm := mat.Norm(next, 2)
		if norm == 0 {
			break
		}
		next.ScaleVec(1/norm, next)
		v, next = next, v
	}
	return v
}
