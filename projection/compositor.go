package projection

import (
	"fmt"
	"strings"

	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/common"
)

// ResolveMethod maps a normalization name to a method. An empty name means
// no choice was made and silently yields fallback; an unknown name yields
// fallback plus exactly one warning on r.
func ResolveMethod(name string, fallback common.Method, r Reporter) common.Method {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	m, err := common.ParseMethod(name)
	if err != nil {
		r.Warning(fmt.Sprintf("Non-existent normalization function %s specified; defaulting to %s", name, fallback))
		return fallback
	}
	return m
}

// Compositor normalizes, weights and concatenates feature streams
type Compositor struct {
	fallback common.Method
}

// NewCompositor creates a compositor that uses fallback for absent or
// unknown per-feature normalization names
func NewCompositor(fallback common.Method) *Compositor {
	return &Compositor{fallback: fallback}
}

// Compose builds the composite matrix. Features are visited in weight-map
// order; every feature with a positive weight is normalized with the method
// named normName, scaled by its weight and appended column-wise. Features
// that are missing, ragged, or whose frame count differs from the first
// included feature are skipped with a warning. With no included feature the
// result is an N x 0 matrix, N being features.Frames().
func (c *Compositor) Compose(features Features, weights WeightMap, normName string, r Reporter) [][]float64 {
	normalizer := common.NewNormalizer(ResolveMethod(normName, c.fallback, r))

	var composite [][]float64
	for _, w := range weights {
		if !(w.Value > 0) {
			continue
		}
		X, ok := features[w.Name]
		if !ok {
			r.Warning(fmt.Sprintf("Asking for parameter %s, but does not exist in audio features", w.Name))
			continue
		}
		if !rectangular(X) {
			r.Warning(fmt.Sprintf("Feature %s has frames of differing dimension; skipping it", w.Name))
			continue
		}
		if composite != nil && len(X) != len(composite) {
			r.Warning(fmt.Sprintf("Feature %s has %d frames, expected %d; skipping it", w.Name, len(X), len(composite)))
			continue
		}

		r.Progress("Normalizing " + w.Name)
		Xi := normalizer.Normalize(X)
		if normalizer.Method() == common.Identity {
			Xi = common.Clone(Xi)
		}
		common.Scale(w.Value, Xi)

		if composite == nil {
			composite = Xi
		} else {
			composite = common.HConcat(composite, Xi)
		}
	}

	if composite == nil {
		return common.Zeros(features.Frames(), 0)
	}
	return composite
}

func rectangular(X [][]float64) bool {
	for _, row := range X {
		if len(row) != len(X[0]) {
			return false
		}
	}
	return true
}

// JointNormalizer normalizes the composed and windowed matrix as a whole
type JointNormalizer struct {
	fallback common.Method
}

// NewJointNormalizer creates a joint normalizer that uses fallback for
// absent or unknown names
func NewJointNormalizer(fallback common.Method) *JointNormalizer {
	return &JointNormalizer{fallback: fallback}
}

// Normalize applies the method named normName to X.
func (j *JointNormalizer) Normalize(X [][]float64, normName string, r Reporter) [][]float64 {
	return common.NewNormalizer(ResolveMethod(normName, j.fallback, r)).Normalize(X)
}
