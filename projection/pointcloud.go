package projection

import (
	"math"
	"sort"
)

// Flatten32 unrolls a point cloud into the row-major float32 layout of a
// vertex buffer, 3 values per point. Points with fewer than 3 coordinates
// are zero-padded; extra coordinates are dropped.
func Flatten32(points [][]float64) []float32 {
	out := make([]float32, 3*len(points))
	for i, p := range points {
		for j := 0; j < 3 && j < len(p); j++ {
			out[3*i+j] = float32(p[j])
		}
	}
	return out
}

// BoundingBox is an axis-aligned box in 3D
type BoundingBox struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() [3]float64 {
	var c [3]float64
	for k := range c {
		c[k] = (b.Min[k] + b.Max[k]) / 2
	}
	return c
}

// Extent returns the length of the longest side of the box.
func (b BoundingBox) Extent() float64 {
	extent := 0.0
	for k := range b.Min {
		extent = math.Max(extent, b.Max[k]-b.Min[k])
	}
	return extent
}

// Bounds returns the bounding box of points, with missing coordinates read
// as 0 like Flatten32. ok is false when there are no points.
func Bounds(points [][]float64) (box BoundingBox, ok bool) {
	if len(points) == 0 {
		return BoundingBox{}, false
	}
	for k := range 3 {
		box.Min[k] = math.Inf(1)
		box.Max[k] = math.Inf(-1)
	}
	for _, p := range points {
		for k := range 3 {
			v := 0.0
			if k < len(p) {
				v = p[k]
			}
			box.Min[k] = math.Min(box.Min[k], v)
			box.Max[k] = math.Max(box.Max[k], v)
		}
	}
	return box, true
}

// NearestFrame returns the index of the timestamp closest to t in the
// ascending times, preferring the earlier frame on ties. It returns -1 for
// no timestamps.
func NearestFrame(times []float64, t float64) int {
	if len(times) == 0 {
		return -1
	}
	i := sort.SearchFloat64s(times, t)
	switch {
	case i == 0:
		return 0
	case i == len(times):
		return len(times) - 1
	case t-times[i-1] <= times[i]-t:
		return i - 1
	default:
		return i
	}
}

// AlignFrames re-slices per-frame metadata (timestamps, colors) to the
// first rows frames, matching a result whose windowing kept rows 0..rows-1.
// Metadata shorter than rows is returned whole.
func AlignFrames[T any](meta []T, rows int) []T {
	if rows < 0 {
		rows = 0
	}
	if rows > len(meta) {
		return meta
	}
	return meta[:rows]
}
