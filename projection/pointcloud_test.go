package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatten32(t *testing.T) {
	got := Flatten32([][]float64{{1, 2, 3}, {4}, {5, 6, 7, 8}})
	assert.Equal(t, []float32{1, 2, 3, 4, 0, 0, 5, 6, 7}, got)
	assert.Empty(t, Flatten32(nil))
}

func TestBounds(t *testing.T) {
	_, ok := Bounds(nil)
	assert.False(t, ok)

	box, ok := Bounds([][]float64{{1, -2, 3}, {-1, 4, 5}, {0, 0}})
	assert.True(t, ok)
	assert.Equal(t, [3]float64{-1, -2, 0}, box.Min)
	assert.Equal(t, [3]float64{1, 4, 5}, box.Max)
	assert.Equal(t, [3]float64{0, 1, 2.5}, box.Center())
	assert.Equal(t, 6.0, box.Extent())
}

func TestNearestFrame(t *testing.T) {
	times := []float64{0, 0.5, 1, 2}
	tests := []struct {
		t    float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{0.2, 0},
		{0.25, 0},
		{0.3, 1},
		{1.5, 2},
		{1.9, 3},
		{10, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NearestFrame(times, tt.t), "t=%v", tt.t)
	}
	assert.Equal(t, -1, NearestFrame(nil, 1))
}

func TestAlignFrames(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	assert.Equal(t, []float64{0, 1, 2}, AlignFrames(times, 3))
	assert.Equal(t, times, AlignFrames(times, 9))
	assert.Empty(t, AlignFrames(times, -1))
}
