package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// channelsFirst lays out candidates as [attrs, n] with n columns.
func channelsFirst(n int, cands ...[]float32) []float32 {
	attrs := len(cands[0])
	data := make([]float32, attrs*n)
	for i, c := range cands {
		for a, v := range c {
			data[a*n+i] = v
		}
	}
	return data
}

// rows lays out candidates as [n, attrs], padding with zero rows.
func rows(n int, cands ...[]float32) []float32 {
	attrs := len(cands[0])
	data := make([]float32, attrs*n)
	for i, c := range cands {
		copy(data[i*attrs:], c)
	}
	return data
}

func TestDecodeYOLO_ChannelsFirst(t *testing.T) {
	// cx, cy, w, h, class0, class1
	data := channelsFirst(8,
		[]float32{320, 320, 100, 20, 0.1, 0.9},
		[]float32{100, 100, 10, 10, 0.1, 0.2},
		[]float32{50, 60, 20, 10, 0.5, 0.0},
	)
	boxes, err := decodeYOLO(data, []int{1, 6, 8}, ModelOptions{Confidence: 0.25}, 2, 1)
	require.NoError(t, err)
	require.Len(t, boxes, 2)

	assert.Equal(t, RawBox{X1: 540, Y1: 310, X2: 740, Y2: 330, Confidence: float64(float32(0.9)), Class: 1}, boxes[0])
	assert.Equal(t, 0, boxes[1].Class)
	assert.InDelta(t, 0.5, boxes[1].Confidence, 1e-6)
}

func TestDecodeYOLO_Rows(t *testing.T) {
	// cx, cy, w, h, objectness, class0, class1
	data := rows(8,
		[]float32{100, 200, 40, 10, 0.9, 0.2, 0.8},
		[]float32{50, 50, 10, 10, 0.2, 0.9, 0.1},
	)
	boxes, err := decodeYOLO(data, []int{1, 8, 7}, ModelOptions{Confidence: 0.25}, 1, 1)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 1, boxes[0].Class)
	assert.InDelta(t, 0.72, boxes[0].Confidence, 1e-6)
	assert.InDelta(t, 80, boxes[0].X1, 1e-6)
	assert.InDelta(t, 205, boxes[0].Y2, 1e-6)
}

func TestDecodeYOLO_ClassFilter(t *testing.T) {
	data := rows(8, []float32{100, 200, 40, 10, 0.9, 0.2, 0.8})
	boxes, err := decodeYOLO(data, []int{1, 8, 7}, ModelOptions{Confidence: 0.25, Classes: []int{0}}, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestDecodeYOLO_BadShape(t *testing.T) {
	_, err := decodeYOLO(nil, []int{1, 6}, ModelOptions{}, 1, 1)
	assert.Error(t, err)

	_, err = decodeYOLO(make([]float32, 5), []int{1, 6, 8}, ModelOptions{}, 1, 1)
	assert.Error(t, err)

	_, err = decodeYOLO(make([]float32, 40), []int{1, 4, 10}, ModelOptions{}, 1, 1)
	assert.Error(t, err)
}

func TestModelOptionsDefaults(t *testing.T) {
	o := ModelOptions{}.withDefaults()
	assert.Equal(t, 640, o.InputSize)
	assert.InDelta(t, 0.25, o.Confidence, 1e-9)
	assert.True(t, o.wantClass(7))
	assert.False(t, ModelOptions{Classes: []int{1}}.wantClass(0))
}
