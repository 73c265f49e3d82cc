package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/plate-redact/internal/geometry"
)

func fillRect(m *Mask, b geometry.Box) {
	for y := b.Y1; y < b.Y2; y++ {
		for x := b.X1; x < b.X2; x++ {
			m.Set(x, y)
		}
	}
}

func TestComponents(t *testing.T) {
	m := NewMask(100, 60)
	big := geometry.Box{X1: 10, Y1: 30, X2: 70, Y2: 45}
	small := geometry.Box{X1: 80, Y1: 5, X2: 90, Y2: 10}
	fillRect(m, big)
	fillRect(m, small)
	m.Set(0, 0) // speck

	comps := Components(m, 5)
	require.Len(t, comps, 2)
	assert.Equal(t, big, comps[0].Box, "largest first")
	assert.Equal(t, 60*15, comps[0].Pixels)
	assert.Equal(t, small, comps[1].Box)
}

func TestComponents_DiagonalConnectivity(t *testing.T) {
	m := NewMask(5, 5)
	for i := 0; i < 5; i++ {
		m.Set(i, i)
	}
	comps := Components(m, 1)
	require.Len(t, comps, 1)
	assert.Equal(t, geometry.Box{X1: 0, Y1: 0, X2: 5, Y2: 5}, comps[0].Box)
}

func TestComponents_Empty(t *testing.T) {
	assert.Empty(t, Components(NewMask(10, 10), 1))
}
