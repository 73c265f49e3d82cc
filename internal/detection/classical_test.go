package detection

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/geometry"
	"github.com/ironsheep/plate-redact/internal/plate"
)

func TestEdgeDetector_FindsPlate(t *testing.T) {
	plateRect := image.Rect(240, 330, 400, 370)
	src := sourceOf(plateImage(640, 480, plateRect))

	d := NewEdgeDetector(StrictGeometry(), zap.NewNop())
	assert.Equal(t, plate.SourceEdge, d.Name())

	cands, err := d.Detect(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, plate.SourceEdge, c.Source)
	assert.False(t, c.HasConfidence)
	assert.Greater(t, geometry.IoU(c.Box, geometry.FromRect(plateRect)), 0.4)
	cx, cy := c.Box.Center()
	assert.True(t, image.Pt(int(cx), int(cy)).In(plateRect))
}

func TestEdgeDetector_UniformImage(t *testing.T) {
	d := NewEdgeDetector(StrictGeometry(), zap.NewNop())
	cands, err := d.Detect(context.Background(), sourceOf(solid(320, 240, color.Gray{Y: 90})))
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestEdgeDetector_MapsBackFromDownscale(t *testing.T) {
	plateRect := image.Rect(1200, 1320, 1520, 1400)
	src := sourceOf(plateImage(2560, 1920, plateRect))

	cands, err := NewEdgeDetector(StrictGeometry(), zap.NewNop()).Detect(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Greater(t, geometry.IoU(cands[0].Box, geometry.FromRect(plateRect)), 0.4)
}

func TestEdgeDetector_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEdgeDetector(StrictGeometry(), zap.NewNop()).Detect(ctx, sourceOf(solid(10, 10, color.White)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestColorDetector_Yellow(t *testing.T) {
	img := solid(640, 480, color.RGBA{30, 60, 160, 255})
	fill(img, image.Rect(220, 360, 420, 410), color.RGBA{240, 200, 20, 255})

	d := NewColorDetector(StrictGeometry(), zap.NewNop())
	assert.Equal(t, plate.SourceColor, d.Name())

	cands, err := d.Detect(context.Background(), sourceOf(img))
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "yellow", cands[0].Label)
	assert.Equal(t, geometry.Box{X1: 208, Y1: 358, X2: 432, Y2: 412}, cands[0].Box)
}

func TestColorDetector_WhiteFallback(t *testing.T) {
	img := solid(640, 480, color.RGBA{30, 60, 160, 255})
	fill(img, image.Rect(220, 360, 420, 410), color.White)

	cands, err := NewColorDetector(StrictGeometry(), zap.NewNop()).Detect(context.Background(), sourceOf(img))
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "white", cands[0].Label)
}

func TestColorDetector_Nothing(t *testing.T) {
	img := solid(640, 480, color.RGBA{30, 60, 160, 255})
	cands, err := NewColorDetector(StrictGeometry(), zap.NewNop()).Detect(context.Background(), sourceOf(img))
	require.NoError(t, err)
	assert.Empty(t, cands)
}
