package mask

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/fishcount/images"
)

func TestPainterRectangleAndBrush(t *testing.T) {
	frame := images.NewFrameGenerator(200, 100).StaticFrame()
	defer frame.Close()

	p, err := NewPainter(frame)
	require.NoError(t, err)
	defer p.Close()

	p.Rectangle(image.Rect(0, 0, 10, 10))
	// Clipped to the frame.
	p.Rectangle(image.Rect(190, 90, 260, 160))
	require.NoError(t, p.Brush(image.Pt(100, 50), MinBrushRadius))

	m, err := p.Mask("pond")
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, "pond", m.Name())
	assert.Equal(t, image.Pt(200, 100), m.Size())
	assert.Equal(t, m.Excluded().GetUCharAt(5, 5), uint8(255))
	assert.Equal(t, m.Excluded().GetUCharAt(50, 100), uint8(255))
	assert.Equal(t, m.Excluded().GetUCharAt(50, 50), uint8(0))
	assert.Greater(t, m.ExcludedPixels(), 200)

	preview := p.Preview()
	defer preview.Close()
	assert.NotEqual(t, images.ComputeMatChecksum(frame), images.ComputeMatChecksum(preview))
}

func TestPainterBrushRadius(t *testing.T) {
	frame := images.NewFrameGenerator(64, 64).StaticFrame()
	defer frame.Close()

	p, err := NewPainter(frame)
	require.NoError(t, err)
	defer p.Close()

	for _, r := range []int{0, MinBrushRadius - 1, MaxBrushRadius + 1} {
		assert.True(t, errors.Is(p.Brush(image.Pt(5, 5), r), ErrBrushRadius), "radius %d", r)
	}
	assert.NoError(t, p.Stroke([]image.Point{{10, 10}, {12, 10}, {14, 10}}, DefaultBrushRadius))
	assert.Error(t, p.Stroke([]image.Point{{10, 10}}, 1))
}
