package mask

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/fishcount/images"
	"github.com/nvr-ai/fishcount/motion"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

func paintedMask(t *testing.T, w, h int, rects ...image.Rectangle) *RegionMask {
	t.Helper()
	painted := gocv.Zeros(h, w, gocv.MatTypeCV8UC1)
	defer painted.Close()
	for _, r := range rects {
		gocv.Rectangle(&painted, r, white, -1)
	}
	m, err := New("test", painted)
	require.NoError(t, err)
	return m
}

func TestApplyZeroesExcludedPixels(t *testing.T) {
	m := paintedMask(t, 100, 80, image.Rect(10, 10, 30, 30))
	defer m.Close()

	assert.Equal(t, image.Pt(100, 80), m.Size())
	assert.Equal(t, 400, m.ExcludedPixels())

	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 0, 0, 0), 80, 100, gocv.MatTypeCV8UC1)
	defer gray.Close()

	require.NoError(t, m.Apply(&gray))
	assert.Equal(t, uint8(0), gray.GetUCharAt(15, 15), "excluded pixel is zeroed")
	assert.Equal(t, uint8(200), gray.GetUCharAt(50, 50), "included pixel passes through")
	assert.Equal(t, 100*80-400, gocv.CountNonZero(gray))
}

func TestNilMaskIsIdentity(t *testing.T) {
	var m *RegionMask

	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(42, 0, 0, 0), 10, 10, gocv.MatTypeCV8UC1)
	defer gray.Close()
	before := images.ComputeMatChecksum(gray)

	require.NoError(t, m.Apply(&gray))
	assert.Equal(t, before, images.ComputeMatChecksum(gray))
	assert.NoError(t, m.CheckGeometry(1, 1))
	assert.Equal(t, "", m.Name())
	assert.Zero(t, m.ExcludedPixels())
	m.Close()
}

func TestApplyRejectsGeometryMismatch(t *testing.T) {
	m := paintedMask(t, 100, 80)
	defer m.Close()

	gray := gocv.NewMatWithSize(81, 100, gocv.MatTypeCV8UC1)
	defer gray.Close()

	err := m.Apply(&gray)
	assert.True(t, errors.Is(err, ErrGeometryMismatch), "got %v", err)
	assert.True(t, errors.Is(m.CheckGeometry(640, 480), ErrGeometryMismatch))
	assert.NoError(t, m.CheckGeometry(100, 80))
}

func TestNewFromColorImage(t *testing.T) {
	painted := gocv.Zeros(20, 20, gocv.MatTypeCV8UC3)
	defer painted.Close()
	// Any non-zero value counts as painted, even a dim green stroke.
	gocv.Rectangle(&painted, image.Rect(0, 0, 5, 5), color.RGBA{G: 10}, -1)

	m, err := New("color", painted)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 25, m.ExcludedPixels())

	_, err = New("empty", gocv.NewMat())
	assert.True(t, errors.Is(err, ErrInvalidMask))
}

func TestMaskedDifferenceYieldsNoMotion(t *testing.T) {
	square := image.Rect(100, 100, 140, 140)
	m := paintedMask(t, 320, 240, square)
	defer m.Close()

	prev := gocv.Zeros(240, 320, gocv.MatTypeCV8UC1)
	defer prev.Close()
	curr := gocv.Zeros(240, 320, gocv.MatTypeCV8UC1)
	defer curr.Close()
	gocv.Rectangle(&curr, square, white, -1)

	detector := motion.NewDetector(motion.DefaultConfig())
	defer detector.Close()

	unmasked, err := detector.Detect(prev, curr)
	require.NoError(t, err)
	require.Len(t, unmasked, 1)

	require.NoError(t, m.Apply(&prev))
	require.NoError(t, m.Apply(&curr))
	masked, err := detector.Detect(prev, curr)
	require.NoError(t, err)
	assert.Empty(t, masked)
}
