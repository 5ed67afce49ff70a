// Package mask - region masks that exclude parts of the frame from motion
// scoring, plus the bounded tool that paints them and the store that persists
// them by name.
//
// A mask is a single-channel image aligned with the video frames. Painted
// (non-zero) pixels are excluded; zero pixels are scored normally. Once a
// RegionMask is built it is never mutated, so a loaded mask can be shared
// read-only with a running pipeline.
package mask

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/fishcount/images"
)

var (
	// ErrNotFound is returned when no mask is stored under the requested name.
	ErrNotFound = errors.New("mask: not found")
	// ErrGeometryMismatch is returned when mask and frame sizes differ.
	ErrGeometryMismatch = errors.New("mask: geometry mismatch")
	// ErrInvalidName is returned for empty names or names containing path elements.
	ErrInvalidName = errors.New("mask: invalid name")
	// ErrInvalidMask is returned for unreadable or malformed mask data.
	ErrInvalidMask = errors.New("mask: invalid mask data")
)

// RegionMask marks the pixels excluded from motion scoring.
//
// A nil *RegionMask is valid and means "no mask": Apply is the identity and
// every geometry check passes.
type RegionMask struct {
	name     string
	excluded gocv.Mat
	keep     gocv.Mat
}

// New builds a RegionMask from a painted image. Every non-zero pixel of
// painted becomes excluded. The painted Mat is copied; the caller keeps
// ownership of it.
//
// Arguments:
//   - name: The name the mask is stored under.
//   - painted: A single- or multi-channel image of the painted area.
//
// Returns:
//   - *RegionMask: The binary mask. Call Close when done.
//   - error: ErrInvalidMask if painted is empty or has an unsupported layout.
func New(name string, painted gocv.Mat) (*RegionMask, error) {
	if painted.Empty() {
		return nil, errors.Wrap(ErrInvalidMask, "empty mask image")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := images.ToGray(painted, &gray); err != nil {
		return nil, errors.Wrap(ErrInvalidMask, err.Error())
	}

	m := &RegionMask{
		name:     name,
		excluded: gocv.NewMat(),
		keep:     gocv.NewMat(),
	}
	gocv.Threshold(gray, &m.excluded, 0, 255, gocv.ThresholdBinary)
	gocv.BitwiseNot(m.excluded, &m.keep)

	return m, nil
}

// Name returns the mask name, or "" for a nil mask.
func (m *RegionMask) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

// Size returns the mask geometry as width x height.
func (m *RegionMask) Size() image.Point {
	if m == nil {
		return image.Point{}
	}
	return images.Size(m.excluded)
}

// ExcludedPixels returns the number of excluded pixels.
func (m *RegionMask) ExcludedPixels() int {
	if m == nil {
		return 0
	}
	return gocv.CountNonZero(m.excluded)
}

// Excluded exposes the binary exclusion image (255 = excluded) for drawing
// previews. The returned Mat is owned by the mask and must not be modified.
func (m *RegionMask) Excluded() gocv.Mat {
	return m.excluded
}

// CheckGeometry verifies that the mask matches a width x height frame.
func (m *RegionMask) CheckGeometry(width, height int) error {
	if m == nil {
		return nil
	}
	if got := m.Size(); got.X != width || got.Y != height {
		return errors.Wrapf(ErrGeometryMismatch, "mask %q is %dx%d, frame is %dx%d",
			m.name, got.X, got.Y, width, height)
	}
	return nil
}

// Apply zeroes every excluded pixel of the grayscale frame in place and leaves
// the others untouched. With a nil mask the frame is left as is.
//
// Arguments:
//   - gray: A single-channel frame of the same size as the mask.
//
// Returns:
//   - error: ErrGeometryMismatch if the frame does not match the mask.
func (m *RegionMask) Apply(gray *gocv.Mat) error {
	if m == nil {
		return nil
	}
	if gray.Channels() != 1 {
		return errors.Wrapf(ErrGeometryMismatch, "expected a grayscale frame, got %d channels", gray.Channels())
	}
	if err := m.CheckGeometry(gray.Cols(), gray.Rows()); err != nil {
		return err
	}

	gocv.BitwiseAnd(*gray, m.keep, gray)
	return nil
}

// Close releases the native buffers. Safe on a nil mask.
func (m *RegionMask) Close() {
	if m == nil {
		return
	}
	m.excluded.Close()
	m.keep.Close()
}
