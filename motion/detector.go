// Package motion - This file contains the frame-differencing motion detector
// using OpenCV (via gocv).
//
// The Detector compares two consecutive grayscale frames and reports every
// connected area that changed:
//
// ┌─────────────────────────────┐
// │ prev gray    │ curr gray    │
// └──────┬──────────────┬───────┘
// ┌─────────────────────────────┐
// │ Absolute difference         │
// └──────┬──────────────────────┘
// ┌─────────────────────────────┐
// │ Threshold (binary, > T)     │
// └──────┬──────────────────────┘
// ┌─────────────────────────────┐
// │ External contour extraction │
// └──────┬──────────────────────┘
// ┌─────────────────────────────┐
// │ Regions (area, bounding box)│
// └─────────────────────────────┘
//
// The detector keeps no model of the scene. The only state it owns is a pair
// of scratch matrices reused across calls, so Close() must be called when the
// detector is no longer needed.
package motion

import (
	"fmt"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/fishcount/common"
)

// DefaultDiffThreshold is the intensity change (0-255) a pixel must exceed to
// count as changed.
const DefaultDiffThreshold = 30

// ErrFrameMismatch is returned when the two frames handed to Detect cannot be
// compared pixel for pixel.
var ErrFrameMismatch = errors.New("motion: frames are not comparable")

// Config contains configuration parameters for motion detection.
type Config struct {
	// DiffThreshold is the pixel difference threshold for motion detection.
	// It is fixed for the lifetime of a Detector.
	DiffThreshold float32
}

// DefaultConfig returns the default detection configuration.
func DefaultConfig() Config {
	return Config{DiffThreshold: DefaultDiffThreshold}
}

// Region is a connected set of pixels that changed between two frames.
type Region struct {
	// Area is the contour area in pixels.
	Area float64
	// Box is the axis-aligned bounding box of the contour.
	Box common.BoundingBox
}

func (r Region) String() string {
	return fmt.Sprintf("region %s area=%.0f", r.Box, r.Area)
}

// Detector implements motion detection using frame differencing.
type Detector struct {
	config Config
	delta  gocv.Mat
	thresh gocv.Mat
}

// NewDetector creates a new frame differencing motion detector.
//
// Arguments:
//   - config: Configuration parameters for motion detection.
//
// Returns:
//   - *Detector: The initialized motion detector.
//
// @example
// detector := NewDetector(DefaultConfig())
// defer detector.Close()
func NewDetector(config Config) *Detector {
	return &Detector{
		config: config,
		delta:  gocv.NewMat(),
		thresh: gocv.NewMat(),
	}
}

// Config returns the configuration the detector was built with.
func (d *Detector) Config() Config {
	return d.config
}

// Detect returns the motion regions between prev and curr.
//
// Both frames must be non-empty single-channel images of the same size.
// Identical frames always produce no regions.
//
// Arguments:
//   - prev: The previous grayscale frame.
//   - curr: The current grayscale frame.
//
// Returns:
//   - []Region: One region per external contour of the changed pixels.
//   - error: ErrFrameMismatch if the frames cannot be compared.
func (d *Detector) Detect(prev, curr gocv.Mat) ([]Region, error) {
	if err := comparable(prev, curr); err != nil {
		return nil, err
	}

	gocv.AbsDiff(prev, curr, &d.delta)
	gocv.Threshold(d.delta, &d.thresh, d.config.DiffThreshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(d.thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		regions = append(regions, Region{
			Area: gocv.ContourArea(contour),
			Box:  common.FromRect(gocv.BoundingRect(contour)),
		})
	}

	return regions, nil
}

// ChangedPixels returns how many pixels exceeded the threshold in the most
// recent Detect call.
func (d *Detector) ChangedPixels() int {
	if d.thresh.Empty() {
		return 0
	}
	return gocv.CountNonZero(d.thresh)
}

// Close releases the native scratch buffers.
func (d *Detector) Close() {
	d.delta.Close()
	d.thresh.Close()
}

func comparable(prev, curr gocv.Mat) error {
	switch {
	case prev.Empty() || curr.Empty():
		return errors.Wrap(ErrFrameMismatch, "empty frame")
	case prev.Channels() != 1 || curr.Channels() != 1:
		return errors.Wrapf(ErrFrameMismatch, "expected grayscale frames, got %d and %d channels",
			prev.Channels(), curr.Channels())
	case prev.Rows() != curr.Rows() || prev.Cols() != curr.Cols():
		return errors.Wrapf(ErrFrameMismatch, "size %dx%d vs %dx%d",
			prev.Cols(), prev.Rows(), curr.Cols(), curr.Rows())
	}
	return nil
}
