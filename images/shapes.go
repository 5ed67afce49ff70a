// Package images - drawing and resizing helpers used to annotate frames and
// render mask previews.
package images

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	// Green is the annotation color for accepted motion regions and mask outlines.
	Green = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

// DefaultThickness is the stroke width used for annotations.
const DefaultThickness = 2

// DrawBoxes draws the outline of every rectangle onto img.
//
// Arguments:
//   - img: The color frame to annotate in place.
//   - boxes: Rectangles to outline. Max is exclusive, like image.Rectangle.
//   - c: Stroke color.
//   - thickness: Stroke width in pixels.
func DrawBoxes(img *gocv.Mat, boxes []image.Rectangle, c color.RGBA, thickness int) {
	for _, r := range boxes {
		gocv.Rectangle(img, r, c, thickness)
	}
}

// DrawMaskOutline draws the external contours of the non-zero area of a
// single-channel mask onto img.
//
// Returns:
//   - int: The number of outlined regions.
func DrawMaskOutline(img *gocv.Mat, mask gocv.Mat, c color.RGBA, thickness int) int {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		gocv.DrawContours(img, contours, i, c, thickness)
	}
	return contours.Size()
}

// FitWithin downscales src so that it fits inside maxWidth x maxHeight while
// keeping its aspect ratio. Frames that already fit are cloned unchanged.
// A zero bound disables the limit on that axis. The caller owns the result.
func FitWithin(src gocv.Mat, maxWidth, maxHeight int) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.New("images: cannot resize empty frame")
	}
	if maxWidth <= 0 {
		maxWidth = src.Cols()
	}
	if maxHeight <= 0 {
		maxHeight = src.Rows()
	}
	if src.Cols() <= maxWidth && src.Rows() <= maxHeight {
		return src.Clone(), nil
	}

	img, err := src.ToImage()
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "images: convert frame")
	}

	thumb := resize.Thumbnail(uint(maxWidth), uint(maxHeight), img, resize.Lanczos3)

	out, err := gocv.ImageToMatRGB(thumb)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "images: convert thumbnail")
	}
	return out, nil
}
