package mask

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/fishcount/images"
)

const (
	// DefaultBrushRadius is the freeform brush radius in pixels.
	DefaultBrushRadius = 10
	// MinBrushRadius and MaxBrushRadius bound the freeform brush radius.
	MinBrushRadius = 5
	MaxBrushRadius = 50
)

// ErrBrushRadius is returned for a brush radius outside [MinBrushRadius, MaxBrushRadius].
var ErrBrushRadius = errors.New("mask: brush radius out of range")

var painted = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// Painter builds a mask on top of a reference frame, usually the first frame
// of the video the mask is meant for. Every shape is filled into the mask and
// outlined in green on a preview copy of the frame.
type Painter struct {
	mask    gocv.Mat
	preview gocv.Mat
	bounds  image.Rectangle
}

// NewPainter starts an empty mask sized to frame.
func NewPainter(frame gocv.Mat) (*Painter, error) {
	if frame.Empty() {
		return nil, errors.Wrap(ErrInvalidMask, "empty reference frame")
	}

	preview, err := images.ToBGR(frame)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidMask, err.Error())
	}

	return &Painter{
		mask:    gocv.Zeros(frame.Rows(), frame.Cols(), gocv.MatTypeCV8UC1),
		preview: preview,
		bounds:  image.Rect(0, 0, frame.Cols(), frame.Rows()),
	}, nil
}

// Rectangle excludes the area of r, clipped to the frame.
func (p *Painter) Rectangle(r image.Rectangle) {
	r = r.Canon().Intersect(p.bounds)
	if r.Empty() {
		return
	}
	gocv.Rectangle(&p.mask, r, painted, -1)
	gocv.Rectangle(&p.preview, r, images.Green, images.DefaultThickness)
}

// Brush excludes a filled disc, the unit of a freeform stroke.
func (p *Painter) Brush(center image.Point, radius int) error {
	if radius < MinBrushRadius || radius > MaxBrushRadius {
		return errors.Wrapf(ErrBrushRadius, "%d not in [%d, %d]", radius, MinBrushRadius, MaxBrushRadius)
	}
	gocv.Circle(&p.mask, center, radius, painted, -1)
	gocv.Circle(&p.preview, center, radius, images.Green, images.DefaultThickness)
	return nil
}

// Stroke paints a brush disc at every point of a freeform path.
func (p *Painter) Stroke(points []image.Point, radius int) error {
	for _, pt := range points {
		if err := p.Brush(pt, radius); err != nil {
			return err
		}
	}
	return nil
}

// Mask returns the painted area as a RegionMask. The painter stays usable.
func (p *Painter) Mask(name string) (*RegionMask, error) {
	return New(name, p.mask)
}

// Preview returns a copy of the annotated reference frame. The caller owns it.
func (p *Painter) Preview() gocv.Mat {
	return p.preview.Clone()
}

// Close releases the native buffers.
func (p *Painter) Close() {
	p.mask.Close()
	p.preview.Close()
}
