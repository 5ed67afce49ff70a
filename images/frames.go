package images

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// FrameGenerator creates deterministic BGR frames with controlled motion
// patterns. It backs the synthetic clip generator and the package tests.
//
// @example
// gen := NewFrameGenerator(320, 240)
// frame := gen.MotionFrame(image.Rect(100, 100, 140, 140))
// defer frame.Close()
type FrameGenerator struct {
	Width  int
	Height int
	// Background is the gray level of static frames.
	Background uint8
	// Foreground is the gray level painted into motion rectangles.
	Foreground uint8
}

// NewFrameGenerator creates a new frame generator with specified dimensions.
//
// Arguments:
// - width: Frame width in pixels.
// - height: Frame height in pixels.
//
// Returns:
// - A FrameGenerator with a mid-gray background and white foreground.
func NewFrameGenerator(width, height int) *FrameGenerator {
	return &FrameGenerator{
		Width:      width,
		Height:     height,
		Background: 128,
		Foreground: 255,
	}
}

// StaticFrame creates a uniform background frame. The caller owns the Mat.
func (g *FrameGenerator) StaticFrame() gocv.Mat {
	v := float64(g.Background)
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), g.Height, g.Width, gocv.MatTypeCV8UC3)
}

// MotionFrame creates a background frame with each rectangle filled with the
// foreground level. The caller owns the Mat.
func (g *FrameGenerator) MotionFrame(rects ...image.Rectangle) gocv.Mat {
	frame := g.StaticFrame()
	fg := color.RGBA{R: g.Foreground, G: g.Foreground, B: g.Foreground, A: 0}
	for _, r := range rects {
		gocv.Rectangle(&frame, r, fg, -1)
	}
	return frame
}
