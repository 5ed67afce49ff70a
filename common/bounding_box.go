// Package common holds geometry types shared by the detection, counting and
// annotation stages.
package common

import (
	"fmt"
	"image"
)

// BoundingBox is an axis-aligned box in pixel coordinates, expressed the way
// the motion regions are reported: top-left corner plus width and height.
type BoundingBox struct {
	X, Y          int
	Width, Height int
}

// FromRect converts an image.Rectangle (exclusive Max) to a BoundingBox.
//
// Arguments:
// - r: The rectangle to convert.
//
// Returns:
// - The equivalent BoundingBox with canonicalized coordinates.
//
// @example
// box := FromRect(image.Rect(10, 20, 50, 60))
// fmt.Println(box) // (10, 20) 40x40
func FromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// ToRect converts the bounding box to an image.Rectangle.
//
// Returns:
// - An image.Rectangle whose Max corner is exclusive.
//
// @example
// box := BoundingBox{X: 100, Y: 100, Width: 40, Height: 40}
// rect := box.ToRect()
// fmt.Printf("Rectangle: %v\n", rect) // Rectangle: (100,100)-(140,140)
func (b BoundingBox) ToRect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area returns the box area in pixels.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Empty reports whether the box covers no pixels.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Intersection calculates the overlapping area between two boxes in pixels.
//
// Arguments:
// - other: The other bounding box to intersect with.
//
// Returns:
// - The area of intersection, 0 when the boxes do not overlap.
//
// @example
// a := BoundingBox{X: 0, Y: 0, Width: 100, Height: 100}
// b := BoundingBox{X: 50, Y: 50, Width: 100, Height: 100}
// area := a.Intersection(b) // 2500
func (b BoundingBox) Intersection(other BoundingBox) int {
	size := b.ToRect().Intersect(other.ToRect()).Size()
	return size.X * size.Y
}

// Contains reports whether other lies entirely inside b.
func (b BoundingBox) Contains(other BoundingBox) bool {
	return other.ToRect().In(b.ToRect())
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d, %d) %dx%d", b.X, b.Y, b.Width, b.Height)
}
