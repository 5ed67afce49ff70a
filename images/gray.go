package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ToGray converts a decoded frame into a single-channel 8-bit image.
//
// Arguments:
//   - src: The frame to convert. BGR, BGRA and single-channel frames are accepted.
//   - dst: Destination Mat. It is (re)allocated as needed.
//
// Returns:
//   - error: An error if the frame is empty or has an unsupported layout.
func ToGray(src gocv.Mat, dst *gocv.Mat) error {
	if src.Empty() {
		return errors.New("images: cannot convert empty frame to grayscale")
	}

	switch src.Channels() {
	case 1:
		src.CopyTo(dst)
	case 3:
		gocv.CvtColor(src, dst, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, dst, gocv.ColorBGRAToGray)
	default:
		return errors.Errorf("images: unsupported channel count %d", src.Channels())
	}
	return nil
}

// ToBGR returns a three-channel copy of src suitable for color annotation.
// The caller owns the returned Mat.
func ToBGR(src gocv.Mat) (gocv.Mat, error) {
	dst := gocv.NewMat()
	switch src.Channels() {
	case 1:
		gocv.CvtColor(src, &dst, gocv.ColorGrayToBGR)
	case 3:
		src.CopyTo(&dst)
	case 4:
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToBGR)
	default:
		dst.Close()
		return gocv.NewMat(), errors.Errorf("images: unsupported channel count %d", src.Channels())
	}
	return dst, nil
}
