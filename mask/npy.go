package mask

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gocv.io/x/gocv"
)

// readNPY decodes a 2-D uint8 NumPy array into a single-channel Mat.
func readNPY(path string) (gocv.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "mask: open %s", path)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidMask, "%s: %v", path, err)
	}

	shape := r.Header.Descr.Shape
	if len(shape) != 2 || r.Header.Descr.Fortran {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidMask, "%s: want a 2-D C-ordered array, got shape %v", path, shape)
	}

	var data []uint8
	if err := r.Read(&data); err != nil {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidMask, "%s: %v", path, err)
	}
	rows, cols := shape[0], shape[1]
	if rows <= 0 || cols <= 0 || len(data) != rows*cols {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidMask, "%s: %d values for shape %v", path, len(data), shape)
	}

	view, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidMask, "%s: %v", path, err)
	}
	defer view.Close()

	// Detach from the Go slice backing view.
	return view.Clone(), nil
}
