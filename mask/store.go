package mask

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/fishcount/images"
	"github.com/nvr-ai/fishcount/util"
)

const (
	maskExt    = ".png"
	legacyExt  = ".npy"
	previewSfx = "_annotated.jpg"
)

// Store persists masks and their preview images in a directory:
//
//	{dir}/{name}.png            binary mask, 255 = excluded
//	{dir}/{name}_annotated.jpg  reference frame with the mask outlined
//
// Masks saved by older releases as {dir}/{name}.npy (uint8, 2-D) are
// loadable as well.
type Store struct {
	dir    string
	logger logrus.FieldLogger
}

// NewStore opens (and creates if needed) a mask directory.
func NewStore(dir string, logger logrus.FieldLogger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("mask: store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "mask: create store %s", dir)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{dir: dir, logger: logger.WithField("component", "mask_store")}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the mask and, when preview is non-empty, its preview image.
// Both files are written under temporary names and renamed into place.
func (s *Store) Save(m *RegionMask, preview gocv.Mat) error {
	if m == nil {
		return errors.Wrap(ErrInvalidMask, "nil mask")
	}
	if err := validName(m.Name()); err != nil {
		return err
	}

	if err := writeImage(s.maskPath(m.Name()), m.Excluded()); err != nil {
		return errors.Wrapf(err, "mask: save %q", m.Name())
	}
	if !preview.Empty() {
		if err := writeImage(s.previewPath(m.Name()), preview); err != nil {
			return errors.Wrapf(err, "mask: save preview for %q", m.Name())
		}
	}

	s.logger.WithFields(logrus.Fields{
		"mask":     m.Name(),
		"size":     m.Size(),
		"excluded": m.ExcludedPixels(),
	}).Info("mask saved")
	return nil
}

// Load reads the mask stored under name.
//
// Returns:
//   - *RegionMask: The loaded mask. Call Close when done.
//   - error: ErrNotFound if neither a PNG nor a legacy NumPy mask exists,
//     ErrInvalidMask if the stored data cannot be decoded.
func (s *Store) Load(name string) (*RegionMask, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	var raw gocv.Mat
	switch {
	case fileExists(s.maskPath(name)):
		raw = gocv.IMRead(s.maskPath(name), gocv.IMReadGrayScale)
		if raw.Empty() {
			return nil, errors.Wrapf(ErrInvalidMask, "cannot decode %s", s.maskPath(name))
		}
	case fileExists(s.legacyPath(name)):
		var err error
		raw, err = readNPY(s.legacyPath(name))
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrapf(ErrNotFound, "%q in %s", name, s.dir)
	}
	defer raw.Close()

	m, err := New(name, raw)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"mask": name, "size": m.Size()}).Debug("mask loaded")
	return m, nil
}

// Exists reports whether a mask is stored under name.
func (s *Store) Exists(name string) bool {
	if validName(name) != nil {
		return false
	}
	return fileExists(s.maskPath(name)) || fileExists(s.legacyPath(name))
}

// List returns the names of all stored masks, sorted.
func (s *Store) List() ([]string, error) {
	files, err := util.ListFiles(s.dir, maskExt, legacyExt)
	if err != nil {
		return nil, errors.Wrapf(err, "mask: list %s", s.dir)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if len(names) > 0 && names[len(names)-1] == f.Name {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

// Preview renders the stored preview image with the external contours of the
// mask outlined in green. The caller owns the returned Mat.
func (s *Store) Preview(name string) (gocv.Mat, error) {
	m, err := s.Load(name)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer m.Close()

	if !fileExists(s.previewPath(name)) {
		return gocv.NewMat(), errors.Wrapf(ErrNotFound, "no preview image for %q", name)
	}
	frame := gocv.IMRead(s.previewPath(name), gocv.IMReadColor)
	if frame.Empty() {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidMask, "cannot decode %s", s.previewPath(name))
	}
	if err := m.CheckGeometry(frame.Cols(), frame.Rows()); err != nil {
		frame.Close()
		return gocv.NewMat(), err
	}

	images.DrawMaskOutline(&frame, m.Excluded(), images.Green, images.DefaultThickness)
	return frame, nil
}

func (s *Store) maskPath(name string) string    { return filepath.Join(s.dir, name+maskExt) }
func (s *Store) legacyPath(name string) string  { return filepath.Join(s.dir, name+legacyExt) }
func (s *Store) previewPath(name string) string { return filepath.Join(s.dir, name+previewSfx) }

func validName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.Wrap(ErrInvalidName, "empty name")
	case strings.ContainsAny(name, `/\`) || name == "." || name == "..":
		return errors.Wrapf(ErrInvalidName, "%q", name)
	case strings.HasPrefix(name, "."):
		return errors.Wrapf(ErrInvalidName, "%q starts with a dot", name)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// writeImage encodes img next to path and renames it into place. The
// temporary file keeps the extension so the encoder picks the right format.
func writeImage(path string, img gocv.Mat) error {
	dir, base := filepath.Split(path)
	tmp := filepath.Join(dir, ".tmp-"+base)
	if !gocv.IMWrite(tmp, img) {
		_ = os.Remove(tmp)
		return errors.Errorf("encode %s failed", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
