package mask

import (
	"bytes"
	"encoding/binary"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/fishcount/images"
)

func newTestStore(t *testing.T) (*Store, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s, err := NewStore(filepath.Join(t.TempDir(), "saved_masks"), logger)
	require.NoError(t, err)
	return s, hook
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	s, hook := newTestStore(t)

	frame := images.NewFrameGenerator(120, 90).StaticFrame()
	defer frame.Close()
	p, err := NewPainter(frame)
	require.NoError(t, err)
	defer p.Close()
	p.Rectangle(image.Rect(20, 20, 60, 60))

	m, err := p.Mask("river")
	require.NoError(t, err)
	defer m.Close()
	preview := p.Preview()
	defer preview.Close()

	require.NoError(t, s.Save(m, preview))
	assert.FileExists(t, filepath.Join(s.Dir(), "river.png"))
	assert.FileExists(t, filepath.Join(s.Dir(), "river_annotated.jpg"))
	assert.Equal(t, "mask saved", hook.LastEntry().Message)

	loaded, err := s.Load("river")
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, m.Size(), loaded.Size())
	assert.Equal(t, m.ExcludedPixels(), loaded.ExcludedPixels())
	assert.True(t, s.Exists("river"))

	// No temporary files are left behind.
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), e.Name())
	}
}

func TestStoreLoadErrors(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Load("missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	assert.False(t, s.Exists("missing"))

	for _, name := range []string{"", "  ", "../escape", `a\b`, ".hidden"} {
		_, err := s.Load(name)
		assert.True(t, errors.Is(err, ErrInvalidName), "name %q: %v", name, err)
	}

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "broken.png"), []byte("not a png"), 0o644))
	_, err = s.Load("broken")
	assert.True(t, errors.Is(err, ErrInvalidMask), "got %v", err)
}

func TestStoreList(t *testing.T) {
	s, _ := newTestStore(t)

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"b", "a"} {
		m := paintedMask(t, 10, 10, image.Rect(0, 0, 2, 2))
		m.name = name
		require.NoError(t, s.Save(m, gocv.NewMat()))
		m.Close()
	}
	writeNPY(t, filepath.Join(s.Dir(), "a.npy"), 2, 2, []byte{0, 1, 1, 0})
	writeNPY(t, filepath.Join(s.Dir(), "legacy.npy"), 2, 2, []byte{0, 1, 1, 0})

	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "legacy"}, names)
}

func TestStoreLoadLegacyNPY(t *testing.T) {
	s, _ := newTestStore(t)

	data := make([]byte, 4*6)
	data[0], data[7], data[23] = 255, 255, 1
	writeNPY(t, filepath.Join(s.Dir(), "old.npy"), 4, 6, data)

	m, err := s.Load("old")
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, image.Pt(6, 4), m.Size())
	assert.Equal(t, 3, m.ExcludedPixels())
	assert.Equal(t, uint8(255), m.Excluded().GetUCharAt(3, 5))
}

func TestStoreLoadLegacyNPYRejectsWrongShape(t *testing.T) {
	s, _ := newTestStore(t)

	writeNPYHeader(t, filepath.Join(s.Dir(), "flat.npy"), "(4,)", []byte{0, 1, 2, 3})
	_, err := s.Load("flat")
	assert.True(t, errors.Is(err, ErrInvalidMask), "got %v", err)
}

func TestStorePreview(t *testing.T) {
	s, _ := newTestStore(t)

	frame := images.NewFrameGenerator(80, 60).StaticFrame()
	defer frame.Close()
	p, err := NewPainter(frame)
	require.NoError(t, err)
	defer p.Close()
	p.Rectangle(image.Rect(10, 10, 30, 30))

	m, err := p.Mask("pond")
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, s.Save(m, frame))

	out, err := s.Preview("pond")
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, image.Pt(80, 60), images.Size(out))

	// A mask saved without a preview image has nothing to render.
	m.name = "bare"
	require.NoError(t, s.Save(m, gocv.NewMat()))
	_, err = s.Preview("bare")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func writeNPY(t *testing.T, path string, rows, cols int, data []byte) {
	t.Helper()
	writeNPYHeader(t, path, "("+strconv.Itoa(rows)+", "+strconv.Itoa(cols)+")", data)
}

// writeNPYHeader writes a version 1.0 .npy file holding uint8 data.
func writeNPYHeader(t *testing.T, path, shape string, data []byte) {
	t.Helper()
	header := "{'descr': '|u1', 'fortran_order': False, 'shape': " + shape + ", }"
	// magic(6) + version(2) + length(2) + header must be a multiple of 64.
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)
	buf.Write(data)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}
