package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.PNG", "a.npy", "c.jpg", ".hidden.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.png"), 0o755))

	files, err := ListFiles(dir, ".png", ".npy")
	require.NoError(t, err)

	var got []string
	for _, f := range files {
		got = append(got, f.Name+f.Ext)
	}
	assert.Equal(t, []string{"a.npy", "a.png", "b.png"}, got)
	assert.Equal(t, filepath.Join(dir, "b.png"), files[2].Path)
}

func TestListFilesMissingDir(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "missing"), ".png")
	assert.Error(t, err)
}

func TestBaseStem(t *testing.T) {
	assert.Equal(t, "river", BaseStem("clips/river.day1.mp4"))
	assert.Equal(t, "BW", BaseStem("Videos/BW.mp4"))
	assert.Equal(t, "noext", BaseStem("/tmp/noext"))
	assert.Equal(t, ".hidden", BaseStem(".hidden"))
}
