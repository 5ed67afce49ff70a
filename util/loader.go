package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NamedFile is a file found by ListFiles.
type NamedFile struct {
	// Path is the path to the file.
	Path string
	// Name is the file name without its extension.
	Name string
	// Ext is the lower-cased extension including the dot.
	Ext string
}

// ListFiles returns the regular files in dir whose extension matches one of
// exts (case-insensitive), sorted by name.
//
// Arguments:
// - dir: Directory to scan. Subdirectories are not descended into.
// - exts: Accepted extensions including the dot, e.g. ".png".
//
// Returns:
// - []NamedFile: Matching files sorted by Name, then Ext.
// - error: Error if the directory cannot be read.
func ListFiles(dir string, exts ...string) ([]NamedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	accept := make(map[string]bool, len(exts))
	for _, e := range exts {
		accept[strings.ToLower(e)] = true
	}

	var files []NamedFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !accept[ext] || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, NamedFile{
			Path: filepath.Join(dir, entry.Name()),
			Name: strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Ext:  ext,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Name != files[j].Name {
			return files[i].Name < files[j].Name
		}
		return files[i].Ext < files[j].Ext
	})

	return files, nil
}

// BaseStem returns the file name of path up to its first dot, so
// "clips/river.day1.mp4" yields "river".
func BaseStem(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
