package pipeline

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"mask selected", func(c *Config) { c.MaskName = "tank" }, true},
		{"lowest min area", func(c *Config) { c.MinArea = 100 }, true},
		{"highest min area", func(c *Config) { c.MinArea = 2000 }, true},
		{"min area too small", func(c *Config) { c.MinArea = 99 }, false},
		{"min area too large", func(c *Config) { c.MinArea = 2001 }, false},
		{"no video", func(c *Config) { c.VideoPath = "" }, false},
		{"no output dir", func(c *Config) { c.OutputDir = "" }, false},
		{"zero threshold", func(c *Config) { c.DiffThreshold = 0 }, false},
		{"saturated threshold", func(c *Config) { c.DiffThreshold = 255 }, false},
		{"short codec", func(c *Config) { c.Codec = "mp4" }, false},
		{"dotted extension", func(c *Config) { c.Extension = ".mp4" }, false},
		{"mask with path", func(c *Config) { c.MaskName = "../tank" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("clip.mp4")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestOutputName(t *testing.T) {
	at := time.Date(2023, 12, 31, 23, 59, 1, 0, time.UTC)

	assert.Equal(t, "river_NoMask_0_fish_20231231_235901.mp4",
		OutputName("/data/river.mov", "", 0, at, "mp4"))
	assert.Equal(t, "river_weir_12_fish_20231231_235901.avi",
		OutputName("river.mov", "weir", 12, at, "avi"))
	assert.Equal(t, "clip_NoMask_3_fish_20231231_235901.mp4",
		OutputName("clip.part1.mp4", "", 3, at, "mp4"))
}

func TestTempNameKeepsExtension(t *testing.T) {
	name := tempName("out", "videos/river.mov", "abc", "mp4")

	assert.Equal(t, "out", filepath.Dir(name))
	assert.True(t, strings.HasPrefix(filepath.Base(name), ".river.abc"))
	assert.Equal(t, ".mp4", filepath.Ext(name))
}

func TestTally(t *testing.T) {
	var tally Tally
	tally.Add(2)
	tally.Add(0)
	tally.Add(-1)
	tally.Add(3)

	assert.Equal(t, 5, tally.Total())
	inc := tally.Increments()
	assert.Equal(t, []int{2, 0, 0, 3}, inc)

	inc[0] = 100
	assert.Equal(t, 2, tally.Increments()[0], "increments are copied")
}
