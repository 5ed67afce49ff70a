package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/fishcount/counting"
	"github.com/nvr-ai/fishcount/motion"
)

const (
	// DefaultCodec is the FourCC used for annotated output videos.
	DefaultCodec = "mp4v"
	// DefaultExtension is the container extension matching DefaultCodec.
	DefaultExtension = "mp4"
)

// Config is the immutable snapshot a run is initialized with.
type Config struct {
	// VideoPath is the source video file.
	VideoPath string
	// MaskName selects a stored mask. Empty means full-frame scoring.
	MaskName string
	// OutputDir receives the annotated video.
	OutputDir string
	// MinArea is the strict lower bound on accepted region area.
	MinArea int
	// DiffThreshold is the per-pixel change threshold on 0-255.
	DiffThreshold float32
	// Codec is the FourCC passed to the video writer.
	Codec string
	// Extension is the output container extension, without the dot.
	Extension string
}

// DefaultConfig returns a config for video with every tunable at its default.
func DefaultConfig(video string) Config {
	return Config{
		VideoPath:     video,
		OutputDir:     "processed_videos",
		MinArea:       counting.DefaultMinArea,
		DiffThreshold: motion.DefaultDiffThreshold,
		Codec:         DefaultCodec,
		Extension:     DefaultExtension,
	}
}

// Validate reports the first invalid field, wrapped around ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.VideoPath == "":
		return errors.Wrap(ErrInvalidConfig, "video path is empty")
	case c.OutputDir == "":
		return errors.Wrap(ErrInvalidConfig, "output directory is empty")
	case c.DiffThreshold <= 0 || c.DiffThreshold >= 255:
		return errors.Wrapf(ErrInvalidConfig, "diff threshold %v outside (0, 255)", c.DiffThreshold)
	case len(c.Codec) != 4:
		return errors.Wrapf(ErrInvalidConfig, "codec %q is not a FourCC", c.Codec)
	case c.Extension == "" || strings.ContainsAny(c.Extension, `./\`):
		return errors.Wrapf(ErrInvalidConfig, "bad extension %q", c.Extension)
	case c.MaskName != "" && filepath.Base(c.MaskName) != c.MaskName:
		return errors.Wrapf(ErrInvalidConfig, "bad mask name %q", c.MaskName)
	}
	if err := counting.ValidateMinArea(c.MinArea); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "%v", err)
	}
	return nil
}
