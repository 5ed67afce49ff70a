package main

import (
	"flag"
	"fmt"
	"image"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/fishcount/images"
	"github.com/nvr-ai/fishcount/pipeline"
)

// synthOptions describes a clip with one square that appears and stays.
type synthOptions struct {
	Out    string
	Codec  string
	FPS    float64
	Width  int
	Height int
	Frames int
	// Appear is the 1-based frame on which the square is first drawn.
	Appear int
	Size   int
	X      int
	Y      int
}

func synthCmd(logger *logrus.Logger, args []string) int {
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	opts := synthOptions{}
	fs.StringVar(&opts.Out, "out", "", "Video file to write")
	fs.StringVar(&opts.Codec, "codec", "MJPG", "FourCC of the clip")
	fs.Float64Var(&opts.FPS, "fps", 10, "Frame rate")
	fs.IntVar(&opts.Width, "width", 320, "Frame width")
	fs.IntVar(&opts.Height, "height", 240, "Frame height")
	fs.IntVar(&opts.Frames, "frames", 3, "Number of frames")
	fs.IntVar(&opts.Appear, "appear", 2, "Frame on which the square appears (0 for never)")
	fs.IntVar(&opts.Size, "size", 40, "Side of the square in pixels")
	fs.IntVar(&opts.X, "x", 100, "Left edge of the square")
	fs.IntVar(&opts.Y, "y", 100, "Top edge of the square")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.Out == "" {
		fmt.Fprintln(os.Stderr, "synth: -out is required")
		return 2
	}

	if err := writeSynthetic(opts); err != nil {
		logger.WithError(err).Error("Failed to write synthetic clip")
		return 1
	}
	logger.WithFields(logrus.Fields{
		"path":   opts.Out,
		"frames": opts.Frames,
		"appear": opts.Appear,
	}).Info("Synthetic clip written")
	return 0
}

func writeSynthetic(opts synthOptions) error {
	if opts.Frames < 1 || opts.Width < 1 || opts.Height < 1 || opts.Size < 1 {
		return errors.Errorf("invalid clip geometry %+v", opts)
	}

	sink, err := pipeline.OpenWriter(opts.Out, opts.Codec, opts.FPS, opts.Width, opts.Height)
	if err != nil {
		return err
	}

	gen := images.NewFrameGenerator(opts.Width, opts.Height)
	square := image.Rect(opts.X, opts.Y, opts.X+opts.Size, opts.Y+opts.Size)

	for i := 1; i <= opts.Frames; i++ {
		var frame gocv.Mat
		if opts.Appear > 0 && i >= opts.Appear {
			frame = gen.MotionFrame(square)
		} else {
			frame = gen.StaticFrame()
		}
		err := sink.Write(frame)
		frame.Close()
		if err != nil {
			sink.Close()
			return errors.Wrapf(err, "frame %d", i)
		}
	}
	return sink.Close()
}
