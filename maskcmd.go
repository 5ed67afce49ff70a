package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/fishcount/config"
	"github.com/nvr-ai/fishcount/images"
	"github.com/nvr-ai/fishcount/mask"
	"github.com/nvr-ai/fishcount/pipeline"
)

func maskCmd(cfg *config.Config, logger *logrus.Logger, args []string) int {
	if len(args) == 0 || isHelp(args[0]) {
		fmt.Fprintln(os.Stderr, "usage: fishcount mask create|list|preview [flags]")
		return 2
	}
	switch args[0] {
	case "create":
		return maskCreateCmd(cfg, logger, args[1:])
	case "list":
		return maskListCmd(cfg, logger, args[1:])
	case "preview":
		return maskPreviewCmd(cfg, logger, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown mask command %q\n", args[0])
		return 2
	}
}

func maskCreateCmd(cfg *config.Config, logger *logrus.Logger, args []string) int {
	fs := flag.NewFlagSet("mask create", flag.ContinueOnError)
	var (
		video   = fs.String("video", "", "Video whose first frame the mask is drawn on")
		name    = fs.String("name", "", "Name to save the mask under")
		rects   rectList
		brushes brushList
	)
	fs.StringVar(&cfg.MaskDir, "dir", cfg.MaskDir, "Directory of saved masks")
	fs.Var(&rects, "rect", "Excluded rectangle x,y,w,h (repeatable)")
	fs.Var(&brushes, "brush", fmt.Sprintf("Excluded brush dot x,y[,radius] (repeatable, radius %d..%d, default %d)",
		mask.MinBrushRadius, mask.MaxBrushRadius, mask.DefaultBrushRadius))
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *video == "" || *name == "" {
		fmt.Fprintln(os.Stderr, "mask create: -video and -name are required")
		return 2
	}
	if len(rects) == 0 && len(brushes) == 0 {
		fmt.Fprintln(os.Stderr, "mask create: nothing to paint, pass -rect or -brush")
		return 2
	}

	if err := createMask(cfg.MaskDir, *video, *name, rects, brushes, logger); err != nil {
		logger.WithError(err).Error("Failed to create mask")
		return 1
	}
	fmt.Printf("Mask %q saved in %s\n", *name, cfg.MaskDir)
	return 0
}

func createMask(dir, video, name string, rects rectList, brushes brushList, logger logrus.FieldLogger) error {
	store, err := mask.NewStore(dir, logger)
	if err != nil {
		return err
	}

	src, err := pipeline.OpenCapture(video)
	if err != nil {
		return err
	}
	defer src.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	if !src.Read(&frame) {
		return errors.Errorf("%s has no frames", video)
	}

	painter, err := mask.NewPainter(frame)
	if err != nil {
		return err
	}
	defer painter.Close()

	for _, r := range rects {
		painter.Rectangle(r)
	}
	for _, b := range brushes {
		if err := painter.Brush(b.center, b.radius); err != nil {
			return err
		}
	}

	m, err := painter.Mask(name)
	if err != nil {
		return err
	}
	defer m.Close()

	preview := painter.Preview()
	defer preview.Close()
	return store.Save(m, preview)
}

func maskListCmd(cfg *config.Config, logger *logrus.Logger, args []string) int {
	fs := flag.NewFlagSet("mask list", flag.ContinueOnError)
	fs.StringVar(&cfg.MaskDir, "dir", cfg.MaskDir, "Directory of saved masks")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	store, err := mask.NewStore(cfg.MaskDir, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open mask store")
		return 1
	}
	names, err := store.List()
	if err != nil {
		logger.WithError(err).Error("Failed to list masks")
		return 1
	}
	if len(names) == 0 {
		fmt.Printf("No masks in %s\n", cfg.MaskDir)
		return 0
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return 0
}

func maskPreviewCmd(cfg *config.Config, logger *logrus.Logger, args []string) int {
	fs := flag.NewFlagSet("mask preview", flag.ContinueOnError)
	var (
		name      = fs.String("name", "", "Mask to render")
		out       = fs.String("out", "", "Image file to write")
		maxWidth  = fs.Int("max-width", 1280, "Maximum preview width (0 for unbounded)")
		maxHeight = fs.Int("max-height", 720, "Maximum preview height (0 for unbounded)")
	)
	fs.StringVar(&cfg.MaskDir, "dir", cfg.MaskDir, "Directory of saved masks")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "mask preview: -name and -out are required")
		return 2
	}

	store, err := mask.NewStore(cfg.MaskDir, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open mask store")
		return 1
	}
	img, err := store.Preview(*name)
	if err != nil {
		logger.WithError(err).Error("Failed to render preview")
		return 1
	}
	defer img.Close()

	fitted, err := images.FitWithin(img, *maxWidth, *maxHeight)
	if err != nil {
		logger.WithError(err).Error("Failed to resize preview")
		return 1
	}
	defer fitted.Close()

	if !gocv.IMWrite(*out, fitted) {
		logger.WithField("path", *out).Error("Failed to write preview")
		return 1
	}
	fmt.Printf("Preview written to %s (%v)\n", *out, images.Size(fitted))
	return 0
}

// rectList collects repeated -rect x,y,w,h flags.
type rectList []image.Rectangle

func (l *rectList) String() string {
	parts := make([]string, len(*l))
	for i, r := range *l {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

func (l *rectList) Set(v string) error {
	n, err := parseInts(v, 4, 4)
	if err != nil {
		return err
	}
	if n[2] <= 0 || n[3] <= 0 {
		return errors.Errorf("rectangle %q needs a positive width and height", v)
	}
	*l = append(*l, image.Rect(n[0], n[1], n[0]+n[2], n[1]+n[3]))
	return nil
}

type brush struct {
	center image.Point
	radius int
}

// brushList collects repeated -brush x,y[,r] flags.
type brushList []brush

func (l *brushList) String() string {
	parts := make([]string, len(*l))
	for i, b := range *l {
		parts[i] = fmt.Sprintf("%v r%d", b.center, b.radius)
	}
	return strings.Join(parts, " ")
}

func (l *brushList) Set(v string) error {
	n, err := parseInts(v, 2, 3)
	if err != nil {
		return err
	}
	b := brush{center: image.Pt(n[0], n[1]), radius: mask.DefaultBrushRadius}
	if len(n) == 3 {
		b.radius = n[2]
	}
	*l = append(*l, b)
	return nil
}

// parseInts splits a comma-separated list of between lo and hi integers.
func parseInts(v string, lo, hi int) ([]int, error) {
	fields := strings.Split(v, ",")
	if len(fields) < lo || len(fields) > hi {
		return nil, errors.Errorf("%q: expected %d to %d comma-separated integers", v, lo, hi)
	}
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrapf(err, "%q", v)
		}
		out[i] = n
	}
	return out, nil
}
