package pipeline

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Source yields decoded frames in order.
type Source interface {
	Width() int
	Height() int
	FPS() float64
	// Read decodes the next frame into frame. It returns false at end of
	// stream.
	Read(frame *gocv.Mat) bool
	Close() error
}

// Sink consumes annotated frames.
type Sink interface {
	Write(frame gocv.Mat) error
	Close() error
}

// SourceOpener opens the video at path.
type SourceOpener func(path string) (Source, error)

// SinkOpener creates an output video at path.
type SinkOpener func(path, codec string, fps float64, width, height int) (Sink, error)

// Capture adapts gocv.VideoCapture to Source.
type Capture struct {
	vc *gocv.VideoCapture
}

// OpenCapture opens a video file for reading.
func OpenCapture(path string) (Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open capture %s", path)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Errorf("capture %s did not open", path)
	}
	return &Capture{vc: vc}, nil
}

func (c *Capture) Width() int   { return int(c.vc.Get(gocv.VideoCaptureFrameWidth)) }
func (c *Capture) Height() int  { return int(c.vc.Get(gocv.VideoCaptureFrameHeight)) }
func (c *Capture) FPS() float64 { return c.vc.Get(gocv.VideoCaptureFPS) }

func (c *Capture) Read(frame *gocv.Mat) bool {
	return c.vc.Read(frame) && !frame.Empty()
}

func (c *Capture) Close() error { return c.vc.Close() }

// Writer adapts gocv.VideoWriter to Sink.
type Writer struct {
	vw *gocv.VideoWriter
}

// OpenWriter creates a color video file. OpenCV picks the container from the
// path's extension.
func OpenWriter(path, codec string, fps float64, width, height int) (Sink, error) {
	vw, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, errors.Wrapf(err, "open writer %s", path)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, errors.Errorf("writer %s did not open (codec %s)", path, codec)
	}
	return &Writer{vw: vw}, nil
}

func (w *Writer) Write(frame gocv.Mat) error { return w.vw.Write(frame) }

func (w *Writer) Close() error { return w.vw.Close() }

// Display shows frames as they are written.
type Display interface {
	// Show renders frame and reports whether the viewer asked to stop.
	Show(frame gocv.Mat) (stop bool)
	Close() error
}

// Window is a Display backed by an OpenCV HighGUI window. Pressing q stops
// the run.
type Window struct {
	win   *gocv.Window
	delay int
}

// NewWindow opens a named window.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title), delay: 1}
}

func (w *Window) Show(frame gocv.Mat) bool {
	w.win.IMShow(frame)
	return w.win.WaitKey(w.delay) == 'q'
}

func (w *Window) Close() error {
	w.win.Close()
	return nil
}
