// Package pipeline drives a counting run over one video.
//
// A run moves through four states:
//
//	Init      validate config, open source, read the first frame, load the
//	          mask, check geometry, open the writer under a temporary name
//	Running   per frame: gray, mask, diff against the previous frame,
//	          classify, annotate, write
//	Finalize  close both ends, rename the output to its final name, append
//	          the run record
//	Error     close both ends, remove the temporary output, no record
//
// End of stream, a cancelled context and a display asking to stop all lead
// to Finalize.
package pipeline

import (
	"context"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/fishcount/counting"
	"github.com/nvr-ai/fishcount/images"
	"github.com/nvr-ai/fishcount/mask"
	"github.com/nvr-ai/fishcount/metrics"
	"github.com/nvr-ai/fishcount/motion"
	"github.com/nvr-ai/fishcount/profiler"
	"github.com/nvr-ai/fishcount/results"
)

// MaskLoader resolves a mask by name. *mask.Store implements it.
type MaskLoader interface {
	Load(name string) (*mask.RegionMask, error)
}

// RunLogger durably records completed runs. *results.CSVLog implements it.
type RunLogger interface {
	Append(rec results.Record) error
}

// Dependencies are the collaborators of a Pipeline. Only RunLog is required;
// Masks is required when the config names a mask. The caller owns Display.
type Dependencies struct {
	Masks      MaskLoader
	RunLog     RunLogger
	Policy     counting.Policy
	OpenSource SourceOpener
	OpenSink   SinkOpener
	Display    Display
	Profiler   *profiler.StageProfiler
	Clock      func() time.Time
	Logger     logrus.FieldLogger
}

// Result describes a finalized run.
type Result struct {
	RunID         string
	Tally         int
	Increments    []int
	FramesRead    int
	FramesWritten int
	OutputPath    string
	Record        results.Record
	Duration      time.Duration
}

// Pipeline runs the counting loop for one config snapshot.
type Pipeline struct {
	cfg     Config
	deps    Dependencies
	running atomic.Bool
}

// New validates cfg and fills unset dependencies with their defaults.
func New(cfg Config, deps Dependencies) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.RunLog == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "no run log")
	}
	if cfg.MaskName != "" && deps.Masks == nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "mask %q selected without a mask store", cfg.MaskName)
	}
	if deps.Policy == nil {
		deps.Policy = counting.NewAreaPolicy(cfg.MinArea)
	}
	if deps.OpenSource == nil {
		deps.OpenSource = OpenCapture
	}
	if deps.OpenSink == nil {
		deps.OpenSink = OpenWriter
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &Pipeline{cfg: cfg, deps: deps}, nil
}

// Config returns the snapshot the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run processes the whole video. It is not reentrant: a concurrent call
// returns ErrRunInProgress.
//
// Returns:
//   - *Result: The finalized run. It is also returned, together with the
//     error, when only the run record could not be appended.
//   - error: One of the package sentinels, wrapped with context.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer p.running.Store(false)

	r := p.newRun()
	defer r.release()

	if err := r.init(); err != nil {
		r.fail(err)
		return nil, err
	}
	if err := r.loop(ctx); err != nil {
		r.fail(err)
		return nil, err
	}
	return r.finalize()
}

// run holds the state of one Run call.
type run struct {
	id      string
	cfg     Config
	deps    Dependencies
	prof    *profiler.StageProfiler
	logger  logrus.FieldLogger
	started time.Time

	source   Source
	sink     Sink
	mask     *mask.RegionMask
	detector *motion.Detector
	width    int
	height   int
	fps      float64
	tempPath string

	frame    gocv.Mat
	gray     gocv.Mat
	prevGray gocv.Mat

	tally         Tally
	framesRead    int
	framesWritten int
	stopped       bool
}

func (p *Pipeline) newRun() *run {
	id := uuid.New().String()
	prof := p.deps.Profiler
	if prof == nil {
		prof = profiler.New()
		prof.OnRecord(func(stage string, d time.Duration) {
			metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
		})
	}
	maskLabel := p.cfg.MaskName
	if maskLabel == "" {
		maskLabel = results.NoMask
	}
	return &run{
		id:   id,
		cfg:  p.cfg,
		deps: p.deps,
		prof: prof,
		logger: p.deps.Logger.WithFields(logrus.Fields{
			"run_id": id,
			"video":  filepath.Base(p.cfg.VideoPath),
			"mask":   maskLabel,
		}),
		started:  p.deps.Clock(),
		detector: motion.NewDetector(motion.Config{DiffThreshold: p.cfg.DiffThreshold}),
		frame:    gocv.NewMat(),
		gray:     gocv.NewMat(),
		prevGray: gocv.NewMat(),
	}
}

func (r *run) init() error {
	r.logger.WithField("policy", r.deps.Policy.Name()).Info("initializing run")

	src, err := r.deps.OpenSource(r.cfg.VideoPath)
	if err != nil {
		return errors.Wrapf(ErrSourceUnreadable, "%s: %v", r.cfg.VideoPath, err)
	}
	r.source = src

	r.fps = src.FPS()
	if r.fps <= 0 || math.IsNaN(r.fps) || math.IsInf(r.fps, 0) {
		return errors.Wrapf(ErrInvalidFrameRate, "%s reports %v fps", r.cfg.VideoPath, r.fps)
	}

	if !src.Read(&r.frame) || r.frame.Empty() {
		return errors.Wrapf(ErrSourceUnreadable, "%s: no first frame", r.cfg.VideoPath)
	}
	r.framesRead++
	metrics.FramesProcessedTotal.Inc()

	if r.cfg.MaskName != "" {
		m, err := r.deps.Masks.Load(r.cfg.MaskName)
		if err != nil {
			return errors.Wrap(err, "resolve mask")
		}
		r.mask = m
	}

	if err := r.checkGeometry(); err != nil {
		return err
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return errors.Wrapf(ErrSinkUnwritable, "create %s: %v", r.cfg.OutputDir, err)
	}
	r.tempPath = tempName(r.cfg.OutputDir, r.cfg.VideoPath, r.id, r.cfg.Extension)
	sink, err := r.deps.OpenSink(r.tempPath, r.cfg.Codec, r.fps, r.width, r.height)
	if err != nil {
		return errors.Wrapf(ErrSinkUnwritable, "%s: %v", r.tempPath, err)
	}
	r.sink = sink

	if err := r.prepare(&r.frame, &r.prevGray); err != nil {
		return err
	}
	if err := r.write(); err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"width":    r.width,
		"height":   r.height,
		"fps":      r.fps,
		"min_area": r.cfg.MinArea,
		"excluded": r.mask.ExcludedPixels(),
	}).Info("run started")
	return nil
}

// checkGeometry pins the run geometry to the first frame and verifies the
// source and mask agree with it. Sources that report no size are trusted to
// match their frames.
func (r *run) checkGeometry() error {
	size := images.Size(r.frame)
	r.width, r.height = size.X, size.Y

	sw, sh := r.source.Width(), r.source.Height()
	if sw > 0 && sh > 0 && (sw != r.width || sh != r.height) {
		return errors.Wrapf(ErrGeometryMismatch, "source reports %dx%d, first frame is %dx%d",
			sw, sh, r.width, r.height)
	}
	return r.mask.CheckGeometry(r.width, r.height)
}

// prepare converts frame to grayscale into dst and applies the mask.
func (r *run) prepare(frame, dst *gocv.Mat) error {
	if err := images.ToGray(*frame, dst); err != nil {
		return errors.Wrapf(ErrSourceUnreadable, "frame %d: %v", r.framesRead, err)
	}
	return r.mask.Apply(dst)
}

func (r *run) write() error {
	done := r.prof.StartOperation("write")
	defer done()

	if err := r.sink.Write(r.frame); err != nil {
		return errors.Wrapf(ErrSinkUnwritable, "frame %d: %v", r.framesRead, err)
	}
	r.framesWritten++
	if r.deps.Display != nil && r.deps.Display.Show(r.frame) {
		r.stopped = true
	}
	return nil
}

func (r *run) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.logger.WithField("frames", r.framesRead).Info("run cancelled, finalizing")
			return nil
		default:
		}
		if r.stopped {
			r.logger.WithField("frames", r.framesRead).Info("display requested stop, finalizing")
			return nil
		}

		done := r.prof.StartOperation("read")
		ok := r.source.Read(&r.frame)
		done()
		if !ok || r.frame.Empty() {
			return nil
		}
		r.framesRead++
		metrics.FramesProcessedTotal.Inc()

		if err := r.step(); err != nil {
			return err
		}

		if err := r.write(); err != nil {
			return err
		}

		r.prevGray, r.gray = r.gray, r.prevGray
	}
}

// step scores the current frame against the previous one and annotates it.
func (r *run) step() error {
	done := r.prof.StartOperation("detect")
	defer done()

	if err := r.prepare(&r.frame, &r.gray); err != nil {
		return err
	}
	regions, err := r.detector.Detect(r.prevGray, r.gray)
	if err != nil {
		return errors.Wrapf(err, "frame %d", r.framesRead)
	}

	decision := r.deps.Policy.Classify(regions)
	r.tally.Add(decision.Increment)
	metrics.RegionsDetectedTotal.Add(float64(len(regions)))
	metrics.RegionsAcceptedTotal.Add(float64(decision.Increment))

	if len(decision.Accepted) > 0 {
		boxes := make([]image.Rectangle, 0, len(decision.Accepted))
		for _, region := range decision.Accepted {
			boxes = append(boxes, region.Box.ToRect())
		}
		images.DrawBoxes(&r.frame, boxes, images.Green, images.DefaultThickness)

		summary := counting.Summarize(regions, decision)
		r.logger.WithFields(logrus.Fields{
			"frame":    r.framesRead,
			"accepted": summary.Accepted,
			"rejected": summary.Rejected,
			"largest":  summary.LargestArea,
			"running":  r.tally.Total(),
		}).Debug("regions accepted")
	}
	return nil
}

func (r *run) finalize() (*Result, error) {
	if err := r.closeEnds(); err != nil {
		r.fail(err)
		return nil, err
	}

	total := r.tally.Total()
	finalPath := filepath.Join(r.cfg.OutputDir,
		OutputName(r.cfg.VideoPath, r.cfg.MaskName, total, r.started, r.cfg.Extension))
	if err := os.Rename(r.tempPath, finalPath); err != nil {
		err = errors.Wrapf(ErrSinkUnwritable, "rename %s: %v", r.tempPath, err)
		r.fail(err)
		return nil, err
	}

	rec := results.Record{
		MaskName:           r.cfg.MaskName,
		VideoFile:          filepath.Base(r.cfg.VideoPath),
		FishCount:          total,
		ProcessedVideoPath: finalPath,
		Timestamp:          r.deps.Clock(),
	}
	res := &Result{
		RunID:         r.id,
		Tally:         total,
		Increments:    r.tally.Increments(),
		FramesRead:    r.framesRead,
		FramesWritten: r.framesWritten,
		OutputPath:    finalPath,
		Record:        rec,
		Duration:      r.deps.Clock().Sub(r.started),
	}

	metrics.RunsTotal.WithLabelValues("completed").Inc()
	metrics.RunDuration.Observe(res.Duration.Seconds())
	r.prof.Report(r.logger)

	logger := r.logger.WithFields(logrus.Fields{
		"count":  total,
		"frames": r.framesWritten,
		"output": finalPath,
	})
	if err := r.deps.RunLog.Append(rec); err != nil {
		logger.WithError(err).Error("run finished but the record was not saved")
		return res, errors.Wrap(err, "append run record")
	}
	logger.Info("run finished")
	return res, nil
}

// fail moves the run to the error state: both ends are closed and the
// partial output is removed.
func (r *run) fail(cause error) {
	if err := r.closeEnds(); err != nil {
		r.logger.WithError(err).Warn("closing after failure")
	}
	if r.tempPath != "" {
		if err := os.Remove(r.tempPath); err != nil && !os.IsNotExist(err) {
			r.logger.WithError(err).WithField("path", r.tempPath).Warn("partial output not removed")
		}
	}
	metrics.RunsTotal.WithLabelValues("failed").Inc()
	r.logger.WithError(cause).Error("run failed")
}

// closeEnds closes the source and sink once. A sink close failure means the
// container may be incomplete and is reported as ErrSinkUnwritable.
func (r *run) closeEnds() error {
	var sinkErr error
	if r.source != nil {
		if err := r.source.Close(); err != nil {
			r.logger.WithError(err).Warn("closing source")
		}
		r.source = nil
	}
	if r.sink != nil {
		if err := r.sink.Close(); err != nil {
			sinkErr = errors.Wrapf(ErrSinkUnwritable, "close %s: %v", r.tempPath, err)
		}
		r.sink = nil
	}
	return sinkErr
}

func (r *run) release() {
	r.frame.Close()
	r.gray.Close()
	r.prevGray.Close()
	r.detector.Close()
	r.mask.Close()
}
