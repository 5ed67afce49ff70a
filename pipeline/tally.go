package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/nvr-ai/fishcount/util"
)

// NoMaskLabel stands in for the mask name in output file names of unmasked
// runs.
const NoMaskLabel = "NoMask"

// FileTimestampLayout is the timestamp format embedded in output names.
const FileTimestampLayout = "20060102_150405"

// Tally accumulates accepted regions over a run. It only grows.
type Tally struct {
	total      int
	increments []int
}

// Add records the increment of one compared frame.
func (t *Tally) Add(n int) {
	if n < 0 {
		n = 0
	}
	t.total += n
	t.increments = append(t.increments, n)
}

// Total returns the running count.
func (t *Tally) Total() int { return t.total }

// Increments returns a copy of the per-frame increments, one per compared
// frame (the first frame has no predecessor and contributes none).
func (t *Tally) Increments() []int {
	out := make([]int, len(t.increments))
	copy(out, t.increments)
	return out
}

// OutputName builds
// {video_stem}_{mask|NoMask}_{count}_fish_{YYYYMMDD_HHMMSS}.{ext}.
func OutputName(video, maskName string, count int, at time.Time, ext string) string {
	if maskName == "" {
		maskName = NoMaskLabel
	}
	return fmt.Sprintf("%s_%s_%d_fish_%s.%s",
		util.BaseStem(video), maskName, count, at.Format(FileTimestampLayout), ext)
}

// tempName is the in-progress name of a run's output. It keeps the real
// extension so the writer selects the right container.
func tempName(dir, video, runID, ext string) string {
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.partial.%s", util.BaseStem(video), runID, ext))
}
