package pipeline

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/fishcount/mask"
)

// Failures a run can end with. All but ErrSinkUnwritable are raised during
// initialization, before any frame is written.
var (
	ErrSourceUnreadable = errors.New("pipeline: video source unreadable")
	ErrMaskNotFound     = mask.ErrNotFound
	ErrGeometryMismatch = mask.ErrGeometryMismatch
	ErrSinkUnwritable   = errors.New("pipeline: output video unwritable")
	ErrInvalidFrameRate = errors.New("pipeline: invalid frame rate")
	ErrInvalidConfig    = errors.New("pipeline: invalid configuration")
	ErrRunInProgress    = errors.New("pipeline: run already in progress")
)
