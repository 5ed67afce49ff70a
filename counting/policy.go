// Package counting - policies that turn the candidate motion regions of one
// frame into a count increment and the set of regions to annotate.
//
// Counting is per frame: an object that stays above the area threshold for N
// consecutive frames contributes N to the run tally. The package counts
// motion-region detections, not distinct objects. A tracking policy can be
// plugged in behind the Policy interface without touching detection or I/O.
package counting

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nvr-ai/fishcount/motion"
)

const (
	// DefaultMinArea is the default minimum contour area for a region to count.
	DefaultMinArea = 500
	// MinAreaLowerBound is the smallest user-selectable minimum area.
	MinAreaLowerBound = 100
	// MinAreaUpperBound is the largest user-selectable minimum area.
	MinAreaUpperBound = 2000
)

// ErrMinAreaOutOfRange is returned for a minimum area outside
// [MinAreaLowerBound, MinAreaUpperBound].
var ErrMinAreaOutOfRange = errors.New("counting: minimum area out of range")

// Decision is the outcome of classifying one frame's candidate regions.
type Decision struct {
	// Accepted holds the regions that passed the policy, in input order.
	Accepted []motion.Region
	// Increment is the amount this frame adds to the run tally.
	Increment int
}

// Policy classifies the candidate regions of a single frame.
//
// Implementations must be deterministic for a given input and must not
// retain the regions slice.
type Policy interface {
	Classify(regions []motion.Region) Decision
	Name() string
}

// Filter keeps the regions whose area strictly exceeds minArea.
//
// Arguments:
//   - regions: Candidate regions of one frame.
//   - minArea: Area threshold in pixels.
//
// Returns:
//   - []motion.Region: The accepted regions in input order.
//   - int: The count increment, equal to the number of accepted regions.
func Filter(regions []motion.Region, minArea int) ([]motion.Region, int) {
	accepted := make([]motion.Region, 0, len(regions))
	for _, r := range regions {
		if r.Area > float64(minArea) {
			accepted = append(accepted, r)
		}
	}
	return accepted, len(accepted)
}

// AreaPolicy accepts every region larger than MinArea.
type AreaPolicy struct {
	MinArea int
}

// NewAreaPolicy returns an AreaPolicy with the given threshold.
func NewAreaPolicy(minArea int) AreaPolicy {
	return AreaPolicy{MinArea: minArea}
}

// Classify implements Policy.
func (p AreaPolicy) Classify(regions []motion.Region) Decision {
	accepted, inc := Filter(regions, p.MinArea)
	return Decision{Accepted: accepted, Increment: inc}
}

// Name implements Policy.
func (p AreaPolicy) Name() string {
	return fmt.Sprintf("area>%d", p.MinArea)
}

// ValidateMinArea checks that minArea lies in the user-tunable range.
func ValidateMinArea(minArea int) error {
	if minArea < MinAreaLowerBound || minArea > MinAreaUpperBound {
		return errors.Wrapf(ErrMinAreaOutOfRange, "%d not in [%d, %d]",
			minArea, MinAreaLowerBound, MinAreaUpperBound)
	}
	return nil
}
