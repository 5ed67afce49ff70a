package counting

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/fishcount/common"
	"github.com/nvr-ai/fishcount/motion"
)

func regionsWithAreas(areas ...float64) []motion.Region {
	out := make([]motion.Region, len(areas))
	for i, a := range areas {
		out[i] = motion.Region{Area: a, Box: common.BoundingBox{X: i * 10, Y: 0, Width: 5, Height: 5}}
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		areas    []float64
		minArea  int
		expected []float64
	}{
		{name: "no regions", areas: nil, minArea: 500, expected: []float64{}},
		{name: "area equal to threshold is rejected", areas: []float64{500}, minArea: 500, expected: []float64{}},
		{name: "just above threshold", areas: []float64{500.5}, minArea: 500, expected: []float64{500.5}},
		{name: "mixed keeps input order", areas: []float64{1521, 12, 900, 499, 2000}, minArea: 500, expected: []float64{1521, 900, 2000}},
		{name: "zero threshold keeps positive areas", areas: []float64{0, 1}, minArea: 0, expected: []float64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, inc := Filter(regionsWithAreas(tt.areas...), tt.minArea)
			got := make([]float64, 0, len(accepted))
			for _, r := range accepted {
				got = append(got, r.Area)
			}
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, len(tt.expected), inc)
		})
	}
}

func TestFilterIsMonotonicInMinArea(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		areas := make([]float64, rng.Intn(20))
		for i := range areas {
			areas[i] = float64(rng.Intn(3000))
		}
		regions := regionsWithAreas(areas...)

		prev := len(regions) + 1
		for minArea := 0; minArea <= 3000; minArea += 50 {
			_, inc := Filter(regions, minArea)
			require.LessOrEqual(t, inc, prev, "trial %d: raising min area to %d increased the count", trial, minArea)
			prev = inc
		}
	}
}

func TestAreaPolicy(t *testing.T) {
	var policy Policy = NewAreaPolicy(DefaultMinArea)
	assert.Equal(t, "area>500", policy.Name())

	regions := regionsWithAreas(1521, 100, 600)
	decision := policy.Classify(regions)
	assert.Equal(t, 2, decision.Increment)
	assert.Len(t, decision.Accepted, 2)

	summary := Summarize(regions, decision)
	assert.Equal(t, Summary{Candidates: 3, Accepted: 2, Rejected: 1, LargestArea: 1521, AcceptedArea: 2121}, summary)
}

func TestValidateMinArea(t *testing.T) {
	for _, ok := range []int{100, 500, 2000} {
		assert.NoError(t, ValidateMinArea(ok))
	}
	for _, bad := range []int{-1, 0, 99, 2001} {
		assert.True(t, errors.Is(ValidateMinArea(bad), ErrMinAreaOutOfRange), "min area %d", bad)
	}
}
