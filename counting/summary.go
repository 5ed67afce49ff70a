package counting

import "github.com/nvr-ai/fishcount/motion"

// Summary describes one frame's classification for logging.
type Summary struct {
	Candidates  int
	Accepted    int
	Rejected    int
	LargestArea float64
	// AcceptedArea is the summed contour area of the accepted regions.
	AcceptedArea float64
}

// Summarize builds a Summary from the candidates and the policy decision.
func Summarize(regions []motion.Region, d Decision) Summary {
	s := Summary{
		Candidates: len(regions),
		Accepted:   len(d.Accepted),
		Rejected:   len(regions) - len(d.Accepted),
	}
	for _, r := range regions {
		if r.Area > s.LargestArea {
			s.LargestArea = r.Area
		}
	}
	for _, r := range d.Accepted {
		s.AcceptedArea += r.Area
	}
	return s
}
