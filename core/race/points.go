package race

import (
	"sort"

	"github.com/trackside/carnival/core/house"
)

// The top ten finishers score: 1st place earns 10 points down to 10th place
// earning 1. Ties on running time are not special-cased; recorded position
// alone decides.
const scoringPositions = 10

// CalculatePoints maps an ordered list of finishers to per-house point totals.
// Runners without a position are ignored; every house is present in the
// result, at zero when none of its runners placed in the top ten.
func CalculatePoints(finishers []Runner) map[string]int {
	points := make(map[string]int, len(house.Houses))
	for _, h := range house.Houses {
		points[h] = 0
	}

	ranked := make([]Runner, 0, len(finishers))
	for _, r := range finishers {
		if r.Position != nil {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return *ranked[i].Position < *ranked[j].Position })

	for i, r := range ranked {
		if i >= scoringPositions {
			break
		}
		points[r.House] += scoringPositions - i
	}
	return points
}
