package validate

import (
	"sort"

	"github.com/felixgeelhaar/phaseguard/internal/phase"
)

// BuildWaves groups routes by wave number, splitting each wave into routes
// that run unattended and routes that stop for a human checkpoint
func BuildWaves(phases []phase.Phase) []Wave {
	byNumber := make(map[int]*Wave)
	for _, r := range phase.Routes(phases) {
		w, ok := byNumber[r.Wave]
		if !ok {
			w = &Wave{Number: r.Wave, Autonomous: []string{}, Checkpoint: []string{}}
			byNumber[r.Wave] = w
		}
		if r.Autonomous {
			w.Autonomous = append(w.Autonomous, r.ID)
		} else {
			w.Checkpoint = append(w.Checkpoint, r.ID)
		}
	}

	waves := make([]Wave, 0, len(byNumber))
	for _, w := range byNumber {
		phase.SortIDs(w.Autonomous)
		phase.SortIDs(w.Checkpoint)
		waves = append(waves, *w)
	}
	sort.Slice(waves, func(i, j int) bool { return waves[i].Number < waves[j].Number })
	return waves
}
