package tracking

import (
	"sort"

	"github.com/angelmondragon/raamul-storefront/pkg/enums"
)

// BuildTimeline orders entries by creation time and checks each move against the
// same transition table the write path enforces.
func BuildTimeline(entries []Entry) Timeline {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	timeline := Timeline{
		Entries:      sorted,
		Current:      enums.OrderStatusPending,
		FurthestStep: -1,
	}
	var previous enums.OrderStatus
	for _, entry := range sorted {
		if !enums.CanTransitionTracking(previous, entry.Status) {
			timeline.Regressions = append(timeline.Regressions, Regression{Entry: entry, From: previous})
		}
		if step := entry.Status.Step(); step > timeline.FurthestStep {
			timeline.FurthestStep = step
		}
		previous = entry.Status
	}
	if len(sorted) > 0 {
		timeline.Current = sorted[len(sorted)-1].Status
	}
	return timeline
}

// Steps renders the linear workflow with progress markers.
func (t Timeline) Steps() []Step {
	steps := make([]Step, 0, len(enums.OrderWorkflow))
	for i, status := range enums.OrderWorkflow {
		steps = append(steps, Step{
			Status:  status,
			Label:   status.Label(),
			Reached: i <= t.FurthestStep,
			Current: status == t.Current,
		})
	}
	return steps
}

// HasRegression reports whether the history contains an impossible move.
func (t Timeline) HasRegression() bool {
	return len(t.Regressions) > 0
}
