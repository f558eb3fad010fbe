package engine

import "time"

// Progress window owned by Await. Anything before it belongs to acquisition
// and publishing.
const (
	ProgressAwaitStart = 60
	ProgressAwaitEnd   = 95
)

// ScalePercent maps an engine-reported 0..100 percentage into the await window.
func ScalePercent(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return ProgressAwaitStart + percent*(ProgressAwaitEnd-ProgressAwaitStart)/100
}

// ElapsedProgress advances one point per step of elapsed time from start,
// capped at the end of the await window. Used by engines that report no
// percentage of their own.
func ElapsedProgress(start int, elapsed, step time.Duration) int {
	if step <= 0 {
		return start
	}
	p := start + int(elapsed/step)
	if p > ProgressAwaitEnd {
		return ProgressAwaitEnd
	}
	return p
}
