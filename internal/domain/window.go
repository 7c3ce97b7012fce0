package domain

import "time"

// fallbackSpan is how far back the window reaches when the resume point lies
// in the future.
const fallbackSpan = 24 * time.Hour

// Window is the closed acquisition interval of scan start times to fetch.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ResolveWindow picks the acquisition window for a cycle. It resumes one
// second after the newest archived scan, or from defaultStart when nothing has
// been archived yet, and always ends at now truncated to the second.
func ResolveWindow(last time.Time, hasLast bool, defaultStart, now time.Time) Window {
	end := now.UTC().Truncate(time.Second)

	start := defaultStart.UTC()
	if hasLast {
		start = last.UTC().Add(time.Second)
	}
	if start.After(end) {
		start = end.Add(-fallbackSpan)
	}
	return Window{Start: start, End: end}
}
