package subtitles

import (
	"math"
	"sort"
)

// TimedChunk is a coarse span of narration text as returned by the aligner.
type TimedChunk struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Event is a single caption with millisecond timing.
type Event struct {
	Start int64
	End   int64
	Text  string
	Style string
}

func (e Event) Duration() int64 {
	return e.End - e.Start
}

// Track is an ordered list of events sharing one style.
type Track struct {
	Style  StyleConfig
	Events []Event

	// PlayResX and PlayResY carry the script resolution of a loaded file so
	// that it survives a load and save cycle. Zero means the store default.
	PlayResX int
	PlayResY int
}

func NewTrack(style StyleConfig) *Track {
	return &Track{Style: style}
}

func (t *Track) Sorted() bool {
	return sort.SliceIsSorted(t.Events, func(i, j int) bool {
		return t.Events[i].Start < t.Events[j].Start
	})
}

func (t *Track) sortByStart() {
	sort.SliceStable(t.Events, func(i, j int) bool {
		return t.Events[i].Start < t.Events[j].Start
	})
}

func toMillis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}

func roundMillis(v float64) int64 {
	return int64(math.Round(v))
}
