package subtitles

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/flock"
)

const DefaultMaxLength = 42

// Adjustments describes a manual timing correction. Zero Scale or Stretch
// means unset; identity values leave the track untouched.
type Adjustments struct {
	Shift       float64
	Scale       float64
	Stretch     float64
	MinDuration float64
	Split       bool
	MaxLength   int
}

type Report struct {
	Events     int
	Lengthened int
	Split      int
	Created    int
}

func DefaultAdjustments() Adjustments {
	return Adjustments{
		Scale:       1.0,
		Stretch:     1.0,
		MinDuration: 1.0,
		MaxLength:   DefaultMaxLength,
	}
}

func (a Adjustments) Validate() error {
	if a.Scale < 0 {
		return fmt.Errorf("scale must be positive, got %g", a.Scale)
	}
	if a.Stretch < 0 {
		return fmt.Errorf("stretch must be positive, got %g", a.Stretch)
	}
	if a.MinDuration < 0 {
		return fmt.Errorf("min duration must not be negative, got %g", a.MinDuration)
	}
	if a.Split && a.MaxLength <= 0 {
		return fmt.Errorf("max length must be positive, got %d", a.MaxLength)
	}
	return nil
}

// Shift moves every event by seconds. Negative results are not clamped.
func (t *Track) Shift(seconds float64) {
	delta := toMillis(seconds)
	for i := range t.Events {
		t.Events[i].Start += delta
		t.Events[i].End += delta
	}
}

// Scale multiplies each event's duration by factor, keeping its start.
func (t *Track) Scale(factor float64) {
	for i := range t.Events {
		ev := &t.Events[i]
		ev.End = ev.Start + roundMillis(float64(ev.Duration())*factor)
	}
}

// Stretch multiplies both timestamps by factor, so positions move in
// proportion to their distance from zero.
func (t *Track) Stretch(factor float64) {
	for i := range t.Events {
		ev := &t.Events[i]
		ev.Start = roundMillis(float64(ev.Start) * factor)
		ev.End = roundMillis(float64(ev.End) * factor)
	}
}

// EnforceMinDuration lengthens events shorter than seconds and reports how
// many changed.
func (t *Track) EnforceMinDuration(seconds float64) int {
	minimum := toMillis(seconds)
	adjusted := 0
	for i := range t.Events {
		ev := &t.Events[i]
		if ev.Duration() < minimum {
			ev.End = ev.Start + minimum
			adjusted++
		}
	}
	slog.Info("Enforced minimum duration", "seconds", seconds, "adjusted", adjusted)
	return adjusted
}

// SplitLongLines replaces events longer than maxLength characters with one
// event per wrapped line, dividing the original span evenly. The last
// segment is not snapped to the original end.
func (t *Track) SplitLongLines(maxLength int) (split, created int) {
	kept := make([]Event, 0, len(t.Events))
	var added []Event

	for _, ev := range t.Events {
		if utf8.RuneCountInString(ev.Text) <= maxLength {
			kept = append(kept, ev)
			continue
		}

		words := strings.Fields(ev.Text)
		if len(words) <= 1 {
			kept = append(kept, ev)
			continue
		}

		lines := wrapWords(words, maxLength)
		if len(lines) <= 1 {
			kept = append(kept, ev)
			continue
		}

		added = append(added, splitEvent(ev, lines)...)
		split++
		created += len(lines)
	}

	t.Events = append(kept, added...)
	t.sortByStart()

	if split > 0 {
		slog.Info("Split long captions", "events", split, "into", created)
	}
	return split, created
}

// Apply runs the adjustments in the fixed order shift, scale, stretch,
// minimum duration, split.
func (t *Track) Apply(adj Adjustments) Report {
	if adj.Shift != 0 {
		slog.Info("Shifting captions", "seconds", adj.Shift)
		t.Shift(adj.Shift)
	}
	if adj.Scale != 0 && adj.Scale != 1 {
		slog.Info("Scaling caption durations", "factor", adj.Scale)
		t.Scale(adj.Scale)
	}
	if adj.Stretch != 0 && adj.Stretch != 1 {
		slog.Info("Stretching caption timeline", "factor", adj.Stretch)
		t.Stretch(adj.Stretch)
	}

	var report Report
	if adj.MinDuration > 0 {
		report.Lengthened = t.EnforceMinDuration(adj.MinDuration)
	}
	if adj.Split {
		report.Split, report.Created = t.SplitLongLines(adj.MaxLength)
	}
	report.Events = len(t.Events)

	return report
}

// AdjustFile loads the track at in, applies adj and writes the result to
// out, or back to in when out is empty. Nothing is written unless every
// step succeeds in memory.
func AdjustFile(store Store, in, out string, adj Adjustments) (Report, error) {
	if err := adj.Validate(); err != nil {
		return Report{}, err
	}
	if out == "" {
		out = in
	}

	lock := flock.New(out + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Report{}, fmt.Errorf("%w: lock %s: %w", ErrWrite, out, err)
	}
	if !locked {
		return Report{}, fmt.Errorf("%w: %s is being adjusted by another process", ErrWrite, out)
	}
	defer func() {
		_ = os.Remove(lock.Path())
		_ = lock.Unlock()
	}()

	track, err := store.Load(in)
	if err != nil {
		return Report{}, err
	}

	report := track.Apply(adj)

	if err := store.Save(out, track); err != nil {
		return report, err
	}

	return report, nil
}

func wrapWords(words []string, maxLength int) []string {
	var lines []string
	current := ""

	for _, word := range words {
		if current != "" && utf8.RuneCountInString(current)+utf8.RuneCountInString(word)+1 > maxLength {
			lines = append(lines, current)
			current = word
			continue
		}
		if current == "" {
			current = word
		} else {
			current += " " + word
		}
	}

	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func splitEvent(ev Event, lines []string) []Event {
	segment := float64(ev.Duration()) / float64(len(lines))
	events := make([]Event, 0, len(lines))
	for i, line := range lines {
		events = append(events, Event{
			Start: ev.Start + roundMillis(float64(i)*segment),
			End:   ev.Start + roundMillis(float64(i+1)*segment),
			Text:  line,
			Style: ev.Style,
		})
	}
	return events
}
