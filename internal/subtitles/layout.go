package subtitles

import (
	"fmt"
	"log/slog"
	"strings"
)

// Store persists caption tracks.
type Store interface {
	Load(path string) (*Track, error)
	Save(path string, track *Track) error
}

type Generator struct {
	style StyleConfig
	store Store
}

func NewGenerator(style StyleConfig, store Store) *Generator {
	return &Generator{style: style, store: store}
}

func (g *Generator) Style() StyleConfig {
	return g.style
}

func (g *Generator) Generate(chunks []TimedChunk, wordLevel bool) (*Track, error) {
	return Generate(chunks, g.style, wordLevel)
}

// WriteFile generates a track and hands it to the store.
func (g *Generator) WriteFile(path string, chunks []TimedChunk, wordLevel bool) (*Track, error) {
	track, err := g.Generate(chunks, wordLevel)
	if err != nil {
		return nil, err
	}

	if err := g.store.Save(path, track); err != nil {
		return nil, err
	}

	slog.Info("Captions written", "path", path, "events", len(track.Events), "word_level", wordLevel)
	return track, nil
}

// Generate lays chunks out as caption events. In word-level mode each chunk
// is divided evenly between its words and the last word ends exactly where
// the chunk ends.
func Generate(chunks []TimedChunk, style StyleConfig, wordLevel bool) (*Track, error) {
	track := NewTrack(style)

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}

		start, end := toMillis(chunk.Start), toMillis(chunk.End)
		if end <= start {
			slog.Warn("Skipping chunk with empty span", "index", i, "start", chunk.Start, "end", chunk.End)
			continue
		}

		if !wordLevel {
			track.Events = append(track.Events, Event{Start: start, End: end, Text: chunk.Text, Style: style.Name})
			continue
		}

		words := strings.Fields(chunk.Text)
		if len(words) == 0 {
			continue
		}
		track.Events = append(track.Events, wordEvents(start, end, words, style.Name)...)
	}

	if len(track.Events) == 0 {
		return nil, fmt.Errorf("generate captions from %d chunks: %w", len(chunks), ErrEmptyInput)
	}

	return track, nil
}

func wordEvents(start, end int64, words []string, style string) []Event {
	n := len(words)

	// Fewer milliseconds than words cannot give every word a positive span.
	if end-start < int64(n) {
		return []Event{{Start: start, End: end, Text: strings.Join(words, " "), Style: style}}
	}

	wordDuration := float64(end-start) / float64(n)
	events := make([]Event, 0, n)
	for i, word := range words {
		ev := Event{
			Start: start + roundMillis(float64(i)*wordDuration),
			End:   start + roundMillis(float64(i+1)*wordDuration),
			Text:  word,
			Style: style,
		}
		if i == n-1 {
			ev.End = end
		}
		events = append(events, ev)
	}

	return events
}
