package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const DefaultWordsPerMinute = 150.0

// Audio is encoded narration. Format is the file extension without the dot.
type Audio struct {
	Data   []byte
	Format string
}

// Provider turns narration text into audio.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// WriteFile stores audio in dir as base plus the audio's extension and
// returns the full path.
func WriteFile(dir, base string, audio *Audio) (string, error) {
	if audio == nil || len(audio.Data) == 0 {
		return "", fmt.Errorf("no audio to write")
	}
	format := audio.Format
	if format == "" {
		format = "mp3"
	}

	path := filepath.Join(dir, base+"."+format)
	if err := os.WriteFile(path, audio.Data, 0644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return path, nil
}
