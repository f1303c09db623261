package llm

import "context"

const (
	wordsPerMinute = 150
	tokensPerWord  = 1.33
	tokenBuffer    = 1.2
)

// SummarizeRequest describes a story to retell as a narration script.
type SummarizeRequest struct {
	Datasource string
	Text       string
	Style      string
	Tone       string
	Theme      string
	Seconds    int
}

type Summarizer interface {
	Summarize(ctx context.Context, req SummarizeRequest) (string, error)
}

// WordLimit is the number of words that can be spoken in seconds at a
// conversational pace.
func WordLimit(seconds int) int {
	return int(float64(seconds) / 60 * wordsPerMinute)
}

// MaxTokens estimates the completion budget for a script of seconds length,
// with headroom so the model is not cut off mid-sentence.
func MaxTokens(seconds int) int {
	return int(float64(seconds) * wordsPerMinute / 60 * tokensPerWord * tokenBuffer)
}
