package gtranslate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{
			name:   "shortSentence",
			text:   "Hello there.",
			maxLen: 100,
			want:   []string{"Hello there."},
		},
		{
			name:   "splitsAtPunctuation",
			text:   "First part, second part! Third?",
			maxLen: 100,
			want:   []string{"First part,", "second part!", "Third?"},
		},
		{
			name:   "packsWords",
			text:   "one two three four five",
			maxLen: 9,
			want:   []string{"one two", "three", "four five"},
		},
		{
			name:   "hardSplitsLongWord",
			text:   "abcdefghij k",
			maxLen: 4,
			want:   []string{"abcd", "efgh", "ij k"},
		},
		{
			name:   "blank",
			text:   "  \n ",
			maxLen: 10,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitText(tt.text, tt.maxLen)
			if len(got) != len(tt.want) {
				t.Fatalf("splitText() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
				if utf8.RuneCountInString(got[i]) > tt.maxLen {
					t.Errorf("chunk %d exceeds %d runes", i, tt.maxLen)
				}
			}
		})
	}
}

func TestSynthesize(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate_tts" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("tl") != "de" {
			t.Errorf("tl = %q, want de", r.URL.Query().Get("tl"))
		}
		queries = append(queries, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte("[" + r.URL.Query().Get("idx") + "]"))
	}))
	defer server.Close()

	client := NewClient("de").WithBaseURL(server.URL)
	text := "Guten Tag. " + strings.Repeat("wort ", 30)
	audio, err := client.Synthesize(context.Background(), text)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}

	if len(queries) != 3 {
		t.Fatalf("requests = %d, want 3: %q", len(queries), queries)
	}
	if queries[0] != "Guten Tag." {
		t.Errorf("first chunk = %q", queries[0])
	}
	if string(audio.Data) != "[0][1][2]" {
		t.Errorf("audio = %q, want chunks joined in order", audio.Data)
	}
	if audio.Format != "mp3" {
		t.Errorf("Format = %q", audio.Format)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient("").WithBaseURL(server.URL)
	if client.language != DefaultLanguage {
		t.Errorf("language = %q, want %q", client.language, DefaultLanguage)
	}
	if _, err := client.Synthesize(context.Background(), "hello"); err == nil {
		t.Error("Synthesize() expected error on 403")
	}
	if _, err := client.Synthesize(context.Background(), "   "); err == nil {
		t.Error("Synthesize() expected error on empty text")
	}
}
