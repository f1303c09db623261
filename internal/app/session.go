package app

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxNameLength = 50

// workspace is the scratch directory of one pipeline run. It is removed
// when the run ends, whatever the outcome.
type workspace struct {
	id  string
	dir string
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func newWorkspace(baseDir string, now time.Time) (*workspace, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	dir, err := os.MkdirTemp(baseDir, "run-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{id: now.Format("20060102_150405"), dir: dir}, nil
}

func (w *workspace) remove() {
	_ = os.RemoveAll(w.dir)
}

func (w *workspace) path(name string) string { return filepath.Join(w.dir, name) }
func (w *workspace) backgroundPath() string  { return w.path("background.mp4") }
func (w *workspace) narratedPath() string    { return w.path("narrated.mp4") }
func (w *workspace) captionsPath() string    { return w.path("captions.ass") }
func (w *workspace) finalPath() string       { return w.path("final.mp4") }

// outputName is the published file name: the run timestamp and a slug of
// the title.
func (w *workspace) outputName(title string) string {
	slug := sanitizeForPath(title)
	if slug == "" {
		slug = "untitled"
	}
	if len(slug) > maxNameLength {
		slug = strings.TrimRight(slug[:maxNameLength], "_")
	}
	return fmt.Sprintf("%s_%s.mp4", w.id, slug)
}

func sanitizeForPath(s string) string {
	s = strings.ToLower(s)
	s = sanitizeRegex.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// titleCase capitalizes each word and keeps acronyms such as TIFU intact.
func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(strings.TrimSpace(s))
}
