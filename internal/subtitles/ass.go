package subtitles

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/asticode/go-astisub"
)

const (
	// libass falls back to 384x288 when a script declares no resolution.
	defaultPlayResX = 384
	defaultPlayResY = 288
	defaultTitle    = "storyreel captions"
	lineBreak       = `\N`
)

// ASSFile reads and writes tracks as Advanced SubStation Alpha scripts.
type ASSFile struct {
	PlayResX int
	PlayResY int
	Title    string
}

func NewASSFile() *ASSFile {
	return &ASSFile{
		PlayResX: defaultPlayResX,
		PlayResY: defaultPlayResY,
		Title:    defaultTitle,
	}
}

func (f *ASSFile) Load(path string) (*Track, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrLoad, path, err)
	}
	defer func() { _ = file.Close() }()

	subs, err := astisub.ReadFromSSA(file)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrLoad, path, err)
	}
	// The reader skips lines outside known sections, so a file that is not a
	// script at all parses cleanly into nothing.
	if emptyScript(subs) {
		return nil, fmt.Errorf("%w: parse %s: no script sections found", ErrLoad, path)
	}

	track := NewTrack(DefaultStyle())
	if primary := primaryStyle(subs); primary != nil {
		track.Style = styleFromASS(primary)
	}
	if subs.Metadata != nil {
		if subs.Metadata.SSAPlayResX != nil {
			track.PlayResX = *subs.Metadata.SSAPlayResX
		}
		if subs.Metadata.SSAPlayResY != nil {
			track.PlayResY = *subs.Metadata.SSAPlayResY
		}
	}

	track.Events = make([]Event, 0, len(subs.Items))
	for _, item := range subs.Items {
		ev := Event{
			Start: item.StartAt.Milliseconds(),
			End:   item.EndAt.Milliseconds(),
			Text:  itemText(item),
			Style: track.Style.Name,
		}
		if item.Style != nil {
			ev.Style = item.Style.ID
		}
		track.Events = append(track.Events, ev)
	}

	slog.Debug("Captions loaded", "path", path, "events", len(track.Events), "style", track.Style.Name)
	return track, nil
}

// Save writes the track next to path and renames it into place, so a failed
// write never leaves a partial file at path. Negative timestamps are written
// as zero.
func (f *ASSFile) Save(path string, track *Track) error {
	subs := f.toSubtitles(track)
	if err := writeFileAtomic(path, subs.WriteToSSA); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrWrite, path, err)
	}
	return nil
}

func (f *ASSFile) toSubtitles(track *Track) *astisub.Subtitles {
	playResX, playResY := f.PlayResX, f.PlayResY
	if track.PlayResX > 0 && track.PlayResY > 0 {
		playResX, playResY = track.PlayResX, track.PlayResY
	}

	subs := astisub.NewSubtitles()
	subs.Metadata = &astisub.Metadata{
		Title:         f.Title,
		SSAPlayResX:   &playResX,
		SSAPlayResY:   &playResY,
		SSAScriptType: "v4.00+",
	}

	primary := styleToASS(track.Style)
	subs.Styles[primary.ID] = primary

	clamped := 0
	for _, ev := range track.Events {
		name := ev.Style
		if name == "" {
			name = track.Style.Name
		}
		style, ok := subs.Styles[name]
		if !ok {
			named := track.Style
			named.Name = name
			style = styleToASS(named)
			subs.Styles[name] = style
		}

		start, end := ev.Start, ev.End
		if start < 0 || end < 0 {
			clamped++
			start, end = max(start, 0), max(end, 0)
		}

		subs.Items = append(subs.Items, &astisub.Item{
			StartAt: time.Duration(start) * time.Millisecond,
			EndAt:   time.Duration(end) * time.Millisecond,
			Style:   style,
			Lines:   textLines(ev.Text),
		})
	}

	if clamped > 0 {
		slog.Warn("Captions with negative timestamps written as zero", "events", clamped)
	}
	return subs
}

func emptyScript(subs *astisub.Subtitles) bool {
	if len(subs.Items) > 0 || len(subs.Styles) > 0 {
		return false
	}
	m := subs.Metadata
	return m == nil || (m.Title == "" && m.SSAScriptType == "" && m.SSAPlayResX == nil && m.SSAPlayResY == nil)
}

func primaryStyle(subs *astisub.Subtitles) *astisub.Style {
	for _, item := range subs.Items {
		if item.Style != nil {
			return item.Style
		}
	}
	if style, ok := subs.Styles[DefaultStyleName]; ok {
		return style
	}
	for _, style := range subs.Styles {
		return style
	}
	return nil
}

func styleFromASS(s *astisub.Style) StyleConfig {
	style := DefaultStyle()
	style.Name = s.ID

	attrs := s.InlineStyle
	if attrs == nil {
		return style
	}

	if attrs.SSAFontName != "" {
		style.FontName = attrs.SSAFontName
	}
	if attrs.SSAFontSize != nil {
		style.FontSize = *attrs.SSAFontSize
	}
	if attrs.SSAPrimaryColour != nil {
		style.PrimaryColor = formatColor(attrs.SSAPrimaryColour)
	}
	if attrs.SSAOutlineColour != nil {
		style.OutlineColor = formatColor(attrs.SSAOutlineColour)
	}
	if attrs.SSABackColour != nil {
		style.BackColor = formatColor(attrs.SSABackColour)
	}
	if attrs.SSABold != nil {
		style.Bold = *attrs.SSABold
	}
	if attrs.SSAItalic != nil {
		style.Italic = *attrs.SSAItalic
	}
	if attrs.SSAUnderline != nil {
		style.Underline = *attrs.SSAUnderline
	}
	if attrs.SSAStrikeout != nil {
		style.StrikeOut = *attrs.SSAStrikeout
	}
	if attrs.SSAAlignment != nil {
		style.Alignment = *attrs.SSAAlignment
	}
	if attrs.SSAMarginVertical != nil {
		style.MarginV = *attrs.SSAMarginVertical
	}
	if attrs.SSAMarginLeft != nil {
		style.MarginL = *attrs.SSAMarginLeft
	}
	if attrs.SSAMarginRight != nil {
		style.MarginR = *attrs.SSAMarginRight
	}
	if attrs.SSABorderStyle != nil {
		style.BorderStyle = *attrs.SSABorderStyle
	}
	if attrs.SSAOutline != nil {
		style.Outline = *attrs.SSAOutline
	}
	if attrs.SSAShadow != nil {
		style.Shadow = *attrs.SSAShadow
	}

	return style
}

func styleToASS(style StyleConfig) *astisub.Style {
	fontSize := style.FontSize
	bold, italic, underline, strikeOut := style.Bold, style.Italic, style.Underline, style.StrikeOut
	alignment, borderStyle := style.Alignment, style.BorderStyle
	marginV, marginL, marginR := style.MarginV, style.MarginL, style.MarginR
	outline, shadow := style.Outline, style.Shadow

	return &astisub.Style{
		ID: style.Name,
		InlineStyle: &astisub.StyleAttributes{
			SSAFontName:        style.FontName,
			SSAFontSize:        &fontSize,
			SSAPrimaryColour:   parseColor(style.PrimaryColor),
			SSASecondaryColour: parseColor(style.PrimaryColor),
			SSAOutlineColour:   parseColor(style.OutlineColor),
			SSABackColour:      parseColor(style.BackColor),
			SSABold:            &bold,
			SSAItalic:          &italic,
			SSAUnderline:       &underline,
			SSAStrikeout:       &strikeOut,
			SSAAlignment:       &alignment,
			SSABorderStyle:     &borderStyle,
			SSAMarginVertical:  &marginV,
			SSAMarginLeft:      &marginL,
			SSAMarginRight:     &marginR,
			SSAOutline:         &outline,
			SSAShadow:          &shadow,
		},
	}
}

// parseColor converts &HAABBGGRR into an astisub color. Invalid codes yield
// nil so the writer falls back to its own default.
func parseColor(code string) *astisub.Color {
	normalized, ok := normalizeColor(code)
	if !ok {
		return nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(normalized, "&H"), 16, 32)
	if err != nil {
		return nil
	}
	return &astisub.Color{
		Alpha: uint8(v >> 24),
		Blue:  uint8(v >> 16),
		Green: uint8(v >> 8),
		Red:   uint8(v),
	}
}

func formatColor(c *astisub.Color) string {
	return fmt.Sprintf("&H%02X%02X%02X%02X", c.Alpha, c.Blue, c.Green, c.Red)
}

func itemText(item *astisub.Item) string {
	lines := make([]string, 0, len(item.Lines))
	for _, line := range item.Lines {
		var sb strings.Builder
		for _, li := range line.Items {
			sb.WriteString(li.Text)
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, lineBreak)
}

func textLines(text string) []astisub.Line {
	parts := strings.Split(text, lineBreak)
	lines := make([]astisub.Line, 0, len(parts))
	for _, part := range parts {
		lines = append(lines, astisub.Line{Items: []astisub.LineItem{{Text: part}}})
	}
	return lines
}

func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
