package subtitles

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const DefaultStyleName = "DefaultStyle"

// StyleConfig is the single visual style shared by every event of a track.
// Colors are ASS color codes in &HAABBGGRR form.
type StyleConfig struct {
	Name         string
	FontName     string
	FontSize     float64
	PrimaryColor string
	OutlineColor string
	BackColor    string
	Bold         bool
	Italic       bool
	Underline    bool
	StrikeOut    bool
	Alignment    int
	MarginV      int
	MarginL      int
	MarginR      int
	BorderStyle  int
	Outline      float64
	Shadow       float64
}

func DefaultStyle() StyleConfig {
	return StyleConfig{
		Name:         DefaultStyleName,
		FontName:     "Arial",
		FontSize:     36,
		PrimaryColor: "&H00FFFFFF",
		OutlineColor: "&H000000FF",
		BackColor:    "&H80000000",
		Bold:         true,
		Alignment:    2,
		MarginV:      50,
		MarginL:      20,
		MarginR:      20,
		BorderStyle:  1,
		Outline:      2.0,
		Shadow:       2.0,
	}
}

// Merge returns a copy of s with the recognized keys of overrides applied.
// Unknown keys are ignored and values of the wrong type keep the current
// value.
func (s StyleConfig) Merge(overrides map[string]any) StyleConfig {
	merged := s
	for key, value := range overrides {
		var ok bool
		switch key {
		case "name":
			ok = setString(&merged.Name, value)
		case "font_name":
			ok = setString(&merged.FontName, value)
		case "font_size":
			ok = setFloat(&merged.FontSize, value)
		case "primary_color":
			ok = setColor(&merged.PrimaryColor, value)
		case "outline_color":
			ok = setColor(&merged.OutlineColor, value)
		case "back_color":
			ok = setColor(&merged.BackColor, value)
		case "bold":
			ok = setBool(&merged.Bold, value)
		case "italic":
			ok = setBool(&merged.Italic, value)
		case "underline":
			ok = setBool(&merged.Underline, value)
		case "strike_out":
			ok = setBool(&merged.StrikeOut, value)
		case "alignment":
			ok = setInt(&merged.Alignment, value)
		case "margin_v":
			ok = setInt(&merged.MarginV, value)
		case "margin_l":
			ok = setInt(&merged.MarginL, value)
		case "margin_r":
			ok = setInt(&merged.MarginR, value)
		case "border_style":
			ok = setInt(&merged.BorderStyle, value)
		case "outline":
			ok = setFloat(&merged.Outline, value)
		case "shadow":
			ok = setFloat(&merged.Shadow, value)
		default:
			continue
		}
		if !ok {
			slog.Warn("Ignoring style value", "key", key, "value", value)
		}
	}
	return merged
}

// LoadStyle overlays the style file at path onto the defaults. A missing or
// unreadable file is not fatal: the defaults are returned and a warning is
// logged.
func LoadStyle(path string) StyleConfig {
	style := DefaultStyle()
	if path == "" {
		return style
	}

	overrides, err := ReadStyleFile(path)
	if err != nil {
		slog.Warn("Using default caption style", "path", path, "error", err)
		return style
	}

	return style.Merge(overrides)
}

// ReadStyleFile parses a flat key/value style document. The format follows
// the extension: .yaml/.yml, .toml, anything else is read as JSON.
func ReadStyleFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read style: %w", ErrLoad, err)
	}

	overrides := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &overrides)
	case ".toml":
		err = toml.Unmarshal(data, &overrides)
	default:
		err = json.Unmarshal(data, &overrides)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse style %s: %w", ErrLoad, filepath.Base(path), err)
	}

	return overrides, nil
}

func setString(dst *string, value any) bool {
	v, ok := value.(string)
	if !ok {
		return false
	}
	*dst = v
	return true
}

func setBool(dst *bool, value any) bool {
	v, ok := value.(bool)
	if !ok {
		return false
	}
	*dst = v
	return true
}

func setFloat(dst *float64, value any) bool {
	v, ok := toFloat(value)
	if !ok {
		return false
	}
	*dst = v
	return true
}

func setInt(dst *int, value any) bool {
	v, ok := toFloat(value)
	if !ok || v != math.Trunc(v) {
		return false
	}
	*dst = int(v)
	return true
}

func setColor(dst *string, value any) bool {
	v, ok := value.(string)
	if !ok {
		return false
	}
	color, ok := normalizeColor(v)
	if !ok {
		return false
	}
	*dst = color
	return true
}

// toFloat accepts the numeric types produced by the JSON, YAML and TOML
// decoders.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// normalizeColor accepts &HAABBGGRR, &HBBGGRR or #RRGGBB.
func normalizeColor(color string) (string, bool) {
	color = strings.TrimSpace(color)
	if hex, ok := strings.CutPrefix(color, "#"); ok {
		if len(hex) != 6 || !isHex(hex) {
			return "", false
		}
		r, g, b := hex[0:2], hex[2:4], hex[4:6]
		return strings.ToUpper(fmt.Sprintf("&H00%s%s%s", b, g, r)), true
	}

	upper := strings.ToUpper(color)
	hex, ok := strings.CutPrefix(upper, "&H")
	if !ok {
		return "", false
	}
	hex = strings.TrimSuffix(hex, "&")
	switch {
	case len(hex) == 8 && isHex(hex):
		return "&H" + hex, true
	case len(hex) == 6 && isHex(hex):
		return "&H00" + hex, true
	default:
		return "", false
	}
}

func isHex(s string) bool {
	_, err := strconv.ParseUint(s, 16, 32)
	return err == nil
}
