package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

//go:embed default.yaml
var defaultPrompts []byte

type Prompts struct {
	System SystemPrompts `yaml:"system"`
	Script ScriptPrompts `yaml:"script"`
}

type SystemPrompts struct {
	Summarize string `yaml:"summarize"`
}

type ScriptPrompts struct {
	Summarize string `yaml:"summarize"`
}

// SummarizeParams feeds both the system and the user summarize templates.
type SummarizeParams struct {
	Datasource string
	Text       string
	Style      string
	Tone       string
	Theme      string
	Length     int
	WordLimit  int
}

// Default returns the built-in prompts.
func Default() *Prompts {
	var p Prompts
	if err := yaml.Unmarshal(defaultPrompts, &p); err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}
	return &p
}

// Load reads prompts.yaml from the working directory when present.
func Load() (*Prompts, error) {
	return LoadFrom(defaultPromptsPath)
}

// LoadFrom overlays the prompts in path on the built-in ones. A missing file
// yields the defaults; prompts left empty in the file keep their default.
func LoadFrom(path string) (*Prompts, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	if override.System.Summarize != "" {
		p.System.Summarize = override.System.Summarize
	}
	if override.Script.Summarize != "" {
		p.Script.Summarize = override.Script.Summarize
	}
	return p, nil
}

func (p *Prompts) RenderSystem(params SummarizeParams) (string, error) {
	return render(p.System.Summarize, params)
}

func (p *Prompts) RenderSummarize(params SummarizeParams) (string, error) {
	return render(p.Script.Summarize, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
