// Package prompts loads and renders the LLM prompt templates.
//
// Templates live in a TOML file with one table per prompt (classify,
// narrate, agent). Each table carries the text/template source plus the
// generation settings used with it. The defaults are embedded in the
// binary; a file passed to Load overrides only the keys it sets.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"

	"github.com/tbourn/go-remind-backend/internal/llm"
)

//go:embed defaults.toml
var defaultsTOML []byte

// Prompt is one template with its generation settings.
type Prompt struct {
	Template    string  `toml:"template"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// File is the TOML layout.
type File struct {
	Classify Prompt `toml:"classify"`
	Narrate  Prompt `toml:"narrate"`
	Agent    Prompt `toml:"agent"`
}

// ClassifyData feeds the classify template.
type ClassifyData struct {
	Utterance string
	Topic     string
}

// NarrateData feeds the narrate template.
type NarrateData struct {
	Topic        string
	Utterance    string
	Memories     string
	History      string
	AvoidPhrases []string
}

// AgentData feeds the agent template.
type AgentData struct {
	AgentName    string
	Description  string
	Personality  string
	Knowledge    string
	Topic        string
	Utterance    string
	Memories     string
	HasMemories  bool
	History      string
	AvoidPhrases []string
}

type compiled struct {
	tmpl *template.Template
	opts llm.Options
}

// Set holds the parsed templates. It is immutable and safe for concurrent use.
type Set struct {
	classify compiled
	narrate  compiled
	agent    compiled
}

// Default returns the embedded templates. It panics if they do not parse,
// which would be a build defect.
func Default() *Set {
	s, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded defaults: %v", err))
	}
	return s
}

// Load reads overrides from path. An empty path yields the defaults.
func Load(path string) (*Set, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse applies the TOML overrides in data on top of the defaults.
func Parse(data []byte) (*Set, error) {
	var f File
	if err := toml.Unmarshal(defaultsTOML, &f); err != nil {
		return nil, fmt.Errorf("parse default prompts: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse prompts: %w", err)
		}
	}

	var (
		s   Set
		err error
	)
	if s.classify, err = compile("classify", f.Classify); err != nil {
		return nil, err
	}
	if s.narrate, err = compile("narrate", f.Narrate); err != nil {
		return nil, err
	}
	if s.agent, err = compile("agent", f.Agent); err != nil {
		return nil, err
	}
	return &s, nil
}

func compile(name string, p Prompt) (compiled, error) {
	src := strings.TrimSpace(p.Template)
	if src == "" {
		return compiled{}, fmt.Errorf("prompt %q: empty template", name)
	}
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return compiled{}, fmt.Errorf("prompt %q: %w", name, err)
	}
	return compiled{tmpl: t, opts: llm.Options{Temperature: p.Temperature, MaxTokens: p.MaxTokens}}, nil
}

func (c compiled) render(data any) (string, llm.Options, error) {
	var b strings.Builder
	if err := c.tmpl.Execute(&b, data); err != nil {
		return "", llm.Options{}, fmt.Errorf("render prompt %q: %w", c.tmpl.Name(), err)
	}
	return b.String(), c.opts, nil
}

// Classify renders the intent classification prompt.
func (s *Set) Classify(d ClassifyData) (string, llm.Options, error) { return s.classify.render(d) }

// Narrate renders the memory narration prompt.
func (s *Set) Narrate(d NarrateData) (string, llm.Options, error) { return s.narrate.render(d) }

// Agent renders the agent conversation prompt.
func (s *Set) Agent(d AgentData) (string, llm.Options, error) { return s.agent.render(d) }
