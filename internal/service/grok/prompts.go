package grok

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Prompts is the prompt catalog embedded in the binary
type Prompts struct {
	LanguageEnforcement    string `yaml:"language_enforcement"`
	ProfilingSystem        string `yaml:"profiling_system"`
	ProfilingDefaultPrompt string `yaml:"profiling_default_prompt"`
	ProfilingMarker        string `yaml:"profiling_marker"`
	CDRsInstruction        string `yaml:"cdrs_instruction"`
	CDRsFallback           string `yaml:"cdrs_fallback"`
	CDRsDefaultPrompt      string `yaml:"cdrs_default_prompt"`
	ReportBlock            string `yaml:"report_block"`
}

// LoadPrompts parses the embedded catalog and checks every entry is present
func LoadPrompts() (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(promptsYAML, &p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	required := map[string]string{
		"language_enforcement":     p.LanguageEnforcement,
		"profiling_system":         p.ProfilingSystem,
		"profiling_default_prompt": p.ProfilingDefaultPrompt,
		"profiling_marker":         p.ProfilingMarker,
		"cdrs_instruction":         p.CDRsInstruction,
		"cdrs_fallback":            p.CDRsFallback,
		"cdrs_default_prompt":      p.CDRsDefaultPrompt,
		"report_block":             p.ReportBlock,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("prompt %q is empty", key)
		}
	}

	return &p, nil
}

func (p *Prompts) Language(language string) string {
	return fill(p.LanguageEnforcement, "{language}", language)
}

func (p *Prompts) Profiling(formula, language string) string {
	return fill(p.ProfilingSystem, "{formula}", formula, "{language}", language)
}

func (p *Prompts) CDRs(formula string) string {
	return fill(p.CDRsInstruction, "{formula}", formula)
}

// Report renders one saved report as a labeled block
func (p *Prompts) Report(index, total int, name, content string) string {
	return fill(p.ReportBlock,
		"{index}", strconv.Itoa(index),
		"{total}", strconv.Itoa(total),
		"{name}", name,
		"{content}", content,
	)
}

func fill(template string, oldnew ...string) string {
	return strings.TrimSpace(strings.NewReplacer(oldnew...).Replace(template))
}
