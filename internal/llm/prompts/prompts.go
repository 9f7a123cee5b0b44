package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Template names; every one must be present in the embedded YAML.
const (
	Subjective         = "subjective"
	MCQ                = "mcq"
	EvaluateSubjective = "evaluate_subjective"
	ModelAnswer        = "model_answer"
	PerformanceSummary = "performance_summary"
	FollowUp           = "follow_up"
	StudyPlan          = "study_plan"
)

var required = []string{Subjective, MCQ, EvaluateSubjective, ModelAnswer, PerformanceSummary, FollowUp, StudyPlan}

var (
	candidateAnswerRegex    = regexp.MustCompile(`(?i)</?\s*candidate-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 10000

// GenerateData holds template data for question generation prompts.
// Personality is one of STRICT, FRIENDLY, TECHNICAL or empty.
type GenerateData struct {
	Role        string
	Level       string
	Count       int
	WeakTopic   string
	Personality string
}

// EvalData holds template data for the subjective evaluation prompt.
type EvalData struct {
	Question string
	Answer   string
}

// SummaryData holds template data for the performance summary prompt.
type SummaryData struct {
	Role         string
	Score        int
	MaxScore     int
	Percent      int
	WeakTopics   []string
	StrongTopics []string
}

// FollowUpData holds template data for the follow-up question prompt.
type FollowUpData struct {
	Question    string
	Answer      string
	Personality string
}

// StudyPlanData holds template data for the study plan prompt.
type StudyPlanData struct {
	Role         string
	AvgScore     float64
	Confidence   string
	WeakTopics   []string
	StrongTopics []string
}

// Set is a parsed collection of prompt templates.
type Set struct {
	templates map[string]*template.Template
}

// Load parses the embedded YAML prompt files.
func Load() (*Set, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read templates directory: %w", err)
	}

	funcs := template.FuncMap{"join": strings.Join}
	set := &Set{templates: make(map[string]*template.Template)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read template file %s: %w", entry.Name(), err)
		}
		var raw map[string]string
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse template file %s: %w", entry.Name(), err)
		}
		for name, text := range raw {
			tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
			if err != nil {
				return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
			}
			set.templates[name] = tmpl
		}
	}

	for _, name := range required {
		if _, ok := set.templates[name]; !ok {
			return nil, fmt.Errorf("prompt template %q not found", name)
		}
	}
	return set, nil
}

// Render executes the named template with data.
func (s *Set) Render(name string, data any) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// BuildEvalPrompt renders the subjective evaluation prompt with a sanitized answer.
func (s *Set) BuildEvalPrompt(question, answer string) (string, error) {
	return s.Render(EvaluateSubjective, EvalData{
		Question: strings.TrimSpace(question),
		Answer:   sanitizeAnswer(answer),
	})
}

// BuildFollowUpPrompt renders the follow-up prompt with a sanitized answer.
func (s *Set) BuildFollowUpPrompt(data FollowUpData) (string, error) {
	data.Question = strings.TrimSpace(data.Question)
	data.Answer = sanitizeAnswer(data.Answer)
	return s.Render(FollowUp, data)
}

func sanitizeAnswer(answer string) string {
	answer = candidateAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		runes = runes[:maxAnswerRunes]
		answer = string(runes) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
