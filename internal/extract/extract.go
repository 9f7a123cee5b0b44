// Package extract turns loosely formatted generator output into ordered
// question records. Parsing is best effort: malformed input yields fewer
// questions, never an error to the caller.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pavelanni/interviewer/internal/model"
)

// ModelAnswerPlaceholder replaces a subjective model answer the source did not provide.
const ModelAnswerPlaceholder = "Model answer not available. This would typically contain a comprehensive response covering key concepts, best practices, and examples relevant to this question."

// Tier names reported in Result.Tier.
const (
	TierStructured = "structured"
	TierLegacy     = "legacy"
	TierNone       = "none"
)

var (
	errNoArray    = errors.New("no JSON array in text")
	errUnbalanced = errors.New("unbalanced object braces")
)

// Strategy is one extraction tier. Parse returns an error when the tier
// cannot make sense of the text at all, which hands the text to the next tier.
type Strategy struct {
	Name  string
	Parse func(raw string, kind model.QuestionType) ([]model.Question, error)
}

// Chain is an ordered list of strategies; the first one that does not fail wins.
type Chain []Strategy

// DefaultChain tries the structured parse first and the split-based legacy parse second.
var DefaultChain = Chain{
	{Name: TierStructured, Parse: Structured},
	{Name: TierLegacy, Parse: Legacy},
}

// Result is the outcome of running a chain over a text.
type Result struct {
	Questions []model.Question
	Tier      string
}

// Extract runs DefaultChain over raw.
func Extract(raw string, kind model.QuestionType) Result {
	return DefaultChain.Extract(raw, kind)
}

// Extract runs the strategies in order and numbers the winning tier's
// questions 1..n in source order. If every tier fails the result is empty
// with Tier set to TierNone.
func (c Chain) Extract(raw string, kind model.QuestionType) Result {
	for _, s := range c {
		qs, err := safeParse(s, raw, kind)
		if err != nil {
			continue
		}
		for i := range qs {
			qs[i].Ordinal = i + 1
		}
		return Result{Questions: qs, Tier: s.Name}
	}
	return Result{Tier: TierNone}
}

func safeParse(s Strategy, raw string, kind model.QuestionType) (qs []model.Question, err error) {
	defer func() {
		if r := recover(); r != nil {
			qs, err = nil, fmt.Errorf("%s tier panicked: %v", s.Name, r)
		}
	}()
	return s.Parse(raw, kind)
}

// Structured parses text believed to hold a JSON-like array of question
// objects. Preamble and suffix outside the outermost brackets are ignored and
// each top-level {...} span is read independently, so one broken object does
// not spoil its neighbours.
func Structured(raw string, kind model.QuestionType) ([]model.Question, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, errNoArray
	}
	spans, err := objectSpans(raw[start : end+1])
	if err != nil {
		return nil, err
	}

	var qs []model.Question
	for _, obj := range spans {
		text, ok := Field(obj, "question")
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		q := model.Question{
			Type:  questionType(kind),
			Text:  strings.TrimSpace(text),
			Topic: model.DefaultTopic,
		}
		if topic, ok := Field(obj, "topic"); ok && strings.TrimSpace(topic) != "" {
			q.Topic = strings.TrimSpace(topic)
		}
		if q.Type == model.QuestionMCQ {
			q.Options = ArraySpan(obj, "options")
			q.CorrectAnswer, _ = Field(obj, "correctAnswer")
			q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
			if q.CorrectAnswer == "" {
				q.CorrectAnswer = guessCorrectAnswer(q.Options)
			}
			q.Explanation, _ = Field(obj, "explanation")
		} else {
			q.ModelAnswer = modelAnswerOrPlaceholder(obj, "modelAnswer")
		}
		qs = append(qs, q)
	}
	return qs, nil
}

var legacySplit = regexp.MustCompile(`"question"\s*:\s*"`)

// legacyAnswerKeys are the field names older prompt formats used for the reference answer.
var legacyAnswerKeys = []string{"answer", "modelAnswer", "expectedAnswer", "sampleAnswer"}

// Legacy splits raw on every `"question": "` marker and takes the text up to
// the closing quote. It recovers a reference answer when one of the known
// answer keys follows, and nothing else. It never fails.
func Legacy(raw string, kind model.QuestionType) ([]model.Question, error) {
	segments := legacySplit.Split(raw, -1)
	var qs []model.Question
	for _, seg := range segments[1:] {
		text, _ := readString(seg)
		text = strings.TrimSpace(unescape(text))
		if text == "" {
			continue
		}
		q := model.Question{
			Type:  questionType(kind),
			Text:  text,
			Topic: model.DefaultTopic,
		}
		if q.Type == model.QuestionMCQ {
			q.Options = "[]"
			q.CorrectAnswer, _ = Field(seg, "correctAnswer")
			q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
		} else {
			q.ModelAnswer = modelAnswerOrPlaceholder(seg, legacyAnswerKeys...)
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func questionType(kind model.QuestionType) model.QuestionType {
	if kind == model.QuestionMCQ {
		return model.QuestionMCQ
	}
	return model.QuestionSubjective
}

func modelAnswerOrPlaceholder(text string, keys ...string) string {
	for _, k := range keys {
		if v, ok := Field(text, k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ModelAnswerPlaceholder
}

// guessCorrectAnswer picks the first option letter marker present, A before D.
// This is a weak heuristic and only used when the source omits the answer.
func guessCorrectAnswer(options string) string {
	for _, letter := range []string{"A", "B", "C", "D"} {
		if strings.Contains(options, letter+")") {
			return letter
		}
	}
	return ""
}

// objectSpans returns the top-level {...} spans of s in order. Braces inside
// string literals are ignored.
func objectSpans(s string) ([]string, error) {
	var (
		spans    []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, s[start:i+1])
			}
		}
	}
	if depth != 0 {
		return nil, errUnbalanced
	}
	return spans, nil
}

// Patterns for the keys extraction and scoring read, compiled once. The maps
// are only written during init.
var (
	fieldPatterns = map[string]*regexp.Regexp{}
	arrayPatterns = map[string]*regexp.Regexp{}
)

func fieldPattern(key string) *regexp.Regexp {
	if re, ok := fieldPatterns[key]; ok {
		return re
	}
	return regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

func arrayPattern(key string) *regexp.Regexp {
	if re, ok := arrayPatterns[key]; ok {
		return re
	}
	return regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*\[`)
}

func init() {
	for _, k := range []string{"question", "topic", "modelAnswer", "correctAnswer", "explanation",
		"answer", "expectedAnswer", "sampleAnswer", "feedback"} {
		fieldPatterns[k] = fieldPattern(k)
	}
	arrayPatterns["options"] = arrayPattern("options")
}

// Field returns the first string value stored under key anywhere in text.
// Escaped newlines, tabs and quotes in the value are decoded.
func Field(text, key string) (string, bool) {
	m := fieldPattern(key).FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return unescape(m[1]), true
}

// ArraySpan returns the balanced [...] value stored under key, or "[]" when
// the key is missing or its array never closes.
func ArraySpan(text, key string) string {
	loc := arrayPattern(key).FindStringIndex(text)
	if loc == nil {
		return "[]"
	}
	open := loc[1] - 1
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[open : i+1]
			}
		}
	}
	return "[]"
}

// readString returns s up to the first unescaped double quote.
func readString(s string) (string, bool) {
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == '"':
			return s[:i], true
		}
	}
	return s, false
}

var unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)

func unescape(s string) string {
	return unescaper.Replace(s)
}
