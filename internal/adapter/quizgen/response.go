package quizgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"mcq-worker/internal/domain"
)

var (
	errNoJSONObject    = errors.New("no JSON object found in response")
	errNoQuestionArray = errors.New(`response has no "mcqs" or "questions" array`)
)

var (
	questionKeys    = []string{"question", "questionText", "question_text"}
	correctKeys     = []string{"correct_index", "correctIndex", "correct_option_index"}
	explanationKeys = []string{"explanation"}
	snippetKeys     = []string{"source_snippet", "sourceSnippet"}
)

// Rejection records why a returned element was dropped.
type Rejection struct {
	Index  int
	Reason string
}

// cleanResponse strips <think> blocks and keeps the outermost JSON object,
// which also drops any markdown fence around it.
func cleanResponse(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s, "</think>")
		if end == -1 || end < start {
			break
		}
		s = s[:start] + s[end+len("</think>"):]
	}
	s = strings.TrimSpace(s)

	jsonStart := strings.Index(s, "{")
	jsonEnd := strings.LastIndex(s, "}")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		return "", errNoJSONObject
	}
	return s[jsonStart : jsonEnd+1], nil
}

// parseQuestions decodes a completion into questions. Elements that fail the
// shape checks are skipped and reported as rejections; an error means the
// response as a whole was unusable.
func parseQuestions(raw string, difficulty domain.Difficulty) ([]domain.Question, []Rejection, error) {
	body, err := cleanResponse(raw)
	if err != nil {
		return nil, nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	list, ok := envelope["mcqs"]
	if !ok {
		list, ok = envelope["questions"]
	}
	if !ok {
		return nil, nil, errNoQuestionArray
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(list, &elements); err != nil {
		return nil, nil, fmt.Errorf("question list is not an array: %w", err)
	}

	questions := make([]domain.Question, 0, len(elements))
	var rejected []Rejection
	for i, element := range elements {
		q, err := decodeQuestion(element, difficulty)
		if err != nil {
			rejected = append(rejected, Rejection{Index: i, Reason: err.Error()})
			continue
		}
		questions = append(questions, q)
	}
	return questions, rejected, nil
}

func decodeQuestion(element json.RawMessage, difficulty domain.Difficulty) (domain.Question, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(element, &fields); err != nil || fields == nil {
		return domain.Question{}, errors.New("element is not an object")
	}

	text := strings.TrimSpace(stringField(fields, questionKeys))
	if text == "" {
		return domain.Question{}, errors.New("missing question text")
	}

	rawOptions, ok := fields["options"].([]interface{})
	if !ok {
		return domain.Question{}, errors.New("options is not a list")
	}
	if len(rawOptions) != domain.OptionCount {
		return domain.Question{}, fmt.Errorf("expected %d options, got %d", domain.OptionCount, len(rawOptions))
	}
	options := make([]string, domain.OptionCount)
	for i, o := range rawOptions {
		s, ok := o.(string)
		if !ok {
			return domain.Question{}, fmt.Errorf("option %d is not a string", i)
		}
		options[i] = s
	}

	index, err := correctIndex(fields)
	if err != nil {
		return domain.Question{}, err
	}

	q := domain.Question{
		Question:      text,
		Options:       options,
		CorrectIndex:  index,
		Explanation:   stringField(fields, explanationKeys),
		SourceSnippet: stringField(fields, snippetKeys),
		Difficulty:    difficulty,
	}
	if d, ok := fields["difficulty"].(string); ok {
		if parsed, err := domain.ParseDifficulty(d); err == nil && d != "" {
			q.Difficulty = parsed
		}
	}
	return q, nil
}

func correctIndex(fields map[string]interface{}) (int, error) {
	for _, key := range correctKeys {
		v, present := fields[key]
		if !present {
			continue
		}
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return 0, fmt.Errorf("%s is not an integer", key)
		}
		if f < 0 || f >= domain.OptionCount {
			return 0, fmt.Errorf("%s %v out of range", key, f)
		}
		return int(f), nil
	}
	return 0, errors.New("missing correct index")
}

func stringField(fields map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if s, ok := fields[key].(string); ok {
			return s
		}
	}
	return ""
}
