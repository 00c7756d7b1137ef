package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"mcq-worker/internal/domain"
)

const (
	maxTopicPhrases  = 8
	maxPhraseWords   = 3
	minLeadWordRunes = 3
	additionalMarker = " (Additional)"
)

var genericTopics = []string{
	"key concepts",
	"main ideas",
	"primary findings",
	"central themes",
	"important details",
	"fundamental principles",
	"core arguments",
	"significant points",
	"major topics",
}

var questionTemplates = []string{
	"What is the main idea presented about %s in the text?",
	"According to the text, which statement best describes %s?",
	"Which of the following is true regarding %s?",
	"How does the text characterize %s?",
	"What role does %s play in the material?",
	"Which statement about %s is supported by the text?",
	"What can be concluded about %s from the passage?",
	"Why is %s significant according to the content?",
	"Which option best summarizes the discussion of %s?",
	"What does the text emphasize about %s?",
	"How is %s related to the overall subject of the text?",
	"What key point does the author make about %s?",
}

var explanationTemplates = []string{
	"The text directly discusses %s and supports this answer.",
	"This option accurately reflects how the material presents %s.",
	"The passage about %s provides the evidence for this choice.",
	"Based on the content covering %s, this is the most accurate statement.",
	"The discussion of %s in the text aligns with this answer.",
}

var standardOptions = [domain.OptionCount]string{
	"Accurately reflects the text content",
	"Contradicts the information presented",
	"Related concept but not directly addressed",
	"Unrelated to the text subject matter",
}

var hardOptions = [domain.OptionCount]string{
	"Directly supported by specific evidence in the text",
	"Implied but not explicitly stated in the content",
	"Plausible but contradicted by key details",
	"Fundamentally misinterprets the main arguments",
}

// FallbackQuizGenerator synthesises template questions without any network
// call. The correct answer is always the first option.
type FallbackQuizGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallbackQuizGenerator uses rng for every random choice. A nil rng is
// seeded from the clock.
func NewFallbackQuizGenerator(rng *rand.Rand) *FallbackQuizGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &FallbackQuizGenerator{rng: rng}
}

// Generate implements domain.QuestionGenerator.
func (g *FallbackQuizGenerator) Generate(_ context.Context, req domain.GenerationRequest) domain.Generation {
	return domain.Generation{
		Questions: g.Questions(req.Text, req.Count, req.Difficulty),
		Source:    domain.SourceFallback,
	}
}

// Questions returns exactly count questions about text.
func (g *FallbackQuizGenerator) Questions(text string, count int, difficulty domain.Difficulty) []domain.Question {
	if count <= 0 {
		return []domain.Question{}
	}
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}

	topics := ExtractTopicPhrases(text)
	if len(topics) == 0 {
		topics = genericTopics
	}
	options := standardOptions
	if difficulty.IsHard() {
		options = hardOptions
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	order := g.rng.Perm(len(questionTemplates))
	n := min(count, len(order))

	questions := make([]domain.Question, 0, count)
	for i := 0; i < n; i++ {
		topic := topics[i%len(topics)]
		questions = append(questions, domain.Question{
			Question:     fmt.Sprintf(questionTemplates[order[i]], topic),
			Options:      append([]string(nil), options[:]...),
			CorrectIndex: 0,
			Explanation:  fmt.Sprintf(explanationTemplates[g.rng.Intn(len(explanationTemplates))], topic),
			Difficulty:   difficulty,
		})
	}

	for len(questions) < count {
		pad := questions[g.rng.Intn(n)]
		pad.Question += additionalMarker
		pad.Options = append([]string(nil), pad.Options...)
		questions = append(questions, pad)
	}
	return questions
}

// ExtractTopicPhrases finds up to eight distinct capitalised runs of one to
// three words that open a sentence, in order of first occurrence.
func ExtractTopicPhrases(text string) []string {
	tokens := strings.Fields(text)
	seen := make(map[string]struct{})
	var phrases []string

	for i := 0; i < len(tokens) && len(phrases) < maxTopicPhrases; i++ {
		if i > 0 && !endsSentence(tokens[i-1]) {
			continue
		}
		lead := trimWord(tokens[i])
		if !isCapitalized(lead) || utf8.RuneCountInString(lead) < minLeadWordRunes {
			continue
		}

		words := []string{lead}
		for j := i + 1; j < len(tokens) && len(words) < maxPhraseWords; j++ {
			if endsSentence(tokens[j-1]) {
				break
			}
			w := trimWord(tokens[j])
			if !isCapitalized(w) {
				break
			}
			words = append(words, w)
		}

		phrase := strings.Join(words, " ")
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		phrases = append(phrases, phrase)
	}
	return phrases
}

func endsSentence(token string) bool {
	return strings.HasSuffix(token, ".") || strings.HasSuffix(token, "!") || strings.HasSuffix(token, "?")
}

func trimWord(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func isCapitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return r != utf8.RuneError && unicode.IsUpper(r)
}
