package quizgen

import (
	"fmt"
	"strings"

	"mcq-worker/internal/domain"
)

// SystemPrompt establishes the question-writing persona.
const SystemPrompt = "You are an expert educational assistant who writes high-quality multiple-choice questions " +
	"that test genuine understanding of study material. You always answer with a single valid JSON object and nothing else."

const userPromptTemplate = `Based on the following educational content, generate EXACTLY %d multiple-choice questions.

Content:
%s

Requirements:
1. Create %d questions that test understanding of the content.
2. Difficulty level: %s
3. Each question must have exactly 4 options.
4. "correct_index" is the zero-based position of the correct option (0-3).
5. Provide a brief explanation of why the correct option is right.
6. Include a short snippet from the content that supports the answer.
%s
Return ONLY a valid JSON object with this exact structure:
{
  "mcqs": [
    {
      "question": "Question text?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correct_index": 0,
      "explanation": "Why this option is correct",
      "source_snippet": "Relevant text from the content",
      "difficulty": "%s"
    }
  ]
}`

// BuildUserPrompt embeds the text and job parameters into the instruction
// sent as the user message.
func BuildUserPrompt(text string, count int, difficulty domain.Difficulty, focusAreas []string) string {
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}
	focus := ""
	if len(focusAreas) > 0 {
		focus = fmt.Sprintf("7. Focus the questions on these topics where the content covers them: %s.\n",
			strings.Join(focusAreas, ", "))
	}
	return fmt.Sprintf(userPromptTemplate, count, text, count, difficulty, focus, difficulty)
}
