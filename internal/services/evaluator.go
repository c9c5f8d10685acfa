package services

import (
	"strings"

	"github.com/opsready/training-service/internal/models"
)

// closeMatchThreshold is the Levenshtein similarity a near-miss short answer
// must reach when close matching is enabled for the question.
const closeMatchThreshold = 0.8

// EvaluateAnswer decides whether a learner's answer is correct. It is pure
// and deterministic so submission scoring, override review and attempt
// display can never disagree about the same answer.
//
// Choice questions (multiple_choice, true_false) compare the raw answer
// byte-for-byte against the canonical option text. Short answers are
// normalized on both sides before comparison and also accept any entry from
// options.AcceptedAnswers.
func EvaluateAnswer(questionType models.QuestionType, userAnswer, correctAnswer string, options models.QuestionOptions) bool {
	switch questionType {
	case models.MultipleChoice, models.TrueFalse:
		return userAnswer == correctAnswer
	case models.ShortAnswer:
		return evaluateShortAnswer(userAnswer, correctAnswer, options)
	default:
		return false
	}
}

// EvaluateQuestion scores one question: full points when correct, zero
// otherwise. Questions with undecodable options are treated as incorrect
// rather than failing the whole attempt.
func EvaluateQuestion(question *models.QuizQuestion, userAnswer string) int {
	options, err := question.DecodeOptions()
	if err != nil {
		return 0
	}
	if EvaluateAnswer(question.Type, userAnswer, question.CorrectAnswer, options) {
		return question.Points
	}
	return 0
}

func evaluateShortAnswer(userAnswer, correctAnswer string, options models.QuestionOptions) bool {
	caseSensitive := options.CaseSensitive

	normalizedUser := normalizeAnswer(userAnswer, caseSensitive)
	if normalizedUser == "" {
		return false
	}

	accepted := make([]string, 0, len(options.AcceptedAnswers)+1)
	accepted = append(accepted, normalizeAnswer(correctAnswer, caseSensitive))
	for _, alt := range options.AcceptedAnswers {
		accepted = append(accepted, normalizeAnswer(alt, caseSensitive))
	}

	for _, candidate := range accepted {
		if candidate == "" {
			continue
		}
		if matchesAnswer(normalizedUser, candidate, options.MatchType) {
			return true
		}
	}

	if options.AllowCloseMatch {
		for _, candidate := range accepted {
			if candidate == "" {
				continue
			}
			if similarity(normalizedUser, candidate) >= closeMatchThreshold {
				return true
			}
		}
	}

	return false
}

// normalizeAnswer trims, collapses internal whitespace and lowercases unless
// the question is case sensitive.
func normalizeAnswer(answer string, caseSensitive bool) string {
	normalized := strings.Join(strings.Fields(answer), " ")
	if !caseSensitive {
		normalized = strings.ToLower(normalized)
	}
	return normalized
}

func matchesAnswer(user, candidate string, matchType models.ShortAnswerMatchType) bool {
	if matchType == models.MatchContains {
		return strings.Contains(user, candidate) || strings.Contains(candidate, user)
	}
	return user == candidate
}

// similarity is 1 - normalized Levenshtein distance, in [0,1].
func similarity(a, b string) float64 {
	longer, shorter := a, b
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	if len(longer) == 0 {
		return 1.0
	}
	distance := levenshteinDistance(longer, shorter)
	return float64(len(longer)-distance) / float64(len(longer))
}

func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[i] = min(curr[i-1]+1, prev[i]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(ra)]
}
