// Package scoring holds the pure score arithmetic and answer matching used
// when a question is reviewed. Lower scores mean better known; a score of
// zero means the question is learned.
package scoring

import (
	"math"
	"regexp"
	"strings"
)

const (
	InitialScore       = 4.0
	MaxScore           = 10.0
	MinScore           = 0.0
	CorrectPenalty     = 1.0 // subtracted on a correct answer
	WrongPenalty       = 1.0 // added on a wrong answer
	DifficultThreshold = 5.0
)

var parenthesized = regexp.MustCompile(`\(([^()]*)\)`)

// CalculateNewScore returns the score after one review. The result is
// clamped to [MinScore, MaxScore] and never rests on InitialScore, so that
// reviewed questions stay distinguishable from untouched ones.
func CalculateNewScore(currentScore float64, correct bool) float64 {
	if math.IsNaN(currentScore) {
		currentScore = InitialScore
	}

	next := currentScore + WrongPenalty
	if correct {
		next = currentScore - CorrectPenalty
	}
	next = Clamp(next)

	if next == InitialScore {
		if correct {
			return InitialScore - 1
		}
		return InitialScore + 1
	}
	return next
}

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, score))
}

func IsLearned(score float64) bool {
	return score <= MinScore
}

func IsDifficult(score float64) bool {
	return score >= DifficultThreshold
}

// IsAnswerCorrect reports whether userInput matches one of the forms
// accepted for correctAnswer. Comparison is trimmed and case-insensitive.
func IsAnswerCorrect(userInput, correctAnswer string) bool {
	given := normalize(userInput)
	for _, form := range AcceptableAnswers(correctAnswer) {
		if given == form {
			return true
		}
	}
	return false
}

// AcceptableAnswers derives the normalised answer forms for correctAnswer.
// The answer is split on commas and semicolons; a phrase such as
// "laufen (to run)" accepts "laufen", "to run" and the full phrase.
func AcceptableAnswers(correctAnswer string) []string {
	phrases := strings.FieldsFunc(correctAnswer, func(r rune) bool {
		return r == ',' || r == ';'
	})

	seen := make(map[string]bool)
	var forms []string
	add := func(s string) {
		s = normalize(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		forms = append(forms, s)
	}

	for _, phrase := range phrases {
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		matches := parenthesized.FindAllStringSubmatch(phrase, -1)
		if len(matches) == 0 {
			add(phrase)
			continue
		}
		// Dropping "(Y)" from "X (Y) Z" must not leave a double space.
		add(strings.Join(strings.Fields(parenthesized.ReplaceAllString(phrase, " ")), " "))
		for _, m := range matches {
			add(m[1])
		}
		add(phrase)
	}
	return forms
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
