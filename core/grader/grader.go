// Package grader decides whether a free-text lab answer matches the expected one.
//
// Every caller (HTTP endpoint, admin CLI, importers) grades through this package
// so a given pair of strings always gets the same verdict.
package grader

import (
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// Stage tells which matching strategy accepted (or rejected) an answer.
type Stage string

const (
	StageEmpty       Stage = "empty"
	StageExact       Stage = "exact"
	StageContainment Stage = "containment"
	StageSimilarity  Stage = "similarity"
	StageNone        Stage = "none"
)

type (
	// Policy holds the tunable thresholds of the grader.
	Policy struct {
		// SimilarityThreshold is the minimum bag-of-words overlap (0..1) accepted.
		SimilarityThreshold float64
		// MinContainmentLength is the minimum length of the contained answer for a substring match.
		MinContainmentLength int
	}

	Result struct {
		Correct           bool    `json:"correct"`
		Stage             Stage   `json:"stage"`
		NormalizedUser    string  `json:"normalized_user"`
		NormalizedCorrect string  `json:"normalized_correct"`
		Similarity        float64 `json:"similarity"`
	}
)

var DefaultPolicy = Policy{
	SimilarityThreshold:  0.8,
	MinContainmentLength: 3,
}

// CheckAnswer grades with the DefaultPolicy.
func CheckAnswer(userAnswer, correctAnswer string) bool {
	return DefaultPolicy.CheckAnswer(userAnswer, correctAnswer)
}

func (p Policy) CheckAnswer(userAnswer, correctAnswer string) bool {
	return p.Evaluate(userAnswer, correctAnswer).Correct
}

// Evaluate runs the matching cascade (exact, containment, similarity) and reports how it decided.
func (p Policy) Evaluate(userAnswer, correctAnswer string) Result {
	res := Result{Stage: StageEmpty}
	if isBlank(userAnswer) || isBlank(correctAnswer) {
		return res
	}

	nu, nc := Normalize(userAnswer), Normalize(correctAnswer)
	res.NormalizedUser, res.NormalizedCorrect = nu, nc

	if nu == nc {
		res.Correct, res.Stage, res.Similarity = true, StageExact, 1
		return res
	}

	// the length gate applies to whichever side is the contained one
	if strings.Contains(nc, nu) && utf8.RuneCountInString(nu) >= p.MinContainmentLength {
		res.Correct, res.Stage = true, StageContainment
		return res
	}
	if strings.Contains(nu, nc) && utf8.RuneCountInString(nc) >= p.MinContainmentLength {
		res.Correct, res.Stage = true, StageContainment
		return res
	}

	res.Similarity = wordSimilarity(nu, nc)
	if res.Similarity >= p.SimilarityThreshold {
		res.Correct, res.Stage = true, StageSimilarity
		return res
	}

	res.Stage = StageNone
	return res
}

// wordSimilarity is the share of user words found among the correct words,
// relative to the longer of the two word lists. Repeated words each count.
func wordSimilarity(nu, nc string) float64 {
	userWords, correctWords := words(nu), words(nc)
	if len(userWords) == 0 || len(correctWords) == 0 {
		return 0
	}

	present := make(map[string]struct{}, len(correctWords))
	for _, w := range correctWords {
		present[w] = struct{}{}
	}
	var common int
	for _, w := range userWords {
		if _, ok := present[w]; ok {
			common++
		}
	}

	longest := len(userWords)
	if len(correctWords) > longest {
		longest = len(correctWords)
	}
	return float64(common) / float64(longest)
}

func words(s string) []string {
	parts := strings.Split(s, " ")
	ws := parts[:0]
	for _, p := range parts {
		if p != "" {
			ws = append(ws, p)
		}
	}
	return ws
}

// Closeness is a character-level similarity ratio of two answers, used for audit logs only.
// It never influences the verdict.
func Closeness(userAnswer, correctAnswer string) float64 {
	nu, nc := Normalize(userAnswer), Normalize(correctAnswer)
	return difflib.NewMatcher(strings.Split(nu, ""), strings.Split(nc, "")).Ratio()
}
