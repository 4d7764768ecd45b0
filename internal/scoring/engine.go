// Package scoring turns questionnaire answers into normalized category
// scores and a rule-based recommendation list. Everything here is pure.
package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fived/therapists/internal/questionnaire"
)

// LowScoreThreshold is the score below which a category gets a recommendation.
const LowScoreThreshold = 60.0

// BaselineRecommendation is always the first recommendation.
const BaselineRecommendation = "Manter uma rotina de sono regular e hidratação adequada."

var categoryRecommendations = map[questionnaire.Category]string{
	questionnaire.Physical:  "Considerar atividades físicas leves como caminhada ou yoga para melhorar a vitalidade física.",
	questionnaire.Emotional: "Praticar meditação ou mindfulness diariamente por 10-15 minutos para cultivar equilíbrio emocional.",
	questionnaire.Mental:    "Experimentar técnicas de foco e organização, como a técnica Pomodoro, para melhorar a clareza mental.",
	questionnaire.Spiritual: "Dedicar tempo para reflexão sobre seus valores e propósito, talvez através de um diário ou conversas inspiradoras.",
	questionnaire.Energetic: "Explorar práticas de limpeza e proteção energética, como banhos de ervas ou visualizações de escudos de luz.",
}

// Scores maps a category to its 0..100 score.
type Scores map[questionnaire.Category]float64

// Result is the outcome of scoring one answer set.
type Result struct {
	Categories      Scores   `json:"categories"`
	Recommendations []string `json:"recommendations"`
}

// ComputeResults scores answers against catalog. Answers may be partial;
// absent, non-integer and out-of-scale values are skipped, so every score
// stays within 0..100.
func ComputeResults(answers map[string]string, catalog *questionnaire.Catalog) Result {
	scores := make(Scores)
	for _, category := range catalog.Categories() {
		sum, count := 0, 0
		for _, q := range catalog.Questions(category) {
			raw, ok := answers[q.ID]
			if !ok {
				continue
			}
			v, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || !q.Accepts(v) {
				continue
			}
			sum += v
			count++
		}
		if count > 0 {
			scores[category] = float64(sum) / float64(count*questionnaire.MaxValue) * 100
		} else {
			scores[category] = 0
		}
	}

	return Result{
		Categories:      scores,
		Recommendations: Recommend(scores),
	}
}

// Recommend builds the recommendation list for scores: the baseline first,
// then one entry per low category in fixed priority order.
func Recommend(scores Scores) []string {
	recs := []string{BaselineRecommendation}
	for _, category := range questionnaire.Categories() {
		score, ok := scores[category]
		if !ok || score >= LowScoreThreshold {
			continue
		}
		if rec, ok := categoryRecommendations[category]; ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

// CategoryRecommendation returns the static recommendation for category.
func CategoryRecommendation(category questionnaire.Category) (string, bool) {
	rec, ok := categoryRecommendations[category]
	return rec, ok
}

// Validate checks the invariant required before a result may be persisted.
func (r Result) Validate() error {
	if len(r.Categories) == 0 {
		return fmt.Errorf("no category scores")
	}
	for category, score := range r.Categories {
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return fmt.Errorf("category %q score is not finite", category)
		}
		if score < 0 || score > 100 {
			return fmt.Errorf("category %q score %.2f outside 0..100", category, score)
		}
	}
	return nil
}
