package analysis

import (
	"fmt"
	"sort"

	"github.com/fived/therapists/internal/questionnaire"
)

type Point struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Series struct {
	Category questionnaire.Category `json:"category"`
	Label    string                 `json:"label"`
	Points   []Point                `json:"points"`
}

// Trend is the per-category evolution of a patient, oldest first.
type Trend struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// ComputeTrend builds one series per category of the first record that has
// scores. Records without a results payload are skipped; a record missing a
// category contributes 0 for it.
func ComputeTrend(records []Record) Trend {
	var usable []Record
	for _, r := range records {
		if r.Results.Categories != nil {
			usable = append(usable, r)
		}
	}
	sortByCreatedAt(usable)

	var keys []questionnaire.Category
	for _, r := range usable {
		if r.Results.HasCategories() {
			keys = OrderedCategories(r.Results.Categories)
			break
		}
	}

	trend := Trend{Labels: []string{}, Series: []Series{}}
	if len(keys) == 0 {
		return trend
	}

	for i, r := range usable {
		trend.Labels = append(trend.Labels, fmt.Sprintf("%s (%d)", r.CreatedAt.Format("02/01/2006"), i+1))
	}
	for _, cat := range keys {
		s := Series{Category: cat, Label: cat.Label(), Points: make([]Point, len(usable))}
		for i, r := range usable {
			s.Points[i] = Point{Label: trend.Labels[i], Score: r.Results.Categories[cat]}
		}
		trend.Series = append(trend.Series, s)
	}
	return trend
}

// OrderedCategories lists the keys of scores: known categories in priority
// order, then any others alphabetically.
func OrderedCategories(scores map[questionnaire.Category]float64) []questionnaire.Category {
	var out, extra []questionnaire.Category
	for _, cat := range questionnaire.Categories() {
		if _, ok := scores[cat]; ok {
			out = append(out, cat)
		}
	}
	for cat := range scores {
		if !cat.Valid() {
			extra = append(extra, cat)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func sortByCreatedAt(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
