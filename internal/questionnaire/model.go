package questionnaire

import "fmt"

// Category is one of the fixed wellness dimensions.
type Category string

const (
	Physical  Category = "physical"
	Emotional Category = "emotional"
	Mental    Category = "mental"
	Spiritual Category = "spiritual"
	Energetic Category = "energetic"
)

// Likert bounds shared by every question. Scoring divides by MaxValue, so
// changing the scale means changing the option values too.
const (
	MinValue = 1
	MaxValue = 5
)

var categories = []Category{Physical, Emotional, Mental, Spiritual, Energetic}

var categoryLabels = map[Category]string{
	Physical:  "Físico",
	Emotional: "Emocional",
	Mental:    "Mental",
	Spiritual: "Espiritual",
	Energetic: "Energético",
}

// Categories returns the closed category set in priority order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label is the display name used in reports and charts.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

type AnswerOption struct {
	Value int    `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

type Question struct {
	ID       string         `json:"id" yaml:"id"`
	Prompt   string         `json:"question" yaml:"question"`
	Category Category       `json:"category" yaml:"-"`
	Options  []AnswerOption `json:"answer_options" yaml:"answer_options"`
}

// Accepts reports whether value is one of the question's option values.
func (q Question) Accepts(value int) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Section groups the questions of a single category.
type Section struct {
	Category  Category   `json:"category" yaml:"category"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Catalog is the read-only questionnaire definition. Build it with New or
// Load; it is safe for concurrent readers.
type Catalog struct {
	sections []Section
	byID     map[string]Question
}

// New validates sections and builds a catalog from them.
func New(sections []Section) (*Catalog, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("catalog has no categories")
	}
	c := &Catalog{byID: make(map[string]Question)}
	seen := make(map[Category]bool)
	for _, s := range sections {
		if !s.Category.Valid() {
			return nil, fmt.Errorf("unknown category %q", s.Category)
		}
		if seen[s.Category] {
			return nil, fmt.Errorf("category %q declared twice", s.Category)
		}
		seen[s.Category] = true

		sec := Section{Category: s.Category, Questions: make([]Question, 0, len(s.Questions))}
		for _, q := range s.Questions {
			if q.ID == "" {
				return nil, fmt.Errorf("category %q: question without id", s.Category)
			}
			if _, dup := c.byID[q.ID]; dup {
				return nil, fmt.Errorf("duplicate question id %q", q.ID)
			}
			if len(q.Options) == 0 {
				return nil, fmt.Errorf("question %q has no answer options", q.ID)
			}
			for _, o := range q.Options {
				if o.Value < MinValue || o.Value > MaxValue {
					return nil, fmt.Errorf("question %q: option value %d outside %d..%d", q.ID, o.Value, MinValue, MaxValue)
				}
			}
			q.Category = s.Category
			q.Options = append([]AnswerOption(nil), q.Options...)
			sec.Questions = append(sec.Questions, q)
			c.byID[q.ID] = q
		}
		c.sections = append(c.sections, sec)
	}
	return c, nil
}

// Categories returns the catalog's categories in catalog order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, 0, len(c.sections))
	for _, s := range c.sections {
		out = append(out, s.Category)
	}
	return out
}

// Questions returns the ordered questions of category, or nil.
func (c *Catalog) Questions(category Category) []Question {
	for _, s := range c.sections {
		if s.Category == category {
			return append([]Question(nil), s.Questions...)
		}
	}
	return nil
}

// Sections returns a copy of every section in catalog order.
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	for i, s := range c.sections {
		out[i] = Section{Category: s.Category, Questions: append([]Question(nil), s.Questions...)}
	}
	return out
}

func (c *Catalog) Question(id string) (Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Len is the total number of questions.
func (c *Catalog) Len() int {
	return len(c.byID)
}
