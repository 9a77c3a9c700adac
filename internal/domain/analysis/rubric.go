package analysis

import (
	"errors"
	"fmt"
)

// CategoryKey identifies one scoring category of the rubric.
type CategoryKey string

const (
	NeedsDiscovery       CategoryKey = "needs_discovery"
	PainPointExploration CategoryKey = "pain_point_exploration"
	ConsequenceUrgency   CategoryKey = "consequence_urgency"
	ObstacleHandling     CategoryKey = "obstacle_handling"
	ObjectionHandling    CategoryKey = "objection_handling"
	NextStepsClosing     CategoryKey = "next_steps_closing"
)

// TotalWeight is the sum every rubric must reach.
const TotalWeight = 100

// Category describes one rubric entry.
type Category struct {
	Key         CategoryKey
	Name        string
	Weight      int
	Description string
}

// DisplayName is the label used in reports, e.g. "Needs Discovery (25 pts)".
func (c Category) DisplayName() string {
	return fmt.Sprintf("%s (%d pts)", c.Name, c.Weight)
}

// Rubric is the immutable scoring configuration shared by the request
// builder and the scoring model. Categories are kept in display order.
type Rubric struct {
	version    string
	categories []Category
}

var (
	ErrRubricWeights   = errors.New("rubric weights must sum to 100")
	ErrRubricDuplicate = errors.New("rubric category keys must be unique")
	ErrRubricEmpty     = errors.New("rubric has no categories")
)

// NewRubric copies categories and validates them.
func NewRubric(version string, categories []Category) (Rubric, error) {
	r := Rubric{version: version, categories: append([]Category(nil), categories...)}
	if err := r.Validate(); err != nil {
		return Rubric{}, err
	}
	return r, nil
}

// DefaultRubric is the six-category sales rubric.
func DefaultRubric() Rubric {
	return Rubric{
		version: "2024-06-sales-v1",
		categories: []Category{
			{NeedsDiscovery, "Needs Discovery", 25, "Did the coach effectively uncover the client's goals, struggles, and current situation?"},
			{PainPointExploration, "Pain Point Exploration", 25, "How well did the coach dig into the client's pain points and their impact?"},
			{ConsequenceUrgency, "Consequence & Urgency", 15, "Did the coach effectively communicate consequences of inaction and create urgency?"},
			{ObstacleHandling, "Obstacle Handling", 15, "How well did the coach address potential obstacles and concerns before the pitch?"},
			{ObjectionHandling, "Objection Handling", 10, "How effectively did the coach handle objections after the pitch?"},
			{NextStepsClosing, "Next Steps & Closing", 10, "How clearly were next steps outlined and buying decision reinforced?"},
		},
	}
}

func (r Rubric) Version() string { return r.version }

// Categories returns a copy in display order.
func (r Rubric) Categories() []Category {
	return append([]Category(nil), r.categories...)
}

// Keys returns the category keys in display order.
func (r Rubric) Keys() []CategoryKey {
	keys := make([]CategoryKey, 0, len(r.categories))
	for _, c := range r.categories {
		keys = append(keys, c.Key)
	}
	return keys
}

// Category looks up one entry by key.
func (r Rubric) Category(key CategoryKey) (Category, bool) {
	for _, c := range r.categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

func (r Rubric) Validate() error {
	if len(r.categories) == 0 {
		return ErrRubricEmpty
	}
	seen := make(map[CategoryKey]bool, len(r.categories))
	sum := 0
	for _, c := range r.categories {
		if seen[c.Key] {
			return fmt.Errorf("%w: %s", ErrRubricDuplicate, c.Key)
		}
		seen[c.Key] = true
		sum += c.Weight
	}
	if sum != TotalWeight {
		return fmt.Errorf("%w: got %d", ErrRubricWeights, sum)
	}
	return nil
}
