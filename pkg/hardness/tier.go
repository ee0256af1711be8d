// Package hardness classifies SQL queries into difficulty tiers.
//
// Three classifiers share the Tier scale. Classify scores a parsed query by
// its structural, nesting and other components. ClassifyLite scores raw text
// with patterns and never fails. ExecClassifier runs candidate queries
// against a live database and grades by how many reproduce the gold result.
package hardness

import "fmt"

// Tier is a difficulty label.
type Tier string

// Difficulty tiers, easiest first. GoldError is produced only by the
// execution-based classifier.
const (
	Easy      Tier = "easy"
	Medium    Tier = "medium"
	Hard      Tier = "hard"
	Extra     Tier = "extra"
	GoldError Tier = "gold_error"
)

// Tiers lists the four structural tiers in order.
var Tiers = []Tier{Easy, Medium, Hard, Extra}

func (t Tier) String() string { return string(t) }

// ParseTier converts a tier name back into a Tier.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case Easy, Medium, Hard, Extra, GoldError:
		return t, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Components are the three counters the decision table reads.
type Components struct {
	Structural int `json:"structural" yaml:"structural"`
	Nesting    int `json:"nesting" yaml:"nesting"`
	Other      int `json:"other" yaml:"other"`
}

// TierFor applies the decision table; the first matching row wins.
func TierFor(c Components) Tier {
	s, n, o := c.Structural, c.Nesting, c.Other
	switch {
	case s <= 1 && o == 0 && n == 0:
		return Easy
	case (o <= 2 && s <= 1 && n == 0) || (s <= 2 && o < 2 && n == 0):
		return Medium
	case (o > 2 && s <= 2 && n == 0) ||
		(2 < s && s <= 3 && o <= 2 && n == 0) ||
		(s <= 1 && o == 0 && n <= 1):
		return Hard
	default:
		return Extra
	}
}
