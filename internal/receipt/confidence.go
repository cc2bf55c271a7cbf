package receipt

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// heuristicLabel is how a HeuristicGuess is written to JSON and CSV
const heuristicLabel = "heuristic"

// Confidence records where a value came from: a score measured by the backend, or a
// local guess made from the raw text.
type Confidence struct {
	heuristic bool
	score     float64
}

// Measured is a backend-reported confidence in [0,1]
func Measured(score float64) Confidence {
	return Confidence{score: score}
}

// HeuristicGuess marks a value derived locally when the backend returned nothing
func HeuristicGuess() Confidence {
	return Confidence{heuristic: true}
}

// IsHeuristic reports whether the value was guessed locally
func (c Confidence) IsHeuristic() bool {
	return c.heuristic
}

// Score returns the measured score; ok is false for heuristic guesses
func (c Confidence) Score() (score float64, ok bool) {
	if c.heuristic {
		return 0, false
	}
	return c.score, true
}

func (c Confidence) String() string {
	score, ok := c.Score()
	if !ok {
		return heuristicLabel
	}
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// ParseConfidence is the inverse of String
func ParseConfidence(s string) (Confidence, error) {
	if s == heuristicLabel {
		return HeuristicGuess(), nil
	}
	if s == "" {
		return Measured(0), nil
	}
	score, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Confidence{}, fmt.Errorf("parsing confidence %q: %w", s, err)
	}
	return Measured(score), nil
}

// MarshalJSON writes a number, or the string "heuristic"
func (c Confidence) MarshalJSON() ([]byte, error) {
	score, ok := c.Score()
	if !ok {
		return json.Marshal(heuristicLabel)
	}
	return json.Marshal(score)
}

// UnmarshalJSON accepts the forms written by MarshalJSON
func (c *Confidence) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		if label != heuristicLabel {
			return fmt.Errorf("unknown confidence label %q", label)
		}
		*c = HeuristicGuess()
		return nil
	}
	var score float64
	if err := json.Unmarshal(data, &score); err != nil {
		return fmt.Errorf("unmarshaling confidence: %w", err)
	}
	*c = Measured(score)
	return nil
}
