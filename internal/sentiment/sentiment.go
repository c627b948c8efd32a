// Package sentiment scores chat text on a single compound polarity axis.
package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
)

// Scorer maps text to a compound sentiment score in [-1, 1].
type Scorer interface {
	Score(text string) float64
}

// Vader scores text with the VADER lexicon. A single analyzer is built once
// and reused; PolarityScores does not mutate it.
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader creates a VADER-backed Scorer.
func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound polarity of text. Blank text scores 0.
func (v *Vader) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return clamp(v.analyzer.PolarityScores(text).Compound)
}

// Func adapts a plain function to the Scorer interface.
type Func func(text string) float64

// Score calls f.
func (f Func) Score(text string) float64 { return clamp(f(text)) }

func clamp(s float64) float64 {
	switch {
	case s != s: // NaN
		return 0
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}
