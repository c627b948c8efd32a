// Package persona picks the directive a new conversation starts from. A
// directive combines a keyword-ranked preset template with a tone chosen from
// the message's sentiment score.
package persona

import (
	"fmt"
	"math"
	"strings"
)

// DefaultThreshold is the minimum match ratio a preset needs to be selected.
const DefaultThreshold = 0.1

// slot is the placeholder replaced by the triggering message.
const slot = "{}"

// preamble tells the model how inbound lines are shaped and that it should
// answer with a single message body.
const preamble = "The expected format is as follows:\n" +
	"\"<name>: <message>\"\n\n" +
	"you should only ever respond with <message>\n\n"

// Selection describes how a directive was built.
type Selection struct {
	Rule      string  // preset name, or DefaultRuleName
	Ratio     float64 // best keyword match ratio
	Tone      string
	Directive string
}

// Classifier ranks preset rules against a message and composes directives.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules     []PresetRule
	anchors   []Anchor
	threshold float64
	fallback  string
}

// ClassifierOpts holds parameters for creating a Classifier.
type ClassifierOpts struct {
	Rules           []PresetRule // defaults to Presets
	Anchors         []Anchor     // defaults to Anchors
	Threshold       *float64     // nil uses DefaultThreshold; 0 accepts any rule
	DefaultTemplate string       // defaults to DefaultTemplate
}

// NewClassifier creates a Classifier.
func NewClassifier(opts ClassifierOpts) (*Classifier, error) {
	rules := opts.Rules
	if rules == nil {
		rules = Presets
	}
	anchors := opts.Anchors
	if anchors == nil {
		anchors = Anchors
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("persona: at least one sentiment anchor is required")
	}
	for i, r := range rules {
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("persona: rule %d (%s) has no keywords", i, r.Name)
		}
	}
	threshold := DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("persona: threshold %v must be between 0 and 1", threshold)
	}
	fallback := opts.DefaultTemplate
	if fallback == "" {
		fallback = DefaultTemplate
	}
	return &Classifier{
		rules:     rules,
		anchors:   anchors,
		threshold: threshold,
		fallback:  fallback,
	}, nil
}

// Rules returns the classifier's rule table in selection order.
func (c *Classifier) Rules() []PresetRule {
	out := make([]PresetRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// SelectDirective returns the persona directive for text with the given
// sentiment score.
func (c *Classifier) SelectDirective(text string, score float64) string {
	return c.Classify(text, score).Directive
}

// Classify ranks the preset rules against text, picks a tone for score and
// composes the directive.
func (c *Classifier) Classify(text string, score float64) Selection {
	name, template, ratio := c.bestRule(text)
	tone := c.Tone(score)

	formatted := strings.ReplaceAll(template, slot, text)
	directive := preamble + tone + "\n\nthe first message is: " + formatted

	return Selection{
		Rule:      name,
		Ratio:     ratio,
		Tone:      tone,
		Directive: directive,
	}
}

// bestRule returns the highest-ranked rule, falling back to the default
// template when the best ratio is under the threshold. Ties keep the first
// rule in table order.
func (c *Classifier) bestRule(text string) (name, template string, ratio float64) {
	lower := strings.ToLower(text)

	best := -1
	bestRatio := 0.0
	for i, r := range c.rules {
		ratio := MatchRatio(lower, r.Keywords)
		if best < 0 || ratio > bestRatio {
			best, bestRatio = i, ratio
		}
	}

	if best < 0 || bestRatio < c.threshold {
		return DefaultRuleName, c.fallback, bestRatio
	}
	r := c.rules[best]
	return r.Name, r.Template, bestRatio
}

// MatchRatio returns the fraction of keywords that occur in text. Matching is
// case-insensitive substring containment.
func MatchRatio(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	found := 0
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

// Tone returns the tone of the anchor nearest to score. On equal distance the
// earlier anchor wins.
func (c *Classifier) Tone(score float64) string {
	return c.anchors[nearestAnchor(c.anchors, score)].Tone
}

func nearestAnchor(anchors []Anchor, score float64) int {
	closest := 0
	for i, a := range anchors {
		if math.Abs(score-a.Score) < math.Abs(score-anchors[closest].Score) {
			closest = i
		}
	}
	return closest
}
