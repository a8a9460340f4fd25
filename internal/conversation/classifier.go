// Package conversation provides intent classification, canned fallback
// replies, and a plain-terminal presenter.
package conversation

import (
	"strings"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentClassifier = (*KeywordClassifier)(nil)

// IntentEntry is one row of the classification table.
type IntentEntry struct {
	Intent   domain.IntentType
	Keywords []string
}

// DefaultIntents is the classification table in match order. The first
// entry with any keyword occurring in the input wins, so overlaps such
// as "hi" inside "this" resolve by position in this list.
var DefaultIntents = []IntentEntry{
	{domain.IntentGreeting, []string{"hello", "hi", "namaste", "namaskar"}},
	{domain.IntentFarewell, []string{"bye", "goodbye", "alvida", "alavida"}},
	{domain.IntentQuestion, []string{"what", "how", "when", "where", "kya", "kaise"}},
	{domain.IntentHelp, []string{"help", "madad", "sahayata"}},
	{domain.IntentWeather, []string{"weather", "mausam", "temperature"}},
}

// KeywordClassifier matches lowercased input against keyword substrings.
type KeywordClassifier struct {
	log     *logger.Logger
	entries []IntentEntry
}

// NewKeywordClassifier creates a classifier over DefaultIntents.
func NewKeywordClassifier(log *logger.Logger) *KeywordClassifier {
	return NewKeywordClassifierWith(log, DefaultIntents)
}

// NewKeywordClassifierWith creates a classifier over a custom table.
// Keywords are lowercased; the table is copied.
func NewKeywordClassifierWith(log *logger.Logger, entries []IntentEntry) *KeywordClassifier {
	c := &KeywordClassifier{log: log, entries: make([]IntentEntry, len(entries))}
	for i, e := range entries {
		kws := make([]string, len(e.Keywords))
		for j, k := range e.Keywords {
			kws[j] = strings.ToLower(k)
		}
		c.entries[i] = IntentEntry{Intent: e.Intent, Keywords: kws}
	}
	return c
}

// Classify returns the first matching intent with confidence 0.9, or
// general with 0.5.
func (c *KeywordClassifier) Classify(text string) domain.Classification {
	lower := strings.ToLower(text)
	for _, e := range c.entries {
		for _, kw := range e.Keywords {
			if strings.Contains(lower, kw) {
				c.log.Debug("classify: %q matched %q -> %s", text, kw, e.Intent)
				return domain.Classification{Intent: e.Intent, Confidence: domain.ConfidenceMatched}
			}
		}
	}
	c.log.Debug("classify: %q matched nothing", text)
	return domain.Classification{Intent: domain.IntentGeneral, Confidence: domain.ConfidenceDefault}
}
