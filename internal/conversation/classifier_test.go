package conversation

import (
	"testing"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

func TestClassify(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	c := NewKeywordClassifier(log)

	tests := []struct {
		input    string
		wantType domain.IntentType
		wantConf float64
	}{
		// One intent's keyword.
		{"hello there", domain.IntentGreeting, 0.9},
		{"NAMASTE", domain.IntentGreeting, 0.9},
		{"goodbye friend", domain.IntentFarewell, 0.9},
		{"alvida", domain.IntentFarewell, 0.9},
		{"kaise ho", domain.IntentQuestion, 0.9},
		{"I need madad", domain.IntentHelp, 0.9},
		{"mausam batao", domain.IntentWeather, 0.9},

		// Several intents: earliest declared wins.
		{"hello, what is the weather", domain.IntentGreeting, 0.9},
		{"bye, and thanks for the help", domain.IntentFarewell, 0.9},
		{"how is the weather", domain.IntentQuestion, 0.9},
		{"help me with the temperature", domain.IntentHelp, 0.9},

		// Substring matches are kept as-is.
		{"this is it", domain.IntentGreeting, 0.9},  // "hi" in "this"
		{"somewhat", domain.IntentQuestion, 0.9},    // "what"
		{"chipmunk", domain.IntentGreeting, 0.9},    // "hi"
		{"showhow", domain.IntentQuestion, 0.9},     // "how"

		// Nothing matches.
		{"xyzzy nonsense", domain.IntentGeneral, 0.5},
		{"", domain.IntentGeneral, 0.5},
		{"ok", domain.IntentGeneral, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := c.Classify(tt.input)
			if got.Intent != tt.wantType {
				t.Errorf("intent = %s, want %s", got.Intent, tt.wantType)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

// No keyword in the default table contains an earlier intent's keyword,
// so each one classifies as its own intent.
func TestClassifyEveryKeyword(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	c := NewKeywordClassifier(log)

	for _, e := range DefaultIntents {
		for _, kw := range e.Keywords {
			if got := c.Classify(kw); got.Intent != e.Intent || got.Confidence != 0.9 {
				t.Errorf("Classify(%q) = %s/%v, want %s/0.9", kw, got.Intent, got.Confidence, e.Intent)
			}
		}
	}
}

func TestClassifyCustomTable(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	c := NewKeywordClassifierWith(log, []IntentEntry{
		{domain.IntentWeather, []string{"RAIN"}},
		{domain.IntentGreeting, []string{"rain"}},
	})

	got := c.Classify("Is it Raining?")
	if got.Intent != domain.IntentWeather {
		t.Fatalf("intent = %s, want weather", got.Intent)
	}
}
