package domain

// IntentType is a coarse category assigned to user input.
type IntentType int

const (
	IntentGeneral IntentType = iota // nothing matched
	IntentGreeting
	IntentFarewell
	IntentQuestion
	IntentHelp
	IntentWeather
)

// Confidence values reported by the keyword classifier. They are shown
// to the user and exported as metrics; nothing branches on them.
const (
	ConfidenceMatched = 0.9
	ConfidenceDefault = 0.5
)

// String returns the intent label.
func (i IntentType) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentFarewell:
		return "farewell"
	case IntentQuestion:
		return "question"
	case IntentHelp:
		return "help"
	case IntentWeather:
		return "weather"
	default:
		return "general"
	}
}

// Classification is the result of intent detection.
type Classification struct {
	Intent     IntentType
	Confidence float64
}

// intentNames maps labels to IntentType values.
var intentNames = map[string]IntentType{
	"greeting": IntentGreeting,
	"farewell": IntentFarewell,
	"question": IntentQuestion,
	"help":     IntentHelp,
	"weather":  IntentWeather,
	"general":  IntentGeneral,
}

// IntentFromString converts a label to an IntentType.
// Returns IntentGeneral for unrecognized labels.
func IntentFromString(name string) IntentType {
	if t, ok := intentNames[name]; ok {
		return t
	}
	return IntentGeneral
}
