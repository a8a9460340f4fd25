package conversation

import "github.com/hammamikhairi/polyglot/internal/domain"

// DefaultFallbackReply is used when the table has no entry for an
// intent/language pair.
const DefaultFallbackReply = "I understand you, but I'm not sure how to respond."

// FallbackTable maps intent → language → canned reply.
type FallbackTable map[domain.IntentType]map[string]string

// DefaultFallbacks covers greeting, farewell, question and help in
// English and Hindi. Weather and general have no entry.
var DefaultFallbacks = FallbackTable{
	domain.IntentGreeting: {
		domain.LangEnglish: "Hello! How can I help you today?",
		domain.LangHindi:   "नमस्ते! मैं आपकी कैसे सहायता कर सकता हूं?",
	},
	domain.IntentFarewell: {
		domain.LangEnglish: "Goodbye! Have a great day!",
		domain.LangHindi:   "अलविदा! आपका दिन शुभ हो!",
	},
	domain.IntentQuestion: {
		domain.LangEnglish: "That's an interesting question. Let me think about it.",
		domain.LangHindi:   "यह एक दिलचस्प सवाल है। मुझे इसके बारे में सोचने दें।",
	},
	domain.IntentHelp: {
		domain.LangEnglish: "I'm here to help! What do you need assistance with?",
		domain.LangHindi:   "मैं मदद के लिए यहाँ हूँ! आपको किस चीज़ में सहायता चाहिए?",
	},
}

// Lookup returns the canned reply for intent and language, or
// DefaultFallbackReply.
func (t FallbackTable) Lookup(intent domain.IntentType, language string) string {
	if byLang, ok := t[intent]; ok {
		if reply, ok := byLang[language]; ok {
			return reply
		}
	}
	return DefaultFallbackReply
}
