package domain

// ReplySource says which branch produced a reply.
type ReplySource int

const (
	SourcePrimary ReplySource = iota
	SourceFallback
)

func (s ReplySource) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "primary"
}

// Reply is the outcome of a primary generation attempt: either Ok with
// the model's text, or Fallback with the reason the primary path failed.
// The caller switches on Source and resolves fallbacks itself.
type Reply struct {
	Source ReplySource
	Text   string
	Reason error
}

// Ok wraps text produced by the primary path.
func Ok(text string) Reply {
	return Reply{Source: SourcePrimary, Text: text}
}

// Fallback records why the primary path could not produce a reply.
func Fallback(reason error) Reply {
	return Reply{Source: SourceFallback, Reason: reason}
}

// IsFallback reports whether the reply must come from the canned table.
func (r Reply) IsFallback() bool { return r.Source == SourceFallback }
