package domain

import (
	"time"

	"github.com/google/uuid"
)

// Modality is the input channel of a turn.
type Modality int

const (
	ModalityText Modality = iota
	ModalityAudio
)

func (m Modality) String() string {
	if m == ModalityAudio {
		return "audio"
	}
	return "text"
}

// Outcome is how a turn ended.
type Outcome int

const (
	OutcomePending   Outcome = iota
	OutcomeCompleted         // reply generated (audio may still have failed)
	OutcomeAborted           // nothing was heard; no downstream stage ran
	OutcomeFailed            // a user-visible error ended the turn
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Clip is a mono recording with float samples in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Artifact is a temporary audio file owned by the stage that created it.
type Artifact struct {
	Path        string
	ContentType string // "audio/wav", "audio/mpeg"
}

// Turn is one user interaction, populated stage by stage. It is
// discarded when the turn ends.
type Turn struct {
	ID            string
	Modality      Modality
	InputText     string
	Language      string // as detected or given
	ReplyLanguage string // normalized, "en" or "hi"
	Class         Classification
	ReplyText     string
	ReplySource   ReplySource
	Artifact      *Artifact
	Outcome       Outcome
	Err           error
	StartedAt     time.Time
}

// NewTurn starts a turn with a fresh ID.
func NewTurn(m Modality) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Modality:  m,
		Language:  LangUnknown,
		StartedAt: time.Now(),
	}
}

// ShortID returns the first eight characters of the turn ID for logs.
func (t *Turn) ShortID() string {
	if len(t.ID) < 8 {
		return t.ID
	}
	return t.ID[:8]
}
