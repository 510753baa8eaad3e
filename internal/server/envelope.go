package server

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/qtype/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope message types exchanged with control clients.
const (
	TypeWelcome     = "welcome"
	TypeReady       = "ready"
	TypeStartTyping = "start_typing"
	TypeStopTyping  = "stop_typing"
	TypeStatus      = "status"
	TypeCompleted   = "completed"
	TypeMouseMove   = "mouse_move"
	TypeError       = "error"
)

// Envelope is the wire format for control messages. Type discriminates which
// of the optional fields are meaningful.
type Envelope struct {
	Type     string    `json:"type"`
	Message  string    `json:"message,omitempty"`
	Text     string    `json:"text,omitempty"`
	Settings *Settings `json:"settings,omitempty"`
	Status   string    `json:"status,omitempty"`
	Progress *int      `json:"progress,omitempty"`
	DX       float64   `json:"dx,omitempty"`
	DY       float64   `json:"dy,omitempty"`
}

// Settings carries per-session typing tunables from the client. Any omitted
// field keeps the server's configured default: the feature flags are pointers
// so an absent flag is distinguishable from an explicit false. The two
// trailing flags are transport-side only.
type Settings struct {
	Profile string `json:"profile,omitempty"`
	Layout  string `json:"layout,omitempty"`

	MinDelay int `json:"minDelay,omitempty"`
	MaxDelay int `json:"maxDelay,omitempty"`

	EnableTypos           *bool `json:"enableTypos,omitempty"`
	TypoMin               int   `json:"typoMin,omitempty"`
	TypoMax               int   `json:"typoMax,omitempty"`
	EnableDoubleKeys      *bool `json:"enableDoubleKeys,omitempty"`
	DoubleMin             int   `json:"doubleMin,omitempty"`
	DoubleMax             int   `json:"doubleMax,omitempty"`
	EnableAutoCorrection  *bool `json:"enableAutoCorrection,omitempty"`
	CorrectionProbability int   `json:"correctionProbability,omitempty"`

	MouseMovement bool `json:"mouseMovement,omitempty"`
	IdleScroll    bool `json:"idleScroll,omitempty"`
}

// typingConfig merges the client's settings over the server's configured
// defaults. A nil receiver returns the base untouched.
func (s *Settings) typingConfig(base config.TypingConfig) config.TypingConfig {
	if s == nil {
		return base
	}
	out := base
	if s.Profile != "" {
		out.Profile = s.Profile
	}
	if s.Layout != "" {
		out.Layout = s.Layout
	}
	if s.MinDelay > 0 {
		out.MinDelayMs = s.MinDelay
	}
	if s.MaxDelay > 0 {
		out.MaxDelayMs = s.MaxDelay
	}
	if s.EnableTypos != nil {
		out.Typos = *s.EnableTypos
	}
	if s.TypoMin > 0 {
		out.TypoMin = s.TypoMin
	}
	if s.TypoMax > 0 {
		out.TypoMax = s.TypoMax
	}
	if s.EnableDoubleKeys != nil {
		out.DoubleKeys = *s.EnableDoubleKeys
	}
	if s.DoubleMin > 0 {
		out.DoubleMin = s.DoubleMin
	}
	if s.DoubleMax > 0 {
		out.DoubleMax = s.DoubleMax
	}
	if s.EnableAutoCorrection != nil {
		out.AutoCorrection = *s.EnableAutoCorrection
	}
	if s.CorrectionProbability > 0 {
		out.CorrectionProbability = s.CorrectionProbability
	}
	return out
}

func welcomeEnvelope() Envelope {
	return Envelope{Type: TypeWelcome, Message: "qtype control server"}
}

func readyEnvelope() Envelope {
	return Envelope{Type: TypeReady}
}

func statusEnvelope(status string, progress int) Envelope {
	return Envelope{Type: TypeStatus, Status: status, Progress: &progress}
}

func completedEnvelope() Envelope {
	return Envelope{Type: TypeCompleted}
}

func errorEnvelope(msg string) Envelope {
	return Envelope{Type: TypeError, Message: msg}
}

func mouseMoveEnvelope(dx, dy float64) Envelope {
	return Envelope{Type: TypeMouseMove, DX: dx, DY: dy}
}
