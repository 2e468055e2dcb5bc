package emailgen

import (
	"fmt"
	"strings"
	"time"
)

// Tone selects the voice of a generated email.
type Tone string

const (
	ToneConfident    Tone = "confident"
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
)

// Length selects how much a generated email says.
type Length string

const (
	LengthConcise  Length = "concise"
	LengthDetailed Length = "detailed"
	LengthBrief    Length = "brief"
)

const (
	DefaultCallToAction     = "Exploring a collaboration"
	DefaultTimeout          = 30 * time.Second
	DefaultAutoSendMinScore = 0.8
)

// ParseTone accepts a tone name case-insensitively. Empty input yields the default.
func ParseTone(raw string) (Tone, error) {
	switch tone := Tone(strings.ToLower(strings.TrimSpace(raw))); tone {
	case "":
		return ToneConfident, nil
	case ToneConfident, ToneProfessional, ToneCasual:
		return tone, nil
	default:
		return "", fmt.Errorf("unknown tone %q (want confident, professional or casual)", raw)
	}
}

// ParseLength accepts a length name case-insensitively. Empty input yields the default.
func ParseLength(raw string) (Length, error) {
	switch length := Length(strings.ToLower(strings.TrimSpace(raw))); length {
	case "":
		return LengthConcise, nil
	case LengthConcise, LengthDetailed, LengthBrief:
		return length, nil
	default:
		return "", fmt.Errorf("unknown length %q (want concise, detailed or brief)", raw)
	}
}

// Config controls email generation.
type Config struct {
	Tone         Tone
	Length       Length
	CallToAction string
	// Timeout bounds a single text generation call.
	Timeout time.Duration
	// AutoSend marks generated emails for sending without confirmation when
	// the match score reaches AutoSendMinScore.
	AutoSend         bool
	AutoSendMinScore float64
	MaxLogLength     int
}

func (c Config) withDefaults() Config {
	if c.Tone == "" {
		c.Tone = ToneConfident
	}
	if c.Length == "" {
		c.Length = LengthConcise
	}
	if strings.TrimSpace(c.CallToAction) == "" {
		c.CallToAction = DefaultCallToAction
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.AutoSendMinScore <= 0 {
		c.AutoSendMinScore = DefaultAutoSendMinScore
	}
	if c.MaxLogLength <= 0 {
		c.MaxLogLength = 200
	}
	return c
}

func toneGuide(t Tone) string {
	switch t {
	case ToneProfessional:
		return "Polite and formal, no slang, no exclamation marks."
	case ToneCasual:
		return "Friendly and relaxed, like a note to a peer."
	default:
		return "Direct and self-assured, lead with the value the sender brings."
	}
}

func lengthGuide(l Length) string {
	switch l {
	case LengthBrief:
		return "At most 80 words."
	case LengthDetailed:
		return "Between 180 and 250 words, with a short paragraph on the sender's background."
	default:
		return "Between 100 and 150 words."
	}
}
