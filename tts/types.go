package tts

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Gender of a voice. The zero value means "any" in a filter.
type Gender int

const (
	GenderUnspecified Gender = iota + 1
	GenderMale
	GenderFemale
)

func (g Gender) String() string {
	switch g {
	case GenderUnspecified:
		return "unspecified"
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	default:
		return "any"
	}
}

// ParseGender parses a gender name. "" and "any" give the zero value.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return 0, nil
	case "unspecified", "neutral", "none":
		return GenderUnspecified, nil
	case "male", "m":
		return GenderMale, nil
	case "female", "f":
		return GenderFemale, nil
	}
	return 0, fmt.Errorf("unknown gender %q", s)
}

// Quality tier of a voice. The zero value means "any" in a filter.
type Quality int

const (
	QualityDefault Quality = iota + 1
	QualityEnhanced
	QualityPremium
)

func (q Quality) String() string {
	switch q {
	case QualityDefault:
		return "default"
	case QualityEnhanced:
		return "enhanced"
	case QualityPremium:
		return "premium"
	default:
		return "any"
	}
}

// ParseQuality parses a quality name. "" and "any" give the zero value.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return 0, nil
	case "default":
		return QualityDefault, nil
	case "enhanced":
		return QualityEnhanced, nil
	case "premium":
		return QualityPremium, nil
	}
	return 0, fmt.Errorf("unknown quality %q", s)
}

// Voice is an installed synthetic speaker.
type Voice struct {
	ID       string
	Name     string
	Language string // BCP 47 tag
	Gender   Gender
	Quality  Quality
}

func (v Voice) String() string {
	if v.Name == "" {
		return v.ID
	}
	return v.Name
}

// Utterance is one request to the synthesizer.
type Utterance struct {
	ID     uint64
	Text   string
	Voice  Voice
	Config UtteranceConfiguration
}

var utteranceSeq atomic.Uint64

// NewUtterance builds an utterance with a process-unique ID.
func NewUtterance(text string, voice Voice, config UtteranceConfiguration) Utterance {
	return Utterance{
		ID:     utteranceSeq.Add(1),
		Text:   text,
		Voice:  voice,
		Config: config.Clamp(),
	}
}

// EventKind is a lifecycle notification from a synthesizer.
type EventKind int

const (
	EventStarted EventKind = iota
	EventPaused
	EventContinued
	EventFinished
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventPaused:
		return "paused"
	case EventContinued:
		return "continued"
	case EventFinished:
		return "finished"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event reports a lifecycle change for one utterance.
type Event struct {
	Kind      EventKind
	Utterance uint64
}
