package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/localtts/tts"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

type notice struct {
	text string
	err  bool
}

// speechState is shared between the model and the callbacks the
// controller and exporter dispatch into the update loop.
type speechState struct {
	controller *tts.Controller
	exporter   *tts.Exporter
	copyPath   bool

	state        tts.StateType
	exporting    bool
	exportFrames int
	lastExport   *tts.ExportResult

	notices []notice
}

func (s *speechState) notify(format string, args ...any) {
	s.notices = append(s.notices, notice{text: fmt.Sprintf(format, args...)})
}

func (s *speechState) notifyErr(format string, args ...any) {
	s.notices = append(s.notices, notice{text: fmt.Sprintf(format, args...), err: true})
}

func (s *speechState) drainNotices() []notice {
	n := s.notices
	s.notices = nil
	return n
}

// export starts writing text to a new WAV file. It returns false when
// there was nothing to export.
func (s *speechState) export(text string, voice tts.Voice, cfg tts.UtteranceConfiguration) bool {
	if s.exporting {
		s.notify("Export already running")
		return false
	}
	started := s.exporter.ExportToFile(text, voice, cfg, "", tts.ExportHandler{
		OnFinished: s.exportFinished,
		OnFailed: func(err error) {
			s.exporting = false
			s.notifyErr("Export failed: %v", err)
		},
		OnProgress: func(frames int) {
			s.exportFrames = frames
		},
	})
	if started {
		s.exporting = true
		s.exportFrames = 0
	}
	return started
}

func (s *speechState) exportFinished(res tts.ExportResult) {
	s.exporting = false
	s.lastExport = &res
	size := humanize.IBytes(uint64(max(res.Bytes, 0)))
	if !s.copyPath {
		s.notify("Exported %s (%s)", res.Path, size)
		return
	}
	if err := writeClipboard(res.Path); err != nil {
		log.Debug("clipboard unavailable", "err", err)
		s.notify("Exported %s (%s)", res.Path, size)
		return
	}
	s.notify("Exported %s (%s), path copied", res.Path, size)
}

// copyLastExport puts the last export's path on the clipboard.
func (s *speechState) copyLastExport() {
	if s.lastExport == nil {
		s.notify("Nothing exported yet")
		return
	}
	if err := writeClipboard(s.lastExport.Path); err != nil {
		s.notifyErr("Could not copy: %v", err)
		return
	}
	s.notify("Copied %s", s.lastExport.Path)
}

func (s *speechState) badge() string {
	switch s.state {
	case tts.StateSpeaking:
		return speakingStyle("SPEAKING")
	case tts.StatePaused:
		return pausedStyle("PAUSED")
	}
	return idleStyle("IDLE")
}

// slider is one adjustable prosody value.
type slider struct {
	label    string
	min, max float32
	step     float32
	get      func(*tts.UtteranceConfiguration) *float32
}

var sliders = []slider{
	{label: "Rate", min: tts.MinRate, max: tts.MaxRate, step: 0.05, get: func(c *tts.UtteranceConfiguration) *float32 { return &c.Rate }},
	{label: "Volume", min: tts.MinVolume, max: tts.MaxVolume, step: 0.05, get: func(c *tts.UtteranceConfiguration) *float32 { return &c.Volume }},
	{label: "Pitch", min: tts.MinPitch, max: tts.MaxPitch, step: 0.1, get: func(c *tts.UtteranceConfiguration) *float32 { return &c.PitchMultiplier }},
}

// adjust moves slider i by steps, staying in range.
func adjust(cfg tts.UtteranceConfiguration, i, steps int) tts.UtteranceConfiguration {
	s := sliders[i]
	v := s.get(&cfg)
	*v = min(max(*v+float32(steps)*s.step, s.min), s.max)
	return cfg
}

func prosodyView(bar progress.Model, cfg tts.UtteranceConfiguration, selected int, focused bool) string {
	var b strings.Builder
	for i, s := range sliders {
		v := *s.get(&cfg)
		label := fmt.Sprintf("%-7s", s.label)
		if focused && i == selected {
			label = selectedStyle("› " + label)
		} else {
			label = dimStyle("  " + label)
		}
		pct := float64((v - s.min) / (s.max - s.min))
		fmt.Fprintf(&b, "%s %s %4.2f", label, bar.ViewAs(pct), v)
		if i < len(sliders)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
