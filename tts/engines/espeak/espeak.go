// Package espeak drives the eSpeak NG command line synthesizer.
package espeak

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
)

// Speaking rate in words per minute at the neutral utterance rate, and
// the limits espeak-ng accepts.
const (
	neutralWPM = 175
	minWPM     = 80
	maxWPM     = 450
)

// Engine is the eSpeak NG backend.
type Engine struct {
	config tts.EspeakConfig
	logger *log.Logger
}

// New creates an eSpeak NG backend.
func New(config tts.EspeakConfig, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{config: config, logger: logger.WithPrefix("espeak")}
}

// Name returns the backend name.
func (e *Engine) Name() string {
	return tts.EngineEspeak
}

// Available checks that the binary is on the path.
func (e *Engine) Available() error {
	if _, err := exec.LookPath(e.config.Binary); err != nil {
		return fmt.Errorf("%w: espeak binary %q: %w", tts.ErrEngineNotAvailable, e.config.Binary, err)
	}
	return nil
}

// Voices lists the installed espeak-ng voices.
func (e *Engine) Voices(ctx context.Context) ([]tts.Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, e.config.Binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("listing espeak voices: %w", err)
	}
	return ParseVoices(bytes.NewReader(out))
}

// ParseVoices reads the table printed by espeak-ng --voices:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 10)
func ParseVoices(r io.Reader) ([]tts.Voice, error) {
	var voices []tts.Voice
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 || fields[0] == "Pty" {
			continue
		}
		id := fields[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		voices = append(voices, tts.Voice{
			ID:       id,
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: canonical(id),
			Gender:   gender(fields[2]),
			Quality:  tts.QualityDefault,
		})
	}
	return voices, sc.Err()
}

func canonical(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return tag.String()
}

func gender(ageGender string) tts.Gender {
	_, g, _ := strings.Cut(ageGender, "/")
	switch g {
	case "M":
		return tts.GenderMale
	case "F":
		return tts.GenderFemale
	}
	return tts.GenderUnspecified
}

// Args returns the espeak-ng command line that writes u to wavPath.
// Volume is left at the engine default and applied as gain afterwards.
func Args(u tts.Utterance, wavPath string) []string {
	cfg := u.Config.Clamp()
	wpm := int(float64(neutralWPM) * cfg.SpeedFactor())
	wpm = min(max(wpm, minWPM), maxWPM)
	pitch := min(int(50*cfg.PitchMultiplier), 99)

	args := []string{"-s", strconv.Itoa(wpm), "-p", strconv.Itoa(pitch), "-w", wavPath}
	if u.Voice.ID != "" {
		args = append(args, "-v", u.Voice.ID)
	}
	return append(args, "--stdin")
}

// Render runs espeak-ng into a temporary WAV file and decodes it.
func (e *Engine) Render(ctx context.Context, u tts.Utterance) (audio.PCM, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	tmp, err := os.CreateTemp("", "localtts-espeak-*.wav")
	if err != nil {
		return audio.PCM{}, err
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	args := Args(u, tmp.Name())
	e.logger.Debug("running espeak", "binary", e.config.Binary, "args", args)
	cmd := exec.CommandContext(ctx, e.config.Binary, args...)
	cmd.Stdin = strings.NewReader(u.Text)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return audio.PCM{}, ctx.Err()
		}
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return audio.PCM{}, fmt.Errorf("espeak-ng failed: %w: %s", err, msg)
		}
		return audio.PCM{}, fmt.Errorf("espeak-ng failed: %w", err)
	}

	f, err := os.Open(tmp.Name())
	if err != nil {
		return audio.PCM{}, err
	}
	defer f.Close()
	return audio.DecodeWAV(f)
}
