package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/localtts/tts"
)

var (
	voiceLanguage string
	voiceGender   string
	voiceQuality  string
	voiceSearch   string

	voicesCmd = &cobra.Command{
		Use:     "voices",
		Short:   "List installed voices",
		Long:    paragraph(fmt.Sprintf("\n%s the voices the selected engine can speak with.", keyword("List"))),
		Example: paragraph("localtts voices --language en\nlocaltts voices --engine espeak --gender female"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := voiceFilter(voiceLanguage, voiceGender, voiceQuality, voiceSearch)
			if err != nil {
				return err
			}
			synth, err := newSynthesizer(ttsConfig, false)
			if err != nil {
				return err
			}
			defer synth.Close() //nolint:errcheck

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			voices, err := synth.Voices(ctx)
			if err != nil {
				return fmt.Errorf("unable to list voices: %w", err)
			}
			printVoices(cmd.OutOrStdout(), synth.Name(), tts.FilterVoices(voices, filter), len(voices))
			return nil
		},
	}
)

func voiceFilter(lang, gender, quality, search string) (tts.VoiceFilter, error) {
	g, err := tts.ParseGender(gender)
	if err != nil {
		return tts.VoiceFilter{}, err
	}
	q, err := tts.ParseQuality(quality)
	if err != nil {
		return tts.VoiceFilter{}, err
	}
	return tts.VoiceFilter{Language: lang, Gender: g, Quality: q, Search: search}, nil
}

func printVoices(w io.Writer, engine string, voices []tts.Voice, total int) {
	id := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	for _, v := range voices {
		_, _ = id.Fprintf(w, "%-32s", v.ID)
		fmt.Fprintf(w, " %-28s", truncateName(v.Name, 28))
		_, _ = dim.Fprintf(w, " %s · %s · %s\n", tts.LanguageDisplayName(v.Language), v.Gender, v.Quality)
	}
	detail(w, "%d of %d voices (%s)", len(voices), total, engine)
}

func truncateName(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	f := voicesCmd.Flags()
	f.StringVarP(&voiceLanguage, "language", "l", "", "language tag, e.g. en or en-GB")
	f.StringVarP(&voiceGender, "gender", "g", "", "male, female or unspecified")
	f.StringVarP(&voiceQuality, "quality", "q", "", "default, enhanced or premium")
	f.StringVarP(&voiceSearch, "search", "s", "", "match names and languages")
}
