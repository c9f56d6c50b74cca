package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/dgnsrekt/localtts/tts"
)

const maxVoiceNameWidth = 40

type voicesLoadedMsg struct {
	voices []tts.Voice
	err    error
}

func loadVoices(catalog tts.VoiceCatalog) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		voices, err := catalog.Voices(ctx)
		return voicesLoadedMsg{voices: voices, err: err}
	}
}

type voiceItem struct {
	voice tts.Voice
}

func (i voiceItem) Title() string {
	return runewidth.Truncate(i.voice.String(), maxVoiceNameWidth, ellipsis)
}

func (i voiceItem) Description() string {
	return fmt.Sprintf("%s · %s · %s", tts.LanguageDisplayName(i.voice.Language), i.voice.Gender, i.voice.Quality)
}

func (i voiceItem) FilterValue() string {
	return i.voice.Name + " " + tts.LanguageDisplayName(i.voice.Language)
}

type voiceKeyMap struct {
	Choose   key.Binding
	Try      key.Binding
	Language key.Binding
	Gender   key.Binding
	Quality  key.Binding
	Clear    key.Binding
	Back     key.Binding
}

func newVoiceKeyMap() voiceKeyMap {
	return voiceKeyMap{
		Choose:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose")),
		Try:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "try")),
		Language: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "language")),
		Gender:   key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "gender")),
		Quality:  key.NewBinding(key.WithKeys("Q"), key.WithHelp("Q", "quality")),
		Clear:    key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear filters")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// voicePicker is the voice catalog browser. The list's own fuzzy filter
// handles free-text search; language, gender and quality narrow the
// catalog first.
type voicePicker struct {
	list      list.Model
	keys      voiceKeyMap
	all       []tts.Voice
	filter    tts.VoiceFilter
	languages []string
	langIdx   int
	loading   bool
	err       error
}

func newVoicePicker() voicePicker {
	keys := newVoiceKeyMap()
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Voices"
	l.Styles.Title = l.Styles.Title.Background(fuchsia).Foreground(cream)
	l.SetStatusBarItemName("voice", "voices")
	l.SetShowHelp(true)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.GoToEnd = key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "go to end"))
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Choose, keys.Try, keys.Back}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Choose, keys.Try, keys.Language, keys.Gender, keys.Quality, keys.Clear, keys.Back}
	}
	return voicePicker{list: l, keys: keys, languages: []string{tts.LanguageAll}, loading: true}
}

func (p *voicePicker) setSize(w, h int) {
	p.list.SetSize(w, h)
}

// setVoices replaces the catalog and reapplies the current filter.
func (p *voicePicker) setVoices(voices []tts.Voice) tea.Cmd {
	p.loading = false
	p.all = voices
	p.languages = append([]string{tts.LanguageAll}, tts.Languages(voices)...)
	if p.langIdx >= len(p.languages) {
		p.langIdx = 0
	}
	return p.apply()
}

func (p *voicePicker) apply() tea.Cmd {
	p.filter.Language = p.languages[p.langIdx]
	voices := tts.FilterVoices(p.all, p.filter)
	items := make([]list.Item, len(voices))
	for i, v := range voices {
		items[i] = voiceItem{voice: v}
	}
	p.list.Title = "Voices" + p.filterSummary()
	return p.list.SetItems(items)
}

func (p voicePicker) filterSummary() string {
	if p.filter.IsZero() {
		return ""
	}
	s := ""
	if p.langIdx > 0 {
		s += " · " + tts.LanguageDisplayName(p.languages[p.langIdx])
	}
	if p.filter.Gender != 0 {
		s += " · " + p.filter.Gender.String()
	}
	if p.filter.Quality != 0 {
		s += " · " + p.filter.Quality.String()
	}
	return s
}

// selected returns the highlighted voice.
func (p voicePicker) selected() (tts.Voice, bool) {
	item, ok := p.list.SelectedItem().(voiceItem)
	if !ok {
		return tts.Voice{}, false
	}
	return item.voice, true
}

// filtering reports whether keys should go to the list's search box.
func (p voicePicker) filtering() bool {
	return p.list.FilterState() == list.Filtering
}

type (
	voiceChosenMsg     struct{ voice tts.Voice }
	voiceTryMsg        struct{ voice tts.Voice }
	voicePickerDoneMsg struct{}
)

func (p voicePicker) update(msg tea.Msg) (voicePicker, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && !p.filtering() {
		switch {
		case key.Matches(msg, p.keys.Choose):
			if v, ok := p.selected(); ok {
				return p, func() tea.Msg { return voiceChosenMsg{voice: v} }
			}
			return p, nil
		case key.Matches(msg, p.keys.Try):
			if v, ok := p.selected(); ok {
				return p, func() tea.Msg { return voiceTryMsg{voice: v} }
			}
			return p, nil
		case key.Matches(msg, p.keys.Language):
			p.langIdx = (p.langIdx + 1) % len(p.languages)
			return p, p.apply()
		case key.Matches(msg, p.keys.Gender):
			p.filter.Gender = (p.filter.Gender + 1) % (tts.GenderFemale + 1)
			return p, p.apply()
		case key.Matches(msg, p.keys.Quality):
			p.filter.Quality = (p.filter.Quality + 1) % (tts.QualityPremium + 1)
			return p, p.apply()
		case key.Matches(msg, p.keys.Clear):
			p.filter = tts.VoiceFilter{}
			p.langIdx = 0
			p.list.ResetFilter()
			return p, p.apply()
		case key.Matches(msg, p.keys.Back):
			if p.list.FilterState() == list.FilterApplied {
				p.list.ResetFilter()
				return p, nil
			}
			return p, func() tea.Msg { return voicePickerDoneMsg{} }
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

func (p voicePicker) View() string {
	if p.loading {
		return dimStyle("Loading voices…")
	}
	if p.err != nil {
		return statusBarErrorStyle(" Could not list voices: " + p.err.Error() + " ")
	}
	return p.list.View()
}
