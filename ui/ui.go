// Package ui provides the terminal UI for localtts: a text editor with
// playback and export controls, a voice browser and a file importer.
package ui

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
)

const (
	ellipsis        = "…"
	statusBarHeight = 1
	prosodyHeight   = 5 // three sliders plus border
)

// Session is the engine side of the UI.
type Session struct {
	Synth    tts.Synthesizer
	Defaults tts.UtteranceConfiguration
	// ExportDir is where exports are written; empty means the temp dir.
	ExportDir string
	Logger    *log.Logger
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, s Session) *tea.Program {
	log.Debug("Starting localtts", "alt_screen", cfg.AltScreen, "mouse", cfg.EnableMouse)

	d := newDispatcher()
	m := newModel(cfg, s, d)
	if !termenv.HasDarkBackground() {
		m.editor.FocusedStyle.Text = m.editor.FocusedStyle.Text.Foreground(lipgloss.Color("#1A1A1A"))
	}

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)
	d.bind(p.Send)
	return p
}

type mode int

const (
	modeEdit mode = iota
	modeVoices
	modeImport
)

func (m mode) String() string {
	return map[mode]string{
		modeEdit:   "editing",
		modeVoices: "choosing voice",
		modeImport: "importing file",
	}[m]
}

type focus int

const (
	focusEditor focus = iota
	focusControls
)

type statusMessageTimeoutMsg int

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	width  int
	height int
}

type model struct {
	common *commonModel
	mode   mode
	focus  focus
	keys   keyMap
	help   help.Model

	editor  textarea.Model
	voices  voicePicker
	picker  filepicker.Model
	spinner spinner.Model
	bar     progress.Model

	speech   *speechState
	catalog  tts.VoiceCatalog
	voice    tts.Voice
	prosody  tts.UtteranceConfiguration
	defaults tts.UtteranceConfiguration
	slider   int
	rng      *rand.Rand

	watcher  *fileWatcher
	watching bool
	imported string

	statusMessage string
	statusIsError bool
	statusID      int
}

func newModel(cfg Config, s Session, d tts.Dispatcher) model {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	common := &commonModel{cfg: cfg}

	speech := &speechState{
		controller: tts.NewController(s.Synth, tts.WithDispatcher(d), tts.WithLogger(logger.WithPrefix("controller"))),
		exporter: tts.NewExporter(s.Synth,
			tts.WithExportDispatcher(d),
			tts.WithExportDir(s.ExportDir),
			tts.WithExportLogger(logger.WithPrefix("export")),
		),
		copyPath: cfg.CopyExportPath,
	}
	speech.controller.Subscribe(func(st tts.StateType) { speech.state = st })

	editor := textarea.New()
	editor.Placeholder = "Type or paste something to say, or press ctrl+o to import a file…"
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.Focus()

	defaults := s.Defaults
	if defaults == (tts.UtteranceConfiguration{}) {
		defaults = tts.DefaultUtteranceConfiguration()
	}

	keys := newKeyMap()
	keys.setControlsFocused(false)

	return model{
		common:   common,
		keys:     keys,
		help:     help.New(),
		editor:   editor,
		voices:   newVoicePicker(),
		picker:   newFilePicker(workingDir(cfg)),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(fuchsia))),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(30)),
		speech:   speech,
		catalog:  s.Synth,
		prosody:  defaults.Clamp(),
		defaults: defaults.Clamp(),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x10ca1)),
		watcher:  newFileWatcher(),
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick, loadVoices(m.catalog)}
	if m.common.cfg.Path != "" {
		cmds = append(cmds, importFile(m.common.cfg.Path))
	}
	return tea.Batch(cmds...)
}

func (m *model) setSize(w, h int) {
	m.common.width = w
	m.common.height = h
	m.help.Width = w

	body := max(h-statusBarHeight-prosodyHeight-m.helpHeight()-2, 3)
	m.editor.SetWidth(max(w-4, 10))
	m.editor.SetHeight(body)
	m.voices.setSize(w, body+prosodyHeight)
	m.bar.Width = max(min(w-20, 40), 10)
}

func (m model) helpHeight() int {
	if m.help.ShowAll {
		return 5
	}
	return 1
}

// showStatusMessage displays msg in the status bar until the timeout.
func (m *model) showStatusMessage(msg string, isErr bool) tea.Cmd {
	m.statusID++
	m.statusMessage = msg
	m.statusIsError = isErr
	id := m.statusID
	return tea.Tick(m.common.cfg.StatusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg(id)
	})
}

func (m *model) setFocus(f focus) tea.Cmd {
	m.focus = f
	m.keys.setControlsFocused(f == focusControls)
	if f == focusEditor {
		return m.editor.Focus()
	}
	m.editor.Blur()
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.speech.controller.Stop()
			m.watcher.close()
			return m, tea.Quit
		}
		if msg.String() == "ctrl+z" {
			return m, tea.Suspend
		}
		switch m.mode {
		case modeVoices:
			var cmd tea.Cmd
			m.voices, cmd = m.voices.update(msg)
			return m, cmd
		case modeImport:
			if msg.String() == "esc" {
				m.mode = modeEdit
				return m, m.setFocus(focusEditor)
			}
			return m.updatePicker(msg)
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		if m.mode == modeImport {
			return m.updatePicker(msg)
		}

	case callbackMsg:
		msg()
		for _, n := range m.speech.drainNotices() {
			cmds = append(cmds, m.showStatusMessage(n.text, n.err))
		}
		return m, tea.Batch(cmds...)

	case statusMessageTimeoutMsg:
		if int(msg) == m.statusID {
			m.statusMessage = ""
			m.statusIsError = false
		}
		return m, nil

	case voicesLoadedMsg:
		return m, m.voicesLoaded(msg)

	case voiceChosenMsg:
		m.voice = msg.voice
		m.mode = modeEdit
		return m, tea.Batch(m.setFocus(focusEditor), m.showStatusMessage("Voice: "+msg.voice.String(), false))

	case voiceTryMsg:
		m.speech.controller.Try(msg.voice)
		return m, nil

	case voicePickerDoneMsg:
		m.mode = modeEdit
		return m, m.setFocus(focusEditor)

	case importedMsg:
		m.editor.SetValue(msg.text)
		m.imported = msg.path
		m.watcher.watch(msg.path)
		cmds = append(cmds, m.showStatusMessage("Imported "+msg.path, false))
		if !m.watching {
			m.watching = true
			cmds = append(cmds, m.watcher.wait)
		}
		return m, tea.Batch(cmds...)

	case reloadMsg:
		m.watching = true
		cmds = append(cmds, m.watcher.wait)
		if text, ok := tts.ImportText(msg.path); ok && text != m.editor.Value() {
			m.editor.SetValue(text)
			cmds = append(cmds, m.showStatusMessage("Reloaded "+msg.path, false))
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch m.mode {
	case modeVoices:
		var cmd tea.Cmd
		m.voices, cmd = m.voices.update(msg)
		cmds = append(cmds, cmd)
	case modeImport:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		cmds = append(cmds, cmd)
	default:
		if m.focus == focusEditor {
			var cmd tea.Cmd
			m.editor, cmd = m.editor.Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// handleKey runs the editor-mode bindings. It reports false for keys
// that should fall through to the focused component.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	text := m.editor.Value()

	switch {
	case key.Matches(msg, m.keys.Speak):
		m.speech.controller.Speak(text, m.voice, m.prosody)
		return nil, true

	case key.Matches(msg, m.keys.PauseResume):
		switch m.speech.state {
		case tts.StateSpeaking:
			m.speech.controller.Pause()
		case tts.StatePaused:
			m.speech.controller.Resume()
		}
		return nil, true

	case key.Matches(msg, m.keys.Stop):
		m.speech.controller.Stop()
		return nil, true

	case key.Matches(msg, m.keys.Export):
		if !m.speech.export(text, m.voice, m.prosody) {
			return m.drainNotices(), true
		}
		return tea.Batch(m.spinner.Tick, m.showStatusMessage("Exporting…", false)), true

	case key.Matches(msg, m.keys.CopyPath):
		m.speech.copyLastExport()
		return m.drainNotices(), true

	case key.Matches(msg, m.keys.Import):
		m.mode = modeImport
		m.editor.Blur()
		return m.picker.Init(), true

	case key.Matches(msg, m.keys.Voices):
		m.mode = modeVoices
		m.editor.Blur()
		return nil, true

	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == focusEditor {
			return m.setFocus(focusControls), true
		}
		return m.setFocus(focusEditor), true
	}

	if m.focus != focusControls {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.slider = (m.slider + len(sliders) - 1) % len(sliders)
	case key.Matches(msg, m.keys.Down):
		m.slider = (m.slider + 1) % len(sliders)
	case key.Matches(msg, m.keys.Decrease):
		m.prosody = adjust(m.prosody, m.slider, -1)
	case key.Matches(msg, m.keys.Increase):
		m.prosody = adjust(m.prosody, m.slider, 1)
	case key.Matches(msg, m.keys.Randomize):
		m.prosody = tts.Randomize(m.rng)
	case key.Matches(msg, m.keys.Reset):
		m.prosody = m.defaults
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.setSize(m.common.width, m.common.height)
	}
	return nil, true
}

func (m *model) drainNotices() tea.Cmd {
	var cmds []tea.Cmd
	for _, n := range m.speech.drainNotices() {
		cmds = append(cmds, m.showStatusMessage(n.text, n.err))
	}
	return tea.Batch(cmds...)
}

func (m model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.mode = modeEdit
		return m, tea.Batch(cmd, m.setFocus(focusEditor), importFile(path))
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		return m, tea.Batch(cmd, m.showStatusMessage(path+" is not a text file", true))
	}
	return m, cmd
}

func (m *model) voicesLoaded(msg voicesLoadedMsg) tea.Cmd {
	if msg.err != nil {
		log.Error("unable to list voices", "error", msg.err)
		m.voices.loading = false
		m.voices.err = msg.err
		return m.showStatusMessage("Could not list voices", true)
	}
	cmd := m.voices.setVoices(msg.voices)
	if len(msg.voices) == 0 {
		return cmd
	}

	m.voice = msg.voices[0]
	if q := m.common.cfg.Voice; q != "" {
		v, err := tts.ResolveVoice(msg.voices, q)
		if err != nil {
			return tea.Batch(cmd, m.showStatusMessage(fmt.Sprintf("Voice %q not found, using %s", q, m.voice), true))
		}
		m.voice = v
	}
	return cmd
}

func (m model) View() string {
	var b strings.Builder

	switch m.mode {
	case modeVoices:
		fmt.Fprint(&b, m.voices.View())
	case modeImport:
		fmt.Fprint(&b, sectionTitleStyle("Import a text file")+dimStyle("  esc to cancel")+"\n\n")
		fmt.Fprint(&b, m.picker.View())
	default:
		editor := panelStyle
		controls := panelStyle
		if m.focus == focusEditor {
			editor = focusedPanelStyle
		} else {
			controls = focusedPanelStyle
		}
		fmt.Fprintln(&b, editor.Render(m.editor.View()))
		fmt.Fprintln(&b, controls.Render(prosodyView(m.bar, m.prosody, m.slider, m.focus == focusControls)))
	}

	fmt.Fprint(&b, "\n")
	m.statusBarView(&b)
	if m.mode == modeEdit {
		fmt.Fprint(&b, "\n"+helpViewStyle(m.help.View(m.keys)))
	}
	return b.String()
}

func (m model) statusBarView(b *strings.Builder) {
	showStatusMessage := m.statusMessage != ""

	logo := logoView()
	badge := m.speech.badge()

	// "Help" note
	helpNote := " ? Help "
	if m.focus == focusEditor {
		helpNote = " tab Controls "
	}
	if showStatusMessage {
		helpNote = statusBarMessageHelpStyle(helpNote)
	} else {
		helpNote = statusBarHelpStyle(helpNote)
	}

	var note string
	switch {
	case showStatusMessage:
		note = m.statusMessage
	case m.speech.exporting:
		note = fmt.Sprintf("%s Exporting %s", m.spinner.View(), audio.ExportFormat.FrameDuration(m.speech.exportFrames).Round(100*time.Millisecond))
	default:
		note = m.voiceNote()
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.common.width-
			lipgloss.Width(logo)-
			lipgloss.Width(badge)-
			lipgloss.Width(helpNote),
	)), ellipsis)

	style := statusBarNoteStyle
	switch {
	case showStatusMessage && m.statusIsError:
		style = statusBarErrorStyle
	case showStatusMessage:
		style = statusBarMessageStyle
	}
	note = style(note)

	// Empty space
	padding := max(0,
		m.common.width-
			lipgloss.Width(logo)-
			lipgloss.Width(badge)-
			lipgloss.Width(note)-
			lipgloss.Width(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		badge,
		note,
		emptySpace,
		helpNote,
	)
}

func (m model) voiceNote() string {
	if m.voices.loading {
		return m.spinner.View() + " Loading voices"
	}
	if m.voice == (tts.Voice{}) {
		return "No voices installed"
	}
	note := m.voice.String()
	if m.voice.Language != "" {
		note += " · " + tts.LanguageDisplayName(m.voice.Language)
	}
	if m.imported != "" {
		note += " · " + m.imported
	}
	return note
}
