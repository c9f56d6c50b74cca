package ui

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dgnsrekt/localtts/tts"
)

var textExtensions = []string{".txt", ".text", ".md", ".markdown"}

type (
	// importedMsg carries the text of a freshly imported file.
	importedMsg struct {
		path string
		text string
	}
	reloadMsg struct{ path string }
)

func newFilePicker(dir string) filepicker.Model {
	fp := filepicker.New()
	fp.AllowedTypes = textExtensions
	fp.CurrentDirectory = dir
	fp.ShowPermissions = false
	return fp
}

// importFile reads path. Unreadable or non-text files produce no message
// and leave the editor as it is.
func importFile(path string) tea.Cmd {
	return func() tea.Msg {
		text, ok := tts.ImportText(path)
		if !ok {
			log.Debug("import skipped", "path", path)
			return nil
		}
		return importedMsg{path: path, text: text}
	}
}

// fileWatcher reports writes to the most recently imported file.
type fileWatcher struct {
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	path string
}

func newFileWatcher() *fileWatcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
		return &fileWatcher{}
	}
	return &fileWatcher{watcher: w}
}

// watch switches to path, replacing any previous file.
func (w *fileWatcher) watch(path string) {
	if w.watcher == nil {
		return
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	prev := w.path
	w.path = path
	w.mu.Unlock()

	if prev != "" && filepath.Dir(prev) != filepath.Dir(path) {
		if err := w.watcher.Remove(filepath.Dir(prev)); err != nil {
			log.Debug("fsnotify fail to unwatch dir", "dir", filepath.Dir(prev), "error", err)
		}
	}
	// Editors replace files on save, so the directory is watched.
	if err := w.watcher.Add(filepath.Dir(path)); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		return
	}
	log.Debug("fsnotify watching", "file", path)
}

func (w *fileWatcher) current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// wait blocks until the watched file changes.
func (w *fileWatcher) wait() tea.Msg {
	if w.watcher == nil {
		return nil
	}
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.current() {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			return reloadMsg{path: event.Name}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "error", err)
		}
	}
}

func (w *fileWatcher) close() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func workingDir(cfg Config) string {
	if cfg.ImportDir != "" {
		return cfg.ImportDir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return cfg.HomeDir
}
