package tui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Mr-Dark-debug/arbor/internal/loader"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 150 * time.Millisecond

type watchStartedMsg struct {
	w    *fsnotify.Watcher
	file string
}

type sourceChangedMsg struct{ file string }

type watchErrMsg struct {
	err  error
	file string
}

// startWatch watches the directory holding a local root document.
// Editors often replace files by rename, so the directory is watched
// rather than the file itself.
func startWatch(source string) tea.Cmd {
	return func() tea.Msg {
		if loader.IsRemote(source) {
			return errMsg{fmt.Errorf("cannot watch remote source %s", source)}
		}
		file, err := filepath.Abs(loader.FilePath(source))
		if err != nil {
			return errMsg{fmt.Errorf("resolving %s: %w", source, err)}
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			return errMsg{fmt.Errorf("creating watcher: %w", err)}
		}
		if err := w.Add(filepath.Dir(file)); err != nil {
			w.Close()
			return errMsg{fmt.Errorf("watching %s: %w", filepath.Dir(file), err)}
		}
		return watchStartedMsg{w: w, file: file}
	}
}

// waitForChange blocks until file is written, created or renamed, then
// waits out the debounce window. It returns nil once the watcher closes.
func waitForChange(w *fsnotify.Watcher, file string) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(ev.Name) != file || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				drain(w, watchDebounce)
				return sourceChangedMsg{file: file}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return watchErrMsg{err: err, file: file}
			}
		}
	}
}

func drain(w *fsnotify.Watcher, quiet time.Duration) {
	timer := time.NewTimer(quiet)
	defer timer.Stop()
	for {
		select {
		case _, ok := <-w.Events:
			if !ok {
				return
			}
			timer.Reset(quiet)
		case <-timer.C:
			return
		}
	}
}
