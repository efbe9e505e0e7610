package thread

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/threadflow/message"
)

// injectPersona decides, at thread-creation time only, whether to prepend a
// brand-voice system message. An empty or whitespace persona produces no
// system message. No other code path may insert a system message into an
// existing thread; this is the engine's core correctness property.
func injectPersona(persona string) ([]message.ChatMessage, bool) {
	trimmed := strings.TrimSpace(persona)
	if trimmed == "" {
		return nil, false
	}
	return []message.ChatMessage{message.System(trimmed)}, true
}

// personaDebounce is how long the file watcher waits for further writes
// before reloading. Editors often emit several events per save.
const personaDebounce = 500 * time.Millisecond

// PersonaSource supplies the brand-voice text used when creating threads.
// A file-backed source hot-reloads on change; reloads only affect threads
// created afterwards, because injection happens once at creation.
type PersonaSource struct {
	mu      sync.RWMutex
	text    string
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// NewStaticPersona returns a source with fixed text.
func NewStaticPersona(text string) *PersonaSource {
	return &PersonaSource{text: text}
}

// NewFilePersona reads the persona from path and watches it for changes.
// Close must be called to release the watcher.
func NewFilePersona(path string, logger *slog.Logger) (*PersonaSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create persona watcher: %w", err)
	}

	// Watch the directory, not the file: editors typically replace the file
	// on save, which would orphan a direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch persona directory: %w", err)
	}

	p := &PersonaSource{
		text:    string(data),
		path:    path,
		watcher: watcher,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go p.watchLoop()

	return p, nil
}

// Persona returns the current persona text.
func (p *PersonaSource) Persona() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

// Close stops the file watcher. Safe to call on a static source.
func (p *PersonaSource) Close() error {
	if p.watcher == nil {
		return nil
	}
	close(p.done)
	return p.watcher.Close()
}

func (p *PersonaSource) watchLoop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-p.done:
			return
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(p.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(personaDebounce)
				timerC = timer.C
			} else {
				timer.Reset(personaDebounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			p.reload()
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("Persona watcher error", "path", p.path, "error", err)
		}
	}
}

func (p *PersonaSource) reload() {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.Warn("Failed to reload persona file", "path", p.path, "error", err)
		return
	}

	p.mu.Lock()
	p.text = string(data)
	p.mu.Unlock()

	p.logger.Info("Reloaded persona file", "path", p.path, "bytes", len(data))
}
