package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"artlens/logger"

	"github.com/fsnotify/fsnotify"
)

// Prompt names. An override file is <name>.txt inside the prompt directory.
const (
	AnalyzeSystem = "analyze_system"
	AnalyzeUser   = "analyze_user"
	ChatSystem    = "chat_system"
)

var defaults = map[string]string{
	AnalyzeSystem: `You are an expert art historian and museum guide. Analyze the artwork in the image and respond with:
Title: <title>
Description: <very short summary, maximum 3–4 sentences, and under 450 characters. Include key historical facts and visual details. Use concise, clear, and elegant language.>`,
	AnalyzeUser: "Analyze this artwork and return a short summary. Include key historical facts and the most notable visual highlights. Keep it under 5 sentences.",
	ChatSystem:  "You are a knowledgeable art historian. Answer questions about the artwork context provided in a conversational and engaging manner.",
}

// Store serves prompts, preferring files in dir over the built-in defaults.
type Store struct {
	dir string

	mu        sync.RWMutex
	overrides map[string]string

	watcher *fsnotify.Watcher
	closed  chan struct{}
	once    sync.Once
}

// NewStore creates a store. With an empty dir only the defaults are served.
func NewStore(dir string) (*Store, error) {
	s := &Store{
		dir:       dir,
		overrides: make(map[string]string),
		closed:    make(chan struct{}),
	}
	if dir == "" {
		return s, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read prompt dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		s.loadFile(filepath.Join(dir, entry.Name()))
	}

	logger.Info("prompts loaded",
		logger.String("dir", dir),
		logger.Int("overrides", len(s.overrides)))
	return s, nil
}

// Watch starts reloading override files when they change on disk.
func (s *Store) Watch() error {
	if s.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch prompt dir: %w", err)
	}

	s.watcher = watcher
	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case <-s.closed:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".txt" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				s.loadFile(event.Name)
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				s.remove(nameOf(event.Name))
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("prompt watcher error", logger.ErrorField(err))
		}
	}
}

func (s *Store) loadFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to read prompt file",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}

	name := nameOf(path)
	text := strings.TrimSpace(string(data))
	if text == "" {
		s.remove(name)
		return
	}

	s.mu.Lock()
	s.overrides[name] = text
	s.mu.Unlock()
	logger.Debug("prompt reloaded", logger.String("name", name))
}

func (s *Store) remove(name string) {
	s.mu.Lock()
	delete(s.overrides, name)
	s.mu.Unlock()
}

// Get returns the prompt called name, or "" for unknown names.
func (s *Store) Get(name string) string {
	if s != nil {
		s.mu.RLock()
		text, ok := s.overrides[name]
		s.mu.RUnlock()
		if ok {
			return text
		}
	}
	return defaults[name]
}

// Close stops the watcher.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}

func nameOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
