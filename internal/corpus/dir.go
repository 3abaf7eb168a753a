package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/annai/internal/models"
)

const dirDebounce = 400 * time.Millisecond

// DirSource serves SOPs from a local directory tree. The snapshot is kept in
// sync with the filesystem through fsnotify events, so FetchAll is a cheap
// copy of current state rather than a full rescan.
//
// Markdown and plain-text files may carry a YAML front matter block for
// title, link, status, author, and tags; the filename supplies the title
// otherwise. PDF and DOCX files are accepted through text extraction.
type DirSource struct {
	root       string
	extensions []string
	logger     *zap.Logger

	mu   sync.RWMutex
	docs map[string]*models.SOPDocument

	watcher *fsnotify.Watcher

	debounceMu  sync.Mutex
	debounceMap map[string]*time.Timer

	done     chan struct{}
	stopOnce sync.Once
}

// DirOption configures a DirSource.
type DirOption func(*DirSource)

// WithDirLogger sets a logger for file events and load failures.
func WithDirLogger(l *zap.Logger) DirOption {
	return func(s *DirSource) { s.logger = l }
}

// WithDirExtensions sets which file extensions are treated as SOPs.
func WithDirExtensions(exts []string) DirOption {
	return func(s *DirSource) { s.extensions = exts }
}

// NewDirSource creates a source rooted at dir. Call Start before FetchAll.
func NewDirSource(root string, opts ...DirOption) *DirSource {
	s := &DirSource{
		root:        root,
		extensions:  []string{".md", ".txt", ".pdf", ".docx"},
		logger:      zap.NewNop(),
		docs:        make(map[string]*models.SOPDocument),
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the directory tree and begins watching it. It runs until ctx
// is cancelled or Stop is called.
func (s *DirSource) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	s.watcher = watcher

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return s.watcher.Add(path)
		}
		s.loadFile(path)
		return nil
	})
	if err != nil {
		_ = s.watcher.Close()
		return fmt.Errorf("scan SOP directory: %w", err)
	}

	s.logger.Info("SOP directory loaded",
		zap.String("root", s.root),
		zap.Int("documents", len(s.docs)),
	)
	go s.run(ctx)
	return nil
}

// Stop stops watching. Safe to call more than once.
func (s *DirSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
	})
}

// FetchAll implements Source, returning the current snapshot ordered by
// path for deterministic ranking tie-breaks.
func (s *DirSource) FetchAll(ctx context.Context) ([]*models.SOPDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.docs))
	for p := range s.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	docs := make([]*models.SOPDocument, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, s.docs[p])
	}
	return docs, nil
}

func (s *DirSource) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				s.logger.Debug("watch error", zap.Error(err))
			}
		}
	}
}

func (s *DirSource) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := s.watcher.Add(path); err != nil {
				s.logger.Debug("watch add failed", zap.String("path", path), zap.Error(err))
			}
			return
		}
		s.scheduleReload(path)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// The path may have been a directory; drop everything beneath it
		// too, since no further events arrive for the children.
		prefix := path + string(filepath.Separator)
		s.mu.Lock()
		delete(s.docs, path)
		for p := range s.docs {
			if strings.HasPrefix(p, prefix) {
				delete(s.docs, p)
			}
		}
		s.mu.Unlock()
		s.logger.Debug("SOP removed", zap.String("path", path))
	}
}

// scheduleReload debounces rapid write events per path before reloading.
func (s *DirSource) scheduleReload(path string) {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if t, ok := s.debounceMap[path]; ok {
		t.Stop()
	}
	s.debounceMap[path] = time.AfterFunc(dirDebounce, func() {
		s.debounceMu.Lock()
		delete(s.debounceMap, path)
		s.debounceMu.Unlock()
		s.loadFile(path)
	})
}

func (s *DirSource) loadFile(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !s.accepts(ext) {
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("read SOP failed", zap.String("path", path), zap.Error(err))
		return
	}
	text, err := extractText(content, ext)
	if err != nil {
		s.logger.Warn("extract SOP failed", zap.String("path", path), zap.Error(err))
		return
	}

	meta, body := splitFrontMatter(text)
	title := meta.Title
	if title == "" {
		title = titleFromFilename(path)
	}

	doc := &models.SOPDocument{
		Title:  title,
		Body:   body,
		Link:   meta.Link,
		Status: meta.Status,
		Author: meta.Author,
		Tags:   models.NormalizeTags(meta.Tags...),
	}

	s.mu.Lock()
	s.docs[path] = doc
	s.mu.Unlock()
	s.logger.Debug("SOP loaded", zap.String("path", path), zap.String("title", title))
}

func (s *DirSource) accepts(ext string) bool {
	for _, e := range s.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// frontMatter is the optional YAML block at the top of a text SOP.
type frontMatter struct {
	Title  string   `yaml:"title"`
	Link   string   `yaml:"link"`
	Status string   `yaml:"status"`
	Author string   `yaml:"author"`
	Tags   []string `yaml:"tags"`
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// body. Bodies without a block (or with an unterminated one) pass through.
func splitFrontMatter(text string) (frontMatter, string) {
	var meta frontMatter
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return meta, text
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "---" {
			continue
		}
		block := strings.Join(lines[1:i], "\n")
		if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
			return frontMatter{}, text
		}
		return meta, strings.Join(lines[i+1:], "\n")
	}
	return meta, text
}

// titleFromFilename derives a display title from a file path: extension
// dropped, separators turned into spaces.
func titleFromFilename(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
