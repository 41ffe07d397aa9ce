// Package tags manages user-defined deprecation markers.
package tags

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/phobologic/deptrack/internal/model"
)

// Sigil is the character every tag must start with.
const Sigil = "@"

// Builtin is the conventional deprecation tag. It is always enabled and
// cannot be redefined.
const Builtin = "@deprecated"

// FileName is the base name of the persisted tag list inside the state dir.
const FileName = "tags.toml"

var (
	tagRe   = regexp.MustCompile(`^@[A-Za-z][\w-]*$`)
	colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// CustomTag is a user-defined marker treated like @deprecated when enabled.
type CustomTag struct {
	ID          string         `toml:"id"`
	Tag         string         `toml:"tag"`
	Label       string         `toml:"label"`
	Description string         `toml:"description,omitempty"`
	Enabled     bool           `toml:"enabled"`
	Color       string         `toml:"color,omitempty"`
	Severity    model.Severity `toml:"severity,omitempty"`
	CreatedAt   time.Time      `toml:"created_at"`
}

// Validate checks the tag syntax and optional fields.
func (t CustomTag) Validate() error {
	if !strings.HasPrefix(t.Tag, Sigil) {
		return fmt.Errorf("tag %q must start with %q", t.Tag, Sigil)
	}
	if !tagRe.MatchString(t.Tag) {
		return fmt.Errorf("tag %q must be %s followed by a word", t.Tag, Sigil)
	}
	if strings.EqualFold(t.Tag, Builtin) {
		return fmt.Errorf("tag %q is built in", t.Tag)
	}
	if t.Color != "" && !colorRe.MatchString(t.Color) {
		return fmt.Errorf("color %q must look like #rrggbb", t.Color)
	}
	if t.Severity != "" {
		if _, err := model.ParseSeverity(string(t.Severity)); err != nil {
			return err
		}
	}
	return nil
}

type file struct {
	Tags []CustomTag `toml:"tags"`
}

// Store holds the custom tags of one workspace.
type Store struct {
	mu   sync.Mutex
	path string
	tags []CustomTag
	now  func() time.Time
}

// NewStore returns an in-memory store.
func NewStore(tags ...CustomTag) *Store {
	return &Store{tags: append([]CustomTag(nil), tags...), now: time.Now}
}

// Open loads root's tag file. A missing file yields an empty store.
func Open(root string, stateDir string) (*Store, error) {
	path := filepath.Join(root, stateDir, FileName)
	s := &Store{path: path, now: time.Now}

	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	s.tags = f.Tags
	return s, nil
}

// Add creates and stores a new enabled tag.
func (s *Store) Add(tag, label, description, color string, severity model.Severity) (CustomTag, error) {
	if label == "" {
		label = strings.TrimPrefix(tag, Sigil)
	}
	t := CustomTag{
		ID:          uuid.New().String(),
		Tag:         tag,
		Label:       label,
		Description: description,
		Enabled:     true,
		Color:       color,
		Severity:    severity,
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	}
	if err := t.Validate(); err != nil {
		return CustomTag{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tags {
		if strings.EqualFold(existing.Tag, tag) {
			return CustomTag{}, fmt.Errorf("tag %q already exists", tag)
		}
	}
	s.tags = append(s.tags, t)
	return t, nil
}

// Update replaces the tag with the same ID.
func (s *Store) Update(t CustomTag) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(t.ID)
	if i < 0 {
		return fmt.Errorf("tag %q not found", t.ID)
	}
	s.tags[i] = t
	return nil
}

// SetEnabled toggles the tag identified by ID or tag text.
func (s *Store) SetEnabled(key string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(key)
	if i < 0 {
		return fmt.Errorf("tag %q not found", key)
	}
	s.tags[i].Enabled = enabled
	return nil
}

// Remove deletes the tag identified by ID or tag text.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(key)
	if i < 0 {
		return fmt.Errorf("tag %q not found", key)
	}
	s.tags = append(s.tags[:i], s.tags[i+1:]...)
	return nil
}

// List returns every tag in creation order.
func (s *Store) List() []CustomTag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CustomTag(nil), s.tags...)
}

// Enabled returns the enabled tags.
func (s *Store) Enabled() []CustomTag {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []CustomTag
	for _, t := range s.tags {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// Save persists the tags. It is a no-op for in-memory stores.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	var buf bytes.Buffer
	err := toml.NewEncoder(&buf).Encode(file{Tags: s.tags})
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) find(key string) int {
	for i, t := range s.tags {
		if t.ID == key || strings.EqualFold(t.Tag, key) {
			return i
		}
	}
	return -1
}
