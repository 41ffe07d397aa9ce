// Package ignore holds the workspace ignore rules and their on-disk store.
//
// The scan engine only ever sees a Rules snapshot; mutation goes through a
// Store owned by the CLI.
package ignore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// StateDir is the workspace directory holding deptrack state files.
const StateDir = ".deptrack"

// FileName is the base name of the persisted ignore rules.
const FileName = "ignore.toml"

// Rules is an immutable snapshot of the three suppression axes.
type Rules struct {
	// Files are ignored absolute file paths.
	Files []string `toml:"files,omitempty"`
	// Members maps an absolute file path to member names ignored in it.
	Members map[string][]string `toml:"members,omitempty"`
	// GlobalMembers are member names ignored in every file.
	GlobalMembers []string `toml:"global_members,omitempty"`
	// FilePatterns and MemberPatterns are project-wide globs.
	FilePatterns   []string `toml:"file_patterns,omitempty"`
	MemberPatterns []string `toml:"member_patterns,omitempty"`
}

// Clone returns a deep copy of r.
func (r Rules) Clone() Rules {
	c := Rules{
		Files:          slices.Clone(r.Files),
		GlobalMembers:  slices.Clone(r.GlobalMembers),
		FilePatterns:   slices.Clone(r.FilePatterns),
		MemberPatterns: slices.Clone(r.MemberPatterns),
	}
	if r.Members != nil {
		c.Members = make(map[string][]string, len(r.Members))
		for k, v := range r.Members {
			c.Members[k] = slices.Clone(v)
		}
	}
	return c
}

// Empty reports whether r suppresses nothing.
func (r Rules) Empty() bool {
	return len(r.Files) == 0 && len(r.Members) == 0 && len(r.GlobalMembers) == 0 &&
		len(r.FilePatterns) == 0 && len(r.MemberPatterns) == 0
}

// Store owns the mutable ignore rules of one workspace.
type Store struct {
	mu    sync.Mutex
	path  string
	rules Rules
}

// NewStore returns an in-memory store seeded with rules.
func NewStore(rules Rules) *Store {
	return &Store{rules: rules.Clone()}
}

// Open loads the store for the workspace at root. A missing file yields an
// empty store that will be created on Save.
func Open(root string) (*Store, error) {
	path := filepath.Join(root, StateDir, FileName)
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ignore rules: %w", err)
	}
	if err := toml.Unmarshal(data, &s.rules); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return s, nil
}

// Snapshot returns a frozen copy of the current rules.
func (s *Store) Snapshot() Rules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules.Clone()
}

// IgnoreFile adds an absolute path to the ignored files. It reports whether
// the rules changed.
func (s *Store) IgnoreFile(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed bool
	s.rules.Files, changed = addSorted(s.rules.Files, filepath.Clean(path))
	return changed
}

// RemoveFileIgnore drops path from the ignored files.
func (s *Store) RemoveFileIgnore(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed bool
	s.rules.Files, changed = remove(s.rules.Files, filepath.Clean(path))
	return changed
}

// IgnoreMethod ignores member name in the file at path. An empty path
// ignores the name in every file.
func (s *Store) IgnoreMethod(path, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed bool
	if path == "" {
		s.rules.GlobalMembers, changed = addSorted(s.rules.GlobalMembers, name)
		return changed
	}
	path = filepath.Clean(path)
	if s.rules.Members == nil {
		s.rules.Members = make(map[string][]string)
	}
	s.rules.Members[path], changed = addSorted(s.rules.Members[path], name)
	return changed
}

// RemoveMethodIgnore undoes IgnoreMethod.
func (s *Store) RemoveMethodIgnore(path, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed bool
	if path == "" {
		s.rules.GlobalMembers, changed = remove(s.rules.GlobalMembers, name)
		return changed
	}
	path = filepath.Clean(path)
	if _, ok := s.rules.Members[path]; !ok {
		return false
	}
	s.rules.Members[path], changed = remove(s.rules.Members[path], name)
	if len(s.rules.Members[path]) == 0 {
		delete(s.rules.Members, path)
	}
	return changed
}

// IgnoreFilePattern adds a project-wide file glob.
func (s *Store) IgnoreFilePattern(pattern string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed bool
	s.rules.FilePatterns, changed = addSorted(s.rules.FilePatterns, pattern)
	return changed
}

// IgnoreMemberPattern adds a project-wide member-name glob.
func (s *Store) IgnoreMemberPattern(pattern string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed bool
	s.rules.MemberPatterns, changed = addSorted(s.rules.MemberPatterns, pattern)
	return changed
}

// ClearAll removes every rule.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = Rules{}
}

// Save persists the rules. It is a no-op for in-memory stores.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	data, err := toml.Marshal(s.rules)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding ignore rules: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

func addSorted(list []string, v string) ([]string, bool) {
	if v == "" || slices.Contains(list, v) {
		return list, false
	}
	list = append(list, v)
	sort.Strings(list)
	return list, true
}

func remove(list []string, v string) ([]string, bool) {
	i := slices.Index(list, v)
	if i < 0 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}
