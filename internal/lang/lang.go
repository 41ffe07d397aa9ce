// Package lang provides a language registry mapping file extensions to
// tree-sitter grammars, plus small helpers shared by the extractors.
package lang

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Language holds tree-sitter configuration for a supported grammar.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	queryOnce sync.Once
	query     *sitter.Query
	queryErr  error
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// commentQuery captures every comment node.
const commentQuery = `(comment) @comment`

// CommentQuery returns the compiled comment query (safe to share across
// goroutines).
func (l *Language) CommentQuery() (*sitter.Query, error) {
	l.queryOnce.Do(func() {
		q, err := sitter.NewQuery([]byte(commentQuery), l.lang)
		if err != nil {
			l.queryErr = fmt.Errorf("compiling comment query: %w", err)
			return
		}
		l.query = q
	})
	return l.query, l.queryErr
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

var (
	extensionMap  map[string]*Language
	extensionOnce sync.Once
)

func getExtensionMap() map[string]*Language {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]*Language)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	if l := getExtensionMap()[strings.ToLower(ext)]; l != nil {
		return l.Name
	}
	return ""
}

// ForPath returns the language for path, or nil if unsupported.
func ForPath(path string) *Language {
	return getExtensionMap()[strings.ToLower(filepath.Ext(path))]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// UTF16Column converts a byte offset into the UTF-16 code unit column on
// its line. Invalid UTF-8 bytes count as one unit each.
func UTF16Column(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	start := offset
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	col := 0
	for i := start; i < offset; {
		r, size := utf8.DecodeRune(source[i:offset])
		if r >= 0x10000 {
			col += 2
		} else {
			col++
		}
		i += size
	}
	return col
}
