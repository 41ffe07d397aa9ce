// Package model defines the result records deptrack hands to its consumers.
package model

import (
	"fmt"
	"unicode/utf8"
)

// ItemKind is the syntactic category of a result item.
type ItemKind string

const (
	Method    ItemKind = "method"
	Property  ItemKind = "property"
	Class     ItemKind = "class"
	Interface ItemKind = "interface"
	Function  ItemKind = "function"
	Usage     ItemKind = "usage"
)

// Valid reports whether k is one of the known item kinds.
func (k ItemKind) Valid() bool {
	switch k {
	case Method, Property, Class, Interface, Function, Usage:
		return true
	}
	return false
}

// Severity is the diagnostic level attached to an item.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

var severityRank = map[Severity]int{
	SeverityInfo:    0,
	SeverityWarning: 1,
	SeverityError:   2,
}

// ParseSeverity converts a string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if _, ok := severityRank[sev]; !ok {
		return "", fmt.Errorf("unknown severity %q (want info, warning or error)", s)
	}
	return sev, nil
}

// AtLeast reports whether s is as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// DeclarationRef links a usage item back to the declaration it uses.
type DeclarationRef struct {
	Name     string `json:"name"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
}

// DeprecatedItem is a single declaration or usage of a deprecated symbol.
//
// Line is 1-based and Character is 0-based, counted in UTF-16 code units, for
// both declarations and usages. DeprecatedDeclaration is set if and only if
// Kind is Usage.
type DeprecatedItem struct {
	Name                  string          `json:"name"`
	FileName              string          `json:"fileName"`
	FilePath              string          `json:"filePath"`
	Line                  int             `json:"line"`
	Character             int             `json:"character"`
	Kind                  ItemKind        `json:"kind"`
	Severity              Severity        `json:"severity,omitempty"`
	DeprecationReason     string          `json:"deprecationReason,omitempty"`
	DeprecatedDeclaration *DeclarationRef `json:"deprecatedDeclaration,omitempty"`
}

// EndCharacter returns the exclusive end column of the item's name.
func (it DeprecatedItem) EndCharacter() int {
	n := 0
	for _, r := range it.Name {
		if r >= 0x10000 && r <= utf8.MaxRune {
			n += 2
		} else {
			n++
		}
	}
	return it.Character + n
}

// Validate checks the structural invariants of an item.
func (it DeprecatedItem) Validate() error {
	if !it.Kind.Valid() {
		return fmt.Errorf("%s:%d: unknown kind %q", it.FileName, it.Line, it.Kind)
	}
	if it.Line < 1 || it.Character < 0 {
		return fmt.Errorf("%s: invalid position %d:%d", it.FileName, it.Line, it.Character)
	}
	if it.Kind == Usage && it.DeprecatedDeclaration == nil {
		return fmt.Errorf("%s:%d: usage %q without declaration", it.FileName, it.Line, it.Name)
	}
	if it.Kind != Usage && it.DeprecatedDeclaration != nil {
		return fmt.Errorf("%s:%d: %s %q carries a declaration link", it.FileName, it.Line, it.Kind, it.Name)
	}
	return nil
}

// Warning is a recoverable problem surfaced during a scan.
type Warning struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return w.Path + ": " + w.Message
}

// Dependency is an edge from a file using deprecated symbols to the file
// that declares them.
type Dependency struct {
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Symbols []string `json:"symbols"`
}

// FileStat summarizes one file of a report.
type FileStat struct {
	Path         string  `json:"path"`
	Declarations int     `json:"declarations"`
	Usages       int     `json:"usages"`
	Rank         float64 `json:"rank"`
}

// Report is a scan result arranged for output.
type Report struct {
	Root         string           `json:"root"`
	Items        []DeprecatedItem `json:"items"`
	Files        []FileStat       `json:"files"`
	Dependencies []Dependency     `json:"dependencies"`
	Warnings     []Warning        `json:"warnings,omitempty"`
}
