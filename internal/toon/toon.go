// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/deptrack/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format.
func Encode(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(r.Root)))

	var fileRows [][]string
	for i := range r.Files {
		f := &r.Files[i]
		fileRows = append(fileRows, []string{
			f.Path,
			strconv.Itoa(f.Declarations),
			strconv.Itoa(f.Usages),
			fmt.Sprintf("%.4f", f.Rank),
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "declarations", "usages", "rank"}, fileRows))

	var itemRows [][]string
	for i := range r.Items {
		it := &r.Items[i]
		declFile, declLine := "", ""
		if d := it.DeprecatedDeclaration; d != nil {
			declFile, declLine = d.FileName, strconv.Itoa(d.Line)
		}
		itemRows = append(itemRows, []string{
			it.FileName,
			strconv.Itoa(it.Line),
			strconv.Itoa(it.Character),
			string(it.Kind),
			it.Name,
			string(it.Severity),
			it.DeprecationReason,
			declFile,
			declLine,
		})
	}
	parts = append(parts, formatTabular("items",
		[]string{"file", "line", "character", "kind", "name", "severity", "reason", "declFile", "declLine"}, itemRows))

	var depRows [][]string
	for i := range r.Dependencies {
		d := &r.Dependencies[i]
		depRows = append(depRows, []string{
			d.Source,
			d.Target,
			strings.Join(d.Symbols, " "),
		})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target", "symbols"}, depRows))

	if len(r.Warnings) > 0 {
		var warnRows [][]string
		for _, w := range r.Warnings {
			warnRows = append(warnRows, []string{w.Path, w.Message})
		}
		parts = append(parts, formatTabular("warnings", []string{"path", "message"}, warnRows))
	}

	return strings.Join(parts, "\n")
}

// Table renders a single named TOON table.
func Table(name string, columns []string, rows [][]string) string {
	return formatTabular(name, columns, rows)
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
