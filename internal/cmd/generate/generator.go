package generate

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/groundstation/factsys"
	"golang.org/x/tools/imports"
)

// GeneratorConfig configures generateCode.
type GeneratorConfig struct {
	PackageName string
	Prefix      string
	// SourceFile is named in the generated header.
	SourceFile string
	// Output is the file name handed to the formatter.
	Output string
}

// generateCode renders one constant per registered parameter plus a slice
// listing them all, formatted like gofmt.
func generateCode(reg *factsys.MetaDataRegistry, cfg GeneratorConfig) ([]byte, error) {
	if !isIdentifier(cfg.PackageName) {
		return nil, fmt.Errorf("invalid package name %q", cfg.PackageName)
	}

	names := reg.Names()
	consts := make([]string, len(names))
	seen := make(map[string]string, len(names))
	for i, name := range names {
		c := constName(cfg.Prefix, name)
		if !isIdentifier(c) {
			return nil, fmt.Errorf("parameter %s: %q is not a valid identifier", name, c)
		}
		if other, ok := seen[c]; ok {
			return nil, fmt.Errorf("parameters %s and %s both map to %s", other, name, c)
		}
		seen[c] = name
		consts[i] = c
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by \"factsys generate\"; DO NOT EDIT.\n")
	if cfg.SourceFile != "" {
		fmt.Fprintf(&buf, "// Source: %s\n", cfg.SourceFile)
	}
	fmt.Fprintf(&buf, "\npackage %s\n\n", cfg.PackageName)

	if len(names) > 0 {
		buf.WriteString("// Parameter names.\nconst (\n")
		for i, name := range names {
			m, _ := reg.Lookup(name)
			fmt.Fprintf(&buf, "\t// %s\n", constComment(consts[i], m))
			fmt.Fprintf(&buf, "\t%s = %s\n", consts[i], strconv.Quote(name))
		}
		buf.WriteString(")\n\n")
	}

	allName := cfg.Prefix + "Names"
	if cfg.Prefix == "" {
		allName = "AllNames"
	}
	fmt.Fprintf(&buf, "// %s lists every parameter name, sorted.\n", allName)
	fmt.Fprintf(&buf, "var %s = []string{\n", allName)
	for _, c := range consts {
		fmt.Fprintf(&buf, "\t%s,\n", c)
	}
	buf.WriteString("}\n")

	return imports.Process(cfg.Output, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
}

// constComment describes a parameter as "<const> is NAME: short (units), type T."
func constComment(c string, m *factsys.MetaData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is %s", c, m.Name())
	if d := m.ShortDescription(); d != "" {
		fmt.Fprintf(&b, ": %s", strings.TrimSuffix(d, "."))
	}
	if u := m.Units(); u != "" {
		fmt.Fprintf(&b, " (%s)", u)
	}
	fmt.Fprintf(&b, ", type %s", m.Type())
	if m.HasRange() {
		fmt.Fprintf(&b, ", range [%s, %s]", m.Min(), m.Max())
	}
	b.WriteString(".")
	return b.String()
}

// constName generates a constant name from a parameter name.
// e.g., "RTL_ALT" -> "ParamRtlAlt"
func constName(prefix, name string) string {
	return prefix + toCamelCase(name)
}

var separatorRegex = regexp.MustCompile(`[_\-\.\s]+`)

// toCamelCase converts an upper snake case parameter name to CamelCase.
func toCamelCase(s string) string {
	parts := separatorRegex.Split(s, -1)

	var result strings.Builder
	for _, part := range parts {
		runes := []rune(strings.ToLower(part))
		if len(runes) == 0 {
			continue
		}
		runes[0] = unicode.ToUpper(runes[0])
		result.WriteString(string(runes))
	}
	return result.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
