package models

import (
	"fmt"
	"strings"
)

// SelectorMode is the addressing mode of a SelectorSpec.
type SelectorMode int

const (
	// ModeStructural addresses elements with a CSS selector.
	ModeStructural SelectorMode = iota
	// ModePathQuery addresses elements with an XPath expression.
	ModePathQuery
)

func (m SelectorMode) String() string {
	switch m {
	case ModeStructural:
		return "structural"
	case ModePathQuery:
		return "path-query"
	default:
		return fmt.Sprintf("SelectorMode(%d)", int(m))
	}
}

// xpathPrefix lets configuration force path-query mode for expressions that
// do not start with "//" (e.g. "(//button)[2]").
const xpathPrefix = "xpath:"

// SelectorSpec names one logical page target and how to address it.
// Values are built once from configuration and never mutated.
type SelectorSpec struct {
	Name  string
	Value string
	Mode  SelectorMode
}

// ParseSelector builds a SelectorSpec, inferring the mode from the string:
// "//..." and "xpath:..." are path-queries, everything else is structural.
func ParseSelector(name, value string) SelectorSpec {
	v := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(v, xpathPrefix):
		return SelectorSpec{Name: name, Value: strings.TrimSpace(v[len(xpathPrefix):]), Mode: ModePathQuery}
	case strings.HasPrefix(v, "//"):
		return SelectorSpec{Name: name, Value: v, Mode: ModePathQuery}
	default:
		return SelectorSpec{Name: name, Value: v, Mode: ModeStructural}
	}
}

// IsZero reports whether the spec has no addressing string.
func (s SelectorSpec) IsZero() bool { return s.Value == "" }

// Descendant returns a spec matching child nodes of s. Both specs must use
// the same mode.
func (s SelectorSpec) Descendant(child SelectorSpec) (SelectorSpec, error) {
	if s.Mode != child.Mode {
		return SelectorSpec{}, fmt.Errorf("selector %q (%s) cannot scope %q (%s)",
			s.Name, s.Mode, child.Name, child.Mode)
	}
	out := SelectorSpec{Name: s.Name + "/" + child.Name, Mode: s.Mode}
	if s.Mode == ModePathQuery {
		out.Value = s.Value + "//" + strings.TrimLeft(strings.TrimPrefix(child.Value, "."), "/")
	} else {
		parents, children := splitGroup(s.Value), splitGroup(child.Value)
		joined := make([]string, 0, len(parents)*len(children))
		for _, p := range parents {
			for _, c := range children {
				joined = append(joined, p+" "+c)
			}
		}
		out.Value = strings.Join(joined, ", ")
	}
	return out, nil
}

// splitGroup splits a CSS selector group on top-level commas, leaving
// commas inside brackets, parentheses and quotes alone.
func splitGroup(sel string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range sel {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(sel[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(sel[start:]))
}

func (s SelectorSpec) String() string {
	return fmt.Sprintf("%s(%s %q)", s.Name, s.Mode, s.Value)
}
