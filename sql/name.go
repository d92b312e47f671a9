package sql

import (
	"strings"
)

// Path is a sequence of schema, table and column names: a.b.c
type Path []Identifier

func (p Path) String() string {
	var b strings.Builder
	for i, id := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(id.String())
	}
	return b.String()
}

func (p Path) Equal(p2 Path) bool {
	if len(p) != len(p2) {
		return false
	}
	for i := range p {
		if p[i] != p2[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p starts with all of prefix.
func (p Path) HasPrefix(prefix Path) bool {
	return len(p) >= len(prefix) && p[:len(prefix)].Equal(prefix)
}

// HasSuffix reports whether p ends with all of suffix.
func (p Path) HasSuffix(suffix Path) bool {
	return len(p) >= len(suffix) && p[len(p)-len(suffix):].Equal(suffix)
}

// Last returns the final segment of p, or 0 if p is empty.
func (p Path) Last() Identifier {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// Append returns a new path; p is never modified.
func (p Path) Append(ids ...Identifier) Path {
	np := make(Path, 0, len(p)+len(ids))
	np = append(np, p...)
	return append(np, ids...)
}

// ParsePath splits a dotted name into unquoted identifiers.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	var p Path
	for _, n := range strings.Split(s, ".") {
		p = append(p, UnquotedID(strings.TrimSpace(n)))
	}
	return p
}
