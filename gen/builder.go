// Package gen generates C++ extension-module source from a resolved binding
// AST: type registration in dependency order, argument-parsing call wrappers
// with lock and exception handling, virtual-method redirectors, property
// accessors and iterator protocol hooks.
package gen

import (
	"fmt"
	"io"
	"strings"
)

// indent is one indentation step in generated source.
const indent = "  "

// Builder accumulates generated source lines with indentation bookkeeping.
type Builder struct {
	lines []string
	depth int
}

// NewBuilder creates an empty source builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Line appends one formatted line at the current indentation.
func (b *Builder) Line(format string, args ...interface{}) {
	s := format
	if len(args) > 0 {
		s = fmt.Sprintf(format, args...)
	}
	if s == "" {
		b.lines = append(b.lines, "")
		return
	}
	b.lines = append(b.lines, strings.Repeat(indent, b.depth)+s)
}

// Blank appends an empty line.
func (b *Builder) Blank() {
	b.lines = append(b.lines, "")
}

// Indent increases the indentation for subsequent lines.
func (b *Builder) Indent() {
	b.depth++
}

// Dedent decreases the indentation.
func (b *Builder) Dedent() {
	if b.depth == 0 {
		panic("gen: Dedent below zero")
	}
	b.depth--
}

// Scope runs body one level deeper, restoring the indentation afterwards.
func (b *Builder) Scope(body func()) {
	b.Indent()
	body()
	b.Dedent()
}

// Append copies already-formatted lines, re-indented to the current level.
func (b *Builder) Append(lines []string) {
	prefix := strings.Repeat(indent, b.depth)
	for _, s := range lines {
		if s == "" {
			b.lines = append(b.lines, "")
		} else {
			b.lines = append(b.lines, prefix+s)
		}
	}
}

// Lines returns the accumulated source lines.
func (b *Builder) Lines() []string {
	return b.lines
}

// String joins the accumulated lines into a newline-terminated blob.
func (b *Builder) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}

// WriteTo writes every line followed by a newline.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, s := range b.lines {
		n, err := io.WriteString(w, s+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
