// Package parse contains the small text parsers the booking core relies on:
// the class-block marker embedded in availability notes, the COUNT token of
// recurrence rules, and the free-text synonyms accepted for attendance and
// closure values.
package parse

import (
	"regexp"
	"strings"
)

// ClassBlockPrefix marks an availability block as an institutional class
// block. The remainder of the notes encodes the course code and group:
//
//	class:MAT101 G2 Calculus I
const ClassBlockPrefix = "class:"

// ClassBlock is the decoded form of a class-block marker.
type ClassBlock struct {
	Course string
	Group  string
	Title  string
}

var classBlockRe = regexp.MustCompile(`^\s*([A-Za-z0-9_-]+)\s+(\S+)\s*(.*)$`)

// ClassBlockNotes reports whether the notes carry the class-block marker and,
// if so, decodes it.
func ClassBlockNotes(notes string) (ClassBlock, bool) {
	trimmed := strings.TrimSpace(notes)
	if !strings.HasPrefix(strings.ToLower(trimmed), ClassBlockPrefix) {
		return ClassBlock{}, false
	}
	rest := trimmed[len(ClassBlockPrefix):]
	m := classBlockRe.FindStringSubmatch(rest)
	if m == nil {
		return ClassBlock{}, false
	}
	return ClassBlock{
		Course: strings.ToUpper(m[1]),
		Group:  m[2],
		Title:  strings.TrimSpace(m[3]),
	}, true
}
