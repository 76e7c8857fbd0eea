// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import "sort"

// TailWindow is the amount of trailing data a Scanner carries forward
// between Scan calls, so that a pattern split across a chunk boundary
// is still detected once both halves have arrived. No catalog pattern
// exceeds this length in practical usage.
const TailWindow = 8 * 1024

// Match is a single detected occurrence of a catalog pattern. The
// matched bytes are deliberately not included: downstream code must
// never be able to exfiltrate the secret through the scanner's API.
type Match struct {
	PatternName string
	Line        int
	Column      int
}

// reportKey identifies a single match instance by the pattern that
// found it and its absolute byte offset in the overall stream, so the
// scanner can recognize when a match rescanned as part of the carried
// tail is one it already reported.
type reportKey struct {
	patternIndex int
	start        int64
}

// Scanner detects catalog patterns across a stream delivered through
// repeated Scan calls, followed by one Finalize call. A Scanner is not
// safe for concurrent use.
type Scanner struct {
	tail     []byte
	tailPos  int64 // absolute stream offset of tail[0]
	line     int   // line number at tail[0] (1-based)
	column   int   // column at tail[0] (1-based)
	reported map[reportKey]struct{}
	done     bool
}

// New returns a Scanner ready to receive Scan calls.
func New() *Scanner {
	return &Scanner{
		line:     1,
		column:   1,
		reported: make(map[reportKey]struct{}),
	}
}

// Scan searches tail‖chunk for every catalog pattern, reports any
// match not already reported from a previous call, then carries the
// last TailWindow bytes of tail‖chunk forward as the new tail. It
// panics if called after Finalize.
func (s *Scanner) Scan(chunk []byte) []Match {
	if s.done {
		panic("scanner: Scan called after Finalize")
	}
	return s.scanBuffer(chunk)
}

// Finalize searches whatever remains in the tail buffer one last time
// and releases the scanner's state. A Scanner must not be reused
// after Finalize.
func (s *Scanner) Finalize() []Match {
	if s.done {
		return nil
	}
	matches := s.scanBuffer(nil)
	s.done = true
	s.tail = nil
	s.reported = nil
	return matches
}

// foundMatch pairs a Match with the absolute stream offset it started
// at, so hits collected out of pattern order can be sorted back into
// stream order before being returned.
type foundMatch struct {
	start int64
	match Match
}

func (s *Scanner) scanBuffer(chunk []byte) []Match {
	buffer := make([]byte, 0, len(s.tail)+len(chunk))
	buffer = append(buffer, s.tail...)
	buffer = append(buffer, chunk...)

	var hits []foundMatch

	for patternIndex, pattern := range Catalog {
		for _, span := range pattern.Regex.FindAllIndex(buffer, -1) {
			start := s.tailPos + int64(span[0])
			key := reportKey{patternIndex: patternIndex, start: start}
			if _, already := s.reported[key]; already {
				continue
			}
			s.reported[key] = struct{}{}
			line, column := advancePosition(buffer, span[0], s.line, s.column)
			hits = append(hits, foundMatch{start: start, match: Match{
				PatternName: pattern.Name,
				Line:        line,
				Column:      column,
			}})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = h.match
	}

	newTailLen := len(buffer)
	if newTailLen > TailWindow {
		newTailLen = TailWindow
	}
	newTailOffset := len(buffer) - newTailLen
	newTailPos := s.tailPos + int64(newTailOffset)
	newLine, newColumn := advancePosition(buffer, newTailOffset, s.line, s.column)

	for key := range s.reported {
		if key.start < newTailPos {
			delete(s.reported, key)
		}
	}

	s.tail = append([]byte(nil), buffer[newTailOffset:]...)
	s.tailPos = newTailPos
	s.line = newLine
	s.column = newColumn

	return matches
}

// advancePosition returns the (line, column) — both 1-based — reached
// after walking buffer[:offset] starting from (baseLine, baseColumn)
// at buffer[0].
func advancePosition(buffer []byte, offset int, baseLine, baseColumn int) (line, column int) {
	line, column = baseLine, baseColumn
	for i := 0; i < offset; i++ {
		if buffer[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
