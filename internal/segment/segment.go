// Package segment splits cleaned chapter text into ordered synthesis units.
package segment

import (
	"strings"
	"unicode"
)

// DefaultMaxUnitChars is the default upper bound for one synthesis unit.
// Speech backends degrade on very long inputs, and smaller units give the
// cache more reuse across chapters.
const DefaultMaxUnitChars = 1000

// Kind tags a unit's position in the source text. It influences pacing
// (paragraph ends get a longer pause) but never ordering.
type Kind int

const (
	// KindSentence is a unit inside a paragraph.
	KindSentence Kind = iota

	// KindParagraphEnd is the last unit of a paragraph.
	KindParagraphEnd
)

// Unit is one chunk of text scheduled for independent synthesis.
// Units are immutable once created; Index fixes the unit's position in
// the final audio regardless of synthesis completion order.
type Unit struct {
	// Index is the unit's position in the chapter, starting at 0.
	Index int

	// Text is the unit content, non-empty and trimmed.
	Text string

	// Kind tags the unit for pacing.
	Kind Kind
}

// Splitter segments text on sentence and paragraph boundaries.
type Splitter struct {
	maxUnitChars  int
	abbreviations map[string]bool
}

// NewSplitter creates a splitter with the given unit size bound.
// A non-positive bound falls back to DefaultMaxUnitChars.
func NewSplitter(maxUnitChars int) *Splitter {
	if maxUnitChars <= 0 {
		maxUnitChars = DefaultMaxUnitChars
	}
	return &Splitter{
		maxUnitChars:  maxUnitChars,
		abbreviations: makeAbbreviationMap(),
	}
}

// Split segments text into ordered units. Concatenating the unit texts in
// order reproduces the input modulo whitespace normalization. No unit is
// empty, and no unit exceeds the configured bound by more than one word.
// Empty or whitespace-only input yields an empty slice.
func (s *Splitter) Split(text string) []Unit {
	var units []Unit

	for _, para := range splitParagraphs(text) {
		sentences := s.splitSentences(para)
		packed := s.pack(sentences)
		for i, u := range packed {
			kind := KindSentence
			if i == len(packed)-1 {
				kind = KindParagraphEnd
			}
			units = append(units, Unit{
				Index: len(units),
				Text:  u,
				Kind:  kind,
			})
		}
	}

	return units
}

// Split segments text with the given unit size bound using a default
// splitter. See Splitter.Split.
func Split(text string, maxUnitChars int) []Unit {
	return NewSplitter(maxUnitChars).Split(text)
}

// splitParagraphs splits on blank lines and drops empty paragraphs.
func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// pack accumulates sentences into units up to the size bound. A single
// sentence longer than the bound is hard-split at whitespace.
func (s *Splitter) pack(sentences []string) []string {
	var units []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			units = append(units, cur.String())
			cur.Reset()
		}
	}

	for _, sent := range sentences {
		if len(sent) > s.maxUnitChars {
			flush()
			units = append(units, hardSplit(sent, s.maxUnitChars)...)
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(sent) > s.maxUnitChars {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(sent)
	}
	flush()

	return units
}

// hardSplit cuts an over-long sentence at the last whitespace before the
// bound. When the first word itself exceeds the bound, the fragment keeps
// that one word whole, so a fragment overshoots by at most one word.
func hardSplit(sent string, maxChars int) []string {
	var parts []string

	rest := sent
	for len(rest) > maxChars {
		cut := strings.LastIndexFunc(rest[:maxChars+1], unicode.IsSpace)
		if cut <= 0 {
			// No break point inside the bound: extend to the end of the word.
			next := strings.IndexFunc(rest[maxChars:], unicode.IsSpace)
			if next < 0 {
				break
			}
			cut = maxChars + next
		}
		part := strings.TrimSpace(rest[:cut])
		if part != "" {
			parts = append(parts, part)
		}
		rest = strings.TrimSpace(rest[cut:])
	}
	if rest != "" {
		parts = append(parts, rest)
	}

	return parts
}

// splitSentences splits one paragraph into sentences on terminal
// punctuation, guarding against abbreviations, decimal numbers, and
// ellipses that do not end a sentence.
func (s *Splitter) splitSentences(para string) []string {
	// Newlines inside a paragraph are soft breaks.
	para = strings.Join(strings.Fields(para), " ")

	runes := []rune(para)
	var sentences []string
	lastStart := 0

	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}

		// Collect runs like "?!" or "!!!" as one terminator.
		punctEnd := i + 1
		for punctEnd < len(runes) && (runes[punctEnd] == '.' || runes[punctEnd] == '!' || runes[punctEnd] == '?') {
			punctEnd++
		}
		// Closing quotes and brackets belong to the sentence.
		for punctEnd < len(runes) && isClosing(runes[punctEnd]) {
			punctEnd++
		}

		if !s.isSentenceEnd(runes, i) {
			i = punctEnd - 1
			continue
		}

		sent := strings.TrimSpace(string(runes[lastStart:punctEnd]))
		if sent != "" {
			sentences = append(sentences, sent)
		}

		for punctEnd < len(runes) && unicode.IsSpace(runes[punctEnd]) {
			punctEnd++
		}
		lastStart = punctEnd
		i = punctEnd - 1
	}

	if lastStart < len(runes) {
		if sent := strings.TrimSpace(string(runes[lastStart:])); sent != "" {
			sentences = append(sentences, sent)
		}
	}

	return sentences
}

// isSentenceEnd reports whether the punctuation at pos really terminates
// a sentence.
func (s *Splitter) isSentenceEnd(runes []rune, pos int) bool {
	punct := runes[pos]

	if punct == '.' {
		// Word leading up to the period, lowercased.
		start := pos - 1
		for start >= 0 && !unicode.IsSpace(runes[start]) {
			start--
		}
		word := strings.ToLower(string(runes[start+1 : pos]))

		if s.abbreviations[word] || s.abbreviations[word+"."] {
			return false
		}
		// Multi-dot abbreviations like "u.s" or "ph.d".
		if strings.Contains(word, ".") {
			return false
		}
		// Decimal numbers: "3.14".
		if pos > 0 && pos+1 < len(runes) && unicode.IsDigit(runes[pos-1]) && unicode.IsDigit(runes[pos+1]) {
			return false
		}
		// Ellipsis.
		if pos+2 < len(runes) && runes[pos+1] == '.' && runes[pos+2] == '.' {
			return false
		}
	}

	// Skip trailing punctuation and closers to find what follows.
	next := pos + 1
	for next < len(runes) && (runes[next] == '.' || runes[next] == '!' || runes[next] == '?' || isClosing(runes[next])) {
		next++
	}
	if next >= len(runes) {
		return true
	}
	if !unicode.IsSpace(runes[next]) {
		return false
	}
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}
	if unicode.IsUpper(runes[next]) || unicode.IsDigit(runes[next]) || runes[next] == '"' || runes[next] == '\'' {
		return true
	}
	// Be lenient for emphatic terminators.
	return punct == '!' || punct == '?'
}

func isClosing(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']'
}

// makeAbbreviationMap lists words whose trailing period does not end a
// sentence.
func makeAbbreviationMap() map[string]bool {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "rev", "gen", "capt",
		"st", "ave", "blvd", "rd", "ln", "ct",
		"i.e", "e.g", "etc", "vs", "cf", "al", "approx",
		"inc", "ltd", "co", "corp",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"mon", "tue", "wed", "thu", "fri", "sat", "sun",
		"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi", "yd",
		"hr", "hrs", "min", "mins", "sec", "secs",
		"u.s", "u.k", "u.n", "e.u",
		"vol", "vols", "no", "nos", "pg", "pp", "ch", "fig",
	}

	m := make(map[string]bool, len(abbrevs)*2)
	for _, a := range abbrevs {
		m[a] = true
		if !strings.Contains(a, ".") {
			m[a+"."] = true
		}
	}
	return m
}
