// Package text normalizes extracted chapter text before segmentation.
// Scanned e-books carry OCR artifacts, stray page furniture, and
// typography that speech backends read out loud; Clean removes them
// while preserving paragraph structure.
package text

import (
	"regexp"
	"strings"
)

var (
	entityRe     = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
	lonelyLRe    = regexp.MustCompile(`\bl\b`)
	lonelyORe    = regexp.MustCompile(`\bO\b`)
	pageRefRe    = regexp.MustCompile(`\b[Pp]age\s+\d+\b`)
	pageRangeRe  = regexp.MustCompile(`\b\d+\s*[-–—]\s*\d+\b`)
	doubleQuotRe = regexp.MustCompile("[“”]")
	singleQuotRe = regexp.MustCompile("[‘’`]")
	dashRe       = regexp.MustCompile(`[–—]`)
	manyDotsRe   = regexp.MustCompile(`\.{3,}`)
	spacePunctRe = regexp.MustCompile(`\s+([,.!?;:])`)
	punctSpaceRe = regexp.MustCompile(`([,.!?;:])\s+`)
	hyphenRe     = regexp.MustCompile(`(\w+)-\s*\n\s*(\w+)`)
	boundaryRe   = regexp.MustCompile(`([.!?])\s*([A-Z])`)
	blankLineRe  = regexp.MustCompile(`\n\s*\n`)
	controlRe    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
)

// abbreviations spelled out so backends do not read "Mr." as a sentence
// break or spell the letters.
var abbreviations = strings.NewReplacer(
	"Mr.", "Mister",
	"Mrs.", "Missus",
	"Dr.", "Doctor",
	"Prof.", "Professor",
	"St.", "Saint",
	"vs.", "versus",
	"etc.", "etcetera",
	"i.e.", "that is",
	"e.g.", "for example",
)

// Clean normalizes raw chapter text. It is a pure function: same input,
// same output, no I/O.
//
// The baseline pass decodes entity remnants, normalizes quotes, dashes
// and punctuation spacing, and collapses whitespace within paragraphs
// while keeping blank-line paragraph breaks intact. The aggressive pass
// (on by default) additionally rejoins words hyphenated across line
// breaks, expands abbreviations, and repairs missing spaces at sentence
// boundaries.
func Clean(raw string, aggressive bool) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = controlRe.ReplaceAllString(s, "")

	// Hyphenation repair needs the original line breaks, so it runs
	// before any whitespace collapsing.
	if aggressive {
		s = hyphenRe.ReplaceAllString(s, "$1$2")
	}

	paras := blankLineRe.Split(s, -1)
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		p = cleanParagraph(p, aggressive)
		if p != "" {
			out = append(out, p)
		}
	}

	return strings.Join(out, "\n\n")
}

func cleanParagraph(p string, aggressive bool) string {
	p = entityRe.ReplaceAllString(p, " ")
	p = strings.Join(strings.Fields(p), " ")

	p = lonelyLRe.ReplaceAllString(p, "I")
	p = lonelyORe.ReplaceAllString(p, "0")
	p = pageRefRe.ReplaceAllString(p, "")
	p = pageRangeRe.ReplaceAllString(p, "")

	p = doubleQuotRe.ReplaceAllString(p, `"`)
	p = singleQuotRe.ReplaceAllString(p, "'")
	p = dashRe.ReplaceAllString(p, "-")
	p = manyDotsRe.ReplaceAllString(p, "...")

	p = spacePunctRe.ReplaceAllString(p, "$1")
	p = punctSpaceRe.ReplaceAllString(p, "$1 ")

	if aggressive {
		p = abbreviations.Replace(p)
		p = boundaryRe.ReplaceAllString(p, "$1 $2")
	}

	return strings.TrimSpace(p)
}
