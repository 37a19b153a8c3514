package epub

import (
	"fmt"
	stdhtml "html"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// headingPattern grabs the first top-level heading of a chapter
// document.
var headingPattern = regexp.MustCompile(`<h[1-3][^>]*>([^<]+)</h[1-3]>`)

// blankRuns collapses excess blank lines left by nested block markup.
var blankRuns = regexp.MustCompile(`\n{3,}`)

// blockTags start their text on a fresh paragraph.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "blockquote": true, "figcaption": true,
	"dt": true, "dd": true, "pre": true,
}

// skipTags have no speakable content.
var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
	"noscript": true, "svg": true, "math": true,
}

// extractTitle pulls the chapter title from the first heading,
// falling back to a numbered title.
func extractTitle(doc string, order int) string {
	if m := headingPattern.FindStringSubmatch(doc); m != nil {
		if title := strings.TrimSpace(stdhtml.UnescapeString(m[1])); title != "" {
			return title
		}
	}
	return fmt.Sprintf("Chapter %d", order+1)
}

// extractText reduces an XHTML document to plain text. Block elements
// become paragraph breaks so downstream segmentation sees the
// document's structure; markup, scripts and styles are dropped.
func extractText(r io.Reader) string {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			text := blankRuns.ReplaceAllString(b.String(), "\n\n")
			return strings.TrimSpace(text)

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case skipTags[tag]:
				skipDepth++
			case blockTags[tag]:
				b.WriteString("\n\n")
			case tag == "br":
				b.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case skipTags[tag]:
				if skipDepth > 0 {
					skipDepth--
				}
			case blockTags[tag]:
				b.WriteString("\n\n")
			}

		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}
