package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t\x{00a0}]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
	// Running footers of exported reports, e.g. "Page 3 of 41" or "3/41".
	reFooter = regexp.MustCompile(`(?i)^\s*(page\s+\d+\s+(of|/)\s+\d+|\d+\s*/\s*\d+)\s*$`)
)

var ligatures = strings.NewReplacer(
	"ﬁ", "fi", "ﬂ", "fl", "ﬀ", "ff",
	"—", "-", "–", "-",
	"·", ".", "•", "-",
	"\r\n", "\n", "\r", "\n",
)

// CleanBasic normalizes extracted report text: control characters, common
// PDF ligatures, runs of blanks and runs of empty lines. Line structure is kept.
func CleanBasic(text string) string {
	if text == "" {
		return ""
	}
	b := ligatures.Replace(text)

	// remove control chars except newline
	b = strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, b)

	b = reSpaces.ReplaceAllString(b, " ")
	b = reNewlines.ReplaceAllString(b, "\n\n")
	return strings.TrimSpace(b)
}

// RemoveFooters drops page footer lines.
func RemoveFooters(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if reFooter.MatchString(l) {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// Preprocess cleans the text of one report page.
func Preprocess(raw string) string {
	return CleanBasic(RemoveFooters(raw))
}

// HTMLToText extracts report text from an HTML export, one block per line.
// Headings are kept verbatim so numbered section titles survive.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return selectionText(doc.Selection), nil
}

// HTMLPages splits an HTML export into pages on elements matching
// pageSelector. Without matches the whole body is one page.
func HTMLPages(html, pageSelector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	var pages []string
	if pageSelector != "" {
		doc.Find(pageSelector).Each(func(i int, s *goquery.Selection) {
			pages = append(pages, selectionText(s))
		})
	}
	if len(pages) == 0 {
		pages = append(pages, selectionText(doc.Selection))
	}
	return pages, nil
}

func selectionText(sel *goquery.Selection) string {
	var out []string
	sel.Find("h1,h2,h3,h4,h5,p,li,pre,table").Each(func(i int, s *goquery.Selection) {
		// nested matches are emitted by their outermost block
		if s.ParentsFiltered("li,table,pre").Length() > 0 {
			return
		}
		switch goquery.NodeName(s) {
		case "li":
			out = append(out, "- "+collapse(s.Text()))
		case "pre":
			out = append(out, strings.TrimSpace(s.Text()))
		case "table":
			out = append(out, parseTable(s))
		default:
			out = append(out, collapse(s.Text()))
		}
	})
	return strings.Join(out, "\n")
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func parseTable(sel *goquery.Selection) string {
	var rows []string
	sel.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cols []string
		tr.Find("th,td").Each(func(j int, td *goquery.Selection) {
			cols = append(cols, collapse(td.Text()))
		})
		if len(cols) > 0 {
			rows = append(rows, "| "+strings.Join(cols, " | ")+" |")
		}
	})
	return strings.Join(rows, "\n")
}
