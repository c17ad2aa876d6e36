package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sweetpotato0/ewa-agent/errors"
	"github.com/sweetpotato0/ewa-agent/rag/preprocess"
)

// Page is the text of one report page. Numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// Load reads a report file and returns its pages, dispatching on the extension.
// htmlPageSelector splits HTML exports into pages; empty keeps one page.
func Load(path, htmlPageSelector string) ([]Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return LoadPDF(path)
	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return LoadHTML(f, htmlPageSelector)
	case ".txt", ".text", ".md":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return LoadText(f)
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedFormat, filepath.Base(path))
	}
}

// LoadPDF extracts page text row by row. Pages without text are skipped.
func LoadPDF(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []Page
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		var b strings.Builder
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
		text := preprocess.Preprocess(b.String())
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// LoadHTML converts an HTML export into pages.
func LoadHTML(r io.Reader, pageSelector string) ([]Page, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	texts, err := preprocess.HTMLPages(string(raw), pageSelector)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return numbered(texts), nil
}

// LoadText reads plain text; form feeds separate pages.
func LoadText(r io.Reader) ([]Page, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return numbered(strings.Split(string(raw), "\f")), nil
}

func numbered(texts []string) []Page {
	var pages []Page
	for i, t := range texts {
		t = preprocess.Preprocess(t)
		if t == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: t})
	}
	return pages
}
