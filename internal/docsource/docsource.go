// Package docsource stands in for the editing surface: it reads a document's
// paragraphs from disk into an indexed snapshot and writes edited paragraphs
// back. The scan engine never calls it; callers hand its output to scan.
package docsource

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/paperpilot/internal/scan"
)

// Parser turns raw document bytes into paragraphs.
// Implementations must be deterministic.
type Parser interface {
	Parse(input []byte) ([]scan.Paragraph, error)
}

// TextParser treats every line as one paragraph, the way a word processor
// body enumerates paragraphs. Blank lines keep their index.
type TextParser struct{}

// HTMLParser collects block-level elements (p, headings, li, figcaption,
// caption, td) in document order.
type HTMLParser struct{}

// ParserFor picks a parser by file extension.
func ParserFor(path string) Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return HTMLParser{}
	default:
		return TextParser{}
	}
}

// Read loads the paragraphs of the document at path.
func Read(path string) ([]scan.Paragraph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ps, err := ParserFor(path).Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ps, nil
}

// Write stores paragraphs as a text document, one paragraph per line.
func Write(path string, paragraphs []scan.Paragraph) error {
	var b strings.Builder
	for i, p := range paragraphs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Text)
	}
	b.WriteByte('\n')
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// Text joins paragraphs into the searchable body text.
func Text(paragraphs []scan.Paragraph) string {
	parts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

func (TextParser) Parse(input []byte) ([]scan.Paragraph, error) {
	s := string(input)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []scan.Paragraph{}, nil
	}
	lines := strings.Split(s, "\n")
	out := make([]scan.Paragraph, len(lines))
	for i, line := range lines {
		out[i] = scan.Paragraph{Index: i, Text: normalize(strings.TrimRight(line, "\r"))}
	}
	return out, nil
}

func (HTMLParser) Parse(input []byte) ([]scan.Paragraph, error) {
	root, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}
	nodes := blocks(root)
	out := make([]scan.Paragraph, len(nodes))
	for i, n := range nodes {
		out[i] = scan.Paragraph{Index: i, Text: blockText(n)}
	}
	return out, nil
}

// blocks returns the paragraph-bearing elements in document order. Parse and
// Save must agree on it so paragraph i maps back to the same node.
func blocks(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script", "style", "noscript", "head":
				return
			case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "figcaption", "caption", "td", "th":
				out = append(out, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func blockText(n *html.Node) string {
	var b strings.Builder
	collectText(&b, n)
	return normalize(collapseSpaces(b.String()))
}

// Save writes paragraphs to dst. When both src and dst are HTML the source
// tree is kept: only blocks whose text changed get their content replaced
// (inline markup inside such a block is dropped), everything else is
// rendered back as parsed. Other combinations are written as text.
func Save(src, dst string, paragraphs []scan.Paragraph) error {
	_, srcHTML := ParserFor(src).(HTMLParser)
	_, dstHTML := ParserFor(dst).(HTMLParser)
	if !srcHTML || !dstHTML {
		return Write(dst, paragraphs)
	}
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	out, err := rewriteHTML(input, paragraphs)
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", src, err)
	}
	return os.WriteFile(dst, out, 0o644)
}

var fullDocumentRe = regexp.MustCompile(`(?i)<html[\s>]`)

func rewriteHTML(input []byte, paragraphs []scan.Paragraph) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}
	nodes := blocks(root)
	if len(nodes) != len(paragraphs) {
		return nil, fmt.Errorf("document has %d blocks, got %d paragraphs", len(nodes), len(paragraphs))
	}
	for i, n := range nodes {
		text := paragraphs[i].Text
		if blockText(n) == text {
			continue
		}
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}

	var buf bytes.Buffer
	if fullDocumentRe.Match(input) {
		if err := html.Render(&buf, root); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	// fragments: render the body children only, no synthesized wrapper
	body := findElement(root, "body")
	if body == nil {
		body = root
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, err
		}
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findElement(c, name); f != nil {
			return f
		}
	}
	return nil
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		switch strings.ToLower(n.Data) {
		case "script", "style":
			return
		case "br":
			b.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

var spaceRunRe = regexp.MustCompile(`[ \t\r\n\f\v]+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}

// normalize converts text to NFC so decomposed Hangul or accented labels
// compare equal to the literals in profiles.
func normalize(s string) string {
	return norm.NFC.String(s)
}

var lineBreakRunRe = regexp.MustCompile(`[\r\n]+`)

// CleanSelection prepares a user selection for formatting: runs of line
// breaks become a single space and the result is trimmed.
func CleanSelection(s string) string {
	return strings.TrimSpace(lineBreakRunRe.ReplaceAllString(s, " "))
}
