package page

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// MarkdownLoader renders Markdown templates to HTML with goldmark. Raw HTML
// is allowed so that binding targets can be written inline, then the output
// is sanitized with a policy that keeps the binding attribute.
type MarkdownLoader struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewMarkdownLoader(attr string) *MarkdownLoader {
	if attr == "" {
		attr = "user"
	}
	p := bluemonday.UGCPolicy()
	p.AllowElements("span", "div", "section", "header", "footer")
	p.AllowAttrs(strings.ToLower(attr), "class").Globally()

	return &MarkdownLoader{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		policy: p,
	}
}

func (l *MarkdownLoader) Load(r io.Reader, filename string) (*html.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	title := markdownTitle(l.md, src)
	if title == "" {
		title = strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown")
	}

	var body bytes.Buffer
	if err := l.md.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	clean := l.policy.SanitizeBytes(body.Bytes())

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	doc.WriteString(html.EscapeString(title))
	doc.WriteString("</title></head><body>\n")
	doc.Write(clean)
	doc.WriteString("</body></html>\n")

	root, err := html.Parse(&doc)
	if err != nil {
		return nil, fmt.Errorf("parse rendered markdown: %w", err)
	}
	return root, nil
}

// markdownTitle returns the text of the first level-1 heading.
func markdownTitle(md goldmark.Markdown, src []byte) string {
	doc := md.Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return strings.TrimSpace(inlineText(h, src))
		}
	}
	return ""
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			continue
		}
		buf.WriteString(inlineText(c, src))
	}
	return buf.String()
}
