// Package binder fills page elements that carry a binding attribute with
// values looked up in a data document.
//
// A pass fetches the document once and then walks the page synchronously.
// A fetch failure aborts the whole pass and leaves the page untouched; a path
// that does not resolve only changes the text of its own element.
package binder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/badgebind/internal/datadoc"
	"github.com/dgallion1/badgebind/internal/stats"
	"golang.org/x/net/html"
)

// DefaultAttr is the attribute that marks a binding target.
const DefaultAttr = "user"

// Fetcher supplies the data document for a pass.
type Fetcher interface {
	Fetch(ctx context.Context) (datadoc.Document, error)
}

// Result summarizes one bind pass.
type Result struct {
	Bound   int      `json:"bound"`
	Missing []string `json:"missing,omitempty"`
}

// NotFoundText is the placeholder written into an element whose path does
// not resolve.
func NotFoundText(path string) string {
	return fmt.Sprintf("Variable %s not found", path)
}

// Binder runs bind passes against a single data source.
type Binder struct {
	src   Fetcher
	attr  string
	log   *slog.Logger
	stats *stats.Window
}

// New creates a Binder. An empty attr means DefaultAttr; st may be nil.
func New(src Fetcher, attr string, log *slog.Logger, st *stats.Window) *Binder {
	if attr == "" {
		attr = DefaultAttr
	}
	if log == nil {
		log = slog.Default()
	}
	return &Binder{
		src:   src,
		attr:  strings.ToLower(attr),
		log:   log,
		stats: st,
	}
}

// Attr returns the binding attribute name.
func (b *Binder) Attr() string { return b.attr }

// Run fetches the data document and binds root. On fetch failure the error
// is logged once, returned, and root is not modified.
func (b *Binder) Run(ctx context.Context, root *html.Node) (Result, error) {
	doc, err := b.src.Fetch(ctx)
	if err != nil {
		b.log.Error("error fetching data", "error", err)
		if b.stats != nil {
			b.stats.RecordFailure()
		}
		return Result{}, err
	}

	start := time.Now()
	res := Bind(root, doc, b.attr)
	if b.stats != nil {
		b.stats.RecordPass(time.Since(start), res.Bound, len(res.Missing))
	}
	return res, nil
}

// Bind sets the text of every element under root that carries attr, in
// document order. It is safe to call repeatedly with the same document.
func Bind(root *html.Node, doc datadoc.Document, attr string) Result {
	attr = strings.ToLower(attr)
	var res Result
	for _, el := range Targets(root, attr) {
		path, _ := Attr(el, attr)
		if v, ok := datadoc.Resolve(doc, path); ok {
			SetText(el, v.String())
			res.Bound++
			continue
		}
		SetText(el, NotFoundText(path))
		res.Missing = append(res.Missing, path)
	}
	return res
}

// Targets collects the elements carrying attr in document order. Template
// contents are inert and skipped.
func Targets(root *html.Node, attr string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := Attr(n, attr); ok {
				out = append(out, n)
			}
			if n.Data == "template" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetText replaces all children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}
