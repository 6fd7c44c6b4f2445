// Package export renders a bound page tree to HTML, Markdown or DOCX.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/dgallion1/badgebind/internal/page"
	"golang.org/x/net/html"
)

// HTML writes root as an HTML document.
func HTML(w io.Writer, root *html.Node) error {
	if err := html.Render(w, root); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// HTMLBytes renders root into memory.
func HTMLBytes(root *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := HTML(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Markdown converts the page body to Markdown. The converter may rewrite
// the tree, so root should not be rendered again afterwards.
func Markdown(root *html.Node) (string, error) {
	if body := page.Body(root); body != nil {
		root = body
	}
	out, err := mdConverter.ConvertNode(root)
	if err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return strings.TrimSpace(string(out)) + "\n", nil
}
