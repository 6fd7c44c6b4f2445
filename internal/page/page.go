// Package page loads the HTML tree that a bind pass mutates. Templates are
// HTML files or Markdown files rendered to HTML.
package page

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Loader parses template bytes into an HTML document tree.
type Loader interface {
	Load(r io.Reader, filename string) (*html.Node, error)
}

// SupportedExtensions lists template extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".html":     true,
	".htm":      true,
	".md":       true,
	".markdown": true,
}

// ForFile returns the loader for a template filename. attr is the binding
// attribute that must survive Markdown sanitizing.
func ForFile(filename, attr string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".html", ".htm":
		return &HTMLLoader{}, nil
	case ".md", ".markdown":
		return NewMarkdownLoader(attr), nil
	default:
		return nil, fmt.Errorf("unsupported template extension: %s", ext)
	}
}

// IsSupportedExtension checks if a template extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// LoadFile opens and parses the template at path.
func LoadFile(path, attr string) (*html.Node, error) {
	l, err := ForFile(path, attr)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()
	return l.Load(f, filepath.Base(path))
}

// Template is a loaded template kept as source so that every bind pass
// starts from a fresh tree.
type Template struct {
	Name   string
	loader Loader
	src    []byte
}

// ReadTemplate reads the template at path.
func ReadTemplate(path, attr string) (*Template, error) {
	l, err := ForFile(path, attr)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return &Template{Name: filepath.Base(path), loader: l, src: src}, nil
}

// Tree parses a new copy of the template.
func (t *Template) Tree() (*html.Node, error) {
	return t.loader.Load(bytes.NewReader(t.src), t.Name)
}
