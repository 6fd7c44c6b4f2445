package page

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestHTMLLoader_TitleAndBody(t *testing.T) {
	input := `<html><head><title> HTB Badge </title></head><body><p user="user_name">x</p></body></html>`
	l := &HTMLLoader{}
	root, err := l.Load(strings.NewReader(input), "badge.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Title(root); got != "HTB Badge" {
		t.Errorf("expected title %q, got %q", "HTB Badge", got)
	}
	body := Body(root)
	if body == nil {
		t.Fatal("expected body element")
	}
	if body.FirstChild == nil || body.FirstChild.Data != "p" {
		t.Errorf("expected <p> as first body child")
	}
}

func TestMarkdownLoader_KeepsBindingAttribute(t *testing.T) {
	input := "# Badge for <span user=\"user_name\">loading</span>\n\nRank: <span user=\"user_rank\" onclick=\"steal()\">?</span>\n"

	l := NewMarkdownLoader("user")
	root, err := l.Load(strings.NewReader(input), "badge.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := render(t, root)
	if !strings.Contains(out, `<span user="user_rank">?</span>`) {
		t.Errorf("expected binding attribute to survive sanitizing, got %s", out)
	}
	if strings.Contains(out, "onclick") {
		t.Errorf("expected event handler to be stripped, got %s", out)
	}
	if got := Title(root); got != "Badge for loading" {
		t.Errorf("expected title %q, got %q", "Badge for loading", got)
	}
}

func TestMarkdownLoader_StripsScripts(t *testing.T) {
	input := "Hello\n\n<script>alert(1)</script>\n"
	root, err := NewMarkdownLoader("user").Load(strings.NewReader(input), "x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out := render(t, root); strings.Contains(out, "alert(1)") {
		t.Errorf("expected script to be removed, got %s", out)
	}
}

func TestMarkdownLoader_TitleFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
	}
	l := NewMarkdownLoader("")
	for _, tt := range tests {
		root, err := l.Load(strings.NewReader("no heading here"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if got := Title(root); got != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, got)
		}
	}
}

func TestForFile(t *testing.T) {
	if _, err := ForFile("badge.HTML", "user"); err != nil {
		t.Errorf("expected html loader, got %v", err)
	}
	if _, ok := mustLoader(t, "badge.md").(*MarkdownLoader); !ok {
		t.Errorf("expected markdown loader")
	}
	if _, err := ForFile("badge.pdf", "user"); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if IsSupportedExtension("x.txt") {
		t.Error("expected .txt to be unsupported")
	}
}

func mustLoader(t *testing.T, name string) Loader {
	t.Helper()
	l, err := ForFile(name, "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return l
}

func TestTemplate_TreeIsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badge.html")
	if err := os.WriteFile(path, []byte(`<p user="a">x</p>`), 0o644); err != nil {
		t.Fatal(err)
	}
	tpl, err := ReadTemplate(path, "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, err := tpl.Tree()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Body(a).FirstChild.FirstChild.Data = "changed"

	b, err := tpl.Tree()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Body(b).FirstChild.FirstChild.Data; got != "x" {
		t.Errorf("expected fresh tree text %q, got %q", "x", got)
	}
	if _, err := LoadFile(path, "user"); err != nil {
		t.Errorf("LoadFile: %v", err)
	}
}
