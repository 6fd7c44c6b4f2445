package api

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/export"
	"github.com/dgallion1/badgebind/internal/page"
	"github.com/dgallion1/badgebind/internal/pipeline"
	"golang.org/x/net/html"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// boundPage loads the template and runs one bind pass. A fetch failure
// still returns the unbound page; it is reported in the X-Bind-Error header.
func (s *Server) boundPage(w http.ResponseWriter, r *http.Request) (*html.Node, bool) {
	root, err := page.LoadFile(s.cfg.TemplatePath, s.binder.Attr())
	if err != nil {
		s.log.Error("load template", "path", s.cfg.TemplatePath, "error", err)
		jsonError(w, "template unavailable", http.StatusInternalServerError)
		return nil, false
	}

	res, err := s.binder.Run(r.Context(), root)
	if err != nil {
		w.Header().Set("X-Bind-Error", headerSafe(err.Error()))
		return root, true
	}
	setResultHeaders(w, res)
	return root, true
}

func setResultHeaders(w http.ResponseWriter, res binder.Result) {
	w.Header().Set("X-Bind-Bound", strconv.Itoa(res.Bound))
	w.Header().Set("X-Bind-Missing", strconv.Itoa(len(res.Missing)))
}

func (s *Server) handleBadgeHTML(w http.ResponseWriter, r *http.Request) {
	root, ok := s.boundPage(w, r)
	if !ok {
		return
	}
	body, err := export.HTMLBytes(root)
	if err != nil {
		jsonError(w, "render failed", http.StatusInternalServerError)
		return
	}
	s.writeCached(w, r, "text/html; charset=utf-8", body)
}

func (s *Server) handleBadgeMarkdown(w http.ResponseWriter, r *http.Request) {
	root, ok := s.boundPage(w, r)
	if !ok {
		return
	}
	md, err := export.Markdown(root)
	if err != nil {
		s.log.Error("markdown export", "error", err)
		jsonError(w, "render failed", http.StatusInternalServerError)
		return
	}
	s.writeCached(w, r, "text/markdown; charset=utf-8", []byte(md))
}

func (s *Server) handleBadgeDOCX(w http.ResponseWriter, r *http.Request) {
	root, ok := s.boundPage(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.DOCX(&buf, root); err != nil {
		s.log.Error("docx export", "error", err)
		jsonError(w, "render failed", http.StatusInternalServerError)
		return
	}
	name := strings.TrimSuffix(filepath.Base(s.cfg.TemplatePath), filepath.Ext(s.cfg.TemplatePath))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(name)+".docx"))
	s.writeCached(w, r, docxContentType, buf.Bytes())
}

// writeCached writes body with a content-hash ETag and honors If-None-Match.
func (s *Server) writeCached(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	etag := `"` + pipeline.ContentHashHex(body)[:16] + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(body)
}

func headerSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "badge"
	}
	return name
}
