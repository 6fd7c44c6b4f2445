// Package source retrieves the data document a page is bound against. A
// source is a file path or an http(s) URL, resolved once against a base
// location. Each Fetch is a single attempt.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/badgebind/internal/datadoc"
)

const maxDocumentBytes = 10 << 20

// Kind classifies a fetch failure.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindParse     Kind = "parse"
)

// FetchError reports why a data document could not be retrieved or decoded.
type FetchError struct {
	Location   string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Location, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Location, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Source fetches one data document.
type Source struct {
	location string
	remote   bool
	client   *http.Client
	ua       string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithUserAgent sets the User-Agent header for remote sources.
func WithUserAgent(ua string) Option {
	return func(s *Source) { s.ua = ua }
}

// New resolves location against base. base may be a directory or an http(s)
// URL; an absolute location ignores it.
func New(location, base string, opts ...Option) (*Source, error) {
	if location == "" {
		return nil, fmt.Errorf("source: empty location")
	}
	s := &Source{
		client: http.DefaultClient,
		ua:     "badgebind/1.0",
	}
	for _, o := range opts {
		o(s)
	}

	resolved, remote, err := resolve(location, base)
	if err != nil {
		return nil, err
	}
	s.location = resolved
	s.remote = remote
	return s, nil
}

func resolve(location, base string) (string, bool, error) {
	if isHTTP(location) {
		if _, err := url.Parse(location); err != nil {
			return "", false, fmt.Errorf("source: parse url: %w", err)
		}
		return location, true, nil
	}
	location = strings.TrimPrefix(location, "file://")

	if isHTTP(base) {
		b, err := url.Parse(base)
		if err != nil {
			return "", false, fmt.Errorf("source: parse base url: %w", err)
		}
		ref, err := url.Parse(filepath.ToSlash(location))
		if err != nil {
			return "", false, fmt.Errorf("source: parse location: %w", err)
		}
		return b.ResolveReference(ref).String(), true, nil
	}

	if filepath.IsAbs(location) || base == "" {
		return filepath.Clean(location), false, nil
	}
	return filepath.Join(strings.TrimPrefix(base, "file://"), location), false, nil
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Location returns the resolved path or URL.
func (s *Source) Location() string { return s.location }

// Remote reports whether the source is fetched over HTTP.
func (s *Source) Remote() bool { return s.remote }

// Fetch retrieves and parses the document. Every failure is a *FetchError.
func (s *Source) Fetch(ctx context.Context) (datadoc.Document, error) {
	var (
		data        []byte
		contentType string
		err         error
	)
	if s.remote {
		data, contentType, err = s.fetchHTTP(ctx)
	} else {
		data, err = s.readFile()
	}
	if err != nil {
		return nil, err
	}

	doc, err := datadoc.Parse(data, datadoc.FormatFor(s.pathPart(), contentType))
	if err != nil {
		return nil, &FetchError{Location: s.location, Kind: KindParse, Err: err}
	}
	return doc, nil
}

func (s *Source) pathPart() string {
	if !s.remote {
		return s.location
	}
	if u, err := url.Parse(s.location); err == nil {
		return u.Path
	}
	return s.location
}

func (s *Source) readFile() ([]byte, error) {
	f, err := os.Open(s.location)
	if err != nil {
		return nil, &FetchError{Location: s.location, Kind: KindTransport, Err: err}
	}
	defer f.Close()
	return s.readBody(f)
}

func (s *Source) fetchHTTP(ctx context.Context) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		return nil, "", &FetchError{Location: s.location, Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.8")
	req.Header.Set("User-Agent", s.ua)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", &FetchError{Location: s.location, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", &FetchError{
			Location:   s.location,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(respBody))),
		}
	}

	data, err := s.readBody(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (s *Source) readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, &FetchError{Location: s.location, Kind: KindTransport, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) > maxDocumentBytes {
		return nil, &FetchError{Location: s.location, Kind: KindParse, Err: fmt.Errorf("document exceeds %d bytes", maxDocumentBytes)}
	}
	return data, nil
}
