// Package snapshot renders a bound page to PNG in headless Chrome via Rod.
// The browser is started lazily on first capture and reused afterwards.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Config configures a Renderer.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome.
	RemoteURL string

	// Viewport size in CSS pixels. Defaults: 875x300.
	Width  int
	Height int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 875
	}
	if c.Height <= 0 {
		c.Height = 300
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// BrowserError marks a failure of the browser connection itself. The
// renderer drops its browser when one occurs so a later capture starts over.
type BrowserError struct {
	Err error
}

func (e *BrowserError) Error() string { return "snapshot: browser: " + e.Err.Error() }
func (e *BrowserError) Unwrap() error { return e.Err }

// IsBrowserError reports whether err came from the browser connection.
func IsBrowserError(err error) bool {
	var be *BrowserError
	return errors.As(err, &be)
}

// Renderer captures HTML documents as PNG images.
type Renderer struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewRenderer creates a Renderer. No browser is started until Capture.
func NewRenderer(cfg Config) *Renderer {
	cfg.defaults()
	return &Renderer{cfg: cfg}
}

// Capture loads doc into a fresh tab and returns a full-page PNG.
func (r *Renderer) Capture(ctx context.Context, doc []byte) ([]byte, error) {
	b, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		r.reset()
		return nil, &BrowserError{Err: fmt.Errorf("create tab: %w", err)}
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.cfg.Width,
		Height:            r.cfg.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("snapshot: set viewport: %w", err)
	}
	if err := page.SetDocumentContent(string(doc)); err != nil {
		return nil, fmt.Errorf("snapshot: set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		r.cfg.Logger.Warn("snapshot: wait load", "error", err)
	}

	img, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: screenshot: %w", err)
	}
	return img, nil
}

// Close shuts down the browser.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cleanupLocked()
	return nil
}

func (r *Renderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("snapshot: renderer is closed")
	}
	if r.browser != nil {
		return r.browser, nil
	}

	log := r.cfg.Logger
	wsURL := r.cfg.RemoteURL
	if wsURL != "" {
		log.Info("snapshot: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, &BrowserError{Err: fmt.Errorf("launch: %w", err)}
		}
		wsURL = u
		r.lnch = l
		log.Info("snapshot: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		r.cleanupLocked()
		return nil, &BrowserError{Err: fmt.Errorf("connect: %w", err)}
	}
	r.browser = b
	return b, nil
}

func (r *Renderer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupLocked()
}

func (r *Renderer) cleanupLocked() {
	if r.browser != nil {
		r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
}
