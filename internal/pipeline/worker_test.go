package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/config"
	"github.com/dgallion1/badgebind/internal/datadoc"
	"github.com/dgallion1/badgebind/internal/page"
	"github.com/dgallion1/badgebind/internal/snapshot"
)

type docFetcher struct {
	doc datadoc.Document
	err error
}

func (f docFetcher) Fetch(context.Context) (datadoc.Document, error) {
	return f.doc, f.err
}

type fakeCapturer struct {
	mu    sync.Mutex
	fails int
	err   error
	calls int
	docs  []string
}

func (c *fakeCapturer) Capture(_ context.Context, doc []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.docs = append(c.docs, string(doc))
	if c.calls <= c.fails {
		return nil, c.err
	}
	return whitePNG(), nil
}

func whitePNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.White)
	img.Set(1, 0, color.Black)
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTemplate(t *testing.T) *page.Template {
	t.Helper()
	path := filepath.Join(t.TempDir(), "badge.html")
	src := `<html><body><span user="user.name">x</span><span user="user.team">y</span></body></html>`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	tpl, err := page.ReadTemplate(path, "user")
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	return tpl
}

func testBinder(t *testing.T, fetchErr error) *binder.Binder {
	t.Helper()
	doc, err := datadoc.Parse([]byte("user:\n  name: alice\n"), datadoc.FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return binder.New(docFetcher{doc: doc, err: fetchErr}, "", quietLogger(), nil)
}

func newTestWorker(b *binder.Binder, c Capturer) *Worker {
	w := NewWorker(b, c, quietLogger())
	w.backoff = func(int) time.Duration { return time.Millisecond }
	return w
}

func TestWorker_Process(t *testing.T) {
	capt := &fakeCapturer{}
	w := newTestWorker(testBinder(t, nil), capt)

	job := NewJob(writeTemplate(t), false)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors %v)", StatusCompleted, snap.Status, snap.Errors)
	}
	if snap.Bound != 1 {
		t.Errorf("expected 1 bound, got %d", snap.Bound)
	}
	if len(snap.Missing) != 1 || snap.Missing[0] != "user.team" {
		t.Errorf("expected missing [user.team], got %v", snap.Missing)
	}
	if !strings.Contains(capt.docs[0], ">alice<") || !strings.Contains(capt.docs[0], "Variable user.team not found") {
		t.Errorf("expected bound document to be captured, got %q", capt.docs[0])
	}
	if !bytes.Equal(job.PNG(), whitePNG()) {
		t.Error("expected captured png to be stored unchanged")
	}
}

func TestWorker_RetriesBrowserErrors(t *testing.T) {
	capt := &fakeCapturer{fails: 2, err: &snapshot.BrowserError{Err: errors.New("connection reset")}}
	w := newTestWorker(testBinder(t, nil), capt)

	job := NewJob(writeTemplate(t), true)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q", StatusCompleted, snap.Status)
	}
	if snap.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", snap.Attempts)
	}

	img, err := png.Decode(bytes.NewReader(job.PNG()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("expected white pixel to be transparent, got alpha %d", a)
	}
	if _, _, _, a := img.At(1, 0).RGBA(); a == 0 {
		t.Error("expected black pixel to stay opaque")
	}
}

func TestWorker_GivesUpAfterMaxRetries(t *testing.T) {
	capt := &fakeCapturer{fails: MaxRetries, err: &snapshot.BrowserError{Err: errors.New("gone")}}
	w := newTestWorker(testBinder(t, nil), capt)

	job := NewJob(writeTemplate(t), false)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if capt.calls != MaxRetries {
		t.Errorf("expected %d calls, got %d", MaxRetries, capt.calls)
	}
}

func TestWorker_DoesNotRetryPageErrors(t *testing.T) {
	capt := &fakeCapturer{fails: 1, err: errors.New("screenshot: bad viewport")}
	w := newTestWorker(testBinder(t, nil), capt)

	job := NewJob(writeTemplate(t), false)
	w.Process(context.Background(), job)

	if job.Snapshot().Status != StatusFailed {
		t.Fatalf("expected failure, got %q", job.Snapshot().Status)
	}
	if capt.calls != 1 {
		t.Errorf("expected 1 call, got %d", capt.calls)
	}
}

func TestWorker_FetchFailureSkipsCapture(t *testing.T) {
	capt := &fakeCapturer{}
	w := newTestWorker(testBinder(t, errors.New("status 500")), capt)

	job := NewJob(writeTemplate(t), false)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "binding data" {
		t.Fatalf("expected failure while binding, got %q/%q", snap.Status, snap.Phase)
	}
	if capt.calls != 0 {
		t.Errorf("expected no capture, got %d calls", capt.calls)
	}
}

func TestWorker_JobWithoutTemplate(t *testing.T) {
	w := newTestWorker(testBinder(t, nil), &fakeCapturer{})
	job := &Job{ID: "no-template", Status: StatusQueued}
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "loading template" {
		t.Fatalf("expected failure while loading, got %q/%q", snap.Status, snap.Phase)
	}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	cfg := config.Config{SnapshotWorkers: 2, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, testBinder(t, nil), &fakeCapturer{}, quietLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob(writeTemplate(t), false)
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := job.Snapshot().Status; s == StatusCompleted || s == StatusFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected status %q, got %q", StatusCompleted, s)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{SnapshotWorkers: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	// Not started, so nothing drains the queue.
	o := NewOrchestrator(cfg, testBinder(t, nil), &fakeCapturer{}, quietLogger())

	tpl := writeTemplate(t)
	if err := o.Submit(NewJob(tpl, false)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob(tpl, false)
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", second.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}
