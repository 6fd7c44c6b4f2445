package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/export"
	"github.com/dgallion1/badgebind/internal/page"
	"github.com/dgallion1/badgebind/internal/snapshot"
)

// Capturer turns a serialized HTML document into a PNG.
type Capturer interface {
	Capture(ctx context.Context, doc []byte) ([]byte, error)
}

// Worker processes a single snapshot job.
type Worker struct {
	binder   *binder.Binder
	capturer Capturer
	log      *slog.Logger
	backoff  func(attempt int) time.Duration
}

func NewWorker(b *binder.Binder, c Capturer, log *slog.Logger) *Worker {
	return &Worker{
		binder:   b,
		capturer: c,
		log:      log,
		backoff:  Backoff,
	}
}

// Process loads the template, binds it, and captures it as PNG.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "template", job.Template)

	// Phase 1: Load
	job.SetStatus(StatusLoading, "loading template")
	if job.tpl == nil {
		w.fail(log, job, "loading template", fmt.Errorf("job has no template"))
		return
	}
	root, err := job.tpl.Tree()
	if err != nil {
		w.fail(log, job, "loading template", fmt.Errorf("load: %w", err))
		return
	}

	// Phase 2: Bind
	job.SetStatus(StatusBinding, "binding data")
	res, err := w.binder.Run(ctx, root)
	if err != nil {
		w.fail(log, job, "binding data", fmt.Errorf("fetch: %w", err))
		return
	}
	job.SetResult(res)

	doc, err := export.HTMLBytes(root)
	if err != nil {
		w.fail(log, job, "binding data", fmt.Errorf("render html: %w", err))
		return
	}

	// Phase 3: Capture
	job.SetStatus(StatusRendering, "capturing snapshot")
	var img []byte
	var lastErr error
	for attempt := range MaxRetries {
		job.IncrAttempts()
		img, lastErr = w.capturer.Capture(ctx, doc)
		if lastErr == nil || !IsRetryable(lastErr) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("capture failed, retrying", "attempt", attempt+1, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			w.fail(log, job, "capturing snapshot", ctx.Err())
			return
		}
	}
	if lastErr != nil {
		w.fail(log, job, "capturing snapshot", fmt.Errorf("capture: %w", lastErr))
		return
	}

	if job.Transparent {
		img, err = snapshot.WhiteToTransparent(img)
		if err != nil {
			w.fail(log, job, "capturing snapshot", fmt.Errorf("transparency: %w", err))
			return
		}
	}

	job.SetPNG(img)
	job.SetStatus(StatusCompleted, "done")
	log.Info("snapshot completed", "title", page.Title(root), "bound", res.Bound, "missing", len(res.Missing), "bytes", len(img))
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("snapshot failed", "phase", phase, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
}
