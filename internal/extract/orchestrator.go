// Package extract runs the registered backends over one page and escalates
// sparse pages to OCR.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/backend"
	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/entity"
	"github.com/joseph-ayodele/report-facts/internal/registry"
)

// Orchestrator fans a page out to every selected backend. One orchestrator
// serves a whole document so the worker bound holds across pages.
type Orchestrator struct {
	reg     *registry.Registry
	opts    Options
	workers *semaphore.Weighted
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewOrchestrator validates opts and builds the worker pool and OCR limiter.
func NewOrchestrator(reg *registry.Registry, opts Options, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		return nil, common.NewConfigurationError("registry is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()

	limit := rate.Inf
	if opts.OCRRatePerSecond > 0 {
		limit = rate.Limit(opts.OCRRatePerSecond)
	}
	return &Orchestrator{
		reg:     reg,
		opts:    opts,
		workers: semaphore.NewWeighted(int64(opts.MaxWorkers)),
		limiter: rate.NewLimiter(limit, 1),
		log:     logger,
	}, nil
}

// ExtractPage returns one candidate per invoked backend, successful or not.
// The only errors are cancellation of ctx and failure to obtain a worker.
func (o *Orchestrator) ExtractPage(ctx context.Context, doc *entity.Document, n int) ([]entity.Candidate, error) {
	page := backend.Page{Doc: doc, Number: n}
	log := common.LoggerFrom(ctx, o.log).With("page", n)

	first := append(o.reg.Text(), o.reg.Tables()...)
	cands := make([]entity.Candidate, len(first))
	if o.opts.Concurrent() {
		g, gctx := errgroup.WithContext(ctx)
		for i, b := range first {
			g.Go(func() error {
				c, err := o.invoke(gctx, b, page, o.opts.BackendTimeout)
				if err != nil {
					return err
				}
				cands[i] = c
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, o.failure(ctx, err)
		}
	} else {
		for i, b := range first {
			c, err := o.invoke(ctx, b, page, o.opts.BackendTimeout)
			if err != nil {
				return nil, o.failure(ctx, err)
			}
			cands[i] = c
		}
	}
	for _, c := range cands {
		if c.OK() {
			log.Debug("extract.backend.ok", "backend", c.Backend, "words", c.WordCount, "cells", c.CellCount, "took", c.Duration)
		} else {
			log.Debug("extract.backend.failed", "backend", c.Backend, "reason", c.FailureReason)
		}
	}

	best := bestWordCount(cands)
	if !o.needsOCR(best) {
		return cands, nil
	}
	ocr := o.reg.OCR()[0]
	log.Info("extract.page.ocr", "backend", ocr.ID(), "best_words", best, "threshold", o.opts.Threshold())
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, o.failure(ctx, err)
	}
	c, err := o.invoke(ctx, ocr, page, o.opts.OCRTimeout)
	if err != nil {
		return nil, o.failure(ctx, err)
	}
	if !c.OK() {
		log.Warn("extract.page.ocr.failed", "backend", c.Backend, "reason", c.FailureReason)
	}
	return append(cands, c), nil
}

func (o *Orchestrator) needsOCR(bestWords int) bool {
	return o.opts.OCREnabled() && o.reg.HasOCR() && bestWords < o.opts.Threshold()
}

// invoke runs one backend under a worker slot and a deadline. The deadline
// covers waiting for the slot. A backend still running at its deadline is
// abandoned and its slot handed back, so a stuck parser cannot starve the
// rest of the page.
func (o *Orchestrator) invoke(ctx context.Context, b backend.Backend, page backend.Page, timeout time.Duration) (entity.Candidate, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	timedOut := func() (entity.Candidate, error) {
		if err := ctx.Err(); err != nil {
			return entity.Candidate{}, err
		}
		c := entity.Failed(page.Number, b.Capability(), b.ID(), b.Class(), constants.FailureTimeout)
		c.Duration = time.Since(start)
		return c, nil
	}
	if err := o.workers.Acquire(tctx, 1); err != nil {
		if tctx.Err() != nil {
			return timedOut()
		}
		return entity.Candidate{}, err
	}
	var once sync.Once
	release := func() { once.Do(func() { o.workers.Release(1) }) }

	done := make(chan entity.Candidate, 1)
	go func() {
		defer release()
		done <- backend.Safe(tctx, b, page)
	}()

	select {
	case c := <-done:
		c.Duration = time.Since(start)
		if c.OK() && c.WordCount == 0 && c.Text != "" {
			c.WordCount = entity.CountWords(c.Text)
		}
		return c, nil
	case <-tctx.Done():
		release()
		return timedOut()
	}
}

// failure keeps cancellation errors as they are and reports anything else
// as resource exhaustion.
func (o *Orchestrator) failure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return common.NewAppError(common.CodeResources, fmt.Sprintf("acquire worker: %v", err), common.ErrResourceExhausted)
}

// bestWordCount is the largest word count among successful text candidates.
func bestWordCount(cands []entity.Candidate) int {
	best := 0
	for _, c := range cands {
		if c.OK() && c.Kind == constants.CapabilityText && c.WordCount > best {
			best = c.WordCount
		}
	}
	return best
}
