package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Page addresses one 1-indexed page of a loaded document.
type Page struct {
	Doc    *entity.Document
	Number int
}

// Backend wraps one extraction technology behind a uniform interface.
//
// Probe must be free of side effects and cheap after the first call; a missing
// tool or library is reported as false, never as an error. Extract never fails:
// problems are recorded on the returned candidate's FailureReason.
type Backend interface {
	ID() constants.BackendID
	Capability() constants.Capability
	Class() constants.BackendClass
	Probe(ctx context.Context) bool
	Extract(ctx context.Context, page Page) entity.Candidate
}

// Safe calls b.Extract and turns a panic into a failed candidate.
func Safe(ctx context.Context, b Backend, page Page) (c entity.Candidate) {
	defer func() {
		if r := recover(); r != nil {
			c = entity.Failed(page.Number, b.Capability(), b.ID(), b.Class(), fmt.Sprintf("panic: %v", r))
		}
	}()
	c = b.Extract(ctx, page)
	c.Page = page.Number
	c.Backend = b.ID()
	c.Class = b.Class()
	c.Kind = b.Capability()
	return c
}

// info carries the identity shared by every adapter.
type info struct {
	id    constants.BackendID
	cap   constants.Capability
	class constants.BackendClass
}

func (i info) ID() constants.BackendID          { return i.id }
func (i info) Capability() constants.Capability { return i.cap }
func (i info) Class() constants.BackendClass    { return i.class }

func (i info) fail(page Page, format string, args ...any) entity.Candidate {
	return entity.Failed(page.Number, i.cap, i.id, i.class, fmt.Sprintf(format, args...))
}

// probeCache remembers the first probe result for the run.
type probeCache struct {
	once sync.Once
	ok   bool
}

func (p *probeCache) get(fn func() bool) bool {
	p.once.Do(func() { p.ok = fn() })
	return p.ok
}
