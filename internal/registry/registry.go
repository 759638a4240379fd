// Package registry records which extraction backends are usable on this host.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/backend"
	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Registry holds the probed backends grouped by capability. It is read-only
// after New and safe for concurrent use.
type Registry struct {
	text   []backend.Backend
	tables []backend.Backend
	ocr    []backend.Backend
	status map[constants.BackendID]bool
	log    *slog.Logger
}

// New probes every backend exactly once. Backends with an unknown id or a
// duplicate id are ignored.
func New(ctx context.Context, backends []backend.Backend, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{status: make(map[constants.BackendID]bool, len(constants.KnownBackends)), log: logger}
	for _, id := range constants.KnownBackends {
		r.status[id] = false
	}

	seen := make(map[constants.BackendID]bool, len(backends))
	for _, b := range backends {
		id := b.ID()
		if !constants.IsKnownBackend(id) || seen[id] {
			logger.Warn("registry.backend.ignored", "backend", id)
			continue
		}
		seen[id] = true
		ok := b.Probe(ctx)
		r.status[id] = ok
		if !ok {
			logger.Info("registry.backend.unavailable", "backend", id)
			continue
		}
		switch b.Capability() {
		case constants.CapabilityText:
			r.text = append(r.text, b)
		case constants.CapabilityTable:
			r.tables = append(r.tables, b)
		case constants.CapabilityOCR:
			r.ocr = append(r.ocr, b)
		}
	}
	for _, list := range [][]backend.Backend{r.text, r.tables, r.ocr} {
		sortByPriority(list)
	}
	logger.Info("registry.ready",
		"text", ids(r.text), "tables", ids(r.tables), "ocr", ids(r.ocr))
	return r
}

// Text returns the available text backends in priority order.
func (r *Registry) Text() []backend.Backend { return clone(r.text) }

// Tables returns the available table backends in priority order.
func (r *Registry) Tables() []backend.Backend { return clone(r.tables) }

// OCR returns the available OCR backends in priority order.
func (r *Registry) OCR() []backend.Backend { return clone(r.ocr) }

func (r *Registry) HasOCR() bool { return len(r.ocr) > 0 }

// HasText reports whether at least one text backend is usable.
func (r *Registry) HasText() bool { return len(r.text) > 0 }

// Available reports the probe result for id.
func (r *Registry) Available(id constants.BackendID) bool { return r.status[id] }

// Select returns a view restricted to the enabled ids. A nil list keeps every
// detected backend of that capability. Unknown ids are a configuration error;
// known ids that did not probe are silently absent from the view. OCR backends
// are never filtered.
func (r *Registry) Select(enabledText, enabledTable []constants.BackendID) (*Registry, error) {
	v := common.NewValidator()
	for _, id := range append(append([]constants.BackendID{}, enabledText...), enabledTable...) {
		if !constants.IsKnownBackend(id) {
			v.Field("backend", string(id), unknownBackend)
		}
	}
	if err := v.ConfigError(); err != nil {
		return nil, err
	}
	view := &Registry{
		text:   filter(r.text, enabledText),
		tables: filter(r.tables, enabledTable),
		ocr:    r.ocr,
		status: r.status,
		log:    r.log,
	}
	for _, id := range enabledText {
		if !r.status[id] {
			r.log.Debug("registry.select.absent", "backend", id)
		}
	}
	return view, nil
}

// Report lists every known backend with its availability and capability.
func (r *Registry) Report() entity.BackendInventory {
	inv := entity.BackendInventory{
		Text:        idStrings(r.text),
		Table:       idStrings(r.tables),
		OCR:         idStrings(r.ocr),
		Unavailable: []string{},
	}
	for _, id := range constants.KnownBackends {
		if !r.status[id] {
			inv.Unavailable = append(inv.Unavailable, string(id))
		}
	}
	return inv
}

func unknownBackend(field string, value interface{}) *common.ValidationError {
	return &common.ValidationError{Field: field, Value: value, Message: fmt.Sprintf("unknown backend, known: %v", constants.KnownBackends)}
}

func filter(list []backend.Backend, enabled []constants.BackendID) []backend.Backend {
	if enabled == nil {
		return list
	}
	want := make(map[constants.BackendID]bool, len(enabled))
	for _, id := range enabled {
		want[id] = true
	}
	out := make([]backend.Backend, 0, len(list))
	for _, b := range list {
		if want[b.ID()] {
			out = append(out, b)
		}
	}
	return out
}

func sortByPriority(list []backend.Backend) {
	pos := make(map[constants.BackendID]int, len(constants.KnownBackends))
	for i, id := range constants.KnownBackends {
		pos[id] = i
	}
	sort.SliceStable(list, func(i, j int) bool { return pos[list[i].ID()] < pos[list[j].ID()] })
}

func clone(list []backend.Backend) []backend.Backend {
	return append([]backend.Backend(nil), list...)
}

func ids(list []backend.Backend) []constants.BackendID {
	out := make([]constants.BackendID, len(list))
	for i, b := range list {
		out[i] = b.ID()
	}
	return out
}

func idStrings(list []backend.Backend) []string {
	out := make([]string, len(list))
	for i, b := range list {
		out[i] = string(b.ID())
	}
	return out
}
