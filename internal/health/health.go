// Package health serves the liveness and readiness probes on the Audicia ops
// listener, next to the Prometheus scrape endpoint.
//
//   - /healthz reports liveness. A process that can answer HTTP is alive.
//   - /readyz reports readiness: 200 only when every registered probe passes.
//     The server wires a "storage" probe that pings the record store; a
//     deployment behind a load balancer should gate traffic on this endpoint
//     so sessions are not routed to an instance whose database is gone.
//
// The readiness body names every probe with its outcome and latency:
//
//	{"status":"ok","checks":{"storage":{"status":"ok","latency_ms":2}}}
package health

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness probe. A probe that cannot answer in
// this window counts as failed.
const checkTimeout = 5 * time.Second

// Checker is one named readiness probe.
type Checker struct {
	// Name keys the probe in the JSON response (e.g. "storage").
	Name string

	// Check pings the dependency. It runs with a deadline on every /readyz
	// request and must honor ctx.
	Check func(ctx context.Context) error
}

// checkResult is the JSON entry for one evaluated probe.
type checkResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// response is the JSON body for both endpoints.
type response struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. Safe for concurrent use; the probe
// list is fixed at construction.
type Handler struct {
	checkers []Checker
}

// New creates a Handler that evaluates the given probes, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always answers 200. Liveness needs no dependency checks.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz evaluates every probe and answers 200 only when all pass, 503
// otherwise. Each probe gets its own [checkTimeout] deadline derived from the
// request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]checkResult, len(h.checkers))
	ready := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		start := time.Now()
		err := c.Check(ctx)
		cancel()

		res := checkResult{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			res.Status = "fail"
			res.Error = err.Error()
			ready = false
		}
		checks[c.Name] = res
	}

	out := response{Status: "ok", Checks: checks}
	code := http.StatusOK
	if !ready {
		out.Status = "fail"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, out)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v to a buffer first so an encoding failure can still
// produce a clean 500 instead of a half-written body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
