// Package health serves probe endpoints next to the metrics listener.
//
//   - /healthz reports liveness and the progress of the running session.
//   - /readyz returns 200 only when every registered [Probe] passes.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail").
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 5 * time.Second

// Probe is a named readiness check. Check returns nil when the component is
// ready and an error describing why not otherwise.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Progress describes where the current session is.
type Progress struct {
	Session string    `json:"session,omitempty"`
	Stage   string    `json:"stage,omitempty"`
	Since   time.Time `json:"since,omitzero"`
}

type result struct {
	Status   string            `json:"status"`
	Uptime   string            `json:"uptime,omitempty"`
	Progress *Progress         `json:"progress,omitempty"`
	Probes   map[string]string `json:"probes,omitempty"`
}

// Handler serves /healthz and /readyz. It is safe for concurrent use; the
// probe list is fixed at construction time.
type Handler struct {
	started  time.Time
	progress func() Progress
	probes   []Probe
}

// New creates a Handler. progress may be nil.
func New(progress func() Progress, probes ...Probe) *Handler {
	return &Handler{
		started:  time.Now(),
		progress: progress,
		probes:   append([]Probe(nil), probes...),
	}
}

// Healthz always returns 200 with the uptime and session progress.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	res := result{Status: "ok", Uptime: time.Since(h.started).Round(time.Millisecond).String()}
	if h.progress != nil {
		p := h.progress()
		res.Progress = &p
	}
	writeJSON(w, http.StatusOK, res)
}

// Readyz runs all probes concurrently, each bounded by [probeTimeout], and
// returns 503 if any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	var (
		mu     sync.Mutex
		probes = make(map[string]string, len(h.probes))
		failed bool
	)
	g, ctx := errgroup.WithContext(r.Context())
	for _, p := range h.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			err := p.Check(pctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				probes[p.Name] = "fail: " + err.Error()
				failed = true
			} else {
				probes[p.Name] = "ok"
			}
			return nil
		})
	}
	_ = g.Wait()

	res := result{Status: "ok", Probes: probes}
	status := http.StatusOK
	if failed {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
