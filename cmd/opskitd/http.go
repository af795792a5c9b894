package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/opskit/pkg/health"
	"github.com/bft-labs/opskit/pkg/logpipe"
	"github.com/bft-labs/opskit/pkg/opskit"
)

// bufferWarnRatio is the ring occupancy above which the pipeline reports a warning.
const bufferWarnRatio = 0.9

// pipelineCheck reports critical once the pipeline is closed and a warning
// while it is nearly full or has dropped records since the last poll.
func pipelineCheck(p *logpipe.Pipeline) (*health.Check, error) {
	var lastDropped atomic.Uint64
	return health.New("pipeline", "log pipeline accepts records", func(ctx context.Context) (health.Status, error) {
		st := p.Stats()
		dropped := st.Dropped - lastDropped.Swap(st.Dropped)

		switch {
		case st.Closed:
			return health.StatusCritical, nil
		case dropped > 0, float64(st.Buffered) >= bufferWarnRatio*float64(st.Capacity):
			return health.StatusWarning, nil
		default:
			return health.StatusOK, nil
		}
	})
}

type healthResponse struct {
	Service string        `json:"service"`
	State   string        `json:"state"`
	Status  string        `json:"status"`
	Checks  []checkResult `json:"checks"`
}

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func newHTTPServer(addr string, gatherer prometheus.Gatherer, svc *opskit.Service, checks ...*health.Check) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", healthHandler(svc, checks...))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// healthHandler serves the worst status of the service checks and checks.
// Anything but ok or warning answers 503.
func healthHandler(svc *opskit.Service, checks ...*health.Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, results := svc.Health(ctx)
		extra, extraResults := health.PollAll(ctx, checks...)
		if len(extraResults) > 0 && (len(results) == 0 || extra.Worse(status)) {
			status = extra
		}
		results = append(results, extraResults...)

		resp := healthResponse{
			Service: svc.Pipeline().Name(),
			State:   svc.Status().String(),
			Status:  status.String(),
		}
		for _, res := range results {
			cr := checkResult{Name: res.Name, Status: res.Status.String()}
			if res.Err != nil {
				cr.Error = res.Err.Error()
			}
			resp.Checks = append(resp.Checks, cr)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != health.StatusOK && status != health.StatusWarning {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
