package monitoring

import (
	"fmt"
	"log"
	"net/http"
)

// HealthServer serves liveness and status endpoints. An optional
// StatusFunc contributes extra lines to /status, such as cache
// statistics.
type HealthServer struct {
	monitor    *Monitor
	port       string
	statusFunc func() string
}

func NewHealthServer(monitor *Monitor, port string, statusFunc func() string) *HealthServer {
	if port == "" {
		port = "8080"
	}
	return &HealthServer{
		monitor:    monitor,
		port:       port,
		statusFunc: statusFunc,
	}
}

func (h *HealthServer) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/status", h.statusHandler)

	log.Printf("Health check server starting on port %s", h.port)
	go func() {
		if err := http.ListenAndServe(":"+h.port, mux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitor.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK - %s", h.monitor.GetStatusSummary())
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Service unhealthy - %s", h.monitor.GetStatusSummary())
	}
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, h.monitor.GetStatusSummary())
	if h.statusFunc != nil {
		fmt.Fprintln(w, h.statusFunc())
	}
}
