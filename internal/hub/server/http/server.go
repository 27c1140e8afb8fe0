package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"buswatch.io/buswatch/internal/hub/core/service"
	"buswatch.io/buswatch/internal/hub/storage"
	"buswatch.io/buswatch/internal/pkg/metrics"
	"buswatch.io/buswatch/pkg/log"
	"buswatch.io/buswatch/pkg/options"
)

// Server carries the REST API, the WebSocket gateway endpoint and the
// operational probes on a single listener.
type Server struct {
	server  *http.Server
	options *options.HttpOptions
}

// NewServer builds the router. The gateway handler is mounted at
// gatewayPath; ready reports backing-store reachability for /readyz.
// media may be nil when no object store is configured.
func NewServer(opts *options.HttpOptions, gatewayPath string, gateway http.Handler, svc *service.Service, media *storage.MediaStore, ready func(ctx context.Context) error) *Server {
	r := mux.NewRouter()

	r.Handle(gatewayPath, gateway)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	h := &apiHandler{svc: svc, media: media, log: log.WithName("api")}
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stops/nearby", h.nearbyStops).Methods(http.MethodGet)
	api.HandleFunc("/stops/{id}", h.stop).Methods(http.MethodGet)
	api.HandleFunc("/stops/{id}/image", h.stopImage).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}", h.vehicle).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}/position", h.position).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}/history", h.history).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}/image", h.vehicleImage).Methods(http.MethodGet)

	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           r,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
		},
		options: opts,
	}
}

func (s *Server) Start(ctx context.Context) error {
	log.Info("starting http server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
