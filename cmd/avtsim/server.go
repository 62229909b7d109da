package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fsm "github.com/enetx/upnpfsm"
	"github.com/enetx/upnpfsm/avtransport"
)

type stateResponse struct {
	Snapshot  fsm.Snapshot                  `json:"machine"`
	Transport avtransport.TransportInfo     `json:"transport"`
	Actions   []avtransport.TransportAction `json:"actions"`
	Media     avtransport.MediaInfo         `json:"media"`
	Position  avtransport.PositionInfo      `json:"position"`
}

// router exposes metrics and the transport's diagnostics.
func router(avt *avtransport.AVTransport) chi.Router {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		_ = json.NewEncoder(w).Encode(stateResponse{
			Snapshot:  avt.Machine().Snapshot(),
			Transport: avt.TransportInfo(),
			Actions:   avt.CurrentTransportActions(),
			Media:     avt.MediaInfo(),
			Position:  avt.PositionInfo(),
		})
	})

	r.Get("/graph", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(avt.Machine().ToDOT()))
	})

	return r
}

// serve runs the diagnostics server until ctx is done.
func serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() { errCh <- srv.ListenAndServe() }()

	logger.InfoContext(ctx, "Serving diagnostics", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		logger.InfoContext(ctx, "Shutting down diagnostics server")

		return srv.Shutdown(shutdownCtx)
	}
}
