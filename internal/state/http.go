package state

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"rfactor-bot/internal/logger"
)

// Handler serves the store read-only as JSON.
//
//	GET /status          all symbols
//	GET /status?symbol=X one symbol, 404 if unknown
func (s *Store) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body any
		if sym := r.URL.Query().Get("symbol"); sym != "" {
			st, ok := s.Get(sym)
			if !ok {
				http.Error(w, "unknown symbol", http.StatusNotFound)
				return
			}
			body = st
		} else {
			body = s.All()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	return mux
}

// Serve runs the status server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, s *Store) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Status server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
