// Package server exposes texture generation and archived textures over HTTP.
package server

import "net/http"

// NewMux routes the on-demand renderer, its status, a health check and,
// when archive is non-nil, the archive endpoints.
func NewMux(od *OnDemand, archive *ArchiveHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/status", withCORS(od.StatusHandler()))
	if archive != nil {
		mux.Handle("/archive/", withCORS(archive.Handler()))
	}
	mux.Handle("/", withCORS(od.Handler()))
	return mux
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
