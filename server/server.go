package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"artlens/config"
	"artlens/logger"

	"github.com/gorilla/mux"
)

// corsMiddleware allows the web client to call the API from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter wires every route. CORS wraps the router itself so preflight
// requests are answered even for routes that only accept POST.
func NewRouter(apiHandler *APIHandler, playerHandler *PlayerHandler) http.Handler {
	router := mux.NewRouter()

	auth := apiHandler.AuthMiddleware

	router.HandleFunc("/api/describe", auth(apiHandler.DescribeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/generate-audio", auth(apiHandler.GenerateAudioHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/chat", auth(apiHandler.ChatHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/chat-generate-audio", auth(apiHandler.ChatAudioHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/transcribe", auth(apiHandler.TranscribeHandler)).Methods(http.MethodPost)

	router.HandleFunc("/api/scans", auth(apiHandler.ListScansHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/scans/{id}", auth(apiHandler.GetScanHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/scans/{id}", auth(apiHandler.DeleteScanHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/scans/{id}/messages", auth(apiHandler.ListMessagesHandler)).Methods(http.MethodGet)

	router.HandleFunc("/ws/player", playerHandler.WebSocketPlayerHandler)
	router.HandleFunc("/media/{object:.+}", apiHandler.MediaHandler).Methods(http.MethodGet, http.MethodHead)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return corsMiddleware(router)
}

// Run serves handler on cfg.Port until SIGINT or SIGTERM, then shuts down gracefully.
func Run(cfg *config.Config, handler http.Handler) error {
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second, // describe waits on vision and speech
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-stop:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
