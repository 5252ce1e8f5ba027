package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/gametable/pkg/api/handlers"
	"github.com/cbodonnell/gametable/pkg/api/middleware"
	authproviders "github.com/cbodonnell/gametable/pkg/auth/providers"
	"github.com/cbodonnell/gametable/pkg/log"
	"github.com/cbodonnell/gametable/pkg/repositories"
	"github.com/cbodonnell/gametable/pkg/rooms"
	"github.com/gorilla/mux"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port         int
	TLS          *TLSConfig
	AuthProvider authproviders.AuthProvider
	Registry     *rooms.Registry
	Repository   repositories.Repository
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	authMiddleware := middleware.NewAuthMiddleware(opts.AuthProvider)

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.Use(authMiddleware)

	router.HandleFunc("/rooms", handlers.HandleCreateRoom(opts.Registry)).Methods(http.MethodPost)
	router.HandleFunc("/rooms/{code}", handlers.HandleGetRoom(opts.Registry)).Methods(http.MethodGet)
	router.HandleFunc("/rooms/{code}/join", handlers.HandleCheckJoin(opts.Registry)).Methods(http.MethodPost)
	router.HandleFunc("/rooms/{code}/state", handlers.HandleGetRoomState(opts.Registry)).Methods(http.MethodGet)
	router.HandleFunc("/snapshots", handlers.HandleListSnapshots(opts.Repository)).Methods(http.MethodGet)
	router.HandleFunc("/snapshots/{snapshotID}", handlers.HandleGetSnapshot(opts.Repository)).Methods(http.MethodGet)
	router.HandleFunc("/snapshots/{snapshotID}", handlers.HandleDeleteSnapshot(opts.Repository)).Methods(http.MethodDelete)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start starts the APIServer
func (s *APIServer) Start() {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
