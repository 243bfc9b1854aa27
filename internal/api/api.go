package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/koinot-markazi/split-bill-bot/internal/config"
	"github.com/koinot-markazi/split-bill-bot/internal/splitbill"
)

// API is a read-only JSON view over the ledger for operators: recent
// sessions per chat and the state of a receipt. Protected routes require an
// admin JWT obtained with the admin password.
type API struct {
	router    *mux.Router
	svc       *splitbill.Service
	config    *config.Config
	jwtSecret []byte
}

func New(cfg *config.Config, svc *splitbill.Service) *API {
	a := &API{
		router:    mux.NewRouter(),
		svc:       svc,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
	}

	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	// Public endpoints
	a.router.HandleFunc("/api/health", a.handleHealth).Methods("GET")
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("POST")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/chats/{chat_id}/sessions", a.handleChatSessions).Methods("GET")
	protected.HandleFunc("/receipts/{id}", a.handleReceipt).Methods("GET")
}

func (a *API) Start() error {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}
