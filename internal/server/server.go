package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/parleychat/parley/internal/agents"
	"github.com/parleychat/parley/internal/auth"
	"github.com/parleychat/parley/internal/database"
	"github.com/parleychat/parley/internal/handlers"
	"github.com/parleychat/parley/internal/hub"
	mw "github.com/parleychat/parley/internal/middleware"
)

type Server struct {
	Router *chi.Mux
	DB     *database.DB
	Auth   *auth.Service
	Hub    *hub.Hub
}

type Config struct {
	DB             *database.DB
	Auth           *auth.Service
	Hub            *hub.Hub
	Coordinator    *agents.Coordinator
	AllowedOrigins []string
}

func New(cfg Config) *Server {
	s := &Server{
		Router: chi.NewRouter(),
		DB:     cfg.DB,
		Auth:   cfg.Auth,
		Hub:    cfg.Hub,
	}

	if cfg.Coordinator != nil {
		s.Hub.SetMessageHandler(cfg.Coordinator)
	}

	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes()

	return s
}

// Caster adapts the hub to the coordinator's broadcast interface. Agent
// output has no sending connection, so the sender slot is always nil.
type Caster struct {
	Hub *hub.Hub
}

func (c Caster) Broadcast(room, message, username string) {
	c.Hub.Broadcast(room, message, username, nil)
}

func (c Caster) BroadcastPartial(room, message, username string) {
	c.Hub.BroadcastPartial(room, message, username)
}

func (s *Server) setupMiddleware(allowedOrigins []string) {
	s.Router.Use(chiMiddleware.RealIP)
	s.Router.Use(mw.RequestID)
	s.Router.Use(mw.SecurityHeaders)
	s.Router.Use(mw.Logger)
	s.Router.Use(mw.CORS(allowedOrigins))
	s.Router.Use(chiMiddleware.Recoverer)
}

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.DB, s.Auth)
	roomsHandler := handlers.NewRoomsHandler(s.DB, s.Hub)
	agentsHandler := handlers.NewAgentsHandler(s.DB)
	usersHandler := handlers.NewUsersHandler(s.DB)

	s.Router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes
	s.Router.Group(func(r chi.Router) {
		r.Use(mw.RateLimit(10, time.Minute))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/token", authHandler.Token)
		r.Post("/token/refresh", authHandler.Refresh)
	})

	// WebSocket (auth handled internally; browser clients pass ?token=)
	s.Router.Get("/ws/{room}", s.Hub.HandleWS)

	// Protected routes
	s.Router.Group(func(r chi.Router) {
		r.Use(mw.Auth(s.Auth))

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", roomsHandler.List)
			r.Post("/", roomsHandler.Create)
			r.Get("/{id}", roomsHandler.Get)
			r.Put("/{id}", roomsHandler.Update)
			r.Post("/{id}/agents/{agentID}", roomsHandler.SetAgent)
			r.Post("/{id}/commands/{command}", roomsHandler.SetCommand)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", agentsHandler.List)
			r.Post("/", agentsHandler.Create)
			r.Get("/{id}", agentsHandler.Get)
			r.Patch("/{id}", agentsHandler.Update)
		})

		r.Get("/users/me", usersHandler.Me)
		r.Put("/users/me", usersHandler.UpdateMe)
	})
}
